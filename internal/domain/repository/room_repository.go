package repository

import (
	"context"

	"propertigo/internal/domain/entity"
)

// RoomRepository is the storage contract for rooms and their message logs.
// All room mutations are expressed as named field updates so that
// concurrent writers never clobber each other's fields.
type RoomRepository interface {
	GetByID(ctx context.Context, id string) (*entity.Room, error)

	// Create writes the initial room document with a plain set. The id is
	// canonical, so two racing creators write identical data and converge.
	Create(ctx context.Context, room *entity.Room) error

	// Touch bumps updatedAt and nothing else. Used when a creator finds
	// the room already present.
	Touch(ctx context.Context, id string) error

	// AppendMessage inserts into the room's ordered sub-log with a
	// server-assigned timestamp and returns the message id.
	AppendMessage(ctx context.Context, roomID string, msg *entity.Message) (string, error)

	// ApplySendEffects performs the field-level room updates that follow a
	// send: lastMessage, readStatus flips for both participants, updatedAt.
	ApplySendEffects(ctx context.Context, roomID, senderID, otherID, text string) error

	// MarkRead flips readStatus.<userID> to read and stamps
	// lastReadAt.<userID>. It must not touch the other participant.
	MarkRead(ctx context.Context, roomID, userID string) error

	ListByParticipant(ctx context.Context, userID string) ([]*entity.Room, error)

	// ListMessages returns the room's full log ordered by server timestamp
	// ascending.
	ListMessages(ctx context.Context, roomID string) ([]*entity.Message, error)

	WatchMessages(ctx context.Context, roomID string) (*MessageSubscription, error)
	WatchRooms(ctx context.Context, userID string) (*RoomSubscription, error)
}
