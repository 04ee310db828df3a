package usecase

import (
	"context"
	"strings"

	"propertigo/internal/domain/entity"
	"propertigo/internal/domain/repository"
	"propertigo/internal/infrastructure/ratelimit"
	"propertigo/pkg/errors"
	"propertigo/pkg/logger"
)

// Availability is the memoized backend probe consulted before every
// operation. When it reports false, reads degrade to empty results and
// writes return a typed NOT_AVAILABLE error so the caller can fall back to
// the REST conversation list.
type Availability interface {
	Available() bool
}

type ChatUseCase struct {
	roomRepo    repository.RoomRepository
	guard       Availability
	rateLimiter *ratelimit.RateLimiter
}

func NewChatUseCase(roomRepo repository.RoomRepository, guard Availability) *ChatUseCase {
	rateLimiter := ratelimit.NewRateLimiter()
	rateLimiter.StartCleanupRoutine()

	return &ChatUseCase{
		roomRepo:    roomRepo,
		guard:       guard,
		rateLimiter: rateLimiter,
	}
}

type EnsureRoomInput struct {
	BuyerID      string
	ReceiverID   string
	ReceiverRole string
	PropertyID   string

	// AuthoritativeRoomID is the id minted by the REST backend when it
	// recorded the inquiry. It is reused verbatim so both sides agree on
	// the identifier. When empty the id is computed locally.
	AuthoritativeRoomID string
}

type SendMessageInput struct {
	RoomID     string
	SenderID   string
	SenderRole string
	Text       string
}

// EnsureRoom creates the room document if it does not exist and returns its
// canonical id. Calling it twice with the same arguments yields the same id
// and a single document: creation is a plain set keyed by the canonical id,
// so racing creators converge, and a second creator that observes the
// existing document only bumps updatedAt.
func (uc *ChatUseCase) EnsureRoom(ctx context.Context, input EnsureRoomInput) (string, error) {
	for _, id := range []string{input.BuyerID, input.ReceiverID, input.PropertyID} {
		if err := entity.ValidateIdentity(id); err != nil {
			return "", err
		}
	}
	if input.BuyerID == input.ReceiverID {
		return "", errors.BadRequest("cannot start a conversation with yourself", nil)
	}
	if input.ReceiverRole != entity.RoleAgent && input.ReceiverRole != entity.RoleSeller {
		return "", errors.BadRequest("receiver role must be agent or seller", nil)
	}

	if !uc.guard.Available() {
		return "", errors.NotAvailable()
	}

	allowed, waitTime := uc.rateLimiter.Allow(input.BuyerID, "start_chat")
	if !allowed {
		logger.Warn("EnsureRoom rate limited: user %s must wait %v", input.BuyerID, waitTime)
		return "", errors.TooManyRequests("Rate limit exceeded. Please wait before starting another chat", waitTime)
	}

	roomID := input.AuthoritativeRoomID
	if roomID == "" {
		var err error
		roomID, err = entity.ComputeRoomID(input.BuyerID, input.ReceiverID, input.PropertyID)
		if err != nil {
			return "", err
		}
	}

	existing, err := uc.roomRepo.GetByID(ctx, roomID)
	if err != nil && !errors.Is(err, "NOT_FOUND") {
		return "", err
	}

	if existing != nil {
		// A racing create from a second device lands here; the room is
		// already in place, so treat it as created. First writer's role
		// labels stand.
		if err := uc.roomRepo.Touch(ctx, roomID); err != nil {
			return "", err
		}
		return roomID, nil
	}

	room := buildRoom(roomID, input)
	if err := uc.roomRepo.Create(ctx, room); err != nil {
		return "", err
	}

	return roomID, nil
}

func buildRoom(roomID string, input EnsureRoomInput) *entity.Room {
	participants := []string{input.BuyerID, input.ReceiverID}
	if strings.Compare(participants[0], participants[1]) > 0 {
		participants[0], participants[1] = participants[1], participants[0]
	}

	return &entity.Room{
		ID:           roomID,
		Participants: participants,
		BuyerID:      input.BuyerID,
		ReceiverID:   input.ReceiverID,
		ReceiverRole: input.ReceiverRole,
		PropertyID:   input.PropertyID,
		ReadStatus: map[string]string{
			input.BuyerID:    entity.StatusRead,
			input.ReceiverID: entity.StatusNew,
		},
	}
}

// SendMessage appends to the room's ordered log and flips the denormalized
// room state. No local queuing or retry: a failed send is reported to the
// caller, and retry policy belongs there.
func (uc *ChatUseCase) SendMessage(ctx context.Context, input SendMessageInput) (*entity.Message, error) {
	text := strings.TrimSpace(input.Text)
	if text == "" {
		return nil, errors.BadRequest("message text must not be empty", nil)
	}

	if !uc.guard.Available() {
		return nil, errors.NotAvailable()
	}

	allowed, waitTime := uc.rateLimiter.Allow(input.SenderID, "send_message")
	if !allowed {
		logger.Warn("SendMessage rate limited: user %s must wait %v", input.SenderID, waitTime)
		return nil, errors.TooManyRequests("Rate limit exceeded. Please slow down", waitTime)
	}

	room, err := uc.roomRepo.GetByID(ctx, input.RoomID)
	if err != nil {
		if !errors.Is(err, "NOT_FOUND") {
			return nil, err
		}
		room, err = uc.recoverRoom(ctx, input)
		if err != nil {
			return nil, err
		}
	}

	if !room.HasParticipant(input.SenderID) {
		return nil, errors.Forbidden("sender is not a participant of this room", nil)
	}

	msg := &entity.Message{
		RoomID:     room.ID,
		SenderID:   input.SenderID,
		SenderRole: input.SenderRole,
		Text:       text,
	}
	msgID, err := uc.roomRepo.AppendMessage(ctx, room.ID, msg)
	if err != nil {
		return nil, err
	}
	msg.ID = msgID

	other := room.OtherParticipant(input.SenderID)
	if err := uc.roomRepo.ApplySendEffects(ctx, room.ID, input.SenderID, other, text); err != nil {
		return nil, err
	}

	return msg, nil
}

// recoverRoom rebuilds a minimal room document from the id's three
// segments. A send can race ahead of lifecycle completion (the REST backend
// records the inquiry before the room document lands); losing the message
// over that would be worse than a thin room.
func (uc *ChatUseCase) recoverRoom(ctx context.Context, input SendMessageInput) (*entity.Room, error) {
	participants, propertyID, err := entity.ParseRoomID(input.RoomID)
	if err != nil {
		return nil, errors.NotFound("room", nil)
	}

	var other string
	for _, p := range participants {
		if p != input.SenderID {
			other = p
		}
	}
	if other == "" || !contains(participants, input.SenderID) {
		return nil, errors.Forbidden("sender is not a participant of this room", nil)
	}

	logger.Warn("room %s missing on send from %s; rebuilding minimal room", input.RoomID, input.SenderID)

	buyerID, receiverID := input.SenderID, other
	receiverRole := ""
	if input.SenderRole != entity.RoleBuyer {
		buyerID, receiverID = other, input.SenderID
		receiverRole = input.SenderRole
	}

	room := &entity.Room{
		ID:           input.RoomID,
		Participants: participants,
		BuyerID:      buyerID,
		ReceiverID:   receiverID,
		ReceiverRole: receiverRole,
		PropertyID:   propertyID,
		ReadStatus: map[string]string{
			input.SenderID: entity.StatusRead,
			other:          entity.StatusNew,
		},
	}
	if err := uc.roomRepo.Create(ctx, room); err != nil {
		return nil, err
	}
	return room, nil
}

// MarkRead flips the caller's own read marker. It never touches the other
// participant's entry or the message log.
func (uc *ChatUseCase) MarkRead(ctx context.Context, userID, roomID string) error {
	if !uc.guard.Available() {
		return errors.NotAvailable()
	}

	room, err := uc.roomRepo.GetByID(ctx, roomID)
	if err != nil {
		return err
	}
	if !room.HasParticipant(userID) {
		return errors.Forbidden("not a participant of this room", nil)
	}

	return uc.roomRepo.MarkRead(ctx, roomID, userID)
}

// GetReadStatus resolves the caller's effective marker, applying the
// missing-key rule from the room initialization.
func (uc *ChatUseCase) GetReadStatus(ctx context.Context, roomID, userID string) (string, error) {
	if !uc.guard.Available() {
		return "", errors.NotAvailable()
	}

	room, err := uc.roomRepo.GetByID(ctx, roomID)
	if err != nil {
		return "", err
	}
	return room.StatusFor(userID), nil
}

func (uc *ChatUseCase) GetRoomByID(ctx context.Context, userID, roomID string) (*entity.Room, error) {
	if !uc.guard.Available() {
		return nil, errors.NotAvailable()
	}

	room, err := uc.roomRepo.GetByID(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if !room.HasParticipant(userID) {
		return nil, errors.Forbidden("not a participant of this room", nil)
	}
	return room, nil
}

// GetUserRooms returns the caller's rooms, newest activity first, plus the
// derived unread count. The count is never stored; it is recomputed from
// the read-status markers on every call and on every room snapshot.
func (uc *ChatUseCase) GetUserRooms(ctx context.Context, userID string) ([]*entity.Room, int, error) {
	if !uc.guard.Available() {
		return []*entity.Room{}, 0, nil
	}

	rooms, err := uc.roomRepo.ListByParticipant(ctx, userID)
	if err != nil {
		return nil, 0, err
	}
	return rooms, CountUnread(rooms, userID), nil
}

func (uc *ChatUseCase) GetRoomMessages(ctx context.Context, userID, roomID string) ([]*entity.Message, error) {
	if !uc.guard.Available() {
		return []*entity.Message{}, nil
	}

	room, err := uc.roomRepo.GetByID(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if !room.HasParticipant(userID) {
		return nil, errors.Forbidden("not a participant of this room", nil)
	}

	return uc.roomRepo.ListMessages(ctx, roomID)
}

// WatchMessages opens a live view over one room's log. When the backend is
// unavailable it returns an already-terminated subscription carrying one
// empty list, so the consumer renders an empty state instead of hanging.
func (uc *ChatUseCase) WatchMessages(ctx context.Context, userID, roomID string) (*repository.MessageSubscription, error) {
	if !uc.guard.Available() {
		return repository.ClosedMessageSubscription(errors.NotAvailable()), nil
	}

	room, err := uc.roomRepo.GetByID(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if !room.HasParticipant(userID) {
		return nil, errors.Forbidden("not a participant of this room", nil)
	}

	return uc.roomRepo.WatchMessages(ctx, roomID)
}

// WatchRooms opens the per-user live view backing the conversation list and
// the unread badge.
func (uc *ChatUseCase) WatchRooms(ctx context.Context, userID string) (*repository.RoomSubscription, error) {
	if !uc.guard.Available() {
		return repository.ClosedRoomSubscription(errors.NotAvailable()), nil
	}

	return uc.roomRepo.WatchRooms(ctx, userID)
}

// CountUnread derives the badge value from a room snapshot: the number of
// rooms where the user's marker is new.
func CountUnread(rooms []*entity.Room, userID string) int {
	count := 0
	for _, room := range rooms {
		if !room.HasParticipant(userID) {
			continue
		}
		if room.StatusFor(userID) == entity.StatusNew {
			count++
		}
	}
	return count
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
