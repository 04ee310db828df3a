package repository

import (
	"context"
	"sort"
	"time"

	gfs "cloud.google.com/go/firestore"
	"github.com/google/uuid"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"propertigo/internal/domain/entity"
	"propertigo/internal/domain/repository"
	"propertigo/pkg/logger"
)

const (
	roomsCollection    = "chats"
	messagesCollection = "messages"
)

type firestoreRoomRepository struct {
	client *gfs.Client
}

func NewFirestoreRoomRepository(client *gfs.Client) repository.RoomRepository {
	return &firestoreRoomRepository{
		client: client,
	}
}

func (r *firestoreRoomRepository) rooms() *gfs.CollectionRef {
	return r.client.Collection(roomsCollection)
}

func (r *firestoreRoomRepository) messages(roomID string) *gfs.CollectionRef {
	return r.rooms().Doc(roomID).Collection(messagesCollection)
}

func (r *firestoreRoomRepository) GetByID(ctx context.Context, id string) (*entity.Room, error) {
	doc, err := r.rooms().Doc(id).Get(ctx)
	if err != nil {
		return nil, mapProviderError("get", roomsCollection+"/"+id, err)
	}
	return decodeRoomDoc(doc), nil
}

// Create writes the full initial document with a plain set. Timestamps are
// assigned at commit by the backend, never from the client clock.
func (r *firestoreRoomRepository) Create(ctx context.Context, room *entity.Room) error {
	data := map[string]interface{}{
		"id":           room.ID,
		"participants": room.Participants,
		"buyerId":      room.BuyerID,
		"receiverId":   room.ReceiverID,
		"receiverRole": room.ReceiverRole,
		"propertyId":   room.PropertyID,
		"lastMessage":  room.LastMessage,
		"readStatus":   room.ReadStatus,
		"createdAt":    gfs.ServerTimestamp,
		"updatedAt":    gfs.ServerTimestamp,
	}

	if _, err := r.rooms().Doc(room.ID).Set(ctx, data); err != nil {
		return mapProviderError("create", roomsCollection+"/"+room.ID, err)
	}
	return nil
}

func (r *firestoreRoomRepository) Touch(ctx context.Context, id string) error {
	_, err := r.rooms().Doc(id).Update(ctx, []gfs.Update{
		{Path: "updatedAt", Value: gfs.ServerTimestamp},
	})
	if err != nil {
		return mapProviderError("touch", roomsCollection+"/"+id, err)
	}
	return nil
}

func (r *firestoreRoomRepository) AppendMessage(ctx context.Context, roomID string, msg *entity.Message) (string, error) {
	if msg.ID == "" {
		msg.ID = uuid.New().String()
	}

	data := map[string]interface{}{
		"id":         msg.ID,
		"roomId":     roomID,
		"senderId":   msg.SenderID,
		"senderRole": msg.SenderRole,
		"text":       msg.Text,
		"timestamp":  gfs.ServerTimestamp,
	}

	if _, err := r.messages(roomID).Doc(msg.ID).Set(ctx, data); err != nil {
		return "", mapProviderError("append", roomsCollection+"/"+roomID+"/"+messagesCollection, err)
	}
	return msg.ID, nil
}

// ApplySendEffects flips the denormalized room state after a send. Targeted
// field updates only: readStatus entries are per-key, so concurrent senders
// in the same room never overwrite each other's entry.
func (r *firestoreRoomRepository) ApplySendEffects(ctx context.Context, roomID, senderID, otherID, text string) error {
	_, err := r.rooms().Doc(roomID).Update(ctx, []gfs.Update{
		{Path: "lastMessage", Value: text},
		{Path: "readStatus." + senderID, Value: entity.StatusRead},
		{Path: "readStatus." + otherID, Value: entity.StatusNew},
		{Path: "updatedAt", Value: gfs.ServerTimestamp},
	})
	if err != nil {
		return mapProviderError("send-effects", roomsCollection+"/"+roomID, err)
	}
	return nil
}

func (r *firestoreRoomRepository) MarkRead(ctx context.Context, roomID, userID string) error {
	_, err := r.rooms().Doc(roomID).Update(ctx, []gfs.Update{
		{Path: "readStatus." + userID, Value: entity.StatusRead},
		{Path: "lastReadAt." + userID, Value: gfs.ServerTimestamp},
	})
	if err != nil {
		return mapProviderError("mark-read", roomsCollection+"/"+roomID, err)
	}
	return nil
}

func (r *firestoreRoomRepository) ListByParticipant(ctx context.Context, userID string) ([]*entity.Room, error) {
	// No secondary sort clause: array-contains plus orderBy would need a
	// composite index, and a missing index drops rooms entirely. Sorting
	// client-side trades bandwidth for correctness.
	query := r.rooms().Where("participants", "array-contains", userID)

	docs, err := query.Documents(ctx).GetAll()
	if err != nil {
		logger.Error("failed to fetch rooms for user %s: %v", userID, err)
		return nil, mapProviderError("list", roomsCollection, err)
	}

	rooms := make([]*entity.Room, 0, len(docs))
	for _, doc := range docs {
		rooms = append(rooms, decodeRoomDoc(doc))
	}
	sortRoomsByActivity(rooms)

	return rooms, nil
}

func (r *firestoreRoomRepository) ListMessages(ctx context.Context, roomID string) ([]*entity.Message, error) {
	query := r.messages(roomID).OrderBy("timestamp", gfs.Asc)

	docs, err := query.Documents(ctx).GetAll()
	if err != nil {
		logger.Error("failed to fetch messages for room %s: %v", roomID, err)
		return nil, mapProviderError("list", roomsCollection+"/"+roomID+"/"+messagesCollection, err)
	}

	messages := make([]*entity.Message, 0, len(docs))
	for _, doc := range docs {
		messages = append(messages, decodeMessageDoc(doc))
	}
	return messages, nil
}

func (r *firestoreRoomRepository) WatchMessages(ctx context.Context, roomID string) (*repository.MessageSubscription, error) {
	ctx, cancel := context.WithCancel(ctx)
	updates := make(chan []*entity.Message, 1)
	errs := make(chan error, 1)

	query := r.messages(roomID).OrderBy("timestamp", gfs.Asc)
	snapshots := query.Snapshots(ctx)

	go func() {
		defer close(updates)
		defer close(errs)
		defer snapshots.Stop()

		for {
			snap, err := snapshots.Next()
			if err != nil {
				if status.Code(err) == codes.Canceled {
					return
				}
				logger.Error("message watch for room %s failed: %v", roomID, err)
				// An empty list instead of silence: listeners must not
				// keep rendering stale data after the push layer dies.
				deliverMessages(updates, nil)
				errs <- mapProviderError("watch", roomsCollection+"/"+roomID+"/"+messagesCollection, err)
				return
			}

			docs, err := snap.Documents.GetAll()
			if err != nil {
				logger.Error("message snapshot read for room %s failed: %v", roomID, err)
				deliverMessages(updates, nil)
				errs <- mapProviderError("watch", roomsCollection+"/"+roomID+"/"+messagesCollection, err)
				return
			}

			messages := make([]*entity.Message, 0, len(docs))
			for _, doc := range docs {
				messages = append(messages, decodeMessageDoc(doc))
			}
			deliverMessages(updates, messages)
		}
	}()

	return repository.NewMessageSubscription(updates, errs, cancel), nil
}

func (r *firestoreRoomRepository) WatchRooms(ctx context.Context, userID string) (*repository.RoomSubscription, error) {
	ctx, cancel := context.WithCancel(ctx)
	updates := make(chan []*entity.Room, 1)
	errs := make(chan error, 1)

	// Same index trade-off as ListByParticipant.
	query := r.rooms().Where("participants", "array-contains", userID)
	snapshots := query.Snapshots(ctx)

	go func() {
		defer close(updates)
		defer close(errs)
		defer snapshots.Stop()

		for {
			snap, err := snapshots.Next()
			if err != nil {
				if status.Code(err) == codes.Canceled {
					return
				}
				logger.Error("room watch for user %s failed: %v", userID, err)
				deliverRooms(updates, nil)
				errs <- mapProviderError("watch", roomsCollection, err)
				return
			}

			docs, err := snap.Documents.GetAll()
			if err != nil {
				logger.Error("room snapshot read for user %s failed: %v", userID, err)
				deliverRooms(updates, nil)
				errs <- mapProviderError("watch", roomsCollection, err)
				return
			}

			rooms := make([]*entity.Room, 0, len(docs))
			for _, doc := range docs {
				rooms = append(rooms, decodeRoomDoc(doc))
			}
			sortRoomsByActivity(rooms)
			deliverRooms(updates, rooms)
		}
	}()

	return repository.NewRoomSubscription(updates, errs, cancel), nil
}

// deliverMessages pushes the latest full list without blocking on a slow
// consumer; a superseded snapshot is dropped in favor of the newer one.
func deliverMessages(ch chan []*entity.Message, list []*entity.Message) {
	for {
		select {
		case ch <- list:
			return
		default:
			select {
			case <-ch:
			default:
			}
		}
	}
}

func deliverRooms(ch chan []*entity.Room, list []*entity.Room) {
	for {
		select {
		case ch <- list:
			return
		default:
			select {
			case <-ch:
			default:
			}
		}
	}
}

func sortRoomsByActivity(rooms []*entity.Room) {
	sort.SliceStable(rooms, func(i, j int) bool {
		return rooms[i].UpdatedAt.After(rooms[j].UpdatedAt)
	})
}

func decodeRoomDoc(doc *gfs.DocumentSnapshot) *entity.Room {
	data := doc.Data()

	room := &entity.Room{
		ID:           doc.Ref.ID,
		BuyerID:      getString(data, "buyerId"),
		ReceiverID:   getString(data, "receiverId"),
		ReceiverRole: getString(data, "receiverRole"),
		PropertyID:   getString(data, "propertyId"),
		LastMessage:  getString(data, "lastMessage"),
		ReadStatus:   map[string]string{},
	}

	if v, ok := data["participants"].([]interface{}); ok {
		for _, p := range v {
			if s, ok := p.(string); ok {
				room.Participants = append(room.Participants, s)
			}
		}
	}
	if v, ok := data["readStatus"].(map[string]interface{}); ok {
		for uid, s := range v {
			if status, ok := s.(string); ok {
				room.ReadStatus[uid] = status
			}
		}
	}
	if v, ok := data["lastReadAt"].(map[string]interface{}); ok {
		room.LastReadAt = map[string]time.Time{}
		for uid, raw := range v {
			if t, ok := normalizeTimestamp(raw); ok {
				room.LastReadAt[uid] = t
			}
		}
	}
	if t, ok := normalizeTimestamp(data["createdAt"]); ok {
		room.CreatedAt = t
	}
	if t, ok := normalizeTimestamp(data["updatedAt"]); ok {
		room.UpdatedAt = t
	}

	return room
}

func decodeMessageDoc(doc *gfs.DocumentSnapshot) *entity.Message {
	data := doc.Data()

	msg := &entity.Message{
		ID:         doc.Ref.ID,
		RoomID:     getString(data, "roomId"),
		SenderID:   getString(data, "senderId"),
		SenderRole: getString(data, "senderRole"),
		Text:       getString(data, "text"),
	}
	if t, ok := normalizeTimestamp(data["timestamp"]); ok {
		msg.Timestamp = t
	}

	return msg
}

func getString(data map[string]interface{}, key string) string {
	if v, ok := data[key].(string); ok {
		return v
	}
	return ""
}
