package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"propertigo/internal/domain/entity"
	"propertigo/internal/domain/repository"
	"propertigo/pkg/errors"
)

type staticGuard bool

func (g staticGuard) Available() bool { return bool(g) }

// fakeRoomRepository applies the same field-level semantics as the real
// store: per-key readStatus writes, denormalized lastMessage, updatedAt on
// every mutation.
type fakeRoomRepository struct {
	rooms    map[string]*entity.Room
	messages map[string][]*entity.Message

	createCalls int
	touchCalls  int
	getCalls    int
}

func newFakeRoomRepository() *fakeRoomRepository {
	return &fakeRoomRepository{
		rooms:    make(map[string]*entity.Room),
		messages: make(map[string][]*entity.Message),
	}
}

func (f *fakeRoomRepository) GetByID(ctx context.Context, id string) (*entity.Room, error) {
	f.getCalls++
	room, ok := f.rooms[id]
	if !ok {
		return nil, errors.NotFound("room", nil)
	}
	return room, nil
}

func (f *fakeRoomRepository) Create(ctx context.Context, room *entity.Room) error {
	f.createCalls++
	now := time.Now().UTC()
	room.CreatedAt = now
	room.UpdatedAt = now
	f.rooms[room.ID] = room
	return nil
}

func (f *fakeRoomRepository) Touch(ctx context.Context, id string) error {
	f.touchCalls++
	if room, ok := f.rooms[id]; ok {
		room.UpdatedAt = time.Now().UTC()
	}
	return nil
}

func (f *fakeRoomRepository) AppendMessage(ctx context.Context, roomID string, msg *entity.Message) (string, error) {
	msg.ID = "msg-" + time.Now().Format("150405.000000000")
	msg.Timestamp = time.Now().UTC()
	f.messages[roomID] = append(f.messages[roomID], msg)
	return msg.ID, nil
}

func (f *fakeRoomRepository) ApplySendEffects(ctx context.Context, roomID, senderID, otherID, text string) error {
	room := f.rooms[roomID]
	room.LastMessage = text
	room.ReadStatus[senderID] = entity.StatusRead
	room.ReadStatus[otherID] = entity.StatusNew
	room.UpdatedAt = time.Now().UTC()
	return nil
}

func (f *fakeRoomRepository) MarkRead(ctx context.Context, roomID, userID string) error {
	room := f.rooms[roomID]
	room.ReadStatus[userID] = entity.StatusRead
	if room.LastReadAt == nil {
		room.LastReadAt = map[string]time.Time{}
	}
	room.LastReadAt[userID] = time.Now().UTC()
	return nil
}

func (f *fakeRoomRepository) ListByParticipant(ctx context.Context, userID string) ([]*entity.Room, error) {
	var out []*entity.Room
	for _, room := range f.rooms {
		if room.HasParticipant(userID) {
			out = append(out, room)
		}
	}
	return out, nil
}

func (f *fakeRoomRepository) ListMessages(ctx context.Context, roomID string) ([]*entity.Message, error) {
	return f.messages[roomID], nil
}

func (f *fakeRoomRepository) WatchMessages(ctx context.Context, roomID string) (*repository.MessageSubscription, error) {
	updates := make(chan []*entity.Message, 1)
	errs := make(chan error)
	updates <- f.messages[roomID]
	close(updates)
	close(errs)
	return repository.NewMessageSubscription(updates, errs, func() {}), nil
}

func (f *fakeRoomRepository) WatchRooms(ctx context.Context, userID string) (*repository.RoomSubscription, error) {
	updates := make(chan []*entity.Room, 1)
	errs := make(chan error)
	rooms, _ := f.ListByParticipant(ctx, userID)
	updates <- rooms
	close(updates)
	close(errs)
	return repository.NewRoomSubscription(updates, errs, func() {}), nil
}

func newTestUseCase(t *testing.T) (*ChatUseCase, *fakeRoomRepository) {
	t.Helper()
	repo := newFakeRoomRepository()
	return NewChatUseCase(repo, staticGuard(true)), repo
}

func ensureInput() EnsureRoomInput {
	return EnsureRoomInput{
		BuyerID:      "5",
		ReceiverID:   "12",
		ReceiverRole: entity.RoleAgent,
		PropertyID:   "123",
	}
}

func TestEnsureRoomCreatesCanonicalRoom(t *testing.T) {
	uc, repo := newTestUseCase(t)

	roomID, err := uc.EnsureRoom(context.Background(), ensureInput())
	require.NoError(t, err)
	assert.Equal(t, "12_5_123", roomID)

	room := repo.rooms[roomID]
	require.NotNil(t, room)
	assert.Equal(t, []string{"12", "5"}, room.Participants)
	assert.Equal(t, "5", room.BuyerID)
	assert.Equal(t, "12", room.ReceiverID)
	assert.Equal(t, entity.RoleAgent, room.ReceiverRole)
	assert.Equal(t, entity.StatusRead, room.ReadStatus["5"])
	assert.Equal(t, entity.StatusNew, room.ReadStatus["12"])
}

func TestEnsureRoomIsIdempotent(t *testing.T) {
	uc, repo := newTestUseCase(t)

	first, err := uc.EnsureRoom(context.Background(), ensureInput())
	require.NoError(t, err)

	second, err := uc.EnsureRoom(context.Background(), ensureInput())
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, repo.createCalls, "second call must not create a new document")
	assert.Equal(t, 1, repo.touchCalls, "second call only bumps updatedAt")
	assert.Len(t, repo.rooms, 1)
}

func TestEnsureRoomUsesAuthoritativeID(t *testing.T) {
	uc, repo := newTestUseCase(t)

	input := ensureInput()
	input.AuthoritativeRoomID = "12_5_123"

	roomID, err := uc.EnsureRoom(context.Background(), input)
	require.NoError(t, err)
	assert.Equal(t, "12_5_123", roomID)
	assert.Contains(t, repo.rooms, "12_5_123")
}

func TestEnsureRoomRejectsInvalidIdentityBeforeStorage(t *testing.T) {
	uc, repo := newTestUseCase(t)

	for _, bad := range []string{"", "0", "null", "undefined"} {
		input := ensureInput()
		input.ReceiverID = bad

		_, err := uc.EnsureRoom(context.Background(), input)
		assert.True(t, errors.Is(err, "INVALID_IDENTITY"), "receiver %q", bad)
	}

	assert.Zero(t, repo.getCalls, "no storage call may precede validation")
	assert.Zero(t, repo.createCalls)
}

func TestEnsureRoomRejectsSelfChat(t *testing.T) {
	uc, _ := newTestUseCase(t)

	input := ensureInput()
	input.ReceiverID = input.BuyerID

	_, err := uc.EnsureRoom(context.Background(), input)
	assert.True(t, errors.Is(err, "BAD_REQUEST"))
}

func TestSendMessageFlipsReadStatus(t *testing.T) {
	uc, repo := newTestUseCase(t)

	roomID, err := uc.EnsureRoom(context.Background(), ensureInput())
	require.NoError(t, err)

	msg, err := uc.SendMessage(context.Background(), SendMessageInput{
		RoomID:     roomID,
		SenderID:   "5",
		SenderRole: entity.RoleBuyer,
		Text:       "Hello",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, msg.ID)

	room := repo.rooms[roomID]
	assert.Equal(t, "Hello", room.LastMessage)
	assert.Equal(t, entity.StatusRead, room.ReadStatus["5"])
	assert.Equal(t, entity.StatusNew, room.ReadStatus["12"])
	require.Len(t, repo.messages[roomID], 1)
	assert.Equal(t, "Hello", repo.messages[roomID][0].Text)
}

func TestSendMessageTrimsAndRejectsEmptyText(t *testing.T) {
	uc, repo := newTestUseCase(t)

	_, err := uc.SendMessage(context.Background(), SendMessageInput{
		RoomID:     "12_5_123",
		SenderID:   "5",
		SenderRole: entity.RoleBuyer,
		Text:       "   \t ",
	})
	assert.True(t, errors.Is(err, "BAD_REQUEST"))
	assert.Zero(t, repo.getCalls)
}

func TestSendMessageRecoversMissingRoom(t *testing.T) {
	uc, repo := newTestUseCase(t)

	// No EnsureRoom beforehand: the relay rebuilds a minimal room from the
	// id segments rather than dropping the message.
	msg, err := uc.SendMessage(context.Background(), SendMessageInput{
		RoomID:     "12_5_123",
		SenderID:   "5",
		SenderRole: entity.RoleBuyer,
		Text:       "are you there?",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, msg.ID)

	room := repo.rooms["12_5_123"]
	require.NotNil(t, room)
	assert.Equal(t, []string{"12", "5"}, room.Participants)
	assert.Equal(t, "5", room.BuyerID)
	assert.Equal(t, "123", room.PropertyID)
	assert.Equal(t, "are you there?", room.LastMessage)
}

func TestSendMessageRejectsNonParticipant(t *testing.T) {
	uc, _ := newTestUseCase(t)

	roomID, err := uc.EnsureRoom(context.Background(), ensureInput())
	require.NoError(t, err)

	_, err = uc.SendMessage(context.Background(), SendMessageInput{
		RoomID:     roomID,
		SenderID:   "99",
		SenderRole: entity.RoleAgent,
		Text:       "hi",
	})
	assert.True(t, errors.Is(err, "FORBIDDEN"))
}

func TestReadStatusConvergence(t *testing.T) {
	uc, _ := newTestUseCase(t)
	ctx := context.Background()

	roomID, err := uc.EnsureRoom(ctx, ensureInput())
	require.NoError(t, err)

	_, err = uc.SendMessage(ctx, SendMessageInput{
		RoomID: roomID, SenderID: "5", SenderRole: entity.RoleBuyer, Text: "Hello",
	})
	require.NoError(t, err)

	status, err := uc.GetReadStatus(ctx, roomID, "5")
	require.NoError(t, err)
	assert.Equal(t, entity.StatusRead, status)

	status, err = uc.GetReadStatus(ctx, roomID, "12")
	require.NoError(t, err)
	assert.Equal(t, entity.StatusNew, status)

	require.NoError(t, uc.MarkRead(ctx, "12", roomID))

	status, err = uc.GetReadStatus(ctx, roomID, "12")
	require.NoError(t, err)
	assert.Equal(t, entity.StatusRead, status)
}

func TestUnreadAggregation(t *testing.T) {
	rooms := []*entity.Room{
		{
			ID:           "a_b_1",
			Participants: []string{"a", "b"},
			BuyerID:      "a",
			ReadStatus:   map[string]string{"b": entity.StatusNew},
		},
		{
			ID:           "a_b_2",
			Participants: []string{"a", "b"},
			BuyerID:      "a",
			ReadStatus:   map[string]string{"b": entity.StatusRead},
		},
	}

	assert.Equal(t, 1, CountUnread(rooms, "b"))
	assert.Equal(t, 0, CountUnread(rooms, "a"))
	// Not a participant anywhere.
	assert.Equal(t, 0, CountUnread(rooms, "c"))
}

func TestUnreadAggregationTreatsMissingKeyAsNew(t *testing.T) {
	rooms := []*entity.Room{
		{
			ID:           "a_b_1",
			Participants: []string{"a", "b"},
			BuyerID:      "a",
			ReadStatus:   map[string]string{},
		},
	}

	assert.Equal(t, 1, CountUnread(rooms, "b"))
	// The buyer created the room, so a missing key does not count.
	assert.Equal(t, 0, CountUnread(rooms, "a"))
}

func TestOperationsDegradeWhenUnavailable(t *testing.T) {
	repo := newFakeRoomRepository()
	uc := NewChatUseCase(repo, staticGuard(false))
	ctx := context.Background()

	_, err := uc.EnsureRoom(ctx, ensureInput())
	assert.True(t, errors.Is(err, "NOT_AVAILABLE"))

	_, err = uc.SendMessage(ctx, SendMessageInput{
		RoomID: "12_5_123", SenderID: "5", SenderRole: entity.RoleBuyer, Text: "Hello",
	})
	assert.True(t, errors.Is(err, "NOT_AVAILABLE"))

	rooms, unread, err := uc.GetUserRooms(ctx, "5")
	assert.NoError(t, err)
	assert.Empty(t, rooms)
	assert.Zero(t, unread)

	messages, err := uc.GetRoomMessages(ctx, "5", "12_5_123")
	assert.NoError(t, err)
	assert.Empty(t, messages)

	assert.Zero(t, repo.getCalls, "unavailable backend must never be touched")
}

func TestWatchesDeliverEmptyResultWhenUnavailable(t *testing.T) {
	repo := newFakeRoomRepository()
	uc := NewChatUseCase(repo, staticGuard(false))
	ctx := context.Background()

	msgSub, err := uc.WatchMessages(ctx, "5", "12_5_123")
	require.NoError(t, err)
	assert.Empty(t, <-msgSub.Updates)
	assert.True(t, errors.Is(<-msgSub.Errs, "NOT_AVAILABLE"))
	msgSub.Stop()
	msgSub.Stop() // second stop is a no-op

	roomSub, err := uc.WatchRooms(ctx, "5")
	require.NoError(t, err)
	assert.Empty(t, <-roomSub.Updates)
	assert.True(t, errors.Is(<-roomSub.Errs, "NOT_AVAILABLE"))
	roomSub.Stop()
	roomSub.Stop()
}

func TestWatchMessagesDeliversOrderedLog(t *testing.T) {
	uc, _ := newTestUseCase(t)
	ctx := context.Background()

	roomID, err := uc.EnsureRoom(ctx, ensureInput())
	require.NoError(t, err)

	for _, text := range []string{"first", "second", "third"} {
		_, err = uc.SendMessage(ctx, SendMessageInput{
			RoomID: roomID, SenderID: "5", SenderRole: entity.RoleBuyer, Text: text,
		})
		require.NoError(t, err)
	}

	sub, err := uc.WatchMessages(ctx, "5", roomID)
	require.NoError(t, err)
	defer sub.Stop()

	snapshot := <-sub.Updates
	require.Len(t, snapshot, 3)
	assert.Equal(t, "first", snapshot[0].Text)
	assert.Equal(t, "second", snapshot[1].Text)
	assert.Equal(t, "third", snapshot[2].Text)
}
