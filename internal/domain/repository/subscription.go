package repository

import (
	"sync"

	"propertigo/internal/domain/entity"
)

// MessageSubscription is a live view over one room's message log. Every
// change re-delivers the full current ordered list, never a diff. A
// push-layer failure delivers an empty list followed by one error, then
// both channels close.
type MessageSubscription struct {
	Updates <-chan []*entity.Message
	Errs    <-chan error

	stopOnce sync.Once
	cancel   func()
}

// RoomSubscription is a live view over every room a user participates in,
// sorted by updatedAt descending.
type RoomSubscription struct {
	Updates <-chan []*entity.Room
	Errs    <-chan error

	stopOnce sync.Once
	cancel   func()
}

func NewMessageSubscription(updates <-chan []*entity.Message, errs <-chan error, cancel func()) *MessageSubscription {
	return &MessageSubscription{Updates: updates, Errs: errs, cancel: cancel}
}

func NewRoomSubscription(updates <-chan []*entity.Room, errs <-chan error, cancel func()) *RoomSubscription {
	return &RoomSubscription{Updates: updates, Errs: errs, cancel: cancel}
}

// Stop cancels the underlying query. Safe to call more than once.
func (s *MessageSubscription) Stop() {
	s.stopOnce.Do(func() {
		if s.cancel != nil {
			s.cancel()
		}
	})
}

// Stop cancels the underlying query. Safe to call more than once.
func (s *RoomSubscription) Stop() {
	s.stopOnce.Do(func() {
		if s.cancel != nil {
			s.cancel()
		}
	})
}

// ClosedMessageSubscription returns an already-terminated subscription that
// delivers one empty list. Used when the backend is unavailable so consumers
// see an empty view instead of an error panic or a hang.
func ClosedMessageSubscription(err error) *MessageSubscription {
	updates := make(chan []*entity.Message, 1)
	errs := make(chan error, 1)
	updates <- nil
	if err != nil {
		errs <- err
	}
	close(updates)
	close(errs)
	return NewMessageSubscription(updates, errs, nil)
}

// ClosedRoomSubscription is the room-list counterpart of
// ClosedMessageSubscription.
func ClosedRoomSubscription(err error) *RoomSubscription {
	updates := make(chan []*entity.Room, 1)
	errs := make(chan error, 1)
	updates <- nil
	if err != nil {
		errs <- err
	}
	close(updates)
	close(errs)
	return NewRoomSubscription(updates, errs, nil)
}
