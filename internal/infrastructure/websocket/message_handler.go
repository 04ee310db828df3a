package websocket

import (
	"context"
	"encoding/json"
	stderrors "errors"

	"github.com/gorilla/websocket"

	"propertigo/internal/domain/entity"
	"propertigo/internal/usecase"
	apperrors "propertigo/pkg/errors"
	"propertigo/pkg/logger"
)

// Inbound frame shape. Type selects the action; the other fields are
// interpreted per type.
type clientFrame struct {
	Type       string `json:"type"` // "subscribe", "unsubscribe", "send", "mark_read"
	RoomID     string `json:"room_id,omitempty"`
	Text       string `json:"text,omitempty"`
	SenderRole string `json:"sender_role,omitempty"`
}

type serverFrame struct {
	Type        string            `json:"type"` // "rooms", "messages", "sent", "error"
	RoomID      string            `json:"room_id,omitempty"`
	Rooms       []*entity.Room    `json:"rooms,omitempty"`
	Messages    []*entity.Message `json:"messages,omitempty"`
	Message     *entity.Message   `json:"message,omitempty"`
	UnreadCount int               `json:"unread_count"`
	Code        string            `json:"code,omitempty"`
	Error       string            `json:"error,omitempty"`
}

// MessageHandler drives one connection: it opens the caller's room watch on
// attach, opens and closes per-room message watches on demand, and relays
// send/mark-read actions into the chat use case.
type MessageHandler struct {
	manager     *Manager
	chatUseCase *usecase.ChatUseCase
}

func NewMessageHandler(manager *Manager, chatUseCase *usecase.ChatUseCase) *MessageHandler {
	return &MessageHandler{
		manager:     manager,
		chatUseCase: chatUseCase,
	}
}

// Attach registers the client, opens its room-list watch, and starts the
// read loop. Blocks until the connection closes.
func (h *MessageHandler) Attach(ctx context.Context, client *Client) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	h.manager.Register <- client
	go client.WritePump()

	h.openRoomWatch(ctx, client)
	h.readLoop(ctx, client)

	cancel()
	h.manager.Unregister <- client
}

func (h *MessageHandler) openRoomWatch(ctx context.Context, client *Client) {
	sub, err := h.chatUseCase.WatchRooms(ctx, client.UserID)
	if err != nil {
		h.sendError(client, err)
		return
	}
	client.AttachRoomSub(sub)

	go func() {
		for {
			select {
			case rooms, ok := <-sub.Updates:
				if !ok {
					return
				}
				h.push(client, serverFrame{
					Type:        "rooms",
					Rooms:       rooms,
					UnreadCount: usecase.CountUnread(rooms, client.UserID),
				})
			case err, ok := <-sub.Errs:
				if ok && err != nil {
					h.sendError(client, err)
				}
			case <-ctx.Done():
				return
			}
		}
	}()
}

func (h *MessageHandler) readLoop(ctx context.Context, client *Client) {
	defer client.Conn.Close()

	for {
		_, raw, err := client.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logger.Error("websocket read for %s: %v", client.UserID, err)
			}
			return
		}

		var frame clientFrame
		if err := json.Unmarshal(raw, &frame); err != nil {
			logger.Warn("malformed websocket frame from %s: %v", client.UserID, err)
			continue
		}

		switch frame.Type {
		case "subscribe":
			h.handleSubscribe(ctx, client, frame.RoomID)
		case "unsubscribe":
			client.DetachMessageSub(frame.RoomID)
		case "send":
			h.handleSend(ctx, client, frame)
		case "mark_read":
			if err := h.chatUseCase.MarkRead(ctx, client.UserID, frame.RoomID); err != nil {
				h.sendError(client, err)
			}
		default:
			logger.Debug("ignoring websocket frame type %q from %s", frame.Type, client.UserID)
		}
	}
}

func (h *MessageHandler) handleSubscribe(ctx context.Context, client *Client, roomID string) {
	sub, err := h.chatUseCase.WatchMessages(ctx, client.UserID, roomID)
	if err != nil {
		h.sendError(client, err)
		return
	}
	client.AttachMessageSub(roomID, sub)

	go func() {
		for {
			select {
			case messages, ok := <-sub.Updates:
				if !ok {
					return
				}
				h.push(client, serverFrame{
					Type:     "messages",
					RoomID:   roomID,
					Messages: messages,
				})
			case err, ok := <-sub.Errs:
				if ok && err != nil {
					h.sendError(client, err)
				}
			case <-ctx.Done():
				return
			}
		}
	}()
}

func (h *MessageHandler) handleSend(ctx context.Context, client *Client, frame clientFrame) {
	msg, err := h.chatUseCase.SendMessage(ctx, usecase.SendMessageInput{
		RoomID:     frame.RoomID,
		SenderID:   client.UserID,
		SenderRole: frame.SenderRole,
		Text:       frame.Text,
	})
	if err != nil {
		h.sendError(client, err)
		return
	}

	h.push(client, serverFrame{
		Type:    "sent",
		RoomID:  frame.RoomID,
		Message: msg,
	})
}

func (h *MessageHandler) push(client *Client, frame serverFrame) {
	data, err := json.Marshal(frame)
	if err != nil {
		logger.Error("failed to marshal websocket frame for %s: %v", client.UserID, err)
		return
	}
	h.manager.SendToUser(client.UserID, data)
}

func (h *MessageHandler) sendError(client *Client, err error) {
	frame := serverFrame{Type: "error", Error: err.Error()}
	var appErr *apperrors.AppError
	if stderrors.As(err, &appErr) {
		frame.Code = appErr.Code
		frame.Error = appErr.Message
	}
	h.push(client, frame)
}
