package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"propertigo/internal/usecase"
	"propertigo/pkg/response"
)

type RoomHandler struct {
	chatUseCase *usecase.ChatUseCase
}

func NewRoomHandler(chatUseCase *usecase.ChatUseCase) *RoomHandler {
	return &RoomHandler{
		chatUseCase: chatUseCase,
	}
}

type ensureRoomRequest struct {
	ReceiverID   string `json:"receiver_id" validate:"required"`
	ReceiverRole string `json:"receiver_role" validate:"required,oneof=agent seller"`
	PropertyID   string `json:"property_id" validate:"required"`
	// RoomID, when present, is the id the REST backend issued for this
	// inquiry. It is used verbatim instead of being recomputed.
	RoomID string `json:"room_id,omitempty"`
}

type sendMessageRequest struct {
	Text       string `json:"text" validate:"required"`
	SenderRole string `json:"sender_role" validate:"required,oneof=buyer seller agent"`
}

// EnsureRoom creates the conversation room if needed and returns its id.
func (h *RoomHandler) EnsureRoom(c echo.Context) error {
	var req ensureRoomRequest
	if err := c.Bind(&req); err != nil {
		return response.Error(c, err)
	}

	if err := c.Validate(&req); err != nil {
		return response.Error(c, err)
	}

	userID := c.Get("uid").(string)

	roomID, err := h.chatUseCase.EnsureRoom(c.Request().Context(), usecase.EnsureRoomInput{
		BuyerID:             userID,
		ReceiverID:          req.ReceiverID,
		ReceiverRole:        req.ReceiverRole,
		PropertyID:          req.PropertyID,
		AuthoritativeRoomID: req.RoomID,
	})
	if err != nil {
		return response.Error(c, err)
	}

	return response.Created(c, map[string]string{"room_id": roomID})
}

// GetUserRooms returns the caller's rooms, newest activity first, with the
// derived unread count.
func (h *RoomHandler) GetUserRooms(c echo.Context) error {
	userID := c.Get("uid").(string)

	rooms, unread, err := h.chatUseCase.GetUserRooms(c.Request().Context(), userID)
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, map[string]interface{}{
		"rooms":        rooms,
		"unread_count": unread,
	})
}

// GetRoomByID returns a single room. Participants only.
func (h *RoomHandler) GetRoomByID(c echo.Context) error {
	roomID := c.Param("id")
	userID := c.Get("uid").(string)

	room, err := h.chatUseCase.GetRoomByID(c.Request().Context(), userID, roomID)
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, room)
}

// SendMessage appends a message to the room's log.
func (h *RoomHandler) SendMessage(c echo.Context) error {
	roomID := c.Param("id")
	userID := c.Get("uid").(string)

	var req sendMessageRequest
	if err := c.Bind(&req); err != nil {
		return response.Error(c, err)
	}

	if err := c.Validate(&req); err != nil {
		return response.Error(c, err)
	}

	message, err := h.chatUseCase.SendMessage(c.Request().Context(), usecase.SendMessageInput{
		RoomID:     roomID,
		SenderID:   userID,
		SenderRole: req.SenderRole,
		Text:       req.Text,
	})
	if err != nil {
		return response.Error(c, err)
	}

	return response.Created(c, message)
}

// GetRoomMessages returns the full ordered log for a room.
func (h *RoomHandler) GetRoomMessages(c echo.Context) error {
	roomID := c.Param("id")
	userID := c.Get("uid").(string)

	messages, err := h.chatUseCase.GetRoomMessages(c.Request().Context(), userID, roomID)
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, messages)
}

// MarkRoomAsRead flips the caller's read marker on the room.
func (h *RoomHandler) MarkRoomAsRead(c echo.Context) error {
	roomID := c.Param("id")
	userID := c.Get("uid").(string)

	if err := h.chatUseCase.MarkRead(c.Request().Context(), userID, roomID); err != nil {
		return response.Error(c, err)
	}

	return c.NoContent(http.StatusOK)
}
