package router

import (
	"github.com/labstack/echo/v4"

	"propertigo/internal/adapter/api/handler"
	"propertigo/internal/adapter/api/middleware"
)

// SetupRoomRouter wires the chat room endpoints. Everything requires
// authentication.
func SetupRoomRouter(e *echo.Echo, roomHandler *handler.RoomHandler, authMiddleware *middleware.AuthMiddleware) {
	roomGroup := e.Group("/v1/rooms")
	roomGroup.Use(authMiddleware.Authenticate)

	roomGroup.POST("", roomHandler.EnsureRoom)             // POST /v1/rooms - ensure room exists
	roomGroup.GET("", roomHandler.GetUserRooms)            // GET /v1/rooms - caller's rooms + unread count
	roomGroup.GET("/:id", roomHandler.GetRoomByID)         // GET /v1/rooms/:id
	roomGroup.PUT("/:id/read", roomHandler.MarkRoomAsRead) // PUT /v1/rooms/:id/read

	roomGroup.POST("/:id/messages", roomHandler.SendMessage)    // POST /v1/rooms/:id/messages
	roomGroup.GET("/:id/messages", roomHandler.GetRoomMessages) // GET /v1/rooms/:id/messages
}
