package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"propertigo/internal/usecase"
)

type HealthHandler struct {
	guard usecase.Availability
}

func NewHealthHandler(guard usecase.Availability) *HealthHandler {
	return &HealthHandler{
		guard: guard,
	}
}

func (h *HealthHandler) CheckHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status": "Server is running",
		"time":   time.Now().Format(time.RFC3339),
	})
}

// CheckChatHealth reports the memoized availability of the realtime chat
// backend. It never re-probes.
func (h *HealthHandler) CheckChatHealth(c echo.Context) error {
	if !h.guard.Available() {
		return c.JSON(http.StatusServiceUnavailable, map[string]string{
			"status": "Realtime chat backend unavailable",
		})
	}

	return c.JSON(http.StatusOK, map[string]string{
		"status": "Realtime chat backend available",
	})
}
