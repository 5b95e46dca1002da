package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	ws "helphand/internal/infrastructure/websocket"
)

type HealthHandler struct {
	wsManager    *ws.Manager
	storeBackend string
}

func NewHealthHandler(wsManager *ws.Manager, storeBackend string) *HealthHandler {
	return &HealthHandler{
		wsManager:    wsManager,
		storeBackend: storeBackend,
	}
}

func (h *HealthHandler) CheckHealth(c echo.Context) error {
	body := map[string]interface{}{
		"status": "ok",
		"store":  h.storeBackend,
		"time":   time.Now().Format(time.RFC3339),
	}
	if h.wsManager != nil {
		body["connections"] = h.wsManager.TotalConnections()
	}
	return c.JSON(http.StatusOK, body)
}
