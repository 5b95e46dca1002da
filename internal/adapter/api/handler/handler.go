package handler

import (
	"github.com/labstack/echo/v4"

	"helphand/internal/infrastructure/websocket"
	"helphand/internal/usecase"
	"helphand/pkg/errors"
)

// Handlers groups every HTTP handler the router mounts.
type Handlers struct {
	User      *UserHandler
	Request   *RequestHandler
	Chat      *ChatHandler
	WebSocket *WebSocketHandler
	Health    *HealthHandler
	DevToken  *DevTokenHandler
}

func Setup(
	userUseCase *usecase.UserUseCase,
	requestUseCase *usecase.RequestUseCase,
	chatUseCase *usecase.ChatUseCase,
	messageUseCase *usecase.MessageUseCase,
	unreadUseCase *usecase.UnreadUseCase,
	wsManager *websocket.Manager,
	authClient usecase.AuthClient,
	storeBackend string,
) *Handlers {
	return &Handlers{
		User:      NewUserHandler(userUseCase, unreadUseCase),
		Request:   NewRequestHandler(requestUseCase, chatUseCase),
		Chat:      NewChatHandler(chatUseCase, messageUseCase, unreadUseCase),
		WebSocket: NewWebSocketHandler(wsManager),
		Health:    NewHealthHandler(wsManager, storeBackend),
		DevToken:  NewDevTokenHandler(authClient),
	}
}

// callerID returns the uid the auth middleware stored on the context.
func callerID(c echo.Context) (string, error) {
	uid, ok := c.Get("uid").(string)
	if !ok || uid == "" {
		return "", errors.Unauthorized("Authentication required", nil)
	}
	return uid, nil
}
