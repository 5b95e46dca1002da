package router

import (
	"github.com/labstack/echo/v4"

	"helphand/internal/adapter/api/handler"
	"helphand/internal/adapter/api/middleware"
	"helphand/internal/infrastructure/ratelimit"
)

// ActionAPIRequest is the limiter action shared by every /v1 route.
const ActionAPIRequest = "api_request"

func Setup(
	e *echo.Echo,
	handlers *handler.Handlers,
	authMiddleware *middleware.AuthMiddleware,
	rateLimiter *ratelimit.RateLimiter,
	environment string,
) {
	v1 := e.Group("/v1")
	v1.Use(authMiddleware.Authenticate)
	v1.Use(middleware.RateLimit(rateLimiter, ActionAPIRequest))

	SetupUserRouter(v1, handlers.User)
	SetupRequestRouter(v1, handlers.Request)
	SetupChatRouter(v1, handlers.Chat)
	SetupWebSocketRouter(e, handlers.WebSocket, authMiddleware)
	SetupHealthRouter(e, handlers.Health)
	SetupDevRouter(e, handlers.DevToken, rateLimiter, environment)
}
