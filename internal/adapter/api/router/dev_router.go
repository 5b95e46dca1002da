package router

import (
	"github.com/labstack/echo/v4"

	"helphand/internal/adapter/api/handler"
	"helphand/internal/adapter/api/middleware"
	"helphand/internal/infrastructure/ratelimit"
)

const ActionDevToken = "dev_token"

func SetupDevRouter(e *echo.Echo, devTokenHandler *handler.DevTokenHandler, rateLimiter *ratelimit.RateLimiter, environment string) {
	if environment != "development" {
		return
	}

	e.GET("/_dev/token/:uid", devTokenHandler.GenerateToken, middleware.RateLimit(rateLimiter, ActionDevToken))
}
