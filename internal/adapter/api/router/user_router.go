package router

import (
	"github.com/labstack/echo/v4"

	"helphand/internal/adapter/api/handler"
)

func SetupUserRouter(v1 *echo.Group, userHandler *handler.UserHandler) {
	users := v1.Group("/users")

	users.POST("/me", userHandler.Register)
	users.GET("/me", userHandler.GetProfile)
	users.PUT("/me/profile", userHandler.CompleteProfile)
	users.GET("/me/unread", userHandler.GetUnread)
	users.GET("/:id/stats", userHandler.GetStats)
}
