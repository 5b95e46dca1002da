package router

import (
	"github.com/labstack/echo/v4"

	"helphand/internal/adapter/api/handler"
)

func SetupChatRouter(v1 *echo.Group, chatHandler *handler.ChatHandler) {
	chats := v1.Group("/chats")

	chats.GET("", chatHandler.List)
	chats.GET("/:id", chatHandler.Get)
	chats.PUT("/:id/read", chatHandler.MarkRead)
	chats.POST("/:id/complete", chatHandler.Complete)
	chats.POST("/:id/leave", chatHandler.Leave)
	chats.POST("/:id/recount", chatHandler.Recount)

	chats.GET("/:id/messages", chatHandler.ListMessages)
	chats.POST("/:id/messages", chatHandler.SendMessage)
	chats.POST("/:id/images", chatHandler.SendImage)
}
