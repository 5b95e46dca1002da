package router

import (
	"github.com/labstack/echo/v4"

	"helphand/internal/adapter/api/handler"
)

func SetupRequestRouter(v1 *echo.Group, requestHandler *handler.RequestHandler) {
	requests := v1.Group("/requests")

	requests.POST("", requestHandler.Create)
	requests.GET("", requestHandler.Browse)
	requests.GET("/mine", requestHandler.ListMine)
	requests.GET("/:id", requestHandler.Get)
	requests.POST("/:id/claim", requestHandler.Claim)
}
