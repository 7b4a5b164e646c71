package router

import (
	"github.com/labstack/echo/v4"

	"soulcircle/internal/adapter/api/handler"
)

func SetupDMRouter(v1 *echo.Group, dmHandler *handler.DMHandler) {
	dms := v1.Group("/dms")
	dms.POST("", dmHandler.GetOrCreate)
	dms.GET("", dmHandler.List)
	dms.GET("/:id/messages", dmHandler.Messages)
	dms.POST("/:id/messages", dmHandler.Send)
	dms.PUT("/:id/read", dmHandler.MarkRead)
}
