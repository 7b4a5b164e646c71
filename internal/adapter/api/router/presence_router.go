package router

import (
	"github.com/labstack/echo/v4"

	"soulcircle/internal/adapter/api/handler"
)

func SetupPresenceRouter(v1 *echo.Group, presenceHandler *handler.PresenceHandler) {
	presence := v1.Group("/presence")
	presence.GET("", presenceHandler.Online)
	presence.PUT("", presenceHandler.SetOnline)
	presence.DELETE("", presenceHandler.SetOffline)
}
