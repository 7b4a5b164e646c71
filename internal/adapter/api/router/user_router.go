package router

import (
	"github.com/labstack/echo/v4"

	"soulcircle/internal/adapter/api/handler"
)

func SetupUserRouter(v1 *echo.Group, userHandler *handler.UserHandler) {
	me := v1.Group("/users/me")
	me.GET("", userHandler.GetProfile)
	me.PUT("", userHandler.UpdateProfile)
	me.POST("/avatar", userHandler.UploadAvatar)
}
