package router

import (
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"soulcircle/internal/adapter/api/handler"
	"soulcircle/internal/adapter/api/middleware"
)

func SetupHealthRouter(e *echo.Echo, healthHandler *handler.HealthHandler) {
	e.GET("/health", healthHandler.CheckHealth)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
}

// SetupWebSocketRouter authenticates the upgrade request itself; browsers
// pass the ID token as ?token=.
func SetupWebSocketRouter(e *echo.Echo, wsHandler *handler.WebSocketHandler, authMiddleware *middleware.AuthMiddleware) {
	e.GET("/ws", wsHandler.HandleWebSocket, authMiddleware.Authenticate)
}

// SetupDevRouter is only mounted in development.
func SetupDevRouter(e *echo.Echo, devTokenHandler *handler.DevTokenHandler) {
	e.POST("/_dev/token", devTokenHandler.GenerateToken)
}
