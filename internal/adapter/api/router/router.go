package router

import (
	"github.com/labstack/echo/v4"

	"soulcircle/internal/adapter/api/handler"
	"soulcircle/internal/adapter/api/middleware"
)

// Handlers groups every HTTP handler the router mounts.
type Handlers struct {
	Group     *handler.GroupHandler
	Message   *handler.MessageHandler
	Presence  *handler.PresenceHandler
	DM        *handler.DMHandler
	User      *handler.UserHandler
	Journal   *handler.JournalHandler
	Health    *handler.HealthHandler
	WebSocket *handler.WebSocketHandler
	DevToken  *handler.DevTokenHandler
}

// Setup mounts the public routes and every authenticated route under /v1.
func Setup(e *echo.Echo, h Handlers, authMiddleware *middleware.AuthMiddleware) {
	SetupHealthRouter(e, h.Health)

	v1 := e.Group("/v1", authMiddleware.Authenticate)
	SetupGroupRouter(v1, h.Group, h.Message, h.Presence)
	SetupPresenceRouter(v1, h.Presence)
	SetupDMRouter(v1, h.DM)
	SetupUserRouter(v1, h.User)
	SetupJournalRouter(v1, h.Journal)

	SetupWebSocketRouter(e, h.WebSocket, authMiddleware)
	if h.DevToken != nil {
		SetupDevRouter(e, h.DevToken)
	}
}
