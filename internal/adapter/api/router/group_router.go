package router

import (
	"github.com/labstack/echo/v4"

	"soulcircle/internal/adapter/api/handler"
)

// SetupGroupRouter mounts groups with their members, messages and typing.
func SetupGroupRouter(v1 *echo.Group, groupHandler *handler.GroupHandler, messageHandler *handler.MessageHandler, presenceHandler *handler.PresenceHandler) {
	groups := v1.Group("/groups")

	groups.POST("", groupHandler.Create)
	groups.GET("", groupHandler.List)
	groups.POST("/join-by-code", groupHandler.JoinByCode)
	groups.GET("/:id", groupHandler.Get)
	groups.PUT("/:id", groupHandler.Update)
	groups.DELETE("/:id", groupHandler.Delete)
	groups.POST("/:id/join", groupHandler.Join)
	groups.POST("/:id/leave", groupHandler.Leave)

	// Moderation
	groups.GET("/:id/members", groupHandler.Members)
	groups.POST("/:id/members", groupHandler.Invite)
	groups.DELETE("/:id/members/:uid", groupHandler.RemoveMember)
	groups.PUT("/:id/members/:uid/role", groupHandler.ChangeRole)
	groups.POST("/:id/bans", groupHandler.Ban)

	groups.GET("/:id/messages", messageHandler.List)
	groups.POST("/:id/messages", messageHandler.Send)
	groups.PUT("/:id/messages/:mid", messageHandler.Edit)
	groups.DELETE("/:id/messages/:mid", messageHandler.Delete)
	groups.PUT("/:id/messages/:mid/reactions", messageHandler.React)
	groups.DELETE("/:id/messages/:mid/reactions", messageHandler.Unreact)

	groups.GET("/:id/typing", presenceHandler.Typing)
	groups.PUT("/:id/typing", presenceHandler.SetTyping)
}
