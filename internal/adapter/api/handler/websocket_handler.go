package handler

import (
	"net/http"
	"strings"

	gorillaws "github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	ws "soulcircle/internal/infrastructure/websocket"
	"soulcircle/pkg/logger"
)

type WebSocketHandler struct {
	wsManager *ws.Manager
	upgrader  gorillaws.Upgrader
}

// NewWebSocketHandler accepts upgrades from allowedOrigins, a comma
// separated list where "*" allows any origin.
func NewWebSocketHandler(wsManager *ws.Manager, allowedOrigins string) *WebSocketHandler {
	origins := make(map[string]bool)
	for _, o := range strings.Split(allowedOrigins, ",") {
		origins[strings.TrimSpace(o)] = true
	}

	return &WebSocketHandler{
		wsManager: wsManager,
		upgrader: gorillaws.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return origin == "" || origins["*"] || origins[origin]
			},
		},
	}
}

// HandleWebSocket runs behind Authenticate, which accepts ?token= for
// browsers that cannot set headers on upgrades.
func (h *WebSocketHandler) HandleWebSocket(c echo.Context) error {
	a := actor(c)

	conn, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		logger.Warn("WebSocket upgrade failed for %s: %v", a.ID, err)
		return nil
	}

	h.wsManager.Serve(conn, a.ID, a.Name)
	return nil
}
