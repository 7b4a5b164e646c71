package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

type HealthHandler struct {
	backend string
	started time.Time
}

func NewHealthHandler(backend string) *HealthHandler {
	return &HealthHandler{
		backend: backend,
		started: time.Now(),
	}
}

func (h *HealthHandler) CheckHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status":  "Server is running",
		"backend": h.backend,
		"uptime":  time.Since(h.started).Round(time.Second).String(),
		"time":    time.Now().Format(time.RFC3339),
	})
}
