package handler

import (
	"github.com/labstack/echo/v4"

	"soulcircle/internal/domain/entity"
	"soulcircle/internal/usecase"
	"soulcircle/pkg/response"
)

type PresenceHandler struct {
	presenceUseCase *usecase.PresenceUseCase
	typingUseCase   *usecase.TypingUseCase
}

func NewPresenceHandler(presenceUseCase *usecase.PresenceUseCase, typingUseCase *usecase.TypingUseCase) *PresenceHandler {
	return &PresenceHandler{
		presenceUseCase: presenceUseCase,
		typingUseCase:   typingUseCase,
	}
}

type setPresenceRequest struct {
	CurrentRoom string `json:"current_room" validate:"max=128"`
	DisplayName string `json:"display_name" validate:"max=80"`
	PhotoURL    string `json:"photo_url" validate:"omitempty,url"`
}

type setTypingRequest struct {
	Typing bool `json:"typing"`
}

// SetOnline marks the caller online. Over REST there is no connection to
// watch, so the record stays online until DELETE /presence or a socket of
// the same user closes.
func (h *PresenceHandler) SetOnline(c echo.Context) error {
	var req setPresenceRequest
	if err := bindAndValidate(c, &req); err != nil {
		return response.Error(c, err)
	}

	a := actor(c)
	name := req.DisplayName
	if name == "" {
		name = a.Name
	}
	meta := entity.PresenceMeta{DisplayName: name, PhotoURL: req.PhotoURL}
	if err := h.presenceUseCase.SetOnline(c.Request().Context(), a.ID, meta, req.CurrentRoom); err != nil {
		return response.Error(c, err)
	}
	return response.Success(c, map[string]bool{"online": true})
}

func (h *PresenceHandler) SetOffline(c echo.Context) error {
	if err := h.presenceUseCase.SetOffline(c.Request().Context(), actor(c).ID); err != nil {
		return response.Error(c, err)
	}
	return response.Success(c, map[string]bool{"online": false})
}

func (h *PresenceHandler) Online(c echo.Context) error {
	online, err := h.presenceUseCase.Online(c.Request().Context())
	if err != nil {
		return response.Error(c, err)
	}
	return response.List(c, online, len(online), 0)
}

func (h *PresenceHandler) SetTyping(c echo.Context) error {
	var req setTypingRequest
	if err := bindAndValidate(c, &req); err != nil {
		return response.Error(c, err)
	}

	if err := h.typingUseCase.SetTyping(c.Request().Context(), c.Param("id"), actor(c).ID, req.Typing); err != nil {
		return response.Error(c, err)
	}
	return response.Success(c, map[string]bool{"typing": req.Typing})
}

func (h *PresenceHandler) Typing(c echo.Context) error {
	users, err := h.typingUseCase.Typing(c.Request().Context(), c.Param("id"), actor(c).ID)
	if err != nil {
		return response.Error(c, err)
	}
	return response.List(c, users, len(users), 0)
}
