package handler

import (
	"context"

	"github.com/labstack/echo/v4"

	"soulcircle/pkg/response"
)

// TokenIssuer mints a token for uid that the configured verifier accepts.
type TokenIssuer func(ctx context.Context, uid, name string) (string, error)

type DevTokenHandler struct {
	issue TokenIssuer
}

func NewDevTokenHandler(issue TokenIssuer) *DevTokenHandler {
	return &DevTokenHandler{
		issue: issue,
	}
}

type devTokenRequest struct {
	UserID string `json:"user_id" validate:"required,max=128"`
	Name   string `json:"name" validate:"max=80"`
}

func (h *DevTokenHandler) GenerateToken(c echo.Context) error {
	var req devTokenRequest
	if err := bindAndValidate(c, &req); err != nil {
		return response.Error(c, err)
	}

	token, err := h.issue(c.Request().Context(), req.UserID, req.Name)
	if err != nil {
		return response.Error(c, err)
	}
	return response.Success(c, map[string]string{
		"token":   token,
		"user_id": req.UserID,
	})
}
