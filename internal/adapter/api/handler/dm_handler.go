package handler

import (
	"github.com/labstack/echo/v4"

	"soulcircle/internal/usecase"
	"soulcircle/pkg/response"
)

type DMHandler struct {
	dmUseCase *usecase.DMUseCase
}

func NewDMHandler(dmUseCase *usecase.DMUseCase) *DMHandler {
	return &DMHandler{
		dmUseCase: dmUseCase,
	}
}

type createDMRequest struct {
	UserID string `json:"user_id" validate:"required"`
}

func (h *DMHandler) GetOrCreate(c echo.Context) error {
	var req createDMRequest
	if err := bindAndValidate(c, &req); err != nil {
		return response.Error(c, err)
	}

	conv, err := h.dmUseCase.GetOrCreate(c.Request().Context(), actor(c).ID, req.UserID)
	if err != nil {
		return response.Error(c, err)
	}
	return response.Success(c, conv)
}

func (h *DMHandler) List(c echo.Context) error {
	convs, err := h.dmUseCase.List(c.Request().Context(), actor(c).ID)
	if err != nil {
		return response.Error(c, err)
	}
	return response.List(c, convs, len(convs), 0)
}

func (h *DMHandler) Send(c echo.Context) error {
	var req sendMessageRequest
	if err := bindAndValidate(c, &req); err != nil {
		return response.Error(c, err)
	}

	msg, err := h.dmUseCase.Send(c.Request().Context(), c.Param("id"), actor(c), req.Text)
	if err != nil {
		return response.Error(c, err)
	}
	return response.Created(c, msg)
}

func (h *DMHandler) Messages(c echo.Context) error {
	limit := queryInt(c, "limit", 0)
	msgs, err := h.dmUseCase.Messages(c.Request().Context(), c.Param("id"), actor(c).ID, limit)
	if err != nil {
		return response.Error(c, err)
	}
	return response.List(c, msgs, len(msgs), limit)
}

func (h *DMHandler) MarkRead(c echo.Context) error {
	if err := h.dmUseCase.MarkRead(c.Request().Context(), c.Param("id"), actor(c).ID); err != nil {
		return response.Error(c, err)
	}
	return response.Success(c, map[string]string{"message": "Conversation marked as read"})
}
