package handler

import (
	"github.com/labstack/echo/v4"

	"soulcircle/internal/usecase"
	"soulcircle/pkg/response"
)

type MessageHandler struct {
	messageUseCase *usecase.MessageUseCase
}

func NewMessageHandler(messageUseCase *usecase.MessageUseCase) *MessageHandler {
	return &MessageHandler{
		messageUseCase: messageUseCase,
	}
}

type sendMessageRequest struct {
	Text string `json:"text" validate:"required,max=2000"`
}

type reactRequest struct {
	Emoji string `json:"emoji" validate:"required,max=16"`
}

func (h *MessageHandler) Send(c echo.Context) error {
	var req sendMessageRequest
	if err := bindAndValidate(c, &req); err != nil {
		return response.Error(c, err)
	}

	msg, err := h.messageUseCase.Send(c.Request().Context(), c.Param("id"), actor(c), req.Text)
	if err != nil {
		return response.Error(c, err)
	}
	return response.Created(c, msg)
}

func (h *MessageHandler) List(c echo.Context) error {
	limit := queryInt(c, "limit", 0)
	msgs, err := h.messageUseCase.List(c.Request().Context(), c.Param("id"), actor(c).ID, limit)
	if err != nil {
		return response.Error(c, err)
	}
	return response.List(c, msgs, len(msgs), limit)
}

func (h *MessageHandler) Edit(c echo.Context) error {
	var req sendMessageRequest
	if err := bindAndValidate(c, &req); err != nil {
		return response.Error(c, err)
	}

	msg, err := h.messageUseCase.Edit(c.Request().Context(), c.Param("id"), c.Param("mid"), actor(c).ID, req.Text)
	if err != nil {
		return response.Error(c, err)
	}
	return response.Success(c, msg)
}

func (h *MessageHandler) Delete(c echo.Context) error {
	if err := h.messageUseCase.Delete(c.Request().Context(), c.Param("id"), c.Param("mid"), actor(c).ID); err != nil {
		return response.Error(c, err)
	}
	return response.Success(c, map[string]string{"message": "Message deleted"})
}

func (h *MessageHandler) React(c echo.Context) error {
	var req reactRequest
	if err := bindAndValidate(c, &req); err != nil {
		return response.Error(c, err)
	}

	msg, err := h.messageUseCase.React(c.Request().Context(), c.Param("id"), c.Param("mid"), actor(c).ID, req.Emoji)
	if err != nil {
		return response.Error(c, err)
	}
	return response.Success(c, msg)
}

func (h *MessageHandler) Unreact(c echo.Context) error {
	msg, err := h.messageUseCase.Unreact(c.Request().Context(), c.Param("id"), c.Param("mid"), actor(c).ID)
	if err != nil {
		return response.Error(c, err)
	}
	return response.Success(c, msg)
}
