package handler

import (
	"github.com/labstack/echo/v4"

	"soulcircle/internal/infrastructure/storage"
	"soulcircle/internal/usecase"
	"soulcircle/pkg/errors"
	"soulcircle/pkg/logger"
	"soulcircle/pkg/response"
)

type UserHandler struct {
	userUseCase *usecase.UserUseCase
}

func NewUserHandler(userUseCase *usecase.UserUseCase) *UserHandler {
	return &UserHandler{
		userUseCase: userUseCase,
	}
}

func (h *UserHandler) GetProfile(c echo.Context) error {
	user, err := h.userUseCase.Get(c.Request().Context(), actor(c).ID)
	if err != nil {
		return response.Error(c, err)
	}
	return response.Success(c, user)
}

func (h *UserHandler) UpdateProfile(c echo.Context) error {
	var req usecase.UpdateProfileInput
	if err := bindAndValidate(c, &req); err != nil {
		return response.Error(c, err)
	}

	user, err := h.userUseCase.UpdateProfile(c.Request().Context(), actor(c).ID, req)
	if err != nil {
		return response.Error(c, err)
	}
	return response.Success(c, user)
}

// UploadAvatar takes a multipart "file" field holding a JPEG, PNG, GIF or
// WebP image.
func (h *UserHandler) UploadAvatar(c echo.Context) error {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		return response.Error(c, errors.BadRequest("File is required", err))
	}
	if fileHeader.Size > storage.MaxAvatarSize {
		return response.Error(c, errors.BadRequest("File is too large", nil))
	}

	contentType := fileHeader.Header.Get("Content-Type")
	if !storage.IsAvatarType(contentType) {
		return response.Error(c, errors.BadRequest("Unsupported image type", nil))
	}

	file, err := fileHeader.Open()
	if err != nil {
		return response.Error(c, errors.BadRequest("Failed to read file", err))
	}
	defer file.Close()

	uid := actor(c).ID
	user, err := h.userUseCase.UploadAvatar(c.Request().Context(), uid, contentType, file)
	if err != nil {
		return response.Error(c, err)
	}

	logger.Info("Avatar updated for user %s", uid)
	return response.Success(c, user)
}
