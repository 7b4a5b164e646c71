package usecase

import (
	"context"
	"io"
	"strings"
	"time"

	"soulcircle/internal/domain/entity"
	"soulcircle/internal/domain/repository"
	"soulcircle/pkg/errors"
	"soulcircle/pkg/logger"
)

// AvatarStore persists profile pictures and returns their public URL.
type AvatarStore interface {
	UploadAvatar(ctx context.Context, userID, contentType string, file io.Reader) (string, error)
	DeleteAvatar(ctx context.Context, fileURL string) error
}

// loginRefreshInterval is how stale LastLoginAt may get before an
// authenticated request stamps it again.
const loginRefreshInterval = 15 * time.Minute

type UserUseCase struct {
	userRepo repository.UserRepository
	avatars  AvatarStore
	now      func() time.Time
}

// NewUserUseCase accepts a nil AvatarStore; uploads then fail.
func NewUserUseCase(userRepo repository.UserRepository, avatars AvatarStore) *UserUseCase {
	return &UserUseCase{
		userRepo: userRepo,
		avatars:  avatars,
		now:      time.Now,
	}
}

type UpdateProfileInput struct {
	DisplayName *string `json:"display_name" validate:"omitempty,min=2,max=50"`
	Bio         *string `json:"bio" validate:"omitempty,max=300"`
}

func defaultDisplayName(email string) string {
	if at := strings.Index(email, "@"); at > 0 {
		return email[:at]
	}
	return "Anonymous"
}

// EnsureProfile returns the user's profile, creating it on first sight.
func (uc *UserUseCase) EnsureProfile(ctx context.Context, userID, email, displayName string) (*entity.User, error) {
	user, err := uc.userRepo.GetByID(ctx, userID)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, errors.CodeNotFound) {
		return nil, err
	}

	if displayName == "" {
		displayName = defaultDisplayName(email)
	}
	user = &entity.User{
		ID:          userID,
		DisplayName: displayName,
		Email:       email,
		IsActive:    true,
	}
	if err := uc.userRepo.Create(ctx, user); err != nil {
		// a concurrent request created it first
		if errors.Is(err, errors.CodeConflict) {
			return uc.userRepo.GetByID(ctx, userID)
		}
		return nil, err
	}

	logger.Info("Created profile for user %s", userID)
	return user, nil
}

// RecordLogin stamps the last login time unless it is fresher than
// loginRefreshInterval. user.LastLoginAt is updated on success.
func (uc *UserUseCase) RecordLogin(ctx context.Context, user *entity.User) error {
	now := uc.now()
	if now.Sub(user.LastLoginAt) < loginRefreshInterval {
		return nil
	}
	if err := uc.userRepo.TouchLogin(ctx, user.ID); err != nil {
		return err
	}
	user.LastLoginAt = now
	return nil
}

func (uc *UserUseCase) Get(ctx context.Context, userID string) (*entity.User, error) {
	return uc.userRepo.GetByID(ctx, userID)
}

func (uc *UserUseCase) UpdateProfile(ctx context.Context, userID string, input UpdateProfileInput) (*entity.User, error) {
	user, err := uc.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	if input.DisplayName != nil {
		user.DisplayName = strings.TrimSpace(*input.DisplayName)
	}
	if input.Bio != nil {
		user.Bio = *input.Bio
	}

	if err := uc.userRepo.Update(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// UploadAvatar stores the image, points the profile at it and drops the
// previous avatar. Rejections from the store keep their code; any other
// storage failure is INTERNAL_ERROR.
func (uc *UserUseCase) UploadAvatar(ctx context.Context, userID, contentType string, file io.Reader) (*entity.User, error) {
	if uc.avatars == nil {
		return nil, errors.New("SERVICE_UNAVAILABLE", "Avatar storage is not configured", 503, nil)
	}

	user, err := uc.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	url, err := uc.avatars.UploadAvatar(ctx, userID, contentType, file)
	if err != nil {
		return nil, errors.Wrap(err, "Failed to upload avatar")
	}

	previous := user.PhotoURL
	user.PhotoURL = url
	if err := uc.userRepo.Update(ctx, user); err != nil {
		return nil, err
	}

	if previous != "" {
		if err := uc.avatars.DeleteAvatar(ctx, previous); err != nil {
			logger.Warn("Failed to delete previous avatar for %s: %v", userID, err)
		}
	}
	return user, nil
}
