package repository

import (
	"context"

	"soulcircle/internal/domain/entity"
)

type UserRepository interface {
	Create(ctx context.Context, user *entity.User) error
	GetByID(ctx context.Context, id string) (*entity.User, error)
	Update(ctx context.Context, user *entity.User) error
	TouchLogin(ctx context.Context, id string) error
	ListIDs(ctx context.Context) ([]string, error)
}
