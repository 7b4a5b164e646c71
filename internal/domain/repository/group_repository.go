package repository

import (
	"context"

	"soulcircle/internal/domain/entity"
)

// GroupMutation runs inside an atomic read-modify-write of one group. It may
// modify g and return the member detail to upsert alongside it. Returning an
// error aborts the write.
type GroupMutation func(g *entity.Group) (*entity.GroupMember, error)

type GroupRepository interface {
	Create(ctx context.Context, group *entity.Group, creator *entity.GroupMember) error
	GetByID(ctx context.Context, id string) (*entity.Group, error)
	// List returns non-deleted groups matching filter, newest first.
	List(ctx context.Context, filter entity.GroupFilter) ([]*entity.Group, error)
	// Mutate applies fn atomically; concurrent mutations of the same group
	// are serialized by the store.
	Mutate(ctx context.Context, id string, fn GroupMutation) (*entity.Group, error)
	InviteCodeExists(ctx context.Context, code string) (bool, error)
	SetLastMessage(ctx context.Context, id string, last *entity.LastMessage) error
	ListMembers(ctx context.Context, id string) ([]*entity.GroupMember, error)
	IsEmpty(ctx context.Context) (bool, error)
	Subscribe(ctx context.Context, filter entity.GroupFilter) (*Subscription[[]*entity.Group], error)
}
