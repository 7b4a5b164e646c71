package memory

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"soulcircle/internal/domain/entity"
	"soulcircle/internal/domain/repository"
	"soulcircle/pkg/errors"
)

type groupRepository struct {
	s *Store
}

func NewGroupRepository(s *Store) repository.GroupRepository {
	return &groupRepository{s: s}
}

func (r *groupRepository) Create(ctx context.Context, group *entity.Group, creator *entity.GroupMember) error {
	r.s.mu.Lock()
	if group.ID == "" {
		group.ID = uuid.New().String()
	}
	if _, exists := r.s.groups[group.ID]; exists {
		r.s.mu.Unlock()
		return errors.Conflict("group already exists")
	}
	now := r.s.now()
	group.CreatedAt = now
	group.UpdatedAt = now
	r.s.groups[group.ID] = cloneGroup(group)
	r.s.groupOrder = append(r.s.groupOrder, group.ID)
	r.s.members[group.ID] = make(map[string]*entity.GroupMember)
	if creator != nil {
		creator.JoinedAt = now
		c := *creator
		r.s.members[group.ID][creator.UserID] = &c
	}
	r.s.mu.Unlock()

	r.s.hub.notify(topicGroups)
	return nil
}

func (r *groupRepository) GetByID(ctx context.Context, id string) (*entity.Group, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	g, ok := r.s.groups[id]
	if !ok {
		return nil, errors.NotFound("Group", nil)
	}
	return cloneGroup(g), nil
}

func (r *groupRepository) List(ctx context.Context, filter entity.GroupFilter) ([]*entity.Group, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.list(filter), nil
}

// list is called with s.mu held.
func (r *groupRepository) list(filter entity.GroupFilter) []*entity.Group {
	groups := make([]*entity.Group, 0, len(r.s.groupOrder))
	for i := len(r.s.groupOrder) - 1; i >= 0; i-- {
		g := r.s.groups[r.s.groupOrder[i]]
		if filter.Accepts(g) {
			groups = append(groups, cloneGroup(g))
		}
	}
	sort.SliceStable(groups, func(i, j int) bool {
		return groups[i].CreatedAt.After(groups[j].CreatedAt)
	})
	if filter.Limit > 0 && len(groups) > filter.Limit {
		groups = groups[:filter.Limit]
	}
	return groups
}

func (r *groupRepository) Mutate(ctx context.Context, id string, fn repository.GroupMutation) (*entity.Group, error) {
	r.s.mu.Lock()
	stored, ok := r.s.groups[id]
	if !ok {
		r.s.mu.Unlock()
		return nil, errors.NotFound("Group", nil)
	}

	g := cloneGroup(stored)
	member, err := fn(g)
	if err != nil {
		r.s.mu.Unlock()
		return nil, err
	}

	now := r.s.now()
	g.UpdatedAt = now
	r.s.groups[id] = cloneGroup(g)
	if member != nil {
		m := *member
		r.s.members[id][member.UserID] = &m
	}
	r.s.mu.Unlock()

	r.s.hub.notify(topicGroups)
	return g, nil
}

func (r *groupRepository) InviteCodeExists(ctx context.Context, code string) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, g := range r.s.groups {
		if g.InviteCode == code {
			return true, nil
		}
	}
	return false, nil
}

func (r *groupRepository) SetLastMessage(ctx context.Context, id string, last *entity.LastMessage) error {
	r.s.mu.Lock()
	g, ok := r.s.groups[id]
	if !ok {
		r.s.mu.Unlock()
		return errors.NotFound("Group", nil)
	}
	g.LastMessage = cloneLast(last)
	g.UpdatedAt = r.s.now()
	r.s.mu.Unlock()

	r.s.hub.notify(topicGroups)
	return nil
}

func (r *groupRepository) ListMembers(ctx context.Context, id string) ([]*entity.GroupMember, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.groups[id]; !ok {
		return nil, errors.NotFound("Group", nil)
	}

	members := make([]*entity.GroupMember, 0, len(r.s.members[id]))
	for _, m := range r.s.members[id] {
		if m.IsActive {
			c := *m
			members = append(members, &c)
		}
	}
	sort.Slice(members, func(i, j int) bool {
		return members[i].JoinedAt.Before(members[j].JoinedAt)
	})
	return members, nil
}

func (r *groupRepository) IsEmpty(ctx context.Context) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return len(r.s.groups) == 0, nil
}

func (r *groupRepository) Subscribe(ctx context.Context, filter entity.GroupFilter) (*repository.Subscription[[]*entity.Group], error) {
	return stream(ctx, r.s.hub, topicGroups, func() ([]*entity.Group, error) {
		r.s.mu.Lock()
		defer r.s.mu.Unlock()
		return r.list(filter), nil
	}), nil
}
