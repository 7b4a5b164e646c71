package memory

import (
	"context"
	"time"

	"soulcircle/internal/domain/entity"
	"soulcircle/internal/domain/repository"
	"soulcircle/pkg/errors"
)

type presenceRepository struct {
	s *Store
}

func NewPresenceRepository(s *Store) repository.PresenceRepository {
	return &presenceRepository{s: s}
}

func (r *presenceRepository) Set(ctx context.Context, p *entity.Presence) error {
	r.s.mu.Lock()
	c := *p
	r.s.presence[p.UserID] = &c
	r.s.mu.Unlock()

	r.s.hub.notify(topicPresence)
	return nil
}

func (r *presenceRepository) Get(ctx context.Context, userID string) (*entity.Presence, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	p, ok := r.s.presence[userID]
	if !ok {
		return nil, errors.NotFound("Presence", nil)
	}
	c := *p
	return &c, nil
}

func (r *presenceRepository) All(ctx context.Context) (map[string]*entity.Presence, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.all(), nil
}

func (r *presenceRepository) all() map[string]*entity.Presence {
	out := make(map[string]*entity.Presence, len(r.s.presence))
	for k, v := range r.s.presence {
		c := *v
		out[k] = &c
	}
	return out
}

func (r *presenceRepository) Subscribe(ctx context.Context) (*repository.Subscription[map[string]*entity.Presence], error) {
	return stream(ctx, r.s.hub, topicPresence, func() (map[string]*entity.Presence, error) {
		r.s.mu.Lock()
		defer r.s.mu.Unlock()
		return r.all(), nil
	}), nil
}

type typingRepository struct {
	s *Store
}

func NewTypingRepository(s *Store) repository.TypingRepository {
	return &typingRepository{s: s}
}

func (r *typingRepository) Start(ctx context.Context, groupID, userID string, ttl time.Duration) error {
	r.s.mu.Lock()
	now := r.s.clock()
	if r.s.typing[groupID] == nil {
		r.s.typing[groupID] = make(map[string]time.Time)
	}
	if exp, ok := r.s.typing[groupID][userID]; ok && now.Before(exp) {
		r.s.mu.Unlock()
		return nil
	}
	r.s.typing[groupID][userID] = now.Add(ttl)
	r.s.mu.Unlock()

	time.AfterFunc(ttl, func() { r.s.hub.notify(topicTyping(groupID)) })
	r.s.hub.notify(topicTyping(groupID))
	return nil
}

func (r *typingRepository) Stop(ctx context.Context, groupID, userID string) error {
	r.s.mu.Lock()
	delete(r.s.typing[groupID], userID)
	r.s.mu.Unlock()

	r.s.hub.notify(topicTyping(groupID))
	return nil
}

func (r *typingRepository) List(ctx context.Context, groupID string) (map[string]bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.list(groupID), nil
}

// list drops expired flags. Called with s.mu held.
func (r *typingRepository) list(groupID string) map[string]bool {
	now := r.s.clock()
	out := make(map[string]bool)
	for uid, exp := range r.s.typing[groupID] {
		if now.Before(exp) {
			out[uid] = true
		} else {
			delete(r.s.typing[groupID], uid)
		}
	}
	return out
}

func (r *typingRepository) Subscribe(ctx context.Context, groupID string) (*repository.Subscription[map[string]bool], error) {
	return stream(ctx, r.s.hub, topicTyping(groupID), func() (map[string]bool, error) {
		r.s.mu.Lock()
		defer r.s.mu.Unlock()
		return r.list(groupID), nil
	}), nil
}
