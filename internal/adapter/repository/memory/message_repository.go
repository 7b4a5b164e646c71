package memory

import (
	"context"

	"github.com/google/uuid"

	"soulcircle/internal/domain/entity"
	"soulcircle/internal/domain/repository"
	"soulcircle/pkg/errors"
)

type messageRepository struct {
	s *Store
}

func NewMessageRepository(s *Store) repository.MessageRepository {
	return &messageRepository{s: s}
}

func (r *messageRepository) Append(ctx context.Context, log entity.LogRef, msg *entity.Message) (*entity.Message, error) {
	r.s.mu.Lock()
	stored := cloneMessage(msg)
	if stored.ID == "" {
		stored.ID = uuid.New().String()
	}
	stored.LogID = log.ID
	stored.Timestamp = r.s.now()
	key := log.String()
	r.s.logs[key] = append(r.s.logs[key], stored)
	out := cloneMessage(stored)
	r.s.mu.Unlock()

	r.s.hub.notify(topicLog(log))
	return out, nil
}

func (r *messageRepository) find(log entity.LogRef, id string) (*entity.Message, bool) {
	for _, m := range r.s.logs[log.String()] {
		if m.ID == id {
			return m, true
		}
	}
	return nil, false
}

func (r *messageRepository) GetByID(ctx context.Context, log entity.LogRef, id string) (*entity.Message, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	m, ok := r.find(log, id)
	if !ok {
		return nil, errors.NotFound("Message", nil)
	}
	return cloneMessage(m), nil
}

func (r *messageRepository) Mutate(ctx context.Context, log entity.LogRef, id string, fn repository.MessageMutation) (*entity.Message, error) {
	r.s.mu.Lock()
	stored, ok := r.find(log, id)
	if !ok {
		r.s.mu.Unlock()
		return nil, errors.NotFound("Message", nil)
	}

	m := cloneMessage(stored)
	if err := fn(m); err != nil {
		r.s.mu.Unlock()
		return nil, err
	}
	// id, log and server timestamp are immutable
	m.ID, m.LogID, m.Timestamp = stored.ID, stored.LogID, stored.Timestamp
	*stored = *cloneMessage(m)
	r.s.mu.Unlock()

	r.s.hub.notify(topicLog(log))
	return m, nil
}

func (r *messageRepository) Window(ctx context.Context, log entity.LogRef, limit int) ([]*entity.Message, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.window(log, limit), nil
}

// window is called with s.mu held. Logs are kept in append order, which is
// timestamp order because the store clock never goes backwards.
func (r *messageRepository) window(log entity.LogRef, limit int) []*entity.Message {
	all := r.s.logs[log.String()]
	start := 0
	if limit > 0 && len(all) > limit {
		start = len(all) - limit
	}
	out := make([]*entity.Message, 0, len(all)-start)
	for _, m := range all[start:] {
		out = append(out, cloneMessage(m))
	}
	return out
}

func (r *messageRepository) Subscribe(ctx context.Context, log entity.LogRef, limit int) (*repository.Subscription[[]*entity.Message], error) {
	return stream(ctx, r.s.hub, topicLog(log), func() ([]*entity.Message, error) {
		r.s.mu.Lock()
		defer r.s.mu.Unlock()
		return r.window(log, limit), nil
	}), nil
}
