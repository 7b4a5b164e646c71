package memory

import (
	"context"

	"soulcircle/internal/domain/entity"
	"soulcircle/internal/domain/repository"
	"soulcircle/pkg/errors"
)

type conversationRepository struct {
	s *Store
}

func NewConversationRepository(s *Store) repository.ConversationRepository {
	return &conversationRepository{s: s}
}

func (r *conversationRepository) notifyParticipants(c *entity.Conversation) {
	topics := make([]string, 0, len(c.Participants))
	for _, p := range c.Participants {
		topics = append(topics, topicConvs(p))
	}
	r.s.hub.notify(topics...)
}

func (r *conversationRepository) GetOrCreate(ctx context.Context, conv *entity.Conversation) (*entity.Conversation, error) {
	r.s.mu.Lock()
	if existing, ok := r.s.convs[conv.ID]; ok {
		out := cloneConversation(existing)
		r.s.mu.Unlock()
		return out, nil
	}

	stored := cloneConversation(conv)
	now := r.s.now()
	stored.CreatedAt = now
	stored.UpdatedAt = now
	r.s.convs[conv.ID] = stored
	out := cloneConversation(stored)
	r.s.mu.Unlock()

	r.notifyParticipants(out)
	return out, nil
}

func (r *conversationRepository) GetByID(ctx context.Context, id string) (*entity.Conversation, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	c, ok := r.s.convs[id]
	if !ok {
		return nil, errors.NotFound("Conversation", nil)
	}
	return cloneConversation(c), nil
}

func (r *conversationRepository) ListByUser(ctx context.Context, userID string) ([]*entity.Conversation, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.listByUser(userID), nil
}

func (r *conversationRepository) listByUser(userID string) []*entity.Conversation {
	out := make([]*entity.Conversation, 0)
	for _, c := range r.s.convs {
		if c.HasParticipant(userID) {
			out = append(out, cloneConversation(c))
		}
	}
	entity.SortConversations(out)
	return out
}

func (r *conversationRepository) RecordMessage(ctx context.Context, id string, last *entity.LastMessage, recipientID string) error {
	r.s.mu.Lock()
	c, ok := r.s.convs[id]
	if !ok {
		r.s.mu.Unlock()
		return errors.NotFound("Conversation", nil)
	}
	c.LastMessage = cloneLast(last)
	if c.UnreadCount == nil {
		c.UnreadCount = make(map[string]int)
	}
	c.UnreadCount[recipientID]++
	c.UpdatedAt = r.s.now()
	out := cloneConversation(c)
	r.s.mu.Unlock()

	r.notifyParticipants(out)
	return nil
}

func (r *conversationRepository) ResetUnread(ctx context.Context, id, userID string) error {
	r.s.mu.Lock()
	c, ok := r.s.convs[id]
	if !ok {
		r.s.mu.Unlock()
		return errors.NotFound("Conversation", nil)
	}
	if c.UnreadCount == nil {
		c.UnreadCount = make(map[string]int)
	}
	c.UnreadCount[userID] = 0
	out := cloneConversation(c)
	r.s.mu.Unlock()

	r.notifyParticipants(out)
	return nil
}

func (r *conversationRepository) SubscribeByUser(ctx context.Context, userID string) (*repository.Subscription[[]*entity.Conversation], error) {
	return stream(ctx, r.s.hub, topicConvs(userID), func() ([]*entity.Conversation, error) {
		r.s.mu.Lock()
		defer r.s.mu.Unlock()
		return r.listByUser(userID), nil
	}), nil
}
