package usecase

import (
	"context"

	"soulcircle/internal/domain/entity"
	"soulcircle/internal/domain/repository"
	"soulcircle/internal/infrastructure/metrics"
	"soulcircle/internal/infrastructure/ratelimit"
	"soulcircle/pkg/errors"
	"soulcircle/pkg/logger"
)

type DMUseCase struct {
	convRepo    repository.ConversationRepository
	messageRepo repository.MessageRepository
	userRepo    repository.UserRepository
	rateLimiter *ratelimit.RateLimiter
	window      int
}

func NewDMUseCase(
	convRepo repository.ConversationRepository,
	messageRepo repository.MessageRepository,
	userRepo repository.UserRepository,
	rateLimiter *ratelimit.RateLimiter,
	window int,
) *DMUseCase {
	return &DMUseCase{
		convRepo:    convRepo,
		messageRepo: messageRepo,
		userRepo:    userRepo,
		rateLimiter: rateLimiter,
		window:      window,
	}
}

// GetOrCreate returns the conversation between userID and otherID. The id is
// derived from the sorted pair, so both sides resolve to the same document.
func (uc *DMUseCase) GetOrCreate(ctx context.Context, userID, otherID string) (*entity.Conversation, error) {
	if otherID == "" || otherID == userID {
		return nil, errors.BadRequest("A conversation needs two different users", nil)
	}
	if _, err := uc.userRepo.GetByID(ctx, otherID); err != nil {
		return nil, err
	}

	id := entity.ConversationID(userID, otherID)
	participants := []string{userID, otherID}
	if participants[0] > participants[1] {
		participants[0], participants[1] = participants[1], participants[0]
	}
	conv, err := uc.convRepo.GetOrCreate(ctx, &entity.Conversation{
		ID:           id,
		Participants: participants,
		UnreadCount:  map[string]int{userID: 0, otherID: 0},
	})
	if err != nil {
		return nil, err
	}

	// ids containing the separator can map two pairs onto one id
	if !conv.HasParticipant(userID) || !conv.HasParticipant(otherID) || len(conv.Participants) != 2 {
		logger.Warn("Conversation id %s is held by %v, not %v", id, conv.Participants, participants)
		return nil, errors.Conflict("A conversation between these users cannot be created")
	}
	return conv, nil
}

// participantConversation loads the conversation and checks userID is in it.
func (uc *DMUseCase) participantConversation(ctx context.Context, conversationID, userID string) (*entity.Conversation, error) {
	conv, err := uc.convRepo.GetByID(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if !conv.HasParticipant(userID) {
		return nil, errors.Forbidden("You are not part of this conversation", nil)
	}
	return conv, nil
}

// Send appends the message, updates the preview and adds one unread message
// for the recipient.
func (uc *DMUseCase) Send(ctx context.Context, conversationID string, sender Actor, text string) (*entity.Message, error) {
	if allowed, wait := uc.rateLimiter.Allow(sender.ID, ratelimit.ActionSendMessage); !allowed {
		logger.Warn("Send DM rate limited: user %s must wait %v", sender.ID, wait)
		return nil, errors.TooManyRequests("Rate limit exceeded. Please slow down")
	}

	text, err := normalizeText(text)
	if err != nil {
		return nil, err
	}
	conv, err := uc.participantConversation(ctx, conversationID, sender.ID)
	if err != nil {
		return nil, err
	}

	msg, err := uc.messageRepo.Append(ctx, entity.DMLog(conversationID), &entity.Message{
		SenderID:   sender.ID,
		SenderName: sender.Name,
		Text:       text,
	})
	if err != nil {
		return nil, err
	}
	metrics.IncMessage(entity.LogDM)

	last := &entity.LastMessage{
		Text:       msg.Text,
		SenderID:   msg.SenderID,
		SenderName: msg.SenderName,
		Timestamp:  msg.Timestamp,
	}
	if err := uc.convRepo.RecordMessage(ctx, conversationID, last, conv.OtherParticipant(sender.ID)); err != nil {
		logger.Error("Failed to record DM %s on conversation %s: %v", msg.ID, conversationID, err)
		return nil, err
	}
	return msg, nil
}

func (uc *DMUseCase) limit(limit int) int {
	if limit <= 0 || limit > uc.window {
		return uc.window
	}
	return limit
}

func (uc *DMUseCase) Messages(ctx context.Context, conversationID, userID string, limit int) ([]*entity.Message, error) {
	if _, err := uc.participantConversation(ctx, conversationID, userID); err != nil {
		return nil, err
	}
	msgs, err := uc.messageRepo.Window(ctx, entity.DMLog(conversationID), uc.limit(limit))
	if err != nil {
		return nil, err
	}
	return entity.VisibleMessages(msgs), nil
}

func (uc *DMUseCase) SubscribeMessages(ctx context.Context, conversationID, userID string) (*repository.Subscription[[]*entity.Message], error) {
	if _, err := uc.participantConversation(ctx, conversationID, userID); err != nil {
		return nil, err
	}
	sub, err := uc.messageRepo.Subscribe(ctx, entity.DMLog(conversationID), uc.window)
	if err != nil {
		return nil, err
	}
	return repository.MapSubscription(sub, entity.VisibleMessages), nil
}

// MarkRead resets only userID's unread counter. It overwrites rather than
// decrements, so an increment racing with it is lost.
func (uc *DMUseCase) MarkRead(ctx context.Context, conversationID, userID string) error {
	if _, err := uc.participantConversation(ctx, conversationID, userID); err != nil {
		return err
	}
	return uc.convRepo.ResetUnread(ctx, conversationID, userID)
}

// List returns the user's conversations, most recent activity first.
func (uc *DMUseCase) List(ctx context.Context, userID string) ([]*entity.Conversation, error) {
	return uc.convRepo.ListByUser(ctx, userID)
}

func (uc *DMUseCase) Subscribe(ctx context.Context, userID string) (*repository.Subscription[[]*entity.Conversation], error) {
	return uc.convRepo.SubscribeByUser(ctx, userID)
}
