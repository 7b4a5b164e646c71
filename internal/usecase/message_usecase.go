package usecase

import (
	"context"
	"strings"
	"time"

	"soulcircle/internal/domain/entity"
	"soulcircle/internal/domain/repository"
	"soulcircle/internal/infrastructure/metrics"
	"soulcircle/internal/infrastructure/ratelimit"
	"soulcircle/pkg/errors"
	"soulcircle/pkg/logger"
)

const maxMessageLength = 2000

type MessageUseCase struct {
	messageRepo repository.MessageRepository
	groupRepo   repository.GroupRepository
	rateLimiter *ratelimit.RateLimiter
	window      int
	now         func() time.Time
}

// NewMessageUseCase serves group logs. window is the number of latest
// messages returned by List and Subscribe.
func NewMessageUseCase(
	messageRepo repository.MessageRepository,
	groupRepo repository.GroupRepository,
	rateLimiter *ratelimit.RateLimiter,
	window int,
) *MessageUseCase {
	return &MessageUseCase{
		messageRepo: messageRepo,
		groupRepo:   groupRepo,
		rateLimiter: rateLimiter,
		window:      window,
		now:         time.Now,
	}
}

func normalizeText(text string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", errors.BadRequest("Message text is required", nil)
	}
	if len([]rune(text)) > maxMessageLength {
		return "", errors.BadRequest("Message text is too long", nil)
	}
	return text, nil
}

// memberGroup loads a live group and checks that userID belongs to it.
func (uc *MessageUseCase) memberGroup(ctx context.Context, groupID, userID string) (*entity.Group, error) {
	group, err := uc.groupRepo.GetByID(ctx, groupID)
	if err != nil {
		return nil, err
	}
	if group.IsDeleted {
		return nil, errors.NotFound("Group", nil)
	}
	if !group.IsMember(userID) {
		return nil, errors.NotMember(groupID)
	}
	return group, nil
}

// Send appends to the group log and refreshes the group's last message.
func (uc *MessageUseCase) Send(ctx context.Context, groupID string, sender Actor, text string) (*entity.Message, error) {
	if allowed, wait := uc.rateLimiter.Allow(sender.ID, ratelimit.ActionSendMessage); !allowed {
		logger.Warn("Send message rate limited: user %s must wait %v", sender.ID, wait)
		return nil, errors.TooManyRequests("Rate limit exceeded. Please slow down")
	}

	text, err := normalizeText(text)
	if err != nil {
		return nil, err
	}
	if _, err := uc.memberGroup(ctx, groupID, sender.ID); err != nil {
		return nil, err
	}

	msg, err := uc.messageRepo.Append(ctx, entity.GroupLog(groupID), &entity.Message{
		SenderID:   sender.ID,
		SenderName: sender.Name,
		Text:       text,
	})
	if err != nil {
		return nil, err
	}
	metrics.IncMessage(entity.LogGroup)

	last := &entity.LastMessage{
		Text:       msg.Text,
		SenderID:   msg.SenderID,
		SenderName: msg.SenderName,
		Timestamp:  msg.Timestamp,
	}
	if err := uc.groupRepo.SetLastMessage(ctx, groupID, last); err != nil {
		logger.Error("Failed to update last message for group %s: %v", groupID, err)
		return nil, err
	}

	return msg, nil
}

func (uc *MessageUseCase) limit(limit int) int {
	if limit <= 0 || limit > uc.window {
		return uc.window
	}
	return limit
}

// List returns the visible messages of the latest window, oldest first.
func (uc *MessageUseCase) List(ctx context.Context, groupID, userID string, limit int) ([]*entity.Message, error) {
	if _, err := uc.memberGroup(ctx, groupID, userID); err != nil {
		return nil, err
	}
	msgs, err := uc.messageRepo.Window(ctx, entity.GroupLog(groupID), uc.limit(limit))
	if err != nil {
		return nil, err
	}
	return entity.VisibleMessages(msgs), nil
}

// Subscribe streams the visible window on every change to the log.
func (uc *MessageUseCase) Subscribe(ctx context.Context, groupID, userID string) (*repository.Subscription[[]*entity.Message], error) {
	if _, err := uc.memberGroup(ctx, groupID, userID); err != nil {
		return nil, err
	}
	sub, err := uc.messageRepo.Subscribe(ctx, entity.GroupLog(groupID), uc.window)
	if err != nil {
		return nil, err
	}
	return repository.MapSubscription(sub, entity.VisibleMessages), nil
}

// authored runs fn on a live message sent by userID.
func (uc *MessageUseCase) authored(ctx context.Context, groupID, messageID, userID string, fn func(m *entity.Message)) (*entity.Message, error) {
	return uc.messageRepo.Mutate(ctx, entity.GroupLog(groupID), messageID, func(m *entity.Message) error {
		if m.Deleted {
			return errors.NotFound("Message", nil)
		}
		if m.SenderID != userID {
			return errors.NotAuthorized("Only the sender can change this message")
		}
		fn(m)
		return nil
	})
}

func (uc *MessageUseCase) Edit(ctx context.Context, groupID, messageID, userID, text string) (*entity.Message, error) {
	text, err := normalizeText(text)
	if err != nil {
		return nil, err
	}
	return uc.authored(ctx, groupID, messageID, userID, func(m *entity.Message) {
		m.Text = text
		m.Edited = true
		m.EditedAt = uc.now()
	})
}

// Delete soft-deletes; the message stays in the log with Deleted set.
func (uc *MessageUseCase) Delete(ctx context.Context, groupID, messageID, userID string) error {
	_, err := uc.authored(ctx, groupID, messageID, userID, func(m *entity.Message) {
		m.Deleted = true
		m.DeletedAt = uc.now()
	})
	return err
}

func (uc *MessageUseCase) react(ctx context.Context, groupID, messageID, userID string, fn func(m *entity.Message)) (*entity.Message, error) {
	if allowed, _ := uc.rateLimiter.Allow(userID, ratelimit.ActionReact); !allowed {
		return nil, errors.TooManyRequests("Rate limit exceeded. Please slow down")
	}
	if _, err := uc.memberGroup(ctx, groupID, userID); err != nil {
		return nil, err
	}
	return uc.messageRepo.Mutate(ctx, entity.GroupLog(groupID), messageID, func(m *entity.Message) error {
		if m.Deleted {
			return errors.NotFound("Message", nil)
		}
		if m.Reactions == nil {
			m.Reactions = make(map[string]string)
		}
		fn(m)
		return nil
	})
}

// React sets the caller's single reaction, replacing any previous one.
func (uc *MessageUseCase) React(ctx context.Context, groupID, messageID, userID, emoji string) (*entity.Message, error) {
	emoji = strings.TrimSpace(emoji)
	if emoji == "" {
		return nil, errors.BadRequest("Emoji is required", nil)
	}
	return uc.react(ctx, groupID, messageID, userID, func(m *entity.Message) {
		m.Reactions[userID] = emoji
	})
}

func (uc *MessageUseCase) Unreact(ctx context.Context, groupID, messageID, userID string) (*entity.Message, error) {
	return uc.react(ctx, groupID, messageID, userID, func(m *entity.Message) {
		delete(m.Reactions, userID)
	})
}
