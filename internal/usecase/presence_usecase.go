package usecase

import (
	"context"
	"sort"
	"time"

	"soulcircle/internal/domain/entity"
	"soulcircle/internal/domain/repository"
	"soulcircle/internal/infrastructure/ratelimit"
	"soulcircle/pkg/errors"
	"soulcircle/pkg/logger"
)

// DisconnectHooks runs a callback once the user's realtime connection is
// gone. Registering again replaces the previous callback.
type DisconnectHooks interface {
	OnDisconnect(userID string, fn func())
	CancelDisconnect(userID string)
}

type PresenceUseCase struct {
	presenceRepo repository.PresenceRepository
	hooks        DisconnectHooks
	now          func() time.Time
}

func NewPresenceUseCase(presenceRepo repository.PresenceRepository) *PresenceUseCase {
	return &PresenceUseCase{
		presenceRepo: presenceRepo,
		now:          time.Now,
	}
}

// SetDisconnectHooks wires the connection tracker. It is set after
// construction because the tracker itself depends on usecases.
func (uc *PresenceUseCase) SetDisconnectHooks(hooks DisconnectHooks) {
	uc.hooks = hooks
}

// SetOnline overwrites the record and arranges for it to flip offline when
// the user's connection drops. There is no heartbeat: a client that vanishes
// without closing its socket stays online.
func (uc *PresenceUseCase) SetOnline(ctx context.Context, userID string, meta entity.PresenceMeta, currentRoom string) error {
	p := &entity.Presence{
		UserID:      userID,
		Online:      true,
		LastSeen:    uc.now(),
		CurrentRoom: currentRoom,
		DisplayName: meta.DisplayName,
		PhotoURL:    meta.PhotoURL,
	}
	if err := uc.presenceRepo.Set(ctx, p); err != nil {
		return err
	}

	if uc.hooks != nil {
		uc.hooks.OnDisconnect(userID, func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := uc.markOffline(ctx, userID); err != nil {
				logger.Error("Failed to mark %s offline on disconnect: %v", userID, err)
			}
		})
	}
	return nil
}

func (uc *PresenceUseCase) markOffline(ctx context.Context, userID string) error {
	return uc.presenceRepo.Set(ctx, &entity.Presence{
		UserID:   userID,
		Online:   false,
		LastSeen: uc.now(),
	})
}

func (uc *PresenceUseCase) SetOffline(ctx context.Context, userID string) error {
	if uc.hooks != nil {
		uc.hooks.CancelDisconnect(userID)
	}
	return uc.markOffline(ctx, userID)
}

func (uc *PresenceUseCase) Get(ctx context.Context, userID string) (*entity.Presence, error) {
	return uc.presenceRepo.Get(ctx, userID)
}

func (uc *PresenceUseCase) Subscribe(ctx context.Context) (*repository.Subscription[map[string]*entity.Presence], error) {
	return uc.presenceRepo.Subscribe(ctx)
}

// SubscribeOnline streams the online users ordered by user id.
func (uc *PresenceUseCase) SubscribeOnline(ctx context.Context) (*repository.Subscription[[]*entity.Presence], error) {
	sub, err := uc.presenceRepo.Subscribe(ctx)
	if err != nil {
		return nil, err
	}
	return repository.MapSubscription(sub, sortedOnline), nil
}

// Online lists online users ordered by user id.
func (uc *PresenceUseCase) Online(ctx context.Context) ([]*entity.Presence, error) {
	all, err := uc.presenceRepo.All(ctx)
	if err != nil {
		return nil, err
	}
	return sortedOnline(all), nil
}

func sortedOnline(all map[string]*entity.Presence) []*entity.Presence {
	online := entity.OnlineUsers(all)
	sort.Slice(online, func(i, j int) bool { return online[i].UserID < online[j].UserID })
	return online
}

type TypingUseCase struct {
	typingRepo  repository.TypingRepository
	groupRepo   repository.GroupRepository
	rateLimiter *ratelimit.RateLimiter
	ttl         time.Duration
}

// NewTypingUseCase sets flags that expire ttl after they are first set.
func NewTypingUseCase(
	typingRepo repository.TypingRepository,
	groupRepo repository.GroupRepository,
	rateLimiter *ratelimit.RateLimiter,
	ttl time.Duration,
) *TypingUseCase {
	return &TypingUseCase{
		typingRepo:  typingRepo,
		groupRepo:   groupRepo,
		rateLimiter: rateLimiter,
		ttl:         ttl,
	}
}

func (uc *TypingUseCase) checkMember(ctx context.Context, groupID, userID string) error {
	group, err := uc.groupRepo.GetByID(ctx, groupID)
	if err != nil {
		return err
	}
	if group.IsDeleted {
		return errors.NotFound("Group", nil)
	}
	if !group.IsMember(userID) {
		return errors.NotMember(groupID)
	}
	return nil
}

// SetTyping raises or clears the flag. Raising an already raised flag keeps
// its original expiry.
func (uc *TypingUseCase) SetTyping(ctx context.Context, groupID, userID string, typing bool) error {
	if !typing {
		return uc.typingRepo.Stop(ctx, groupID, userID)
	}

	if allowed, _ := uc.rateLimiter.Allow(userID, ratelimit.ActionTyping); !allowed {
		return errors.TooManyRequests("Rate limit exceeded. Please slow down")
	}
	if err := uc.checkMember(ctx, groupID, userID); err != nil {
		return err
	}
	return uc.typingRepo.Start(ctx, groupID, userID, uc.ttl)
}

// Typing lists the users typing in the group other than self.
func (uc *TypingUseCase) Typing(ctx context.Context, groupID, self string) ([]string, error) {
	if err := uc.checkMember(ctx, groupID, self); err != nil {
		return nil, err
	}
	flags, err := uc.typingRepo.List(ctx, groupID)
	if err != nil {
		return nil, err
	}
	return sortedTyping(flags, self), nil
}

func sortedTyping(flags map[string]bool, self string) []string {
	users := entity.TypingUsers(flags, self)
	sort.Strings(users)
	return users
}

// Subscribe streams the typing users other than self.
func (uc *TypingUseCase) Subscribe(ctx context.Context, groupID, self string) (*repository.Subscription[[]string], error) {
	if err := uc.checkMember(ctx, groupID, self); err != nil {
		return nil, err
	}
	sub, err := uc.typingRepo.Subscribe(ctx, groupID)
	if err != nil {
		return nil, err
	}
	return repository.MapSubscription(sub, func(flags map[string]bool) []string {
		return sortedTyping(flags, self)
	}), nil
}
