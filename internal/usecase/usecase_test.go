package usecase

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"soulcircle/internal/adapter/repository/memory"
	"soulcircle/internal/domain/entity"
	"soulcircle/internal/infrastructure/ratelimit"
)

var (
	alice = Actor{ID: "alice", Name: "Alice"}
	bob   = Actor{ID: "bob", Name: "Bob"}
	carol = Actor{ID: "carol", Name: "Carol"}
)

// unlimited never rate limits during tests.
func unlimited() *ratelimit.RateLimiter {
	p := ratelimit.Policy{Every: time.Nanosecond, Burst: 1 << 20}
	return ratelimit.NewRateLimiterWithPolicies(map[string]ratelimit.Policy{
		ratelimit.ActionSendMessage: p,
		ratelimit.ActionCreateGroup: p,
		ratelimit.ActionTyping:      p,
		ratelimit.ActionReact:       p,
	})
}

// tickingClock advances by a millisecond on every read so store timestamps
// are strictly ordered.
func tickingClock() func() time.Time {
	var mu sync.Mutex
	t := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		t = t.Add(time.Millisecond)
		return t
	}
}

type fixture struct {
	store    *memory.Store
	groups   *GroupUseCase
	messages *MessageUseCase
	dms      *DMUseCase
	users    *UserUseCase
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memory.NewStore(memory.WithClock(tickingClock()))
	limiter := unlimited()

	groupRepo := memory.NewGroupRepository(store)
	messageRepo := memory.NewMessageRepository(store)
	userRepo := memory.NewUserRepository(store)

	f := &fixture{
		store:    store,
		groups:   NewGroupUseCase(groupRepo, limiter),
		messages: NewMessageUseCase(messageRepo, groupRepo, limiter, 50),
		dms:      NewDMUseCase(memory.NewConversationRepository(store), messageRepo, userRepo, limiter, 50),
		users:    NewUserUseCase(userRepo, nil),
	}

	for _, a := range []Actor{alice, bob, carol} {
		_, err := f.users.EnsureProfile(context.Background(), a.ID, a.ID+"@example.com", a.Name)
		require.NoError(t, err)
	}
	return f
}

func (f *fixture) createGroup(t *testing.T, owner Actor, maxMembers int) *entity.Group {
	t.Helper()
	g, err := f.groups.Create(context.Background(), owner, CreateGroupInput{
		Kind:       entity.GroupKindCircle,
		Name:       "Test Circle",
		MaxMembers: maxMembers,
	})
	require.NoError(t, err)
	return g
}
