package memory

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"soulcircle/internal/domain/entity"
	"soulcircle/pkg/errors"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = t
}

func TestStoreClockNeverGoesBackwards(t *testing.T) {
	base := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	clock := &fakeClock{t: base}
	s := NewStore(WithClock(clock.Now))
	repo := NewMessageRepository(s)
	ctx := context.Background()
	log := entity.GroupLog("g1")

	first, err := repo.Append(ctx, log, &entity.Message{SenderID: "u1", Text: "one"})
	require.NoError(t, err)

	clock.Set(base.Add(-time.Minute))
	second, err := repo.Append(ctx, log, &entity.Message{SenderID: "u1", Text: "two"})
	require.NoError(t, err)

	assert.False(t, second.Timestamp.Before(first.Timestamp))
}

func TestMessageWindowIsLatestAscending(t *testing.T) {
	s := NewStore()
	repo := NewMessageRepository(s)
	ctx := context.Background()
	log := entity.GroupLog("g1")

	for _, text := range []string{"a", "b", "c", "d"} {
		_, err := repo.Append(ctx, log, &entity.Message{SenderID: "u1", Text: text})
		require.NoError(t, err)
	}

	window, err := repo.Window(ctx, log, 2)
	require.NoError(t, err)
	require.Len(t, window, 2)
	assert.Equal(t, "c", window[0].Text)
	assert.Equal(t, "d", window[1].Text)
	assert.NotNil(t, window[0].Reactions)

	other, err := repo.Window(ctx, entity.DMLog("g1"), 10)
	require.NoError(t, err)
	assert.Empty(t, other)
}

func TestMessageMutateKeepsIdentity(t *testing.T) {
	s := NewStore()
	repo := NewMessageRepository(s)
	ctx := context.Background()
	log := entity.DMLog("a_b")

	msg, err := repo.Append(ctx, log, &entity.Message{SenderID: "a", Text: "hi"})
	require.NoError(t, err)

	updated, err := repo.Mutate(ctx, log, msg.ID, func(m *entity.Message) error {
		m.Text = "hello"
		m.Timestamp = time.Time{}
		m.Reactions["b"] = "❤️"
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, "hello", updated.Text)
	assert.True(t, msg.Timestamp.Equal(updated.Timestamp))

	stored, err := repo.GetByID(ctx, log, msg.ID)
	require.NoError(t, err)
	assert.Equal(t, "❤️", stored.Reactions["b"])

	_, err = repo.Mutate(ctx, log, "missing", func(m *entity.Message) error { return nil })
	assert.True(t, errors.Is(err, errors.CodeNotFound))
}

func TestGroupMutateSerializesConcurrentWriters(t *testing.T) {
	s := NewStore()
	repo := NewGroupRepository(s)
	ctx := context.Background()

	group := &entity.Group{Kind: entity.GroupKindRoom, Name: "Room", Members: []string{"owner"}, MemberCount: 1, MaxMembers: 2}
	require.NoError(t, repo.Create(ctx, group, &entity.GroupMember{UserID: "owner", Role: entity.RoleOwner, IsActive: true}))

	var wg sync.WaitGroup
	var mu sync.Mutex
	admitted := 0
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(uid string) {
			defer wg.Done()
			_, err := repo.Mutate(ctx, group.ID, func(g *entity.Group) (*entity.GroupMember, error) {
				if g.IsFull() {
					return nil, errors.CapacityExceeded(g.ID)
				}
				g.AddMember(uid, entity.RoleMember)
				return &entity.GroupMember{UserID: uid, Role: entity.RoleMember, IsActive: true}, nil
			})
			if err == nil {
				mu.Lock()
				admitted++
				mu.Unlock()
			}
		}(string(rune('a' + i)))
	}
	wg.Wait()

	assert.Equal(t, 1, admitted)
	stored, err := repo.GetByID(ctx, group.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, stored.MemberCount)
	assert.Len(t, stored.Members, 2)

	members, err := repo.ListMembers(ctx, group.ID)
	require.NoError(t, err)
	assert.Len(t, members, 2)
}

func TestGroupListFiltersAndOrders(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	clock := &fakeClock{t: base}
	s := NewStore(WithClock(clock.Now))
	repo := NewGroupRepository(s)
	ctx := context.Background()

	empty, err := repo.IsEmpty(ctx)
	require.NoError(t, err)
	assert.True(t, empty)

	names := []string{"Anxiety Circle", "Grief Room", "Daily Check-in"}
	kinds := []string{entity.GroupKindCircle, entity.GroupKindRoom, entity.GroupKindRoom}
	for i, name := range names {
		clock.Set(base.Add(time.Duration(i) * time.Hour))
		require.NoError(t, repo.Create(ctx, &entity.Group{Kind: kinds[i], Name: name, Members: []string{"u1"}}, nil))
	}

	rooms, err := repo.List(ctx, entity.GroupFilter{Kind: entity.GroupKindRoom})
	require.NoError(t, err)
	require.Len(t, rooms, 2)
	assert.Equal(t, "Daily Check-in", rooms[0].Name)

	found, err := repo.List(ctx, entity.GroupFilter{Search: "grief"})
	require.NoError(t, err)
	require.Len(t, found, 1)

	_, err = repo.Mutate(ctx, found[0].ID, func(g *entity.Group) (*entity.GroupMember, error) {
		g.IsDeleted = true
		return nil, nil
	})
	require.NoError(t, err)

	all, err := repo.List(ctx, entity.GroupFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestGroupSubscribeSeesChanges(t *testing.T) {
	s := NewStore()
	repo := NewGroupRepository(s)
	ctx := context.Background()

	sub, err := repo.Subscribe(ctx, entity.GroupFilter{})
	require.NoError(t, err)
	defer sub.Close()

	assert.Empty(t, <-sub.C())

	require.NoError(t, repo.Create(ctx, &entity.Group{Kind: entity.GroupKindRoom, Name: "New"}, nil))

	select {
	case groups := <-sub.C():
		require.Len(t, groups, 1)
		assert.Equal(t, "New", groups[0].Name)
	case <-time.After(time.Second):
		t.Fatal("no snapshot after create")
	}

	sub.Close()
	for range sub.C() {
	}
	assert.NoError(t, sub.Err())
}

func TestConversationUnreadCounters(t *testing.T) {
	s := NewStore()
	repo := NewConversationRepository(s)
	ctx := context.Background()

	id := entity.ConversationID("bob", "alice")
	conv, err := repo.GetOrCreate(ctx, &entity.Conversation{ID: id, Participants: []string{"alice", "bob"}})
	require.NoError(t, err)
	assert.Equal(t, "alice_bob", conv.ID)

	again, err := repo.GetOrCreate(ctx, &entity.Conversation{ID: id, Participants: []string{"alice", "bob"}})
	require.NoError(t, err)
	assert.True(t, conv.CreatedAt.Equal(again.CreatedAt))

	for i := 0; i < 3; i++ {
		require.NoError(t, repo.RecordMessage(ctx, id, &entity.LastMessage{Text: "hi", SenderID: "alice"}, "bob"))
	}
	conv, err = repo.GetByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 3, conv.UnreadCount["bob"])
	assert.Equal(t, 0, conv.UnreadCount["alice"])

	require.NoError(t, repo.ResetUnread(ctx, id, "bob"))
	list, err := repo.ListByUser(ctx, "bob")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, 0, list[0].UnreadCount["bob"])

	none, err := repo.ListByUser(ctx, "carol")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestTypingExpiresWithoutExtension(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	clock := &fakeClock{t: base}
	s := NewStore(WithClock(clock.Now))
	repo := NewTypingRepository(s)
	ctx := context.Background()

	require.NoError(t, repo.Start(ctx, "g1", "u1", 3*time.Second))
	clock.Set(base.Add(2 * time.Second))
	require.NoError(t, repo.Start(ctx, "g1", "u1", 3*time.Second))

	typing, err := repo.List(ctx, "g1")
	require.NoError(t, err)
	assert.True(t, typing["u1"])

	clock.Set(base.Add(3 * time.Second))
	typing, err = repo.List(ctx, "g1")
	require.NoError(t, err)
	assert.Empty(t, typing)
}
