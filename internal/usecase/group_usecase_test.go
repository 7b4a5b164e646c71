package usecase

import (
	"context"
	"fmt"
	"regexp"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"soulcircle/internal/domain/entity"
	"soulcircle/pkg/errors"
)

func TestCreateGroupMakesCreatorOwner(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	g := f.createGroup(t, alice, 0)

	assert.NotEmpty(t, g.ID)
	assert.Regexp(t, regexp.MustCompile(`^[0-9A-Z]{8}$`), g.InviteCode)
	assert.Equal(t, []string{"alice"}, g.Members)
	assert.Equal(t, 1, g.MemberCount)
	assert.Equal(t, entity.RoleOwner, g.RoleOf("alice"))
	assert.True(t, g.IsUserCreated)

	members, err := f.groups.Members(ctx, g.ID, "alice")
	require.NoError(t, err)
	require.Len(t, members, 1)
	assert.True(t, members[0].IsCreator)
}

func TestCreateRetriesInviteCodeCollision(t *testing.T) {
	f := newFixture(t)
	existing := f.createGroup(t, alice, 0)

	codes := []string{existing.InviteCode, "ZZZZ9999"}
	f.groups.newCode = func() (string, error) {
		c := codes[0]
		codes = codes[1:]
		return c, nil
	}

	g := f.createGroup(t, bob, 0)
	assert.Equal(t, "ZZZZ9999", g.InviteCode)
}

func TestCapacityScenario(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// seeded circle with no members and maxMembers=2
	g := &entity.Group{Kind: entity.GroupKindCircle, Name: "Two Seats", MaxMembers: 2, InviteCode: "TWOSEATS"}
	require.NoError(t, f.groups.groupRepo.Create(ctx, g, nil))

	joined, err := f.groups.Join(ctx, g.ID, alice)
	require.NoError(t, err)
	assert.Equal(t, 1, joined.MemberCount)

	joined, err = f.groups.Join(ctx, g.ID, bob)
	require.NoError(t, err)
	assert.Equal(t, 2, joined.MemberCount)

	_, err = f.groups.Join(ctx, g.ID, carol)
	assert.True(t, errors.Is(err, errors.CodeCapacityExceeded))

	stored, err := f.groups.Get(ctx, g.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, stored.MemberCount)
	assert.ElementsMatch(t, []string{"alice", "bob"}, stored.Members)
}

func TestJoinTwiceFailsWithoutDoubleCounting(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	g := f.createGroup(t, alice, 0)

	_, err := f.groups.Join(ctx, g.ID, bob)
	require.NoError(t, err)
	_, err = f.groups.Join(ctx, g.ID, bob)
	assert.True(t, errors.Is(err, errors.CodeAlreadyMember))

	stored, err := f.groups.Get(ctx, g.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, stored.MemberCount)
}

func TestMemberCountMatchesMembersAfterJoinLeave(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	g := f.createGroup(t, alice, 0)

	steps := []struct {
		join  bool
		actor Actor
	}{
		{true, bob}, {true, carol}, {false, bob}, {false, alice}, {true, bob}, {false, carol},
	}
	for _, s := range steps {
		var err error
		if s.join {
			_, err = f.groups.Join(ctx, g.ID, s.actor)
		} else {
			err = f.groups.Leave(ctx, g.ID, s.actor)
		}
		require.NoError(t, err)

		stored, err := f.groups.Get(ctx, g.ID)
		require.NoError(t, err)
		assert.Equal(t, len(stored.Members), stored.MemberCount)
	}

	err := f.groups.Leave(ctx, g.ID, carol)
	assert.True(t, errors.Is(err, errors.CodeNotMember))
}

func TestConcurrentJoinsOnLastSlotAdmitOne(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	g := f.createGroup(t, alice, 2)

	var wg sync.WaitGroup
	results := make([]error, 10)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, results[i] = f.groups.Join(ctx, g.ID, Actor{ID: fmt.Sprintf("user-%d", i)})
		}(i)
	}
	wg.Wait()

	ok := 0
	for _, err := range results {
		if err == nil {
			ok++
		} else {
			assert.True(t, errors.Is(err, errors.CodeCapacityExceeded))
		}
	}
	assert.Equal(t, 1, ok)

	stored, err := f.groups.Get(ctx, g.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, stored.MemberCount)
}

func TestDeleteRequiresCreator(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	g := f.createGroup(t, alice, 0)

	err := f.groups.Delete(ctx, g.ID, "bob")
	assert.True(t, errors.Is(err, errors.CodeNotAuthorized))

	stored, err := f.groups.Get(ctx, g.ID)
	require.NoError(t, err)
	assert.False(t, stored.IsDeleted)

	require.NoError(t, f.groups.Delete(ctx, g.ID, "alice"))
	_, err = f.groups.Get(ctx, g.ID)
	assert.True(t, errors.Is(err, errors.CodeNotFound))

	_, err = f.groups.Join(ctx, g.ID, bob)
	assert.True(t, errors.Is(err, errors.CodeNotFound))

	list, err := f.groups.List(ctx, entity.GroupFilter{})
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestJoinByInviteCode(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	g := f.createGroup(t, alice, 0)

	joined, err := f.groups.JoinByInviteCode(ctx, " "+g.InviteCode+" ", bob)
	require.NoError(t, err)
	assert.True(t, joined.IsMember("bob"))

	_, err = f.groups.JoinByInviteCode(ctx, g.InviteCode, bob)
	assert.True(t, errors.Is(err, errors.CodeAlreadyMember))

	_, err = f.groups.JoinByInviteCode(ctx, "NOPE0000", carol)
	assert.True(t, errors.Is(err, errors.CodeInvalidInviteCode))
}

func TestModerationRules(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	g := f.createGroup(t, alice, 0)
	dave := Actor{ID: "dave", Name: "Dave"}

	// members cannot invite
	_, err := f.groups.Join(ctx, g.ID, bob)
	require.NoError(t, err)
	_, err = f.groups.Invite(ctx, g.ID, bob, "carol", "Carol")
	assert.True(t, errors.Is(err, errors.CodeNotAuthorized))

	// only the owner changes roles, and never to owner
	_, err = f.groups.ChangeRole(ctx, g.ID, bob, "bob", entity.RoleMod)
	assert.True(t, errors.Is(err, errors.CodeNotAuthorized))
	_, err = f.groups.ChangeRole(ctx, g.ID, alice, "bob", entity.RoleOwner)
	assert.True(t, errors.Is(err, errors.CodeBadRequest))
	updated, err := f.groups.ChangeRole(ctx, g.ID, alice, "bob", entity.RoleMod)
	require.NoError(t, err)
	assert.Equal(t, entity.RoleMod, updated.RoleOf("bob"))

	// mods invite
	updated, err = f.groups.Invite(ctx, g.ID, bob, "carol", "Carol")
	require.NoError(t, err)
	assert.True(t, updated.IsMember("carol"))
	_, err = f.groups.Invite(ctx, g.ID, bob, "dave", "Dave")
	require.NoError(t, err)

	// owner cannot be removed or banned
	_, err = f.groups.Remove(ctx, g.ID, bob, "alice")
	assert.True(t, errors.Is(err, errors.CodeNotAuthorized))
	_, err = f.groups.Ban(ctx, g.ID, bob, "alice")
	assert.True(t, errors.Is(err, errors.CodeNotAuthorized))

	// mods cannot act on mods
	_, err = f.groups.ChangeRole(ctx, g.ID, alice, "carol", entity.RoleMod)
	require.NoError(t, err)
	_, err = f.groups.Remove(ctx, g.ID, bob, "carol")
	assert.True(t, errors.Is(err, errors.CodeNotAuthorized))

	// remove then ban blocks rejoining
	updated, err = f.groups.Remove(ctx, g.ID, bob, "dave")
	require.NoError(t, err)
	assert.False(t, updated.IsMember("dave"))
	assert.Equal(t, len(updated.Members), updated.MemberCount)

	updated, err = f.groups.Ban(ctx, g.ID, alice, "dave")
	require.NoError(t, err)
	assert.True(t, updated.IsBanned("dave"))

	_, err = f.groups.Join(ctx, g.ID, dave)
	assert.True(t, errors.Is(err, errors.CodeBanned))
	_, err = f.groups.JoinByInviteCode(ctx, g.InviteCode, dave)
	assert.True(t, errors.Is(err, errors.CodeBanned))

	// banning a member removes them
	updated, err = f.groups.Ban(ctx, g.ID, alice, "carol")
	require.NoError(t, err)
	assert.False(t, updated.IsMember("carol"))
	assert.Equal(t, len(updated.Members), updated.MemberCount)
}

func TestUpdateGroup(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	g := f.createGroup(t, alice, 0)
	_, err := f.groups.Join(ctx, g.ID, bob)
	require.NoError(t, err)

	name := "Renamed"
	_, err = f.groups.Update(ctx, g.ID, bob, UpdateGroupInput{Name: &name})
	assert.True(t, errors.Is(err, errors.CodeNotAuthorized))

	one := 1
	_, err = f.groups.Update(ctx, g.ID, alice, UpdateGroupInput{MaxMembers: &one})
	assert.True(t, errors.Is(err, errors.CodeBadRequest))

	updated, err := f.groups.Update(ctx, g.ID, alice, UpdateGroupInput{Name: &name})
	require.NoError(t, err)
	assert.Equal(t, "Renamed", updated.Name)
}

func TestListFiltersByMemberAndSearch(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	a, err := f.groups.Create(ctx, alice, CreateGroupInput{Kind: entity.GroupKindRoom, Name: "Late Night Talks", Tags: []string{"Insomnia"}})
	require.NoError(t, err)
	_, err = f.groups.Create(ctx, bob, CreateGroupInput{Kind: entity.GroupKindCircle, Name: "Morning Walks"})
	require.NoError(t, err)

	mine, err := f.groups.List(ctx, entity.GroupFilter{MemberID: "alice"})
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, a.ID, mine[0].ID)

	found, err := f.groups.List(ctx, entity.GroupFilter{Search: "insomnia"})
	require.NoError(t, err)
	require.Len(t, found, 1)

	circles, err := f.groups.List(ctx, entity.GroupFilter{Kind: entity.GroupKindCircle})
	require.NoError(t, err)
	require.Len(t, circles, 1)
	assert.Equal(t, "Morning Walks", circles[0].Name)
}

func TestSeedDefaultCirclesOnlyWhenEmpty(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	seeded, err := f.groups.SeedDefaultCircles(ctx)
	require.NoError(t, err)
	assert.True(t, seeded)

	circles, err := f.groups.List(ctx, entity.GroupFilter{Kind: entity.GroupKindCircle})
	require.NoError(t, err)
	assert.Len(t, circles, 6)
	for _, c := range circles {
		assert.Zero(t, c.MemberCount)
		assert.False(t, c.IsUserCreated)
		assert.NotEmpty(t, c.InviteCode)
	}

	seeded, err = f.groups.SeedDefaultCircles(ctx)
	require.NoError(t, err)
	assert.False(t, seeded)
}

func TestMembersRequiresMembership(t *testing.T) {
	f := newFixture(t)
	g := f.createGroup(t, alice, 0)

	_, err := f.groups.Members(context.Background(), g.ID, "bob")
	assert.True(t, errors.Is(err, errors.CodeNotMember))
}
