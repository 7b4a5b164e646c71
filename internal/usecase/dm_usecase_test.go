package usecase

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"soulcircle/pkg/errors"
)

func TestConversationIDIsSymmetric(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	ab, err := f.dms.GetOrCreate(ctx, "alice", "bob")
	require.NoError(t, err)
	ba, err := f.dms.GetOrCreate(ctx, "bob", "alice")
	require.NoError(t, err)

	assert.Equal(t, "alice_bob", ab.ID)
	assert.Equal(t, ab.ID, ba.ID)
	assert.Equal(t, []string{"alice", "bob"}, ba.Participants)
}

func TestGetOrCreateRejectsBadPairs(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.dms.GetOrCreate(ctx, "alice", "alice")
	assert.True(t, errors.Is(err, errors.CodeBadRequest))

	_, err = f.dms.GetOrCreate(ctx, "alice", "nobody")
	assert.True(t, errors.Is(err, errors.CodeNotFound))
}

func TestGetOrCreateKeepsPairsWithSeparatorApart(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for _, uid := range []string{"a_b", "c", "a", "b_c"} {
		_, err := f.users.EnsureProfile(ctx, uid, "", "")
		require.NoError(t, err)
	}

	first, err := f.dms.GetOrCreate(ctx, "a_b", "c")
	require.NoError(t, err)
	assert.Equal(t, "a_b_c", first.ID)
	_, err = f.dms.Send(ctx, first.ID, Actor{ID: "a_b", Name: "AB"}, "secret")
	require.NoError(t, err)

	second, err := f.dms.GetOrCreate(ctx, "a", "b_c")
	assert.Nil(t, second)
	assert.True(t, errors.Is(err, errors.CodeConflict))

	_, err = f.dms.Messages(ctx, first.ID, "a", 0)
	assert.True(t, errors.Is(err, errors.CodeForbidden))

	again, err := f.dms.GetOrCreate(ctx, "c", "a_b")
	require.NoError(t, err)
	assert.Equal(t, []string{"a_b", "c"}, again.Participants)
}

func TestDMSendCountsUnreadForRecipient(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	conv, err := f.dms.GetOrCreate(ctx, "alice", "bob")
	require.NoError(t, err)

	for _, text := range []string{"one", "two", "three"} {
		_, err := f.dms.Send(ctx, conv.ID, alice, text)
		require.NoError(t, err)
	}

	msgs, err := f.dms.Messages(ctx, conv.ID, "bob", 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"one", "two", "three"}, texts(msgs))

	convs, err := f.dms.List(ctx, "bob")
	require.NoError(t, err)
	require.Len(t, convs, 1)
	assert.Equal(t, 3, convs[0].UnreadCount["bob"])
	assert.Equal(t, 0, convs[0].UnreadCount["alice"])
	require.NotNil(t, convs[0].LastMessage)
	assert.Equal(t, "three", convs[0].LastMessage.Text)
}

func TestMarkReadOnlyResetsActor(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	conv, err := f.dms.GetOrCreate(ctx, "alice", "bob")
	require.NoError(t, err)

	_, err = f.dms.Send(ctx, conv.ID, alice, "ping")
	require.NoError(t, err)
	_, err = f.dms.Send(ctx, conv.ID, bob, "pong")
	require.NoError(t, err)

	require.NoError(t, f.dms.MarkRead(ctx, conv.ID, "bob"))

	convs, err := f.dms.List(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, convs, 1)
	assert.Equal(t, 0, convs[0].UnreadCount["bob"])
	assert.Equal(t, 1, convs[0].UnreadCount["alice"])
}

func TestNonParticipantIsForbidden(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	conv, err := f.dms.GetOrCreate(ctx, "alice", "bob")
	require.NoError(t, err)

	_, err = f.dms.Send(ctx, conv.ID, carol, "intruding")
	assert.True(t, errors.Is(err, errors.CodeForbidden))
	_, err = f.dms.Messages(ctx, conv.ID, "carol", 0)
	assert.True(t, errors.Is(err, errors.CodeForbidden))
	err = f.dms.MarkRead(ctx, conv.ID, "carol")
	assert.True(t, errors.Is(err, errors.CodeForbidden))
}

func TestListOrdersByLastActivity(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	ab, err := f.dms.GetOrCreate(ctx, "alice", "bob")
	require.NoError(t, err)
	ac, err := f.dms.GetOrCreate(ctx, "alice", "carol")
	require.NoError(t, err)

	_, err = f.dms.Send(ctx, ab.ID, alice, "first")
	require.NoError(t, err)
	_, err = f.dms.Send(ctx, ac.ID, alice, "second")
	require.NoError(t, err)

	convs, err := f.dms.List(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, convs, 2)
	assert.Equal(t, ac.ID, convs[0].ID)
	assert.Equal(t, ab.ID, convs[1].ID)
}
