package ratelimit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestAllowExhaustsBurst(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	rl := NewRateLimiterWithPolicies(map[string]Policy{
		ActionSendMessage: {Every: time.Second, Burst: 2},
	})
	rl.now = func() time.Time { return now }

	ok, _ := rl.Allow("u1", ActionSendMessage)
	assert.True(t, ok)
	ok, _ = rl.Allow("u1", ActionSendMessage)
	assert.True(t, ok)

	ok, wait := rl.Allow("u1", ActionSendMessage)
	assert.False(t, ok)
	assert.Equal(t, time.Second, wait)

	ok, _ = rl.Allow("u2", ActionSendMessage)
	assert.True(t, ok, "buckets are per user")

	now = now.Add(time.Second)
	ok, _ = rl.Allow("u1", ActionSendMessage)
	assert.True(t, ok)
}

func TestUnknownActionUsesDefaultPolicy(t *testing.T) {
	rl := NewRateLimiter()
	for i := 0; i < defaultPolicy.Burst; i++ {
		ok, _ := rl.Allow("u1", "something")
		assert.True(t, ok)
	}
	ok, _ := rl.Allow("u1", "something")
	assert.False(t, ok)
}

func TestCleanupDropsIdleBuckets(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	rl := NewRateLimiter()
	rl.now = func() time.Time { return now }

	rl.Allow("u1", ActionTyping)
	now = now.Add(2 * time.Hour)
	rl.Allow("u2", ActionTyping)
	rl.Cleanup(time.Hour)

	assert.Len(t, rl.buckets, 1)
	assert.Contains(t, rl.buckets, "u2:"+ActionTyping)
}
