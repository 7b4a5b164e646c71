package ratelimit

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const (
	ActionSendMessage = "send_message"
	ActionCreateGroup = "create_group"
	ActionTyping      = "typing"
	ActionReact       = "react"
)

// Policy is a token bucket: Burst tokens, refilled one per Every.
type Policy struct {
	Every time.Duration
	Burst int
}

var DefaultPolicies = map[string]Policy{
	// 10 messages per minute
	ActionSendMessage: {Every: 6 * time.Second, Burst: 10},
	// 5 group creations per hour
	ActionCreateGroup: {Every: 12 * time.Minute, Burst: 5},
	// 30 typing events per minute
	ActionTyping: {Every: 2 * time.Second, Burst: 30},
}

var defaultPolicy = Policy{Every: 3 * time.Second, Burst: 20}

type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter keeps one bucket per user and action.
type RateLimiter struct {
	policies map[string]Policy
	buckets  map[string]*bucket
	mutex    sync.Mutex
	now      func() time.Time
}

func NewRateLimiter() *RateLimiter {
	return NewRateLimiterWithPolicies(DefaultPolicies)
}

func NewRateLimiterWithPolicies(policies map[string]Policy) *RateLimiter {
	return &RateLimiter{
		policies: policies,
		buckets:  make(map[string]*bucket),
		now:      time.Now,
	}
}

func (rl *RateLimiter) policy(action string) Policy {
	if p, ok := rl.policies[action]; ok {
		return p
	}
	return defaultPolicy
}

// Allow consumes a token for the user action. When none is available it
// reports how long until one will be.
func (rl *RateLimiter) Allow(userID, action string) (bool, time.Duration) {
	key := userID + ":" + action
	now := rl.now()

	rl.mutex.Lock()
	b, exists := rl.buckets[key]
	if !exists {
		p := rl.policy(action)
		b = &bucket{limiter: rate.NewLimiter(rate.Every(p.Every), p.Burst)}
		rl.buckets[key] = b
	}
	b.lastSeen = now
	rl.mutex.Unlock()

	r := b.limiter.ReserveN(now, 1)
	if !r.OK() {
		return false, 0
	}
	if delay := r.DelayFrom(now); delay > 0 {
		r.CancelAt(now)
		return false, delay
	}
	return true, 0
}

// Cleanup removes buckets idle for longer than maxIdle.
func (rl *RateLimiter) Cleanup(maxIdle time.Duration) {
	rl.mutex.Lock()
	defer rl.mutex.Unlock()

	now := rl.now()
	for key, b := range rl.buckets {
		if now.Sub(b.lastSeen) > maxIdle {
			delete(rl.buckets, key)
		}
	}
}

// StartCleanupRoutine prunes idle buckets every 30 minutes until stop closes.
func (rl *RateLimiter) StartCleanupRoutine(stop <-chan struct{}) {
	go func() {
		ticker := time.NewTicker(30 * time.Minute)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				rl.Cleanup(time.Hour)
			case <-stop:
				return
			}
		}
	}()
}
