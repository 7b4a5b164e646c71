// Package memory holds in-process implementations of the domain
// repositories. They back local development (STORE_BACKEND=memory) and the
// usecase tests, and mirror the Firestore adapters' semantics: store-assigned
// non-decreasing timestamps, atomic group mutations and snapshot delivery on
// every change.
package memory

import (
	"context"
	"sync"
	"time"

	"soulcircle/internal/domain/entity"
	"soulcircle/internal/domain/repository"
)

type Option func(*Store)

// WithClock replaces the store's clock.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.clock = now
	}
}

type Store struct {
	mu    sync.Mutex
	clock func() time.Time
	last  time.Time
	hub   *hub

	groups     map[string]*entity.Group
	groupOrder []string
	members    map[string]map[string]*entity.GroupMember
	logs       map[string][]*entity.Message
	convs      map[string]*entity.Conversation
	users      map[string]*entity.User
	notes      map[string][]*entity.FeelNote
	moods      map[string][]*entity.MoodEntry
	presence   map[string]*entity.Presence
	typing     map[string]map[string]time.Time
}

func NewStore(opts ...Option) *Store {
	s := &Store{
		clock:    time.Now,
		hub:      newHub(),
		groups:   make(map[string]*entity.Group),
		members:  make(map[string]map[string]*entity.GroupMember),
		logs:     make(map[string][]*entity.Message),
		convs:    make(map[string]*entity.Conversation),
		users:    make(map[string]*entity.User),
		notes:    make(map[string][]*entity.FeelNote),
		moods:    make(map[string][]*entity.MoodEntry),
		presence: make(map[string]*entity.Presence),
		typing:   make(map[string]map[string]time.Time),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// now is the store clock. Callers hold s.mu. It never goes backwards.
func (s *Store) now() time.Time {
	t := s.clock()
	if t.Before(s.last) {
		t = s.last
	}
	s.last = t
	return t
}

// hub fans change signals out to watchers of a topic.
type hub struct {
	mu   sync.Mutex
	next int
	subs map[string]map[int]chan struct{}
}

func newHub() *hub {
	return &hub{subs: make(map[string]map[int]chan struct{})}
}

func (h *hub) watch(topic string) (<-chan struct{}, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()

	id := h.next
	h.next++
	ch := make(chan struct{}, 1)
	if h.subs[topic] == nil {
		h.subs[topic] = make(map[int]chan struct{})
	}
	h.subs[topic][id] = ch

	return ch, func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		delete(h.subs[topic], id)
		if len(h.subs[topic]) == 0 {
			delete(h.subs, topic)
		}
	}
}

func (h *hub) notify(topics ...string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, topic := range topics {
		for _, ch := range h.subs[topic] {
			select {
			case ch <- struct{}{}:
			default:
			}
		}
	}
}

// stream delivers snapshot() once immediately and again after every change
// signalled on topic, until the subscription ends.
func stream[T any](parent context.Context, h *hub, topic string, snapshot func() (T, error)) *repository.Subscription[T] {
	sub, ctx := repository.NewSubscription[T](parent, 1)
	signal, stop := h.watch(topic)

	go func() {
		defer stop()
		for {
			v, err := snapshot()
			if err != nil {
				sub.Finish(err)
				return
			}
			if !sub.Send(ctx, v) {
				sub.Finish(nil)
				return
			}
			select {
			case <-signal:
			case <-ctx.Done():
				sub.Finish(nil)
				return
			}
		}
	}()

	return sub
}

const (
	topicGroups   = "groups"
	topicPresence = "presence"
)

func topicLog(ref entity.LogRef) string { return "log:" + ref.String() }

func topicConvs(userID string) string { return "convs:" + userID }

func topicTyping(groupID string) string { return "typing:" + groupID }
