package repository

import (
	"context"
	"sync"
)

// Subscription is a live, non-restartable feed of snapshots. Each value on
// C() is a complete snapshot, not a delta. The feed ends when Close is
// called, when the parent context is cancelled, or when the backend fails;
// Err reports the failure after C() is closed.
type Subscription[T any] struct {
	ch     chan T
	cancel context.CancelFunc

	mu  sync.Mutex
	err error
}

// NewSubscription returns a subscription with a derived context that the
// producer must watch, and the send-side channel it must close when done.
func NewSubscription[T any](parent context.Context, buffer int) (*Subscription[T], context.Context) {
	ctx, cancel := context.WithCancel(parent)
	return &Subscription[T]{
		ch:     make(chan T, buffer),
		cancel: cancel,
	}, ctx
}

func (s *Subscription[T]) C() <-chan T {
	return s.ch
}

// Send delivers a snapshot unless ctx ends first.
func (s *Subscription[T]) Send(ctx context.Context, v T) bool {
	select {
	case s.ch <- v:
		return true
	case <-ctx.Done():
		return false
	}
}

// Finish closes the channel. Producers call it exactly once.
func (s *Subscription[T]) Finish(err error) {
	s.mu.Lock()
	if s.err == nil {
		s.err = err
	}
	s.mu.Unlock()
	s.cancel()
	close(s.ch)
}

// Close stops delivery. It is safe to call more than once.
func (s *Subscription[T]) Close() {
	s.cancel()
}

func (s *Subscription[T]) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// MapSubscription derives a subscription whose snapshots are fn(v) for each
// snapshot v of src. Closing the result closes src.
func MapSubscription[T, U any](src *Subscription[T], fn func(T) U) *Subscription[U] {
	out, ctx := NewSubscription[U](context.Background(), 1)

	go func() {
		defer src.Close()
		for {
			select {
			case v, ok := <-src.C():
				if !ok {
					out.Finish(src.Err())
					return
				}
				if !out.Send(ctx, fn(v)) {
					out.Finish(nil)
					return
				}
			case <-ctx.Done():
				out.Finish(nil)
				return
			}
		}
	}()

	return out
}
