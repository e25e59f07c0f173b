// Package feed delivers row-level course changes from the database to the
// in-memory store.
package feed

import (
	"context"
	"sync"

	"github.com/stemsi/coursehub-backend/internal/model"
)

// Source opens change-feed subscriptions.
type Source interface {
	Subscribe(ctx context.Context) (*Subscription, error)
}

// Emit hands one event to the subscriber. It returns false once the
// subscription has been released and the producer should stop.
type Emit func(model.ChangeEvent) bool

// Subscription is a live stream of change events. Events arrive in the order
// the producer emitted them. The channel is closed after Unsubscribe or when
// the producer gives up.
type Subscription struct {
	events chan model.ChangeEvent
	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
}

// NewSubscription starts produce in its own goroutine and returns the
// subscription it feeds. produce must return when ctx is done.
func NewSubscription(ctx context.Context, buffer int, produce func(ctx context.Context, emit Emit)) *Subscription {
	ctx, cancel := context.WithCancel(ctx)
	s := &Subscription{
		events: make(chan model.ChangeEvent, buffer),
		cancel: cancel,
		done:   make(chan struct{}),
	}

	emit := func(ev model.ChangeEvent) bool {
		select {
		case s.events <- ev:
			return true
		case <-ctx.Done():
			return false
		}
	}

	go func() {
		defer close(s.done)
		defer close(s.events)
		produce(ctx, emit)
	}()

	return s
}

// Events returns the event channel.
func (s *Subscription) Events() <-chan model.ChangeEvent {
	return s.events
}

// Unsubscribe stops delivery and waits for the producer to release its
// resources. It is safe to call more than once.
func (s *Subscription) Unsubscribe() {
	s.once.Do(s.cancel)
	<-s.done
}

// Done is closed once the producer has exited.
func (s *Subscription) Done() <-chan struct{} {
	return s.done
}
