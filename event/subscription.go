package event

import (
	"context"
	"fmt"
	"sync"

	"github.com/khaller93/es-middleware-sub003/status"
)

// Subscription is a registered handler. Call Unsubscribe to stop delivery.
type Subscription struct {
	bus     *Bus
	dao     status.DAO
	filter  Filter
	handler Handler

	mu      sync.Mutex
	queue   []status.TransitionEvent
	signal  chan struct{}
	stopped bool
	done    chan struct{}
	once    sync.Once
}

func newSubscription(b *Bus, dao status.DAO, filter Filter, h Handler) *Subscription {
	return &Subscription{
		bus:     b,
		dao:     dao,
		filter:  filter,
		handler: h,
		signal:  make(chan struct{}, 1),
		done:    make(chan struct{}),
	}
}

func (s *Subscription) matches(ev status.TransitionEvent) bool {
	return (s.dao == AnyDAO || s.dao == ev.DAO) && s.filter.Matches(ev)
}

func (s *Subscription) enqueue(ev status.TransitionEvent) {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	s.queue = append(s.queue, ev)
	select {
	case s.signal <- struct{}{}:
	default:
	}
	s.mu.Unlock()
}

// Pending returns the number of queued, undelivered events.
func (s *Subscription) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.queue)
}

// Unsubscribe stops delivery. Queued events are dropped; a handler that is
// running completes. Unsubscribe does not wait for it and may be called
// from within the handler.
func (s *Subscription) Unsubscribe() {
	s.bus.remove(s)
	s.stop()
}

// Done is closed when the delivery goroutine has exited.
func (s *Subscription) Done() <-chan struct{} {
	return s.done
}

func (s *Subscription) stop() {
	s.once.Do(func() {
		s.mu.Lock()
		s.stopped = true
		s.queue = nil
		close(s.signal)
		s.mu.Unlock()
	})
}

func (s *Subscription) run(ctx context.Context) {
	defer s.bus.wg.Done()
	defer close(s.done)

	for {
		s.mu.Lock()
		if s.stopped {
			s.mu.Unlock()
			return
		}
		if len(s.queue) == 0 {
			s.mu.Unlock()
			select {
			case _, ok := <-s.signal:
				if !ok {
					return
				}
			case <-ctx.Done():
				return
			}
			continue
		}
		ev := s.queue[0]
		s.queue[0] = status.TransitionEvent{}
		s.queue = s.queue[1:]
		s.mu.Unlock()

		s.deliver(ctx, ev)
	}
}

func (s *Subscription) deliver(ctx context.Context, ev status.TransitionEvent) {
	defer func() {
		if r := recover(); r != nil {
			s.bus.logger.Error("Subscriber panicked",
				"dao", ev.DAO, "status", ev.New, "correlation_id", ev.CorrelationID,
				"panic", fmt.Sprint(r))
		}
	}()
	s.handler(ctx, ev)
}
