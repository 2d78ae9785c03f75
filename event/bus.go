package event

import (
	"context"
	"log/slog"
	"sync"

	"github.com/khaller93/es-middleware-sub003/errors"
	"github.com/khaller93/es-middleware-sub003/status"
)

// AnyDAO subscribes to the events of every DAO.
const AnyDAO status.DAO = ""

// Handler processes one delivered event.
type Handler func(ctx context.Context, ev status.TransitionEvent)

// Filter selects events by their new status. A nil Filter matches every
// event.
type Filter map[status.DAOStatus]struct{}

// Statuses returns a Filter matching the given new statuses.
func Statuses(statuses ...status.DAOStatus) Filter {
	f := make(Filter, len(statuses))
	for _, s := range statuses {
		f[s] = struct{}{}
	}
	return f
}

// Matches reports whether ev passes the filter.
func (f Filter) Matches(ev status.TransitionEvent) bool {
	if f == nil {
		return true
	}
	_, ok := f[ev.New]
	return ok
}

// Bus fans transition events out to subscribers. Publish never waits for
// subscriber work: each subscription owns an unbounded FIFO queue drained by
// its own goroutine, so one subscription sees events in publication order
// and a slow subscriber delays nobody else.
type Bus struct {
	mu      sync.Mutex
	subs    map[*Subscription]struct{}
	history map[status.DAO][]status.TransitionEvent
	keep    int
	closed  bool

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	logger *slog.Logger
}

// BusOption configures a Bus.
type BusOption func(*Bus)

// WithHistory sets how many recent events per DAO the bus retains for
// WaitFor. Zero disables the history.
func WithHistory(n int) BusOption {
	return func(b *Bus) {
		if n >= 0 {
			b.keep = n
		}
	}
}

// WithBusLogger sets the bus logger.
func WithBusLogger(l *slog.Logger) BusOption {
	return func(b *Bus) { b.logger = l }
}

// NewBus returns a running bus.
func NewBus(opts ...BusOption) *Bus {
	ctx, cancel := context.WithCancel(context.Background())
	b := &Bus{
		subs:    make(map[*Subscription]struct{}),
		history: make(map[status.DAO][]status.TransitionEvent),
		keep:    256,
		ctx:     ctx,
		cancel:  cancel,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(b)
	}
	b.logger = b.logger.With("component", "event_bus")
	return b
}

// Publish enqueues ev for every matching subscription and returns
// immediately. It implements status.Publisher.
func (b *Bus) Publish(ev status.TransitionEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	if b.keep > 0 {
		h := append(b.history[ev.DAO], ev)
		if len(h) > b.keep {
			h = h[len(h)-b.keep:]
		}
		b.history[ev.DAO] = h
	}
	for sub := range b.subs {
		if sub.matches(ev) {
			sub.enqueue(ev)
		}
	}
}

// Subscribe registers handler for events of dao whose new status passes
// filter. Use AnyDAO to receive every DAO's events.
func (b *Bus) Subscribe(dao status.DAO, filter Filter, handler Handler) (*Subscription, error) {
	if handler == nil {
		return nil, errors.WrapInvalid(errors.ErrInvalidData, "Bus", "Subscribe", "nil handler")
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil, errors.WrapFatal(errors.ErrShuttingDown, "Bus", "Subscribe", "register subscription")
	}

	sub := newSubscription(b, dao, filter, handler)
	b.subs[sub] = struct{}{}
	b.wg.Add(1)
	go sub.run(b.ctx)
	return sub, nil
}

func (b *Bus) remove(sub *Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.subs, sub)
}

// WaitFor blocks until an event of dao carrying correlationID and one of the
// given new statuses has been published, and returns it. Events still in the
// bus history count, so WaitFor may be called after the write that causes
// the event.
func (b *Bus) WaitFor(ctx context.Context, dao status.DAO, correlationID uint64,
	statuses ...status.DAOStatus) (status.TransitionEvent, error) {
	filter := Statuses(statuses...)
	match := func(ev status.TransitionEvent) bool {
		return ev.CorrelationID == correlationID && filter.Matches(ev)
	}

	found := make(chan status.TransitionEvent, 1)

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return status.TransitionEvent{}, errors.WrapFatal(errors.ErrShuttingDown, "Bus", "WaitFor", "wait for event")
	}
	for _, ev := range b.history[dao] {
		if match(ev) {
			b.mu.Unlock()
			return ev, nil
		}
	}
	sub := newSubscription(b, dao, nil, func(_ context.Context, ev status.TransitionEvent) {
		if match(ev) {
			select {
			case found <- ev:
			default:
			}
		}
	})
	b.subs[sub] = struct{}{}
	b.wg.Add(1)
	go sub.run(b.ctx)
	b.mu.Unlock()

	defer sub.Unsubscribe()

	select {
	case ev := <-found:
		return ev, nil
	case <-ctx.Done():
		return status.TransitionEvent{}, errors.WrapTransient(ctx.Err(), "Bus", "WaitFor",
			"wait for "+string(dao)+" event")
	case <-b.ctx.Done():
		return status.TransitionEvent{}, errors.WrapFatal(errors.ErrShuttingDown, "Bus", "WaitFor", "wait for event")
	}
}

// Close stops every subscription and waits for in-flight handlers to
// return, or for ctx to end. Undelivered events are dropped.
func (b *Bus) Close(ctx context.Context) error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	for sub := range b.subs {
		sub.stop()
	}
	b.subs = map[*Subscription]struct{}{}
	b.mu.Unlock()

	b.cancel()

	done := make(chan struct{})
	go func() {
		b.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return errors.WrapTransient(ctx.Err(), "Bus", "Close", "wait for subscribers")
	}
}
