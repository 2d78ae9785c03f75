package event

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"github.com/khaller93/es-middleware-sub003/errors"
	"github.com/khaller93/es-middleware-sub003/status"
)

// DefaultSubjectPrefix is the subject prefix of exported transitions.
const DefaultSubjectPrefix = "esm.status"

// MessagePublisher sends a payload to a subject. *natsclient.Client
// implements it.
type MessagePublisher interface {
	Publish(ctx context.Context, subject string, data []byte) error
}

// Bridge forwards every transition on the bus to a message broker as JSON
// on subject "<prefix>.<dao>.<status>", e.g. "esm.status.graph.ready".
type Bridge struct {
	bus     *Bus
	pub     MessagePublisher
	prefix  string
	timeout time.Duration
	logger  *slog.Logger
	sub     *Subscription

	published atomic.Int64
	failed    atomic.Int64
}

// NewBridge returns a bridge that is not yet forwarding.
func NewBridge(bus *Bus, pub MessagePublisher, prefix string, logger *slog.Logger) *Bridge {
	if prefix == "" {
		prefix = DefaultSubjectPrefix
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Bridge{
		bus:     bus,
		pub:     pub,
		prefix:  strings.TrimSuffix(prefix, "."),
		timeout: 5 * time.Second,
		logger:  logger.With("component", "event_bridge"),
	}
}

// Subject returns the subject an event is published on.
func (b *Bridge) Subject(ev status.TransitionEvent) string {
	return b.prefix + "." + string(ev.DAO) + "." + strings.ToLower(ev.New.String())
}

// Start subscribes the bridge to every DAO.
func (b *Bridge) Start() error {
	if b.sub != nil {
		return errors.WrapInvalid(errors.ErrAlreadyStarted, "Bridge", "Start", "subscribe")
	}
	sub, err := b.bus.Subscribe(AnyDAO, nil, b.forward)
	if err != nil {
		return errors.Wrap(err, "Bridge", "Start", "subscribe")
	}
	b.sub = sub
	b.logger.Info("Forwarding status transitions", "prefix", b.prefix)
	return nil
}

// Stop ends forwarding.
func (b *Bridge) Stop() {
	if b.sub != nil {
		b.sub.Unsubscribe()
		b.sub = nil
	}
}

// Stats returns the number of forwarded and failed events.
func (b *Bridge) Stats() (published, failed int64) {
	return b.published.Load(), b.failed.Load()
}

func (b *Bridge) forward(ctx context.Context, ev status.TransitionEvent) {
	data, err := json.Marshal(ev)
	if err != nil {
		b.failed.Add(1)
		b.logger.Error("Failed to encode transition", "error", err, "correlation_id", ev.CorrelationID)
		return
	}

	pubCtx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	subject := b.Subject(ev)
	if err := b.pub.Publish(pubCtx, subject, data); err != nil {
		b.failed.Add(1)
		b.logger.Warn("Failed to export transition",
			"subject", subject, "correlation_id", ev.CorrelationID, "error", err)
		return
	}
	b.published.Add(1)
}
