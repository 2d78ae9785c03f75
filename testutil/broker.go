package testutil

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

// ErrBrokerClosed is returned by a closed MockBroker.
var ErrBrokerClosed = errors.New("broker is closed")

// MockBroker is an in-memory broker with the Publish signature of
// natsclient.Client. Safe for concurrent use.
type MockBroker struct {
	mu         sync.RWMutex
	messages   map[string][][]byte
	publishErr error
	closed     bool
}

// NewMockBroker creates an empty broker.
func NewMockBroker() *MockBroker {
	return &MockBroker{messages: make(map[string][][]byte)}
}

// Publish stores data under subject.
func (b *MockBroker) Publish(ctx context.Context, subject string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return ErrBrokerClosed
	}
	if b.publishErr != nil {
		return b.publishErr
	}
	b.messages[subject] = append(b.messages[subject], append([]byte(nil), data...))
	return nil
}

// FailPublish makes every later Publish return err. Nil restores success.
func (b *MockBroker) FailPublish(err error) {
	b.mu.Lock()
	b.publishErr = err
	b.mu.Unlock()
}

// Messages returns a copy of the payloads published to subject.
func (b *MockBroker) Messages(subject string) [][]byte {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([][]byte, len(b.messages[subject]))
	copy(out, b.messages[subject])
	return out
}

// Subjects returns every subject that received a message.
func (b *MockBroker) Subjects() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]string, 0, len(b.messages))
	for s := range b.messages {
		out = append(out, s)
	}
	return out
}

// Close rejects later publishes.
func (b *MockBroker) Close() error {
	b.mu.Lock()
	b.closed = true
	b.mu.Unlock()
	return nil
}

// WaitForMessages waits until subject holds at least n messages and
// returns them.
func WaitForMessages(t *testing.T, b *MockBroker, subject string, n int, timeout time.Duration) [][]byte {
	t.Helper()

	deadline := time.Now().Add(timeout)
	for {
		msgs := b.Messages(subject)
		if len(msgs) >= n {
			return msgs
		}
		if time.Now().After(deadline) {
			t.Fatalf("timeout waiting for %d messages on %s (got %d)", n, subject, len(msgs))
			return nil
		}
		time.Sleep(10 * time.Millisecond)
	}
}
