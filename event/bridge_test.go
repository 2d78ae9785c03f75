package event

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/khaller93/es-middleware-sub003/status"
)

type mockPublisher struct {
	mock.Mock
	mu sync.Mutex
}

func (m *mockPublisher) Publish(ctx context.Context, subject string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	args := m.Called(ctx, subject, data)
	return args.Error(0)
}

func TestBridge_Subject(t *testing.T) {
	b := NewBridge(NewBus(), &mockPublisher{}, "", nil)
	assert.Equal(t, "esm.status.graph.synchronizing",
		b.Subject(ev(status.Graph, status.Ready, status.Synchronizing, 1)))

	b = NewBridge(NewBus(), &mockPublisher{}, "kg.", nil)
	assert.Equal(t, "kg.primary.failed", b.Subject(ev(status.Primary, status.Ready, status.Failed, 1)))
}

func TestBridge_ForwardsEvents(t *testing.T) {
	bus := newTestBus(t)
	pub := &mockPublisher{}

	var got []byte
	pub.On("Publish", mock.Anything, "esm.status.graph.ready", mock.Anything).
		Run(func(args mock.Arguments) { got = args.Get(2).([]byte) }).
		Return(nil).Once()
	pub.On("Publish", mock.Anything, "esm.status.graph.failed", mock.Anything).
		Return(stderrors.New("broker down")).Once()

	bridge := NewBridge(bus, pub, "", nil)
	require.NoError(t, bridge.Start())
	assert.Error(t, bridge.Start())
	defer bridge.Stop()

	bus.Publish(status.TransitionEvent{DAO: status.Graph, Previous: status.Synchronizing, New: status.Ready, CorrelationID: 3})
	bus.Publish(status.TransitionEvent{DAO: status.Graph, Previous: status.Ready, New: status.Failed, CorrelationID: 4, Cause: "x"})

	require.Eventually(t, func() bool {
		p, f := bridge.Stats()
		return p == 1 && f == 1
	}, time.Second, time.Millisecond)

	pub.mu.Lock()
	defer pub.mu.Unlock()
	pub.AssertExpectations(t)

	var decoded status.TransitionEvent
	require.NoError(t, json.Unmarshal(got, &decoded))
	assert.Equal(t, uint64(3), decoded.CorrelationID)
	assert.Equal(t, status.Ready, decoded.New)
}
