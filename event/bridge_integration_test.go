//go:build integration

package event

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/khaller93/es-middleware-sub003/natsclient"
	"github.com/khaller93/es-middleware-sub003/status"
)

func TestBridge_NATSIntegration(t *testing.T) {
	tc := natsclient.NewTestClient(t)
	ctx := context.Background()

	received := make(chan status.TransitionEvent, 4)
	require.NoError(t, tc.Client.Subscribe(ctx, "esm.status.graph.>", func(_ context.Context, data []byte) {
		var ev status.TransitionEvent
		if err := json.Unmarshal(data, &ev); err == nil {
			received <- ev
		}
	}))
	require.NoError(t, tc.Client.Flush(ctx))

	bus := newTestBus(t)
	bridge := NewBridge(bus, tc.Client, DefaultSubjectPrefix, nil)
	require.NoError(t, bridge.Start())
	defer bridge.Stop()

	tracker := status.NewTracker(bus)
	ids := NewCorrelationSource()
	id := ids.Next()
	require.NoError(t, tracker.SetStatus(status.Graph, status.Booting, id))
	require.NoError(t, tracker.SetStatus(status.Graph, status.Ready, id))

	for _, want := range []status.DAOStatus{status.Booting, status.Ready} {
		select {
		case got := <-received:
			assert.Equal(t, want, got.New)
			assert.Equal(t, id, got.CorrelationID)
		case <-time.After(5 * time.Second):
			t.Fatalf("no %s event received over NATS", want)
		}
	}
}
