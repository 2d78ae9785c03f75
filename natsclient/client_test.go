package natsclient

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/khaller93/es-middleware-sub003/errors"
)

func TestNewClient_Defaults(t *testing.T) {
	c, err := NewClient("nats://localhost:4222")
	require.NoError(t, err)

	assert.Equal(t, "nats://localhost:4222", c.URL())
	assert.Equal(t, StatusDisconnected, c.Status())
	assert.False(t, c.IsHealthy())
	assert.Equal(t, -1, c.maxReconnects)
	assert.Equal(t, "esm", c.name)
	assert.NotEmpty(t, c.options())
}

func TestNewClient_Options(t *testing.T) {
	c, err := NewClient("nats://x",
		WithMaxReconnects(3),
		WithReconnectWait(time.Second),
		WithTimeout(2*time.Second),
		WithName("test"),
		WithDrainTimeout(time.Second),
		WithLogger(slog.Default()),
	)
	require.NoError(t, err)
	assert.Equal(t, 3, c.maxReconnects)
	assert.Equal(t, 2*time.Second, c.timeout)
	assert.Equal(t, "test", c.name)
	assert.Equal(t, time.Second, c.drainTimeout)
}

func TestNewClient_InvalidOption(t *testing.T) {
	_, err := NewClient("nats://x", WithTimeout(0))
	require.Error(t, err)
	assert.True(t, errors.IsInvalid(err))

	_, err = NewClient("nats://x", WithLogger(nil))
	assert.Error(t, err)

	_, err = NewClient("nats://x", WithReconnectWait(-time.Second))
	assert.Error(t, err)
}

func TestClient_NotConnected(t *testing.T) {
	c, err := NewClient("nats://x")
	require.NoError(t, err)

	assert.ErrorIs(t, c.Publish(context.Background(), "a.b", []byte("x")), ErrNotConnected)
	assert.ErrorIs(t, c.Subscribe(context.Background(), "a.b", func(context.Context, []byte) {}), ErrNotConnected)
	_, err = c.RTT()
	assert.ErrorIs(t, err, ErrNotConnected)

	assert.NoError(t, c.Close(context.Background()))
	assert.NoError(t, c.Close(context.Background()))
	assert.ErrorIs(t, c.Connect(context.Background()), ErrClosed)
}

func TestClient_ConnectFailsFast(t *testing.T) {
	c, err := NewClient("nats://127.0.0.1:1", WithTimeout(100*time.Millisecond), WithMaxReconnects(0))
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	err = c.Connect(ctx)
	require.Error(t, err)
	assert.True(t, errors.IsTransient(err))
	assert.Equal(t, StatusDisconnected, c.Status())
	assert.Equal(t, int32(1), c.GetStatus().FailureCount)
}

func TestConnectionStatus_String(t *testing.T) {
	assert.Equal(t, "connected", StatusConnected.String())
	assert.Equal(t, "unknown", ConnectionStatus(99).String())
}
