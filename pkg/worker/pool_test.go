package worker

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/khaller93/es-middleware-sub003/metric"
)

type testWork struct {
	id   int
	fail bool
}

func TestNewPool(t *testing.T) {
	processor := func(context.Context, testWork) error { return nil }

	pool := NewPool(5, 100, processor)
	assert.Equal(t, 5, pool.workers)
	assert.Equal(t, 100, pool.queueSize)

	pool = NewPool(0, 0, processor)
	assert.Equal(t, 10, pool.workers)
	assert.Equal(t, 1000, pool.queueSize)
}

func TestNewPool_NilProcessor(t *testing.T) {
	defer func() {
		r := recover()
		require.NotNil(t, r)
		assert.ErrorIs(t, r.(error), ErrNilProcessor)
	}()
	NewPool[testWork](1, 1, nil)
}

func TestPool_Lifecycle(t *testing.T) {
	var processed int64
	pool := NewPool(2, 10, func(context.Context, testWork) error {
		atomic.AddInt64(&processed, 1)
		return nil
	})

	assert.Equal(t, ErrPoolNotStarted, pool.Submit(testWork{id: 0}))

	require.NoError(t, pool.Start(context.Background()))
	assert.ErrorIs(t, pool.Start(context.Background()), ErrPoolAlreadyStarted)

	for i := 0; i < 5; i++ {
		require.NoError(t, pool.Submit(testWork{id: i}))
	}

	require.NoError(t, pool.Stop(time.Second))
	assert.Equal(t, int64(5), atomic.LoadInt64(&processed))

	assert.ErrorIs(t, pool.Submit(testWork{id: 9}), ErrPoolStopped)
	assert.NoError(t, pool.Stop(time.Second), "stop is idempotent")
}

func TestPool_QueueFull(t *testing.T) {
	release := make(chan struct{})
	pool := NewPool(1, 1, func(context.Context, testWork) error {
		<-release
		return nil
	})
	require.NoError(t, pool.Start(context.Background()))
	defer func() {
		close(release)
		_ = pool.Stop(time.Second)
	}()

	var full error
	for i := 0; i < 10; i++ {
		if err := pool.Submit(testWork{id: i}); err != nil {
			full = err
			break
		}
	}
	assert.ErrorIs(t, full, ErrQueueFull)
	assert.Positive(t, pool.Stats().Dropped)
}

func TestPool_SubmitWaitPreservesOrder(t *testing.T) {
	var (
		mu    sync.Mutex
		order []int
	)
	pool := NewPool(1, 2, func(_ context.Context, w testWork) error {
		time.Sleep(time.Millisecond)
		mu.Lock()
		order = append(order, w.id)
		mu.Unlock()
		return nil
	})
	require.NoError(t, pool.Start(context.Background()))

	for i := 0; i < 20; i++ {
		require.NoError(t, pool.SubmitWait(context.Background(), testWork{id: i}))
	}
	require.NoError(t, pool.Stop(5*time.Second))

	expected := make([]int, 20)
	for i := range expected {
		expected[i] = i
	}
	assert.Equal(t, expected, order)
}

func TestPool_SubmitWaitHonoursContext(t *testing.T) {
	release := make(chan struct{})
	pool := NewPool(1, 1, func(context.Context, testWork) error {
		<-release
		return nil
	})
	require.NoError(t, pool.Start(context.Background()))
	defer func() {
		close(release)
		_ = pool.Stop(time.Second)
	}()

	// One in flight, one queued.
	require.NoError(t, pool.SubmitWait(context.Background(), testWork{id: 1}))
	require.Eventually(t, func() bool { return pool.Stats().QueueDepth == 0 }, time.Second, time.Millisecond)
	require.NoError(t, pool.SubmitWait(context.Background(), testWork{id: 2}))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := pool.SubmitWait(ctx, testWork{id: 3})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, 1, pool.Pending())
}

func TestPool_StopReleasesBlockedSubmitters(t *testing.T) {
	pool := NewPool(1, 1, func(ctx context.Context, _ testWork) error {
		<-ctx.Done()
		return ctx.Err()
	})
	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, pool.Start(ctx))

	require.NoError(t, pool.SubmitWait(context.Background(), testWork{id: 1}))
	require.Eventually(t, func() bool { return pool.Stats().QueueDepth == 0 }, time.Second, time.Millisecond)
	require.NoError(t, pool.SubmitWait(context.Background(), testWork{id: 2}))

	errCh := make(chan error, 1)
	go func() { errCh <- pool.SubmitWait(context.Background(), testWork{id: 3}) }()
	require.Eventually(t, func() bool { return pool.Pending() == 2 }, time.Second, time.Millisecond)

	cancel()
	_ = pool.Stop(time.Second)

	select {
	case err := <-errCh:
		assert.ErrorIs(t, err, ErrPoolStopped)
	case <-time.After(time.Second):
		t.Fatal("SubmitWait did not return after Stop")
	}
}

func TestPool_StopTimeout(t *testing.T) {
	pool := NewPool(1, 10, func(ctx context.Context, _ testWork) error {
		select {
		case <-time.After(5 * time.Second):
		case <-ctx.Done():
		}
		return nil
	})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, pool.Start(ctx))
	require.NoError(t, pool.Submit(testWork{id: 1}))
	time.Sleep(10 * time.Millisecond)

	assert.ErrorIs(t, pool.Stop(20*time.Millisecond), ErrStopTimeout)
}

func TestPool_StatsAndMetrics(t *testing.T) {
	registry := metric.NewMetricsRegistry()
	pool := NewPool(2, 10, func(_ context.Context, w testWork) error {
		if w.fail {
			return errors.New("boom")
		}
		return nil
	}, WithMetricsRegistry[testWork](registry, "test_pool"))
	require.NotNil(t, pool.metrics)

	require.NoError(t, pool.Start(context.Background()))
	for i := 0; i < 6; i++ {
		require.NoError(t, pool.Submit(testWork{id: i, fail: i%2 == 0}))
	}
	require.NoError(t, pool.Stop(time.Second))

	stats := pool.Stats()
	assert.Equal(t, int64(6), stats.Submitted)
	assert.Equal(t, int64(6), stats.Processed)
	assert.Equal(t, int64(3), stats.Failed)
	assert.Equal(t, 2, stats.Workers)
}
