package task

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPool_RunsJobs(t *testing.T) {
	p := NewPool(3, 10, nil)
	p.Start(context.Background())

	var count atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		require.NoError(t, p.Submit(func(ctx context.Context) {
			defer wg.Done()
			count.Add(1)
		}))
	}
	wg.Wait()
	assert.Equal(t, int32(10), count.Load())
	require.NoError(t, p.Shutdown(context.Background()))
}

func TestPool_QueueFull(t *testing.T) {
	p := NewPool(1, 1, nil)
	p.Start(context.Background())

	release := make(chan struct{})
	started := make(chan struct{})
	require.NoError(t, p.Submit(func(ctx context.Context) {
		close(started)
		<-release
	}))
	<-started

	require.NoError(t, p.Submit(func(ctx context.Context) {}))
	assert.ErrorIs(t, p.Submit(func(ctx context.Context) {}), ErrQueueFull)
	assert.Equal(t, 1, p.Pending())

	close(release)
	require.NoError(t, p.Shutdown(context.Background()))
}

func TestPool_BoundsConcurrency(t *testing.T) {
	p := NewPool(2, 20, nil)
	p.Start(context.Background())

	var running, peak atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		require.NoError(t, p.Submit(func(ctx context.Context) {
			defer wg.Done()
			n := running.Add(1)
			for {
				old := peak.Load()
				if n <= old || peak.CompareAndSwap(old, n) {
					break
				}
			}
			time.Sleep(5 * time.Millisecond)
			running.Add(-1)
		}))
	}
	wg.Wait()
	assert.LessOrEqual(t, peak.Load(), int32(2))
	require.NoError(t, p.Shutdown(context.Background()))
}

func TestPool_PanicDoesNotKillWorker(t *testing.T) {
	p := NewPool(1, 4, nil)
	p.Start(context.Background())

	require.NoError(t, p.Submit(func(ctx context.Context) { panic("boom") }))

	done := make(chan struct{})
	require.NoError(t, p.Submit(func(ctx context.Context) { close(done) }))

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("worker did not survive the panic")
	}
	require.NoError(t, p.Shutdown(context.Background()))
}

func TestPool_ShutdownDrainsAndRejects(t *testing.T) {
	p := NewPool(1, 5, nil)
	p.Start(context.Background())

	var count atomic.Int32
	for i := 0; i < 5; i++ {
		require.NoError(t, p.Submit(func(ctx context.Context) {
			time.Sleep(time.Millisecond)
			count.Add(1)
		}))
	}
	require.NoError(t, p.Shutdown(context.Background()))
	assert.Equal(t, int32(5), count.Load())
	assert.ErrorIs(t, p.Submit(func(ctx context.Context) {}), ErrPoolClosed)
	assert.NoError(t, p.Shutdown(context.Background()))
}

func TestPool_ShutdownTimeoutCancelsJobs(t *testing.T) {
	p := NewPool(1, 1, nil)
	p.Start(context.Background())

	cancelled := make(chan struct{})
	require.NoError(t, p.Submit(func(ctx context.Context) {
		<-ctx.Done()
		close(cancelled)
	}))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, p.Shutdown(ctx), context.DeadlineExceeded)

	select {
	case <-cancelled:
	case <-time.After(time.Second):
		t.Fatal("job context was not cancelled")
	}
}

func TestPool_ParentContextDoesNotCancelJobs(t *testing.T) {
	parent, cancel := context.WithCancel(context.Background())
	p := NewPool(1, 1, nil)
	p.Start(parent)
	cancel()

	result := make(chan error, 1)
	require.NoError(t, p.Submit(func(ctx context.Context) { result <- ctx.Err() }))
	assert.NoError(t, <-result)
	require.NoError(t, p.Shutdown(context.Background()))
}
