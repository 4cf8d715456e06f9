package task

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_CreateGet(t *testing.T) {
	reg := NewRegistry()

	rec, err := reg.Create("abc", "/data/a.pdf")
	require.NoError(t, err)
	assert.Equal(t, "abc", rec.ID())

	got, err := reg.Get("abc")
	require.NoError(t, err)
	assert.Same(t, rec, got)

	_, err = reg.Create("abc", "/data/b.pdf")
	assert.ErrorIs(t, err, ErrDuplicateTask)

	_, err = reg.Get("missing")
	assert.ErrorIs(t, err, ErrTaskNotFound)
}

func TestRegistry_Remove(t *testing.T) {
	reg := NewRegistry()
	_, err := reg.Create("abc", "a.pdf")
	require.NoError(t, err)

	reg.Remove("abc")
	assert.Equal(t, 0, reg.Len())
	reg.Remove("abc")
}

func TestRegistry_SweepEvictsOnlyOldTerminalRecords(t *testing.T) {
	clock := newFakeClock()
	reg := NewRegistry(WithTTL(time.Hour), WithClock(clock.Now))

	done, _ := reg.Create("done", "a.pdf")
	require.NoError(t, done.Complete(nil))
	failed, _ := reg.Create("failed", "b.pdf")
	require.NoError(t, failed.Fail(errors.New("x")))
	running, _ := reg.Create("running", "c.pdf")
	require.NoError(t, running.Start())

	assert.Equal(t, 0, reg.Sweep())

	clock.Advance(2 * time.Hour)
	assert.Equal(t, 2, reg.Sweep())

	_, err := reg.Get("running")
	assert.NoError(t, err)
	_, err = reg.Get("done")
	assert.ErrorIs(t, err, ErrTaskNotFound)
}

func TestRegistry_SweepDisabledWithoutTTL(t *testing.T) {
	clock := newFakeClock()
	reg := NewRegistry(WithClock(clock.Now))
	rec, _ := reg.Create("done", "a.pdf")
	require.NoError(t, rec.Complete(nil))

	clock.Advance(1000 * time.Hour)
	assert.Equal(t, 0, reg.Sweep())
	assert.Equal(t, 1, reg.Len())
}

func TestRegistry_RunStopsWithContext(t *testing.T) {
	reg := NewRegistry(WithTTL(time.Millisecond))
	ctx, cancel := context.WithCancel(context.Background())

	finished := make(chan struct{})
	go func() {
		reg.Run(ctx, time.Millisecond)
		close(finished)
	}()

	rec, _ := reg.Create("done", "a.pdf")
	require.NoError(t, rec.Complete(nil))
	assert.Eventually(t, func() bool { return reg.Len() == 0 }, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case <-finished:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestRegistry_ConcurrentAccess(t *testing.T) {
	reg := NewRegistry()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := fmt.Sprintf("task-%d", i)
			rec, err := reg.Create(id, "a.pdf")
			assert.NoError(t, err)
			rec.AddLog("created")
			got, err := reg.Get(id)
			assert.NoError(t, err)
			assert.Equal(t, 1, got.LogCount())
		}(i)
	}
	wg.Wait()
	assert.Equal(t, 50, reg.Len())
}
