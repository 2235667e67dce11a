package pausegate

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestBlockReturnsImmediatelyWhenNotPaused(t *testing.T) {
	t.Parallel()

	g := New()
	done := make(chan struct{})
	go func() {
		g.Block()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(100 * time.Millisecond):
		t.Fatal("Block did not return on an unpaused gate")
	}
}

func TestPauseParksBlockUntilResume(t *testing.T) {
	t.Parallel()

	g := New()
	g.Pause()

	var returned atomic.Bool
	done := make(chan struct{})
	go func() {
		g.Block()
		returned.Store(true)
		close(done)
	}()

	time.Sleep(30 * time.Millisecond)
	require.False(t, returned.Load())

	g.Resume()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Block did not return after Resume")
	}
	require.True(t, returned.Load())
}

// TestCloseWakesEveryBlockedWorker mirrors queue's abort-liveness property
// for the pause barrier: a paused session must not leave any worker parked
// once teardown begins (spec §4.7 step 1).
func TestCloseWakesEveryBlockedWorker(t *testing.T) {
	t.Parallel()

	g := New()
	g.Pause()

	const workers = 6
	done := make(chan struct{}, workers)
	for i := 0; i < workers; i++ {
		go func() {
			g.Block()
			done <- struct{}{}
		}()
	}

	time.Sleep(20 * time.Millisecond)
	g.Close()

	for i := 0; i < workers; i++ {
		select {
		case <-done:
		case <-time.After(time.Second):
			t.Fatalf("worker %d did not wake up after Close", i)
		}
	}
}

func TestIsPausedReflectsState(t *testing.T) {
	t.Parallel()

	g := New()
	require.False(t, g.IsPaused())
	g.Pause()
	require.True(t, g.IsPaused())
	g.Resume()
	require.False(t, g.IsPaused())
}

func TestCloseClearsPaused(t *testing.T) {
	t.Parallel()

	g := New()
	g.Pause()
	g.Close()
	require.False(t, g.IsPaused())
}
