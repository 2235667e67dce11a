// Package clock implements the audio-mastered playback clock: a single
// drift value added to wall time, written by the audio callback and read by
// the video pacer. See spec §4.2 — the monotonic-plus-drift formulation
// means the clock keeps advancing smoothly between audio callbacks without
// a dedicated ticker goroutine.
package clock

import (
	"sync"
	"time"
)

// MasterClock holds drift d such that Get() == monotonic-now + d. Audio is
// the master because human perception is far more sensitive to audio
// glitches than to video jitter of similar magnitude; if the audio sink
// stops calling Set (queue drained), the clock keeps advancing at
// real-time rate and video plays through to live wall time — an accepted
// graceful-degradation mode, not a bug.
type MasterClock struct {
	mu    sync.Mutex
	drift time.Duration
	start time.Time
}

// New creates a clock with drift zero, i.e. Get() starts at 0 seconds and
// advances with wall time until the first Set.
func New() *MasterClock {
	return &MasterClock{start: time.Now()}
}

// Set atomically assigns drift so that Get() immediately returns pts.
func (c *MasterClock) Set(pts time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.drift = pts - time.Since(c.start)
}

// Reset is behaviourally identical to Set in this implementation; kept as
// a distinct name because the source API distinguishes the two call sites
// (seek vs. steady-state update) even though neither changes semantics.
func (c *MasterClock) Reset(pts time.Duration) {
	c.Set(pts)
}

// Get returns the current clock reading.
func (c *MasterClock) Get() time.Duration {
	c.mu.Lock()
	drift := c.drift
	start := c.start
	c.mu.Unlock()
	return time.Since(start) + drift
}
