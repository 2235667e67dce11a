// Package pausegate implements the shared pause barrier every pipeline
// worker blocks on. It exists to break the back-reference a worker would
// otherwise need to the controller just to read one boolean: workers hold
// a *Gate, not a pointer to the controller (spec §9 design notes).
package pausegate

import "sync"

// Gate is a level-triggered pause signal with a teardown escape hatch.
// Accessed by every worker and the controller; the mutex/condvar pair
// guards the two booleans, which are not otherwise ordered with respect to
// any other pipeline state.
type Gate struct {
	mu     sync.Mutex
	cond   *sync.Cond
	paused bool
	closed bool
}

// New creates a Gate that starts out not paused.
func New() *Gate {
	g := &Gate{}
	g.cond = sync.NewCond(&g.mu)
	return g
}

// Pause sets the gate; the next Block call by any worker parks until
// Resume or Close.
func (g *Gate) Pause() {
	g.mu.Lock()
	g.paused = true
	g.mu.Unlock()
}

// Resume clears the gate and wakes every blocked worker.
func (g *Gate) Resume() {
	g.mu.Lock()
	g.paused = false
	g.mu.Unlock()
	g.cond.Broadcast()
}

// IsPaused reports the current state without blocking.
func (g *Gate) IsPaused() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.paused
}

// Block parks the calling goroutine while the gate is paused. It returns
// immediately once the gate is resumed or closed.
func (g *Gate) Block() {
	g.mu.Lock()
	defer g.mu.Unlock()
	for g.paused && !g.closed {
		g.cond.Wait()
	}
}

// Close force-clears paused and wakes every blocked worker permanently —
// used by the controller's stop sequence (spec §4.7 step 1) so that no
// worker stays parked while the pipeline tears down. A closed Gate is not
// reusable; construct a new session with a new Gate instead.
func (g *Gate) Close() {
	g.mu.Lock()
	g.paused = false
	g.closed = true
	g.mu.Unlock()
	g.cond.Broadcast()
}
