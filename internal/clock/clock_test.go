package clock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestNewStartsAtZero(t *testing.T) {
	t.Parallel()

	c := New()
	require.InDelta(t, 0, c.Get().Seconds(), 0.05)
}

func TestSetPinsReading(t *testing.T) {
	t.Parallel()

	c := New()
	c.Set(10 * time.Second)
	require.InDelta(t, 10, c.Get().Seconds(), 0.05)
}

// TestGetAdvancesWithWallTimeAfterSet verifies the monotonic-plus-drift
// formulation: once Set pins a reading, Get keeps advancing at real-time
// rate without another Set call (spec §4.2).
func TestGetAdvancesWithWallTimeAfterSet(t *testing.T) {
	t.Parallel()

	c := New()
	c.Set(time.Second)
	first := c.Get()
	time.Sleep(50 * time.Millisecond)
	second := c.Get()

	require.Greater(t, second, first)
	require.InDelta(t, 50*time.Millisecond, second-first, float64(20*time.Millisecond))
}

func TestResetBehavesLikeSet(t *testing.T) {
	t.Parallel()

	c := New()
	c.Reset(5 * time.Second)
	require.InDelta(t, 5, c.Get().Seconds(), 0.05)
}
