package playback

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewControllerStartsIdle(t *testing.T) {
	t.Parallel()

	c := New(nil, "testdata/does-not-matter.mp4")
	require.False(t, c.IsStarted())
	require.False(t, c.IsPaused())
	require.Equal(t, 1.0, c.GetSpeed())
}

func TestStopBeforeStartIsNoOp(t *testing.T) {
	t.Parallel()

	c := New(nil, "testdata/does-not-matter.mp4")
	require.NoError(t, c.Stop(context.Background()))
	require.False(t, c.IsStarted())
}

func TestPauseResumeBeforeStartAreNoOps(t *testing.T) {
	t.Parallel()

	c := New(nil, "testdata/does-not-matter.mp4")
	c.Pause()
	require.False(t, c.IsPaused())
	c.Resume()
	require.False(t, c.IsPaused())
}

func TestSetSpeedBeforeStartIsNoOp(t *testing.T) {
	t.Parallel()

	c := New(nil, "testdata/does-not-matter.mp4")
	c.SetSpeed(0.5)
	require.Equal(t, 1.0, c.GetSpeed())
}

// TestStartOnMissingContainerFailsWithoutStarting exercises the one part
// of Start that needs no real decode/output stack: Demuxer.Open failing on
// an unreadable path must leave the controller in its pre-start state so a
// caller can inspect the error and give up cleanly (spec §4.7 step 1).
func TestStartOnMissingContainerFailsWithoutStarting(t *testing.T) {
	t.Parallel()

	c := New(nil, "testdata/does-not-exist.mp4")
	err := c.Start(context.Background())
	require.Error(t, err)
	require.False(t, c.IsStarted())
}

// TestStartTwiceAfterFailedSetupRetries documents that a setup failure
// (before started ever became true) does not spend the session — only a
// controller that actually ran a full start/stop cycle is single-use.
func TestStartTwiceAfterFailedSetupRetries(t *testing.T) {
	t.Parallel()

	c := New(nil, "testdata/does-not-exist.mp4")
	first := c.Start(context.Background())
	require.Error(t, first)

	second := c.Start(context.Background())
	require.Error(t, second)
	require.NotErrorIs(t, second, ErrSessionSpent)
}

func TestStartWhileAlreadyStartedIsRejected(t *testing.T) {
	t.Parallel()

	c := New(nil, "testdata/does-not-exist.mp4")
	c.mu.Lock()
	c.st.started = true
	c.mu.Unlock()

	err := c.Start(context.Background())
	require.ErrorIs(t, err, ErrAlreadyStarted)
}
