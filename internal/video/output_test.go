package video

import (
	"testing"
	"time"

	"github.com/asticode/go-astiav"
	"github.com/stretchr/testify/require"

	"github.com/zsiec/prism-player/internal/clock"
	"github.com/zsiec/prism-player/internal/media"
	"github.com/zsiec/prism-player/internal/pausegate"
	"github.com/zsiec/prism-player/internal/queue"
)

func TestLetterboxPreservesAspectAndCentres(t *testing.T) {
	t.Parallel()

	// 640x480 (4:3) into a 1280x720 window: height is the binding
	// constraint, so the blit should be narrower than the window and
	// centred horizontally.
	o := &Output{width: 640, height: 480}
	rect := o.letterbox()

	require.LessOrEqual(t, int(rect.W), windowWidth)
	require.LessOrEqual(t, int(rect.H), windowHeight)
	require.Equal(t, windowWidth, int(rect.X)*2+int(rect.W))
	require.Equal(t, windowHeight, int(rect.Y)*2+int(rect.H))
}

func TestLetterboxMatchingAspectFillsWindow(t *testing.T) {
	t.Parallel()

	// Exactly the window's own aspect ratio: no letterbox bars at all.
	o := &Output{width: 1280, height: 720}
	rect := o.letterbox()

	require.Equal(t, int32(windowWidth), rect.W)
	require.Equal(t, int32(windowHeight), rect.H)
	require.Equal(t, int32(0), rect.X)
	require.Equal(t, int32(0), rect.Y)
}

func TestLetterboxDownscalesOversizedSource(t *testing.T) {
	t.Parallel()

	// A source twice the window's own resolution must downscale by 0.5,
	// filling the window exactly rather than degenerating to a zero-size
	// or clamped-to-1x over-window rect.
	o := &Output{width: 2560, height: 1440}
	rect := o.letterbox()

	require.Equal(t, int32(windowWidth), rect.W)
	require.Equal(t, int32(windowHeight), rect.H)
	require.Equal(t, int32(0), rect.X)
	require.Equal(t, int32(0), rect.Y)
}

func TestRefreshWaitsWhenPaused(t *testing.T) {
	t.Parallel()

	o := New(nil, queue.New[*media.Frame](media.ReleaseFrame), clock.New(), astiav.NewRational(1, 1000), 640, 480)
	g := pausegate.New()
	g.Pause()

	o.refresh(g)
	require.Equal(t, idleSleep, o.remain)
}

func TestRefreshWaitsWhenQueueEmpty(t *testing.T) {
	t.Parallel()

	o := New(nil, queue.New[*media.Frame](media.ReleaseFrame), clock.New(), astiav.NewRational(1, 1000), 640, 480)
	g := pausegate.New()

	o.refresh(g)
	require.Equal(t, idleSleep, o.remain)
}

func TestRefreshWaitsWhenFrameNotYetDue(t *testing.T) {
	t.Parallel()

	frameQ := queue.New[*media.Frame](media.ReleaseFrame)
	clk := clock.New() // Get() starts near zero

	raw := astiav.AllocFrame()
	raw.SetPts(5000) // 5s at a 1/1000 time base: far in the future
	frameQ.Push(media.NewFrame(raw, media.KindVideo))

	o := New(nil, frameQ, clk, astiav.NewRational(1, 1000), 640, 480)
	g := pausegate.New()

	o.refresh(g)
	require.Greater(t, o.remain, time.Duration(0))
	// Frame must still be queued: refresh must not have popped it early.
	require.Equal(t, 1, frameQ.Size())
}
