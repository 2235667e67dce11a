// Package playback implements Controller, the component that owns the
// whole graph and enforces correct start/stop ordering, pause
// coordination, and teardown (spec §4.7).
package playback

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/zsiec/prism-player/internal/audio"
	"github.com/zsiec/prism-player/internal/clock"
	"github.com/zsiec/prism-player/internal/decode"
	"github.com/zsiec/prism-player/internal/media"
	"github.com/zsiec/prism-player/internal/pausegate"
	"github.com/zsiec/prism-player/internal/queue"
	"github.com/zsiec/prism-player/internal/sdlsys"
	"github.com/zsiec/prism-player/internal/video"
)

// speedPresets is the cycle the "S" key steps through — a supplemented
// feature from original_source/Windows/code/main.cpp, which bound S to a
// fixed {1.0, 0.75, 0.5} cycle rather than a continuous control (spec §5).
var speedPresets = []float64{1.0, 0.75, 0.5}

// state holds the controller's externally-observable session state (spec
// §3): paused implies started, speed is clamped to [audio.MinSpeed,
// audio.MaxSpeed], and started transitions monotonically within a
// session.
type state struct {
	started bool
	paused  bool
	speed   float64
}

// Controller owns the demuxer, both decoders, both outputs, the shared
// queues, the master clock, and the pause barrier. It exposes the five
// commands and three queries named in spec §6.
type Controller struct {
	log *slog.Logger
	url string

	mu    sync.Mutex
	st    state
	spent bool // true once a start/stop cycle has completed

	gate *pausegate.Gate
	clk  *clock.MasterClock

	demuxer      *decode.Demuxer
	audioDecoder *decode.Decoder
	videoDecoder *decode.Decoder

	audioPacketQ *queue.BoundedQueue[*media.Packet]
	videoPacketQ *queue.BoundedQueue[*media.Packet]
	audioFrameQ  *queue.BoundedQueue[*media.Frame]
	videoFrameQ  *queue.BoundedQueue[*media.Frame]

	audioOut *audio.Output
	videoOut *video.Output
}

// New creates a Controller for the container at url. If log is nil,
// slog.Default() is used.
func New(log *slog.Logger, url string) *Controller {
	if log == nil {
		log = slog.Default()
	}
	return &Controller{
		log: log.With("component", "controller"),
		url: url,
		st:  state{speed: 1.0},
	}
}

// Start runs the full start sequence (spec §4.7): open the container,
// initialise both decoders, initialise the clock, open both outputs,
// start the three worker threads, then block in the video main loop until
// the window closes or the user exits. It returns once the session has
// fully stopped.
func (c *Controller) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.spent {
		c.mu.Unlock()
		return ErrSessionSpent
	}
	if c.st.started {
		c.mu.Unlock()
		return ErrAlreadyStarted
	}
	c.mu.Unlock()

	if err := c.setup(); err != nil {
		return err
	}

	c.mu.Lock()
	c.st.started = true
	c.st.speed = 1.0
	c.mu.Unlock()

	c.demuxer.Start(c.gate, c.audioPacketQ, c.videoPacketQ)
	c.audioDecoder.Start(c.gate, c.audioPacketQ, c.audioFrameQ)
	c.videoDecoder.Start(c.gate, c.videoPacketQ, c.videoFrameQ)

	// Run must execute on the same (OS-locked) thread the caller is on:
	// SDL's video subsystem is not safe to drive from elsewhere, and
	// Stop (which tears down the window/renderer/texture) must never run
	// concurrently with Run still polling/presenting on it. ctx carries
	// the caller's cancellation in instead of Stop being invoked from a
	// second goroutine.
	runErr := c.videoOut.Run(ctx, c.gate, c.handleKey)
	stopErr := c.Stop(context.Background())
	if runErr != nil {
		return runErr
	}
	return stopErr
}

// setup performs steps 1–5 of the start sequence, aborting and unwinding
// whatever was already constructed on the first failure.
func (c *Controller) setup() (err error) {
	c.gate = pausegate.New()
	c.clk = clock.New()

	c.demuxer = decode.NewDemuxer(c.log)
	if err = c.demuxer.Open(c.url); err != nil {
		return fmt.Errorf("playback: opening %q: %w", c.url, err)
	}

	audioDesc := c.demuxer.AudioStream()
	videoDesc := c.demuxer.VideoStream()

	// The two decoders' Init calls are independent of each other (each
	// only depends on the demuxer's already-open stream descriptors), so
	// they run concurrently to shave container-open latency.
	c.audioDecoder = decode.NewDecoder(media.KindAudio, c.log)
	c.videoDecoder = decode.NewDecoder(media.KindVideo, c.log)

	g := new(errgroup.Group)
	g.Go(func() error {
		if err := c.audioDecoder.Init(audioDesc); err != nil {
			return fmt.Errorf("initialising audio decoder: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		if err := c.videoDecoder.Init(videoDesc); err != nil {
			return fmt.Errorf("initialising video decoder: %w", err)
		}
		return nil
	})
	if err = g.Wait(); err != nil {
		c.audioDecoder.Stop(context.Background())
		c.videoDecoder.Stop(context.Background())
		c.demuxer.Stop(context.Background())
		return fmt.Errorf("playback: %w", err)
	}

	c.audioPacketQ = queue.New(media.ReleasePacket)
	c.videoPacketQ = queue.New(media.ReleasePacket)
	c.audioFrameQ = queue.New(media.ReleaseFrame)
	c.videoFrameQ = queue.New(media.ReleaseFrame)

	channelLayout, sampleFormat, sampleRate := c.audioDecoder.AudioFormat()
	srcFmt := audio.Params{SampleRate: sampleRate, ChannelLayout: channelLayout, SampleFormat: sampleFormat}
	dstFmt := audio.SinkParams(sampleRate) // spec §6: sink configured at audio_stream_rate

	// Both outputs need the SDL audio/video subsystems live; acquired here,
	// right before either is opened, so a failure earlier in setup (bad
	// path, unsupported codec) never touches SDL at all.
	if err = sdlsys.Acquire(); err != nil {
		c.teardownDecoders()
		return fmt.Errorf("playback: %w", err)
	}

	c.audioOut = audio.New(c.log, c.audioFrameQ, c.clk, audioDesc.TimeBase, srcFmt, dstFmt)
	if err = c.audioOut.Open(); err != nil {
		sdlsys.Release()
		c.teardownDecoders()
		return fmt.Errorf("playback: opening audio sink: %w", err)
	}

	c.videoOut = video.New(c.log, c.videoFrameQ, c.clk, videoDesc.TimeBase, videoDesc.Width, videoDesc.Height)
	if err = c.videoOut.Open(); err != nil {
		c.audioOut.Close()
		sdlsys.Release()
		c.teardownDecoders()
		return fmt.Errorf("playback: opening video surface: %w", err)
	}

	return nil
}

func (c *Controller) teardownDecoders() {
	c.videoDecoder.Stop(context.Background())
	c.audioDecoder.Stop(context.Background())
	c.demuxer.Stop(context.Background())
}

// handleKey is VideoOutput's key dispatch callback (spec §5 supplemented
// control surface).
func (c *Controller) handleKey(k video.Key) {
	switch k {
	case video.KeyTogglePause:
		if c.IsPaused() {
			c.Resume()
		} else {
			c.Pause()
		}
	case video.KeyCycleSpeed:
		c.cycleSpeed()
	case video.KeyDebugOverlay:
		c.log.Info("elapsed", "clock_seconds", c.clk.Get().Seconds())
	}
}

func (c *Controller) cycleSpeed() {
	cur := c.GetSpeed()
	next := speedPresets[0]
	for i, s := range speedPresets {
		if s == cur {
			next = speedPresets[(i+1)%len(speedPresets)]
			break
		}
	}
	c.SetSpeed(next)
}

// Pause pauses both the pipeline workers (via the shared gate) and the
// audio sink (silence, no clock ticks). A no-op if not started or already
// paused.
func (c *Controller) Pause() {
	c.mu.Lock()
	if !c.st.started || c.st.paused {
		c.mu.Unlock()
		return
	}
	c.st.paused = true
	c.mu.Unlock()

	c.gate.Pause()
	c.audioOut.Pause()
}

// Resume reverses Pause. A no-op if not started or not paused.
func (c *Controller) Resume() {
	c.mu.Lock()
	if !c.st.started || !c.st.paused {
		c.mu.Unlock()
		return
	}
	c.st.paused = false
	c.mu.Unlock()

	c.audioOut.Resume()
	c.gate.Resume()
}

// SetSpeed is forwarded unchanged to AudioOutput (spec §4.7): video
// follows automatically because its pacing reads the audio-updated master
// clock.
func (c *Controller) SetSpeed(s float64) {
	c.mu.Lock()
	started := c.st.started
	c.mu.Unlock()
	if !started {
		return
	}

	c.audioOut.SetSpeed(s)

	c.mu.Lock()
	c.st.speed = c.audioOut.Speed()
	c.mu.Unlock()
}

// IsStarted reports whether the session is currently running.
func (c *Controller) IsStarted() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.st.started
}

// IsPaused reports whether the session is currently paused. Always false
// if not started (spec §3: paused ⇒ started).
func (c *Controller) IsPaused() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.st.paused
}

// GetSpeed returns the last speed Set/observed via AudioOutput.
func (c *Controller) GetSpeed() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.st.speed
}

// Stop runs the reverse-dependency teardown sequence (spec §4.7). It is
// idempotent: calling it on a controller that is not started is a no-op.
func (c *Controller) Stop(ctx context.Context) error {
	c.mu.Lock()
	if !c.st.started {
		c.mu.Unlock()
		return nil
	}
	c.st.started = false
	c.st.paused = false
	c.mu.Unlock()

	// 1. Force-clear paused; wake every blocked worker.
	c.gate.Close()

	// 2. Consumers first, then the producer, so each unblocks on an
	// aborted queue rather than starving on an upstream that never stops.
	c.videoDecoder.Stop(ctx)
	c.audioDecoder.Stop(ctx)
	c.demuxer.Stop(ctx)

	// 3. Tear down the outputs, then release the subsystem handle they
	// were opened against.
	c.audioOut.Close()
	c.videoOut.Close()
	sdlsys.Release()

	// 4. Abort every queue, releasing whatever they still hold.
	c.audioPacketQ.Abort()
	c.videoPacketQ.Abort()
	c.audioFrameQ.Abort()
	c.videoFrameQ.Abort()

	// 6. Session is single-use from here on (step 5, join/destroy, already
	// happened inside the Stop calls above).
	c.mu.Lock()
	c.spent = true
	c.mu.Unlock()

	return nil
}
