// Package video implements VideoOutput: the foreground-thread event loop
// that paces frame presentation against the MasterClock and blits YUV420
// planes into a fixed, letterboxed window (spec §4.6).
package video

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/asticode/go-astiav"
	"github.com/veandco/go-sdl2/sdl"

	"github.com/zsiec/prism-player/internal/clock"
	"github.com/zsiec/prism-player/internal/media"
	"github.com/zsiec/prism-player/internal/pausegate"
	"github.com/zsiec/prism-player/internal/queue"
)

// windowWidth and windowHeight are the fixed, non-resizable surface
// dimensions named in spec §6.
const (
	windowWidth  = 1280
	windowHeight = 720
)

// idleSleep is both the "nothing due yet" and "paused" remain-time cap
// (spec §4.6 video_refresh steps 1–2).
const idleSleep = 10 * time.Millisecond

// Key is the subset of keyboard input the event loop dispatches to the
// controller; everything else is ignored (spec §4.6: "dispatch event →
// {ESC | close ⇒ exit loop; else ignore}", generalized here to also
// surface the Space/S/E commands §7 names, without adding any rendered
// control surface).
type Key int

const (
	KeyTogglePause Key = iota
	KeyCycleSpeed
	KeyDebugOverlay
)

// Output drives the SDL window/renderer/texture and the pacing loop. It
// must run on the controller's foreground goroutine — SDL's video
// subsystem is not safe to drive from elsewhere.
type Output struct {
	log      *slog.Logger
	frameQ   *queue.BoundedQueue[*media.Frame]
	clk      *clock.MasterClock
	timeBase astiav.Rational
	width    int
	height   int

	window   *sdl.Window
	renderer *sdl.Renderer
	texture  *sdl.Texture

	remain time.Duration
}

// New creates an Output for a video stream of the given native resolution.
func New(log *slog.Logger, frameQ *queue.BoundedQueue[*media.Frame], clk *clock.MasterClock, timeBase astiav.Rational, width, height int) *Output {
	if log == nil {
		log = slog.Default()
	}
	return &Output{
		log:      log.With("component", "video-output"),
		frameQ:   frameQ,
		clk:      clk,
		timeBase: timeBase,
		width:    width,
		height:   height,
	}
}

// Open creates the fixed 1280x720 window, an accelerated renderer, and a
// YUV420-planar streaming texture sized to the source video resolution.
func (o *Output) Open() error {
	window, err := sdl.CreateWindow("prism-player", sdl.WINDOWPOS_CENTERED, sdl.WINDOWPOS_CENTERED,
		windowWidth, windowHeight, sdl.WINDOW_SHOWN)
	if err != nil {
		return fmt.Errorf("video: creating window: %w", err)
	}

	renderer, err := sdl.CreateRenderer(window, -1, sdl.RENDERER_ACCELERATED)
	if err != nil {
		window.Destroy()
		return fmt.Errorf("video: creating renderer: %w", err)
	}

	texture, err := renderer.CreateTexture(uint32(sdl.PIXELFORMAT_IYUV), sdl.TEXTUREACCESS_STREAMING, int32(o.width), int32(o.height))
	if err != nil {
		renderer.Destroy()
		window.Destroy()
		return fmt.Errorf("video: creating YUV texture: %w", err)
	}

	o.window = window
	o.renderer = renderer
	o.texture = texture
	return nil
}

// Close tears down the texture, renderer, and window, in that order.
func (o *Output) Close() error {
	if o.texture != nil {
		o.texture.Destroy()
		o.texture = nil
	}
	if o.renderer != nil {
		o.renderer.Destroy()
		o.renderer = nil
	}
	if o.window != nil {
		o.window.Destroy()
		o.window = nil
	}
	return nil
}

// Run blocks, pumping OS events and pacing frame presentation against the
// master clock, until the window is closed, ESC is pressed, or ctx is
// cancelled. It must be called from the same OS-locked thread that called
// Open, and the caller must not call Close concurrently with Run still
// executing — Close only runs safely once Run has returned. onKey is
// called for every other recognised keydown (Space/S/E), letting the
// controller drive pause/speed/debug commands from the same input surface
// the original source used (spec §5 supplemented features).
func (o *Output) Run(ctx context.Context, gate *pausegate.Gate, onKey func(Key)) error {
	for {
		if ctx.Err() != nil {
			return nil
		}

		event := sdl.PollEvent()
		for event == nil {
			if ctx.Err() != nil {
				return nil
			}
			if o.remain > 0 {
				sleep := o.remain
				if sleep > idleSleep {
					sleep = idleSleep
				}
				time.Sleep(sleep)
			}
			o.refresh(gate)
			event = sdl.PollEvent()
		}

		switch e := event.(type) {
		case *sdl.QuitEvent:
			return nil
		case *sdl.KeyboardEvent:
			if e.Type != sdl.KEYDOWN {
				continue
			}
			switch e.Keysym.Sym {
			case sdl.K_ESCAPE:
				return nil
			case sdl.K_SPACE:
				if onKey != nil {
					onKey(KeyTogglePause)
				}
			case sdl.K_s:
				if onKey != nil {
					onKey(KeyCycleSpeed)
				}
			case sdl.K_e:
				if onKey != nil {
					onKey(KeyDebugOverlay)
				}
			}
		}
	}
}

// refresh implements spec §4.6's video_refresh algorithm: peek the due
// frame, wait if it isn't due yet, otherwise letterbox-blit it and pop.
func (o *Output) refresh(gate *pausegate.Gate) {
	if gate.IsPaused() {
		o.remain = idleSleep
		return
	}

	peek := o.frameQ.Front()
	if peek.Status != queue.FrontOK {
		o.remain = idleSleep
		return
	}

	framePTS := time.Duration(float64(peek.Item.PTS) * o.timeBase.Float64() * float64(time.Second))
	diff := framePTS - o.clk.Get()
	if diff > 0 {
		if diff > idleSleep {
			diff = idleSleep
		}
		o.remain = diff
		return
	}

	// Due, or already past due: displayed once regardless (no frame
	// dropping — spec §4.6 closing note), then popped and released.
	o.present(peek.Item)

	res := o.frameQ.Pop(0)
	if res.Status == queue.PopOK {
		res.Item.Release()
	}
	o.remain = 0
}

func (o *Output) present(frame *media.Frame) {
	raw := frame.Raw()

	yPlane, err := raw.Data().Bytes(0)
	if err != nil {
		o.log.Error("reading Y plane failed", "error", err)
		return
	}
	uPlane, err := raw.Data().Bytes(1)
	if err != nil {
		o.log.Error("reading U plane failed", "error", err)
		return
	}
	vPlane, err := raw.Data().Bytes(2)
	if err != nil {
		o.log.Error("reading V plane failed", "error", err)
		return
	}

	ls := raw.Linesize()
	if err := o.texture.UpdateYUV(nil,
		yPlane, ls[0],
		uPlane, ls[1],
		vPlane, ls[2],
	); err != nil {
		o.log.Error("texture upload failed", "error", err)
		return
	}

	o.renderer.SetDrawColor(0, 0, 0, 255)
	o.renderer.Clear()
	o.renderer.Copy(o.texture, nil, o.letterbox())
	o.renderer.Present()
}

// letterbox computes the centred, aspect-preserving destination rect for
// blitting the source-resolution texture into the fixed window (spec
// §4.6 step 5, §GLOSSARY "Letterbox"). Scale is computed in floating point,
// matching original_source/Windows/code/videooutput.cpp's CalcLetterBoxRect
// exactly: a source larger than the window downscales proportionally
// instead of degenerating under integer division.
func (o *Output) letterbox() *sdl.Rect {
	scale := math.Min(float64(windowWidth)/float64(o.width), float64(windowHeight)/float64(o.height))

	w := int(float64(o.width) * scale)
	h := int(float64(o.height) * scale)
	return &sdl.Rect{
		X: int32((windowWidth - w) / 2),
		Y: int32((windowHeight - h) / 2),
		W: int32(w),
		H: int32(h),
	}
}
