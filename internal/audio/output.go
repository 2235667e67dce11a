// Package audio implements AudioOutput, the hardest component in the
// pipeline (spec §4.5): a tempo-change filter graph, a lazily-initialised
// resampler fallback, and a pull-callback state machine that runs on a
// thread this application does not own, because the OS audio sink invokes
// it directly.
package audio

/*
#include <stdint.h>
#include <stdlib.h>

// Declares the shape of the exported Go callback so cgo can hand SDL a
// real C function pointer (sdl.AudioCallback is a typedef of
// SDL_AudioCallback; Go cannot be called directly as one without this).
extern void prismAudioCallback(void *userdata, uint8_t *stream, int len);
*/
import "C"

import (
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
	"unsafe"

	"github.com/asticode/go-astiav"
	"github.com/veandco/go-sdl2/sdl"

	"github.com/zsiec/prism-player/internal/clock"
	"github.com/zsiec/prism-player/internal/media"
	"github.com/zsiec/prism-player/internal/queue"
)

// MinSpeed and MaxSpeed bound set_speed. The atempo filter legally
// supports 0.5–2.0; this player further restricts to slow-down only (spec
// §3 Controller state invariants).
const (
	MinSpeed = 0.5
	MaxSpeed = 1.0
)

// refillTimeout bounds how long the callback waits for the next decoded
// frame before giving up and emitting a silence chunk (spec §4.5(c)).
const refillTimeout = 2 * time.Millisecond

// silenceChunkBytes is the synthetic chunk size emitted when no frame was
// available to refill with.
const silenceChunkBytes = 512

// singleton bridges the exported C callback back to the active Go
// instance. SDL's callback ABI carries a void* userdata we could use
// instead, but cgo export functions can't easily round-trip a Go pointer
// through it across the boundary, so a single package-level slot is kept
// — consistent with there being exactly one playback session at a time
// (spec §3 Controller state: one session per process).
var active atomic.Pointer[Output]

//export prismAudioCallback
func prismAudioCallback(_ unsafe.Pointer, stream *C.uint8_t, length C.int) {
	out := active.Load()
	if out == nil {
		return
	}
	buf := unsafe.Slice((*byte)(unsafe.Pointer(stream)), int(length))
	out.fill(buf)
}

// Output drives the OS audio sink's pull callback: it maintains a rolling
// private PCM buffer, refills it from the frame queue through the tempo
// filter (and resampler, if formats disagree), and ticks the MasterClock
// at the end of a non-paused invocation that installed a new frame. An
// invocation served entirely from the already-buffered frame, or one that
// only produced silence, does not tick the clock.
type Output struct {
	log      *slog.Logger
	frameQ   *queue.BoundedQueue[*media.Frame]
	clk      *clock.MasterClock
	timeBase astiav.Rational
	srcFmt   Params
	dstFmt   Params

	device sdl.AudioDeviceID

	paused atomic.Bool

	mu     sync.Mutex // guards filter/resampler/speed against SetSpeed racing Close
	filter *tempoFilter
	resamp *resampler
	speed  float64

	// buf/index (the buffer size is len(buf)) are written only by the SDL
	// callback goroutine and by SetSpeed under sdl.LockAudioDevice, which excludes the callback
	// for the duration of the lock — this is the one exception to "callback
	// is the sole writer" the design notes call out.
	buf   []byte
	index int
}

// New creates an Output bound to frameQ and clk. srcFmt is the decoder's
// native output format; dstFmt is the sink's fixed target format.
func New(log *slog.Logger, frameQ *queue.BoundedQueue[*media.Frame], clk *clock.MasterClock, timeBase astiav.Rational, srcFmt, dstFmt Params) *Output {
	if log == nil {
		log = slog.Default()
	}
	return &Output{
		log:      log.With("component", "audio-output"),
		frameQ:   frameQ,
		clk:      clk,
		timeBase: timeBase,
		srcFmt:   srcFmt,
		dstFmt:   dstFmt,
		speed:    1.0,
	}
}

// Open configures the tempo filter graph at 1.0x and opens the SDL audio
// device with callback_buffer_samples = 512 (spec §6).
func (o *Output) Open() error {
	filter, err := newTempoFilter(o.srcFmt, o.timeBase, o.speed)
	if err != nil {
		return fmt.Errorf("audio: building initial filter graph: %w", err)
	}
	o.filter = filter

	spec := &sdl.AudioSpec{
		Freq:     int32(o.dstFmt.SampleRate),
		Format:   sdl.AUDIO_S16SYS,
		Channels: 2,
		Samples:  512,
		Callback: sdl.AudioCallback(C.prismAudioCallback),
	}
	obtained := &sdl.AudioSpec{}
	device, err := sdl.OpenAudioDevice("", false, spec, obtained, 0)
	if err != nil {
		filter.close()
		return fmt.Errorf("audio: opening sink device: %w", err)
	}
	o.device = device

	active.Store(o)
	sdl.PauseAudioDevice(device, false)
	return nil
}

// Close stops the sink and releases the filter graph and resampler.
func (o *Output) Close() error {
	if o.device != 0 {
		sdl.PauseAudioDevice(o.device, true)
		sdl.CloseAudioDevice(o.device)
	}
	active.CompareAndSwap(o, nil)

	o.mu.Lock()
	defer o.mu.Unlock()
	if o.filter != nil {
		o.filter.close()
		o.filter = nil
	}
	if o.resamp != nil {
		o.resamp.close()
		o.resamp = nil
	}
	return nil
}

// Pause sets a flag the callback observes on entry; no thread affinity is
// assumed, so it is an atomic rather than a device-lock operation.
func (o *Output) Pause() { o.paused.Store(true) }

// Resume clears the pause flag.
func (o *Output) Resume() { o.paused.Store(false) }

// IsPaused reports the current pause state.
func (o *Output) IsPaused() bool { return o.paused.Load() }

// Speed returns the current effective speed.
func (o *Output) Speed() float64 {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.speed
}

// SetSpeed clamps s to [MinSpeed, MaxSpeed] and, if it differs from the
// current speed, rebuilds the tempo filter graph at the new tempo. The
// resampler is left alone: its output format does not depend on tempo.
// The sink is paused (non-destructive silence) around the rebuild so the
// callback never observes a half-swapped graph or a buffer produced at
// the stale tempo.
func (o *Output) SetSpeed(s float64) {
	if s < MinSpeed {
		s = MinSpeed
	} else if s > MaxSpeed {
		s = MaxSpeed
	}

	o.mu.Lock()
	if s == o.speed {
		o.mu.Unlock()
		return
	}
	o.mu.Unlock()

	sdl.PauseAudioDevice(o.device, true)
	defer sdl.PauseAudioDevice(o.device, false)

	newFilter, err := newTempoFilter(o.srcFmt, o.timeBase, s)
	if err != nil {
		o.log.Error("rebuilding tempo filter failed, keeping previous speed", "error", err, "requested_speed", s)
		return
	}

	o.mu.Lock()
	old := o.filter
	o.filter = newFilter
	o.speed = s
	o.mu.Unlock()

	sdl.LockAudioDevice(o.device)
	o.buf = nil
	o.index = 0
	sdl.UnlockAudioDevice(o.device)

	old.close()
}

// fill runs on the SDL audio thread. It owns stream for the duration of
// the call and must fill all of it (spec §6 sink contract).
func (o *Output) fill(stream []byte) {
	offset := 0
	var tickPTS time.Duration
	ticked := false

	for offset < len(stream) {
		if o.paused.Load() {
			for i := offset; i < len(stream); i++ {
				stream[i] = 0
			}
			return // paused: no clock tick
		}

		if o.index >= len(o.buf) {
			if pts, ok := o.refill(); ok {
				tickPTS = pts
				ticked = true
			}
		}

		avail := len(o.buf) - o.index
		n := len(stream) - offset
		if n > avail {
			n = avail
		}
		// installSilence fills o.buf with zero bytes, so a plain copy
		// reproduces the "emit silence" case without a separate branch.
		copy(stream[offset:offset+n], o.buf[o.index:o.index+n])
		o.index += n
		offset += n
	}

	if ticked {
		o.clk.Set(tickPTS)
	}
}

// refill pops one frame (short timeout), pushes it through the tempo
// filter, and reads one filtered frame back, resampling it if its format
// disagrees with the sink's target. On success it installs the new
// payload into o.buf/o.index and returns the frame's sink-clock PTS. On
// failure (no input, or the filter has no output yet) it installs a
// silence chunk instead.
func (o *Output) refill() (time.Duration, bool) {
	res := o.frameQ.Pop(refillTimeout)
	if res.Status != queue.PopOK {
		o.installSilence()
		return 0, false
	}
	frame := res.Item
	defer frame.Release()

	if err := o.filter.push(frame.Raw()); err != nil {
		o.installSilence()
		return 0, false
	}

	filtered := astiav.AllocFrame()
	defer filtered.Free()
	if err := o.filter.pull(filtered); err != nil {
		o.installSilence()
		return 0, false
	}

	ptsSeconds := time.Duration(float64(filtered.Pts()) * o.timeBase.Float64() * float64(time.Second))

	filteredFmt := Params{
		SampleRate:    filtered.SampleRate(),
		ChannelLayout: filtered.ChannelLayout(),
		SampleFormat:  filtered.SampleFormat(),
	}

	var payload []byte
	if !filteredFmt.Equal(o.dstFmt) {
		o.mu.Lock()
		if o.resamp == nil {
			r, err := newResampler(o.dstFmt)
			if err != nil {
				o.mu.Unlock()
				o.log.Error("lazy resampler init failed, dropping frame", "error", err)
				o.installSilence()
				return 0, false
			}
			o.resamp = r
		}
		resamp := o.resamp
		o.mu.Unlock()

		out, err := resamp.convert(filtered)
		if err != nil {
			o.log.Error("resample failed, dropping frame", "error", err)
			o.installSilence()
			return 0, false
		}
		payload, err = cloneFrameBytes(out)
		out.Free()
		if err != nil {
			o.log.Error("reading resampled frame data, dropping frame", "error", err)
			o.installSilence()
			return 0, false
		}
	} else {
		p, err := cloneFrameBytes(filtered)
		if err != nil {
			o.log.Error("reading frame data, dropping frame", "error", err)
			o.installSilence()
			return 0, false
		}
		payload = p
	}

	o.buf = payload
	o.index = 0
	return ptsSeconds, true
}

func (o *Output) installSilence() {
	o.buf = make([]byte, silenceChunkBytes)
	o.index = 0
}

// cloneFrameBytes copies a frame's interleaved data-plane bytes into a
// freshly allocated Go slice, since the frame itself is released (or
// reused) immediately after this call.
func cloneFrameBytes(f *astiav.Frame) ([]byte, error) {
	plane, err := f.Data().Bytes(0)
	if err != nil {
		return nil, fmt.Errorf("audio: reading frame data: %w", err)
	}
	out := make([]byte, len(plane))
	copy(out, plane)
	return out, nil
}
