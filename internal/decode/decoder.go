package decode

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/asticode/go-astiav"

	"github.com/zsiec/prism-player/internal/media"
	"github.com/zsiec/prism-player/internal/pausegate"
	"github.com/zsiec/prism-player/internal/queue"
)

// FrameHighWatermark is the soft depth above which a Decoder sleeps
// instead of pushing another frame. Lower than PacketHighWatermark because
// decoded frame buffers are much larger than compressed packets (spec
// §4.4 step 2).
const FrameHighWatermark = 10

// packetPopTimeout bounds how long Pop blocks for an input packet, so
// pause/stop remain responsive even when no packets are arriving (spec
// §4.4 step 3).
const packetPopTimeout = 10 * time.Millisecond

type decoderState int

const (
	decoderIdle decoderState = iota
	decoderInitialised
	decoderRunning
	decoderStopped
)

// Decoder is the shared worker contract for both the audio and video
// stages: pop a packet, submit it to the codec, drain zero or more decoded
// frames, repeat. Non-fatal codec errors terminate the worker but never
// abort the shared queues — the controller's stop sequence tears those
// down explicitly.
type Decoder struct {
	log  *slog.Logger
	kind media.StreamKind

	mu       sync.Mutex
	state    decoderState
	codecCtx *astiav.CodecContext

	stopCh chan struct{}
	doneCh chan struct{}
}

// NewDecoder creates an uninitialised Decoder for the given stream kind.
func NewDecoder(kind media.StreamKind, log *slog.Logger) *Decoder {
	if log == nil {
		log = slog.Default()
	}
	return &Decoder{
		log:   log.With("component", "decoder", "kind", kind.String()),
		kind:  kind,
		state: decoderIdle,
	}
}

// Init prepares the codec context from the stream's parameters.
func (d *Decoder) Init(desc media.StreamDescriptor) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.state != decoderIdle {
		return ErrWrongState
	}

	codec := astiav.FindDecoder(desc.CodecPars.CodecID())
	if codec == nil {
		return ErrUnsupportedCodec
	}

	ctx := astiav.AllocCodecContext(codec)
	if ctx == nil {
		return fmt.Errorf("decode: allocating codec context failed")
	}
	if err := desc.CodecPars.ToCodecContext(ctx); err != nil {
		ctx.Free()
		return fmt.Errorf("decode: copying codec parameters: %w", err)
	}
	ctx.SetTimeBase(desc.TimeBase)
	if err := ctx.Open(codec, nil); err != nil {
		ctx.Free()
		return fmt.Errorf("decode: opening codec %s: %w", codec.Name(), err)
	}

	d.codecCtx = ctx
	d.state = decoderInitialised
	return nil
}

// Start launches the decode loop.
func (d *Decoder) Start(gate *pausegate.Gate, packetQ *queue.BoundedQueue[*media.Packet], frameQ *queue.BoundedQueue[*media.Frame]) error {
	d.mu.Lock()
	if d.state != decoderInitialised {
		d.mu.Unlock()
		return ErrWrongState
	}
	d.state = decoderRunning
	d.stopCh = make(chan struct{})
	d.doneCh = make(chan struct{})
	d.mu.Unlock()

	go d.run(gate, packetQ, frameQ)
	return nil
}

func (d *Decoder) run(gate *pausegate.Gate, packetQ *queue.BoundedQueue[*media.Packet], frameQ *queue.BoundedQueue[*media.Frame]) {
	defer close(d.doneCh)

	for {
		if d.stopping() {
			return
		}
		gate.Block()
		if d.stopping() {
			return
		}

		for frameQ.Size() > FrameHighWatermark {
			select {
			case <-d.stopCh:
				return
			case <-time.After(backpressureSleep):
			}
		}

		res := packetQ.Pop(packetPopTimeout)
		switch res.Status {
		case queue.PopAborted:
			return
		case queue.PopTimedOut:
			continue
		}

		pkt := res.Item
		err := d.codecCtx.SendPacket(pkt.Raw())
		pkt.Release()
		if err != nil && !errors.Is(err, astiav.ErrEagain) {
			d.log.Error("codec submit failed, terminating decoder", "error", err)
			return
		}

		for {
			frame := astiav.AllocFrame()
			if err := d.codecCtx.ReceiveFrame(frame); err != nil {
				frame.Free()
				if errors.Is(err, astiav.ErrEagain) || errors.Is(err, astiav.ErrEof) {
					// EAGAIN ("need more input") or EOF: either way, go back
					// to step 1 and pop the next packet (spec §4.4 step 5).
					break
				}
				d.log.Error("codec receive failed, terminating decoder", "error", err)
				return
			}
			frameQ.Push(media.NewFrame(frame, d.kind))
		}
	}
}

func (d *Decoder) stopping() bool {
	select {
	case <-d.stopCh:
		return true
	default:
		return false
	}
}

// AudioFormat returns the audio decoder's native output format — the
// "decoder's runtime parameters" the Controller uses to construct
// AudioOutput's source format (spec §4.7 step 4). Only meaningful for a
// Decoder constructed with media.KindAudio.
func (d *Decoder) AudioFormat() (astiav.ChannelLayout, astiav.SampleFormat, int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.codecCtx.ChannelLayout(), d.codecCtx.SampleFormat(), d.codecCtx.SampleRate()
}

// Flush resets internal codec state and discards frames buffered inside
// the codec — not those already pushed downstream.
func (d *Decoder) Flush() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.codecCtx != nil {
		d.codecCtx.FlushBuffers()
	}
}

// Stop signals the worker and joins it. Idempotent.
func (d *Decoder) Stop(_ context.Context) error {
	d.mu.Lock()
	if d.state == decoderStopped || d.state == decoderIdle || d.state == decoderInitialised {
		d.state = decoderStopped
		codecCtx := d.codecCtx
		d.codecCtx = nil
		d.mu.Unlock()
		if codecCtx != nil {
			codecCtx.Free()
		}
		return nil
	}
	d.state = decoderStopped
	d.mu.Unlock()

	close(d.stopCh)
	<-d.doneCh

	d.mu.Lock()
	codecCtx := d.codecCtx
	d.codecCtx = nil
	d.mu.Unlock()
	if codecCtx != nil {
		codecCtx.Free()
	}
	return nil
}
