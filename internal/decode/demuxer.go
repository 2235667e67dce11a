package decode

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/asticode/go-astiav"

	"github.com/zsiec/prism-player/internal/media"
	"github.com/zsiec/prism-player/internal/pausegate"
	"github.com/zsiec/prism-player/internal/queue"
)

// PacketHighWatermark is the soft depth above which the demuxer sleeps
// instead of pushing another packet, preventing unbounded memory growth
// when a decoder stalls (spec §4.3 step 2).
const PacketHighWatermark = 100

// backpressureSleep is how long the demuxer sleeps before re-checking
// queue depth, and also the idle retry interval used by Decoder.
const backpressureSleep = 10 * time.Millisecond

type demuxerState int

const (
	demuxerIdle demuxerState = iota
	demuxerOpened
	demuxerRunning
	demuxerStopped
)

// Demuxer reads framed packets from a container via go-astiav and routes
// each to the matching per-stream packet queue, applying backpressure when
// a downstream queue backs up. One goroutine per Demuxer once started.
type Demuxer struct {
	log *slog.Logger

	mu    sync.Mutex
	state demuxerState

	fc        *astiav.FormatContext
	audioDesc media.StreamDescriptor
	videoDesc media.StreamDescriptor

	stopCh chan struct{}
	doneCh chan struct{}
}

// NewDemuxer creates an unopened Demuxer. If log is nil, slog.Default() is
// used.
func NewDemuxer(log *slog.Logger) *Demuxer {
	if log == nil {
		log = slog.Default()
	}
	return &Demuxer{log: log.With("component", "demuxer"), state: demuxerIdle}
}

// Open resolves stream descriptors for url. It must succeed before Start.
// Returns ErrNoAudioStream/ErrNoVideoStream if the container lacks one of
// the two elementary streams this player requires.
func (d *Demuxer) Open(url string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.state != demuxerIdle {
		return ErrWrongState
	}

	fc := astiav.AllocFormatContext()
	if fc == nil {
		return fmt.Errorf("decode: allocating format context failed")
	}

	if err := fc.OpenInput(url, nil, nil); err != nil {
		fc.Free()
		return fmt.Errorf("decode: opening %q: %w", url, err)
	}
	if err := fc.FindStreamInfo(nil); err != nil {
		fc.CloseInput()
		return fmt.Errorf("decode: probing stream info: %w", err)
	}

	var haveAudio, haveVideo bool
	for _, s := range fc.Streams() {
		pars := s.CodecParameters()
		switch pars.MediaType() {
		case astiav.MediaTypeAudio:
			if haveAudio {
				continue // first audio stream only; multi-track selection is a non-goal
			}
			haveAudio = true
			d.audioDesc = media.StreamDescriptor{
				Index:      s.Index(),
				Kind:       media.KindAudio,
				TimeBase:   s.TimeBase(),
				CodecPars:  pars,
				SampleRate: pars.SampleRate(),
				Channels:   pars.ChannelLayout().Channels(),
			}
		case astiav.MediaTypeVideo:
			if haveVideo {
				continue
			}
			haveVideo = true
			d.videoDesc = media.StreamDescriptor{
				Index:     s.Index(),
				Kind:      media.KindVideo,
				TimeBase:  s.TimeBase(),
				CodecPars: pars,
				Width:     pars.Width(),
				Height:    pars.Height(),
			}
		}
	}

	if !haveAudio {
		fc.CloseInput()
		return ErrNoAudioStream
	}
	if !haveVideo {
		fc.CloseInput()
		return ErrNoVideoStream
	}

	d.fc = fc
	d.state = demuxerOpened
	d.log.Info("stream opened",
		"audio_stream", d.audioDesc.Index, "audio_rate", d.audioDesc.SampleRate, "audio_channels", d.audioDesc.Channels,
		"video_stream", d.videoDesc.Index, "video_size", fmt.Sprintf("%dx%d", d.videoDesc.Width, d.videoDesc.Height),
	)
	return nil
}

// AudioStream returns the audio stream descriptor learned by Open.
func (d *Demuxer) AudioStream() media.StreamDescriptor {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.audioDesc
}

// VideoStream returns the video stream descriptor learned by Open.
func (d *Demuxer) VideoStream() media.StreamDescriptor {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.videoDesc
}

// Start launches the demuxer's read loop. gate is the shared pause
// barrier; audioQ/videoQ receive routed packets.
func (d *Demuxer) Start(gate *pausegate.Gate, audioQ, videoQ *queue.BoundedQueue[*media.Packet]) error {
	d.mu.Lock()
	if d.state != demuxerOpened {
		d.mu.Unlock()
		return ErrWrongState
	}
	d.state = demuxerRunning
	d.stopCh = make(chan struct{})
	d.doneCh = make(chan struct{})
	d.mu.Unlock()

	go d.run(gate, audioQ, videoQ)
	return nil
}

func (d *Demuxer) run(gate *pausegate.Gate, audioQ, videoQ *queue.BoundedQueue[*media.Packet]) {
	defer close(d.doneCh)

	audioIndex := d.audioDesc.Index
	videoIndex := d.videoDesc.Index

	for {
		if d.stopping() {
			return
		}

		gate.Block()

		if d.stopping() {
			return
		}

		for audioQ.Size() > PacketHighWatermark || videoQ.Size() > PacketHighWatermark {
			select {
			case <-d.stopCh:
				return
			case <-time.After(backpressureSleep):
			}
		}

		pkt := astiav.AllocPacket()
		if err := d.fc.ReadFrame(pkt); err != nil {
			// End-of-stream or a read error: both terminate the demuxer
			// loop per spec §7 (normal termination / currently-fatal
			// transient error). Downstream stages drain naturally.
			pkt.Free()
			d.log.Info("demuxer read loop ended", "error", err)
			return
		}

		switch pkt.StreamIndex() {
		case audioIndex:
			audioQ.Push(media.NewPacket(pkt, media.KindAudio))
		case videoIndex:
			videoQ.Push(media.NewPacket(pkt, media.KindVideo))
		default:
			pkt.Free()
		}
	}
}

func (d *Demuxer) stopping() bool {
	select {
	case <-d.stopCh:
		return true
	default:
		return false
	}
}

// Stop signals the worker and joins it, then closes the container if one
// was opened. Idempotent: a second call on an already-stopped (or
// never-opened) Demuxer is a no-op.
func (d *Demuxer) Stop(_ context.Context) error {
	d.mu.Lock()
	if d.state == demuxerStopped || d.state == demuxerIdle {
		d.mu.Unlock()
		return nil
	}
	wasRunning := d.state == demuxerRunning
	d.state = demuxerStopped
	d.mu.Unlock()

	if wasRunning {
		close(d.stopCh)
		<-d.doneCh
	}
	if d.fc != nil {
		d.fc.CloseInput()
		d.fc.Free()
		d.fc = nil
	}
	return nil
}
