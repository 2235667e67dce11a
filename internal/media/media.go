// Package media defines the opaque, reference-counted units that flow
// through the pipeline — compressed Packets between demuxer and decoder,
// decoded Frames between decoder and output — plus the per-stream static
// descriptors learned once at open time.
package media

import (
	"time"

	"github.com/asticode/go-astiav"
)

// StreamKind distinguishes the two elementary streams this player handles.
// Any other stream type reported by the container is ignored by the
// demuxer (spec §4.3 step 4: "else release").
type StreamKind int

const (
	KindAudio StreamKind = iota
	KindVideo
)

func (k StreamKind) String() string {
	if k == KindAudio {
		return "audio"
	}
	return "video"
}

// StreamDescriptor holds the per-stream static parameters learned once
// after Demuxer.Open and held immutable for the session: codec identity,
// the stream's time base, and codec-specific parameters needed to
// initialise a matching Decoder.
type StreamDescriptor struct {
	Index      int
	Kind       StreamKind
	TimeBase   astiav.Rational
	CodecPars  *astiav.CodecParameters
	SampleRate int // audio only
	Channels   int // audio only
	Width      int // video only
	Height     int // video only
}

// PTSSeconds converts a presentation timestamp expressed in this stream's
// time base into seconds.
func (d StreamDescriptor) PTSSeconds(pts int64) time.Duration {
	return time.Duration(d.TimeBase.Num()) * time.Duration(pts) * time.Second / time.Duration(d.TimeBase.Den())
}

// Packet is a compressed unit read from the container by the Demuxer. It
// is exclusively owned by whichever queue or decoder currently holds it and
// must be released exactly once, either by the decoder once its payload has
// been copied into the codec's internal buffer, or by a queue drained on
// Abort.
type Packet struct {
	StreamIndex int
	Kind        StreamKind
	PTS         int64
	Duration    int64

	raw *astiav.Packet
}

// NewPacket wraps a freshly read astiav.Packet. Ownership of raw passes to
// the returned Packet.
func NewPacket(raw *astiav.Packet, kind StreamKind) *Packet {
	return &Packet{
		StreamIndex: raw.StreamIndex(),
		Kind:        kind,
		PTS:         raw.Pts(),
		Duration:    raw.Duration(),
		raw:         raw,
	}
}

// Raw exposes the underlying astiav.Packet for submission to a codec
// context. The caller must not retain it past Release.
func (p *Packet) Raw() *astiav.Packet { return p.raw }

// Release frees the underlying codec packet. A second call is a no-op;
// queues and decoders are structured so that exactly one owner calls it.
func (p *Packet) Release() {
	if p.raw != nil {
		p.raw.Free()
		p.raw = nil
	}
}

// Frame is a decoded unit produced by a Decoder, enqueued, and consumed
// exactly once by the matching output stage (AudioOutput or VideoOutput),
// which releases it after use.
type Frame struct {
	Kind StreamKind
	PTS  int64

	raw *astiav.Frame
}

// NewFrame wraps a decoded astiav.Frame. Ownership of raw passes to the
// returned Frame.
func NewFrame(raw *astiav.Frame, kind StreamKind) *Frame {
	return &Frame{
		Kind: kind,
		PTS:  raw.Pts(),
		raw:  raw,
	}
}

// Raw exposes the underlying astiav.Frame, e.g. for av_buffersrc_add_frame
// or direct plane access for texture upload.
func (f *Frame) Raw() *astiav.Frame { return f.raw }

// Release frees the underlying decoded frame.
func (f *Frame) Release() {
	if f.raw != nil {
		f.raw.Free()
		f.raw = nil
	}
}

// ReleasePacket and ReleaseFrame are queue release hooks — function values
// rather than methods so that queue.New[T] can take them directly without
// the queue package importing astiav at all.
func ReleasePacket(p *Packet) {
	if p != nil {
		p.Release()
	}
}

func ReleaseFrame(f *Frame) {
	if f != nil {
		f.Release()
	}
}
