package audio

import (
	"fmt"

	"github.com/asticode/go-astiav"
)

// resampler wraps an ffmpeg SoftwareResampleContext, lazily built the
// first time a filtered frame's format disagrees with the sink's target
// (spec §4.5(b)). Once built it is reused for every subsequent frame; it
// is not torn down on SetSpeed because tempo change does not affect the
// filter graph's output format.
type resampler struct {
	ctx *astiav.SoftwareResampleContext
	dst Params
}

// newResampler allocates a swresample context. It is left unconfigured:
// libswresample configures itself from the src/dst frames passed to the
// first ConvertFrame call, so there is no separate option-setting step.
func newResampler(dst Params) (*resampler, error) {
	ctx := astiav.AllocSoftwareResampleContext()
	if ctx == nil {
		return nil, fmt.Errorf("audio: allocating resample context failed")
	}
	return &resampler{ctx: ctx, dst: dst}, nil
}

// convert resamples in into a freshly allocated frame in the destination
// format. The caller owns and must release the returned frame.
func (r *resampler) convert(in *astiav.Frame) (*astiav.Frame, error) {
	out := astiav.AllocFrame()
	out.SetSampleRate(r.dst.SampleRate)
	out.SetChannelLayout(r.dst.ChannelLayout)
	out.SetSampleFormat(r.dst.SampleFormat)

	if err := r.ctx.ConvertFrame(in, out); err != nil {
		out.Free()
		return nil, fmt.Errorf("audio: resampling frame: %w", err)
	}
	return out, nil
}

func (r *resampler) close() {
	if r.ctx != nil {
		r.ctx.Free()
		r.ctx = nil
	}
}
