package audio

import "github.com/asticode/go-astiav"

// Params describes a PCM format: sample format, channel layout, and
// sample rate. Output's source format comes from the decoder's native
// format; its destination format, built by SinkParams, is the OS sink's
// fixed target (signed 16-bit interleaved stereo at the device's
// configured rate).
type Params struct {
	SampleRate    int
	ChannelLayout astiav.ChannelLayout
	SampleFormat  astiav.SampleFormat
}

// Equal reports whether two formats match exactly — the condition under
// which the resampler fallback path can be skipped (spec §4.5(b)).
func (p Params) Equal(o Params) bool {
	return p.SampleRate == o.SampleRate &&
		p.SampleFormat == o.SampleFormat &&
		p.ChannelLayout.String() == o.ChannelLayout.String()
}

// SinkParams returns the fixed format the OS audio sink accepts: stereo,
// signed 16-bit interleaved, at deviceRate.
func SinkParams(deviceRate int) Params {
	return Params{
		SampleRate:    deviceRate,
		ChannelLayout: astiav.ChannelLayoutStereo,
		SampleFormat:  astiav.SampleFormatS16,
	}
}
