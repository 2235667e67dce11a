package audio

import (
	"fmt"
	"strconv"

	"github.com/asticode/go-astiav"
)

// tempoFilter owns the three-node source→atempo→sink graph used to change
// playback speed while preserving pitch (spec §4.5(a)). It is rebuilt, not
// hot-patched, on every SetSpeed call that changes the speed, because atempo does not support
// live reconfiguration of its tempo argument.
type tempoFilter struct {
	graph      *astiav.FilterGraph
	buffersrc  *astiav.BuffersrcFilterContext
	buffersink *astiav.BuffersinkFilterContext
	params     Params
	timeBase   astiav.Rational
	tempo      float64
}

func newTempoFilter(params Params, timeBase astiav.Rational, tempo float64) (*tempoFilter, error) {
	f := &tempoFilter{params: params, timeBase: timeBase}
	if err := f.build(tempo); err != nil {
		return nil, err
	}
	return f, nil
}

func (f *tempoFilter) build(tempo float64) error {
	graph := astiav.AllocFilterGraph()
	if graph == nil {
		return fmt.Errorf("audio: allocating filter graph failed")
	}

	srcFilter := astiav.FindFilterByName("abuffer")
	sinkFilter := astiav.FindFilterByName("abuffersink")
	if srcFilter == nil || sinkFilter == nil {
		graph.Free()
		return fmt.Errorf("audio: abuffer/abuffersink filters unavailable")
	}

	args := astiav.FilterArgs{
		"time_base":      f.timeBase.String(),
		"sample_rate":    strconv.Itoa(f.params.SampleRate),
		"sample_fmt":     f.params.SampleFormat.Name(),
		"channel_layout": f.params.ChannelLayout.String(),
	}

	buffersrc, err := graph.NewBuffersrcFilterContext(srcFilter, "prism_src", args)
	if err != nil {
		graph.Free()
		return fmt.Errorf("audio: creating abuffer context: %w", err)
	}
	buffersink, err := graph.NewBuffersinkFilterContext(sinkFilter, "prism_sink", nil)
	if err != nil {
		graph.Free()
		return fmt.Errorf("audio: creating abuffersink context: %w", err)
	}

	outputs := astiav.AllocFilterInOut()
	defer outputs.Free()
	outputs.SetName("in")
	outputs.SetFilterContext(buffersrc.FilterContext())
	outputs.SetPadIdx(0)
	outputs.SetNext(nil)

	inputs := astiav.AllocFilterInOut()
	defer inputs.Free()
	inputs.SetName("out")
	inputs.SetFilterContext(buffersink.FilterContext())
	inputs.SetPadIdx(0)
	inputs.SetNext(nil)

	desc := fmt.Sprintf("atempo=%.4f", tempo)
	if err := graph.Parse(desc, inputs, outputs); err != nil {
		graph.Free()
		return fmt.Errorf("audio: parsing filter graph %q: %w", desc, err)
	}
	if err := graph.Configure(); err != nil {
		graph.Free()
		return fmt.Errorf("audio: configuring filter graph: %w", err)
	}

	f.graph = graph
	f.buffersrc = buffersrc
	f.buffersink = buffersink
	f.tempo = tempo
	return nil
}

// push submits a decoded frame to the source end of the graph. Ownership
// of in is not taken; the graph copies what it needs.
func (f *tempoFilter) push(in *astiav.Frame) error {
	return f.buffersrc.AddFrame(in, astiav.NewBuffersrcFlags())
}

// pull reads one filtered frame from the sink end, if available. Returns
// astiav.ErrEagain when the graph needs more input before it can produce
// output — not an error condition, just "try again after another push".
func (f *tempoFilter) pull(out *astiav.Frame) error {
	return f.buffersink.GetFrame(out, astiav.NewBuffersinkFlags())
}

func (f *tempoFilter) close() {
	if f.graph != nil {
		f.graph.Free()
		f.graph = nil
	}
}
