package playback

import (
	"sync/atomic"

	"keysound/pkg/audioengine"

	"github.com/faiface/beep"
	"github.com/faiface/beep/effects"
)

// Graph is the transient source → gain → output chain of one key press.
type Graph struct {
	ID      uint64
	Profile string
	Variant int
	Gain    float64

	source beep.Streamer
	gain   *effects.Gain
	output beep.Streamer

	ended   atomic.Bool
	done    chan struct{}
	onEnded func(*Graph)
}

func newGraph(id uint64, profile string, variant int, gain float64, sample *audioengine.Sample, onEnded func(*Graph)) *Graph {
	g := &Graph{
		ID:      id,
		Profile: profile,
		Variant: variant,
		Gain:    gain,
		done:    make(chan struct{}),
		onEnded: onEnded,
	}
	g.source = sample.Streamer()
	// effects.Gain mengalikan dengan (1 + Gain)
	g.gain = &effects.Gain{Streamer: g.source, Gain: gain - 1}
	g.output = beep.Seq(g.gain, beep.Callback(g.disconnect))
	return g
}

// disconnect runs on the audio goroutine once the source drained.
func (g *Graph) disconnect() {
	if !g.ended.CompareAndSwap(false, true) {
		return
	}
	g.gain.Streamer = nil
	g.source = nil
	close(g.done)
	if g.onEnded != nil {
		g.onEnded(g)
	}
}

// Ended reports whether playback finished and both nodes were released.
func (g *Graph) Ended() bool { return g.ended.Load() }

// Done is closed when the graph ends.
func (g *Graph) Done() <-chan struct{} { return g.done }
