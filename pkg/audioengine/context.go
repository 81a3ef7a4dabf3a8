package audioengine

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/faiface/beep"
	"github.com/faiface/beep/speaker"
)

// State mirrors the lifecycle of an output context.
type State int32

const (
	StateRunning State = iota
	StateSuspended
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateRunning:
		return "running"
	case StateSuspended:
		return "suspended"
	case StateClosed:
		return "closed"
	}
	return fmt.Sprintf("state(%d)", int32(s))
}

// ErrContextClosed is returned by Resume once Close has been called.
var ErrContextClosed = errors.New("audio context closed")

// Context is the decoding/output context every buffer is bound to.
//
// Play never blocks. Streamers played on a suspended context wait until Resume;
// streamers played on a closed context are dropped.
type Context interface {
	SampleRate() beep.SampleRate
	State() State
	Resume() error
	Play(s beep.Streamer)
	Close() error
}

// === SPEAKER ===

// SpeakerContext drives the system speaker. The speaker package is a process
// singleton, so only one SpeakerContext should be open at a time.
type SpeakerContext struct {
	rate  beep.SampleRate
	mixer *beep.Mixer
	ctrl  *beep.Ctrl
	state atomic.Int32
}

// NewSpeakerContext opens the speaker. A failing Init means the host has no
// usable audio output.
func NewSpeakerContext(rate beep.SampleRate, buffer time.Duration) (*SpeakerContext, error) {
	if err := speaker.Init(rate, rate.N(buffer)); err != nil {
		return nil, fmt.Errorf("speaker init: %w", err)
	}
	mixer := &beep.Mixer{}
	sc := &SpeakerContext{
		rate:  rate,
		mixer: mixer,
		ctrl:  &beep.Ctrl{Streamer: mixer},
	}
	// mixer tidak pernah habis, jadi satu Play cukup selama context hidup
	speaker.Play(sc.ctrl)
	return sc, nil
}

func (sc *SpeakerContext) SampleRate() beep.SampleRate { return sc.rate }

func (sc *SpeakerContext) State() State { return State(sc.state.Load()) }

func (sc *SpeakerContext) Play(s beep.Streamer) {
	speaker.Lock()
	defer speaker.Unlock()
	if sc.State() == StateClosed {
		return
	}
	sc.mixer.Add(s)
}

// Suspend pauses output. Queued streamers keep their position.
func (sc *SpeakerContext) Suspend() error {
	speaker.Lock()
	defer speaker.Unlock()
	if sc.State() == StateClosed {
		return ErrContextClosed
	}
	sc.ctrl.Paused = true
	sc.state.Store(int32(StateSuspended))
	return nil
}

func (sc *SpeakerContext) Resume() error {
	speaker.Lock()
	defer speaker.Unlock()
	if sc.State() == StateClosed {
		return ErrContextClosed
	}
	sc.ctrl.Paused = false
	sc.state.Store(int32(StateRunning))
	return nil
}

func (sc *SpeakerContext) Close() error {
	if State(sc.state.Swap(int32(StateClosed))) == StateClosed {
		return nil
	}
	speaker.Lock()
	sc.mixer.Clear()
	speaker.Unlock()
	speaker.Clear()
	speaker.Close()
	return nil
}

// === OFFLINE ===

// OfflineContext renders into memory instead of a device. Output advances only
// when Render is called, which makes it usable on headless hosts.
type OfflineContext struct {
	rate beep.SampleRate

	mu     sync.Mutex
	mixer  beep.Mixer
	state  State
	played int
}

func NewOfflineContext(rate beep.SampleRate) *OfflineContext {
	return &OfflineContext{rate: rate}
}

func (oc *OfflineContext) SampleRate() beep.SampleRate { return oc.rate }

func (oc *OfflineContext) State() State {
	oc.mu.Lock()
	defer oc.mu.Unlock()
	return oc.state
}

func (oc *OfflineContext) Play(s beep.Streamer) {
	oc.mu.Lock()
	defer oc.mu.Unlock()
	if oc.state == StateClosed {
		return
	}
	oc.mixer.Add(s)
	oc.played++
}

func (oc *OfflineContext) Suspend() error {
	oc.mu.Lock()
	defer oc.mu.Unlock()
	if oc.state == StateClosed {
		return ErrContextClosed
	}
	oc.state = StateSuspended
	return nil
}

func (oc *OfflineContext) Resume() error {
	oc.mu.Lock()
	defer oc.mu.Unlock()
	if oc.state == StateClosed {
		return ErrContextClosed
	}
	oc.state = StateRunning
	return nil
}

func (oc *OfflineContext) Close() error {
	oc.mu.Lock()
	defer oc.mu.Unlock()
	oc.state = StateClosed
	oc.mixer.Clear()
	return nil
}

// Render mixes the next frames of output. A suspended or closed context
// renders silence without advancing queued streamers.
func (oc *OfflineContext) Render(frames int) [][2]float64 {
	out := make([][2]float64, frames)
	oc.mu.Lock()
	defer oc.mu.Unlock()
	if oc.state != StateRunning || frames == 0 {
		return out
	}
	oc.mixer.Stream(out)
	return out
}

// Active is the number of streamers still queued in the mixer.
func (oc *OfflineContext) Active() int {
	oc.mu.Lock()
	defer oc.mu.Unlock()
	return oc.mixer.Len()
}

// Played counts every streamer accepted by Play.
func (oc *OfflineContext) Played() int {
	oc.mu.Lock()
	defer oc.mu.Unlock()
	return oc.played
}
