// Package playback turns key presses into one-shot sounds of the active
// profile.
package playback

import (
	"log"
	"math"
	"math/rand/v2"
	"sync"
	"sync/atomic"

	"keysound/internal/catalog"
	"keysound/internal/samplecache"
	"keysound/internal/store"
	"keysound/pkg/audioengine"
	"keysound/pkg/spec"
)

type Logger interface {
	Printf(format string, args ...any)
}

// Rand is the randomness behind variant and gain selection.
type Rand interface {
	IntN(n int) int
	Float64() float64
}

type Options struct {
	// BaseGain and GainRange bound the per-press gain to
	// [BaseGain, BaseGain+GainRange). Both zero selects the defaults.
	BaseGain  float64
	GainRange float64
	Rand      Rand
	Logger    Logger
}

type Engine struct {
	catalog *catalog.Catalog
	cache   *samplecache.Cache
	store   store.Store
	opts    Options

	// trig menserialisasi Trigger dan melindungi rng
	trig sync.Mutex

	pmu    sync.RWMutex
	active string

	resuming atomic.Bool
	nextID   atomic.Uint64
	live     atomic.Int64
}

// NewEngine restores the persisted profile, falling back to the default.
// A nil store disables persistence.
func NewEngine(c *catalog.Catalog, cache *samplecache.Cache, st store.Store, opts Options) *Engine {
	if opts.BaseGain == 0 && opts.GainRange == 0 {
		opts.BaseGain, opts.GainRange = spec.BaseGain, spec.GainVariation
	}
	if opts.Rand == nil {
		opts.Rand = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}

	e := &Engine{catalog: c, cache: cache, store: st, opts: opts}
	e.active = fallbackProfile(c)
	if st != nil {
		if v, ok := st.Get(spec.ProfileKey); ok {
			if c.Contains(v) {
				e.active = v
			} else {
				opts.Logger.Printf("[WARN] ignoring persisted profile %q", v)
			}
		}
	}
	return e
}

func fallbackProfile(c *catalog.Catalog) string {
	if c.Contains(spec.DefaultProfile) || c.Len() == 0 {
		return spec.DefaultProfile
	}
	return c.IDs()[0]
}

// SetActiveProfile switches profiles. Unknown ids are ignored and return
// false. A failed persist is logged; the switch still happens.
func (e *Engine) SetActiveProfile(id string) bool {
	if !e.catalog.Contains(id) {
		return false
	}
	if e.store != nil {
		if err := e.store.Set(spec.ProfileKey, id); err != nil {
			e.opts.Logger.Printf("[WARN] persist profile %q: %v", id, err)
		}
	}
	e.pmu.Lock()
	e.active = id
	e.pmu.Unlock()
	return true
}

func (e *Engine) ActiveProfile() string {
	e.pmu.RLock()
	defer e.pmu.RUnlock()
	return e.active
}

// Trigger plays one random variant of the active profile and returns its
// graph, or nil when nothing could play. It never blocks on the device.
func (e *Engine) Trigger() *Graph {
	e.trig.Lock()
	defer e.trig.Unlock()

	if !e.cache.Ready() {
		return nil
	}
	actx := e.cache.Context()
	if actx == nil {
		return nil
	}
	if actx.State() == audioengine.StateSuspended {
		e.resume(actx)
	}

	profile := e.ActiveProfile()
	variant, sample, ok := e.cache.Pick(profile, e.opts.Rand)
	if !ok {
		return nil
	}

	g := newGraph(e.nextID.Add(1), profile, variant, e.gain(), sample, e.ended)
	e.live.Add(1)
	actx.Play(g.output)
	return g
}

// gain draws from [BaseGain, BaseGain+GainRange).
func (e *Engine) gain() float64 {
	lo, hi := e.opts.BaseGain, e.opts.BaseGain+e.opts.GainRange
	g := lo + e.opts.Rand.Float64()*e.opts.GainRange
	if g >= hi && hi > lo {
		g = math.Nextafter(hi, lo)
	}
	return g
}

// resume runs detached; at most one attempt is in flight.
func (e *Engine) resume(actx audioengine.Context) {
	if !e.resuming.CompareAndSwap(false, true) {
		return
	}
	go func() {
		defer e.resuming.Store(false)
		if err := actx.Resume(); err != nil {
			e.opts.Logger.Printf("[WARN] resume audio context: %v", err)
		}
	}()
}

func (e *Engine) ended(*Graph) { e.live.Add(-1) }

// Live counts graphs that started and have not ended yet.
func (e *Engine) Live() int { return int(e.live.Load()) }
