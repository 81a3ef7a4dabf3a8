// Package samplecache fetches, decodes and holds every press sample of every
// catalog profile.
package samplecache

import (
	"context"
	"errors"
	"log"
	"math/rand/v2"
	"sync"
	"sync/atomic"
	"time"

	"keysound/internal/assets"
	"keysound/internal/catalog"
	"keysound/pkg/audioengine"
	"keysound/pkg/spec"

	"github.com/faiface/beep"
	"golang.org/x/sync/errgroup"
)

// ErrNoAudio is returned by PreloadAll when no audio context could be created.
var ErrNoAudio = errors.New("audio context unavailable")

type Logger interface {
	Printf(format string, args ...any)
}

// Rand picks uniform indices; *rand.Rand from math/rand/v2 satisfies it.
type Rand interface {
	IntN(n int) int
}

type globalRand struct{}

func (globalRand) IntN(n int) int { return rand.IntN(n) }

type Options struct {
	// NewContext creates the decoding/output context. Nil or failing means
	// the host has no audio capability.
	NewContext func() (audioengine.Context, error)
	// SampleRate for decoded buffers; zero follows the context.
	SampleRate beep.SampleRate
	// Workers bounds concurrent loads; zero loads everything at once.
	Workers      int
	FetchTimeout time.Duration
	// Ext is the decoder hint when magic bytes are inconclusive.
	Ext string
	// MaxGain is the loudest playback gain, used for the clipping report.
	MaxGain float64
	Logger  Logger
}

// Status counts the variant slots of one profile.
type Status struct {
	Loaded  int
	Failed  int
	Pending int
	Total   int
}

// bufferSet is one profile's slots. Each slot has exactly one writer.
type bufferSet struct {
	slots  []atomic.Pointer[audioengine.Sample]
	failed atomic.Int32
}

func (b *bufferSet) loaded() int {
	n := 0
	for i := range b.slots {
		if b.slots[i].Load() != nil {
			n++
		}
	}
	return n
}

type Cache struct {
	catalog *catalog.Catalog
	fetcher assets.Fetcher
	opts    Options

	mu      sync.RWMutex
	actx    audioengine.Context
	noAudio bool
	torn    bool
	preload chan struct{} // closed when the first PreloadAll settles

	// life guards slot writes against Teardown
	life  sync.RWMutex
	alive bool

	sets  atomic.Pointer[map[string]*bufferSet]
	ready atomic.Bool
}

func New(c *catalog.Catalog, f assets.Fetcher, opts Options) *Cache {
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	if opts.FetchTimeout <= 0 {
		opts.FetchTimeout = spec.FetchTimeout
	}
	if opts.MaxGain <= 0 {
		opts.MaxGain = spec.BaseGain + spec.GainVariation
	}
	return &Cache{catalog: c, fetcher: f, opts: opts}
}

// Initialize creates the audio context once. Without audio capability it
// logs a single warning and keeps returning false.
func (c *Cache) Initialize() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch {
	case c.actx != nil:
		return true
	case c.torn, c.noAudio:
		return false
	}

	var (
		actx audioengine.Context
		err  = ErrNoAudio
	)
	if c.opts.NewContext != nil {
		actx, err = c.opts.NewContext()
	}
	if err != nil {
		c.noAudio = true
		c.opts.Logger.Printf("[WARN] key sounds disabled: %v", err)
		return false
	}

	c.actx = actx
	c.life.Lock()
	c.alive = true
	c.life.Unlock()
	return true
}

// Context returns the audio context, or nil before Initialize or after Teardown.
func (c *Cache) Context() audioengine.Context {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.actx
}

// PreloadAll loads every profile × variant concurrently and returns once all
// of them settled. Individual failures are logged and leave the slot empty.
// Concurrent or repeated calls share the first run.
func (c *Cache) PreloadAll(ctx context.Context) error {
	c.mu.Lock()
	if c.actx == nil {
		c.mu.Unlock()
		return ErrNoAudio
	}
	actx := c.actx
	done := c.preload
	first := done == nil
	if first {
		done = make(chan struct{})
		c.preload = done
	}
	c.mu.Unlock()

	if !first {
		select {
		case <-done:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	defer close(done)

	rate := c.opts.SampleRate
	if rate == 0 {
		rate = actx.SampleRate()
	}

	profiles := c.catalog.List()
	sets := make(map[string]*bufferSet, len(profiles))
	for _, p := range profiles {
		sets[p.ID] = &bufferSet{slots: make([]atomic.Pointer[audioengine.Sample], p.Variants)}
	}
	c.life.RLock()
	if !c.alive {
		c.life.RUnlock()
		return nil
	}
	c.sets.Store(&sets)
	c.life.RUnlock()

	start := time.Now()
	var g errgroup.Group
	if c.opts.Workers > 0 {
		g.SetLimit(c.opts.Workers)
	}
	for _, p := range profiles {
		set := sets[p.ID]
		for v := 0; v < p.Variants; v++ {
			g.Go(func() error {
				c.load(ctx, rate, p, v, set)
				// kegagalan per slot bukan kegagalan preload
				return nil
			})
		}
	}
	_ = g.Wait()

	c.life.RLock()
	defer c.life.RUnlock()
	if !c.alive {
		return nil
	}
	c.report(profiles, sets, time.Since(start))
	c.ready.Store(true)
	return nil
}

func (c *Cache) load(ctx context.Context, rate beep.SampleRate, p catalog.Profile, v int, set *bufferSet) {
	path := assets.PressPath(p.Group, v)

	fctx, cancel := context.WithTimeout(ctx, c.opts.FetchTimeout)
	defer cancel()

	var sample *audioengine.Sample
	data, err := c.fetcher.Fetch(fctx, path)
	if err == nil {
		sample, err = audioengine.Decode(data, c.opts.Ext, rate)
	}

	c.life.RLock()
	defer c.life.RUnlock()
	if !c.alive {
		return
	}
	if err != nil {
		set.failed.Add(1)
		c.opts.Logger.Printf("[FAIL] %s variant %d (%s): %v", p.ID, v, path, err)
		return
	}
	set.slots[v].Store(sample)
}

func (c *Cache) report(profiles []catalog.Profile, sets map[string]*bufferSet, took time.Duration) {
	var loaded, failed int
	for _, p := range profiles {
		set := sets[p.ID]
		n, f := set.loaded(), int(set.failed.Load())
		loaded += n
		failed += f

		var peak float64
		for i := range set.slots {
			if s := set.slots[i].Load(); s != nil {
				peak = max(peak, s.Peak)
			}
		}
		c.opts.Logger.Printf("[LOAD] %-10s %d/%d variants", p.ID, n, len(set.slots))
		if peak*c.opts.MaxGain > 1 {
			c.opts.Logger.Printf("[WARN] %s may clip: peak %.2f at gain %.2f", p.ID, peak, c.opts.MaxGain)
		}
	}
	c.opts.Logger.Printf("[LOAD] preload settled in %s: %d loaded, %d failed", took.Round(time.Millisecond), loaded, failed)
}

// Ready reports whether the preload has settled and the cache is live.
func (c *Cache) Ready() bool { return c.ready.Load() }

// GetBuffer returns a random loaded variant of the profile, or nil.
func (c *Cache) GetBuffer(id string, r Rand) *audioengine.Sample {
	_, s, _ := c.Pick(id, r)
	return s
}

// Pick is GetBuffer that also reports the chosen variant index.
func (c *Cache) Pick(id string, r Rand) (int, *audioengine.Sample, bool) {
	sets := c.sets.Load()
	if sets == nil {
		return 0, nil, false
	}
	set := (*sets)[id]
	if set == nil {
		return 0, nil, false
	}

	var scratch [16]int
	avail := scratch[:0]
	for i := range set.slots {
		if set.slots[i].Load() != nil {
			avail = append(avail, i)
		}
	}
	if len(avail) == 0 {
		return 0, nil, false
	}
	if r == nil {
		r = globalRand{}
	}
	v := avail[r.IntN(len(avail))]
	return v, set.slots[v].Load(), true
}

// Sample returns one slot, or nil when it is absent or out of range.
func (c *Cache) Sample(id string, variant int) *audioengine.Sample {
	sets := c.sets.Load()
	if sets == nil {
		return nil
	}
	set := (*sets)[id]
	if set == nil || variant < 0 || variant >= len(set.slots) {
		return nil
	}
	return set.slots[variant].Load()
}

// Status reports slot counts for one profile. Unknown ids return zero.
func (c *Cache) Status(id string) Status {
	p, ok := c.catalog.Lookup(id)
	if !ok {
		return Status{}
	}
	st := Status{Total: p.Variants}

	sets := c.sets.Load()
	if sets == nil {
		st.Pending = st.Total
		return st
	}
	set := (*sets)[id]
	st.Loaded = set.loaded()
	st.Failed = int(set.failed.Load())
	st.Pending = st.Total - st.Loaded - st.Failed
	return st
}

// Teardown closes the context and drops every buffer. Loads that finish
// afterwards are discarded. Safe to call repeatedly.
func (c *Cache) Teardown() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.torn {
		return
	}
	c.torn = true

	c.life.Lock()
	c.alive = false
	c.ready.Store(false)
	c.sets.Store(nil)
	c.life.Unlock()

	if c.actx != nil {
		if err := c.actx.Close(); err != nil {
			c.opts.Logger.Printf("[WARN] close audio context: %v", err)
		}
		c.actx = nil
	}
}
