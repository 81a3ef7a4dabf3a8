// Package keysound is the surface a UI layer uses to give key presses an
// audible click.
package keysound

import (
	"context"
	"errors"
	"io"
	"log"
	"sync"
	"time"

	"keysound/internal/assets"
	"keysound/internal/catalog"
	"keysound/internal/config"
	"keysound/internal/playback"
	"keysound/internal/samplecache"
	"keysound/internal/store"
	"keysound/pkg/audioengine"

	"github.com/faiface/beep"
)

type Logger interface {
	Printf(format string, args ...any)
}

type Options struct {
	Catalog    *catalog.Catalog // nil uses catalog.Default()
	Fetcher    assets.Fetcher
	Store      store.Store // nil disables persistence
	NewContext func() (audioengine.Context, error)

	SampleRate   beep.SampleRate
	Workers      int
	FetchTimeout time.Duration
	Ext          string
	BaseGain     float64
	GainRange    float64
	Rand         playback.Rand
	Logger       Logger
}

// ProfileStatus is one row of Status.
type ProfileStatus struct {
	catalog.Profile
	samplecache.Status
}

// Sound owns the cache, the engine and their collaborators.
type Sound struct {
	catalog *catalog.Catalog
	cache   *samplecache.Cache
	engine  *playback.Engine
	store   store.Store
	fetcher assets.Fetcher
	logger  Logger

	mu      sync.Mutex
	started bool
	cancel  context.CancelFunc
	done    chan struct{}
	closed  bool
}

func New(opts Options) *Sound {
	if opts.Catalog == nil {
		opts.Catalog = catalog.Default()
	}
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}

	cache := samplecache.New(opts.Catalog, opts.Fetcher, samplecache.Options{
		NewContext:   opts.NewContext,
		SampleRate:   opts.SampleRate,
		Workers:      opts.Workers,
		FetchTimeout: opts.FetchTimeout,
		Ext:          opts.Ext,
		MaxGain:      opts.BaseGain + opts.GainRange,
		Logger:       opts.Logger,
	})
	engine := playback.NewEngine(opts.Catalog, cache, opts.Store, playback.Options{
		BaseGain:  opts.BaseGain,
		GainRange: opts.GainRange,
		Rand:      opts.Rand,
		Logger:    opts.Logger,
	})

	return &Sound{
		catalog: opts.Catalog,
		cache:   cache,
		engine:  engine,
		store:   opts.Store,
		fetcher: opts.Fetcher,
		logger:  opts.Logger,
		done:    make(chan struct{}),
	}
}

// Open wires a Sound from configuration: asset source, preference store and
// the system speaker.
func Open(cfg *config.Config, logger Logger) (*Sound, error) {
	fetcher, err := assets.Open(cfg.Assets, cfg.Ext, cfg.BankKey)
	if err != nil {
		return nil, err
	}
	st, err := store.Open(cfg.Store, cfg.StorePath)
	if err != nil {
		if c, ok := fetcher.(io.Closer); ok {
			c.Close()
		}
		return nil, err
	}

	rate := beep.SampleRate(cfg.SampleRate)
	return New(Options{
		Fetcher: fetcher,
		Store:   st,
		NewContext: func() (audioengine.Context, error) {
			return audioengine.NewSpeakerContext(rate, cfg.Buffer)
		},
		SampleRate:   rate,
		Workers:      cfg.Workers,
		FetchTimeout: cfg.FetchTimeout,
		Ext:          cfg.Ext,
		BaseGain:     cfg.BaseGain,
		GainRange:    cfg.GainRange,
		Logger:       logger,
	}), nil
}

// Start creates the audio context and preloads every sample in the
// background. It returns false when the host has no audio; the Sound then
// stays silent. Only the first call has an effect.
func (s *Sound) Start(ctx context.Context) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started || s.closed {
		return s.cache.Context() != nil
	}
	s.started = true

	if !s.cache.Initialize() {
		close(s.done)
		return false
	}

	ctx, s.cancel = context.WithCancel(ctx)
	go func() {
		defer close(s.done)
		if err := s.cache.PreloadAll(ctx); err != nil && !errors.Is(err, context.Canceled) {
			s.logger.Printf("[WARN] preload: %v", err)
		}
	}()
	return true
}

// Wait blocks until the preload settled, or returns at once if Start was
// never called.
func (s *Sound) Wait() {
	s.mu.Lock()
	started := s.started
	s.mu.Unlock()
	if started {
		<-s.done
	}
}

// Close stops loading, releases audio and closes the collaborators.
func (s *Sound) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	if s.cancel != nil {
		s.cancel()
	}
	s.mu.Unlock()

	s.cache.Teardown()

	var errs []error
	if s.store != nil {
		errs = append(errs, s.store.Close())
	}
	if c, ok := s.fetcher.(io.Closer); ok {
		errs = append(errs, c.Close())
	}
	return errors.Join(errs...)
}

// PlayKeySound plays one key press. Safe to call at any time.
func (s *Sound) PlayKeySound() { s.engine.Trigger() }

func (s *Sound) CurrentProfile() string { return s.engine.ActiveProfile() }

// ChangeProfile selects and persists a profile. Unknown ids return false.
func (s *Sound) ChangeProfile(id string) bool { return s.engine.SetActiveProfile(id) }

func (s *Sound) AvailableProfiles() []catalog.Profile { return s.catalog.List() }

// IsLoading is true until the preload has settled. Without audio it stays true.
func (s *Sound) IsLoading() bool { return !s.cache.Ready() }

// Status reports per-profile load counts in catalog order.
func (s *Sound) Status() []ProfileStatus {
	list := s.catalog.List()
	out := make([]ProfileStatus, len(list))
	for i, p := range list {
		out[i] = ProfileStatus{Profile: p, Status: s.cache.Status(p.ID)}
	}
	return out
}

// Context exposes the audio context, nil before Start or without audio.
func (s *Sound) Context() audioengine.Context { return s.cache.Context() }

// Sample returns a loaded sample of a profile, for inspection.
func (s *Sound) Sample(id string, variant int) *audioengine.Sample {
	return s.cache.Sample(id, variant)
}
