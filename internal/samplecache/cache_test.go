package samplecache

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"
	"testing"
	"time"

	"keysound/internal/assets"
	"keysound/internal/catalog"
	"keysound/internal/testaudio"
	"keysound/pkg/audioengine"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

var click = testaudio.Tone(2000, 48000, 480, 0.3)

func topreCatalog() *catalog.Catalog {
	return catalog.New(catalog.Profile{ID: "topre", Name: "Topre", Group: "topre", Variants: 5})
}

func offline() func() (audioengine.Context, error) {
	return func() (audioengine.Context, error) {
		return audioengine.NewOfflineContext(48000), nil
	}
}

func newCache(t *testing.T, c *catalog.Catalog, f assets.Fetcher, opts Options) (*Cache, *testaudio.Logger) {
	t.Helper()
	logger := &testaudio.Logger{}
	if opts.NewContext == nil {
		opts.NewContext = offline()
	}
	opts.Logger = logger
	opts.Ext = ".wav"
	cache := New(c, f, opts)
	t.Cleanup(cache.Teardown)
	return cache, logger
}

func fillAll(f *testaudio.Fetcher, c *catalog.Catalog) {
	for _, p := range c.List() {
		for v := 0; v < p.Variants; v++ {
			f.Put(assets.PressPath(p.Group, v), click)
		}
	}
}

func TestInitialize_Idempotent(t *testing.T) {
	calls := 0
	cache, _ := newCache(t, topreCatalog(), testaudio.NewFetcher(), Options{
		NewContext: func() (audioengine.Context, error) {
			calls++
			return audioengine.NewOfflineContext(48000), nil
		},
	})

	require.True(t, cache.Initialize())
	require.True(t, cache.Initialize())
	assert.Equal(t, 1, calls)
	assert.NotNil(t, cache.Context())
}

func TestInitialize_CapabilityAbsent(t *testing.T) {
	cache, logger := newCache(t, topreCatalog(), testaudio.NewFetcher(), Options{
		NewContext: func() (audioengine.Context, error) {
			return nil, errors.New("no output device")
		},
	})

	assert.False(t, cache.Initialize())
	assert.False(t, cache.Initialize())
	assert.Equal(t, 1, logger.Count("[WARN]"))

	assert.ErrorIs(t, cache.PreloadAll(context.Background()), ErrNoAudio)
	assert.False(t, cache.Ready())
	assert.Nil(t, cache.Context())
	assert.Nil(t, cache.GetBuffer("topre", nil))
}

func TestInitialize_NilFactory(t *testing.T) {
	cache := New(topreCatalog(), testaudio.NewFetcher(), Options{Logger: &testaudio.Logger{}})
	assert.False(t, cache.Initialize())
}

func TestPreloadAll_PartialFailure(t *testing.T) {
	f := testaudio.NewFetcher()
	f.Put(assets.PressPath("topre", 0), click)
	f.Fail(assets.PressPath("topre", 1), errors.New("connection reset"))
	f.Put(assets.PressPath("topre", 2), click)
	f.Put(assets.PressPath("topre", 3), []byte("not audio at all"))
	f.Put(assets.PressPath("topre", 4), click)

	cache, logger := newCache(t, topreCatalog(), f, Options{})
	require.True(t, cache.Initialize())
	require.NoError(t, cache.PreloadAll(context.Background()))

	assert.True(t, cache.Ready())
	assert.Equal(t, Status{Loaded: 3, Failed: 2, Total: 5}, cache.Status("topre"))
	assert.Equal(t, 2, logger.Count("[FAIL]"))

	r := rand.New(rand.NewPCG(1, 2))
	seen := map[int]bool{}
	for range 300 {
		v, s, ok := cache.Pick("topre", r)
		require.True(t, ok)
		require.NotNil(t, s)
		require.Contains(t, []int{0, 2, 4}, v)
		seen[v] = true

		require.NotNil(t, cache.GetBuffer("topre", r))
	}
	assert.Len(t, seen, 3)
}

func TestPreloadAll_ReadyOnlyAfterEverySettles(t *testing.T) {
	c := catalog.New(
		catalog.Profile{ID: "a", Group: "a", Variants: 3},
		catalog.Profile{ID: "b", Group: "b", Variants: 2},
	)
	f := testaudio.NewFetcher()
	fillAll(f, c)
	f.Gate = make(chan struct{})

	cache, _ := newCache(t, c, f, Options{})
	require.True(t, cache.Initialize())

	done := make(chan error)
	go func() { done <- cache.PreloadAll(context.Background()) }()

	// every load is in flight at once
	require.Eventually(t, func() bool { return f.Calls() == 5 }, time.Second, time.Millisecond)
	assert.False(t, cache.Ready())
	assert.Equal(t, Status{Pending: 3, Total: 3}, cache.Status("a"))

	close(f.Gate)
	require.NoError(t, <-done)
	assert.True(t, cache.Ready())
	assert.Equal(t, Status{Loaded: 2, Total: 2}, cache.Status("b"))
}

func TestPreloadAll_WorkerLimit(t *testing.T) {
	c := catalog.New(catalog.Profile{ID: "a", Group: "a", Variants: 6})
	f := testaudio.NewFetcher()
	fillAll(f, c)
	f.Gate = make(chan struct{})

	cache, _ := newCache(t, c, f, Options{Workers: 2})
	require.True(t, cache.Initialize())

	done := make(chan error)
	go func() { done <- cache.PreloadAll(context.Background()) }()

	require.Eventually(t, func() bool { return f.Calls() == 2 }, time.Second, time.Millisecond)
	assert.Never(t, func() bool { return f.Calls() > 2 }, 50*time.Millisecond, 5*time.Millisecond)

	close(f.Gate)
	require.NoError(t, <-done)
	assert.Equal(t, 6, cache.Status("a").Loaded)
}

func TestPreloadAll_SharedRun(t *testing.T) {
	c := topreCatalog()
	f := testaudio.NewFetcher()
	fillAll(f, c)

	cache, _ := newCache(t, c, f, Options{})
	require.True(t, cache.Initialize())

	var wg sync.WaitGroup
	for range 4 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, cache.PreloadAll(context.Background()))
		}()
	}
	wg.Wait()

	assert.Equal(t, 5, f.Calls())
	assert.True(t, cache.Ready())
}

func TestPreloadAll_CancelledContextStillSettles(t *testing.T) {
	c := topreCatalog()
	f := testaudio.NewFetcher()
	fillAll(f, c)
	f.Gate = make(chan struct{})

	cache, _ := newCache(t, c, f, Options{})
	require.True(t, cache.Initialize())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, cache.PreloadAll(ctx))

	assert.True(t, cache.Ready())
	assert.Equal(t, Status{Failed: 5, Total: 5}, cache.Status("topre"))
	assert.Nil(t, cache.GetBuffer("topre", nil))
}

func TestPreloadAll_ClippingReport(t *testing.T) {
	c := catalog.New(
		catalog.Profile{ID: "loud", Group: "loud", Variants: 1},
		catalog.Profile{ID: "soft", Group: "soft", Variants: 1},
	)
	f := testaudio.NewFetcher()
	f.Put(assets.PressPath("loud", 0), testaudio.Tone(1000, 48000, 480, 0.6))
	f.Put(assets.PressPath("soft", 0), testaudio.Tone(1000, 48000, 480, 0.2))

	cache, logger := newCache(t, c, f, Options{})
	require.True(t, cache.Initialize())
	require.NoError(t, cache.PreloadAll(context.Background()))

	assert.Equal(t, 1, logger.Count("may clip"))
	assert.Equal(t, 1, logger.Count("loud may clip"))
}

func TestTeardown_DiscardsLateResults(t *testing.T) {
	c := topreCatalog()
	f := testaudio.NewFetcher()
	fillAll(f, c)
	f.Gate = make(chan struct{})

	cache, _ := newCache(t, c, f, Options{})
	require.True(t, cache.Initialize())
	actx := cache.Context()

	done := make(chan error)
	go func() { done <- cache.PreloadAll(context.Background()) }()
	require.Eventually(t, func() bool { return f.Calls() == 5 }, time.Second, time.Millisecond)

	cache.Teardown()
	close(f.Gate)
	require.NoError(t, <-done)

	assert.False(t, cache.Ready())
	assert.Nil(t, cache.Context())
	assert.Nil(t, cache.GetBuffer("topre", nil))
	assert.Equal(t, audioengine.StateClosed, actx.State())

	cache.Teardown()
	assert.False(t, cache.Initialize())
}

func TestGetBuffer_UnknownOrEarly(t *testing.T) {
	c := topreCatalog()
	f := testaudio.NewFetcher()
	fillAll(f, c)
	cache, _ := newCache(t, c, f, Options{})

	assert.Nil(t, cache.GetBuffer("topre", nil))
	require.True(t, cache.Initialize())
	require.NoError(t, cache.PreloadAll(context.Background()))

	assert.Nil(t, cache.GetBuffer("nope", nil))
	assert.Equal(t, Status{}, cache.Status("nope"))
	assert.NotNil(t, cache.GetBuffer("topre", nil))
}

func TestPick_OnlyLoadedSlots(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		variants := rapid.IntRange(1, 8).Draw(t, "variants")
		c := catalog.New(catalog.Profile{ID: "p", Group: "p", Variants: variants})

		f := testaudio.NewFetcher()
		loaded := map[int]bool{}
		for v := 0; v < variants; v++ {
			if rapid.Bool().Draw(t, fmt.Sprintf("ok%d", v)) {
				f.Put(assets.PressPath("p", v), click)
				loaded[v] = true
			}
		}

		cache := New(c, f, Options{NewContext: offline(), Logger: &testaudio.Logger{}, Ext: ".wav"})
		defer cache.Teardown()
		if !cache.Initialize() {
			t.Fatal("initialize failed")
		}
		if err := cache.PreloadAll(context.Background()); err != nil {
			t.Fatal(err)
		}

		r := rand.New(rand.NewPCG(rapid.Uint64().Draw(t, "seed"), 0))
		for range 20 {
			v, s, ok := cache.Pick("p", r)
			if len(loaded) == 0 {
				if ok || s != nil {
					t.Fatalf("expected nothing, got variant %d", v)
				}
				continue
			}
			if !ok || s == nil || !loaded[v] {
				t.Fatalf("picked variant %d, loaded %v", v, loaded)
			}
		}
	})
}

func TestSample_Slot(t *testing.T) {
	f := testaudio.NewFetcher()
	f.Put(assets.PressPath("topre", 1), click)
	cache, _ := newCache(t, topreCatalog(), f, Options{})
	require.True(t, cache.Initialize())
	require.NoError(t, cache.PreloadAll(context.Background()))

	assert.NotNil(t, cache.Sample("topre", 1))
	assert.Nil(t, cache.Sample("topre", 0))
	assert.Nil(t, cache.Sample("topre", 9))
	assert.Nil(t, cache.Sample("nope", 0))
}
