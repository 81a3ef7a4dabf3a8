package assets

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"keysound/pkg/spec"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPressPath(t *testing.T) {
	assert.Equal(t, "topre/press/GENERIC_R0", PressPath("topre", 0))
	assert.Equal(t, "mxblue/press/GENERIC_R4", PressPath("mxblue", 4))
}

func writeAsset(t *testing.T, root, name string, data []byte) {
	t.Helper()
	full := filepath.Join(root, filepath.FromSlash(name))
	require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
	require.NoError(t, os.WriteFile(full, data, 0o644))
}

func TestDirFetcher(t *testing.T) {
	root := t.TempDir()
	writeAsset(t, root, "topre/press/GENERIC_R0.mp3", []byte("clack"))

	d := &DirFetcher{Root: root, Ext: ".mp3"}
	data, err := d.Fetch(context.Background(), PressPath("topre", 0))
	require.NoError(t, err)
	assert.Equal(t, "clack", string(data))

	_, err = d.Fetch(context.Background(), PressPath("topre", 1))
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDirFetcher_Manifest(t *testing.T) {
	root := t.TempDir()
	writeAsset(t, root, "a/press/GENERIC_R0.wav", []byte("good"))
	writeAsset(t, root, "a/press/GENERIC_R1.wav", []byte("tampered"))
	writeAsset(t, root, "a/press/GENERIC_R2.wav", []byte("unlisted"))
	require.NoError(t, WriteManifest(filepath.Join(root, spec.ManifestFile), Manifest{
		"a/press/GENERIC_R0.wav": Digest([]byte("good")),
		"a/press/GENERIC_R1.wav": Digest([]byte("original")),
	}))

	d := &DirFetcher{Root: root, Ext: ".wav"}
	ctx := context.Background()

	_, err := d.Fetch(ctx, PressPath("a", 0))
	require.NoError(t, err)
	_, err = d.Fetch(ctx, PressPath("a", 1))
	require.ErrorIs(t, err, ErrChecksum)
	_, err = d.Fetch(ctx, PressPath("a", 2))
	require.NoError(t, err)
}

func TestDirFetcher_BrokenManifest(t *testing.T) {
	root := t.TempDir()
	writeAsset(t, root, spec.ManifestFile, []byte("{"))
	writeAsset(t, root, "a/press/GENERIC_R0", []byte("x"))

	_, err := (&DirFetcher{Root: root}).Fetch(context.Background(), PressPath("a", 0))
	assert.Error(t, err)
}

func TestDirFetcher_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := (&DirFetcher{Root: t.TempDir()}).Fetch(ctx, "x")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestHTTPFetcher(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := hits.Add(1)
		switch r.URL.Path {
		case "/audio/topre/press/GENERIC_R0.mp3":
			w.Write([]byte("clack"))
		case "/audio/flaky/press/GENERIC_R0.mp3":
			if n%2 == 1 {
				w.WriteHeader(http.StatusServiceUnavailable)
				return
			}
			w.Write([]byte("late"))
		case "/audio/bad/press/GENERIC_R0.mp3":
			w.WriteHeader(http.StatusForbidden)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	h := NewHTTPFetcher(srv.URL+"/audio/", ".mp3")
	h.Backoff = 1
	ctx := context.Background()

	data, err := h.Fetch(ctx, PressPath("topre", 0))
	require.NoError(t, err)
	assert.Equal(t, "clack", string(data))

	hits.Store(0)
	_, err = h.Fetch(ctx, PressPath("missing", 0))
	require.ErrorIs(t, err, ErrNotFound)
	assert.EqualValues(t, 1, hits.Load())

	hits.Store(0)
	data, err = h.Fetch(ctx, PressPath("flaky", 0))
	require.NoError(t, err)
	assert.Equal(t, "late", string(data))
	assert.EqualValues(t, 2, hits.Load())

	hits.Store(0)
	_, err = h.Fetch(ctx, PressPath("bad", 0))
	require.Error(t, err)
	assert.EqualValues(t, 1, hits.Load())
}

func TestOpen(t *testing.T) {
	f, err := Open("https://example.com/audio", ".mp3", "")
	require.NoError(t, err)
	assert.IsType(t, &HTTPFetcher{}, f)

	f, err = Open("./audio", ".mp3", "")
	require.NoError(t, err)
	assert.IsType(t, &DirFetcher{}, f)

	_, err = Open(filepath.Join(t.TempDir(), "none"+spec.BankExt), "", "")
	assert.Error(t, err)
}
