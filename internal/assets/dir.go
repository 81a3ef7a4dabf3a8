package assets

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"keysound/pkg/spec"
)

// DirFetcher reads assets from a local tree. When Root holds a manifest.json,
// every file listed there is verified on read.
type DirFetcher struct {
	Root string
	Ext  string

	once     sync.Once
	manifest Manifest
	mErr     error
}

func (d *DirFetcher) Fetch(ctx context.Context, path string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	d.once.Do(d.loadManifest)
	if d.mErr != nil {
		return nil, d.mErr
	}

	name := path + d.Ext
	full := filepath.Join(d.Root, filepath.FromSlash(name))
	data, err := os.ReadFile(full)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, full)
	}
	if err != nil {
		return nil, err
	}
	if err := d.manifest.Verify(name, data); err != nil {
		return nil, err
	}
	return data, nil
}

func (d *DirFetcher) loadManifest() {
	m, err := ReadManifest(filepath.Join(d.Root, spec.ManifestFile))
	if errors.Is(err, fs.ErrNotExist) {
		return
	}
	d.manifest, d.mErr = m, err
}
