// Package assets resolves and reads encoded key-press samples.
package assets

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"

	"keysound/pkg/spec"
)

var (
	ErrNotFound = errors.New("asset not found")
	ErrChecksum = errors.New("asset checksum mismatch")
)

// Fetcher returns the raw bytes stored at a logical asset path.
type Fetcher interface {
	Fetch(ctx context.Context, path string) ([]byte, error)
}

// PressPath builds {group}/press/GENERIC_R{variant}. Variants are 0-based.
func PressPath(group string, variant int) string {
	return path.Join(group, spec.PressDir, fmt.Sprintf("%s%d", spec.VariantPrefix, variant))
}

// Open picks a fetcher for location: http(s) URLs, .ksb sound banks, or a
// directory tree. passphrase is only used by sealed banks.
func Open(location, ext, passphrase string) (Fetcher, error) {
	switch {
	case strings.HasPrefix(location, "http://"), strings.HasPrefix(location, "https://"):
		return NewHTTPFetcher(location, ext), nil
	case strings.HasSuffix(location, spec.BankExt):
		return OpenBank(location, passphrase)
	default:
		return &DirFetcher{Root: location, Ext: ext}, nil
	}
}
