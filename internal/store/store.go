// Package store persists small string preferences such as the selected
// sound profile.
package store

import (
	"errors"
	"fmt"
)

var ErrClosed = errors.New("store closed")

// Store is a synchronous key-value collaborator.
type Store interface {
	Get(key string) (string, bool)
	Set(key, value string) error
	Close() error
}

const (
	KindFile   = "file"
	KindSQLite = "sqlite"
	KindMemory = "memory"
)

// Open returns the store named by kind. path is ignored for memory stores.
func Open(kind, path string) (Store, error) {
	switch kind {
	case KindFile:
		return OpenFile(path)
	case KindSQLite:
		return OpenSQLite(path)
	case KindMemory:
		return NewMemory(), nil
	}
	return nil, fmt.Errorf("unknown store kind %q", kind)
}
