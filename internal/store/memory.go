package store

import (
	"sync/atomic"

	"github.com/patrickmn/go-cache"
)

// Memory keeps preferences for the lifetime of the process only.
type Memory struct {
	c      *cache.Cache
	closed atomic.Bool
}

func NewMemory() *Memory {
	return &Memory{c: cache.New(cache.NoExpiration, 0)}
}

func (m *Memory) Get(key string) (string, bool) {
	if m.closed.Load() {
		return "", false
	}
	v, ok := m.c.Get(key)
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

func (m *Memory) Set(key, value string) error {
	if m.closed.Load() {
		return ErrClosed
	}
	m.c.Set(key, value, cache.NoExpiration)
	return nil
}

func (m *Memory) Close() error {
	if m.closed.CompareAndSwap(false, true) {
		m.c.Flush()
	}
	return nil
}
