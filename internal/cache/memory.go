package cache

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

const defaultMaxEntries = 1024

// Memory is a size-bounded in-process LRU cache. Entries expire after the TTL
// given at construction; the per-call ttl passed to Set is ignored.
type Memory struct {
	lru *expirable.LRU[string, []byte]
}

// NewMemory creates an in-memory cache holding at most maxEntries values.
// A zero ttl disables expiration.
func NewMemory(maxEntries int, ttl time.Duration) *Memory {
	if maxEntries <= 0 {
		maxEntries = defaultMaxEntries
	}
	return &Memory{lru: expirable.NewLRU[string, []byte](maxEntries, nil, ttl)}
}

// Get retrieves a value by key
func (m *Memory) Get(_ context.Context, key string) ([]byte, bool, error) {
	v, ok := m.lru.Get(key)
	return v, ok, nil
}

// Set stores a copy of value
func (m *Memory) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	buf := make([]byte, len(value))
	copy(buf, value)
	m.lru.Add(key, buf)
	return nil
}

// Delete removes a key
func (m *Memory) Delete(_ context.Context, key string) error {
	m.lru.Remove(key)
	return nil
}

// Len returns the number of cached entries, including expired ones not yet purged.
func (m *Memory) Len() int {
	return m.lru.Len()
}

func (m *Memory) Close() error {
	m.lru.Purge()
	return nil
}
