// Copyright (c) 2020-present Mattermost, Inc. All Rights Reserved.
// See License for license information.

package cache

import (
	"context"
	"sync"
	"time"
)

// MemoryCache is the default in-process Cache. Expired entries are dropped
// when they are read; there is no background eviction.
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[string]Entry
	now     func() time.Time
}

var _ Cache = (*MemoryCache)(nil)

type MemoryOption func(*MemoryCache)

// WithClock replaces the clock used for expiry checks.
func WithClock(now func() time.Time) MemoryOption {
	return func(c *MemoryCache) {
		c.now = now
	}
}

func NewMemoryCache(opts ...MemoryOption) *MemoryCache {
	c := &MemoryCache{
		entries: map[string]Entry{},
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *MemoryCache) Get(_ context.Context, key string) (string, bool, error) {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok {
		return "", false, nil
	}
	if e.Expired(c.now()) {
		c.mu.Lock()
		// Only drop it if nobody replaced it meanwhile.
		if cur, ok := c.entries[key]; ok && cur == e {
			delete(c.entries, key)
		}
		c.mu.Unlock()
		return "", false, nil
	}
	return e.Value, true, nil
}

func (c *MemoryCache) Set(_ context.Context, key, value string, expiresAt time.Time) error {
	e := NewEntry(value, expiresAt)
	if e.Expired(c.now()) {
		return nil
	}
	c.mu.Lock()
	c.entries[key] = e
	c.mu.Unlock()
	return nil
}

// Len reports the number of stored entries, expired or not.
func (c *MemoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
