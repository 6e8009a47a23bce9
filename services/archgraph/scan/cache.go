// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package scan

import (
	"context"
	"log/slog"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/Hami0095/ai-architecture/services/archgraph/storage/badger"
)

// DefaultLRUSize is the number of scans kept in memory.
const DefaultLRUSize = 64

// TieredCache keeps scans in an in-process LRU backed by an optional
// BadgerDB. Reads fall through to badger and promote hits; writes go to
// both. Badger errors are logged and treated as misses.
//
// Thread Safety: safe for concurrent use.
type TieredCache struct {
	hot    *expirable.LRU[string, string]
	warm   *badger.DB
	logger *slog.Logger
}

// NewTieredCache creates a cache. warm may be nil for memory only.
func NewTieredCache(size int, ttl time.Duration, warm *badger.DB, logger *slog.Logger) *TieredCache {
	if size <= 0 {
		size = DefaultLRUSize
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &TieredCache{
		hot:    expirable.NewLRU[string, string](size, nil, ttl),
		warm:   warm,
		logger: logger,
	}
}

// Get implements Cache.
func (c *TieredCache) Get(ctx context.Context, key string) (string, bool) {
	if v, ok := c.hot.Get(key); ok {
		return v, true
	}
	if c.warm == nil {
		return "", false
	}
	val, ok, err := c.warm.Get(ctx, []byte(key))
	if err != nil {
		c.logger.Warn("scan cache read failed", slog.String("key", key), slog.String("error", err.Error()))
		return "", false
	}
	if !ok {
		return "", false
	}
	c.hot.Add(key, string(val))
	return string(val), true
}

// Set implements Cache.
func (c *TieredCache) Set(ctx context.Context, key, value string, ttl time.Duration) {
	c.hot.Add(key, value)
	if c.warm == nil {
		return
	}
	if err := c.warm.Set(ctx, []byte(key), []byte(value), ttl); err != nil {
		c.logger.Warn("scan cache write failed", slog.String("key", key), slog.String("error", err.Error()))
	}
}

// Purge drops every cached scan from both tiers.
func (c *TieredCache) Purge() error {
	c.hot.Purge()
	if c.warm == nil {
		return nil
	}
	return c.warm.DropPrefix([]byte(keyPrefix))
}
