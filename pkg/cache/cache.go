// Package cache stores rendered artifacts keyed by the content they were
// rendered from.
//
// Two backends exist: [FileCache] under a directory on disk, used by the
// CLI, and [Disabled], which keeps nothing and logs each miss at debug
// level. [Instrumented] wraps either one and reports hits, misses and
// writes to the observability hooks.
//
// Keys come from a [Keyer]. Render keys hash the document bytes together
// with the render options, so any edit to a document or a change of
// output format produces a new key and stale entries simply age out.
package cache

import (
	"context"
	"time"

	"github.com/charmbracelet/log"

	"github.com/Jtensminger/deep-systems-analysis/pkg/observability"
)

// Cache is a byte store with optional expiry.
type Cache interface {
	// Get returns the stored bytes and whether the key was present.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores data under key. A zero ttl never expires.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases resources held by the cache.
	Close() error
}

// disabled stands in for a render cache when caching is turned off.
type disabled struct {
	logger *log.Logger
}

// Disabled returns a cache that never keeps a rendered diagram. Every Get
// is a miss, logged at debug level so a slow render can be told apart
// from a cold cache. A nil logger uses log.Default.
func Disabled(logger *log.Logger) Cache {
	if logger == nil {
		logger = log.Default()
	}
	return &disabled{logger: logger}
}

func (c *disabled) Get(_ context.Context, key string) ([]byte, bool, error) {
	c.logger.Debug("render cache disabled", "key", key)
	return nil, false, nil
}

func (c *disabled) Set(_ context.Context, key string, data []byte, _ time.Duration) error {
	c.logger.Debug("rendered diagram not cached", "key", key, "bytes", len(data))
	return nil
}

func (c *disabled) Delete(context.Context, string) error { return nil }

func (c *disabled) Close() error { return nil }

// instrumented reports cache traffic to [observability.Cache].
type instrumented struct {
	Cache
	keyType string
}

// Instrumented wraps c so that every Get and Set is reported to the cache
// hooks under keyType.
func Instrumented(c Cache, keyType string) Cache {
	return &instrumented{Cache: c, keyType: keyType}
}

func (c *instrumented) Get(ctx context.Context, key string) ([]byte, bool, error) {
	data, hit, err := c.Cache.Get(ctx, key)
	if err == nil {
		if hit {
			observability.Cache().OnCacheHit(ctx, c.keyType)
		} else {
			observability.Cache().OnCacheMiss(ctx, c.keyType)
		}
	}
	return data, hit, err
}

func (c *instrumented) Set(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	if err := c.Cache.Set(ctx, key, data, ttl); err != nil {
		return err
	}
	observability.Cache().OnCacheSet(ctx, c.keyType, len(data))
	return nil
}
