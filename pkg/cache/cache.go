// Package cache stores intermediate pipeline results between runs.
//
// The transform pipeline caches its geometry stage: normalizing and
// simplifying a large boundary file dominates a department run, while the
// file itself rarely changes between elections. Entries are keyed by the
// content hash of the raw input and the options that shaped the result, so
// any change to either produces a new key.
//
// Two implementations are provided: [FileCache] for CLI use, storing one
// file per entry under a cache directory, and [NullCache], which stores
// nothing and disables caching.
package cache

import (
	"context"
	"time"
)

// Cache is a byte-oriented key/value store with optional expiry.
type Cache interface {
	// Get returns the value stored under key. A miss is not an error.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	// Set stores data under key. A zero ttl never expires.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error
	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
	// Close releases resources held by the cache.
	Close() error
}

// Keyer builds cache keys for pipeline stages.
type Keyer interface {
	// GeometryKey returns the key of a normalized boundary collection.
	GeometryKey(contentHash string, opts GeometryKeyOpts) string
}

// GeometryKeyOpts are the options that determine a geometry stage result.
type GeometryKeyOpts struct {
	Department string   `json:"department"`
	ZoneKeys   []string `json:"zone_keys"`
	Precision  int      `json:"precision"`
	Tolerance  float64  `json:"tolerance"`
	SizeLimit  int      `json:"size_limit"`
}

// DefaultKeyer produces "geometry:<sha256>" keys.
type DefaultKeyer struct{}

// NewDefaultKeyer returns the default keyer.
func NewDefaultKeyer() Keyer {
	return DefaultKeyer{}
}

// GeometryKey implements Keyer.
func (DefaultKeyer) GeometryKey(contentHash string, opts GeometryKeyOpts) string {
	return hashKey("geometry", contentHash, opts)
}
