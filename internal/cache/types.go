// Package cache persists synthesized audio generations and the custom voice
// list across runs, so repeated utterances never hit the network.
package cache

import (
	"errors"
	"time"
)

// Common errors for cache operations.
var (
	// ErrItemTooLarge is returned when an item exceeds the cache capacity.
	ErrItemTooLarge = errors.New("item too large for cache")

	// ErrClosed is returned by operations on a closed store.
	ErrClosed = errors.New("cache store is closed")
)

// Config holds cache tuning parameters.
type Config struct {
	// Dir is the on-disk cache directory.
	Dir string

	// MemoryCapacity bounds the in-memory tier, in bytes.
	MemoryCapacity int64

	// DiskCapacity bounds the on-disk tier, in bytes.
	DiskCapacity int64

	// CompressionLevel is the zstd level for disk entries; zero disables
	// compression.
	CompressionLevel int

	// TTL expires disk entries; zero keeps them forever.
	TTL time.Duration

	// CleanupInterval is how often expired entries are swept.
	CleanupInterval time.Duration
}

// DefaultConfig returns the default cache configuration.
func DefaultConfig(dir string) Config {
	return Config{
		Dir:              dir,
		MemoryCapacity:   64 * 1024 * 1024,
		DiskCapacity:     512 * 1024 * 1024,
		CompressionLevel: 3,
		TTL:              30 * 24 * time.Hour,
		CleanupInterval:  time.Hour,
	}
}

// Stats aggregates cache performance counters across both tiers.
type Stats struct {
	MemoryHits  int64
	DiskHits    int64
	Misses      int64
	Evictions   int64
	MemoryBytes int64
	DiskBytes   int64
	Items       int64
}

// HitRate returns the fraction of lookups served from either tier.
func (s Stats) HitRate() float64 {
	total := s.MemoryHits + s.DiskHits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.MemoryHits+s.DiskHits) / float64(total)
}
