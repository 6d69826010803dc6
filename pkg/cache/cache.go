// Package cache provides a pluggable byte cache for expensive panel results.
//
// Auto-layout is deterministic, so the layout of an unchanged document never
// needs recomputing: results are cached under a key derived from the document
// content hash and the layout options. Backends:
//
//   - file: local directory cache for CLI usage
//   - redis: shared cache for multi-instance server deployments
//   - null: disabled caching for tests
package cache

import (
	"context"
	"time"
)

// Cache is a byte-oriented cache with TTL support.
type Cache interface {
	// Get returns the cached value and whether it was present.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	// Set stores a value; ttl <= 0 means no expiration.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error
	// Delete removes a value. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
	// Close releases backend resources.
	Close() error
}

// LayoutKeyOpts are the layout options that participate in the cache key.
// Two layouts of the same document with different options must not collide.
type LayoutKeyOpts struct {
	Direction string `json:"direction"`
	SpacingX  int    `json:"spacing_x"`
	SpacingY  int    `json:"spacing_y"`
}

// Keyer derives cache keys for the different cached artifact kinds.
type Keyer interface {
	// LayoutKey identifies a layout result for a document content hash.
	LayoutKey(contentHash string, opts LayoutKeyOpts) string
	// GraphKey identifies a rendered artifact for a graph content hash.
	GraphKey(contentHash string) string
}

// DefaultKeyer hashes structured key parts with SHA-256.
type DefaultKeyer struct{}

// NewDefaultKeyer creates the standard keyer.
func NewDefaultKeyer() Keyer { return &DefaultKeyer{} }

// LayoutKey generates a key for layout result caching.
func (k *DefaultKeyer) LayoutKey(contentHash string, opts LayoutKeyOpts) string {
	return hashKey("layout", contentHash, opts)
}

// GraphKey generates a key for rendered artifact caching.
func (k *DefaultKeyer) GraphKey(contentHash string) string {
	return hashKey("graph", contentHash)
}
