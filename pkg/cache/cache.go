// Package cache provides pluggable byte caches for expensive pipeline
// results: built graph documents, query subgraphs, and layouts.
//
// Backends share one interface so the CLI (file cache), the server (Redis)
// and tests (null cache) are interchangeable. Keys are derived through a
// [Keyer] so that every consumer hashes inputs the same way.
package cache

import (
	"context"
	"time"
)

// Default TTLs per artifact kind. Build results are invalidated by the
// corpus hash embedded in the key, so a long TTL mostly bounds disk usage.
const (
	TTLBuild  = 24 * time.Hour
	TTLQuery  = time.Hour
	TTLLayout = 24 * time.Hour
)

// Cache is a byte-oriented cache with TTL support.
type Cache interface {
	// Get retrieves a value. The second return reports whether the key was
	// present and unexpired.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores a value. A ttl of 0 means no expiration.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error

	// Delete removes a value. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases backend resources.
	Close() error
}

// QueryOpts are the query parameters that shape a cached subgraph or
// layout. They are hashed into the key, so any change produces a distinct
// entry.
type QueryOpts struct {
	Scripts []string `json:"scripts"`
	Tables  []string `json:"tables"`
	Mode    string   `json:"mode"`
}

// Keyer generates cache keys for pipeline artifacts.
type Keyer interface {
	// BuildKey keys the full build+resolve result for one corpus hash.
	BuildKey(corpusHash string) string

	// QueryKey keys a query subgraph for one corpus hash and filter set.
	QueryKey(corpusHash string, opts QueryOpts) string

	// LayoutKey keys the layout of a query subgraph.
	LayoutKey(corpusHash string, opts QueryOpts) string
}

// DefaultKeyer is the standard key scheme: a kind prefix plus a SHA-256
// hash of the inputs.
type DefaultKeyer struct{}

// NewDefaultKeyer creates the standard keyer.
func NewDefaultKeyer() Keyer {
	return &DefaultKeyer{}
}

// BuildKey generates a key for a built graph document.
func (k *DefaultKeyer) BuildKey(corpusHash string) string {
	return hashKey("build", corpusHash)
}

// QueryKey generates a key for a query subgraph.
func (k *DefaultKeyer) QueryKey(corpusHash string, opts QueryOpts) string {
	return hashKey("query", corpusHash, opts)
}

// LayoutKey generates a key for a layout.
func (k *DefaultKeyer) LayoutKey(corpusHash string, opts QueryOpts) string {
	return hashKey("layout", corpusHash, opts)
}

// Ensure DefaultKeyer implements Keyer.
var _ Keyer = (*DefaultKeyer)(nil)
