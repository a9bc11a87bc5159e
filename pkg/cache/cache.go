// Package cache provides pluggable byte caches and the key scheme used to
// cache render service responses, resolved transforms, and collapse results.
package cache

import (
	"context"
	"time"
)

// Cache stores opaque byte values under string keys with optional expiry.
// Implementations must be safe for concurrent use.
type Cache interface {
	// Get retrieves a value. The second return reports whether the key was
	// present and fresh.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores a value. A ttl of 0 means the entry never expires.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error

	// Delete removes a value. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases any resources held by the cache.
	Close() error
}

// Keyer builds cache keys for the data kinds tilewarp caches. Centralizing
// key construction keeps CLI and server processes pointed at the same
// entries.
type Keyer interface {
	// HTTPKey keys a raw render service response.
	HTTPKey(namespace, key string) string

	// TransformKey keys a stored transform spec.
	TransformKey(stack, id string) string

	// TileSpecKey keys a tile spec.
	TileSpecKey(stack, tileID string) string

	// CollapseKey keys a collapse result by the chain's content hash and
	// the fit options.
	CollapseKey(chainHash string, opts CollapseKeyOpts) string
}

// CollapseKeyOpts captures the fit options that change a collapse result.
type CollapseKeyOpts struct {
	Order  int     `json:"order"`
	Cells  int     `json:"cells"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// DefaultKeyer implements the standard key scheme.
type DefaultKeyer struct{}

// NewDefaultKeyer creates the standard keyer.
func NewDefaultKeyer() Keyer {
	return &DefaultKeyer{}
}

// HTTPKey generates a key for HTTP response caching.
func (k *DefaultKeyer) HTTPKey(namespace, key string) string {
	return "http:" + namespace + ":" + key
}

// TransformKey generates a key for a stored transform.
func (k *DefaultKeyer) TransformKey(stack, id string) string {
	return "transform:" + stack + ":" + id
}

// TileSpecKey generates a key for a tile spec.
func (k *DefaultKeyer) TileSpecKey(stack, tileID string) string {
	return "tilespec:" + stack + ":" + tileID
}

// CollapseKey generates a key for a collapse result. The options are folded
// into the hash so different fit settings never alias.
func (k *DefaultKeyer) CollapseKey(chainHash string, opts CollapseKeyOpts) string {
	return hashKey("collapse", chainHash, opts)
}
