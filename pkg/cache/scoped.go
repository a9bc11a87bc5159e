package cache

// ScopedKeyer wraps a Keyer with a prefix for multi-tenant isolation.
// This keeps different render service endpoints or projects from sharing
// cache entries when they use the same stack and id names.
//
// Example usage:
//
//	// Keys scoped to one render service host
//	hostKeyer := NewScopedKeyer(NewDefaultKeyer(), "render.example.org:")
//
//	// Unscoped keys for a single-host setup
//	keyer := NewDefaultKeyer()
type ScopedKeyer struct {
	inner  Keyer
	prefix string
}

// NewScopedKeyer creates a keyer with a prefix.
// The prefix is prepended to all generated keys.
func NewScopedKeyer(inner Keyer, prefix string) Keyer {
	if inner == nil {
		inner = NewDefaultKeyer()
	}
	return &ScopedKeyer{
		inner:  inner,
		prefix: prefix,
	}
}

// HTTPKey generates a prefixed key for HTTP response caching.
func (k *ScopedKeyer) HTTPKey(namespace, key string) string {
	return k.prefix + k.inner.HTTPKey(namespace, key)
}

// TransformKey generates a prefixed key for a stored transform.
func (k *ScopedKeyer) TransformKey(stack, id string) string {
	return k.prefix + k.inner.TransformKey(stack, id)
}

// TileSpecKey generates a prefixed key for a tile spec.
func (k *ScopedKeyer) TileSpecKey(stack, tileID string) string {
	return k.prefix + k.inner.TileSpecKey(stack, tileID)
}

// CollapseKey generates a prefixed key for a collapse result.
func (k *ScopedKeyer) CollapseKey(chainHash string, opts CollapseKeyOpts) string {
	return k.prefix + k.inner.CollapseKey(chainHash, opts)
}
