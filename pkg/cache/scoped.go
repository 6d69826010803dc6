package cache

// ScopedKeyer wraps a Keyer with a prefix for namespace isolation.
// Useful when several repositories share one cache backend and their
// documents must not collide.
//
// Example usage:
//
//	repoKeyer := NewScopedKeyer(NewDefaultKeyer(), "repo:acme-monorepo:")
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

// LayoutKey generates a prefixed key for layout result caching.
func (k *ScopedKeyer) LayoutKey(contentHash string, opts LayoutKeyOpts) string {
	return k.prefix + k.inner.LayoutKey(contentHash, opts)
}

// GraphKey generates a prefixed key for rendered artifact caching.
func (k *ScopedKeyer) GraphKey(contentHash string) string {
	return k.prefix + k.inner.GraphKey(contentHash)
}
