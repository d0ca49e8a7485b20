package cache

// ScopedKeyer wraps a Keyer with a prefix for namespace isolation, so
// several corpora (or server tenants) can share one Redis instance without
// key collisions.
//
// Example usage:
//
//	// Per-deployment keys on a shared Redis
//	keyer := NewScopedKeyer(NewDefaultKeyer(), "warehouse-eu:")
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

// BuildKey generates a prefixed key for a built graph document.
func (k *ScopedKeyer) BuildKey(corpusHash string) string {
	return k.prefix + k.inner.BuildKey(corpusHash)
}

// QueryKey generates a prefixed key for a query subgraph.
func (k *ScopedKeyer) QueryKey(corpusHash string, opts QueryOpts) string {
	return k.prefix + k.inner.QueryKey(corpusHash, opts)
}

// LayoutKey generates a prefixed key for a layout.
func (k *ScopedKeyer) LayoutKey(corpusHash string, opts QueryOpts) string {
	return k.prefix + k.inner.LayoutKey(corpusHash, opts)
}
