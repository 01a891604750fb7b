package cache

// ScopedKeyer prefixes every key of an inner Keyer. The pipeline runner
// scopes keys with the version of its geometry entry layout, so entries
// written by an older release are never read back.
//
//	keyer := NewScopedKeyer(NewDefaultKeyer(), "geometry-v2:")
type ScopedKeyer struct {
	inner  Keyer
	prefix string
}

// NewScopedKeyer returns a keyer prefixing inner's keys. A nil inner uses
// the default keyer.
func NewScopedKeyer(inner Keyer, prefix string) Keyer {
	if inner == nil {
		inner = NewDefaultKeyer()
	}
	return &ScopedKeyer{inner: inner, prefix: prefix}
}

// GeometryKey implements Keyer.
func (k *ScopedKeyer) GeometryKey(contentHash string, opts GeometryKeyOpts) string {
	return k.prefix + k.inner.GeometryKey(contentHash, opts)
}
