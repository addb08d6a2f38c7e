package dispatch

// DefaultSiteArity is the default number of (TypeKey, callable) pairs a site
// holds before going megamorphic.
const DefaultSiteArity = 8

type siteEntry[C any] struct {
	key      TypeKey
	callable C
}

// Site is the cache for one static call location. It is created at the
// location's first execution and lives as long as the enclosing compiled
// unit; entries are invalidated in bulk by epoch mismatch, never lazily
// expired.
type Site[C any] struct {
	entries     []siteEntry[C]
	megamorphic bool
	epoch       uint64
}

// Megamorphic reports whether the site overflowed its arity limit and now
// always resolves cold.
func (s *Site[C]) Megamorphic() bool { return s.megamorphic }

// Len returns the number of cached bindings.
func (s *Site[C]) Len() int { return len(s.entries) }

// Cache is one session's dispatch cache: a table of Sites keyed by call
// location, resolving cold through a shared Registry. It is owned by a
// single session and not safe for concurrent use; the Registry and Epoch it
// references are shared across sessions.
type Cache[K comparable, C any] struct {
	registry Registry[C]
	epoch    *Epoch
	arity    int
	disabled bool
	sites    map[K]*Site[C]
}

// Option configures a Cache.
type Option func(*options)

type options struct {
	arity    int
	disabled bool
}

// WithSiteArity sets the per-site entry limit before megamorphic fallback.
func WithSiteArity(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.arity = n
		}
	}
}

// Disabled turns caching off: every resolution goes cold through the
// registry. Intended as a session-wide debug switch.
func Disabled(v bool) Option {
	return func(o *options) { o.disabled = v }
}

func NewCache[K comparable, C any](registry Registry[C], epoch *Epoch, opts ...Option) *Cache[K, C] {
	o := options{arity: DefaultSiteArity}
	for _, opt := range opts {
		opt(&o)
	}
	return &Cache[K, C]{
		registry: registry,
		epoch:    epoch,
		arity:    o.arity,
		disabled: o.disabled,
		sites:    make(map[K]*Site[C]),
	}
}

// Resolve returns the callable bound to symbol for a receiver of type key at
// the given call site. Cached bindings are used only while the global epoch
// matches the site's last-seen epoch; on mismatch the site is cleared and
// resolution re-runs cold. Unresolved symbols yield *MethodNotFoundError.
func (c *Cache[K, C]) Resolve(site K, symbol string, key TypeKey) (C, error) {
	if c.disabled {
		return c.resolveCold(symbol, key)
	}

	s := c.sites[site]
	if s == nil {
		s = &Site[C]{epoch: c.epoch.Current()}
		c.sites[site] = s
	}

	if cur := c.epoch.Current(); s.epoch != cur {
		s.entries = s.entries[:0]
		s.megamorphic = false
		s.epoch = cur
	}

	if s.megamorphic {
		return c.resolveCold(symbol, key)
	}

	for i := range s.entries {
		if s.entries[i].key == key {
			return s.entries[i].callable, nil
		}
	}

	callable, err := c.resolveCold(symbol, key)
	if err != nil {
		var zero C
		return zero, err
	}

	if len(s.entries) >= c.arity {
		s.megamorphic = true
		s.entries = nil
	} else {
		s.entries = append(s.entries, siteEntry[C]{key: key, callable: callable})
	}
	return callable, nil
}

// resolveCold searches the registry in hierarchy order: the receiver's own
// type, its declared supertypes in declaration order, then the universal
// fallback type.
func (c *Cache[K, C]) resolveCold(symbol string, key TypeKey) (C, error) {
	if callable, ok := c.registry.Lookup(symbol, key); ok {
		return callable, nil
	}
	sawAny := key == AnyType
	for _, super := range c.registry.Supertypes(key) {
		if callable, ok := c.registry.Lookup(symbol, super); ok {
			return callable, nil
		}
		if super == AnyType {
			sawAny = true
		}
	}
	if !sawAny {
		if callable, ok := c.registry.Lookup(symbol, AnyType); ok {
			return callable, nil
		}
	}
	var zero C
	return zero, &MethodNotFoundError{Symbol: symbol, Receiver: key}
}

// Site returns the cache state for a call location, if one exists. Used for
// diagnostics and tests.
func (c *Cache[K, C]) Site(site K) (*Site[C], bool) {
	s, ok := c.sites[site]
	return s, ok
}

// Sites returns the number of call locations seen so far.
func (c *Cache[K, C]) Sites() int { return len(c.sites) }
