package dispatch

import (
	"fmt"
	"testing"
)

// tableRegistry is a plain map-backed registry for tests.
type tableRegistry struct {
	methods map[string]map[TypeKey]string
	supers  map[TypeKey][]TypeKey
	lookups int
}

func newTableRegistry() *tableRegistry {
	return &tableRegistry{
		methods: make(map[string]map[TypeKey]string),
		supers:  make(map[TypeKey][]TypeKey),
	}
}

func (r *tableRegistry) add(symbol string, key TypeKey, impl string) {
	if r.methods[symbol] == nil {
		r.methods[symbol] = make(map[TypeKey]string)
	}
	r.methods[symbol][key] = impl
}

func (r *tableRegistry) Lookup(symbol string, key TypeKey) (string, bool) {
	r.lookups++
	impl, ok := r.methods[symbol][key]
	return impl, ok
}

func (r *tableRegistry) Supertypes(key TypeKey) []TypeKey {
	return r.supers[key]
}

func TestResolveOwnType(t *testing.T) {
	reg := newTableRegistry()
	reg.add("show", "Int", "Int.show")
	cache := NewCache[int, string](reg, NewEpoch())

	impl, err := cache.Resolve(1, "show", "Int")
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	if impl != "Int.show" {
		t.Errorf("resolved %q, want Int.show", impl)
	}
}

func TestResolveSupertypeOrder(t *testing.T) {
	reg := newTableRegistry()
	reg.supers["Int"] = []TypeKey{"Number", "Ordered"}
	reg.add("abs", "Ordered", "Ordered.abs")
	reg.add("abs", "Number", "Number.abs")
	cache := NewCache[int, string](reg, NewEpoch())

	impl, err := cache.Resolve(1, "abs", "Int")
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	// Declaration order decides: Number comes before Ordered.
	if impl != "Number.abs" {
		t.Errorf("resolved %q, want Number.abs", impl)
	}
}

func TestResolveAnyFallback(t *testing.T) {
	reg := newTableRegistry()
	reg.add("show", AnyType, "Any.show")
	cache := NewCache[int, string](reg, NewEpoch())

	impl, err := cache.Resolve(1, "show", "String")
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	if impl != "Any.show" {
		t.Errorf("resolved %q, want Any.show", impl)
	}
}

func TestResolveMethodNotFound(t *testing.T) {
	reg := newTableRegistry()
	cache := NewCache[int, string](reg, NewEpoch())

	_, err := cache.Resolve(1, "frobnicate", "Int")
	if err == nil {
		t.Fatal("expected an error")
	}
	mnf, ok := err.(*MethodNotFoundError)
	if !ok {
		t.Fatalf("error is %T, want *MethodNotFoundError", err)
	}
	if mnf.Symbol != "frobnicate" || mnf.Receiver != "Int" {
		t.Errorf("error carries %q/%q, want frobnicate/Int", mnf.Symbol, mnf.Receiver)
	}
}

func TestCachedResolutionMatchesCold(t *testing.T) {
	reg := newTableRegistry()
	reg.add("show", "Int", "Int.show")
	reg.add("show", "Float", "Float.show")
	cache := NewCache[int, string](reg, NewEpoch())

	for i := 0; i < 3; i++ {
		for _, key := range []TypeKey{"Int", "Float", "Int"} {
			impl, err := cache.Resolve(7, "show", key)
			if err != nil {
				t.Fatalf("round %d: %s", i, err)
			}
			if want := string(key) + ".show"; impl != want {
				t.Errorf("round %d: resolved %q, want %q", i, impl, want)
			}
		}
	}
}

func TestCacheHitSkipsRegistry(t *testing.T) {
	reg := newTableRegistry()
	reg.add("show", "Int", "Int.show")
	cache := NewCache[int, string](reg, NewEpoch())

	if _, err := cache.Resolve(1, "show", "Int"); err != nil {
		t.Fatal(err)
	}
	cold := reg.lookups
	if _, err := cache.Resolve(1, "show", "Int"); err != nil {
		t.Fatal(err)
	}
	if reg.lookups != cold {
		t.Errorf("cached hit consulted the registry (%d -> %d lookups)", cold, reg.lookups)
	}
}

func TestEpochInvalidation(t *testing.T) {
	reg := newTableRegistry()
	reg.add("show", "Int", "old")
	epoch := NewEpoch()
	cache := NewCache[int, string](reg, epoch)

	impl, _ := cache.Resolve(1, "show", "Int")
	if impl != "old" {
		t.Fatalf("resolved %q, want old", impl)
	}

	// Replace the method and bump: the site must re-resolve.
	reg.add("show", "Int", "new")
	epoch.Bump()
	impl, err := cache.Resolve(1, "show", "Int")
	if err != nil {
		t.Fatal(err)
	}
	if impl != "new" {
		t.Errorf("stale binding after epoch bump: got %q, want new", impl)
	}
}

func TestMegamorphicTransition(t *testing.T) {
	reg := newTableRegistry()
	arity := 3
	for i := 0; i < arity+2; i++ {
		reg.add("show", TypeKey(fmt.Sprintf("T%d", i)), fmt.Sprintf("T%d.show", i))
	}
	cache := NewCache[int, string](reg, NewEpoch(), WithSiteArity(arity))

	for i := 0; i < arity+2; i++ {
		key := TypeKey(fmt.Sprintf("T%d", i))
		impl, err := cache.Resolve(1, "show", key)
		if err != nil {
			t.Fatal(err)
		}
		if want := string(key) + ".show"; impl != want {
			t.Errorf("resolved %q, want %q", impl, want)
		}
	}

	site, ok := cache.Site(1)
	if !ok {
		t.Fatal("site missing")
	}
	if !site.Megamorphic() {
		t.Errorf("site not megamorphic after %d receiver types (arity %d)", arity+2, arity)
	}
	if site.Len() > arity {
		t.Errorf("megamorphic site retains %d entries, arity is %d", site.Len(), arity)
	}

	// Still resolves correctly in megamorphic mode.
	impl, err := cache.Resolve(1, "show", "T0")
	if err != nil {
		t.Fatal(err)
	}
	if impl != "T0.show" {
		t.Errorf("megamorphic resolution got %q, want T0.show", impl)
	}
}

func TestEpochBumpResetsMegamorphicFlag(t *testing.T) {
	reg := newTableRegistry()
	for i := 0; i < 4; i++ {
		reg.add("show", TypeKey(fmt.Sprintf("T%d", i)), "impl")
	}
	epoch := NewEpoch()
	cache := NewCache[int, string](reg, epoch, WithSiteArity(2))

	for i := 0; i < 4; i++ {
		cache.Resolve(1, "show", TypeKey(fmt.Sprintf("T%d", i)))
	}
	site, _ := cache.Site(1)
	if !site.Megamorphic() {
		t.Fatal("sanity: site should be megamorphic")
	}

	epoch.Bump()
	if _, err := cache.Resolve(1, "show", "T0"); err != nil {
		t.Fatal(err)
	}
	site, _ = cache.Site(1)
	if site.Megamorphic() {
		t.Error("megamorphic flag survived epoch bump")
	}
}

func TestDisabledCacheStillResolves(t *testing.T) {
	reg := newTableRegistry()
	reg.add("show", "Int", "Int.show")
	cache := NewCache[int, string](reg, NewEpoch(), Disabled(true))

	before := reg.lookups
	for i := 0; i < 3; i++ {
		impl, err := cache.Resolve(1, "show", "Int")
		if err != nil {
			t.Fatal(err)
		}
		if impl != "Int.show" {
			t.Errorf("resolved %q, want Int.show", impl)
		}
	}
	if reg.lookups == before {
		t.Error("disabled cache never consulted the registry")
	}
	if cache.Sites() != 0 {
		t.Errorf("disabled cache created %d sites", cache.Sites())
	}
}

func TestSitesAreIndependent(t *testing.T) {
	reg := newTableRegistry()
	for i := 0; i < 4; i++ {
		reg.add("show", TypeKey(fmt.Sprintf("T%d", i)), "impl")
	}
	cache := NewCache[int, string](reg, NewEpoch(), WithSiteArity(2))

	// Site 1 goes megamorphic; site 2 stays monomorphic.
	for i := 0; i < 4; i++ {
		cache.Resolve(1, "show", TypeKey(fmt.Sprintf("T%d", i)))
	}
	cache.Resolve(2, "show", "T0")

	site1, _ := cache.Site(1)
	site2, _ := cache.Site(2)
	if !site1.Megamorphic() {
		t.Error("site 1 should be megamorphic")
	}
	if site2.Megamorphic() {
		t.Error("site 2 polluted by site 1's receiver history")
	}
	if site2.Len() != 1 {
		t.Errorf("site 2 has %d entries, want 1", site2.Len())
	}
}
