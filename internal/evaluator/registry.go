package evaluator

import (
	"sync"

	"github.com/lumelang/lume/internal/dispatch"
)

// MethodRegistry is the evaluator's method table: symbol -> receiver type ->
// callable. Every mutation bumps the dispatch epoch exactly once, so cached
// call sites discard stale bindings lazily on their next resolution.
type MethodRegistry struct {
	mu      sync.RWMutex
	epoch   *dispatch.Epoch
	methods map[string]map[dispatch.TypeKey]Object
	supers  map[dispatch.TypeKey][]dispatch.TypeKey
}

func NewMethodRegistry(epoch *dispatch.Epoch) *MethodRegistry {
	if epoch == nil {
		epoch = dispatch.NewEpoch()
	}
	r := &MethodRegistry{
		epoch:   epoch,
		methods: make(map[string]map[dispatch.TypeKey]Object),
		supers:  make(map[dispatch.TypeKey][]dispatch.TypeKey),
	}
	r.supers[TypeInt] = []dispatch.TypeKey{TypeNumber}
	r.supers[TypeFloat] = []dispatch.TypeKey{TypeNumber}
	return r
}

func (r *MethodRegistry) Epoch() *dispatch.Epoch { return r.epoch }

// Register installs or replaces a method and bumps the epoch.
func (r *MethodRegistry) Register(symbol string, key dispatch.TypeKey, callable Object) {
	r.mu.Lock()
	table, ok := r.methods[symbol]
	if !ok {
		table = make(map[dispatch.TypeKey]Object)
		r.methods[symbol] = table
	}
	table[key] = callable
	r.mu.Unlock()
	r.epoch.Bump()
}

// Unregister removes a method binding if present. A no-op removal still
// bumps the epoch only when something actually changed.
func (r *MethodRegistry) Unregister(symbol string, key dispatch.TypeKey) bool {
	r.mu.Lock()
	table, ok := r.methods[symbol]
	if ok {
		_, ok = table[key]
		if ok {
			delete(table, key)
		}
	}
	r.mu.Unlock()
	if ok {
		r.epoch.Bump()
	}
	return ok
}

// DeclareSupertypes replaces the declared supertype chain of a type key.
func (r *MethodRegistry) DeclareSupertypes(key dispatch.TypeKey, supers ...dispatch.TypeKey) {
	r.mu.Lock()
	r.supers[key] = append([]dispatch.TypeKey(nil), supers...)
	r.mu.Unlock()
	r.epoch.Bump()
}

func (r *MethodRegistry) Lookup(symbol string, key dispatch.TypeKey) (Object, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	table, ok := r.methods[symbol]
	if !ok {
		return nil, false
	}
	callable, ok := table[key]
	return callable, ok
}

func (r *MethodRegistry) Supertypes(key dispatch.TypeKey) []dispatch.TypeKey {
	r.mu.RLock()
	defer r.mu.RUnlock()
	supers, ok := r.supers[key]
	if !ok {
		return nil
	}
	return append([]dispatch.TypeKey(nil), supers...)
}
