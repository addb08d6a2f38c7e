// Package exprcache stores computed expression results between incremental
// re-runs: values under reclaimable storage, plus independently tracked type
// tags, originating-call metadata and externally supplied recomputation
// weights.
//
// Values are never guaranteed resident. A successful Offer only means the
// value was admitted; it may be reclaimed under memory pressure at any point
// afterwards, and a miss is a normal, recoverable outcome for callers, who
// re-derive the value. The reclaim policy here is a bounded LRU with an
// explicit pressure hook.
package exprcache

import (
	"sync"

	"github.com/lumelang/lume/internal/dispatch"
	"github.com/lumelang/lume/internal/ident"
)

// DefaultCapacity is the default number of resident values.
const DefaultCapacity = 4096

// CallDescriptor identifies which function produced the value at an
// expression position, for change-impact analysis by the editor-side
// observer. Immutable once created.
type CallDescriptor struct {
	Function ident.ID // id of the callee's defining node, if known
	Name     string
	ArgTypes []dispatch.TypeKey
}

type lruEntry[V any] struct {
	id         ident.ID
	val        V
	prev, next *lruEntry[V]
}

// Cache is one session's expression result store. Owned exclusively by the
// session that created it; the mutex only guards against the editor-facing
// surface being driven from a different goroutine than the evaluation.
type Cache[V any] struct {
	mu       sync.Mutex
	capacity int

	values     map[ident.ID]*lruEntry[V]
	head, tail *lruEntry[V]

	types   map[ident.ID]string
	calls   map[ident.ID]*CallDescriptor
	weights map[ident.ID]float64
}

func New[V any](capacity int) *Cache[V] {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Cache[V]{
		capacity: capacity,
		values:   make(map[ident.ID]*lruEntry[V]),
		types:    make(map[ident.ID]string),
		calls:    make(map[ident.ID]*CallDescriptor),
		weights:  make(map[ident.ID]float64),
	}
}

// Offer admits value under id iff the current weight for id is greater than
// zero, overwriting any prior entry. It reports whether admission occurred.
// Ids with no configured weight are rejected.
func (c *Cache[V]) Offer(id ident.ID, value V) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.weights[id] <= 0 {
		return false
	}

	if item, ok := c.values[id]; ok {
		item.val = value
		c.touch(item)
		return true
	}

	var item *lruEntry[V]
	if len(c.values) >= c.capacity {
		item = c.dropLast()
	} else {
		item = new(lruEntry[V])
	}
	item.id = id
	item.val = value
	c.values[id] = item

	item.prev = nil
	item.next = c.head
	if c.head != nil {
		c.head.prev = item
	}
	c.head = item
	if c.tail == nil {
		c.tail = c.head
	}
	return true
}

// Get returns the value for id if it is still resident. A prior admission
// does not guarantee presence.
func (c *Cache[V]) Get(id ident.ID) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	item, ok := c.values[id]
	if !ok {
		var zero V
		return zero, false
	}
	c.touch(item)
	return item.val, true
}

// Remove drops the value for id and returns it, if resident.
func (c *Cache[V]) Remove(id ident.ID) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	item, ok := c.values[id]
	if !ok {
		var zero V
		return zero, false
	}
	c.unlink(item)
	delete(c.values, id)
	return item.val, true
}

// Clear drops all resident values. Types, calls and weights are unaffected.
func (c *Cache[V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.values = make(map[ident.ID]*lruEntry[V])
	c.head = nil
	c.tail = nil
}

// Reclaim drops up to n least-recently-used values and returns how many were
// dropped. Models allocator-driven reclamation under memory pressure.
func (c *Cache[V]) Reclaim(n int) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	dropped := 0
	for dropped < n && c.tail != nil {
		c.dropLast()
		dropped++
	}
	return dropped
}

// Len returns the number of resident values.
func (c *Cache[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.values)
}

// touch moves an entry to the head of the LRU queue.
func (c *Cache[V]) touch(item *lruEntry[V]) {
	if c.head == item {
		return
	}
	c.unlink(item)
	item.prev = nil
	item.next = c.head
	if c.head != nil {
		c.head.prev = item
	}
	c.head = item
	if c.tail == nil {
		c.tail = item
	}
}

func (c *Cache[V]) unlink(item *lruEntry[V]) {
	if item.prev != nil {
		item.prev.next = item.next
	} else if c.head == item {
		c.head = item.next
	}
	if item.next != nil {
		item.next.prev = item.prev
	} else if c.tail == item {
		c.tail = item.prev
	}
	item.prev = nil
	item.next = nil
}

// dropLast evicts the tail entry and returns it for reuse.
func (c *Cache[V]) dropLast() *lruEntry[V] {
	item := c.tail
	c.unlink(item)
	delete(c.values, item.id)
	var zero V
	item.val = zero
	return item
}

// PutType records the observed type tag for id, returning any previous tag.
// Type tags are tracked independently of value admission.
func (c *Cache[V]) PutType(id ident.ID, tag string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	old, ok := c.types[id]
	c.types[id] = tag
	return old, ok
}

func (c *Cache[V]) GetType(id ident.ID) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	tag, ok := c.types[id]
	return tag, ok
}

func (c *Cache[V]) RemoveType(id ident.ID) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	old, ok := c.types[id]
	delete(c.types, id)
	return old, ok
}

func (c *Cache[V]) ClearTypes() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.types = make(map[ident.ID]string)
}

// Types returns a copy of the type tag table.
func (c *Cache[V]) Types() map[ident.ID]string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[ident.ID]string, len(c.types))
	for k, v := range c.types {
		out[k] = v
	}
	return out
}

// PutCall records the call that produced the value at id, returning any
// previous descriptor. A nil call removes the entry instead of storing nil.
func (c *Cache[V]) PutCall(id ident.ID, call *CallDescriptor) *CallDescriptor {
	c.mu.Lock()
	defer c.mu.Unlock()
	old := c.calls[id]
	if call == nil {
		delete(c.calls, id)
		return old
	}
	c.calls[id] = call
	return old
}

func (c *Cache[V]) GetCall(id ident.ID) *CallDescriptor {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls[id]
}

// ListCallSites returns the ids with recorded call descriptors.
func (c *Cache[V]) ListCallSites() []ident.ID {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]ident.ID, 0, len(c.calls))
	for id := range c.calls {
		out = append(out, id)
	}
	return out
}

func (c *Cache[V]) ClearCalls() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = make(map[ident.ID]*CallDescriptor)
}

// SetWeights replaces the weight table wholesale. Existing entries are kept;
// weights steer only future admission decisions.
func (c *Cache[V]) SetWeights(weights map[ident.ID]float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.weights = make(map[ident.ID]float64, len(weights))
	for id, w := range weights {
		c.weights[id] = w
	}
}

// Weight returns the configured weight for id, zero if never set.
func (c *Cache[V]) Weight(id ident.ID) float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.weights[id]
}

// Weights returns a copy of the weight table.
func (c *Cache[V]) Weights() map[ident.ID]float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[ident.ID]float64, len(c.weights))
	for k, v := range c.weights {
		out[k] = v
	}
	return out
}

func (c *Cache[V]) RemoveWeight(id ident.ID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.weights, id)
}

// ClearWeights removes all weights; every subsequent Offer fails until
// weights are re-supplied.
func (c *Cache[V]) ClearWeights() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.weights = make(map[ident.ID]float64)
}
