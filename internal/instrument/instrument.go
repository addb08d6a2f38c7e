// Package instrument implements the execution instrumentation protocol: an
// external observer can intercept expression entry, substitute a cached
// result to short-circuit evaluation, and receive notification of computed
// results and call boundaries.
//
// Bindings compose by overlay: a new binding overrides only the callback
// slots it supplies and delegates unset slots to its predecessor. The chain
// is a linked list of partial records walked through atomic links, so
// concurrent snapshots never block each other; disposal marks the node dead
// and unlinks it, keeping the chain bounded by the number of live bindings.
package instrument

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/lumelang/lume/internal/ident"
)

// ControlSignal marks panic values that belong to the evaluator's own
// control flow. A probe recovering such a value must re-raise it instead of
// swallowing it.
type ControlSignal interface {
	EvaluationControl()
}

// Binding is one observer registration. Any slot may be nil; nil slots
// delegate to the previously bound observer.
type Binding[V any] struct {
	// OnEnter may supply a substitute result for the expression, which the
	// evaluator uses instead of evaluating the subtree.
	OnEnter func(id ident.ID) (V, bool)

	// OnCachedResult is notified when OnEnter short-circuited evaluation
	// with a substitute value.
	OnCachedResult func(id ident.ID, value V)

	// OnReturn is notified after normal evaluation. Not fired when OnEnter
	// short-circuited. Purely informational.
	OnReturn func(id ident.ID, value V, elapsed time.Duration, isError bool)

	// OnCall fires when the expression is a call boundary; a substitute
	// return short-circuits the call the same way OnEnter does.
	OnCall func(id ident.ID, fn V, args []V) (V, bool)
}

type node[V any] struct {
	binding  Binding[V]
	prev     atomic.Pointer[node[V]]
	disposed atomic.Bool
}

// Handle detaches a binding. Dispose is idempotent; disposal does not affect
// evaluations whose probe snapshot was taken before the call.
type Handle struct {
	once    sync.Once
	dispose func()
}

func (h *Handle) Dispose() {
	h.once.Do(h.dispose)
}

// Chain is the composed observer stack for one compiled unit. Bind and
// Snapshot are safe for concurrent use.
type Chain[V any] struct {
	mu   sync.Mutex
	head *node[V]

	// OnProbeFailure, if set, receives panics recovered from observer
	// callbacks. Probe failures are treated as "no opinion"; this hook
	// exists only for logging.
	OnProbeFailure func(id ident.ID, recovered interface{})
}

func NewChain[V any]() *Chain[V] {
	return &Chain[V]{}
}

// Bind registers a binding on top of the chain and returns its Handle.
func (c *Chain[V]) Bind(b Binding[V]) *Handle {
	n := &node[V]{binding: b}
	c.mu.Lock()
	n.prev.Store(c.head)
	c.head = n
	c.mu.Unlock()
	return &Handle{dispose: func() { c.unlink(n) }}
}

// unlink marks the node dead and splices it out of the chain. The node keeps
// its own prev link, so a snapshot walk that already reached it skips over
// and continues to live predecessors.
func (c *Chain[V]) unlink(n *node[V]) {
	n.disposed.Store(true)
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.head == n {
		c.head = n.prev.Load()
		return
	}
	for m := c.head; m != nil; m = m.prev.Load() {
		if m.prev.Load() == n {
			m.prev.Store(n.prev.Load())
			return
		}
	}
}

// Empty reports whether no live binding supplies any slot.
func (c *Chain[V]) Empty() bool {
	c.mu.Lock()
	n := c.head
	c.mu.Unlock()
	for ; n != nil; n = n.prev.Load() {
		if n.disposed.Load() {
			continue
		}
		b := n.binding
		if b.OnEnter != nil || b.OnCachedResult != nil || b.OnReturn != nil || b.OnCall != nil {
			return false
		}
	}
	return true
}

// Snapshot resolves each callback slot against the live bindings, walking
// from the most recent registration to its predecessors. The returned Probe
// is immune to later Bind and Dispose calls, so one expression's evaluation
// always sees a consistent, non-torn set of callbacks.
func (c *Chain[V]) Snapshot() Probe[V] {
	c.mu.Lock()
	n := c.head
	c.mu.Unlock()

	p := Probe[V]{failure: c.OnProbeFailure}
	for ; n != nil; n = n.prev.Load() {
		if n.disposed.Load() {
			continue
		}
		b := n.binding
		if p.enter == nil && b.OnEnter != nil {
			p.enter = b.OnEnter
		}
		if p.cached == nil && b.OnCachedResult != nil {
			p.cached = b.OnCachedResult
		}
		if p.ret == nil && b.OnReturn != nil {
			p.ret = b.OnReturn
		}
		if p.call == nil && b.OnCall != nil {
			p.call = b.OnCall
		}
	}
	return p
}

// Probe is a resolved, immutable view of the chain for one expression's
// evaluation. The zero Probe is valid and does nothing.
type Probe[V any] struct {
	enter   func(id ident.ID) (V, bool)
	cached  func(id ident.ID, value V)
	ret     func(id ident.ID, value V, elapsed time.Duration, isError bool)
	call    func(id ident.ID, fn V, args []V) (V, bool)
	failure func(id ident.ID, recovered interface{})
}

// Active reports whether any slot is populated.
func (p Probe[V]) Active() bool {
	return p.enter != nil || p.cached != nil || p.ret != nil || p.call != nil
}

// Enter asks the observer for a substitute result. A panicking observer is
// treated as having no opinion.
func (p Probe[V]) Enter(id ident.ID) (value V, ok bool) {
	if p.enter == nil {
		return value, false
	}
	defer p.recover(id, &ok)
	return p.enter(id)
}

// CachedResult notifies the observer that a substitute value was used.
func (p Probe[V]) CachedResult(id ident.ID, value V) {
	if p.cached == nil {
		return
	}
	var ok bool
	defer p.recover(id, &ok)
	p.cached(id, value)
}

// Return notifies the observer of a computed result.
func (p Probe[V]) Return(id ident.ID, value V, elapsed time.Duration, isError bool) {
	if p.ret == nil {
		return
	}
	var ok bool
	defer p.recover(id, &ok)
	p.ret(id, value, elapsed, isError)
}

// Call asks the observer for a substitute return value at a call boundary.
func (p Probe[V]) Call(id ident.ID, fn V, args []V) (value V, ok bool) {
	if p.call == nil {
		return value, false
	}
	defer p.recover(id, &ok)
	return p.call(id, fn, args)
}

// recover swallows observer panics ("no opinion"), re-raising only the
// evaluator's own control-flow signals. On a swallowed panic *ok is forced
// to false so a torn named return cannot leak a half-built substitution.
func (p Probe[V]) recover(id ident.ID, ok *bool) {
	r := recover()
	if r == nil {
		return
	}
	if _, isSignal := r.(ControlSignal); isSignal {
		panic(r)
	}
	*ok = false
	if p.failure != nil {
		p.failure(id, r)
	}
}
