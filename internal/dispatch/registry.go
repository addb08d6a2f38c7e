// Package dispatch implements polymorphic inline caching for method call
// sites: each static call location owns a small association list of
// (receiver type → resolved callable) bindings, with a megamorphic fallback
// once the list is full and bulk invalidation through a shared Epoch.
package dispatch

import "fmt"

// TypeKey identifies a receiver's dispatch type: its concrete runtime type,
// not a nominal surface type.
type TypeKey string

// AnyType is the universal fallback searched after a receiver's own type and
// its declared supertypes.
const AnyType TypeKey = "Any"

// Registry resolves method symbols cold. Implementations must be safe for
// concurrent lookups from multiple sessions; writes (method redefinition)
// are rare administrative events and must bump the shared Epoch.
type Registry[C any] interface {
	// Lookup returns the callable bound to (symbol, key), if any.
	Lookup(symbol string, key TypeKey) (C, bool)

	// Supertypes returns key's declared supertypes in declaration order.
	// The universal fallback type is not included; the cache appends it.
	Supertypes(key TypeKey) []TypeKey
}

// MethodNotFoundError reports an unresolved symbol. It is surfaced to the
// caller as a typed error, never silently substituted; the evaluator turns
// it into a data-flow error value.
type MethodNotFoundError struct {
	Symbol   string
	Receiver TypeKey
}

func (e *MethodNotFoundError) Error() string {
	return fmt.Sprintf("method %q not found for type %s", e.Symbol, e.Receiver)
}
