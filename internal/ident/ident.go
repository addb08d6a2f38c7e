// Package ident assigns stable identities to syntactic expression positions.
//
// An ID names one expression position in a source unit. It is derived
// deterministically from the unit name and the structural path of the node,
// so re-compiling unchanged code yields identical ids, and an id is never
// reused for a semantically different expression (a different structural
// path produces a different id).
package ident

import "github.com/google/uuid"

// namespace for derived expression ids. Fixed so derivation is stable
// across processes.
var namespace = uuid.MustParse("b1f86a4e-9c7d-4e6a-8a7e-3f2d5c1b9e04")

// ID is a stable, globally unique identifier for an expression position.
// The zero value means "no identity assigned".
type ID uuid.UUID

// Zero is the unassigned id.
var Zero ID

// Derive computes the id for the expression at the given structural path
// inside unit. The same (unit, path) pair always derives the same id.
func Derive(unit, path string) ID {
	return ID(uuid.NewSHA1(namespace, []byte(unit+"\x00"+path)))
}

// Parse converts the canonical string form back into an ID.
func Parse(s string) (ID, error) {
	u, err := uuid.Parse(s)
	if err != nil {
		return Zero, err
	}
	return ID(u), nil
}

func (id ID) String() string { return uuid.UUID(id).String() }

func (id ID) IsZero() bool { return id == Zero }
