package dispatch

import "sync/atomic"

// Epoch is the process-wide dispatch invalidation counter. It is bumped
// exactly once per method-table mutation; every cached site entry is only
// trusted while its recorded epoch matches the current one.
//
// An Epoch is shared by all sessions resolving against the same method
// registry, and is passed in explicitly so sessions stay testable in
// isolation.
type Epoch struct {
	n atomic.Uint64
}

func NewEpoch() *Epoch {
	return &Epoch{}
}

// Bump invalidates all cached dispatch entries and returns the new epoch.
func (e *Epoch) Bump() uint64 {
	return e.n.Add(1)
}

// Current returns the current epoch value.
func (e *Epoch) Current() uint64 {
	return e.n.Load()
}
