package store

import "sync/atomic"

// Allocator issues strictly increasing comment ids. Ids are never reused,
// though an id may be skipped when the write that claimed it fails.
type Allocator struct {
	last atomic.Int64
}

func NewAllocator() *Allocator {
	return &Allocator{}
}

// Next returns a fresh id greater than every id issued or seeded before.
func (a *Allocator) Next() int64 {
	return a.last.Add(1)
}

// Seed raises the floor to max so ids restored from storage are never handed out again.
func (a *Allocator) Seed(max int64) {
	for {
		cur := a.last.Load()
		if max <= cur {
			return
		}
		if a.last.CompareAndSwap(cur, max) {
			return
		}
	}
}

// Last returns the most recently issued or seeded id.
func (a *Allocator) Last() int64 {
	return a.last.Load()
}
