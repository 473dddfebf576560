package locking

// RefCount tracks how many holders still reference a temporary relation.
// The holder that drops it to zero is responsible for deleting it.

import (
	"fmt"
	"sync/atomic"
)

type RefCount struct {
	n atomic.Int32
}

// NewRefCount starts at one: the creator holds the first reference.
func NewRefCount() *RefCount {
	r := &RefCount{}
	r.n.Store(1)
	return r
}

func (r *RefCount) Retain() { r.n.Add(1) }

// Release drops one reference and reports whether it was the last.
func (r *RefCount) Release() bool {
	left := r.n.Add(-1)
	if left < 0 {
		panic("locking: refcount released below zero")
	}
	return left == 0
}

func (r *RefCount) Count() int32 { return r.n.Load() }

func (r *RefCount) String() string {
	return fmt.Sprintf("RefCount: %d", r.Count())
}
