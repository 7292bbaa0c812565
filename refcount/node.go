// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package refcount

import "sync/atomic"

// node is one slot inside a slab: it embeds the value, the intrusive strong/weak
// counters, and the bookkeeping a slab needs to return it to its free list.
//
// Per spec §3 ("Object-pool slab"), the historical design finds a node's owning
// slab via pointer arithmetic on the node's embedded index. Go slices are not
// guaranteed stable addresses across growth and arithmetic on typed pointers is
// unsafe in the general case, so this port keeps the invariant's intent (O(1)
// node -> slab lookup with no extra allocation) by storing a typed owner
// pointer instead of doing address arithmetic; see DESIGN.md.
type node[T any] struct {
	value T

	strong atomic.Int32
	weak   atomic.Int32

	index int32 // this node's position within owner.nodes
	next  int32 // index of the next free node in owner's free list, or freeListEnd

	owner *slab[T]
}

const freeListEnd int32 = -1

// Ref is a strong, move/copy-safe reference to a pooled or heap object.
//
// The zero value is not a valid Ref; always obtain one from Pool.Obtain or
// New. A plain copy of a Ref shares the same strong count without
// incrementing it; Clone takes a new strong reference,
// matching the "usual operations plus safe down-cast" contract from spec §4.2.
type Ref[T any] struct {
	n *node[T]
}

// IsValid reports whether this Ref still refers to a live object.
func (r Ref[T]) IsValid() bool { return r.n != nil }

// Get returns a pointer to the referenced value. The pointer is valid only
// while at least one strong reference (including this one) is held.
func (r Ref[T]) Get() *T {
	if r.n == nil {
		return nil
	}
	return &r.n.value
}

// Clone returns a new strong reference to the same object, incrementing the
// strong count. The returned Ref must eventually be Released independently of
// the receiver.
func (r Ref[T]) Clone() Ref[T] {
	if r.n == nil {
		return Ref[T]{}
	}
	r.n.strong.Add(1)
	return Ref[T]{n: r.n}
}

// Weak returns a weak reference to the same object. Weak references never
// keep the object alive and must never be promoted back into a strong
// reference except via Upgrade, to avoid the reference cycles spec §3 calls
// out as forbidden ("self-references into a strong reference...would cause
// leaks; back-references must be weak").
func (r Ref[T]) Weak() Weak[T] {
	if r.n == nil {
		return Weak[T]{}
	}
	r.n.weak.Add(1)
	return Weak[T]{n: r.n}
}

// StrongCount returns the current strong reference count.
func (r Ref[T]) StrongCount() int32 {
	if r.n == nil {
		return 0
	}
	return r.n.strong.Load()
}

// Release drops this strong reference. When the last strong reference drops,
// the object is reset to its zero value and handed back to its recycler (the
// originating pool, or discarded if heap-allocated).
func (r Ref[T]) Release() {
	if r.n == nil {
		return
	}
	if r.n.strong.Add(-1) == 0 {
		recycle(r.n)
	}
}

func recycle[T any](n *node[T]) {
	var zero T
	n.value = zero
	if n.owner != nil {
		n.owner.pool.release(n)
		return
	}
	// Heap-allocated (non-pooled) object: nothing further to do, but if the
	// last weak reference is also gone the node becomes unreachable and the
	// GC reclaims it.
}

// Weak is a non-owning reference that resolves to a strong Ref only while the
// object is still alive.
type Weak[T any] struct {
	n *node[T]
}

// IsValid reports whether this Weak was ever bound to an object (it does not
// imply the object is still alive; use Upgrade for that).
func (w Weak[T]) IsValid() bool { return w.n != nil }

// Upgrade attempts to produce a strong Ref from this weak reference. It
// succeeds only while the strong count is non-zero, matching spec §3's
// "Weak references resolve to a strong reference only while the strong count
// is non-zero."
func (w Weak[T]) Upgrade() (Ref[T], bool) {
	if w.n == nil {
		return Ref[T]{}, false
	}
	for {
		cur := w.n.strong.Load()
		if cur == 0 {
			return Ref[T]{}, false
		}
		if w.n.strong.CompareAndSwap(cur, cur+1) {
			return Ref[T]{n: w.n}, true
		}
	}
}

// Release drops this weak reference. When the last weak reference (and the
// last strong reference) are both gone, a heap-allocated control block is
// freed; pool-allocated nodes are simply slab slots and need no further
// action here.
func (w Weak[T]) Release() {
	if w.n == nil {
		return
	}
	w.n.weak.Add(-1)
}

// New wraps value in a heap-allocated strong reference with no pool backing.
// Releasing the last strong reference simply drops the value for GC.
func New[T any](value T) Ref[T] {
	n := &node[T]{value: value, index: -1, next: freeListEnd}
	n.strong.Store(1)
	return Ref[T]{n: n}
}
