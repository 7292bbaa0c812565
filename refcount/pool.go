// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package refcount implements shared/weak ownership (Ref[T]/Weak[T]) and a
// slab-backed object pool (Pool[T]), matching spec §3's "Reference-counted
// object" and "Object-pool slab" data model and §4.2's component design.
//
// Pool[T] maintains a doubly-linked list of fixed-size slabs (~4096 bytes
// each, rounded to an integral number of nodes). Obtain pops the first free
// node in the head slab, demand-allocating a new slab if none is available.
// Release pushes the node back to its slab's free list, and deletes the slab
// if it becomes fully free and the pool's reserve exceeds its high-water cap.
package refcount

import "code.hybscloud.com/muscle/status"

// Pool manages Ref[T]-wrapped objects backed by fixed-capacity slabs of
// reusable nodes, per spec §4.2. It is safe for concurrent use; in
// single-threaded mode (SetSingleThreaded) its internal lock compiles down to
// simple reentrancy bookkeeping.
type Pool[T any] struct {
	mu mutex

	head *slab[T] // head of the slab list; slabs with free nodes are kept near the head
	tail *slab[T]

	nodesPerSlab int
	reserveCap   int // high-water mark: a fully-free slab is kept until total free nodes exceed this
	totalNodes   int
	freeNodes    int

	onAllocFailed func()

	newFunc func() T
}

// NewPool creates a pool whose slabs are sized to hold roughly one page's
// worth of T per slab. reserveCap bounds how many totally-idle nodes the pool
// keeps around (across all fully-free slabs) before releasing slabs back to
// the runtime; 0 means "destroy empty slabs immediately."
func NewPool[T any](reserveCap int) *Pool[T] {
	p := &Pool[T]{
		nodesPerSlab: nodesPerSlab[T](),
		reserveCap:   reserveCap,
	}
	registerPool(p)
	return p
}

// SetSingleThreaded disables the pool's internal locking. Only call this when
// the pool is provably owned by a single goroutine (e.g. a reactor's private
// pools), matching spec §5's "in single-thread mode this mutex is compiled out."
func (p *Pool[T]) SetSingleThreaded(v bool) { p.mu.singleThreaded = v }

// OnAllocFailed registers the "memory paranoia" hook invoked when a new slab
// cannot be allocated. The hook may log or dump diagnostics; Obtain then
// returns a failure status regardless of what the hook does.
func (p *Pool[T]) OnAllocFailed(fn func()) { p.onAllocFailed = fn }

// Obtain acquires a node from the pool, demand-allocating a new slab if
// necessary, and returns a strong Ref to it. On allocation failure it invokes
// the OnAllocFailed hook (if any) and returns a failure status.
func (p *Pool[T]) Obtain() (Ref[T], status.Status) {
	p.mu.Lock()
	defer p.mu.Unlock()

	s := p.head
	for s != nil && s.isFull() {
		s = s.next
	}
	if s == nil {
		var ok bool
		s, ok = p.growLocked()
		if !ok {
			if p.onAllocFailed != nil {
				p.onAllocFailed()
			}
			return Ref[T]{}, status.New(status.OutOfMemory)
		}
	}

	n := s.obtain()
	p.freeNodes--
	return Ref[T]{n: n}, status.Ok()
}

// growLocked allocates and links a new slab at the head of the list. Caller
// must hold p.mu.
func (p *Pool[T]) growLocked() (*slab[T], bool) {
	s := newSlab[T](p, p.nodesPerSlab)
	s.next = p.head
	if p.head != nil {
		p.head.prev = s
	}
	p.head = s
	if p.tail == nil {
		p.tail = s
	}
	p.totalNodes += p.nodesPerSlab
	p.freeNodes += p.nodesPerSlab
	return s, true
}

// release returns a node to its owning slab's free list, then destroys the
// slab if it is now fully free and the pool's reserve would exceed its cap.
// Called by recycle() via node.owner.release -> this method (see node.go).
func (p *Pool[T]) release(n *node[T]) {
	p.mu.Lock()
	defer p.mu.Unlock()

	s := n.owner
	s.release(n)
	p.freeNodes++

	if s.isEmpty() && p.freeNodes-p.nodesPerSlab >= p.reserveCap {
		p.unlinkLocked(s)
		p.totalNodes -= p.nodesPerSlab
		p.freeNodes -= p.nodesPerSlab
	}
}

func (p *Pool[T]) unlinkLocked(s *slab[T]) {
	if s.prev != nil {
		s.prev.next = s.next
	} else {
		p.head = s.next
	}
	if s.next != nil {
		s.next.prev = s.prev
	} else {
		p.tail = s.prev
	}
}

// Stats reports the pool's current slab/node bookkeeping, useful for tests
// and diagnostics (spec's testable property: "no two live references ever
// alias the same storage simultaneously" is easiest to assert against these).
type Stats struct {
	Slabs      int
	TotalNodes int
	FreeNodes  int
}

// Stats returns a snapshot of the pool's bookkeeping.
func (p *Pool[T]) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for s := p.head; s != nil; s = s.next {
		n++
	}
	return Stats{Slabs: n, TotalNodes: p.totalNodes, FreeNodes: p.freeNodes}
}

// flush destroys every slab in the pool, releasing all backing storage. Used
// by the process-wide FlushAll at shutdown (spec §4.2's "global registry").
func (p *Pool[T]) flush() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.head = nil
	p.tail = nil
	p.totalNodes = 0
	p.freeNodes = 0
}
