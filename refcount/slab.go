// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package refcount

// slab is a contiguous array of N nodes, N chosen so one slab occupies
// approximately one page (spec §3, §4.2). Slabs form a doubly-linked list
// inside their owning Pool so that a fully-free slab can be spliced out in
// O(1) once it is no longer needed.
type slab[T any] struct {
	pool  *Pool[T]
	nodes []node[T]

	freeHead  int32 // index of first free node in this slab, or freeListEnd
	freeCount int32

	prev, next *slab[T]
}

const pageSize = 4096

// nodesPerSlab computes N such that one slab is approximately one page,
// always at least 1.
func nodesPerSlab[T any]() int {
	var probe node[T]
	sz := int(unsafeSizeof(probe))
	if sz <= 0 {
		sz = 1
	}
	n := pageSize / sz
	if n < 1 {
		n = 1
	}
	return n
}

func newSlab[T any](pool *Pool[T], n int) *slab[T] {
	s := &slab[T]{pool: pool, nodes: make([]node[T], n)}
	for i := 0; i < n; i++ {
		s.nodes[i].index = int32(i)
		s.nodes[i].owner = s
		if i == n-1 {
			s.nodes[i].next = freeListEnd
		} else {
			s.nodes[i].next = int32(i + 1)
		}
	}
	s.freeHead = 0
	s.freeCount = int32(n)
	return s
}

// obtain pops the first free node from this slab. Caller must hold pool.mu.
func (s *slab[T]) obtain() *node[T] {
	if s.freeHead == freeListEnd {
		return nil
	}
	n := &s.nodes[s.freeHead]
	s.freeHead = n.next
	s.freeCount--
	n.next = freeListEnd
	n.strong.Store(1)
	n.weak.Store(0)
	return n
}

// release pushes a node back onto its owning slab's free list. Caller must
// hold pool.mu (via slab.pool.release, the only caller).
func (s *slab[T]) release(n *node[T]) {
	n.next = s.freeHead
	s.freeHead = n.index
	s.freeCount++
}

func (s *slab[T]) isFull() bool  { return s.freeCount == 0 }
func (s *slab[T]) isEmpty() bool { return int(s.freeCount) == len(s.nodes) }
