// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package refcount

import (
	"sync/atomic"

	"code.hybscloud.com/spin"
)

// mutex is the pool's guarding lock. Per spec §4.2 and §5 it is conceptually a
// recursive mutex that compiles out to a no-op in single-thread mode; since Go
// has no native recursive mutex, it is modeled here as a short spin-and-block
// lock (spin a few rounds via spin.Wait, then fall back to a blocking CAS
// loop), which keeps short critical sections cheap without pulling in a
// separate recursive-lock dependency. SetSingleThreaded disables the spin
// entirely, matching "compiled out" for embedders that know they own a single
// goroutine (e.g. a reactor's own pool instances).
type mutex struct {
	locked          atomic.Bool
	singleThreaded  bool
	depth           int // reentrancy depth, valid only while locked by this goroutine in single-threaded mode
}

func (m *mutex) Lock() {
	if m.singleThreaded {
		m.depth++
		return
	}
	var sw spin.Wait
	for !m.locked.CompareAndSwap(false, true) {
		sw.Once()
	}
}

func (m *mutex) Unlock() {
	if m.singleThreaded {
		m.depth--
		return
	}
	m.locked.Store(false)
}
