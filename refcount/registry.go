// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package refcount

import "sync"

// registry links every live pool so that FlushAll can release all of their
// backing storage at once, matching spec §4.2's "a global registry links
// every pool so that a process-wide 'flush all pools' can be invoked at
// shutdown." reactor.Reactor.Run calls FlushAll once its loop has exited.
var (
	registryMu sync.Mutex
	registry   []func()
)

func registerPool[T any](p *Pool[T]) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry = append(registry, p.flush)
}

// FlushAll releases the backing storage of every pool created via NewPool in
// this process. Intended for deterministic cleanup at shutdown; it is not
// required for correctness since pools also self-trim via their high-water
// mark.
func FlushAll() {
	registryMu.Lock()
	fns := append([]func(){}, registry...)
	registryMu.Unlock()
	for _, fn := range fns {
		fn()
	}
}
