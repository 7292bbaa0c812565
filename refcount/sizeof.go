// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package refcount

import "unsafe"

// unsafeSizeof reports the in-memory size of a node, used only to size slabs
// to approximately one page (spec §4.2).
func unsafeSizeof[T any](v node[T]) uintptr {
	return unsafe.Sizeof(v)
}
