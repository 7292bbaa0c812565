// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package policy implements the per-cycle I/O quota/rate-limit hook the
// reactor consults before and after moving bytes for a session (spec §4.9).
// A Policy may be shared by many sessions; the reactor is single-threaded,
// so no locking is required among the sessions sharing one Policy.
package policy

import "time"

// Holder identifies whatever is consulting the policy (a session, in
// practice) for the duration of one accounting cycle. It is an opaque
// comparable key, not a behavioral interface, since different policies
// may want to key their per-holder state differently (by pointer identity,
// by session ID, ...).
type Holder any

// Policy is the reactor-facing I/O policy contract of spec §4.9.
type Policy interface {
	// OkayToTransfer reports whether holder should be registered for
	// read/write this cycle at all.
	OkayToTransfer(holder Holder) bool

	// MaxTransferChunkSize caps how many bytes holder may move this cycle.
	// A non-positive result means "no additional cap" (unbounded).
	MaxTransferChunkSize(holder Holder) int

	// BytesTransferred reports n more bytes moved by holder since the last
	// BeginIO, for this cycle's accounting.
	BytesTransferred(holder Holder, n int)

	// BeginIO starts a new accounting cycle at the given time (spec's
	// per-cycle "policy pre-pass").
	BeginIO(now time.Time)

	// EndIO closes the current accounting cycle (spec's "policy post-pass"),
	// resetting any per-cycle state.
	EndIO(now time.Time)

	// NextPulseTime returns the next absolute time this policy wants the
	// reactor to wake it even with no I/O activity (e.g. when a rate-limit
	// window rolls over), or the zero Time if it has nothing scheduled.
	NextPulseTime(prev time.Time) time.Time
}
