// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package mux abstracts the OS-specific readiness-notification primitive
// (epoll, kqueue, poll, select) behind one interface, so a single reactor
// event loop can run unmodified across platforms.
package mux

import (
	"time"

	"code.hybscloud.com/muscle/status"
)

// Multiplexer tracks interest in read/write/exception readiness for a set of
// file descriptors and blocks until at least one becomes ready or a deadline
// passes. Implementations are not safe for concurrent use: the reactor event
// loop owns a Multiplexer from a single goroutine, matching the teacher's
// single-threaded-per-gateway convention.
type Multiplexer interface {
	// RegisterForRead, RegisterForWrite and RegisterForException add fd to the
	// interest set for that readiness kind. Registering the same fd for the
	// same kind twice is a no-op.
	RegisterForRead(fd int) status.Status
	RegisterForWrite(fd int) status.Status
	RegisterForException(fd int) status.Status

	// UnregisterForRead, UnregisterForWrite and UnregisterForException remove
	// fd from the interest set for that readiness kind. Unregistering an fd
	// that was never registered is a no-op.
	UnregisterForRead(fd int) status.Status
	UnregisterForWrite(fd int) status.Status
	UnregisterForException(fd int) status.Status

	// WaitForEvents blocks until at least one registered fd is ready, the
	// deadline passes, or an error occurs. A zero deadline blocks forever.
	// It returns the number of ready descriptors.
	WaitForEvents(deadline time.Time) (int, status.Status)

	// IsReadyForRead, IsReadyForWrite and IsReadyForException report whether
	// fd was found ready by the most recent WaitForEvents call.
	IsReadyForRead(fd int) bool
	IsReadyForWrite(fd int) bool
	IsReadyForException(fd int) bool

	// Close releases the underlying OS resources (epoll/kqueue fd, etc).
	Close() status.Status
}

// New returns the best Multiplexer backend available on the current
// platform: epoll on Linux, kqueue on the BSDs and Darwin, poll elsewhere.
func New() (Multiplexer, status.Status) {
	return newDefault()
}

// deadlineToMillis converts a deadline into a millisecond timeout for
// syscalls that take one, clamping negative (already-passed) deadlines to 0
// so a past deadline still performs one non-blocking poll rather than
// blocking forever. A zero deadline means "block forever" (-1).
func deadlineToMillis(deadline time.Time) int {
	if deadline.IsZero() {
		return -1
	}
	d := time.Until(deadline)
	if d < 0 {
		return 0
	}
	ms := d.Milliseconds()
	if ms > int64(int(^uint(0)>>1)) {
		return int(^uint(0) >> 1)
	}
	return int(ms)
}
