// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package dataio is the polymorphic byte source/sink abstraction a gateway
// reads from and writes to: file, TCP stream, UDP packet, a seekable/proxying
// wrapper, an async-worker wrapper, and a TLS wrapper all implement the same
// DataIO interface so the reactor's event loop never special-cases the
// transport underneath a session.
package dataio

import (
	"time"

	"code.hybscloud.com/muscle/status"
)

// NoSocket is returned by ReadSelectSocket/WriteSelectSocket when a DataIO has
// no descriptor suitable for multiplexing on that side (e.g. the TLS wrapper).
const NoSocket = -1

// DataIO is the capability set spec §4.5 requires: read, write, flush,
// shutdown, buffered-output query, and up to two selectable descriptors (read
// side and write side may differ, as with a half-duplex pipe pair).
type DataIO interface {
	// Read attempts to fill p and returns the bytes read plus a status. A
	// WouldBlock status means "no data available right now, not an error".
	Read(p []byte) status.IOResult

	// Write attempts to send p and returns the bytes written plus a status.
	Write(p []byte) status.IOResult

	// Flush pushes any internally buffered output to the backend immediately.
	Flush() status.Status

	// Shutdown closes the underlying descriptor(s). Read/Write after Shutdown
	// return a BadObject status.
	Shutdown() status.Status

	// HasBufferedOutput reports whether Flush would have work to do.
	HasBufferedOutput() bool

	// ReadSelectSocket and WriteSelectSocket return the fd a Multiplexer
	// should register for read/write readiness, or NoSocket if this DataIO
	// has nothing selectable on that side.
	ReadSelectSocket() int
	WriteSelectSocket() int

	// OutputStallLimit is the duration of no write progress, while output is
	// pending, after which the session should be treated as I/O-errored
	// (spec §7's "output-stall timeout").
	OutputStallLimit() time.Duration
}

// Seeker is implemented by DataIO variants backed by a seekable resource
// (currently only the file variant).
type Seeker interface {
	Seek(offset int64, whence int) (int64, status.Status)
}

// base carries the OutputStallLimit/HasBufferedOutput bookkeeping shared by
// every concrete variant, mirroring the teacher's embedding-a-small-struct
// convention (framer.framer holds all shared state once, concrete Reader and
// Writer types just forward to it).
type base struct {
	stallLimit time.Duration
	buffered   bool
}

func (b *base) OutputStallLimit() time.Duration { return b.stallLimit }
func (b *base) HasBufferedOutput() bool         { return b.buffered }

// Option configures a DataIO variant at construction time.
type Option func(*base)

// WithOutputStallLimit sets the duration of no write progress, while output
// remains pending, that should be treated as an I/O error.
func WithOutputStallLimit(d time.Duration) Option {
	return func(b *base) { b.stallLimit = d }
}
