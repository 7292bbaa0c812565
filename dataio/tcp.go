// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

//go:build unix

package dataio

import (
	"code.hybscloud.com/muscle/status"
	"golang.org/x/sys/unix"
)

// TCP is a DataIO backed by a connected, non-blocking stream socket fd. The
// fd is expected to already be connected (by the reactor's outgoing-connect
// logic or a factory's accept) before wrapping; NewTCP only arranges
// non-blocking mode.
type TCP struct {
	base
	fd     int
	closed bool
}

// NewTCP wraps fd, an already-connected TCP socket, as a DataIO.
func NewTCP(fd int, opts ...Option) (*TCP, status.Status) {
	if err := unix.SetNonblock(fd, true); err != nil {
		return nil, status.FromErrno(err)
	}
	d := &TCP{fd: fd}
	for _, o := range opts {
		o(&d.base)
	}
	return d, status.Ok()
}

func (d *TCP) Read(p []byte) status.IOResult {
	if d.closed {
		return status.IOResult{Status: status.New(status.BadObject)}
	}
	n, err := unix.Read(d.fd, p)
	if err != nil {
		return status.IOResult{Status: status.FromErrno(err)}
	}
	if n == 0 && len(p) > 0 {
		return status.IOResult{Status: status.New(status.EndOfStream)}
	}
	return status.IOResult{N: n, Status: status.Ok()}
}

func (d *TCP) Write(p []byte) status.IOResult {
	if d.closed {
		return status.IOResult{Status: status.New(status.BadObject)}
	}
	n, err := unix.Write(d.fd, p)
	d.buffered = n > 0
	if err != nil {
		return status.IOResult{N: n, Status: status.FromErrno(err)}
	}
	return status.IOResult{N: n, Status: status.Ok()}
}

// Flush is a no-op: TCP has no user-space write buffer in this
// implementation (every Write issues a syscall directly), so there is never
// anything pending to push.
func (d *TCP) Flush() status.Status {
	d.buffered = false
	return status.Ok()
}

func (d *TCP) Shutdown() status.Status {
	if d.closed {
		return status.Ok()
	}
	d.closed = true
	_ = unix.Shutdown(d.fd, unix.SHUT_RDWR)
	return status.FromErrno(unix.Close(d.fd))
}

func (d *TCP) ReadSelectSocket() int  { return d.fd }
func (d *TCP) WriteSelectSocket() int { return d.fd }
