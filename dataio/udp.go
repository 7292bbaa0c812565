// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

//go:build unix

package dataio

import (
	"code.hybscloud.com/muscle/status"
	"golang.org/x/sys/unix"
)

// UDP is a packet-mode DataIO over a non-blocking datagram socket. Unlike
// TCP, boundaries are preserved: one Read call yields at most one datagram,
// and the sender's address is remembered so the gateway can stamp it onto
// the decoded message when packet-remote-tagging is enabled.
type UDP struct {
	base
	fd       int
	lastFrom unix.Sockaddr
	closed   bool
}

// NewUDP wraps fd, a bound (and optionally connected) datagram socket.
func NewUDP(fd int, opts ...Option) (*UDP, status.Status) {
	if err := unix.SetNonblock(fd, true); err != nil {
		return nil, status.FromErrno(err)
	}
	d := &UDP{fd: fd}
	for _, o := range opts {
		o(&d.base)
	}
	return d, status.Ok()
}

func (d *UDP) Read(p []byte) status.IOResult {
	if d.closed {
		return status.IOResult{Status: status.New(status.BadObject)}
	}
	n, from, err := unix.Recvfrom(d.fd, p, 0)
	if err != nil {
		return status.IOResult{Status: status.FromErrno(err)}
	}
	d.lastFrom = from
	return status.IOResult{N: n, Status: status.Ok()}
}

// Write sends p to the socket's connected peer (a UDP socket that had
// unix.Connect called on it). Use WriteTo for an unconnected socket that
// must target a different peer per packet.
func (d *UDP) Write(p []byte) status.IOResult {
	if d.closed {
		return status.IOResult{Status: status.New(status.BadObject)}
	}
	n, err := unix.Write(d.fd, p)
	if err != nil {
		return status.IOResult{N: n, Status: status.FromErrno(err)}
	}
	return status.IOResult{N: n, Status: status.Ok()}
}

// WriteTo sends p to addr, for unconnected sockets serving multiple peers.
func (d *UDP) WriteTo(p []byte, addr unix.Sockaddr) status.IOResult {
	if d.closed {
		return status.IOResult{Status: status.New(status.BadObject)}
	}
	if err := unix.Sendto(d.fd, p, 0, addr); err != nil {
		return status.IOResult{Status: status.FromErrno(err)}
	}
	return status.IOResult{N: len(p), Status: status.Ok()}
}

// LastPeerAddr returns the source address of the most recently received
// datagram, for packet-remote-tagging (spec §4.6).
func (d *UDP) LastPeerAddr() unix.Sockaddr { return d.lastFrom }

func (d *UDP) Flush() status.Status { return status.Ok() }

func (d *UDP) Shutdown() status.Status {
	if d.closed {
		return status.Ok()
	}
	d.closed = true
	return status.FromErrno(unix.Close(d.fd))
}

func (d *UDP) ReadSelectSocket() int  { return d.fd }
func (d *UDP) WriteSelectSocket() int { return d.fd }
