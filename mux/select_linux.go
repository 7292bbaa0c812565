// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

//go:build linux

package mux

import (
	"time"

	"code.hybscloud.com/muscle/status"
	"golang.org/x/sys/unix"
)

const fdSetWordBits = 64

// Select is a Multiplexer backed by select(2). It is never the platform
// default (epoll always wins on Linux) but is kept available, as the
// original SocketMultiplexer supported it, for callers targeting a very
// small, fixed descriptor count where select's O(1) setup cost beats epoll's
// syscall-per-registration overhead.
type Select struct {
	read, write, except map[int]bool
	readyR, readyW, readyE map[int]bool
}

// NewSelect creates a select(2)-backed Multiplexer.
func NewSelect() (*Select, status.Status) {
	return &Select{
		read:   make(map[int]bool),
		write:  make(map[int]bool),
		except: make(map[int]bool),
		readyR: make(map[int]bool),
		readyW: make(map[int]bool),
		readyE: make(map[int]bool),
	}, status.Ok()
}

func (s *Select) RegisterForRead(fd int) status.Status      { s.read[fd] = true; return status.Ok() }
func (s *Select) RegisterForWrite(fd int) status.Status     { s.write[fd] = true; return status.Ok() }
func (s *Select) RegisterForException(fd int) status.Status { s.except[fd] = true; return status.Ok() }

func (s *Select) UnregisterForRead(fd int) status.Status {
	delete(s.read, fd)
	return status.Ok()
}
func (s *Select) UnregisterForWrite(fd int) status.Status {
	delete(s.write, fd)
	return status.Ok()
}
func (s *Select) UnregisterForException(fd int) status.Status {
	delete(s.except, fd)
	return status.Ok()
}

func fdSet(fds map[int]bool) *unix.FdSet {
	var set unix.FdSet
	for fd := range fds {
		set.Bits[fd/fdSetWordBits] |= 1 << (uint(fd) % fdSetWordBits)
	}
	return &set
}

func fdIsSet(set *unix.FdSet, fd int) bool {
	return set.Bits[fd/fdSetWordBits]&(1<<(uint(fd)%fdSetWordBits)) != 0
}

func maxFD(sets ...map[int]bool) int {
	max := -1
	for _, s := range sets {
		for fd := range s {
			if fd > max {
				max = fd
			}
		}
	}
	return max
}

func (s *Select) WaitForEvents(deadline time.Time) (int, status.Status) {
	for fd := range s.readyR {
		delete(s.readyR, fd)
	}
	for fd := range s.readyW {
		delete(s.readyW, fd)
	}
	for fd := range s.readyE {
		delete(s.readyE, fd)
	}

	nfd := maxFD(s.read, s.write, s.except) + 1
	if nfd <= 0 {
		return 0, status.Ok()
	}
	rset, wset, eset := fdSet(s.read), fdSet(s.write), fdSet(s.except)

	var tv *unix.Timeval
	if !deadline.IsZero() {
		d := time.Until(deadline)
		if d < 0 {
			d = 0
		}
		t := unix.NsecToTimeval(d.Nanoseconds())
		tv = &t
	}

	n, err := unix.Select(nfd, rset, wset, eset, tv)
	if err != nil {
		if err == unix.EINTR {
			return 0, status.Ok()
		}
		return 0, status.FromErrno(err)
	}
	for fd := range s.read {
		if fdIsSet(rset, fd) {
			s.readyR[fd] = true
		}
	}
	for fd := range s.write {
		if fdIsSet(wset, fd) {
			s.readyW[fd] = true
		}
	}
	for fd := range s.except {
		if fdIsSet(eset, fd) {
			s.readyE[fd] = true
		}
	}
	return n, status.Ok()
}

func (s *Select) IsReadyForRead(fd int) bool      { return s.readyR[fd] }
func (s *Select) IsReadyForWrite(fd int) bool     { return s.readyW[fd] }
func (s *Select) IsReadyForException(fd int) bool { return s.readyE[fd] }

func (s *Select) Close() status.Status { return status.Ok() }
