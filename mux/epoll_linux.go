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

func newDefault() (Multiplexer, status.Status) { return NewEpoll() }

// interest tracks, per fd, which readiness kinds the caller has asked for,
// since a single epoll_ctl call must carry the union of all interests.
type interest struct {
	read, write, except bool
}

// Epoll is a Multiplexer backed by Linux's epoll(7).
type Epoll struct {
	epfd     int
	interest map[int]*interest
	events   []unix.EpollEvent
	ready    map[int]uint32
}

// NewEpoll creates an epoll-backed Multiplexer.
func NewEpoll() (*Epoll, status.Status) {
	fd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return nil, status.FromErrno(err)
	}
	return &Epoll{
		epfd:     fd,
		interest: make(map[int]*interest),
		events:   make([]unix.EpollEvent, 64),
		ready:    make(map[int]uint32),
	}, status.Ok()
}

func (e *Epoll) eventMask(in *interest) uint32 {
	var mask uint32
	if in.read {
		mask |= unix.EPOLLIN
	}
	if in.write {
		mask |= unix.EPOLLOUT
	}
	if in.except {
		mask |= unix.EPOLLPRI
	}
	return mask
}

func (e *Epoll) apply(fd int) status.Status {
	in := e.interest[fd]
	mask := e.eventMask(in)
	ev := unix.EpollEvent{Events: mask, Fd: int32(fd)}

	op := unix.EPOLL_CTL_MOD
	if mask == 0 {
		op = unix.EPOLL_CTL_DEL
		delete(e.interest, fd)
	}
	if err := unix.EpollCtl(e.epfd, op, fd, &ev); err != nil {
		if op == unix.EPOLL_CTL_MOD && err == unix.ENOENT {
			if err2 := unix.EpollCtl(e.epfd, unix.EPOLL_CTL_ADD, fd, &ev); err2 != nil {
				return status.FromErrno(err2)
			}
			return status.Ok()
		}
		return status.FromErrno(err)
	}
	return status.Ok()
}

func (e *Epoll) register(fd int, set func(*interest)) status.Status {
	in, ok := e.interest[fd]
	if !ok {
		in = &interest{}
		e.interest[fd] = in
	}
	set(in)
	return e.apply(fd)
}

func (e *Epoll) unregister(fd int, clear func(*interest)) status.Status {
	in, ok := e.interest[fd]
	if !ok {
		return status.Ok()
	}
	clear(in)
	return e.apply(fd)
}

func (e *Epoll) RegisterForRead(fd int) status.Status {
	return e.register(fd, func(i *interest) { i.read = true })
}
func (e *Epoll) RegisterForWrite(fd int) status.Status {
	return e.register(fd, func(i *interest) { i.write = true })
}
func (e *Epoll) RegisterForException(fd int) status.Status {
	return e.register(fd, func(i *interest) { i.except = true })
}
func (e *Epoll) UnregisterForRead(fd int) status.Status {
	return e.unregister(fd, func(i *interest) { i.read = false })
}
func (e *Epoll) UnregisterForWrite(fd int) status.Status {
	return e.unregister(fd, func(i *interest) { i.write = false })
}
func (e *Epoll) UnregisterForException(fd int) status.Status {
	return e.unregister(fd, func(i *interest) { i.except = false })
}

func (e *Epoll) WaitForEvents(deadline time.Time) (int, status.Status) {
	for k := range e.ready {
		delete(e.ready, k)
	}
	n, err := unix.EpollWait(e.epfd, e.events, deadlineToMillis(deadline))
	if err != nil {
		if err == unix.EINTR {
			return 0, status.Ok()
		}
		return 0, status.FromErrno(err)
	}
	for i := 0; i < n; i++ {
		ev := e.events[i]
		e.ready[int(ev.Fd)] = ev.Events
	}
	return n, status.Ok()
}

func (e *Epoll) IsReadyForRead(fd int) bool {
	return e.ready[fd]&(unix.EPOLLIN|unix.EPOLLHUP|unix.EPOLLERR) != 0
}
func (e *Epoll) IsReadyForWrite(fd int) bool {
	return e.ready[fd]&(unix.EPOLLOUT|unix.EPOLLERR) != 0
}
func (e *Epoll) IsReadyForException(fd int) bool {
	return e.ready[fd]&unix.EPOLLPRI != 0
}

func (e *Epoll) Close() status.Status {
	return status.FromErrno(unix.Close(e.epfd))
}
