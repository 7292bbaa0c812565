// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

//go:build darwin || dragonfly || freebsd || netbsd || openbsd

package mux

import (
	"time"

	"code.hybscloud.com/muscle/status"
	"golang.org/x/sys/unix"
)

func newDefault() (Multiplexer, status.Status) { return NewKqueue() }

type kqueueReady struct {
	read, write bool
}

// Kqueue is a Multiplexer backed by the BSD/Darwin kqueue(2) facility. It has
// no portable exception-readiness filter across the BSD family, so
// RegisterForException/IsReadyForException are accepted but never fire; a
// caller that needs true out-of-band notification should check the socket
// directly after a read-ready wakeup.
type Kqueue struct {
	kq    int
	read  map[int]bool
	write map[int]bool
	ready map[int]kqueueReady
}

// NewKqueue creates a kqueue-backed Multiplexer.
func NewKqueue() (*Kqueue, status.Status) {
	fd, err := unix.Kqueue()
	if err != nil {
		return nil, status.FromErrno(err)
	}
	return &Kqueue{
		kq:    fd,
		read:  make(map[int]bool),
		write: make(map[int]bool),
		ready: make(map[int]kqueueReady),
	}, status.Ok()
}

func (k *Kqueue) change(fd int, filter int16, add bool) status.Status {
	flags := uint16(unix.EV_ADD | unix.EV_ENABLE)
	if !add {
		flags = unix.EV_DELETE
	}
	ev := unix.Kevent_t{
		Ident:  uint64(fd),
		Filter: filter,
		Flags:  flags,
	}
	_, err := unix.Kevent(k.kq, []unix.Kevent_t{ev}, nil, nil)
	if err != nil && err != unix.ENOENT {
		return status.FromErrno(err)
	}
	return status.Ok()
}

func (k *Kqueue) RegisterForRead(fd int) status.Status {
	if k.read[fd] {
		return status.Ok()
	}
	if st := k.change(fd, unix.EVFILT_READ, true); !st.IsOK() {
		return st
	}
	k.read[fd] = true
	return status.Ok()
}

func (k *Kqueue) RegisterForWrite(fd int) status.Status {
	if k.write[fd] {
		return status.Ok()
	}
	if st := k.change(fd, unix.EVFILT_WRITE, true); !st.IsOK() {
		return st
	}
	k.write[fd] = true
	return status.Ok()
}

func (k *Kqueue) RegisterForException(fd int) status.Status { return status.Ok() }

func (k *Kqueue) UnregisterForRead(fd int) status.Status {
	if !k.read[fd] {
		return status.Ok()
	}
	delete(k.read, fd)
	return k.change(fd, unix.EVFILT_READ, false)
}

func (k *Kqueue) UnregisterForWrite(fd int) status.Status {
	if !k.write[fd] {
		return status.Ok()
	}
	delete(k.write, fd)
	return k.change(fd, unix.EVFILT_WRITE, false)
}

func (k *Kqueue) UnregisterForException(fd int) status.Status { return status.Ok() }

func (k *Kqueue) WaitForEvents(deadline time.Time) (int, status.Status) {
	for fd := range k.ready {
		delete(k.ready, fd)
	}

	var ts *unix.Timespec
	if !deadline.IsZero() {
		d := time.Until(deadline)
		if d < 0 {
			d = 0
		}
		t := unix.NsecToTimespec(d.Nanoseconds())
		ts = &t
	}

	events := make([]unix.Kevent_t, 64)
	n, err := unix.Kevent(k.kq, nil, events, ts)
	if err != nil {
		if err == unix.EINTR {
			return 0, status.Ok()
		}
		return 0, status.FromErrno(err)
	}
	for i := 0; i < n; i++ {
		fd := int(events[i].Ident)
		r := k.ready[fd]
		switch events[i].Filter {
		case unix.EVFILT_READ:
			r.read = true
		case unix.EVFILT_WRITE:
			r.write = true
		}
		k.ready[fd] = r
	}
	return n, status.Ok()
}

func (k *Kqueue) IsReadyForRead(fd int) bool       { return k.ready[fd].read }
func (k *Kqueue) IsReadyForWrite(fd int) bool      { return k.ready[fd].write }
func (k *Kqueue) IsReadyForException(fd int) bool  { return false }

func (k *Kqueue) Close() status.Status {
	return status.FromErrno(unix.Close(k.kq))
}
