// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

//go:build unix

package mux

import (
	"time"

	"code.hybscloud.com/muscle/status"
	"golang.org/x/sys/unix"
)

// Poll is a Multiplexer backed by the POSIX poll(2) syscall. It is the
// portable fallback used on unix platforms with neither epoll nor kqueue, and
// is always available as an explicit choice via NewPoll.
type Poll struct {
	fds   []unix.PollFd
	index map[int]int // fd -> index into fds
}

// NewPoll creates a poll(2)-backed Multiplexer.
func NewPoll() (*Poll, status.Status) {
	return &Poll{index: make(map[int]int)}, status.Ok()
}

func (p *Poll) slot(fd int) *unix.PollFd {
	if i, ok := p.index[fd]; ok {
		return &p.fds[i]
	}
	p.index[fd] = len(p.fds)
	p.fds = append(p.fds, unix.PollFd{Fd: int32(fd)})
	return &p.fds[len(p.fds)-1]
}

func (p *Poll) RegisterForRead(fd int) status.Status {
	p.slot(fd).Events |= unix.POLLIN
	return status.Ok()
}
func (p *Poll) RegisterForWrite(fd int) status.Status {
	p.slot(fd).Events |= unix.POLLOUT
	return status.Ok()
}
func (p *Poll) RegisterForException(fd int) status.Status {
	p.slot(fd).Events |= unix.POLLPRI
	return status.Ok()
}

func (p *Poll) clearBit(fd int, bit int16) {
	i, ok := p.index[fd]
	if !ok {
		return
	}
	p.fds[i].Events &^= bit
	if p.fds[i].Events == 0 {
		p.fds = append(p.fds[:i], p.fds[i+1:]...)
		delete(p.index, fd)
		for f, idx := range p.index {
			if idx > i {
				p.index[f] = idx - 1
			}
		}
	}
}

func (p *Poll) UnregisterForRead(fd int) status.Status {
	p.clearBit(fd, unix.POLLIN)
	return status.Ok()
}
func (p *Poll) UnregisterForWrite(fd int) status.Status {
	p.clearBit(fd, unix.POLLOUT)
	return status.Ok()
}
func (p *Poll) UnregisterForException(fd int) status.Status {
	p.clearBit(fd, unix.POLLPRI)
	return status.Ok()
}

func (p *Poll) WaitForEvents(deadline time.Time) (int, status.Status) {
	for i := range p.fds {
		p.fds[i].Revents = 0
	}
	n, err := unix.Poll(p.fds, deadlineToMillis(deadline))
	if err != nil {
		if err == unix.EINTR {
			return 0, status.Ok()
		}
		return 0, status.FromErrno(err)
	}
	return n, status.Ok()
}

func (p *Poll) revents(fd int) int16 {
	i, ok := p.index[fd]
	if !ok {
		return 0
	}
	return p.fds[i].Revents
}

func (p *Poll) IsReadyForRead(fd int) bool {
	return p.revents(fd)&(unix.POLLIN|unix.POLLHUP|unix.POLLERR) != 0
}
func (p *Poll) IsReadyForWrite(fd int) bool {
	return p.revents(fd)&(unix.POLLOUT|unix.POLLERR) != 0
}
func (p *Poll) IsReadyForException(fd int) bool {
	return p.revents(fd)&unix.POLLPRI != 0
}

func (p *Poll) Close() status.Status { return status.Ok() }
