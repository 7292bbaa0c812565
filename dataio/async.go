// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

//go:build unix

package dataio

import (
	"sync"
	"sync/atomic"

	"code.hybscloud.com/iox"
	"code.hybscloud.com/lfq"
	"code.hybscloud.com/muscle/status"
	"golang.org/x/sys/unix"
)

// Async moves a (possibly blocking) backend DataIO onto a worker goroutine,
// mirroring the main thread's bytes through an internal socket pair (spec
// §4.5's async-I/O wrapper). The main thread's Read/Write only ever touch
// the non-blocking local half of the pair; two pump goroutines move bytes
// between the remote half and the real backend, which may block freely.
//
// Flush and Shutdown are re-spliced into the output byte stream at the
// byte-offset the main thread had written up to when it issued them (spec
// §4.5): each call enqueues an asyncCmd carrying that offset onto a
// single-producer single-consumer command queue, and blocks until the
// worker goroutine has actually drained the backend up to that offset and
// applied the command there, so ordering with respect to written bytes
// holds even though writes are pumped asynchronously.
type Async struct {
	base

	backend  DataIO
	mainFD   int // non-blocking, multiplexed by the reactor
	workerFD int // blocking, owned by the pump goroutines

	writeOff atomic.Int64        // cumulative bytes accepted by mainFD so far
	cmds     *lfq.SPSC[asyncCmd] // commands queued by Flush/Shutdown, offset-gated

	closed atomic.Bool
	wg     sync.WaitGroup
}

// asyncCmdKind identifies what an asyncCmd asks the worker to do once the
// backend has caught up to its offset.
type asyncCmdKind uint8

const (
	asyncCmdFlush asyncCmdKind = iota
	asyncCmdShutdown
)

// asyncCmd is spec §9's command-queue entry: offset is the value of
// writeOff at the moment the main thread issued the command, and done
// carries back the backend's result once the worker applies it.
type asyncCmd struct {
	kind   asyncCmdKind
	offset int64
	done   chan status.Status
}

// asyncCmdQueueCapacity bounds how many Flush/Shutdown calls may be
// outstanding at once; lfq rounds this up to the next power of 2.
const asyncCmdQueueCapacity = 8

// NewAsync starts pumping backend on a worker goroutine and returns a DataIO
// whose descriptors are safe to multiplex on the reactor's main loop.
func NewAsync(backend DataIO, opts ...Option) (*Async, status.Status) {
	fds, err := unix.Socketpair(unix.AF_UNIX, unix.SOCK_STREAM, 0)
	if err != nil {
		return nil, status.FromErrno(err)
	}
	if err := unix.SetNonblock(fds[0], true); err != nil {
		_ = unix.Close(fds[0])
		_ = unix.Close(fds[1])
		return nil, status.FromErrno(err)
	}

	a := &Async{
		backend:  backend,
		mainFD:   fds[0],
		workerFD: fds[1],
		cmds:     lfq.NewSPSC[asyncCmd](asyncCmdQueueCapacity),
	}
	for _, o := range opts {
		o(&a.base)
	}

	a.wg.Add(2)
	go a.pumpBackendToMain()
	go a.pumpMainToBackend()
	return a, status.Ok()
}

// pumpBackendToMain blocks on backend.Read and mirrors every chunk onto the
// worker side of the socket pair, making it visible to the main thread's
// Read via mainFD.
func (a *Async) pumpBackendToMain() {
	defer a.wg.Done()
	buf := make([]byte, 32*1024)
	for !a.closed.Load() {
		res := a.backend.Read(buf)
		if res.N > 0 {
			if _, err := unix.Write(a.workerFD, buf[:res.N]); err != nil {
				return
			}
		}
		if !res.Status.IsOK() && !res.Status.WouldBlock() {
			return
		}
	}
}

// pumpMainToBackend blocks reading the worker side of the socket pair (bytes
// the main thread wrote via mainFD) and re-issues them as blocking writes to
// the real backend, preserving write order. It polls workerFD with a short
// timeout rather than blocking forever on a single Read, so it can also
// notice and apply queued Flush/Shutdown commands as soon as the backend has
// actually been written up to the offset each one names.
func (a *Async) pumpMainToBackend() {
	defer a.wg.Done()
	buf := make([]byte, 32*1024)
	var backendOff int64
	var pending *asyncCmd
	pfd := []unix.PollFd{{Fd: int32(a.workerFD), Events: unix.POLLIN}}

	for {
		a.drainReadyCmds(&pending, backendOff)

		pfd[0].Revents = 0
		n, err := unix.Poll(pfd, 50)
		if err != nil {
			if err == unix.EINTR {
				continue
			}
			a.failPendingCmds(pending)
			return
		}
		if n == 0 {
			continue // timed out with nothing readable; recheck commands
		}

		nr, rerr := unix.Read(a.workerFD, buf)
		if rerr != nil || nr == 0 {
			a.failPendingCmds(pending)
			return
		}

		off := 0
		for off < nr {
			res := a.backend.Write(buf[off:nr])
			if res.N > 0 {
				off += res.N
				backendOff += int64(res.N)
				a.drainReadyCmds(&pending, backendOff)
			}
			if !res.Status.IsOK() && !res.Status.WouldBlock() {
				a.failPendingCmds(pending)
				return
			}
		}
	}
}

// drainReadyCmds applies every queued command whose offset has already been
// reached by backendOff, in FIFO order. A command not yet reached is held in
// *pending (the queue is single-consumer, so it cannot be put back) until a
// later call's backendOff catches up to it.
func (a *Async) drainReadyCmds(pending **asyncCmd, backendOff int64) {
	for {
		if *pending == nil {
			cmd, err := a.cmds.Dequeue()
			if err != nil {
				return // empty
			}
			*pending = &cmd
		}
		if (*pending).offset > backendOff {
			return
		}
		a.applyCmd(*pending)
		*pending = nil
	}
}

func (a *Async) applyCmd(cmd *asyncCmd) {
	var st status.Status
	switch cmd.kind {
	case asyncCmdFlush:
		st = a.backend.Flush()
	case asyncCmdShutdown:
		st = a.backend.Shutdown()
	}
	cmd.done <- st
}

// failPendingCmds unblocks every command still waiting (the pending one plus
// whatever is left in the queue) when the pump is about to exit without
// having reached their offsets.
func (a *Async) failPendingCmds(pending *asyncCmd) {
	if pending != nil {
		pending.done <- status.New(status.BadObject)
	}
	for {
		cmd, err := a.cmds.Dequeue()
		if err != nil {
			return
		}
		cmd.done <- status.New(status.BadObject)
	}
}

// submitCmd enqueues a command at the byte-offset the main thread has
// written up to right now, and blocks until the worker applies it.
func (a *Async) submitCmd(kind asyncCmdKind) status.Status {
	cmd := asyncCmd{kind: kind, offset: a.writeOff.Load(), done: make(chan status.Status, 1)}

	var bo iox.Backoff
	for {
		err := a.cmds.Enqueue(&cmd)
		if err == nil {
			break
		}
		if !lfq.IsWouldBlock(err) {
			return status.New(status.BadObject)
		}
		bo.Wait()
	}
	return <-cmd.done
}

func (a *Async) Read(p []byte) status.IOResult {
	if a.closed.Load() {
		return status.IOResult{Status: status.New(status.BadObject)}
	}
	n, err := unix.Read(a.mainFD, p)
	if err != nil {
		return status.IOResult{Status: status.FromErrno(err)}
	}
	if n == 0 && len(p) > 0 {
		return status.IOResult{Status: status.New(status.EndOfStream)}
	}
	return status.IOResult{N: n, Status: status.Ok()}
}

func (a *Async) Write(p []byte) status.IOResult {
	if a.closed.Load() {
		return status.IOResult{Status: status.New(status.BadObject)}
	}
	n, err := unix.Write(a.mainFD, p)
	a.buffered = n > 0
	if n > 0 {
		a.writeOff.Add(int64(n))
	}
	if err != nil {
		return status.IOResult{N: n, Status: status.FromErrno(err)}
	}
	return status.IOResult{N: n, Status: status.Ok()}
}

// Flush re-splices a flush command into the output stream at the offset
// written so far and blocks until the worker has actually drained the
// backend up to that offset and flushed it.
func (a *Async) Flush() status.Status {
	a.buffered = false
	return a.submitCmd(asyncCmdFlush)
}

// Shutdown re-splices a shutdown command at the offset written so far, waits
// for the worker to drain up to it and shut the backend down, then tears
// down the socket pair and waits for both pumps to exit.
func (a *Async) Shutdown() status.Status {
	if a.closed.Swap(true) {
		return status.Ok()
	}
	st := a.submitCmd(asyncCmdShutdown)
	_ = unix.Close(a.mainFD)
	_ = unix.Close(a.workerFD)
	a.wg.Wait()
	return st
}

func (a *Async) ReadSelectSocket() int  { return a.mainFD }
func (a *Async) WriteSelectSocket() int { return a.mainFD }
