// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package reactor

import (
	"time"

	"code.hybscloud.com/muscle/dataio"
	"code.hybscloud.com/muscle/policy"
	"code.hybscloud.com/muscle/refcount"
	"code.hybscloud.com/muscle/session"
	"code.hybscloud.com/muscle/status"
	"golang.org/x/sys/unix"
)

// Run repeats RunOnce until Shutdown is called, then drains the lame-duck
// lists one final time and flushes every refcount-pooled object (spec §5:
// the reactor is the last holder of pooled objects at rest).
func (r *Reactor) Run() status.Status {
	for !r.shutdownRequested {
		if st := r.RunOnce(); !st.IsOK() {
			return st
		}
	}
	r.drainLameDucks()
	refcount.FlushAll()
	return status.Ok()
}

// RunOnce executes one pass of the 11-step iteration described in spec
// §4.8.
func (r *Reactor) RunOnce() status.Status {
	r.drainLameDucks()          // 1: lame-duck sessions/listeners are destroyed first
	deadline := r.nextWakeup()  // 2: earliest pulse across sessions and policies
	r.registerInterest()        // 3: (re)register read/write interest per session

	now := time.Now()
	for _, p := range r.activePolicies() {
		p.BeginIO(now) // 4: policy pre-pass
	}

	if _, st := r.mx.WaitForEvents(deadline); !st.IsOK() { // 5
		return st
	}

	r.checkOOMAndQueueSize() // 6: OOM dump + oversized outgoing-queue dump
	r.connectPass()          // finalize any outgoing connects that became writable
	r.runSessionIO()         // 7: per-session I/O pass
	r.detectStalls()         // 8: output-stall detection

	for _, p := range r.activePolicies() {
		p.EndIO(time.Now()) // 9: policy post-pass
	}

	r.acceptPass() // 10: factory accept pass

	return status.Ok() // 11: termination is Run's loop condition
}

func (r *Reactor) drainLameDucks() {
	for _, sess := range r.lameDuckSessions {
		if io := sess.DataIO(); io != nil {
			io.Shutdown()
		}
	}
	r.lameDuckSessions = r.lameDuckSessions[:0]

	for _, l := range r.lameDuckListeners {
		l.factory.Detach()
		_ = unix.Close(l.fd)
	}
	r.lameDuckListeners = r.lameDuckListeners[:0]
}

// nextWakeup returns the earliest of every session's and policy's next
// pulse time, or the zero Time (block forever) if nothing is scheduled.
func (r *Reactor) nextWakeup() time.Time {
	var deadline time.Time
	consider := func(t time.Time) {
		if t.IsZero() {
			return
		}
		if deadline.IsZero() || t.Before(deadline) {
			deadline = t
		}
	}

	now := time.Now()
	for _, sess := range r.sessions {
		consider(sess.PulseTime(now))
	}
	for _, p := range r.activePolicies() {
		consider(p.NextPulseTime(now))
	}
	return deadline
}

// activePolicies returns the distinct set of policies referenced by any
// session's input or output slot, since a single Policy may be shared by
// many sessions and should only run its pre/post pass once per cycle.
func (r *Reactor) activePolicies() []policy.Policy {
	seen := make(map[policy.Policy]struct{})
	var list []policy.Policy
	add := func(p policy.Policy) {
		if p == nil {
			return
		}
		if _, ok := seen[p]; ok {
			return
		}
		seen[p] = struct{}{}
		list = append(list, p)
	}
	for _, p := range r.inputPolicy {
		add(p)
	}
	for _, p := range r.outputPolicy {
		add(p)
	}
	return list
}

// registerInterest reconciles the Multiplexer's read/write interest sets
// against what each session currently wants. A session only wants read
// interest if its gateway is ready for input and its input policy (if any)
// currently allows a nonzero transfer; it wants write interest whenever its
// gateway has bytes to output, regardless of output policy (the policy
// instead caps how many bytes the I/O pass actually moves).
func (r *Reactor) registerInterest() {
	wantRead := make(map[int]bool)
	wantWrite := make(map[int]bool)

	for _, l := range r.listeners {
		wantRead[l.fd] = true
	}
	for fd := range r.connecting {
		wantWrite[fd] = true
	}

	now := time.Now()
	for id, sess := range r.sessions {
		if sess.IsConnectingAsync() || sess.State() == session.LameDuck {
			continue
		}
		gw := sess.Gateway()
		io := sess.DataIO()
		if gw == nil || io == nil {
			continue
		}

		if r.sessionOkayToRead(id, gw) {
			if fd := io.ReadSelectSocket(); fd != dataio.NoSocket {
				wantRead[fd] = true
			}
		}

		if gw.HasBytesToOutput() {
			if fd := io.WriteSelectSocket(); fd != dataio.NoSocket {
				wantWrite[fd] = true
			}
			if _, ok := r.pendingOutputSince[id]; !ok {
				r.pendingOutputSince[id] = now
			}
		} else {
			delete(r.pendingOutputSince, id)
		}
	}

	r.reconcile(wantRead, r.curRead, r.mx.RegisterForRead, r.mx.UnregisterForRead)
	r.reconcile(wantWrite, r.curWrite, r.mx.RegisterForWrite, r.mx.UnregisterForWrite)
}

func (r *Reactor) sessionOkayToRead(id string, gw interface{ IsReadyForInput() bool }) bool {
	if !gw.IsReadyForInput() {
		return false
	}
	p := r.inputPolicy[id]
	if p == nil {
		return true
	}
	return p.OkayToTransfer(id) && p.MaxTransferChunkSize(id) != 0
}

// reconcile brings cur (the Multiplexer's actual registration state for one
// readiness kind, tracked on the side since Multiplexer exposes no "list
// current interest" query) in line with want, unregistering fds no longer
// wanted before registering newly wanted ones.
func (r *Reactor) reconcile(want, cur map[int]bool, register, unregister func(int) status.Status) {
	for fd := range cur {
		if !want[fd] {
			unregister(fd)
			delete(cur, fd)
		}
	}
	for fd := range want {
		if !cur[fd] {
			register(fd)
			cur[fd] = true
		}
	}
}

// checkOOMAndQueueSize implements spec §4.8 step 6: on a flagged allocation
// failure, disconnect one expendable session to reclaim memory; separately,
// disconnect any session whose gateway has accumulated more than
// maxOutgoingQueueBytes of unsent output.
func (r *Reactor) checkOOMAndQueueSize() {
	if r.oom.Swap(false) {
		for _, sess := range r.sessions {
			e, ok := sess.(expendable)
			if ok && e.Expendable() {
				r.Disconnect(sess)
				break
			}
		}
	}

	for _, sess := range r.sessions {
		gw := sess.Gateway()
		if gw != nil && gw.QueuedOutputBytes() > r.maxOutgoingQueueBytes {
			r.Disconnect(sess)
		}
	}
}
