// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package reactor

import (
	"time"

	"code.hybscloud.com/muscle/dataio"
	"code.hybscloud.com/muscle/session"
)

// runSessionIO is spec §4.8 step 7: deliver any due pulse, then move input
// and output through each session's gateway for whichever descriptor the
// Multiplexer reported ready, capping each transfer at its policy's current
// chunk size and reporting bytes moved back to that policy.
func (r *Reactor) runSessionIO() {
	now := time.Now()
	for id, sess := range r.sessions {
		if sess.State() == session.LameDuck {
			continue
		}
		if pt := sess.PulseTime(now); !pt.IsZero() && !pt.After(now) {
			sess.Pulse(pt)
		}
		if sess.IsConnectingAsync() {
			continue // finalized by connectPass, not here
		}

		gw := sess.Gateway()
		io := sess.DataIO()
		if gw == nil || io == nil {
			continue
		}

		if readFD := io.ReadSelectSocket(); readFD != dataio.NoSocket && r.mx.IsReadyForRead(readFD) {
			p := r.inputPolicy[id]
			chunk, proceed := 0, true
			if p != nil {
				chunk = p.MaxTransferChunkSize(id)
				proceed = chunk > 0
			}
			if proceed {
				res := gw.DoInput(sess.MessageReceived, chunk)
				if p != nil {
					p.BytesTransferred(id, res.N)
				}
				if !res.Ok() {
					r.Disconnect(sess)
					continue
				}
			}
		}

		if writeFD := io.WriteSelectSocket(); writeFD != dataio.NoSocket && r.mx.IsReadyForWrite(writeFD) {
			p := r.outputPolicy[id]
			chunk, proceed := 0, true
			if p != nil {
				chunk = p.MaxTransferChunkSize(id)
				proceed = chunk > 0
			}
			if proceed {
				res := gw.DoOutput(chunk)
				if p != nil {
					p.BytesTransferred(id, res.N)
				}
				if !res.Ok() {
					r.Disconnect(sess)
					continue
				}
				if res.N > 0 {
					r.pendingOutputSince[id] = now
				}
			}
		}
	}
}

// detectStalls is spec §4.8 step 8 / §7's output-stall timeout: a session
// with output pending since longer than its DataIO's OutputStallLimit is
// treated as I/O-errored and disconnected. A zero or negative limit means
// "no stall timeout".
func (r *Reactor) detectStalls() {
	now := time.Now()
	for id, since := range r.pendingOutputSince {
		sess, ok := r.sessions[id]
		if !ok {
			delete(r.pendingOutputSince, id)
			continue
		}
		io := sess.DataIO()
		if io == nil {
			continue
		}
		limit := io.OutputStallLimit()
		if limit <= 0 {
			continue
		}
		if now.Sub(since) > limit {
			r.Disconnect(sess)
		}
	}
}
