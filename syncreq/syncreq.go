// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package syncreq implements the optional synchronous request driver of
// spec §4.10: a helper that pumps a Gateway from an ordinary blocking call
// site until a caller-defined "still awaiting reply" predicate goes false
// or a deadline passes. It exists for code that wants to issue one request
// and wait for its answer outside of a reactor's event loop -- a thin,
// private Multiplexer plus a register/wait/do_output/do_input loop, the
// same non-blocking-and-retry shape the gateway and the root framing
// package already use internally, just driven synchronously to completion.
package syncreq

import (
	"time"

	"code.hybscloud.com/muscle/dataio"
	"code.hybscloud.com/muscle/gateway"
	"code.hybscloud.com/muscle/message"
	"code.hybscloud.com/muscle/mux"
	"code.hybscloud.com/muscle/status"
)

// Run drives gw (backed by io) until awaiting returns false or deadline
// passes. A zero deadline means wait forever. receiver may be nil if the
// caller only wants to push output (e.g. a fire-and-forget send); in that
// case Run never registers for read.
//
// Each decoded message is handed to receiver as it arrives, same as a
// reactor's normal input pass would; it is the caller's job to have
// receiver flip whatever state awaiting inspects.
func Run(gw *gateway.Gateway, io dataio.DataIO, deadline time.Time, receiver func(*message.Message), awaiting func() bool) status.Status {
	mx, st := mux.New()
	if !st.IsOK() {
		return st
	}
	defer mx.Close()

	readFD, writeFD := io.ReadSelectSocket(), io.WriteSelectSocket()

	for awaiting() {
		if !deadline.IsZero() && !time.Now().Before(deadline) {
			return status.New(status.TimedOut)
		}

		wantRead := receiver != nil && gw.IsReadyForInput() && readFD != dataio.NoSocket
		wantWrite := gw.HasBytesToOutput() && writeFD != dataio.NoSocket
		if !wantRead && !wantWrite {
			// Nothing left to push or wait for; if the caller is still
			// awaiting a reply with no outstanding I/O, it never arrives.
			return status.New(status.TimedOut)
		}

		if wantRead {
			mx.RegisterForRead(readFD)
		}
		if wantWrite {
			mx.RegisterForWrite(writeFD)
		}

		if _, st := mx.WaitForEvents(deadline); !st.IsOK() {
			return st
		}

		if wantWrite && mx.IsReadyForWrite(writeFD) {
			if res := gw.DoOutput(0); !res.Ok() {
				return res.Status
			}
		}
		if wantRead && mx.IsReadyForRead(readFD) {
			if res := gw.DoInput(receiver, 0); !res.Ok() {
				return res.Status
			}
		}

		if wantRead {
			mx.UnregisterForRead(readFD)
		}
		if wantWrite {
			mx.UnregisterForWrite(writeFD)
		}
	}

	return status.Ok()
}
