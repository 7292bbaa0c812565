// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package reactor

import (
	"code.hybscloud.com/muscle/session"
	"golang.org/x/sys/unix"
)

// connectPass finalizes any outgoing connect whose fd became writable,
// checking SO_ERROR to learn whether connect() actually succeeded (spec
// §4.7: "on fire, finalize: check for a connect error; on success, toggle
// Connecting -> Connected").
func (r *Reactor) connectPass() {
	for fd, pc := range r.connecting {
		if !r.mx.IsReadyForWrite(fd) {
			continue
		}
		delete(r.connecting, fd)
		delete(r.curWrite, fd)

		sess := pc.sess
		errno, err := unix.GetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_ERROR)
		if err != nil || errno != 0 {
			sess.SetState(session.LameDuck)
			delete(r.sessions, sess.ID())
			if io := sess.DataIO(); io != nil {
				io.Shutdown()
			}
			continue
		}

		if st := sess.AttachToServer(r); !st.IsOK() {
			r.Disconnect(sess)
			continue
		}
		if st := sess.AsyncConnectCompleted(); !st.IsOK() {
			r.Disconnect(sess)
		}
	}
}
