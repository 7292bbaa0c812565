// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package reactor

import (
	"net"

	"code.hybscloud.com/muscle/dataio"
	"code.hybscloud.com/muscle/gateway"
	"code.hybscloud.com/muscle/session"
	"golang.org/x/sys/unix"
)

// acceptPass is spec §4.8 step 10: for every listener the Multiplexer
// reported readable, accept one connection, hand its peer address to the
// factory to build a Session, and wire up a non-blocking TCP DataIO plus a
// stream-mode Gateway for it.
func (r *Reactor) acceptPass() {
	for _, l := range r.listeners {
		if !r.mx.IsReadyForRead(l.fd) {
			continue
		}

		connFD, sa, err := unix.Accept(l.fd)
		if err != nil {
			continue
		}
		peer := sockaddrToNetAddr(sa)

		sess, st := l.factory.CreateSession(peer)
		if !st.IsOK() {
			_ = unix.Close(connFD)
			continue
		}

		tcp, st := dataio.NewTCP(connFD)
		if !st.IsOK() {
			_ = unix.Close(connFD)
			continue
		}

		id := r.NextSessionID()
		sess.SetID(id)
		sess.SetPeerAddr(peer)
		sess.SetDataIO(tcp)
		sess.SetGateway(gateway.NewTCP(tcp))
		sess.SetState(session.Connected)
		r.sessions[id] = sess

		if st := sess.AttachToServer(r); !st.IsOK() {
			r.Disconnect(sess)
			continue
		}
		sess.AsyncConnectCompleted()
	}
}

// sockaddrToNetAddr converts the address Accept returns into a net.Addr,
// the form Session.SetPeerAddr expects.
func sockaddrToNetAddr(sa unix.Sockaddr) net.Addr {
	switch a := sa.(type) {
	case *unix.SockaddrInet4:
		return &net.TCPAddr{IP: net.IP(a.Addr[:]), Port: a.Port}
	case *unix.SockaddrInet6:
		return &net.TCPAddr{IP: net.IP(a.Addr[:]), Port: a.Port}
	default:
		return nil
	}
}
