// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package session defines the per-connection Session/Factory contracts and
// lifecycle state machine of spec §4.7. A session owns a gateway and a
// data-I/O; a factory accepts new connections on a listening port and
// constructs sessions for them. The reactor (package reactor) is the only
// caller of most of this package's exported surface; session.Base exists so
// application-specific session types only need to override the callbacks
// they actually care about.
package session

import (
	"net"
	"time"

	"code.hybscloud.com/muscle/dataio"
	"code.hybscloud.com/muscle/gateway"
	"code.hybscloud.com/muscle/message"
	"code.hybscloud.com/muscle/status"
)

// State is a session's position in spec §4.7's lifecycle state machine.
type State int

const (
	Unattached State = iota
	Connecting
	Connected
	Dormant
	LameDuck
)

func (s State) String() string {
	switch s {
	case Unattached:
		return "unattached"
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	case Dormant:
		return "dormant"
	case LameDuck:
		return "lame-duck"
	default:
		return "unknown"
	}
}

// Server is the narrow reactor-facing hook a Session or Factory needs. It is
// kept as an interface owned by this package, rather than this package
// importing package reactor, because the dependency must run the other way:
// the reactor owns the sessions and factories maps.
type Server interface {
	// NextSessionID returns a fresh session ID, rendered as a zero-padded
	// decimal string (spec §6).
	NextSessionID() string

	// ScheduleReconnect asks the server to redial sess after delay, once
	// its data-I/O and gateway have been shut down (spec §4.7 sleep-aware
	// disconnect's "scheduled for reconnect on wake").
	ScheduleReconnect(sess Session, delay time.Duration)
}

// Session is the per-connection callback and state contract of spec §4.7.
// Concrete types are expected to embed Base and override only the callbacks
// their application logic needs.
type Session interface {
	ID() string
	SetID(id string)

	State() State
	SetState(s State)

	Gateway() *gateway.Gateway
	SetGateway(gw *gateway.Gateway)

	DataIO() dataio.DataIO
	SetDataIO(d dataio.DataIO)

	PeerAddr() net.Addr
	SetPeerAddr(addr net.Addr)

	ReconnectDelay() time.Duration
	SetReconnectDelay(d time.Duration)

	IsConnectingAsync() bool
	SetConnectingAsync(v bool)

	// AttachToServer is called once the session has been assigned a
	// server, gateway and data-I/O, whether by accept or by a completed
	// outgoing connect. A non-OK status aborts the attach.
	AttachToServer(srv Server) status.Status

	// AsyncConnectCompleted is called immediately on accept, or once an
	// outgoing connect's writability fires and is finalized.
	AsyncConnectCompleted() status.Status

	// MessageReceived is the per-message callback a Gateway.DoInput
	// receiver funnels decoded messages into.
	MessageReceived(msg *message.Message)

	// ClientConnectionClosed is called once the peer has gone away or an
	// I/O error has disconnected the session. Returning true accepts the
	// detach; returning false requests a reconnect, in which case the
	// session is expected to have already called Reconnect with a fresh
	// data-I/O and gateway.
	ClientConnectionClosed() bool

	// PulseTime returns the next absolute deadline this session wants to
	// be pulsed at (the zero Time means "nothing scheduled"); Pulse fires
	// once that deadline is reached (spec §4.8's pulse mechanism).
	PulseTime(prev time.Time) time.Time
	Pulse(scheduled time.Time)
}

// IsLoopback reports whether addr's host is a loopback address, for
// sleep-aware disconnect's "every session whose peer is not on the loopback
// interface is disconnected" rule.
func IsLoopback(addr net.Addr) bool {
	if addr == nil {
		return false
	}
	host, _, err := net.SplitHostPort(addr.String())
	if err != nil {
		host = addr.String()
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}
