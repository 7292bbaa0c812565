// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package session

import (
	"net"
	"time"

	"code.hybscloud.com/muscle/dataio"
	"code.hybscloud.com/muscle/gateway"
	"code.hybscloud.com/muscle/message"
	"code.hybscloud.com/muscle/status"
)

// Base implements every Session method with a reasonable default so an
// embedder only needs to override the callbacks its application logic
// cares about (typically MessageReceived, and sometimes
// ClientConnectionClosed for reconnect behavior). Base carries no locking:
// the reactor's single-threaded discipline (spec §5) is the only caller.
type Base struct {
	id    string
	state State

	gw  *gateway.Gateway
	io  dataio.DataIO
	srv Server

	peerAddr        net.Addr
	reconnectDelay  time.Duration
	connectingAsync bool
	reconnected     bool
}

func (b *Base) ID() string        { return b.id }
func (b *Base) SetID(id string)   { b.id = id }
func (b *Base) State() State      { return b.state }
func (b *Base) SetState(s State)  { b.state = s }

func (b *Base) Gateway() *gateway.Gateway      { return b.gw }
func (b *Base) SetGateway(gw *gateway.Gateway) { b.gw = gw }

func (b *Base) DataIO() dataio.DataIO   { return b.io }
func (b *Base) SetDataIO(d dataio.DataIO) { b.io = d }

func (b *Base) PeerAddr() net.Addr          { return b.peerAddr }
func (b *Base) SetPeerAddr(addr net.Addr)   { b.peerAddr = addr }

func (b *Base) ReconnectDelay() time.Duration        { return b.reconnectDelay }
func (b *Base) SetReconnectDelay(d time.Duration)    { b.reconnectDelay = d }

func (b *Base) IsConnectingAsync() bool     { return b.connectingAsync }
func (b *Base) SetConnectingAsync(v bool)   { b.connectingAsync = v }

// AttachToServer records srv and marks the session connected. Embedders that
// need extra attach-time behavior (credential checks, subscribing to shared
// state) should call Base.AttachToServer first and layer their own logic
// after, bailing out on a non-OK status.
func (b *Base) AttachToServer(srv Server) status.Status {
	b.srv = srv
	b.state = Connected
	return status.Ok()
}

// Server returns the server this session was attached to, or nil before
// AttachToServer has run.
func (b *Base) Server() Server { return b.srv }

// AsyncConnectCompleted marks the session connected and clears the
// in-flight connecting flag.
func (b *Base) AsyncConnectCompleted() status.Status {
	b.state = Connected
	b.connectingAsync = false
	return status.Ok()
}

// MessageReceived is a no-op default; concrete sessions override it.
func (b *Base) MessageReceived(*message.Message) {}

// ClientConnectionClosed defaults to accepting the detach (no reconnect).
func (b *Base) ClientConnectionClosed() bool { return true }

// PulseTime defaults to "nothing scheduled".
func (b *Base) PulseTime(time.Time) time.Time { return time.Time{} }

// Pulse is a no-op default.
func (b *Base) Pulse(time.Time) {}

// Reconnect installs a fresh data-I/O and gateway and moves the session to
// Dormant (spec §4.7 graceful disconnect: "If reconnect is requested and
// the data-I/O or gateway was swapped, the old I/O is not shut down;
// otherwise it is"). A ClientConnectionClosed override that wants a
// reconnect instead of a detach is expected to call this before returning
// false.
func (b *Base) Reconnect(io dataio.DataIO, gw *gateway.Gateway) {
	b.io = io
	b.gw = gw
	b.reconnected = true
	b.state = Dormant
}

// ConsumeReconnected reports whether Reconnect was called since the last
// call to ConsumeReconnected, clearing the flag. The reactor calls this
// right after ClientConnectionClosed returns false to decide whether the
// old data-I/O needs shutting down itself.
func (b *Base) ConsumeReconnected() bool {
	v := b.reconnected
	b.reconnected = false
	return v
}
