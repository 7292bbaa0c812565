// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package gateway converts between a session's byte stream and typed
// messages (spec §4.6). A Gateway wraps a dataio.DataIO, holds an
// outgoing-message queue, and drives the root framing package's length-prefix
// (stream) or pass-through (packet) wire layer underneath the Message codec.
package gateway

import (
	"errors"
	"io"

	wire "code.hybscloud.com/muscle"
	"code.hybscloud.com/muscle/dataio"
	"code.hybscloud.com/muscle/message"
	"code.hybscloud.com/muscle/status"
	"golang.org/x/sys/unix"
)

// DefaultMaxPacketSize bounds the read buffer used when wrapping a
// boundary-preserving (packet) DataIO, absent an explicit WithMaxPacketSize.
const DefaultMaxPacketSize = 64 * 1024

// defaultStreamReadBufSize is the initial guess for a stream message's
// flattened size; DoInput grows it on demand when a message is larger.
const defaultStreamReadBufSize = 4096

// RemoteAddrField is the reserved field name packet-remote-tagging stamps
// onto an incoming message with the sender's raw socket address (spec §4.6).
const RemoteAddrField = "_remote_addr"

// Option configures a Gateway at construction time.
type Option func(*Gateway)

// WithFlushOnEmpty arranges for Flush to be called on the underlying DataIO
// every time the outgoing queue transitions to empty.
func WithFlushOnEmpty() Option {
	return func(g *Gateway) { g.flushOnEmpty = true }
}

// WithMaxPacketSize sets the largest single datagram this gateway will
// accept when wrapping a packet-mode DataIO. Ignored in stream mode, where
// the read buffer grows on demand instead.
func WithMaxPacketSize(n int) Option {
	return func(g *Gateway) { g.maxPacketSize = n }
}

// WithRemoteTagging enables stamping RemoteAddrField onto every message
// decoded from a packet-mode DataIO that exposes a last-peer address.
func WithRemoteTagging() Option {
	return func(g *Gateway) { g.remoteTagging = true }
}

// remoteAddrSource is implemented by packet DataIO variants that remember
// the sender of the most recently received datagram.
type remoteAddrSource interface {
	LastPeerAddr() unix.Sockaddr
}

// Gateway is the I/O gateway of spec §4.6: it owns an outgoing-message
// queue and turns do_output/do_input calls into writes/reads against the
// underlying DataIO, translating to and from the Message wire format.
type Gateway struct {
	d       dataio.DataIO
	adapter *ioAdapter
	rw      io.ReadWriter

	packetMode    bool
	maxPacketSize int
	remoteTagging bool
	flushOnEmpty  bool

	outgoing []*message.Message
	pending  []byte // flattened bytes of the message currently mid-write
	readBuf  []byte
}

// New wraps d. protocol selects the wire framing: wire.BinaryStream adds a
// length prefix for a stream transport (TCP, a pipe, a file); wire.Datagram
// or wire.SeqPacket is pass-through for a transport that already preserves
// message boundaries (UDP). Use NewTCP/NewUDP instead when d's transport
// kind is known, to pick up the root package's per-transport byte-order
// convention along with its protocol.
func New(d dataio.DataIO, protocol wire.Protocol, opts ...Option) *Gateway {
	return newWithWireOptions(d, protocol != wire.BinaryStream, opts, wire.WithProtocol(protocol), wire.WithNonblock())
}

// NewTCP wraps d for a TCP stream: length-prefixed framing in network byte
// order, matching the root package's WithReadTCP/WithWriteTCP convention.
func NewTCP(d dataio.DataIO, opts ...Option) *Gateway {
	return newWithWireOptions(d, false, opts, wire.WithReadTCP(), wire.WithWriteTCP(), wire.WithNonblock())
}

// NewUDP wraps d for UDP: pass-through datagram framing in network byte
// order, matching the root package's WithReadUDP/WithWriteUDP convention.
func NewUDP(d dataio.DataIO, opts ...Option) *Gateway {
	return newWithWireOptions(d, true, opts, wire.WithReadUDP(), wire.WithWriteUDP(), wire.WithNonblock())
}

// NewLocal wraps d for a same-host transport with no cross-machine byte-order
// concern, e.g. a dataio.File backed by a pipe or a Unix-domain socket fd
// exposed through os.NewFile: length-prefixed framing in native byte order,
// matching the root package's WithReadLocal/WithWriteLocal convention.
func NewLocal(d dataio.DataIO, opts ...Option) *Gateway {
	return newWithWireOptions(d, false, opts, wire.WithReadLocal(), wire.WithWriteLocal(), wire.WithNonblock())
}

func newWithWireOptions(d dataio.DataIO, packetMode bool, opts []Option, wireOpts ...wire.Option) *Gateway {
	g := &Gateway{
		d:             d,
		packetMode:    packetMode,
		maxPacketSize: DefaultMaxPacketSize,
	}
	for _, o := range opts {
		o(g)
	}

	g.adapter = &ioAdapter{d: d}
	g.rw = wire.NewReadWriter(g.adapter, g.adapter, wireOpts...)

	if g.packetMode {
		g.readBuf = make([]byte, g.maxPacketSize)
	} else {
		g.readBuf = make([]byte, defaultStreamReadBufSize)
	}
	return g
}

// AddOutgoingMessage enqueues msg for sending on a future DoOutput call.
func (g *Gateway) AddOutgoingMessage(msg *message.Message) {
	g.outgoing = append(g.outgoing, msg)
}

// HasBytesToOutput reports whether the gateway currently wants the
// write-side descriptor: a message is mid-write or queued. Output buffered
// inside the DataIO itself is not counted here; DataIO.HasBufferedOutput
// reports that separately.
func (g *Gateway) HasBytesToOutput() bool {
	return g.pending != nil || len(g.outgoing) > 0
}

// IsReadyForInput reports whether the gateway currently wants the read-side
// descriptor. The default is always true; nothing in this runtime currently
// throttles reads at the gateway layer (that is policy's job).
func (g *Gateway) IsReadyForInput() bool { return true }

// MaxPacketSize returns the largest single datagram this gateway accepts.
// Meaningful only in packet mode.
func (g *Gateway) MaxPacketSize() int { return g.maxPacketSize }

// QueuedOutputBytes estimates the total flattened size of every message
// still waiting to be sent, including one already mid-write. The reactor
// uses this for its outgoing-queue-size dump threshold (spec §4.8 step 6).
func (g *Gateway) QueuedOutputBytes() int {
	n := len(g.pending)
	for _, msg := range g.outgoing {
		n += msg.FlattenedSize()
	}
	return n
}

// DoOutput attempts to write up to maxBytes bytes (maxBytes<=0 means no cap,
// other than draining the currently-queued messages) and returns the bytes
// actually written plus a status. A WouldBlock-flavored stop is reported as
// success with partial progress; callers track readiness separately via
// HasBytesToOutput.
func (g *Gateway) DoOutput(maxBytes int) status.IOResult {
	total := 0
	for maxBytes <= 0 || total < maxBytes {
		if g.pending == nil {
			if len(g.outgoing) == 0 {
				if g.flushOnEmpty {
					if st := g.d.Flush(); !st.IsOK() {
						return status.IOResult{N: total, Status: st}
					}
				}
				return status.IOResult{N: total, Status: status.Ok()}
			}
			msg := g.outgoing[0]
			g.outgoing[0] = nil
			g.outgoing = g.outgoing[1:]

			flat, st := msg.Flatten()
			if !st.IsOK() {
				return status.IOResult{N: total, Status: st}
			}
			g.pending = flat
		}

		n, err := g.rw.Write(g.pending)
		total += n
		if err != nil {
			if errors.Is(err, wire.ErrWouldBlock) || errors.Is(err, wire.ErrMore) {
				return status.IOResult{N: total, Status: status.Ok()}
			}
			g.pending = nil
			return status.IOResult{N: total, Status: g.errToStatus(err)}
		}
		g.pending = nil
	}
	return status.IOResult{N: total, Status: status.Ok()}
}

// DoInput attempts to read up to maxBytes bytes (maxBytes<=0 means no cap)
// and delivers each fully-decoded message to receiver as it arrives.
func (g *Gateway) DoInput(receiver func(*message.Message), maxBytes int) status.IOResult {
	total := 0
	for maxBytes <= 0 || total < maxBytes {
		n, err := g.rw.Read(g.readBuf)
		if err != nil {
			switch {
			case errors.Is(err, io.ErrShortBuffer):
				// The framer already parsed the length prefix of a message
				// larger than our current buffer; grow and retry the same
				// in-flight read without losing its progress.
				g.growReadBuf()
				continue
			case errors.Is(err, wire.ErrWouldBlock), errors.Is(err, wire.ErrMore):
				return status.IOResult{N: total, Status: status.Ok()}
			case errors.Is(err, io.EOF):
				return status.IOResult{N: total, Status: status.New(status.EndOfStream)}
			default:
				return status.IOResult{N: total, Status: g.errToStatus(err)}
			}
		}
		total += n
		if n == 0 {
			continue
		}

		msg, st := message.Unflatten(g.readBuf[:n])
		if !st.IsOK() {
			return status.IOResult{N: total, Status: st}
		}
		if g.remoteTagging && g.packetMode {
			if src, ok := g.d.(remoteAddrSource); ok {
				tagRemote(msg, src.LastPeerAddr())
			}
		}
		receiver(msg)
	}
	return status.IOResult{N: total, Status: status.Ok()}
}

func (g *Gateway) growReadBuf() {
	g.readBuf = make([]byte, len(g.readBuf)*2)
}

// errToStatus converts a framing-layer error that isn't one of the
// control-flow sentinels (ErrWouldBlock/ErrMore/ErrShortBuffer) into a
// status, preferring the adapter's own last observed status (which carries
// the real Kind and, for Errno statuses, the underlying OS error) over a
// generic fallback.
func (g *Gateway) errToStatus(err error) status.Status {
	if errors.Is(err, io.ErrUnexpectedEOF) {
		return status.New(status.EndOfStream)
	}
	if errors.Is(err, wire.ErrTooLong) {
		return status.New(status.BadArgument)
	}
	if st, ok := err.(status.Status); ok {
		return st
	}
	return g.adapter.lastStatus()
}

// tagRemote stamps addr onto msg under RemoteAddrField as its raw encoded
// form; callers that need a structured address decode it themselves
// (unix.Sockaddr has several concrete shapes and the wire format has no
// socket-address type of its own).
func tagRemote(msg *message.Message, addr unix.Sockaddr) {
	if addr == nil {
		return
	}
	switch a := addr.(type) {
	case *unix.SockaddrInet4:
		_ = msg.AddData(RemoteAddrField, message.TypeRawAny, append(append([]byte(nil), a.Addr[:]...), byte(a.Port), byte(a.Port>>8)))
	case *unix.SockaddrInet6:
		_ = msg.AddData(RemoteAddrField, message.TypeRawAny, append(append([]byte(nil), a.Addr[:]...), byte(a.Port), byte(a.Port>>8)))
	}
}
