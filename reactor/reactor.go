// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package reactor implements the single-threaded cooperative event loop of
// spec §4.8: it owns the listening sockets, the sessions, the per-session
// I/O policies, and the iteration that drives gateways and sessions through
// a Multiplexer. Callers are responsible for the actual socket() / bind() /
// listen() / connect() syscalls (AddListener and AddOutgoingConnection both
// take an already-prepared fd), matching dataio's own "wraps an
// already-connected/bound fd" convention; the reactor's job starts once a
// fd exists.
package reactor

import (
	"fmt"
	"sync/atomic"
	"time"

	"code.hybscloud.com/muscle/dataio"
	"code.hybscloud.com/muscle/gateway"
	"code.hybscloud.com/muscle/mux"
	"code.hybscloud.com/muscle/policy"
	"code.hybscloud.com/muscle/session"
	"code.hybscloud.com/muscle/status"
)

// DefaultMaxOutgoingQueueBytes is the default threshold for step 6's
// oversized-outgoing-queue dump (spec §4.8: "5MB default").
const DefaultMaxOutgoingQueueBytes = 5 * 1024 * 1024

// listener pairs a listening socket fd with the factory that builds sessions
// for connections accepted on it.
type listener struct {
	fd      int
	factory session.Factory
}

// pendingConnect tracks a non-blocking outgoing connect() awaiting
// writability to learn whether it succeeded.
type pendingConnect struct {
	fd   int
	sess session.Session
}

// sleepReconnect is one entry of the reconnect-on-wake set AboutToSleep
// populates and JustWokeUp drains (spec §4.7 sleep-aware disconnect).
type sleepReconnect struct {
	sess  session.Session
	delay time.Duration
}

// expendable is implemented by sessions that may be safely dropped to
// reclaim memory on an allocation failure (spec §4.8 step 6).
type expendable interface {
	Expendable() bool
}

// reconnectable is implemented by sessions that track whether their data-I/O
// was just swapped for a fresh one (session.Base does, via Reconnect).
type reconnectable interface {
	ConsumeReconnected() bool
}

// Reactor is the event loop. It implements session.Server so sessions and
// factories can be handed a narrow, reactor-agnostic callback surface
// without session importing reactor.
type Reactor struct {
	mx mux.Multiplexer

	sessions   map[string]session.Session
	listeners  map[string]*listener
	connecting map[int]*pendingConnect

	lameDuckSessions  []session.Session
	lameDuckListeners []*listener

	inputPolicy  map[string]policy.Policy
	outputPolicy map[string]policy.Policy

	pendingOutputSince map[string]time.Time

	curRead  map[int]bool
	curWrite map[int]bool

	reconnect func(sess session.Session, delay time.Duration)

	sleepReconnects []sleepReconnect

	nextID uint64
	oom    atomic.Bool

	maxOutgoingQueueBytes int

	shutdownRequested bool
}

// New creates a Reactor backed by the platform's default Multiplexer.
func New() (*Reactor, status.Status) {
	mx, st := mux.New()
	if !st.IsOK() {
		return nil, st
	}
	return &Reactor{
		mx:                    mx,
		sessions:              make(map[string]session.Session),
		listeners:             make(map[string]*listener),
		connecting:            make(map[int]*pendingConnect),
		inputPolicy:           make(map[string]policy.Policy),
		outputPolicy:          make(map[string]policy.Policy),
		pendingOutputSince:    make(map[string]time.Time),
		curRead:               make(map[int]bool),
		curWrite:              make(map[int]bool),
		maxOutgoingQueueBytes: DefaultMaxOutgoingQueueBytes,
	}, status.Ok()
}

// NextSessionID returns a fresh, zero-padded decimal session ID, satisfying
// session.Server.
func (r *Reactor) NextSessionID() string {
	r.nextID++
	return fmt.Sprintf("%010d", r.nextID)
}

// OnReconnect installs the callback ScheduleReconnect forwards to. Redial
// mechanics (DNS, TLS, credentials, backoff policy) are application-specific
// and out of this core's scope (spec: environment and CLI concerns are not
// specified by the core runtime); the reactor only offers the scheduling
// hook, not the dialing itself.
func (r *Reactor) OnReconnect(fn func(sess session.Session, delay time.Duration)) {
	r.reconnect = fn
}

// ScheduleReconnect satisfies session.Server by forwarding to whatever
// handler OnReconnect installed, if any.
func (r *Reactor) ScheduleReconnect(sess session.Session, delay time.Duration) {
	if r.reconnect != nil {
		r.reconnect(sess, delay)
	}
}

// SetMaxOutgoingQueueBytes overrides DefaultMaxOutgoingQueueBytes.
func (r *Reactor) SetMaxOutgoingQueueBytes(n int) { r.maxOutgoingQueueBytes = n }

// SetInputPolicy and SetOutputPolicy associate a policy with a session ID.
// A policy may be shared across many sessions (spec §4.9); passing nil
// clears the association.
func (r *Reactor) SetInputPolicy(sessionID string, p policy.Policy) {
	if p == nil {
		delete(r.inputPolicy, sessionID)
		return
	}
	r.inputPolicy[sessionID] = p
}

func (r *Reactor) SetOutputPolicy(sessionID string, p policy.Policy) {
	if p == nil {
		delete(r.outputPolicy, sessionID)
		return
	}
	r.outputPolicy[sessionID] = p
}

// MarkOOM flags that an allocation failed since the last step-6 check. Wire
// this to refcount.Pool.OnAllocFailed for whichever pools should make the
// reactor eligible to dump an expendable session to reclaim memory:
//
//	pool.OnAllocFailed(reactor.MarkOOM)
func (r *Reactor) MarkOOM() { r.oom.Store(true) }

// AddListener registers factory to accept connections on fd, an
// already-bound, already-listening socket. Use RemoveListener to undo this;
// the factory's Detach runs only after the next lame-duck drain, so a
// factory may safely remove itself from inside one of its own callbacks.
func (r *Reactor) AddListener(addr string, fd int, factory session.Factory) status.Status {
	if st := factory.AttachedToServer(r); !st.IsOK() {
		return st
	}
	r.listeners[addr] = &listener{fd: fd, factory: factory}
	return status.Ok()
}

// RemoveListener defers fd closure and factory.Detach to the next
// lame-duck drain.
func (r *Reactor) RemoveListener(addr string) {
	l, ok := r.listeners[addr]
	if !ok {
		return
	}
	delete(r.listeners, addr)
	delete(r.curRead, l.fd)
	_ = r.mx.UnregisterForRead(l.fd)
	r.lameDuckListeners = append(r.lameDuckListeners, l)
}

// AddOutgoingConnection registers sess as connecting over fd, a
// non-blocking socket the caller already created and began connect()ing on
// (possibly still EINPROGRESS). The reactor finalizes the connect on a
// future cycle once fd becomes writable, checking SO_ERROR to learn whether
// it succeeded (spec §4.7's outgoing-connect path).
func (r *Reactor) AddOutgoingConnection(fd int, sess session.Session, io dataio.DataIO, gw *gateway.Gateway) status.Status {
	id := r.NextSessionID()
	sess.SetID(id)
	sess.SetDataIO(io)
	sess.SetGateway(gw)
	sess.SetState(session.Connecting)
	sess.SetConnectingAsync(true)
	r.sessions[id] = sess
	r.connecting[fd] = &pendingConnect{fd: fd, sess: sess}
	return status.Ok()
}

// Shutdown requests termination of Run's loop on the next iteration boundary.
// It only sets the request flag; Run itself flushes every refcount-pooled
// object after its loop exits, matching spec §5's "the reactor owns the last
// reference to pooled objects at rest" discipline.
func (r *Reactor) Shutdown() {
	r.shutdownRequested = true
}

// Disconnect moves sess toward termination: it gives the gateway one final
// do_output attempt (spec §4.6: a failed read/write disconnects only after
// that), then asks the session whether the client accepts a detach. If so,
// the session moves to the lame-duck list for the next drain. If the
// session instead called Reconnect from within ClientConnectionClosed, it
// stays in the sessions map under its ID and only its previous data-I/O is
// shut down -- and only if Reconnect didn't already swap in a fresh one.
func (r *Reactor) Disconnect(sess session.Session) {
	if gw := sess.Gateway(); gw != nil {
		gw.DoOutput(0)
	}

	id := sess.ID()
	accept := sess.ClientConnectionClosed()
	delete(r.pendingOutputSince, id)

	if accept {
		delete(r.sessions, id)
		delete(r.inputPolicy, id)
		delete(r.outputPolicy, id)
		sess.SetState(session.LameDuck)
		r.lameDuckSessions = append(r.lameDuckSessions, sess)
		return
	}

	if rc, ok := sess.(reconnectable); !ok || !rc.ConsumeReconnected() {
		if io := sess.DataIO(); io != nil {
			io.Shutdown()
		}
	}
}

// AboutToSleep implements spec §4.7's sleep-aware disconnect: on "computer
// about to sleep", every session whose peer is not on the loopback interface
// is disconnected, and those with a non-never (nonzero) auto-reconnect delay
// are recorded in the reconnect-on-wake set for JustWokeUp to redial later.
// Unlike Disconnect's graceful path, this does not consult
// ClientConnectionClosed -- the reactor decides unconditionally -- and the
// session stays in r.sessions, moved to Dormant, since it is expected back
// once the computer wakes rather than gone for good.
func (r *Reactor) AboutToSleep() {
	for id, sess := range r.sessions {
		if session.IsLoopback(sess.PeerAddr()) {
			continue
		}

		if io := sess.DataIO(); io != nil {
			io.Shutdown()
		}
		delete(r.pendingOutputSince, id)
		sess.SetState(session.Dormant)

		if delay := sess.ReconnectDelay(); delay > 0 {
			r.sleepReconnects = append(r.sleepReconnects, sleepReconnect{sess: sess, delay: delay})
		}
	}
}

// JustWokeUp fires every reconnect AboutToSleep deferred, via the same
// ScheduleReconnect hook OnReconnect installs, and empties the
// reconnect-on-wake set.
func (r *Reactor) JustWokeUp() {
	pending := r.sleepReconnects
	r.sleepReconnects = nil
	for _, p := range pending {
		r.ScheduleReconnect(p.sess, p.delay)
	}
}

// PendingWakeReconnects reports the sessions AboutToSleep has scheduled for
// reconnect on wake but JustWokeUp has not yet fired.
func (r *Reactor) PendingWakeReconnects() []session.Session {
	out := make([]session.Session, len(r.sleepReconnects))
	for i, p := range r.sleepReconnects {
		out[i] = p.sess
	}
	return out
}
