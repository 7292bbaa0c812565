// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package session

import (
	"net"

	"code.hybscloud.com/muscle/status"
)

// Factory accepts new connections on a listening (IP,port) and constructs a
// Session for each one (spec §4.7). The reactor holds factories in an
// (IP,port)->Factory map and defers a removed factory's destruction to a
// lame-duck-factories list so a factory may safely remove itself from
// inside its own callback.
type Factory interface {
	// CreateSession constructs a new, as-yet-unattached Session for a peer
	// that just connected (accept) or is about to (outgoing connect).
	CreateSession(peer net.Addr) (Session, status.Status)

	// AttachedToServer is called once, when the factory is registered
	// with a server.
	AttachedToServer(srv Server) status.Status

	// Detach is called when the factory is removed from the server's map,
	// after the reactor's lame-duck pass has drained pending work.
	Detach()
}

// FactoryBase implements every Factory method with a no-op default except
// CreateSession, which embedders must still provide (there is no sensible
// default for "construct my application's session type").
type FactoryBase struct {
	srv Server
}

// AttachedToServer records srv.
func (f *FactoryBase) AttachedToServer(srv Server) status.Status {
	f.srv = srv
	return status.Ok()
}

// Server returns the server this factory was attached to, or nil before
// AttachedToServer has run.
func (f *FactoryBase) Server() Server { return f.srv }

// Detach is a no-op default.
func (f *FactoryBase) Detach() {}
