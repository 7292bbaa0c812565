// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package dataio

import (
	"sync"
	"time"

	"code.hybscloud.com/muscle/status"
)

// Proxy delegates every call to a child DataIO that can be swapped at
// runtime. This backs the session-reconnect path (spec §4.7): on a graceful
// disconnect that asks for reconnect, the session keeps its gateway but
// installs a fresh child DataIO via SetChild rather than being torn down.
type Proxy struct {
	mu    sync.Mutex
	child DataIO
}

// NewProxy wraps child.
func NewProxy(child DataIO) *Proxy {
	return &Proxy{child: child}
}

// SetChild installs a new child and returns the previous one, which the
// caller is responsible for shutting down if it should not be reused.
func (p *Proxy) SetChild(child DataIO) DataIO {
	p.mu.Lock()
	defer p.mu.Unlock()
	old := p.child
	p.child = child
	return old
}

func (p *Proxy) current() DataIO {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.child
}

func (p *Proxy) Read(buf []byte) status.IOResult  { return p.current().Read(buf) }
func (p *Proxy) Write(buf []byte) status.IOResult { return p.current().Write(buf) }
func (p *Proxy) Flush() status.Status             { return p.current().Flush() }
func (p *Proxy) Shutdown() status.Status          { return p.current().Shutdown() }
func (p *Proxy) HasBufferedOutput() bool          { return p.current().HasBufferedOutput() }
func (p *Proxy) ReadSelectSocket() int            { return p.current().ReadSelectSocket() }
func (p *Proxy) WriteSelectSocket() int           { return p.current().WriteSelectSocket() }
func (p *Proxy) OutputStallLimit() time.Duration  { return p.current().OutputStallLimit() }

// Seek delegates to the child if it implements Seeker, and fails with
// Unimplemented otherwise.
func (p *Proxy) Seek(offset int64, whence int) (int64, status.Status) {
	if s, ok := p.current().(Seeker); ok {
		return s.Seek(offset, whence)
	}
	return 0, status.New(status.Unimplemented)
}
