// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package dataio

import (
	"crypto/tls"

	"code.hybscloud.com/muscle/status"
)

// TLS wraps an already-configured *tls.Conn as a DataIO. Unlike the original
// want-read/want-write flag approach (OpenSSL exposes SSL_get_error so a
// non-blocking caller can tell which direction a stalled handshake needs),
// Go's crypto/tls.Conn gives no such introspection over a non-blocking
// net.Conn. Rather than fake it with timing heuristics, TLS is designed to
// be wrapped in an Async: the worker goroutine's blocking Read/Write absorb
// the handshake's internal reads and writes, and the reactor naturally
// re-enters the event loop exactly when Async's socket pair becomes
// readable or writable, which is the same externally-visible behavior the
// dummy-always-readable-socket trick was approximating.
type TLS struct {
	base
	conn   *tls.Conn
	closed bool
}

// NewTLS wraps conn, which must already be constructed via tls.Client or
// tls.Server; NewTLS does not itself dial or listen.
func NewTLS(conn *tls.Conn, opts ...Option) *TLS {
	d := &TLS{conn: conn}
	for _, o := range opts {
		o(&d.base)
	}
	return d
}

func (d *TLS) Read(p []byte) status.IOResult {
	if d.closed {
		return status.IOResult{Status: status.New(status.BadObject)}
	}
	n, err := d.conn.Read(p)
	if err != nil {
		return status.IOResult{N: n, Status: status.New(status.SSLError)}
	}
	return status.IOResult{N: n, Status: status.Ok()}
}

func (d *TLS) Write(p []byte) status.IOResult {
	if d.closed {
		return status.IOResult{Status: status.New(status.BadObject)}
	}
	n, err := d.conn.Write(p)
	d.buffered = n > 0
	if err != nil {
		return status.IOResult{N: n, Status: status.New(status.SSLError)}
	}
	return status.IOResult{N: n, Status: status.Ok()}
}

func (d *TLS) Flush() status.Status {
	d.buffered = false
	return status.Ok()
}

func (d *TLS) Shutdown() status.Status {
	if d.closed {
		return status.Ok()
	}
	d.closed = true
	if err := d.conn.Close(); err != nil {
		return status.New(status.SSLError)
	}
	return status.Ok()
}

// ReadSelectSocket and WriteSelectSocket return NoSocket: TLS is meant to
// run beneath an Async wrapper rather than be multiplexed directly.
func (d *TLS) ReadSelectSocket() int  { return NoSocket }
func (d *TLS) WriteSelectSocket() int { return NoSocket }
