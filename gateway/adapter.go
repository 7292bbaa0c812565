// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package gateway

import (
	"io"

	wire "code.hybscloud.com/muscle"
	"code.hybscloud.com/muscle/dataio"
	"code.hybscloud.com/muscle/status"
)

// ioAdapter bridges a dataio.DataIO's status-based Read/Write to the
// (n, error) convention the root framing package expects, so its
// length-prefix stream layer can sit directly on top of any DataIO variant
// without DataIO itself depending on io.Reader/io.Writer.
type ioAdapter struct {
	d    dataio.DataIO
	last status.Status
}

func (a *ioAdapter) Read(p []byte) (int, error) {
	res := a.d.Read(p)
	a.last = res.Status
	switch {
	case res.Status.IsOK():
		return res.N, nil
	case res.Status.WouldBlock():
		return res.N, wire.ErrWouldBlock
	case res.Status.Kind() == status.EndOfStream:
		return res.N, io.EOF
	default:
		return res.N, res.Status
	}
}

func (a *ioAdapter) Write(p []byte) (int, error) {
	res := a.d.Write(p)
	a.last = res.Status
	switch {
	case res.Status.IsOK():
		return res.N, nil
	case res.Status.WouldBlock():
		return res.N, wire.ErrWouldBlock
	default:
		return res.N, res.Status
	}
}

// lastStatus reports the most recent non-OK status this adapter observed,
// for callers that only have a generic error value in hand (e.g. a framer
// logic error unrelated to the last Read/Write) and need to fall back to
// something reasonable.
func (a *ioAdapter) lastStatus() status.Status {
	if a.last.IsOK() {
		return status.New(status.IOError)
	}
	return a.last
}
