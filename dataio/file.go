// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package dataio

import (
	"io"
	"os"

	"code.hybscloud.com/muscle/status"
)

// File is a DataIO backed by an *os.File: a plain file, a pipe, or a tty.
// Seek is supported (files only; Seek on a pipe fails at the OS level and
// the error is surfaced as a normal status).
type File struct {
	base
	f      *os.File
	closed bool
}

// NewFile wraps f as a DataIO. f is closed by Shutdown.
func NewFile(f *os.File, opts ...Option) *File {
	d := &File{f: f}
	for _, o := range opts {
		o(&d.base)
	}
	return d
}

func (d *File) Read(p []byte) status.IOResult {
	if d.closed {
		return status.IOResult{Status: status.New(status.BadObject)}
	}
	n, err := d.f.Read(p)
	if err != nil {
		if err == io.EOF {
			return status.IOResult{N: n, Status: status.New(status.EndOfStream)}
		}
		return status.IOResult{N: n, Status: status.FromErrno(err)}
	}
	return status.IOResult{N: n, Status: status.Ok()}
}

func (d *File) Write(p []byte) status.IOResult {
	if d.closed {
		return status.IOResult{Status: status.New(status.BadObject)}
	}
	n, err := d.f.Write(p)
	d.buffered = n > 0
	if err != nil {
		return status.IOResult{N: n, Status: status.FromErrno(err)}
	}
	return status.IOResult{N: n, Status: status.Ok()}
}

func (d *File) Flush() status.Status {
	d.buffered = false
	return status.FromErrno(d.f.Sync())
}

func (d *File) Shutdown() status.Status {
	if d.closed {
		return status.Ok()
	}
	d.closed = true
	return status.FromErrno(d.f.Close())
}

func (d *File) ReadSelectSocket() int  { return int(d.f.Fd()) }
func (d *File) WriteSelectSocket() int { return int(d.f.Fd()) }

// Seek implements Seeker.
func (d *File) Seek(offset int64, whence int) (int64, status.Status) {
	n, err := d.f.Seek(offset, whence)
	return n, status.FromErrno(err)
}
