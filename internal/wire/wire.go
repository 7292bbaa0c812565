// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package wire provides the little-endian byte-level reader/writer the
// message package flattens onto. Spec §4.3/§9 requires the wire format to
// always be little-endian regardless of host, so (unlike
// code.hybscloud.com/muscle's netopts, which lets the caller pick per-transport
// byte order) this package hard-codes encoding/binary.LittleEndian rather than
// exposing a configurable binary.ByteOrder.
package wire

import (
	"encoding/binary"
	"io"
)

// PutUint32 appends a little-endian uint32 to dst.
func PutUint32(dst []byte, v uint32) []byte {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	return append(dst, b[:]...)
}

// Uint32 reads a little-endian uint32 from the front of p.
func Uint32(p []byte) uint32 { return binary.LittleEndian.Uint32(p) }

// PutUint64 appends a little-endian uint64 to dst.
func PutUint64(dst []byte, v uint64) []byte {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	return append(dst, b[:]...)
}

// Uint64 reads a little-endian uint64 from the front of p.
func Uint64(p []byte) uint64 { return binary.LittleEndian.Uint64(p) }

// Reader walks a flattened byte buffer strictly by length prefixes, rejecting
// any read that would run past the end of the buffer. This centralizes the
// "reject records that would read past the end" requirement from spec §4.3.
type Reader struct {
	buf []byte
	off int
}

// NewReader wraps buf for sequential strict reads.
func NewReader(buf []byte) *Reader { return &Reader{buf: buf} }

// Remaining returns the number of unread bytes.
func (r *Reader) Remaining() int { return len(r.buf) - r.off }

// Offset returns the current read offset.
func (r *Reader) Offset() int { return r.off }

// Uint32 reads one little-endian uint32, or io.ErrUnexpectedEOF if fewer than
// 4 bytes remain.
func (r *Reader) Uint32() (uint32, error) {
	if r.Remaining() < 4 {
		return 0, io.ErrUnexpectedEOF
	}
	v := Uint32(r.buf[r.off:])
	r.off += 4
	return v, nil
}

// Bytes reads exactly n raw bytes, or io.ErrUnexpectedEOF if fewer remain.
// The returned slice aliases the reader's backing buffer.
func (r *Reader) Bytes(n int) ([]byte, error) {
	if n < 0 || r.Remaining() < n {
		return nil, io.ErrUnexpectedEOF
	}
	b := r.buf[r.off : r.off+n]
	r.off += n
	return b, nil
}
