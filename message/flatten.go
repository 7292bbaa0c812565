// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package message

import (
	"math"

	"code.hybscloud.com/muscle/internal/wire"
	"code.hybscloud.com/muscle/status"
)

const headerLen = 12 // magic + what + field count, each a u32

// FlattenedSize returns the exact byte length Flatten would produce, without
// allocating the output buffer.
func (m *Message) FlattenedSize() int {
	n := headerLen
	for _, name := range m.order {
		f := m.byKey[name]
		n += 4 + len(name) + 1 // name-length + name + NUL
		n += 4                 // type code
		n += 4                 // payload length
		n += fieldPayloadSize(f)
	}
	return n
}

func fieldPayloadSize(f *field) int {
	if w, ok := f.typ.fixedWidth(); ok {
		return w * f.count()
	}
	switch f.typ {
	case TypeString:
		n := 4
		for _, s := range f.strings {
			n += 4 + len(s) + 1
		}
		return n
	case TypeMessage:
		n := 0
		for _, sub := range f.msgs {
			n += 4 + sub.FlattenedSize()
		}
		return n
	default: // raw blob under a user-chosen tag
		n := 4
		for _, b := range f.blobs {
			n += 4 + len(b)
		}
		return n
	}
}

// Flatten writes m's wire representation: three little-endian u32 header
// words (magic, what, field count) followed by field records, per spec §3/§4.3.
func (m *Message) Flatten() ([]byte, status.Status) {
	buf := make([]byte, 0, m.FlattenedSize())
	buf = wire.PutUint32(buf, Magic)
	buf = wire.PutUint32(buf, m.What)
	buf = wire.PutUint32(buf, uint32(len(m.order)))

	for _, name := range m.order {
		f := m.byKey[name]
		buf = wire.PutUint32(buf, uint32(len(name)+1))
		buf = append(buf, name...)
		buf = append(buf, 0)
		buf = wire.PutUint32(buf, uint32(f.typ))
		buf = wire.PutUint32(buf, uint32(fieldPayloadSize(f)))
		buf = appendFieldPayload(buf, f)
	}
	return buf, status.Ok()
}

func appendFieldPayload(buf []byte, f *field) []byte {
	switch f.typ {
	case TypeBool:
		for _, v := range f.bools {
			if v {
				buf = append(buf, 1)
			} else {
				buf = append(buf, 0)
			}
		}
	case TypeInt8:
		for _, v := range f.i8s {
			buf = append(buf, byte(v))
		}
	case TypeInt16:
		buf = appendInt16s(buf, f.i16s)
	case TypeInt32:
		buf = appendInt32s(buf, f.i32s)
	case TypeInt64:
		buf = appendInt64s(buf, f.i64s)
	case TypeFloat:
		buf = appendFloat32s(buf, f.f32s)
	case TypeDouble:
		buf = appendFloat64s(buf, f.f64s)
	case TypePoint:
		for _, p := range f.points {
			buf = appendFloat32s(buf, []float32{p.X, p.Y})
		}
	case TypeRect:
		for _, r := range f.rects {
			buf = appendFloat32s(buf, []float32{r.Left, r.Top, r.Right, r.Bottom})
		}
	case TypeString:
		buf = wire.PutUint32(buf, uint32(len(f.strings)))
		for _, s := range f.strings {
			buf = wire.PutUint32(buf, uint32(len(s)+1))
			buf = append(buf, s...)
			buf = append(buf, 0)
		}
	case TypeMessage:
		for _, sub := range f.msgs {
			sz := sub.FlattenedSize()
			buf = wire.PutUint32(buf, uint32(sz))
			flat, _ := sub.Flatten()
			buf = append(buf, flat...)
		}
	default: // raw blob
		buf = wire.PutUint32(buf, uint32(len(f.blobs)))
		for _, b := range f.blobs {
			buf = wire.PutUint32(buf, uint32(len(b)))
			buf = append(buf, b...)
		}
	}
	return buf
}

func appendInt16s(buf []byte, v []int16) []byte {
	for _, x := range v {
		var b [2]byte
		u := uint16(x)
		b[0] = byte(u)
		b[1] = byte(u >> 8)
		buf = append(buf, b[:]...)
	}
	return buf
}

func appendInt32s(buf []byte, v []int32) []byte {
	for _, x := range v {
		buf = wire.PutUint32(buf, uint32(x))
	}
	return buf
}

func appendInt64s(buf []byte, v []int64) []byte {
	for _, x := range v {
		buf = wire.PutUint64(buf, uint64(x))
	}
	return buf
}

func appendFloat32s(buf []byte, v []float32) []byte {
	for _, x := range v {
		buf = wire.PutUint32(buf, math.Float32bits(x))
	}
	return buf
}

func appendFloat64s(buf []byte, v []float64) []byte {
	for _, x := range v {
		buf = wire.PutUint64(buf, math.Float64bits(x))
	}
	return buf
}
