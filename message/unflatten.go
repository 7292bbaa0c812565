// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package message

import (
	"math"

	"code.hybscloud.com/muscle/internal/wire"
	"code.hybscloud.com/muscle/status"
)

// UnflattenOptions controls Unflatten's strictness.
type UnflattenOptions struct {
	// AllowDuplicateNames disables the unique-field-name check. Per spec §9's
	// open question, the check is a linear scan that "may be disabled
	// globally"; the default here enforces uniqueness.
	AllowDuplicateNames bool
}

// Unflatten parses buf as a flattened message, validating the magic number
// and walking field records strictly by their length prefixes. It rejects
// records that would read past the end of buf and, unless disabled, rejects
// duplicate field names.
func Unflatten(buf []byte, opts ...UnflattenOptions) (*Message, status.Status) {
	var o UnflattenOptions
	if len(opts) > 0 {
		o = opts[0]
	}

	r := wire.NewReader(buf)
	magic, err := r.Uint32()
	if err != nil || magic != Magic {
		return nil, status.New(status.LogicError)
	}
	what, err := r.Uint32()
	if err != nil {
		return nil, status.New(status.LogicError)
	}
	count, err := r.Uint32()
	if err != nil {
		return nil, status.New(status.LogicError)
	}

	m := New(what)
	for i := uint32(0); i < count; i++ {
		nameLen, err := r.Uint32()
		if err != nil {
			return nil, status.New(status.LogicError)
		}
		if nameLen == 0 {
			return nil, status.New(status.LogicError)
		}
		nameBytes, err := r.Bytes(int(nameLen))
		if err != nil {
			return nil, status.New(status.LogicError)
		}
		// nameBytes includes the trailing NUL.
		name := string(nameBytes[:len(nameBytes)-1])

		typ, err := r.Uint32()
		if err != nil {
			return nil, status.New(status.LogicError)
		}
		payloadLen, err := r.Uint32()
		if err != nil {
			return nil, status.New(status.LogicError)
		}
		payload, err := r.Bytes(int(payloadLen))
		if err != nil {
			return nil, status.New(status.LogicError)
		}

		if !o.AllowDuplicateNames {
			if _, exists := m.byKey[name]; exists {
				return nil, status.New(status.LogicError)
			}
		}

		f, st := decodeField(TypeCode(typ), payload)
		if !st.IsOK() {
			return nil, st
		}
		m.byKey[name] = f
		m.order = append(m.order, name)
	}
	return m, status.Ok()
}

func decodeField(typ TypeCode, payload []byte) (*field, status.Status) {
	f := &field{typ: typ}

	if w, ok := typ.fixedWidth(); ok {
		if len(payload)%w != 0 {
			return nil, status.New(status.LogicError)
		}
		n := len(payload) / w
		switch typ {
		case TypeBool:
			f.bools = make([]bool, n)
			for i := 0; i < n; i++ {
				f.bools[i] = payload[i] != 0
			}
		case TypeInt8:
			f.i8s = make([]int8, n)
			for i := 0; i < n; i++ {
				f.i8s[i] = int8(payload[i])
			}
		case TypeInt16:
			f.i16s = make([]int16, n)
			for i := 0; i < n; i++ {
				u := uint16(payload[i*2]) | uint16(payload[i*2+1])<<8
				f.i16s[i] = int16(u)
			}
		case TypeInt32:
			f.i32s = make([]int32, n)
			for i := 0; i < n; i++ {
				f.i32s[i] = int32(wire.Uint32(payload[i*4:]))
			}
		case TypeInt64:
			f.i64s = make([]int64, n)
			for i := 0; i < n; i++ {
				f.i64s[i] = int64(wire.Uint64(payload[i*8:]))
			}
		case TypeFloat:
			f.f32s = make([]float32, n)
			for i := 0; i < n; i++ {
				f.f32s[i] = math.Float32frombits(wire.Uint32(payload[i*4:]))
			}
		case TypeDouble:
			f.f64s = make([]float64, n)
			for i := 0; i < n; i++ {
				f.f64s[i] = math.Float64frombits(wire.Uint64(payload[i*8:]))
			}
		case TypePoint:
			f.points = make([]Point, n)
			for i := 0; i < n; i++ {
				f.points[i] = Point{
					X: math.Float32frombits(wire.Uint32(payload[i*8:])),
					Y: math.Float32frombits(wire.Uint32(payload[i*8+4:])),
				}
			}
		case TypeRect:
			f.rects = make([]Rect, n)
			for i := 0; i < n; i++ {
				base := i * 16
				f.rects[i] = Rect{
					Left:   math.Float32frombits(wire.Uint32(payload[base:])),
					Top:    math.Float32frombits(wire.Uint32(payload[base+4:])),
					Right:  math.Float32frombits(wire.Uint32(payload[base+8:])),
					Bottom: math.Float32frombits(wire.Uint32(payload[base+12:])),
				}
			}
		}
		return f, status.Ok()
	}

	switch typ {
	case TypeString:
		r := wire.NewReader(payload)
		n, err := r.Uint32()
		if err != nil {
			return nil, status.New(status.LogicError)
		}
		f.strings = make([]string, 0, n)
		for i := uint32(0); i < n; i++ {
			strLen, err := r.Uint32()
			if err != nil || strLen == 0 {
				return nil, status.New(status.LogicError)
			}
			b, err := r.Bytes(int(strLen))
			if err != nil {
				return nil, status.New(status.LogicError)
			}
			// b includes the trailing NUL (empty strings are length 1, a
			// single NUL byte, per spec §4.3 edge case).
			f.strings = append(f.strings, string(b[:len(b)-1]))
		}
		return f, status.Ok()

	case TypeMessage:
		// No item count is stored for nested-message fields (spec §3/§9
		// "historical constraint"); the count is recovered by scanning:
		// repeatedly read a u32 flattened-size then that many bytes until
		// the payload is exhausted.
		off := 0
		for off < len(payload) {
			if len(payload)-off < 4 {
				return nil, status.New(status.LogicError)
			}
			sz := int(wire.Uint32(payload[off:]))
			off += 4
			if sz < headerLen || off+sz > len(payload) {
				return nil, status.New(status.LogicError)
			}
			sub, st := Unflatten(payload[off : off+sz])
			if !st.IsOK() {
				return nil, st
			}
			f.msgs = append(f.msgs, sub)
			off += sz
		}
		return f, status.Ok()

	default: // raw blob under a user-chosen tag
		f.blobTag = typ
		r := wire.NewReader(payload)
		n, err := r.Uint32()
		if err != nil {
			return nil, status.New(status.LogicError)
		}
		f.blobs = make([][]byte, 0, n)
		for i := uint32(0); i < n; i++ {
			blobLen, err := r.Uint32()
			if err != nil {
				return nil, status.New(status.LogicError)
			}
			b, err := r.Bytes(int(blobLen))
			if err != nil {
				return nil, status.New(status.LogicError)
			}
			f.blobs = append(f.blobs, append([]byte(nil), b...))
		}
		return f, status.Ok()
	}
}
