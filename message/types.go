// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package message implements the self-describing, ordered name->field
// dictionary described in spec §3-§4.3: a 32-bit "what" code plus an ordered
// set of named, typed fields, a deterministic little-endian flattened wire
// format, and a zero-allocation in-place variant (Micro) over the same wire
// layout.
package message

// TypeCode identifies a field's value type on the wire. The numeric values
// match the historical MUSCLE type codes (spec §6 GLOSSARY / Magic values) so
// that flattened messages remain wire-compatible with the original protocol.
type TypeCode uint32

const (
	TypeBool    TypeCode = 1
	TypeInt8    TypeCode = 1935762543
	TypeInt16   TypeCode = 1397248596
	TypeInt32   TypeCode = 1280265799
	TypeInt64   TypeCode = 1280069191
	TypeFloat   TypeCode = 1280070214
	TypeDouble  TypeCode = 1146113095
	TypePoint   TypeCode = 1112559188
	TypeRect    TypeCode = 1380013908
	TypeString  TypeCode = 1129534546
	TypeMessage TypeCode = 1297303367
	TypeRawAny  TypeCode = 1095586128 // ANY: caller-defined blob, generic tag
	TypeRawData TypeCode = 1380013650 // RAWT: caller-defined blob, typed tag
)

// Magic is the 32-bit protocol version word ('PM00' / 0x5035304D) that
// prefixes every flattened message, per spec §3/§6.
const Magic uint32 = 0x5035304D

// fixedWidth returns the per-value byte width for POD types, i.e. types whose
// field payload is a bare packed array with no internal length prefixes. It
// returns (0, false) for variable-width types (string, blob, message).
func (t TypeCode) fixedWidth() (int, bool) {
	switch t {
	case TypeBool, TypeInt8:
		return 1, true
	case TypeInt16:
		return 2, true
	case TypeInt32, TypeFloat:
		return 4, true
	case TypeInt64, TypeDouble:
		return 8, true
	case TypePoint:
		return 8, true // two float32s
	case TypeRect:
		return 16, true // four float32s
	default:
		return 0, false
	}
}

// Point is a 2D point of two float32s, matching the original PointField
// layout (supplemented per SPEC_FULL.md §4, not spelled out in spec.md's
// prose but required by its own type-list).
type Point struct {
	X, Y float32
}

// Rect is an axis-aligned rectangle of four float32s (left, top, right,
// bottom), matching the original RectField layout.
type Rect struct {
	Left, Top, Right, Bottom float32
}
