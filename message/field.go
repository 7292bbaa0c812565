// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package message

// field is a tagged-union value holder: exactly one of the typed slices below
// is populated, selected by typ. Design Notes §9 calls for "a tagged-union
// value type with per-arm small-vector storage rather than a polymorphic
// class per field type" since the hot path (Add/Find on a handful of values)
// is allocation-sensitive; this keeps each field to one small slice instead
// of N boxed interface values.
type field struct {
	typ TypeCode

	bools   []bool
	i8s     []int8
	i16s    []int16
	i32s    []int32
	i64s    []int64
	f32s    []float32
	f64s    []float64
	points  []Point
	rects   []Rect
	strings []string
	blobs   [][]byte
	blobTag TypeCode // the user-chosen type code for raw-blob fields
	msgs    []*Message
}

// count returns the number of values held by this field, in append order.
func (f *field) count() int {
	switch f.typ {
	case TypeBool:
		return len(f.bools)
	case TypeInt8:
		return len(f.i8s)
	case TypeInt16:
		return len(f.i16s)
	case TypeInt32:
		return len(f.i32s)
	case TypeInt64:
		return len(f.i64s)
	case TypeFloat:
		return len(f.f32s)
	case TypeDouble:
		return len(f.f64s)
	case TypePoint:
		return len(f.points)
	case TypeRect:
		return len(f.rects)
	case TypeString:
		return len(f.strings)
	case TypeMessage:
		return len(f.msgs)
	default:
		return len(f.blobs)
	}
}
