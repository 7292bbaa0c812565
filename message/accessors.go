// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package message

import "code.hybscloud.com/muscle/status"

// addGeneric appends values to the typed slot for name, creating the field if
// absent. It is the shared implementation behind every AddX method.
func addGeneric[T any](m *Message, name string, typ TypeCode, slot func(*field) *[]T, values ...T) status.Status {
	f, st := m.getOrCreate(name, typ)
	if !st.IsOK() {
		return st
	}
	s := slot(f)
	*s = append(*s, values...)
	return status.Ok()
}

// findGeneric returns the i'th value (0-indexed) of the named field, or a
// zero value plus a not-found status if the field, or the index within it,
// does not exist.
func findGeneric[T any](m *Message, name string, i int, slot func(*field) []T) (T, status.Status) {
	var zero T
	f, ok := m.byKey[name]
	if !ok {
		return zero, status.New(status.DataNotFound)
	}
	s := slot(f)
	if i < 0 || i >= len(s) {
		return zero, status.New(status.DataNotFound)
	}
	return s[i], status.Ok()
}

// AddBool appends one or more bool values to the named field.
func (m *Message) AddBool(name string, v ...bool) status.Status {
	return addGeneric(m, name, TypeBool, func(f *field) *[]bool { return &f.bools }, v...)
}

// FindBool returns the i'th bool value of the named field.
func (m *Message) FindBool(name string, i int) (bool, status.Status) {
	return findGeneric(m, name, i, func(f *field) []bool { return f.bools })
}

// AddInt8 appends one or more int8 values to the named field.
func (m *Message) AddInt8(name string, v ...int8) status.Status {
	return addGeneric(m, name, TypeInt8, func(f *field) *[]int8 { return &f.i8s }, v...)
}

// FindInt8 returns the i'th int8 value of the named field.
func (m *Message) FindInt8(name string, i int) (int8, status.Status) {
	return findGeneric(m, name, i, func(f *field) []int8 { return f.i8s })
}

// AddInt16 appends one or more int16 values to the named field.
func (m *Message) AddInt16(name string, v ...int16) status.Status {
	return addGeneric(m, name, TypeInt16, func(f *field) *[]int16 { return &f.i16s }, v...)
}

// FindInt16 returns the i'th int16 value of the named field.
func (m *Message) FindInt16(name string, i int) (int16, status.Status) {
	return findGeneric(m, name, i, func(f *field) []int16 { return f.i16s })
}

// AddInt32 appends one or more int32 values to the named field.
func (m *Message) AddInt32(name string, v ...int32) status.Status {
	return addGeneric(m, name, TypeInt32, func(f *field) *[]int32 { return &f.i32s }, v...)
}

// FindInt32 returns the i'th int32 value of the named field.
func (m *Message) FindInt32(name string, i int) (int32, status.Status) {
	return findGeneric(m, name, i, func(f *field) []int32 { return f.i32s })
}

// AddInt64 appends one or more int64 values to the named field.
func (m *Message) AddInt64(name string, v ...int64) status.Status {
	return addGeneric(m, name, TypeInt64, func(f *field) *[]int64 { return &f.i64s }, v...)
}

// FindInt64 returns the i'th int64 value of the named field.
func (m *Message) FindInt64(name string, i int) (int64, status.Status) {
	return findGeneric(m, name, i, func(f *field) []int64 { return f.i64s })
}

// AddFloat appends one or more float32 values to the named field.
func (m *Message) AddFloat(name string, v ...float32) status.Status {
	return addGeneric(m, name, TypeFloat, func(f *field) *[]float32 { return &f.f32s }, v...)
}

// FindFloat returns the i'th float32 value of the named field.
func (m *Message) FindFloat(name string, i int) (float32, status.Status) {
	return findGeneric(m, name, i, func(f *field) []float32 { return f.f32s })
}

// AddDouble appends one or more float64 values to the named field.
func (m *Message) AddDouble(name string, v ...float64) status.Status {
	return addGeneric(m, name, TypeDouble, func(f *field) *[]float64 { return &f.f64s }, v...)
}

// FindDouble returns the i'th float64 value of the named field.
func (m *Message) FindDouble(name string, i int) (float64, status.Status) {
	return findGeneric(m, name, i, func(f *field) []float64 { return f.f64s })
}

// AddPoint appends one or more Point values to the named field.
func (m *Message) AddPoint(name string, v ...Point) status.Status {
	return addGeneric(m, name, TypePoint, func(f *field) *[]Point { return &f.points }, v...)
}

// FindPoint returns the i'th Point value of the named field.
func (m *Message) FindPoint(name string, i int) (Point, status.Status) {
	return findGeneric(m, name, i, func(f *field) []Point { return f.points })
}

// AddRect appends one or more Rect values to the named field.
func (m *Message) AddRect(name string, v ...Rect) status.Status {
	return addGeneric(m, name, TypeRect, func(f *field) *[]Rect { return &f.rects }, v...)
}

// FindRect returns the i'th Rect value of the named field.
func (m *Message) FindRect(name string, i int) (Rect, status.Status) {
	return findGeneric(m, name, i, func(f *field) []Rect { return f.rects })
}

// AddString appends one or more string values to the named field. An empty
// string is a valid value (spec §4.3 edge case: stored as a single NUL byte).
func (m *Message) AddString(name string, v ...string) status.Status {
	return addGeneric(m, name, TypeString, func(f *field) *[]string { return &f.strings }, v...)
}

// FindString returns the i'th string value of the named field.
func (m *Message) FindString(name string, i int) (string, status.Status) {
	return findGeneric(m, name, i, func(f *field) []string { return f.strings })
}

// AddMessage appends one or more nested messages to the named field.
func (m *Message) AddMessage(name string, v ...*Message) status.Status {
	return addGeneric(m, name, TypeMessage, func(f *field) *[]*Message { return &f.msgs }, v...)
}

// FindMessage returns the i'th nested message of the named field.
func (m *Message) FindMessage(name string, i int) (*Message, status.Status) {
	return findGeneric(m, name, i, func(f *field) []*Message { return f.msgs })
}

// AddData appends one or more raw byte blobs under a caller-chosen type tag
// (spec §3: "raw byte blob of a user-chosen type code"). Zero-length blobs
// are permitted. A field's tag is fixed by its first AddData call; later
// calls with a different tag on the same name are a logic error.
func (m *Message) AddData(name string, tag TypeCode, v ...[]byte) status.Status {
	f, ok := m.byKey[name]
	if ok {
		if f.typ != tag {
			return status.New(status.TypeMismatch)
		}
	} else {
		f = &field{typ: tag, blobTag: tag}
		m.byKey[name] = f
		m.order = append(m.order, name)
	}
	for _, b := range v {
		cp := append([]byte(nil), b...)
		f.blobs = append(f.blobs, cp)
	}
	return status.Ok()
}

// FindData returns the i'th raw byte blob of the named field.
func (m *Message) FindData(name string, i int) ([]byte, status.Status) {
	f, ok := m.byKey[name]
	if !ok {
		return nil, status.New(status.DataNotFound)
	}
	if i < 0 || i >= len(f.blobs) {
		return nil, status.New(status.DataNotFound)
	}
	return f.blobs[i], status.Ok()
}
