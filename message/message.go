// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package message

import "code.hybscloud.com/muscle/status"

// Message is a self-describing dictionary: a 32-bit What code plus an ordered
// name->field mapping. Field names are unique within one message and
// insertion order is preserved on iteration, per spec §3.
type Message struct {
	What uint32

	order []string         // insertion order of field names
	byKey map[string]*field // name -> field
}

// New returns an empty message with the given What code.
func New(what uint32) *Message {
	return &Message{What: what, byKey: make(map[string]*field)}
}

// FieldNames returns field names in insertion order.
func (m *Message) FieldNames() []string {
	out := make([]string, len(m.order))
	copy(out, m.order)
	return out
}

// HasField reports whether name is present.
func (m *Message) HasField(name string) bool {
	_, ok := m.byKey[name]
	return ok
}

// TypeOf returns the type code of the field named name, and whether it exists.
func (m *Message) TypeOf(name string) (TypeCode, bool) {
	f, ok := m.byKey[name]
	if !ok {
		return 0, false
	}
	return f.typ, true
}

// CountValues returns how many values the named field holds (0 if absent).
func (m *Message) CountValues(name string) int {
	f, ok := m.byKey[name]
	if !ok {
		return 0
	}
	return f.count()
}

// getOrCreate returns the field for name, creating it with the given type if
// absent. Returns a type-mismatch status if the field exists with a different
// type, matching spec §4.3: "Type mismatch on an existing name is a logic error."
func (m *Message) getOrCreate(name string, typ TypeCode) (*field, status.Status) {
	if f, ok := m.byKey[name]; ok {
		if f.typ != typ {
			return nil, status.New(status.TypeMismatch)
		}
		return f, status.Ok()
	}
	f := &field{typ: typ}
	m.byKey[name] = f
	m.order = append(m.order, name)
	return f, status.Ok()
}

// Remove deletes the named field entirely.
func (m *Message) Remove(name string) status.Status {
	if _, ok := m.byKey[name]; !ok {
		return status.New(status.DataNotFound)
	}
	delete(m.byKey, name)
	for i, n := range m.order {
		if n == name {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
	return status.Ok()
}

// Rename moves the field at oldName to newName as a delete followed by an
// insert, so the renamed field moves to the end of iteration order, per
// spec §4.3: "Rename/Replace: delete then insert."
func (m *Message) Rename(oldName, newName string) status.Status {
	f, ok := m.byKey[oldName]
	if !ok {
		return status.New(status.DataNotFound)
	}
	if _, exists := m.byKey[newName]; exists {
		return status.New(status.LogicError)
	}
	delete(m.byKey, oldName)
	m.byKey[newName] = f
	for i, n := range m.order {
		if n == oldName {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
	m.order = append(m.order, newName)
	return status.Ok()
}

// Clone returns a deep copy of m, including nested messages.
func (m *Message) Clone() *Message {
	out := New(m.What)
	for _, name := range m.order {
		f := m.byKey[name]
		nf := *f
		nf.bools = append([]bool(nil), f.bools...)
		nf.i8s = append([]int8(nil), f.i8s...)
		nf.i16s = append([]int16(nil), f.i16s...)
		nf.i32s = append([]int32(nil), f.i32s...)
		nf.i64s = append([]int64(nil), f.i64s...)
		nf.f32s = append([]float32(nil), f.f32s...)
		nf.f64s = append([]float64(nil), f.f64s...)
		nf.points = append([]Point(nil), f.points...)
		nf.rects = append([]Rect(nil), f.rects...)
		nf.strings = append([]string(nil), f.strings...)
		nf.blobs = make([][]byte, len(f.blobs))
		for i, b := range f.blobs {
			nf.blobs[i] = append([]byte(nil), b...)
		}
		nf.msgs = make([]*Message, len(f.msgs))
		for i, sub := range f.msgs {
			nf.msgs[i] = sub.Clone()
		}
		out.byKey[name] = &nf
		out.order = append(out.order, name)
	}
	return out
}

// Equal reports whether m and other have the same What code and the same
// fields (name, type, insertion order, and values), matching spec §8's
// round-trip invariant unflatten(flatten(M)) == M.
func (m *Message) Equal(other *Message) bool {
	if other == nil || m.What != other.What || len(m.order) != len(other.order) {
		return false
	}
	for i, name := range m.order {
		if other.order[i] != name {
			return false
		}
		if !fieldsEqual(m.byKey[name], other.byKey[name]) {
			return false
		}
	}
	return true
}

func fieldsEqual(a, b *field) bool {
	if a == nil || b == nil {
		return a == b
	}
	if a.typ != b.typ {
		return false
	}
	switch a.typ {
	case TypeBool:
		return sliceEqual(a.bools, b.bools)
	case TypeInt8:
		return sliceEqual(a.i8s, b.i8s)
	case TypeInt16:
		return sliceEqual(a.i16s, b.i16s)
	case TypeInt32:
		return sliceEqual(a.i32s, b.i32s)
	case TypeInt64:
		return sliceEqual(a.i64s, b.i64s)
	case TypeFloat:
		return sliceEqual(a.f32s, b.f32s)
	case TypeDouble:
		return sliceEqual(a.f64s, b.f64s)
	case TypePoint:
		return sliceEqual(a.points, b.points)
	case TypeRect:
		return sliceEqual(a.rects, b.rects)
	case TypeString:
		return sliceEqual(a.strings, b.strings)
	case TypeMessage:
		if len(a.msgs) != len(b.msgs) {
			return false
		}
		for i := range a.msgs {
			if !a.msgs[i].Equal(b.msgs[i]) {
				return false
			}
		}
		return true
	default:
		if a.blobTag != b.blobTag || len(a.blobs) != len(b.blobs) {
			return false
		}
		for i := range a.blobs {
			if string(a.blobs[i]) != string(b.blobs[i]) {
				return false
			}
		}
		return true
	}
}

func sliceEqual[T comparable](a, b []T) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
