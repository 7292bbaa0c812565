// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package message

import (
	"code.hybscloud.com/muscle/internal/wire"
	"code.hybscloud.com/muscle/status"
)

// Micro is an in-place, zero-allocation view over a caller-supplied byte
// buffer using exactly the wire layout Flatten/Unflatten produce (spec §3
// "MicroMessage"). It supports append-only mutation (build mode) or
// random-access read (read-only mode); never both on the same instance.
type Micro struct {
	buf      *[]byte // shared with the buffer root; children mutate through the same backing slice
	readOnly bool

	// build-mode state
	fieldCountOff  int // offset of the header's field-count word
	curFieldOff    int // offset of the most-recently-appended field record ("current add" cursor)
	curPayloadLen  int // offset, within buf, of that field's payload-length word
	haveCur        bool
	parent         *Micro // non-nil for an in-place child-message view
	parentSizeOff  int    // offset, in parent.buf, of the u32 flattened-size word for this child
	sealed         bool   // true once a field has been appended in the parent after this child was opened
	openChild      *Micro // most recently opened, not-yet-sealed child view of this Micro

	// read-only cache: the last field looked up, to accelerate repeated queries
	cacheName    string
	cacheTyp     TypeCode
	cachePayload []byte
	cacheValid   bool
}

// NewMicroBuilder returns a build-mode Micro writing into buf, which must
// have at least 12 bytes of capacity (grown via append as fields are added).
func NewMicroBuilder(buf []byte, what uint32) *Micro {
	b := buf[:0]
	b = wire.PutUint32(b, Magic)
	b = wire.PutUint32(b, what)
	b = wire.PutUint32(b, 0) // field count, patched as fields are appended
	return &Micro{buf: &b, fieldCountOff: 8}
}

// Bytes returns the flattened bytes built so far. Valid only in build mode.
func (m *Micro) Bytes() []byte { return *m.buf }

// incFieldCount increments this message's own header field-count word (not
// any ancestor's: a child message's count tracks only its direct fields).
func (m *Micro) incFieldCount() {
	cur := wire.Uint32((*m.buf)[m.fieldCountOff:])
	copy((*m.buf)[m.fieldCountOff:], wire.PutUint32(nil, cur+1))
}

// AppendField appends a brand-new field record (name, type, already-encoded
// payload) and makes it the "current add" cursor. Any prior cursor is
// invalidated, per spec §4.3: "any other operation invalidates the cursor."
func (m *Micro) AppendField(name string, typ TypeCode, payload []byte) status.Status {
	if m.readOnly {
		return status.New(status.BadObject)
	}
	if m.sealed {
		return status.New(status.LogicError)
	}

	recordStart := len(*m.buf)
	*m.buf = wire.PutUint32(*m.buf, uint32(len(name)+1))
	*m.buf = append(*m.buf, name...)
	*m.buf = append(*m.buf, 0)
	*m.buf = wire.PutUint32(*m.buf, uint32(typ))
	payloadLenOff := len(*m.buf)
	*m.buf = wire.PutUint32(*m.buf, uint32(len(payload)))
	*m.buf = append(*m.buf, payload...)

	m.curFieldOff = recordStart
	m.curPayloadLen = payloadLenOff
	m.haveCur = true
	m.sealChildIfAny()
	m.incFieldCount()
	m.growAncestors(len(*m.buf) - recordStart)
	return status.Ok()
}

// AppendValue appends additional payload bytes to the field most recently
// created by AppendField, in O(1) via the cursor, growing that field's
// payload-length word (and every ancestor's flattened-size word, if this
// Micro is a child view).
func (m *Micro) AppendValue(more []byte) status.Status {
	if m.readOnly {
		return status.New(status.BadObject)
	}
	if !m.haveCur || m.sealed {
		return status.New(status.LogicError)
	}
	cur := wire.Uint32((*m.buf)[m.curPayloadLen:])
	copy((*m.buf)[m.curPayloadLen:], wire.PutUint32(nil, cur+uint32(len(more))))
	*m.buf = append(*m.buf, more...)
	m.growAncestors(len(more))
	return status.Ok()
}

// sealChildIfAny seals the most recently opened child view, if any, because a
// second field is now being appended to the parent (spec §3 invariant: "once
// a second field has been appended after a child, the child is sealed").
func (m *Micro) sealChildIfAny() {
	if m.openChild != nil {
		m.openChild.sealed = true
		m.openChild = nil
	}
}

// OpenChildMessage appends a new nested-message field and returns an in-place
// Micro view into its payload region for building the child. The child
// remains open (appendable) only until the parent appends another field.
func (m *Micro) OpenChildMessage(name string, what uint32) (*Micro, status.Status) {
	if m.readOnly || m.sealed {
		return nil, status.New(status.LogicError)
	}
	// Nested-message fields store, per message, a u32 flattened size then the
	// flattened bytes; there is no field-level value count (spec §3's
	// "historical constraint"), so a message field here holds exactly one
	// child.
	recordStart := len(*m.buf)
	*m.buf = wire.PutUint32(*m.buf, uint32(len(name)+1))
	*m.buf = append(*m.buf, name...)
	*m.buf = append(*m.buf, 0)
	*m.buf = wire.PutUint32(*m.buf, uint32(TypeMessage))
	payloadLenOff := len(*m.buf)
	*m.buf = wire.PutUint32(*m.buf, 0) // field payload length; fixed at 4+childSize once sealed

	sizeOff := len(*m.buf)
	*m.buf = wire.PutUint32(*m.buf, headerLen) // child's own flattened size, grows as it's built
	childStart := len(*m.buf)
	*m.buf = wire.PutUint32(*m.buf, Magic)
	*m.buf = wire.PutUint32(*m.buf, what)
	*m.buf = wire.PutUint32(*m.buf, 0)

	child := &Micro{
		buf:           m.buf,
		fieldCountOff: childStart + 8,
		parent:        m,
		parentSizeOff: sizeOff,
	}

	m.curFieldOff = recordStart
	m.curPayloadLen = payloadLenOff
	m.haveCur = true
	// The field's own payload length is 4 (size word) + child's current size.
	patchFieldPayloadLen(*m.buf, payloadLenOff, headerLen)

	m.sealChildIfAny()
	m.openChild = child
	m.incFieldCount()
	m.growAncestors(len(*m.buf) - recordStart)
	return child, status.Ok()
}

func patchFieldPayloadLen(buf []byte, payloadLenOff int, childSize uint32) {
	copy(buf[payloadLenOff:], wire.PutUint32(nil, 4+childSize))
}

// growAncestors walks the parent chain, adjusting each ancestor's child-size
// word and field-payload-length word by delta bytes, per spec §3/§4.3:
// "Size updates for in-place child messages walk a parent pointer chain and
// adjust each ancestor's length field."
func (m *Micro) growAncestors(delta int) {
	cur := m
	for cur.parent != nil {
		p := cur.parent
		newSize := wire.Uint32((*p.buf)[cur.parentSizeOff:]) + uint32(delta)
		copy((*p.buf)[cur.parentSizeOff:], wire.PutUint32(nil, newSize))
		patchFieldPayloadLen(*p.buf, p.curPayloadLen, newSize)
		cur = p
	}
}

// ---- read-only mode ----

// NewMicroReader wraps buf for random-access reads without copying or
// allocating, validating the magic number up front.
func NewMicroReader(buf []byte) (*Micro, status.Status) {
	if len(buf) < headerLen || wire.Uint32(buf) != Magic {
		return nil, status.New(status.LogicError)
	}
	b := buf
	return &Micro{buf: &b, readOnly: true}, status.Ok()
}

// What returns the message's What code.
func (m *Micro) What() uint32 { return wire.Uint32((*m.buf)[4:]) }

// FieldCount returns the number of field records.
func (m *Micro) FieldCount() int { return int(wire.Uint32((*m.buf)[8:])) }

// FindFieldRaw returns the type code and raw payload bytes of the named
// field, caching the lookup so a repeated query for the same name is O(1).
func (m *Micro) FindFieldRaw(name string) (TypeCode, []byte, status.Status) {
	if m.cacheValid && m.cacheName == name {
		return m.cacheTyp, m.cachePayload, status.Ok()
	}
	r := wire.NewReader((*m.buf)[headerLen:])
	n := m.FieldCount()
	for i := 0; i < n; i++ {
		nameLen, err := r.Uint32()
		if err != nil {
			return 0, nil, status.New(status.LogicError)
		}
		nameBytes, err := r.Bytes(int(nameLen))
		if err != nil {
			return 0, nil, status.New(status.LogicError)
		}
		fieldName := string(nameBytes[:len(nameBytes)-1])
		typ, err := r.Uint32()
		if err != nil {
			return 0, nil, status.New(status.LogicError)
		}
		payloadLen, err := r.Uint32()
		if err != nil {
			return 0, nil, status.New(status.LogicError)
		}
		payload, err := r.Bytes(int(payloadLen))
		if err != nil {
			return 0, nil, status.New(status.LogicError)
		}
		if fieldName == name {
			m.cacheName = name
			m.cacheTyp = TypeCode(typ)
			m.cachePayload = payload
			m.cacheValid = true
			return TypeCode(typ), payload, status.Ok()
		}
	}
	return 0, nil, status.New(status.DataNotFound)
}

// ToMessage decodes this (read-only) Micro into a regular, fully-materialized
// Message. This is the bridge used when a session wants to hand a decoded
// wire message to application callbacks without exposing the raw buffer.
func (m *Micro) ToMessage() (*Message, status.Status) {
	return Unflatten((*m.buf)[:m.totalFlattenedSize()])
}

// totalFlattenedSize recomputes the flattened length by walking all field
// records once (used only by ToMessage, which is not on the hot path).
func (m *Micro) totalFlattenedSize() int {
	r := wire.NewReader((*m.buf)[headerLen:])
	n := m.FieldCount()
	for i := 0; i < n; i++ {
		nameLen, err := r.Uint32()
		if err != nil {
			break
		}
		if _, err = r.Bytes(int(nameLen)); err != nil {
			break
		}
		if _, err = r.Uint32(); err != nil {
			break
		}
		payloadLen, err := r.Uint32()
		if err != nil {
			break
		}
		if _, err = r.Bytes(int(payloadLen)); err != nil {
			break
		}
	}
	return headerLen + r.Offset()
}
