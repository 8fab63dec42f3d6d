// Package metarecord implements the per-key Meta record: the header every
// command consults first, carrying the type tag, TTL deadline, version, and
// any small type-specific state (the list engine's left/right bounds, or a
// string value small enough to embed directly in the Meta record).
package metarecord

import (
	"encoding/binary"
	"fmt"
)

// TypeTag identifies which of the five Redis data types a key holds.
type TypeTag uint8

const (
	// TypeNone is never persisted; it is the zero value used in-memory to
	// represent "no Meta record" (an absent or expired key).
	TypeNone TypeTag = 0

	TypeString TypeTag = 1
	TypeHash   TypeTag = 2
	TypeList   TypeTag = 3
	TypeSet    TypeTag = 4
	TypeZSet   TypeTag = 5
)

// String returns the lowercase name TYPE returns for this tag.
func (t TypeTag) String() string {
	switch t {
	case TypeString:
		return "string"
	case TypeHash:
		return "hash"
	case TypeList:
		return "list"
	case TypeSet:
		return "set"
	case TypeZSet:
		return "zset"
	default:
		return "none"
	}
}

// ListMidpoint is the starting left==right bound for a freshly created
// list, giving headroom to push in either direction without a negative
// index.
const ListMidpoint uint64 = 1 << 32

// Meta is the decoded form of a Meta record's value.
type Meta struct {
	Type    TypeTag
	TTLMs   int64 // absolute deadline in epoch milliseconds; 0 = no expiry
	Version uint16

	// StringValue holds the embedded value for TypeString.
	StringValue []byte
	// ListLeft/ListRight hold the current bounds for TypeList.
	ListLeft  uint64
	ListRight uint64
}

// NewList returns a fresh list Meta with default bounds.
func NewList(version uint16, ttlMs int64) Meta {
	return Meta{Type: TypeList, TTLMs: ttlMs, Version: version, ListLeft: ListMidpoint, ListRight: ListMidpoint}
}

// Len returns the list's current length (right - left). Only meaningful
// for TypeList.
func (m Meta) Len() int64 {
	return int64(m.ListRight - m.ListLeft)
}

// Encode serializes m as "type_tag u8 || ttl_ms i64 be || version u16 be"
// plus type-specific extra bytes (list's bounds, or the string's embedded
// value).
func (m Meta) Encode() []byte {
	buf := make([]byte, 0, 11+len(m.StringValue))
	buf = append(buf, byte(m.Type))

	ttlBuf := make([]byte, 8)
	binary.BigEndian.PutUint64(ttlBuf, uint64(m.TTLMs))
	buf = append(buf, ttlBuf...)

	verBuf := make([]byte, 2)
	binary.BigEndian.PutUint16(verBuf, m.Version)
	buf = append(buf, verBuf...)

	switch m.Type {
	case TypeList:
		extra := make([]byte, 16)
		binary.BigEndian.PutUint64(extra[0:8], m.ListLeft)
		binary.BigEndian.PutUint64(extra[8:16], m.ListRight)
		buf = append(buf, extra...)
	case TypeString:
		buf = append(buf, m.StringValue...)
	}

	return buf
}

// Decode parses a Meta record value as written by Encode.
func Decode(buf []byte) (Meta, error) {
	if len(buf) < 11 {
		return Meta{}, fmt.Errorf("metarecord: truncated meta value (%d bytes)", len(buf))
	}

	m := Meta{
		Type:    TypeTag(buf[0]),
		TTLMs:   int64(binary.BigEndian.Uint64(buf[1:9])),
		Version: binary.BigEndian.Uint16(buf[9:11]),
	}

	extra := buf[11:]
	switch m.Type {
	case TypeList:
		if len(extra) < 16 {
			return Meta{}, fmt.Errorf("metarecord: truncated list meta extra (%d bytes)", len(extra))
		}
		m.ListLeft = binary.BigEndian.Uint64(extra[0:8])
		m.ListRight = binary.BigEndian.Uint64(extra[8:16])
	case TypeString:
		m.StringValue = append([]byte(nil), extra...)
	}

	return m, nil
}
