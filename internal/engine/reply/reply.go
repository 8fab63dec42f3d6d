// Package reply defines the closed set of response shapes the core hands
// back to its RESP-framing collaborator (out of scope here): Simple,
// Error, Integer, Bulk, Array, Null.
package reply

// Kind tags which of the six reply shapes a Reply holds.
type Kind int

const (
	KindSimple Kind = iota
	KindError
	KindInteger
	KindBulk
	KindArray
	KindNull
)

// Reply is a single RESP-agnostic response value. A framing layer maps
// these onto wire bytes; the core never touches a socket.
type Reply struct {
	Kind    Kind
	Simple  string
	ErrMsg  string
	Integer int64
	Bulk    []byte
	IsNilBulk bool
	Array   []Reply
}

// Simple builds a "+OK"-style simple-status reply.
func Simple(s string) Reply { return Reply{Kind: KindSimple, Simple: s} }

// OK is the canonical simple-status reply most write commands return.
func OK() Reply { return Simple("OK") }

// Error builds an error reply from a message (conventionally one of the
// dberrors sentinel strings, possibly with added context).
func Error(msg string) Reply { return Reply{Kind: KindError, ErrMsg: msg} }

// Errorf builds an error reply from a Go error's message.
func Errorf(err error) Reply { return Error(err.Error()) }

// Integer builds an integer reply.
func Integer(v int64) Reply { return Reply{Kind: KindInteger, Integer: v} }

// Bulk builds a bulk-string reply from bytes.
func Bulk(b []byte) Reply { return Reply{Kind: KindBulk, Bulk: b} }

// BulkString builds a bulk-string reply from a Go string.
func BulkString(s string) Reply { return Bulk([]byte(s)) }

// NilBulk is a bulk reply representing Redis's nil bulk-string response
// (e.g. GET on a missing key).
func NilBulk() Reply { return Reply{Kind: KindBulk, IsNilBulk: true} }

// Array builds an array reply from a slice of replies.
func Array(items []Reply) Reply { return Reply{Kind: KindArray, Array: items} }

// BulkArray builds an array reply where every element is a bulk string.
func BulkArray(items [][]byte) Reply {
	out := make([]Reply, len(items))
	for i, it := range items {
		out[i] = Bulk(it)
	}
	return Array(out)
}

// Null is the RESP null reply (distinct from a nil bulk string in RESP3,
// used for e.g. a missing key in contexts that are not bulk-string shaped).
func Null() Reply { return Reply{Kind: KindNull} }

// IsError reports whether r is an error reply.
func (r Reply) IsError() bool { return r.Kind == KindError }
