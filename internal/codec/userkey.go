// Package codec implements the deterministic, order-preserving byte
// encoding for every logical key and value DuskDB stores: the fixed
// 8-byte-group user-key escape, the per-entity key layouts (meta, hash/
// list/set/zset data, zset score, sub-meta, GC, GC-version), and the
// sortable IEEE-754 score encoding. None of this has a third-party library
// equivalent in the retrieval pack — it is a from-scratch deterministic
// byte-layout routine, built on stdlib encoding/binary and bytes.
package codec

import "fmt"

const (
	groupSize  = 8
	markerByte = 0xFF
)

// EncodeUserKey escapes an arbitrary byte string into fixed 8-byte groups
// each followed by a marker byte. A full (unpadded) group is followed by
// markerByte; the final, possibly short, group is zero-padded and followed
// by markerByte-pad, where pad is the number of padding bytes added. This
// preserves the lexicographic order of the raw input and is unambiguous to
// decode, since only the last group's marker byte differs from markerByte.
func EncodeUserKey(key []byte) []byte {
	out := make([]byte, 0, (len(key)/groupSize+1)*(groupSize+1))

	i := 0
	for {
		remain := len(key) - i
		if remain >= groupSize {
			out = append(out, key[i:i+groupSize]...)
			out = append(out, markerByte)
			i += groupSize
			continue
		}

		var group [groupSize]byte
		copy(group[:], key[i:])
		pad := groupSize - remain
		out = append(out, group[:]...)
		out = append(out, byte(markerByte-pad))
		break
	}

	return out
}

// DecodeUserKey reverses EncodeUserKey, reading groups from the front of
// enc until it consumes a short (padded) group. It returns the decoded key
// and the remaining, undecoded suffix of enc (so callers can chain further
// fields, such as a version tag, immediately after a user key).
func DecodeUserKey(enc []byte) (key, rest []byte, err error) {
	for {
		if len(enc) < groupSize+1 {
			return nil, nil, fmt.Errorf("codec: truncated user-key group (%d bytes left)", len(enc))
		}

		group := enc[:groupSize]
		marker := enc[groupSize]
		enc = enc[groupSize+1:]

		if marker == markerByte {
			key = append(key, group...)
			continue
		}

		pad := markerByte - int(marker)
		if pad < 0 || pad > groupSize {
			return nil, nil, fmt.Errorf("codec: invalid user-key marker byte %#x", marker)
		}
		n := groupSize - pad
		key = append(key, group[:n]...)
		return key, enc, nil
	}
}
