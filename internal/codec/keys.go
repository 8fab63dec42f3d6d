package codec

import (
	"encoding/binary"
	"fmt"
)

// Every physical key's entity-specific suffix (the store package's CF byte
// is prepended separately) starts with a namespace tag, then the
// group-encoded user key. userTag is the only namespace in use today but
// keeps the layout self-describing: prefix || USER || enc(user_key) || ...
const userTag byte = 0x01

// metaMarker closes a Meta key: prefix || USER || enc(user_key) || META.
const metaMarker byte = 0xAA

// subMetaPlaceholder separates a sub-meta key's (key, version) prefix from
// its trailing shard id: ... || PLACEHOLDER || shard_id.
const subMetaPlaceholder byte = 0x00

func keyBase(userKey []byte) []byte {
	out := make([]byte, 0, 1+len(userKey)+len(userKey)/groupSize+2)
	out = append(out, userTag)
	out = append(out, EncodeUserKey(userKey)...)
	return out
}

func versionBytes(version uint16) []byte {
	buf := make([]byte, 2)
	binary.BigEndian.PutUint16(buf, version)
	return buf
}

// dataPrefix is "meta_prefix(user_key) || version(2B be)", the common
// prefix shared by every per-version data/sub-meta/score entity.
func dataPrefix(userKey []byte, version uint16) []byte {
	return append(keyBase(userKey), versionBytes(version)...)
}

// MetaKey builds the Meta record key for userKey.
func MetaKey(userKey []byte) []byte {
	return append(keyBase(userKey), metaMarker)
}

// DecodeMetaKey recovers the user key from a Meta CF key.
func DecodeMetaKey(metaKey []byte) ([]byte, error) {
	if len(metaKey) == 0 || metaKey[len(metaKey)-1] != metaMarker {
		return nil, fmt.Errorf("codec: not a meta key")
	}
	if len(metaKey) < 1 || metaKey[0] != userTag {
		return nil, fmt.Errorf("codec: meta key missing user tag")
	}
	userKey, rest, err := DecodeUserKey(metaKey[1 : len(metaKey)-1])
	if err != nil {
		return nil, err
	}
	if len(rest) != 0 {
		return nil, fmt.Errorf("codec: trailing bytes after meta key user key")
	}
	return userKey, nil
}

// MetaRange returns the half-open range spanning the entire Meta column
// family (used by KEYS and SCAN).
func MetaRange() (start, end []byte) {
	return PrefixRange([]byte{userTag})
}

// HashDataKey builds a hash field's data key.
func HashDataKey(userKey []byte, version uint16, field []byte) []byte {
	return append(dataPrefix(userKey, version), EncodeUserKey(field)...)
}

// HashDataRange returns the half-open range over all fields of (userKey, version).
func HashDataRange(userKey []byte, version uint16) (start, end []byte) {
	return PrefixRange(dataPrefix(userKey, version))
}

// DecodeHashField recovers the field name from a hash data key.
func DecodeHashField(userKey []byte, version uint16, dataKey []byte) ([]byte, error) {
	prefix := dataPrefix(userKey, version)
	if len(dataKey) < len(prefix) {
		return nil, fmt.Errorf("codec: hash data key too short")
	}
	field, rest, err := DecodeUserKey(dataKey[len(prefix):])
	if err != nil {
		return nil, err
	}
	if len(rest) != 0 {
		return nil, fmt.Errorf("codec: trailing bytes after hash field")
	}
	return field, nil
}

// ListDataKey builds a list element's data key for a u64 index.
func ListDataKey(userKey []byte, version uint16, index uint64) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, index)
	return append(dataPrefix(userKey, version), buf...)
}

// ListDataRange returns the half-open byte range corresponding to the
// index range [startIdx, endIdx).
func ListDataRange(userKey []byte, version uint16, startIdx, endIdx uint64) (start, end []byte) {
	prefix := dataPrefix(userKey, version)
	lo := make([]byte, 8)
	binary.BigEndian.PutUint64(lo, startIdx)
	hi := make([]byte, 8)
	binary.BigEndian.PutUint64(hi, endIdx)
	return append(append([]byte{}, prefix...), lo...), append(append([]byte{}, prefix...), hi...)
}

// ListDataFullRange returns the half-open range over all of (userKey, version)'s elements.
func ListDataFullRange(userKey []byte, version uint16) (start, end []byte) {
	return PrefixRange(dataPrefix(userKey, version))
}

// SetDataKey builds a set member's data key.
func SetDataKey(userKey []byte, version uint16, member []byte) []byte {
	return append(dataPrefix(userKey, version), EncodeUserKey(member)...)
}

// SetDataRange returns the half-open range over all members of (userKey, version).
func SetDataRange(userKey []byte, version uint16) (start, end []byte) {
	return PrefixRange(dataPrefix(userKey, version))
}

// DecodeSetMember recovers a member name from a set (or zset) data key.
func DecodeSetMember(userKey []byte, version uint16, dataKey []byte) ([]byte, error) {
	return DecodeHashField(userKey, version, dataKey) // identical layout
}

// ZSetDataKey builds a zset member's (member -> score) data key. The
// layout matches SetDataKey exactly; the value stored is the score.
func ZSetDataKey(userKey []byte, version uint16, member []byte) []byte {
	return SetDataKey(userKey, version, member)
}

// ZSetDataRange returns the half-open range over all of (userKey, version)'s
// member->score entries.
func ZSetDataRange(userKey []byte, version uint16) (start, end []byte) {
	return SetDataRange(userKey, version)
}

// ZSetScoreKey builds a zset's (score, member) -> member_bytes index key.
func ZSetScoreKey(userKey []byte, version uint16, scoreEnc []byte, member []byte) []byte {
	out := append(dataPrefix(userKey, version), scoreEnc...)
	return append(out, EncodeUserKey(member)...)
}

// ZSetScoreRange returns the half-open byte range [minScoreEnc, maxScoreEnc]
// translated to a half-open scan range over the score index: the caller is
// responsible for inclusive/exclusive semantics at the float level (leading
// '(' bound parsing); this helper returns the widest half-open range
// covering [minScoreEnc, maxScoreEnc] inclusive of both encoded endpoints by
// nudging the end one byte string upward.
func ZSetScoreRange(userKey []byte, version uint16, minScoreEnc, maxScoreEnc []byte) (start, end []byte) {
	prefix := dataPrefix(userKey, version)
	lo := append(append([]byte{}, prefix...), minScoreEnc...)
	hiPrefix := append(append([]byte{}, prefix...), maxScoreEnc...)
	hi := incrementBytes(hiPrefix)
	return lo, hi
}

// ZSetScoreFullRange returns the half-open range over the entire score index
// of (userKey, version).
func ZSetScoreFullRange(userKey []byte, version uint16) (start, end []byte) {
	return PrefixRange(dataPrefix(userKey, version))
}

// DecodeZSetScoreKey recovers the member from a score-index key, given the
// caller already knows userKey/version (it scanned this range to get here).
func DecodeZSetScoreKey(userKey []byte, version uint16, scoreKey []byte) (member []byte, err error) {
	prefix := dataPrefix(userKey, version)
	if len(scoreKey) < len(prefix)+8 {
		return nil, fmt.Errorf("codec: zset score key too short")
	}
	rest := scoreKey[len(prefix)+8:]
	member, trailing, err := DecodeUserKey(rest)
	if err != nil {
		return nil, err
	}
	if len(trailing) != 0 {
		return nil, fmt.Errorf("codec: trailing bytes after zset score key")
	}
	return member, nil
}

// ZSetScoreKeyScore recovers the encoded score embedded in a score-index
// key, right after (userKey, version)'s common prefix.
func ZSetScoreKeyScore(userKey []byte, version uint16, scoreKey []byte) (float64, error) {
	prefix := dataPrefix(userKey, version)
	if len(scoreKey) < len(prefix)+8 {
		return 0, fmt.Errorf("codec: zset score key too short")
	}
	return DecodeScore(scoreKey[len(prefix) : len(prefix)+8]), nil
}

// SubMetaKey builds a sub-meta shard counter key.
func SubMetaKey(userKey []byte, version uint16, shardID uint16) []byte {
	out := append(dataPrefix(userKey, version), subMetaPlaceholder)
	shardBuf := make([]byte, 2)
	binary.BigEndian.PutUint16(shardBuf, shardID)
	return append(out, shardBuf...)
}

// SubMetaRange returns the half-open range over all shards of (userKey, version).
func SubMetaRange(userKey []byte, version uint16) (start, end []byte) {
	return PrefixRange(append(dataPrefix(userKey, version), subMetaPlaceholder))
}

// GCKey builds the GC record key: userKey -> pending version.
func GCKey(userKey []byte) []byte {
	return keyBase(userKey)
}

// DecodeGCKey recovers the user key from a GC CF key.
func DecodeGCKey(gcKey []byte) ([]byte, error) {
	if len(gcKey) < 1 || gcKey[0] != userTag {
		return nil, fmt.Errorf("codec: gc key missing user tag")
	}
	userKey, rest, err := DecodeUserKey(gcKey[1:])
	if err != nil {
		return nil, err
	}
	if len(rest) != 0 {
		return nil, fmt.Errorf("codec: trailing bytes after gc key")
	}
	return userKey, nil
}

// GCVersionKey builds the GC-version record key: (userKey, version) -> type_tag.
func GCVersionKey(userKey []byte, version uint16) []byte {
	return append(keyBase(userKey), versionBytes(version)...)
}

// GCVersionRange returns the half-open range over the entire GC-version
// column family, ordered by user key then version: a single forward scan
// yields every outstanding reclamation in that order.
func GCVersionRange() (start, end []byte) {
	return PrefixRange([]byte{userTag})
}

// DecodeGCVersionKey recovers (userKey, version) from a GC-version CF key.
func DecodeGCVersionKey(key []byte) (userKey []byte, version uint16, err error) {
	if len(key) < 1 || key[0] != userTag {
		return nil, 0, fmt.Errorf("codec: gc-version key missing user tag")
	}
	userKey, rest, err := DecodeUserKey(key[1:])
	if err != nil {
		return nil, 0, err
	}
	if len(rest) != 2 {
		return nil, 0, fmt.Errorf("codec: gc-version key missing version suffix")
	}
	return userKey, binary.BigEndian.Uint16(rest), nil
}

// DecodeVersion reads a big-endian 2-byte version tag.
func DecodeVersion(buf []byte) uint16 {
	return binary.BigEndian.Uint16(buf)
}

// NextKey returns the smallest byte string strictly greater than key, for
// resuming a scan just past a previously-returned key (e.g. a SCAN cursor).
func NextKey(key []byte) []byte {
	return incrementBytes(key)
}

// MetaKeyScanStart returns the scan start position for SCAN's cursor
// convention: an empty cursor starts at the beginning of the Meta keyspace,
// otherwise resumes strictly after the given cursor key.
func MetaKeyScanStart(cursor []byte) []byte {
	if len(cursor) == 0 {
		start, _ := MetaRange()
		return start
	}
	return NextKey(cursor)
}

// PrefixRange returns the half-open range [prefix, upperBound(prefix)) that
// contains exactly the keys beginning with prefix. A nil end means
// "unbounded" (scan to the end of the column family); Store.Scan treats a
// nil end that way.
func PrefixRange(prefix []byte) (start, end []byte) {
	return prefix, incrementBytes(prefix)
}

// incrementBytes returns the lexicographically next byte string after every
// string with the given prefix: the smallest byte string greater than any
// string starting with prefix. Returns nil if prefix is all 0xFF bytes (or
// empty), meaning there is no finite upper bound.
func incrementBytes(prefix []byte) []byte {
	out := append([]byte(nil), prefix...)
	for i := len(out) - 1; i >= 0; i-- {
		if out[i] != 0xFF {
			out[i]++
			return out[:i+1]
		}
	}
	return nil
}
