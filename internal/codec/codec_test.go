package codec

import (
	"bytes"
	"math"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserKeyRoundTrip(t *testing.T) {
	cases := [][]byte{
		[]byte(""),
		[]byte("a"),
		[]byte("abcdefgh"),
		[]byte("abcdefghi"),
		[]byte("0123456789012345678901"),
		bytes.Repeat([]byte{0xFF}, 8),
		[]byte{0x00, 0x00, 0x00},
	}

	for _, c := range cases {
		enc := EncodeUserKey(c)
		dec, rest, err := DecodeUserKey(enc)
		require.NoError(t, err)
		assert.Empty(t, rest)
		assert.Equal(t, c, dec)
	}
}

func TestUserKeyOrderPreserving(t *testing.T) {
	keys := [][]byte{
		[]byte(""),
		[]byte("a"),
		[]byte("aa"),
		[]byte("ab"),
		[]byte("abcdefgh"),
		[]byte("abcdefghi"),
		[]byte("abcdefghij"),
		[]byte("b"),
		[]byte("zzzzzzzz"),
	}

	sorted := make([][]byte, len(keys))
	copy(sorted, keys)
	sort.Slice(sorted, func(i, j int) bool { return bytes.Compare(sorted[i], sorted[j]) < 0 })

	encoded := make([][]byte, len(sorted))
	for i, k := range sorted {
		encoded[i] = EncodeUserKey(k)
	}

	for i := 1; i < len(encoded); i++ {
		assert.True(t, bytes.Compare(encoded[i-1], encoded[i]) < 0,
			"encode(%q) should sort before encode(%q)", sorted[i-1], sorted[i])
	}
}

func TestScoreEncodingMonotone(t *testing.T) {
	scores := []float64{
		math.Inf(-1), -1e300, -100.5, -1, -0.0001, 0, 0.0001, 1, 100.5, 1e300, math.Inf(1),
	}

	for i := 1; i < len(scores); i++ {
		lo := EncodeScore(scores[i-1])
		hi := EncodeScore(scores[i])
		assert.True(t, bytes.Compare(lo, hi) < 0,
			"encode(%v) should sort before encode(%v)", scores[i-1], scores[i])
	}
}

func TestScoreRoundTrip(t *testing.T) {
	for _, s := range []float64{0, -0.0, 1, -1, 3.14159, -3.14159, math.Inf(1), math.Inf(-1)} {
		enc := EncodeScore(s)
		assert.Equal(t, s, DecodeScore(enc))
	}
}

func TestKeyLayouts(t *testing.T) {
	userKey := []byte("mykey")

	meta := MetaKey(userKey)
	decoded, err := DecodeMetaKey(meta)
	require.NoError(t, err)
	assert.Equal(t, userKey, decoded)

	hashKey := HashDataKey(userKey, 3, []byte("field1"))
	field, err := DecodeHashField(userKey, 3, hashKey)
	require.NoError(t, err)
	assert.Equal(t, []byte("field1"), field)

	start, end := HashDataRange(userKey, 3)
	assert.True(t, bytes.Compare(start, hashKey) <= 0)
	assert.True(t, end == nil || bytes.Compare(hashKey, end) < 0)

	gcvKey := GCVersionKey(userKey, 7)
	gotKey, gotVersion, err := DecodeGCVersionKey(gcvKey)
	require.NoError(t, err)
	assert.Equal(t, userKey, gotKey)
	assert.Equal(t, uint16(7), gotVersion)
}

func TestPrefixRangeBoundary(t *testing.T) {
	start, end := PrefixRange([]byte{0x01, 0x02})
	assert.Equal(t, []byte{0x01, 0x02}, start)
	assert.Equal(t, []byte{0x01, 0x03}, end)

	// all-0xFF prefix has no finite upper bound
	_, end2 := PrefixRange([]byte{0xFF, 0xFF})
	assert.Nil(t, end2)
}
