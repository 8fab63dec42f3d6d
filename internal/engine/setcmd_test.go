package engine_test

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSMIsMember(t *testing.T) {
	e := newTestEngine(t)

	exec(t, e, "SADD", "s", "a", "b")
	r := exec(t, e, "SMISMEMBER", "s", "a", "x", "b")
	require.Len(t, r.Array, 3)
	require.Equal(t, int64(1), r.Array[0].Integer)
	require.Equal(t, int64(0), r.Array[1].Integer)
	require.Equal(t, int64(1), r.Array[2].Integer)
}

func TestSMIsMemberAbsentKey(t *testing.T) {
	e := newTestEngine(t)

	r := exec(t, e, "SMISMEMBER", "nope", "a", "b")
	require.Len(t, r.Array, 2)
	require.Equal(t, int64(0), r.Array[0].Integer)
	require.Equal(t, int64(0), r.Array[1].Integer)
}

func TestSMembers(t *testing.T) {
	e := newTestEngine(t)

	require.Empty(t, exec(t, e, "SMEMBERS", "nope").Array)
	exec(t, e, "SADD", "s", "a", "b", "c")
	require.ElementsMatch(t, []string{"a", "b", "c"}, bulkStrings(exec(t, e, "SMEMBERS", "s")))
}

func TestSPopWithoutCount(t *testing.T) {
	e := newTestEngine(t)

	require.True(t, exec(t, e, "SPOP", "nope").IsNilBulk)

	exec(t, e, "SADD", "s", "a")
	r := exec(t, e, "SPOP", "s")
	require.Equal(t, "a", string(r.Bulk))
	require.Equal(t, int64(0), exec(t, e, "EXISTS", "s").Integer)
}

func TestSPopWithCountDrainsKey(t *testing.T) {
	e := newTestEngine(t)

	exec(t, e, "SADD", "s", "a", "b", "c")
	r := exec(t, e, "SPOP", "s", "10")
	require.ElementsMatch(t, []string{"a", "b", "c"}, bulkStrings(r))
	require.Equal(t, int64(0), exec(t, e, "EXISTS", "s").Integer)

	require.Empty(t, exec(t, e, "SPOP", "nope", "3").Array)
}

func TestSPopZeroCountLeavesSetIntact(t *testing.T) {
	e := newTestEngine(t)

	exec(t, e, "SADD", "s", "a", "b")
	require.Empty(t, exec(t, e, "SPOP", "s", "0").Array)
	require.Equal(t, int64(2), exec(t, e, "SCARD", "s").Integer)
}

func TestSRandMemberNoCount(t *testing.T) {
	e := newTestEngine(t)

	require.True(t, exec(t, e, "SRANDMEMBER", "nope").IsNilBulk)

	exec(t, e, "SADD", "s", "a")
	require.Equal(t, "a", string(exec(t, e, "SRANDMEMBER", "s").Bulk))
	require.Equal(t, int64(1), exec(t, e, "SCARD", "s").Integer)
}

func TestSRandMemberPositiveCountNoRepeats(t *testing.T) {
	e := newTestEngine(t)

	exec(t, e, "SADD", "s", "a", "b", "c")
	r := exec(t, e, "SRANDMEMBER", "s", "2")
	require.Len(t, r.Array, 2)
	seen := map[string]bool{}
	for _, v := range bulkStrings(r) {
		require.False(t, seen[v])
		seen[v] = true
	}

	r = exec(t, e, "SRANDMEMBER", "s", "10")
	require.Len(t, r.Array, 3)
}

func TestSRandMemberNegativeCountAllowsRepeats(t *testing.T) {
	e := newTestEngine(t)

	exec(t, e, "SADD", "s", "a")
	r := exec(t, e, "SRANDMEMBER", "s", "-5")
	require.Len(t, r.Array, 5)
	for _, v := range bulkStrings(r) {
		require.Equal(t, "a", v)
	}
}

func TestSRandMemberZeroCount(t *testing.T) {
	e := newTestEngine(t)

	exec(t, e, "SADD", "s", "a")
	require.Empty(t, exec(t, e, "SRANDMEMBER", "s", "0").Array)
}
