package engine_test

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestZRank(t *testing.T) {
	e := newTestEngine(t)

	exec(t, e, "ZADD", "z", "1", "a", "2", "b", "3", "c")
	require.Equal(t, int64(0), exec(t, e, "ZRANK", "z", "a").Integer)
	require.Equal(t, int64(2), exec(t, e, "ZRANK", "z", "c").Integer)
	require.True(t, exec(t, e, "ZRANK", "z", "missing").IsNilBulk)
	require.True(t, exec(t, e, "ZRANK", "nope", "a").IsNilBulk)
}

func TestZCount(t *testing.T) {
	e := newTestEngine(t)

	exec(t, e, "ZADD", "z", "1", "a", "2", "b", "3", "c", "4", "d")
	require.Equal(t, int64(2), exec(t, e, "ZCOUNT", "z", "2", "3").Integer)
	require.Equal(t, int64(1), exec(t, e, "ZCOUNT", "z", "(2", "3").Integer)
	require.Equal(t, int64(4), exec(t, e, "ZCOUNT", "z", "-inf", "+inf").Integer)
	require.Equal(t, int64(0), exec(t, e, "ZCOUNT", "nope", "0", "10").Integer)
}

func TestZPopMinMax(t *testing.T) {
	e := newTestEngine(t)

	exec(t, e, "ZADD", "z", "1", "a", "2", "b", "3", "c")

	r := exec(t, e, "ZPOPMIN", "z")
	require.Equal(t, []string{"a", "1"}, bulkStrings(r))

	r = exec(t, e, "ZPOPMAX", "z", "2")
	require.Equal(t, []string{"c", "3", "b", "2"}, bulkStrings(r))

	require.Equal(t, int64(0), exec(t, e, "EXISTS", "z").Integer)
	require.Empty(t, exec(t, e, "ZPOPMIN", "nope").Array)
}

func TestZRem(t *testing.T) {
	e := newTestEngine(t)

	exec(t, e, "ZADD", "z", "1", "a", "2", "b")
	require.Equal(t, int64(1), exec(t, e, "ZREM", "z", "a", "missing").Integer)
	require.Equal(t, int64(1), exec(t, e, "ZCARD", "z").Integer)
	require.Equal(t, int64(1), exec(t, e, "ZREM", "z", "b").Integer)
	require.Equal(t, int64(0), exec(t, e, "EXISTS", "z").Integer)
}

func TestZRemRangeByRank(t *testing.T) {
	e := newTestEngine(t)

	exec(t, e, "ZADD", "z", "1", "a", "2", "b", "3", "c", "4", "d")
	require.Equal(t, int64(2), exec(t, e, "ZREMRANGEBYRANK", "z", "0", "1").Integer)
	require.Equal(t, []string{"c", "d"}, bulkStrings(exec(t, e, "ZRANGE", "z", "0", "-1")))
}

func TestZRemRangeByScore(t *testing.T) {
	e := newTestEngine(t)

	exec(t, e, "ZADD", "z", "1", "a", "2", "b", "3", "c", "4", "d")
	require.Equal(t, int64(2), exec(t, e, "ZREMRANGEBYSCORE", "z", "2", "3").Integer)
	require.Equal(t, []string{"a", "d"}, bulkStrings(exec(t, e, "ZRANGE", "z", "0", "-1")))
}

func TestZIncrBy(t *testing.T) {
	e := newTestEngine(t)

	require.Equal(t, "5", string(exec(t, e, "ZINCRBY", "z", "5", "a").Bulk))
	require.Equal(t, "8", string(exec(t, e, "ZINCRBY", "z", "3", "a").Bulk))
	require.Equal(t, "8", string(exec(t, e, "ZSCORE", "z", "a").Bulk))
}

func TestZRevRangeAndRevRangeByScore(t *testing.T) {
	e := newTestEngine(t)

	exec(t, e, "ZADD", "z", "1", "a", "2", "b", "3", "c")
	require.Equal(t, []string{"c", "b", "a"}, bulkStrings(exec(t, e, "ZREVRANGE", "z", "0", "-1")))
	require.Equal(t, []string{"b", "a"}, bulkStrings(exec(t, e, "ZREVRANGE", "z", "1", "2")))
	require.Equal(t, []string{"c", "b"}, bulkStrings(exec(t, e, "ZREVRANGEBYSCORE", "z", "3", "2")))
}

func TestZRangeWithScores(t *testing.T) {
	e := newTestEngine(t)

	exec(t, e, "ZADD", "z", "1", "a", "2", "b")
	r := exec(t, e, "ZRANGE", "z", "0", "-1", "WITHSCORES")
	require.Equal(t, []string{"a", "1", "b", "2"}, bulkStrings(r))
}

// TestZSetMemberScoreConsistency checks that every member visible through
// ZRANGE reports the same score via ZSCORE as it does in ZRANGE WITHSCORES,
// i.e. the member->score and (score,member) indices never disagree.
func TestZSetMemberScoreConsistency(t *testing.T) {
	e := newTestEngine(t)

	exec(t, e, "ZADD", "z", "3.5", "a", "-1.25", "b", "0", "c", "100", "d")

	withScores := bulkStrings(exec(t, e, "ZRANGE", "z", "0", "-1", "WITHSCORES"))
	require.Len(t, withScores, 8)
	for i := 0; i < len(withScores); i += 2 {
		member := withScores[i]
		score := withScores[i+1]
		require.Equal(t, score, string(exec(t, e, "ZSCORE", "z", member).Bulk))
	}
}
