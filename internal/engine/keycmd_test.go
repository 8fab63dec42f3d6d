package engine_test

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDelMultiKey(t *testing.T) {
	e := newTestEngine(t)

	exec(t, e, "SET", "a", "1")
	exec(t, e, "SET", "b", "2")
	require.Equal(t, int64(2), exec(t, e, "DEL", "a", "b", "missing").Integer)
	require.Equal(t, int64(0), exec(t, e, "EXISTS", "a").Integer)
}

func TestExistsMultiKeyCountsEachOccurrence(t *testing.T) {
	e := newTestEngine(t)

	exec(t, e, "SET", "a", "1")
	require.Equal(t, int64(3), exec(t, e, "EXISTS", "a", "a", "missing", "a").Integer)
}

func TestTypeReportsEachKind(t *testing.T) {
	e := newTestEngine(t)

	require.Equal(t, "none", exec(t, e, "TYPE", "missing").Simple)

	exec(t, e, "SET", "s", "v")
	require.Equal(t, "string", exec(t, e, "TYPE", "s").Simple)

	exec(t, e, "HSET", "h", "f", "v")
	require.Equal(t, "hash", exec(t, e, "TYPE", "h").Simple)

	exec(t, e, "RPUSH", "l", "v")
	require.Equal(t, "list", exec(t, e, "TYPE", "l").Simple)

	exec(t, e, "SADD", "st", "v")
	require.Equal(t, "set", exec(t, e, "TYPE", "st").Simple)

	exec(t, e, "ZADD", "z", "1", "v")
	require.Equal(t, "zset", exec(t, e, "TYPE", "z").Simple)
}

func TestTTLAndPTTLAbsentAndNoExpiry(t *testing.T) {
	e := newTestEngine(t)

	require.Equal(t, int64(-2), exec(t, e, "TTL", "missing").Integer)
	require.Equal(t, int64(-2), exec(t, e, "PTTL", "missing").Integer)

	exec(t, e, "SET", "k", "v")
	require.Equal(t, int64(-1), exec(t, e, "TTL", "k").Integer)
	require.Equal(t, int64(-1), exec(t, e, "PTTL", "k").Integer)
}

func TestTTLReflectsExpiry(t *testing.T) {
	e := newTestEngine(t)

	exec(t, e, "SET", "k", "v", "EX", "100")
	ttl := exec(t, e, "TTL", "k").Integer
	require.True(t, ttl > 0 && ttl <= 100)

	pttl := exec(t, e, "PTTL", "k").Integer
	require.True(t, pttl > 0 && pttl <= 100000)
}

func TestExpireFamilySetsDeadline(t *testing.T) {
	e := newTestEngine(t)

	require.Equal(t, int64(0), exec(t, e, "EXPIRE", "missing", "10").Integer)

	exec(t, e, "SET", "k", "v")
	require.Equal(t, int64(1), exec(t, e, "EXPIRE", "k", "100").Integer)
	ttl := exec(t, e, "TTL", "k").Integer
	require.True(t, ttl > 0 && ttl <= 100)

	require.Equal(t, int64(1), exec(t, e, "PEXPIRE", "k", "50000").Integer)
	pttl := exec(t, e, "PTTL", "k").Integer
	require.True(t, pttl > 0 && pttl <= 50000)
}

func TestExpireAtInThePastDeletesKey(t *testing.T) {
	e := newTestEngine(t)

	exec(t, e, "SET", "k", "v")
	exec(t, e, "EXPIREAT", "k", "1")
	require.Equal(t, int64(0), exec(t, e, "EXISTS", "k").Integer)
}

func TestPExpireAtInThePastDeletesKey(t *testing.T) {
	e := newTestEngine(t)

	exec(t, e, "SET", "k", "v")
	exec(t, e, "PEXPIREAT", "k", "1")
	require.Equal(t, int64(0), exec(t, e, "EXISTS", "k").Integer)
}

func TestKeysMatchesPattern(t *testing.T) {
	e := newTestEngine(t)

	exec(t, e, "SET", "foo", "1")
	exec(t, e, "SET", "foobar", "2")
	exec(t, e, "SET", "baz", "3")

	got := bulkStrings(exec(t, e, "KEYS", "foo.*"))
	require.ElementsMatch(t, []string{"foo", "foobar"}, got)
}

func TestKeysSkipsExpiredEntries(t *testing.T) {
	e := newTestEngine(t)

	exec(t, e, "SET", "k", "v", "PX", "1")
	exec(t, e, "EXPIRE", "k", "-100")
	got := bulkStrings(exec(t, e, "KEYS", ".*"))
	require.NotContains(t, got, "k")
}

func TestScanCoversAllKeysAcrossMultipleCalls(t *testing.T) {
	e := newTestEngine(t)

	want := []string{"a", "b", "c", "d", "e"}
	for _, k := range want {
		exec(t, e, "SET", k, "v")
	}

	var seen []string
	cursor := ""
	for i := 0; i < 20; i++ {
		r := exec(t, e, "SCAN", cursor, "COUNT", "2")
		require.Len(t, r.Array, 2)
		seen = append(seen, bulkStrings(r.Array[1])...)
		cursor = string(r.Array[0].Bulk)
		if cursor == "" {
			break
		}
	}

	require.ElementsMatch(t, want, seen)
}

func TestScanWithMatchFiltersResults(t *testing.T) {
	e := newTestEngine(t)

	exec(t, e, "SET", "user:1", "a")
	exec(t, e, "SET", "user:2", "b")
	exec(t, e, "SET", "order:1", "c")

	var seen []string
	cursor := ""
	for i := 0; i < 20; i++ {
		r := exec(t, e, "SCAN", cursor, "MATCH", "user:.*", "COUNT", "10")
		seen = append(seen, bulkStrings(r.Array[1])...)
		cursor = string(r.Array[0].Bulk)
		if cursor == "" {
			break
		}
	}

	require.ElementsMatch(t, []string{"user:1", "user:2"}, seen)
}

func TestScanRejectsNonPositiveCount(t *testing.T) {
	e := newTestEngine(t)

	r := exec(t, e, "SCAN", "", "COUNT", "0")
	require.True(t, r.IsError())

	r = exec(t, e, "SCAN", "", "COUNT", "-1")
	require.True(t, r.IsError())
}
