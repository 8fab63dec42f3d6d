package engine_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/duskdb/duskdb/internal/config"
	"github.com/duskdb/duskdb/internal/engine"
	"github.com/duskdb/duskdb/internal/engine/reply"
	"github.com/duskdb/duskdb/internal/logging"
	"github.com/duskdb/duskdb/internal/store"
)

func newTestEngine(t *testing.T) *engine.Engine {
	t.Helper()
	s, err := store.Open(store.Config{InMemory: true})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return engine.New(s, config.Default(), logging.NewDiscard())
}

// exec runs one command through the dispatcher, given plain Go strings for
// the command name and arguments.
func exec(t *testing.T, e *engine.Engine, parts ...string) reply.Reply {
	t.Helper()
	args := make([][]byte, len(parts))
	for i, p := range parts {
		args[i] = []byte(p)
	}
	return e.Execute(context.Background(), args)
}

func bulkStrings(r reply.Reply) []string {
	out := make([]string, len(r.Array))
	for i, item := range r.Array {
		out[i] = string(item.Bulk)
	}
	return out
}

// TestScenarioS1Expiry: SET ... EX/PX leaves the key present before the
// deadline, absent after it, and EXISTS reporting 0 once expired.
func TestScenarioS1Expiry(t *testing.T) {
	e := newTestEngine(t)

	require.Equal(t, reply.OK(), exec(t, e, "SET", "foo", "bar", "PX", "150"))

	r := exec(t, e, "GET", "foo")
	require.Equal(t, "bar", string(r.Bulk))

	time.Sleep(250 * time.Millisecond)

	r = exec(t, e, "GET", "foo")
	require.True(t, r.IsNilBulk)

	r = exec(t, e, "EXISTS", "foo")
	require.Equal(t, int64(0), r.Integer)
}

// TestScenarioS2Set exercises SADD/SCARD/SREM/SISMEMBER end to end.
func TestScenarioS2Set(t *testing.T) {
	e := newTestEngine(t)

	require.Equal(t, int64(3), exec(t, e, "SADD", "s", "a", "b", "c", "a").Integer)
	require.Equal(t, int64(3), exec(t, e, "SCARD", "s").Integer)
	require.Equal(t, int64(1), exec(t, e, "SREM", "s", "a", "x").Integer)
	require.Equal(t, int64(2), exec(t, e, "SCARD", "s").Integer)
	require.Equal(t, int64(0), exec(t, e, "SISMEMBER", "s", "a").Integer)
	require.Equal(t, int64(1), exec(t, e, "SISMEMBER", "s", "b").Integer)
}

// TestScenarioS3List exercises RPUSH/LPUSH/LRANGE/LTRIM end to end.
func TestScenarioS3List(t *testing.T) {
	e := newTestEngine(t)

	require.Equal(t, int64(3), exec(t, e, "RPUSH", "l", "1", "2", "3").Integer)
	require.Equal(t, int64(4), exec(t, e, "LPUSH", "l", "0").Integer)
	require.Equal(t, []string{"0", "1", "2", "3"}, bulkStrings(exec(t, e, "LRANGE", "l", "0", "-1")))
	require.Equal(t, reply.OK(), exec(t, e, "LTRIM", "l", "1", "2"))
	require.Equal(t, []string{"1", "2"}, bulkStrings(exec(t, e, "LRANGE", "l", "0", "-1")))
}

// TestScenarioS4ZSet exercises ZADD/ZSCORE/ZRANGEBYSCORE with inclusive
// and exclusive bounds.
func TestScenarioS4ZSet(t *testing.T) {
	e := newTestEngine(t)

	require.Equal(t, int64(3), exec(t, e, "ZADD", "z", "1", "a", "2", "b", "3", "c").Integer)
	require.Equal(t, int64(1), exec(t, e, "ZADD", "z", "XX", "CH", "5", "a").Integer)
	require.Equal(t, "5", string(exec(t, e, "ZSCORE", "z", "a").Bulk))
	require.Equal(t, []string{"b", "c", "a"}, bulkStrings(exec(t, e, "ZRANGEBYSCORE", "z", "2", "5")))
	require.Equal(t, []string{"c", "a"}, bulkStrings(exec(t, e, "ZRANGEBYSCORE", "z", "(2", "5")))
}

// TestScenarioS5Hash exercises HSET/HGETALL/HINCRBY/TYPE, and a
// type-exclusivity check (GET against a hash key is wrong-type).
func TestScenarioS5Hash(t *testing.T) {
	e := newTestEngine(t)

	require.Equal(t, int64(2), exec(t, e, "HSET", "h", "f1", "v1", "f2", "v2").Integer)
	require.Equal(t, []string{"f1", "v1", "f2", "v2"}, bulkStrings(exec(t, e, "HGETALL", "h")))
	require.Equal(t, int64(10), exec(t, e, "HINCRBY", "h", "n", "10").Integer)
	require.Equal(t, int64(6), exec(t, e, "HINCRBY", "h", "n", "-4").Integer)
	require.Equal(t, "hash", exec(t, e, "TYPE", "h").Simple)

	r := exec(t, e, "GET", "h")
	require.True(t, r.IsError())
	require.Equal(t, "wrong-type", r.ErrMsg)
}

// TestScenarioS6DecrementOverflow: DECRBY by exactly 2^63 is rejected
// without mutating the stored value.
func TestScenarioS6DecrementOverflow(t *testing.T) {
	e := newTestEngine(t)

	require.Equal(t, reply.OK(), exec(t, e, "SET", "k", "100"))
	r := exec(t, e, "DECRBY", "k", "9223372036854775808")
	require.True(t, r.IsError())
	require.Equal(t, "decrement-overflow", r.ErrMsg)
	require.Equal(t, "100", string(exec(t, e, "GET", "k").Bulk))
}

// TestCardinalityLawHash: HLEN tracks HSET/HDEL exactly, matching the
// number of distinct fields observed.
func TestCardinalityLawHash(t *testing.T) {
	e := newTestEngine(t)

	exec(t, e, "HSET", "h", "a", "1", "b", "2", "c", "3")
	require.Equal(t, int64(3), exec(t, e, "HLEN", "h").Integer)
	exec(t, e, "HDEL", "h", "a")
	require.Equal(t, int64(2), exec(t, e, "HLEN", "h").Integer)
	require.Equal(t, int64(2), int64(len(bulkStrings(exec(t, e, "HKEYS", "h")))))
}

// TestVersionMonotonicity: repeatedly deleting and recreating a small hash
// key never wedges a fresh write behind stale GC bookkeeping. A key this
// small is deleted synchronously and leaves no GC record, so each
// recreation is allocated version 0 again.
func TestVersionMonotonicity(t *testing.T) {
	e := newTestEngine(t)

	for i := 0; i < 5; i++ {
		exec(t, e, "HSET", "churn", "f", "v")
		require.Equal(t, int64(1), exec(t, e, "DEL", "churn").Integer)
	}
	require.Equal(t, int64(1), exec(t, e, "HSET", "churn", "f", "v").Integer)
	require.Equal(t, int64(1), exec(t, e, "HLEN", "churn").Integer)
}

// TestTypeExclusivity: a key created as one type cannot be read back
// through a different type engine without deleting it first.
func TestTypeExclusivity(t *testing.T) {
	e := newTestEngine(t)

	exec(t, e, "SADD", "x", "m1")
	r := exec(t, e, "LPUSH", "x", "v")
	require.True(t, r.IsError())
	require.Equal(t, "wrong-type", r.ErrMsg)

	require.Equal(t, int64(1), exec(t, e, "DEL", "x").Integer)
	require.Equal(t, int64(1), exec(t, e, "LPUSH", "x", "v").Integer)
}

// TestUnknownCommand confirms an unrecognized command name produces the
// dedicated unknown-command error rather than a crash.
func TestUnknownCommand(t *testing.T) {
	e := newTestEngine(t)
	r := exec(t, e, "NOTACOMMAND", "x")
	require.True(t, r.IsError())
	require.Equal(t, "unknown command", r.ErrMsg)
}
