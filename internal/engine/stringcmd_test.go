package engine_test

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSetNXOnAbsentAndPresentKey(t *testing.T) {
	e := newTestEngine(t)

	require.Equal(t, "OK", exec(t, e, "SET", "k", "v1", "NX").Simple)
	require.Equal(t, "v1", string(exec(t, e, "GET", "k").Bulk))

	require.True(t, exec(t, e, "SET", "k", "v2", "NX").IsNilBulk)
	require.Equal(t, "v1", string(exec(t, e, "GET", "k").Bulk))
}

func TestSetOverwritesExistingValueAndClearsOldTTL(t *testing.T) {
	e := newTestEngine(t)

	exec(t, e, "SET", "k", "v1", "PX", "100000")
	require.Equal(t, "OK", exec(t, e, "SET", "k", "v2").Simple)
	require.Equal(t, "v2", string(exec(t, e, "GET", "k").Bulk))
	require.Equal(t, int64(-1), exec(t, e, "TTL", "k").Integer)
}

func TestGetOnAbsentKey(t *testing.T) {
	e := newTestEngine(t)

	require.True(t, exec(t, e, "GET", "nope").IsNilBulk)
}

func TestGetDel(t *testing.T) {
	e := newTestEngine(t)

	require.True(t, exec(t, e, "GETDEL", "nope").IsNilBulk)

	exec(t, e, "SET", "k", "v")
	r := exec(t, e, "GETDEL", "k")
	require.Equal(t, "v", string(r.Bulk))
	require.Equal(t, int64(0), exec(t, e, "EXISTS", "k").Integer)
}

func TestIncrDecrOnAbsentKeyStartsFromZero(t *testing.T) {
	e := newTestEngine(t)

	require.Equal(t, int64(1), exec(t, e, "INCR", "k1").Integer)
	require.Equal(t, int64(-1), exec(t, e, "DECR", "k2").Integer)
}

func TestIncrByAndDecrBy(t *testing.T) {
	e := newTestEngine(t)

	require.Equal(t, int64(10), exec(t, e, "INCRBY", "k", "10").Integer)
	require.Equal(t, int64(4), exec(t, e, "DECRBY", "k", "6").Integer)
	require.Equal(t, int64(-1), exec(t, e, "DECRBY", "k", "5").Integer)
}

func TestIncrOnNonIntegerValue(t *testing.T) {
	e := newTestEngine(t)

	exec(t, e, "SET", "k", "notanumber")
	r := exec(t, e, "INCR", "k")
	require.True(t, r.IsError())
	require.Equal(t, "not-integer", r.ErrMsg)
}

func TestIncrOverflow(t *testing.T) {
	e := newTestEngine(t)

	exec(t, e, "SET", "k", "9223372036854775807")
	r := exec(t, e, "INCR", "k")
	require.True(t, r.IsError())
	require.Equal(t, "decrement-overflow", r.ErrMsg)
}

func TestDecrOverflow(t *testing.T) {
	e := newTestEngine(t)

	exec(t, e, "SET", "k", "-9223372036854775808")
	r := exec(t, e, "DECR", "k")
	require.True(t, r.IsError())
	require.Equal(t, "decrement-overflow", r.ErrMsg)
}

func TestDecrByMinInt64StepOverflow(t *testing.T) {
	e := newTestEngine(t)

	r := exec(t, e, "DECRBY", "k", "9223372036854775808")
	require.True(t, r.IsError())
	require.Equal(t, "decrement-overflow", r.ErrMsg)
}

func TestMSetAndMGet(t *testing.T) {
	e := newTestEngine(t)

	require.Equal(t, "OK", exec(t, e, "MSET", "a", "1", "b", "2", "c", "3").Simple)

	r := exec(t, e, "MGET", "a", "missing", "c")
	require.Len(t, r.Array, 3)
	require.Equal(t, "1", string(r.Array[0].Bulk))
	require.True(t, r.Array[1].IsNilBulk)
	require.Equal(t, "3", string(r.Array[2].Bulk))
}

func TestMGetSkipsWrongTypeKeyAsNil(t *testing.T) {
	e := newTestEngine(t)

	exec(t, e, "SADD", "notastring", "member")
	r := exec(t, e, "MGET", "notastring")
	require.True(t, r.Array[0].IsNilBulk)
}

func TestStrlen(t *testing.T) {
	e := newTestEngine(t)

	require.Equal(t, int64(0), exec(t, e, "STRLEN", "nope").Integer)
	exec(t, e, "SET", "k", "hello")
	require.Equal(t, int64(5), exec(t, e, "STRLEN", "k").Integer)
}
