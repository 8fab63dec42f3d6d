package version_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/duskdb/duskdb/internal/codec"
	"github.com/duskdb/duskdb/internal/dberrors"
	"github.com/duskdb/duskdb/internal/store"
	"github.com/duskdb/duskdb/internal/version"
)

func openTestStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(store.Config{InMemory: true})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestForNewNoGCRecordReturnsZero(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	v, err := store.ExecTxn(ctx, s, func(txn store.Txn) (uint16, error) {
		return version.ForNew(txn, []byte("k1"))
	})
	require.NoError(t, err)
	require.Equal(t, uint16(0), v)
}

func TestForNewRotatesPastGCRecord(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	_, err := store.ExecTxn(ctx, s, func(txn store.Txn) (struct{}, error) {
		return struct{}{}, txn.Put(store.CFGC, codec.GCKey([]byte("k1")), []byte{0x00, 0x05})
	})
	require.NoError(t, err)

	v, err := store.ExecTxn(ctx, s, func(txn store.Txn) (uint16, error) {
		return version.ForNew(txn, []byte("k1"))
	})
	require.NoError(t, err)
	require.Equal(t, uint16(6), v)
}

func TestForNewExhausted(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	_, err := store.ExecTxn(ctx, s, func(txn store.Txn) (struct{}, error) {
		if err := txn.Put(store.CFGC, codec.GCKey([]byte("k1")), []byte{0x00, 0x05}); err != nil {
			return struct{}{}, err
		}
		return struct{}{}, txn.Put(store.CFGCVersion, codec.GCVersionKey([]byte("k1"), 6), []byte{1})
	})
	require.NoError(t, err)

	_, err = store.ExecTxn(ctx, s, func(txn store.Txn) (uint16, error) {
		return version.ForNew(txn, []byte("k1"))
	})
	require.ErrorIs(t, err, dberrors.ErrVersionExhausted)
}
