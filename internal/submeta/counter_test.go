package submeta_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/duskdb/duskdb/internal/store"
	"github.com/duskdb/duskdb/internal/submeta"
)

func openTestStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(store.Config{InMemory: true})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestAddAndTotal(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	picker := submeta.NewPicker()

	_, err := store.ExecTxn(ctx, s, func(txn store.Txn) (struct{}, error) {
		for i := 0; i < 10; i++ {
			shard := picker.Next(4)
			if err := submeta.Add(txn, store.CFSetSubMeta, []byte("s"), 0, shard, 1); err != nil {
				return struct{}{}, err
			}
		}
		return struct{}{}, nil
	})
	require.NoError(t, err)

	total, err := store.ExecTxn(ctx, s, func(txn store.Txn) (int64, error) {
		return submeta.Total(txn, store.CFSetSubMeta, []byte("s"), 0)
	})
	require.NoError(t, err)
	require.Equal(t, int64(10), total)
}

func TestDecrementAndDeleteAll(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	_, err := store.ExecTxn(ctx, s, func(txn store.Txn) (struct{}, error) {
		if err := submeta.Add(txn, store.CFSetSubMeta, []byte("s"), 0, 3, 5); err != nil {
			return struct{}{}, err
		}
		return struct{}{}, submeta.Add(txn, store.CFSetSubMeta, []byte("s"), 0, 3, -2)
	})
	require.NoError(t, err)

	total, err := store.ExecTxn(ctx, s, func(txn store.Txn) (int64, error) {
		return submeta.Total(txn, store.CFSetSubMeta, []byte("s"), 0)
	})
	require.NoError(t, err)
	require.Equal(t, int64(3), total)

	_, err = store.ExecTxn(ctx, s, func(txn store.Txn) (struct{}, error) {
		return struct{}{}, submeta.DeleteAll(txn, store.CFSetSubMeta, []byte("s"), 0)
	})
	require.NoError(t, err)

	total, err = store.ExecTxn(ctx, s, func(txn store.Txn) (int64, error) {
		return submeta.Total(txn, store.CFSetSubMeta, []byte("s"), 0)
	})
	require.NoError(t, err)
	require.Equal(t, int64(0), total)
}
