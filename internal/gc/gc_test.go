package gc_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/duskdb/duskdb/internal/codec"
	"github.com/duskdb/duskdb/internal/config"
	"github.com/duskdb/duskdb/internal/engine"
	"github.com/duskdb/duskdb/internal/gc"
	"github.com/duskdb/duskdb/internal/logging"
	"github.com/duskdb/duskdb/internal/metarecord"
	"github.com/duskdb/duskdb/internal/store"
)

func openTestStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(store.Config{InMemory: true})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

// seedPendingReclaim seeds a GC + GC-version pair directly, plus one hash
// data record under (userKey, version), standing in for what
// txn_del/txn_expire would have written for a large hash.
func seedPendingReclaim(t *testing.T, s *store.Store, userKey []byte, version uint16, typeTag metarecord.TypeTag) {
	t.Helper()
	ctx := context.Background()
	_, err := store.ExecTxn(ctx, s, func(txn store.Txn) (struct{}, error) {
		verBuf := []byte{byte(version >> 8), byte(version)}
		if err := txn.Put(store.CFGC, codec.GCKey(userKey), verBuf); err != nil {
			return struct{}{}, err
		}
		if err := txn.Put(store.CFGCVersion, codec.GCVersionKey(userKey, version), []byte{byte(typeTag)}); err != nil {
			return struct{}{}, err
		}
		return struct{}{}, txn.Put(store.CFHashData, codec.HashDataKey(userKey, version, []byte("f1")), []byte("v1"))
	})
	require.NoError(t, err)
}

// TestMasterReclaimsPendingVersion is the S7-style async-delete scenario: a
// stale hash version is queued for reclamation, the master dispatches it,
// and the worker physically erases both the data and the GC bookkeeping.
func TestMasterReclaimsPendingVersion(t *testing.T) {
	s := openTestStore(t)
	userKey := []byte("big-hash")
	seedPendingReclaim(t, s, userKey, 3, metarecord.TypeHash)

	cfg := config.Default()
	cfg.AsyncGCIntervalMS = 20
	m := gc.NewMaster(s, cfg, logging.NewDiscard())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	m.Start(ctx)

	require.Eventually(t, func() bool {
		left, err := store.View(s, func(txn store.Txn) (bool, error) {
			_, ok, err := txn.Get(store.CFGC, codec.GCKey(userKey))
			return ok, err
		})
		require.NoError(t, err)
		return !left
	}, 2*time.Second, 10*time.Millisecond)

	remaining, err := store.View(s, func(txn store.Txn) ([]byte, error) {
		start, end := codec.HashDataRange(userKey, 3)
		kvs, err := txn.Scan(store.CFHashData, start, end, 0)
		if err != nil || len(kvs) == 0 {
			return nil, err
		}
		return kvs[0].Value, nil
	})
	require.NoError(t, err)
	require.Nil(t, remaining)
}

// TestGCFanOutIdempotent is the idempotent-GC property: running txn_gc twice
// over the same (user_key, version) is a no-op the second time, since
// deleting an absent key is never an error.
func TestGCFanOutIdempotent(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	userKey := []byte("idempotent-hash")

	_, err := store.ExecTxn(ctx, s, func(txn store.Txn) (struct{}, error) {
		return struct{}{}, txn.Put(store.CFHashData, codec.HashDataKey(userKey, 1, []byte("f")), []byte("v"))
	})
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		_, err := store.ExecTxn(ctx, s, func(txn store.Txn) (struct{}, error) {
			return struct{}{}, engine.GCFanOut(txn, userKey, 1, metarecord.TypeHash)
		})
		require.NoError(t, err)
	}

	remaining, err := store.View(s, func(txn store.Txn) ([]store.KV, error) {
		start, end := codec.HashDataRange(userKey, 1)
		return txn.Scan(store.CFHashData, start, end, 0)
	})
	require.NoError(t, err)
	require.Empty(t, remaining)
}

// TestMasterNoopWhenAsyncDeletionDisabled confirms the master leaves pending
// GC records untouched when async deletion is turned off in config.
func TestMasterNoopWhenAsyncDeletionDisabled(t *testing.T) {
	s := openTestStore(t)
	userKey := []byte("disabled-hash")
	seedPendingReclaim(t, s, userKey, 1, metarecord.TypeHash)

	cfg := config.Default()
	cfg.AsyncDeletionEnabled = false
	m := gc.NewMaster(s, cfg, logging.NewDiscard())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	m.Start(ctx)
	require.NoError(t, m.Wait())

	ok, err := store.View(s, func(txn store.Txn) (bool, error) {
		_, ok, err := txn.Get(store.CFGC, codec.GCKey(userKey))
		return ok, err
	})
	require.NoError(t, err)
	require.True(t, ok)
}
