// Package version implements the 16-bit version allocator: it hands out a
// fresh version for a key at (re)creation time, rotating past any version
// still awaiting GC reclamation so that stale records from a prior life of
// the key stay unreachable from the new Meta.
package version

import (
	"fmt"

	"github.com/duskdb/duskdb/internal/codec"
	"github.com/duskdb/duskdb/internal/dberrors"
	"github.com/duskdb/duskdb/internal/metrics"
	"github.com/duskdb/duskdb/internal/store"
)

// ForNew implements version_for_new(txn, key): must be called inside the
// same transaction that will write the new Meta record, never while
// holding any external lock, to avoid deadlocking against a concurrent
// writer of the same key.
func ForNew(txn store.Txn, userKey []byte) (uint16, error) {
	gcValue, ok, err := txn.Get(store.CFGC, codec.GCKey(userKey))
	if err != nil {
		return 0, fmt.Errorf("version: read gc record: %w", err)
	}
	if !ok {
		return 0, nil
	}

	stored := codec.DecodeVersion(gcValue)
	v := stored + 1 // wraps 65535 -> 0 by uint16 arithmetic

	_, exhausted, err := txn.Get(store.CFGCVersion, codec.GCVersionKey(userKey, v))
	if err != nil {
		return 0, fmt.Errorf("version: read gc-version record: %w", err)
	}
	if exhausted {
		metrics.Init()
		metrics.GCVersionExhaustedTotal.Inc()
		return 0, dberrors.ErrVersionExhausted
	}

	return v, nil
}
