package engine

import (
	"fmt"

	"github.com/duskdb/duskdb/internal/codec"
	"github.com/duskdb/duskdb/internal/config"
	"github.com/duskdb/duskdb/internal/dberrors"
	"github.com/duskdb/duskdb/internal/metarecord"
	"github.com/duskdb/duskdb/internal/metrics"
	"github.com/duskdb/duskdb/internal/store"
)

// typeOps is the capability interface the common Guard/delete machinery
// uses for dynamic dispatch over type engines: logical delete, lazy
// expiry, explicit TTL clear, and physical GC fan-out all select an
// implementation by the Meta's type_tag. String and List don't need
// sub-meta shards, so their Cardinality/DeleteData are trivial.
type typeOps interface {
	// Cardinality returns the element count used for the async-threshold
	// comparison.
	Cardinality(txn store.Txn, userKey []byte, meta metarecord.Meta) (int64, error)
	// DeleteData physically erases every Data/Sub-meta/Score record for
	// (userKey, meta.Version). Used by both the synchronous delete path
	// and, with a different meta.Version, the GC worker's txn_gc.
	DeleteData(txn store.Txn, userKey []byte, meta metarecord.Meta) error
}

func typeOpsFor(t metarecord.TypeTag) typeOps {
	switch t {
	case metarecord.TypeString:
		return stringOps{}
	case metarecord.TypeHash:
		return hashOps{}
	case metarecord.TypeList:
		return listOps{}
	case metarecord.TypeSet:
		return setOps{}
	case metarecord.TypeZSet:
		return zsetOps{}
	default:
		return nil
	}
}

func readMeta(txn store.Txn, userKey []byte) (metarecord.Meta, bool, error) {
	raw, ok, err := txn.Get(store.CFMeta, codec.MetaKey(userKey))
	if err != nil {
		return metarecord.Meta{}, false, fmt.Errorf("engine: read meta: %w", err)
	}
	if !ok {
		return metarecord.Meta{}, false, nil
	}
	m, err := metarecord.Decode(raw)
	if err != nil {
		return metarecord.Meta{}, false, fmt.Errorf("engine: decode meta: %w", err)
	}
	return m, true, nil
}

// writeLogicalDelete writes the GC + GC-version markers and removes Meta,
// enqueuing (userKey, meta.Version) for asynchronous reclamation.
func writeLogicalDelete(txn store.Txn, userKey []byte, meta metarecord.Meta) error {
	verBuf := make([]byte, 2)
	verBuf[0] = byte(meta.Version >> 8)
	verBuf[1] = byte(meta.Version)

	if err := txn.Put(store.CFGC, codec.GCKey(userKey), verBuf); err != nil {
		return fmt.Errorf("engine: write gc record: %w", err)
	}
	if err := txn.Put(store.CFGCVersion, codec.GCVersionKey(userKey, meta.Version), []byte{byte(meta.Type)}); err != nil {
		return fmt.Errorf("engine: write gc-version record: %w", err)
	}
	if err := txn.Delete(store.CFMeta, codec.MetaKey(userKey)); err != nil {
		return fmt.Errorf("engine: delete meta: %w", err)
	}
	return nil
}

// deleteKey implements txn_del: logical delete if cardinality exceeds
// threshold, else a synchronous fan-out delete. Returns true if a Meta
// record existed and was removed.
func deleteKey(txn store.Txn, cfg config.Config, userKey []byte, threshold func(config.Thresholds) int64) (bool, error) {
	meta, ok, err := readMeta(txn, userKey)
	if err != nil || !ok {
		return false, err
	}

	ops := typeOpsFor(meta.Type)
	card, err := ops.Cardinality(txn, userKey, meta)
	if err != nil {
		return false, err
	}

	limit := threshold(cfg.Threshold(meta.Type.String()))
	if card > limit {
		if err := writeLogicalDelete(txn, userKey, meta); err != nil {
			return false, err
		}
		return true, nil
	}

	if err := ops.DeleteData(txn, userKey, meta); err != nil {
		return false, err
	}
	if err := txn.Delete(store.CFMeta, codec.MetaKey(userKey)); err != nil {
		return false, fmt.Errorf("engine: delete meta: %w", err)
	}
	return true, nil
}

// Guard implements the common Expiry/Type Guard prelude: it reads Meta,
// checks the type tag against what the calling command
// expects, and lazily expires a TTL'd-out key before the command proceeds.
// present is false both when no Meta ever existed and when one did but has
// now been lazily removed; callers treat both identically as "absent".
func Guard(txn store.Txn, cfg config.Config, userKey []byte, expected metarecord.TypeTag, nowMs int64) (meta metarecord.Meta, present bool, err error) {
	meta, ok, err := readMeta(txn, userKey)
	if err != nil {
		return metarecord.Meta{}, false, err
	}
	if !ok {
		return metarecord.Meta{}, false, nil
	}

	if expected != metarecord.TypeNone && meta.Type != expected {
		return metarecord.Meta{}, false, dberrors.ErrWrongType
	}

	if meta.TTLMs == 0 || meta.TTLMs > nowMs {
		return meta, true, nil
	}

	// Lazily expired: remove it now, synchronously or via GC enqueue
	// depending on cardinality, then report it as logically absent.
	ops := typeOpsFor(meta.Type)
	card, err := ops.Cardinality(txn, userKey, meta)
	if err != nil {
		return metarecord.Meta{}, false, err
	}

	limit := cfg.Threshold(meta.Type.String()).AsyncExpireThreshold
	if card > limit {
		if err := writeLogicalDelete(txn, userKey, meta); err != nil {
			return metarecord.Meta{}, false, err
		}
	} else {
		if err := ops.DeleteData(txn, userKey, meta); err != nil {
			return metarecord.Meta{}, false, err
		}
		if err := txn.Delete(store.CFMeta, codec.MetaKey(userKey)); err != nil {
			return metarecord.Meta{}, false, fmt.Errorf("engine: delete expired meta: %w", err)
		}
	}

	metrics.RemovedExpiredKeysTotal.WithLabelValues(meta.Type.String()).Inc()
	return metarecord.Meta{}, false, nil
}

// ExpireIfNeeded is txn_expire_if_needed: a thin wrapper over Guard for
// callers that need only the expiry side-effect, not the Meta value. The
// command handlers call Guard directly.
func ExpireIfNeeded(txn store.Txn, cfg config.Config, userKey []byte, nowMs int64) error {
	_, _, err := Guard(txn, cfg, userKey, metarecord.TypeNone, nowMs)
	return err
}

// ExpireSet is txn_expire(key, deadlineMs): sets or clears (deadlineMs==0)
// a key's TTL in place, preserving every other Meta field.
func ExpireSet(txn store.Txn, userKey []byte, expected metarecord.TypeTag, deadlineMs int64) (bool, error) {
	meta, ok, err := readMeta(txn, userKey)
	if err != nil {
		return false, err
	}
	if !ok {
		return false, nil
	}
	if expected != metarecord.TypeNone && meta.Type != expected {
		return false, dberrors.ErrWrongType
	}

	meta.TTLMs = deadlineMs
	if err := txn.Put(store.CFMeta, codec.MetaKey(userKey), meta.Encode()); err != nil {
		return false, fmt.Errorf("engine: write meta ttl: %w", err)
	}
	return true, nil
}

// GCFanOut is txn_gc(key, version): the physical fan-out a GC worker runs,
// erasing Data/Sub-meta/Score for (userKey, version) only. typeTag comes
// from the GC-version record, since the Meta (and thus its type) may
// already be long gone by the time GC reclaims an old version.
func GCFanOut(txn store.Txn, userKey []byte, version uint16, typeTag metarecord.TypeTag) error {
	ops := typeOpsFor(typeTag)
	if ops == nil {
		return fmt.Errorf("engine: gc fan-out: unknown type tag %d", typeTag)
	}
	placeholder := metarecord.Meta{Type: typeTag, Version: version}
	return ops.DeleteData(txn, userKey, placeholder)
}
