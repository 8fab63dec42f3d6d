package engine

import (
	"bytes"
	"context"

	"github.com/duskdb/duskdb/internal/codec"
	"github.com/duskdb/duskdb/internal/dberrors"
	"github.com/duskdb/duskdb/internal/engine/reply"
	"github.com/duskdb/duskdb/internal/metarecord"
	"github.com/duskdb/duskdb/internal/store"
	"github.com/duskdb/duskdb/internal/version"
)

// listOps implements typeOps for TypeList. Lists track their bounds
// directly in Meta, so there is no sub-meta shard to clean up, only the
// indexed data records.
type listOps struct{}

func (listOps) Cardinality(_ store.Txn, _ []byte, meta metarecord.Meta) (int64, error) {
	return meta.Len(), nil
}

func (listOps) DeleteData(txn store.Txn, userKey []byte, meta metarecord.Meta) error {
	start, end := codec.ListDataFullRange(userKey, meta.Version)
	keys, err := txn.ScanKeys(store.CFListData, start, end, 0)
	if err != nil {
		return err
	}
	for _, k := range keys {
		if err := txn.Delete(store.CFListData, k); err != nil {
			return err
		}
	}
	return nil
}

func init() {
	register("LPUSH", cmdLPush)
	register("RPUSH", cmdRPush)
	register("LPOP", cmdLPop)
	register("RPOP", cmdRPop)
	register("LLEN", cmdLLen)
	register("LINDEX", cmdLIndex)
	register("LSET", cmdLSet)
	register("LINSERT", cmdLInsert)
	register("LRANGE", cmdLRange)
	register("LTRIM", cmdLTrim)
	register("LREM", cmdLRem)
}

// readListElements returns every element of (userKey, meta.Version) in
// logical order.
func readListElements(txn store.Txn, userKey []byte, meta metarecord.Meta) ([][]byte, error) {
	start, end := codec.ListDataFullRange(userKey, meta.Version)
	pairs, err := txn.Scan(store.CFListData, start, end, 0)
	if err != nil {
		return nil, err
	}
	out := make([][]byte, len(pairs))
	for i, kv := range pairs {
		out[i] = kv.Value
	}
	return out, nil
}

// rewriteList replaces the entire element set of (userKey, meta.Version),
// recentering bounds at metarecord.ListMidpoint. This is how LTRIM/LREM/
// LINSERT apply shifts: the contiguous index representation means any
// insertion/removal not at an end requires rewriting subsequent indices,
// so it is simpler and no less correct to rewrite the whole (capped)
// window than to shift keys one at a time.
func rewriteList(txn store.Txn, userKey []byte, meta metarecord.Meta, elems [][]byte) (metarecord.Meta, error) {
	start, end := codec.ListDataFullRange(userKey, meta.Version)
	oldKeys, err := txn.ScanKeys(store.CFListData, start, end, 0)
	if err != nil {
		return meta, err
	}
	for _, k := range oldKeys {
		if err := txn.Delete(store.CFListData, k); err != nil {
			return meta, err
		}
	}

	newMeta := meta
	newMeta.ListLeft = metarecord.ListMidpoint
	newMeta.ListRight = metarecord.ListMidpoint + uint64(len(elems))

	for i, v := range elems {
		idx := newMeta.ListLeft + uint64(i)
		if err := txn.Put(store.CFListData, codec.ListDataKey(userKey, meta.Version, idx), v); err != nil {
			return meta, err
		}
	}

	if len(elems) == 0 {
		if err := txn.Delete(store.CFMeta, codec.MetaKey(userKey)); err != nil {
			return meta, err
		}
		return newMeta, nil
	}

	if err := txn.Put(store.CFMeta, codec.MetaKey(userKey), newMeta.Encode()); err != nil {
		return meta, err
	}
	return newMeta, nil
}

func pushCmd(e *Engine, ctx context.Context, args [][]byte, left bool) reply.Reply {
	if len(args) < 2 {
		return errorReply(dberrors.ErrInvalidArguments)
	}
	key, values := args[0], args[1:]

	result, err := retryCall(ctx, e.cfg, key, func() (reply.Reply, error) {
		return store.ExecTxn(ctx, e.store, func(txn store.Txn) (reply.Reply, error) {
			meta, present, err := Guard(txn, e.cfg, key, metarecord.TypeList, nowMillis())
			if err != nil {
				return reply.Reply{}, err
			}
			if !present {
				ver, verr := version.ForNew(txn, key)
				if verr != nil {
					return reply.Reply{}, verr
				}
				meta = metarecord.NewList(ver, 0)
			}

			for _, v := range values {
				if left {
					meta.ListLeft--
					if err := txn.Put(store.CFListData, codec.ListDataKey(key, meta.Version, meta.ListLeft), v); err != nil {
						return reply.Reply{}, err
					}
				} else {
					if err := txn.Put(store.CFListData, codec.ListDataKey(key, meta.Version, meta.ListRight), v); err != nil {
						return reply.Reply{}, err
					}
					meta.ListRight++
				}
			}

			if err := txn.Put(store.CFMeta, codec.MetaKey(key), meta.Encode()); err != nil {
				return reply.Reply{}, err
			}
			return reply.Integer(meta.Len()), nil
		})
	})
	if err != nil {
		return errorReply(err)
	}
	return result
}

func cmdLPush(e *Engine, ctx context.Context, args [][]byte) reply.Reply { return pushCmd(e, ctx, args, true) }
func cmdRPush(e *Engine, ctx context.Context, args [][]byte) reply.Reply { return pushCmd(e, ctx, args, false) }

func popCmd(e *Engine, ctx context.Context, args [][]byte, left bool) reply.Reply {
	if len(args) < 1 || len(args) > 2 {
		return errorReply(dberrors.ErrInvalidArguments)
	}
	key := args[0]
	count := int64(1)
	multi := false
	if len(args) == 2 {
		n, err := parseInt64(args[1])
		if err != nil {
			return errorReply(err)
		}
		count = n
		multi = true
	}

	result, err := retryCall(ctx, e.cfg, key, func() (reply.Reply, error) {
		return store.ExecTxn(ctx, e.store, func(txn store.Txn) (reply.Reply, error) {
			meta, present, err := Guard(txn, e.cfg, key, metarecord.TypeList, nowMillis())
			if err != nil {
				return reply.Reply{}, err
			}
			if !present {
				if multi {
					return reply.Array(nil), nil
				}
				return reply.NilBulk(), nil
			}

			var popped [][]byte
			for int64(len(popped)) < count && meta.ListLeft < meta.ListRight {
				var idx uint64
				if left {
					idx = meta.ListLeft
				} else {
					idx = meta.ListRight - 1
				}
				dataKey := codec.ListDataKey(key, meta.Version, idx)
				value, ok, err := txn.Get(store.CFListData, dataKey)
				if err != nil {
					return reply.Reply{}, err
				}
				if ok {
					if err := txn.Delete(store.CFListData, dataKey); err != nil {
						return reply.Reply{}, err
					}
					popped = append(popped, value)
				}
				if left {
					meta.ListLeft++
				} else {
					meta.ListRight--
				}
			}

			if meta.ListLeft >= meta.ListRight {
				if err := txn.Delete(store.CFMeta, codec.MetaKey(key)); err != nil {
					return reply.Reply{}, err
				}
			} else {
				if err := txn.Put(store.CFMeta, codec.MetaKey(key), meta.Encode()); err != nil {
					return reply.Reply{}, err
				}
			}

			if multi {
				return reply.BulkArray(popped), nil
			}
			if len(popped) == 0 {
				return reply.NilBulk(), nil
			}
			return reply.Bulk(popped[0]), nil
		})
	})
	if err != nil {
		return errorReply(err)
	}
	return result
}

func cmdLPop(e *Engine, ctx context.Context, args [][]byte) reply.Reply { return popCmd(e, ctx, args, true) }
func cmdRPop(e *Engine, ctx context.Context, args [][]byte) reply.Reply { return popCmd(e, ctx, args, false) }

func cmdLLen(e *Engine, ctx context.Context, args [][]byte) reply.Reply {
	if len(args) != 1 {
		return errorReply(dberrors.ErrInvalidArguments)
	}
	key := args[0]

	result, err := store.View(e.store, func(txn store.Txn) (reply.Reply, error) {
		meta, present, err := Guard(txn, e.cfg, key, metarecord.TypeList, nowMillis())
		if err != nil {
			return reply.Reply{}, err
		}
		if !present {
			return reply.Integer(0), nil
		}
		return reply.Integer(meta.Len()), nil
	})
	if err != nil {
		return errorReply(err)
	}
	return result
}

// normalizeIndex converts a Redis-style (possibly negative) logical index
// into an absolute index, or ok=false if out of [0, length).
func normalizeIndex(idx, length int64) (int64, bool) {
	if idx < 0 {
		idx += length
	}
	if idx < 0 || idx >= length {
		return 0, false
	}
	return idx, true
}

func cmdLIndex(e *Engine, ctx context.Context, args [][]byte) reply.Reply {
	if len(args) != 2 {
		return errorReply(dberrors.ErrInvalidArguments)
	}
	key := args[0]
	rawIdx, err := parseInt64(args[1])
	if err != nil {
		return errorReply(err)
	}

	result, err := store.View(e.store, func(txn store.Txn) (reply.Reply, error) {
		meta, present, err := Guard(txn, e.cfg, key, metarecord.TypeList, nowMillis())
		if err != nil {
			return reply.Reply{}, err
		}
		if !present {
			return reply.NilBulk(), nil
		}
		idx, ok := normalizeIndex(rawIdx, meta.Len())
		if !ok {
			return reply.NilBulk(), nil
		}
		value, ok, err := txn.Get(store.CFListData, codec.ListDataKey(key, meta.Version, meta.ListLeft+uint64(idx)))
		if err != nil {
			return reply.Reply{}, err
		}
		if !ok {
			return reply.NilBulk(), nil
		}
		return reply.Bulk(value), nil
	})
	if err != nil {
		return errorReply(err)
	}
	return result
}

func cmdLSet(e *Engine, ctx context.Context, args [][]byte) reply.Reply {
	if len(args) != 3 {
		return errorReply(dberrors.ErrInvalidArguments)
	}
	key := args[0]
	rawIdx, err := parseInt64(args[1])
	if err != nil {
		return errorReply(err)
	}
	value := args[2]

	result, err := retryCall(ctx, e.cfg, key, func() (reply.Reply, error) {
		return store.ExecTxn(ctx, e.store, func(txn store.Txn) (reply.Reply, error) {
			meta, present, err := Guard(txn, e.cfg, key, metarecord.TypeList, nowMillis())
			if err != nil {
				return reply.Reply{}, err
			}
			if !present {
				return reply.Reply{}, dberrors.ErrIndexOutOfRange
			}
			idx, ok := normalizeIndex(rawIdx, meta.Len())
			if !ok {
				return reply.Reply{}, dberrors.ErrIndexOutOfRange
			}
			if err := txn.Put(store.CFListData, codec.ListDataKey(key, meta.Version, meta.ListLeft+uint64(idx)), value); err != nil {
				return reply.Reply{}, err
			}
			return reply.OK(), nil
		})
	})
	if err != nil {
		return errorReply(err)
	}
	return result
}

func cmdLRange(e *Engine, ctx context.Context, args [][]byte) reply.Reply {
	if len(args) != 3 {
		return errorReply(dberrors.ErrInvalidArguments)
	}
	key := args[0]
	rawStart, err := parseInt64(args[1])
	if err != nil {
		return errorReply(err)
	}
	rawStop, err := parseInt64(args[2])
	if err != nil {
		return errorReply(err)
	}

	result, err := store.View(e.store, func(txn store.Txn) (reply.Reply, error) {
		meta, present, err := Guard(txn, e.cfg, key, metarecord.TypeList, nowMillis())
		if err != nil {
			return reply.Reply{}, err
		}
		if !present {
			return reply.Array(nil), nil
		}

		length := meta.Len()
		start, stop := rawStart, rawStop
		if start < 0 {
			start += length
		}
		if stop < 0 {
			stop += length
		}
		if start < 0 {
			start = 0
		}
		if stop >= length {
			stop = length - 1
		}
		if start > stop || length == 0 {
			return reply.Array(nil), nil
		}

		lo := meta.ListLeft + uint64(start)
		hi := meta.ListLeft + uint64(stop) + 1
		rangeStart, rangeEnd := codec.ListDataRange(key, meta.Version, lo, hi)
		pairs, err := txn.Scan(store.CFListData, rangeStart, rangeEnd, int(stop-start+1))
		if err != nil {
			return reply.Reply{}, err
		}
		out := make([][]byte, len(pairs))
		for i, kv := range pairs {
			out[i] = kv.Value
		}
		return reply.BulkArray(out), nil
	})
	if err != nil {
		return errorReply(err)
	}
	return result
}

func cmdLTrim(e *Engine, ctx context.Context, args [][]byte) reply.Reply {
	if len(args) != 3 {
		return errorReply(dberrors.ErrInvalidArguments)
	}
	key := args[0]
	rawStart, err := parseInt64(args[1])
	if err != nil {
		return errorReply(err)
	}
	rawStop, err := parseInt64(args[2])
	if err != nil {
		return errorReply(err)
	}

	result, err := retryCall(ctx, e.cfg, key, func() (reply.Reply, error) {
		return store.ExecTxn(ctx, e.store, func(txn store.Txn) (reply.Reply, error) {
			meta, present, err := Guard(txn, e.cfg, key, metarecord.TypeList, nowMillis())
			if err != nil {
				return reply.Reply{}, err
			}
			if !present {
				return reply.OK(), nil
			}

			length := meta.Len()
			start, stop := rawStart, rawStop
			if start < 0 {
				start += length
			}
			if stop < 0 {
				stop += length
			}
			if start < 0 {
				start = 0
			}
			if stop >= length {
				stop = length - 1
			}

			var kept [][]byte
			if start <= stop {
				elems, err := readListElements(txn, key, meta)
				if err != nil {
					return reply.Reply{}, err
				}
				kept = elems[start : stop+1]
			}

			if _, err := rewriteList(txn, key, meta, kept); err != nil {
				return reply.Reply{}, err
			}
			return reply.OK(), nil
		})
	})
	if err != nil {
		return errorReply(err)
	}
	return result
}

func cmdLInsert(e *Engine, ctx context.Context, args [][]byte) reply.Reply {
	if len(args) != 4 {
		return errorReply(dberrors.ErrInvalidArguments)
	}
	key, where, pivot, value := args[0], args[1], args[2], args[3]
	before := true
	switch string(where) {
	case "BEFORE", "before":
		before = true
	case "AFTER", "after":
		before = false
	default:
		return errorReply(dberrors.ErrInvalidArguments)
	}

	result, err := retryCall(ctx, e.cfg, key, func() (reply.Reply, error) {
		return store.ExecTxn(ctx, e.store, func(txn store.Txn) (reply.Reply, error) {
			meta, present, err := Guard(txn, e.cfg, key, metarecord.TypeList, nowMillis())
			if err != nil {
				return reply.Reply{}, err
			}
			if !present {
				return reply.Integer(0), nil
			}
			if meta.Len() > e.cfg.CmdLinsertLengthLimit {
				return reply.Reply{}, dberrors.ErrListTooLarge
			}

			elems, err := readListElements(txn, key, meta)
			if err != nil {
				return reply.Reply{}, err
			}

			pos := -1
			for i, v := range elems {
				if bytes.Equal(v, pivot) {
					pos = i
					break
				}
			}
			if pos < 0 {
				return reply.Integer(-1), nil
			}
			insertAt := pos
			if !before {
				insertAt = pos + 1
			}

			newElems := make([][]byte, 0, len(elems)+1)
			newElems = append(newElems, elems[:insertAt]...)
			newElems = append(newElems, value)
			newElems = append(newElems, elems[insertAt:]...)

			if _, err := rewriteList(txn, key, meta, newElems); err != nil {
				return reply.Reply{}, err
			}
			return reply.Integer(int64(len(newElems))), nil
		})
	})
	if err != nil {
		return errorReply(err)
	}
	return result
}

func cmdLRem(e *Engine, ctx context.Context, args [][]byte) reply.Reply {
	if len(args) != 3 {
		return errorReply(dberrors.ErrInvalidArguments)
	}
	key := args[0]
	count, err := parseInt64(args[1])
	if err != nil {
		return errorReply(err)
	}
	element := args[2]

	result, err := retryCall(ctx, e.cfg, key, func() (reply.Reply, error) {
		return store.ExecTxn(ctx, e.store, func(txn store.Txn) (reply.Reply, error) {
			meta, present, err := Guard(txn, e.cfg, key, metarecord.TypeList, nowMillis())
			if err != nil {
				return reply.Reply{}, err
			}
			if !present {
				return reply.Integer(0), nil
			}
			if meta.Len() > e.cfg.CmdLremLengthLimit {
				return reply.Reply{}, dberrors.ErrListTooLarge
			}

			elems, err := readListElements(txn, key, meta)
			if err != nil {
				return reply.Reply{}, err
			}

			var kept [][]byte
			var removed int64
			limit := count
			if limit < 0 {
				limit = -limit
			}

			if count >= 0 {
				for _, v := range elems {
					if (limit == 0 || removed < limit) && bytes.Equal(v, element) {
						removed++
						continue
					}
					kept = append(kept, v)
				}
			} else {
				for i := len(elems) - 1; i >= 0; i-- {
					v := elems[i]
					if removed < limit && bytes.Equal(v, element) {
						removed++
						continue
					}
					kept = append([][]byte{v}, kept...)
				}
			}

			if _, err := rewriteList(txn, key, meta, kept); err != nil {
				return reply.Reply{}, err
			}
			return reply.Integer(removed), nil
		})
	})
	if err != nil {
		return errorReply(err)
	}
	return result
}
