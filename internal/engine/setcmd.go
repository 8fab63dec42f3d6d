package engine

import (
	"context"
	"math/rand"

	"github.com/duskdb/duskdb/internal/codec"
	"github.com/duskdb/duskdb/internal/dberrors"
	"github.com/duskdb/duskdb/internal/engine/reply"
	"github.com/duskdb/duskdb/internal/metarecord"
	"github.com/duskdb/duskdb/internal/store"
	"github.com/duskdb/duskdb/internal/submeta"
	"github.com/duskdb/duskdb/internal/version"
)

// setOps implements typeOps for TypeSet, the same sharded-cardinality shape
// as hashOps but over the set data/sub-meta column families.
type setOps struct{}

func (setOps) Cardinality(txn store.Txn, userKey []byte, meta metarecord.Meta) (int64, error) {
	return submeta.Total(txn, store.CFSetSubMeta, userKey, meta.Version)
}

func (setOps) DeleteData(txn store.Txn, userKey []byte, meta metarecord.Meta) error {
	start, end := codec.SetDataRange(userKey, meta.Version)
	keys, err := txn.ScanKeys(store.CFSetData, start, end, 0)
	if err != nil {
		return err
	}
	for _, k := range keys {
		if err := txn.Delete(store.CFSetData, k); err != nil {
			return err
		}
	}
	return submeta.DeleteAll(txn, store.CFSetSubMeta, userKey, meta.Version)
}

func init() {
	register("SADD", cmdSAdd)
	register("SREM", cmdSRem)
	register("SCARD", cmdSCard)
	register("SISMEMBER", cmdSIsMember)
	register("SMISMEMBER", cmdSMIsMember)
	register("SMEMBERS", cmdSMembers)
	register("SPOP", cmdSPop)
	register("SRANDMEMBER", cmdSRandMember)
}

func cmdSAdd(e *Engine, ctx context.Context, args [][]byte) reply.Reply {
	if len(args) < 2 {
		return errorReply(dberrors.ErrInvalidArguments)
	}
	key, members := args[0], args[1:]

	result, err := retryCall(ctx, e.cfg, key, func() (reply.Reply, error) {
		return store.ExecTxn(ctx, e.store, func(txn store.Txn) (reply.Reply, error) {
			meta, present, err := Guard(txn, e.cfg, key, metarecord.TypeSet, nowMillis())
			if err != nil {
				return reply.Reply{}, err
			}
			ver := meta.Version
			if !present {
				ver, err = version.ForNew(txn, key)
				if err != nil {
					return reply.Reply{}, err
				}
				if err := txn.Put(store.CFMeta, codec.MetaKey(key), metarecord.Meta{Type: metarecord.TypeSet, Version: ver}.Encode()); err != nil {
					return reply.Reply{}, err
				}
			}

			var added int64
			for _, member := range members {
				dataKey := codec.SetDataKey(key, ver, member)
				_, existed, err := txn.Get(store.CFSetData, dataKey)
				if err != nil {
					return reply.Reply{}, err
				}
				if existed {
					continue
				}
				if err := txn.Put(store.CFSetData, dataKey, []byte{1}); err != nil {
					return reply.Reply{}, err
				}
				added++
			}
			if added > 0 {
				shard := e.picker.Next(e.cfg.MetaKeyNumber)
				if err := submeta.Add(txn, store.CFSetSubMeta, key, ver, shard, added); err != nil {
					return reply.Reply{}, err
				}
			}
			return reply.Integer(added), nil
		})
	})
	if err != nil {
		return errorReply(err)
	}
	return result
}

func cmdSRem(e *Engine, ctx context.Context, args [][]byte) reply.Reply {
	if len(args) < 2 {
		return errorReply(dberrors.ErrInvalidArguments)
	}
	key, members := args[0], args[1:]

	result, err := retryCall(ctx, e.cfg, key, func() (reply.Reply, error) {
		return store.ExecTxn(ctx, e.store, func(txn store.Txn) (reply.Reply, error) {
			meta, present, err := Guard(txn, e.cfg, key, metarecord.TypeSet, nowMillis())
			if err != nil {
				return reply.Reply{}, err
			}
			if !present {
				return reply.Integer(0), nil
			}

			var removed int64
			for _, member := range members {
				dataKey := codec.SetDataKey(key, meta.Version, member)
				_, existed, err := txn.Get(store.CFSetData, dataKey)
				if err != nil {
					return reply.Reply{}, err
				}
				if !existed {
					continue
				}
				if err := txn.Delete(store.CFSetData, dataKey); err != nil {
					return reply.Reply{}, err
				}
				removed++
			}
			if removed > 0 {
				shard := e.picker.Next(e.cfg.MetaKeyNumber)
				if err := submeta.Add(txn, store.CFSetSubMeta, key, meta.Version, shard, -removed); err != nil {
					return reply.Reply{}, err
				}
			}

			remaining, err := submeta.Total(txn, store.CFSetSubMeta, key, meta.Version)
			if err != nil {
				return reply.Reply{}, err
			}
			if remaining <= 0 {
				if err := txn.Delete(store.CFMeta, codec.MetaKey(key)); err != nil {
					return reply.Reply{}, err
				}
			}
			return reply.Integer(removed), nil
		})
	})
	if err != nil {
		return errorReply(err)
	}
	return result
}

func cmdSCard(e *Engine, ctx context.Context, args [][]byte) reply.Reply {
	if len(args) != 1 {
		return errorReply(dberrors.ErrInvalidArguments)
	}
	key := args[0]

	result, err := store.View(e.store, func(txn store.Txn) (reply.Reply, error) {
		meta, present, err := Guard(txn, e.cfg, key, metarecord.TypeSet, nowMillis())
		if err != nil {
			return reply.Reply{}, err
		}
		if !present {
			return reply.Integer(0), nil
		}
		total, err := submeta.Total(txn, store.CFSetSubMeta, key, meta.Version)
		if err != nil {
			return reply.Reply{}, err
		}
		return reply.Integer(total), nil
	})
	if err != nil {
		return errorReply(err)
	}
	return result
}

func cmdSIsMember(e *Engine, ctx context.Context, args [][]byte) reply.Reply {
	if len(args) != 2 {
		return errorReply(dberrors.ErrInvalidArguments)
	}
	key, member := args[0], args[1]

	result, err := store.View(e.store, func(txn store.Txn) (reply.Reply, error) {
		meta, present, err := Guard(txn, e.cfg, key, metarecord.TypeSet, nowMillis())
		if err != nil {
			return reply.Reply{}, err
		}
		if !present {
			return reply.Integer(0), nil
		}
		_, ok, err := txn.Get(store.CFSetData, codec.SetDataKey(key, meta.Version, member))
		if err != nil {
			return reply.Reply{}, err
		}
		if ok {
			return reply.Integer(1), nil
		}
		return reply.Integer(0), nil
	})
	if err != nil {
		return errorReply(err)
	}
	return result
}

func cmdSMIsMember(e *Engine, ctx context.Context, args [][]byte) reply.Reply {
	if len(args) < 2 {
		return errorReply(dberrors.ErrInvalidArguments)
	}
	key, members := args[0], args[1:]

	result, err := store.View(e.store, func(txn store.Txn) (reply.Reply, error) {
		meta, present, err := Guard(txn, e.cfg, key, metarecord.TypeSet, nowMillis())
		if err != nil {
			return reply.Reply{}, err
		}
		out := make([]reply.Reply, len(members))
		if !present {
			for i := range out {
				out[i] = reply.Integer(0)
			}
			return reply.Array(out), nil
		}
		for i, member := range members {
			_, ok, err := txn.Get(store.CFSetData, codec.SetDataKey(key, meta.Version, member))
			if err != nil {
				return reply.Reply{}, err
			}
			if ok {
				out[i] = reply.Integer(1)
			} else {
				out[i] = reply.Integer(0)
			}
		}
		return reply.Array(out), nil
	})
	if err != nil {
		return errorReply(err)
	}
	return result
}

func cmdSMembers(e *Engine, ctx context.Context, args [][]byte) reply.Reply {
	if len(args) != 1 {
		return errorReply(dberrors.ErrInvalidArguments)
	}
	key := args[0]

	result, err := store.View(e.store, func(txn store.Txn) (reply.Reply, error) {
		meta, present, err := Guard(txn, e.cfg, key, metarecord.TypeSet, nowMillis())
		if err != nil {
			return reply.Reply{}, err
		}
		if !present {
			return reply.Array(nil), nil
		}
		start, end := codec.SetDataRange(key, meta.Version)
		keys, err := txn.ScanKeys(store.CFSetData, start, end, 0)
		if err != nil {
			return reply.Reply{}, err
		}
		out := make([][]byte, 0, len(keys))
		for _, k := range keys {
			member, err := codec.DecodeSetMember(key, meta.Version, k)
			if err != nil {
				continue
			}
			out = append(out, member)
		}
		return reply.BulkArray(out), nil
	})
	if err != nil {
		return errorReply(err)
	}
	return result
}

func cmdSPop(e *Engine, ctx context.Context, args [][]byte) reply.Reply {
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
		if n < 0 {
			return errorReply(dberrors.ErrInvalidArguments)
		}
		count = n
		multi = true
	}

	result, err := retryCall(ctx, e.cfg, key, func() (reply.Reply, error) {
		return store.ExecTxn(ctx, e.store, func(txn store.Txn) (reply.Reply, error) {
			meta, present, err := Guard(txn, e.cfg, key, metarecord.TypeSet, nowMillis())
			if err != nil {
				return reply.Reply{}, err
			}
			if !present {
				if multi {
					return reply.Array(nil), nil
				}
				return reply.NilBulk(), nil
			}
			if multi && count == 0 {
				return reply.Array(nil), nil
			}

			start, end := codec.SetDataRange(key, meta.Version)
			keys, err := txn.ScanKeys(store.CFSetData, start, end, int(count))
			if err != nil {
				return reply.Reply{}, err
			}

			var popped [][]byte
			for _, k := range keys {
				member, err := codec.DecodeSetMember(key, meta.Version, k)
				if err != nil {
					continue
				}
				if err := txn.Delete(store.CFSetData, k); err != nil {
					return reply.Reply{}, err
				}
				popped = append(popped, member)
			}

			if len(popped) > 0 {
				shard := e.picker.Next(e.cfg.MetaKeyNumber)
				if err := submeta.Add(txn, store.CFSetSubMeta, key, meta.Version, shard, -int64(len(popped))); err != nil {
					return reply.Reply{}, err
				}
			}

			remaining, err := submeta.Total(txn, store.CFSetSubMeta, key, meta.Version)
			if err != nil {
				return reply.Reply{}, err
			}
			if remaining <= 0 {
				if err := txn.Delete(store.CFMeta, codec.MetaKey(key)); err != nil {
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

// cmdSRandMember implements SRANDMEMBER key [count]. Without count, a
// single random member (or nil) is returned. With a non-negative count, up
// to count distinct members are returned; with a negative count, |count|
// members are returned and may repeat.
func cmdSRandMember(e *Engine, ctx context.Context, args [][]byte) reply.Reply {
	if len(args) < 1 || len(args) > 2 {
		return errorReply(dberrors.ErrInvalidArguments)
	}
	key := args[0]
	hasCount := len(args) == 2
	var count int64
	if hasCount {
		n, err := parseInt64(args[1])
		if err != nil {
			return errorReply(err)
		}
		count = n
	}

	result, err := store.View(e.store, func(txn store.Txn) (reply.Reply, error) {
		meta, present, err := Guard(txn, e.cfg, key, metarecord.TypeSet, nowMillis())
		if err != nil {
			return reply.Reply{}, err
		}
		if !present {
			if hasCount {
				return reply.Array(nil), nil
			}
			return reply.NilBulk(), nil
		}

		start, end := codec.SetDataRange(key, meta.Version)
		keys, err := txn.ScanKeys(store.CFSetData, start, end, 0)
		if err != nil {
			return reply.Reply{}, err
		}
		members := make([][]byte, 0, len(keys))
		for _, k := range keys {
			member, err := codec.DecodeSetMember(key, meta.Version, k)
			if err != nil {
				continue
			}
			members = append(members, member)
		}
		if len(members) == 0 {
			if hasCount {
				return reply.Array(nil), nil
			}
			return reply.NilBulk(), nil
		}

		if !hasCount {
			return reply.Bulk(members[rand.Intn(len(members))]), nil
		}

		if count >= 0 {
			n := int(count)
			if n > len(members) {
				n = len(members)
			}
			perm := rand.Perm(len(members))
			out := make([][]byte, n)
			for i := 0; i < n; i++ {
				out[i] = members[perm[i]]
			}
			return reply.BulkArray(out), nil
		}

		n := int(-count)
		out := make([][]byte, n)
		for i := 0; i < n; i++ {
			out[i] = members[rand.Intn(len(members))]
		}
		return reply.BulkArray(out), nil
	})
	if err != nil {
		return errorReply(err)
	}
	return result
}
