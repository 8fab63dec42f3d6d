package engine

import (
	"context"

	"github.com/duskdb/duskdb/internal/codec"
	"github.com/duskdb/duskdb/internal/dberrors"
	"github.com/duskdb/duskdb/internal/engine/reply"
	"github.com/duskdb/duskdb/internal/metarecord"
	"github.com/duskdb/duskdb/internal/store"
	"github.com/duskdb/duskdb/internal/submeta"
	"github.com/duskdb/duskdb/internal/version"
)

// hashOps implements typeOps for TypeHash.
type hashOps struct{}

func (hashOps) Cardinality(txn store.Txn, userKey []byte, meta metarecord.Meta) (int64, error) {
	return submeta.Total(txn, store.CFHashSubMeta, userKey, meta.Version)
}

func (hashOps) DeleteData(txn store.Txn, userKey []byte, meta metarecord.Meta) error {
	start, end := codec.HashDataRange(userKey, meta.Version)
	keys, err := txn.ScanKeys(store.CFHashData, start, end, 0)
	if err != nil {
		return err
	}
	for _, k := range keys {
		if err := txn.Delete(store.CFHashData, k); err != nil {
			return err
		}
	}
	return submeta.DeleteAll(txn, store.CFHashSubMeta, userKey, meta.Version)
}

func init() {
	register("HSET", cmdHSet)
	register("HMSET", cmdHMSet)
	register("HSETNX", cmdHSetNX)
	register("HGET", cmdHGet)
	register("HMGET", cmdHMGet)
	register("HEXISTS", cmdHExists)
	register("HSTRLEN", cmdHStrlen)
	register("HLEN", cmdHLen)
	register("HKEYS", cmdHKeys)
	register("HVALS", cmdHVals)
	register("HGETALL", cmdHGetAll)
	register("HDEL", cmdHDel)
	register("HINCRBY", cmdHIncrBy)
}

func cmdHSet(e *Engine, ctx context.Context, args [][]byte) reply.Reply {
	if len(args) < 3 || len(args)%2 != 1 {
		return errorReply(dberrors.ErrInvalidArguments)
	}
	key := args[0]
	fields := args[1:]

	result, err := retryCall(ctx, e.cfg, key, func() (reply.Reply, error) {
		return store.ExecTxn(ctx, e.store, func(txn store.Txn) (reply.Reply, error) {
			meta, present, err := Guard(txn, e.cfg, key, metarecord.TypeHash, nowMillis())
			if err != nil {
				return reply.Reply{}, err
			}
			ver := meta.Version
			if !present {
				ver, err = version.ForNew(txn, key)
				if err != nil {
					return reply.Reply{}, err
				}
				if err := txn.Put(store.CFMeta, codec.MetaKey(key), metarecord.Meta{Type: metarecord.TypeHash, Version: ver}.Encode()); err != nil {
					return reply.Reply{}, err
				}
			}

			var added int64
			for i := 0; i < len(fields); i += 2 {
				field, value := fields[i], fields[i+1]
				dataKey := codec.HashDataKey(key, ver, field)
				_, existed, err := txn.Get(store.CFHashData, dataKey)
				if err != nil {
					return reply.Reply{}, err
				}
				if !existed {
					added++
				}
				if err := txn.Put(store.CFHashData, dataKey, value); err != nil {
					return reply.Reply{}, err
				}
			}
			if added > 0 {
				shard := e.picker.Next(e.cfg.MetaKeyNumber)
				if err := submeta.Add(txn, store.CFHashSubMeta, key, ver, shard, added); err != nil {
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

func cmdHMSet(e *Engine, ctx context.Context, args [][]byte) reply.Reply {
	r := cmdHSet(e, ctx, args)
	if r.IsError() {
		return r
	}
	return reply.OK()
}

func cmdHSetNX(e *Engine, ctx context.Context, args [][]byte) reply.Reply {
	if len(args) != 3 {
		return errorReply(dberrors.ErrInvalidArguments)
	}
	key, field, value := args[0], args[1], args[2]

	result, err := retryCall(ctx, e.cfg, key, func() (reply.Reply, error) {
		return store.ExecTxn(ctx, e.store, func(txn store.Txn) (reply.Reply, error) {
			meta, present, err := Guard(txn, e.cfg, key, metarecord.TypeHash, nowMillis())
			if err != nil {
				return reply.Reply{}, err
			}
			ver := meta.Version
			if !present {
				ver, err = version.ForNew(txn, key)
				if err != nil {
					return reply.Reply{}, err
				}
				if err := txn.Put(store.CFMeta, codec.MetaKey(key), metarecord.Meta{Type: metarecord.TypeHash, Version: ver}.Encode()); err != nil {
					return reply.Reply{}, err
				}
			}

			dataKey := codec.HashDataKey(key, ver, field)
			_, existed, err := txn.Get(store.CFHashData, dataKey)
			if err != nil {
				return reply.Reply{}, err
			}
			if existed {
				return reply.Integer(0), nil
			}
			if err := txn.Put(store.CFHashData, dataKey, value); err != nil {
				return reply.Reply{}, err
			}
			shard := e.picker.Next(e.cfg.MetaKeyNumber)
			if err := submeta.Add(txn, store.CFHashSubMeta, key, ver, shard, 1); err != nil {
				return reply.Reply{}, err
			}
			return reply.Integer(1), nil
		})
	})
	if err != nil {
		return errorReply(err)
	}
	return result
}

func cmdHGet(e *Engine, ctx context.Context, args [][]byte) reply.Reply {
	if len(args) != 2 {
		return errorReply(dberrors.ErrInvalidArguments)
	}
	key, field := args[0], args[1]

	result, err := store.View(e.store, func(txn store.Txn) (reply.Reply, error) {
		meta, present, err := Guard(txn, e.cfg, key, metarecord.TypeHash, nowMillis())
		if err != nil {
			return reply.Reply{}, err
		}
		if !present {
			return reply.NilBulk(), nil
		}
		value, ok, err := txn.Get(store.CFHashData, codec.HashDataKey(key, meta.Version, field))
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

func cmdHMGet(e *Engine, ctx context.Context, args [][]byte) reply.Reply {
	if len(args) < 2 {
		return errorReply(dberrors.ErrInvalidArguments)
	}
	key, fields := args[0], args[1:]

	result, err := store.View(e.store, func(txn store.Txn) (reply.Reply, error) {
		meta, present, err := Guard(txn, e.cfg, key, metarecord.TypeHash, nowMillis())
		if err != nil {
			return reply.Reply{}, err
		}
		out := make([]reply.Reply, len(fields))
		if !present {
			for i := range out {
				out[i] = reply.NilBulk()
			}
			return reply.Array(out), nil
		}
		for i, field := range fields {
			value, ok, err := txn.Get(store.CFHashData, codec.HashDataKey(key, meta.Version, field))
			if err != nil {
				return reply.Reply{}, err
			}
			if !ok {
				out[i] = reply.NilBulk()
				continue
			}
			out[i] = reply.Bulk(value)
		}
		return reply.Array(out), nil
	})
	if err != nil {
		return errorReply(err)
	}
	return result
}

func cmdHExists(e *Engine, ctx context.Context, args [][]byte) reply.Reply {
	if len(args) != 2 {
		return errorReply(dberrors.ErrInvalidArguments)
	}
	key, field := args[0], args[1]

	result, err := store.View(e.store, func(txn store.Txn) (reply.Reply, error) {
		meta, present, err := Guard(txn, e.cfg, key, metarecord.TypeHash, nowMillis())
		if err != nil {
			return reply.Reply{}, err
		}
		if !present {
			return reply.Integer(0), nil
		}
		_, ok, err := txn.Get(store.CFHashData, codec.HashDataKey(key, meta.Version, field))
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

func cmdHStrlen(e *Engine, ctx context.Context, args [][]byte) reply.Reply {
	if len(args) != 2 {
		return errorReply(dberrors.ErrInvalidArguments)
	}
	key, field := args[0], args[1]

	result, err := store.View(e.store, func(txn store.Txn) (reply.Reply, error) {
		meta, present, err := Guard(txn, e.cfg, key, metarecord.TypeHash, nowMillis())
		if err != nil {
			return reply.Reply{}, err
		}
		if !present {
			return reply.Integer(0), nil
		}
		value, ok, err := txn.Get(store.CFHashData, codec.HashDataKey(key, meta.Version, field))
		if err != nil {
			return reply.Reply{}, err
		}
		if !ok {
			return reply.Integer(0), nil
		}
		return reply.Integer(int64(len(value))), nil
	})
	if err != nil {
		return errorReply(err)
	}
	return result
}

func cmdHLen(e *Engine, ctx context.Context, args [][]byte) reply.Reply {
	if len(args) != 1 {
		return errorReply(dberrors.ErrInvalidArguments)
	}
	key := args[0]

	result, err := store.View(e.store, func(txn store.Txn) (reply.Reply, error) {
		meta, present, err := Guard(txn, e.cfg, key, metarecord.TypeHash, nowMillis())
		if err != nil {
			return reply.Reply{}, err
		}
		if !present {
			return reply.Integer(0), nil
		}
		total, err := submeta.Total(txn, store.CFHashSubMeta, key, meta.Version)
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

func cmdHKeys(e *Engine, ctx context.Context, args [][]byte) reply.Reply {
	if len(args) != 1 {
		return errorReply(dberrors.ErrInvalidArguments)
	}
	key := args[0]

	result, err := store.View(e.store, func(txn store.Txn) (reply.Reply, error) {
		meta, present, err := Guard(txn, e.cfg, key, metarecord.TypeHash, nowMillis())
		if err != nil {
			return reply.Reply{}, err
		}
		if !present {
			return reply.Array(nil), nil
		}
		start, end := codec.HashDataRange(key, meta.Version)
		keys, err := txn.ScanKeys(store.CFHashData, start, end, 0)
		if err != nil {
			return reply.Reply{}, err
		}
		out := make([][]byte, 0, len(keys))
		for _, k := range keys {
			field, err := codec.DecodeHashField(key, meta.Version, k)
			if err != nil {
				continue
			}
			out = append(out, field)
		}
		return reply.BulkArray(out), nil
	})
	if err != nil {
		return errorReply(err)
	}
	return result
}

func cmdHVals(e *Engine, ctx context.Context, args [][]byte) reply.Reply {
	if len(args) != 1 {
		return errorReply(dberrors.ErrInvalidArguments)
	}
	key := args[0]

	result, err := store.View(e.store, func(txn store.Txn) (reply.Reply, error) {
		meta, present, err := Guard(txn, e.cfg, key, metarecord.TypeHash, nowMillis())
		if err != nil {
			return reply.Reply{}, err
		}
		if !present {
			return reply.Array(nil), nil
		}
		start, end := codec.HashDataRange(key, meta.Version)
		pairs, err := txn.Scan(store.CFHashData, start, end, 0)
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

func cmdHGetAll(e *Engine, ctx context.Context, args [][]byte) reply.Reply {
	if len(args) != 1 {
		return errorReply(dberrors.ErrInvalidArguments)
	}
	key := args[0]

	result, err := store.View(e.store, func(txn store.Txn) (reply.Reply, error) {
		meta, present, err := Guard(txn, e.cfg, key, metarecord.TypeHash, nowMillis())
		if err != nil {
			return reply.Reply{}, err
		}
		if !present {
			return reply.Array(nil), nil
		}
		start, end := codec.HashDataRange(key, meta.Version)
		pairs, err := txn.Scan(store.CFHashData, start, end, 0)
		if err != nil {
			return reply.Reply{}, err
		}
		out := make([]reply.Reply, 0, len(pairs)*2)
		for _, kv := range pairs {
			field, err := codec.DecodeHashField(key, meta.Version, kv.Key)
			if err != nil {
				continue
			}
			out = append(out, reply.Bulk(field), reply.Bulk(kv.Value))
		}
		return reply.Array(out), nil
	})
	if err != nil {
		return errorReply(err)
	}
	return result
}

func cmdHDel(e *Engine, ctx context.Context, args [][]byte) reply.Reply {
	if len(args) < 2 {
		return errorReply(dberrors.ErrInvalidArguments)
	}
	key, fields := args[0], args[1:]

	result, err := retryCall(ctx, e.cfg, key, func() (reply.Reply, error) {
		return store.ExecTxn(ctx, e.store, func(txn store.Txn) (reply.Reply, error) {
			meta, present, err := Guard(txn, e.cfg, key, metarecord.TypeHash, nowMillis())
			if err != nil {
				return reply.Reply{}, err
			}
			if !present {
				return reply.Integer(0), nil
			}

			var removed int64
			for _, field := range fields {
				dataKey := codec.HashDataKey(key, meta.Version, field)
				_, existed, err := txn.Get(store.CFHashData, dataKey)
				if err != nil {
					return reply.Reply{}, err
				}
				if !existed {
					continue
				}
				if err := txn.Delete(store.CFHashData, dataKey); err != nil {
					return reply.Reply{}, err
				}
				removed++
			}
			if removed > 0 {
				shard := e.picker.Next(e.cfg.MetaKeyNumber)
				if err := submeta.Add(txn, store.CFHashSubMeta, key, meta.Version, shard, -removed); err != nil {
					return reply.Reply{}, err
				}
			}

			remaining, err := submeta.Total(txn, store.CFHashSubMeta, key, meta.Version)
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

func cmdHIncrBy(e *Engine, ctx context.Context, args [][]byte) reply.Reply {
	if len(args) != 3 {
		return errorReply(dberrors.ErrInvalidArguments)
	}
	key, field := args[0], args[1]
	step, err := parseIncrStep(args[2])
	if err != nil {
		return errorReply(err)
	}

	result, err := retryCall(ctx, e.cfg, key, func() (reply.Reply, error) {
		return store.ExecTxn(ctx, e.store, func(txn store.Txn) (reply.Reply, error) {
			meta, present, err := Guard(txn, e.cfg, key, metarecord.TypeHash, nowMillis())
			if err != nil {
				return reply.Reply{}, err
			}
			ver := meta.Version
			if !present {
				ver, err = version.ForNew(txn, key)
				if err != nil {
					return reply.Reply{}, err
				}
				if err := txn.Put(store.CFMeta, codec.MetaKey(key), metarecord.Meta{Type: metarecord.TypeHash, Version: ver}.Encode()); err != nil {
					return reply.Reply{}, err
				}
			}

			dataKey := codec.HashDataKey(key, ver, field)
			var cur int64
			existing, existed, err := txn.Get(store.CFHashData, dataKey)
			if err != nil {
				return reply.Reply{}, err
			}
			if existed {
				cur, err = parseInt64(existing)
				if err != nil {
					return reply.Reply{}, err
				}
			}

			newVal, err := addChecked(cur, step)
			if err != nil {
				return reply.Reply{}, err
			}
			if err := txn.Put(store.CFHashData, dataKey, []byte(formatInt(newVal))); err != nil {
				return reply.Reply{}, err
			}

			if !existed {
				shard := e.picker.Next(e.cfg.MetaKeyNumber)
				if err := submeta.Add(txn, store.CFHashSubMeta, key, ver, shard, 1); err != nil {
					return reply.Reply{}, err
				}
			}

			return reply.Integer(newVal), nil
		})
	})
	if err != nil {
		return errorReply(err)
	}
	return result
}
