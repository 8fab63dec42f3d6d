package engine

import (
	"context"
	"regexp"

	"github.com/duskdb/duskdb/internal/codec"
	"github.com/duskdb/duskdb/internal/config"
	"github.com/duskdb/duskdb/internal/dberrors"
	"github.com/duskdb/duskdb/internal/engine/reply"
	"github.com/duskdb/duskdb/internal/metarecord"
	"github.com/duskdb/duskdb/internal/store"
)

// These key-space commands are type-agnostic: DEL, EXISTS, TYPE, TTL/PTTL,
// EXPIRE family, KEYS, SCAN.
func init() {
	register("DEL", cmdDel)
	register("EXISTS", cmdExists)
	register("TYPE", cmdType)
	register("TTL", cmdTTL)
	register("PTTL", cmdPTTL)
	register("EXPIRE", cmdExpire)
	register("PEXPIRE", cmdPExpire)
	register("EXPIREAT", cmdExpireAt)
	register("PEXPIREAT", cmdPExpireAt)
	register("KEYS", cmdKeys)
	register("SCAN", cmdScan)
}

func cmdDel(e *Engine, ctx context.Context, args [][]byte) reply.Reply {
	if len(args) == 0 {
		return errorReply(dberrors.ErrInvalidArguments)
	}

	result, err := retryCall(ctx, e.cfg, args[0], func() (reply.Reply, error) {
		return store.ExecTxn(ctx, e.store, func(txn store.Txn) (reply.Reply, error) {
			var removed int64
			for _, key := range args {
				deleted, err := deleteKey(txn, e.cfg, key, func(t config.Thresholds) int64 { return t.AsyncDeleteThreshold })
				if err != nil {
					return reply.Reply{}, err
				}
				if deleted {
					removed++
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

func cmdExists(e *Engine, ctx context.Context, args [][]byte) reply.Reply {
	if len(args) == 0 {
		return errorReply(dberrors.ErrInvalidArguments)
	}

	result, err := retryCall(ctx, e.cfg, args[0], func() (reply.Reply, error) {
		return store.ExecTxn(ctx, e.store, func(txn store.Txn) (reply.Reply, error) {
			var count int64
			for _, key := range args {
				_, present, err := Guard(txn, e.cfg, key, metarecord.TypeNone, nowMillis())
				if err != nil {
					return reply.Reply{}, err
				}
				if present {
					count++
				}
			}
			return reply.Integer(count), nil
		})
	})
	if err != nil {
		return errorReply(err)
	}
	return result
}

func cmdType(e *Engine, ctx context.Context, args [][]byte) reply.Reply {
	if len(args) != 1 {
		return errorReply(dberrors.ErrInvalidArguments)
	}
	key := args[0]

	result, err := store.View(e.store, func(txn store.Txn) (reply.Reply, error) {
		meta, present, err := Guard(txn, e.cfg, key, metarecord.TypeNone, nowMillis())
		if err != nil {
			return reply.Reply{}, err
		}
		if !present {
			return reply.Simple("none"), nil
		}
		return reply.Simple(meta.Type.String()), nil
	})
	if err != nil {
		return errorReply(err)
	}
	return result
}

func ttlReply(e *Engine, ctx context.Context, args [][]byte, millis bool) reply.Reply {
	if len(args) != 1 {
		return errorReply(dberrors.ErrInvalidArguments)
	}
	key := args[0]

	result, err := store.View(e.store, func(txn store.Txn) (reply.Reply, error) {
		meta, present, err := Guard(txn, e.cfg, key, metarecord.TypeNone, nowMillis())
		if err != nil {
			return reply.Reply{}, err
		}
		if !present {
			return reply.Integer(-2), nil
		}
		if meta.TTLMs == 0 {
			return reply.Integer(-1), nil
		}
		remaining := meta.TTLMs - nowMillis()
		if remaining < 0 {
			remaining = 0
		}
		if !millis {
			remaining /= 1000
		}
		return reply.Integer(remaining), nil
	})
	if err != nil {
		return errorReply(err)
	}
	return result
}

func cmdTTL(e *Engine, ctx context.Context, args [][]byte) reply.Reply  { return ttlReply(e, ctx, args, false) }
func cmdPTTL(e *Engine, ctx context.Context, args [][]byte) reply.Reply { return ttlReply(e, ctx, args, true) }

func expireReply(e *Engine, ctx context.Context, args [][]byte, toDeadline func(int64) int64) reply.Reply {
	if len(args) != 2 {
		return errorReply(dberrors.ErrInvalidArguments)
	}
	key := args[0]
	raw, err := parseInt64(args[1])
	if err != nil {
		return errorReply(err)
	}
	deadline := toDeadline(raw)

	result, err := retryCall(ctx, e.cfg, key, func() (reply.Reply, error) {
		return store.ExecTxn(ctx, e.store, func(txn store.Txn) (reply.Reply, error) {
			ok, err := ExpireSet(txn, key, metarecord.TypeNone, deadline)
			if err != nil {
				return reply.Reply{}, err
			}
			if !ok {
				return reply.Integer(0), nil
			}
			return reply.Integer(1), nil
		})
	})
	if err != nil {
		return errorReply(err)
	}
	return result
}

func cmdExpire(e *Engine, ctx context.Context, args [][]byte) reply.Reply {
	return expireReply(e, ctx, args, func(secs int64) int64 { return nowMillis() + secs*1000 })
}

func cmdPExpire(e *Engine, ctx context.Context, args [][]byte) reply.Reply {
	return expireReply(e, ctx, args, func(ms int64) int64 { return nowMillis() + ms })
}

func cmdExpireAt(e *Engine, ctx context.Context, args [][]byte) reply.Reply {
	return expireReply(e, ctx, args, func(secs int64) int64 { return secs * 1000 })
}

func cmdPExpireAt(e *Engine, ctx context.Context, args [][]byte) reply.Reply {
	return expireReply(e, ctx, args, func(ms int64) int64 { return ms })
}

const defaultScanCount = 10

func cmdKeys(e *Engine, ctx context.Context, args [][]byte) reply.Reply {
	if len(args) != 1 {
		return errorReply(dberrors.ErrInvalidArguments)
	}
	re, err := regexp.Compile(string(args[0]))
	if err != nil {
		return errorReply(dberrors.ErrInvalidArguments)
	}

	result, err := store.View(e.store, func(txn store.Txn) ([][]byte, error) {
		start, end := codec.MetaRange()
		pairs, err := txn.Scan(store.CFMeta, start, end, 0)
		if err != nil {
			return nil, err
		}

		var out [][]byte
		now := nowMillis()
		for _, kv := range pairs {
			meta, err := metarecord.Decode(kv.Value)
			if err != nil {
				continue
			}
			if meta.TTLMs != 0 && meta.TTLMs <= now {
				continue
			}
			userKey, err := codec.DecodeMetaKey(kv.Key)
			if err != nil {
				continue
			}
			if re.Match(userKey) {
				out = append(out, userKey)
			}
		}
		return out, nil
	})
	if err != nil {
		return errorReply(err)
	}
	return reply.BulkArray(result)
}

// cmdScan implements SCAN cursor [MATCH pattern] [COUNT n]. The returned
// cursor is the encoded Meta key of the last entry the page scanned (opaque
// to callers), and the next call resumes strictly after it, per Open
// Question (b); an empty cursor both starts and ends a traversal.
func cmdScan(e *Engine, ctx context.Context, args [][]byte) reply.Reply {
	if len(args) < 1 {
		return errorReply(dberrors.ErrInvalidArguments)
	}
	cursor := args[0]

	pattern := ""
	count := defaultScanCount
	for i := 1; i < len(args); i++ {
		switch string(args[i]) {
		case "MATCH", "match":
			if i+1 >= len(args) {
				return errorReply(dberrors.ErrInvalidArguments)
			}
			pattern = string(args[i+1])
			i++
		case "COUNT", "count":
			if i+1 >= len(args) {
				return errorReply(dberrors.ErrInvalidArguments)
			}
			n, err := parseInt64(args[i+1])
			if err != nil {
				return errorReply(err)
			}
			if n <= 0 {
				return errorReply(dberrors.ErrInvalidArguments)
			}
			count = int(n)
			i++
		default:
			return errorReply(dberrors.ErrInvalidArguments)
		}
	}

	var re *regexp.Regexp
	if pattern != "" {
		compiled, err := regexp.Compile(pattern)
		if err != nil {
			return errorReply(dberrors.ErrInvalidArguments)
		}
		re = compiled
	}

	type scanResult struct {
		next    []byte
		matched [][]byte
	}

	result, err := store.View(e.store, func(txn store.Txn) (scanResult, error) {
		_, metaEnd := codec.MetaRange()

		start := codec.MetaKeyScanStart(cursor)
		pairs, err := txn.Scan(store.CFMeta, start, metaEnd, count)
		if err != nil {
			return scanResult{}, err
		}

		var res scanResult
		now := nowMillis()
		for _, kv := range pairs {
			meta, err := metarecord.Decode(kv.Value)
			if err != nil {
				continue
			}
			res.next = kv.Key
			if meta.TTLMs != 0 && meta.TTLMs <= now {
				continue
			}
			userKey, err := codec.DecodeMetaKey(kv.Key)
			if err != nil {
				continue
			}
			if re != nil && !re.Match(userKey) {
				continue
			}
			res.matched = append(res.matched, userKey)
		}

		if len(pairs) < count {
			res.next = nil
		}
		return res, nil
	})
	if err != nil {
		return errorReply(err)
	}

	nextCursor := []byte{}
	if result.next != nil {
		nextCursor = result.next
	}

	return reply.Array([]reply.Reply{
		reply.Bulk(nextCursor),
		reply.BulkArray(result.matched),
	})
}
