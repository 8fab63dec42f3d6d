package engine

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/duskdb/duskdb/internal/codec"
	"github.com/duskdb/duskdb/internal/dberrors"
	"github.com/duskdb/duskdb/internal/engine/reply"
	"github.com/duskdb/duskdb/internal/metarecord"
	"github.com/duskdb/duskdb/internal/store"
	"github.com/duskdb/duskdb/internal/version"
)

// stringOps implements typeOps for TypeString. A string's entire state is
// embedded in its Meta record, so there is nothing to fan out: cardinality
// is always zero and DeleteData is a no-op.
type stringOps struct{}

func (stringOps) Cardinality(store.Txn, []byte, metarecord.Meta) (int64, error) { return 0, nil }
func (stringOps) DeleteData(store.Txn, []byte, metarecord.Meta) error           { return nil }

func init() {
	register("GET", cmdGet)
	register("SET", cmdSet)
	register("GETDEL", cmdGetDel)
	register("INCR", cmdIncr)
	register("DECR", cmdDecr)
	register("INCRBY", cmdIncrBy)
	register("DECRBY", cmdDecrBy)
	register("MSET", cmdMSet)
	register("MGET", cmdMGet)
	register("STRLEN", cmdStrlen)
}

func cmdGet(e *Engine, ctx context.Context, args [][]byte) reply.Reply {
	if len(args) != 1 {
		return errorReply(dberrors.ErrInvalidArguments)
	}
	key := args[0]

	result, err := retryCall(ctx, e.cfg, key, func() (reply.Reply, error) {
		return store.ExecTxn(ctx, e.store, func(txn store.Txn) (reply.Reply, error) {
			meta, present, err := Guard(txn, e.cfg, key, metarecord.TypeString, nowMillis())
			if err != nil {
				return reply.Reply{}, err
			}
			if !present {
				return reply.NilBulk(), nil
			}
			return reply.Bulk(meta.StringValue), nil
		})
	})
	if err != nil {
		return errorReply(err)
	}
	return result
}

func cmdGetDel(e *Engine, ctx context.Context, args [][]byte) reply.Reply {
	if len(args) != 1 {
		return errorReply(dberrors.ErrInvalidArguments)
	}
	key := args[0]

	result, err := retryCall(ctx, e.cfg, key, func() (reply.Reply, error) {
		return store.ExecTxn(ctx, e.store, func(txn store.Txn) (reply.Reply, error) {
			meta, present, err := Guard(txn, e.cfg, key, metarecord.TypeString, nowMillis())
			if err != nil {
				return reply.Reply{}, err
			}
			if !present {
				return reply.NilBulk(), nil
			}
			if err := txn.Delete(store.CFMeta, codec.MetaKey(key)); err != nil {
				return reply.Reply{}, err
			}
			return reply.Bulk(meta.StringValue), nil
		})
	})
	if err != nil {
		return errorReply(err)
	}
	return result
}

func cmdSet(e *Engine, ctx context.Context, args [][]byte) reply.Reply {
	if len(args) < 2 {
		return errorReply(dberrors.ErrInvalidArguments)
	}
	key, value := args[0], args[1]

	var ttlMs int64
	var nx bool

	i := 2
	for i < len(args) {
		switch strings.ToUpper(string(args[i])) {
		case "EX":
			if i+1 >= len(args) {
				return errorReply(dberrors.ErrInvalidArguments)
			}
			secs, err := parseInt64(args[i+1])
			if err != nil {
				return errorReply(err)
			}
			ttlMs = nowMillis() + secs*1000
			i += 2
		case "PX":
			if i+1 >= len(args) {
				return errorReply(dberrors.ErrInvalidArguments)
			}
			ms, err := parseInt64(args[i+1])
			if err != nil {
				return errorReply(err)
			}
			ttlMs = nowMillis() + ms
			i += 2
		case "NX":
			nx = true
			i++
		default:
			return errorReply(dberrors.ErrInvalidArguments)
		}
	}

	result, err := retryCall(ctx, e.cfg, key, func() (reply.Reply, error) {
		return store.ExecTxn(ctx, e.store, func(txn store.Txn) (reply.Reply, error) {
			meta, present, err := Guard(txn, e.cfg, key, metarecord.TypeString, nowMillis())
			if err != nil {
				return reply.Reply{}, err
			}
			if nx && present {
				return reply.NilBulk(), nil
			}

			ver := meta.Version
			if !present {
				v, verr := version.ForNew(txn, key)
				if verr != nil {
					return reply.Reply{}, verr
				}
				ver = v
			}

			newMeta := metarecord.Meta{Type: metarecord.TypeString, TTLMs: ttlMs, Version: ver, StringValue: value}
			if err := txn.Put(store.CFMeta, codec.MetaKey(key), newMeta.Encode()); err != nil {
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

func cmdIncr(e *Engine, ctx context.Context, args [][]byte) reply.Reply {
	return applyStep(e, ctx, args, 1, false)
}

func cmdDecr(e *Engine, ctx context.Context, args [][]byte) reply.Reply {
	return applyStep(e, ctx, args, -1, false)
}

func cmdIncrBy(e *Engine, ctx context.Context, args [][]byte) reply.Reply {
	return applyStep(e, ctx, args, 1, true)
}

func cmdDecrBy(e *Engine, ctx context.Context, args [][]byte) reply.Reply {
	return applyStep(e, ctx, args, -1, true)
}

// applyStep implements INCR/DECR/INCRBY/DECRBY. HINCRBY does not call it; it
// shares only the parseIncrStep/addChecked helpers. sign is +1 for INCR family, -1 for DECR family; explicitArg
// selects whether a step argument is read (...BY variants) or defaults to 1.
func applyStep(e *Engine, ctx context.Context, args [][]byte, sign int64, explicitArg bool) reply.Reply {
	wantArgs := 1
	if explicitArg {
		wantArgs = 2
	}
	if len(args) != wantArgs {
		return errorReply(dberrors.ErrInvalidArguments)
	}
	key := args[0]

	step := int64(1)
	if explicitArg {
		parsed, err := parseIncrStep(args[1])
		if err != nil {
			return errorReply(err)
		}
		step = parsed
	}
	if sign < 0 {
		negated, err := negChecked(step)
		if err != nil {
			return errorReply(err)
		}
		step = negated
	}

	result, err := retryCall(ctx, e.cfg, key, func() (reply.Reply, error) {
		return store.ExecTxn(ctx, e.store, func(txn store.Txn) (reply.Reply, error) {
			meta, present, err := Guard(txn, e.cfg, key, metarecord.TypeString, nowMillis())
			if err != nil {
				return reply.Reply{}, err
			}

			var cur int64
			var ver uint16
			var ttl int64
			if present {
				cur, err = parseInt64(meta.StringValue)
				if err != nil {
					return reply.Reply{}, err
				}
				ver = meta.Version
				ttl = meta.TTLMs
			} else {
				ver, err = version.ForNew(txn, key)
				if err != nil {
					return reply.Reply{}, err
				}
			}

			newVal, err := addChecked(cur, step)
			if err != nil {
				return reply.Reply{}, err
			}

			newMeta := metarecord.Meta{
				Type:        metarecord.TypeString,
				TTLMs:       ttl,
				Version:     ver,
				StringValue: []byte(strconv.FormatInt(newVal, 10)),
			}
			if err := txn.Put(store.CFMeta, codec.MetaKey(key), newMeta.Encode()); err != nil {
				return reply.Reply{}, err
			}
			return reply.Integer(newVal), nil
		})
	})
	if err != nil {
		return errorReply(err)
	}
	return result
}

func cmdMSet(e *Engine, ctx context.Context, args [][]byte) reply.Reply {
	if len(args) == 0 || len(args)%2 != 0 {
		return errorReply(dberrors.ErrInvalidArguments)
	}

	result, err := retryCall(ctx, e.cfg, args[0], func() (reply.Reply, error) {
		return store.ExecTxn(ctx, e.store, func(txn store.Txn) (reply.Reply, error) {
			for i := 0; i < len(args); i += 2 {
				key, value := args[i], args[i+1]
				meta, present, err := Guard(txn, e.cfg, key, metarecord.TypeString, nowMillis())
				if err != nil {
					return reply.Reply{}, err
				}
				ver := meta.Version
				if !present {
					v, verr := version.ForNew(txn, key)
					if verr != nil {
						return reply.Reply{}, verr
					}
					ver = v
				}
				newMeta := metarecord.Meta{Type: metarecord.TypeString, Version: ver, StringValue: value}
				if err := txn.Put(store.CFMeta, codec.MetaKey(key), newMeta.Encode()); err != nil {
					return reply.Reply{}, err
				}
			}
			return reply.OK(), nil
		})
	})
	if err != nil {
		return errorReply(err)
	}
	return result
}

func cmdMGet(e *Engine, ctx context.Context, args [][]byte) reply.Reply {
	if len(args) == 0 {
		return errorReply(dberrors.ErrInvalidArguments)
	}

	result, err := retryCall(ctx, e.cfg, args[0], func() (reply.Reply, error) {
		return store.ExecTxn(ctx, e.store, func(txn store.Txn) (reply.Reply, error) {
			out := make([]reply.Reply, len(args))
			for i, key := range args {
				meta, present, err := Guard(txn, e.cfg, key, metarecord.TypeString, nowMillis())
				if err != nil {
					if errors.Is(err, dberrors.ErrWrongType) {
						out[i] = reply.NilBulk()
						continue
					}
					return reply.Reply{}, err
				}
				if !present {
					out[i] = reply.NilBulk()
					continue
				}
				out[i] = reply.Bulk(meta.StringValue)
			}
			return reply.Array(out), nil
		})
	})
	if err != nil {
		return errorReply(err)
	}
	return result
}

func cmdStrlen(e *Engine, ctx context.Context, args [][]byte) reply.Reply {
	if len(args) != 1 {
		return errorReply(dberrors.ErrInvalidArguments)
	}
	key := args[0]

	result, err := retryCall(ctx, e.cfg, key, func() (reply.Reply, error) {
		return store.ExecTxn(ctx, e.store, func(txn store.Txn) (reply.Reply, error) {
			meta, present, err := Guard(txn, e.cfg, key, metarecord.TypeString, nowMillis())
			if err != nil {
				return reply.Reply{}, err
			}
			if !present {
				return reply.Integer(0), nil
			}
			return reply.Integer(int64(len(meta.StringValue))), nil
		})
	})
	if err != nil {
		return errorReply(err)
	}
	return result
}
