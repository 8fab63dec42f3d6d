package engine

import (
	"bytes"
	"context"

	"github.com/duskdb/duskdb/internal/codec"
	"github.com/duskdb/duskdb/internal/dberrors"
	"github.com/duskdb/duskdb/internal/engine/reply"
	"github.com/duskdb/duskdb/internal/metarecord"
	"github.com/duskdb/duskdb/internal/store"
	"github.com/duskdb/duskdb/internal/submeta"
	"github.com/duskdb/duskdb/internal/version"
)

// zsetOps implements typeOps for TypeZSet. A zset keeps two lockstep
// indices (member->score in CFZSetData, (score,member)->member in
// CFZSetScore) plus the same sharded cardinality counter hash/set use.
type zsetOps struct{}

func (zsetOps) Cardinality(txn store.Txn, userKey []byte, meta metarecord.Meta) (int64, error) {
	return submeta.Total(txn, store.CFZSetSubMeta, userKey, meta.Version)
}

func (zsetOps) DeleteData(txn store.Txn, userKey []byte, meta metarecord.Meta) error {
	start, end := codec.ZSetDataRange(userKey, meta.Version)
	keys, err := txn.ScanKeys(store.CFZSetData, start, end, 0)
	if err != nil {
		return err
	}
	for _, k := range keys {
		if err := txn.Delete(store.CFZSetData, k); err != nil {
			return err
		}
	}

	scoreStart, scoreEnd := codec.ZSetScoreFullRange(userKey, meta.Version)
	scoreKeys, err := txn.ScanKeys(store.CFZSetScore, scoreStart, scoreEnd, 0)
	if err != nil {
		return err
	}
	for _, k := range scoreKeys {
		if err := txn.Delete(store.CFZSetScore, k); err != nil {
			return err
		}
	}

	return submeta.DeleteAll(txn, store.CFZSetSubMeta, userKey, meta.Version)
}

func init() {
	register("ZADD", cmdZAdd)
	register("ZCARD", cmdZCard)
	register("ZSCORE", cmdZScore)
	register("ZRANGE", cmdZRange)
	register("ZREVRANGE", cmdZRevRange)
	register("ZRANGEBYSCORE", cmdZRangeByScore)
	register("ZREVRANGEBYSCORE", cmdZRevRangeByScore)
	register("ZINCRBY", cmdZIncrBy)
	register("ZRANK", cmdZRank)
	register("ZPOPMIN", cmdZPopMin)
	register("ZPOPMAX", cmdZPopMax)
	register("ZCOUNT", cmdZCount)
	register("ZREM", cmdZRem)
	register("ZREMRANGEBYRANK", cmdZRemRangeByRank)
	register("ZREMRANGEBYSCORE", cmdZRemRangeByScore)
}

// zsetMemberScore reads a member's current score, if present.
func zsetMemberScore(txn store.Txn, userKey []byte, version uint16, member []byte) (float64, bool, error) {
	enc, ok, err := txn.Get(store.CFZSetData, codec.ZSetDataKey(userKey, version, member))
	if err != nil {
		return 0, false, err
	}
	if !ok {
		return 0, false, nil
	}
	return codec.DecodeScore(enc), true, nil
}

// zsetPut writes/updates a member's score in both lockstep indices,
// removing the old score-index entry first if the member already existed.
func zsetPut(txn store.Txn, userKey []byte, version uint16, member []byte, oldScore float64, hadOld bool, newScore float64) error {
	if hadOld {
		oldKey := codec.ZSetScoreKey(userKey, version, codec.EncodeScore(oldScore), member)
		if err := txn.Delete(store.CFZSetScore, oldKey); err != nil {
			return err
		}
	}
	if err := txn.Put(store.CFZSetData, codec.ZSetDataKey(userKey, version, member), codec.EncodeScore(newScore)); err != nil {
		return err
	}
	newKey := codec.ZSetScoreKey(userKey, version, codec.EncodeScore(newScore), member)
	if err := txn.Put(store.CFZSetScore, newKey, member); err != nil {
		return err
	}
	return nil
}

// zsetRemoveMember deletes a member from both lockstep indices.
func zsetRemoveMember(txn store.Txn, userKey []byte, version uint16, member []byte, score float64) error {
	if err := txn.Delete(store.CFZSetData, codec.ZSetDataKey(userKey, version, member)); err != nil {
		return err
	}
	return txn.Delete(store.CFZSetScore, codec.ZSetScoreKey(userKey, version, codec.EncodeScore(score), member))
}

type zaddFlags struct {
	nx, xx, gt, lt, ch bool
}

func cmdZAdd(e *Engine, ctx context.Context, args [][]byte) reply.Reply {
	if len(args) < 3 {
		return errorReply(dberrors.ErrInvalidArguments)
	}
	key := args[0]

	var flags zaddFlags
	i := 1
loop:
	for i < len(args) {
		switch string(args[i]) {
		case "NX", "nx":
			flags.nx = true
		case "XX", "xx":
			flags.xx = true
		case "GT", "gt":
			flags.gt = true
		case "LT", "lt":
			flags.lt = true
		case "CH", "ch":
			flags.ch = true
		case "INCR", "incr":
			return errorReply(dberrors.ErrInvalidArguments)
		default:
			break loop
		}
		i++
	}
	if flags.nx && flags.xx {
		return errorReply(dberrors.ErrInvalidArguments)
	}
	if flags.nx && (flags.gt || flags.lt) {
		return errorReply(dberrors.ErrInvalidArguments)
	}
	if flags.gt && flags.lt {
		return errorReply(dberrors.ErrInvalidArguments)
	}

	rest := args[i:]
	if len(rest) == 0 || len(rest)%2 != 0 {
		return errorReply(dberrors.ErrInvalidArguments)
	}

	type pair struct {
		score  float64
		member []byte
	}
	pairs := make([]pair, 0, len(rest)/2)
	for j := 0; j < len(rest); j += 2 {
		score, err := parseFloat64(rest[j])
		if err != nil {
			return errorReply(err)
		}
		pairs = append(pairs, pair{score: score, member: rest[j+1]})
	}

	result, err := retryCall(ctx, e.cfg, key, func() (reply.Reply, error) {
		return store.ExecTxn(ctx, e.store, func(txn store.Txn) (reply.Reply, error) {
			meta, present, err := Guard(txn, e.cfg, key, metarecord.TypeZSet, nowMillis())
			if err != nil {
				return reply.Reply{}, err
			}
			ver := meta.Version
			if !present {
				ver, err = version.ForNew(txn, key)
				if err != nil {
					return reply.Reply{}, err
				}
				if err := txn.Put(store.CFMeta, codec.MetaKey(key), metarecord.Meta{Type: metarecord.TypeZSet, Version: ver}.Encode()); err != nil {
					return reply.Reply{}, err
				}
			}

			var added, changed int64
			for _, p := range pairs {
				oldScore, hadOld, err := zsetMemberScore(txn, key, ver, p.member)
				if err != nil {
					return reply.Reply{}, err
				}

				if hadOld && flags.nx {
					continue
				}
				if !hadOld && flags.xx {
					continue
				}
				if hadOld && flags.gt && p.score <= oldScore {
					continue
				}
				if hadOld && flags.lt && p.score >= oldScore {
					continue
				}
				if hadOld && oldScore == p.score {
					continue
				}

				if err := zsetPut(txn, key, ver, p.member, oldScore, hadOld, p.score); err != nil {
					return reply.Reply{}, err
				}
				if !hadOld {
					added++
				}
				changed++
			}

			if added > 0 {
				shard := e.picker.Next(e.cfg.MetaKeyNumber)
				if err := submeta.Add(txn, store.CFZSetSubMeta, key, ver, shard, added); err != nil {
					return reply.Reply{}, err
				}
			}

			if flags.ch {
				return reply.Integer(changed), nil
			}
			return reply.Integer(added), nil
		})
	})
	if err != nil {
		return errorReply(err)
	}
	return result
}

func cmdZCard(e *Engine, ctx context.Context, args [][]byte) reply.Reply {
	if len(args) != 1 {
		return errorReply(dberrors.ErrInvalidArguments)
	}
	key := args[0]

	result, err := store.View(e.store, func(txn store.Txn) (reply.Reply, error) {
		meta, present, err := Guard(txn, e.cfg, key, metarecord.TypeZSet, nowMillis())
		if err != nil {
			return reply.Reply{}, err
		}
		if !present {
			return reply.Integer(0), nil
		}
		total, err := submeta.Total(txn, store.CFZSetSubMeta, key, meta.Version)
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

func cmdZScore(e *Engine, ctx context.Context, args [][]byte) reply.Reply {
	if len(args) != 2 {
		return errorReply(dberrors.ErrInvalidArguments)
	}
	key, member := args[0], args[1]

	result, err := store.View(e.store, func(txn store.Txn) (reply.Reply, error) {
		meta, present, err := Guard(txn, e.cfg, key, metarecord.TypeZSet, nowMillis())
		if err != nil {
			return reply.Reply{}, err
		}
		if !present {
			return reply.NilBulk(), nil
		}
		score, ok, err := zsetMemberScore(txn, key, meta.Version, member)
		if err != nil {
			return reply.Reply{}, err
		}
		if !ok {
			return reply.NilBulk(), nil
		}
		return reply.BulkString(formatFloat(score)), nil
	})
	if err != nil {
		return errorReply(err)
	}
	return result
}

func rangeReply(members [][]byte, scores []float64, withScores bool) reply.Reply {
	if !withScores {
		return reply.BulkArray(members)
	}
	out := make([]reply.Reply, 0, len(members)*2)
	for i, m := range members {
		out = append(out, reply.Bulk(m), reply.BulkString(formatFloat(scores[i])))
	}
	return reply.Array(out)
}

func parseWithScores(args [][]byte) (rest [][]byte, withScores bool) {
	if len(args) > 0 && (string(args[len(args)-1]) == "WITHSCORES" || string(args[len(args)-1]) == "withscores") {
		return args[:len(args)-1], true
	}
	return args, false
}

func cmdZRange(e *Engine, ctx context.Context, args [][]byte) reply.Reply {
	return zrangeByRank(e, ctx, args, false)
}

func cmdZRevRange(e *Engine, ctx context.Context, args [][]byte) reply.Reply {
	return zrangeByRank(e, ctx, args, true)
}

func zrangeByRank(e *Engine, ctx context.Context, args [][]byte, reverse bool) reply.Reply {
	if len(args) < 3 {
		return errorReply(dberrors.ErrInvalidArguments)
	}
	key := args[0]
	args, withScores := parseWithScores(args[1:])
	if len(args) != 2 {
		return errorReply(dberrors.ErrInvalidArguments)
	}
	rawStart, err := parseInt64(args[0])
	if err != nil {
		return errorReply(err)
	}
	rawStop, err := parseInt64(args[1])
	if err != nil {
		return errorReply(err)
	}

	result, err := store.View(e.store, func(txn store.Txn) (reply.Reply, error) {
		meta, present, err := Guard(txn, e.cfg, key, metarecord.TypeZSet, nowMillis())
		if err != nil {
			return reply.Reply{}, err
		}
		if !present {
			return reply.Array(nil), nil
		}

		members, scores, err := readZSetOrdered(txn, key, meta.Version)
		if err != nil {
			return reply.Reply{}, err
		}
		if reverse {
			reverseSlice(members)
			reverseSlice2(scores)
		}

		length := int64(len(members))
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
			return rangeReply(nil, nil, withScores), nil
		}
		return rangeReply(members[start:stop+1], scores[start:stop+1], withScores), nil
	})
	if err != nil {
		return errorReply(err)
	}
	return result
}

// readZSetOrdered returns every (member, score) in ascending-score order.
func readZSetOrdered(txn store.Txn, userKey []byte, version uint16) ([][]byte, []float64, error) {
	start, end := codec.ZSetScoreFullRange(userKey, version)
	pairs, err := txn.Scan(store.CFZSetScore, start, end, 0)
	if err != nil {
		return nil, nil, err
	}
	members := make([][]byte, len(pairs))
	scores := make([]float64, len(pairs))
	for i, kv := range pairs {
		member, err := codec.DecodeZSetScoreKey(userKey, version, kv.Key)
		if err != nil {
			member = kv.Value
		}
		members[i] = member
		score, err := codec.ZSetScoreKeyScore(userKey, version, kv.Key)
		if err == nil {
			scores[i] = score
		}
	}
	return members, scores, nil
}

func reverseSlice(s [][]byte) {
	for i, j := 0, len(s)-1; i < j; i, j = i+1, j-1 {
		s[i], s[j] = s[j], s[i]
	}
}

func reverseSlice2(s []float64) {
	for i, j := 0, len(s)-1; i < j; i, j = i+1, j-1 {
		s[i], s[j] = s[j], s[i]
	}
}

// parseScoreBound parses a ZRANGEBYSCORE-style bound: "+inf"/"-inf", a bare
// number (inclusive), or "(" prefixed number (exclusive).
func parseScoreBound(b []byte) (value float64, exclusive bool, err error) {
	s := string(b)
	if s == "+inf" {
		return codec.DecodeScore(codec.MaxScore()), false, nil
	}
	if s == "-inf" {
		return codec.DecodeScore(codec.MinScore()), false, nil
	}
	if len(s) > 0 && s[0] == '(' {
		v, err := parseFloat64([]byte(s[1:]))
		if err != nil {
			return 0, false, err
		}
		return v, true, nil
	}
	v, err := parseFloat64(b)
	if err != nil {
		return 0, false, err
	}
	return v, false, nil
}

func cmdZRangeByScore(e *Engine, ctx context.Context, args [][]byte) reply.Reply {
	return zrangeByScore(e, ctx, args, false)
}

func cmdZRevRangeByScore(e *Engine, ctx context.Context, args [][]byte) reply.Reply {
	return zrangeByScore(e, ctx, args, true)
}

func zrangeByScore(e *Engine, ctx context.Context, args [][]byte, reverse bool) reply.Reply {
	if len(args) < 3 {
		return errorReply(dberrors.ErrInvalidArguments)
	}
	key := args[0]
	args, withScores := parseWithScores(args[1:])
	if len(args) != 2 {
		return errorReply(dberrors.ErrInvalidArguments)
	}
	first, second := args[0], args[1]
	if reverse {
		first, second = second, first
	}
	minVal, minExcl, err := parseScoreBound(first)
	if err != nil {
		return errorReply(err)
	}
	maxVal, maxExcl, err := parseScoreBound(second)
	if err != nil {
		return errorReply(err)
	}

	result, err := store.View(e.store, func(txn store.Txn) (reply.Reply, error) {
		meta, present, err := Guard(txn, e.cfg, key, metarecord.TypeZSet, nowMillis())
		if err != nil {
			return reply.Reply{}, err
		}
		if !present {
			return reply.Array(nil), nil
		}

		members, scores, err := scanScoreRange(txn, key, meta.Version, minVal, minExcl, maxVal, maxExcl)
		if err != nil {
			return reply.Reply{}, err
		}
		if reverse {
			reverseSlice(members)
			reverseSlice2(scores)
		}
		return rangeReply(members, scores, withScores), nil
	})
	if err != nil {
		return errorReply(err)
	}
	return result
}

// scanScoreRange returns every (member, score) with minVal <= score <= maxVal
// (subject to exclusivity flags), in ascending-score order.
func scanScoreRange(txn store.Txn, userKey []byte, version uint16, minVal float64, minExcl bool, maxVal float64, maxExcl bool) ([][]byte, []float64, error) {
	start, end := codec.ZSetScoreRange(userKey, version, codec.EncodeScore(minVal), codec.EncodeScore(maxVal))
	pairs, err := txn.Scan(store.CFZSetScore, start, end, 0)
	if err != nil {
		return nil, nil, err
	}

	var members [][]byte
	var scores []float64
	for _, kv := range pairs {
		score, serr := codec.ZSetScoreKeyScore(userKey, version, kv.Key)
		if serr != nil {
			continue
		}
		if minExcl && score == minVal {
			continue
		}
		if maxExcl && score == maxVal {
			continue
		}
		member, derr := codec.DecodeZSetScoreKey(userKey, version, kv.Key)
		if derr != nil {
			member = kv.Value
		}
		members = append(members, member)
		scores = append(scores, score)
	}
	return members, scores, nil
}

func cmdZIncrBy(e *Engine, ctx context.Context, args [][]byte) reply.Reply {
	if len(args) != 3 {
		return errorReply(dberrors.ErrInvalidArguments)
	}
	key, member := args[0], args[2]
	step, err := parseFloat64(args[1])
	if err != nil {
		return errorReply(err)
	}

	result, err := retryCall(ctx, e.cfg, key, func() (reply.Reply, error) {
		return store.ExecTxn(ctx, e.store, func(txn store.Txn) (reply.Reply, error) {
			meta, present, err := Guard(txn, e.cfg, key, metarecord.TypeZSet, nowMillis())
			if err != nil {
				return reply.Reply{}, err
			}
			ver := meta.Version
			if !present {
				ver, err = version.ForNew(txn, key)
				if err != nil {
					return reply.Reply{}, err
				}
				if err := txn.Put(store.CFMeta, codec.MetaKey(key), metarecord.Meta{Type: metarecord.TypeZSet, Version: ver}.Encode()); err != nil {
					return reply.Reply{}, err
				}
			}

			oldScore, hadOld, err := zsetMemberScore(txn, key, ver, member)
			if err != nil {
				return reply.Reply{}, err
			}
			newScore := step
			if hadOld {
				newScore = oldScore + step
			}
			if err := zsetPut(txn, key, ver, member, oldScore, hadOld, newScore); err != nil {
				return reply.Reply{}, err
			}
			if !hadOld {
				shard := e.picker.Next(e.cfg.MetaKeyNumber)
				if err := submeta.Add(txn, store.CFZSetSubMeta, key, ver, shard, 1); err != nil {
					return reply.Reply{}, err
				}
			}
			return reply.BulkString(formatFloat(newScore)), nil
		})
	})
	if err != nil {
		return errorReply(err)
	}
	return result
}

func cmdZRank(e *Engine, ctx context.Context, args [][]byte) reply.Reply {
	if len(args) != 2 {
		return errorReply(dberrors.ErrInvalidArguments)
	}
	key, member := args[0], args[1]

	result, err := store.View(e.store, func(txn store.Txn) (reply.Reply, error) {
		meta, present, err := Guard(txn, e.cfg, key, metarecord.TypeZSet, nowMillis())
		if err != nil {
			return reply.Reply{}, err
		}
		if !present {
			return reply.NilBulk(), nil
		}
		_, ok, err := zsetMemberScore(txn, key, meta.Version, member)
		if err != nil {
			return reply.Reply{}, err
		}
		if !ok {
			return reply.NilBulk(), nil
		}

		members, _, err := readZSetOrdered(txn, key, meta.Version)
		if err != nil {
			return reply.Reply{}, err
		}
		for i, m := range members {
			if bytes.Equal(m, member) {
				return reply.Integer(int64(i)), nil
			}
		}
		return reply.NilBulk(), nil
	})
	if err != nil {
		return errorReply(err)
	}
	return result
}

func zpopCmd(e *Engine, ctx context.Context, args [][]byte, lowest bool) reply.Reply {
	if len(args) < 1 || len(args) > 2 {
		return errorReply(dberrors.ErrInvalidArguments)
	}
	key := args[0]
	count := int64(1)
	if len(args) == 2 {
		n, err := parseInt64(args[1])
		if err != nil {
			return errorReply(err)
		}
		if n < 0 {
			return errorReply(dberrors.ErrInvalidArguments)
		}
		count = n
	}

	result, err := retryCall(ctx, e.cfg, key, func() (reply.Reply, error) {
		return store.ExecTxn(ctx, e.store, func(txn store.Txn) (reply.Reply, error) {
			meta, present, err := Guard(txn, e.cfg, key, metarecord.TypeZSet, nowMillis())
			if err != nil {
				return reply.Reply{}, err
			}
			if !present {
				return reply.Array(nil), nil
			}

			members, scores, err := readZSetOrdered(txn, key, meta.Version)
			if err != nil {
				return reply.Reply{}, err
			}
			if !lowest {
				reverseSlice(members)
				reverseSlice2(scores)
			}

			n := int(count)
			if n > len(members) {
				n = len(members)
			}
			popped := members[:n]
			poppedScores := scores[:n]

			for i, m := range popped {
				if err := zsetRemoveMember(txn, key, meta.Version, m, poppedScores[i]); err != nil {
					return reply.Reply{}, err
				}
			}
			if n > 0 {
				shard := e.picker.Next(e.cfg.MetaKeyNumber)
				if err := submeta.Add(txn, store.CFZSetSubMeta, key, meta.Version, shard, -int64(n)); err != nil {
					return reply.Reply{}, err
				}
			}

			remaining, err := submeta.Total(txn, store.CFZSetSubMeta, key, meta.Version)
			if err != nil {
				return reply.Reply{}, err
			}
			if remaining <= 0 {
				if err := txn.Delete(store.CFMeta, codec.MetaKey(key)); err != nil {
					return reply.Reply{}, err
				}
			}

			return rangeReply(popped, poppedScores, true), nil
		})
	})
	if err != nil {
		return errorReply(err)
	}
	return result
}

func cmdZPopMin(e *Engine, ctx context.Context, args [][]byte) reply.Reply { return zpopCmd(e, ctx, args, true) }
func cmdZPopMax(e *Engine, ctx context.Context, args [][]byte) reply.Reply { return zpopCmd(e, ctx, args, false) }

func cmdZCount(e *Engine, ctx context.Context, args [][]byte) reply.Reply {
	if len(args) != 3 {
		return errorReply(dberrors.ErrInvalidArguments)
	}
	key := args[0]
	minVal, minExcl, err := parseScoreBound(args[1])
	if err != nil {
		return errorReply(err)
	}
	maxVal, maxExcl, err := parseScoreBound(args[2])
	if err != nil {
		return errorReply(err)
	}

	result, err := store.View(e.store, func(txn store.Txn) (reply.Reply, error) {
		meta, present, err := Guard(txn, e.cfg, key, metarecord.TypeZSet, nowMillis())
		if err != nil {
			return reply.Reply{}, err
		}
		if !present {
			return reply.Integer(0), nil
		}
		members, _, err := scanScoreRange(txn, key, meta.Version, minVal, minExcl, maxVal, maxExcl)
		if err != nil {
			return reply.Reply{}, err
		}
		return reply.Integer(int64(len(members))), nil
	})
	if err != nil {
		return errorReply(err)
	}
	return result
}

func cmdZRem(e *Engine, ctx context.Context, args [][]byte) reply.Reply {
	if len(args) < 2 {
		return errorReply(dberrors.ErrInvalidArguments)
	}
	key, members := args[0], args[1:]

	result, err := retryCall(ctx, e.cfg, key, func() (reply.Reply, error) {
		return store.ExecTxn(ctx, e.store, func(txn store.Txn) (reply.Reply, error) {
			meta, present, err := Guard(txn, e.cfg, key, metarecord.TypeZSet, nowMillis())
			if err != nil {
				return reply.Reply{}, err
			}
			if !present {
				return reply.Integer(0), nil
			}

			var removed int64
			for _, member := range members {
				score, ok, err := zsetMemberScore(txn, key, meta.Version, member)
				if err != nil {
					return reply.Reply{}, err
				}
				if !ok {
					continue
				}
				if err := zsetRemoveMember(txn, key, meta.Version, member, score); err != nil {
					return reply.Reply{}, err
				}
				removed++
			}
			if removed > 0 {
				shard := e.picker.Next(e.cfg.MetaKeyNumber)
				if err := submeta.Add(txn, store.CFZSetSubMeta, key, meta.Version, shard, -removed); err != nil {
					return reply.Reply{}, err
				}
			}

			remaining, err := submeta.Total(txn, store.CFZSetSubMeta, key, meta.Version)
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

func cmdZRemRangeByRank(e *Engine, ctx context.Context, args [][]byte) reply.Reply {
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
			meta, present, err := Guard(txn, e.cfg, key, metarecord.TypeZSet, nowMillis())
			if err != nil {
				return reply.Reply{}, err
			}
			if !present {
				return reply.Integer(0), nil
			}

			members, scores, err := readZSetOrdered(txn, key, meta.Version)
			if err != nil {
				return reply.Reply{}, err
			}

			length := int64(len(members))
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
				return reply.Integer(0), nil
			}

			victims := members[start : stop+1]
			victimScores := scores[start : stop+1]
			for i, m := range victims {
				if err := zsetRemoveMember(txn, key, meta.Version, m, victimScores[i]); err != nil {
					return reply.Reply{}, err
				}
			}
			removed := int64(len(victims))
			if removed > 0 {
				shard := e.picker.Next(e.cfg.MetaKeyNumber)
				if err := submeta.Add(txn, store.CFZSetSubMeta, key, meta.Version, shard, -removed); err != nil {
					return reply.Reply{}, err
				}
			}

			remaining, err := submeta.Total(txn, store.CFZSetSubMeta, key, meta.Version)
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

func cmdZRemRangeByScore(e *Engine, ctx context.Context, args [][]byte) reply.Reply {
	if len(args) != 3 {
		return errorReply(dberrors.ErrInvalidArguments)
	}
	key := args[0]
	minVal, minExcl, err := parseScoreBound(args[1])
	if err != nil {
		return errorReply(err)
	}
	maxVal, maxExcl, err := parseScoreBound(args[2])
	if err != nil {
		return errorReply(err)
	}

	result, err := retryCall(ctx, e.cfg, key, func() (reply.Reply, error) {
		return store.ExecTxn(ctx, e.store, func(txn store.Txn) (reply.Reply, error) {
			meta, present, err := Guard(txn, e.cfg, key, metarecord.TypeZSet, nowMillis())
			if err != nil {
				return reply.Reply{}, err
			}
			if !present {
				return reply.Integer(0), nil
			}

			members, scores, err := scanScoreRange(txn, key, meta.Version, minVal, minExcl, maxVal, maxExcl)
			if err != nil {
				return reply.Reply{}, err
			}
			for i, m := range members {
				if err := zsetRemoveMember(txn, key, meta.Version, m, scores[i]); err != nil {
					return reply.Reply{}, err
				}
			}
			removed := int64(len(members))
			if removed > 0 {
				shard := e.picker.Next(e.cfg.MetaKeyNumber)
				if err := submeta.Add(txn, store.CFZSetSubMeta, key, meta.Version, shard, -removed); err != nil {
					return reply.Reply{}, err
				}
			}

			remaining, err := submeta.Total(txn, store.CFZSetSubMeta, key, meta.Version)
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
