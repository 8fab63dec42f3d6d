package engine

import (
	"math"
	"strconv"

	"github.com/duskdb/duskdb/internal/dberrors"
)

// formatInt renders v as decimal ASCII, the on-disk form of every
// string/hash integer counter.
func formatInt(v int64) string {
	return strconv.FormatInt(v, 10)
}

// formatFloat renders a zset score the way ZSCORE/ZINCRBY reply with it:
// the shortest decimal string that round-trips to the same float64.
func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// parseInt64 parses b as a base-10 signed 64-bit integer, the representation
// every string/hash counter is stored in.
func parseInt64(b []byte) (int64, error) {
	v, err := strconv.ParseInt(string(b), 10, 64)
	if err != nil {
		return 0, dberrors.ErrNotInteger
	}
	return v, nil
}

// parseFloat64 parses b as a float64, for ZADD/ZINCRBY scores.
func parseFloat64(b []byte) (float64, error) {
	v, err := strconv.ParseFloat(string(b), 64)
	if err != nil {
		return 0, dberrors.ErrInvalidFloat
	}
	return v, nil
}

// parseIncrStep parses an INCRBY/DECRBY/HINCRBY argument as a signed
// 64-bit step. It special-cases the literal 2^63 (9223372036854775808),
// which does not fit in an int64 but is exactly the magnitude a DECRBY
// would need to negate down to int64's minimum value: rather than silently
// wrapping, it is rejected as an overflow up front, mirroring the
// original implementation's overflow check before negating the step.
func parseIncrStep(b []byte) (int64, error) {
	const boundary = uint64(math.MaxInt64) + 1

	if u, err := strconv.ParseUint(string(b), 10, 64); err == nil {
		if u == boundary {
			return 0, dberrors.ErrDecrementOverflow
		}
		if u <= uint64(math.MaxInt64) {
			return int64(u), nil
		}
		return 0, dberrors.ErrNotInteger
	}

	v, err := strconv.ParseInt(string(b), 10, 64)
	if err != nil {
		return 0, dberrors.ErrNotInteger
	}
	return v, nil
}

// addChecked computes cur+step, failing with ErrDecrementOverflow rather
// than silently wrapping on signed 64-bit overflow in either direction.
func addChecked(cur, step int64) (int64, error) {
	if step > 0 && cur > math.MaxInt64-step {
		return 0, dberrors.ErrDecrementOverflow
	}
	if step < 0 && cur < math.MinInt64-step {
		return 0, dberrors.ErrDecrementOverflow
	}
	return cur + step, nil
}

// negChecked negates step, failing rather than silently wrapping when step
// is math.MinInt64 (whose negation does not fit in an int64).
func negChecked(step int64) (int64, error) {
	if step == math.MinInt64 {
		return 0, dberrors.ErrDecrementOverflow
	}
	return -step, nil
}
