package engine

import (
	"context"
	"errors"
	"math/rand"
	"time"

	"github.com/cespare/xxhash/v2"

	"github.com/duskdb/duskdb/internal/config"
	"github.com/duskdb/duskdb/internal/metrics"
	"github.com/duskdb/duskdb/internal/store"
)

// retryCall implements Open Question (c): run fn (an exec_txn-wrapped
// closure) up to cfg.TxnRetryMaxAttempts times, retrying only on
// store.ErrConflict with exponential backoff from cfg.TxnRetryBaseDelay,
// jittered so hot-key conflicts don't phase-lock across goroutines. Any
// other error (a logical error such as ErrWrongType or ErrNotInteger) is
// returned immediately without retry.
func retryCall[T any](ctx context.Context, cfg config.Config, jitterSeed []byte, fn func() (T, error)) (T, error) {
	var zero T

	maxAttempts := cfg.TxnRetryMaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	base := cfg.TxnRetryBaseDelay.Duration
	if base <= 0 {
		base = 50 * time.Millisecond
	}

	rng := rand.New(rand.NewSource(int64(xxhash.Sum64(jitterSeed))))

	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		result, err := fn()
		if err == nil {
			return result, nil
		}

		if !errors.Is(err, store.ErrConflict) {
			return zero, err
		}

		metrics.TxnConflictsTotal.Inc()
		lastErr = err

		if attempt == maxAttempts-1 {
			break
		}

		delay := base << attempt
		jitter := time.Duration(rng.Int63n(int64(base) + 1))
		wait := delay + jitter

		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		case <-time.After(wait):
		}
	}

	return zero, lastErr
}
