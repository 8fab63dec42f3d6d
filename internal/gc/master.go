// Package gc implements the asynchronous reclamation half of logical
// delete: a master loop that finds outstanding (user_key, version) pairs
// enqueued by the engine's txn_del/txn_expire paths, shards them across a
// fixed worker pool, and workers that physically erase the Data/Sub-meta/
// Score records a stale version left behind.
package gc

import (
	"context"
	"encoding/binary"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/duskdb/duskdb/internal/codec"
	"github.com/duskdb/duskdb/internal/config"
	"github.com/duskdb/duskdb/internal/logging"
	"github.com/duskdb/duskdb/internal/metarecord"
	"github.com/duskdb/duskdb/internal/metrics"
	"github.com/duskdb/duskdb/internal/store"
)

// Task is one outstanding reclamation: a user key, the stale version left
// behind after a logical delete or resurrection, and the type tag needed
// to pick the right fan-out (the key's current Meta, if any, may already
// belong to a newer version by the time GC runs).
type Task struct {
	UserKey []byte
	Version uint16
	Type    metarecord.TypeTag
}

// Master owns the worker pool and the scan/dispatch ticker loop.
type Master struct {
	store   *store.Store
	cfg     config.Config
	logger  *slog.Logger
	workers []*worker
	eg      *errgroup.Group
}

// NewMaster builds a Master with cfg.AsyncGCWorkerNumber workers, each
// backed by a FIFO queue bounded at cfg.AsyncGCWorkerQueueSize.
func NewMaster(st *store.Store, cfg config.Config, logger *slog.Logger) *Master {
	metrics.Init()
	if logger == nil {
		logger = slog.Default()
	}
	logger = logging.Tag(logger, logging.ComponentGC)
	n := cfg.AsyncGCWorkerNumber
	if n <= 0 {
		n = 1
	}
	workers := make([]*worker, n)
	for i := range workers {
		workers[i] = newWorker(i, st, cfg, logger)
	}
	return &Master{store: st, cfg: cfg, logger: logger, workers: workers}
}

// Start launches the worker pool, runs an initial synchronous scan, then
// starts a ticker that re-scans every AsyncGCIntervalMS. A no-op if async deletion
// is disabled in config.
// Start returns once the initial scan and the background goroutines are
// launched; it does not block for the lifetime of ctx.
func (m *Master) Start(ctx context.Context) {
	if !m.cfg.AsyncDeletionEnabled {
		return
	}

	eg, egCtx := errgroup.WithContext(ctx)
	m.eg = eg
	for _, w := range m.workers {
		w := w
		eg.Go(func() error {
			w.run(egCtx)
			return nil
		})
	}

	if err := m.scanAndDispatch(ctx); err != nil {
		m.logger.Error("initial scan failed", "err", err)
	}

	interval := time.Duration(m.cfg.AsyncGCIntervalMS) * time.Millisecond
	if interval <= 0 {
		return
	}

	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := m.scanAndDispatch(ctx); err != nil {
					m.logger.Error("scan failed", "err", err)
				}
			}
		}
	}()
}

// Wait blocks until every worker goroutine returns, which only happens once
// ctx (the one passed to Start) is canceled. Safe to call even if Start was
// a no-op (async deletion disabled).
func (m *Master) Wait() error {
	if m.eg == nil {
		return nil
	}
	return m.eg.Wait()
}

// scanAndDispatch performs one forward scan of the GC-version column family
// and hands each outstanding task to the worker selected by CRC16(task) mod
// W, a fixed, order-independent assignment of tasks to workers.
func (m *Master) scanAndDispatch(ctx context.Context) error {
	start, end := codec.GCVersionRange()
	kvs, err := store.View(m.store, func(txn store.Txn) ([]store.KV, error) {
		return txn.Scan(store.CFGCVersion, start, end, 0)
	})
	if err != nil {
		return err
	}

	for _, kv := range kvs {
		userKey, version, err := codec.DecodeGCVersionKey(kv.Key)
		if err != nil {
			m.logger.Warn("skipping malformed gc-version key", "err", err)
			continue
		}
		if len(kv.Value) != 1 {
			m.logger.Warn("skipping gc-version record with malformed type tag")
			continue
		}
		task := Task{UserKey: userKey, Version: version, Type: metarecord.TypeTag(kv.Value[0])}
		m.dispatch(ctx, task)
	}
	return nil
}

func (m *Master) dispatch(ctx context.Context, task Task) {
	if ctx.Err() != nil {
		return
	}

	idx := CRC16(taskShardKey(task)) % uint16(len(m.workers))
	w := m.workers[idx]

	if w.enqueue(task) {
		metrics.GCTasksDispatchedTotal.Inc()
	}
	// Dropped otherwise, either because it is already queued or the
	// worker's queue is full; the GC-version record is left in place and
	// will be picked up again on the next tick.
}

// taskShardKey is the byte string CRC16 shards a task on: user key followed
// by its big-endian version, so every worker consistently owns the same set
// of (user_key, version) pairs across ticks until the pool size changes.
func taskShardKey(t Task) []byte {
	buf := make([]byte, len(t.UserKey)+2)
	copy(buf, t.UserKey)
	binary.BigEndian.PutUint16(buf[len(t.UserKey):], t.Version)
	return buf
}
