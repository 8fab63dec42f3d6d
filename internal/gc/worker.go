package gc

import (
	"context"
	"encoding/binary"
	"log/slog"
	"sync"

	"github.com/duskdb/duskdb/internal/codec"
	"github.com/duskdb/duskdb/internal/config"
	"github.com/duskdb/duskdb/internal/engine"
	"github.com/duskdb/duskdb/internal/metrics"
	"github.com/duskdb/duskdb/internal/store"
)

// worker drains a bounded task queue, reclaiming one (user_key, version)
// pair at a time via a two-phase commit: first the physical fan-out delete
// plus removal of its own GC-version record, then a second transaction that
// clears the GC record if it still points at the just-reclaimed version.
//
// queued de-duplicates tasks that are already sitting in the channel, so a
// master tick landing before a prior one drains does not pile up repeat
// work for the same (user_key, version).
type worker struct {
	id     int
	store  *store.Store
	cfg    config.Config
	logger *slog.Logger
	tasks  chan Task

	mu     sync.Mutex
	queued map[string]struct{}
}

func newWorker(id int, st *store.Store, cfg config.Config, logger *slog.Logger) *worker {
	size := cfg.AsyncGCWorkerQueueSize
	if size <= 0 {
		size = 1
	}
	return &worker{
		id:     id,
		store:  st,
		cfg:    cfg,
		logger: logger,
		tasks:  make(chan Task, size),
		queued: make(map[string]struct{}),
	}
}

// enqueue offers task to the worker's queue, skipping it if an identical
// task is already queued or the queue is full. Returns true if the task was
// accepted.
func (w *worker) enqueue(task Task) bool {
	key := taskDedupKey(task)

	w.mu.Lock()
	if _, dup := w.queued[key]; dup {
		w.mu.Unlock()
		return false
	}
	select {
	case w.tasks <- task:
		w.queued[key] = struct{}{}
		w.mu.Unlock()
		return true
	default:
		w.mu.Unlock()
		return false
	}
}

func taskDedupKey(t Task) string {
	buf := make([]byte, len(t.UserKey)+2)
	copy(buf, t.UserKey)
	binary.BigEndian.PutUint16(buf[len(t.UserKey):], t.Version)
	return string(buf)
}

func (w *worker) run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case task := <-w.tasks:
			w.mu.Lock()
			delete(w.queued, taskDedupKey(task))
			w.mu.Unlock()

			if err := w.process(ctx, task); err != nil {
				w.logger.Error("task failed", "worker", w.id, "err", err)
				continue
			}
			metrics.GCTasksCompletedTotal.Inc()
		}
	}
}

// process reclaims one task. The first transaction is the only one that
// must be atomic with the fan-out delete: if it conflicts and is dropped,
// the GC-version record survives and the master redispatches it on its next
// scan, so retrying here isn't necessary for correctness.
func (w *worker) process(ctx context.Context, task Task) error {
	_, err := store.ExecTxn(ctx, w.store, func(txn store.Txn) (struct{}, error) {
		if err := engine.GCFanOut(txn, task.UserKey, task.Version, task.Type); err != nil {
			return struct{}{}, err
		}
		if err := txn.Delete(store.CFGCVersion, codec.GCVersionKey(task.UserKey, task.Version)); err != nil {
			return struct{}{}, err
		}
		return struct{}{}, nil
	})
	if err != nil {
		return err
	}

	return w.clearGCRecordIfReclaimed(ctx, task.UserKey, task.Version)
}

// clearGCRecordIfReclaimed deletes the key's GC record only if it still
// names the version just reclaimed; a GC record pointing at a newer pending
// version (the key was deleted again since this task was dispatched) is
// left alone, since deleting it would wedge the version allocator into
// thinking no reclamation is outstanding.
func (w *worker) clearGCRecordIfReclaimed(ctx context.Context, userKey []byte, version uint16) error {
	_, err := store.ExecTxn(ctx, w.store, func(txn store.Txn) (struct{}, error) {
		raw, ok, err := txn.Get(store.CFGC, codec.GCKey(userKey))
		if err != nil || !ok {
			return struct{}{}, err
		}
		if len(raw) != 2 || codec.DecodeVersion(raw) != version {
			return struct{}{}, nil
		}
		return struct{}{}, txn.Delete(store.CFGC, codec.GCKey(userKey))
	})
	return err
}
