// Package store wraps the embedded ordered key-value engine (Badger) behind
// the narrow transactional interface the rest of DuskDB depends on:
// get/put/del/batch_get/scan plus exec_txn(F). Column families are realized
// as a single leading byte folded into every physical key, since Badger has
// one flat keyspace; each CF constant below partitions range scans exactly
// the way a real column family would.
package store

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"
)

// CF is a column-family tag: a single leading byte distinguishing each
// stored entity kind within Badger's flat keyspace.
type CF byte

const (
	CFMeta CF = iota + 1
	CFHashSubMeta
	CFSetSubMeta
	CFZSetSubMeta
	CFHashData
	CFListData
	CFSetData
	CFZSetData
	CFZSetScore
	CFGC
	CFGCVersion
)

// Name returns the column family's human-readable name.
func (cf CF) Name() string {
	switch cf {
	case CFMeta:
		return "meta"
	case CFHashSubMeta:
		return "hash_sub_meta"
	case CFSetSubMeta:
		return "set_sub_meta"
	case CFZSetSubMeta:
		return "zset_sub_meta"
	case CFHashData:
		return "hash_data"
	case CFListData:
		return "list_data"
	case CFSetData:
		return "set_data"
	case CFZSetData:
		return "zset_data"
	case CFZSetScore:
		return "zset_score"
	case CFGC:
		return "gc"
	case CFGCVersion:
		return "gc_version"
	default:
		return "unknown"
	}
}

// ErrConflict is returned by ExecTxn when the transaction could not commit
// due to a conflicting concurrent writer. Callers retry via retryCall.
var ErrConflict = errors.New("store: transaction conflict")

// KV is a single key/value pair returned from a scan or batch get. Key is
// the entity-specific suffix (the CF byte is stripped).
type KV struct {
	Key   []byte
	Value []byte
}

// Config controls how the underlying Badger instance is opened.
type Config struct {
	// Path is the on-disk directory. Ignored if InMemory is true.
	Path string
	// InMemory runs Badger with no disk persistence, for tests.
	InMemory bool
}

// Store owns the Badger handle and exposes ExecTxn as the sole mutation
// entry point; all reads/writes happen inside a Txn passed to a closure.
type Store struct {
	db *badger.DB
}

// Open opens (or creates) a Badger instance per cfg, tuned conservatively
// the way an embedded single-process store should be.
func Open(cfg Config) (*Store, error) {
	opts := badger.DefaultOptions(cfg.Path)
	opts = opts.WithLoggingLevel(badger.WARNING)
	opts = opts.WithCompression(options.Snappy)
	opts = opts.WithNumVersionsToKeep(1)

	if cfg.InMemory {
		opts = opts.WithInMemory(true)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("store: open: %w", err)
	}

	return &Store{db: db}, nil
}

// Close releases the underlying Badger handle.
func (s *Store) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("store: close: %w", err)
	}
	return nil
}

func physicalKey(cf CF, key []byte) []byte {
	out := make([]byte, 0, len(key)+1)
	out = append(out, byte(cf))
	out = append(out, key...)
	return out
}

// Txn is the narrow transactional surface every command/GC operation uses.
type Txn interface {
	// Get returns the value for (cf, key). ok is false if absent.
	Get(cf CF, key []byte) (value []byte, ok bool, err error)
	// Put writes (cf, key) -> value.
	Put(cf CF, key, value []byte) error
	// Delete removes (cf, key). Deleting an absent key is not an error.
	Delete(cf CF, key []byte) error
	// BatchGet reads multiple keys from one CF, returning only the ones present.
	BatchGet(cf CF, keys [][]byte) ([]KV, error)
	// Scan reads entries in [start, end) within cf, in key order, up to
	// limit entries (0 means unbounded).
	Scan(cf CF, start, end []byte, limit int) ([]KV, error)
	// ScanKeys is Scan but without fetching values.
	ScanKeys(cf CF, start, end []byte, limit int) ([][]byte, error)
}

type badgerTxn struct {
	txn *badger.Txn
}

func (t *badgerTxn) Get(cf CF, key []byte) ([]byte, bool, error) {
	item, err := t.txn.Get(physicalKey(cf, key))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("store: get: %w", err)
	}

	var value []byte
	err = item.Value(func(v []byte) error {
		value = append([]byte(nil), v...)
		return nil
	})
	if err != nil {
		return nil, false, fmt.Errorf("store: get value: %w", err)
	}
	return value, true, nil
}

func (t *badgerTxn) Put(cf CF, key, value []byte) error {
	if err := t.txn.Set(physicalKey(cf, key), value); err != nil {
		return fmt.Errorf("store: put: %w", err)
	}
	return nil
}

func (t *badgerTxn) Delete(cf CF, key []byte) error {
	if err := t.txn.Delete(physicalKey(cf, key)); err != nil {
		return fmt.Errorf("store: delete: %w", err)
	}
	return nil
}

func (t *badgerTxn) BatchGet(cf CF, keys [][]byte) ([]KV, error) {
	out := make([]KV, 0, len(keys))
	for _, k := range keys {
		v, ok, err := t.Get(cf, k)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, KV{Key: k, Value: v})
		}
	}
	return out, nil
}

func (t *badgerTxn) scan(cf CF, start, end []byte, limit int, wantValues bool) ([]KV, error) {
	prefix := []byte{byte(cf)}
	startKey := physicalKey(cf, start)

	opts := badger.DefaultIteratorOptions
	opts.PrefetchValues = wantValues
	it := t.txn.NewIterator(opts)
	defer it.Close()

	var out []KV
	for it.Seek(startKey); it.ValidForPrefix(prefix); it.Next() {
		item := it.Item()
		full := item.KeyCopy(nil)
		entKey := full[1:]

		if end != nil && bytes.Compare(entKey, end) >= 0 {
			break
		}

		var value []byte
		if wantValues {
			v, err := item.ValueCopy(nil)
			if err != nil {
				return nil, fmt.Errorf("store: scan value: %w", err)
			}
			value = v
		}

		out = append(out, KV{Key: entKey, Value: value})
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (t *badgerTxn) Scan(cf CF, start, end []byte, limit int) ([]KV, error) {
	return t.scan(cf, start, end, limit, true)
}

func (t *badgerTxn) ScanKeys(cf CF, start, end []byte, limit int) ([][]byte, error) {
	pairs, err := t.scan(cf, start, end, limit, false)
	if err != nil {
		return nil, err
	}
	keys := make([][]byte, len(pairs))
	for i, p := range pairs {
		keys[i] = p.Key
	}
	return keys, nil
}

// ExecTxn runs fn inside a fresh read-write transaction. fn's returned
// value is handed back on successful commit. Any error returned by fn
// aborts the transaction (no commit is attempted) and is returned as-is.
// A conflicting commit returns ErrConflict regardless of fn's error.
func ExecTxn[T any](ctx context.Context, s *Store, fn func(Txn) (T, error)) (T, error) {
	var zero T

	var result T
	var fnErr error

	err := s.db.Update(func(btxn *badger.Txn) error {
		result, fnErr = fn(&badgerTxn{txn: btxn})
		if fnErr != nil {
			// Returning an error here aborts the badger transaction
			// without attempting a commit.
			return fnErr
		}
		return nil
	})

	if fnErr != nil {
		return zero, fnErr
	}
	if errors.Is(err, badger.ErrConflict) {
		return zero, ErrConflict
	}
	if err != nil {
		return zero, fmt.Errorf("store: commit: %w", err)
	}

	select {
	case <-ctx.Done():
		return zero, ctx.Err()
	default:
	}

	return result, nil
}

// View runs fn inside a read-only transaction (no commit, never conflicts).
func View[T any](s *Store, fn func(Txn) (T, error)) (T, error) {
	var zero T
	var result T
	var fnErr error

	err := s.db.View(func(btxn *badger.Txn) error {
		result, fnErr = fn(&badgerTxn{txn: btxn})
		return fnErr
	})
	if fnErr != nil {
		return zero, fnErr
	}
	if err != nil {
		return zero, fmt.Errorf("store: view: %w", err)
	}
	return result, nil
}
