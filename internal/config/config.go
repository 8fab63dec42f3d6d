// Package config loads the YAML configuration that tunes the storage core:
// sub-meta shard count, async-delete/expire thresholds, GC worker fan-out,
// and the transaction retry policy. A single Config struct is unmarshaled
// via yaml.v3, with a custom Duration type that accepts either a plain
// integer (seconds) or a Go duration string in the YAML source.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration wraps time.Duration so it can be loaded from YAML as either a
// bare integer (interpreted as seconds) or a duration string like "500ms".
type Duration struct {
	time.Duration
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var asInt int64
	if err := value.Decode(&asInt); err == nil {
		d.Duration = time.Duration(asInt) * time.Second
		return nil
	}

	var asString string
	if err := value.Decode(&asString); err != nil {
		return fmt.Errorf("duration: value is neither an integer nor a string: %w", err)
	}

	parsed, err := time.ParseDuration(asString)
	if err != nil {
		return fmt.Errorf("duration: %q is not a valid duration: %w", asString, err)
	}
	d.Duration = parsed
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (d Duration) MarshalYAML() (interface{}, error) {
	return d.Duration.String(), nil
}

// Thresholds holds the async-delete and async-expire cardinality thresholds
// for a single composite type (hash, list, set, or zset).
type Thresholds struct {
	AsyncDeleteThreshold int64 `yaml:"async_delete_threshold"`
	AsyncExpireThreshold int64 `yaml:"async_expire_threshold"`
}

// Config is the full set of recognized tuning options for the storage core.
type Config struct {
	// MetaKeyNumber is the sub-meta shard count N (default 100).
	MetaKeyNumber int `yaml:"meta_key_number"`

	// AsyncDeletionEnabled gates whether the GC master loop runs at all.
	AsyncDeletionEnabled bool `yaml:"async_deletion_enabled"`
	// AsyncGCIntervalMS is the master loop's tick interval in milliseconds.
	AsyncGCIntervalMS int64 `yaml:"async_gc_interval_ms"`
	// AsyncGCWorkerNumber is the worker pool size W.
	AsyncGCWorkerNumber int `yaml:"async_gc_worker_number"`
	// AsyncGCWorkerQueueSize bounds each worker's FIFO task queue.
	AsyncGCWorkerQueueSize int `yaml:"async_gc_worker_queue_size"`

	// Hash, List, Set, Zset carry the per-type async thresholds.
	Hash Thresholds `yaml:"hash"`
	List Thresholds `yaml:"list"`
	Set  Thresholds `yaml:"set"`
	Zset Thresholds `yaml:"zset"`

	// CmdLremLengthLimit caps the number of elements LREM will scan.
	CmdLremLengthLimit int64 `yaml:"cmd_lrem_length_limit"`
	// CmdLinsertLengthLimit caps the number of elements LINSERT will scan.
	CmdLinsertLengthLimit int64 `yaml:"cmd_linsert_length_limit"`

	// TxnRetryMaxAttempts bounds retryCall's attempts on a txn conflict.
	TxnRetryMaxAttempts int `yaml:"txn_retry_max_attempts"`
	// TxnRetryBaseDelay is retryCall's initial backoff, doubled per attempt.
	TxnRetryBaseDelay Duration `yaml:"txn_retry_base_delay"`

	// Logging carries the logger format/level.
	Logging LoggingConfig `yaml:"logging"`
}

// LoggingConfig mirrors internal/logging.Config so it can be embedded in the
// YAML document without internal/config importing internal/logging.
type LoggingConfig struct {
	Format string `yaml:"format"`
	Level  string `yaml:"level"`
}

// Default returns the configuration used when no YAML file is supplied.
func Default() Config {
	return Config{
		MetaKeyNumber:          100,
		AsyncDeletionEnabled:   true,
		AsyncGCIntervalMS:      1000,
		AsyncGCWorkerNumber:    4,
		AsyncGCWorkerQueueSize: 1024,
		Hash:                   Thresholds{AsyncDeleteThreshold: 1000, AsyncExpireThreshold: 1000},
		List:                   Thresholds{AsyncDeleteThreshold: 1000, AsyncExpireThreshold: 1000},
		Set:                    Thresholds{AsyncDeleteThreshold: 1000, AsyncExpireThreshold: 1000},
		Zset:                   Thresholds{AsyncDeleteThreshold: 1000, AsyncExpireThreshold: 1000},
		CmdLremLengthLimit:     100000,
		CmdLinsertLengthLimit:  100000,
		TxnRetryMaxAttempts:    5,
		TxnRetryBaseDelay:      Duration{50 * time.Millisecond},
		Logging:                LoggingConfig{Format: "text", Level: "warning"},
	}
}

// Load reads and parses a YAML config file at path, applying Default() for
// any field the file does not set.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: read %s: %w", path, err)
	}

	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
	}

	return cfg, nil
}

// Threshold returns the async-delete and async-expire thresholds for a
// named composite type ("hash", "list", "set", "zset").
func (c Config) Threshold(typeName string) Thresholds {
	switch typeName {
	case "hash":
		return c.Hash
	case "list":
		return c.List
	case "set":
		return c.Set
	case "zset":
		return c.Zset
	default:
		return Thresholds{}
	}
}
