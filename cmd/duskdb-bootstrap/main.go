// Command duskdb-bootstrap wires the storage core, command engine, and GC
// master into a running process and blocks until an interrupt or SIGTERM.
// It exposes no socket; a RESP-framing front end is a separate concern this
// module does not implement.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/duskdb/duskdb/internal/config"
	"github.com/duskdb/duskdb/internal/engine"
	"github.com/duskdb/duskdb/internal/gc"
	"github.com/duskdb/duskdb/internal/logging"
	"github.com/duskdb/duskdb/internal/metrics"
	"github.com/duskdb/duskdb/internal/store"
)

func main() {
	metrics.Init()

	defaultConfig := os.Getenv("DUSKDB_CONFIG_PATH")
	if defaultConfig == "" {
		defaultConfig = "config/duskdb.yaml"
	}
	configPath := flag.String("config", defaultConfig, "Path to YAML config")
	dataDir := flag.String("data-dir", "", "On-disk data directory (empty runs in-memory)")
	flag.Parse()

	bootLogger := logging.NewDefault()

	cfg, err := config.Load(*configPath)
	if err != nil {
		bootLogger.Error("failed to load config", "err", err)
		os.Exit(1)
	}

	logger := logging.New(os.Stdout, logging.Config{Format: cfg.Logging.Format, Level: cfg.Logging.Level})

	storeLogger := logging.Tag(logger, logging.ComponentStore)
	st, err := store.Open(store.Config{Path: *dataDir, InMemory: *dataDir == ""})
	if err != nil {
		storeLogger.Error("failed to open store", "err", err)
		os.Exit(1)
	}
	defer func() {
		if err := st.Close(); err != nil {
			storeLogger.Error("failed to close store", "err", err)
		}
	}()

	_ = engine.New(st, cfg, logger)

	master := gc.NewMaster(st, cfg, logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	master.Start(ctx)
	logger.Info("duskdb storage core started", "data_dir", *dataDir, "async_deletion", cfg.AsyncDeletionEnabled)

	<-ctx.Done()
	logger.Info("shutting down")

	if err := master.Wait(); err != nil {
		logger.Error("gc master exited with error", "err", err)
	}
}
