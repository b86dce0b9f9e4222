package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"

	"github.com/gofrs/flock"

	"subforge/internal/config"
	"subforge/internal/logging"
	"subforge/internal/pipeline"
	"subforge/internal/queue"
	"subforge/internal/storage"
	"subforge/internal/worker"
)

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	lock := flock.New(filepath.Join(cfg.Paths.LogDir, "subforged.lock"))
	locked, err := lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire daemon lock: %w", err)
	}
	if !locked {
		return fmt.Errorf("another subforge daemon is already running (lock %s)", lock.Path())
	}
	defer lock.Unlock() //nolint:errcheck

	checks := pipeline.Preflight(cfg)
	for _, check := range checks {
		if !check.Ready {
			logger.Warn("preflight check failed",
				logging.String("check", check.Name),
				logging.String("detail", check.Detail),
			)
		}
	}
	if !pipeline.Ready(checks) {
		return fmt.Errorf("preflight failed; run `subforge preflight` for details")
	}

	pidPath := filepath.Join(cfg.Paths.LogDir, "subforged.pid")
	if err := writePIDFile(pidPath); err != nil {
		return fmt.Errorf("write pid file: %w", err)
	}
	defer os.Remove(pidPath)

	store, err := queue.Open(cfg)
	if err != nil {
		return fmt.Errorf("open queue store: %w", err)
	}
	defer store.Close()

	blob, err := storage.NewLocalStore(cfg.Paths.StorageDir)
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}

	orchestrator, err := pipeline.New(cfg, store, blob, logger)
	if err != nil {
		return fmt.Errorf("build pipeline: %w", err)
	}

	pool := worker.NewPool(cfg.Pipeline, store, logger)
	orchestrator.Attach(pool)
	if err := pool.Start(ctx); err != nil {
		return fmt.Errorf("start workers: %w", err)
	}

	go orchestrator.SeedLoop(ctx, pipeline.DefaultSeedInterval)

	logger.Info("subforged running",
		logging.Int("workers", cfg.Pipeline.Workers),
		logging.String("queue", store.Path()),
	)

	<-ctx.Done()
	logger.Info("subforged shutting down")
	pool.Stop()
	return nil
}

func writePIDFile(path string) error {
	if path == "" {
		return nil
	}
	value := strconv.Itoa(os.Getpid()) + "\n"
	return os.WriteFile(path, []byte(value), 0o644)
}
