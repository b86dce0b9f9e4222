package storage

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"subforge/internal/logging"
)

// DownloadOptions tunes the store-to-scratch copy.
type DownloadOptions struct {
	MaxAttempts    int
	BackoffSeconds int
}

// DownloadToLocal copies a blob to a local path, verifying the copied size
// against the store and retrying with linear backoff. A short or missing copy
// counts as a failed attempt.
func DownloadToLocal(ctx context.Context, store Store, storagePath, localPath string, opts DownloadOptions, logger *slog.Logger) error {
	attempts := opts.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	backoff := time.Duration(opts.BackoffSeconds) * time.Second
	if backoff < 0 {
		backoff = 0
	}

	expectedSize, err := store.Size(storagePath)
	if err != nil {
		logger.Warn("unable to resolve blob size before download",
			logging.String("storage_path", storagePath),
			logging.Error(err),
		)
		expectedSize = -1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if attempt > 1 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff * time.Duration(attempt-1)):
			}
		}

		err := copyOut(store, storagePath, localPath, expectedSize)
		if err == nil {
			logger.Info("download complete",
				logging.String("storage_path", storagePath),
				logging.String("local_path", localPath),
				logging.Int("attempt", attempt),
			)
			return nil
		}
		lastErr = err
		logger.Warn("download failed",
			logging.String("storage_path", storagePath),
			logging.Int("attempt", attempt),
			logging.Error(err),
		)
	}
	return fmt.Errorf("download %s: %w", storagePath, lastErr)
}

func copyOut(store Store, storagePath, localPath string, expectedSize int64) error {
	if err := os.MkdirAll(filepath.Dir(localPath), 0o755); err != nil {
		return fmt.Errorf("create local directory: %w", err)
	}
	_ = os.Remove(localPath)

	src, err := store.Open(storagePath)
	if err != nil {
		return err
	}
	defer src.Close()

	dst, err := os.Create(localPath)
	if err != nil {
		return fmt.Errorf("create local file: %w", err)
	}
	written, err := io.Copy(dst, src)
	if cerr := dst.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return fmt.Errorf("copy blob: %w", err)
	}
	if written == 0 {
		return fmt.Errorf("downloaded file is empty")
	}
	if expectedSize >= 0 && written != expectedSize {
		return fmt.Errorf("downloaded size mismatch: expected %d, got %d", expectedSize, written)
	}
	return nil
}

// StoreFromLocal uploads a local file into the store.
func StoreFromLocal(store Store, localPath, storagePath string) error {
	f, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("open local file: %w", err)
	}
	defer f.Close()
	return store.Put(storagePath, f)
}
