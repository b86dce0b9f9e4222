package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"subforge/internal/logging"
)

func newTestStore(t *testing.T) *LocalStore {
	t.Helper()
	store, err := NewLocalStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	return store
}

func TestLocalStoreRoundTrip(t *testing.T) {
	store := newTestStore(t)
	path := "jobs/abc123/audio.wav"

	if ok, err := store.Exists(path); err != nil || ok {
		t.Fatalf("Exists before put = %v, %v", ok, err)
	}
	if err := store.Put(path, strings.NewReader("wav-bytes")); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if ok, err := store.Exists(path); err != nil || !ok {
		t.Fatalf("Exists after put = %v, %v", ok, err)
	}
	if size, err := store.Size(path); err != nil || size != int64(len("wav-bytes")) {
		t.Fatalf("Size = %d, %v", size, err)
	}

	r, err := store.Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	data, err := io.ReadAll(r)
	r.Close()
	if err != nil || string(data) != "wav-bytes" {
		t.Fatalf("read back %q, %v", data, err)
	}

	if err := store.Delete(path); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if ok, _ := store.Exists(path); ok {
		t.Fatal("blob still exists after delete")
	}
	// Deleting a missing blob is not an error.
	if err := store.Delete(path); err != nil {
		t.Fatalf("Delete missing: %v", err)
	}
}

func TestLocalStoreRejectsEscapes(t *testing.T) {
	store := newTestStore(t)
	if err := store.Put("a/../../outside.txt", strings.NewReader("x")); err != nil {
		t.Fatalf("Put with dotdot should be confined, got %v", err)
	}
	if ok, err := store.Exists("outside.txt"); err != nil || !ok {
		t.Fatalf("expected path cleaned into root, got %v %v", ok, err)
	}
	if _, err := os.Stat(filepath.Join(filepath.Dir(store.Root()), "outside.txt")); !os.IsNotExist(err) {
		t.Fatal("blob escaped the storage root")
	}
}

func TestDownloadToLocalVerifiesSize(t *testing.T) {
	store := newTestStore(t)
	if err := store.Put("jobs/x/source.mp4", strings.NewReader("0123456789")); err != nil {
		t.Fatal(err)
	}
	localPath := filepath.Join(t.TempDir(), "source.mp4")

	err := DownloadToLocal(context.Background(), store, "jobs/x/source.mp4", localPath,
		DownloadOptions{MaxAttempts: 2, BackoffSeconds: 0}, logging.NewNop())
	if err != nil {
		t.Fatalf("DownloadToLocal: %v", err)
	}
	data, err := os.ReadFile(localPath)
	if err != nil || string(data) != "0123456789" {
		t.Fatalf("local copy = %q, %v", data, err)
	}
}

type flakyStore struct {
	*LocalStore
	failures int
}

func (s *flakyStore) Open(path string) (io.ReadCloser, error) {
	if s.failures > 0 {
		s.failures--
		return nil, fmt.Errorf("transient open failure")
	}
	return s.LocalStore.Open(path)
}

func TestDownloadToLocalRetries(t *testing.T) {
	base := newTestStore(t)
	if err := base.Put("jobs/x/a.bin", strings.NewReader("payload")); err != nil {
		t.Fatal(err)
	}
	store := &flakyStore{LocalStore: base, failures: 2}
	localPath := filepath.Join(t.TempDir(), "a.bin")

	err := DownloadToLocal(context.Background(), store, "jobs/x/a.bin", localPath,
		DownloadOptions{MaxAttempts: 3, BackoffSeconds: 0}, logging.NewNop())
	if err != nil {
		t.Fatalf("expected retries to recover, got %v", err)
	}

	store = &flakyStore{LocalStore: base, failures: 5}
	err = DownloadToLocal(context.Background(), store, "jobs/x/a.bin", localPath,
		DownloadOptions{MaxAttempts: 2, BackoffSeconds: 0}, logging.NewNop())
	if err == nil {
		t.Fatal("expected failure once attempts are exhausted")
	}
}

func TestStoreFromLocal(t *testing.T) {
	store := newTestStore(t)
	localPath := filepath.Join(t.TempDir(), "chunk-0.wav")
	if err := os.WriteFile(localPath, []byte("chunk"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := StoreFromLocal(store, localPath, "jobs/x/chunks/0.wav"); err != nil {
		t.Fatalf("StoreFromLocal: %v", err)
	}
	if size, err := store.Size("jobs/x/chunks/0.wav"); err != nil || size != 5 {
		t.Fatalf("stored size = %d, %v", size, err)
	}
}

func TestTemporaryURL(t *testing.T) {
	store := newTestStore(t)
	if err := store.Put("jobs/abc/output/movie_en.srt", strings.NewReader("1\n")); err != nil {
		t.Fatal(err)
	}

	u, err := store.TemporaryURL("jobs/abc/output/movie_en.srt", time.Hour)
	if err != nil {
		t.Fatalf("TemporaryURL: %v", err)
	}
	if !strings.HasPrefix(u, "file://") || !strings.HasSuffix(u, "/jobs/abc/output/movie_en.srt") {
		t.Fatalf("unexpected URL %q", u)
	}

	if _, err := store.TemporaryURL("jobs/abc/missing.srt", time.Hour); err == nil {
		t.Fatal("expected error for missing blob")
	}
}
