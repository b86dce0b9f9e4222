// Package storage abstracts where job artifacts live. The daemon keeps source
// video, extracted audio, chunk WAVs, and rendered subtitles under a common
// prefix; a local-disk store is the only backend today but the pipeline only
// talks to the Store interface.
package storage

import (
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Store is a flat blob namespace keyed by slash-separated paths.
type Store interface {
	Exists(path string) (bool, error)
	Size(path string) (int64, error)
	Put(path string, r io.Reader) error
	Open(path string) (io.ReadCloser, error)
	Delete(path string) error
	TemporaryURL(path string, ttl time.Duration) (string, error)
}

// LocalStore keeps blobs as plain files under a root directory.
type LocalStore struct {
	root string
}

// NewLocalStore creates the root directory if needed and returns the store.
func NewLocalStore(root string) (*LocalStore, error) {
	if strings.TrimSpace(root) == "" {
		return nil, fmt.Errorf("storage root is required")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create storage root: %w", err)
	}
	return &LocalStore{root: root}, nil
}

// Root returns the store's base directory.
func (s *LocalStore) Root() string {
	return s.root
}

// resolve maps a storage path onto the root, refusing escapes via "..".
func (s *LocalStore) resolve(path string) (string, error) {
	cleaned := filepath.Clean("/" + filepath.FromSlash(path))
	full := filepath.Join(s.root, cleaned)
	if full != s.root && !strings.HasPrefix(full, s.root+string(filepath.Separator)) {
		return "", fmt.Errorf("storage path %q escapes root", path)
	}
	return full, nil
}

func (s *LocalStore) Exists(path string) (bool, error) {
	full, err := s.resolve(path)
	if err != nil {
		return false, err
	}
	_, err = os.Stat(full)
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, err
}

func (s *LocalStore) Size(path string) (int64, error) {
	full, err := s.resolve(path)
	if err != nil {
		return 0, err
	}
	info, err := os.Stat(full)
	if err != nil {
		return 0, fmt.Errorf("stat %s: %w", path, err)
	}
	return info.Size(), nil
}

func (s *LocalStore) Put(path string, r io.Reader) error {
	full, err := s.resolve(path)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return fmt.Errorf("create parent directory: %w", err)
	}
	tmp := full + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		_ = os.Remove(tmp)
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("close %s: %w", path, err)
	}
	if err := os.Rename(tmp, full); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("finalize %s: %w", path, err)
	}
	return nil
}

func (s *LocalStore) Open(path string) (io.ReadCloser, error) {
	full, err := s.resolve(path)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(full)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	return f, nil
}

// TemporaryURL returns a fetchable URL for the blob. Local files are read
// straight off disk, so the TTL is not enforced here; the parameter exists so
// remote backends can hand out expiring signed links through the same
// contract.
func (s *LocalStore) TemporaryURL(path string, _ time.Duration) (string, error) {
	full, err := s.resolve(path)
	if err != nil {
		return "", err
	}
	if _, err := os.Stat(full); err != nil {
		return "", fmt.Errorf("stat %s: %w", path, err)
	}
	u := url.URL{Scheme: "file", Path: filepath.ToSlash(full)}
	return u.String(), nil
}

func (s *LocalStore) Delete(path string) error {
	full, err := s.resolve(path)
	if err != nil {
		return err
	}
	if err := os.Remove(full); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete %s: %w", path, err)
	}
	return nil
}
