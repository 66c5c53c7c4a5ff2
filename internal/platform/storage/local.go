package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// LocalStore writes blobs below Dir. References look like "<Prefix>/<key>",
// which is also the URL path the router serves them from.
type LocalStore struct {
	Dir    string
	Prefix string
}

func NewLocalStore(dir string) (*LocalStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &LocalStore{Dir: dir, Prefix: "uploads"}, nil
}

func (s *LocalStore) Save(ctx context.Context, key, _ string, body io.Reader, _ int64) (string, error) {
	clean, err := cleanKey(key)
	if err != nil {
		return "", err
	}
	full := filepath.Join(s.Dir, filepath.FromSlash(clean))
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return "", fmt.Errorf("LocalStore.Save: %w", err)
	}

	f, err := os.OpenFile(full, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return "", fmt.Errorf("LocalStore.Save: %w", err)
	}
	if _, err := io.Copy(f, body); err != nil {
		f.Close()
		os.Remove(full)
		return "", fmt.Errorf("LocalStore.Save: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("LocalStore.Save: %w", err)
	}
	return path.Join(s.Prefix, clean), nil
}

func (s *LocalStore) Delete(ctx context.Context, ref string) error {
	key, ok := strings.CutPrefix(ref, s.Prefix+"/")
	if !ok {
		return ErrForeignRef
	}
	clean, err := cleanKey(key)
	if err != nil {
		return err
	}
	err = os.Remove(filepath.Join(s.Dir, filepath.FromSlash(clean)))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("LocalStore.Delete: %w", err)
	}
	return nil
}

// cleanKey rejects keys that would escape the store directory.
func cleanKey(key string) (string, error) {
	clean := path.Clean("/" + key)[1:]
	if clean == "" || clean != key {
		return "", fmt.Errorf("invalid blob key %q", key)
	}
	return clean, nil
}
