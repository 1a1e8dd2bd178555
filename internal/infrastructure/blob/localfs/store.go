// Package localfs implements the blob handle store on the local
// filesystem. A handle stays valid until it is explicitly released, so
// init never clears the base directory: api and worker may share one base
// path and a restart of either must not invalidate the other's handles.
// Content types live in sidecar files next to the blob.
package localfs

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

const typeSuffix = ".ct"

type Store struct {
	basePath string
}

func New(basePath string) (*Store, error) {
	if basePath == "" {
		basePath = "./data/blobs"
	}
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, fmt.Errorf("create blob dir: %w", err)
	}
	return &Store{basePath: basePath}, nil
}

func (s *Store) Create(_ context.Context, contentType string, data []byte) (string, error) {
	key := uuid.NewString()
	path := filepath.Join(s.basePath, key)

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write blob: %w", err)
	}
	if err := os.WriteFile(path+typeSuffix, []byte(contentType), 0o644); err != nil {
		_ = os.Remove(path)
		return "", fmt.Errorf("write blob type: %w", err)
	}
	return key, nil
}

func (s *Store) Open(_ context.Context, key string) (io.ReadCloser, string, error) {
	path := filepath.Join(s.basePath, filepath.Base(key))

	f, err := os.Open(path)
	if err != nil {
		return nil, "", fmt.Errorf("open blob: %w", err)
	}

	contentType := "application/octet-stream"
	if raw, err := os.ReadFile(path + typeSuffix); err == nil {
		if ct := strings.TrimSpace(string(raw)); ct != "" {
			contentType = ct
		}
	}
	return f, contentType, nil
}

// Release is idempotent; releasing an unknown or already-released key is
// not an error.
func (s *Store) Release(_ context.Context, key string) error {
	path := filepath.Join(s.basePath, filepath.Base(key))

	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove blob: %w", err)
	}
	if err := os.Remove(path + typeSuffix); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove blob type: %w", err)
	}
	return nil
}
