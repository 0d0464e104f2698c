// Package file provides a local filesystem storage backend for scratch
// images and finished deck artifacts.
package file

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// Storage stores files under a base path on the local filesystem.
type Storage struct {
	basePath string
}

// NewStorage creates a Storage rooted at basePath. The root directory is
// created and validated up front so no job can start against a broken
// location.
func NewStorage(basePath string) (*Storage, error) {
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory %s: %w", basePath, err)
	}

	probe := filepath.Join(basePath, ".writable")
	if err := os.WriteFile(probe, nil, 0o644); err != nil {
		return nil, fmt.Errorf("storage directory %s is not writable: %w", basePath, err)
	}
	_ = os.Remove(probe)

	return &Storage{basePath: basePath}, nil
}

// Save stores the file in the given subdirectory with the provided
// filename and returns its full path.
func (s *Storage) Save(_ context.Context, subdir, filename string, src io.Reader) (string, error) {
	dir := filepath.Join(s.basePath, subdir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	dstPath := filepath.Join(dir, filename)
	dst, err := os.Create(dstPath)
	if err != nil {
		return "", fmt.Errorf("failed to create file %s: %w", dstPath, err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		return "", fmt.Errorf("failed to save file %s: %w", dstPath, err)
	}

	return dstPath, nil
}

// Load opens the file and returns a reader.
func (s *Storage) Load(_ context.Context, subdir, filename string) (io.ReadCloser, error) {
	path := filepath.Join(s.basePath, subdir, filename)

	return os.Open(path)
}

// Delete removes the file from storage.
func (s *Storage) Delete(_ context.Context, subdir, filename string) error {
	path := filepath.Join(s.basePath, subdir, filename)

	return os.Remove(path)
}
