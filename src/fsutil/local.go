package fsutil

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// LocalFileStore implements FileStore using the local filesystem
type LocalFileStore struct {
	root string
}

// NewLocalFileStore creates a store rooted at dir
func NewLocalFileStore(dir string) *LocalFileStore {
	return &LocalFileStore{root: dir}
}

var _ FileStore = (*LocalFileStore)(nil)

func (fs *LocalFileStore) path(bucketName string, elem ...string) (string, error) {
	parts := append([]string{bucketName}, elem...)
	for _, p := range parts {
		if p == "" || p == "." || p == ".." || strings.ContainsAny(p, `/\`) {
			return "", fmt.Errorf("invalid object path %q", strings.Join(parts, "/"))
		}
	}
	return filepath.Join(append([]string{fs.root}, parts...)...), nil
}

func (fs *LocalFileStore) EnsureBucketExists(ctx context.Context, bucketName string) error {
	dir, err := fs.path(bucketName)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create bucket directory: %w", err)
	}
	return nil
}

func (fs *LocalFileStore) PutObject(ctx context.Context, bucketName, objectName string, data []byte, contentType string) error {
	p, err := fs.path(bucketName, objectName)
	if err != nil {
		return err
	}

	// Write to a temporary file first so readers never see a partial object.
	tmp := p + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("failed to write object: %w", err)
	}
	if err := os.Rename(tmp, p); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to write object: %w", err)
	}
	return nil
}

func (fs *LocalFileStore) GetObject(ctx context.Context, bucketName, objectName string) ([]byte, error) {
	p, err := fs.path(bucketName, objectName)
	if err != nil {
		return nil, err
	}
	return os.ReadFile(p)
}
