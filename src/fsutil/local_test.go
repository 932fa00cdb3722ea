package fsutil_test

import (
	"context"
	"errors"
	"os"
	"testing"

	"blogforge/src/fsutil"
)

func TestLocalFileStore_PutGet(t *testing.T) {
	ctx := context.Background()
	fs := fsutil.NewLocalFileStore(t.TempDir())

	if err := fs.EnsureBucketExists(ctx, "articles"); err != nil {
		t.Fatalf("EnsureBucketExists() error = %v", err)
	}
	if err := fs.PutObject(ctx, "articles", "post.md", []byte("# Post"), "text/markdown"); err != nil {
		t.Fatalf("PutObject() error = %v", err)
	}
	if err := fs.PutObject(ctx, "articles", "post.json", []byte("{}"), "application/json"); err != nil {
		t.Fatalf("PutObject() error = %v", err)
	}

	got, err := fs.GetObject(ctx, "articles", "post.md")
	if err != nil {
		t.Fatalf("GetObject() error = %v", err)
	}
	if string(got) != "# Post" {
		t.Errorf("GetObject() = %q", got)
	}

	if _, err := fs.GetObject(ctx, "articles", "missing.md"); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("GetObject() on a missing object error = %v, want os.ErrNotExist", err)
	}
}

func TestLocalFileStore_RejectsEscapingPaths(t *testing.T) {
	ctx := context.Background()
	fs := fsutil.NewLocalFileStore(t.TempDir())

	tests := []struct {
		name   string
		bucket string
		object string
	}{
		{"parent object", "articles", ".."},
		{"nested object", "articles", "../x.md"},
		{"empty bucket", "", "x.md"},
		{"nested bucket", "a/b", "x.md"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := fs.PutObject(ctx, tt.bucket, tt.object, []byte("x"), "text/plain"); err == nil {
				t.Error("PutObject() error = nil, want invalid path")
			}
		})
	}
}
