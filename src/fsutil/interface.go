package fsutil

import "context"

// FileStore keeps archived objects on the local filesystem. Buckets are directories
// below the store root.
type FileStore interface {
	// EnsureBucketExists creates the bucket directory and all necessary parents
	EnsureBucketExists(ctx context.Context, bucketName string) error

	// PutObject writes an object, replacing any previous content
	PutObject(ctx context.Context, bucketName, objectName string, data []byte, contentType string) error

	// GetObject reads an object back
	GetObject(ctx context.Context, bucketName, objectName string) ([]byte, error)
}
