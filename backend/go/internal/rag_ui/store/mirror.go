package store

import (
	"context"
	"fmt"
	"path"

	"github.com/minio/minio-go/v7"
)

// ObjectMirror copies uploaded files to an object store.
type ObjectMirror interface {
	Put(ctx context.Context, name, localPath, contentType string) (string, error)
}

// MinIOMirror stores uploads in one bucket under a key prefix.
type MinIOMirror struct {
	client *minio.Client
	bucket string
	prefix string
}

// NewMinIOMirror creates a mirror writing to bucket. The bucket must exist.
func NewMinIOMirror(client *minio.Client, bucket, prefix string) *MinIOMirror {
	return &MinIOMirror{client: client, bucket: bucket, prefix: prefix}
}

// Put uploads localPath and returns the object key.
func (m *MinIOMirror) Put(ctx context.Context, name, localPath, contentType string) (string, error) {
	key := path.Join(m.prefix, name)
	if _, err := m.client.FPutObject(ctx, m.bucket, key, localPath, minio.PutObjectOptions{ContentType: contentType}); err != nil {
		return "", fmt.Errorf("mirror %s to %s/%s: %w", name, m.bucket, key, err)
	}
	return key, nil
}
