// Package objstore provides the object storage abstraction used by the
// screening engine to keep resume files. The production implementation is
// backed by MinIO; tests use ObjectStoreMock.
package objstore

import (
	"context"
	"fmt"
	"io"

	"github.com/minio/minio-go/v7"
)

// ObjectStore is the interface for storing and retrieving batch files.
type ObjectStore interface {
	Put(ctx context.Context, bucket, object string, reader io.Reader, size int64, contentType string) error
	Get(ctx context.Context, bucket, object string) (io.ReadCloser, error)
	// RemoveAll deletes every object whose name starts with prefix.
	// Absent objects are not an error.
	RemoveAll(ctx context.Context, bucket, prefix string) error
}

// MinioObjectStore implements ObjectStore on a MinIO (or any S3-compatible)
// backend.
type MinioObjectStore struct {
	client *minio.Client
}

// NewMinioObjectStore creates a new MinioObjectStore with the provided client.
func NewMinioObjectStore(client *minio.Client) *MinioObjectStore {
	return &MinioObjectStore{client: client}
}

func (m *MinioObjectStore) Put(ctx context.Context, bucket, object string, reader io.Reader, size int64, contentType string) error {
	_, err := m.client.PutObject(ctx, bucket, object, reader, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return fmt.Errorf("failed to put object %q: %w", object, err)
	}
	return nil
}

func (m *MinioObjectStore) Get(ctx context.Context, bucket, object string) (io.ReadCloser, error) {
	obj, err := m.client.GetObject(ctx, bucket, object, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to get object %q: %w", object, err)
	}
	return obj, nil
}

func (m *MinioObjectStore) RemoveAll(ctx context.Context, bucket, prefix string) error {
	var listErr error
	objectsCh := make(chan minio.ObjectInfo)
	go func() {
		defer close(objectsCh)
		for object := range m.client.ListObjects(ctx, bucket, minio.ListObjectsOptions{
			Prefix:    prefix,
			Recursive: true,
		}) {
			if object.Err != nil {
				listErr = object.Err
				return
			}
			objectsCh <- object
		}
	}()

	for rErr := range m.client.RemoveObjects(ctx, bucket, objectsCh, minio.RemoveObjectsOptions{}) {
		if rErr.Err != nil {
			return fmt.Errorf("failed to remove object %q: %w", rErr.ObjectName, rErr.Err)
		}
	}
	if listErr != nil {
		return fmt.Errorf("failed to list objects under %q: %w", prefix, listErr)
	}
	return nil
}
