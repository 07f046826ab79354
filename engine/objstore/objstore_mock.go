package objstore

import (
	"context"
	"io"
)

// ObjectStoreMock is a mock implementation of the ObjectStore interface.
type ObjectStoreMock struct {
	PutFunc       func(ctx context.Context, bucket, object string, reader io.Reader, size int64, contentType string) error
	GetFunc       func(ctx context.Context, bucket, object string) (io.ReadCloser, error)
	RemoveAllFunc func(ctx context.Context, bucket, prefix string) error
}

// Put is a mock implementation of the Put method.
func (m *ObjectStoreMock) Put(ctx context.Context, bucket, object string, reader io.Reader, size int64, contentType string) error {
	return m.PutFunc(ctx, bucket, object, reader, size, contentType)
}

// Get is a mock implementation of the Get method.
func (m *ObjectStoreMock) Get(ctx context.Context, bucket, object string) (io.ReadCloser, error) {
	return m.GetFunc(ctx, bucket, object)
}

// RemoveAll is a mock implementation of the RemoveAll method.
func (m *ObjectStoreMock) RemoveAll(ctx context.Context, bucket, prefix string) error {
	return m.RemoveAllFunc(ctx, bucket, prefix)
}

// GenerateObjectStoreMock generates a new mock instance of the ObjectStore
// interface with no-op implementations.
func GenerateObjectStoreMock() *ObjectStoreMock {
	return &ObjectStoreMock{
		PutFunc: func(ctx context.Context, bucket, object string, reader io.Reader, size int64, contentType string) error {
			return nil
		},
		GetFunc: func(ctx context.Context, bucket, object string) (io.ReadCloser, error) {
			return nil, nil
		},
		RemoveAllFunc: func(ctx context.Context, bucket, prefix string) error {
			return nil
		},
	}
}
