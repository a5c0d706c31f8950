package storage

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// MinioStore implements BlobStore on MinIO/S3 compatible storage.
// Blobs are keyed <ownerID>/<storedName>.
type MinioStore struct {
	client *minio.Client
	bucket string
}

// NewMinioStore connects to MinIO and ensures the bucket exists.
func NewMinioStore(endpoint, accessKey, secretKey, bucket string, useSSL bool) (*MinioStore, error) {
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("init minio client: %w", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	exists, err := client.BucketExists(ctx, bucket)
	if err != nil {
		return nil, fmt.Errorf("check bucket: %w", err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("create bucket: %w", err)
		}
	}
	return &MinioStore{client: client, bucket: bucket}, nil
}

// Save streams the payload into the bucket.
func (m *MinioStore) Save(ctx context.Context, ownerID, storedName string, r io.Reader) (string, int64, error) {
	key := ownerID + "/" + storedName
	info, err := m.client.PutObject(ctx, m.bucket, key, r, -1, minio.PutObjectOptions{})
	if err != nil {
		return "", 0, fmt.Errorf("put object: %w", err)
	}
	return key, info.Size, nil
}

// Open returns a reader over the object at key.
func (m *MinioStore) Open(ctx context.Context, path string) (io.ReadCloser, error) {
	obj, err := m.client.GetObject(ctx, m.bucket, path, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("get object: %w", err)
	}
	// GetObject is lazy; surface a missing object now rather than on first read.
	if _, err := obj.Stat(); err != nil {
		_ = obj.Close()
		if isMissingObject(err) {
			return nil, fmt.Errorf("%w: %s", fs.ErrNotExist, path)
		}
		return nil, err
	}
	return obj, nil
}

// isMissingObject reports whether err is the S3 not-found answer, so callers
// can treat a vanished blob the same way the disk backend does.
func isMissingObject(err error) bool {
	resp := minio.ToErrorResponse(err)
	return resp.Code == "NoSuchKey" || resp.StatusCode == http.StatusNotFound
}

// Delete removes the object.
func (m *MinioStore) Delete(ctx context.Context, path string) error {
	if err := m.client.RemoveObject(ctx, m.bucket, path, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("delete object: %w", err)
	}
	return nil
}
