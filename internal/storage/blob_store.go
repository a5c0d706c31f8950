package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// BlobStore persists raw file content. Paths returned by Save are opaque to
// callers; only the same BlobStore can interpret them.
type BlobStore interface {
	Save(ctx context.Context, ownerID, storedName string, r io.Reader) (path string, size int64, err error)
	Open(ctx context.Context, path string) (io.ReadCloser, error)
	Delete(ctx context.Context, path string) error
}

// NewStoredName generates a collision-resistant on-disk name for an upload.
// The original name is kept as a readable suffix but never trusted as a path.
func NewStoredName(originalName string) string {
	return uuid.NewString() + "-" + safeFilename(originalName)
}

func safeFilename(name string) string {
	name = filepath.Base(name)
	name = strings.ReplaceAll(name, string(os.PathSeparator), "_")
	name = strings.TrimSpace(name)
	if name == "" {
		return "file"
	}
	return name
}

// DiskStore saves blobs under <base>/<ownerID>/<storedName>.
type DiskStore struct {
	basePath string
}

// NewDiskStore creates the base directory if missing.
func NewDiskStore(basePath string) (*DiskStore, error) {
	if strings.TrimSpace(basePath) == "" {
		return nil, fmt.Errorf("storage base path is required")
	}
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, fmt.Errorf("create storage dir: %w", err)
	}
	return &DiskStore{basePath: basePath}, nil
}

// Save writes the payload under the owner's directory, creating it on first
// use. A failed write removes the partial file before returning.
func (d *DiskStore) Save(_ context.Context, ownerID, storedName string, r io.Reader) (string, int64, error) {
	ownerDir := filepath.Join(d.basePath, ownerID)
	if err := os.MkdirAll(ownerDir, 0o755); err != nil {
		return "", 0, fmt.Errorf("create owner dir: %w", err)
	}
	target := filepath.Join(ownerDir, storedName)

	out, err := os.Create(target)
	if err != nil {
		return "", 0, fmt.Errorf("create file: %w", err)
	}
	n, err := io.Copy(out, r)
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(target)
		return "", 0, fmt.Errorf("write file: %w", err)
	}
	return target, n, nil
}

// Open returns a reader over the blob at path.
func (d *DiskStore) Open(_ context.Context, path string) (io.ReadCloser, error) {
	return os.Open(path)
}

// Delete removes the blob. A missing blob is not an error.
func (d *DiskStore) Delete(_ context.Context, path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
