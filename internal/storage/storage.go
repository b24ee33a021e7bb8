// Package storage keeps uploaded post images in a local media directory or an S3 bucket.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"animeverse/internal/config"

	"github.com/google/uuid"
)

// Logical image buckets. Keys look like "<bucket>/<uuid><ext>".
const (
	BucketFull      = "full"
	BucketThumbnail = "thumbnail"
)

// ErrNotFound is returned when a key has no stored object.
var ErrNotFound = errors.New("storage: object not found")

// Storage is a flat key/value store for media objects.
type Storage interface {
	// Save writes r under key, replacing any existing object.
	Save(ctx context.Context, key string, r io.Reader, contentType string) error
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
	// URL returns the public address of key.
	URL(key string) string
}

// New builds the backend selected by STORAGE_BACKEND.
func New(ctx context.Context, cfg *config.Config) (Storage, error) {
	switch cfg.StorageBackend {
	case "", "local":
		return NewLocal(cfg.MediaRoot, cfg.MediaURL)
	case "s3":
		return NewS3(ctx, cfg)
	default:
		return nil, fmt.Errorf("unsupported storage backend %q", cfg.StorageBackend)
	}
}

// NewKey returns a fresh key in bucket keeping the extension of filename.
func NewKey(bucket, filename string) string {
	return bucket + "/" + uuid.NewString() + strings.ToLower(path.Ext(filename))
}

// cleanKey rejects keys that would escape the storage root.
func cleanKey(key string) (string, error) {
	if key == "" || strings.HasPrefix(key, "/") || strings.Contains(key, `\`) {
		return "", fmt.Errorf("storage: invalid key %q", key)
	}
	cleaned := path.Clean(key)
	if cleaned != key || cleaned == "." || strings.HasPrefix(cleaned, "../") || cleaned == ".." {
		return "", fmt.Errorf("storage: invalid key %q", key)
	}
	return cleaned, nil
}
