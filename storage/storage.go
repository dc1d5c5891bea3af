package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"legalrag-backend/config"
)

var (
	// ErrSnapshotNotFound is returned by Get for an unknown storage path
	ErrSnapshotNotFound = errors.New("snapshot not found")
	// ErrInvalidKey is returned for absolute keys or keys that climb out of the store
	ErrInvalidKey = errors.New("invalid snapshot key")
)

// Storage archives raw scraped source text
type Storage interface {
	// Put stores data under key and returns the storage path
	Put(ctx context.Context, key string, data io.Reader) (string, error)

	// Get retrieves a snapshot by storage path
	Get(ctx context.Context, storagePath string) (io.ReadCloser, error)
}

// StorageType represents the storage backend type
type StorageType string

const (
	StorageTypeNone  StorageType = "none"
	StorageTypeLocal StorageType = "local"
	StorageTypeS3    StorageType = "s3"
)

// NewStorage creates the configured snapshot store. It returns nil for "none".
func NewStorage(ctx context.Context, cfg config.SnapshotConfig) (Storage, error) {
	switch StorageType(cfg.Type) {
	case "", StorageTypeNone:
		return nil, nil
	case StorageTypeLocal:
		return NewLocalStorage(cfg.LocalPath)
	case StorageTypeS3:
		return NewS3Storage(ctx, cfg)
	default:
		return nil, fmt.Errorf("unknown storage type: %s", cfg.Type)
	}
}

// SnapshotKey builds the storage key of a source snapshot taken at t
func SnapshotKey(sourceURL string, t time.Time) string {
	host, path := "unknown", ""
	if u, err := url.Parse(sourceURL); err == nil && u.Host != "" {
		host = u.Host
		path = strings.Trim(u.Path, "/")
	}
	name := sanitize(host)
	if path != "" {
		name += "/" + sanitize(path)
	}
	return fmt.Sprintf("%s/%s.txt", name, t.UTC().Format("20060102T150405Z"))
}

func validateKey(key string) error {
	if key == "" || !filepath.IsLocal(filepath.FromSlash(key)) {
		return fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	return nil
}

func sanitize(s string) string {
	r := strings.NewReplacer(" ", "_", "/", "_", "\\", "_", ":", "_", "..", "_")
	return r.Replace(s)
}
