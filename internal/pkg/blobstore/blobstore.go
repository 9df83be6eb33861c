// Package blobstore abstracts the object storage service the vault writes to.
// Callers only depend on the narrow Store contract; the concrete backend is
// MinIO/S3 in production and an in-memory map in tests.
package blobstore

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound means the key does not exist in the store.
	ErrNotFound = errors.New("object not found")
	// ErrUnavailable means the store could not be reached or timed out.
	// Safe to retry with backoff.
	ErrUnavailable = errors.New("object store unavailable")
	// ErrAccessDenied means the store rejected our credentials or policy.
	ErrAccessDenied = errors.New("object store access denied")
)

// Metadata travels with every stored object.
type Metadata map[string]string

// ObjectInfo describes one entry of a prefix listing.
type ObjectInfo struct {
	Key          string
	Size         int64
	LastModified time.Time
}

// Object is the result of a Get: payload plus its stored metadata.
type Object struct {
	Data     []byte
	Metadata Metadata
}

// Store is the put/get/list/delete contract the vault depends on.
// Implementations must map backend failures to the typed errors above so the
// service layer can distinguish missing objects from transient outages.
type Store interface {
	Put(ctx context.Context, key string, data []byte, meta Metadata) error
	Get(ctx context.Context, key string) (*Object, error)
	Head(ctx context.Context, key string) (Metadata, error)
	List(ctx context.Context, prefix string) ([]ObjectInfo, error)
	Delete(ctx context.Context, key string) error
}
