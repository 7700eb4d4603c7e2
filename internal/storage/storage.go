// Package storage defines the object store abstraction used by the
// deployment syncer.
package storage

import (
	"context"
	"io"
	"time"
)

// ObjectInfo describes one object in the remote bucket.
type ObjectInfo struct {
	Key     string
	Size    int64
	Updated time.Time
}

// ObjectStore is the bucket surface needed to mirror a local tree.
type ObjectStore interface {
	// List returns every object under the prefix.
	List(ctx context.Context, prefix string) ([]ObjectInfo, error)
	// Upload writes the object, replacing any existing content.
	Upload(ctx context.Context, key, contentType string, r io.Reader) error
	// Delete removes the object. Deleting a missing object is not an error.
	Delete(ctx context.Context, key string) error
	// Close releases the underlying client.
	Close() error
}
