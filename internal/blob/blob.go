// Package blob defines the blob store boundary: durable key/value byte storage
// with list-by-prefix, get, put, and delete. Implementations must distinguish
// "object not found" from "store unavailable" so callers can tell a missing
// artifact apart from a transient outage.
package blob

import (
	"context"
	"errors"
	"fmt"
)

// ErrNotFound is returned when an object does not exist in the store.
var ErrNotFound = errors.New("object not found")

// UnavailableError indicates the store itself could not be reached or used.
// It is transient and distinguishable from ErrNotFound.
type UnavailableError struct {
	Op  string
	Key string
	Err error
}

func (e *UnavailableError) Error() string {
	return fmt.Sprintf("blob store unavailable: %s %q: %v", e.Op, e.Key, e.Err)
}

func (e *UnavailableError) Unwrap() error { return e.Err }

// IsUnavailable reports whether err is (or wraps) an UnavailableError.
func IsUnavailable(err error) bool {
	var ue *UnavailableError
	return errors.As(err, &ue)
}

// ObjectInfo describes a stored object.
type ObjectInfo struct {
	Key  string
	Size int64
}

// Store defines blob storage operations. Keys are slash-separated paths
// (e.g. "indexes/<doc_id>/manifest.json").
type Store interface {
	// List returns all objects whose key starts with prefix.
	List(ctx context.Context, prefix string) ([]ObjectInfo, error)
	// Get returns the object bytes, or ErrNotFound.
	Get(ctx context.Context, key string) ([]byte, error)
	// Put stores the object, replacing any existing object at key.
	Put(ctx context.Context, key string, data []byte) error
	// Delete removes the object. Deleting a missing object is not an error.
	Delete(ctx context.Context, key string) error
}
