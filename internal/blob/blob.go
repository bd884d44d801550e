// Package blob abstracts the content/object store that holds message media
// out-of-band from the conversation log. The core only ever needs two
// operations: write bytes under a key and resolve the canonical download URL
// for a key.
package blob

import (
	"context"
	"errors"
)

var (
	// ErrNotFound is returned when no object exists under the given key.
	ErrNotFound = errors.New("blob: object not found")
	// ErrTransient marks failures worth a single automatic retry, such as
	// a network timeout. Implementations wrap it; callers test with
	// errors.Is.
	ErrTransient = errors.New("blob: transient failure")
)

// Store is the content store contract the upload pipeline depends on.
type Store interface {
	Put(ctx context.Context, key string, data []byte) error
	ResolveURL(ctx context.Context, key string) (string, error)
}
