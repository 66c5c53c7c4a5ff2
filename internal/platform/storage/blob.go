// Package storage keeps listing cover images in a blob store.
package storage

import (
	"context"
	"errors"
	"io"
)

var ErrForeignRef = errors.New("reference does not belong to this store")

// BlobStore saves and removes opaque blobs addressed by key. Save returns the
// reference persisted on the listing; Delete accepts that same reference.
type BlobStore interface {
	Save(ctx context.Context, key, contentType string, body io.Reader, size int64) (string, error)
	Delete(ctx context.Context, ref string) error
}
