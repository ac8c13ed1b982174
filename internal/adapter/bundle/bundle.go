// Package bundle resolves bundled resources by name from a gocloud.dev
// blob bucket. Local asset directories are opened through fileblob,
// in-memory bundles through memblob.
package bundle

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"path/filepath"
	"strings"

	"gocloud.dev/blob"
	_ "gocloud.dev/blob/fileblob"
	_ "gocloud.dev/blob/memblob"
	"gocloud.dev/gcerrors"

	"github.com/vertextoedge/easy-file-system/internal/domain"
	"github.com/vertextoedge/easy-file-system/internal/port"
)

// Bundle is a port.ResourceBundle over a blob bucket
type Bundle struct {
	bucket *blob.Bucket
	dir    string
}

// Ensure Bundle implements port.ResourceBundle
var _ port.ResourceBundle = (*Bundle)(nil)

// Open opens the bucket at bucketURL, e.g. "file:///opt/app/assets" or "mem://".
// A bare path is treated as a local directory.
func Open(ctx context.Context, bucketURL string) (*Bundle, error) {
	dir := ""
	if !strings.Contains(bucketURL, "://") {
		abs, err := filepath.Abs(bucketURL)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve bundle dir: %w", err)
		}
		dir = abs
		bucketURL = domain.FileURI(abs)
	} else if u, err := url.Parse(bucketURL); err == nil && u.Scheme == "file" {
		dir = filepath.FromSlash(u.Path)
	}

	bucket, err := blob.OpenBucket(ctx, bucketURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open bundle %s: %w", bucketURL, err)
	}

	return &Bundle{bucket: bucket, dir: dir}, nil
}

// New wraps an already opened bucket
func New(bucket *blob.Bucket) *Bundle {
	return &Bundle{bucket: bucket}
}

// Open returns a reader over the named resource
func (b *Bundle) Open(ctx context.Context, name string) (io.ReadCloser, error) {
	if name == "" {
		return nil, domain.ResourceNotFound(name, nil)
	}

	r, err := b.bucket.NewReader(ctx, name, nil)
	if err != nil {
		if gcerrors.Code(err) == gcerrors.NotFound {
			return nil, domain.ResourceNotFound(name, err)
		}
		return nil, domain.IOError("open resource", name, err)
	}
	return r, nil
}

// Dir returns the local directory backing the bundle, if any
func (b *Bundle) Dir() string {
	return b.dir
}

// Close closes the underlying bucket
func (b *Bundle) Close() error {
	return b.bucket.Close()
}
