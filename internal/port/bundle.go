package port

import (
	"context"
	"io"
)

// ResourceBundle is the namespace of resources packaged with the application.
// Resources are looked up by name, never by file system path.
type ResourceBundle interface {
	// Open returns a reader over the named resource.
	// A missing resource yields an error matching domain.ErrResourceNotFound.
	Open(ctx context.Context, name string) (io.ReadCloser, error)

	// Dir returns the local directory backing the bundle, or "" if there is none
	Dir() string
}
