package ports

import (
	"context"
	"io"
)

// ModuleSource provides the bytes of a module binary.
type ModuleSource interface {
	// Fetch opens the module for reading. The caller closes the returned reader.
	// Errors are returned before any body byte is delivered, e.g. on a
	// non-success HTTP status.
	Fetch(ctx context.Context) (io.ReadCloser, error)

	// String identifies the source in logs and errors.
	String() string
}
