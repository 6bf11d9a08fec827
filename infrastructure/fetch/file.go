package fetch

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"

	"github.com/reglet-dev/wasm-loader/domain/entities"
	domainerrors "github.com/reglet-dev/wasm-loader/domain/errors"
)

// FileSource reads a module from the local filesystem.
type FileSource struct {
	path string
}

// NewFileSource creates a source for path.
func NewFileSource(path string) *FileSource {
	return &FileSource{path: path}
}

// String returns the path.
func (s *FileSource) String() string {
	return s.path
}

// Location reports the absolute path of the file.
func (s *FileSource) Location() entities.SourceLocation {
	path := s.path
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	return entities.SourceLocation{Kind: entities.SourceKindFile, Path: path}
}

// Fetch opens the file.
func (s *FileSource) Fetch(ctx context.Context) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, &domainerrors.FetchError{Source: s.path, Err: err}
	}
	f, err := os.Open(s.path)
	if err != nil {
		return nil, &domainerrors.FetchError{Source: s.path, Err: err}
	}
	return f, nil
}

// BytesSource serves an in-memory module. Useful for embedding.
type BytesSource struct {
	name string
	data []byte
}

// NewBytesSource creates a source returning data under name.
func NewBytesSource(name string, data []byte) *BytesSource {
	return &BytesSource{name: name, data: data}
}

// String returns the name.
func (s *BytesSource) String() string {
	return s.name
}

// Fetch returns a reader over the bytes.
func (s *BytesSource) Fetch(ctx context.Context) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, &domainerrors.FetchError{Source: s.name, Err: err}
	}
	return io.NopCloser(bytes.NewReader(s.data)), nil
}
