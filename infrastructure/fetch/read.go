package fetch

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	domainerrors "github.com/reglet-dev/wasm-loader/domain/errors"
	"github.com/reglet-dev/wasm-loader/domain/ports"
	"github.com/reglet-dev/wasm-loader/internal/wasmbin"
	"golang.org/x/sync/errgroup"
)

const chunkSize = 32 << 10

// ReadModule transfers the module behind src into memory.
//
// The transfer and its consumer run concurrently, joined by a pipe. The
// consumer checks the wasm preamble as soon as the first bytes arrive and
// enforces maxSize, aborting the transfer on the first violation.
func ReadModule(ctx context.Context, src ports.ModuleSource, maxSize int64) ([]byte, error) {
	if maxSize <= 0 {
		return nil, fmt.Errorf("max module size must be positive, got %d", maxSize)
	}

	g, gctx := errgroup.WithContext(ctx)

	body, err := src.Fetch(gctx)
	if err != nil {
		return nil, err
	}
	defer body.Close()

	pr, pw := io.Pipe()

	g.Go(func() error {
		return transfer(pw, body, src.String())
	})

	var module []byte
	g.Go(func() error {
		data, err := consume(pr, src.String(), maxSize)
		if err != nil {
			_ = pr.CloseWithError(err)
			_ = body.Close()
			return err
		}
		module = data
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return module, nil
}

// transfer copies body into pw. Read failures reach the consumer through
// the pipe, so the consumer's error is the one reported. Write failures mean
// the consumer already stopped.
func transfer(pw *io.PipeWriter, body io.Reader, source string) error {
	buf := make([]byte, chunkSize)
	for {
		n, rerr := body.Read(buf)
		if n > 0 {
			if _, werr := pw.Write(buf[:n]); werr != nil {
				return nil
			}
		}
		if errors.Is(rerr, io.EOF) {
			return pw.Close()
		}
		if rerr != nil {
			return pw.CloseWithError(&domainerrors.FetchError{Source: source, Err: rerr})
		}
	}
}

func consume(r io.Reader, source string, maxSize int64) ([]byte, error) {
	head := make([]byte, wasmbin.PreambleSize)
	n, err := io.ReadFull(r, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return nil, err
	}
	if !wasmbin.HasPreamble(head[:n]) {
		return nil, &domainerrors.PreambleError{Source: source, Got: head[:n]}
	}

	var buf bytes.Buffer
	buf.Write(head)
	if _, err := io.Copy(&buf, io.LimitReader(r, maxSize-int64(n)+1)); err != nil {
		return nil, err
	}
	if int64(buf.Len()) > maxSize {
		return nil, &domainerrors.SizeError{Source: source, Limit: maxSize}
	}
	return buf.Bytes(), nil
}
