package waterfall

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/roman-kulish/waterfall/internal/annotation"
	"github.com/roman-kulish/waterfall/internal/spectrum"
	"github.com/roman-kulish/waterfall/internal/sweep"
)

// LoadResult is the completion signal of an asynchronous load.
type LoadResult struct {
	Dataset *spectrum.Dataset
	Err     error
}

// Load fetches a sweep payload from src and builds the dataset. Retrieval failures
// are reported as *spectrum.FetchError and malformed payloads as
// *spectrum.ParseError. Nothing is retried.
func Load(ctx context.Context, src Source, options ...func(b *sweep.Builder)) (ds *spectrum.Dataset, err error) {
	rc, err := open(ctx, src)
	if err != nil {
		return nil, err
	}
	defer closeWithError(rc, &err)

	if ds, err = sweep.Parse(ctx, rc, options...); err != nil {
		return nil, fetchOrWrap(src, "loading sweeps", err)
	}
	return ds, nil
}

// LoadAsync runs Load on its own goroutine. The returned channel receives exactly
// one result and is then closed.
func LoadAsync(ctx context.Context, src Source, options ...func(b *sweep.Builder)) <-chan LoadResult {
	ch := make(chan LoadResult, 1)

	go func() {
		defer close(ch)

		ds, err := Load(ctx, src, options...)
		ch <- LoadResult{Dataset: ds, Err: err}
	}()

	return ch
}

// LoadAnnotations fetches and decodes an annotation payload.
func LoadAnnotations(ctx context.Context, src Source) (store *annotation.Store, err error) {
	rc, err := open(ctx, src)
	if err != nil {
		return nil, err
	}
	defer closeWithError(rc, &err)

	if store, err = annotation.Load(rc); err != nil {
		return nil, fetchOrWrap(src, "loading annotations", err)
	}
	return store, nil
}

func open(ctx context.Context, src Source) (io.ReadCloser, error) {
	if src == nil {
		return nil, spectrum.NewPreconditionError("loading without a source")
	}

	rc, err := src.Open(ctx)
	if err != nil {
		return nil, spectrum.NewFetchError(src.String(), err)
	}
	return &sourceReader{ReadCloser: rc}, nil
}

// readError marks a failure of the source itself, such as a connection reset
// while a response body is streamed, as opposed to a malformed payload.
type readError struct {
	err error
}

func (e *readError) Error() string { return e.err.Error() }
func (e *readError) Unwrap() error { return e.err }

type sourceReader struct {
	io.ReadCloser
}

func (r *sourceReader) Read(p []byte) (int, error) {
	n, err := r.ReadCloser.Read(p)
	if err != nil && err != io.EOF {
		err = &readError{err}
	}
	return n, err
}

// fetchOrWrap reports source read failures as *spectrum.FetchError, whatever
// layer they surfaced through.
func fetchOrWrap(src Source, msg string, err error) error {
	var re *readError
	if errors.As(err, &re) {
		return spectrum.NewFetchError(src.String(), re.err)
	}
	return fmt.Errorf("%s from %s: %w", msg, src, err)
}

func closeWithError(cl io.Closer, err *error) {
	if cErr := cl.Close(); cErr != nil && *err == nil {
		*err = fmt.Errorf("closing source: %w", cErr)
	}
}
