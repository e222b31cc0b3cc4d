// Package transfer turns object store calls into blocking calls bounded by
// a timeout and maps their failures onto the filesystem error taxonomy.
package transfer

import (
	"context"
	"net/http"
	"time"

	"github.com/mwantia/s3vfs/backend"
	"github.com/mwantia/s3vfs/data/errors"
	"github.com/mwantia/s3vfs/log"
)

// Util carries the timeout applied to every call. A zero Timeout waits
// until the call returns or the parent context ends.
type Util struct {
	Timeout time.Duration

	logger *log.Logger
}

func New(timeout time.Duration, logger *log.Logger) *Util {
	if logger == nil {
		logger = log.Discard()
	}

	return &Util{
		Timeout: timeout,
		logger:  logger,
	}
}

type outcome[T any] struct {
	value T
	err   error
}

// Call runs fn on its own goroutine and blocks until it returns, the
// timeout expires or ctx ends. The context passed to fn is cancelled as
// soon as Call returns, which aborts any request still in flight.
func Call[T any](ctx context.Context, u *Util, operation, path string, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T

	var cancel context.CancelFunc
	if u != nil && u.Timeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, u.Timeout)
	} else {
		ctx, cancel = context.WithCancel(ctx)
	}
	defer cancel()

	done := make(chan outcome[T], 1)
	go func() {
		value, err := fn(ctx)
		done <- outcome[T]{value: value, err: err}
	}()

	select {
	case result := <-done:
		if result.err != nil {
			return zero, Translate(operation, path, result.err)
		}
		return result.value, nil

	case <-ctx.Done():
		if u != nil {
			u.logger.Warn("%s '%s' abandoned: %v", operation, path, ctx.Err())
		}
		return zero, errors.IO(ctx.Err(), operation, path)
	}
}

// Do is Call for operations without a result.
func Do(ctx context.Context, u *Util, operation, path string, fn func(ctx context.Context) error) error {
	_, err := Call(ctx, u, operation, path, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	})
	return err
}

// Translate maps an error returned by a backend onto the error taxonomy.
// Timeouts and cancellation become ErrIO, a 404 becomes ErrNotExist and
// every other status response becomes a *errors.TransferError.
func Translate(operation, path string, err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return errors.IO(err, operation, path)
	}

	var re *backend.ResponseError
	if !errors.As(err, &re) {
		return errors.IO(err, operation, path)
	}

	if re.StatusCode == http.StatusNotFound {
		return errors.NotExist(err, path)
	}

	reason := re.Message
	if reason == "" {
		reason = http.StatusText(re.StatusCode)
	}

	return &errors.TransferError{
		Operation:  operation,
		Path:       path,
		StatusCode: re.StatusCode,
		Reason:     reason,
		Err:        err,
	}
}
