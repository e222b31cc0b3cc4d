package errors

import (
	"errors"
	"fmt"
	"sync"
)

// Standard errors returned by filesystem, channel and backend operations.
var (
	// Invalid input
	ErrInvalid          = errors.New("s3vfs: invalid argument")
	ErrInvalidPath      = errors.New("s3vfs: invalid path")
	ErrInvalidURI       = errors.New("s3vfs: invalid uri")
	ErrProviderMismatch = errors.New("s3vfs: path belongs to a different filesystem")

	// File operation errors
	ErrNotExist          = errors.New("s3vfs: file does not exist")
	ErrExist             = errors.New("s3vfs: file already exists")
	ErrIsDirectory       = errors.New("s3vfs: is a directory")
	ErrNotDirectory      = errors.New("s3vfs: not a directory")
	ErrDirectoryNotEmpty = errors.New("s3vfs: directory not empty")
	ErrUnsupported       = errors.New("s3vfs: operation not supported")

	// Channel errors
	ErrClosed      = errors.New("s3vfs: channel already closed")
	ErrNonReadable = errors.New("s3vfs: channel not open for reading")
	ErrNonWritable = errors.New("s3vfs: channel not open for writing")

	// Transfer errors
	ErrIO                 = errors.New("s3vfs: i/o failure")
	ErrPreconditionFailed = errors.New("s3vfs: transfer precondition failed")

	// Registry errors
	ErrNoSuchElement      = errors.New("s3vfs: no such element")
	ErrFileSystemNotFound = errors.New("s3vfs: filesystem not found")
	ErrFileSystemExists   = errors.New("s3vfs: filesystem already exists")
	ErrFileSystemClosed   = errors.New("s3vfs: filesystem closed")
	ErrClientClosed       = errors.New("s3vfs: client closed")
)

type Errors struct {
	mu     sync.RWMutex
	errors []error
}

func (e *Errors) Add(err error) {
	if err == nil {
		return
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	e.errors = append(e.errors, err)
}

func (e *Errors) Len() int {
	e.mu.RLock()
	defer e.mu.RUnlock()

	return len(e.errors)
}

func (e *Errors) Errors() error {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if len(e.errors) == 0 {
		return nil
	}

	return errors.Join(e.errors...)
}

// wrappedError reports a formatted message while matching both its
// sentinel and the optional cause with errors.Is and errors.As.
type wrappedError struct {
	sentinel error
	text     string
	cause    error
}

func (w *wrappedError) Error() string {
	if w.cause != nil {
		return fmt.Sprintf("s3vfs: %s: %v", w.text, w.cause)
	}
	return "s3vfs: " + w.text
}

func (w *wrappedError) Unwrap() []error {
	if w.cause == nil {
		return []error{w.sentinel}
	}
	return []error{w.sentinel, w.cause}
}

func newError(sentinel, err error, format string, args ...any) error {
	return &wrappedError{
		sentinel: sentinel,
		text:     fmt.Sprintf(format, args...),
		cause:    err,
	}
}

// New, Is, As and Join mirror the standard library so callers importing
// this package under the name errors keep access to them.
func New(text string) error {
	return errors.New(text)
}

func Is(err, target error) bool {
	return errors.Is(err, target)
}

func As(err error, target any) bool {
	return errors.As(err, target)
}

func Join(errs ...error) error {
	return errors.Join(errs...)
}
