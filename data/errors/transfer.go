package errors

import (
	"fmt"
	"net/http"
)

// TransferError describes a failed call against the object store.
// It matches ErrPreconditionFailed for 412 responses, ErrNotExist for 404
// responses and ErrIO for anything else.
type TransferError struct {
	Operation  string
	Path       string
	StatusCode int
	Reason     string
	Err        error
}

func (e *TransferError) Error() string {
	reason := e.Reason
	if reason == "" && e.Err != nil {
		reason = e.Err.Error()
	}

	if e.StatusCode > 0 {
		return fmt.Sprintf("s3vfs: %s '%s' failed with status %d: %s", e.Operation, e.Path, e.StatusCode, reason)
	}
	return fmt.Sprintf("s3vfs: %s '%s' failed: %s", e.Operation, e.Path, reason)
}

func (e *TransferError) Unwrap() []error {
	var kind error
	switch e.StatusCode {
	case http.StatusPreconditionFailed:
		kind = ErrPreconditionFailed
	case http.StatusNotFound:
		kind = ErrNotExist
	default:
		kind = ErrIO
	}

	if e.Err == nil {
		return []error{kind}
	}
	return []error{kind, e.Err}
}

// PreconditionFailed reports whether the store rejected a conditional request.
func (e *TransferError) PreconditionFailed() bool {
	return e.StatusCode == http.StatusPreconditionFailed
}
