package backend

import (
	"errors"
	"fmt"
	"net/http"
)

// RegionHeader carries the region of a bucket on HeadBucket responses.
const RegionHeader = "X-Amz-Bucket-Region"

// ResponseError is returned by backends for failed calls that reached the store.
type ResponseError struct {
	Operation  string
	StatusCode int
	Code       string
	Message    string
	Header     http.Header
	Err        error
}

func (e *ResponseError) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if e.Code != "" {
		return fmt.Sprintf("%s: %d %s: %s", e.Operation, e.StatusCode, e.Code, msg)
	}
	return fmt.Sprintf("%s: %d: %s", e.Operation, e.StatusCode, msg)
}

func (e *ResponseError) Unwrap() error {
	return e.Err
}

// NewResponseError creates a ResponseError with an empty header set.
func NewResponseError(operation string, status int, code, message string) *ResponseError {
	return &ResponseError{
		Operation:  operation,
		StatusCode: status,
		Code:       code,
		Message:    message,
		Header:     http.Header{},
	}
}

// StatusCode returns the HTTP status attached to err or 0.
func StatusCode(err error) int {
	var re *ResponseError
	if errors.As(err, &re) {
		return re.StatusCode
	}
	return 0
}

// ResponseHeader returns the headers attached to err or nil.
func ResponseHeader(err error) http.Header {
	var re *ResponseError
	if errors.As(err, &re) {
		return re.Header
	}
	return nil
}

func IsNotFound(err error) bool {
	return StatusCode(err) == http.StatusNotFound
}

func IsPreconditionFailed(err error) bool {
	return StatusCode(err) == http.StatusPreconditionFailed
}
