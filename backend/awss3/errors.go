package awss3

import (
	"errors"
	"net/http"

	"github.com/aws/smithy-go"
	smithyhttp "github.com/aws/smithy-go/transport/http"
	"github.com/mwantia/s3vfs/backend"
)

// responseError converts SDK errors carrying an HTTP response into a
// *backend.ResponseError. Errors without a response are returned as is.
func responseError(operation string, err error) error {
	var respErr *smithyhttp.ResponseError
	if !errors.As(err, &respErr) {
		return err
	}

	result := &backend.ResponseError{
		Operation: operation,
		Header:    http.Header{},
		Err:       err,
	}

	if respErr.Response != nil && respErr.Response.Response != nil {
		result.StatusCode = respErr.Response.StatusCode
		result.Header = respErr.Response.Header.Clone()
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		result.Code = apiErr.ErrorCode()
		result.Message = apiErr.ErrorMessage()
	}

	return result
}
