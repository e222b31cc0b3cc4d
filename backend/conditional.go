package backend

import (
	"bytes"
	"crypto/md5"
	"encoding/hex"
	"io"
	"net/http"
)

// ContentETag returns the quoted MD5 digest used as ETag by single part uploads.
func ContentETag(content []byte) string {
	sum := md5.Sum(content)
	return `"` + hex.EncodeToString(sum[:]) + `"`
}

// CheckPreconditions evaluates the conditional headers of req against the
// current state of the object. It returns a 412 ResponseError on mismatch.
func CheckPreconditions(req *PutObjectRequest, exists bool, etag string) error {
	if req.IfNoneMatch == "*" && exists {
		return NewResponseError("PutObject", http.StatusPreconditionFailed,
			"PreconditionFailed", "at least one of the pre-conditions you specified did not hold")
	}

	if req.IfMatch != "" && (!exists || req.IfMatch != etag) {
		return NewResponseError("PutObject", http.StatusPreconditionFailed,
			"PreconditionFailed", "at least one of the pre-conditions you specified did not hold")
	}

	return nil
}

// VerifyChecksum compares the checksum attached to req with the content.
func VerifyChecksum(req *PutObjectRequest, content []byte) error {
	if req.Checksum == nil {
		return nil
	}

	actual, err := ComputeChecksum(req.Checksum.Algorithm, bytes.NewReader(content))
	if err != nil {
		return NewResponseError("PutObject", http.StatusBadRequest, "InvalidRequest", err.Error())
	}

	if actual.Value != req.Checksum.Value {
		return NewResponseError("PutObject", http.StatusBadRequest,
			"BadDigest", "the "+string(req.Checksum.Algorithm)+" you specified did not match the calculated checksum")
	}

	return nil
}

// RangeBounds clips r to an object of the given size and returns the
// addressed offsets. A missing range addresses the whole object.
func RangeBounds(r *Range, size int64) (int64, int64, error) {
	if r == nil {
		return 0, size, nil
	}

	if r.Start < 0 || (r.Start >= size && size > 0) || (r.End >= 0 && r.End <= r.Start) {
		return 0, 0, NewResponseError("GetObject", http.StatusRequestedRangeNotSatisfiable,
			"InvalidRange", "the requested range is not satisfiable")
	}

	end := size
	if r.End >= 0 && r.End < size {
		end = r.End
	}

	return min(r.Start, size), end, nil
}

// ReadBody drains the request body honoring ContentLength when it is set.
func ReadBody(req *PutObjectRequest) ([]byte, error) {
	if req.Body == nil {
		return []byte{}, nil
	}

	if req.ContentLength > 0 {
		buf := make([]byte, req.ContentLength)
		if _, err := io.ReadFull(req.Body, buf); err != nil {
			return nil, err
		}
		return buf, nil
	}

	return io.ReadAll(req.Body)
}
