package backend

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/mwantia/s3vfs/data"
)

// ObjectStorageBackend is the object store collaborator used by channels and
// filesystem operations. Failed calls return a *ResponseError carrying the
// HTTP status code and headers reported by the store.
type ObjectStorageBackend interface {
	Backend

	HeadObject(ctx context.Context, bucket, key string) (*data.ObjectStat, error)

	GetObject(ctx context.Context, req *GetObjectRequest) (*GetObjectResult, error)

	PutObject(ctx context.Context, req *PutObjectRequest) (*PutObjectResult, error)

	ListObjects(ctx context.Context, req *ListObjectsRequest) (*ListObjectsResult, error)

	DeleteObjects(ctx context.Context, bucket string, keys []string) (*DeleteObjectsResult, error)

	CopyObject(ctx context.Context, req *CopyObjectRequest) (*CopyObjectResult, error)
}

// RegionLocator exposes the calls used to discover the region owning a bucket.
type RegionLocator interface {
	// GetBucketLocation returns the location constraint of bucket.
	GetBucketLocation(ctx context.Context, bucket string) (string, error)
	// HeadBucket returns the response headers of a bucket metadata probe.
	HeadBucket(ctx context.Context, bucket string) (http.Header, error)
}

// Range addresses the bytes [Start, End) of an object. A negative End
// addresses everything from Start to the end of the object.
type Range struct {
	Start int64
	End   int64
}

// Header renders the range as an inclusive HTTP Range header value.
func (r Range) Header() string {
	if r.End < 0 {
		return fmt.Sprintf("bytes=%d-", r.Start)
	}
	return fmt.Sprintf("bytes=%d-%d", r.Start, r.End-1)
}

// Len returns the number of addressed bytes or -1 for open ranges.
func (r Range) Len() int64 {
	if r.End < 0 {
		return -1
	}
	return r.End - r.Start
}

type GetObjectRequest struct {
	Bucket string
	Key    string
	Range  *Range
}

type GetObjectResult struct {
	// Body must be closed by the caller
	Body io.ReadCloser
	// Stat describes the whole object, Size is the full object length
	Stat data.ObjectStat
}

type PutObjectRequest struct {
	Bucket        string
	Key           string
	Body          io.Reader
	ContentLength int64
	ContentType   string

	// Precondition headers, empty values are not sent
	IfMatch     string
	IfNoneMatch string

	Checksum *Checksum
}

type PutObjectResult struct {
	ETag string
}

type ListObjectsRequest struct {
	Bucket            string
	Prefix            string
	Delimiter         string
	ContinuationToken string
	// MaxKeys limits a single page (0 = store default)
	MaxKeys int
}

type ListObjectsResult struct {
	Objects        []*data.ObjectStat
	CommonPrefixes []string

	// Set when more results exist beyond this page
	Truncated             bool
	NextContinuationToken string
}

// MaxDeleteKeys is the largest batch accepted by DeleteObjects.
const MaxDeleteKeys = 1000

type DeleteObjectsResult struct {
	Deleted []string
	Errors  []DeleteError
}

type DeleteError struct {
	Key     string
	Code    string
	Message string
}

type CopyObjectRequest struct {
	SourceBucket string
	SourceKey    string
	Bucket       string
	Key          string
}

type CopyObjectResult struct {
	ETag string
}
