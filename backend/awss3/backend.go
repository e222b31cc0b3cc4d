// Package awss3 adapts the AWS SDK S3 client to the object storage backend.
package awss3

import (
	"context"
	"sync/atomic"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/mwantia/s3vfs/backend"
)

// API abstracts the S3 operations used by S3Backend.
// The *s3.Client type satisfies this interface.
type API interface {
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
	DeleteObjects(ctx context.Context, params *s3.DeleteObjectsInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectsOutput, error)
	CopyObject(ctx context.Context, params *s3.CopyObjectInput, optFns ...func(*s3.Options)) (*s3.CopyObjectOutput, error)
	GetBucketLocation(ctx context.Context, params *s3.GetBucketLocationInput, optFns ...func(*s3.Options)) (*s3.GetBucketLocationOutput, error)
	HeadBucket(ctx context.Context, params *s3.HeadBucketInput, optFns ...func(*s3.Options)) (*s3.HeadBucketOutput, error)
}

var _ API = (*s3.Client)(nil)

// S3Backend serves object storage requests through an S3 API client.
type S3Backend struct {
	client API
	region string
	closed atomic.Bool
}

var (
	_ backend.ObjectStorageBackend = (*S3Backend)(nil)
	_ backend.RegionLocator        = (*S3Backend)(nil)
)

func NewS3Backend(client API, region string) *S3Backend {
	return &S3Backend{
		client: client,
		region: region,
	}
}

// Returns the identifier name defined for this backend
func (*S3Backend) Name() string {
	return "awss3"
}

// Region returns the region the client is scoped to.
func (b *S3Backend) Region() string {
	return b.region
}

// Open is part of the lifecycle behaviour and gets called before first use.
func (b *S3Backend) Open(ctx context.Context) error {
	b.closed.Store(false)
	return nil
}

// Close is part of the lifecycle behaviour. The SDK client holds no
// resources, the backend only stops accepting requests.
func (b *S3Backend) Close(ctx context.Context) error {
	b.closed.Store(true)
	return nil
}

func (b *S3Backend) IsClosed() bool {
	return b.closed.Load()
}

// GetCapabilities returns a list of capabilities supported by this backend.
func (b *S3Backend) GetCapabilities() *backend.BackendCapabilities {
	return backend.GetAllCapabilities()
}
