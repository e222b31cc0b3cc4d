// Package minio serves S3 compatible stores at custom endpoints through
// the MinIO client.
package minio

import (
	"context"
	"strings"
	"sync/atomic"

	miniogo "github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/mwantia/s3vfs/backend"
	"github.com/mwantia/s3vfs/client"
)

type MinioBackend struct {
	core   *miniogo.Core
	region string
	closed atomic.Bool
}

var (
	_ backend.ObjectStorageBackend = (*MinioBackend)(nil)
	_ backend.RegionLocator        = (*MinioBackend)(nil)
)

// NewMinioBackend connects to endpoint using static credentials. The
// endpoint host must not contain a scheme, Secure selects https.
func NewMinioBackend(endpoint client.Endpoint) (*MinioBackend, error) {
	lookup := miniogo.BucketLookupAuto
	if endpoint.PathStyle {
		lookup = miniogo.BucketLookupPath
	}

	opts := &miniogo.Options{
		Secure:       endpoint.Secure(),
		Region:       endpoint.Region,
		BucketLookup: lookup,
	}
	if endpoint.AccessKey != "" {
		opts.Creds = credentials.NewStaticV4(endpoint.AccessKey, endpoint.SecretKey, "")
	}

	core, err := miniogo.NewCore(endpoint.Host, opts)
	if err != nil {
		return nil, err
	}

	return &MinioBackend{
		core:   core,
		region: endpoint.Region,
	}, nil
}

// Returns the identifier name defined for this backend
func (*MinioBackend) Name() string {
	return "minio"
}

// Open is part of the lifecycle behaviour and gets called before first use.
func (mb *MinioBackend) Open(ctx context.Context) error {
	mb.closed.Store(false)
	return nil
}

// Close is part of the lifecycle behaviour and gets called when closing this backend.
func (mb *MinioBackend) Close(ctx context.Context) error {
	mb.closed.Store(true)
	return nil
}

func (mb *MinioBackend) IsClosed() bool {
	return mb.closed.Load()
}

// GetCapabilities returns a list of capabilities supported by this backend.
func (mb *MinioBackend) GetCapabilities() *backend.BackendCapabilities {
	return backend.GetAllCapabilities()
}

// Factory creates MinIO clients for custom endpoints.
type Factory struct{}

var _ client.EndpointFactory = (*Factory)(nil)

func (Factory) Endpoint(ctx context.Context, endpoint client.Endpoint) (backend.ObjectStorageBackend, error) {
	return NewMinioBackend(endpoint)
}

// The MinIO client reports ETags without quotes.
func quoteETag(etag string) string {
	if etag == "" || strings.HasPrefix(etag, `"`) {
		return etag
	}
	return `"` + etag + `"`
}

func unquoteETag(etag string) string {
	return strings.Trim(etag, `"`)
}
