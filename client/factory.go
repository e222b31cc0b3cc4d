package client

import (
	"context"
	"fmt"

	"github.com/mwantia/s3vfs/backend"
	"github.com/mwantia/s3vfs/data/errors"
)

// Factory builds the clients a Registry hands out.
type Factory interface {
	// Locator returns a client that is not scoped to a region and is used
	// to discover the region of a bucket.
	Locator(ctx context.Context) (backend.RegionLocator, error)
	// Regional returns a client scoped to region.
	Regional(ctx context.Context, region string) (backend.ObjectStorageBackend, error)
}

// EndpointFactory builds clients for custom, non-AWS endpoints.
type EndpointFactory interface {
	Endpoint(ctx context.Context, endpoint Endpoint) (backend.ObjectStorageBackend, error)
}

// Endpoint addresses an S3 compatible store outside of AWS.
type Endpoint struct {
	Host      string
	Protocol  string
	Region    string
	PathStyle bool

	AccessKey string
	SecretKey string
}

// URL returns the base url of the endpoint, defaulting to https.
func (e Endpoint) URL() string {
	protocol := e.Protocol
	if protocol == "" {
		protocol = "https"
	}
	return fmt.Sprintf("%s://%s", protocol, e.Host)
}

// Secure reports whether the endpoint is reached over TLS.
func (e Endpoint) Secure() bool {
	return e.Protocol == "" || e.Protocol == "https"
}

// StaticFactory hands out the same backend for every region and endpoint.
// A closed backend is reopened before it is returned.
type StaticFactory struct {
	Backend backend.ObjectStorageBackend
}

var (
	_ Factory         = (*StaticFactory)(nil)
	_ EndpointFactory = (*StaticFactory)(nil)
)

func (f *StaticFactory) Locator(ctx context.Context) (backend.RegionLocator, error) {
	locator, ok := f.Backend.(backend.RegionLocator)
	if !ok {
		return nil, errors.Unsupported(fmt.Sprintf("region discovery on '%s'", f.Backend.Name()))
	}

	if err := f.open(ctx); err != nil {
		return nil, err
	}
	return locator, nil
}

func (f *StaticFactory) Regional(ctx context.Context, region string) (backend.ObjectStorageBackend, error) {
	if err := f.open(ctx); err != nil {
		return nil, err
	}
	return f.Backend, nil
}

func (f *StaticFactory) Endpoint(ctx context.Context, endpoint Endpoint) (backend.ObjectStorageBackend, error) {
	return f.Regional(ctx, endpoint.Region)
}

func (f *StaticFactory) open(ctx context.Context) error {
	if f.Backend.IsClosed() {
		return f.Backend.Open(ctx)
	}
	return nil
}
