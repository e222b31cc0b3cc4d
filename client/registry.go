// Package client caches one object store client per bucket and discovers
// the region owning a bucket when none was configured.
package client

import (
	"context"
	"net/http"
	"sync"

	"github.com/mwantia/s3vfs/backend"
	"github.com/mwantia/s3vfs/data/errors"
	"github.com/mwantia/s3vfs/log"
	"github.com/mwantia/s3vfs/transfer"
	"golang.org/x/sync/singleflight"
)

const (
	// DefaultRegion is reported for buckets with an empty location constraint.
	DefaultRegion = "us-east-1"
	legacyEU      = "EU"
)

// Entry is a cached client together with the region it was built for.
type Entry struct {
	Client backend.ObjectStorageBackend
	Region string
}

// Registry is a goroutine-safe cache of clients keyed by bucket name.
// Concurrent first access for the same bucket creates a single client.
type Registry struct {
	mu     sync.RWMutex
	group  singleflight.Group
	closed bool

	entries map[string]*Entry

	factory   Factory
	endpoints EndpointFactory
	endpoint  *Endpoint
	region    string
	transfer  *transfer.Util
	logger    *log.Logger
}

type Option func(*Registry)

// WithRegion skips region discovery and scopes every client to region.
func WithRegion(region string) Option {
	return func(r *Registry) {
		r.region = region
	}
}

// WithEndpoint builds every client directly against endpoint.
func WithEndpoint(endpoint Endpoint, factory EndpointFactory) Option {
	return func(r *Registry) {
		r.endpoint = &endpoint
		r.endpoints = factory
	}
}

func WithTransfer(u *transfer.Util) Option {
	return func(r *Registry) {
		r.transfer = u
	}
}

func WithLogger(logger *log.Logger) Option {
	return func(r *Registry) {
		r.logger = logger
	}
}

func NewRegistry(factory Factory, opts ...Option) *Registry {
	r := &Registry{
		entries: make(map[string]*Entry),
		factory: factory,
	}

	for _, opt := range opts {
		opt(r)
	}

	if r.logger == nil {
		r.logger = log.Discard()
	}
	if r.transfer == nil {
		r.transfer = transfer.New(0, r.logger)
	}

	return r
}

// Client returns the cached client for bucket, generating a new one when
// none is cached or the cached client reports itself closed.
func (r *Registry) Client(ctx context.Context, bucket string) (*Entry, error) {
	if entry, ok, err := r.lookup(bucket); ok || err != nil {
		return entry, err
	}

	ch := r.group.DoChan(bucket, func() (any, error) {
		if entry, ok, err := r.lookup(bucket); ok || err != nil {
			return entry, err
		}

		// Generation is shared by all waiters and outlives the caller that started it
		ctx := context.WithoutCancel(ctx)

		entry, err := r.Generate(ctx, bucket)
		if err != nil {
			return nil, err
		}

		r.mu.Lock()
		defer r.mu.Unlock()

		if r.closed {
			entry.Client.Close(ctx)
			return nil, errors.ErrClientClosed
		}

		r.entries[bucket] = entry
		return entry, nil
	})

	select {
	case <-ctx.Done():
		return nil, errors.IO(ctx.Err(), "Client", bucket)
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*Entry), nil
	}
}

func (r *Registry) lookup(bucket string) (*Entry, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed {
		return nil, false, errors.ErrClientClosed
	}

	entry, ok := r.entries[bucket]
	if !ok {
		return nil, false, nil
	}

	if entry.Client.IsClosed() {
		r.logger.Debug("Client for bucket '%s' reported closed, regenerating", bucket)
		return nil, false, nil
	}

	return entry, true, nil
}

// Generate builds a new, uncached client for bucket. A configured endpoint
// or region takes precedence over region discovery.
func (r *Registry) Generate(ctx context.Context, bucket string) (*Entry, error) {
	if r.endpoint != nil {
		client, err := r.endpoints.Endpoint(ctx, *r.endpoint)
		if err != nil {
			return nil, err
		}

		r.logger.Debug("Created client for bucket '%s' at endpoint '%s'", bucket, r.endpoint.URL())
		return &Entry{Client: client, Region: r.endpoint.Region}, nil
	}

	region := r.region
	if region == "" {
		discovered, err := r.Region(ctx, bucket)
		if err != nil {
			return nil, err
		}
		region = discovered
	}

	client, err := r.factory.Regional(ctx, region)
	if err != nil {
		return nil, err
	}

	r.logger.Debug("Created client for bucket '%s' in region '%s'", bucket, region)
	return &Entry{Client: client, Region: region}, nil
}

// Region discovers the region of bucket. The location query is tried
// first; when it is forbidden the region header of a HeadBucket probe is
// used, read from the error response for redirects.
func (r *Registry) Region(ctx context.Context, bucket string) (string, error) {
	locator, err := r.factory.Locator(ctx)
	if err != nil {
		return "", err
	}

	if b, ok := locator.(backend.Backend); ok && !b.GetCapabilities().Contains(backend.CapabilityRegionDiscovery) {
		return "", errors.NotCapable(b.Name(), string(backend.CapabilityRegionDiscovery))
	}

	location, err := transfer.Call(ctx, r.transfer, "GetBucketLocation", bucket, func(ctx context.Context) (string, error) {
		return locator.GetBucketLocation(ctx, bucket)
	})
	if err == nil {
		return normalizeLocation(location), nil
	}

	if backend.StatusCode(err) != http.StatusForbidden {
		return "", err
	}

	r.logger.Debug("Location of bucket '%s' is forbidden, probing with HeadBucket", bucket)

	header, err := transfer.Call(ctx, r.transfer, "HeadBucket", bucket, func(ctx context.Context) (http.Header, error) {
		return locator.HeadBucket(ctx, bucket)
	})
	if err != nil {
		if backend.StatusCode(err) == http.StatusMovedPermanently {
			r.logger.Debug("HeadBucket for '%s' was redirected", bucket)
		}
		header = backend.ResponseHeader(err)
	}

	if region := header.Get(backend.RegionHeader); region != "" {
		return region, nil
	}

	return "", errors.NoSuchElement("unable to determine the region of bucket '%s', configure it explicitly", bucket)
}

func normalizeLocation(location string) string {
	switch location {
	case "":
		return DefaultRegion
	case legacyEU:
		return "eu-west-1"
	}
	return location
}

// Invalidate drops and closes the cached client of bucket.
func (r *Registry) Invalidate(ctx context.Context, bucket string) error {
	r.mu.Lock()
	entry, ok := r.entries[bucket]
	delete(r.entries, bucket)
	r.mu.Unlock()

	if !ok {
		return nil
	}

	return entry.Client.Close(ctx)
}

// Len returns the number of cached clients.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.entries)
}

// Close closes all cached clients. Further lookups fail with ErrClientClosed.
func (r *Registry) Close(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil
	}
	r.closed = true

	errs := errors.Errors{}
	for bucket, entry := range r.entries {
		if err := entry.Client.Close(ctx); err != nil {
			errs.Add(err)
		}
		delete(r.entries, bucket)
	}

	return errs.Errors()
}
