package ephemeral

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/mwantia/s3vfs/backend"
	"github.com/mwantia/s3vfs/data/errors"
	"github.com/tidwall/btree"
)

type object struct {
	content     []byte
	etag        string
	contentType string
	modifyTime  time.Time
}

// Calls counts the requests served by an EphemeralBackend.
type Calls struct {
	HeadObject    int
	GetObject     int
	PutObject     int
	ListObjects   int
	DeleteObjects int
	CopyObject    int
	HeadBucket    int
	Location      int
}

// EphemeralBackend is an in-memory object store. Objects of all buckets
// live in one ordered index keyed by "bucket:key". Data survives Close so a
// closed backend can be reopened by a client registry.
type EphemeralBackend struct {
	mu sync.RWMutex

	objects *btree.Map[string, *object]
	regions map[string]string
	calls   Calls
	closed  bool
}

var (
	_ backend.ObjectStorageBackend = (*EphemeralBackend)(nil)
	_ backend.RegionLocator        = (*EphemeralBackend)(nil)
)

func NewEphemeralBackend() *EphemeralBackend {
	return &EphemeralBackend{
		objects: btree.NewMap[string, *object](0),
		regions: make(map[string]string),
	}
}

// Returns the identifier name defined for this backend
func (*EphemeralBackend) Name() string {
	return "ephemeral"
}

// Open is part of the lifecycle behaviour and gets called before first use.
func (eb *EphemeralBackend) Open(ctx context.Context) error {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	eb.closed = false
	return nil
}

// Close is part of the lifecycle behaviour and marks the backend closed.
func (eb *EphemeralBackend) Close(ctx context.Context) error {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	eb.closed = true
	return nil
}

func (eb *EphemeralBackend) IsClosed() bool {
	eb.mu.RLock()
	defer eb.mu.RUnlock()

	return eb.closed
}

// GetCapabilities returns a list of capabilities supported by this backend.
func (eb *EphemeralBackend) GetCapabilities() *backend.BackendCapabilities {
	return &backend.BackendCapabilities{
		Capabilities: []backend.BackendCapability{
			backend.CapabilityObjectStorage,
			backend.CapabilityRangeRead,
			backend.CapabilityConditionalWrite,
			backend.CapabilityChecksum,
			backend.CapabilityRegionDiscovery,
			backend.CapabilityServerSideCopy,
		},
		MaxObjectSize: 104857600, // 100 MB
	}
}

// CreateBucket registers bucket with the region reported by GetBucketLocation.
func (eb *EphemeralBackend) CreateBucket(bucket, region string) {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	eb.regions[bucket] = region
}

// Calls returns a snapshot of the request counters.
func (eb *EphemeralBackend) Calls() Calls {
	eb.mu.RLock()
	defer eb.mu.RUnlock()

	return eb.calls
}

// Len returns the number of stored objects over all buckets.
func (eb *EphemeralBackend) Len() int {
	eb.mu.RLock()
	defer eb.mu.RUnlock()

	return eb.objects.Len()
}

func (eb *EphemeralBackend) GetBucketLocation(ctx context.Context, bucket string) (string, error) {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	eb.calls.Location++
	if eb.closed {
		return "", closedError()
	}

	region, ok := eb.regions[bucket]
	if !ok {
		return "", noSuchBucket("GetBucketLocation", bucket)
	}

	return region, nil
}

func (eb *EphemeralBackend) HeadBucket(ctx context.Context, bucket string) (http.Header, error) {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	eb.calls.HeadBucket++
	if eb.closed {
		return nil, closedError()
	}

	region, ok := eb.regions[bucket]
	if !ok {
		return nil, noSuchBucket("HeadBucket", bucket)
	}

	header := http.Header{}
	header.Set(backend.RegionHeader, region)
	return header, nil
}

func closedError() error {
	return fmt.Errorf("ephemeral: %w", errors.ErrClientClosed)
}

func noSuchBucket(operation, bucket string) error {
	return backend.NewResponseError(operation, http.StatusNotFound, "NoSuchBucket",
		fmt.Sprintf("the specified bucket '%s' does not exist", bucket))
}

func noSuchKey(operation, key string) error {
	return backend.NewResponseError(operation, http.StatusNotFound, "NoSuchKey",
		fmt.Sprintf("the specified key '%s' does not exist", key))
}
