package s3vfs_test

import (
	"bytes"
	"io"
	"os"
	"strings"
	"testing"

	"github.com/mwantia/s3vfs"
	"github.com/mwantia/s3vfs/backend"
	"github.com/mwantia/s3vfs/backend/ephemeral"
	"github.com/mwantia/s3vfs/backend/sqlite"
	"github.com/mwantia/s3vfs/client"
	"github.com/mwantia/s3vfs/config"
	"github.com/mwantia/s3vfs/log"
	"github.com/spf13/afero"
)

const testBucket = "bucket"

type testStore interface {
	backend.ObjectStorageBackend
	backend.RegionLocator
}

type testEnv struct {
	provider *s3vfs.Provider
	store    testStore
	buffers  afero.Fs
}

// TestStoreFactory creates a fresh store holding testBucket.
type TestStoreFactory func(t *testing.T) testStore

// GetTestStoreFactories returns the local stores every provider test runs against.
func GetTestStoreFactories() map[string]TestStoreFactory {
	return map[string]TestStoreFactory{
		"ephemeral": func(t *testing.T) testStore {
			store := ephemeral.NewEphemeralBackend()
			store.CreateBucket(testBucket, "eu-west-1")
			return store
		},
		"sqlite": func(t *testing.T) testStore {
			store, err := sqlite.NewSQLiteBackend(":memory:")
			if err != nil {
				t.Fatalf("NewSQLiteBackend failed: %v", err)
			}
			if err := store.CreateBucket(t.Context(), testBucket, "eu-west-1"); err != nil {
				t.Fatalf("CreateBucket failed: %v", err)
			}
			return store
		},
	}
}

func newTestEnv(t *testing.T, store testStore, configure ...func(cfg *config.Configuration)) *testEnv {
	t.Helper()

	cfg := config.Default()
	cfg.FragmentSize = 4
	cfg.MaxFragments = 8
	for _, fn := range configure {
		fn(cfg)
	}

	buffers := afero.NewMemMapFs()
	factory := &client.StaticFactory{Backend: store}

	provider, err := s3vfs.NewProvider(
		s3vfs.WithConfig(cfg),
		s3vfs.WithFactory(factory),
		s3vfs.WithEndpointFactory(factory),
		s3vfs.WithBufferFs(buffers),
		s3vfs.WithLogger(log.Discard()),
	)
	if err != nil {
		t.Fatalf("NewProvider failed: %v", err)
	}

	t.Cleanup(func() {
		provider.Close(t.Context())
	})

	return &testEnv{
		provider: provider,
		store:    store,
		buffers:  buffers,
	}
}

func newEphemeralEnv(t *testing.T, configure ...func(cfg *config.Configuration)) (*testEnv, *ephemeral.EphemeralBackend) {
	t.Helper()

	store := ephemeral.NewEphemeralBackend()
	store.CreateBucket(testBucket, "eu-west-1")
	return newTestEnv(t, store, configure...), store
}

func (env *testEnv) path(t *testing.T, p string) *s3vfs.Path {
	t.Helper()

	fs, err := env.provider.FileSystem("s3://" + testBucket)
	if err != nil {
		t.Fatalf("FileSystem failed: %v", err)
	}

	path, err := fs.GetPath(p)
	if err != nil {
		t.Fatalf("GetPath(%q) failed: %v", p, err)
	}
	return path
}

func (env *testEnv) put(t *testing.T, key, content string) string {
	t.Helper()

	result, err := env.store.PutObject(t.Context(), &backend.PutObjectRequest{
		Bucket:        testBucket,
		Key:           key,
		Body:          strings.NewReader(content),
		ContentLength: int64(len(content)),
	})
	if err != nil {
		t.Fatalf("PutObject(%q) failed: %v", key, err)
	}
	return result.ETag
}

func (env *testEnv) get(t *testing.T, key string) string {
	t.Helper()

	result, err := env.store.GetObject(t.Context(), &backend.GetObjectRequest{
		Bucket: testBucket,
		Key:    key,
	})
	if err != nil {
		t.Fatalf("GetObject(%q) failed: %v", key, err)
	}
	defer result.Body.Close()

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, result.Body); err != nil {
		t.Fatalf("reading %q failed: %v", key, err)
	}
	return buf.String()
}

// buffersLeft counts the write-back buffers that were not removed.
func (env *testEnv) buffersLeft(t *testing.T) int {
	t.Helper()

	count := 0
	err := afero.Walk(env.buffers, "/", func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() {
			count++
		}
		return nil
	})
	if err != nil && !os.IsNotExist(err) {
		t.Fatalf("walking buffers failed: %v", err)
	}
	return count
}

// limitedStore is an ephemeral store that declares only some capabilities.
type limitedStore struct {
	*ephemeral.EphemeralBackend

	capabilities []backend.BackendCapability
}

// newLimitedEnv configures the region, the store cannot be asked for it.
func newLimitedEnv(t *testing.T, capabilities ...backend.BackendCapability) (*testEnv, *limitedStore) {
	t.Helper()

	store := &limitedStore{
		EphemeralBackend: ephemeral.NewEphemeralBackend(),
		capabilities:     capabilities,
	}
	store.CreateBucket(testBucket, "eu-west-1")

	env := newTestEnv(t, store, func(cfg *config.Configuration) {
		cfg.Region = "eu-west-1"
	})
	return env, store
}

func (s *limitedStore) GetCapabilities() *backend.BackendCapabilities {
	return &backend.BackendCapabilities{Capabilities: s.capabilities}
}
