package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"sync"

	"github.com/mwantia/s3vfs/backend"
	"github.com/mwantia/s3vfs/data/errors"
	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

// SQLiteBackend stores objects of all buckets in a single SQLite database.
// The dsn can be ":memory:" for an in-memory database or a file path.
// In-memory databases lose their content when the backend is closed.
type SQLiteBackend struct {
	mu  sync.RWMutex
	dsn string
	db  *sql.DB
}

var (
	_ backend.ObjectStorageBackend = (*SQLiteBackend)(nil)
	_ backend.RegionLocator        = (*SQLiteBackend)(nil)
)

func NewSQLiteBackend(dsn string) (*SQLiteBackend, error) {
	db, err := openDatabase(dsn)
	if err != nil {
		return nil, err
	}

	return &SQLiteBackend{
		dsn: dsn,
		db:  db,
	}, nil
}

func openDatabase(dsn string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}

	// Every connection of an in-memory database would see its own schema
	db.SetMaxOpenConns(1)

	if dsn != ":memory:" {
		if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
			db.Close()
			return nil, err
		}
	}

	if err := initSchema(db); err != nil {
		db.Close()
		return nil, err
	}

	return db, nil
}

func initSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS s3vfs_objects (
		bucket TEXT NOT NULL,
		key TEXT NOT NULL,
		content BLOB,
		size INTEGER NOT NULL CHECK(size >= 0),
		etag TEXT NOT NULL,
		content_type TEXT,
		modify_time INTEGER NOT NULL,
		PRIMARY KEY (bucket, key)
	);

	CREATE TABLE IF NOT EXISTS s3vfs_buckets (
		bucket TEXT PRIMARY KEY,
		region TEXT NOT NULL
	);
	`

	_, err := db.Exec(schema)
	return err
}

// Returns the identifier name defined for this backend
func (*SQLiteBackend) Name() string {
	return "sqlite"
}

// Open is part of the lifecycle behaviour and reconnects a closed backend.
func (sb *SQLiteBackend) Open(ctx context.Context) error {
	sb.mu.Lock()
	defer sb.mu.Unlock()

	if sb.db == nil {
		db, err := openDatabase(sb.dsn)
		if err != nil {
			return err
		}
		sb.db = db
	}

	return sb.db.PingContext(ctx)
}

// Close is part of the lifecycle behaviour and gets called when closing this backend.
func (sb *SQLiteBackend) Close(ctx context.Context) error {
	sb.mu.Lock()
	defer sb.mu.Unlock()

	if sb.db == nil {
		return nil
	}

	err := sb.db.Close()
	sb.db = nil
	return err
}

func (sb *SQLiteBackend) IsClosed() bool {
	sb.mu.RLock()
	defer sb.mu.RUnlock()

	return sb.db == nil
}

// GetCapabilities returns a list of capabilities supported by this backend.
func (sb *SQLiteBackend) GetCapabilities() *backend.BackendCapabilities {
	return &backend.BackendCapabilities{
		Capabilities: []backend.BackendCapability{
			backend.CapabilityObjectStorage,
			backend.CapabilityRangeRead,
			backend.CapabilityConditionalWrite,
			backend.CapabilityChecksum,
			backend.CapabilityRegionDiscovery,
			backend.CapabilityServerSideCopy,
		},
		MaxObjectSize: 1073741824, // 1 GB
	}
}

// CreateBucket registers bucket with the region reported by GetBucketLocation.
func (sb *SQLiteBackend) CreateBucket(ctx context.Context, bucket, region string) error {
	sb.mu.Lock()
	defer sb.mu.Unlock()

	if sb.db == nil {
		return closedError()
	}

	_, err := sb.db.ExecContext(ctx,
		"INSERT INTO s3vfs_buckets (bucket, region) VALUES (?, ?) ON CONFLICT(bucket) DO UPDATE SET region = excluded.region",
		bucket, region)
	return err
}

func (sb *SQLiteBackend) GetBucketLocation(ctx context.Context, bucket string) (string, error) {
	sb.mu.RLock()
	defer sb.mu.RUnlock()

	if sb.db == nil {
		return "", closedError()
	}

	return sb.bucketRegionUnsafe(ctx, "GetBucketLocation", bucket)
}

func (sb *SQLiteBackend) HeadBucket(ctx context.Context, bucket string) (http.Header, error) {
	sb.mu.RLock()
	defer sb.mu.RUnlock()

	if sb.db == nil {
		return nil, closedError()
	}

	region, err := sb.bucketRegionUnsafe(ctx, "HeadBucket", bucket)
	if err != nil {
		return nil, err
	}

	header := http.Header{}
	header.Set(backend.RegionHeader, region)
	return header, nil
}

func (sb *SQLiteBackend) bucketRegionUnsafe(ctx context.Context, operation, bucket string) (string, error) {
	var region string
	err := sb.db.QueryRowContext(ctx, "SELECT region FROM s3vfs_buckets WHERE bucket = ?", bucket).Scan(&region)
	if err == sql.ErrNoRows {
		return "", backend.NewResponseError(operation, http.StatusNotFound, "NoSuchBucket",
			fmt.Sprintf("the specified bucket '%s' does not exist", bucket))
	}

	return region, err
}

func closedError() error {
	return fmt.Errorf("sqlite: %w", errors.ErrClientClosed)
}
