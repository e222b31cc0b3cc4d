package sqlite

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/mwantia/s3vfs/backend"
	"github.com/mwantia/s3vfs/data"
)

const selectObject = "SELECT size, etag, content_type, modify_time FROM s3vfs_objects WHERE bucket = ? AND key = ?"

func (sb *SQLiteBackend) HeadObject(ctx context.Context, bucket, key string) (*data.ObjectStat, error) {
	sb.mu.RLock()
	defer sb.mu.RUnlock()

	if sb.db == nil {
		return nil, closedError()
	}

	stat, err := scanStat(sb.db.QueryRowContext(ctx, selectObject, bucket, key), key)
	if err == sql.ErrNoRows {
		return nil, noSuchKey("HeadObject", key)
	}

	return stat, err
}

func (sb *SQLiteBackend) GetObject(ctx context.Context, req *backend.GetObjectRequest) (*backend.GetObjectResult, error) {
	sb.mu.RLock()
	defer sb.mu.RUnlock()

	if sb.db == nil {
		return nil, closedError()
	}

	stat, err := scanStat(sb.db.QueryRowContext(ctx, selectObject, req.Bucket, req.Key), req.Key)
	if err == sql.ErrNoRows {
		return nil, noSuchKey("GetObject", req.Key)
	}
	if err != nil {
		return nil, err
	}

	start, end, err := backend.RangeBounds(req.Range, stat.Size)
	if err != nil {
		return nil, err
	}

	// substr() is 1-indexed
	var content []byte
	if end > start {
		err = sb.db.QueryRowContext(ctx,
			"SELECT substr(content, ?, ?) FROM s3vfs_objects WHERE bucket = ? AND key = ?",
			start+1, end-start, req.Bucket, req.Key).Scan(&content)
		if err != nil {
			return nil, err
		}
	}

	return &backend.GetObjectResult{
		Body: io.NopCloser(bytes.NewReader(content)),
		Stat: *stat,
	}, nil
}

func (sb *SQLiteBackend) PutObject(ctx context.Context, req *backend.PutObjectRequest) (*backend.PutObjectResult, error) {
	content, err := backend.ReadBody(req)
	if err != nil {
		return nil, err
	}

	sb.mu.Lock()
	defer sb.mu.Unlock()

	if sb.db == nil {
		return nil, closedError()
	}

	tx, err := sb.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var etag string
	err = tx.QueryRowContext(ctx, "SELECT etag FROM s3vfs_objects WHERE bucket = ? AND key = ?", req.Bucket, req.Key).Scan(&etag)
	if err != nil && err != sql.ErrNoRows {
		return nil, err
	}

	if err := backend.CheckPreconditions(req, err == nil, etag); err != nil {
		return nil, err
	}
	if err := backend.VerifyChecksum(req, content); err != nil {
		return nil, err
	}

	contentType := req.ContentType
	if contentType == "" {
		contentType = string(data.ContentTypeForKey(req.Key))
	}

	etag = backend.ContentETag(content)
	_, err = tx.ExecContext(ctx, `
		INSERT INTO s3vfs_objects (bucket, key, content, size, etag, content_type, modify_time)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(bucket, key) DO UPDATE SET
			content = excluded.content,
			size = excluded.size,
			etag = excluded.etag,
			content_type = excluded.content_type,
			modify_time = excluded.modify_time`,
		req.Bucket, req.Key, content, len(content), etag, contentType, time.Now().UnixNano())
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	return &backend.PutObjectResult{ETag: etag}, nil
}

func (sb *SQLiteBackend) ListObjects(ctx context.Context, req *backend.ListObjectsRequest) (*backend.ListObjectsResult, error) {
	sb.mu.RLock()
	defer sb.mu.RUnlock()

	if sb.db == nil {
		return nil, closedError()
	}

	rows, err := sb.db.QueryContext(ctx,
		"SELECT key, size, etag, content_type, modify_time FROM s3vfs_objects WHERE bucket = ? AND key >= ? ORDER BY key",
		req.Bucket, req.Prefix)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	collector := backend.NewListCollector(req)
	for rows.Next() {
		var (
			key         string
			size        int64
			etag        string
			contentType sql.NullString
			modifyTime  int64
		)
		if err := rows.Scan(&key, &size, &etag, &contentType, &modifyTime); err != nil {
			return nil, err
		}

		if !strings.HasPrefix(key, req.Prefix) {
			break
		}

		stat := &data.ObjectStat{
			Key:         key,
			Size:        size,
			ETag:        etag,
			ContentType: contentType.String,
			ModifyTime:  time.Unix(0, modifyTime),
			IsPrefix:    strings.HasSuffix(key, data.Separator),
		}
		if !collector.Add(stat) {
			break
		}
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return collector.Result(), nil
}

func (sb *SQLiteBackend) DeleteObjects(ctx context.Context, bucket string, keys []string) (*backend.DeleteObjectsResult, error) {
	if len(keys) > backend.MaxDeleteKeys {
		return nil, backend.NewResponseError("DeleteObjects", http.StatusBadRequest,
			"MalformedXML", "too many keys in a single request")
	}

	sb.mu.Lock()
	defer sb.mu.Unlock()

	if sb.db == nil {
		return nil, closedError()
	}

	tx, err := sb.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	result := &backend.DeleteObjectsResult{}
	for _, key := range keys {
		if _, err := tx.ExecContext(ctx, "DELETE FROM s3vfs_objects WHERE bucket = ? AND key = ?", bucket, key); err != nil {
			result.Errors = append(result.Errors, backend.DeleteError{
				Key:     key,
				Code:    "InternalError",
				Message: err.Error(),
			})
			continue
		}
		result.Deleted = append(result.Deleted, key)
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	return result, nil
}

func (sb *SQLiteBackend) CopyObject(ctx context.Context, req *backend.CopyObjectRequest) (*backend.CopyObjectResult, error) {
	sb.mu.Lock()
	defer sb.mu.Unlock()

	if sb.db == nil {
		return nil, closedError()
	}

	var etag string
	err := sb.db.QueryRowContext(ctx, `
		INSERT INTO s3vfs_objects (bucket, key, content, size, etag, content_type, modify_time)
		SELECT ?, ?, content, size, etag, content_type, ? FROM s3vfs_objects WHERE bucket = ? AND key = ?
		ON CONFLICT(bucket, key) DO UPDATE SET
			content = excluded.content,
			size = excluded.size,
			etag = excluded.etag,
			content_type = excluded.content_type,
			modify_time = excluded.modify_time
		RETURNING etag`,
		req.Bucket, req.Key, time.Now().UnixNano(), req.SourceBucket, req.SourceKey).Scan(&etag)
	if err == sql.ErrNoRows {
		return nil, noSuchKey("CopyObject", req.SourceKey)
	}
	if err != nil {
		return nil, err
	}

	return &backend.CopyObjectResult{ETag: etag}, nil
}

func scanStat(row *sql.Row, key string) (*data.ObjectStat, error) {
	var (
		contentType sql.NullString
		modifyTime  int64
	)

	stat := &data.ObjectStat{Key: key}
	if err := row.Scan(&stat.Size, &stat.ETag, &contentType, &modifyTime); err != nil {
		return nil, err
	}

	stat.ContentType = contentType.String
	stat.ModifyTime = time.Unix(0, modifyTime)
	stat.IsPrefix = strings.HasSuffix(key, data.Separator)
	return stat, nil
}

func noSuchKey(operation, key string) error {
	return backend.NewResponseError(operation, http.StatusNotFound, "NoSuchKey",
		fmt.Sprintf("the specified key '%s' does not exist", key))
}
