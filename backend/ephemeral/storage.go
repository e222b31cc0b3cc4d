package ephemeral

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/mwantia/s3vfs/backend"
	"github.com/mwantia/s3vfs/data"
)

func (eb *EphemeralBackend) HeadObject(ctx context.Context, bucket, key string) (*data.ObjectStat, error) {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	eb.calls.HeadObject++
	if eb.closed {
		return nil, closedError()
	}

	obj, ok := eb.objects.Get(backend.BucketKey(bucket, key))
	if !ok {
		return nil, noSuchKey("HeadObject", key)
	}

	return obj.stat(key), nil
}

func (eb *EphemeralBackend) GetObject(ctx context.Context, req *backend.GetObjectRequest) (*backend.GetObjectResult, error) {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	eb.calls.GetObject++
	if eb.closed {
		return nil, closedError()
	}

	obj, ok := eb.objects.Get(backend.BucketKey(req.Bucket, req.Key))
	if !ok {
		return nil, noSuchKey("GetObject", req.Key)
	}

	start, end, err := backend.RangeBounds(req.Range, int64(len(obj.content)))
	if err != nil {
		return nil, err
	}

	return &backend.GetObjectResult{
		Body: io.NopCloser(bytes.NewReader(slices.Clone(obj.content[start:end]))),
		Stat: *obj.stat(req.Key),
	}, nil
}

func (eb *EphemeralBackend) PutObject(ctx context.Context, req *backend.PutObjectRequest) (*backend.PutObjectResult, error) {
	content, err := backend.ReadBody(req)
	if err != nil {
		return nil, err
	}

	eb.mu.Lock()
	defer eb.mu.Unlock()

	eb.calls.PutObject++
	if eb.closed {
		return nil, closedError()
	}

	bucketKey := backend.BucketKey(req.Bucket, req.Key)
	existing, exists := eb.objects.Get(bucketKey)

	var etag string
	if exists {
		etag = existing.etag
	}
	if err := backend.CheckPreconditions(req, exists, etag); err != nil {
		return nil, err
	}
	if err := backend.VerifyChecksum(req, content); err != nil {
		return nil, err
	}

	contentType := req.ContentType
	if contentType == "" {
		contentType = string(data.ContentTypeForKey(req.Key))
	}

	obj := &object{
		content:     content,
		etag:        backend.ContentETag(content),
		contentType: contentType,
		modifyTime:  time.Now(),
	}
	eb.objects.Set(bucketKey, obj)

	return &backend.PutObjectResult{ETag: obj.etag}, nil
}

func (eb *EphemeralBackend) ListObjects(ctx context.Context, req *backend.ListObjectsRequest) (*backend.ListObjectsResult, error) {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	eb.calls.ListObjects++
	if eb.closed {
		return nil, closedError()
	}

	scope := backend.BucketKey(req.Bucket, "")
	pivot := backend.BucketKey(req.Bucket, req.Prefix)

	collector := backend.NewListCollector(req)
	eb.objects.Ascend(pivot, func(bucketKey string, obj *object) bool {
		if !strings.HasPrefix(bucketKey, pivot) {
			return false
		}
		return collector.Add(obj.stat(bucketKey[len(scope):]))
	})

	return collector.Result(), nil
}

func (eb *EphemeralBackend) DeleteObjects(ctx context.Context, bucket string, keys []string) (*backend.DeleteObjectsResult, error) {
	if len(keys) > backend.MaxDeleteKeys {
		return nil, backend.NewResponseError("DeleteObjects", http.StatusBadRequest,
			"MalformedXML", "too many keys in a single request")
	}

	eb.mu.Lock()
	defer eb.mu.Unlock()

	eb.calls.DeleteObjects++
	if eb.closed {
		return nil, closedError()
	}

	result := &backend.DeleteObjectsResult{}
	for _, key := range keys {
		eb.objects.Delete(backend.BucketKey(bucket, key))
		result.Deleted = append(result.Deleted, key)
	}

	return result, nil
}

func (eb *EphemeralBackend) CopyObject(ctx context.Context, req *backend.CopyObjectRequest) (*backend.CopyObjectResult, error) {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	eb.calls.CopyObject++
	if eb.closed {
		return nil, closedError()
	}

	src, ok := eb.objects.Get(backend.BucketKey(req.SourceBucket, req.SourceKey))
	if !ok {
		return nil, noSuchKey("CopyObject", req.SourceKey)
	}

	dst := &object{
		content:     slices.Clone(src.content),
		etag:        src.etag,
		contentType: src.contentType,
		modifyTime:  time.Now(),
	}
	eb.objects.Set(backend.BucketKey(req.Bucket, req.Key), dst)

	return &backend.CopyObjectResult{ETag: dst.etag}, nil
}

func (o *object) stat(key string) *data.ObjectStat {
	return &data.ObjectStat{
		Key:         key,
		Size:        int64(len(o.content)),
		ETag:        o.etag,
		ModifyTime:  o.modifyTime,
		ContentType: o.contentType,
		IsPrefix:    strings.HasSuffix(key, data.Separator),
	}
}
