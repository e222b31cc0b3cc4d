package minio

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	miniogo "github.com/minio/minio-go/v7"
	"github.com/mwantia/s3vfs/backend"
	"github.com/mwantia/s3vfs/data"
	"github.com/mwantia/s3vfs/data/errors"
)

func (mb *MinioBackend) HeadObject(ctx context.Context, bucket, key string) (*data.ObjectStat, error) {
	if mb.IsClosed() {
		return nil, errors.ErrClientClosed
	}

	info, err := mb.core.StatObject(ctx, bucket, key, miniogo.StatObjectOptions{})
	if err != nil {
		return nil, responseError("HeadObject", err)
	}

	return toObjectStat(info), nil
}

func (mb *MinioBackend) GetObject(ctx context.Context, req *backend.GetObjectRequest) (*backend.GetObjectResult, error) {
	if mb.IsClosed() {
		return nil, errors.ErrClientClosed
	}

	opts := miniogo.GetObjectOptions{}
	if req.Range != nil {
		opts.Set("Range", req.Range.Header())
	}

	body, info, header, err := mb.core.GetObject(ctx, req.Bucket, req.Key, opts)
	if err != nil {
		return nil, responseError("GetObject", err)
	}

	stat := toObjectStat(info)
	if contentRange := header.Get("Content-Range"); contentRange != "" {
		if i := strings.LastIndex(contentRange, "/"); i >= 0 {
			if total, err := strconv.ParseInt(contentRange[i+1:], 10, 64); err == nil {
				stat.Size = total
			}
		}
	}

	return &backend.GetObjectResult{
		Body: body,
		Stat: *stat,
	}, nil
}

func (mb *MinioBackend) PutObject(ctx context.Context, req *backend.PutObjectRequest) (*backend.PutObjectResult, error) {
	if mb.IsClosed() {
		return nil, errors.ErrClientClosed
	}

	opts := miniogo.PutObjectOptions{
		ContentType:      req.ContentType,
		DisableMultipart: true,
	}
	if req.IfMatch != "" {
		opts.SetMatchETag(unquoteETag(req.IfMatch))
	}
	if req.IfNoneMatch != "" {
		opts.SetMatchETagExcept(unquoteETag(req.IfNoneMatch))
	}
	if req.Checksum != nil {
		// The client computes the digest itself while streaming the body
		opts.Checksum = checksumType(req.Checksum.Algorithm)
	}

	size := req.ContentLength
	if size == 0 && req.Body != nil {
		size = -1
	}

	info, err := mb.core.Client.PutObject(ctx, req.Bucket, req.Key, req.Body, size, opts)
	if err != nil {
		return nil, responseError("PutObject", err)
	}

	return &backend.PutObjectResult{ETag: quoteETag(info.ETag)}, nil
}

func checksumType(alg backend.ChecksumAlgorithm) miniogo.ChecksumType {
	switch alg {
	case backend.ChecksumCRC32:
		return miniogo.ChecksumCRC32
	case backend.ChecksumCRC32C:
		return miniogo.ChecksumCRC32C
	case backend.ChecksumCRC64NVME:
		return miniogo.ChecksumCRC64NVME
	case backend.ChecksumSHA1:
		return miniogo.ChecksumSHA1
	case backend.ChecksumSHA256:
		return miniogo.ChecksumSHA256
	}
	return miniogo.ChecksumNone
}

// ListObjects streams the listing of the MinIO client into a page. Listing
// resumes after the continuation token, which holds the last emitted entry.
func (mb *MinioBackend) ListObjects(ctx context.Context, req *backend.ListObjectsRequest) (*backend.ListObjectsResult, error) {
	if mb.IsClosed() {
		return nil, errors.ErrClientClosed
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	objects := mb.core.Client.ListObjects(ctx, req.Bucket, miniogo.ListObjectsOptions{
		Prefix:     req.Prefix,
		Recursive:  req.Delimiter == "",
		StartAfter: req.ContinuationToken,
	})

	collector := backend.NewListCollector(req)
	for info := range objects {
		if info.Err != nil {
			return nil, responseError("ListObjects", info.Err)
		}

		if !collector.Add(toObjectStat(info)) {
			break
		}
	}

	return collector.Result(), nil
}

func (mb *MinioBackend) DeleteObjects(ctx context.Context, bucket string, keys []string) (*backend.DeleteObjectsResult, error) {
	if mb.IsClosed() {
		return nil, errors.ErrClientClosed
	}

	if len(keys) > backend.MaxDeleteKeys {
		return nil, backend.NewResponseError("DeleteObjects", http.StatusBadRequest,
			"MalformedXML", "too many keys in a single request")
	}

	objects := make(chan miniogo.ObjectInfo, len(keys))
	for _, key := range keys {
		objects <- miniogo.ObjectInfo{Key: key}
	}
	close(objects)

	failed := make(map[string]bool)
	result := &backend.DeleteObjectsResult{}
	for removeErr := range mb.core.Client.RemoveObjects(ctx, bucket, objects, miniogo.RemoveObjectsOptions{}) {
		resp := miniogo.ToErrorResponse(removeErr.Err)
		failed[removeErr.ObjectName] = true
		result.Errors = append(result.Errors, backend.DeleteError{
			Key:     removeErr.ObjectName,
			Code:    resp.Code,
			Message: removeErr.Err.Error(),
		})
	}

	for _, key := range keys {
		if !failed[key] {
			result.Deleted = append(result.Deleted, key)
		}
	}

	return result, nil
}

func (mb *MinioBackend) CopyObject(ctx context.Context, req *backend.CopyObjectRequest) (*backend.CopyObjectResult, error) {
	if mb.IsClosed() {
		return nil, errors.ErrClientClosed
	}

	info, err := mb.core.Client.CopyObject(ctx,
		miniogo.CopyDestOptions{Bucket: req.Bucket, Object: req.Key},
		miniogo.CopySrcOptions{Bucket: req.SourceBucket, Object: req.SourceKey})
	if err != nil {
		return nil, responseError("CopyObject", err)
	}

	return &backend.CopyObjectResult{ETag: quoteETag(info.ETag)}, nil
}

func (mb *MinioBackend) GetBucketLocation(ctx context.Context, bucket string) (string, error) {
	if mb.IsClosed() {
		return "", errors.ErrClientClosed
	}

	location, err := mb.core.Client.GetBucketLocation(ctx, bucket)
	if err != nil {
		return "", responseError("GetBucketLocation", err)
	}
	return location, nil
}

// HeadBucket probes the bucket and reports its location as region header.
func (mb *MinioBackend) HeadBucket(ctx context.Context, bucket string) (http.Header, error) {
	if mb.IsClosed() {
		return nil, errors.ErrClientClosed
	}

	exists, err := mb.core.Client.BucketExists(ctx, bucket)
	if err != nil {
		return nil, responseError("HeadBucket", err)
	}
	if !exists {
		return nil, backend.NewResponseError("HeadBucket", http.StatusNotFound, "NoSuchBucket", "bucket '"+bucket+"' does not exist")
	}

	header := http.Header{}
	if location, err := mb.core.Client.GetBucketLocation(ctx, bucket); err == nil && location != "" {
		header.Set(backend.RegionHeader, location)
	}
	return header, nil
}

func toObjectStat(info miniogo.ObjectInfo) *data.ObjectStat {
	return &data.ObjectStat{
		Key:         info.Key,
		Size:        info.Size,
		ETag:        quoteETag(info.ETag),
		ModifyTime:  info.LastModified,
		ContentType: info.ContentType,
		IsPrefix:    strings.HasSuffix(info.Key, data.Separator),
	}
}

// responseError converts a MinIO error response into a *backend.ResponseError.
func responseError(operation string, err error) error {
	resp := miniogo.ToErrorResponse(err)
	if resp.StatusCode == 0 {
		return err
	}

	result := backend.NewResponseError(operation, resp.StatusCode, resp.Code, resp.Message)
	result.Err = err
	if resp.Region != "" {
		result.Header.Set(backend.RegionHeader, resp.Region)
	}

	return result
}
