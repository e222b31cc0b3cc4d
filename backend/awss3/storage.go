package awss3

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/mwantia/s3vfs/backend"
	"github.com/mwantia/s3vfs/data"
	"github.com/mwantia/s3vfs/data/errors"
)

func (b *S3Backend) HeadObject(ctx context.Context, bucket, key string) (*data.ObjectStat, error) {
	if b.IsClosed() {
		return nil, errors.ErrClientClosed
	}

	out, err := b.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, responseError("HeadObject", err)
	}

	return &data.ObjectStat{
		Key:         key,
		Size:        aws.ToInt64(out.ContentLength),
		ETag:        aws.ToString(out.ETag),
		ModifyTime:  aws.ToTime(out.LastModified),
		ContentType: aws.ToString(out.ContentType),
		IsPrefix:    strings.HasSuffix(key, data.Separator),
	}, nil
}

func (b *S3Backend) GetObject(ctx context.Context, req *backend.GetObjectRequest) (*backend.GetObjectResult, error) {
	if b.IsClosed() {
		return nil, errors.ErrClientClosed
	}

	input := &s3.GetObjectInput{
		Bucket: aws.String(req.Bucket),
		Key:    aws.String(req.Key),
	}
	if req.Range != nil {
		input.Range = aws.String(req.Range.Header())
	}

	out, err := b.client.GetObject(ctx, input)
	if err != nil {
		return nil, responseError("GetObject", err)
	}

	size := aws.ToInt64(out.ContentLength)
	if total, ok := totalFromContentRange(aws.ToString(out.ContentRange)); ok {
		size = total
	}

	return &backend.GetObjectResult{
		Body: out.Body,
		Stat: data.ObjectStat{
			Key:         req.Key,
			Size:        size,
			ETag:        aws.ToString(out.ETag),
			ModifyTime:  aws.ToTime(out.LastModified),
			ContentType: aws.ToString(out.ContentType),
			IsPrefix:    strings.HasSuffix(req.Key, data.Separator),
		},
	}, nil
}

// totalFromContentRange parses the complete length of "bytes 0-4/11".
func totalFromContentRange(contentRange string) (int64, bool) {
	i := strings.LastIndex(contentRange, "/")
	if i < 0 {
		return 0, false
	}

	total, err := strconv.ParseInt(contentRange[i+1:], 10, 64)
	if err != nil {
		return 0, false
	}
	return total, true
}

func (b *S3Backend) PutObject(ctx context.Context, req *backend.PutObjectRequest) (*backend.PutObjectResult, error) {
	if b.IsClosed() {
		return nil, errors.ErrClientClosed
	}

	input := &s3.PutObjectInput{
		Bucket: aws.String(req.Bucket),
		Key:    aws.String(req.Key),
		Body:   req.Body,
	}
	if req.ContentLength >= 0 {
		input.ContentLength = aws.Int64(req.ContentLength)
	}
	if req.ContentType != "" {
		input.ContentType = aws.String(req.ContentType)
	}
	if req.IfMatch != "" {
		input.IfMatch = aws.String(req.IfMatch)
	}
	if req.IfNoneMatch != "" {
		input.IfNoneMatch = aws.String(req.IfNoneMatch)
	}
	if err := applyChecksum(input, req.Checksum); err != nil {
		return nil, err
	}

	out, err := b.client.PutObject(ctx, input)
	if err != nil {
		return nil, responseError("PutObject", err)
	}

	return &backend.PutObjectResult{ETag: aws.ToString(out.ETag)}, nil
}

func applyChecksum(input *s3.PutObjectInput, checksum *backend.Checksum) error {
	if checksum == nil {
		return nil
	}

	input.ChecksumAlgorithm = types.ChecksumAlgorithm(checksum.Algorithm)
	value := aws.String(checksum.Value)

	switch checksum.Algorithm {
	case backend.ChecksumCRC32:
		input.ChecksumCRC32 = value
	case backend.ChecksumCRC32C:
		input.ChecksumCRC32C = value
	case backend.ChecksumCRC64NVME:
		input.ChecksumCRC64NVME = value
	case backend.ChecksumSHA1:
		input.ChecksumSHA1 = value
	case backend.ChecksumSHA256:
		input.ChecksumSHA256 = value
	default:
		return fmt.Errorf("unsupported checksum algorithm '%s'", checksum.Algorithm)
	}

	return nil
}

func (b *S3Backend) ListObjects(ctx context.Context, req *backend.ListObjectsRequest) (*backend.ListObjectsResult, error) {
	if b.IsClosed() {
		return nil, errors.ErrClientClosed
	}

	input := &s3.ListObjectsV2Input{
		Bucket: aws.String(req.Bucket),
		Prefix: aws.String(req.Prefix),
	}
	if req.Delimiter != "" {
		input.Delimiter = aws.String(req.Delimiter)
	}
	if req.ContinuationToken != "" {
		input.ContinuationToken = aws.String(req.ContinuationToken)
	}
	if req.MaxKeys > 0 {
		input.MaxKeys = aws.Int32(int32(req.MaxKeys))
	}

	out, err := b.client.ListObjectsV2(ctx, input)
	if err != nil {
		return nil, responseError("ListObjectsV2", err)
	}

	result := &backend.ListObjectsResult{
		Truncated:             aws.ToBool(out.IsTruncated),
		NextContinuationToken: aws.ToString(out.NextContinuationToken),
	}

	for _, obj := range out.Contents {
		key := aws.ToString(obj.Key)
		result.Objects = append(result.Objects, &data.ObjectStat{
			Key:        key,
			Size:       aws.ToInt64(obj.Size),
			ETag:       aws.ToString(obj.ETag),
			ModifyTime: aws.ToTime(obj.LastModified),
			IsPrefix:   strings.HasSuffix(key, data.Separator),
		})
	}

	for _, prefix := range out.CommonPrefixes {
		result.CommonPrefixes = append(result.CommonPrefixes, aws.ToString(prefix.Prefix))
	}

	return result, nil
}

func (b *S3Backend) DeleteObjects(ctx context.Context, bucket string, keys []string) (*backend.DeleteObjectsResult, error) {
	if b.IsClosed() {
		return nil, errors.ErrClientClosed
	}

	identifiers := make([]types.ObjectIdentifier, 0, len(keys))
	for _, key := range keys {
		identifiers = append(identifiers, types.ObjectIdentifier{Key: aws.String(key)})
	}

	out, err := b.client.DeleteObjects(ctx, &s3.DeleteObjectsInput{
		Bucket: aws.String(bucket),
		Delete: &types.Delete{
			Objects: identifiers,
			Quiet:   aws.Bool(false),
		},
	})
	if err != nil {
		return nil, responseError("DeleteObjects", err)
	}

	result := &backend.DeleteObjectsResult{}
	for _, deleted := range out.Deleted {
		result.Deleted = append(result.Deleted, aws.ToString(deleted.Key))
	}
	for _, failed := range out.Errors {
		result.Errors = append(result.Errors, backend.DeleteError{
			Key:     aws.ToString(failed.Key),
			Code:    aws.ToString(failed.Code),
			Message: aws.ToString(failed.Message),
		})
	}

	return result, nil
}

func (b *S3Backend) CopyObject(ctx context.Context, req *backend.CopyObjectRequest) (*backend.CopyObjectResult, error) {
	if b.IsClosed() {
		return nil, errors.ErrClientClosed
	}

	out, err := b.client.CopyObject(ctx, &s3.CopyObjectInput{
		Bucket:     aws.String(req.Bucket),
		Key:        aws.String(req.Key),
		CopySource: aws.String(copySource(req.SourceBucket, req.SourceKey)),
	})
	if err != nil {
		return nil, responseError("CopyObject", err)
	}

	result := &backend.CopyObjectResult{}
	if out.CopyObjectResult != nil {
		result.ETag = aws.ToString(out.CopyObjectResult.ETag)
	}
	return result, nil
}

// copySource url-encodes the key but keeps its separators.
func copySource(bucket, key string) string {
	segments := strings.Split(key, data.Separator)
	for i, segment := range segments {
		segments[i] = url.PathEscape(segment)
	}
	return bucket + "/" + strings.Join(segments, data.Separator)
}

func (b *S3Backend) GetBucketLocation(ctx context.Context, bucket string) (string, error) {
	if b.IsClosed() {
		return "", errors.ErrClientClosed
	}

	out, err := b.client.GetBucketLocation(ctx, &s3.GetBucketLocationInput{
		Bucket: aws.String(bucket),
	})
	if err != nil {
		return "", responseError("GetBucketLocation", err)
	}

	return string(out.LocationConstraint), nil
}

func (b *S3Backend) HeadBucket(ctx context.Context, bucket string) (http.Header, error) {
	if b.IsClosed() {
		return nil, errors.ErrClientClosed
	}

	out, err := b.client.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(bucket),
	})
	if err != nil {
		return nil, responseError("HeadBucket", err)
	}

	header := http.Header{}
	if region := aws.ToString(out.BucketRegion); region != "" {
		header.Set(backend.RegionHeader, region)
	}
	return header, nil
}
