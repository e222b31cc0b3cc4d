package awss3

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/mwantia/s3vfs/backend"
	"github.com/mwantia/s3vfs/client"
)

// LocatorRegion scopes the client used for bucket location queries.
const LocatorRegion = "us-east-1"

// Factory creates SDK backed clients for a client.Registry. Credentials
// fall back to the default AWS credential chain when left empty.
type Factory struct {
	AccessKey string
	SecretKey string
	PathStyle bool
}

var (
	_ client.Factory         = (*Factory)(nil)
	_ client.EndpointFactory = (*Factory)(nil)
)

func (f *Factory) Locator(ctx context.Context) (backend.RegionLocator, error) {
	return f.regional(ctx, LocatorRegion)
}

func (f *Factory) Regional(ctx context.Context, region string) (backend.ObjectStorageBackend, error) {
	return f.regional(ctx, region)
}

func (f *Factory) regional(ctx context.Context, region string) (*S3Backend, error) {
	cfg, err := f.loadConfig(ctx, region, f.AccessKey, f.SecretKey)
	if err != nil {
		return nil, err
	}

	c := s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.UsePathStyle = f.PathStyle
	})

	return NewS3Backend(c, region), nil
}

// Endpoint creates a client for an S3 compatible store at endpoint.
func (f *Factory) Endpoint(ctx context.Context, endpoint client.Endpoint) (backend.ObjectStorageBackend, error) {
	region := endpoint.Region
	if region == "" {
		region = LocatorRegion
	}

	accessKey, secretKey := endpoint.AccessKey, endpoint.SecretKey
	if accessKey == "" {
		accessKey, secretKey = f.AccessKey, f.SecretKey
	}

	cfg, err := f.loadConfig(ctx, region, accessKey, secretKey)
	if err != nil {
		return nil, err
	}

	c := s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(endpoint.URL())
		o.UsePathStyle = f.PathStyle || endpoint.PathStyle
	})

	return NewS3Backend(c, region), nil
}

func (f *Factory) loadConfig(ctx context.Context, region, accessKey, secretKey string) (aws.Config, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(region),
	}
	if accessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(accessKey, secretKey, "")))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return aws.Config{}, fmt.Errorf("awss3: load config: %w", err)
	}

	return cfg, nil
}
