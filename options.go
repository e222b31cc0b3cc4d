package s3vfs

import (
	"github.com/mwantia/s3vfs/client"
	"github.com/mwantia/s3vfs/config"
	"github.com/mwantia/s3vfs/log"
	"github.com/spf13/afero"
)

type ProviderOptions struct {
	Config          *config.Configuration
	Factory         client.Factory
	EndpointFactory client.EndpointFactory
	BufferFs        afero.Fs
	Logger          *log.Logger
}

type ProviderOption func(*ProviderOptions) error

// WithConfig replaces the configuration loaded from the environment.
func WithConfig(cfg *config.Configuration) ProviderOption {
	return func(opts *ProviderOptions) error {
		opts.Config = cfg
		return nil
	}
}

// WithFactory sets the factory used for region scoped clients and region
// discovery. It defaults to the AWS SDK.
func WithFactory(factory client.Factory) ProviderOption {
	return func(opts *ProviderOptions) error {
		opts.Factory = factory
		return nil
	}
}

// WithEndpointFactory sets the factory used for custom endpoints. It
// defaults to the client named by the configured endpoint client.
func WithEndpointFactory(factory client.EndpointFactory) ProviderOption {
	return func(opts *ProviderOptions) error {
		opts.EndpointFactory = factory
		return nil
	}
}

// WithBufferFs sets the filesystem holding write-back buffers.
func WithBufferFs(fs afero.Fs) ProviderOption {
	return func(opts *ProviderOptions) error {
		opts.BufferFs = fs
		return nil
	}
}

func WithLogger(logger *log.Logger) ProviderOption {
	return func(opts *ProviderOptions) error {
		opts.Logger = logger
		return nil
	}
}
