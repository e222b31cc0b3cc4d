// Package s3vfs presents buckets of S3 compatible object stores as
// hierarchical filesystems with seekable read and write channels.
package s3vfs

import (
	"context"
	"strings"
	"sync"

	"github.com/mwantia/s3vfs/backend"
	"github.com/mwantia/s3vfs/backend/awss3"
	"github.com/mwantia/s3vfs/backend/minio"
	"github.com/mwantia/s3vfs/client"
	"github.com/mwantia/s3vfs/config"
	"github.com/mwantia/s3vfs/data"
	"github.com/mwantia/s3vfs/data/errors"
	"github.com/mwantia/s3vfs/log"
	"github.com/mwantia/s3vfs/transfer"
	"github.com/spf13/afero"
)

// Provider is the registry of open filesystems. One filesystem exists per
// bucket, endpoint and access key.
type Provider struct {
	mu          sync.Mutex
	filesystems map[FileSystemKey]*FileSystem

	config    *config.Configuration
	factory   client.Factory
	endpoints client.EndpointFactory
	buffers   afero.Fs
	transfer  *transfer.Util
	logger    *log.Logger
}

// NewProvider creates a provider. Without WithConfig the configuration is
// loaded from the environment.
func NewProvider(opts ...ProviderOption) (*Provider, error) {
	options := &ProviderOptions{}
	for _, opt := range opts {
		if err := opt(options); err != nil {
			return nil, err
		}
	}

	cfg := options.Config
	if cfg == nil {
		loaded, err := config.Load("")
		if err != nil {
			return nil, err
		}
		cfg = loaded
	} else if err := cfg.Validate(); err != nil {
		return nil, err
	}

	p := &Provider{
		filesystems: make(map[FileSystemKey]*FileSystem),
		config:      cfg.Clone(),
		factory:     options.Factory,
		endpoints:   options.EndpointFactory,
		buffers:     options.BufferFs,
		logger:      options.Logger,
	}

	if p.logger == nil {
		p.logger = cfg.Logger("s3vfs")
	}
	if p.buffers == nil {
		p.buffers = afero.NewOsFs()
	}
	if p.factory == nil {
		p.factory = &awss3.Factory{
			AccessKey: cfg.AccessKey,
			SecretKey: cfg.SecretKey,
			PathStyle: cfg.PathStyle,
		}
	}
	if p.endpoints == nil {
		p.endpoints = p.defaultEndpointFactory()
	}

	p.transfer = transfer.New(cfg.Timeout, p.logger.Named("transfer"))
	return p, nil
}

func (p *Provider) defaultEndpointFactory() client.EndpointFactory {
	if strings.EqualFold(p.config.EndpointClient, config.EndpointClientAWS) {
		if factory, ok := p.factory.(client.EndpointFactory); ok {
			return factory
		}
		return &awss3.Factory{
			AccessKey: p.config.AccessKey,
			SecretKey: p.config.SecretKey,
			PathStyle: p.config.PathStyle,
		}
	}
	return minio.Factory{}
}

// Config returns a copy of the configuration of the provider.
func (p *Provider) Config() *config.Configuration {
	return p.config.Clone()
}

// NewFileSystem creates the filesystem addressed by uri. It fails with
// ErrFileSystemExists when that filesystem is already open.
func (p *Provider) NewFileSystem(uri string) (*FileSystem, error) {
	loc, err := ParseURI(uri)
	if err != nil {
		return nil, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	key := loc.Key()
	if _, ok := p.filesystems[key]; ok {
		return nil, errors.FileSystemExists(key.String())
	}

	return p.create(loc), nil
}

// GetFileSystem returns the open filesystem addressed by uri. It fails
// with ErrFileSystemNotFound when none is open.
func (p *Provider) GetFileSystem(uri string) (*FileSystem, error) {
	loc, err := ParseURI(uri)
	if err != nil {
		return nil, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	fs, ok := p.filesystems[loc.Key()]
	if !ok {
		return nil, errors.FileSystemNotFound(loc.Key().String())
	}
	return fs, nil
}

// FileSystem returns the filesystem addressed by uri, creating it on first
// reference.
func (p *Provider) FileSystem(uri string) (*FileSystem, error) {
	loc, err := ParseURI(uri)
	if err != nil {
		return nil, err
	}

	fs, _ := p.lookupOrCreate(loc)
	return fs, nil
}

// GetPath returns the path addressed by uri. The scheme, credentials,
// endpoint and bucket are stripped before the rest is parsed.
func (p *Provider) GetPath(uri string) (*Path, error) {
	loc, err := ParseURI(uri)
	if err != nil {
		return nil, err
	}

	fs, _ := p.lookupOrCreate(loc)
	return fs.GetPath(loc.Path)
}

// FileSystems returns the number of open filesystems.
func (p *Provider) FileSystems() int {
	p.mu.Lock()
	defer p.mu.Unlock()

	return len(p.filesystems)
}

// Close closes every open filesystem.
func (p *Provider) Close(ctx context.Context) error {
	p.mu.Lock()
	filesystems := make([]*FileSystem, 0, len(p.filesystems))
	for _, fs := range p.filesystems {
		filesystems = append(filesystems, fs)
	}
	p.mu.Unlock()

	errs := errors.Errors{}
	for _, fs := range filesystems {
		if err := fs.Close(ctx); err != nil {
			errs.Add(err)
		}
	}
	return errs.Errors()
}

func (p *Provider) lookupOrCreate(loc *Location) (*FileSystem, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if fs, ok := p.filesystems[loc.Key()]; ok {
		return fs, false
	}
	return p.create(loc), true
}

// create must be called with the lock held.
func (p *Provider) create(loc *Location) *FileSystem {
	key := loc.Key()
	logger := p.logger.Named(key.String())

	opts := []client.Option{
		client.WithTransfer(p.transfer),
		client.WithLogger(logger.Named("clients")),
	}

	if p.config.Region != "" {
		opts = append(opts, client.WithRegion(p.config.Region))
	}

	host := loc.Endpoint
	if host == "" {
		host = p.config.Endpoint
	}
	if host != "" {
		endpoint := client.Endpoint{
			Host:      host,
			Protocol:  p.config.EndpointProtocol,
			Region:    p.config.Region,
			PathStyle: p.config.PathStyle,
			AccessKey: p.config.AccessKey,
			SecretKey: p.config.SecretKey,
		}
		if loc.AccessKey != "" {
			endpoint.AccessKey = loc.AccessKey
			endpoint.SecretKey = loc.SecretKey
		}
		opts = append(opts, client.WithEndpoint(endpoint, p.endpoints))
	}

	fs := newFileSystem(p, key, client.NewRegistry(p.factory, opts...))
	p.filesystems[key] = fs

	p.logger.Debug("Created filesystem '%s'", key)
	return fs
}

func (p *Provider) remove(fs *FileSystem) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if current, ok := p.filesystems[fs.key]; ok && current == fs {
		delete(p.filesystems, fs.key)
	}
}

// Open opens a channel for path. Modes with write access return a
// *WriteChannel, all others a *ReadChannel.
func (p *Provider) Open(ctx context.Context, path *Path, mode data.AccessMode, opts ...OpenOption) (Channel, error) {
	if mode.CanWrite() {
		channel, err := p.OpenWrite(ctx, path, mode, opts...)
		if err != nil {
			return nil, err
		}
		return channel, nil
	}

	channel, err := p.OpenRead(ctx, path, opts...)
	if err != nil {
		return nil, err
	}
	return channel, nil
}

// OpenRead opens a read channel for path.
func (p *Provider) OpenRead(ctx context.Context, path *Path, opts ...OpenOption) (*ReadChannel, error) {
	options, err := newOpenOptions(opts)
	if err != nil {
		return nil, err
	}
	if len(options.policies) > 0 {
		return nil, errors.Invalid("write policies require write access")
	}

	store, err := p.channelClient(ctx, path)
	if err != nil {
		return nil, err
	}

	return newReadChannel(ctx, path, store, options)
}

// OpenWrite opens a write channel for path. Write access is implied.
func (p *Provider) OpenWrite(ctx context.Context, path *Path, mode data.AccessMode, opts ...OpenOption) (*WriteChannel, error) {
	if !mode.CanWrite() {
		mode |= data.AccessModeWrite
	}
	if err := mode.Validate(); err != nil {
		return nil, err
	}

	options, err := newOpenOptions(opts)
	if err != nil {
		return nil, err
	}
	if options.rng != nil {
		return nil, errors.Invalid("a range requires a read channel")
	}

	store, err := p.channelClient(ctx, path)
	if err != nil {
		return nil, err
	}

	return newWriteChannel(ctx, path, store, mode, options)
}

func (p *Provider) channelClient(ctx context.Context, path *Path) (backend.ObjectStorageBackend, error) {
	if err := p.owns(path); err != nil {
		return nil, err
	}
	if path.IsDirectory() {
		return nil, errors.IsDirectory(path.String())
	}
	return path.FileSystem().client(ctx)
}

func (p *Provider) owns(path *Path) error {
	if path == nil {
		return errors.Invalid("path is nil")
	}
	if path.FileSystem().provider != p {
		return errors.ProviderMismatch(path.ToURI(), "provider")
	}
	return nil
}
