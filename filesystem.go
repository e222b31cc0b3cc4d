package s3vfs

import (
	"context"
	"io"
	"sync"

	"github.com/google/uuid"
	"github.com/mwantia/s3vfs/backend"
	"github.com/mwantia/s3vfs/client"
	"github.com/mwantia/s3vfs/data"
	"github.com/mwantia/s3vfs/data/errors"
	"github.com/mwantia/s3vfs/log"
)

// FileSystemKey identifies a filesystem inside a Provider.
type FileSystemKey struct {
	Bucket    string
	Endpoint  string
	AccessKey string
}

func (k FileSystemKey) String() string {
	var prefix string
	if k.AccessKey != "" {
		prefix = k.AccessKey + "@"
	}
	if k.Endpoint != "" {
		prefix += k.Endpoint + data.Separator
	}
	return prefix + k.Bucket
}

// FileSystem presents one bucket as a hierarchical filesystem. It tracks
// every channel opened through it and closes them when it is closed.
type FileSystem struct {
	mu     sync.RWMutex
	closed bool

	provider *Provider
	key      FileSystemKey
	clients  *client.Registry
	channels map[uuid.UUID]io.Closer

	logger *log.Logger
}

func newFileSystem(provider *Provider, key FileSystemKey, clients *client.Registry) *FileSystem {
	return &FileSystem{
		provider: provider,
		key:      key,
		clients:  clients,
		channels: make(map[uuid.UUID]io.Closer),
		logger:   provider.logger.Named(key.String()),
	}
}

func (fs *FileSystem) Provider() *Provider {
	return fs.provider
}

func (fs *FileSystem) Bucket() string {
	return fs.key.Bucket
}

// Endpoint returns the custom endpoint or "" for AWS.
func (fs *FileSystem) Endpoint() string {
	return fs.key.Endpoint
}

func (fs *FileSystem) Key() FileSystemKey {
	return fs.key
}

func (fs *FileSystem) IsOpen() bool {
	fs.mu.RLock()
	defer fs.mu.RUnlock()

	return !fs.closed
}

func (fs *FileSystem) Separator() string {
	return data.Separator
}

// RootDirectories returns the single root of the bucket.
func (fs *FileSystem) RootDirectories() []*Path {
	return []*Path{newPath(fs, data.MustParsePosixPath(data.Separator))}
}

// GetPath joins first and more into a path of this filesystem.
func (fs *FileSystem) GetPath(first string, more ...string) (*Path, error) {
	p, err := data.ParsePosixPath(first, more...)
	if err != nil {
		return nil, err
	}
	return newPath(fs, p), nil
}

// Clients returns the client registry used by this filesystem.
func (fs *FileSystem) Clients() *client.Registry {
	fs.mu.RLock()
	defer fs.mu.RUnlock()

	return fs.clients
}

// SetClients replaces the client registry. The previous registry is
// returned and left open.
func (fs *FileSystem) SetClients(clients *client.Registry) *client.Registry {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	previous := fs.clients
	fs.clients = clients
	return previous
}

// OpenChannels returns the number of channels not yet closed.
func (fs *FileSystem) OpenChannels() int {
	fs.mu.RLock()
	defer fs.mu.RUnlock()

	return len(fs.channels)
}

func (fs *FileSystem) client(ctx context.Context) (backend.ObjectStorageBackend, error) {
	fs.mu.RLock()
	closed, clients := fs.closed, fs.clients
	fs.mu.RUnlock()

	if closed {
		return nil, errors.FileSystemClosed(fs.key.String())
	}

	entry, err := clients.Client(ctx, fs.key.Bucket)
	if err != nil {
		return nil, err
	}
	return entry.Client, nil
}

func (fs *FileSystem) track(id uuid.UUID, channel io.Closer) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	if fs.closed {
		return errors.FileSystemClosed(fs.key.String())
	}

	fs.channels[id] = channel
	return nil
}

func (fs *FileSystem) untrack(id uuid.UUID) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	delete(fs.channels, id)
}

func (fs *FileSystem) sameIdentity(other *FileSystem) bool {
	if fs == other {
		return true
	}
	return other != nil && fs.provider == other.provider && fs.key == other.key
}

// Close closes every tracked channel, closes the client registry and
// removes the filesystem from its provider. Closing twice is a no-op.
func (fs *FileSystem) Close(ctx context.Context) error {
	fs.mu.Lock()
	if fs.closed {
		fs.mu.Unlock()
		return nil
	}
	fs.closed = true

	channels := make([]io.Closer, 0, len(fs.channels))
	for _, channel := range fs.channels {
		channels = append(channels, channel)
	}
	clients := fs.clients
	fs.mu.Unlock()

	errs := errors.Errors{}
	for _, channel := range channels {
		if err := channel.Close(); err != nil {
			errs.Add(err)
		}
	}

	if err := clients.Close(ctx); err != nil {
		errs.Add(err)
	}

	fs.provider.remove(fs)
	fs.logger.Debug("Closed filesystem with %d open channels", len(channels))

	return errs.Errors()
}
