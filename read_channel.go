package s3vfs

import (
	"context"
	"io"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru"
	"github.com/mwantia/s3vfs/backend"
	"github.com/mwantia/s3vfs/data"
	"github.com/mwantia/s3vfs/data/errors"
	"github.com/mwantia/s3vfs/log"
	"github.com/mwantia/s3vfs/transfer"
	"golang.org/x/sync/singleflight"
)

// ReadStats is a snapshot of the fragment cache of a ReadChannel.
type ReadStats struct {
	// Fragments currently held in the cache
	Cached int
	// Reads served from a cached fragment
	Hits int64
	// Reads that had to wait for a fragment
	Misses int64
	// Ranged requests sent to the store
	Fetches int64
}

// ReadChannel serves random reads of one object from a bounded cache of
// fixed-size fragments. Fragments are fetched with ranged requests when
// first touched, concurrent loads of one fragment share a single request.
type ReadChannel struct {
	mu     sync.Mutex
	ctx    context.Context
	closed bool

	id       uuid.UUID
	path     *Path
	bucket   string
	key      string
	client   backend.ObjectStorageBackend
	transfer *transfer.Util
	logger   *log.Logger

	fragmentSize int64
	fragments    *lru.Cache
	group        singleflight.Group

	size     int64
	position int64

	hits    atomic.Int64
	misses  atomic.Int64
	fetches atomic.Int64
}

func newReadChannel(ctx context.Context, path *Path, client backend.ObjectStorageBackend, opts *openOptions) (*ReadChannel, error) {
	fs := path.FileSystem()
	cfg := fs.provider.config

	if !client.GetCapabilities().Contains(backend.CapabilityRangeRead) {
		return nil, errors.NotCapable(client.Name(), string(backend.CapabilityRangeRead))
	}

	fragments, err := lru.New(cfg.MaxFragments)
	if err != nil {
		return nil, errors.Invalid("%v", err)
	}

	c := &ReadChannel{
		ctx:          context.WithoutCancel(ctx),
		id:           uuid.New(),
		path:         path,
		bucket:       fs.Bucket(),
		key:          path.Key(),
		client:       client,
		transfer:     fs.provider.transfer,
		logger:       fs.logger.Named("read"),
		fragmentSize: cfg.FragmentSize,
		fragments:    fragments,
	}

	if opts.rng != nil {
		c.size = opts.rng.End
		c.position = opts.rng.Start
	} else {
		stat, err := transfer.Call(ctx, c.transfer, "HeadObject", path.String(), func(ctx context.Context) (*data.ObjectStat, error) {
			return client.HeadObject(ctx, c.bucket, c.key)
		})
		if err != nil {
			return nil, err
		}
		c.size = stat.Size
	}

	if err := fs.track(c.id, c); err != nil {
		return nil, err
	}

	c.logger.Debug("Opened '%s' with %d bytes", c.key, c.size)
	return c, nil
}

func (c *ReadChannel) ID() uuid.UUID {
	return c.id
}

func (c *ReadChannel) Path() *Path {
	return c.path
}

func (c *ReadChannel) IsOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return !c.closed
}

// Size returns the size of the object, or the end of the range the channel
// was opened with.
func (c *ReadChannel) Size() (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return 0, errors.ErrClosed
	}
	return c.size, nil
}

// Stats returns the current cache counters.
func (c *ReadChannel) Stats() ReadStats {
	return ReadStats{
		Cached:  c.fragments.Len(),
		Hits:    c.hits.Load(),
		Misses:  c.misses.Load(),
		Fetches: c.fetches.Load(),
	}
}

// Read reads from the current position and advances it. It returns io.EOF
// when the position is at or past the end of the object.
func (c *ReadChannel) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}

	n, err := c.ReadAt(p, c.position)
	c.position += int64(n)

	if err == io.EOF && n > 0 {
		err = nil
	}
	return n, err
}

// ReadAt fills p starting at off, fragment by fragment.
func (c *ReadChannel) ReadAt(p []byte, off int64) (int, error) {
	size, err := c.Size()
	if err != nil {
		return 0, err
	}

	if off < 0 {
		return 0, errors.Invalid("negative offset %d", off)
	}

	n := 0
	for n < len(p) && off < size {
		index := off / c.fragmentSize

		fragment, err := c.fragment(index, size)
		if err != nil {
			return n, err
		}

		start := off - index*c.fragmentSize
		if start >= int64(len(fragment)) {
			return n, io.ErrUnexpectedEOF
		}

		copied := copy(p[n:], fragment[start:])
		n += copied
		off += int64(copied)
	}

	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

func (c *ReadChannel) fragment(index, size int64) ([]byte, error) {
	c.mu.Lock()
	closed := c.closed
	c.mu.Unlock()

	if closed {
		return nil, errors.ErrClosed
	}

	if cached, ok := c.fragments.Get(index); ok {
		c.hits.Add(1)
		return cached.([]byte), nil
	}
	c.misses.Add(1)

	v, err, _ := c.group.Do(strconv.FormatInt(index, 10), func() (any, error) {
		if cached, ok := c.fragments.Peek(index); ok {
			return cached, nil
		}

		start := index * c.fragmentSize
		end := min(size, start+c.fragmentSize)
		c.fetches.Add(1)

		body, err := transfer.Call(c.ctx, c.transfer, "GetObject", c.path.String(), func(ctx context.Context) ([]byte, error) {
			result, err := c.client.GetObject(ctx, &backend.GetObjectRequest{
				Bucket: c.bucket,
				Key:    c.key,
				Range:  &backend.Range{Start: start, End: end},
			})
			if err != nil {
				return nil, err
			}
			defer result.Body.Close()

			return io.ReadAll(result.Body)
		})
		if err != nil {
			return nil, err
		}

		c.mu.Lock()
		defer c.mu.Unlock()

		if c.closed {
			return nil, errors.ErrClosed
		}

		if c.fragments.Add(index, body) {
			c.logger.Debug("Evicted least recently used fragment of '%s'", c.key)
		}
		return body, nil
	})
	if err != nil {
		return nil, err
	}

	return v.([]byte), nil
}

// Seek sets the position for the next Read. Positions past the end are
// allowed and read as io.EOF.
func (c *ReadChannel) Seek(offset int64, whence int) (int64, error) {
	size, err := c.Size()
	if err != nil {
		return 0, err
	}

	position, ok := seekOffset(c.position, size, offset, whence)
	if !ok {
		return 0, errors.Invalid("invalid seek to %d from %d", offset, whence)
	}

	c.position = position
	return position, nil
}

// Position returns the offset of the next Read.
func (c *ReadChannel) Position() int64 {
	return c.position
}

func (c *ReadChannel) Write([]byte) (int, error) {
	return 0, errors.ErrNonWritable
}

func (c *ReadChannel) WriteAt([]byte, int64) (int, error) {
	return 0, errors.ErrNonWritable
}

func (c *ReadChannel) Truncate(int64) error {
	return errors.Unsupported("truncate")
}

// Close drops every cached fragment. Later operations fail with ErrClosed.
func (c *ReadChannel) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.fragments.Purge()
	c.mu.Unlock()

	c.path.FileSystem().untrack(c.id)
	c.logger.Debug("Closed '%s': %+v", c.key, c.Stats())
	return nil
}
