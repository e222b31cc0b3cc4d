package s3vfs

import (
	"context"
	"io"
	"sync"

	"github.com/google/uuid"
	"github.com/mwantia/s3vfs/backend"
	"github.com/mwantia/s3vfs/data"
	"github.com/mwantia/s3vfs/data/errors"
	"github.com/mwantia/s3vfs/log"
	"github.com/mwantia/s3vfs/transfer"
	"github.com/spf13/afero"
)

const bufferPattern = "s3vfs-*.buf"

// WriteChannel buffers all writes to an object in a private temporary file
// and uploads it once when closed. No request is sent between open and
// close. The temporary file is removed on close whatever the outcome.
type WriteChannel struct {
	mu     sync.Mutex
	ctx    context.Context
	closed bool

	id       uuid.UUID
	path     *Path
	bucket   string
	key      string
	mode     data.AccessMode
	client   backend.ObjectStorageBackend
	transfer *transfer.Util
	logger   *log.Logger

	buffers   afero.Fs
	buffer    afero.File
	policies  []WritePolicy
	rules     []writeRule
	integrity backend.ChecksumAlgorithm

	position int64
	uploaded bool
}

func newWriteChannel(ctx context.Context, path *Path, client backend.ObjectStorageBackend, mode data.AccessMode, opts *openOptions) (*WriteChannel, error) {
	fs := path.FileSystem()
	provider := fs.provider

	c := &WriteChannel{
		ctx:      context.WithoutCancel(ctx),
		id:       uuid.New(),
		path:     path,
		bucket:   fs.Bucket(),
		key:      path.Key(),
		mode:     mode,
		client:   client,
		transfer: provider.transfer,
		logger:   fs.logger.Named("write"),
		buffers:  provider.buffers,
		policies: opts.policies,
	}

	integrity, err := provider.config.Checksum()
	if err != nil {
		return nil, err
	}
	if opts.integrity != nil {
		integrity = *opts.integrity
	}
	c.integrity = integrity

	caps := client.GetCapabilities()
	if len(c.policies) > 0 && !caps.Contains(backend.CapabilityConditionalWrite) {
		return nil, errors.NotCapable(client.Name(), string(backend.CapabilityConditionalWrite))
	}
	if c.integrity != "" && !caps.Contains(backend.CapabilityChecksum) {
		return nil, errors.NotCapable(client.Name(), string(backend.CapabilityChecksum))
	}

	state := &openState{}
	if opts.assumeMissing {
		if !mode.HasCreate() {
			return nil, errors.Invalid("assuming '%s' does not exist requires create", path)
		}
	} else {
		state.probed = true

		stat, err := transfer.Call(ctx, c.transfer, "HeadObject", path.String(), func(ctx context.Context) (*data.ObjectStat, error) {
			return client.HeadObject(ctx, c.bucket, c.key)
		})
		switch {
		case errors.Is(err, errors.ErrNotExist):
		case err != nil:
			return nil, err
		default:
			state.stat = stat
		}
	}

	if state.exists() && mode.HasExcl() {
		return nil, errors.Exist(path.String())
	}
	if !state.exists() && !mode.HasCreate() {
		return nil, errors.NotExist(nil, path.String())
	}

	buffer, err := afero.TempFile(c.buffers, provider.config.TempDir, bufferPattern)
	if err != nil {
		return nil, errors.IO(err, "CreateBuffer", path.String())
	}
	c.buffer = buffer

	if state.exists() && !mode.HasTrunc() {
		if err := c.seed(ctx, state); err != nil {
			c.release()
			return nil, err
		}
	}

	for _, policy := range c.policies {
		rule, err := policy.attach(state)
		if err != nil {
			c.release()
			return nil, err
		}
		c.rules = append(c.rules, rule)
	}

	if mode.HasAppend() {
		c.position = state.contentSize
	}

	if err := fs.track(c.id, c); err != nil {
		c.release()
		return nil, err
	}

	c.logger.Debug("Opened '%s' with a %d byte buffer at '%s'", c.key, state.contentSize, buffer.Name())
	return c, nil
}

// seed copies the current content of the object into the buffer.
func (c *WriteChannel) seed(ctx context.Context, state *openState) error {
	size, err := transfer.Call(ctx, c.transfer, "GetObject", c.path.String(), func(ctx context.Context) (int64, error) {
		result, err := c.client.GetObject(ctx, &backend.GetObjectRequest{
			Bucket: c.bucket,
			Key:    c.key,
		})
		if err != nil {
			return 0, err
		}
		defer result.Body.Close()

		return io.Copy(io.NewOffsetWriter(c.buffer, 0), result.Body)
	})
	if err != nil {
		return err
	}

	state.content = c.buffer
	state.contentSize = size
	return nil
}

func (c *WriteChannel) ID() uuid.UUID {
	return c.id
}

func (c *WriteChannel) Path() *Path {
	return c.path
}

func (c *WriteChannel) IsOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return !c.closed
}

// Uploaded reports whether Close sent the buffer to the store.
func (c *WriteChannel) Uploaded() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.uploaded
}

func (c *WriteChannel) checkOpen() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return errors.ErrClosed
	}
	return nil
}

// Size returns the current size of the buffer.
func (c *WriteChannel) Size() (int64, error) {
	if err := c.checkOpen(); err != nil {
		return 0, err
	}

	info, err := c.buffer.Stat()
	if err != nil {
		return 0, errors.IO(err, "Stat", c.path.String())
	}
	return info.Size(), nil
}

// Write writes at the current position and advances it. In append mode
// every write goes to the end of the buffer.
func (c *WriteChannel) Write(p []byte) (int, error) {
	if c.mode.HasAppend() {
		size, err := c.Size()
		if err != nil {
			return 0, err
		}
		c.position = size
	}

	n, err := c.WriteAt(p, c.position)
	c.position += int64(n)
	return n, err
}

func (c *WriteChannel) WriteAt(p []byte, off int64) (int, error) {
	if err := c.checkOpen(); err != nil {
		return 0, err
	}

	if off < 0 {
		return 0, errors.Invalid("negative offset %d", off)
	}

	n, err := c.buffer.WriteAt(p, off)
	if err != nil {
		return n, errors.IO(err, "Write", c.path.String())
	}
	return n, nil
}

// Read reads the buffer from the current position. The channel must have
// been opened with read access.
func (c *WriteChannel) Read(p []byte) (int, error) {
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

func (c *WriteChannel) ReadAt(p []byte, off int64) (int, error) {
	if err := c.checkOpen(); err != nil {
		return 0, err
	}

	if !c.mode.IsReadWrite() {
		return 0, errors.ErrNonReadable
	}

	if off < 0 {
		return 0, errors.Invalid("negative offset %d", off)
	}

	size, err := c.Size()
	if err != nil {
		return 0, err
	}
	if off >= size {
		return 0, io.EOF
	}

	n, err := c.buffer.ReadAt(p, off)
	if err != nil && err != io.EOF {
		return n, errors.IO(err, "Read", c.path.String())
	}
	if n < len(p) {
		err = io.EOF
	}
	return n, err
}

func (c *WriteChannel) Seek(offset int64, whence int) (int64, error) {
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

// Position returns the offset of the next Read or Write.
func (c *WriteChannel) Position() int64 {
	return c.position
}

func (c *WriteChannel) Truncate(int64) error {
	return errors.Unsupported("truncate")
}

// Close uploads the buffer unless a policy prevents it and removes the
// buffer. Closing twice is a no-op.
func (c *WriteChannel) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.mu.Unlock()

	defer c.path.FileSystem().untrack(c.id)
	defer c.release()

	uploaded, err := c.upload()
	if err != nil {
		c.logger.Warn("Upload of '%s' failed: %v", c.key, err)
		return err
	}

	c.mu.Lock()
	c.uploaded = uploaded
	c.mu.Unlock()

	return nil
}

func (c *WriteChannel) upload() (bool, error) {
	info, err := c.buffer.Stat()
	if err != nil {
		return false, errors.IO(err, "Stat", c.path.String())
	}
	size := info.Size()

	for _, rule := range c.rules {
		prevent, err := rule.preventUpload(c.buffer, size)
		if err != nil {
			return false, errors.IO(err, "Fingerprint", c.path.String())
		}
		if prevent {
			c.logger.Debug("Skipped upload of unchanged '%s'", c.key)
			return false, nil
		}
	}

	req := &backend.PutObjectRequest{
		Bucket:        c.bucket,
		Key:           c.key,
		Body:          io.NewSectionReader(c.buffer, 0, size),
		ContentLength: size,
		ContentType:   string(data.ContentTypeForKey(c.key)),
	}

	if c.integrity != "" {
		checksum, err := backend.ComputeChecksum(c.integrity, io.NewSectionReader(c.buffer, 0, size))
		if err != nil {
			return false, errors.IO(err, "Checksum", c.path.String())
		}
		req.Checksum = checksum
	}

	for _, rule := range c.rules {
		rule.prepare(req)
	}

	result, err := transfer.Call(c.ctx, c.transfer, "PutObject", c.path.String(), func(ctx context.Context) (*backend.PutObjectResult, error) {
		return c.client.PutObject(ctx, req)
	})

	for _, rule := range c.rules {
		rule.completed(result, err)
	}

	if err != nil {
		return false, err
	}

	c.logger.Debug("Uploaded %d bytes to '%s'", size, c.key)
	return true, nil
}

// release closes and removes the buffer file.
func (c *WriteChannel) release() {
	if c.buffer == nil {
		return
	}

	name := c.buffer.Name()
	if err := c.buffer.Close(); err != nil {
		c.logger.Warn("Failed to close buffer '%s': %v", name, err)
	}
	if err := c.buffers.Remove(name); err != nil {
		c.logger.Warn("Failed to remove buffer '%s': %v", name, err)
	}
}
