package s3vfs_test

import (
	"context"
	"crypto/sha256"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/mwantia/s3vfs"
	"github.com/mwantia/s3vfs/backend"
	"github.com/mwantia/s3vfs/backend/ephemeral"
	"github.com/mwantia/s3vfs/config"
	"github.com/mwantia/s3vfs/data"
	vfserrors "github.com/mwantia/s3vfs/data/errors"
)

// recordingStore keeps the last upload request it served.
type recordingStore struct {
	*ephemeral.EphemeralBackend

	mu   sync.Mutex
	last backend.PutObjectRequest
}

func (s *recordingStore) PutObject(ctx context.Context, req *backend.PutObjectRequest) (*backend.PutObjectResult, error) {
	s.mu.Lock()
	s.last = *req
	s.mu.Unlock()

	return s.EphemeralBackend.PutObject(ctx, req)
}

func (s *recordingStore) lastPut() backend.PutObjectRequest {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.last
}

// stalledStore never completes an upload before the context ends.
type stalledStore struct {
	*ephemeral.EphemeralBackend
}

func (s *stalledStore) PutObject(ctx context.Context, req *backend.PutObjectRequest) (*backend.PutObjectResult, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

const readWrite = data.AccessModeRead | data.AccessModeWrite

func TestAllStores_WriteChannelScenario(t *testing.T) {
	for name, factory := range GetTestStoreFactories() {
		t.Run(name, func(t *testing.T) {
			env := newTestEnv(t, factory(t))
			env.put(t, "data.txt", "abc")

			channel, err := env.provider.OpenWrite(t.Context(), env.path(t, "/data.txt"), readWrite)
			if err != nil {
				t.Fatalf("OpenWrite failed: %v", err)
			}

			for _, w := range []struct {
				content string
				off     int64
			}{
				{"def", 3},
				{"abc", 0},
				{"hij", 6},
			} {
				if _, err := channel.WriteAt([]byte(w.content), w.off); err != nil {
					t.Fatalf("WriteAt(%q, %d) failed: %v", w.content, w.off, err)
				}
			}

			buf := make([]byte, 9)
			n, err := channel.ReadAt(buf, 0)
			if err != nil || n != 9 || string(buf) != "abcdefhij" {
				t.Fatalf("expected 'abcdefhij', got %q, %v", buf[:n], err)
			}

			if err := channel.Close(); err != nil {
				t.Fatalf("Close failed: %v", err)
			}
			if !channel.Uploaded() {
				t.Errorf("expected the buffer to be uploaded")
			}

			if got := env.get(t, "data.txt"); got != "abcdefhij" {
				t.Errorf("expected stored content 'abcdefhij', got %q", got)
			}
			if left := env.buffersLeft(t); left != 0 {
				t.Errorf("expected all buffers to be removed, %d left", left)
			}
		})
	}
}

func TestWriteChannel_NoRequestsBeforeClose(t *testing.T) {
	env, store := newEphemeralEnv(t)
	ctx := t.Context()

	channel, err := env.provider.OpenWrite(ctx, env.path(t, "/new.txt"), data.AccessModeWrite|data.AccessModeCreate)
	if err != nil {
		t.Fatalf("OpenWrite failed: %v", err)
	}

	before := store.Calls()
	for range 10 {
		if _, err := channel.Write([]byte("0123456789")); err != nil {
			t.Fatalf("Write failed: %v", err)
		}
	}
	if store.Calls() != before {
		t.Errorf("writes must not reach the store before close")
	}

	if size, _ := channel.Size(); size != 100 {
		t.Errorf("expected buffer size 100, got %d", size)
	}

	if _, err := channel.Read(make([]byte, 1)); !errors.Is(err, vfserrors.ErrNonReadable) {
		t.Errorf("expected ErrNonReadable for a write-only channel, got %v", err)
	}
	if err := channel.Truncate(0); !errors.Is(err, vfserrors.ErrUnsupported) {
		t.Errorf("expected ErrUnsupported, got %v", err)
	}

	if err := channel.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if got := store.Calls().PutObject - before.PutObject; got != 1 {
		t.Errorf("expected exactly one upload, got %d", got)
	}
	if err := channel.Close(); err != nil {
		t.Errorf("closing twice must not fail: %v", err)
	}
	if got := store.Calls().PutObject - before.PutObject; got != 1 {
		t.Errorf("closing twice must not upload again, got %d uploads", got)
	}

	if _, err := channel.Write([]byte("x")); !errors.Is(err, vfserrors.ErrClosed) {
		t.Errorf("expected ErrClosed, got %v", err)
	}

	if got := env.get(t, "new.txt"); len(got) != 100 {
		t.Errorf("expected 100 stored bytes, got %d", len(got))
	}

	stat, err := env.store.HeadObject(ctx, testBucket, "new.txt")
	if err != nil {
		t.Fatalf("HeadObject failed: %v", err)
	}
	if stat.ContentType != string(data.ContentTypeTextPlain) {
		t.Errorf("expected content type from the extension, got %q", stat.ContentType)
	}
}

func TestWriteChannel_OpenPreconditions(t *testing.T) {
	env, _ := newEphemeralEnv(t)
	env.put(t, "existing.txt", "abc")
	ctx := t.Context()

	_, err := env.provider.OpenWrite(ctx, env.path(t, "/existing.txt"), data.AccessModeWrite|data.AccessModeCreate|data.AccessModeExcl)
	if !errors.Is(err, vfserrors.ErrExist) {
		t.Errorf("expected ErrExist, got %v", err)
	}

	_, err = env.provider.OpenWrite(ctx, env.path(t, "/missing.txt"), data.AccessModeWrite)
	if !errors.Is(err, vfserrors.ErrNotExist) {
		t.Errorf("expected ErrNotExist, got %v", err)
	}

	_, err = env.provider.OpenWrite(ctx, env.path(t, "/existing.txt"), data.AccessModeAppend|data.AccessModeRead)
	if !errors.Is(err, vfserrors.ErrInvalid) {
		t.Errorf("expected ErrInvalid for read with append, got %v", err)
	}

	_, err = env.provider.OpenWrite(ctx, env.path(t, "/existing.txt"), data.AccessModeWrite, s3vfs.Range(0, 1))
	if !errors.Is(err, vfserrors.ErrInvalid) {
		t.Errorf("expected ErrInvalid for a range, got %v", err)
	}

	_, err = env.provider.OpenWrite(ctx, env.path(t, "/dir/"), data.AccessModeWrite|data.AccessModeCreate)
	if !errors.Is(err, vfserrors.ErrIsDirectory) {
		t.Errorf("expected ErrIsDirectory, got %v", err)
	}

	if left := env.buffersLeft(t); left != 0 {
		t.Errorf("failed opens must not leave buffers, %d left", left)
	}
}

func TestWriteChannel_AppendAndTruncate(t *testing.T) {
	env, _ := newEphemeralEnv(t)
	env.put(t, "append.txt", "abc")
	env.put(t, "trunc.txt", "abc")
	ctx := t.Context()

	appender, err := env.provider.OpenWrite(ctx, env.path(t, "/append.txt"), data.AccessModeAppend)
	if err != nil {
		t.Fatalf("OpenWrite failed: %v", err)
	}
	if appender.Position() != 3 {
		t.Errorf("expected append to start at 3, got %d", appender.Position())
	}
	if _, err := appender.Seek(0, io.SeekStart); err != nil {
		t.Fatalf("Seek failed: %v", err)
	}
	if _, err := appender.Write([]byte("def")); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if err := appender.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if got := env.get(t, "append.txt"); got != "abcdef" {
		t.Errorf("expected 'abcdef', got %q", got)
	}

	truncater, err := env.provider.OpenWrite(ctx, env.path(t, "/trunc.txt"), data.AccessModeWrite|data.AccessModeTrunc)
	if err != nil {
		t.Fatalf("OpenWrite failed: %v", err)
	}
	if size, _ := truncater.Size(); size != 0 {
		t.Errorf("expected an empty buffer, got %d bytes", size)
	}
	if _, err := truncater.Write([]byte("z")); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if err := truncater.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if got := env.get(t, "trunc.txt"); got != "z" {
		t.Errorf("expected 'z', got %q", got)
	}
}

func TestWriteChannel_PutOnlyIfModified(t *testing.T) {
	env, store := newEphemeralEnv(t)
	env.put(t, "data.txt", "abc")
	ctx := t.Context()

	policy := s3vfs.PutOnlyIfModified(nil)
	before := store.Calls().PutObject

	channel, err := env.provider.OpenWrite(ctx, env.path(t, "/data.txt"), readWrite, policy)
	if err != nil {
		t.Fatalf("OpenWrite failed: %v", err)
	}
	if err := channel.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	if channel.Uploaded() || policy.Skipped() != 1 {
		t.Errorf("expected the upload to be skipped, uploaded %v, skipped %d", channel.Uploaded(), policy.Skipped())
	}
	if got := store.Calls().PutObject - before; got != 0 {
		t.Errorf("expected zero uploads, got %d", got)
	}

	// Same bytes written again still count as unchanged
	channel, err = env.provider.OpenWrite(ctx, env.path(t, "/data.txt"), readWrite, s3vfs.PutOnlyIfModified(sha256.New))
	if err != nil {
		t.Fatalf("OpenWrite failed: %v", err)
	}
	if _, err := channel.WriteAt([]byte("abc"), 0); err != nil {
		t.Fatalf("WriteAt failed: %v", err)
	}
	if err := channel.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if channel.Uploaded() {
		t.Errorf("expected rewriting equal content to skip the upload")
	}

	channel, err = env.provider.OpenWrite(ctx, env.path(t, "/data.txt"), readWrite, policy)
	if err != nil {
		t.Fatalf("OpenWrite failed: %v", err)
	}
	if _, err := channel.WriteAt([]byte("x"), 1); err != nil {
		t.Fatalf("WriteAt failed: %v", err)
	}
	if err := channel.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if !channel.Uploaded() || env.get(t, "data.txt") != "axc" {
		t.Errorf("expected modified content to be uploaded")
	}

	created, err := env.provider.OpenWrite(ctx, env.path(t, "/created.txt"), data.AccessModeWrite|data.AccessModeCreate, s3vfs.PutOnlyIfModified(nil))
	if err != nil {
		t.Fatalf("OpenWrite failed: %v", err)
	}
	if err := created.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if !created.Uploaded() {
		t.Errorf("new objects are always uploaded")
	}
}

func TestWriteChannel_PreventConcurrentOverwrite(t *testing.T) {
	env, _ := newEphemeralEnv(t)
	env.put(t, "data.txt", "original")
	ctx := t.Context()

	a, err := env.provider.OpenWrite(ctx, env.path(t, "/data.txt"), data.AccessModeWrite|data.AccessModeTrunc, s3vfs.PreventConcurrentOverwrite())
	if err != nil {
		t.Fatalf("OpenWrite(a) failed: %v", err)
	}
	policy := s3vfs.PreventConcurrentOverwrite()
	b, err := env.provider.OpenWrite(ctx, env.path(t, "/data.txt"), data.AccessModeWrite|data.AccessModeTrunc, policy)
	if err != nil {
		t.Fatalf("OpenWrite(b) failed: %v", err)
	}

	a.Write([]byte("from a"))
	b.Write([]byte("from b"))

	if err := b.Close(); err != nil {
		t.Fatalf("Close(b) failed: %v", err)
	}
	if policy.ETag() == "" {
		t.Errorf("expected the policy to remember the new etag")
	}

	err = a.Close()
	if !errors.Is(err, vfserrors.ErrPreconditionFailed) {
		t.Fatalf("expected ErrPreconditionFailed, got %v", err)
	}

	var transferErr *vfserrors.TransferError
	if !errors.As(err, &transferErr) {
		t.Fatalf("expected a TransferError, got %T", err)
	}
	if transferErr.Operation != "PutObject" || transferErr.StatusCode != 412 || transferErr.Path != "/data.txt" {
		t.Errorf("unexpected transfer error %+v", transferErr)
	}

	if got := env.get(t, "data.txt"); got != "from b" {
		t.Errorf("expected the content of b, got %q", got)
	}
	if left := env.buffersLeft(t); left != 0 {
		t.Errorf("failed uploads must remove their buffer, %d left", left)
	}

	// A missing object may only be created once
	c, err := env.provider.OpenWrite(ctx, env.path(t, "/fresh.txt"), data.AccessModeWrite|data.AccessModeCreate, s3vfs.PreventConcurrentOverwrite())
	if err != nil {
		t.Fatalf("OpenWrite(c) failed: %v", err)
	}
	env.put(t, "fresh.txt", "other")
	if err := c.Close(); !errors.Is(err, vfserrors.ErrPreconditionFailed) {
		t.Errorf("expected ErrPreconditionFailed, got %v", err)
	}
}

func TestWriteChannel_AssumeObjectNotExists(t *testing.T) {
	env, store := newEphemeralEnv(t)
	ctx := t.Context()

	if _, err := env.provider.OpenWrite(ctx, env.path(t, "/x.txt"), data.AccessModeWrite, s3vfs.AssumeObjectNotExists()); !errors.Is(err, vfserrors.ErrInvalid) {
		t.Errorf("expected ErrInvalid without create, got %v", err)
	}

	before := store.Calls().HeadObject
	channel, err := env.provider.OpenWrite(ctx, env.path(t, "/x.txt"), data.AccessModeWrite|data.AccessModeCreate, s3vfs.AssumeObjectNotExists())
	if err != nil {
		t.Fatalf("OpenWrite failed: %v", err)
	}
	if got := store.Calls().HeadObject - before; got != 0 {
		t.Errorf("expected no HeadObject request, got %d", got)
	}

	env.put(t, "x.txt", "raced")
	channel.Write([]byte("mine"))

	if err := channel.Close(); !errors.Is(err, vfserrors.ErrPreconditionFailed) {
		t.Errorf("expected ErrPreconditionFailed, got %v", err)
	}
	if got := env.get(t, "x.txt"); got != "raced" {
		t.Errorf("expected the raced content to survive, got %q", got)
	}

	channel, err = env.provider.OpenWrite(ctx, env.path(t, "/y.txt"), data.AccessModeWrite|data.AccessModeCreate, s3vfs.AssumeObjectNotExists())
	if err != nil {
		t.Fatalf("OpenWrite failed: %v", err)
	}
	channel.Write([]byte("mine"))
	if err := channel.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if got := env.get(t, "y.txt"); got != "mine" {
		t.Errorf("expected 'mine', got %q", got)
	}
}

func TestWriteChannel_IntegrityCheck(t *testing.T) {
	store := &recordingStore{EphemeralBackend: ephemeral.NewEphemeralBackend()}
	store.CreateBucket(testBucket, "eu-west-1")

	env := newTestEnv(t, store, func(cfg *config.Configuration) {
		cfg.IntegrityAlgorithm = "SHA256"
	})
	ctx := t.Context()

	for _, tc := range []struct {
		opts     []s3vfs.OpenOption
		expected backend.ChecksumAlgorithm
	}{
		{nil, backend.ChecksumSHA256},
		{[]s3vfs.OpenOption{s3vfs.IntegrityCheck(backend.ChecksumCRC32)}, backend.ChecksumCRC32},
		{[]s3vfs.OpenOption{s3vfs.IntegrityCheck("")}, ""},
	} {
		channel, err := env.provider.OpenWrite(ctx, env.path(t, "/sum.txt"), data.AccessModeWrite|data.AccessModeCreate|data.AccessModeTrunc, tc.opts...)
		if err != nil {
			t.Fatalf("OpenWrite failed: %v", err)
		}
		channel.Write([]byte("checked content"))
		if err := channel.Close(); err != nil {
			t.Fatalf("Close failed: %v", err)
		}

		req := store.lastPut()
		switch {
		case tc.expected == "" && req.Checksum != nil:
			t.Errorf("expected no checksum, got %+v", req.Checksum)
		case tc.expected != "" && (req.Checksum == nil || req.Checksum.Algorithm != tc.expected || req.Checksum.Value == ""):
			t.Errorf("expected a %s checksum, got %+v", tc.expected, req.Checksum)
		}
	}

	if _, err := env.provider.OpenWrite(ctx, env.path(t, "/sum.txt"), data.AccessModeWrite, s3vfs.IntegrityCheck("MD4")); !errors.Is(err, vfserrors.ErrInvalid) {
		t.Errorf("expected ErrInvalid for an unknown algorithm, got %v", err)
	}
}

func TestWriteChannel_UploadTimeout(t *testing.T) {
	store := &stalledStore{EphemeralBackend: ephemeral.NewEphemeralBackend()}
	store.CreateBucket(testBucket, "eu-west-1")

	env := newTestEnv(t, store, func(cfg *config.Configuration) {
		cfg.Timeout = 50 * time.Millisecond
	})

	channel, err := env.provider.OpenWrite(t.Context(), env.path(t, "/slow.txt"), data.AccessModeWrite|data.AccessModeCreate)
	if err != nil {
		t.Fatalf("OpenWrite failed: %v", err)
	}
	channel.Write([]byte("never stored"))

	err = channel.Close()
	if !errors.Is(err, vfserrors.ErrIO) || !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected ErrIO wrapping the deadline, got %v", err)
	}
	if channel.IsOpen() || channel.Uploaded() {
		t.Errorf("expected a closed channel without upload")
	}
	if left := env.buffersLeft(t); left != 0 {
		t.Errorf("expected the buffer to be removed, %d left", left)
	}
}

func TestWriteChannel_SharedPolicyKeepsOpenETag(t *testing.T) {
	env, _ := newEphemeralEnv(t)
	env.put(t, "data.txt", "original")
	ctx := t.Context()
	mode := data.AccessModeWrite | data.AccessModeTrunc

	policy := s3vfs.PreventConcurrentOverwrite()

	a, err := env.provider.OpenWrite(ctx, env.path(t, "/data.txt"), mode, policy)
	if err != nil {
		t.Fatalf("OpenWrite(a) failed: %v", err)
	}
	b, err := env.provider.OpenWrite(ctx, env.path(t, "/data.txt"), mode, policy)
	if err != nil {
		t.Fatalf("OpenWrite(b) failed: %v", err)
	}

	a.Write([]byte("from a"))
	b.Write([]byte("from b"))

	if err := b.Close(); err != nil {
		t.Fatalf("Close(b) failed: %v", err)
	}

	stat, err := env.store.HeadObject(ctx, testBucket, "data.txt")
	if err != nil {
		t.Fatalf("HeadObject failed: %v", err)
	}
	if policy.ETag() != stat.ETag {
		t.Errorf("expected the policy to report etag %q, got %q", stat.ETag, policy.ETag())
	}

	if err := a.Close(); !errors.Is(err, vfserrors.ErrPreconditionFailed) {
		t.Fatalf("expected ErrPreconditionFailed for the stale writer, got %v", err)
	}
	if got := env.get(t, "data.txt"); got != "from b" {
		t.Errorf("expected the content of b, got %q", got)
	}
}

func TestWriteChannel_AssumeMissingOverridesKnownETag(t *testing.T) {
	store := &recordingStore{EphemeralBackend: ephemeral.NewEphemeralBackend()}
	store.CreateBucket(testBucket, "eu-west-1")

	env := newTestEnv(t, store)
	env.put(t, "data.txt", "original")
	ctx := t.Context()

	policy := s3vfs.PreventConcurrentOverwrite()

	channel, err := env.provider.OpenWrite(ctx, env.path(t, "/data.txt"), data.AccessModeWrite|data.AccessModeTrunc, policy)
	if err != nil {
		t.Fatalf("OpenWrite failed: %v", err)
	}
	channel.Write([]byte("update"))
	if err := channel.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if req := store.lastPut(); req.IfMatch == "" || req.IfNoneMatch != "" {
		t.Errorf("expected If-Match only for an existing object, got %q / %q", req.IfMatch, req.IfNoneMatch)
	}
	if policy.ETag() == "" {
		t.Fatalf("expected the policy to remember the uploaded etag")
	}

	channel, err = env.provider.OpenWrite(ctx, env.path(t, "/other.txt"), data.AccessModeWrite|data.AccessModeCreate, policy, s3vfs.AssumeObjectNotExists())
	if err != nil {
		t.Fatalf("OpenWrite failed: %v", err)
	}
	channel.Write([]byte("new"))
	if err := channel.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if req := store.lastPut(); req.IfMatch != "" || req.IfNoneMatch != "*" {
		t.Errorf("expected If-None-Match only, got %q / %q", req.IfMatch, req.IfNoneMatch)
	}
	if got := env.get(t, "other.txt"); got != "new" {
		t.Errorf("expected 'new', got %q", got)
	}
}

func TestWriteChannel_SharedPutOnlyIfModified(t *testing.T) {
	env, _ := newEphemeralEnv(t)
	env.put(t, "a.txt", "aaa")
	env.put(t, "b.txt", "bbb")
	ctx := t.Context()

	policy := s3vfs.PutOnlyIfModified(nil)

	a, err := env.provider.OpenWrite(ctx, env.path(t, "/a.txt"), readWrite, policy)
	if err != nil {
		t.Fatalf("OpenWrite(a) failed: %v", err)
	}
	b, err := env.provider.OpenWrite(ctx, env.path(t, "/b.txt"), readWrite, policy)
	if err != nil {
		t.Fatalf("OpenWrite(b) failed: %v", err)
	}

	// a keeps its content, b is changed to the content a was opened with
	if _, err := b.WriteAt([]byte("aaa"), 0); err != nil {
		t.Fatalf("WriteAt failed: %v", err)
	}

	if err := a.Close(); err != nil {
		t.Fatalf("Close(a) failed: %v", err)
	}
	if err := b.Close(); err != nil {
		t.Fatalf("Close(b) failed: %v", err)
	}

	if a.Uploaded() || !b.Uploaded() || policy.Skipped() != 1 {
		t.Errorf("expected only b to be uploaded, a %v, b %v, skipped %d", a.Uploaded(), b.Uploaded(), policy.Skipped())
	}
	if got := env.get(t, "b.txt"); got != "aaa" {
		t.Errorf("expected 'aaa', got %q", got)
	}
}

func TestWriteChannel_OutlivesOpenContext(t *testing.T) {
	env, _ := newEphemeralEnv(t)
	env.put(t, "data.txt", "abc")

	ctx, cancel := context.WithCancel(t.Context())
	channel, err := env.provider.OpenWrite(ctx, env.path(t, "/data.txt"), data.AccessModeAppend)
	if err != nil {
		t.Fatalf("OpenWrite failed: %v", err)
	}
	cancel()

	if _, err := channel.Write([]byte("def")); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if err := channel.Close(); err != nil {
		t.Fatalf("Close after the open context ended failed: %v", err)
	}
	if got := env.get(t, "data.txt"); got != "abcdef" {
		t.Errorf("expected 'abcdef', got %q", got)
	}
}

func TestWriteChannel_RequiresCapabilities(t *testing.T) {
	env, _ := newLimitedEnv(t, backend.CapabilityObjectStorage, backend.CapabilityRangeRead)
	ctx := t.Context()
	mode := data.AccessModeWrite | data.AccessModeCreate

	tests := map[string]s3vfs.OpenOption{
		"prevent concurrent overwrite": s3vfs.PreventConcurrentOverwrite(),
		"assume object not exists":     s3vfs.AssumeObjectNotExists(),
		"put only if modified":         s3vfs.PutOnlyIfModified(nil),
		"integrity check":              s3vfs.IntegrityCheck(backend.ChecksumCRC32),
	}

	for name, opt := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := env.provider.OpenWrite(ctx, env.path(t, "/x.txt"), mode, opt)
			if !errors.Is(err, vfserrors.ErrUnsupported) {
				t.Errorf("expected ErrUnsupported, got %v", err)
			}
		})
	}

	channel, err := env.provider.OpenWrite(ctx, env.path(t, "/x.txt"), mode)
	if err != nil {
		t.Fatalf("OpenWrite without conditions failed: %v", err)
	}
	channel.Write([]byte("plain"))
	if err := channel.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if got := env.get(t, "x.txt"); got != "plain" {
		t.Errorf("expected 'plain', got %q", got)
	}
	if left := env.buffersLeft(t); left != 0 {
		t.Errorf("rejected opens must not leave buffers, %d left", left)
	}
}
