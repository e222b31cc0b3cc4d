package s3vfs_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sync"
	"testing"

	"github.com/mwantia/s3vfs"
	"github.com/mwantia/s3vfs/backend"
	"github.com/mwantia/s3vfs/config"
	"github.com/mwantia/s3vfs/data"
	vfserrors "github.com/mwantia/s3vfs/data/errors"
)

func TestAllStores_ReadChannelChunked(t *testing.T) {
	content := "0123456789abcdefghijklmnopqrstuvwxyz"

	for name, factory := range GetTestStoreFactories() {
		t.Run(name, func(t *testing.T) {
			env := newTestEnv(t, factory(t))
			env.put(t, "data.bin", content)

			for _, chunk := range []int{1, 3, 4, 7, 64} {
				channel, err := env.provider.OpenRead(t.Context(), env.path(t, "/data.bin"))
				if err != nil {
					t.Fatalf("OpenRead failed: %v", err)
				}

				var out bytes.Buffer
				buf := make([]byte, chunk)
				for {
					n, err := channel.Read(buf)
					out.Write(buf[:n])
					if err == io.EOF {
						break
					}
					if err != nil {
						t.Fatalf("Read failed: %v", err)
					}
				}

				if out.String() != content {
					t.Errorf("chunk %d: expected %q, got %q", chunk, content, out.String())
				}

				if err := channel.Close(); err != nil {
					t.Fatalf("Close failed: %v", err)
				}
			}
		})
	}
}

func TestReadChannel_FragmentFetches(t *testing.T) {
	env, store := newEphemeralEnv(t)
	env.put(t, "data.bin", "0123456789")

	channel, err := env.provider.OpenRead(t.Context(), env.path(t, "/data.bin"))
	if err != nil {
		t.Fatalf("OpenRead failed: %v", err)
	}
	defer channel.Close()

	before := store.Calls().GetObject

	all, err := io.ReadAll(channel)
	if err != nil {
		t.Fatalf("ReadAll failed: %v", err)
	}
	if string(all) != "0123456789" {
		t.Fatalf("unexpected content %q", all)
	}

	// 10 bytes in fragments of 4
	stats := channel.Stats()
	if stats.Fetches != 3 || stats.Cached != 3 {
		t.Errorf("expected 3 fetched and cached fragments, got %+v", stats)
	}
	if got := store.Calls().GetObject - before; got != 3 {
		t.Errorf("expected 3 ranged requests, got %d", got)
	}

	hits := stats.Hits
	buf := make([]byte, 2)
	for _, off := range []int64{0, 1, 2, 5, 8} {
		if _, err := channel.ReadAt(buf, off); err != nil {
			t.Fatalf("ReadAt(%d) failed: %v", off, err)
		}
	}

	stats = channel.Stats()
	if stats.Fetches != 3 {
		t.Errorf("repeated reads must not fetch, got %d fetches", stats.Fetches)
	}
	if stats.Hits != hits+5 {
		t.Errorf("expected %d hits, got %d", hits+5, stats.Hits)
	}

	n, err := channel.ReadAt(make([]byte, 6), 2)
	if n != 6 || err != nil {
		t.Errorf("expected a read across fragments to succeed, got %d, %v", n, err)
	}
}

func TestReadChannel_Eviction(t *testing.T) {
	env, _ := newEphemeralEnv(t, func(cfg *config.Configuration) {
		cfg.MaxFragments = 2
	})
	env.put(t, "data.bin", "0123456789")

	channel, err := env.provider.OpenRead(t.Context(), env.path(t, "/data.bin"))
	if err != nil {
		t.Fatalf("OpenRead failed: %v", err)
	}
	defer channel.Close()

	if _, err := io.ReadAll(channel); err != nil {
		t.Fatalf("ReadAll failed: %v", err)
	}

	if cached := channel.Stats().Cached; cached != 2 {
		t.Errorf("expected 2 cached fragments, got %d", cached)
	}

	if _, err := channel.ReadAt(make([]byte, 1), 0); err != nil {
		t.Fatalf("ReadAt failed: %v", err)
	}
	if fetches := channel.Stats().Fetches; fetches != 4 {
		t.Errorf("expected the evicted fragment to be fetched again, got %d fetches", fetches)
	}
}

func TestReadChannel_ConcurrentFragmentLoad(t *testing.T) {
	env, _ := newEphemeralEnv(t)
	env.put(t, "data.bin", "0123456789")

	channel, err := env.provider.OpenRead(t.Context(), env.path(t, "/data.bin"))
	if err != nil {
		t.Fatalf("OpenRead failed: %v", err)
	}
	defer channel.Close()

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()

			buf := make([]byte, 4)
			if _, err := channel.ReadAt(buf, 0); err != nil {
				t.Errorf("ReadAt failed: %v", err)
			}
		}()
	}
	wg.Wait()

	if fetches := channel.Stats().Fetches; fetches != 1 {
		t.Errorf("expected a single fetch for one fragment, got %d", fetches)
	}
}

func TestReadChannel_EndOfObjectAndSeek(t *testing.T) {
	env, _ := newEphemeralEnv(t)
	env.put(t, "data.bin", "0123456789")

	channel, err := env.provider.OpenRead(t.Context(), env.path(t, "/data.bin"))
	if err != nil {
		t.Fatalf("OpenRead failed: %v", err)
	}
	defer channel.Close()

	size, err := channel.Size()
	if err != nil || size != 10 {
		t.Fatalf("expected size 10, got %d, %v", size, err)
	}

	if pos, err := channel.Seek(-3, io.SeekEnd); err != nil || pos != 7 {
		t.Fatalf("Seek failed: %d, %v", pos, err)
	}

	buf := make([]byte, 8)
	n, err := channel.Read(buf)
	if n != 3 || err != nil || string(buf[:n]) != "789" {
		t.Errorf("expected '789', got %q, %v", buf[:n], err)
	}

	if n, err := channel.Read(buf); n != 0 || err != io.EOF {
		t.Errorf("expected io.EOF at the end, got %d, %v", n, err)
	}

	if n, err := channel.ReadAt(buf, 6); n != 4 || err != io.EOF {
		t.Errorf("expected a short ReadAt to report io.EOF, got %d, %v", n, err)
	}

	if _, err := channel.Seek(20, io.SeekStart); err != nil {
		t.Fatalf("seeking past the end must be allowed: %v", err)
	}
	if _, err := channel.Read(buf); err != io.EOF {
		t.Errorf("expected io.EOF past the end, got %v", err)
	}

	if _, err := channel.Seek(-1, io.SeekStart); !errors.Is(err, vfserrors.ErrInvalid) {
		t.Errorf("expected ErrInvalid for a negative position, got %v", err)
	}
}

func TestReadChannel_RangeSkipsHeadObject(t *testing.T) {
	env, store := newEphemeralEnv(t)
	env.put(t, "data.bin", "0123456789")

	path := env.path(t, "/data.bin")
	before := store.Calls().HeadObject

	channel, err := env.provider.OpenRead(t.Context(), path, s3vfs.Range(2, 6))
	if err != nil {
		t.Fatalf("OpenRead failed: %v", err)
	}
	defer channel.Close()

	if got := store.Calls().HeadObject - before; got != 0 {
		t.Errorf("expected no HeadObject request, got %d", got)
	}

	if size, _ := channel.Size(); size != 6 {
		t.Errorf("expected the range end as size, got %d", size)
	}
	if channel.Position() != 2 {
		t.Errorf("expected the range start as position, got %d", channel.Position())
	}

	all, err := io.ReadAll(channel)
	if err != nil || string(all) != "2345" {
		t.Errorf("expected '2345', got %q, %v", all, err)
	}

	if _, err := env.provider.OpenRead(t.Context(), path, s3vfs.Range(5, 2)); !errors.Is(err, vfserrors.ErrInvalid) {
		t.Errorf("expected ErrInvalid for an inverted range, got %v", err)
	}
}

func TestReadChannel_Errors(t *testing.T) {
	env, _ := newEphemeralEnv(t)
	env.put(t, "data.bin", "0123456789")
	ctx := t.Context()

	if _, err := env.provider.OpenRead(ctx, env.path(t, "/missing")); !errors.Is(err, vfserrors.ErrNotExist) {
		t.Errorf("expected ErrNotExist, got %v", err)
	}

	if _, err := env.provider.OpenRead(ctx, env.path(t, "/dir/")); !errors.Is(err, vfserrors.ErrIsDirectory) {
		t.Errorf("expected ErrIsDirectory, got %v", err)
	}

	if _, err := env.provider.OpenRead(ctx, env.path(t, "/data.bin"), s3vfs.PreventConcurrentOverwrite()); !errors.Is(err, vfserrors.ErrInvalid) {
		t.Errorf("expected write policies to be rejected, got %v", err)
	}

	channel, err := env.provider.Open(ctx, env.path(t, "/data.bin"), data.AccessModeRead)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}

	if _, ok := channel.(*s3vfs.ReadChannel); !ok {
		t.Fatalf("expected a read channel, got %T", channel)
	}
	if _, err := channel.Write([]byte("x")); !errors.Is(err, vfserrors.ErrNonWritable) {
		t.Errorf("expected ErrNonWritable, got %v", err)
	}
	if err := channel.Truncate(0); !errors.Is(err, vfserrors.ErrUnsupported) {
		t.Errorf("expected ErrUnsupported, got %v", err)
	}

	if _, err := channel.Read(make([]byte, 4)); err != nil {
		t.Fatalf("Read failed: %v", err)
	}

	if err := channel.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if err := channel.Close(); err != nil {
		t.Errorf("closing twice must not fail: %v", err)
	}

	if channel.IsOpen() {
		t.Errorf("expected channel to be closed")
	}
	if cached := channel.(*s3vfs.ReadChannel).Stats().Cached; cached != 0 {
		t.Errorf("expected the cache to be purged, got %d fragments", cached)
	}
	if _, err := channel.Read(make([]byte, 4)); !errors.Is(err, vfserrors.ErrClosed) {
		t.Errorf("expected ErrClosed, got %v", err)
	}
	if _, err := channel.Size(); !errors.Is(err, vfserrors.ErrClosed) {
		t.Errorf("expected ErrClosed, got %v", err)
	}
}

func TestReadChannel_OutlivesOpenContext(t *testing.T) {
	env, store := newEphemeralEnv(t)
	env.put(t, "data.bin", "0123456789")

	ctx, cancel := context.WithCancel(t.Context())
	channel, err := env.provider.OpenRead(ctx, env.path(t, "/data.bin"))
	if err != nil {
		t.Fatalf("OpenRead failed: %v", err)
	}
	defer channel.Close()
	cancel()

	buf := make([]byte, 10)
	n, err := channel.ReadAt(buf, 0)
	if err != nil || string(buf[:n]) != "0123456789" {
		t.Fatalf("expected '0123456789' after the open context ended, got %q, %v", buf[:n], err)
	}
	if got := store.Calls().GetObject; got != 3 {
		t.Errorf("expected 3 fragment requests, got %d", got)
	}
}

func TestReadChannel_RequiresRangeRead(t *testing.T) {
	env, store := newLimitedEnv(t, backend.CapabilityObjectStorage)
	env.put(t, "data.bin", "0123456789")

	before := store.Calls().HeadObject
	if _, err := env.provider.OpenRead(t.Context(), env.path(t, "/data.bin")); !errors.Is(err, vfserrors.ErrUnsupported) {
		t.Errorf("expected ErrUnsupported, got %v", err)
	}
	if got := store.Calls().HeadObject - before; got != 0 {
		t.Errorf("expected no request for an unsupported read, got %d", got)
	}
}
