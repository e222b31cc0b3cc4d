package s3vfs

import (
	"bytes"
	"context"
	"fmt"
	iofs "io/fs"
	"slices"
	"strings"
	"time"

	"github.com/mwantia/s3vfs/backend"
	"github.com/mwantia/s3vfs/data"
	"github.com/mwantia/s3vfs/data/errors"
	"github.com/mwantia/s3vfs/transfer"
	"golang.org/x/sync/errgroup"
)

// DirEntry is a child listed by ReadDir or visited by Walk.
type DirEntry struct {
	Path *Path
	Info *data.FileInfo
}

// WalkFunc is called for every entry visited by Walk. Returning
// fs.SkipDir skips the children of a directory, fs.SkipAll ends the walk.
type WalkFunc func(entry DirEntry) error

// operation binds a path to the client and transfer settings of its
// filesystem.
type operation struct {
	provider *Provider
	path     *Path
	bucket   string
	store    backend.ObjectStorageBackend
}

func (p *Provider) operation(ctx context.Context, path *Path) (*operation, error) {
	if err := p.owns(path); err != nil {
		return nil, err
	}

	store, err := path.FileSystem().client(ctx)
	if err != nil {
		return nil, err
	}

	return &operation{
		provider: p,
		path:     path,
		bucket:   path.FileSystem().Bucket(),
		store:    store,
	}, nil
}

func (op *operation) transfer() *transfer.Util {
	return op.provider.transfer
}

func (op *operation) head(ctx context.Context, key string) (*data.ObjectStat, error) {
	return transfer.Call(ctx, op.transfer(), "HeadObject", op.path.String(), func(ctx context.Context) (*data.ObjectStat, error) {
		return op.store.HeadObject(ctx, op.bucket, key)
	})
}

// list pages through every key below prefix. With a delimiter common
// prefixes are reported as directory stats.
func (op *operation) list(ctx context.Context, prefix, delimiter string, maxKeys int, fn func(stat *data.ObjectStat) error) error {
	token := ""
	for {
		result, err := transfer.Call(ctx, op.transfer(), "ListObjects", op.path.String(), func(ctx context.Context) (*backend.ListObjectsResult, error) {
			return op.store.ListObjects(ctx, &backend.ListObjectsRequest{
				Bucket:            op.bucket,
				Prefix:            prefix,
				Delimiter:         delimiter,
				ContinuationToken: token,
				MaxKeys:           maxKeys,
			})
		})
		if err != nil {
			return err
		}

		for _, stat := range result.Objects {
			if err := fn(stat); err != nil {
				return err
			}
		}
		for _, common := range result.CommonPrefixes {
			if err := fn(&data.ObjectStat{Key: common, IsPrefix: true}); err != nil {
				return err
			}
		}

		if !result.Truncated || result.NextContinuationToken == "" {
			return nil
		}
		token = result.NextContinuationToken
	}
}

var errStopListing = errors.New("stop listing")

// hasKeysBelow reports whether any key other than the marker itself starts
// with prefix.
func (op *operation) hasKeysBelow(ctx context.Context, prefix string, includeMarker bool) (bool, error) {
	found := false
	err := op.list(ctx, prefix, "", 2, func(stat *data.ObjectStat) error {
		if stat.Key == prefix && !includeMarker {
			return nil
		}
		found = true
		return errStopListing
	})
	if err != nil && err != errStopListing {
		return false, err
	}
	return found, nil
}

func (op *operation) deleteKeys(ctx context.Context, keys []string) error {
	for batch := range slices.Chunk(keys, backend.MaxDeleteKeys) {
		result, err := transfer.Call(ctx, op.transfer(), "DeleteObjects", op.path.String(), func(ctx context.Context) (*backend.DeleteObjectsResult, error) {
			return op.store.DeleteObjects(ctx, op.bucket, batch)
		})
		if err != nil {
			return err
		}

		if len(result.Errors) > 0 {
			errs := errors.Errors{}
			for _, failed := range result.Errors {
				errs.Add(errors.IO(fmt.Errorf("%s: %s", failed.Code, failed.Message), "DeleteObjects", failed.Key))
			}
			return errs.Errors()
		}
	}
	return nil
}

func directoryKey(path *Path) string {
	key := path.Key()
	if key != "" && !strings.HasSuffix(key, data.Separator) {
		key += data.Separator
	}
	return key
}

func (fs *FileSystem) pathForKey(key string) *Path {
	return newPath(fs, data.MustParsePosixPath(data.Separator+key))
}

// Stat returns the metadata of path. A path without trailing separator
// falls back to the directory of the same name when no such object exists.
func (p *Provider) Stat(ctx context.Context, path *Path) (*data.FileInfo, error) {
	op, err := p.operation(ctx, path)
	if err != nil {
		return nil, err
	}

	stat, err := op.stat(ctx)
	if err != nil {
		return nil, err
	}
	return data.NewFileInfo(stat), nil
}

func (op *operation) stat(ctx context.Context) (*data.ObjectStat, error) {
	if op.path.RealPath().IsRoot() {
		return &data.ObjectStat{IsPrefix: true}, nil
	}

	key := op.path.Key()
	stat, err := op.head(ctx, key)
	if err == nil {
		return stat, nil
	}
	if !errors.Is(err, errors.ErrNotExist) {
		return nil, err
	}

	prefix := key
	if !strings.HasSuffix(prefix, data.Separator) {
		prefix += data.Separator
	}

	found, lerr := op.hasKeysBelow(ctx, prefix, true)
	if lerr != nil {
		return nil, lerr
	}
	if !found {
		return nil, err
	}

	return &data.ObjectStat{Key: prefix, IsPrefix: true}, nil
}

// Exists reports whether path exists as an object, marker or prefix.
func (p *Provider) Exists(ctx context.Context, path *Path) (bool, error) {
	_, err := p.Stat(ctx, path)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, errors.ErrNotExist):
		return false, nil
	}
	return false, err
}

// ReadDir lists the direct children of dir ordered by key. The directory
// marker itself is not reported.
func (p *Provider) ReadDir(ctx context.Context, dir *Path) ([]DirEntry, error) {
	op, err := p.operation(ctx, dir)
	if err != nil {
		return nil, err
	}

	stat, err := op.stat(ctx)
	if err != nil {
		return nil, err
	}
	if !stat.IsDir() {
		return nil, errors.NotDirectory(dir.String())
	}

	prefix := stat.Key
	fs := dir.FileSystem()

	entries := []DirEntry{}
	err = op.list(ctx, prefix, data.Separator, backend.DefaultMaxKeys, func(stat *data.ObjectStat) error {
		if stat.Key == prefix {
			return nil
		}
		entries = append(entries, DirEntry{
			Path: fs.pathForKey(stat.Key),
			Info: data.NewFileInfo(stat),
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	slices.SortFunc(entries, func(a, b DirEntry) int {
		return strings.Compare(a.Path.Key(), b.Path.Key())
	})
	return entries, nil
}

// Walk visits root and everything below it depth first, parents before
// their children.
func (p *Provider) Walk(ctx context.Context, root *Path, fn WalkFunc) error {
	info, err := p.Stat(ctx, root)
	if err != nil {
		return err
	}

	if info.IsDir() {
		root = root.FileSystem().pathForKey(directoryKey(root))
	}

	err = p.walk(ctx, DirEntry{Path: root, Info: info}, fn)
	if err == iofs.SkipDir || err == iofs.SkipAll {
		return nil
	}
	return err
}

func (p *Provider) walk(ctx context.Context, entry DirEntry, fn WalkFunc) error {
	if err := fn(entry); err != nil {
		return err
	}

	if !entry.Info.IsDir() {
		return nil
	}

	children, err := p.ReadDir(ctx, entry.Path)
	if err != nil {
		return err
	}

	for _, child := range children {
		err := p.walk(ctx, child, fn)
		if err == iofs.SkipDir && child.Info.IsDir() {
			continue
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// CreateDirectory uploads an empty directory marker. It fails with ErrExist
// when the directory or a file of the same name exists.
func (p *Provider) CreateDirectory(ctx context.Context, dir *Path) error {
	if dir.RealPath().IsRoot() {
		return errors.Exist(dir.String())
	}

	op, err := p.operation(ctx, dir)
	if err != nil {
		return err
	}

	if _, err := op.stat(ctx); err == nil {
		return errors.Exist(dir.String())
	} else if !errors.Is(err, errors.ErrNotExist) {
		return err
	}

	if file := strings.TrimSuffix(dir.Key(), data.Separator); file != dir.Key() {
		if _, err := op.head(ctx, file); err == nil {
			return errors.Exist(dir.String())
		}
	}

	key := directoryKey(dir)
	_, err = transfer.Call(ctx, op.transfer(), "PutObject", dir.String(), func(ctx context.Context) (*backend.PutObjectResult, error) {
		return op.store.PutObject(ctx, &backend.PutObjectRequest{
			Bucket:      op.bucket,
			Key:         key,
			Body:        bytes.NewReader(nil),
			ContentType: data.ContentTypeDirectory,
			IfNoneMatch: "*",
		})
	})
	if errors.Is(err, errors.ErrPreconditionFailed) {
		return errors.Exist(dir.String())
	}
	return err
}

// Delete removes a file or an empty directory.
func (p *Provider) Delete(ctx context.Context, path *Path) error {
	if path.RealPath().IsRoot() {
		return errors.Invalid("the root directory cannot be deleted")
	}

	op, err := p.operation(ctx, path)
	if err != nil {
		return err
	}

	stat, err := op.stat(ctx)
	if err != nil {
		return err
	}

	if stat.IsDir() {
		children, err := op.hasKeysBelow(ctx, stat.Key, false)
		if err != nil {
			return err
		}
		if children {
			return errors.DirectoryNotEmpty(path.String())
		}
	}

	return op.deleteKeys(ctx, []string{stat.Key})
}

// DeleteAll removes path and everything below it in batches and returns
// the number of deleted keys.
func (p *Provider) DeleteAll(ctx context.Context, path *Path) (int, error) {
	op, err := p.operation(ctx, path)
	if err != nil {
		return 0, err
	}

	stat, err := op.stat(ctx)
	if err != nil {
		return 0, err
	}

	if !stat.IsDir() {
		return 1, op.deleteKeys(ctx, []string{stat.Key})
	}

	keys := []string{}
	err = op.list(ctx, stat.Key, "", backend.DefaultMaxKeys, func(stat *data.ObjectStat) error {
		keys = append(keys, stat.Key)
		return nil
	})
	if err != nil {
		return 0, err
	}

	if err := op.deleteKeys(ctx, keys); err != nil {
		return 0, err
	}

	op.provider.logger.Debug("Deleted %d keys below '%s'", len(keys), path)
	return len(keys), nil
}

// Copy copies a file or a directory tree with server side copies. Without
// ReplaceExisting an existing target fails with ErrExist. Directory trees
// are copied key by key with bounded concurrency.
func (p *Provider) Copy(ctx context.Context, src, dst *Path, opts ...CopyOption) error {
	if err := p.owns(dst); err != nil {
		return err
	}
	if src.Equal(dst) {
		return nil
	}
	if src.FileSystem().Endpoint() != dst.FileSystem().Endpoint() {
		return errors.ProviderMismatch(src.ToURI(), dst.ToURI())
	}

	from, err := p.operation(ctx, src)
	if err != nil {
		return err
	}
	to, err := p.operation(ctx, dst)
	if err != nil {
		return err
	}

	if !to.store.GetCapabilities().Contains(backend.CapabilityServerSideCopy) {
		return errors.NotCapable(to.store.Name(), string(backend.CapabilityServerSideCopy))
	}

	stat, err := from.stat(ctx)
	if err != nil {
		return err
	}

	replace := slices.Contains(opts, ReplaceExisting)

	if !stat.IsDir() {
		key := dst.Key()
		if dst.IsDirectory() {
			key = directoryKey(dst) + stat.Key[strings.LastIndex(stat.Key, data.Separator)+1:]
		}
		if !replace {
			if _, err := to.head(ctx, key); err == nil {
				return errors.Exist(dst.String())
			} else if !errors.Is(err, errors.ErrNotExist) {
				return err
			}
		}
		return to.copyObject(ctx, from.bucket, stat.Key, key)
	}

	srcPrefix, dstPrefix := stat.Key, directoryKey(dst)
	if from.bucket == to.bucket && strings.HasPrefix(dstPrefix, srcPrefix) {
		return errors.Invalid("cannot copy '%s' into itself", src)
	}

	if !replace {
		if _, err := to.stat(ctx); err == nil {
			return errors.Exist(dst.String())
		} else if !errors.Is(err, errors.ErrNotExist) {
			return err
		}
	}

	keys := []string{}
	err = from.list(ctx, srcPrefix, "", backend.DefaultMaxKeys, func(stat *data.ObjectStat) error {
		keys = append(keys, stat.Key)
		return nil
	})
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.config.CopyConcurrency)
	for _, key := range keys {
		g.Go(func() error {
			return to.copyObject(gctx, from.bucket, key, dstPrefix+strings.TrimPrefix(key, srcPrefix))
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}

	p.logger.Debug("Copied %d keys from '%s' to '%s'", len(keys), src, dst)
	return nil
}

func (op *operation) copyObject(ctx context.Context, sourceBucket, sourceKey, key string) error {
	_, err := transfer.Call(ctx, op.transfer(), "CopyObject", sourceKey, func(ctx context.Context) (*backend.CopyObjectResult, error) {
		return op.store.CopyObject(ctx, &backend.CopyObjectRequest{
			SourceBucket: sourceBucket,
			SourceKey:    sourceKey,
			Bucket:       op.bucket,
			Key:          key,
		})
	})
	return err
}

// Move copies src to dst and deletes src afterwards.
func (p *Provider) Move(ctx context.Context, src, dst *Path, opts ...CopyOption) error {
	if src.Equal(dst) {
		return nil
	}

	if err := p.Copy(ctx, src, dst, opts...); err != nil {
		return err
	}

	_, err := p.DeleteAll(ctx, src)
	return err
}

// CheckAccess succeeds when path exists. Object stores have no permissions
// beyond those enforced on each request.
func (p *Provider) CheckAccess(ctx context.Context, path *Path) error {
	exists, err := p.Exists(ctx, path)
	if err != nil {
		return err
	}
	if !exists {
		return errors.NotExist(nil, path.String())
	}
	return nil
}

// SetTimes does nothing, modification times are assigned by the store.
func (p *Provider) SetTimes(ctx context.Context, path *Path, modified, accessed time.Time) error {
	return p.owns(path)
}

func (p *Provider) CreateSymlink(ctx context.Context, link, target *Path) error {
	return errors.Unsupported("symbolic links")
}

func (p *Provider) Lock(ctx context.Context, path *Path) error {
	return errors.Unsupported("file locking")
}

func (p *Provider) Watch(ctx context.Context, path *Path) error {
	return errors.Unsupported("watch services")
}
