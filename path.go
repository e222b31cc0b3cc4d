package s3vfs

import (
	"cmp"
	"iter"
	"strings"

	"github.com/mwantia/s3vfs/data"
	"github.com/mwantia/s3vfs/data/errors"
)

// Path locates an object or directory inside one FileSystem. Paths are
// immutable, every transformation returns a new Path.
//
// Two paths are equal when they belong to the same filesystem identity and
// share the same real path. The working directory is always the root, so
// "dir/" and "/dir/" are equal while "/dir" and "/dir/" are not.
type Path struct {
	fs   *FileSystem
	path data.PosixPath
}

func newPath(fs *FileSystem, p data.PosixPath) *Path {
	return &Path{fs: fs, path: p}
}

func (p *Path) FileSystem() *FileSystem {
	return p.fs
}

// Posix returns the underlying path representation.
func (p *Path) Posix() data.PosixPath {
	return p.path
}

func (p *Path) IsAbsolute() bool {
	return p.path.IsAbsolute()
}

// IsDirectory reports whether the path addresses a directory marker.
func (p *Path) IsDirectory() bool {
	return p.path.IsDirectory()
}

func (p *Path) IsRoot() bool {
	return p.path.IsRoot()
}

// Root returns the root directory of the filesystem if p is absolute.
func (p *Path) Root() (*Path, bool) {
	root, ok := p.path.Root()
	if !ok {
		return nil, false
	}
	return newPath(p.fs, root), true
}

func (p *Path) FileName() (*Path, bool) {
	name, ok := p.path.FileName()
	if !ok {
		return nil, false
	}
	return newPath(p.fs, name), true
}

func (p *Path) Parent() (*Path, bool) {
	parent, ok := p.path.Parent()
	if !ok {
		return nil, false
	}
	return newPath(p.fs, parent), true
}

func (p *Path) NameCount() int {
	return p.path.Len()
}

// Name returns the name element at index i as a relative path. Every
// element but the last one is a directory.
func (p *Path) Name(i int) (*Path, error) {
	name, err := p.path.Subpath(i, i+1)
	if err != nil {
		return nil, err
	}
	return newPath(p.fs, name), nil
}

// Names iterates over the name elements of p.
func (p *Path) Names() iter.Seq2[int, *Path] {
	return func(yield func(int, *Path) bool) {
		for i := range p.path.Len() {
			name, err := p.Name(i)
			if err != nil || !yield(i, name) {
				return
			}
		}
	}
}

func (p *Path) Subpath(begin, end int) (*Path, error) {
	sub, err := p.path.Subpath(begin, end)
	if err != nil {
		return nil, err
	}
	return newPath(p.fs, sub), nil
}

func (p *Path) Normalize() *Path {
	return newPath(p.fs, p.path.Normalize())
}

// Resolve resolves other against p. Both paths must belong to the same
// filesystem.
func (p *Path) Resolve(other *Path) (*Path, error) {
	if err := p.sameFileSystem(other); err != nil {
		return nil, err
	}
	return newPath(p.fs, p.path.Resolve(other.path)), nil
}

func (p *Path) ResolveString(other string) (*Path, error) {
	o, err := data.ParsePosixPath(other)
	if err != nil {
		return nil, err
	}
	return newPath(p.fs, p.path.Resolve(o)), nil
}

// ResolveSibling resolves other against the parent of p. Without a parent
// other is returned as is.
func (p *Path) ResolveSibling(other *Path) (*Path, error) {
	if err := p.sameFileSystem(other); err != nil {
		return nil, err
	}

	parent, ok := p.path.Parent()
	if !ok {
		return other, nil
	}
	return newPath(p.fs, parent.Resolve(other.path)), nil
}

func (p *Path) ResolveSiblingString(other string) (*Path, error) {
	o, err := data.ParsePosixPath(other)
	if err != nil {
		return nil, err
	}
	return p.ResolveSibling(newPath(p.fs, o))
}

// Relativize constructs the relative path from p to other. Both paths must
// belong to the same filesystem and share the same absoluteness.
func (p *Path) Relativize(other *Path) (*Path, error) {
	if err := p.sameFileSystem(other); err != nil {
		return nil, err
	}

	rel, err := p.path.Relativize(other.path)
	if err != nil {
		return nil, err
	}
	return newPath(p.fs, rel), nil
}

// StartsWith reports false for paths of another filesystem.
func (p *Path) StartsWith(other *Path) bool {
	if other == nil || !p.fs.sameIdentity(other.fs) {
		return false
	}
	return p.path.StartsWith(other.path)
}

func (p *Path) StartsWithString(other string) bool {
	o, err := data.ParsePosixPath(other)
	if err != nil {
		return false
	}
	return p.path.StartsWith(o)
}

// EndsWith reports false for paths of another filesystem.
func (p *Path) EndsWith(other *Path) bool {
	if other == nil || !p.fs.sameIdentity(other.fs) {
		return false
	}
	return p.path.EndsWith(other.path)
}

func (p *Path) EndsWithString(other string) bool {
	o, err := data.ParsePosixPath(other)
	if err != nil {
		return false
	}
	return p.path.EndsWith(o)
}

// ToAbsolute resolves p against the root, the only working directory.
func (p *Path) ToAbsolute() *Path {
	if p.path.IsAbsolute() {
		return p
	}
	return newPath(p.fs, p.path.ToAbsolute())
}

// RealPath returns the absolute, normalized path. Object stores have no
// links, so no lookup is involved.
func (p *Path) RealPath() *Path {
	return newPath(p.fs, p.path.Canonical())
}

// Key returns the object key addressed by p. The root maps to the empty key
// and directories keep their trailing separator.
func (p *Path) Key() string {
	real := p.path.Canonical()
	if real.IsRoot() {
		return ""
	}

	key := strings.TrimPrefix(real.String(), data.Separator)
	if real.IsDirectory() && !strings.HasSuffix(key, data.Separator) {
		key += data.Separator
	}
	return key
}

// ToURI returns the URI of the real path. Every segment is percent-encoded
// on its own and credentials are never included.
func (p *Path) ToURI() string {
	var b strings.Builder
	if endpoint := p.fs.Endpoint(); endpoint != "" {
		b.WriteString(SchemeS3X + "://" + endpoint + data.Separator + p.fs.Bucket())
	} else {
		b.WriteString(SchemeS3 + "://" + p.fs.Bucket())
	}

	real := p.path.Canonical()
	if real.IsRoot() {
		b.WriteString(data.Separator)
	} else {
		b.WriteString(escapeSegments(real))
	}
	return b.String()
}

// Equal reports whether p and other share filesystem identity and real path.
func (p *Path) Equal(other *Path) bool {
	if other == nil || !p.fs.sameIdentity(other.fs) {
		return false
	}
	return p.path.Canonical().Equal(other.path.Canonical())
}

// Compare orders paths by filesystem identity, then by their real path.
func (p *Path) Compare(other *Path) int {
	if c := cmp.Compare(p.fs.Key().String(), other.fs.Key().String()); c != 0 {
		return c
	}
	return cmp.Compare(p.RealPath().String(), other.RealPath().String())
}

// HashKey returns a string that is identical for equal paths and can be
// used as a map key.
func (p *Path) HashKey() string {
	return p.fs.Key().String() + "|" + p.path.Canonical().String()
}

func (p *Path) String() string {
	return p.path.String()
}

// Register fails, object stores provide no change notifications.
func (p *Path) Register() error {
	return errors.Unsupported("watch registration")
}

// ToLocal fails, objects have no local file representation.
func (p *Path) ToLocal() (string, error) {
	return "", errors.Unsupported("conversion to a local file")
}

func (p *Path) sameFileSystem(other *Path) error {
	if other == nil {
		return errors.Invalid("path is nil")
	}
	if !p.fs.sameIdentity(other.fs) {
		return errors.ProviderMismatch(p.ToURI(), other.ToURI())
	}
	return nil
}
