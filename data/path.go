package data

import (
	"slices"
	"strings"

	"github.com/mwantia/s3vfs/data/errors"
)

// Separator is the only separator recognised in paths and object keys.
const Separator = "/"

const (
	currentSegment = "."
	parentSegment  = ".."
)

// PosixPath is an immutable, POSIX-like path made of segments.
//
// A leading separator marks the path as absolute, a trailing separator marks
// it as a directory. Runs of separators collapse into one. The segments "."
// and ".." are kept verbatim until Normalize is called.
type PosixPath struct {
	segments []string
	absolute bool
	trailing bool
}

// ParsePosixPath joins first and more with the separator and parses the
// result. A blank first element is rejected when more elements are given.
func ParsePosixPath(first string, more ...string) (PosixPath, error) {
	if len(more) > 0 && strings.TrimSpace(first) == "" {
		return PosixPath{}, errors.InvalidPath(nil, strings.Join(more, Separator))
	}

	var b strings.Builder
	b.WriteString(first)
	for _, m := range more {
		if m == "" {
			continue
		}
		b.WriteString(Separator)
		b.WriteString(m)
	}

	return parsePosixPath(b.String()), nil
}

// MustParsePosixPath is like ParsePosixPath for a single element, which never fails.
func MustParsePosixPath(path string) PosixPath {
	return parsePosixPath(path)
}

func parsePosixPath(path string) PosixPath {
	p := PosixPath{
		absolute: strings.HasPrefix(path, Separator),
		trailing: strings.HasSuffix(path, Separator),
	}

	for segment := range strings.SplitSeq(path, Separator) {
		if segment != "" {
			p.segments = append(p.segments, segment)
		}
	}

	if len(p.segments) == 0 {
		p.trailing = false
	}

	return p
}

func (p PosixPath) IsAbsolute() bool {
	return p.absolute
}

// IsRoot reports whether p is the absolute path without segments.
func (p PosixPath) IsRoot() bool {
	return p.absolute && len(p.segments) == 0
}

// IsEmpty reports whether p is the empty relative path.
func (p PosixPath) IsEmpty() bool {
	return !p.absolute && len(p.segments) == 0
}

// HasTrailingSeparator reports whether the parsed string ended in a separator.
func (p PosixPath) HasTrailingSeparator() bool {
	return p.trailing
}

// IsDirectory reports whether p denotes a directory. Object keys carry no
// type information, so only the root, a trailing separator or a final "."
// or ".." segment mark a directory.
func (p PosixPath) IsDirectory() bool {
	if p.IsRoot() || p.trailing {
		return true
	}

	if len(p.segments) == 0 {
		return false
	}

	last := p.segments[len(p.segments)-1]
	return last == currentSegment || last == parentSegment
}

func (p PosixPath) Len() int {
	return len(p.segments)
}

// Segment returns the segment at index i or an error if i is out of range.
func (p PosixPath) Segment(i int) (string, error) {
	if i < 0 || i >= len(p.segments) {
		return "", errors.Invalid("segment index %d out of range for '%s'", i, p)
	}
	return p.segments[i], nil
}

// Segments returns a copy of all segments.
func (p PosixPath) Segments() []string {
	return slices.Clone(p.segments)
}

func (p PosixPath) String() string {
	if p.IsRoot() {
		return Separator
	}

	var b strings.Builder
	if p.absolute {
		b.WriteString(Separator)
	}
	b.WriteString(strings.Join(p.segments, Separator))
	if p.trailing {
		b.WriteString(Separator)
	}

	return b.String()
}

// Normalize removes "." segments and collapses "name/.." pairs. Leading ".."
// segments survive in relative paths and are dropped in absolute ones.
func (p PosixPath) Normalize() PosixPath {
	if len(p.segments) == 0 {
		return p
	}

	stack := make([]string, 0, len(p.segments))
	for _, segment := range p.segments {
		switch segment {
		case currentSegment:
			continue
		case parentSegment:
			if len(stack) > 0 && stack[len(stack)-1] != parentSegment {
				stack = stack[:len(stack)-1]
			} else if !p.absolute {
				stack = append(stack, parentSegment)
			}
		default:
			stack = append(stack, segment)
		}
	}

	return PosixPath{
		segments: stack,
		absolute: p.absolute,
		trailing: p.IsDirectory() && len(stack) > 0,
	}
}

// Resolve resolves other against p. An absolute other is returned as is and
// an empty other returns p.
func (p PosixPath) Resolve(other PosixPath) PosixPath {
	if other.absolute {
		return other
	}

	if other.IsEmpty() {
		return p
	}

	segments := make([]string, 0, len(p.segments)+len(other.segments))
	segments = append(segments, p.segments...)
	segments = append(segments, other.segments...)

	return PosixPath{
		segments: segments,
		absolute: p.absolute,
		trailing: other.trailing,
	}
}

// Relativize constructs the relative path from p to other. Both paths must
// either be absolute or relative.
func (p PosixPath) Relativize(other PosixPath) (PosixPath, error) {
	if p.absolute != other.absolute {
		return PosixPath{}, errors.Invalid("cannot relativize '%s' against '%s' with different absoluteness", other, p)
	}

	common := 0
	for common < len(p.segments) && common < len(other.segments) && p.segments[common] == other.segments[common] {
		common++
	}

	var b strings.Builder
	for range len(p.segments) - common {
		b.WriteString(parentSegment + Separator)
	}

	rest := other.segments[common:]
	b.WriteString(strings.Join(rest, Separator))
	if len(rest) > 0 && other.trailing {
		b.WriteString(Separator)
	}

	return parsePosixPath(b.String()), nil
}

// StartsWith reports whether p begins with the segments of other.
func (p PosixPath) StartsWith(other PosixPath) bool {
	if p.absolute != other.absolute {
		return false
	}

	if len(other.segments) == 0 {
		return other.absolute || len(p.segments) == 0
	}

	if len(other.segments) > len(p.segments) {
		return false
	}

	return slices.Equal(p.segments[:len(other.segments)], other.segments)
}

// EndsWith reports whether p ends with the segments of other. An absolute
// other only matches a path with identical segments.
func (p PosixPath) EndsWith(other PosixPath) bool {
	if other.absolute {
		return p.absolute && slices.Equal(p.segments, other.segments)
	}

	if len(other.segments) == 0 {
		return len(p.segments) == 0 && !p.absolute
	}

	if len(other.segments) > len(p.segments) {
		return false
	}

	return slices.Equal(p.segments[len(p.segments)-len(other.segments):], other.segments)
}

// Subpath returns the relative path of segments [begin, end). Every segment
// before the last one of p is a directory.
func (p PosixPath) Subpath(begin, end int) (PosixPath, error) {
	if begin < 0 || begin >= len(p.segments) || end <= begin || end > len(p.segments) {
		return PosixPath{}, errors.Invalid("subpath [%d, %d) out of range for '%s'", begin, end, p)
	}

	return PosixPath{
		segments: slices.Clone(p.segments[begin:end]),
		trailing: end < len(p.segments) || p.trailing,
	}, nil
}

// Parent returns the parent directory of p, if any.
func (p PosixPath) Parent() (PosixPath, bool) {
	switch {
	case len(p.segments) == 0:
		return PosixPath{}, false
	case len(p.segments) == 1 && !p.absolute:
		return PosixPath{}, false
	case len(p.segments) == 1:
		return PosixPath{absolute: true}, true
	}

	return PosixPath{
		segments: slices.Clone(p.segments[:len(p.segments)-1]),
		absolute: p.absolute,
		trailing: true,
	}, true
}

// FileName returns the last segment of p as a relative path, if any.
func (p PosixPath) FileName() (PosixPath, bool) {
	if len(p.segments) == 0 {
		return PosixPath{}, false
	}

	return PosixPath{
		segments: []string{p.segments[len(p.segments)-1]},
		trailing: p.trailing,
	}, true
}

// Root returns the root path, if p is absolute.
func (p PosixPath) Root() (PosixPath, bool) {
	if !p.absolute {
		return PosixPath{}, false
	}
	return PosixPath{absolute: true}, true
}

// ToAbsolute resolves p against the root directory.
func (p PosixPath) ToAbsolute() PosixPath {
	if p.absolute {
		return p
	}

	return PosixPath{
		segments: slices.Clone(p.segments),
		absolute: true,
		trailing: p.trailing && len(p.segments) > 0,
	}
}

// Canonical returns the absolute, normalized form of p used for identity.
func (p PosixPath) Canonical() PosixPath {
	return p.ToAbsolute().Normalize()
}

// Equal reports whether p and other have identical segments and flags.
func (p PosixPath) Equal(other PosixPath) bool {
	return p.absolute == other.absolute &&
		p.IsDirectory() == other.IsDirectory() &&
		slices.Equal(p.segments, other.segments)
}
