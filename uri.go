package s3vfs

import (
	"net/url"
	"strings"

	"github.com/mwantia/s3vfs/data"
	"github.com/mwantia/s3vfs/data/errors"
)

const (
	// SchemeS3 addresses buckets on AWS, the region is discovered.
	SchemeS3 = "s3"
	// SchemeS3X addresses buckets on a custom, S3 compatible endpoint.
	SchemeS3X = "s3x"
)

// Location is a parsed filesystem URI.
//
//	s3://bucket/key
//	s3x://[access:secret@]host[:port]/bucket/key
type Location struct {
	Scheme   string
	Endpoint string
	Bucket   string

	AccessKey string
	SecretKey string

	// Remaining path below the bucket, decoded and always absolute
	Path string
}

// ParseURI splits uri into the filesystem identity and the path below the
// bucket. Every path segment is decoded independently.
func ParseURI(uri string) (*Location, error) {
	u, err := url.Parse(uri)
	if err != nil {
		return nil, errors.InvalidURI(err, uri)
	}

	loc := &Location{
		Scheme: strings.ToLower(u.Scheme),
	}

	escaped := u.EscapedPath()

	switch loc.Scheme {
	case SchemeS3:
		if u.User != nil {
			return nil, errors.InvalidURI(errors.Invalid("credentials require the '%s' scheme", SchemeS3X), uri)
		}
		loc.Bucket = u.Host

	case SchemeS3X:
		if u.Host == "" {
			return nil, errors.InvalidURI(errors.Invalid("missing endpoint"), uri)
		}
		loc.Endpoint = u.Host

		if u.User != nil {
			loc.AccessKey = u.User.Username()
			loc.SecretKey, _ = u.User.Password()
		}

		bucket, rest, _ := strings.Cut(strings.TrimPrefix(escaped, data.Separator), data.Separator)
		loc.Bucket = bucket
		escaped = data.Separator + rest

	default:
		return nil, errors.InvalidURI(errors.Invalid("unsupported scheme '%s'", u.Scheme), uri)
	}

	if loc.Bucket == "" {
		return nil, errors.InvalidURI(errors.Invalid("missing bucket"), uri)
	}

	decoded, err := unescapeSegments(escaped)
	if err != nil {
		return nil, errors.InvalidURI(err, uri)
	}
	loc.Path = decoded

	return loc, nil
}

// Key returns the identity of the filesystem addressed by the location.
func (l *Location) Key() FileSystemKey {
	return FileSystemKey{
		Bucket:    l.Bucket,
		Endpoint:  l.Endpoint,
		AccessKey: l.AccessKey,
	}
}

func unescapeSegments(escaped string) (string, error) {
	if escaped == "" {
		return data.Separator, nil
	}

	segments := strings.Split(escaped, data.Separator)
	for i, segment := range segments {
		decoded, err := url.PathUnescape(segment)
		if err != nil {
			return "", err
		}
		if strings.Contains(decoded, data.Separator) {
			return "", errors.Invalid("segment '%s' contains an encoded separator", segment)
		}
		segments[i] = decoded
	}

	path := strings.Join(segments, data.Separator)
	if !strings.HasPrefix(path, data.Separator) {
		path = data.Separator + path
	}
	return path, nil
}

func escapeSegments(p data.PosixPath) string {
	var b strings.Builder
	for _, segment := range p.Segments() {
		b.WriteString(data.Separator)
		b.WriteString(url.PathEscape(segment))
	}

	if p.IsDirectory() && p.Len() > 0 {
		b.WriteString(data.Separator)
	}
	return b.String()
}
