package s3vfs

import (
	"io"

	"github.com/google/uuid"
)

// Channel is a seekable byte channel over one object. Read channels reject
// writes and write channels opened without read access reject reads.
// A channel is not safe for concurrent use.
type Channel interface {
	io.Reader
	io.ReaderAt
	io.Writer
	io.WriterAt
	io.Seeker
	io.Closer

	// ID identifies the channel inside its filesystem.
	ID() uuid.UUID

	// Path returns the path the channel was opened for.
	Path() *Path

	// Size returns the size of the object or buffer in bytes.
	Size() (int64, error)

	// Truncate is not supported by any channel.
	Truncate(size int64) error

	// IsOpen reports whether Close has not been called yet.
	IsOpen() bool
}

var (
	_ Channel = (*ReadChannel)(nil)
	_ Channel = (*WriteChannel)(nil)
)

func seekOffset(position, size, offset int64, whence int) (int64, bool) {
	switch whence {
	case io.SeekStart:
	case io.SeekCurrent:
		offset += position
	case io.SeekEnd:
		offset += size
	default:
		return 0, false
	}
	return offset, offset >= 0
}
