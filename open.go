package s3vfs

import (
	"github.com/mwantia/s3vfs/backend"
	"github.com/mwantia/s3vfs/data/errors"
)

// OpenOption configures a channel when it is opened. The set of options is
// closed, see Range, IntegrityCheck and the write policies.
type OpenOption interface {
	apply(*openOptions) error
}

type openOptions struct {
	rng       *backend.Range
	integrity *backend.ChecksumAlgorithm
	policies  []WritePolicy

	// Existence probe skipped, the object is treated as missing
	assumeMissing bool
}

func newOpenOptions(opts []OpenOption) (*openOptions, error) {
	o := &openOptions{}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt.apply(o); err != nil {
			return nil, err
		}
	}
	return o, nil
}

type rangeOption backend.Range

// Range restricts a read channel to the bytes [start, end). The channel
// starts at start and reports end as its size without probing the object.
func Range(start, end int64) OpenOption {
	return rangeOption{Start: start, End: end}
}

func (r rangeOption) apply(o *openOptions) error {
	if r.Start < 0 || r.End < r.Start {
		return errors.Invalid("invalid range [%d, %d)", r.Start, r.End)
	}
	rng := backend.Range(r)
	o.rng = &rng
	return nil
}

type integrityOption backend.ChecksumAlgorithm

// IntegrityCheck attaches a checksum of the given algorithm to the upload
// of a write channel. An empty algorithm disables the configured check.
func IntegrityCheck(alg backend.ChecksumAlgorithm) OpenOption {
	return integrityOption(alg)
}

func (i integrityOption) apply(o *openOptions) error {
	alg := backend.ChecksumAlgorithm(i)
	if alg != "" {
		parsed, err := backend.ParseChecksumAlgorithm(string(alg))
		if err != nil {
			return errors.Invalid("%v", err)
		}
		alg = parsed
	}
	o.integrity = &alg
	return nil
}

// CopyOption changes the behaviour of Copy and Move.
type CopyOption int

const (
	// ReplaceExisting overwrites an existing target.
	ReplaceExisting CopyOption = iota + 1
)
