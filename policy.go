package s3vfs

import (
	"bytes"
	"hash"
	"io"
	"sync"

	"github.com/mwantia/s3vfs/backend"
	"github.com/mwantia/s3vfs/data"
	"github.com/zeebo/blake3"
)

// WritePolicy is a conditional write rule of a write channel. Policies are
// evaluated as an unordered set when the channel opens and when it closes.
// A policy instance may be shared by any number of channels, everything
// observed at open is kept by the channel.
type WritePolicy interface {
	OpenOption

	// attach observes the object as found when a channel was opened and
	// returns the rule evaluated when that channel closes
	attach(state *openState) (writeRule, error)
}

// writeRule is a policy bound to a single write channel.
type writeRule interface {
	// preventUpload reports whether the buffer may be discarded
	preventUpload(buffer io.ReaderAt, size int64) (bool, error)
	// prepare adds preconditions to the upload
	prepare(req *backend.PutObjectRequest)
	// completed observes the outcome of the upload
	completed(result *backend.PutObjectResult, err error)
}

// openState describes the object behind a write channel at open time.
type openState struct {
	// Set when the existence of the object was probed
	probed bool
	stat   *data.ObjectStat

	// Existing content copied into the buffer, nil when nothing was read
	content     io.ReaderAt
	contentSize int64
}

func (s *openState) exists() bool {
	return s.stat != nil
}

func addPolicy(o *openOptions, policy WritePolicy) {
	for _, existing := range o.policies {
		if existing == policy {
			return
		}
	}
	o.policies = append(o.policies, policy)
}

// PreventConcurrentOverwritePolicy makes an upload fail when another writer
// replaced the object since it was opened.
type PreventConcurrentOverwritePolicy struct {
	mu   sync.Mutex
	etag string
}

// PreventConcurrentOverwrite requires If-Match with the ETag seen when the
// channel was opened. Without a known ETag the upload requires that the
// object still does not exist.
func PreventConcurrentOverwrite() *PreventConcurrentOverwritePolicy {
	return &PreventConcurrentOverwritePolicy{}
}

// ETag returns the ETag of the last upload that passed this policy.
func (p *PreventConcurrentOverwritePolicy) ETag() string {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.etag
}

func (p *PreventConcurrentOverwritePolicy) apply(o *openOptions) error {
	addPolicy(o, p)
	return nil
}

// An unprobed object is treated as missing, If-None-Match takes precedence.
func (p *PreventConcurrentOverwritePolicy) attach(state *openState) (writeRule, error) {
	rule := &overwriteRule{policy: p}
	if state.probed && state.exists() {
		rule.etag = state.stat.ETag
	}
	return rule, nil
}

type overwriteRule struct {
	policy *PreventConcurrentOverwritePolicy
	etag   string
}

func (*overwriteRule) preventUpload(io.ReaderAt, int64) (bool, error) {
	return false, nil
}

func (r *overwriteRule) prepare(req *backend.PutObjectRequest) {
	if r.etag != "" {
		req.IfMatch = r.etag
		return
	}
	req.IfNoneMatch = "*"
}

func (r *overwriteRule) completed(result *backend.PutObjectResult, err error) {
	if err != nil || result == nil {
		return
	}

	r.policy.mu.Lock()
	defer r.policy.mu.Unlock()

	r.policy.etag = result.ETag
}

// AssumeObjectNotExistsPolicy skips the existence probe at open and makes
// the upload fail when the object was created in the meantime.
type AssumeObjectNotExistsPolicy struct{}

func AssumeObjectNotExists() *AssumeObjectNotExistsPolicy {
	return &AssumeObjectNotExistsPolicy{}
}

func (p *AssumeObjectNotExistsPolicy) apply(o *openOptions) error {
	o.assumeMissing = true
	addPolicy(o, p)
	return nil
}

func (p *AssumeObjectNotExistsPolicy) attach(*openState) (writeRule, error) {
	return p, nil
}

func (*AssumeObjectNotExistsPolicy) preventUpload(io.ReaderAt, int64) (bool, error) {
	return false, nil
}

func (*AssumeObjectNotExistsPolicy) prepare(req *backend.PutObjectRequest) {
	req.IfMatch = ""
	req.IfNoneMatch = "*"
}

func (*AssumeObjectNotExistsPolicy) completed(*backend.PutObjectResult, error) {}

// PutOnlyIfModifiedPolicy suppresses uploads of unchanged content.
type PutOnlyIfModifiedPolicy struct {
	newHash func() hash.Hash

	mu      sync.Mutex
	skipped int
}

// PutOnlyIfModified fingerprints the existing content read at open and the
// buffer at close with newHash and skips the upload when both are equal. A
// nil newHash uses BLAKE3.
func PutOnlyIfModified(newHash func() hash.Hash) *PutOnlyIfModifiedPolicy {
	if newHash == nil {
		newHash = func() hash.Hash {
			return blake3.New()
		}
	}
	return &PutOnlyIfModifiedPolicy{newHash: newHash}
}

// Skipped returns the number of uploads suppressed by this instance.
func (p *PutOnlyIfModifiedPolicy) Skipped() int {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.skipped
}

func (p *PutOnlyIfModifiedPolicy) apply(o *openOptions) error {
	addPolicy(o, p)
	return nil
}

func (p *PutOnlyIfModifiedPolicy) attach(state *openState) (writeRule, error) {
	rule := &unchangedRule{policy: p}
	if state.content != nil {
		sum, err := p.fingerprint(state.content, state.contentSize)
		if err != nil {
			return nil, err
		}
		rule.snapshot = sum
	}
	return rule, nil
}

func (p *PutOnlyIfModifiedPolicy) fingerprint(r io.ReaderAt, size int64) ([]byte, error) {
	h := p.newHash()
	if _, err := io.Copy(h, io.NewSectionReader(r, 0, size)); err != nil {
		return nil, err
	}
	return h.Sum(nil), nil
}

type unchangedRule struct {
	policy   *PutOnlyIfModifiedPolicy
	snapshot []byte
}

func (r *unchangedRule) preventUpload(buffer io.ReaderAt, size int64) (bool, error) {
	if r.snapshot == nil {
		return false, nil
	}

	sum, err := r.policy.fingerprint(buffer, size)
	if err != nil {
		return false, err
	}

	if !bytes.Equal(sum, r.snapshot) {
		return false, nil
	}

	r.policy.mu.Lock()
	r.policy.skipped++
	r.policy.mu.Unlock()

	return true, nil
}

func (*unchangedRule) prepare(*backend.PutObjectRequest) {}

func (*unchangedRule) completed(*backend.PutObjectResult, error) {}
