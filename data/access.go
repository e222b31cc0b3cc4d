package data

import "github.com/mwantia/s3vfs/data/errors"

// AccessMode represents the flags used when opening a channel.
// These can be combined using bitwise OR.
type AccessMode int

const (
	AccessModeRead   AccessMode = 1 << iota // open for reading
	AccessModeWrite                         // open for writing
	AccessModeAppend                        // position writes at the end of the object
	AccessModeCreate                        // create the object if it does not exist
	AccessModeExcl                          // fail if the object exists (with CREATE)
	AccessModeTrunc                         // discard existing content on open
	AccessModeSync                          // accepted, uploads always happen on close
)

// IsReadOnly checks if the mode only allows reading.
func (m AccessMode) IsReadOnly() bool {
	return m&AccessModeWrite == 0 && m&AccessModeAppend == 0
}

// IsWriteOnly checks if the mode only allows writing.
func (m AccessMode) IsWriteOnly() bool {
	return m.CanWrite() && m&AccessModeRead == 0
}

// IsReadWrite checks if the mode allows both reading and writing.
func (m AccessMode) IsReadWrite() bool {
	return m.CanWrite() && m&AccessModeRead != 0
}

// CanWrite reports whether the mode requires a writable channel.
func (m AccessMode) CanWrite() bool {
	return m&(AccessModeWrite|AccessModeAppend) != 0
}

func (m AccessMode) HasAppend() bool {
	return m&AccessModeAppend != 0
}

func (m AccessMode) HasCreate() bool {
	return m&AccessModeCreate != 0
}

// HasExcl checks if the mode requests exclusive creation.
func (m AccessMode) HasExcl() bool {
	return m&AccessModeExcl != 0
}

func (m AccessMode) HasTrunc() bool {
	return m&AccessModeTrunc != 0
}

// Validate rejects flag combinations without a meaningful interpretation.
func (m AccessMode) Validate() error {
	if m.HasAppend() && m&AccessModeRead != 0 {
		return errors.Invalid("append may not be combined with read")
	}

	if m.HasAppend() && m.HasTrunc() {
		return errors.Invalid("append may not be combined with truncate")
	}

	if m.HasExcl() && !m.HasCreate() {
		return errors.Invalid("exclusive creation requires create")
	}

	if m.IsReadOnly() && (m.HasCreate() || m.HasTrunc()) {
		return errors.Invalid("create and truncate require write access")
	}

	return nil
}
