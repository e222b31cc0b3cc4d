package data

import (
	"encoding/json"
	"strings"
	"time"
)

// ObjectStat is the metadata reported by the object store for a single key.
type ObjectStat struct {
	// Object key within its bucket
	Key string `json:"key"`

	// Size in bytes (0 for directory markers and prefixes)
	Size int64 `json:"size"`

	// Entity tag as reported by the store, including quotes
	ETag string `json:"etag,omitempty"`

	ModifyTime time.Time `json:"modify_time"`

	// Content MIME type
	ContentType string `json:"content_type,omitempty"`

	// Set for keys ending in the separator and for common prefixes
	IsPrefix bool `json:"is_prefix,omitempty"`
}

// IsDir reports whether the stat describes a directory marker or prefix.
func (s *ObjectStat) IsDir() bool {
	return s.IsPrefix || strings.HasSuffix(s.Key, Separator)
}

// Marshal provides JSON serialization for ObjectStat.
func (s *ObjectStat) Marshal() ([]byte, error) {
	return json.Marshal(s)
}

// Unmarshal provides JSON deserialization for ObjectStat.
func (s *ObjectStat) Unmarshal(data []byte) error {
	return json.Unmarshal(data, s)
}
