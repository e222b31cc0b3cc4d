package backend

import (
	"strings"

	"github.com/mwantia/s3vfs/data"
)

// DefaultMaxKeys is the page size used when a request leaves MaxKeys unset.
const DefaultMaxKeys = 1000

// ListCollector builds ListObjects pages from objects visited in ascending
// key order. Keys below the delimiter are folded into common prefixes and
// continuation tokens hold the last emitted key or prefix.
type ListCollector struct {
	req     *ListObjectsRequest
	maxKeys int
	last    string
	count   int
	result  *ListObjectsResult
}

func NewListCollector(req *ListObjectsRequest) *ListCollector {
	maxKeys := req.MaxKeys
	if maxKeys <= 0 {
		maxKeys = DefaultMaxKeys
	}

	return &ListCollector{
		req:     req,
		maxKeys: maxKeys,
		last:    req.ContinuationToken,
		result:  &ListObjectsResult{},
	}
}

// Add offers the next object to the page. It returns false once the page is
// full and the visit should stop.
func (c *ListCollector) Add(stat *data.ObjectStat) bool {
	if !strings.HasPrefix(stat.Key, c.req.Prefix) {
		return true
	}

	name, isPrefix := stat.Key, false
	if c.req.Delimiter != "" {
		rest := stat.Key[len(c.req.Prefix):]
		if i := strings.Index(rest, c.req.Delimiter); i >= 0 {
			name = c.req.Prefix + rest[:i+len(c.req.Delimiter)]
			isPrefix = true
		}
	}

	if c.last != "" && name <= c.last {
		return true
	}

	if c.count == c.maxKeys {
		c.result.Truncated = true
		c.result.NextContinuationToken = c.last
		return false
	}

	if isPrefix {
		c.result.CommonPrefixes = append(c.result.CommonPrefixes, name)
	} else {
		c.result.Objects = append(c.result.Objects, stat)
	}

	c.last = name
	c.count++
	return true
}

func (c *ListCollector) Result() *ListObjectsResult {
	return c.result
}
