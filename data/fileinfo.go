package data

import (
	"io/fs"
	"path"
	"strings"
	"time"
)

// FileInfo adapts an ObjectStat to fs.FileInfo.
type FileInfo struct {
	stat *ObjectStat
}

var _ fs.FileInfo = (*FileInfo)(nil)

func NewFileInfo(stat *ObjectStat) *FileInfo {
	return &FileInfo{stat: stat}
}

// Name returns the last segment of the key without any trailing separator.
func (fi *FileInfo) Name() string {
	key := strings.TrimSuffix(fi.stat.Key, Separator)
	if key == "" {
		return Separator
	}
	return path.Base(key)
}

func (fi *FileInfo) Size() int64 {
	return fi.stat.Size
}

// Mode reports fixed permissions, the store has no notion of them.
func (fi *FileInfo) Mode() fs.FileMode {
	if fi.IsDir() {
		return fs.ModeDir | 0o755
	}
	return 0o644
}

func (fi *FileInfo) ModTime() time.Time {
	return fi.stat.ModifyTime
}

func (fi *FileInfo) IsDir() bool {
	return fi.stat.IsDir()
}

// Sys returns the underlying *ObjectStat.
func (fi *FileInfo) Sys() any {
	return fi.stat
}
