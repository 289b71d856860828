package nfsmount

import (
	"bytes"
	"os"
	"time"
)

// manifestFile serves the in-memory manifest. Read-only.
type manifestFile struct {
	name string
	*bytes.Reader
}

func newManifestFile(name string, data []byte) *manifestFile {
	return &manifestFile{name: name, Reader: bytes.NewReader(data)}
}

func (f *manifestFile) Name() string               { return f.name }
func (f *manifestFile) Write([]byte) (int, error) { return 0, errReadOnly }
func (f *manifestFile) Truncate(int64) error      { return errReadOnly }
func (f *manifestFile) Lock() error               { return nil }
func (f *manifestFile) Unlock() error             { return nil }
func (f *manifestFile) Close() error              { return nil }

// staticFileInfo implements os.FileInfo with fixed values.
type staticFileInfo struct {
	name    string
	size    int64
	mode    os.FileMode
	modTime time.Time
}

func (fi *staticFileInfo) Name() string       { return fi.name }
func (fi *staticFileInfo) Size() int64        { return fi.size }
func (fi *staticFileInfo) Mode() os.FileMode  { return fi.mode }
func (fi *staticFileInfo) ModTime() time.Time { return fi.modTime }
func (fi *staticFileInfo) IsDir() bool        { return fi.mode.IsDir() }
func (fi *staticFileInfo) Sys() any           { return nil }
