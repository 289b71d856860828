// Package nfsmount serves directory structure previews over NFS using
// willscott/go-nfs, so a proposed layout can be browsed before it is
// created for real.
package nfsmount

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	billy "github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/helper/chroot"
)

var errReadOnly = fmt.Errorf("read-only filesystem")

// ManifestName is the virtual file at the preview root describing what was
// rendered.
const ManifestName = "_preview.json"

// Manifest records how a preview tree was produced.
type Manifest struct {
	Template string            `json:"template"`
	Pattern  string            `json:"pattern"`
	Fields   map[string]string `json:"fields,omitempty"`
	StopAt   string            `json:"stop_at,omitempty"`
	Paths    []string          `json:"paths"`
}

// PreviewFS is a read-only view over a rendered tree, with the manifest
// exposed as an extra file at the root.
type PreviewFS struct {
	base     billy.Filesystem
	manifest []byte
	created  time.Time
}

// NewPreviewFS wraps base.
func NewPreviewFS(base billy.Filesystem, m Manifest) *PreviewFS {
	data, _ := json.MarshalIndent(m, "", "  ")
	data = append(data, '\n')
	return &PreviewFS{base: base, manifest: data, created: time.Now()}
}

func (fs *PreviewFS) isManifest(filename string) bool {
	return cleanPath(filename) == "/"+ManifestName
}

func (fs *PreviewFS) manifestInfo() os.FileInfo {
	return &staticFileInfo{
		name:    ManifestName,
		size:    int64(len(fs.manifest)),
		mode:    0o444,
		modTime: fs.created,
	}
}

// --- billy.Basic ---

func (fs *PreviewFS) Create(string) (billy.File, error) {
	return nil, errReadOnly
}

func (fs *PreviewFS) Open(filename string) (billy.File, error) {
	return fs.OpenFile(filename, os.O_RDONLY, 0)
}

func (fs *PreviewFS) OpenFile(filename string, flag int, perm os.FileMode) (billy.File, error) {
	if flag&(os.O_WRONLY|os.O_RDWR|os.O_CREATE|os.O_TRUNC|os.O_APPEND) != 0 {
		return nil, errReadOnly
	}
	if fs.isManifest(filename) {
		return newManifestFile(ManifestName, fs.manifest), nil
	}
	return fs.base.OpenFile(cleanPath(filename), flag, perm)
}

func (fs *PreviewFS) Stat(filename string) (os.FileInfo, error) {
	return fs.Lstat(filename)
}

func (fs *PreviewFS) Rename(string, string) error { return errReadOnly }
func (fs *PreviewFS) Remove(string) error         { return errReadOnly }

func (fs *PreviewFS) Join(elem ...string) string {
	return filepath.Join(elem...)
}

// --- billy.TempFile ---

func (fs *PreviewFS) TempFile(string, string) (billy.File, error) {
	return nil, billy.ErrNotSupported
}

// --- billy.Dir ---

func (fs *PreviewFS) ReadDir(path string) ([]os.FileInfo, error) {
	path = cleanPath(path)
	infos, err := fs.base.ReadDir(path)
	if err != nil {
		return nil, err
	}
	if path == "/" {
		infos = append(infos, fs.manifestInfo())
	}
	return infos, nil
}

func (fs *PreviewFS) MkdirAll(string, os.FileMode) error { return errReadOnly }

// --- billy.Symlink ---

func (fs *PreviewFS) Lstat(filename string) (os.FileInfo, error) {
	if fs.isManifest(filename) {
		return fs.manifestInfo(), nil
	}
	return fs.base.Lstat(cleanPath(filename))
}

func (fs *PreviewFS) Symlink(string, string) error { return billy.ErrNotSupported }

func (fs *PreviewFS) Readlink(link string) (string, error) {
	return fs.base.Readlink(cleanPath(link))
}

// --- billy.Chroot ---

func (fs *PreviewFS) Chroot(path string) (billy.Filesystem, error) {
	return chroot.New(fs, path), nil
}

func (fs *PreviewFS) Root() string {
	return "/"
}

// --- billy.Capable ---

func (fs *PreviewFS) Capabilities() billy.Capability {
	return billy.ReadCapability | billy.SeekCapability
}

// cleanPath normalizes a billy path to a clean absolute path.
func cleanPath(path string) string {
	path = filepath.Clean("/" + path)
	if path == "." {
		return "/"
	}
	return path
}

// Compile-time interface checks.
var (
	_ billy.Filesystem = (*PreviewFS)(nil)
	_ billy.Capable    = (*PreviewFS)(nil)
	_ billy.File       = (*manifestFile)(nil)
)
