package nfsmount

import (
	"encoding/json"
	"io"
	"os"
	"testing"

	"github.com/go-git/go-billy/v5/memfs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestPreview(t *testing.T) *PreviewFS {
	t.Helper()
	base := memfs.New()
	require.NoError(t, base.MkdirAll("/projects/demo/model", 0o755))
	require.NoError(t, base.MkdirAll("/projects/demo/rig", 0o755))
	return NewPreviewFS(base, Manifest{
		Template: "asset",
		Pattern:  "/projects/<show>/<dept>",
		Fields:   map[string]string{"show": "demo"},
		Paths:    []string{"/projects/demo/model", "/projects/demo/rig"},
	})
}

func TestReadDirRoot(t *testing.T) {
	fs := newTestPreview(t)
	infos, err := fs.ReadDir("/")
	require.NoError(t, err)

	var names []string
	for _, fi := range infos {
		names = append(names, fi.Name())
	}
	assert.ElementsMatch(t, []string{"projects", ManifestName}, names)
}

func TestReadDirSubdir(t *testing.T) {
	fs := newTestPreview(t)
	infos, err := fs.ReadDir("projects/demo")
	require.NoError(t, err)
	require.Len(t, infos, 2)
	assert.True(t, infos[0].IsDir())
}

func TestManifest(t *testing.T) {
	fs := newTestPreview(t)

	fi, err := fs.Stat(ManifestName)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o444), fi.Mode())

	f, err := fs.Open("/" + ManifestName)
	require.NoError(t, err)
	defer func() { _ = f.Close() }()
	data, err := io.ReadAll(f)
	require.NoError(t, err)
	assert.Equal(t, fi.Size(), int64(len(data)))

	var m Manifest
	require.NoError(t, json.Unmarshal(data, &m))
	assert.Equal(t, "asset", m.Template)
	assert.Len(t, m.Paths, 2)

	_, err = f.Write([]byte("x"))
	assert.ErrorIs(t, err, errReadOnly)
}

func TestReadOnly(t *testing.T) {
	fs := newTestPreview(t)

	_, err := fs.Create("/new")
	assert.ErrorIs(t, err, errReadOnly)
	_, err = fs.OpenFile("/projects/x", os.O_CREATE|os.O_WRONLY, 0o644)
	assert.ErrorIs(t, err, errReadOnly)
	assert.ErrorIs(t, fs.MkdirAll("/projects/demo/anim", 0o755), errReadOnly)
	assert.ErrorIs(t, fs.Remove("/projects/demo/rig"), errReadOnly)
	assert.ErrorIs(t, fs.Rename("/projects", "/other"), errReadOnly)

	_, err = fs.Stat("/projects/demo/anim")
	assert.Error(t, err)
}

func TestServer(t *testing.T) {
	srv, err := NewServer(newTestPreview(t))
	require.NoError(t, err)
	assert.Positive(t, srv.Port())
	assert.Contains(t, srv.Addr(), "127.0.0.1:")
	require.NoError(t, srv.Close())
	<-srv.Done()
}

func TestMountOptions(t *testing.T) {
	opts, err := mountOptions("linux", 2049)
	require.NoError(t, err)
	assert.Equal(t, "port=2049,mountport=2049,vers=3,tcp,local_lock=all,nolock,ro", opts)

	opts, err = mountOptions("darwin", 1234)
	require.NoError(t, err)
	assert.Contains(t, opts, "rdonly")

	_, err = mountOptions("plan9", 1)
	assert.Error(t, err)
}

func TestUnmountCommands(t *testing.T) {
	assert.Equal(t, [][]string{{"sudo", "umount", "/mnt/p"}}, unmountCommands("linux", "/mnt/p"))
	cmds := unmountCommands("darwin", "/mnt/p")
	require.Len(t, cmds, 2)
	assert.Equal(t, "diskutil", cmds[0][0])
}
