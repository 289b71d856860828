package structure

import (
	"path/filepath"
	"testing"

	"github.com/go-git/go-billy/v5/memfs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nate-maxwell/templar/internal/binding"
	"github.com/nate-maxwell/templar/internal/resolve"
)

func newGenerator(t *testing.T) *Generator[binding.Fields] {
	t.Helper()
	r := resolve.New(binding.FieldsBinder())
	require.NoError(t, r.Register("asset", "/projects/<show>/assets/<asset>/<dept>/<status>", ""))
	r.RegisterValues("dept", []string{"model", "rig", "anim"})
	r.RegisterValues("status", []string{"work", "publish"})
	return &Generator[binding.Fields]{Resolver: r, FS: memfs.New()}
}

func slash(paths []string) []string {
	out := make([]string, len(paths))
	for i, p := range paths {
		out[i] = filepath.ToSlash(p)
	}
	return out
}

func TestCreate_FullProduct(t *testing.T) {
	g := newGenerator(t)
	rec := binding.Fields{"show": "demo", "asset": "hero"}

	paths, err := g.Create("asset", rec, Options{})
	require.NoError(t, err)
	assert.Equal(t, []string{
		"/projects/demo/assets/hero/model/work",
		"/projects/demo/assets/hero/model/publish",
		"/projects/demo/assets/hero/rig/work",
		"/projects/demo/assets/hero/rig/publish",
		"/projects/demo/assets/hero/anim/work",
		"/projects/demo/assets/hero/anim/publish",
	}, slash(paths))

	for _, p := range paths {
		info, err := g.FS.Stat(p)
		require.NoError(t, err)
		assert.True(t, info.IsDir())
	}
	assert.Equal(t, binding.Fields{"show": "demo", "asset": "hero"}, rec, "input record untouched")

	_, err = g.Create("asset", rec, Options{})
	assert.NoError(t, err, "existing directories are fine")
}

func TestCreate_DryRun(t *testing.T) {
	g := newGenerator(t)
	paths, err := g.Create("asset", binding.Fields{"show": "demo", "asset": "hero"}, Options{DryRun: true})
	require.NoError(t, err)
	assert.Len(t, paths, 6)

	_, err = g.FS.Stat("/projects")
	assert.Error(t, err)
}

func TestCreate_StopAt(t *testing.T) {
	g := newGenerator(t)
	rec := binding.Fields{"show": "demo", "asset": "hero"}

	paths, err := g.Create("asset", rec, Options{StopAt: "status", DryRun: true})
	require.NoError(t, err)
	assert.Equal(t, []string{
		"/projects/demo/assets/hero/model",
		"/projects/demo/assets/hero/rig",
		"/projects/demo/assets/hero/anim",
	}, slash(paths))

	fields, err := g.Expandable("asset", rec, "status")
	require.NoError(t, err)
	assert.Equal(t, []string{"dept"}, fields)
}

func TestCreate_UnknownStop(t *testing.T) {
	g := newGenerator(t)
	_, err := g.Create("asset", binding.Fields{}, Options{StopAt: "shot"})

	var stopErr *UnknownStopError
	require.ErrorAs(t, err, &stopErr)
	assert.Equal(t, []string{"show", "asset", "dept", "status"}, stopErr.Available)
	assert.Contains(t, err.Error(), "show, asset, dept, status")
}

func TestCreate_SetFieldsNotExpanded(t *testing.T) {
	g := newGenerator(t)
	paths, err := g.Create("asset", binding.Fields{"show": "demo", "asset": "hero", "dept": "rig"}, Options{DryRun: true})
	require.NoError(t, err)
	assert.Equal(t, []string{
		"/projects/demo/assets/hero/rig/work",
		"/projects/demo/assets/hero/rig/publish",
	}, slash(paths))
}

func TestCreate_UnbuildableCombinationsSkipped(t *testing.T) {
	g := newGenerator(t)
	paths, err := g.Create("asset", binding.Fields{"show": "demo"}, Options{DryRun: true})
	require.NoError(t, err)
	assert.Empty(t, paths, "asset has no candidates and is unset")
}

func TestCreate_EmptyCandidates(t *testing.T) {
	g := newGenerator(t)
	g.Resolver.RegisterValues("status", nil)
	paths, err := g.Create("asset", binding.Fields{"show": "demo", "asset": "hero"}, Options{DryRun: true})
	require.NoError(t, err)
	assert.Empty(t, paths)
}

func TestCreate_UnknownTemplate(t *testing.T) {
	g := newGenerator(t)
	_, err := g.Create("nope", binding.Fields{}, Options{})
	assert.ErrorIs(t, err, resolve.ErrUnknownTemplate)
}
