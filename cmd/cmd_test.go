package cmd

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testDefinitions = `{
	"variables": {"ROOT": "projects"},
	"templates": {
		"publish": {"pattern": "v<version:03>/<file>", "base": "asset"},
		"asset": {"pattern": "assets/<asset>/<dept>", "base": "show"},
		"show": "{ROOT}/<show>",
	},
	"values": {"dept": ["model", "rig"]},
}`

func writeConfig(t *testing.T) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "templates.jsonc")
	require.NoError(t, os.WriteFile(p, []byte(testDefinitions), 0o644))
	return p
}

func run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	root := newRootCmd()
	var stdout, stderr bytes.Buffer
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	root.SetArgs(args)
	err := root.Execute()
	return stdout.String(), stderr.String(), err
}

func TestBuild(t *testing.T) {
	cfg := writeConfig(t)

	out, _, err := run(t, "-c", cfg, "build", "asset", "--set", "show=demo", "--set", "asset=hero,dept=model")
	require.NoError(t, err)
	assert.Equal(t, "projects/demo/assets/hero/model\n", out)

	_, _, err = run(t, "-c", cfg, "build", "asset", "--set", "show=demo")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "asset, dept")

	out, _, err = run(t, "-c", cfg, "build", "--any", "publish", "asset", "--set", "show=demo,asset=hero,dept=rig")
	require.NoError(t, err)
	assert.Equal(t, "asset\tprojects/demo/assets/hero/rig\n", out)

	out, _, err = run(t, "-c", cfg, "--var", "ROOT=elsewhere", "build", "show", "--set", "show=demo")
	require.NoError(t, err)
	assert.Equal(t, "elsewhere/demo\n", out)
}

func TestParse(t *testing.T) {
	cfg := writeConfig(t)

	out, _, err := run(t, "-c", cfg, "parse", "projects/demo/assets/hero/model/v003/hero_model.abc")
	require.NoError(t, err)

	var got parseOutput
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, "publish", got.Template)
	assert.Equal(t, map[string]string{
		"show":      "demo",
		"asset":     "hero",
		"dept":      "model",
		"version":   "003",
		"file":      "hero_model.abc",
		"file_name": "hero_model",
		"file_type": "abc",
	}, got.Fields)

	_, _, err = run(t, "-c", cfg, "parse", "-t", "show", "projects/demo/assets")
	assert.ErrorContains(t, err, "matches no template")
}

func TestValidate(t *testing.T) {
	cfg := writeConfig(t)

	_, _, err := run(t, "-c", cfg, "validate", "asset", "--set", "show=demo")
	assert.ErrorContains(t, err, "missing: asset, dept")

	out, _, err := run(t, "-c", cfg, "validate", "asset", "--set", "show=demo,asset=hero,dept=rig")
	require.NoError(t, err)
	assert.Equal(t, "ok\n", out)

	_, _, err = run(t, "-c", cfg, "validate", "nope")
	assert.Error(t, err)
}

func TestTemplates(t *testing.T) {
	t.Setenv(configEnv, writeConfig(t))

	out, _, err := run(t, "templates")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[0], "show"))
	assert.Contains(t, lines[2], "projects/<show>/assets/<asset>/<dept>/v<version:03>/<file>")
}

func TestNoConfig(t *testing.T) {
	t.Setenv(configEnv, "")
	_, _, err := run(t, "templates")
	assert.ErrorIs(t, err, errNoConfig)
}

func TestStructure(t *testing.T) {
	cfg := writeConfig(t)
	dir := t.TempDir()

	out, _, err := run(t, "-c", cfg, "structure", "asset", "--root", dir, "--set", "show=demo,asset=hero", "--dry-run")
	require.NoError(t, err)
	assert.Equal(t, "projects/demo/assets/hero/model\nprojects/demo/assets/hero/rig\n", out)
	_, err = os.Stat(filepath.Join(dir, "projects"))
	assert.True(t, os.IsNotExist(err))

	_, _, err = run(t, "-c", cfg, "structure", "asset", "--root", dir, "--set", "show=demo,asset=hero")
	require.NoError(t, err)
	for _, dept := range []string{"model", "rig"} {
		fi, err := os.Stat(filepath.Join(dir, "projects", "demo", "assets", "hero", dept))
		require.NoError(t, err)
		assert.True(t, fi.IsDir())
	}

	out, _, err = run(t, "-c", cfg, "structure", "asset", "--root", dir, "--set", "show=demo,asset=hero", "--stop", "dept", "--dry-run")
	require.NoError(t, err)
	assert.Equal(t, "projects/demo/assets/hero\n", out)

	_, _, err = run(t, "-c", cfg, "structure", "asset", "--root", dir, "--stop", "take")
	assert.ErrorContains(t, err, `stop token "take"`)
}

// newTree creates the asset directories for show demo under a temp dir.
func newTree(t *testing.T, cfg string) string {
	t.Helper()
	dir := t.TempDir()
	_, _, err := run(t, "-c", cfg, "structure", "asset", "--root", dir, "--set", "show=demo,asset=hero")
	require.NoError(t, err)
	return dir
}

func TestQuery(t *testing.T) {
	cfg := writeConfig(t)
	dir := newTree(t, cfg)

	out, _, err := run(t, "-c", cfg, "query", dir, "--filter", "dept=rig")
	require.NoError(t, err)
	var rec map[string]string
	require.NoError(t, json.Unmarshal([]byte(out), &rec))
	assert.Equal(t, map[string]string{"show": "demo", "asset": "hero", "dept": "rig"}, rec)

	out, _, err = run(t, "-c", cfg, "query", dir, "--filter", "show=demo", "-t", "show")
	require.NoError(t, err)
	assert.Equal(t, `{"show":"demo"}`+"\n", out)

	for _, kind := range []string{"full", "tiered", "lazy"} {
		t.Run(kind, func(t *testing.T) {
			out, stderr, err := run(t, "-c", cfg, "query", dir, "--filter", "show=demo", "--cache", kind, "--repeat", "3")
			require.NoError(t, err)
			assert.Len(t, strings.Split(strings.TrimSpace(out), "\n"), 3)
			assert.Contains(t, stderr, "cache="+kind+" scans=1 ")
		})
	}

	_, _, err = run(t, "-c", cfg, "query", dir, "--cache", "bogus")
	assert.ErrorContains(t, err, "unknown cache")
}

func TestIndexAndLookup(t *testing.T) {
	cfg := writeConfig(t)
	dir := newTree(t, cfg)
	db := filepath.Join(t.TempDir(), "catalog.db")

	out, _, err := run(t, "-c", cfg, "index", dir, db)
	require.NoError(t, err)
	assert.Contains(t, out, "indexed 3 entries")

	out, _, err = run(t, "lookup", db, "--filter", "dept=model")
	require.NoError(t, err)
	assert.Equal(t, "asset\t"+filepath.Join(dir, "projects/demo/assets/hero/model")+"\n", out)
}
