package loader

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nate-maxwell/templar/api"
	"github.com/nate-maxwell/templar/internal/binding"
	"github.com/nate-maxwell/templar/internal/resolve"
	"github.com/nate-maxwell/templar/internal/template"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	return p
}

const flatJSON = `{
	// children may come before their base
	"shot": {"pattern": "seq/<seq>/<shot:04>", "base": "show"},
	"show": "/mnt/projects/<show>",
}`

const structuredYAML = `
version: "1"
variables:
  ROOT: /mnt/projects
templates:
  - name: shot
    pattern: seq/<seq>/<shot:04>
    base: show
  - name: show
    pattern: "{ROOT}/<show>"
values:
  dept: [model, rig]
  take: [1, 2]
`

const structuredHCL = `
version   = "1"
variables = { ROOT = "/mnt/projects" }
values    = { dept = ["model", "rig"] }

template "shot" {
  pattern = "seq/<seq>/<shot:04>"
  base    = "show"
}

template "show" {
  pattern = "{ROOT}/<show>"
}
`

func TestLoad_Formats(t *testing.T) {
	tests := []struct {
		name     string
		file     string
		content  string
		selector string
	}{
		{name: "flat json with comments", file: "defs.jsonc", content: flatJSON},
		{name: "yaml", file: "defs.yaml", content: structuredYAML},
		{name: "hcl", file: "defs.hcl", content: structuredHCL},
		{
			name: "json with selector",
			file: "project.json",
			content: `{"studio": {"templar": {
				"variables": {"ROOT": "/mnt/projects"},
				"templates": {"show": "{ROOT}/<show>", "shot": {"pattern": "seq/<seq>/<shot:04>", "base": "show"}}
			}}}`,
			selector: "$.studio.templar",
		},
		{
			name:     "yaml with selector",
			file:     "project.yml",
			content:  "pipeline:\n  paths:\n" + indent(structuredYAML, "    "),
			selector: "$.pipeline.paths",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			defs, err := Load(writeFile(t, tt.file, tt.content), tt.selector)
			require.NoError(t, err)

			r := resolve.New(binding.FieldsBinder())
			require.NoError(t, Apply(defs, r))

			got, err := r.Build("shot", binding.Fields{"show": "demo", "seq": "ABC", "shot": "10"})
			require.NoError(t, err)
			assert.Equal(t, filepath.FromSlash("/mnt/projects/demo/seq/ABC/0010"), got)
		})
	}
}

func indent(s, prefix string) string {
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		if line != "" {
			lines[i] = prefix + line
		}
	}
	return strings.Join(lines, "\n")
}

func TestParseYAML_Values(t *testing.T) {
	defs, err := ParseYAML([]byte(structuredYAML), "")
	require.NoError(t, err)
	assert.Equal(t, "1", defs.Version)
	assert.Equal(t, map[string][]string{"dept": {"model", "rig"}, "take": {"1", "2"}}, defs.Values)

	r := resolve.New(binding.FieldsBinder())
	require.NoError(t, Apply(defs, r))
	vals, ok := r.Values("take")
	assert.True(t, ok)
	assert.Equal(t, []string{"1", "2"}, vals)
}

func TestParseHCL(t *testing.T) {
	defs, err := ParseHCL("defs.hcl", []byte(structuredHCL))
	require.NoError(t, err)
	assert.Equal(t, []api.TemplateDef{
		{Name: "shot", Pattern: "seq/<seq>/<shot:04>", Base: "show"},
		{Name: "show", Pattern: "{ROOT}/<show>"},
	}, defs.Templates)
	assert.Equal(t, map[string]string{"ROOT": "/mnt/projects"}, defs.Variables)
}

func TestParseJSON_Errors(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		selector string
	}{
		{"not an object", `["a"]`, ""},
		{"bad template value", `{"shot": 3}`, ""},
		{"object without pattern", `{"shot": {"base": "show"}}`, ""},
		{"unnamed list entry", `{"templates": [{"pattern": "<a>"}]}`, ""},
		{"selector misses", `{"a": {}}`, "$.b"},
		{"syntax", `{"a": `, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseJSON([]byte(tt.input), tt.selector)
			assert.Error(t, err)
		})
	}
}

func TestLoad_UnsupportedExtension(t *testing.T) {
	_, err := Load(writeFile(t, "defs.toml", ""), "")
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestOrder(t *testing.T) {
	defs := []api.TemplateDef{
		{Name: "c", Base: "b"},
		{Name: "a"},
		{Name: "b", Base: "a"},
		{Name: "x", Base: "external"},
	}
	ordered, err := Order(defs)
	require.NoError(t, err)

	var names []string
	for _, d := range ordered {
		names = append(names, d.Name)
	}
	assert.Equal(t, []string{"a", "b", "c", "x"}, names)
}

func TestOrder_Errors(t *testing.T) {
	_, err := Order([]api.TemplateDef{{Name: "a", Base: "b"}, {Name: "b", Base: "a"}})
	assert.ErrorIs(t, err, template.ErrCycle)

	_, err = Order([]api.TemplateDef{{Name: "a"}, {Name: "a"}})
	assert.ErrorIs(t, err, ErrDuplicate)
}

func TestApply_UnknownBase(t *testing.T) {
	defs := &api.Definitions{Templates: []api.TemplateDef{{Name: "shot", Pattern: "<shot>", Base: "show"}}}
	err := Apply(defs, resolve.New(binding.FieldsBinder()))
	assert.ErrorIs(t, err, template.ErrUnknownBase)
}
