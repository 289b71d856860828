package mcpserver

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/go-git/go-billy/v5/memfs"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nate-maxwell/templar/internal/binding"
	"github.com/nate-maxwell/templar/internal/resolve"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	r := resolve.New(binding.FieldsBinder())
	require.NoError(t, r.Register("show", "shows/<show>", ""))
	require.NoError(t, r.Register("shot", "seq/<seq>/<shot:04>", "show"))

	fs := memfs.New()
	for _, p := range []string{"/shows/demo/seq/ABC/0010", "/shows/demo/seq/ABC/0020", "/shows/other/seq/XYZ/0010"} {
		require.NoError(t, fs.MkdirAll(p, 0o755))
	}
	return New(r, "test", WithFilesystem(fs))
}

func call(name string, args map[string]any) mcp.CallToolRequest {
	var req mcp.CallToolRequest
	req.Params.Name = name
	req.Params.Arguments = args
	return req
}

func resultText(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	require.NotNil(t, res)
	require.NotEmpty(t, res.Content)
	switch c := res.Content[0].(type) {
	case mcp.TextContent:
		return c.Text
	case *mcp.TextContent:
		return c.Text
	}
	t.Fatalf("unexpected content type %T", res.Content[0])
	return ""
}

func TestBuildPath(t *testing.T) {
	s := newTestServer(t)
	res, err := s.BuildPath(context.Background(), call("build_path", map[string]any{
		"template": "shot",
		"fields":   map[string]any{"show": "demo", "seq": "ABC", "shot": "10"},
	}))
	require.NoError(t, err)
	assert.False(t, res.IsError)
	assert.Equal(t, "shows/demo/seq/ABC/0010", resultText(t, res))

	res, err = s.BuildPath(context.Background(), call("build_path", map[string]any{
		"template": "shot",
		"fields":   map[string]any{"show": "demo"},
	}))
	require.NoError(t, err)
	assert.True(t, res.IsError)
	assert.Contains(t, resultText(t, res), "seq, shot")
}

func TestParsePath(t *testing.T) {
	s := newTestServer(t)
	res, err := s.ParsePath(context.Background(), call("parse_path", map[string]any{
		"path": "shows/demo/seq/ABC/0010",
	}))
	require.NoError(t, err)
	require.False(t, res.IsError)

	var got parseResult
	require.NoError(t, json.Unmarshal([]byte(resultText(t, res)), &got))
	assert.Equal(t, "shot", got.Template)
	assert.Equal(t, map[string]string{"show": "demo", "seq": "ABC", "shot": "0010"}, got.Fields)

	res, err = s.ParsePath(context.Background(), call("parse_path", map[string]any{
		"path":     "elsewhere/x",
		"template": "shot",
	}))
	require.NoError(t, err)
	assert.True(t, res.IsError)
}

func TestValidateContext(t *testing.T) {
	s := newTestServer(t)
	res, err := s.ValidateContext(context.Background(), call("validate_context", map[string]any{
		"template": "shot",
		"fields":   map[string]any{"show": "demo"},
	}))
	require.NoError(t, err)

	var got validateResult
	require.NoError(t, json.Unmarshal([]byte(resultText(t, res)), &got))
	assert.False(t, got.Valid)
	assert.Equal(t, []string{"seq", "shot"}, got.Missing)
}

func TestListTemplates(t *testing.T) {
	s := newTestServer(t)
	res, err := s.ListTemplates(context.Background(), call("list_templates", nil))
	require.NoError(t, err)

	var got []templateInfo
	require.NoError(t, json.Unmarshal([]byte(resultText(t, res)), &got))
	require.Len(t, got, 2)
	assert.Equal(t, "shows/<show>/seq/<seq>/<shot:04>", got[1].Pattern)
	assert.Equal(t, "show", got[1].Base)
}

func TestQueryPaths(t *testing.T) {
	s := newTestServer(t)
	res, err := s.QueryPaths(context.Background(), call("query_paths", map[string]any{
		"root":    "/",
		"filters": map[string]any{"show": "demo"},
	}))
	require.NoError(t, err)

	var got queryResult
	require.NoError(t, json.Unmarshal([]byte(resultText(t, res)), &got))
	require.Len(t, got.Matches, 3, "show template matches shows/demo as well")
	assert.Equal(t, "show", got.Matches[0].Template)
	assert.Equal(t, "0010", got.Matches[1].Fields["shot"])

	res, err = s.QueryPaths(context.Background(), call("query_paths", map[string]any{
		"root":  "/",
		"limit": float64(1),
	}))
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal([]byte(resultText(t, res)), &got))
	assert.Len(t, got.Matches, 1)
}

func TestFieldsArg_Invalid(t *testing.T) {
	s := newTestServer(t)
	res, err := s.BuildPath(context.Background(), call("build_path", map[string]any{
		"template": "shot",
		"fields":   "show=demo",
	}))
	require.NoError(t, err)
	assert.True(t, res.IsError)
}
