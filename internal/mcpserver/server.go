// Package mcpserver exposes the resolver and query engine as MCP tools so
// agents can build, parse and look up pipeline paths.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/osfs"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/nate-maxwell/templar/internal/binding"
	"github.com/nate-maxwell/templar/internal/query"
	"github.com/nate-maxwell/templar/internal/resolve"
)

const defaultQueryLimit = 500

// Server holds the tool handlers and the MCP server they are registered on.
type Server struct {
	resolver *resolve.Resolver[binding.Fields]
	fs       billy.Filesystem
	logger   *slog.Logger
	mcp      *server.MCPServer
}

// Option configures a Server.
type Option func(*Server)

// WithFilesystem sets the filesystem query_paths walks.
func WithFilesystem(fs billy.Filesystem) Option {
	return func(s *Server) { s.fs = fs }
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// New registers every tool against r.
func New(r *resolve.Resolver[binding.Fields], version string, opts ...Option) *Server {
	s := &Server{resolver: r, fs: osfs.Default}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.New(slog.DiscardHandler)
	}
	s.mcp = server.NewMCPServer("templar", version, server.WithToolCapabilities(false))

	s.mcp.AddTool(mcp.NewTool("build_path",
		mcp.WithDescription("Build a path from a template and a set of field values"),
		mcp.WithString("template", mcp.Required(), mcp.Description("Template name")),
		mcp.WithObject("fields", mcp.Description("Field values, e.g. {\"show\": \"demo\"}")),
	), s.BuildPath)

	s.mcp.AddTool(mcp.NewTool("parse_path",
		mcp.WithDescription("Extract field values from a path"),
		mcp.WithString("path", mcp.Required(), mcp.Description("Path to parse")),
		mcp.WithString("template", mcp.Description("Template name; every template is tried when omitted")),
	), s.ParsePath)

	s.mcp.AddTool(mcp.NewTool("validate_context",
		mcp.WithDescription("Report which required fields a template still needs"),
		mcp.WithString("template", mcp.Required(), mcp.Description("Template name")),
		mcp.WithObject("fields", mcp.Description("Field values")),
	), s.ValidateContext)

	s.mcp.AddTool(mcp.NewTool("list_templates",
		mcp.WithDescription("List registered templates with their flattened patterns"),
	), s.ListTemplates)

	s.mcp.AddTool(mcp.NewTool("query_paths",
		mcp.WithDescription("Walk a directory and return entries matching field filters"),
		mcp.WithString("root", mcp.Required(), mcp.Description("Directory to search")),
		mcp.WithObject("filters", mcp.Description("Field equality filters")),
		mcp.WithNumber("limit", mcp.Description("Maximum results (default 500)")),
	), s.QueryPaths)

	return s
}

// MCP returns the underlying MCP server.
func (s *Server) MCP() *server.MCPServer {
	return s.mcp
}

// ServeStdio serves MCP over stdin/stdout until the client disconnects.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// BuildPath handles build_path.
func (s *Server) BuildPath(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := req.RequireString("template")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	fields, err := fieldsArg(req, "fields")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	p, err := s.resolver.Build(name, fields)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(p), nil
}

type parseResult struct {
	Template string            `json:"template"`
	Fields   map[string]string `json:"fields"`
}

// ParsePath handles parse_path.
func (s *Server) ParsePath(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	p, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	name := req.GetString("template", "")

	var (
		rec binding.Fields
		ok  bool
	)
	if name == "" {
		rec, name, ok = s.resolver.ParseAny(p)
	} else {
		rec, ok, err = s.resolver.Parse(name, p)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
	}
	if !ok {
		return mcp.NewToolResultError(fmt.Sprintf("path %q matches no template", p)), nil
	}
	return jsonResult(parseResult{Template: name, Fields: rec})
}

type validateResult struct {
	Valid   bool     `json:"valid"`
	Missing []string `json:"missing"`
}

// ValidateContext handles validate_context.
func (s *Server) ValidateContext(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := req.RequireString("template")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	fields, err := fieldsArg(req, "fields")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	ok, missing, err := s.resolver.Validate(name, fields)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if missing == nil {
		missing = []string{}
	}
	return jsonResult(validateResult{Valid: ok, Missing: missing})
}

type templateInfo struct {
	Name    string   `json:"name"`
	Base    string   `json:"base,omitempty"`
	Pattern string   `json:"pattern"`
	Tokens  []string `json:"tokens"`
}

// ListTemplates handles list_templates.
func (s *Server) ListTemplates(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	out := []templateInfo{}
	for _, name := range s.resolver.Names() {
		tmpl, err := s.resolver.Template(name)
		if err != nil {
			continue
		}
		out = append(out, templateInfo{
			Name:    name,
			Base:    tmpl.Base,
			Pattern: tmpl.String(),
			Tokens:  tmpl.Sequence.Names(),
		})
	}
	return jsonResult(out)
}

type queryResult struct {
	Matches []parseMatch `json:"matches"`
	Errors  []string     `json:"errors,omitempty"`
}

type parseMatch struct {
	Path     string            `json:"path"`
	Template string            `json:"template"`
	Fields   map[string]string `json:"fields"`
}

// QueryPaths handles query_paths.
func (s *Server) QueryPaths(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	root, err := req.RequireString("root")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	filters, err := fieldsArg(req, "filters")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	limit := defaultQueryLimit
	if n, ok := req.GetArguments()["limit"].(float64); ok && n > 0 {
		limit = int(n)
	}

	engine := query.NewEngine(s.resolver, root, query.WithFilesystem(s.fs), query.WithLogger(s.logger))
	res := queryResult{Matches: []parseMatch{}}
	for m, err := range engine.Matches(binding.Filter(filters)) {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if err != nil {
			res.Errors = append(res.Errors, err.Error())
			continue
		}
		res.Matches = append(res.Matches, parseMatch{Path: m.Path, Template: m.Template, Fields: m.Record})
		if len(res.Matches) >= limit {
			break
		}
	}
	return jsonResult(res)
}

func fieldsArg(req mcp.CallToolRequest, key string) (binding.Fields, error) {
	raw, ok := req.GetArguments()[key]
	if !ok || raw == nil {
		return binding.Fields{}, nil
	}
	obj, ok := raw.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%s must be an object", key)
	}
	out := make(binding.Fields, len(obj))
	for k, v := range obj {
		switch t := v.(type) {
		case string:
			out[k] = t
		case float64, bool:
			out[k] = fmt.Sprint(t)
		default:
			return nil, fmt.Errorf("%s.%s must be a string", key, k)
		}
	}
	return out, nil
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, err
	}
	return mcp.NewToolResultText(string(data)), nil
}
