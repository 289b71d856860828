// Package query walks a directory tree and yields the records whose paths
// parse against registered templates, with optional caching.
package query

import (
	"fmt"
	"iter"
	"log/slog"
	"path/filepath"
	"sort"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/osfs"

	"github.com/nate-maxwell/templar/internal/binding"
	"github.com/nate-maxwell/templar/internal/resolve"
)

// WalkError is yielded in place of a record when a directory cannot be read.
// The walk continues past it.
type WalkError struct {
	Path string
	Err  error
}

func (e *WalkError) Error() string {
	return fmt.Sprintf("read %s: %v", e.Path, e.Err)
}

func (e *WalkError) Unwrap() error { return e.Err }

// Match is a parsed record together with where it came from.
type Match[T any] struct {
	Path     string // relative to the engine root
	Template string
	Record   T
}

// Option configures an Engine.
type Option func(*engineConfig)

type engineConfig struct {
	fs        billy.Filesystem
	templates []string
	absolute  bool
	logger    *slog.Logger
}

// WithFilesystem sets the filesystem to walk. The default is the host
// filesystem.
func WithFilesystem(fs billy.Filesystem) Option {
	return func(c *engineConfig) { c.fs = fs }
}

// WithTemplates restricts parsing to the named templates, tried in order.
// By default every registered template is tried in registration order.
func WithTemplates(names ...string) Option {
	return func(c *engineConfig) { c.templates = names }
}

// WithAbsolutePaths parses root-joined paths instead of root-relative ones,
// for templates that embed the root themselves.
func WithAbsolutePaths() Option {
	return func(c *engineConfig) { c.absolute = true }
}

func WithLogger(l *slog.Logger) Option {
	return func(c *engineConfig) { c.logger = l }
}

// Engine finds records under a root directory by reverse-parsing every path
// it walks.
type Engine[T any] struct {
	resolver  *resolve.Resolver[T]
	root      string
	fs        billy.Filesystem
	templates []string
	absolute  bool
	logger    *slog.Logger
}

func NewEngine[T any](r *resolve.Resolver[T], root string, opts ...Option) *Engine[T] {
	cfg := engineConfig{fs: osfs.Default}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.logger == nil {
		cfg.logger = slog.New(slog.DiscardHandler)
	}
	return &Engine[T]{
		resolver:  r,
		root:      root,
		fs:        cfg.fs,
		templates: cfg.templates,
		absolute:  cfg.absolute,
		logger:    cfg.logger,
	}
}

// Root returns the directory the engine walks.
func (e *Engine[T]) Root() string {
	return e.root
}

// Resolver returns the resolver paths are parsed with.
func (e *Engine[T]) Resolver() *resolve.Resolver[T] {
	return e.resolver
}

func (e *Engine[T]) candidates() []string {
	if len(e.templates) > 0 {
		return e.templates
	}
	return e.resolver.Names()
}

// maxDepth bounds the walk by the deepest candidate template. Zero means
// unbounded, which is used when parsing absolute paths.
func (e *Engine[T]) maxDepth() int {
	if e.absolute {
		return 0
	}
	limit := 0
	for _, name := range e.candidates() {
		tmpl, err := e.resolver.Template(name)
		if err != nil {
			continue
		}
		limit = max(limit, tmpl.Sequence.Depth())
	}
	return max(limit, 1)
}

// Paths yields every entry under the root, relative to it, in pre-order
// with each directory's entries sorted by name. A directory that cannot be
// read yields a *WalkError and is skipped.
func (e *Engine[T]) Paths() iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		e.walk("", 1, e.maxDepth(), yield)
	}
}

func (e *Engine[T]) walk(rel string, depth, limit int, yield func(string, error) bool) bool {
	dir := e.root
	if rel != "" {
		dir = e.fs.Join(e.root, rel)
	}
	entries, err := e.fs.ReadDir(dir)
	if err != nil {
		e.logger.Warn("skipping unreadable directory", "path", dir, "error", err)
		return yield("", &WalkError{Path: dir, Err: err})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	for _, entry := range entries {
		child := entry.Name()
		if rel != "" {
			child = filepath.Join(rel, entry.Name())
		}
		if !yield(child, nil) {
			return false
		}
		if entry.IsDir() && (limit == 0 || depth < limit) {
			if !e.walk(child, depth+1, limit, yield) {
				return false
			}
		}
	}
	return true
}

// ParsePath parses one root-relative path against the candidate templates
// and reports which template matched.
func (e *Engine[T]) ParsePath(rel string) (T, string, bool) {
	p := rel
	if e.absolute {
		p = filepath.Join(e.root, rel)
	}
	if len(e.templates) == 0 {
		return e.resolver.ParseAny(p)
	}
	for _, name := range e.templates {
		rec, ok, err := e.resolver.Parse(name, p)
		if err == nil && ok {
			return rec, name, true
		}
	}
	var zero T
	return zero, "", false
}

// Matches yields every parsed entry that satisfies filters, with its path
// and template. Iteration is lazy: stopping early stops the walk.
func (e *Engine[T]) Matches(filters binding.Filter) iter.Seq2[Match[T], error] {
	return e.scan(filters, nil)
}

// Query yields every record under the root that satisfies filters.
func (e *Engine[T]) Query(filters binding.Filter) iter.Seq2[T, error] {
	return records(e.scan(filters, nil))
}

// scan is the walk-parse-filter loop shared by Query and the caches. Parse
// calls are counted into stats when it is non-nil.
func (e *Engine[T]) scan(filters binding.Filter, stats *Stats) iter.Seq2[Match[T], error] {
	binder := e.resolver.Binder()
	return func(yield func(Match[T], error) bool) {
		if stats != nil {
			stats.Scans++
		}
		for rel, err := range e.Paths() {
			if err != nil {
				if !yield(Match[T]{}, err) {
					return
				}
				continue
			}
			rec, name, ok := e.ParsePath(rel)
			if stats != nil {
				stats.Parses++
			}
			if !ok || !binding.Matches(binder, &rec, filters) {
				continue
			}
			if !yield(Match[T]{Path: rel, Template: name, Record: rec}, nil) {
				return
			}
		}
	}
}

func records[T any](seq iter.Seq2[Match[T], error]) iter.Seq2[T, error] {
	return func(yield func(T, error) bool) {
		for m, err := range seq {
			if !yield(m.Record, err) {
				return
			}
		}
	}
}
