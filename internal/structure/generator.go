// Package structure expands a partially filled record across registered
// candidate values and creates the resulting directory trees.
package structure

import (
	"fmt"
	"iter"
	"log/slog"
	"slices"
	"strings"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/osfs"

	"github.com/nate-maxwell/templar/internal/resolve"
)

// UnknownStopError is returned when the stop field is not a token of the
// template.
type UnknownStopError struct {
	Template  string
	StopAt    string
	Available []string
}

func (e *UnknownStopError) Error() string {
	return fmt.Sprintf("stop token %q not found in template %q; available tokens: %s",
		e.StopAt, e.Template, strings.Join(e.Available, ", "))
}

// Options controls a single Create call.
type Options struct {
	// StopAt names the first token not to descend into. Empty means the
	// whole template.
	StopAt string
	// DryRun computes paths without touching the filesystem.
	DryRun bool
}

// Generator creates directory structures from templates.
type Generator[T any] struct {
	Resolver *resolve.Resolver[T]
	FS       billy.Filesystem // host filesystem when nil
	Logger   *slog.Logger
}

func (g *Generator[T]) fs() billy.Filesystem {
	if g.FS == nil {
		return osfs.Default
	}
	return g.FS
}

func (g *Generator[T]) logger() *slog.Logger {
	if g.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return g.Logger
}

// Expandable lists, in template order, the fields that Create would iterate
// over for rec: tokens before the stop token that rec leaves unset and that
// have registered candidate values.
func (g *Generator[T]) Expandable(name string, rec T, stopAt string) ([]string, error) {
	tmpl, err := g.Resolver.Template(name)
	if err != nil {
		return nil, err
	}
	names := tmpl.Sequence.Names()
	stop := len(names)
	if stopAt != "" {
		stop = slices.Index(names, stopAt)
		if stop < 0 {
			return nil, &UnknownStopError{Template: name, StopAt: stopAt, Available: names}
		}
	}

	binder := g.Resolver.Binder()
	var out []string
	for _, field := range names[:stop] {
		if _, set := binder.Get(&rec, field); set {
			continue
		}
		if _, ok := g.Resolver.Values(field); ok {
			out = append(out, field)
		}
	}
	return out, nil
}

// Create expands rec over the Cartesian product of candidate values for
// each expandable field and builds the template, truncated just before the
// stop token, for every combination. Combinations that still cannot build
// are skipped. Unless DryRun is set each resulting directory is created,
// parents included. Paths are returned in expansion order: the first
// expandable field varies slowest.
func (g *Generator[T]) Create(name string, rec T, opts Options) ([]string, error) {
	tmpl, err := g.Resolver.Template(name)
	if err != nil {
		return nil, err
	}
	fields, err := g.Expandable(name, rec, opts.StopAt)
	if err != nil {
		return nil, err
	}

	seq := tmpl.Sequence
	if opts.StopAt != "" {
		seq, _ = seq.Truncate(opts.StopAt)
	}

	var paths []string
	for combo := range g.expand(rec, fields) {
		p, err := g.Resolver.Render(seq, combo)
		if err != nil {
			if resolve.IsMissing(err) {
				continue
			}
			return nil, err
		}
		if p == "" {
			continue
		}
		paths = append(paths, p)
	}

	if opts.DryRun {
		return paths, nil
	}
	fs, logger := g.fs(), g.logger()
	for _, p := range paths {
		if err := fs.MkdirAll(p, 0o755); err != nil {
			return nil, fmt.Errorf("create %s: %w", p, err)
		}
		logger.Debug("created directory", "template", name, "path", p)
	}
	return paths, nil
}

// expand yields one clone of rec per combination of candidate values.
func (g *Generator[T]) expand(rec T, fields []string) iter.Seq[T] {
	binder := g.Resolver.Binder()
	candidates := make([][]string, len(fields))
	for i, f := range fields {
		candidates[i], _ = g.Resolver.Values(f)
	}

	var walk func(i int, cur T, yield func(T) bool) bool
	walk = func(i int, cur T, yield func(T) bool) bool {
		if i == len(fields) {
			return yield(cur)
		}
		for _, v := range candidates[i] {
			next := binder.Clone(cur)
			if err := binder.Set(&next, fields[i], v); err != nil {
				continue
			}
			if !walk(i+1, next, yield) {
				return false
			}
		}
		return true
	}
	return func(yield func(T) bool) {
		walk(0, binder.Clone(rec), yield)
	}
}
