// Package resolve turns records into paths and paths back into records using
// a registry of named templates.
package resolve

import (
	"fmt"
	"log/slog"
	"maps"
	"slices"

	"github.com/nate-maxwell/templar/internal/binding"
	"github.com/nate-maxwell/templar/internal/pattern"
	"github.com/nate-maxwell/templar/internal/template"
)

// Normalizer rewrites a field value before the token formatter runs.
type Normalizer = func(string) string

// Option configures a Resolver. Options carry no record type, so the same
// set can configure resolvers for different record types.
type Option func(*options)

type options struct {
	variables   map[string]string
	normalizers map[string]Normalizer
	stemField   string
	extField    string
	logger      *slog.Logger
}

// WithVariables sets the {NAME} substitutions applied to patterns.
func WithVariables(vars map[string]string) Option {
	return func(o *options) { maps.Copy(o.variables, vars) }
}

// WithNormalizers registers per-field normalizers.
func WithNormalizers(n map[string]Normalizer) Option {
	return func(o *options) { maps.Copy(o.normalizers, n) }
}

// WithFileFields names the fields that receive the stem and extension when
// a trailing token captures a file name. Empty names disable the split.
func WithFileFields(stem, ext string) Option {
	return func(o *options) {
		o.stemField = stem
		o.extField = ext
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// Resolver builds and parses paths for records of type T.
type Resolver[T any] struct {
	binder      *binding.Binder[T]
	registry    *template.Registry
	normalizers map[string]Normalizer
	values      map[string][]string
	stemField   string
	extField    string
	logger      *slog.Logger
}

// New creates a resolver whose templates may only use fields the binder
// knows about.
func New[T any](binder *binding.Binder[T], opts ...Option) *Resolver[T] {
	o := options{
		variables:   make(map[string]string),
		normalizers: make(map[string]Normalizer),
		stemField:   "file_name",
		extField:    "file_type",
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = slog.New(slog.DiscardHandler)
	}

	r := &Resolver[T]{
		binder:      binder,
		normalizers: o.normalizers,
		values:      make(map[string][]string),
		stemField:   o.stemField,
		extField:    o.extField,
		logger:      o.logger,
	}
	r.registry = template.NewRegistry(o.variables, r.checkToken)
	return r
}

func (r *Resolver[T]) checkToken(tok pattern.Token) error {
	if !r.binder.Has(tok.Name) {
		return fmt.Errorf("token %q: %w", tok.Name, binding.ErrUnknownField)
	}
	return nil
}

// Binder returns the binder the resolver reads records through.
func (r *Resolver[T]) Binder() *binding.Binder[T] {
	return r.binder
}

// Registry exposes the underlying template registry.
func (r *Resolver[T]) Registry() *template.Registry {
	return r.registry
}

// SetVariables merges vars into the substitutions for later registrations.
func (r *Resolver[T]) SetVariables(vars map[string]string) {
	r.registry.SetVariables(vars)
}

// Register adds or replaces a template. base may be empty.
func (r *Resolver[T]) Register(name, raw, base string) error {
	tmpl, err := r.registry.Register(name, raw, base)
	if err != nil {
		return err
	}
	r.logger.Debug("registered template", "name", name, "base", base, "pattern", tmpl.String())
	return nil
}

// Template returns the named template.
func (r *Resolver[T]) Template(name string) (*template.Template, error) {
	return r.registry.Lookup(name)
}

// Names lists templates in registration order.
func (r *Resolver[T]) Names() []string {
	return r.registry.Names()
}

// SetNormalizers replaces every normalizer.
func (r *Resolver[T]) SetNormalizers(n map[string]Normalizer) {
	r.normalizers = maps.Clone(n)
	if r.normalizers == nil {
		r.normalizers = make(map[string]Normalizer)
	}
}

// SetNormalizer registers or, with a nil fn, removes one field's normalizer.
func (r *Resolver[T]) SetNormalizer(field string, fn Normalizer) {
	if fn == nil {
		delete(r.normalizers, field)
		return
	}
	r.normalizers[field] = fn
}

// RegisterValues records the candidate values used when generating
// directory structures. Order is preserved.
func (r *Resolver[T]) RegisterValues(field string, values []string) {
	r.values[field] = slices.Clone(values)
	if r.values[field] == nil {
		r.values[field] = []string{}
	}
}

// Values returns the registered candidates for field and whether any list
// was registered at all.
func (r *Resolver[T]) Values(field string) ([]string, bool) {
	v, ok := r.values[field]
	return slices.Clone(v), ok
}
