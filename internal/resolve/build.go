package resolve

import (
	"path/filepath"
	"slices"
	"strings"

	"github.com/nate-maxwell/templar/internal/pattern"
)

// Build renders the named template for rec. The result uses the native
// path separator.
func (r *Resolver[T]) Build(name string, rec T) (string, error) {
	tmpl, err := r.registry.Lookup(name)
	if err != nil {
		return "", err
	}
	return r.render(name, tmpl.Sequence, &rec)
}

// Render builds an arbitrary compiled sequence against rec, with the same
// normalizers and defaults as Build.
func (r *Resolver[T]) Render(seq pattern.Sequence, rec T) (string, error) {
	return r.render(seq.String(), seq, &rec)
}

func (r *Resolver[T]) render(label string, seq pattern.Sequence, rec *T) (string, error) {
	var (
		b       strings.Builder
		missing []string
	)
	for i, f := range seq {
		if !f.IsToken() {
			b.WriteString(f.Literal)
			continue
		}
		value, ok := r.value(rec, *f.Token)
		if !ok {
			if !slices.Contains(missing, f.Token.Name) {
				missing = append(missing, f.Token.Name)
			}
			continue
		}
		if seq.Bounded(i) && !f.Token.Fits(value) {
			return "", &WidthError{Template: label, Token: f.Token.Name, Value: value, Width: f.Token.Width}
		}
		b.WriteString(value)
	}
	if len(missing) > 0 {
		return "", &MissingTokensError{Template: label, Missing: missing}
	}
	return filepath.FromSlash(b.String()), nil
}

// value produces the rendered text for one token. A set field goes through
// its normalizer and then the token formatter; an unset field falls back to
// the token default, which is formatted but not normalized.
func (r *Resolver[T]) value(rec *T, tok pattern.Token) (string, bool) {
	v, ok := r.binder.Get(rec, tok.Name)
	if !ok {
		if !tok.HasDefault {
			return "", false
		}
		return tok.Apply(tok.Default), true
	}
	if fn, ok := r.normalizers[tok.Name]; ok {
		v = fn(v)
	}
	return tok.Apply(v), true
}

// Validate reports whether rec can build the named template, and if not,
// which required tokens are missing in pattern order. The error is only for
// unknown templates.
func (r *Resolver[T]) Validate(name string, rec T) (bool, []string, error) {
	tmpl, err := r.registry.Lookup(name)
	if err != nil {
		return false, nil, err
	}
	missing := r.missing(tmpl.Sequence, &rec)
	return len(missing) == 0, missing, nil
}

func (r *Resolver[T]) missing(seq pattern.Sequence, rec *T) []string {
	var out []string
	for _, tok := range seq.Tokens() {
		if tok.HasDefault || slices.Contains(out, tok.Name) {
			continue
		}
		if _, ok := r.binder.Get(rec, tok.Name); !ok {
			out = append(out, tok.Name)
		}
	}
	return out
}

// CanBuild reports whether Build would succeed.
func (r *Resolver[T]) CanBuild(name string, rec T) bool {
	ok, _, err := r.Validate(name, rec)
	return err == nil && ok
}

// FindMatches lists, in registration order, every template rec can build.
func (r *Resolver[T]) FindMatches(rec T) []string {
	var out []string
	for _, name := range r.registry.Names() {
		if r.CanBuild(name, rec) {
			out = append(out, name)
		}
	}
	return out
}

// ResolveAny builds the first of names that succeeds and returns the path
// together with the template used. With no names every template is tried
// in registration order.
func (r *Resolver[T]) ResolveAny(rec T, names ...string) (string, string, error) {
	if len(names) == 0 {
		names = r.registry.Names()
	}
	var attempts []error
	for _, name := range names {
		path, err := r.Build(name, rec)
		if err == nil {
			return path, name, nil
		}
		attempts = append(attempts, err)
	}
	return "", "", &ResolveAnyError{Attempts: attempts}
}
