package resolve

import (
	"path"
	"strings"

	"github.com/nate-maxwell/templar/internal/template"
)

// Parse extracts a record from p using the named template. A path that does
// not fit the template yields ok=false and no error.
func (r *Resolver[T]) Parse(name, p string) (T, bool, error) {
	var zero T
	tmpl, err := r.registry.Lookup(name)
	if err != nil {
		return zero, false, err
	}
	rec, ok := r.parse(tmpl, p)
	return rec, ok, nil
}

// ParseAny tries every template in registration order and reports which one
// matched first.
func (r *Resolver[T]) ParseAny(p string) (T, string, bool) {
	var zero T
	for _, name := range r.registry.Names() {
		tmpl, err := r.registry.Lookup(name)
		if err != nil {
			continue
		}
		if rec, ok := r.parse(tmpl, p); ok {
			return rec, name, true
		}
	}
	return zero, "", false
}

func (r *Resolver[T]) parse(tmpl *template.Template, p string) (T, bool) {
	var rec, zero T
	captured, ok := tmpl.Matcher().Match(p)
	if !ok {
		return zero, false
	}
	for name, value := range captured {
		if err := r.binder.Set(&rec, name, value); err != nil {
			return zero, false
		}
	}
	r.splitFile(&rec, tmpl.Matcher().Trailing(), captured)
	return rec, true
}

// splitFile fills the stem and extension fields from the trailing token's
// value when the record declares them and the template did not capture them
// itself.
func (r *Resolver[T]) splitFile(rec *T, trailing string, captured map[string]string) {
	if trailing == "" || r.stemField == "" || r.extField == "" {
		return
	}
	if !r.binder.Declares(r.stemField) || !r.binder.Declares(r.extField) {
		return
	}
	if _, ok := captured[r.stemField]; ok {
		return
	}
	if _, ok := captured[r.extField]; ok {
		return
	}
	value := captured[trailing]
	ext := path.Ext(value)
	stem := strings.TrimSuffix(value, ext)
	if ext == "" || stem == "" || len(ext) == 1 {
		return
	}
	_ = r.binder.Set(rec, r.stemField, stem)
	_ = r.binder.Set(rec, r.extField, ext[1:])
}
