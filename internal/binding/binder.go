// Package binding maps token names onto fields of a caller-defined record
// type so the resolver can read and write records without reflection.
package binding

import (
	"errors"
	"fmt"
	"slices"
)

var ErrUnknownField = errors.New("unknown field")

// Field exposes one named record field as an optional string.
type Field[T any] struct {
	Name string
	Get  func(rec *T) (string, bool)
	Set  func(rec *T, value string)
}

// Binder declares which named fields a record type offers. The zero value is
// not usable; call New.
type Binder[T any] struct {
	fields map[string]Field[T]
	order  []string
	clone  func(T) T

	// dynamic backs names that were never declared, when set.
	dynamic   func(name string) Field[T]
	enumerate func(rec *T, yield func(name, value string))
}

// New returns a binder with no fields. Records are cloned by value copy
// unless WithClone says otherwise.
func New[T any]() *Binder[T] {
	return &Binder[T]{
		fields: make(map[string]Field[T]),
		clone:  func(v T) T { return v },
	}
}

// Field declares a field with explicit accessors.
func (b *Binder[T]) Field(name string, get func(*T) (string, bool), set func(*T, string)) *Binder[T] {
	if _, ok := b.fields[name]; !ok {
		b.order = append(b.order, name)
	}
	b.fields[name] = Field[T]{Name: name, Get: get, Set: set}
	return b
}

// String declares a plain string field. The empty string reads as unset.
func (b *Binder[T]) String(name string, ref func(*T) *string) *Binder[T] {
	return b.Field(name,
		func(rec *T) (string, bool) {
			v := *ref(rec)
			return v, v != ""
		},
		func(rec *T, v string) { *ref(rec) = v },
	)
}

// Optional declares a *string field. A nil pointer reads as unset.
func (b *Binder[T]) Optional(name string, ref func(*T) **string) *Binder[T] {
	return b.Field(name,
		func(rec *T) (string, bool) {
			p := *ref(rec)
			if p == nil {
				return "", false
			}
			return *p, true
		},
		func(rec *T, v string) { *ref(rec) = &v },
	)
}

// WithClone replaces the default value-copy clone, for records holding
// maps, slices or pointers that must not be shared.
func (b *Binder[T]) WithClone(fn func(T) T) *Binder[T] {
	b.clone = fn
	return b
}

func (b *Binder[T]) lookup(name string) (Field[T], bool) {
	if f, ok := b.fields[name]; ok {
		return f, true
	}
	if b.dynamic != nil {
		return b.dynamic(name), true
	}
	return Field[T]{}, false
}

// Has reports whether name can be read and written.
func (b *Binder[T]) Has(name string) bool {
	_, ok := b.lookup(name)
	return ok
}

// Declares reports whether name was declared explicitly.
func (b *Binder[T]) Declares(name string) bool {
	_, ok := b.fields[name]
	return ok
}

// Names lists the declared fields in declaration order.
func (b *Binder[T]) Names() []string {
	return slices.Clone(b.order)
}

// Get reads a field. Unknown and unset fields both report false.
func (b *Binder[T]) Get(rec *T, name string) (string, bool) {
	f, ok := b.lookup(name)
	if !ok {
		return "", false
	}
	return f.Get(rec)
}

// Set writes a field.
func (b *Binder[T]) Set(rec *T, name, value string) error {
	f, ok := b.lookup(name)
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownField, name)
	}
	f.Set(rec, value)
	return nil
}

// Clone returns an independent copy of rec.
func (b *Binder[T]) Clone(rec T) T {
	return b.clone(rec)
}

// Values collects every set field of rec.
func (b *Binder[T]) Values(rec *T) map[string]string {
	out := make(map[string]string)
	for _, name := range b.order {
		if v, ok := b.fields[name].Get(rec); ok {
			out[name] = v
		}
	}
	if b.enumerate != nil {
		b.enumerate(rec, func(name, value string) {
			out[name] = value
		})
	}
	return out
}
