package binding

import (
	"maps"
	"slices"
	"strconv"
	"strings"
)

// Filter is a set of field=value equality constraints, combined with AND.
type Filter map[string]string

// Key is a canonical form of f, identical for equal filters regardless of
// insertion order.
func (f Filter) Key() string {
	keys := slices.Sorted(maps.Keys(f))
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = strconv.Quote(k) + "=" + strconv.Quote(f[k])
	}
	return strings.Join(parts, ",")
}

// Clone returns a copy of f.
func (f Filter) Clone() Filter {
	return maps.Clone(f)
}

// Matches reports whether every constraint in f holds for rec. A field that
// is unset never satisfies a constraint.
func Matches[T any](b *Binder[T], rec *T, f Filter) bool {
	for name, want := range f {
		got, ok := b.Get(rec, name)
		if !ok || got != want {
			return false
		}
	}
	return true
}
