package binding

import "maps"

// Fields is a schemaless record: any token name is a field.
type Fields map[string]string

// FieldsBinder binds Fields. Every name is readable and writable; names
// lists the ones that are declared, which matters for the resolver's
// filename split.
func FieldsBinder(names ...string) *Binder[Fields] {
	b := New[Fields]().WithClone(maps.Clone[Fields])
	for _, name := range names {
		b.Field(name, fieldGetter(name), fieldSetter(name))
	}
	b.dynamic = func(name string) Field[Fields] {
		return Field[Fields]{Name: name, Get: fieldGetter(name), Set: fieldSetter(name)}
	}
	b.enumerate = func(rec *Fields, yield func(string, string)) {
		for k, v := range *rec {
			if v != "" {
				yield(k, v)
			}
		}
	}
	return b
}

func fieldGetter(name string) func(*Fields) (string, bool) {
	return func(rec *Fields) (string, bool) {
		v, ok := (*rec)[name]
		return v, ok && v != ""
	}
}

func fieldSetter(name string) func(*Fields, string) {
	return func(rec *Fields, v string) {
		if *rec == nil {
			*rec = make(Fields)
		}
		(*rec)[name] = v
	}
}
