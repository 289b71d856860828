// Package loader reads template definitions from JSON, HCL or YAML files and
// registers them with a resolver.
package loader

import (
	"errors"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/nate-maxwell/templar/api"
	"github.com/nate-maxwell/templar/internal/resolve"
	"github.com/nate-maxwell/templar/internal/template"
)

var (
	ErrUnsupportedFormat = errors.New("unsupported definitions format")
	ErrDuplicate         = errors.New("template defined twice")
)

// Load reads a definitions file, choosing the parser by extension. selector
// is an optional JSONPath locating the definitions inside a larger JSON or
// YAML document; it is ignored for HCL.
func Load(path, selector string) (*api.Definitions, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read definitions: %w", err)
	}
	var defs *api.Definitions
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".json", ".jsonc":
		defs, err = ParseJSON(data, selector)
	case ".yaml", ".yml":
		defs, err = ParseYAML(data, selector)
	case ".hcl":
		defs, err = ParseHCL(path, data)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return defs, nil
}

// Apply registers defs with r: variables first, then templates with every
// base ahead of the templates extending it, then candidate values.
func Apply[T any](defs *api.Definitions, r *resolve.Resolver[T]) error {
	r.SetVariables(defs.Variables)

	ordered, err := Order(defs.Templates)
	if err != nil {
		return err
	}
	for _, d := range ordered {
		if err := r.Register(d.Name, d.Pattern, d.Base); err != nil {
			return err
		}
	}
	for _, field := range slices.Sorted(maps.Keys(defs.Values)) {
		r.RegisterValues(field, defs.Values[field])
	}
	return nil
}

// Order sorts defs so that each template follows its base. Templates are
// otherwise taken by name. A base that is not among defs is left for the
// registry to resolve.
func Order(defs []api.TemplateDef) ([]api.TemplateDef, error) {
	byName := make(map[string]api.TemplateDef, len(defs))
	for _, d := range defs {
		if _, dup := byName[d.Name]; dup {
			return nil, fmt.Errorf("%w: %q", ErrDuplicate, d.Name)
		}
		byName[d.Name] = d
	}

	const (
		unvisited = iota
		visiting
		done
	)
	state := make(map[string]int, len(defs))
	out := make([]api.TemplateDef, 0, len(defs))

	var visit func(name string, chain []string) error
	visit = func(name string, chain []string) error {
		d, ok := byName[name]
		if !ok {
			return nil
		}
		switch state[name] {
		case done:
			return nil
		case visiting:
			return fmt.Errorf("%w: %s", template.ErrCycle, strings.Join(append(chain, name), " -> "))
		}
		state[name] = visiting
		if d.Base != "" {
			if err := visit(d.Base, append(chain, name)); err != nil {
				return err
			}
		}
		state[name] = done
		out = append(out, d)
		return nil
	}

	for _, name := range slices.Sorted(maps.Keys(byName)) {
		if err := visit(name, nil); err != nil {
			return nil, err
		}
	}
	return out, nil
}
