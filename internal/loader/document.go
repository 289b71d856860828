package loader

import (
	"fmt"
	"maps"
	"slices"

	"github.com/ohler55/ojg/jp"
	"github.com/ohler55/ojg/oj"
	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"

	"github.com/nate-maxwell/templar/api"
)

// ParseJSON decodes JSON definitions. Comments and trailing commas are
// allowed.
func ParseJSON(data []byte, selector string) (*api.Definitions, error) {
	doc, err := oj.Parse(jsonc.ToJSON(data))
	if err != nil {
		return nil, fmt.Errorf("parse json: %w", err)
	}
	return fromDocument(doc, selector)
}

// ParseYAML decodes YAML definitions.
func ParseYAML(data []byte, selector string) (*api.Definitions, error) {
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse yaml: %w", err)
	}
	return fromDocument(doc, selector)
}

// fromDocument accepts two shapes. The structured one has "templates" (a
// list of objects or a name-keyed object) alongside optional "variables",
// "values" and "version". The flat one maps each template name directly to
// a pattern string or to an object with "pattern" and optional "base".
func fromDocument(doc any, selector string) (*api.Definitions, error) {
	if selector != "" {
		x, err := jp.ParseString(selector)
		if err != nil {
			return nil, fmt.Errorf("invalid selector %q: %w", selector, err)
		}
		results := x.Get(doc)
		if len(results) != 1 {
			return nil, fmt.Errorf("selector %q matched %d nodes, want 1", selector, len(results))
		}
		doc = results[0]
	}

	root, ok := doc.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("definitions must be an object, got %T", doc)
	}
	if !structured(root) {
		templates, err := templatesFromObject(root)
		if err != nil {
			return nil, err
		}
		return &api.Definitions{Templates: templates}, nil
	}

	defs := &api.Definitions{}
	if v, ok := root["version"]; ok {
		defs.Version = fmt.Sprint(v)
	}
	if v, ok := root["variables"]; ok {
		vars, ok := v.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("variables must be an object")
		}
		defs.Variables = make(map[string]string, len(vars))
		for k, val := range vars {
			s, ok := val.(string)
			if !ok {
				return nil, fmt.Errorf("variable %q must be a string", k)
			}
			defs.Variables[k] = s
		}
	}
	if v, ok := root["values"]; ok {
		vals, ok := v.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("values must be an object")
		}
		defs.Values = make(map[string][]string, len(vals))
		for field, list := range vals {
			items, ok := list.([]any)
			if !ok {
				return nil, fmt.Errorf("values for %q must be a list", field)
			}
			out := make([]string, 0, len(items))
			for _, item := range items {
				out = append(out, fmt.Sprint(item))
			}
			defs.Values[field] = out
		}
	}

	switch t := root["templates"].(type) {
	case nil:
	case map[string]any:
		templates, err := templatesFromObject(t)
		if err != nil {
			return nil, err
		}
		defs.Templates = templates
	case []any:
		for i, item := range t {
			obj, ok := item.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("templates[%d] must be an object", i)
			}
			name, _ := obj["name"].(string)
			if name == "" {
				return nil, fmt.Errorf("templates[%d] has no name", i)
			}
			def, err := templateFromValue(name, obj)
			if err != nil {
				return nil, err
			}
			defs.Templates = append(defs.Templates, def)
		}
	default:
		return nil, fmt.Errorf("templates must be a list or an object, got %T", t)
	}
	return defs, nil
}

// structured tells the two shapes apart. A flat file can only be mistaken
// for a structured one if it names a template "templates" whose value is
// neither a pattern string nor a pattern object.
func structured(root map[string]any) bool {
	switch t := root["templates"].(type) {
	case []any:
		return true
	case map[string]any:
		_, isPattern := t["pattern"].(string)
		return !isPattern
	}
	_, hasVars := root["variables"].(map[string]any)
	_, hasValues := root["values"].(map[string]any)
	return hasVars || hasValues
}

func templatesFromObject(obj map[string]any) ([]api.TemplateDef, error) {
	var out []api.TemplateDef
	for _, name := range slices.Sorted(maps.Keys(obj)) {
		def, err := templateFromValue(name, obj[name])
		if err != nil {
			return nil, err
		}
		out = append(out, def)
	}
	return out, nil
}

func templateFromValue(name string, v any) (api.TemplateDef, error) {
	switch t := v.(type) {
	case string:
		return api.TemplateDef{Name: name, Pattern: t}, nil
	case map[string]any:
		pattern, ok := t["pattern"].(string)
		if !ok {
			return api.TemplateDef{}, fmt.Errorf("template %q: missing pattern", name)
		}
		base, _ := t["base"].(string)
		return api.TemplateDef{Name: name, Pattern: pattern, Base: base}, nil
	default:
		return api.TemplateDef{}, fmt.Errorf("template %q: expected string or object, got %T", name, v)
	}
}
