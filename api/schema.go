package api

// Definitions is the external description of a template set. It can be
// written as JSON, HCL or YAML.
type Definitions struct {
	// Version of the definitions schema.
	Version string `json:"version,omitempty" yaml:"version,omitempty" hcl:"version,optional"`
	// Variables are substituted for {NAME} references in patterns.
	Variables map[string]string `json:"variables,omitempty" yaml:"variables,omitempty" hcl:"variables,optional"`
	// Templates to register.
	Templates []TemplateDef `json:"templates" yaml:"templates" hcl:"template,block"`
	// Values lists candidate values per field for structure generation.
	Values map[string][]string `json:"values,omitempty" yaml:"values,omitempty" hcl:"values,optional"`
}

// TemplateDef is one named pattern, optionally extending another template.
type TemplateDef struct {
	// Name the template is registered under.
	Name string `json:"name" yaml:"name" hcl:"name,label"`
	// Pattern is the template string, e.g. "seq/<seq>/<shot:04>".
	Pattern string `json:"pattern" yaml:"pattern" hcl:"pattern"`
	// Base is the name of the template this one extends (optional).
	Base string `json:"base,omitempty" yaml:"base,omitempty" hcl:"base,optional"`
}
