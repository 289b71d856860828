// Package template holds named path templates and resolves their
// inheritance into flat token sequences.
package template

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/nate-maxwell/templar/internal/pattern"
)

var (
	ErrUnknownTemplate  = errors.New("template not registered")
	ErrUnknownBase      = errors.New("base template not registered")
	ErrCycle            = errors.New("template inheritance cycle")
	ErrConflictingToken = errors.New("token declared with conflicting formats")
	ErrEmptyName        = errors.New("template name is empty")
)

// Template is a registered pattern with its base already folded in.
type Template struct {
	Name     string
	Pattern  string // as registered, before variable expansion
	Base     string
	Own      pattern.Sequence
	Sequence pattern.Sequence

	matcher *pattern.Matcher
}

// Matcher returns the reverse matcher for the flattened sequence.
func (t *Template) Matcher() *pattern.Matcher {
	return t.matcher
}

// Tokens returns the first occurrence of each distinct token.
func (t *Template) Tokens() []pattern.Token {
	var out []pattern.Token
	for _, name := range t.Sequence.Names() {
		tok, _ := t.Sequence.Lookup(name)
		out = append(out, tok)
	}
	return out
}

func (t *Template) String() string {
	return t.Sequence.String()
}

// TokenCheck vets each token of a template before it is stored.
type TokenCheck func(tok pattern.Token) error

// Registry maps names to templates. Registration fully flattens a template
// against the current state of its base; later changes to the base are not
// seen by templates that already inherited from it.
//
// A Registry is not safe for concurrent mutation.
type Registry struct {
	variables map[string]string
	templates map[string]*Template
	order     []string
	check     TokenCheck
}

// NewRegistry creates an empty registry. check may be nil.
func NewRegistry(variables map[string]string, check TokenCheck) *Registry {
	return &Registry{
		variables: maps.Clone(variables),
		templates: make(map[string]*Template),
		check:     check,
	}
}

// SetVariables merges vars into the variables used by future registrations.
func (r *Registry) SetVariables(vars map[string]string) {
	if r.variables == nil {
		r.variables = make(map[string]string, len(vars))
	}
	maps.Copy(r.variables, vars)
}

// Variables returns a copy of the registry variables.
func (r *Registry) Variables() map[string]string {
	return maps.Clone(r.variables)
}

// Register compiles raw, folds in base (if any) and stores the result under
// name, replacing any earlier template of that name. On error the registry
// is left unchanged.
func (r *Registry) Register(name, raw, base string) (*Template, error) {
	if name == "" {
		return nil, ErrEmptyName
	}
	own, err := pattern.Compile(raw, r.variables)
	if err != nil {
		return nil, fmt.Errorf("register %q: %w", name, err)
	}

	flat := own
	if base != "" {
		if err := r.checkCycle(name, base); err != nil {
			return nil, err
		}
		parent := r.templates[base]
		flat = pattern.Join(parent.Sequence, own)
	}

	if err := r.checkTokens(name, flat); err != nil {
		return nil, err
	}
	matcher, err := pattern.NewMatcher(flat)
	if err != nil {
		return nil, fmt.Errorf("register %q: %w", name, err)
	}

	tmpl := &Template{
		Name:     name,
		Pattern:  raw,
		Base:     base,
		Own:      own,
		Sequence: flat,
		matcher:  matcher,
	}
	if _, exists := r.templates[name]; !exists {
		r.order = append(r.order, name)
	}
	r.templates[name] = tmpl
	return tmpl, nil
}

func (r *Registry) checkCycle(name, base string) error {
	chain := []string{name}
	seen := map[string]bool{name: true}
	for cur := base; cur != ""; {
		chain = append(chain, cur)
		if seen[cur] {
			return fmt.Errorf("%w: %s", ErrCycle, strings.Join(chain, " -> "))
		}
		seen[cur] = true
		t, ok := r.templates[cur]
		if !ok {
			return fmt.Errorf("register %q: %w: %q", name, ErrUnknownBase, cur)
		}
		cur = t.Base
	}
	return nil
}

func (r *Registry) checkTokens(name string, seq pattern.Sequence) error {
	first := make(map[string]pattern.Token)
	for _, tok := range seq.Tokens() {
		if prev, ok := first[tok.Name]; ok {
			if !prev.SameFormat(tok) {
				return fmt.Errorf("register %q: %w: %s vs %s", name, ErrConflictingToken, prev, tok)
			}
			continue
		}
		first[tok.Name] = tok
		if r.check != nil {
			if err := r.check(tok); err != nil {
				return fmt.Errorf("register %q: %w", name, err)
			}
		}
	}
	return nil
}

// Lookup returns the named template.
func (r *Registry) Lookup(name string) (*Template, error) {
	t, ok := r.templates[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownTemplate, name)
	}
	return t, nil
}

// Names lists templates in registration order.
func (r *Registry) Names() []string {
	return slices.Clone(r.order)
}

// Len returns the number of registered templates.
func (r *Registry) Len() int {
	return len(r.order)
}

// Chain returns name followed by its ancestors, nearest first.
func (r *Registry) Chain(name string) ([]string, error) {
	var chain []string
	for cur := name; cur != ""; {
		t, err := r.Lookup(cur)
		if err != nil {
			return nil, err
		}
		chain = append(chain, cur)
		cur = t.Base
	}
	return chain, nil
}
