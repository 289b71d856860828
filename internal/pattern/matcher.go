package pattern

import (
	"fmt"
	"regexp"
	"strings"
)

// Matcher runs a compiled sequence in reverse, extracting token values from
// a concrete path. Formatters are not inverted: captured values are returned
// exactly as they appear in the path.
type Matcher struct {
	re       *regexp.Regexp
	groups   []string // capture group i+1 holds token groups[i]
	trailing string
}

// NewMatcher builds an anchored matcher for s. Each token matches one or more
// characters other than '/', except a fixed-width token directly followed by
// another token, which matches exactly its width in digits.
func NewMatcher(s Sequence) (*Matcher, error) {
	if err := s.checkAdjacent(); err != nil {
		return nil, err
	}
	var b strings.Builder
	b.WriteByte('^')
	m := &Matcher{}
	for i, f := range s {
		if !f.IsToken() {
			b.WriteString(regexp.QuoteMeta(f.Literal))
			continue
		}
		if s.Bounded(i) {
			fmt.Fprintf(&b, "([0-9]{%d})", f.Token.Width)
		} else {
			b.WriteString("([^/]+)")
		}
		m.groups = append(m.groups, f.Token.Name)
	}
	b.WriteByte('$')

	re, err := regexp.Compile(b.String())
	if err != nil {
		return nil, fmt.Errorf("compile matcher for %q: %w", s, err)
	}
	m.re = re
	if n := len(s); n > 0 && s[n-1].IsToken() {
		m.trailing = s[n-1].Token.Name
	}
	return m, nil
}

// Match extracts token values from path. Backslashes are treated as '/'.
// A token that appears more than once must capture the same value each time.
func (m *Matcher) Match(path string) (map[string]string, bool) {
	sub := m.re.FindStringSubmatch(normalizeSeparators(path))
	if sub == nil {
		return nil, false
	}
	values := make(map[string]string, len(m.groups))
	for i, name := range m.groups {
		v := sub[i+1]
		if prev, ok := values[name]; ok && prev != v {
			return nil, false
		}
		values[name] = v
	}
	return values, true
}

// Trailing names the token that ends the sequence, or "" if it ends in a
// literal.
func (m *Matcher) Trailing() string {
	return m.trailing
}

// Expr exposes the generated regular expression.
func (m *Matcher) Expr() string {
	return m.re.String()
}
