package pattern

import (
	"fmt"
	"strings"
)

// Fragment is one element of a compiled sequence: literal text or a token.
type Fragment struct {
	Literal string
	Token   *Token
}

// IsToken reports whether the fragment is a placeholder.
func (f Fragment) IsToken() bool {
	return f.Token != nil
}

// Sequence is a compiled pattern. Adjacent literals are always merged.
type Sequence []Fragment

// Tokens returns every token occurrence in order, repeats included.
func (s Sequence) Tokens() []Token {
	var out []Token
	for _, f := range s {
		if f.IsToken() {
			out = append(out, *f.Token)
		}
	}
	return out
}

// Names returns the distinct token names in order of first appearance.
func (s Sequence) Names() []string {
	seen := make(map[string]bool)
	var out []string
	for _, f := range s {
		if f.IsToken() && !seen[f.Token.Name] {
			seen[f.Token.Name] = true
			out = append(out, f.Token.Name)
		}
	}
	return out
}

// Lookup returns the first occurrence of the named token.
func (s Sequence) Lookup(name string) (Token, bool) {
	for _, f := range s {
		if f.IsToken() && f.Token.Name == name {
			return *f.Token, true
		}
	}
	return Token{}, false
}

// String renders the sequence back into pattern syntax.
func (s Sequence) String() string {
	var b strings.Builder
	for _, f := range s {
		if f.IsToken() {
			b.WriteString(f.Token.String())
		} else {
			b.WriteString(f.Literal)
		}
	}
	return b.String()
}

// Depth is the number of path segments the sequence renders to.
func (s Sequence) Depth() int {
	var b strings.Builder
	for _, f := range s {
		if f.IsToken() {
			b.WriteByte('x')
		} else {
			b.WriteString(f.Literal)
		}
	}
	trimmed := strings.Trim(b.String(), "/")
	if trimmed == "" {
		return 0
	}
	return strings.Count(trimmed, "/") + 1
}

// Join appends child to base with exactly one separator between them,
// unless either side already supplies it.
func Join(base, child Sequence) Sequence {
	if len(base) == 0 {
		return child.clone()
	}
	if len(child) == 0 {
		return base.clone()
	}
	out := base.clone()
	last, first := base[len(base)-1], child[0]
	needSep := !(!last.IsToken() && strings.HasSuffix(last.Literal, "/")) &&
		!(!first.IsToken() && strings.HasPrefix(first.Literal, "/"))
	if needSep {
		out = out.appendLiteral("/")
	}
	for _, f := range child {
		if f.IsToken() {
			tok := *f.Token
			out = append(out, Fragment{Token: &tok})
		} else {
			out = out.appendLiteral(f.Literal)
		}
	}
	return out
}

// Truncate returns the portion of s before the path separator that precedes
// the first occurrence of the named token. The second result is false when
// the token does not appear.
func (s Sequence) Truncate(name string) (Sequence, bool) {
	stop := -1
	for i, f := range s {
		if f.IsToken() && f.Token.Name == name {
			stop = i
			break
		}
	}
	if stop < 0 {
		return nil, false
	}
	head := s[:stop]
	for i := len(head) - 1; i >= 0; i-- {
		if head[i].IsToken() {
			continue
		}
		cut := strings.LastIndexByte(head[i].Literal, '/')
		if cut < 0 {
			continue
		}
		out := head[:i].clone()
		if cut > 0 {
			out = out.appendLiteral(head[i].Literal[:cut])
		}
		if len(out) > 0 {
			return out, true
		}
		break
	}
	return head.clone(), true
}

func (s Sequence) clone() Sequence {
	out := make(Sequence, 0, len(s))
	for _, f := range s {
		if f.IsToken() {
			tok := *f.Token
			f = Fragment{Token: &tok}
		}
		out = append(out, f)
	}
	return out
}

func (s Sequence) appendLiteral(lit string) Sequence {
	if lit == "" {
		return s
	}
	if n := len(s); n > 0 && !s[n-1].IsToken() {
		s[n-1].Literal += lit
		return s
	}
	return append(s, Fragment{Literal: lit})
}

// Bounded reports whether the token at i is directly followed by another
// token, so that only its width separates the two.
func (s Sequence) Bounded(i int) bool {
	return i+1 < len(s) && s[i].IsToken() && s[i+1].IsToken()
}

func (s Sequence) checkAdjacent() error {
	for i := 0; i+1 < len(s); i++ {
		if s[i].IsToken() && s[i+1].IsToken() && !s[i].Token.Fixed() {
			return fmt.Errorf("%w: %s%s", ErrAmbiguous, s[i].Token, s[i+1].Token)
		}
	}
	return nil
}
