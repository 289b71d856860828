// Package pattern compiles path template strings into token sequences and
// matchers that run them in reverse.
package pattern

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

var (
	// ErrMalformedToken covers unterminated tokens, bad names and unknown specs.
	ErrMalformedToken = errors.New("malformed token")
	// ErrUnresolvedVariable is returned when a {NAME} reference has no value.
	ErrUnresolvedVariable = errors.New("unresolved variable")
	// ErrAmbiguous is returned when two tokens touch and the first one has no
	// fixed width to split them on.
	ErrAmbiguous = errors.New("ambiguous adjacent tokens")
)

var variableRef = regexp.MustCompile(`\{(\w+)\}`)

// CompileError reports where a pattern failed to compile.
type CompileError struct {
	Pattern string
	Token   string
	Err     error
}

func (e *CompileError) Error() string {
	if e.Token == "" {
		return fmt.Sprintf("compile %q: %v", e.Pattern, e.Err)
	}
	return fmt.Sprintf("compile %q: %s: %v", e.Pattern, e.Token, e.Err)
}

func (e *CompileError) Unwrap() error { return e.Err }

// Compile expands {NAME} variable references in raw and splits the result
// into literal and token fragments. Backslashes in literals become '/'.
func Compile(raw string, variables map[string]string) (Sequence, error) {
	expanded, err := Expand(raw, variables)
	if err != nil {
		return nil, err
	}

	var (
		seq     Sequence
		literal strings.Builder
	)
	flush := func() {
		if literal.Len() > 0 {
			seq = append(seq, Fragment{Literal: normalizeSeparators(literal.String())})
			literal.Reset()
		}
	}

	for i := 0; i < len(expanded); i++ {
		if expanded[i] != '<' {
			literal.WriteByte(expanded[i])
			continue
		}
		end := strings.IndexByte(expanded[i+1:], '>')
		if end < 0 {
			return nil, &CompileError{
				Pattern: raw,
				Token:   expanded[i:],
				Err:     fmt.Errorf("%w: unterminated token", ErrMalformedToken),
			}
		}
		body := expanded[i+1 : i+1+end]
		tok, err := parseToken(body)
		if err != nil {
			return nil, &CompileError{
				Pattern: raw,
				Token:   "<" + body + ">",
				Err:     fmt.Errorf("%w: %v", ErrMalformedToken, err),
			}
		}
		flush()
		seq = append(seq, Fragment{Token: &tok})
		i += end + 1
	}
	flush()

	if err := seq.checkAdjacent(); err != nil {
		return nil, &CompileError{Pattern: raw, Err: err}
	}
	return seq, nil
}

// Expand substitutes every {NAME} reference in raw. All unresolved names are
// reported together.
func Expand(raw string, variables map[string]string) (string, error) {
	var missing []string
	out := variableRef.ReplaceAllStringFunc(raw, func(ref string) string {
		name := ref[1 : len(ref)-1]
		if v, ok := variables[name]; ok {
			return v
		}
		missing = append(missing, ref)
		return ref
	})
	if len(missing) > 0 {
		return "", &CompileError{
			Pattern: raw,
			Token:   strings.Join(missing, ", "),
			Err:     ErrUnresolvedVariable,
		}
	}
	return out, nil
}

func normalizeSeparators(s string) string {
	return strings.ReplaceAll(s, `\`, "/")
}
