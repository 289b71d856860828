package pattern

import (
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Format identifies the transform a token applies to its value on build.
type Format int

const (
	// FormatNone leaves the value unchanged.
	FormatNone Format = iota
	// FormatPad zero-pads numeric values to Token.Width.
	FormatPad
	FormatUpper
	FormatLower
	FormatTitle
)

func (f Format) String() string {
	switch f {
	case FormatPad:
		return "pad"
	case FormatUpper:
		return "upper"
	case FormatLower:
		return "lower"
	case FormatTitle:
		return "title"
	default:
		return "none"
	}
}

const defaultPrefix = "default="

// Token is a named placeholder bound to one record field.
type Token struct {
	Name       string
	Format     Format
	Width      int // minimum width, FormatPad only
	Default    string
	HasDefault bool
}

// Required reports whether building fails when the field is unset.
func (t Token) Required() bool {
	return !t.HasDefault
}

// Fixed reports whether the token renders to a known width, which lets the
// matcher bound it without a following literal.
func (t Token) Fixed() bool {
	return t.Format == FormatPad && t.Width > 0
}

// Fits reports whether v is exactly Width digits, the only rendering a
// width-bounded token can be parsed back from.
func (t Token) Fits(v string) bool {
	return len(v) == t.Width && isDigits(v)
}

// SameFormat reports whether two occurrences of a token agree on formatting.
func (t Token) SameFormat(other Token) bool {
	return t.Format == other.Format && t.Width == other.Width
}

// Apply runs the token's formatter over value. Padding only touches values
// made entirely of digits and never truncates.
func (t Token) Apply(value string) string {
	switch t.Format {
	case FormatPad:
		if isDigits(value) && len(value) < t.Width {
			return strings.Repeat("0", t.Width-len(value)) + value
		}
		return value
	case FormatUpper:
		return strings.ToUpper(value)
	case FormatLower:
		return strings.ToLower(value)
	case FormatTitle:
		// Casers carry state, so one per call.
		return cases.Title(language.Und).String(value)
	default:
		return value
	}
}

// String renders the token back into pattern syntax.
func (t Token) String() string {
	var b strings.Builder
	b.WriteByte('<')
	b.WriteString(t.Name)
	switch t.Format {
	case FormatPad:
		fmt.Fprintf(&b, ":%0*d", len(strconv.Itoa(t.Width))+1, t.Width)
	case FormatUpper, FormatLower, FormatTitle:
		b.WriteByte(':')
		b.WriteString(t.Format.String())
	}
	if t.HasDefault {
		b.WriteByte(':')
		b.WriteString(defaultPrefix)
		b.WriteString(t.Default)
	}
	b.WriteByte('>')
	return b.String()
}

// parseToken parses the text between '<' and '>'.
func parseToken(body string) (Token, error) {
	name, specs, hasSpecs := strings.Cut(body, ":")
	if !isIdentifier(name) {
		return Token{}, fmt.Errorf("invalid token name %q", name)
	}
	tok := Token{Name: name}
	if !hasSpecs {
		return tok, nil
	}

	parts := strings.Split(specs, ":")
	formatted := false
	for i, spec := range parts {
		if strings.HasPrefix(spec, defaultPrefix) {
			// The default consumes the remainder, colons included.
			tok.Default = strings.Join(parts[i:], ":")[len(defaultPrefix):]
			tok.HasDefault = true
			break
		}
		if spec == "" {
			return Token{}, fmt.Errorf("empty spec")
		}
		if formatted {
			return Token{}, fmt.Errorf("more than one format spec (%q)", spec)
		}
		formatted = true

		switch spec {
		case "upper":
			tok.Format = FormatUpper
		case "lower":
			tok.Format = FormatLower
		case "title":
			tok.Format = FormatTitle
		default:
			if !isDigits(spec) {
				return Token{}, fmt.Errorf("unknown spec %q", spec)
			}
			width, err := strconv.Atoi(spec)
			if err != nil || width <= 0 {
				return Token{}, fmt.Errorf("invalid width %q", spec)
			}
			tok.Format = FormatPad
			tok.Width = width
		}
	}
	return tok, nil
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

func isIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r != '_' && !('a' <= r && r <= 'z') && !('A' <= r && r <= 'Z') && !('0' <= r && r <= '9') {
			return false
		}
	}
	return true
}
