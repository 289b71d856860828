// Package normalize provides stock value normalizers for resolver fields.
// Every normalizer is a plain func(string) string so it can be registered
// with resolve.SetNormalizer directly.
package normalize

import (
	"strings"
	"unicode"
)

// Func rewrites a field value before the token formatter runs.
type Func = func(string) string

const illegal = `<>:"/\|?*`

// RemoveSpaces drops all whitespace.
func RemoveSpaces(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
}

// SpacesToUnderscores collapses each whitespace run into one underscore.
func SpacesToUnderscores(s string) string {
	return strings.Join(strings.Fields(s), "_")
}

// RemoveIllegal strips characters that are not allowed in file names on
// common filesystems, plus control characters.
func RemoveIllegal(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsControl(r) || strings.ContainsRune(illegal, r) {
			return -1
		}
		return r
	}, s)
}

// AlphanumericOnly keeps letters and digits.
func AlphanumericOnly(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return r
		}
		return -1
	}, s)
}

// LowerAlphanumeric lowercases s, turns whitespace runs into underscores and
// drops anything else that is not a letter, digit or underscore.
//
//	"My Task-01" -> "my_task01"
func LowerAlphanumeric(s string) string {
	s = SpacesToUnderscores(strings.ToLower(s))
	return strings.Map(func(r rune) rune {
		if r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r) {
			return r
		}
		return -1
	}, s)
}

// SafeFilename combines SpacesToUnderscores and RemoveIllegal, then trims
// leading and trailing dots.
func SafeFilename(s string) string {
	return strings.Trim(RemoveIllegal(SpacesToUnderscores(s)), ".")
}

// LimitLength truncates values to at most n runes.
func LimitLength(n int) Func {
	return func(s string) string {
		if n < 0 {
			return s
		}
		runes := []rune(s)
		if len(runes) <= n {
			return s
		}
		return string(runes[:n])
	}
}

// Chain applies fns left to right.
func Chain(fns ...Func) Func {
	return func(s string) string {
		for _, fn := range fns {
			s = fn(s)
		}
		return s
	}
}
