package resolve

import (
	"errors"
	"fmt"
	"strings"

	"github.com/nate-maxwell/templar/internal/template"
)

// ErrUnknownTemplate is returned for names that were never registered.
var ErrUnknownTemplate = template.ErrUnknownTemplate

// MissingTokensError lists every required token a record left unset.
type MissingTokensError struct {
	Template string
	Missing  []string
}

func (e *MissingTokensError) Error() string {
	return fmt.Sprintf("template %q: missing required tokens: %s",
		e.Template, strings.Join(e.Missing, ", "))
}

// WidthError is returned when a width-bounded token renders to something
// other than exactly its width in digits. Such a path would parse back into
// different values.
type WidthError struct {
	Template string
	Token    string
	Value    string
	Width    int
}

func (e *WidthError) Error() string {
	return fmt.Sprintf("template %q: token %q renders to %q, want exactly %d digits",
		e.Template, e.Token, e.Value, e.Width)
}

// ResolveAnyError collects the failure of each template tried.
type ResolveAnyError struct {
	Attempts []error
}

func (e *ResolveAnyError) Error() string {
	if len(e.Attempts) == 0 {
		return "no templates to resolve against"
	}
	msgs := make([]string, len(e.Attempts))
	for i, err := range e.Attempts {
		msgs[i] = err.Error()
	}
	return "no template could be resolved: " + strings.Join(msgs, "; ")
}

func (e *ResolveAnyError) Unwrap() []error { return e.Attempts }

// IsMissing reports whether err is, or wraps, a MissingTokensError.
func IsMissing(err error) bool {
	var missing *MissingTokensError
	return errors.As(err, &missing)
}
