package errors

import (
	"fmt"
	"strings"
)

type Severity int

const (
	Minor Severity = iota
	Serious
)

func (s Severity) String() string {
	if s == Serious {
		return "serious"
	}
	return "minor"
}

// PostError is one labeled composition error, e.g. {Code: "poll_few"}.
// Params carry values interpolated into the user-facing text (counts, limits).
type PostError struct {
	Code     string
	Severity Severity
	Params   []any
}

// PostErrorSet accumulates validation and staging errors so they can be
// presented together, never one at a time. Adding the same code twice is
// a no-op, which keeps validation re-entrant.
type PostErrorSet struct {
	errs []PostError
}

func NewPostErrorSet() *PostErrorSet {
	return &PostErrorSet{}
}

// Add records an error with the default (minor) severity.
func (s *PostErrorSet) Add(code string, params ...any) {
	s.add(PostError{Code: code, Severity: Minor, Params: params})
}

// AddSerious records a blocking error.
func (s *PostErrorSet) AddSerious(code string, params ...any) {
	s.add(PostError{Code: code, Severity: Serious, Params: params})
}

func (s *PostErrorSet) add(e PostError) {
	for i, existing := range s.errs {
		if existing.Code == e.Code {
			// An upgrade to serious sticks, a downgrade does not.
			if e.Severity == Serious {
				s.errs[i].Severity = Serious
			}
			return
		}
	}
	s.errs = append(s.errs, e)
}

func (s *PostErrorSet) Has(code string) bool {
	for _, e := range s.errs {
		if e.Code == code {
			return true
		}
	}
	return false
}

func (s *PostErrorSet) HasErrors() bool {
	return len(s.errs) > 0
}

func (s *PostErrorSet) HasSerious() bool {
	for _, e := range s.errs {
		if e.Severity == Serious {
			return true
		}
	}
	return false
}

func (s *PostErrorSet) Errors() []PostError {
	out := make([]PostError, len(s.errs))
	copy(out, s.errs)
	return out
}

func (s *PostErrorSet) Codes() []string {
	codes := make([]string, len(s.errs))
	for i, e := range s.errs {
		codes[i] = e.Code
	}
	return codes
}

func (s *PostErrorSet) Error() string {
	return fmt.Sprintf("post errors: %s", strings.Join(s.Codes(), ", "))
}
