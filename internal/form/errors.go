package form

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	ErrUnknownPath           = errors.New("form: unknown path")
	ErrIndexOutOfRange       = errors.New("form: index out of range")
	ErrTypeMismatch          = errors.New("form: type mismatch")
	ErrCheckOutBeforeCheckIn = errors.New("form: check-out before check-in")
)

// ValidationError carries the per-field messages of a failed full validation.
type ValidationError struct {
	Errors map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Errors))
	for k := range e.Errors {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Errors[k])
	}
	return fmt.Sprintf("validation failed: %s", strings.Join(parts, "; "))
}
