// Package apperr defines the error taxonomy shared by the domain packages.
// Callers wrap a sentinel with fmt.Errorf("%w: ...") and the HTTP layer maps
// the sentinel to a status code with errors.Is.
package apperr

import (
	"errors"
	"sort"
	"strings"
)

var (
	ErrValidation      = errors.New("validation failed")
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrForbidden       = errors.New("forbidden")
	ErrNotFound        = errors.New("not found")
	ErrConflict        = errors.New("conflict")
	ErrInvalidState    = errors.New("invalid state")
	ErrDependency      = errors.New("dependency failure")
)

// FieldErrors carries per-field validation messages. It wraps ErrValidation.
type FieldErrors map[string]string

func (fe FieldErrors) Error() string {
	if len(fe) == 0 {
		return ErrValidation.Error()
	}
	keys := make([]string, 0, len(fe))
	for k := range fe {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+fe[k])
	}
	return ErrValidation.Error() + ": " + strings.Join(parts, "; ")
}

func (fe FieldErrors) Unwrap() error { return ErrValidation }

// Add records a message for field unless one is already present.
func (fe FieldErrors) Add(field, msg string) {
	if _, ok := fe[field]; ok {
		return
	}
	fe[field] = msg
}

// OrNil returns nil when no field failed, so it can be returned directly.
func (fe FieldErrors) OrNil() error {
	if len(fe) == 0 {
		return nil
	}
	return fe
}

// Details extracts field level details from err, if any.
func Details(err error) map[string]string {
	var fe FieldErrors
	if errors.As(err, &fe) && len(fe) > 0 {
		return fe
	}
	return nil
}
