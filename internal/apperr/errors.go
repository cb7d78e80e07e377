// Package apperr defines the error taxonomy shared by the workflow services and
// the HTTP layer.
package apperr

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	ErrNotFound        = errors.New("not found")
	ErrForbidden       = errors.New("forbidden")
	ErrUnauthenticated = errors.New("authentication required")
	ErrInactive        = errors.New("event is not accepting submissions")
	ErrInvalidState    = errors.New("invalid state")
)

// NotFound wraps ErrNotFound with the missing entity.
func NotFound(entity, id string) error {
	return fmt.Errorf("%s %s: %w", entity, id, ErrNotFound)
}

// Forbidden wraps ErrForbidden with the reason the caller was denied.
func Forbidden(reason string) error {
	return fmt.Errorf("%w: %s", ErrForbidden, reason)
}

// InvalidState wraps ErrInvalidState with the attempted transition.
func InvalidState(reason string) error {
	return fmt.Errorf("%w: %s", ErrInvalidState, reason)
}

// ValidationError carries field-level messages keyed by the input field name.
type ValidationError struct {
	Fields map[string]string
}

func NewValidation(field, message string) *ValidationError {
	return &ValidationError{Fields: map[string]string{field: message}}
}

func (e *ValidationError) Add(field, message string) {
	if e.Fields == nil {
		e.Fields = make(map[string]string)
	}
	if _, exists := e.Fields[field]; !exists {
		e.Fields[field] = message
	}
}

// OrNil returns nil when no field failed, so callers can build the error
// incrementally and return it unconditionally.
func (e *ValidationError) OrNil() error {
	if e == nil || len(e.Fields) == 0 {
		return nil
	}
	return e
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// DependencyFailure reports a multi-step operation that completed partially.
// It must reach the operator as a warning, never as success.
type DependencyFailure struct {
	Operation string
	Completed string
	Failed    string
	Err       error
}

func (e *DependencyFailure) Error() string {
	return fmt.Sprintf("%s: %s, but %s failed: %v", e.Operation, e.Completed, e.Failed, e.Err)
}

func (e *DependencyFailure) Unwrap() error {
	return e.Err
}

// AsDependencyFailure unwraps err to a *DependencyFailure if it carries one.
func AsDependencyFailure(err error) (*DependencyFailure, bool) {
	var df *DependencyFailure
	if errors.As(err, &df) {
		return df, true
	}
	return nil, false
}

// AsValidation unwraps err to a *ValidationError if it carries one.
func AsValidation(err error) (*ValidationError, bool) {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve, true
	}
	return nil, false
}
