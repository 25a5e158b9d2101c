package types

import (
	"fmt"

	"github.com/cockroachdb/errors"
)

// Error classes. Use errors.Is against these to classify a failure; use
// errors.As against the typed errors below to read the offending input.
var (
	ErrNotFound   = errors.New("category not found")
	ErrValidation = errors.New("validation failed")
	ErrStore      = errors.New("store failure")
)

// Entity and lifecycle errors.
var (
	ErrBackendDetached = errors.New("backend is detached")
	ErrAlreadyAttached = errors.New("backend is already attached")
	ErrInvalidName     = errors.New("invalid name")
	ErrCyclicMove      = errors.New("cannot move a category under itself or its descendant")
)

// NotFoundError reports a category reference that does not resolve, by id
// or by name/slug.
type NotFoundError struct {
	Ref string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("category %s not found", e.Ref)
}

// Is reports class membership for errors.Is.
func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// NotFound builds a NotFoundError for the given reference.
func NotFound(ref CategoryRef) error {
	return errors.WithStack(&NotFoundError{Ref: describeRef(ref)})
}

// ValidationError reports a caller contract violation: a malformed
// reference, an unknown subject kind, or invalid entity data.
type ValidationError struct {
	Field  string
	Reason string
	Err    error
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "validation failed: " + e.Reason
	}
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

func (e *ValidationError) Unwrap() error { return e.Err }

// Invalid builds a ValidationError.
func Invalid(field, reason string) error {
	return errors.WithStack(&ValidationError{Field: field, Reason: reason})
}

// Invalidf builds a ValidationError with a formatted reason.
func Invalidf(field, format string, args ...any) error {
	return Invalid(field, fmt.Sprintf(format, args...))
}

// StoreError wraps a backing-store failure. The driver error is kept intact
// and reachable through Unwrap.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *StoreError) Is(target error) bool {
	return target == ErrStore
}

func (e *StoreError) Unwrap() error { return e.Err }

// StoreFailure wraps err as a StoreError for op. A nil err yields nil.
// Errors that are already classified (not found, validation, store) and
// ErrBackendDetached pass through unchanged.
func StoreFailure(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrNotFound) || errors.Is(err, ErrValidation) || errors.Is(err, ErrStore) ||
		errors.Is(err, ErrBackendDetached) {
		return err
	}
	return &StoreError{Op: op, Err: err}
}

// IsNotFound reports whether err is or wraps a NotFoundError.
func IsNotFound(err error) bool {
	return err != nil && errors.Is(err, ErrNotFound)
}

// IsValidation reports whether err is or wraps a ValidationError.
func IsValidation(err error) bool {
	return err != nil && errors.Is(err, ErrValidation)
}
