// Package models provides standardized error types for flow model operations.
package models

import (
	"errors"
	"fmt"
)

// Model error categories. Every failure surfaced by this package wraps one of
// these sentinels so callers can classify errors without parsing messages.
var (
	// ErrInvalidElement indicates a structurally malformed element record:
	// missing discriminator, empty or illegal name, unknown type tag, or a
	// duplicate name within one level.
	ErrInvalidElement = errors.New("invalid element")

	// ErrIdentityReassigned indicates an attempt to overwrite an identity
	// that was already assigned by the remote system.
	ErrIdentityReassigned = errors.New("attempted to change readonly attribute after initialization")

	// ErrUnresolvedReference indicates a component reference, required
	// variable, required controller, or connection target that cannot be
	// satisfied.
	ErrUnresolvedReference = errors.New("unresolved reference")

	// ErrControllerNotFound indicates no controller with the requested name
	// exists in scope.
	ErrControllerNotFound = errors.New("controller not found")

	// ErrElementNotFound indicates a hierarchical path segment that did not
	// resolve to an element.
	ErrElementNotFound = errors.New("element not found")
)

// ElementError wraps model errors with the operation and element path where
// they occurred.
type ElementError struct {
	Op   string // Operation being performed (e.g., "Resolve", "Assign")
	Path string // Hierarchical element path if applicable
	Err  error  // Underlying error
}

func (e *ElementError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("%s failed for element %s: %v", e.Op, e.Path, e.Err)
	}

	return fmt.Sprintf("%s failed: %v", e.Op, e.Err)
}

func (e *ElementError) Unwrap() error {
	return e.Err
}

// Is implements error comparison for element errors.
func (e *ElementError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// NewElementError creates a new element error with context.
func NewElementError(op, path string, err error) *ElementError {
	return &ElementError{
		Op:   op,
		Path: path,
		Err:  err,
	}
}

// IsValidation checks if an error indicates a structurally invalid record.
func IsValidation(err error) bool {
	return errors.Is(err, ErrInvalidElement)
}

// IsIdentityReassigned checks if an error indicates a write-once identity was
// assigned more than once.
func IsIdentityReassigned(err error) bool {
	return errors.Is(err, ErrIdentityReassigned)
}

// IsUnresolvedReference checks if an error indicates an unsatisfiable
// component, variable, controller, or connection reference.
func IsUnresolvedReference(err error) bool {
	return errors.Is(err, ErrUnresolvedReference)
}

// IsNotFound checks if an error indicates a failed controller or element
// lookup.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrControllerNotFound) || errors.Is(err, ErrElementNotFound)
}
