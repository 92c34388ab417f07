// Package loader provides standardized error types for document loading.
package loader

import "errors"

// Loader error categories.
var (
	// ErrInvalidDocument indicates a document that is not valid YAML, does
	// not match the document schema, or fails struct validation.
	ErrInvalidDocument = errors.New("invalid flow document")

	// ErrNoComponentSource indicates a flow referencing components while the
	// loader was built without a component source.
	ErrNoComponentSource = errors.New("no component source configured")
)

// IsInvalidDocument checks if an error indicates a malformed flow or
// component document.
func IsInvalidDocument(err error) bool {
	return errors.Is(err, ErrInvalidDocument)
}
