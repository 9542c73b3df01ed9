package pipeline

import "errors"

var (
	// ErrNodeNotFound is returned when a referenced node does not exist in the pipeline.
	ErrNodeNotFound = errors.New("pipeline: node not found")

	// ErrAttributeNotFound is returned when a node has no attribute with the requested name.
	ErrAttributeNotFound = errors.New("pipeline: attribute not found")

	// ErrInvalidValue is returned when a value cannot be coerced to the attribute kind
	// or is outside its allowed values.
	ErrInvalidValue = errors.New("pipeline: invalid attribute value")

	// ErrUnsupported is returned when an operation does not apply to the attribute kind.
	ErrUnsupported = errors.New("pipeline: unsupported attribute operation")

	// ErrReadOnly is returned when setting a computed output attribute.
	ErrReadOnly = errors.New("pipeline: attribute is read-only")

	// ErrCycle is returned when a link would make the graph cyclic.
	ErrCycle = errors.New("pipeline: dependency cycle")

	// ErrInvalidTemplate is returned for templates that cannot be turned into a pipeline.
	ErrInvalidTemplate = errors.New("pipeline: invalid template")
)
