package batch

import (
	"errors"

	"meshbatch/internal/pipeline"
)

var (
	// ErrUsage marks missing or contradictory command-line input.
	ErrUsage = errors.New("usage error")
	// ErrNoImages is returned when an image search found nothing.
	ErrNoImages = errors.New("no image found")
	// ErrStructural marks a pipeline that breaks the one-source/one-sink
	// rule or cannot compute its leaves.
	ErrStructural = errors.New("invalid pipeline")
	// ErrResolution marks an override naming a node type absent from the pipeline.
	// Unknown node and attribute names surface as the pipeline's own errors,
	// see IsResolution.
	ErrResolution = errors.New("unresolved override")
	// ErrGrammar marks a malformed param override.
	ErrGrammar = errors.New("invalid param override")
)

// UsageError is a command-line mistake whose message is shown as is.
type UsageError struct {
	Msg string
}

func (e *UsageError) Error() string { return e.Msg }

// Is reports ErrUsage as a match.
func (e *UsageError) Is(target error) bool { return target == ErrUsage }

// IsResolution reports whether err comes from a name that does not resolve
// to a node, a node type or an attribute.
func IsResolution(err error) bool {
	return errors.Is(err, ErrResolution) ||
		errors.Is(err, pipeline.ErrNodeNotFound) ||
		errors.Is(err, pipeline.ErrAttributeNotFound)
}

// Exit codes.
const (
	ExitOK       = 0
	ExitFailure  = 1
	ExitNoImages = 255
)

// ExitCode maps a Run error to the process exit status.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return ExitOK
	case errors.Is(err, ErrNoImages):
		return ExitNoImages
	default:
		return ExitFailure
	}
}
