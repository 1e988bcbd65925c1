package space

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNotFound is returned when a persisted space or its folder does not exist.
	ErrNotFound = errors.New("not found")
	// ErrWordNotFound is returned when a query word is absent from a space.
	ErrWordNotFound = errors.New("word not found")
	// ErrIncompatible is returned when two spaces have different dimensions.
	ErrIncompatible = errors.New("incompatible spaces")
	// ErrAlignment is returned when no valid orthogonal map can be solved.
	ErrAlignment = errors.New("alignment failed")
	// ErrDegenerateVector is returned for a zero-norm vector in a similarity computation.
	ErrDegenerateVector = errors.New("degenerate vector")
	// ErrNoData is returned when the investigated word is absent from every period.
	ErrNoData = errors.New("no data to project")
	// ErrInsufficientData is returned when fewer than two points are available for projection.
	ErrInsufficientData = errors.New("insufficient data to project")
)

// NotFoundError reports a missing persisted space, file or folder.
type NotFoundError struct {
	Resource string
	cause    error
}

// NewNotFoundError wraps cause (may be nil) for the missing resource.
func NewNotFoundError(resource string, cause error) *NotFoundError {
	return &NotFoundError{Resource: resource, cause: cause}
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s: %s", ErrNotFound, e.Resource)
}

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

func (e *NotFoundError) Unwrap() error { return e.cause }

// WordNotFoundError reports a word missing from a specific space.
// Suggestions holds close vocabulary words when a suggester was available.
type WordNotFoundError struct {
	Word        string
	SpaceID     string
	Suggestions []string
}

func (e *WordNotFoundError) Error() string {
	msg := fmt.Sprintf("word %q not in vocabulary of %q", e.Word, e.SpaceID)
	if len(e.Suggestions) > 0 {
		msg += " (did you mean: " + strings.Join(e.Suggestions, ", ") + "?)"
	}
	return msg
}

func (e *WordNotFoundError) Is(target error) bool { return target == ErrWordNotFound }

// IncompatibleSpaceError reports a dimension mismatch between two spaces.
type IncompatibleSpaceError struct {
	SourceID     string
	ReferenceID  string
	SourceDim    int
	ReferenceDim int
}

func (e *IncompatibleSpaceError) Error() string {
	return fmt.Sprintf("%s: %q has dimension %d, %q has dimension %d",
		ErrIncompatible, e.SourceID, e.SourceDim, e.ReferenceID, e.ReferenceDim)
}

func (e *IncompatibleSpaceError) Is(target error) bool { return target == ErrIncompatible }

// AlignmentError reports an empty or degenerate alignment problem.
type AlignmentError struct {
	SourceID    string
	ReferenceID string
	Reason      string
}

func (e *AlignmentError) Error() string {
	return fmt.Sprintf("%s: %q onto %q: %s", ErrAlignment, e.SourceID, e.ReferenceID, e.Reason)
}

func (e *AlignmentError) Is(target error) bool { return target == ErrAlignment }

// DegenerateVectorError reports a zero-norm vector.
type DegenerateVectorError struct {
	Word    string
	SpaceID string
}

func (e *DegenerateVectorError) Error() string {
	return fmt.Sprintf("%s: %q in %q has zero norm", ErrDegenerateVector, e.Word, e.SpaceID)
}

func (e *DegenerateVectorError) Is(target error) bool { return target == ErrDegenerateVector }
