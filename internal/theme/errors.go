package theme

import (
	"errors"
	"fmt"
)

var (
	// ErrSectionNotFound is returned when an operation names a section id
	// that is not in the order model.
	ErrSectionNotFound = errors.New("section not found")
	// ErrInteractionConflict is returned when a section is asked to enter
	// drag and edit at the same time.
	ErrInteractionConflict = errors.New("section interaction conflict")
	ErrUnknownTheme        = errors.New("unknown theme")
	ErrUnknownTemplate     = errors.New("unknown section template")
	ErrNotEditing          = errors.New("no section is being edited")
)

// ValidationError reports a malformed configuration value or input.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "validation: " + e.Message
	}
	return fmt.Sprintf("validation: %s: %s", e.Field, e.Message)
}

func invalid(field, format string, args ...any) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// PersistenceError wraps a failure of the persistence gateway or content
// store. Conflict is set when the backend rejected a concurrent write.
type PersistenceError struct {
	Op       string
	Conflict bool
	Err      error
}

func (e *PersistenceError) Error() string {
	if e.Conflict {
		return fmt.Sprintf("%s: write conflict: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

func notFound(id string) error {
	return fmt.Errorf("%w: %q", ErrSectionNotFound, id)
}
