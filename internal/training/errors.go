package training

import (
	"errors"
	"fmt"
	"strings"

	"github.com/AFFWORLDT/serverhyhpen-sub001/internal/api"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrSessionNotFound   = fmt.Errorf("session %w", ErrNotFound)
	ErrMemberNotFound    = fmt.Errorf("member %w", ErrNotFound)
	ErrTrainerNotFound   = fmt.Errorf("trainer %w", ErrNotFound)
	ErrProgrammeNotFound = fmt.Errorf("programme %w", ErrNotFound)

	ErrForbidden         = errors.New("forbidden")
	ErrInvalidTransition = errors.New("invalid state transition")
	ErrVersionConflict   = errors.New("session was modified concurrently")
)

// ValidationError carries field-level problems found before any mutation.
type ValidationError struct {
	Fields []api.FieldError
}

func (e *ValidationError) Error() string {
	msgs := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		msgs = append(msgs, f.Message)
	}
	return "validation failed: " + strings.Join(msgs, "; ")
}

func invalid(field, tag, message string) *ValidationError {
	return &ValidationError{Fields: []api.FieldError{{Field: field, Tag: tag, Message: message}}}
}

func transitionError(from State, op string) error {
	return fmt.Errorf("%w: cannot %s a %s session", ErrInvalidTransition, op, from)
}
