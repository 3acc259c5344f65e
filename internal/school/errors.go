package school

import (
	"errors"
	"strings"
)

var (
	// ErrNotFound is returned when no row matches the identifier.
	ErrNotFound = errors.New("record not found")
	// ErrMissingPrerequisites guards forms that need at least one student and one subject.
	ErrMissingPrerequisites = errors.New("register at least one student and one subject first")
)

// FieldError is used to indicate an error with a specific struct field.
type FieldError struct {
	Field string `json:"field"`
	Error string `json:"error"`
}

// ValidationError reports missing required fields; it is raised before any store call.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Field+": "+f.Error)
	}
	return "validation failed: " + strings.Join(parts, "; ")
}
