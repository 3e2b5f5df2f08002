package domain

import (
	"fmt"
	"strings"
)

// Error kinds as they appear on the wire.
const (
	KindValidation       = "validation_error"
	KindModelUnavailable = "model_unavailable"
	KindInternal         = "internal_error"
)

// FieldError describes one rejected input field.
type FieldError struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

// ValidationError is caller-fixable and never retried.
type ValidationError struct {
	Fields []FieldError
	// Malformed is set when the body could not be read as a JSON object at all.
	Malformed bool
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, fmt.Sprintf("%s %s", f.Field, f.Reason))
	}
	return "invalid input: " + strings.Join(parts, "; ")
}

// Has reports whether field was rejected.
func (e *ValidationError) Has(field string) bool {
	for _, f := range e.Fields {
		if f.Field == field {
			return true
		}
	}
	return false
}

// ModelUnavailableError means the artifact is missing, corrupt, or timed out.
type ModelUnavailableError struct {
	Reason string
	Err    error
}

func (e *ModelUnavailableError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("model unavailable: %s: %v", e.Reason, e.Err)
	}
	return "model unavailable: " + e.Reason
}

func (e *ModelUnavailableError) Unwrap() error { return e.Err }

// InternalError wraps an unexpected defect.
type InternalError struct {
	Err error
}

func (e *InternalError) Error() string { return fmt.Sprintf("internal error: %v", e.Err) }

func (e *InternalError) Unwrap() error { return e.Err }
