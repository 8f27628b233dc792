package domain

import (
	"errors"
	"strings"
)

// Error taxonomy shared by every core operation. Handlers map these to
// HTTP statuses with errors.Is; anything else is an internal failure.
var (
	ErrValidation   = errors.New("validation failed")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrInternal     = errors.New("internal error")

	ErrEmailAlreadyExists error = &wrapped{msg: "user already exists with this email", kind: ErrConflict}
	ErrSlugAlreadyExists  error = &wrapped{msg: "recipe slug already in use", kind: ErrConflict}
	ErrRecipeNotFound     error = &wrapped{msg: "recipe not found", kind: ErrNotFound}
	ErrAlreadyFavorited   error = &wrapped{msg: "recipe already in favorites", kind: ErrConflict}
	ErrNotFavorited       error = &wrapped{msg: "recipe not in favorites", kind: ErrNotFound}
)

type wrapped struct {
	msg  string
	kind error
}

func (e *wrapped) Error() string { return e.msg }
func (e *wrapped) Unwrap() error { return e.kind }

// Issue describes one rejected input field.
type Issue struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError collects field issues; it matches ErrValidation.
type ValidationError struct {
	Issues []Issue
}

// Add records an issue for field.
func (v *ValidationError) Add(field, message string) {
	v.Issues = append(v.Issues, Issue{Field: field, Message: message})
}

// Err returns v when it holds issues, nil otherwise.
func (v *ValidationError) Err() error {
	if v == nil || len(v.Issues) == 0 {
		return nil
	}
	return v
}

func (v *ValidationError) Error() string {
	parts := make([]string, 0, len(v.Issues))
	for _, is := range v.Issues {
		parts = append(parts, is.Field+": "+is.Message)
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func (v *ValidationError) Unwrap() error { return ErrValidation }

// NewValidationError builds a single-issue validation error.
func NewValidationError(field, message string) error {
	v := &ValidationError{}
	v.Add(field, message)
	return v
}
