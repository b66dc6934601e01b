package domain

import "errors"

var (
	// ErrValidation marks caller input that failed validation.
	ErrValidation = errors.New("validation error")
	// ErrNotFound marks a lookup for a record that does not exist.
	ErrNotFound = errors.New("not found")
	// ErrConflict marks an operation rejected because of current state.
	ErrConflict = errors.New("conflict")
)
