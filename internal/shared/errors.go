package shared

import "errors"

// Sentinel errors for the domain layer. Services wrap these with context via
// fmt.Errorf so handlers can map them to HTTP statuses with errors.Is.
var (
	// ErrNotFound indicates a referenced entity does not exist.
	ErrNotFound = errors.New("not found")
	// ErrConflict indicates a uniqueness or allocation conflict.
	ErrConflict = errors.New("conflict")
	// ErrInvalidState indicates a transition attempted from a status that
	// does not permit it.
	ErrInvalidState = errors.New("invalid state")
	// ErrValidation indicates structurally invalid input.
	ErrValidation = errors.New("validation failed")
)
