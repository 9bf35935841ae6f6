package shared

import "errors"

// Sentinel errors shared by the domain services. Repositories translate
// driver-level failures into these; handlers map them onto HTTP statuses.
var (
	// ErrNotFound indicates a referenced entity is absent.
	ErrNotFound = errors.New("record not found")
	// ErrAlreadyExists indicates a uniqueness or duplication violation.
	ErrAlreadyExists = errors.New("record already exists")
	// ErrInvalidStatus indicates a disallowed status transition.
	ErrInvalidStatus = errors.New("invalid status transition")
	// ErrValidation indicates a request failed a field-level check.
	ErrValidation = errors.New("validation failed")
)
