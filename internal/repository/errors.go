package repository

import "errors"

// ErrNotFound indicates an entity was not located.
var ErrNotFound = errors.New("repository: not found")

// Unique-constraint violations, surfaced as typed errors so services can
// distinguish which field conflicted. Both wrap ErrDuplicate.
var (
	ErrDuplicate         = errors.New("repository: duplicate key")
	ErrDuplicateUsername = newDuplicate("username")
	ErrDuplicateEmail    = newDuplicate("email")
)

type duplicateError struct {
	field string
}

func newDuplicate(field string) error {
	return &duplicateError{field: field}
}

func (e *duplicateError) Error() string {
	return "repository: duplicate " + e.field
}

func (e *duplicateError) Is(target error) bool {
	return target == ErrDuplicate
}
