package repository

import "errors"

var (
	// ErrNotFound means the requested record does not exist.
	ErrNotFound = errors.New("not found")

	// ErrConflict means a uniqueness constraint was violated.
	ErrConflict = errors.New("conflict")

	// ErrInvalidInput means the input failed validation before reaching storage.
	ErrInvalidInput = errors.New("invalid input")

	// ErrNoDatabase means no storage backend is configured.
	ErrNoDatabase = errors.New("no database configured")
)

// IsNotFound reports whether err is ErrNotFound.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsConflict reports whether err is ErrConflict.
func IsConflict(err error) bool {
	return errors.Is(err, ErrConflict)
}
