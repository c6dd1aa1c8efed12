package storage

import "errors"

// Common storage errors.
var (
	// ErrInvalidKey is returned for keys a backend cannot store.
	ErrInvalidKey = errors.New("invalid key")

	// ErrClosed is returned when a closed backend is used.
	ErrClosed = errors.New("storage closed")
)
