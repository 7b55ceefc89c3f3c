// Package sentinel defines infrastructure facts returned by stores.
//
// Stores return these (optionally wrapped); services translate them into
// coded domain errors. Input validation failures never use this package.
package sentinel

import "errors"

var (
	// ErrNotFound means the record does not exist.
	ErrNotFound = errors.New("not found")
	// ErrConflict means a uniqueness constraint would be violated by an insert.
	ErrConflict = errors.New("conflict")
	// ErrAlreadyUsed means a unique value is already held by another record.
	ErrAlreadyUsed = errors.New("already used")
	ErrExpired     = errors.New("expired")
	// ErrInvalidState means the record is in the wrong state for the operation.
	ErrInvalidState = errors.New("invalid state")
	ErrUnavailable  = errors.New("unavailable")
)
