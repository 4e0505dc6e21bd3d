package repository

import "errors"

// Common repository errors
var (
	// ErrNotFound is returned when a record is not found
	ErrNotFound = errors.New("record not found")

	// ErrDuplicateSession is returned when a session with the same refresh hash already exists
	ErrDuplicateSession = errors.New("session with this refresh hash already exists")

	// ErrSessionConsumed is returned when a rotation hits a session that is
	// already rotated, revoked or expired
	ErrSessionConsumed = errors.New("session already consumed")

	// ErrStateNotFound is returned when an OAuth attempt is missing or expired
	ErrStateNotFound = errors.New("oauth attempt not found")

	// ErrCodeAlreadyUsed is returned when an authorization code was consumed before
	ErrCodeAlreadyUsed = errors.New("oauth code already used")
)
