package scribedb

import "errors"

var (
	// ErrNotOperational guards every document operation before Setup
	// completes or after Shutdown.
	ErrNotOperational = errors.New("scribedb: database not operational")

	// ErrTransport wraps any remote read/write/stream failure.
	ErrTransport = errors.New("scribedb: remote store failure")

	// ErrConfiguration covers missing or invalid provisioning input;
	// fatal at startup.
	ErrConfiguration = errors.New("scribedb: invalid configuration")

	// ErrNotFound means a user, journal or note does not exist.
	ErrNotFound = errors.New("scribedb: not found")

	// ErrUnauthorized means an owner-scoped lookup hit a journal owned
	// by someone else.
	ErrUnauthorized = errors.New("scribedb: unauthorized")

	// ErrValidation means a write would break a document invariant,
	// e.g. a journal referencing an unknown author.
	ErrValidation = errors.New("scribedb: validation failed")
)
