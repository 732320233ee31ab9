package session

import "errors"

var (
	// ErrNotFound is returned by stores for unknown or expired tokens.
	ErrNotFound = errors.New("session: not found")

	// ErrInvalidToken is returned when a token is empty or malformed.
	ErrInvalidToken = errors.New("session: invalid token")

	// ErrSweepUnsupported is returned when a store cannot sweep expired records.
	ErrSweepUnsupported = errors.New("session: store does not support sweeping")
)
