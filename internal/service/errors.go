// Package service implements the business logic of the iptables-easy
// backend: user registration and authentication, node lifecycle management,
// the agent registration handshake, and rule management.
package service

import "errors"

// Sentinel errors forming the failure taxonomy surfaced to API handlers.
// Handlers map these to status codes with errors.Is; everything else is an
// internal error.
var (
	// ErrNotFound indicates a referenced id or name does not resolve
	ErrNotFound = errors.New("not found")

	// ErrConflict indicates a uniqueness violation on create or rename
	ErrConflict = errors.New("already exists")

	// ErrInvalidCredentials indicates a failed login. The same error is
	// returned for an unknown username and a wrong password so callers
	// cannot probe for account existence.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrInvalidToken indicates an expired, malformed, or forged token
	ErrInvalidToken = errors.New("invalid token")
)
