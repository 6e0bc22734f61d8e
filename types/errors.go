package types

import "errors"

// Error taxonomy mapped centrally to HTTP statuses. NotFound deliberately
// covers both "absent" and "not visible to the caller" so existence never
// leaks.
var (
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrNotFound     = errors.New("not found")
)
