package service

import "errors"

// Domain error taxonomy. All are terminal for the call that raised them;
// retry policy belongs to the caller. Authorization failures never reveal
// whether a resource exists versus is merely inaccessible.
var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidSession     = errors.New("invalid session")
	ErrInvalidCode        = errors.New("invalid second-factor code")
	ErrUnauthenticated    = errors.New("unauthenticated")
	ErrForbidden          = errors.New("forbidden")
	ErrDeviceUnavailable  = errors.New("device unavailable")
	ErrCommandFailed      = errors.New("command failed")
	ErrNotFound           = errors.New("not found")
	ErrConflict           = errors.New("already exists")
)
