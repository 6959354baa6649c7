package session

import "errors"

var (
	// ErrInvalidToken is returned when an access token fails verification.
	// Forged, malformed, and expired tokens are deliberately
	// indistinguishable: the caller must not learn which check failed.
	ErrInvalidToken = errors.New("invalid token")

	// ErrInvalidCredentials is returned by Login for an unknown email and
	// for a wrong password alike (enumeration resistance).
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrSessionInvalid is returned when a refresh session is unknown,
	// bound to a different user, or expired. The sub-causes are not
	// distinguished to the caller.
	ErrSessionInvalid = errors.New("session invalid")

	// ErrConfig is returned for invalid configuration.
	ErrConfig = errors.New("invalid config")
)
