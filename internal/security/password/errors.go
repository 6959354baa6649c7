package password

import "errors"

var (
	// ErrPasswordTooShort is returned when a password is below the policy minimum.
	ErrPasswordTooShort = errors.New("password too short")

	// ErrPasswordTooLong is returned when a password exceeds the policy maximum.
	// bcrypt silently truncates inputs past 72 bytes, so the cap is enforced here.
	ErrPasswordTooLong = errors.New("password too long")

	// ErrConfig is returned for invalid configuration.
	ErrConfig = errors.New("invalid password config")
)
