package tasks

import "errors"

// ErrNotFound covers both missing documents and documents owned by
// another user; the two cases stay indistinguishable to callers.
var ErrNotFound = errors.New("tasks: not found")

// IsNotFound reports whether err is the store's not-found error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
