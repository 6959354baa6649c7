package identity

import (
	"strings"
	"time"
)

// Session is one authenticated device/login: an opaque refresh token
// plus its absolute expiry in epoch seconds.
//
// Sessions are append-only. A session is never mutated after creation;
// renewal issues new access tokens without touching it, and expiry is
// checked lazily against ExpiresAt.
type Session struct {
	Token     string `json:"token"`
	ExpiresAt int64  `json:"expiresAt"`
}

// Expired reports whether the session's window has passed at now.
func (s Session) Expired(now time.Time) bool {
	return s.ExpiresAt <= now.Unix()
}

// User is tasknest's security principal, stored as a single document
// together with its sessions array.
type User struct {
	ID           string
	Email        string
	PasswordHash string
	Sessions     []Session
	CreatedAt    time.Time
}

// SessionValid reports whether the user holds a session with the given
// refresh token that has not expired. Multiple sessions may coexist
// (multi-device); each is independently valid or invalid.
func (u User) SessionValid(refreshToken string, now time.Time) bool {
	for _, s := range u.Sessions {
		if s.Token == refreshToken {
			return !s.Expired(now)
		}
	}
	return false
}

// NormalizeEmail trims surrounding whitespace. Email case is preserved:
// addresses are stored and compared exactly as given.
func NormalizeEmail(s string) string {
	return strings.TrimSpace(s)
}
