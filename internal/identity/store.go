package identity

import (
	"context"
	"time"
)

// CreateUserInput describes a user registration request.
// The password arrives pre-hashed; this layer never sees plaintext.
type CreateUserInput struct {
	Email        string
	PasswordHash string
	Now          time.Time
}

// Store is the user-document persistence boundary.
//
// Implementations must guarantee per-document atomicity: AppendSession
// is a single storage call that cannot lose concurrent appends, and
// GetUserByIDAndToken matches id and token in one read, not two.
type Store interface {
	// CreateUser creates a new user with an empty sessions array.
	// A taken email fails with ErrDuplicateEmail.
	CreateUser(ctx context.Context, in CreateUserInput) (User, error)

	// GetUserByID loads a user document by id.
	GetUserByID(ctx context.Context, id string) (User, error)

	// GetUserByEmail loads a user document by exact email.
	GetUserByEmail(ctx context.Context, email string) (User, error)

	// AppendSession appends a session to the user's sessions array and
	// persists the document. Existing sessions are never touched.
	AppendSession(ctx context.Context, userID string, s Session) error

	// GetUserByIDAndToken loads the user whose id matches AND whose
	// sessions array contains an entry with the given refresh token.
	// This is one atomic query; ErrNotFound covers both mismatches
	// indistinguishably.
	GetUserByIDAndToken(ctx context.Context, id, refreshToken string) (User, error)
}
