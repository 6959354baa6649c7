package identity

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is the in-memory Store used when no database is
// configured (dev mode) and by tests. Per-document atomicity is
// provided by a single mutex; appends copy-on-write the sessions slice
// so returned users never alias store internals.
type MemoryStore struct {
	mu      sync.Mutex
	users   map[string]*User  // id -> user
	byEmail map[string]string // email -> id
}

// NewMemoryStore constructs an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:   make(map[string]*User),
		byEmail: make(map[string]string),
	}
}

// CreateUser creates a new user with an empty sessions array.
func (s *MemoryStore) CreateUser(ctx context.Context, in CreateUserInput) (User, error) {
	const op = "identity.CreateUser"

	if err := ctx.Err(); err != nil {
		return User{}, err
	}

	email := NormalizeEmail(in.Email)
	if email == "" {
		return User{}, OpError{Op: op, Kind: ErrInvalidInput, Msg: "email is required"}
	}
	if in.PasswordHash == "" {
		return User{}, OpError{Op: op, Kind: ErrInvalidInput, Msg: "password hash is required"}
	}

	now := in.Now
	if now.IsZero() {
		now = time.Now().UTC()
	}

	id, err := NewID(now)
	if err != nil {
		return User{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, taken := s.byEmail[email]; taken {
		return User{}, OpError{Op: op, Kind: ErrDuplicateEmail, Msg: "email already registered"}
	}

	u := &User{
		ID:           id,
		Email:        email,
		PasswordHash: in.PasswordHash,
		CreatedAt:    now,
	}
	s.users[id] = u
	s.byEmail[email] = id

	return cloneUser(u), nil
}

// GetUserByID loads a user document by id.
func (s *MemoryStore) GetUserByID(ctx context.Context, id string) (User, error) {
	if err := ctx.Err(); err != nil {
		return User{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return User{}, OpError{Op: "identity.GetUserByID", Kind: ErrNotFound}
	}
	return cloneUser(u), nil
}

// GetUserByEmail loads a user document by exact email.
func (s *MemoryStore) GetUserByEmail(ctx context.Context, email string) (User, error) {
	if err := ctx.Err(); err != nil {
		return User{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.byEmail[NormalizeEmail(email)]
	if !ok {
		return User{}, OpError{Op: "identity.GetUserByEmail", Kind: ErrNotFound}
	}
	return cloneUser(s.users[id]), nil
}

// AppendSession appends a session to the user's sessions array.
func (s *MemoryStore) AppendSession(ctx context.Context, userID string, sess Session) error {
	const op = "identity.AppendSession"

	if err := ctx.Err(); err != nil {
		return err
	}
	if userID == "" || sess.Token == "" {
		return OpError{Op: op, Kind: ErrInvalidInput}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[userID]
	if !ok {
		return OpError{Op: op, Kind: ErrNotFound, Msg: "user"}
	}

	next := make([]Session, len(u.Sessions), len(u.Sessions)+1)
	copy(next, u.Sessions)
	u.Sessions = append(next, sess)

	return nil
}

// GetUserByIDAndToken loads the user matching id AND holding a session
// with the given refresh token.
func (s *MemoryStore) GetUserByIDAndToken(ctx context.Context, id, refreshToken string) (User, error) {
	const op = "identity.GetUserByIDAndToken"

	if err := ctx.Err(); err != nil {
		return User{}, err
	}
	if id == "" || refreshToken == "" {
		return User{}, OpError{Op: op, Kind: ErrNotFound}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return User{}, OpError{Op: op, Kind: ErrNotFound}
	}
	for _, sess := range u.Sessions {
		if sess.Token == refreshToken {
			return cloneUser(u), nil
		}
	}
	return User{}, OpError{Op: op, Kind: ErrNotFound}
}

func cloneUser(u *User) User {
	out := *u
	if u.Sessions != nil {
		out.Sessions = append([]Session(nil), u.Sessions...)
	}
	return out
}
