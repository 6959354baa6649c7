package identity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore implements Store over PostgreSQL.
//
// Design notes:
//   - The pgx pool is owned by the caller; this store must NOT close it.
//   - Each user row is treated as one document: the sessions array lives
//     in a jsonb column, and appends use `sessions || $n::jsonb` so the
//     database serializes concurrent appends per row. No session is ever
//     updated in place.
//   - Errors are mapped to identity sentinel kinds where appropriate.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore constructs a PostgresStore.
func NewPostgresStore(pool *pgxpool.Pool) (*PostgresStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("identity: nil pool")
	}
	return &PostgresStore{pool: pool}, nil
}

const pgUniqueViolation = "23505"

// CreateUser inserts a new user row with an empty sessions array.
func (s *PostgresStore) CreateUser(ctx context.Context, in CreateUserInput) (User, error) {
	const op = "identity.CreateUser"

	email := NormalizeEmail(in.Email)
	if email == "" {
		return User{}, OpError{Op: op, Kind: ErrInvalidInput, Msg: "email is required"}
	}
	if strings.TrimSpace(in.PasswordHash) == "" {
		return User{}, OpError{Op: op, Kind: ErrInvalidInput, Msg: "password hash is required"}
	}

	now := in.Now
	if now.IsZero() {
		now = time.Now().UTC()
	}

	id, err := NewID(now)
	if err != nil {
		return User{}, fmt.Errorf("%s: %w", op, err)
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO users (id, email, password_hash, sessions, created_at)
		VALUES ($1, $2, $3, '[]'::jsonb, $4)
	`, id, email, in.PasswordHash, now)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return User{}, OpError{Op: op, Kind: ErrDuplicateEmail, Msg: "email already registered"}
		}
		return User{}, fmt.Errorf("%s: %w", op, err)
	}

	return User{
		ID:           id,
		Email:        email,
		PasswordHash: in.PasswordHash,
		Sessions:     nil,
		CreatedAt:    now,
	}, nil
}

// GetUserByID loads a user document by id.
func (s *PostgresStore) GetUserByID(ctx context.Context, id string) (User, error) {
	const op = "identity.GetUserByID"

	return s.queryUser(ctx, op, `
		SELECT id, email, password_hash, sessions, created_at
		FROM users
		WHERE id = $1
	`, id)
}

// GetUserByEmail loads a user document by exact email.
func (s *PostgresStore) GetUserByEmail(ctx context.Context, email string) (User, error) {
	const op = "identity.GetUserByEmail"

	return s.queryUser(ctx, op, `
		SELECT id, email, password_hash, sessions, created_at
		FROM users
		WHERE email = $1
	`, NormalizeEmail(email))
}

// GetUserByIDAndToken loads the user matching id AND holding a session
// with the given refresh token, in a single containment query.
func (s *PostgresStore) GetUserByIDAndToken(ctx context.Context, id, refreshToken string) (User, error) {
	const op = "identity.GetUserByIDAndToken"

	if id == "" || refreshToken == "" {
		return User{}, OpError{Op: op, Kind: ErrNotFound}
	}

	return s.queryUser(ctx, op, `
		SELECT id, email, password_hash, sessions, created_at
		FROM users
		WHERE id = $1
		  AND sessions @> jsonb_build_array(jsonb_build_object('token', $2::text))
	`, id, refreshToken)
}

// AppendSession appends one session element to the user's jsonb array.
// The `||` concatenation runs inside a single UPDATE, so concurrent
// appends for the same user cannot overwrite each other.
func (s *PostgresStore) AppendSession(ctx context.Context, userID string, sess Session) error {
	const op = "identity.AppendSession"

	if userID == "" || sess.Token == "" {
		return OpError{Op: op, Kind: ErrInvalidInput}
	}

	elem, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	tag, err := s.pool.Exec(ctx, `
		UPDATE users
		SET sessions = sessions || $2::jsonb
		WHERE id = $1
	`, userID, string(elem))
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if tag.RowsAffected() == 0 {
		return OpError{Op: op, Kind: ErrNotFound, Msg: "user"}
	}

	return nil
}

func (s *PostgresStore) queryUser(ctx context.Context, op, query string, args ...any) (User, error) {
	var (
		u        User
		sessions []byte
	)

	err := s.pool.QueryRow(ctx, query, args...).Scan(
		&u.ID,
		&u.Email,
		&u.PasswordHash,
		&sessions,
		&u.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return User{}, OpError{Op: op, Kind: ErrNotFound}
	}
	if err != nil {
		return User{}, fmt.Errorf("%s: %w", op, err)
	}

	if len(sessions) > 0 {
		if err := json.Unmarshal(sessions, &u.Sessions); err != nil {
			return User{}, fmt.Errorf("%s: decode sessions: %w", op, err)
		}
	}

	return u, nil
}
