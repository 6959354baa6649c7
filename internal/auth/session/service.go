package session

import (
	"context"
	"strings"
	"time"

	"tasknest/internal/identity"
	"tasknest/internal/security/password"
)

const maxEmailLen = 254

// Service implements the high-level auth/session operations.
//
// It composes the password hasher, the token manager, and the user
// store into signup, login, renewal, and the two verification gates.
// Service holds no mutable state of its own; every operation is a read
// or an additive append, so concurrent calls for the same user are safe
// as long as the store keeps per-document appends atomic.
type Service struct {
	cfg       Config
	users     identity.Store
	tokens    AccessTokenManager
	passwords password.Config

	// dummyHash keeps login timing comparable when the email is unknown.
	dummyHash string
}

// Issued is the result of signup or login: the persisted user plus a
// fresh access/refresh token pair.
type Issued struct {
	User         identity.User
	AccessToken  string
	AccessExp    time.Time
	RefreshToken string
	RefreshExp   time.Time
}

// NewService constructs a Service from its collaborators.
func NewService(cfg Config, users identity.Store, tokens AccessTokenManager, pw password.Config) *Service {
	s := &Service{
		cfg:       cfg,
		users:     users,
		tokens:    tokens,
		passwords: pw,
	}

	if hash, err := pw.Hash("dummy-password-for-timing-only"); err == nil {
		s.dummyHash = hash
	}

	return s
}

// Signup validates the credentials, creates the user, appends their
// first session, and signs an access token. A failure at any step
// aborts the whole operation; no user-without-session outcome is ever
// reported as success.
func (s *Service) Signup(ctx context.Context, now time.Time, email, plaintext string) (Issued, error) {
	const op = "session.Signup"

	email = identity.NormalizeEmail(email)
	if email == "" || len(email) > maxEmailLen || !strings.Contains(email, "@") {
		return Issued{}, identity.OpError{Op: op, Kind: identity.ErrInvalidInput, Msg: "valid email is required"}
	}
	if err := s.passwords.Validate(plaintext); err != nil {
		return Issued{}, identity.OpError{Op: op, Kind: identity.ErrInvalidInput, Msg: err.Error()}
	}

	hash, err := s.passwords.Hash(plaintext)
	if err != nil {
		return Issued{}, err
	}

	user, err := s.users.CreateUser(ctx, identity.CreateUserInput{
		Email:        email,
		PasswordHash: hash,
		Now:          now,
	})
	if err != nil {
		return Issued{}, err
	}

	return s.issueFor(ctx, now, user)
}

// Login authenticates by email and password and appends a NEW session;
// prior sessions stay untouched, so concurrent logins from several
// devices coexist. An unknown email and a wrong password both fail with
// ErrInvalidCredentials and comparable timing.
func (s *Service) Login(ctx context.Context, now time.Time, email, plaintext string) (Issued, error) {
	user, err := s.users.GetUserByEmail(ctx, identity.NormalizeEmail(email))
	if err != nil {
		if identity.IsNotFound(err) {
			if s.dummyHash != "" {
				_, _ = s.passwords.Verify(s.dummyHash, plaintext)
			}
			return Issued{}, ErrInvalidCredentials
		}
		return Issued{}, err
	}

	ok, err := s.passwords.Verify(user.PasswordHash, plaintext)
	if err != nil {
		return Issued{}, err
	}
	if !ok {
		return Issued{}, ErrInvalidCredentials
	}

	return s.issueFor(ctx, now, user)
}

// RenewAccessToken exchanges a valid (userID, refreshToken) pair for a
// fresh access token whose TTL restarts from now. The session itself is
// not created, rotated, or extended: its expiry stays fixed from
// creation, so this is safe to call repeatedly and concurrently.
func (s *Service) RenewAccessToken(ctx context.Context, now time.Time, userID, refreshToken string) (string, time.Time, error) {
	if _, err := s.VerifyRefreshSession(ctx, now, userID, refreshToken); err != nil {
		return "", time.Time{}, err
	}

	return s.tokens.Issue(userID, now)
}

// VerifyAccessToken verifies a signed access token and returns the
// subject's user id. It is stateless and touches no storage.
func (s *Service) VerifyAccessToken(token string, now time.Time) (string, error) {
	claims, err := s.tokens.Verify(token, now)
	if err != nil {
		return "", ErrInvalidToken
	}
	return claims.UserID, nil
}

// VerifyRefreshSession is the stateful gate for the renewal flow: one
// atomic lookup by (id, token) followed by the lazy expiry check.
// Unknown token, mismatched user, and expired session all collapse into
// ErrSessionInvalid.
func (s *Service) VerifyRefreshSession(ctx context.Context, now time.Time, userID, refreshToken string) (identity.User, error) {
	if strings.TrimSpace(userID) == "" || strings.TrimSpace(refreshToken) == "" {
		return identity.User{}, ErrSessionInvalid
	}

	user, err := s.users.GetUserByIDAndToken(ctx, userID, refreshToken)
	if err != nil {
		if identity.IsNotFound(err) {
			return identity.User{}, ErrSessionInvalid
		}
		return identity.User{}, err
	}

	if !user.SessionValid(refreshToken, now) {
		return identity.User{}, ErrSessionInvalid
	}

	return user, nil
}

// issueFor appends a new session to the user and signs an access token.
func (s *Service) issueFor(ctx context.Context, now time.Time, user identity.User) (Issued, error) {
	refresh, err := newRefreshToken(s.cfg.RefreshTokenBytes)
	if err != nil {
		return Issued{}, err
	}

	// Expiry is computed once, at append time, and never recomputed.
	refreshExp := now.Add(s.cfg.RefreshTokenTTL)
	sess := identity.Session{Token: refresh, ExpiresAt: refreshExp.Unix()}

	if err := s.users.AppendSession(ctx, user.ID, sess); err != nil {
		return Issued{}, err
	}
	user.Sessions = append(user.Sessions, sess)

	accessToken, accessExp, err := s.tokens.Issue(user.ID, now)
	if err != nil {
		return Issued{}, err
	}

	return Issued{
		User:         user,
		AccessToken:  accessToken,
		AccessExp:    accessExp,
		RefreshToken: refresh,
		RefreshExp:   refreshExp,
	}, nil
}
