package session

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// AccessClaims is the identity envelope carried by a verified access token.
type AccessClaims struct {
	UserID    string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// AccessTokenManager issues and verifies short-lived access tokens.
type AccessTokenManager interface {
	Issue(userID string, now time.Time) (token string, exp time.Time, err error)
	Verify(token string, now time.Time) (AccessClaims, error)
}

type jwtHS256Manager struct {
	issuer string
	ttl    time.Duration
	secret []byte
}

// NewJWTManager builds an AccessTokenManager that signs HS256 JWTs with
// the process-wide secret from cfg. The secret is injected here rather
// than read from a global so tests can substitute their own.
func NewJWTManager(cfg Config) (AccessTokenManager, error) {
	if len(cfg.Secret) < 32 {
		return nil, ErrConfig
	}
	if cfg.AccessTokenTTL <= 0 {
		return nil, ErrConfig
	}

	return &jwtHS256Manager{
		issuer: cfg.Issuer,
		ttl:    cfg.AccessTokenTTL,
		secret: []byte(cfg.Secret),
	}, nil
}

func (m *jwtHS256Manager) Issue(userID string, now time.Time) (string, time.Time, error) {
	exp := now.Add(m.ttl)

	claims := jwt.RegisteredClaims{
		Issuer:    m.issuer,
		Subject:   userID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(exp),
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, exp, nil
}

func (m *jwtHS256Manager) Verify(token string, now time.Time) (AccessClaims, error) {
	// All failure modes collapse into ErrInvalidToken: a forged token and
	// an expired one must look identical to the caller.
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(m.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(func() time.Time { return now }),
	)

	var claims jwt.RegisteredClaims
	parsed, err := parser.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return m.secret, nil
	})
	if err != nil || !parsed.Valid {
		return AccessClaims{}, ErrInvalidToken
	}
	if claims.Subject == "" {
		return AccessClaims{}, ErrInvalidToken
	}

	out := AccessClaims{UserID: claims.Subject}
	if claims.IssuedAt != nil {
		out.IssuedAt = claims.IssuedAt.Time
	}
	if claims.ExpiresAt != nil {
		out.ExpiresAt = claims.ExpiresAt.Time
	}
	return out, nil
}
