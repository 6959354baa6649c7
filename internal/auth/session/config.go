package session

import (
	"os"
	"strconv"
	"time"
)

// Config defines all runtime configuration for the session subsystem.
//
// It is environment-driven and loaded once at startup; in particular the
// signing secret is static for the lifetime of the process.
type Config struct {
	// Issuer is the value set in the "iss" claim of access tokens.
	Issuer string

	// AccessTokenTTL is the lifetime of signed access tokens. The default
	// is deliberately short (60s) to force renewal through the refresh
	// flow.
	AccessTokenTTL time.Duration

	// RefreshTokenTTL is the session window, fixed at session creation
	// and never extended afterward.
	RefreshTokenTTL time.Duration

	// RefreshTokenBytes is the number of random bytes behind each opaque
	// refresh token. Tokens are hex-encoded, so the string is twice this.
	RefreshTokenBytes int

	// Secret is the HS256 signing key for access tokens.
	Secret string
}

// DefaultConfig returns the defaults: 60-second access tokens and
// 7-day sessions backed by 64-byte refresh tokens.
func DefaultConfig() Config {
	return Config{
		Issuer:            "tasknest",
		AccessTokenTTL:    60 * time.Second,
		RefreshTokenTTL:   7 * 24 * time.Hour,
		RefreshTokenBytes: 64,
	}
}

// LoadConfigFromEnv loads session configuration from environment variables.
//
// Required:
//   - TASKNEST_JWT_SECRET (min 32 bytes)
//
// Optional (durations must be valid Go duration strings):
//   - TASKNEST_AUTH_ISSUER
//   - TASKNEST_AUTH_ACCESS_TTL
//   - TASKNEST_AUTH_REFRESH_TTL
//   - TASKNEST_AUTH_REFRESH_TOKEN_BYTES
//
// Returns ErrConfig if configuration is invalid.
func LoadConfigFromEnv() (Config, error) {
	cfg := DefaultConfig()

	if v := os.Getenv("TASKNEST_AUTH_ISSUER"); v != "" {
		cfg.Issuer = v
	}

	if v := os.Getenv("TASKNEST_AUTH_ACCESS_TTL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			return Config{}, ErrConfig
		}
		cfg.AccessTokenTTL = d
	}

	if v := os.Getenv("TASKNEST_AUTH_REFRESH_TTL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			return Config{}, ErrConfig
		}
		cfg.RefreshTokenTTL = d
	}

	if v := os.Getenv("TASKNEST_AUTH_REFRESH_TOKEN_BYTES"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 32 || n > 128 {
			return Config{}, ErrConfig
		}
		cfg.RefreshTokenBytes = n
	}

	cfg.Secret = os.Getenv("TASKNEST_JWT_SECRET")
	if len(cfg.Secret) < 32 {
		return Config{}, ErrConfig
	}

	// Invariant: access tokens must be shorter-lived than sessions.
	if cfg.AccessTokenTTL >= cfg.RefreshTokenTTL {
		return Config{}, ErrConfig
	}

	return cfg, nil
}
