package password

import (
	"fmt"
	"os"
	"strconv"

	"golang.org/x/crypto/bcrypt"
)

// Policy controls password validation boundaries.
type Policy struct {
	MinLength int
	MaxLength int
}

// Config is the single configuration surface for this package.
type Config struct {
	// Cost is the bcrypt work factor.
	Cost int

	Policy Policy
}

// DefaultConfig returns the baseline configuration: bcrypt cost 10 and
// a minimum password length of 8.
func DefaultConfig() Config {
	return Config{
		Cost: bcrypt.DefaultCost,
		Policy: Policy{
			MinLength: 8,
			MaxLength: 72, // bcrypt input bound
		},
	}
}

// FromEnv loads config from environment variables.
//
// Env surface:
//   - TASKNEST_BCRYPT_COST
//   - TASKNEST_PASSWORD_MIN_LEN
//   - TASKNEST_PASSWORD_MAX_LEN
func FromEnv() (Config, error) {
	cfg := DefaultConfig()

	if v, ok := os.LookupEnv("TASKNEST_BCRYPT_COST"); ok {
		n, err := atoiBounded(v, bcrypt.MinCost, bcrypt.MaxCost)
		if err != nil {
			return Config{}, fmt.Errorf("TASKNEST_BCRYPT_COST: %w", err)
		}
		cfg.Cost = n
	}

	if v, ok := os.LookupEnv("TASKNEST_PASSWORD_MIN_LEN"); ok {
		n, err := atoiBounded(v, 1, 72)
		if err != nil {
			return Config{}, fmt.Errorf("TASKNEST_PASSWORD_MIN_LEN: %w", err)
		}
		cfg.Policy.MinLength = n
	}

	if v, ok := os.LookupEnv("TASKNEST_PASSWORD_MAX_LEN"); ok {
		n, err := atoiBounded(v, 1, 72)
		if err != nil {
			return Config{}, fmt.Errorf("TASKNEST_PASSWORD_MAX_LEN: %w", err)
		}
		cfg.Policy.MaxLength = n
	}

	if cfg.Policy.MinLength > cfg.Policy.MaxLength {
		return Config{}, fmt.Errorf("%w: min length exceeds max length", ErrConfig)
	}

	return cfg, nil
}

func atoiBounded(v string, lo, hi int) (int, error) {
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%w: not an integer", ErrConfig)
	}
	if n < lo || n > hi {
		return 0, fmt.Errorf("%w: out of range [%d..%d]", ErrConfig, lo, hi)
	}
	return n, nil
}
