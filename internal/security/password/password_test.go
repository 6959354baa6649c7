package password

import (
	"strings"
	"testing"
)

func TestHashAndVerify_RoundTrip(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	cfg.Cost = 4 // MinCost keeps the test fast; the contract is cost-independent.

	for _, pw := range []string{"correct horse", "p@ssw0rd!", "12345678"} {
		hash, err := cfg.Hash(pw)
		if err != nil {
			t.Fatalf("Hash(%q): %v", pw, err)
		}
		if hash == pw {
			t.Fatalf("hash equals plaintext")
		}
		if !strings.HasPrefix(hash, "$2") {
			t.Fatalf("unexpected hash format: %q", hash)
		}

		ok, err := cfg.Verify(hash, pw)
		if err != nil {
			t.Fatalf("Verify: %v", err)
		}
		if !ok {
			t.Fatalf("Verify(%q) = false, want true", pw)
		}
	}
}

func TestVerify_Mismatch(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	cfg.Cost = 4

	hash, err := cfg.Hash("one password")
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}

	ok, err := cfg.Verify(hash, "another password")
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if ok {
		t.Fatalf("mismatched password verified")
	}
}

func TestHash_Salted(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	cfg.Cost = 4

	a, err := cfg.Hash("same password")
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	b, err := cfg.Hash("same password")
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	if a == b {
		t.Fatalf("two hashes of the same password are identical; salt missing")
	}
}

func TestValidate_PolicyBounds(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()

	if err := cfg.Validate("short"); err != ErrPasswordTooShort {
		t.Fatalf("expected ErrPasswordTooShort, got %v", err)
	}
	if err := cfg.Validate(strings.Repeat("x", 73)); err != ErrPasswordTooLong {
		t.Fatalf("expected ErrPasswordTooLong, got %v", err)
	}
	if err := cfg.Validate("12345678"); err != nil {
		t.Fatalf("expected 8-char password to pass, got %v", err)
	}
}

func TestFromEnv(t *testing.T) {
	t.Setenv("TASKNEST_BCRYPT_COST", "12")
	t.Setenv("TASKNEST_PASSWORD_MIN_LEN", "10")

	cfg, err := FromEnv()
	if err != nil {
		t.Fatalf("FromEnv: %v", err)
	}
	if cfg.Cost != 12 {
		t.Fatalf("cost mismatch: %d", cfg.Cost)
	}
	if cfg.Policy.MinLength != 10 {
		t.Fatalf("min length mismatch: %d", cfg.Policy.MinLength)
	}
}

func TestFromEnv_Invalid(t *testing.T) {
	t.Setenv("TASKNEST_BCRYPT_COST", "99")
	if _, err := FromEnv(); err == nil {
		t.Fatalf("expected error for out-of-range cost")
	}
}

func TestFromEnv_MinExceedsMax(t *testing.T) {
	t.Setenv("TASKNEST_PASSWORD_MIN_LEN", "40")
	t.Setenv("TASKNEST_PASSWORD_MAX_LEN", "20")
	if _, err := FromEnv(); err == nil {
		t.Fatalf("expected error when min exceeds max")
	}
}
