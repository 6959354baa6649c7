package app

import (
	"testing"
	"time"
)

func TestEnvHelpers(t *testing.T) {
	t.Setenv("TEST_STR", "  hello ")
	t.Setenv("TEST_BOOL", "true")
	t.Setenv("TEST_INT", "42")
	t.Setenv("TEST_INT_BAD", "-3")
	t.Setenv("TEST_DUR", "250ms")
	t.Setenv("TEST_LIST", "a, b ,,c")

	if got := EnvString("TEST_STR", "def"); got != "hello" {
		t.Fatalf("EnvString = %q", got)
	}
	if got := EnvString("TEST_MISSING", "def"); got != "def" {
		t.Fatalf("EnvString default = %q", got)
	}
	if !EnvBool("TEST_BOOL", false) {
		t.Fatalf("EnvBool = false")
	}
	if got := EnvInt("TEST_INT", 1); got != 42 {
		t.Fatalf("EnvInt = %d", got)
	}
	if got := EnvInt("TEST_INT_BAD", 7); got != 7 {
		t.Fatalf("EnvInt rejects non-positive, got %d", got)
	}
	if got := EnvDuration("TEST_DUR", time.Second); got != 250*time.Millisecond {
		t.Fatalf("EnvDuration = %v", got)
	}
	if got := EnvStrings("TEST_LIST", nil); len(got) != 3 || got[0] != "a" || got[1] != "b" || got[2] != "c" {
		t.Fatalf("EnvStrings = %v", got)
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	cfg := LoadConfig()

	if cfg.HTTPAddr != "0.0.0.0:8080" {
		t.Fatalf("HTTPAddr = %q", cfg.HTTPAddr)
	}
	if cfg.ReadHeaderTimeout != 5*time.Second {
		t.Fatalf("ReadHeaderTimeout = %v", cfg.ReadHeaderTimeout)
	}
	if cfg.DBMaxConns != 10 {
		t.Fatalf("DBMaxConns = %d", cfg.DBMaxConns)
	}
	if len(cfg.CORSAllowedOrigins) == 0 {
		t.Fatalf("CORSAllowedOrigins empty")
	}
}
