package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"tasknest/internal/identity"
	"tasknest/internal/security/password"
)

func testService(t *testing.T) (*Service, *identity.MemoryStore) {
	t.Helper()

	cfg := DefaultConfig()
	cfg.Secret = testSecret

	mgr, err := NewJWTManager(cfg)
	if err != nil {
		t.Fatalf("NewJWTManager: %v", err)
	}

	pw := password.DefaultConfig()
	pw.Cost = 4 // keep tests fast

	store := identity.NewMemoryStore()
	return NewService(cfg, store, mgr, pw), store
}

func TestSignup_RoundTrip(t *testing.T) {
	t.Parallel()

	svc, _ := testService(t)
	ctx := context.Background()
	now := time.Now().UTC()

	issued, err := svc.Signup(ctx, now, "jo@example.com", "supersecret")
	if err != nil {
		t.Fatalf("Signup: %v", err)
	}

	if issued.User.Email != "jo@example.com" {
		t.Fatalf("email mismatch: %q", issued.User.Email)
	}
	if issued.User.PasswordHash == "supersecret" || issued.User.PasswordHash == "" {
		t.Fatalf("password not hashed")
	}
	if len(issued.User.Sessions) != 1 {
		t.Fatalf("expected one session after signup, got %d", len(issued.User.Sessions))
	}
	if len(issued.RefreshToken) != 128 {
		t.Fatalf("refresh token length: %d", len(issued.RefreshToken))
	}

	// VerifyAccessToken(Signup's token) yields the created user's id.
	uid, err := svc.VerifyAccessToken(issued.AccessToken, now)
	if err != nil {
		t.Fatalf("VerifyAccessToken: %v", err)
	}
	if uid != issued.User.ID {
		t.Fatalf("subject mismatch: %q vs %q", uid, issued.User.ID)
	}
}

func TestSignup_Validation(t *testing.T) {
	t.Parallel()

	svc, _ := testService(t)
	ctx := context.Background()
	now := time.Now().UTC()

	cases := []struct {
		name     string
		email    string
		password string
	}{
		{name: "missing email", email: "", password: "supersecret"},
		{name: "not an email", email: "nope", password: "supersecret"},
		{name: "password too short", email: "ok@example.com", password: "seven77"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Signup(ctx, now, tc.email, tc.password)
			if !identity.IsInvalidInput(err) {
				t.Fatalf("expected invalid input, got %v", err)
			}
		})
	}
}

func TestSignup_DuplicateEmail(t *testing.T) {
	t.Parallel()

	svc, _ := testService(t)
	ctx := context.Background()
	now := time.Now().UTC()

	if _, err := svc.Signup(ctx, now, "dup@example.com", "supersecret"); err != nil {
		t.Fatalf("Signup: %v", err)
	}
	_, err := svc.Signup(ctx, now, "dup@example.com", "othersecret")
	if !identity.IsDuplicateEmail(err) {
		t.Fatalf("expected duplicate email error, got %v", err)
	}
}

func TestLogin_EnumerationSafe(t *testing.T) {
	t.Parallel()

	svc, _ := testService(t)
	ctx := context.Background()
	now := time.Now().UTC()

	if _, err := svc.Signup(ctx, now, "real@example.com", "supersecret"); err != nil {
		t.Fatalf("Signup: %v", err)
	}

	// Correct password succeeds.
	if _, err := svc.Login(ctx, now, "real@example.com", "supersecret"); err != nil {
		t.Fatalf("Login with correct password: %v", err)
	}

	// Wrong password and unknown email fail with the SAME error value.
	_, wrongPw := svc.Login(ctx, now, "real@example.com", "wrongsecret")
	_, noUser := svc.Login(ctx, now, "ghost@example.com", "supersecret")

	if !errors.Is(wrongPw, ErrInvalidCredentials) || !errors.Is(noUser, ErrInvalidCredentials) {
		t.Fatalf("login failures leak cause: wrongPw=%v noUser=%v", wrongPw, noUser)
	}
	if wrongPw.Error() != noUser.Error() {
		t.Fatalf("login failure messages differ: %q vs %q", wrongPw, noUser)
	}
}

func TestLogin_AppendsNewSession(t *testing.T) {
	t.Parallel()

	svc, store := testService(t)
	ctx := context.Background()
	now := time.Now().UTC()

	first, err := svc.Signup(ctx, now, "multi@example.com", "supersecret")
	if err != nil {
		t.Fatalf("Signup: %v", err)
	}
	second, err := svc.Login(ctx, now, "multi@example.com", "supersecret")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}

	if first.RefreshToken == second.RefreshToken {
		t.Fatalf("login reused the signup refresh token")
	}

	u, err := store.GetUserByID(ctx, first.User.ID)
	if err != nil {
		t.Fatalf("GetUserByID: %v", err)
	}
	if len(u.Sessions) != 2 {
		t.Fatalf("expected 2 sessions, got %d", len(u.Sessions))
	}

	// Both sessions are independently renewable.
	for _, tok := range []string{first.RefreshToken, second.RefreshToken} {
		if _, _, err := svc.RenewAccessToken(ctx, now, first.User.ID, tok); err != nil {
			t.Fatalf("RenewAccessToken(%q...): %v", tok[:8], err)
		}
	}
}

func TestLogin_Concurrent(t *testing.T) {
	t.Parallel()

	svc, store := testService(t)
	ctx := context.Background()
	now := time.Now().UTC()

	seed, err := svc.Signup(ctx, now, "race@example.com", "supersecret")
	if err != nil {
		t.Fatalf("Signup: %v", err)
	}

	const n = 8
	tokens := make([]string, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			issued, err := svc.Login(ctx, now, "race@example.com", "supersecret")
			if err != nil {
				t.Errorf("Login: %v", err)
				return
			}
			tokens[i] = issued.RefreshToken
		}(i)
	}
	wg.Wait()

	seen := map[string]struct{}{seed.RefreshToken: {}}
	for _, tok := range tokens {
		if _, dup := seen[tok]; dup {
			t.Fatalf("duplicate refresh token across concurrent logins")
		}
		seen[tok] = struct{}{}
		if _, _, err := svc.RenewAccessToken(ctx, now, seed.User.ID, tok); err != nil {
			t.Fatalf("RenewAccessToken: %v", err)
		}
	}

	u, err := store.GetUserByID(ctx, seed.User.ID)
	if err != nil {
		t.Fatalf("GetUserByID: %v", err)
	}
	if len(u.Sessions) != n+1 {
		t.Fatalf("lost session appends: got %d, want %d", len(u.Sessions), n+1)
	}
}

func TestRenewAccessToken_WindowBoundary(t *testing.T) {
	t.Parallel()

	svc, _ := testService(t)
	ctx := context.Background()
	created := time.Now().UTC()

	issued, err := svc.Signup(ctx, created, "window@example.com", "supersecret")
	if err != nil {
		t.Fatalf("Signup: %v", err)
	}

	// Inside the 7-day window.
	at6d := created.Add(6 * 24 * time.Hour)
	tok, exp, err := svc.RenewAccessToken(ctx, at6d, issued.User.ID, issued.RefreshToken)
	if err != nil {
		t.Fatalf("renew at +6d: %v", err)
	}
	// The new access token's TTL restarts from call time.
	if want := at6d.Add(60 * time.Second); !exp.Equal(want) {
		t.Fatalf("renewed token exp=%v want=%v", exp, want)
	}
	if uid, err := svc.VerifyAccessToken(tok, at6d); err != nil || uid != issued.User.ID {
		t.Fatalf("renewed token invalid: uid=%q err=%v", uid, err)
	}

	// Past the 7-day window.
	at8d := created.Add(8 * 24 * time.Hour)
	if _, _, err := svc.RenewAccessToken(ctx, at8d, issued.User.ID, issued.RefreshToken); !errors.Is(err, ErrSessionInvalid) {
		t.Fatalf("expected ErrSessionInvalid at +8d, got %v", err)
	}
}

func TestRenewAccessToken_DoesNotTouchSession(t *testing.T) {
	t.Parallel()

	svc, store := testService(t)
	ctx := context.Background()
	now := time.Now().UTC()

	issued, err := svc.Signup(ctx, now, "fixed@example.com", "supersecret")
	if err != nil {
		t.Fatalf("Signup: %v", err)
	}

	before, _ := store.GetUserByID(ctx, issued.User.ID)
	if _, _, err := svc.RenewAccessToken(ctx, now.Add(time.Hour), issued.User.ID, issued.RefreshToken); err != nil {
		t.Fatalf("RenewAccessToken: %v", err)
	}
	after, _ := store.GetUserByID(ctx, issued.User.ID)

	if len(before.Sessions) != len(after.Sessions) {
		t.Fatalf("renewal changed the session count")
	}
	if before.Sessions[0] != after.Sessions[0] {
		t.Fatalf("renewal mutated the session: %+v vs %+v", before.Sessions[0], after.Sessions[0])
	}
}

func TestVerifyRefreshSession_Indistinguishable(t *testing.T) {
	t.Parallel()

	svc, _ := testService(t)
	ctx := context.Background()
	now := time.Now().UTC()

	issued, err := svc.Signup(ctx, now, "gate@example.com", "supersecret")
	if err != nil {
		t.Fatalf("Signup: %v", err)
	}

	cases := []struct {
		name   string
		userID string
		token  string
		at     time.Time
	}{
		{name: "unknown token", userID: issued.User.ID, token: "deadbeef", at: now},
		{name: "wrong user", userID: "01HXXXXXXXXXXXXXXXXXXXXXXX", token: issued.RefreshToken, at: now},
		{name: "expired", userID: issued.User.ID, token: issued.RefreshToken, at: now.Add(8 * 24 * time.Hour)},
		{name: "empty", userID: "", token: "", at: now},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.VerifyRefreshSession(ctx, tc.at, tc.userID, tc.token)
			if !errors.Is(err, ErrSessionInvalid) {
				t.Fatalf("expected ErrSessionInvalid, got %v", err)
			}
		})
	}

	if _, err := svc.VerifyRefreshSession(ctx, now, issued.User.ID, issued.RefreshToken); err != nil {
		t.Fatalf("valid session rejected: %v", err)
	}
}
