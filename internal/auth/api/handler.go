package authapi

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"tasknest/internal/auth/session"
	"tasknest/internal/identity"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Handler wires the account and token HTTP endpoints to the session
// service. The pool is optional: without it audit logging and login
// throttling become no-ops, which is how the in-memory dev mode runs.
type Handler struct {
	log *slog.Logger
	cfg Config

	users    identity.Store
	sessions *session.Service
	pool     *pgxpool.Pool
}

// NewHandler constructs an auth Handler.
func NewHandler(log *slog.Logger, cfg Config, users identity.Store, sessions *session.Service, pool *pgxpool.Pool) (*Handler, error) {
	if log == nil {
		log = slog.Default()
	}
	if users == nil {
		return nil, errors.New("authapi: nil user store")
	}
	if sessions == nil {
		return nil, errors.New("authapi: nil session service")
	}

	return &Handler{
		log:      log,
		cfg:      cfg,
		users:    users,
		sessions: sessions,
		pool:     pool,
	}, nil
}

// Register wires auth routes onto the provided mux.
func (h *Handler) Register(mux *http.ServeMux) {
	if h == nil || mux == nil {
		return
	}
	mux.HandleFunc("/users", h.handleSignup)
	mux.HandleFunc("/users/login", h.handleLogin)
	mux.HandleFunc("/users/me", h.handleMe)
	mux.HandleFunc("/users/me/access-token", h.handleAccessToken)
}

// ---- handlers ----

func (h *Handler) handleSignup(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var req credentialsRequest
	if err := decodeJSON(w, r, h.cfg.MaxBodyBytes, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "invalid request body")
		return
	}

	ctx := r.Context()
	now := time.Now().UTC()
	ip := clientIP(r, h.cfg.TrustProxy)
	ua := strings.TrimSpace(r.UserAgent())

	issued, err := h.sessions.Signup(ctx, now, req.Email, req.Password)
	if err != nil {
		switch {
		case identity.IsDuplicateEmail(err):
			writeError(w, http.StatusBadRequest, "email_in_use", "email already in use")
		case identity.IsInvalidInput(err):
			writeError(w, http.StatusBadRequest, "invalid_request", invalidInputMessage(err))
		default:
			h.log.Error("auth.signup.fail", "err", err)
			writeError(w, http.StatusInternalServerError, "server_error", "internal error")
		}
		return
	}

	h.auditSignup(ctx, issued.User.ID, ip, ua)
	h.setCredentialHeaders(w, issued)
	writeJSON(w, http.StatusOK, toUserResponse(issued.User))
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var req credentialsRequest
	if err := decodeJSON(w, r, h.cfg.MaxBodyBytes, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "invalid request body")
		return
	}

	ctx := r.Context()
	now := time.Now().UTC()
	ip := clientIP(r, h.cfg.TrustProxy)
	ua := strings.TrimSpace(r.UserAgent())
	email := identity.NormalizeEmail(req.Email)

	// IP-based throttling before any store lookup.
	if blocked, retryAfter, err := h.checkLoginIPThrottle(ctx, ip, now); err != nil {
		h.log.Error("auth.login.throttle_ip.fail", "err", err)
		writeError(w, http.StatusServiceUnavailable, "server_busy", "please retry later")
		return
	} else if blocked {
		h.auditLoginRateLimited(ctx, ip, ua, email, retryAfter)
		writeRateLimited(w, retryAfter)
		return
	}

	issued, err := h.sessions.Login(ctx, now, email, req.Password)
	if err != nil {
		if errors.Is(err, session.ErrInvalidCredentials) {
			h.auditLoginFailed(ctx, ip, ua, email)
			writeError(w, http.StatusBadRequest, "invalid_credentials", "invalid credentials")
			return
		}
		h.log.Error("auth.login.fail", "err", err)
		writeError(w, http.StatusInternalServerError, "server_error", "internal error")
		return
	}

	h.auditLoginSuccess(ctx, issued.User.ID, ip, ua)
	h.setCredentialHeaders(w, issued)
	writeJSON(w, http.StatusOK, toUserResponse(issued.User))
}

func (h *Handler) handleAccessToken(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	ctx := r.Context()
	now := time.Now().UTC()
	ip := clientIP(r, h.cfg.TrustProxy)
	ua := strings.TrimSpace(r.UserAgent())

	userID := strings.TrimSpace(r.Header.Get(HeaderUserID))
	refreshToken := strings.TrimSpace(r.Header.Get(HeaderRefreshToken))

	accessToken, _, err := h.sessions.RenewAccessToken(ctx, now, userID, refreshToken)
	if err != nil {
		if errors.Is(err, session.ErrSessionInvalid) {
			h.auditRenewFailed(ctx, userID, ip, ua)
			writeError(w, http.StatusUnauthorized, "session_invalid", "session invalid or expired")
			return
		}
		h.log.Error("auth.renew.fail", "err", err)
		writeError(w, http.StatusInternalServerError, "server_error", "internal error")
		return
	}

	h.auditRenewSuccess(ctx, userID, ip, ua)
	w.Header().Set(HeaderAccessToken, accessToken)
	writeJSON(w, http.StatusOK, accessTokenResponse{AccessToken: accessToken})
}

func (h *Handler) handleMe(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	userID, ok := h.requireAccess(w, r)
	if !ok {
		return
	}

	u, err := h.users.GetUserByID(r.Context(), userID)
	if err != nil {
		if identity.IsNotFound(err) {
			writeError(w, http.StatusUnauthorized, "unauthorized", "invalid token")
			return
		}
		h.log.Error("auth.me.fail", "err", err)
		writeError(w, http.StatusInternalServerError, "server_error", "internal error")
		return
	}

	writeJSON(w, http.StatusOK, toUserResponse(u))
}

// ---- access-token gating ----

type contextKey string

const userIDKey contextKey = "tasknest.user_id"

// UserIDFromContext returns the authenticated user id placed there by
// RequireAccessToken.
func UserIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(userIDKey).(string)
	return id, ok && id != ""
}

// ContextWithUserID returns a context carrying an authenticated user
// id, as RequireAccessToken would set it.
func ContextWithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

// RequireAccessToken verifies the x-access-token header and stores the
// subject's user id on the request context before calling next.
func (h *Handler) RequireAccessToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, ok := h.requireAccess(w, r)
		if !ok {
			return
		}
		ctx := context.WithValue(r.Context(), userIDKey, userID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (h *Handler) requireAccess(w http.ResponseWriter, r *http.Request) (string, bool) {
	token := strings.TrimSpace(r.Header.Get(HeaderAccessToken))
	if token == "" {
		writeError(w, http.StatusUnauthorized, "unauthorized", "missing access token")
		return "", false
	}
	userID, err := h.sessions.VerifyAccessToken(token, time.Now().UTC())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized", "invalid token")
		return "", false
	}
	return userID, true
}

// ---- helpers ----

func (h *Handler) setCredentialHeaders(w http.ResponseWriter, issued session.Issued) {
	w.Header().Set(HeaderAccessToken, issued.AccessToken)
	w.Header().Set(HeaderRefreshToken, issued.RefreshToken)
}

func invalidInputMessage(err error) string {
	var opErr identity.OpError
	if errors.As(err, &opErr) && opErr.Msg != "" {
		return opErr.Msg
	}
	return "invalid input"
}

func clientIP(r *http.Request, trustProxy bool) net.IP {
	if trustProxy {
		if ip := parseForwardedIP(r.Header.Get("X-Forwarded-For")); ip != nil {
			return ip
		}
		if ip := net.ParseIP(strings.TrimSpace(r.Header.Get("X-Real-IP"))); ip != nil {
			return ip
		}
	}
	host, _, err := net.SplitHostPort(strings.TrimSpace(r.RemoteAddr))
	if err == nil {
		if ip := net.ParseIP(host); ip != nil {
			return ip
		}
	}
	return nil
}

func parseForwardedIP(raw string) net.IP {
	if raw == "" {
		return nil
	}
	for _, p := range strings.Split(raw, ",") {
		if ip := net.ParseIP(strings.TrimSpace(p)); ip != nil {
			return ip
		}
	}
	return nil
}
