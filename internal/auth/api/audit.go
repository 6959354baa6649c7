package authapi

import (
	"context"
	"encoding/json"
	"net"
	"strings"
	"time"
)

func (h *Handler) auditSignup(ctx context.Context, userID string, ip net.IP, ua string) {
	h.insertAudit(ctx, "auth.signup", &userID, ip, ua, nil)
}

func (h *Handler) auditLoginSuccess(ctx context.Context, userID string, ip net.IP, ua string) {
	h.insertAudit(ctx, "auth.login.success", &userID, ip, ua, nil)
}

func (h *Handler) auditLoginFailed(ctx context.Context, ip net.IP, ua string, identifier string) {
	h.insertAudit(ctx, "auth.login.failed", nil, ip, ua, map[string]any{
		"identifier": identifier,
	})
}

func (h *Handler) auditLoginRateLimited(ctx context.Context, ip net.IP, ua string, identifier string, retryAfter time.Duration) {
	h.insertAudit(ctx, "auth.login.rate_limited", nil, ip, ua, map[string]any{
		"identifier":    identifier,
		"retry_after_s": int64(retryAfter.Seconds()),
	})
}

func (h *Handler) auditRenewSuccess(ctx context.Context, userID string, ip net.IP, ua string) {
	h.insertAudit(ctx, "auth.renew.success", &userID, ip, ua, nil)
}

func (h *Handler) auditRenewFailed(ctx context.Context, userID string, ip net.IP, ua string) {
	var uid *string
	if strings.TrimSpace(userID) != "" {
		uid = &userID
	}
	h.insertAudit(ctx, "auth.renew.failed", uid, ip, ua, nil)
}

func (h *Handler) insertAudit(ctx context.Context, action string, userID *string, ip net.IP, ua string, meta map[string]any) {
	if h == nil || h.pool == nil {
		return
	}

	action = strings.TrimSpace(action)
	if action == "" {
		return
	}

	var ipVal any
	if ip != nil {
		ipVal = ip.String()
	}

	var metaVal *string
	if len(meta) > 0 {
		if b, err := json.Marshal(meta); err == nil {
			s := string(b)
			metaVal = &s
		}
	}

	_, err := h.pool.Exec(ctx, `
		INSERT INTO audit_log (
			user_id, action, created_at, ip, user_agent, meta
		) VALUES ($1, $2, now(), $3, $4, $5::jsonb)
	`, userID, action, ipVal, trimOrNil(ua), metaVal)
	if err != nil {
		h.log.Error("auth.audit.insert.fail", "err", err, "action", action)
	}
}

func trimOrNil(s string) any {
	v := strings.TrimSpace(s)
	if v == "" {
		return nil
	}
	return v
}
