// Package authutil holds the sign-in steps shared by login and registration.
package authutil

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/dalemusser/fintrack/internal/app/store"
	"github.com/dalemusser/fintrack/internal/app/system/auth"
	"github.com/dalemusser/fintrack/internal/app/system/ratelimit"
	"github.com/dalemusser/fintrack/internal/app/system/timeouts"
	"github.com/dalemusser/fintrack/internal/domain/models"
	"go.uber.org/zap"
)

// MinPasswordLen is the shortest password registration accepts.
const MinPasswordLen = 8

// maxUserAgent bounds the user agent stored on a login session.
const maxUserAgent = 512

// SignIn starts an authenticated session for u and records it in logins.
// A failure to record the login session is logged and does not stop the
// sign in; a failure to mint session secrets does.
func SignIn(r *http.Request, sc *auth.SessionContext, logins store.SessionStore, u models.User, log *zap.Logger) error {
	sid, err := sc.BeginAuthenticated(auth.SessionUser{
		ID:    u.ID.Hex(),
		Name:  u.FullName,
		Email: u.Email,
	})
	if err != nil {
		return fmt.Errorf("begin session: %w", err)
	}
	if logins == nil {
		return nil
	}

	ua := r.UserAgent()
	if len(ua) > maxUserAgent {
		ua = ua[:maxUserAgent]
	}
	now := time.Now().UTC()

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()
	if _, err := logins.Create(ctx, models.LoginSession{
		SessionID:    sid,
		UserID:       u.ID,
		LoginAt:      now,
		LastActiveAt: now,
		IP:           ratelimit.ClientIP(r),
		UserAgent:    ua,
	}); err != nil {
		log.Warn("record login session", zap.String("user_id", u.ID.Hex()), zap.Error(err))
	}
	return nil
}
