// internal/app/features/logout/handler.go
package logout

import (
	"context"
	"net/http"

	uierrors "github.com/dalemusser/fintrack/internal/app/features/errors"
	"github.com/dalemusser/fintrack/internal/app/store"
	"github.com/dalemusser/fintrack/internal/app/system/auth"
	"github.com/dalemusser/fintrack/internal/app/system/csrf"
	"github.com/dalemusser/fintrack/internal/app/system/timeouts"
	"github.com/dalemusser/fintrack/internal/domain/models"
	"go.uber.org/zap"
)

type Handler struct {
	Log      *zap.Logger
	Sessions *auth.SessionManager
	Logins   store.SessionStore
}

func NewHandler(sm *auth.SessionManager, logins store.SessionStore, logger *zap.Logger) *Handler {
	return &Handler{
		Log:      logger,
		Sessions: sm,
		Logins:   logins,
	}
}

// HandleLogout handles POST /logout.
func (h *Handler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	sc := h.Sessions.Context(r)

	secret, _ := sc.CSRFSecret()
	if err := csrf.Validate(secret, csrf.TokenFromRequest(r)); err != nil {
		h.Log.Debug("logout: csrf rejected", zap.Error(err))
		uierrors.CSRFFailed(w)
		return
	}

	if sid := sc.SessionID(); sid != "" && h.Logins != nil {
		ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
		if err := h.Logins.Close(ctx, sid, models.EndReasonLogout); err != nil {
			h.Log.Warn("logout: close login session", zap.String("sid", sid), zap.Error(err))
		}
		cancel()
	}

	if err := sc.Destroy(w); err != nil {
		h.Log.Error("logout: destroy session", zap.Error(err))
	}

	// HTMX handling: use HX-Redirect to force a client-side navigation to "/".
	if r.Header.Get("HX-Request") != "" {
		w.Header().Set("HX-Redirect", "/")
		w.WriteHeader(http.StatusOK)
		return
	}

	http.Redirect(w, r, "/", http.StatusSeeOther)
}
