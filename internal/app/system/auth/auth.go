package auth

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dalemusser/fintrack/internal/app/system/timeouts"
	"github.com/gorilla/sessions"
	"go.uber.org/zap"
)

// Session value keys.
const (
	userIDKey      = "user_id"
	userNameKey    = "user_name"
	userEmailKey   = "user_email"
	csrfSecretKey  = "csrf_secret"
	activeGroupKey = "active_group_id"
	sidKey         = "sid"
)

// SessionUser is what LoadSessionUser injects into r.Context().
type SessionUser struct {
	ID    string
	Name  string
	Email string
}

// UserFetcher re-reads the signed-in user on each request so renamed or
// deleted accounts take effect immediately. A nil return signs the user out.
type UserFetcher interface {
	FetchUser(ctx context.Context, userID string) *SessionUser
}

// ActivityTracker records that a login session is still in use.
type ActivityTracker interface {
	Touch(ctx context.Context, sessionID string, at time.Time) error
}

// SessionManager owns the cookie store and the auth middleware.
type SessionManager struct {
	store    *sessions.CookieStore
	name     string
	log      *zap.Logger
	fetcher  UserFetcher
	activity ActivityTracker
}

// NewSessionManager builds a cookie-backed session store. In production
// (secure=true) cookies are Secure; over plain http in dev use secure=false.
func NewSessionManager(sessionKey, name, domain string, maxAge time.Duration, secure bool, logger *zap.Logger) (*SessionManager, error) {
	if sessionKey == "" {
		return nil, fmt.Errorf("session key is empty; provide ≥32 random chars")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if len(sessionKey) < 32 {
		logger.Warn("session key is short; 32+ chars recommended",
			zap.Int("length", len(sessionKey)))
	}
	if name == "" {
		name = "fintrack-session"
	}

	store := sessions.NewCookieStore([]byte(sessionKey))
	store.Options = &sessions.Options{
		Domain:   domain,
		Path:     "/",
		MaxAge:   int(maxAge.Seconds()),
		Secure:   secure,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}

	logger.Info("session store initialized",
		zap.String("name", name),
		zap.Bool("secure", secure),
		zap.String("domain", domain),
		zap.Duration("max_age", maxAge))

	return &SessionManager{store: store, name: name, log: logger}, nil
}

// SetUserFetcher installs the per-request user lookup.
func (m *SessionManager) SetUserFetcher(f UserFetcher) {
	m.fetcher = f
}

// SetActivityTracker installs the login-session activity recorder.
func (m *SessionManager) SetActivityTracker(a ActivityTracker) {
	m.activity = a
}

/*─────────────────────────────────────────────────────────────────────────────*
| Current-User helper                                                        |
*─────────────────────────────────────────────────────────────────────────────*/

type ctxKey string

const currentUserKey ctxKey = "currentUser"

// CurrentUser returns the user & "found?" flag.
func CurrentUser(r *http.Request) (*SessionUser, bool) {
	u, ok := r.Context().Value(currentUserKey).(*SessionUser)
	return u, ok
}

// WithTestUser injects a user into the request context, bypassing cookies.
func WithTestUser(r *http.Request, u *SessionUser) *http.Request {
	return withUser(r, u)
}

// LoadSessionUser injects the user into context if they are logged in.
func (m *SessionManager) LoadSessionUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sc := m.Context(r)
		id := sc.getString(userIDKey)
		if id == "" {
			next.ServeHTTP(w, r)
			return
		}

		u := &SessionUser{
			ID:    id,
			Name:  sc.getString(userNameKey),
			Email: sc.getString(userEmailKey),
		}

		if m.fetcher != nil {
			fresh := m.fetcher.FetchUser(r.Context(), id)
			if fresh == nil {
				m.log.Info("session user no longer exists; treating as signed out",
					zap.String("user_id", id))
				next.ServeHTTP(w, r)
				return
			}
			u = fresh
		}

		if m.activity != nil {
			if sid := sc.getString(sidKey); sid != "" {
				ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
				if err := m.activity.Touch(ctx, sid, time.Now()); err != nil {
					m.log.Warn("touch login session", zap.String("sid", sid), zap.Error(err))
				}
				cancel()
			}
		}

		next.ServeHTTP(w, withUser(r, u))
	})
}

// RequireSignedIn ensures there is a user in context (set by LoadSessionUser).
// If not signed in:
//   - HTMX: sends HX-Redirect to /login?return=...
//   - HTML: 303 redirect to /login?return=...
//   - API:  401 Unauthorized with a plain error body.
func (m *SessionManager) RequireSignedIn(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := CurrentUser(r); ok {
			next.ServeHTTP(w, r)
			return
		}

		ret := url.QueryEscape(r.URL.RequestURI())

		if r.Header.Get("HX-Request") == "true" {
			w.Header().Set("HX-Redirect", "/login?return="+ret)
			w.WriteHeader(http.StatusUnauthorized)
			return
		}

		if wantsHTML(r) {
			http.Redirect(w, r, "/login?return="+ret, http.StatusSeeOther)
			return
		}

		http.Error(w, "unauthorized", http.StatusUnauthorized)
	})
}

func withUser(r *http.Request, u *SessionUser) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), currentUserKey, u))
}

func wantsHTML(r *http.Request) bool {
	if r.Header.Get("HX-Request") == "true" {
		return true
	}
	return strings.Contains(r.Header.Get("Accept"), "text/html")
}
