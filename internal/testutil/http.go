package testutil

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dalemusser/fintrack/internal/app/system/auth"
	"github.com/dalemusser/fintrack/internal/app/system/csrf"
	"github.com/dalemusser/fintrack/internal/domain/models"
	"go.uber.org/zap"
)

// NewSessionManager returns a cookie session manager suitable for tests.
func NewSessionManager(t *testing.T) *auth.SessionManager {
	t.Helper()
	sm, err := auth.NewSessionManager(
		"test-session-key-must-be-32-chars-long",
		"test-session",
		"",
		24*time.Hour,
		false,
		zap.NewNop(),
	)
	if err != nil {
		t.Fatalf("failed to create session manager: %v", err)
	}
	return sm
}

// Browser keeps the session cookie between requests the way a browser
// would, so handler tests can exercise POST-redirect-GET cycles.
type Browser struct {
	t       *testing.T
	sm      *auth.SessionManager
	cookies map[string]*http.Cookie
}

func NewBrowser(t *testing.T, sm *auth.SessionManager) *Browser {
	t.Helper()
	return &Browser{t: t, sm: sm, cookies: map[string]*http.Cookie{}}
}

// SignIn starts an authenticated session for u without going through the
// login handler.
func (b *Browser) SignIn(u models.User) {
	b.t.Helper()
	b.Session(func(sc *auth.SessionContext) {
		if _, err := sc.BeginAuthenticated(auth.SessionUser{ID: u.ID.Hex(), Name: u.FullName, Email: u.Email}); err != nil {
			b.t.Fatalf("BeginAuthenticated: %v", err)
		}
	})
}

// Session loads the current session, lets fn inspect or modify it, and
// stores the resulting cookie.
func (b *Browser) Session(fn func(sc *auth.SessionContext)) {
	b.t.Helper()
	req := b.attach(httptest.NewRequest(http.MethodGet, "/", nil))
	sc := b.sm.Context(req)
	fn(sc)
	rec := httptest.NewRecorder()
	if err := sc.Save(rec); err != nil {
		b.t.Fatalf("save session: %v", err)
	}
	b.capture(rec)
}

// CSRF returns the session's CSRF token, creating it if needed.
func (b *Browser) CSRF() string {
	b.t.Helper()
	var tok string
	b.Session(func(sc *auth.SessionContext) {
		var err error
		if tok, err = sc.CSRFSecret(); err != nil {
			b.t.Fatalf("CSRFSecret: %v", err)
		}
	})
	return tok
}

// Get issues a GET through h.
func (b *Browser) Get(h http.Handler, target string) *httptest.ResponseRecorder {
	b.t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	req.Header.Set("Accept", "text/html")
	return b.Do(h, req)
}

// PostForm issues a form POST through h. The CSRF token is not added
// automatically.
func (b *Browser) PostForm(h http.Handler, target string, form url.Values) *httptest.ResponseRecorder {
	b.t.Helper()
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "text/html")
	return b.Do(h, req)
}

// PostFormCSRF is PostForm with the session's token added.
func (b *Browser) PostFormCSRF(h http.Handler, target string, form url.Values) *httptest.ResponseRecorder {
	b.t.Helper()
	if form == nil {
		form = url.Values{}
	}
	form.Set(csrf.FieldName, b.CSRF())
	return b.PostForm(h, target, form)
}

// Do sends req with the stored cookies and keeps any cookies set in reply.
func (b *Browser) Do(h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	b.t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, b.attach(req))
	b.capture(rec)
	return rec
}

func (b *Browser) attach(req *http.Request) *http.Request {
	for _, c := range b.cookies {
		req.AddCookie(c)
	}
	return req
}

func (b *Browser) capture(rec *httptest.ResponseRecorder) {
	for _, c := range rec.Result().Cookies() {
		if c.MaxAge < 0 {
			delete(b.cookies, c.Name)
			continue
		}
		b.cookies[c.Name] = c
	}
}

// Rendered captures calls to a handler's render function.
type Rendered struct {
	mu    sync.Mutex
	Name  string
	Data  any
	Count int
}

// Render matches the handlers' render hook signature.
func (r *Rendered) Render(w http.ResponseWriter, req *http.Request, name string, data any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Name = name
	r.Data = data
	r.Count++
	w.WriteHeader(http.StatusOK)
}

// AssertRedirect checks for a 303 to the expected location.
func AssertRedirect(t *testing.T, rec *httptest.ResponseRecorder, want string) {
	t.Helper()
	if rec.Code != http.StatusSeeOther {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusSeeOther)
	}
	if got := rec.Header().Get("Location"); got != want {
		t.Errorf("Location = %q, want %q", got, want)
	}
}
