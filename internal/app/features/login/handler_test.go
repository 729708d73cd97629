package login

import (
	"context"
	"net/http"
	"net/url"
	"testing"
	"time"

	"github.com/dalemusser/fintrack/internal/app/system/auth"
	"github.com/dalemusser/fintrack/internal/app/system/ratelimit"
	"github.com/dalemusser/fintrack/internal/domain/models"
	"github.com/dalemusser/fintrack/internal/testutil"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type testEnv struct {
	router  http.Handler
	rec     *testutil.Rendered
	browser *testutil.Browser
	user    models.User
}

func newTestEnv(t *testing.T, limiter *ratelimit.AttemptLimiter) *testEnv {
	t.Helper()
	stores := testutil.NewSQLiteStores(t)
	sm := testutil.NewSessionManager(t)
	h := NewHandler(stores.Users, stores.Sessions, sm, limiter, zap.NewNop())
	rec := &testutil.Rendered{}
	h.Render = rec.Render

	r := chi.NewRouter()
	r.Use(sm.LoadSessionUser)
	r.Mount("/login", Routes(h))

	u := testutil.NewSeed(t, stores).User(context.Background(), "Alice Smith", "alice@example.com")
	return &testEnv{router: r, rec: rec, browser: testutil.NewBrowser(t, sm), user: u}
}

func (env *testEnv) signedIn(t *testing.T) bool {
	t.Helper()
	var ok bool
	env.browser.Session(func(sc *auth.SessionContext) { _, ok = sc.UserID() })
	return ok
}

func (env *testEnv) formError(t *testing.T) string {
	t.Helper()
	if env.rec.Name != "login" {
		t.Fatalf("rendered %q, want login", env.rec.Name)
	}
	return env.rec.Data.(formData).Error
}

func TestLogin_Success(t *testing.T) {
	env := newTestEnv(t, nil)
	env.browser.Get(env.router, "/login/")

	rec := env.browser.PostFormCSRF(env.router, "/login/", url.Values{
		"email":    {"  Alice@Example.com "},
		"password": {testutil.TestPassword},
	})
	testutil.AssertRedirect(t, rec, "/dashboard")
	if !env.signedIn(t) {
		t.Error("not signed in after a successful login")
	}
}

func TestLogin_ReturnURL(t *testing.T) {
	tests := []struct {
		ret  string
		want string
	}{
		{"/budgets", "/budgets"},
		{"https://evil.example/", "/dashboard"},
		{"//evil.example/", "/dashboard"},
		{"/logout", "/dashboard"},
	}
	for _, tt := range tests {
		t.Run(tt.ret, func(t *testing.T) {
			env := newTestEnv(t, nil)
			rec := env.browser.PostFormCSRF(env.router, "/login/", url.Values{
				"email":    {"alice@example.com"},
				"password": {testutil.TestPassword},
				"return":   {tt.ret},
			})
			testutil.AssertRedirect(t, rec, tt.want)
		})
	}
}

func TestLogin_InvalidCredentials(t *testing.T) {
	tests := []struct {
		name     string
		email    string
		password string
	}{
		{"wrong password", "alice@example.com", "nope-nope"},
		{"unknown email", "nobody@example.com", testutil.TestPassword},
		{"blank", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t, nil)
			rec := env.browser.PostFormCSRF(env.router, "/login/", url.Values{
				"email":    {tt.email},
				"password": {tt.password},
			})
			if rec.Code != http.StatusOK {
				t.Errorf("status = %d, want 200", rec.Code)
			}
			if got := env.formError(t); got != "Invalid login." {
				t.Errorf("error = %q", got)
			}
			if env.signedIn(t) {
				t.Error("signed in with bad credentials")
			}
		})
	}
}

func TestLogin_RequiresCSRF(t *testing.T) {
	env := newTestEnv(t, nil)
	rec := env.browser.PostForm(env.router, "/login/", url.Values{
		"email":    {"alice@example.com"},
		"password": {testutil.TestPassword},
	})
	if rec.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", rec.Code)
	}
	if env.signedIn(t) {
		t.Error("signed in without a CSRF token")
	}
}

func TestLogin_RateLimited(t *testing.T) {
	limiter := ratelimit.NewAttemptLimiter(100, 2, time.Minute, "Too many attempts.")
	t.Cleanup(limiter.Close)
	env := newTestEnv(t, limiter)

	bad := url.Values{"email": {"alice@example.com"}, "password": {"wrong-guess"}}
	for i := 0; i < 2; i++ {
		env.browser.PostFormCSRF(env.router, "/login/", bad)
	}

	good := url.Values{"email": {"alice@example.com"}, "password": {testutil.TestPassword}}
	rec := env.browser.PostFormCSRF(env.router, "/login/", good)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", rec.Code)
	}
	if got := env.formError(t); got != "Too many attempts." {
		t.Errorf("error = %q", got)
	}
}
