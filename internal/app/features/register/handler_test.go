package register

import (
	"context"
	"net/http"
	"net/url"
	"testing"

	"github.com/dalemusser/fintrack/internal/app/store"
	"github.com/dalemusser/fintrack/internal/app/system/auth"
	"github.com/dalemusser/fintrack/internal/testutil"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

type testEnv struct {
	stores  store.Stores
	router  http.Handler
	rec     *testutil.Rendered
	browser *testutil.Browser
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	stores := testutil.NewSQLiteStores(t)
	sm := testutil.NewSessionManager(t)
	h := NewHandler(stores.Users, stores.Sessions, sm, zap.NewNop())
	h.HashCost = bcrypt.MinCost
	rec := &testutil.Rendered{}
	h.Render = rec.Render

	r := chi.NewRouter()
	r.Use(sm.LoadSessionUser)
	r.Mount("/register", Routes(h))
	return &testEnv{stores: stores, router: r, rec: rec, browser: testutil.NewBrowser(t, sm)}
}

func form(name, email, pw, confirm string) url.Values {
	return url.Values{
		"full_name": {name},
		"email":     {email},
		"password":  {pw},
		"confirm":   {confirm},
	}
}

func TestRegister_SuccessSignsIn(t *testing.T) {
	env := newTestEnv(t)
	rec := env.browser.PostFormCSRF(env.router, "/register/", form("  Dana   Lee ", "Dana@Example.com", "longenough", "longenough"))
	testutil.AssertRedirect(t, rec, "/dashboard")

	u, err := env.stores.Users.GetByEmail(context.Background(), "dana@example.com")
	if err != nil {
		t.Fatalf("user not stored: %v", err)
	}
	if u.FullName != "Dana Lee" {
		t.Errorf("FullName = %q", u.FullName)
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte("longenough")) != nil {
		t.Error("stored hash does not match the password")
	}

	var uid string
	env.browser.Session(func(sc *auth.SessionContext) {
		if id, ok := sc.UserID(); ok {
			uid = id.Hex()
		}
	})
	if uid != u.ID.Hex() {
		t.Errorf("session user = %q, want %q", uid, u.ID.Hex())
	}
}

func TestRegister_Validation(t *testing.T) {
	tests := []struct {
		name string
		in   url.Values
		want string
	}{
		{"missing name", form("", "a@example.com", "longenough", "longenough"), "Please fill out all fields."},
		{"missing confirm", form("Ann", "a@example.com", "longenough", ""), "Please fill out all fields."},
		{"bad email", form("Ann", "not-an-email", "longenough", "longenough"), "Please enter a valid email."},
		{"short password", form("Ann", "a@example.com", "short", "short"), "Password must be at least 8 characters."},
		{"mismatch", form("Ann", "a@example.com", "longenough", "longenougH"), "Passwords do not match."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			rec := env.browser.PostFormCSRF(env.router, "/register/", tt.in)
			if rec.Code != http.StatusOK {
				t.Fatalf("status = %d, want 200", rec.Code)
			}
			if env.rec.Name != "register" {
				t.Fatalf("rendered %q", env.rec.Name)
			}
			if got := env.rec.Data.(formData).Error; got != tt.want {
				t.Errorf("error = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestRegister_DuplicateEmail(t *testing.T) {
	env := newTestEnv(t)
	testutil.NewSeed(t, env.stores).User(context.Background(), "Ann", "ann@example.com")

	env.browser.PostFormCSRF(env.router, "/register/", form("Other Ann", "ANN@example.com", "longenough", "longenough"))
	if got := env.rec.Data.(formData).Error; got != "That email is already registered." {
		t.Errorf("error = %q", got)
	}
}

func TestRegister_RequiresCSRF(t *testing.T) {
	env := newTestEnv(t)
	rec := env.browser.PostForm(env.router, "/register/", form("Ann", "a@example.com", "longenough", "longenough"))
	if rec.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", rec.Code)
	}
	if _, err := env.stores.Users.GetByEmail(context.Background(), "a@example.com"); err == nil {
		t.Error("user created without a CSRF token")
	}
}
