package home

import (
	"context"
	"net/http"
	"testing"

	"github.com/dalemusser/fintrack/internal/testutil"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

func newRouter(t *testing.T) (http.Handler, *testutil.Rendered, *testutil.Browser, *testutil.Seed) {
	t.Helper()
	stores := testutil.NewSQLiteStores(t)
	sm := testutil.NewSessionManager(t)
	h := NewHandler(sm, zap.NewNop())
	rec := &testutil.Rendered{}
	h.Render = rec.Render

	r := chi.NewRouter()
	r.Use(sm.LoadSessionUser)
	r.Mount("/", Routes(h))
	return r, rec, testutil.NewBrowser(t, sm), testutil.NewSeed(t, stores)
}

func TestServeRoot_AnonymousSeesLanding(t *testing.T) {
	router, rendered, browser, _ := newRouter(t)

	rec := browser.Get(router, "/")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if rendered.Name != "home" {
		t.Errorf("rendered %q, want home", rendered.Name)
	}
}

func TestServeRoot_SignedInGoesToDashboard(t *testing.T) {
	router, rendered, browser, seed := newRouter(t)
	u := seed.User(context.Background(), "Alice", "a@example.com")
	browser.SignIn(u)

	rec := browser.Get(router, "/")
	testutil.AssertRedirect(t, rec, "/dashboard")
	if rendered.Name != "" {
		t.Errorf("rendered %q for a signed-in user", rendered.Name)
	}
}
