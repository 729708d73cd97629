package budgets

import (
	"context"
	"net/http"
	"net/url"
	"testing"

	"github.com/dalemusser/fintrack/internal/app/store"
	"github.com/dalemusser/fintrack/internal/app/system/workflow"
	"github.com/dalemusser/fintrack/internal/testutil"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

type testEnv struct {
	stores  store.Stores
	seed    *testutil.Seed
	router  http.Handler
	rec     *testutil.Rendered
	browser *testutil.Browser
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	stores := testutil.NewSQLiteStores(t)
	sm := testutil.NewSessionManager(t)
	wf := workflow.New(stores, zap.NewNop(), nil)
	wf.SetHashCost(bcrypt.MinCost)

	h := NewHandler(stores, sm, wf, zap.NewNop())
	rec := &testutil.Rendered{}
	h.Render = rec.Render

	r := chi.NewRouter()
	r.Use(sm.LoadSessionUser)
	r.Mount("/budgets", Routes(h, sm))

	return &testEnv{
		stores:  stores,
		seed:    testutil.NewSeed(t, stores),
		router:  r,
		rec:     rec,
		browser: testutil.NewBrowser(t, sm),
	}
}

type page struct {
	HasGroup bool
	Flash    string
	Rows     []budgetRow
}

func rendered(t *testing.T, r *testutil.Rendered) page {
	t.Helper()
	if r.Name != "budgets_list" {
		t.Fatalf("rendered %q, want budgets_list", r.Name)
	}
	d := r.Data.(listData)
	p := page{HasGroup: d.Group != nil, Rows: d.Budgets}
	if d.Flash != nil {
		p.Flash = d.Flash.Text
	}
	return p
}

func TestServeList_RequiresSignIn(t *testing.T) {
	env := newTestEnv(t)
	rec := env.browser.Get(env.router, "/budgets/")
	testutil.AssertRedirect(t, rec, "/login?return=%2Fbudgets%2F")
}

func TestServeList_NoGroup(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	u := env.seed.User(ctx, "Carol", "c@example.com")
	env.browser.SignIn(u)

	rec := env.browser.Get(env.router, "/budgets/")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	p := rendered(t, env.rec)
	if p.HasGroup || len(p.Rows) != 0 {
		t.Errorf("user without a group should see the join prompt: %+v", p)
	}
}

func TestCreate_PRGCycle(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	u := env.seed.User(ctx, "Alice", "a@example.com")
	g := env.seed.Group(ctx, "Home", "pw", u.ID)
	env.browser.SignIn(u)

	rec := env.browser.PostFormCSRF(env.router, "/budgets/", url.Values{"name": {"Groceries"}, "start_date": {"2026-02-01"}})
	testutil.AssertRedirect(t, rec, "/budgets")

	env.browser.Get(env.router, "/budgets/")
	p := rendered(t, env.rec)
	if p.Flash != "Budget created." {
		t.Errorf("flash = %q", p.Flash)
	}
	if len(p.Rows) != 1 || p.Rows[0].Name != "Groceries" || !p.Rows[0].CanDelete || p.Rows[0].CreatedBy != "Alice" {
		t.Fatalf("rows = %+v", p.Rows)
	}

	// Refreshing the target page neither repeats the insert nor the flash.
	env.browser.Get(env.router, "/budgets/")
	p = rendered(t, env.rec)
	if p.Flash != "" {
		t.Errorf("flash shown twice: %q", p.Flash)
	}
	list, _ := env.stores.Budgets.ListByGroup(ctx, g.ID, 0)
	if len(list) != 1 {
		t.Errorf("budgets = %d, want 1", len(list))
	}
}

func TestCreate_MissingCSRF(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	u := env.seed.User(ctx, "Alice", "a@example.com")
	g := env.seed.Group(ctx, "Home", "pw", u.ID)
	env.browser.SignIn(u)

	rec := env.browser.PostForm(env.router, "/budgets/", url.Values{"name": {"Groceries"}})
	if rec.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", rec.Code)
	}
	list, _ := env.stores.Budgets.ListByGroup(ctx, g.ID, 0)
	if len(list) != 0 {
		t.Errorf("forged post created %d budgets", len(list))
	}
}

func TestDelete_PermissionFlags(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	owner := env.seed.User(ctx, "Alice", "a@example.com")
	bob := env.seed.User(ctx, "Bob", "b@example.com")
	g := env.seed.Group(ctx, "Home", "pw", owner.ID)
	env.seed.Join(ctx, g.ID, bob.ID)
	ownerBudget := env.seed.Budget(ctx, g.ID, owner.ID, "Rent")
	env.seed.Budget(ctx, g.ID, bob.ID, "Snacks")

	env.browser.SignIn(bob)
	env.browser.Get(env.router, "/budgets/")
	p := rendered(t, env.rec)
	for _, row := range p.Rows {
		if want := row.Name == "Snacks"; row.CanDelete != want {
			t.Errorf("%s CanDelete = %v, want %v", row.Name, row.CanDelete, want)
		}
	}

	rec := env.browser.PostFormCSRF(env.router, "/budgets/"+ownerBudget.ID.Hex()+"/delete", nil)
	testutil.AssertRedirect(t, rec, "/budgets")
	if _, err := env.stores.Budgets.GetInGroup(ctx, g.ID, ownerBudget.ID); err != nil {
		t.Errorf("owner's budget should remain: %v", err)
	}

	env.browser.Get(env.router, "/budgets/")
	p = rendered(t, env.rec)
	if p.Flash != workflow.MsgForbidden {
		t.Errorf("flash = %q, want %q", p.Flash, workflow.MsgForbidden)
	}
}
