package workflow_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dalemusser/fintrack/internal/app/store"
	"github.com/dalemusser/fintrack/internal/app/system/flash"
	"github.com/dalemusser/fintrack/internal/app/system/workflow"
	"github.com/dalemusser/fintrack/internal/domain/models"
	"github.com/dalemusser/fintrack/internal/testutil"
	"github.com/prometheus/client_golang/prometheus"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/crypto/bcrypt"
)

const testSecret = "0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcdef"

// memSession is an in-memory Session.
type memSession struct {
	userID   primitive.ObjectID
	signedIn bool
	active   primitive.ObjectID
	flashes  []flash.Message
}

func sessionFor(u models.User) *memSession {
	return &memSession{userID: u.ID, signedIn: true}
}

func (s *memSession) UserID() (primitive.ObjectID, bool) { return s.userID, s.signedIn }
func (s *memSession) ActiveGroupID() (primitive.ObjectID, bool) {
	return s.active, !s.active.IsZero()
}
func (s *memSession) SetActiveGroup(id primitive.ObjectID) { s.active = id }
func (s *memSession) ClearActiveGroup()                    { s.active = primitive.NilObjectID }
func (s *memSession) CSRFSecret() (string, error)          { return testSecret, nil }
func (s *memSession) SetFlash(m flash.Message)             { s.flashes = append(s.flashes, m) }

func (s *memSession) lastFlash(t *testing.T) flash.Message {
	t.Helper()
	if len(s.flashes) == 0 {
		t.Fatal("expected a flash message")
	}
	return s.flashes[len(s.flashes)-1]
}

type env struct {
	stores store.Stores
	seed   *testutil.Seed
	ctrl   *workflow.Controller
}

func newEnv(t *testing.T) *env {
	t.Helper()
	stores := testutil.NewSQLiteStores(t)
	ctrl := workflow.New(stores, nil, prometheus.NewRegistry())
	ctrl.SetHashCost(bcrypt.MinCost)
	return &env{stores: stores, seed: testutil.NewSeed(t, stores), ctrl: ctrl}
}

func wantRedirect(t *testing.T, res workflow.Result, err error, path string, stage workflow.Stage) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Redirect != path {
		t.Errorf("Redirect = %q, want %q", res.Redirect, path)
	}
	if res.Stage != stage {
		t.Errorf("Stage = %v, want %v", res.Stage, stage)
	}
}

func wantFlash(t *testing.T, res workflow.Result, kind, text string) {
	t.Helper()
	if res.Flash.Kind != kind || res.Flash.Text != text {
		t.Errorf("Flash = %+v, want %s %q", res.Flash, kind, text)
	}
}

func countExpenses(t *testing.T, e *env, gid primitive.ObjectID) int {
	t.Helper()
	ctx, cancel := testutil.TestContext()
	defer cancel()
	list, err := e.stores.Expenses.ListByGroup(ctx, gid, 0)
	if err != nil {
		t.Fatalf("list expenses: %v", err)
	}
	return len(list)
}

func TestCSRF_RejectedRequestNeverTouchesStore(t *testing.T) {
	stores, counter := testutil.CountingStores(testutil.NewSQLiteStores(t))
	ctrl := workflow.New(stores, nil, nil)
	ctx := context.Background()
	gid := primitive.NewObjectID().Hex()
	rid := primitive.NewObjectID().Hex()

	calls := map[string]func(token string) (workflow.Result, error){
		"add_budget": func(tok string) (workflow.Result, error) {
			return ctrl.AddBudget(ctx, &memSession{userID: primitive.NewObjectID(), signedIn: true}, tok, workflow.BudgetInput{Name: "Food"})
		},
		"delete_budget": func(tok string) (workflow.Result, error) {
			return ctrl.DeleteBudget(ctx, &memSession{userID: primitive.NewObjectID(), signedIn: true}, tok, rid)
		},
		"add_expense": func(tok string) (workflow.Result, error) {
			return ctrl.AddExpense(ctx, &memSession{userID: primitive.NewObjectID(), signedIn: true}, tok, workflow.ExpenseInput{Amount: "1", ExpenseDate: "2026-02-01"})
		},
		"delete_expense": func(tok string) (workflow.Result, error) {
			return ctrl.DeleteExpense(ctx, &memSession{userID: primitive.NewObjectID(), signedIn: true}, tok, rid)
		},
		"leave_group": func(tok string) (workflow.Result, error) {
			return ctrl.LeaveGroup(ctx, &memSession{userID: primitive.NewObjectID(), signedIn: true}, tok, gid)
		},
		"remove_member": func(tok string) (workflow.Result, error) {
			return ctrl.RemoveMember(ctx, &memSession{userID: primitive.NewObjectID(), signedIn: true}, tok, gid, rid)
		},
		"delete_group": func(tok string) (workflow.Result, error) {
			return ctrl.DeleteGroup(ctx, &memSession{userID: primitive.NewObjectID(), signedIn: true}, tok, gid)
		},
		"create_group": func(tok string) (workflow.Result, error) {
			return ctrl.CreateGroup(ctx, &memSession{userID: primitive.NewObjectID(), signedIn: true}, tok, workflow.CreateGroupInput{Name: "G", Secret: "pw"})
		},
		"join_group": func(tok string) (workflow.Result, error) {
			return ctrl.JoinGroup(ctx, &memSession{userID: primitive.NewObjectID(), signedIn: true}, tok, workflow.JoinGroupInput{Name: "G", Secret: "pw"})
		},
		"set_active_group": func(tok string) (workflow.Result, error) {
			return ctrl.SetActiveGroup(ctx, &memSession{userID: primitive.NewObjectID(), signedIn: true}, tok, gid)
		},
	}

	for op, call := range calls {
		for _, tok := range []string{"", "forged", testSecret[:63] + "0"} {
			counter.Reset()
			res, err := call(tok)
			if !errors.Is(err, workflow.ErrCSRF) {
				t.Errorf("%s(%q): err = %v, want ErrCSRF", op, tok, err)
			}
			if res.Stage != workflow.Rejected {
				t.Errorf("%s: Stage = %v, want rejected", op, res.Stage)
			}
			if res.Redirect != "" || res.Flash.Text != "" {
				t.Errorf("%s: CSRF failure should not redirect or flash, got %+v", op, res)
			}
			if n := counter.Calls(); n != 0 {
				t.Errorf("%s: %d store calls after CSRF rejection, want 0", op, n)
			}
		}
	}

	if got := promtest.ToFloat64(ctrl.Outcomes().WithLabelValues("add_budget", "csrf")); got != 3 {
		t.Errorf("csrf counter = %v, want 3", got)
	}
}

func TestCSRF_RejectsFlashOnSession(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	u := e.seed.User(ctx, "Ann", "ann@example.com")
	sess := sessionFor(u)

	_, err := e.ctrl.CreateGroup(ctx, sess, "nope", workflow.CreateGroupInput{Name: "Home", Secret: "pw1234"})
	if !errors.Is(err, workflow.ErrCSRF) {
		t.Fatalf("err = %v, want ErrCSRF", err)
	}
	if len(sess.flashes) != 0 {
		t.Errorf("CSRF rejection set %d flashes, want 0", len(sess.flashes))
	}
}

func TestRoomiesScenario(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	a := e.seed.User(ctx, "Alice", "a@example.com")
	b := e.seed.User(ctx, "Bob", "b@example.com")
	sa, sb := sessionFor(a), sessionFor(b)

	res, err := e.ctrl.CreateGroup(ctx, sa, testSecret, workflow.CreateGroupInput{Name: "Roomies", Secret: "pw1234"})
	wantRedirect(t, res, err, workflow.GroupsPath, workflow.Redirected)
	wantFlash(t, res, flash.KindSuccess, "Group created.")

	roomies, err := e.stores.Groups.GetByName(ctx, "roomies")
	if err != nil {
		t.Fatalf("GetByName: %v", err)
	}
	if roomies.OwnerID != a.ID {
		t.Errorf("owner = %s, want %s", roomies.OwnerID.Hex(), a.ID.Hex())
	}
	if sa.active != roomies.ID {
		t.Errorf("creator's active group not set to new group")
	}

	res, err = e.ctrl.JoinGroup(ctx, sb, testSecret, workflow.JoinGroupInput{Name: "Roomies", Secret: "pw1234"})
	wantRedirect(t, res, err, workflow.GroupsPath, workflow.Redirected)
	if sb.active != roomies.ID {
		t.Errorf("B's active group = %s, want Roomies", sb.active.Hex())
	}
	member, err := e.ctrl.Policy().IsMember(ctx, b.ID, roomies.ID)
	if err != nil || !member {
		t.Fatalf("IsMember(B, Roomies) = %v, %v; want true", member, err)
	}

	res, err = e.ctrl.AddExpense(ctx, sb, testSecret, workflow.ExpenseInput{
		Amount:      "42.50",
		ExpenseDate: "2026-02-01",
		Category:    "Groceries",
	})
	wantRedirect(t, res, err, workflow.ExpensesPath, workflow.Redirected)
	wantFlash(t, res, flash.KindSuccess, "Expense added.")

	list, err := e.stores.Expenses.ListByGroup(ctx, roomies.ID, 0)
	if err != nil {
		t.Fatalf("ListByGroup: %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("got %d expenses, want 1", len(list))
	}
	exp := list[0]
	if exp.CreatedBy != b.ID || exp.GroupID != roomies.ID || exp.AmountCents != 4250 || exp.Category != "Groceries" {
		t.Errorf("unexpected expense %+v", exp)
	}
	if got := exp.ExpenseDate.Format("2006-01-02"); got != "2026-02-01" {
		t.Errorf("ExpenseDate = %s", got)
	}

	res, err = e.ctrl.DeleteExpense(ctx, sa, testSecret, exp.ID.Hex())
	wantRedirect(t, res, err, workflow.ExpensesPath, workflow.Redirected)
	wantFlash(t, res, flash.KindSuccess, "Expense deleted.")
	if n := countExpenses(t, e, roomies.ID); n != 0 {
		t.Errorf("expense not deleted by owner, %d rows remain", n)
	}
}

func TestNonMember_FabricatedGroupIDIsForbidden(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	a := e.seed.User(ctx, "Alice", "a@example.com")
	c := e.seed.User(ctx, "Carol", "c@example.com")
	g := e.seed.Group(ctx, "Roomies", "pw1234", a.ID)
	b := e.seed.Budget(ctx, g.ID, a.ID, "Food")
	sc := sessionFor(c)
	// A stale or forged pointer must not count as membership.
	sc.active = g.ID

	res, err := e.ctrl.AddBudget(ctx, sc, testSecret, workflow.BudgetInput{Name: "Mine"})
	wantRedirect(t, res, err, workflow.BudgetsPath, workflow.Rejected)
	wantFlash(t, res, flash.KindError, workflow.MsgForbidden)
	if !sc.active.IsZero() {
		t.Errorf("forged pointer should be cleared")
	}

	res, err = e.ctrl.DeleteBudget(ctx, sc, testSecret, b.ID.Hex())
	wantRedirect(t, res, err, workflow.BudgetsPath, workflow.Rejected)
	wantFlash(t, res, flash.KindError, workflow.MsgForbidden)

	for name, call := range map[string]func() (workflow.Result, error){
		"set_active": func() (workflow.Result, error) { return e.ctrl.SetActiveGroup(ctx, sc, testSecret, g.ID.Hex()) },
		"leave":      func() (workflow.Result, error) { return e.ctrl.LeaveGroup(ctx, sc, testSecret, g.ID.Hex()) },
		"delete":     func() (workflow.Result, error) { return e.ctrl.DeleteGroup(ctx, sc, testSecret, g.ID.Hex()) },
		"remove": func() (workflow.Result, error) {
			return e.ctrl.RemoveMember(ctx, sc, testSecret, g.ID.Hex(), a.ID.Hex())
		},
	} {
		res, err := call()
		if err != nil || res.Stage != workflow.Rejected || res.Flash.Text != workflow.MsgForbidden {
			t.Errorf("%s: got %+v, %v; want forbidden rejection", name, res, err)
		}
	}

	budgets, _ := e.stores.Budgets.ListByGroup(ctx, g.ID, 0)
	if len(budgets) != 1 {
		t.Errorf("budgets = %d, want 1 untouched", len(budgets))
	}
	if _, err := e.stores.Groups.GetByID(ctx, g.ID); err != nil {
		t.Errorf("group should survive: %v", err)
	}
	if ok, _ := e.ctrl.Policy().IsMember(ctx, a.ID, g.ID); !ok {
		t.Errorf("owner membership should survive")
	}
}

func TestDelete_NotCreatorNotOwnerLeavesRow(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	a := e.seed.User(ctx, "Alice", "a@example.com")
	b := e.seed.User(ctx, "Bob", "b@example.com")
	d := e.seed.User(ctx, "Dan", "d@example.com")
	g := e.seed.Group(ctx, "Roomies", "pw1234", a.ID)
	e.seed.Join(ctx, g.ID, b.ID)
	e.seed.Join(ctx, g.ID, d.ID)

	bud := e.seed.Budget(ctx, g.ID, b.ID, "Food")
	exp := e.seed.Expense(ctx, g.ID, b.ID, 999)

	sd := sessionFor(d)
	res, err := e.ctrl.DeleteBudget(ctx, sd, testSecret, bud.ID.Hex())
	wantRedirect(t, res, err, workflow.BudgetsPath, workflow.Rejected)
	wantFlash(t, res, flash.KindError, workflow.MsgForbidden)
	if _, err := e.stores.Budgets.GetInGroup(ctx, g.ID, bud.ID); err != nil {
		t.Errorf("budget should remain: %v", err)
	}

	res, err = e.ctrl.DeleteExpense(ctx, sd, testSecret, exp.ID.Hex())
	wantRedirect(t, res, err, workflow.ExpensesPath, workflow.Rejected)
	wantFlash(t, res, flash.KindError, workflow.MsgForbidden)
	if _, err := e.stores.Expenses.GetInGroup(ctx, g.ID, exp.ID); err != nil {
		t.Errorf("expense should remain: %v", err)
	}

	if got := promtest.ToFloat64(e.ctrl.Outcomes().WithLabelValues("delete_budget", "forbidden")); got != 1 {
		t.Errorf("forbidden counter = %v, want 1", got)
	}

	// The creator may delete their own.
	sb := sessionFor(b)
	res, err = e.ctrl.DeleteBudget(ctx, sb, testSecret, bud.ID.Hex())
	wantRedirect(t, res, err, workflow.BudgetsPath, workflow.Redirected)
	wantFlash(t, res, flash.KindSuccess, "Budget deleted.")
}

func TestDelete_OtherGroupsResourceIsNotFound(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	a := e.seed.User(ctx, "Alice", "a@example.com")
	b := e.seed.User(ctx, "Bob", "b@example.com")
	ga := e.seed.Group(ctx, "A House", "pw", a.ID)
	gb := e.seed.Group(ctx, "B House", "pw", b.ID)
	exp := e.seed.Expense(ctx, gb.ID, b.ID, 500)
	_ = ga

	res, err := e.ctrl.DeleteExpense(ctx, sessionFor(a), testSecret, exp.ID.Hex())
	wantRedirect(t, res, err, workflow.ExpensesPath, workflow.Rejected)
	wantFlash(t, res, flash.KindError, workflow.MsgForbidden)
	if n := countExpenses(t, e, gb.ID); n != 1 {
		t.Errorf("other group's expense removed")
	}
	if got := promtest.ToFloat64(e.ctrl.Outcomes().WithLabelValues("delete_expense", "not_found")); got != 1 {
		t.Errorf("not_found counter = %v, want 1", got)
	}

	res, err = e.ctrl.DeleteExpense(ctx, sessionFor(a), testSecret, "not-an-id")
	wantRedirect(t, res, err, workflow.ExpensesPath, workflow.Rejected)
	wantFlash(t, res, flash.KindError, workflow.MsgForbidden)
}

func TestDoubleDeleteAfterAuthorizationIsSuccess(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	a := e.seed.User(ctx, "Alice", "a@example.com")
	g := e.seed.Group(ctx, "Home", "pw", a.ID)
	exp := e.seed.Expense(ctx, g.ID, a.ID, 100)
	sa := sessionFor(a)

	res, err := e.ctrl.DeleteExpense(ctx, sa, testSecret, exp.ID.Hex())
	wantRedirect(t, res, err, workflow.ExpensesPath, workflow.Redirected)

	// A second delete no longer resolves in the group.
	res, err = e.ctrl.DeleteExpense(ctx, sa, testSecret, exp.ID.Hex())
	wantRedirect(t, res, err, workflow.ExpensesPath, workflow.Rejected)
	wantFlash(t, res, flash.KindError, workflow.MsgForbidden)
}

func TestAddExpense_SingleInsertPerSubmit(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	a := e.seed.User(ctx, "Alice", "a@example.com")
	g := e.seed.Group(ctx, "Home", "pw", a.ID)
	sa := sessionFor(a)

	res, err := e.ctrl.AddExpense(ctx, sa, testSecret, workflow.ExpenseInput{Amount: "10", ExpenseDate: "2026-02-01"})
	wantRedirect(t, res, err, workflow.ExpensesPath, workflow.Redirected)
	if len(sa.flashes) != 1 {
		t.Errorf("flashes = %d, want exactly 1", len(sa.flashes))
	}
	if n := countExpenses(t, e, g.ID); n != 1 {
		t.Errorf("expenses = %d, want 1", n)
	}
}

func TestAddBudget_Validation(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	a := e.seed.User(ctx, "Alice", "a@example.com")
	g := e.seed.Group(ctx, "Home", "pw", a.ID)

	long := make([]rune, 101)
	for i := range long {
		long[i] = 'é'
	}

	tests := []struct {
		name string
		in   workflow.BudgetInput
		want string
	}{
		{"missing name", workflow.BudgetInput{Name: "   "}, "Budget name is required."},
		{"long name", workflow.BudgetInput{Name: string(long)}, "Budget name is too long (max 100 characters)."},
		{"bad start", workflow.BudgetInput{Name: "Food", StartDate: "2026-13-01"}, "Start date must be a date (YYYY-MM-DD)."},
		{"reversed", workflow.BudgetInput{Name: "Food", StartDate: "2026-03-01", EndDate: "2026-02-01"}, "Start date cannot be after end date."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := e.ctrl.AddBudget(ctx, sessionFor(a), testSecret, tt.in)
			wantRedirect(t, res, err, workflow.BudgetsPath, workflow.Rejected)
			wantFlash(t, res, flash.KindError, tt.want)
		})
	}

	list, _ := e.stores.Budgets.ListByGroup(ctx, g.ID, 0)
	if len(list) != 0 {
		t.Errorf("validation failures wrote %d budgets", len(list))
	}

	res, err := e.ctrl.AddBudget(ctx, sessionFor(a), testSecret, workflow.BudgetInput{
		Name: "  Spring   trip ", StartDate: "2026-03-01", EndDate: "2026-03-01",
	})
	wantRedirect(t, res, err, workflow.BudgetsPath, workflow.Redirected)
	list, _ = e.stores.Budgets.ListByGroup(ctx, g.ID, 0)
	if len(list) != 1 || list[0].Name != "Spring trip" || list[0].CreatedBy != a.ID {
		t.Fatalf("unexpected budgets %+v", list)
	}
	if list[0].StartDate == nil || !list[0].StartDate.Equal(time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("StartDate = %v", list[0].StartDate)
	}
}

func TestAddExpense_Validation(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	a := e.seed.User(ctx, "Alice", "a@example.com")
	b := e.seed.User(ctx, "Bob", "b@example.com")
	g := e.seed.Group(ctx, "Home", "pw", a.ID)
	other := e.seed.Group(ctx, "Elsewhere", "pw", b.ID)
	foreign := e.seed.Budget(ctx, other.ID, b.ID, "Theirs")

	ok := workflow.ExpenseInput{Amount: "5", ExpenseDate: "2026-02-01"}
	with := func(f func(*workflow.ExpenseInput)) workflow.ExpenseInput {
		in := ok
		f(&in)
		return in
	}
	long := func(n int) string {
		b := make([]byte, n)
		for i := range b {
			b[i] = 'x'
		}
		return string(b)
	}

	tests := []struct {
		name string
		in   workflow.ExpenseInput
		want string
	}{
		{"no amount", with(func(in *workflow.ExpenseInput) { in.Amount = "" }), "Please enter a valid amount."},
		{"letters", with(func(in *workflow.ExpenseInput) { in.Amount = "ten" }), "Please enter a valid amount."},
		{"zero", with(func(in *workflow.ExpenseInput) { in.Amount = "0.004" }), "Amount must be greater than 0."},
		{"negative", with(func(in *workflow.ExpenseInput) { in.Amount = "-3" }), "Amount must be greater than 0."},
		{"huge", with(func(in *workflow.ExpenseInput) { in.Amount = "100000000" }), "Amount is too large (max 99,999,999.99)."},
		{"exponent", with(func(in *workflow.ExpenseInput) { in.Amount = "1e99999999" }), "Please enter a valid amount."},
		{"no date", with(func(in *workflow.ExpenseInput) { in.ExpenseDate = "" }), "Please select an expense date."},
		{"bad date", with(func(in *workflow.ExpenseInput) { in.ExpenseDate = "02/01/2026" }), "Expense date must be a date (YYYY-MM-DD)."},
		{"long category", with(func(in *workflow.ExpenseInput) { in.Category = long(51) }), "Category is too long (max 50 characters)."},
		{"long description", with(func(in *workflow.ExpenseInput) { in.Description = long(256) }), "Description is too long (max 255 characters)."},
		{"garbage budget", with(func(in *workflow.ExpenseInput) { in.BudgetID = "xyz" }), "Invalid budget selection."},
		{"foreign budget", with(func(in *workflow.ExpenseInput) { in.BudgetID = foreign.ID.Hex() }), "Invalid budget selection."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := e.ctrl.AddExpense(ctx, sessionFor(a), testSecret, tt.in)
			wantRedirect(t, res, err, workflow.ExpensesPath, workflow.Rejected)
			wantFlash(t, res, flash.KindError, tt.want)
		})
	}
	if n := countExpenses(t, e, g.ID); n != 0 {
		t.Errorf("validation failures wrote %d expenses", n)
	}

	mine := e.seed.Budget(ctx, g.ID, a.ID, "Food")
	res, err := e.ctrl.AddExpense(ctx, sessionFor(a), testSecret, with(func(in *workflow.ExpenseInput) {
		in.Amount = "$1,234.565"
		in.BudgetID = mine.ID.Hex()
	}))
	wantRedirect(t, res, err, workflow.ExpensesPath, workflow.Redirected)
	list, _ := e.stores.Expenses.ListByGroup(ctx, g.ID, 0)
	if len(list) != 1 || list[0].AmountCents != 123457 || list[0].BudgetID == nil || *list[0].BudgetID != mine.ID {
		t.Fatalf("unexpected expenses %+v", list)
	}
}

func TestMutation_NoGroupIsForbidden(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	c := e.seed.User(ctx, "Carol", "c@example.com")

	res, err := e.ctrl.AddExpense(ctx, sessionFor(c), testSecret, workflow.ExpenseInput{Amount: "1", ExpenseDate: "2026-02-01"})
	wantRedirect(t, res, err, workflow.ExpensesPath, workflow.Rejected)
	wantFlash(t, res, flash.KindError, workflow.MsgForbidden)
}

func TestMutation_AnonymousIsForbidden(t *testing.T) {
	e := newEnv(t)
	res, err := e.ctrl.AddBudget(context.Background(), &memSession{}, testSecret, workflow.BudgetInput{Name: "x"})
	wantRedirect(t, res, err, workflow.BudgetsPath, workflow.Rejected)
	wantFlash(t, res, flash.KindError, workflow.MsgForbidden)
}

func TestCreateGroup(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	a := e.seed.User(ctx, "Alice", "a@example.com")
	b := e.seed.User(ctx, "Bob", "b@example.com")

	res, err := e.ctrl.CreateGroup(ctx, sessionFor(a), testSecret, workflow.CreateGroupInput{Name: "Roomies", Secret: "pw1234"})
	wantRedirect(t, res, err, workflow.GroupsPath, workflow.Redirected)

	res, err = e.ctrl.CreateGroup(ctx, sessionFor(b), testSecret, workflow.CreateGroupInput{Name: "  ROOMIES ", Secret: "x"})
	wantRedirect(t, res, err, workflow.GroupsPath, workflow.Rejected)
	wantFlash(t, res, flash.KindError, "A group with that name already exists. Please choose a different name.")

	groups, _ := e.stores.Groups.ListForUser(ctx, b.ID)
	if len(groups) != 0 {
		t.Errorf("duplicate create left %d groups for B", len(groups))
	}

	tests := []struct {
		in   workflow.CreateGroupInput
		want string
	}{
		{workflow.CreateGroupInput{Secret: "pw"}, "Group name is required."},
		{workflow.CreateGroupInput{Name: "Flat"}, "Group password is required."},
		{workflow.CreateGroupInput{Name: "Flat", Secret: string(make([]byte, 73))}, "Group password is too long (max 72 characters)."},
	}
	for _, tt := range tests {
		res, err := e.ctrl.CreateGroup(ctx, sessionFor(b), testSecret, tt.in)
		wantRedirect(t, res, err, workflow.GroupsPath, workflow.Rejected)
		wantFlash(t, res, flash.KindError, tt.want)
	}
}

// brokenGroups fails group creation the way a store does when the owner
// membership write is rejected after the group insert.
type brokenGroups struct {
	store.GroupStore
}

func (brokenGroups) CreateWithOwner(context.Context, models.Group) (models.Group, error) {
	return models.Group{}, errors.New("insert owner membership: disk I/O error")
}

func TestCreateGroup_StoreFailureFlashesRetry(t *testing.T) {
	stores := testutil.NewSQLiteStores(t)
	seed := testutil.NewSeed(t, stores)
	ctx := context.Background()
	a := seed.User(ctx, "Alice", "a@example.com")

	broken := stores
	broken.Groups = brokenGroups{stores.Groups}
	reg := prometheus.NewRegistry()
	ctrl := workflow.New(broken, nil, reg)
	ctrl.SetHashCost(bcrypt.MinCost)

	sa := sessionFor(a)
	res, err := ctrl.CreateGroup(ctx, sa, testSecret, workflow.CreateGroupInput{Name: "Roomies", Secret: "pw1234"})
	wantRedirect(t, res, err, workflow.GroupsPath, workflow.Rejected)
	wantFlash(t, res, flash.KindError, workflow.MsgRetry)

	if !sa.active.IsZero() {
		t.Errorf("failed create set the active group")
	}
	groups, err := stores.Groups.ListForUser(ctx, a.ID)
	if err != nil {
		t.Fatalf("ListForUser: %v", err)
	}
	if len(groups) != 0 {
		t.Errorf("failed create left %d groups for the owner", len(groups))
	}
	if _, err := stores.Groups.GetByName(ctx, "Roomies"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("GetByName after failed create err = %v, want ErrNotFound", err)
	}
	if got := promtest.ToFloat64(ctrl.Outcomes().WithLabelValues("create_group", "error")); got != 1 {
		t.Errorf("create_group error outcomes = %v, want 1", got)
	}
}

func TestJoinGroup_Failures(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	a := e.seed.User(ctx, "Alice", "a@example.com")
	b := e.seed.User(ctx, "Bob", "b@example.com")
	g := e.seed.Group(ctx, "Roomies", "pw1234", a.ID)

	tests := []struct {
		name string
		who  models.User
		in   workflow.JoinGroupInput
		want string
	}{
		{"blank", b, workflow.JoinGroupInput{Name: " ", Secret: "pw1234"}, "Please provide both group name and password."},
		{"unknown group", b, workflow.JoinGroupInput{Name: "Nowhere", Secret: "pw1234"}, "Group name or password is incorrect."},
		{"wrong secret", b, workflow.JoinGroupInput{Name: "Roomies", Secret: "nope"}, "Group name or password is incorrect."},
		{"already member", a, workflow.JoinGroupInput{Name: "roomies", Secret: "pw1234"}, "You are already a member of that group."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sess := sessionFor(tt.who)
			res, err := e.ctrl.JoinGroup(ctx, sess, testSecret, tt.in)
			wantRedirect(t, res, err, workflow.GroupsPath, workflow.Rejected)
			wantFlash(t, res, flash.KindError, tt.want)
			if !sess.active.IsZero() {
				t.Errorf("failed join set the active group")
			}
		})
	}
	if ok, _ := e.ctrl.Policy().IsMember(ctx, b.ID, g.ID); ok {
		t.Errorf("B should not be a member")
	}
}

func TestLeaveGroup(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	a := e.seed.User(ctx, "Alice", "a@example.com")
	b := e.seed.User(ctx, "Bob", "b@example.com")
	g := e.seed.Group(ctx, "Roomies", "pw", a.ID)
	e.seed.Join(ctx, g.ID, b.ID)

	res, err := e.ctrl.LeaveGroup(ctx, sessionFor(a), testSecret, g.ID.Hex())
	wantRedirect(t, res, err, workflow.GroupsPath, workflow.Rejected)
	wantFlash(t, res, flash.KindError, "Group owners can't leave. Delete the group instead.")

	sb := sessionFor(b)
	sb.active = g.ID
	res, err = e.ctrl.LeaveGroup(ctx, sb, testSecret, g.ID.Hex())
	wantRedirect(t, res, err, workflow.GroupsPath, workflow.Redirected)
	wantFlash(t, res, flash.KindSuccess, "You have left the group.")
	if !sb.active.IsZero() {
		t.Errorf("active pointer should be cleared after leaving")
	}
	if ok, _ := e.ctrl.Policy().IsMember(ctx, b.ID, g.ID); ok {
		t.Errorf("IsMember should be false right after leaving")
	}
}

func TestRemoveMember(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	a := e.seed.User(ctx, "Alice", "a@example.com")
	b := e.seed.User(ctx, "Bob", "b@example.com")
	d := e.seed.User(ctx, "Dan", "d@example.com")
	g := e.seed.Group(ctx, "Roomies", "pw", a.ID)
	e.seed.Join(ctx, g.ID, b.ID)
	e.seed.Join(ctx, g.ID, d.ID)

	res, err := e.ctrl.RemoveMember(ctx, sessionFor(b), testSecret, g.ID.Hex(), d.ID.Hex())
	wantRedirect(t, res, err, workflow.GroupsPath, workflow.Rejected)
	wantFlash(t, res, flash.KindError, workflow.MsgForbidden)

	res, err = e.ctrl.RemoveMember(ctx, sessionFor(a), testSecret, g.ID.Hex(), a.ID.Hex())
	wantRedirect(t, res, err, workflow.GroupsPath, workflow.Rejected)
	wantFlash(t, res, flash.KindError, "You can't remove yourself.")

	res, err = e.ctrl.RemoveMember(ctx, sessionFor(a), testSecret, g.ID.Hex(), d.ID.Hex())
	wantRedirect(t, res, err, workflow.GroupsPath, workflow.Redirected)
	wantFlash(t, res, flash.KindSuccess, "Member removed.")
	if ok, _ := e.ctrl.Policy().IsMember(ctx, d.ID, g.ID); ok {
		t.Errorf("D should no longer be a member")
	}

	// D's stale pointer heals on the next mutation.
	sd := sessionFor(d)
	sd.active = g.ID
	res, err = e.ctrl.AddBudget(ctx, sd, testSecret, workflow.BudgetInput{Name: "Sneaky"})
	wantRedirect(t, res, err, workflow.BudgetsPath, workflow.Rejected)
	if !sd.active.IsZero() {
		t.Errorf("removed member's pointer should be cleared")
	}
}

func TestDeleteGroup_Cascades(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	a := e.seed.User(ctx, "Alice", "a@example.com")
	b := e.seed.User(ctx, "Bob", "b@example.com")
	g := e.seed.Group(ctx, "Roomies", "pw", a.ID)
	e.seed.Join(ctx, g.ID, b.ID)
	e.seed.Budget(ctx, g.ID, b.ID, "Food")
	e.seed.Expense(ctx, g.ID, b.ID, 100)

	res, err := e.ctrl.DeleteGroup(ctx, sessionFor(b), testSecret, g.ID.Hex())
	wantRedirect(t, res, err, workflow.GroupsPath, workflow.Rejected)
	wantFlash(t, res, flash.KindError, workflow.MsgForbidden)

	sa := sessionFor(a)
	sa.active = g.ID
	res, err = e.ctrl.DeleteGroup(ctx, sa, testSecret, g.ID.Hex())
	wantRedirect(t, res, err, workflow.GroupsPath, workflow.Redirected)
	wantFlash(t, res, flash.KindSuccess, "Group deleted.")
	if !sa.active.IsZero() {
		t.Errorf("active pointer should be cleared")
	}

	if _, err := e.stores.Groups.GetByID(ctx, g.ID); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("group still present: %v", err)
	}
	if ms, _ := e.stores.Memberships.ListByGroup(ctx, g.ID); len(ms) != 0 {
		t.Errorf("memberships remain: %d", len(ms))
	}
	if n := countExpenses(t, e, g.ID); n != 0 {
		t.Errorf("expenses remain: %d", n)
	}
}

func TestSetActiveGroup(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	a := e.seed.User(ctx, "Alice", "a@example.com")
	g1 := e.seed.Group(ctx, "One", "pw", a.ID)
	e.seed.Group(ctx, "Two", "pw", a.ID)
	sa := sessionFor(a)

	res, err := e.ctrl.SetActiveGroup(ctx, sa, testSecret, g1.ID.Hex())
	wantRedirect(t, res, err, workflow.GroupsPath, workflow.Redirected)
	wantFlash(t, res, flash.KindSuccess, "Active group updated.")
	if sa.active != g1.ID {
		t.Errorf("active = %s, want %s", sa.active.Hex(), g1.ID.Hex())
	}

	res, err = e.ctrl.SetActiveGroup(ctx, sa, testSecret, "bogus")
	wantRedirect(t, res, err, workflow.GroupsPath, workflow.Rejected)
	if sa.active != g1.ID {
		t.Errorf("rejected switch changed the pointer")
	}
}

func TestMessage(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{&workflow.ValidationError{Msg: "Bad."}, "Bad."},
		{workflow.ErrForbidden, workflow.MsgForbidden},
		{workflow.ErrNotFound, workflow.MsgForbidden},
		{&workflow.TransactionError{Op: "x", Err: errors.New("boom")}, workflow.MsgRetry},
		{errors.New("other"), workflow.MsgRetry},
	}
	for _, tt := range tests {
		if got := workflow.Message(tt.err); got != tt.want {
			t.Errorf("Message(%v) = %q, want %q", tt.err, got, tt.want)
		}
	}

	te := &workflow.TransactionError{Op: "create group", Err: store.ErrDuplicateMembership}
	if !errors.Is(te, store.ErrDuplicateMembership) {
		t.Errorf("TransactionError should unwrap")
	}
}

func TestStageString(t *testing.T) {
	if workflow.Received.String() != "received" || workflow.Rejected.String() != "rejected" {
		t.Errorf("unexpected stage names")
	}
	if workflow.Stage(99).String() != "unknown" {
		t.Errorf("out of range stage should be unknown")
	}
}

func TestNew_ReusesRegisteredCounter(t *testing.T) {
	reg := prometheus.NewRegistry()
	stores := testutil.NewSQLiteStores(t)
	c1 := workflow.New(stores, nil, reg)
	c2 := workflow.New(stores, nil, reg)
	c1.Outcomes().WithLabelValues("x", "ok").Inc()
	if got := promtest.ToFloat64(c2.Outcomes().WithLabelValues("x", "ok")); got != 1 {
		t.Errorf("second controller should share the counter, got %v", got)
	}
}
