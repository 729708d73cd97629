// internal/app/features/dashboard/handler.go
package dashboard

import (
	"context"
	"net/http"
	"time"

	uierrors "github.com/dalemusser/fintrack/internal/app/features/errors"
	"github.com/dalemusser/fintrack/internal/app/store"
	"github.com/dalemusser/fintrack/internal/app/system/auth"
	"github.com/dalemusser/fintrack/internal/app/system/inputval"
	"github.com/dalemusser/fintrack/internal/app/system/money"
	"github.com/dalemusser/fintrack/internal/app/system/timeouts"
	"github.com/dalemusser/fintrack/internal/app/system/viewdata"
	"github.com/dalemusser/fintrack/internal/app/system/workflow"
	"github.com/dalemusser/waffle/pantry/templates"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// recentLimit is how many expenses the dashboard lists.
const recentLimit = 5

type Handler struct {
	Stores   store.Stores
	Sessions *auth.SessionManager
	Workflow *workflow.Controller
	Log      *zap.Logger

	Render func(w http.ResponseWriter, r *http.Request, name string, data any)
	Now    func() time.Time
}

func NewHandler(stores store.Stores, sm *auth.SessionManager, wf *workflow.Controller, logger *zap.Logger) *Handler {
	return &Handler{
		Stores:   stores,
		Sessions: sm,
		Workflow: wf,
		Log:      logger,
		Render:   templates.Render,
		Now:      time.Now,
	}
}

type recentRow struct {
	Date        string
	Amount      string
	Category    string
	Description string
	CreatedBy   string
}

type dashboardData struct {
	viewdata.BaseVM
	MonthTotal  string
	MonthCount  int64
	Last30Total string
	Recent      []recentRow
}

// window is a half-open [From, To) range of expense dates.
type window struct {
	From, To time.Time
}

// windows returns month-to-date and the last 30 days, both ending with today.
func windows(now time.Time) (month, last30 window) {
	now = now.UTC()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	tomorrow := today.AddDate(0, 0, 1)
	month = window{From: time.Date(today.Year(), today.Month(), 1, 0, 0, 0, 0, time.UTC), To: tomorrow}
	last30 = window{From: today.AddDate(0, 0, -30), To: tomorrow}
	return month, last30
}

/*─────────────────────────────────────────────────────────────────────────────*
| GET /dashboard                                                              |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) ServeDashboard(w http.ResponseWriter, r *http.Request) {
	sc := h.Sessions.Context(r)
	data := dashboardData{
		BaseVM:      viewdata.NewBaseVM(r, sc, "Dashboard", h.Log),
		MonthTotal:  money.Format(0),
		Last30Total: money.Format(0),
	}

	g, err := h.Workflow.Resolver().Resolve(r.Context(), sc)
	if err != nil {
		h.Log.Error("resolve active group", zap.Error(err))
		uierrors.RenderServerError(w, r, "/")
		return
	}
	data.WithGroup(g, sc)

	if g != nil {
		if err := h.load(r.Context(), g.ID, &data); err != nil {
			h.Log.Error("load dashboard", zap.String("group_id", g.ID.Hex()), zap.Error(err))
			uierrors.RenderServerError(w, r, "/")
			return
		}
	}

	if err := sc.Save(w); err != nil {
		h.Log.Error("save session", zap.Error(err))
	}
	h.Render(w, r, "dashboard", data)
}

func (h *Handler) load(ctx context.Context, groupID primitive.ObjectID, data *dashboardData) error {
	ctx, cancel := context.WithTimeout(ctx, timeouts.Medium())
	defer cancel()

	month, last30 := windows(h.Now())

	mtd, err := h.Stores.Expenses.Totals(ctx, groupID, month.From, month.To)
	if err != nil {
		return err
	}
	data.MonthTotal = money.Format(mtd.TotalCents)
	data.MonthCount = mtd.Count

	l30, err := h.Stores.Expenses.Totals(ctx, groupID, last30.From, last30.To)
	if err != nil {
		return err
	}
	data.Last30Total = money.Format(l30.TotalCents)

	recent, err := h.Stores.Expenses.ListByGroup(ctx, groupID, recentLimit)
	if err != nil {
		return err
	}
	ids := make([]primitive.ObjectID, 0, len(recent))
	for _, e := range recent {
		ids = append(ids, e.CreatedBy)
	}
	names, err := h.Stores.Users.DisplayNames(ctx, ids)
	if err != nil {
		h.Log.Warn("load creator names", zap.Error(err))
	}
	for _, e := range recent {
		data.Recent = append(data.Recent, recentRow{
			Date:        e.ExpenseDate.Format(inputval.DateLayout),
			Amount:      money.Format(e.AmountCents),
			Category:    e.Category,
			Description: e.Description,
			CreatedBy:   names[e.CreatedBy],
		})
	}
	return nil
}
