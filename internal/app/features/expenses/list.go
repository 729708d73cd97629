// internal/app/features/expenses/list.go
package expenses

import (
	"context"
	"net/http"

	uierrors "github.com/dalemusser/fintrack/internal/app/features/errors"
	"github.com/dalemusser/fintrack/internal/app/policy/grouppolicy"
	"github.com/dalemusser/fintrack/internal/app/system/inputval"
	"github.com/dalemusser/fintrack/internal/app/system/money"
	"github.com/dalemusser/fintrack/internal/app/system/timeouts"
	"github.com/dalemusser/fintrack/internal/app/system/viewdata"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type expenseRow struct {
	ID          string
	Date        string
	Amount      string
	Category    string
	Description string
	Budget      string
	CreatedBy   string
	CanDelete   bool
}

type budgetOption struct {
	ID   string
	Name string
}

type listData struct {
	viewdata.BaseVM
	Today    string
	Budgets  []budgetOption
	Expenses []expenseRow
}

/*─────────────────────────────────────────────────────────────────────────────*
| GET /expenses                                                               |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	sc := h.Sessions.Context(r)
	data := listData{
		BaseVM: viewdata.NewBaseVM(r, sc, "Expenses", h.Log),
		Today:  h.now().Format(inputval.DateLayout),
	}

	g, err := h.Workflow.Resolver().Resolve(r.Context(), sc)
	if err != nil {
		h.Log.Error("resolve active group", zap.Error(err))
		uierrors.RenderServerError(w, r, "/")
		return
	}
	data.WithGroup(g, sc)

	if g != nil {
		uid, _ := sc.UserID()
		ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
		defer cancel()

		budgets, err := h.Stores.Budgets.ListByGroup(ctx, g.ID, 0)
		if err != nil {
			h.Log.Error("list budgets", zap.String("group_id", g.ID.Hex()), zap.Error(err))
			uierrors.RenderServerError(w, r, "/dashboard")
			return
		}
		budgetNames := make(map[primitive.ObjectID]string, len(budgets))
		for _, b := range budgets {
			budgetNames[b.ID] = b.Name
			data.Budgets = append(data.Budgets, budgetOption{ID: b.ID.Hex(), Name: b.Name})
		}

		list, err := h.Stores.Expenses.ListByGroup(ctx, g.ID, listLimit)
		if err != nil {
			h.Log.Error("list expenses", zap.String("group_id", g.ID.Hex()), zap.Error(err))
			uierrors.RenderServerError(w, r, "/dashboard")
			return
		}

		ids := make([]primitive.ObjectID, 0, len(list))
		for _, e := range list {
			ids = append(ids, e.CreatedBy)
		}
		names, err := h.Stores.Users.DisplayNames(ctx, ids)
		if err != nil {
			h.Log.Warn("load creator names", zap.Error(err))
		}

		for _, e := range list {
			row := expenseRow{
				ID:          e.ID.Hex(),
				Date:        e.ExpenseDate.Format(inputval.DateLayout),
				Amount:      money.Format(e.AmountCents),
				Category:    e.Category,
				Description: e.Description,
				CreatedBy:   names[e.CreatedBy],
				CanDelete:   grouppolicy.CanMutateResource(uid, grouppolicy.Resource{GroupID: e.GroupID, CreatedBy: e.CreatedBy}, *g),
			}
			if e.BudgetID != nil {
				row.Budget = budgetNames[*e.BudgetID]
			}
			data.Expenses = append(data.Expenses, row)
		}
	}

	if err := sc.Save(w); err != nil {
		h.Log.Error("save session", zap.Error(err))
	}
	h.Render(w, r, "expenses_list", data)
}
