// internal/app/features/expenses/actions.go
package expenses

import (
	"net/http"

	"github.com/dalemusser/fintrack/internal/app/system/csrf"
	"github.com/dalemusser/fintrack/internal/app/system/formutil"
	"github.com/dalemusser/fintrack/internal/app/system/workflow"
	"github.com/go-chi/chi/v5"
)

/*─────────────────────────────────────────────────────────────────────────────*
| POST /expenses                                                              |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	sc := h.Sessions.Context(r)
	in := workflow.ExpenseInput{
		Amount:      r.FormValue("amount"),
		ExpenseDate: r.FormValue("expense_date"),
		Category:    r.FormValue("category"),
		Description: r.FormValue("description"),
		BudgetID:    r.FormValue("budget_id"),
	}
	res, err := h.Workflow.AddExpense(r.Context(), sc, csrf.TokenFromRequest(r), in)
	formutil.Finish(w, r, sc, res, err, h.Log)
}

/*─────────────────────────────────────────────────────────────────────────────*
| POST /expenses/{id}/delete                                                  |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	sc := h.Sessions.Context(r)
	res, err := h.Workflow.DeleteExpense(r.Context(), sc, csrf.TokenFromRequest(r), chi.URLParam(r, "id"))
	formutil.Finish(w, r, sc, res, err, h.Log)
}
