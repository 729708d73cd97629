// internal/app/features/budgets/actions.go
package budgets

import (
	"net/http"

	"github.com/dalemusser/fintrack/internal/app/system/csrf"
	"github.com/dalemusser/fintrack/internal/app/system/formutil"
	"github.com/dalemusser/fintrack/internal/app/system/workflow"
	"github.com/go-chi/chi/v5"
)

/*─────────────────────────────────────────────────────────────────────────────*
| POST /budgets                                                               |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	sc := h.Sessions.Context(r)
	in := workflow.BudgetInput{
		Name:      r.FormValue("name"),
		StartDate: r.FormValue("start_date"),
		EndDate:   r.FormValue("end_date"),
	}
	res, err := h.Workflow.AddBudget(r.Context(), sc, csrf.TokenFromRequest(r), in)
	formutil.Finish(w, r, sc, res, err, h.Log)
}

/*─────────────────────────────────────────────────────────────────────────────*
| POST /budgets/{id}/delete                                                   |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	sc := h.Sessions.Context(r)
	res, err := h.Workflow.DeleteBudget(r.Context(), sc, csrf.TokenFromRequest(r), chi.URLParam(r, "id"))
	formutil.Finish(w, r, sc, res, err, h.Log)
}
