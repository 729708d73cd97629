// internal/app/features/budgets/list.go
package budgets

import (
	"context"
	"net/http"

	uierrors "github.com/dalemusser/fintrack/internal/app/features/errors"
	"github.com/dalemusser/fintrack/internal/app/policy/grouppolicy"
	"github.com/dalemusser/fintrack/internal/app/system/inputval"
	"github.com/dalemusser/fintrack/internal/app/system/timeouts"
	"github.com/dalemusser/fintrack/internal/app/system/viewdata"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type budgetRow struct {
	ID        string
	Name      string
	StartDate string
	EndDate   string
	CreatedBy string
	CreatedAt string
	CanDelete bool
}

type listData struct {
	viewdata.BaseVM
	Budgets []budgetRow
}

/*─────────────────────────────────────────────────────────────────────────────*
| GET /budgets                                                                |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	sc := h.Sessions.Context(r)
	data := listData{BaseVM: viewdata.NewBaseVM(r, sc, "Budgets", h.Log)}

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

		list, err := h.Stores.Budgets.ListByGroup(ctx, g.ID, listLimit)
		if err != nil {
			h.Log.Error("list budgets", zap.String("group_id", g.ID.Hex()), zap.Error(err))
			uierrors.RenderServerError(w, r, "/dashboard")
			return
		}

		ids := make([]primitive.ObjectID, 0, len(list))
		for _, b := range list {
			ids = append(ids, b.CreatedBy)
		}
		names, err := h.Stores.Users.DisplayNames(ctx, ids)
		if err != nil {
			h.Log.Warn("load creator names", zap.Error(err))
		}

		for _, b := range list {
			row := budgetRow{
				ID:        b.ID.Hex(),
				Name:      b.Name,
				CreatedBy: names[b.CreatedBy],
				CreatedAt: b.CreatedAt.Format("2006-01-02 15:04"),
				CanDelete: grouppolicy.CanMutateResource(uid, grouppolicy.Resource{GroupID: b.GroupID, CreatedBy: b.CreatedBy}, *g),
			}
			if b.StartDate != nil {
				row.StartDate = b.StartDate.Format(inputval.DateLayout)
			}
			if b.EndDate != nil {
				row.EndDate = b.EndDate.Format(inputval.DateLayout)
			}
			data.Budgets = append(data.Budgets, row)
		}
	}

	// The flash was consumed and the group pointer may have moved.
	if err := sc.Save(w); err != nil {
		h.Log.Error("save session", zap.Error(err))
	}
	h.Render(w, r, "budgets_list", data)
}
