// internal/app/features/groups/list.go
package groups

import (
	"context"
	"net/http"

	uierrors "github.com/dalemusser/fintrack/internal/app/features/errors"
	"github.com/dalemusser/fintrack/internal/app/policy/grouppolicy"
	"github.com/dalemusser/fintrack/internal/app/system/activegroup"
	"github.com/dalemusser/fintrack/internal/app/system/inputval"
	"github.com/dalemusser/fintrack/internal/app/system/timeouts"
	"github.com/dalemusser/fintrack/internal/app/system/viewdata"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type groupRow struct {
	ID       string
	Name     string
	IsOwner  bool
	IsActive bool
}

type memberRow struct {
	UserID    string
	Name      string
	JoinedAt  string
	IsOwner   bool
	IsYou     bool
	CanRemove bool
}

type listData struct {
	viewdata.BaseVM
	Groups   []groupRow
	Members  []memberRow
	CanLeave bool
}

/*─────────────────────────────────────────────────────────────────────────────*
| GET /groups                                                                 |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	sc := h.Sessions.Context(r)
	data := listData{BaseVM: viewdata.NewBaseVM(r, sc, "Groups", h.Log)}

	g, err := h.Workflow.Resolver().Resolve(r.Context(), sc)
	if err != nil {
		h.Log.Error("resolve active group", zap.Error(err))
		uierrors.RenderServerError(w, r, "/")
		return
	}
	data.WithGroup(g, sc)

	uid, _ := sc.UserID()
	if err := h.load(r.Context(), uid, g, &data); err != nil {
		h.Log.Error("load groups page", zap.String("user_id", uid.Hex()), zap.Error(err))
		uierrors.RenderServerError(w, r, "/dashboard")
		return
	}

	if err := sc.Save(w); err != nil {
		h.Log.Error("save session", zap.Error(err))
	}
	h.Render(w, r, "groups_list", data)
}

func (h *Handler) load(ctx context.Context, uid primitive.ObjectID, active *activegroup.GroupContext, data *listData) error {
	ctx, cancel := context.WithTimeout(ctx, timeouts.Medium())
	defer cancel()

	mine, err := h.Stores.Groups.ListForUser(ctx, uid)
	if err != nil {
		return err
	}
	for _, g := range mine {
		data.Groups = append(data.Groups, groupRow{
			ID:       g.ID.Hex(),
			Name:     g.Name,
			IsOwner:  g.OwnerID == uid,
			IsActive: active != nil && active.ID == g.ID,
		})
	}
	if active == nil {
		return nil
	}
	data.CanLeave = grouppolicy.CanLeave(uid, *active)

	members, err := h.Stores.Memberships.ListByGroup(ctx, active.ID)
	if err != nil {
		return err
	}
	ids := make([]primitive.ObjectID, 0, len(members))
	for _, m := range members {
		ids = append(ids, m.UserID)
	}
	names, err := h.Stores.Users.DisplayNames(ctx, ids)
	if err != nil {
		h.Log.Warn("load member names", zap.Error(err))
	}
	for _, m := range members {
		data.Members = append(data.Members, memberRow{
			UserID:    m.UserID.Hex(),
			Name:      names[m.UserID],
			JoinedAt:  m.JoinedAt.Format(inputval.DateLayout),
			IsOwner:   active.IsOwner(m.UserID),
			IsYou:     m.UserID == uid,
			CanRemove: grouppolicy.CanRemoveMember(uid, m.UserID, *active),
		})
	}
	return nil
}
