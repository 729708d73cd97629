// internal/app/features/groups/actions.go
package groups

import (
	"net/http"

	"github.com/dalemusser/fintrack/internal/app/system/csrf"
	"github.com/dalemusser/fintrack/internal/app/system/flash"
	"github.com/dalemusser/fintrack/internal/app/system/formutil"
	"github.com/dalemusser/fintrack/internal/app/system/normalize"
	"github.com/dalemusser/fintrack/internal/app/system/ratelimit"
	"github.com/dalemusser/fintrack/internal/app/system/workflow"
	"github.com/dalemusser/waffle/pantry/text"
	"go.uber.org/zap"
)

/*─────────────────────────────────────────────────────────────────────────────*
| POST /groups/create                                                         |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	sc := h.Sessions.Context(r)
	in := workflow.CreateGroupInput{
		Name:   r.FormValue("name"),
		Secret: r.FormValue("secret"),
	}
	res, err := h.Workflow.CreateGroup(r.Context(), sc, csrf.TokenFromRequest(r), in)
	formutil.Finish(w, r, sc, res, err, h.Log)
}

/*─────────────────────────────────────────────────────────────────────────────*
| POST /groups/join                                                           |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) HandleJoin(w http.ResponseWriter, r *http.Request) {
	sc := h.Sessions.Context(r)
	token := csrf.TokenFromRequest(r)
	in := workflow.JoinGroupInput{
		Name:   r.FormValue("name"),
		Secret: r.FormValue("secret"),
	}

	// Forged requests go straight to the workflow, which rejects them
	// without touching the limiter. Successful joins do not reset the
	// group's count, so one member joining cannot clear a guesser's tally.
	secret, _ := sc.CSRFSecret()
	if h.JoinLimiter != nil && csrf.Validate(secret, token) == nil {
		if ok, msg := h.JoinLimiter.Check(r, joinSubject(in.Name)); !ok {
			h.Log.Info("group join rate limited", zap.String("ip", ratelimit.ClientIP(r)))
			sc.SetFlash(flash.Error(msg))
			formutil.Redirect(w, r, sc, workflow.GroupsPath, h.Log)
			return
		}
	}

	res, err := h.Workflow.JoinGroup(r.Context(), sc, token, in)
	formutil.Finish(w, r, sc, res, err, h.Log)
}

// joinSubject keys the limiter on the same folded name the group lookup
// uses, so spelling variants of one group share a bucket.
func joinSubject(name string) string {
	folded := text.Fold(normalize.Name(name))
	if folded == "" {
		return ""
	}
	return "group:" + folded
}

/*─────────────────────────────────────────────────────────────────────────────*
| POST /groups/active                                                         |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) HandleSetActive(w http.ResponseWriter, r *http.Request) {
	sc := h.Sessions.Context(r)
	res, err := h.Workflow.SetActiveGroup(r.Context(), sc, csrf.TokenFromRequest(r), r.FormValue("group_id"))
	formutil.Finish(w, r, sc, res, err, h.Log)
}

/*─────────────────────────────────────────────────────────────────────────────*
| POST /groups/leave                                                          |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) HandleLeave(w http.ResponseWriter, r *http.Request) {
	sc := h.Sessions.Context(r)
	res, err := h.Workflow.LeaveGroup(r.Context(), sc, csrf.TokenFromRequest(r), r.FormValue("group_id"))
	formutil.Finish(w, r, sc, res, err, h.Log)
}

/*─────────────────────────────────────────────────────────────────────────────*
| POST /groups/members/remove                                                 |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) HandleRemoveMember(w http.ResponseWriter, r *http.Request) {
	sc := h.Sessions.Context(r)
	res, err := h.Workflow.RemoveMember(r.Context(), sc, csrf.TokenFromRequest(r),
		r.FormValue("group_id"), r.FormValue("user_id"))
	formutil.Finish(w, r, sc, res, err, h.Log)
}

/*─────────────────────────────────────────────────────────────────────────────*
| POST /groups/delete                                                         |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	sc := h.Sessions.Context(r)
	res, err := h.Workflow.DeleteGroup(r.Context(), sc, csrf.TokenFromRequest(r), r.FormValue("group_id"))
	formutil.Finish(w, r, sc, res, err, h.Log)
}
