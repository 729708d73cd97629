// internal/app/features/home/handler.go
package home

import (
	"net/http"

	"github.com/dalemusser/fintrack/internal/app/system/auth"
	"github.com/dalemusser/fintrack/internal/app/system/viewdata"
	"github.com/dalemusser/waffle/pantry/templates"
	"go.uber.org/zap"
)

// Handler holds dependencies needed to serve the home page.
type Handler struct {
	Sessions *auth.SessionManager
	Log      *zap.Logger

	Render func(w http.ResponseWriter, r *http.Request, name string, data any)
}

func NewHandler(sm *auth.SessionManager, logger *zap.Logger) *Handler {
	return &Handler{
		Sessions: sm,
		Log:      logger,
		Render:   templates.Render,
	}
}

/*─────────────────────────────────────────────────────────────────────────────*
| GET / – landing                                                             |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) ServeRoot(w http.ResponseWriter, r *http.Request) {
	if _, ok := auth.CurrentUser(r); ok {
		http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
		return
	}

	sc := h.Sessions.Context(r)
	data := struct {
		viewdata.BaseVM
	}{
		BaseVM: viewdata.NewBaseVM(r, sc, "Welcome", h.Log),
	}
	if err := sc.Save(w); err != nil {
		h.Log.Error("save session", zap.Error(err))
	}
	h.Render(w, r, "home", data)
}
