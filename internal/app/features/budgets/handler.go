// internal/app/features/budgets/handler.go
package budgets

import (
	"net/http"

	"github.com/dalemusser/fintrack/internal/app/store"
	"github.com/dalemusser/fintrack/internal/app/system/auth"
	"github.com/dalemusser/fintrack/internal/app/system/workflow"
	"github.com/dalemusser/waffle/pantry/templates"
	"go.uber.org/zap"
)

// listLimit caps the budgets shown on the page.
const listLimit = 50

// Handler serves the budgets page and its two mutations.
type Handler struct {
	Stores   store.Stores
	Sessions *auth.SessionManager
	Workflow *workflow.Controller
	Log      *zap.Logger

	// Render is swapped out in tests.
	Render func(w http.ResponseWriter, r *http.Request, name string, data any)
}

func NewHandler(stores store.Stores, sm *auth.SessionManager, wf *workflow.Controller, logger *zap.Logger) *Handler {
	return &Handler{
		Stores:   stores,
		Sessions: sm,
		Workflow: wf,
		Log:      logger,
		Render:   templates.Render,
	}
}
