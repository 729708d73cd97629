// internal/app/features/expenses/handler.go
package expenses

import (
	"net/http"
	"time"

	"github.com/dalemusser/fintrack/internal/app/store"
	"github.com/dalemusser/fintrack/internal/app/system/auth"
	"github.com/dalemusser/fintrack/internal/app/system/workflow"
	"github.com/dalemusser/waffle/pantry/templates"
	"go.uber.org/zap"
)

// listLimit caps the expenses shown on the page.
const listLimit = 50

// Handler serves the expenses page and its two mutations.
type Handler struct {
	Stores   store.Stores
	Sessions *auth.SessionManager
	Workflow *workflow.Controller
	Log      *zap.Logger

	// Render is swapped out in tests.
	Render func(w http.ResponseWriter, r *http.Request, name string, data any)

	// Now supplies the default date on the form.
	Now func() time.Time
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

func (h *Handler) now() time.Time {
	if h.Now == nil {
		return time.Now().UTC()
	}
	return h.Now().UTC()
}
