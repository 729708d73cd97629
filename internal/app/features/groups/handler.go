// internal/app/features/groups/handler.go
package groups

import (
	"net/http"

	"github.com/dalemusser/fintrack/internal/app/store"
	"github.com/dalemusser/fintrack/internal/app/system/auth"
	"github.com/dalemusser/fintrack/internal/app/system/ratelimit"
	"github.com/dalemusser/fintrack/internal/app/system/workflow"
	"github.com/dalemusser/waffle/pantry/templates"
	"go.uber.org/zap"
)

// Handler is the shared dependency container for the groups feature: the
// listing page plus the six group workflow entry points.
type Handler struct {
	Stores   store.Stores
	Sessions *auth.SessionManager
	Workflow *workflow.Controller
	Log      *zap.Logger

	// JoinLimiter throttles join attempts per client and per group name.
	// Nil disables throttling.
	JoinLimiter *ratelimit.AttemptLimiter

	Render func(w http.ResponseWriter, r *http.Request, name string, data any)
}

func NewHandler(stores store.Stores, sm *auth.SessionManager, wf *workflow.Controller, joinLimiter *ratelimit.AttemptLimiter, logger *zap.Logger) *Handler {
	return &Handler{
		Stores:      stores,
		Sessions:    sm,
		Workflow:    wf,
		Log:         logger,
		JoinLimiter: joinLimiter,
		Render:      templates.Render,
	}
}
