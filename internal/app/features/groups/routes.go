// internal/app/features/groups/routes.go
package groups

import (
	"github.com/dalemusser/fintrack/internal/app/system/auth"
	"github.com/go-chi/chi/v5"
)

func Routes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()

	// Everything under /groups requires authentication
	r.Group(func(pr chi.Router) {
		pr.Use(sm.RequireSignedIn)

		pr.Get("/", h.ServeList)

		pr.Post("/create", h.HandleCreate)
		pr.Post("/join", h.HandleJoin)
		pr.Post("/active", h.HandleSetActive)
		pr.Post("/leave", h.HandleLeave)
		pr.Post("/members/remove", h.HandleRemoveMember)
		pr.Post("/delete", h.HandleDelete)
	})

	return r
}
