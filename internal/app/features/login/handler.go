// internal/app/features/login/handler.go
package login

import (
	"context"
	"errors"
	"net/http"

	uierrors "github.com/dalemusser/fintrack/internal/app/features/errors"
	"github.com/dalemusser/fintrack/internal/app/store"
	"github.com/dalemusser/fintrack/internal/app/system/auth"
	"github.com/dalemusser/fintrack/internal/app/system/authutil"
	"github.com/dalemusser/fintrack/internal/app/system/csrf"
	"github.com/dalemusser/fintrack/internal/app/system/formutil"
	"github.com/dalemusser/fintrack/internal/app/system/navigation"
	"github.com/dalemusser/fintrack/internal/app/system/normalize"
	"github.com/dalemusser/fintrack/internal/app/system/ratelimit"
	"github.com/dalemusser/fintrack/internal/app/system/timeouts"
	"github.com/dalemusser/fintrack/internal/app/system/viewdata"
	"github.com/dalemusser/waffle/pantry/query"
	"github.com/dalemusser/waffle/pantry/templates"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// msgInvalid is shown for every credential mismatch so the form does not
// reveal which emails are registered.
const msgInvalid = "Invalid login."

// dummyHash is compared against when the email is unknown so both paths
// cost one bcrypt check.
var dummyHash, _ = bcrypt.GenerateFromPassword([]byte("fintrack-login-placeholder"), bcrypt.DefaultCost)

type Handler struct {
	Users    store.UserStore
	Logins   store.SessionStore
	Sessions *auth.SessionManager
	Limiter  *ratelimit.AttemptLimiter
	Log      *zap.Logger

	Render func(w http.ResponseWriter, r *http.Request, name string, data any)
}

func NewHandler(users store.UserStore, logins store.SessionStore, sm *auth.SessionManager, limiter *ratelimit.AttemptLimiter, logger *zap.Logger) *Handler {
	return &Handler{
		Users:    users,
		Logins:   logins,
		Sessions: sm,
		Limiter:  limiter,
		Log:      logger,
		Render:   templates.Render,
	}
}

/*─────────────────────────────────────────────────────────────────────────────*
| Template-data                                                               |
*─────────────────────────────────────────────────────────────────────────────*/

type formData struct {
	viewdata.BaseVM
	Error     string
	Email     string
	ReturnURL string
}

/*─────────────────────────────────────────────────────────────────────────────*
| GET /login                                                                  |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) ServeLogin(w http.ResponseWriter, r *http.Request) {
	h.renderForm(w, r, http.StatusOK, "", "")
}

/*─────────────────────────────────────────────────────────────────────────────*
| POST /login                                                                 |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) HandleLoginPost(w http.ResponseWriter, r *http.Request) {
	sc := h.Sessions.Context(r)

	secret, _ := sc.CSRFSecret()
	if err := csrf.Validate(secret, csrf.TokenFromRequest(r)); err != nil {
		uierrors.CSRFFailed(w)
		return
	}

	email := normalize.Email(r.FormValue("email"))
	password := r.FormValue("password")

	if h.Limiter != nil {
		if ok, msg := h.Limiter.Check(r, email); !ok {
			h.Log.Info("login rate limited", zap.String("ip", ratelimit.ClientIP(r)))
			h.renderForm(w, r, http.StatusTooManyRequests, msg, email)
			return
		}
	}

	if email == "" || password == "" {
		h.renderForm(w, r, http.StatusOK, msgInvalid, email)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	u, err := h.Users.GetByEmail(ctx, email)
	switch {
	case errors.Is(err, store.ErrNotFound):
		_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(password))
		h.renderForm(w, r, http.StatusOK, msgInvalid, email)
		return
	case err != nil:
		h.Log.Error("login: find user", zap.Error(err))
		uierrors.RenderServerError(w, r, "/login")
		return
	}

	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		h.renderForm(w, r, http.StatusOK, msgInvalid, email)
		return
	}

	if h.Limiter != nil {
		h.Limiter.Succeeded(email)
	}
	if err := authutil.SignIn(r, sc, h.Logins, u, h.Log); err != nil {
		h.Log.Error("login: start session", zap.Error(err))
		uierrors.RenderServerError(w, r, "/login")
		return
	}
	h.Log.Info("user signed in", zap.String("user_id", u.ID.Hex()))

	formutil.Redirect(w, r, sc, navigation.SafeBackURL(r, navigation.AfterSignIn), h.Log)
}

func (h *Handler) renderForm(w http.ResponseWriter, r *http.Request, status int, msg, email string) {
	sc := h.Sessions.Context(r)
	data := formData{
		BaseVM:    viewdata.NewBaseVM(r, sc, "Log in", h.Log),
		Error:     msg,
		Email:     email,
		ReturnURL: query.Get(r, "return"),
	}
	if data.ReturnURL == "" {
		data.ReturnURL = r.FormValue("return")
	}
	if err := sc.Save(w); err != nil {
		h.Log.Error("save session", zap.Error(err))
	}
	w.WriteHeader(status)
	h.Render(w, r, "login", data)
}
