// internal/app/features/register/handler.go
package register

import (
	"context"
	"errors"
	"net/http"
	"strings"

	uierrors "github.com/dalemusser/fintrack/internal/app/features/errors"
	"github.com/dalemusser/fintrack/internal/app/store"
	"github.com/dalemusser/fintrack/internal/app/system/auth"
	"github.com/dalemusser/fintrack/internal/app/system/authutil"
	"github.com/dalemusser/fintrack/internal/app/system/csrf"
	"github.com/dalemusser/fintrack/internal/app/system/formutil"
	"github.com/dalemusser/fintrack/internal/app/system/inputval"
	"github.com/dalemusser/fintrack/internal/app/system/normalize"
	"github.com/dalemusser/fintrack/internal/app/system/timeouts"
	"github.com/dalemusser/fintrack/internal/app/system/viewdata"
	"github.com/dalemusser/fintrack/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/templates"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const (
	msgMissing   = "Please fill out all fields."
	msgBadEmail  = "Please enter a valid email."
	msgMismatch  = "Passwords do not match."
	msgDuplicate = "That email is already registered."
)

type Handler struct {
	Users    store.UserStore
	Logins   store.SessionStore
	Sessions *auth.SessionManager
	Log      *zap.Logger

	// HashCost is the bcrypt cost for new passwords.
	HashCost int

	Render func(w http.ResponseWriter, r *http.Request, name string, data any)
}

func NewHandler(users store.UserStore, logins store.SessionStore, sm *auth.SessionManager, logger *zap.Logger) *Handler {
	return &Handler{
		Users:    users,
		Logins:   logins,
		Sessions: sm,
		Log:      logger,
		HashCost: bcrypt.DefaultCost,
		Render:   templates.Render,
	}
}

// registerInput is validated after the all-fields check.
type registerInput struct {
	FullName string `validate:"max=100" label:"Name"`
	Email    string `validate:"emailaddr,max=254" label:"Email"`
	Password string `validate:"min=8,maxbytes=72" label:"Password"`
	Confirm  string `validate:"eqfield=Password" label:"Password confirmation"`
}

type formData struct {
	viewdata.BaseVM
	Error    string
	FullName string
	Email    string
}

/*─────────────────────────────────────────────────────────────────────────────*
| GET /register                                                               |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) ServeRegister(w http.ResponseWriter, r *http.Request) {
	if _, ok := auth.CurrentUser(r); ok {
		http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
		return
	}
	h.renderForm(w, r, "", registerInput{})
}

/*─────────────────────────────────────────────────────────────────────────────*
| POST /register                                                              |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	sc := h.Sessions.Context(r)

	secret, _ := sc.CSRFSecret()
	if err := csrf.Validate(secret, csrf.TokenFromRequest(r)); err != nil {
		uierrors.CSRFFailed(w)
		return
	}

	in := registerInput{
		FullName: normalize.Name(r.FormValue("full_name")),
		Email:    normalize.Email(r.FormValue("email")),
		Password: r.FormValue("password"),
		Confirm:  r.FormValue("confirm"),
	}
	if msg := check(in); msg != "" {
		h.renderForm(w, r, msg, in)
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), h.HashCost)
	if err != nil {
		h.Log.Error("register: hash password", zap.Error(err))
		uierrors.RenderServerError(w, r, "/register")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	u, err := h.Users.Create(ctx, models.User{
		FullName:     in.FullName,
		Email:        in.Email,
		PasswordHash: string(hash),
	})
	switch {
	case errors.Is(err, store.ErrDuplicateEmail):
		h.renderForm(w, r, msgDuplicate, in)
		return
	case err != nil:
		h.Log.Error("register: create user", zap.Error(err))
		uierrors.RenderServerError(w, r, "/register")
		return
	}
	h.Log.Info("user registered", zap.String("user_id", u.ID.Hex()))

	if err := authutil.SignIn(r, sc, h.Logins, u, h.Log); err != nil {
		h.Log.Error("register: start session", zap.Error(err))
		uierrors.RenderServerError(w, r, "/login")
		return
	}
	formutil.Redirect(w, r, sc, "/dashboard", h.Log)
}

// check returns the first problem with in, or "".
func check(in registerInput) string {
	if in.FullName == "" || in.Email == "" || strings.TrimSpace(in.Password) == "" || in.Confirm == "" {
		return msgMissing
	}
	res := inputval.Validate(in)
	if !res.HasErrors() {
		return ""
	}
	switch e := res.Errors[0]; e.Rule {
	case "emailaddr":
		return msgBadEmail
	case "eqfield":
		return msgMismatch
	default:
		return e.Message
	}
}

func (h *Handler) renderForm(w http.ResponseWriter, r *http.Request, msg string, in registerInput) {
	sc := h.Sessions.Context(r)
	data := formData{
		BaseVM:   viewdata.NewBaseVM(r, sc, "Register", h.Log),
		Error:    msg,
		FullName: in.FullName,
		Email:    in.Email,
	}
	if err := sc.Save(w); err != nil {
		h.Log.Error("save session", zap.Error(err))
	}
	h.Render(w, r, "register", data)
}
