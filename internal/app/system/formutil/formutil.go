// Package formutil finishes form POSTs the same way everywhere: save the
// session that carries the flash, then send the browser to a GET page
// with 303 See Other so a refresh never repeats the POST.
package formutil

import (
	"errors"
	"net/http"

	uierrors "github.com/dalemusser/fintrack/internal/app/features/errors"
	"github.com/dalemusser/fintrack/internal/app/system/workflow"
	"go.uber.org/zap"
)

// Saver persists a session to the response.
type Saver interface {
	Save(w http.ResponseWriter) error
}

// Finish writes the response for a workflow outcome. A CSRF failure is a
// bare 403 with no redirect; everything else redirects to res.Redirect.
func Finish(w http.ResponseWriter, r *http.Request, sess Saver, res workflow.Result, err error, log *zap.Logger) {
	if errors.Is(err, workflow.ErrCSRF) {
		uierrors.CSRFFailed(w)
		return
	}
	if err != nil {
		log.Error("workflow returned an unexpected error", zap.Error(err))
		uierrors.RenderServerError(w, r, "")
		return
	}
	Redirect(w, r, sess, res.Redirect, log)
}

// Redirect saves the session and issues a 303 to target.
func Redirect(w http.ResponseWriter, r *http.Request, sess Saver, target string, log *zap.Logger) {
	if err := sess.Save(w); err != nil {
		log.Error("save session", zap.Error(err))
		uierrors.RenderServerError(w, r, "")
		return
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}
