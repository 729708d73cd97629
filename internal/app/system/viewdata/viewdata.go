// internal/app/system/viewdata/viewdata.go
package viewdata

import (
	"net/http"

	"github.com/dalemusser/fintrack/internal/app/system/activegroup"
	"github.com/dalemusser/fintrack/internal/app/system/auth"
	"github.com/dalemusser/fintrack/internal/app/system/flash"
	"github.com/dalemusser/waffle/pantry/httpnav"
	"go.uber.org/zap"
)

// SiteName is shown in page titles and the header.
const SiteName = "FinTrack"

// BaseVM contains common fields for all view models.
// Embed this struct in your feature-specific view models.
//
// Usage:
//
//	type myPageData struct {
//	    viewdata.BaseVM
//	    // page-specific fields...
//	}
//
//	data := myPageData{
//	    BaseVM: viewdata.NewBaseVM(r, sc, "Page Title", log),
//	}
type BaseVM struct {
	SiteName string

	// User context (from the session)
	IsLoggedIn bool
	UserName   string

	// Page context
	Title       string
	CurrentPath string

	// CSRFToken goes in a hidden csrf_token field on every form.
	CSRFToken string

	// Flash is the one-shot outcome of the previous POST, if any.
	Flash *flash.Message

	// Group is the resolved active group; nil renders the
	// "create or join a group" prompt.
	Group   *activegroup.GroupContext
	IsOwner bool
}

// NewBaseVM fills the common fields and consumes the pending flash. The
// caller must save sc before writing the response body.
func NewBaseVM(r *http.Request, sc *auth.SessionContext, title string, log *zap.Logger) BaseVM {
	vm := BaseVM{
		SiteName:    SiteName,
		Title:       title,
		CurrentPath: httpnav.CurrentPath(r),
	}
	if sc == nil {
		return vm
	}

	if _, ok := sc.UserID(); ok {
		vm.IsLoggedIn = true
		vm.UserName = sc.DisplayName()
	}

	tok, err := sc.CSRFSecret()
	if err != nil && log != nil {
		log.Error("csrf secret", zap.Error(err))
	}
	vm.CSRFToken = tok

	if m, ok := sc.Flash(); ok {
		vm.Flash = &m
	}
	return vm
}

// WithGroup records the resolved group and whether the viewer owns it.
func (vm *BaseVM) WithGroup(g *activegroup.GroupContext, sc *auth.SessionContext) {
	vm.Group = g
	if g == nil || sc == nil {
		return
	}
	if uid, ok := sc.UserID(); ok {
		vm.IsOwner = g.IsOwner(uid)
	}
}
