package web

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/CUL-DigitalServices/grasshopper-ui/internal/binder"
	"github.com/CUL-DigitalServices/grasshopper-ui/internal/notify"
	"github.com/CUL-DigitalServices/grasshopper-ui/internal/render"
	"github.com/CUL-DigitalServices/grasshopper-ui/internal/session"
	"github.com/CUL-DigitalServices/grasshopper-ui/internal/tripos"
	"github.com/CUL-DigitalServices/grasshopper-ui/pkg/api"
)

// Timetable admin views, selected with ?view=
const (
	ViewEditableParts = "editable-parts"
	ViewNewSeries     = "new-series"
	ViewBatchEdit     = "batch-edit"
)

// timetableAdminHandler renders the help and sign in form for anonymous
// users, otherwise the tripos pickers and the selected view
func (ws *WebServer) timetableAdminHandler(c *gin.Context) {
	ctx := c.Request.Context()
	sess := ws.session(c)
	page := ws.renderer.NewPage().
		Declare("gh-header", "").
		Declare("gh-subheader", "").
		Declare("gh-modules-container", "").
		Declare("gh-main", "")
	data := ws.newPageData(c, "Timetable Administration", TimetableAdminPrefix, page)

	if err := page.Show("timetable-admin-header.html", data, "gh-header"); err != nil {
		ws.renderFailed(c, err)
		return
	}

	if data.Me.Anon {
		if err := page.Show("timetable-admin-help.html", data, "gh-main"); err != nil {
			ws.renderFailed(c, err)
			return
		}
		if err := page.Show("timetable-admin-login.html", data, "gh-subheader"); err != nil {
			ws.renderFailed(c, err)
			return
		}
		ws.renderPage(c, "timetable-admin.html", data)
		return
	}

	structure := ws.triposStructure(ctx, sess, "Fetching triposes failed.", "An error occurred while fetching the triposes.")

	if err := page.Show("subheader-pickers.html", data.With(newPickerView(c, structure)), "gh-subheader"); err != nil {
		ws.renderFailed(c, err)
		return
	}
	if err := page.Show("tripos-help.html", data, "gh-modules-container"); err != nil {
		ws.renderFailed(c, err)
		return
	}

	var err error
	switch data.Current = c.DefaultQuery("view", ViewEditableParts); data.Current {
	case ViewNewSeries:
		err = ws.showNewSeries(c, structure, page, data)
	case ViewBatchEdit:
		err = ws.showBatchEdit(c, sess, page, data)
	default:
		data.Current = ViewEditableParts
		err = ws.showEditableParts(ctx, structure, page, data)
	}
	if err != nil {
		ws.renderFailed(c, err)
		return
	}

	ws.renderPage(c, "timetable-admin.html", data)
}

// showEditableParts renders the parts the user can edit. The help video is
// shown on top the first time only.
func (ws *WebServer) showEditableParts(ctx context.Context, structure api.TriposStructure, page *render.Page, data pageData) error {
	scope := prefsScope(ctx)
	showVideo := !ws.prefs.HideVideo(ctx, scope)

	err := page.Show("editable-parts.html", data.With(gin.H{
		"Parts":     tripos.EditableParts(structure),
		"ShowVideo": showVideo,
	}), "gh-main")
	if err != nil {
		return err
	}

	if showVideo {
		if err := ws.prefs.SetHideVideo(ctx, scope, true); err != nil {
			ws.logger.WithError(err).Warn("Failed to store the video preference")
		}
	}
	return nil
}

// showNewSeries renders the series creation form for a part
func (ws *WebServer) showNewSeries(c *gin.Context, structure api.TriposStructure, page *render.Page, data pageData) error {
	part, found := tripos.FindPart(structure, queryInt(c, "part"))
	return page.Show("new-series.html", data.With(gin.H{
		"Part":  part,
		"Found": found,
	}), "gh-main")
}

// showBatchEdit renders the batch edit view of a module and its series
func (ws *WebServer) showBatchEdit(c *gin.Context, sess *session.Context, page *render.Page, data pageData) error {
	var unit *api.OrgUnit
	if id := queryInt(c, "module"); id > 0 {
		var err error
		unit, err = sess.API.GetOrgUnit(c.Request.Context(), id, true)
		if err != nil {
			ws.logger.WithError(err).Warn("Failed to fetch the module")
			sess.Notifications.Notify("Could not fetch the module", notify.DefaultErrorMessage, notify.Error)
		}
	}

	return page.Show("batch-edit.html", data.With(gin.H{
		"Module": unit,
	}), "gh-main")
}

// timetableAdminBindings registers the actions of the timetable admin
func (ws *WebServer) timetableAdminBindings() *binder.Registry {
	r := binder.NewRegistry(ws.logger)

	r.On(binder.Submit, "#gh-signin-form", loginAction(
		message("Login failed", "Logging in to the application failed"),
	))
	r.On(binder.Submit, "#gh-signout-form", logoutAction())

	r.On(binder.Click, ".gh-hide-video", ws.videoAction(true))
	r.On(binder.Click, ".gh-play-video", ws.videoAction(false))

	return r
}

// videoAction hides the help video, or brings it back on top for the next
// page. Preferences are best effort.
func (ws *WebServer) videoAction(hide bool) binder.Action {
	return func(ctx context.Context, in binder.Input) error {
		if err := ws.prefs.SetHideVideo(ctx, prefsScope(ctx), hide); err != nil {
			ws.logger.WithError(err).Warn("Failed to store the video preference")
		}
		return nil
	}
}
