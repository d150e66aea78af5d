package web

import (
	"context"
	"fmt"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/CUL-DigitalServices/grasshopper-ui/internal/binder"
	"github.com/CUL-DigitalServices/grasshopper-ui/internal/notify"
	"github.com/CUL-DigitalServices/grasshopper-ui/internal/prefs"
	"github.com/CUL-DigitalServices/grasshopper-ui/internal/render"
	"github.com/CUL-DigitalServices/grasshopper-ui/internal/session"
	"github.com/CUL-DigitalServices/grasshopper-ui/internal/tripos"
	"github.com/CUL-DigitalServices/grasshopper-ui/pkg/api"
)

// calendarView is the data of the module list and calendar
type calendarView struct {
	Part    int
	Modules []tripos.Module
}

// studentHandler renders the student timetable: the pickers, the module list
// of the selected part, or the empty timetable view when the part has no
// modules yet
func (ws *WebServer) studentHandler(c *gin.Context) {
	ctx := c.Request.Context()
	sess := ws.session(c)
	page := ws.renderer.NewPage().
		Declare("gh-header", "").
		Declare("gh-subheader", "").
		Declare("gh-main", "gh-content").
		Declare("gh-empty", "gh-content").
		Declare("gh-modal", "")
	data := ws.newPageData(c, "My Timetable", StudentPrefix, page)

	structure := ws.triposStructure(ctx, sess, "Could not fetch triposes", notify.DefaultErrorMessage)

	if err := page.Show("student-header.html", data, "gh-header"); err != nil {
		ws.renderFailed(c, err)
		return
	}
	pickers := newPickerView(c, structure)
	if err := page.Show("subheader-pickers.html", data.With(pickers), "gh-subheader"); err != nil {
		ws.renderFailed(c, err)
		return
	}

	if err := ws.showPart(ctx, sess, page, data, pickers.Part); err != nil {
		ws.renderFailed(c, err)
		return
	}

	if data.Me.Anon {
		if err := page.Show("login-modal.html", data, "gh-modal"); err != nil {
			ws.renderFailed(c, err)
			return
		}
	}

	ws.renderPage(c, "student.html", data)
}

// showPart renders the modules of a part into the calendar, or the empty
// timetable when the part has none
func (ws *WebServer) showPart(ctx context.Context, sess *session.Context, page *render.Page, data pageData, partID int) error {
	view := calendarView{Part: partID}

	if partID > 0 {
		units, err := sess.API.ListModules(ctx, partID)
		switch {
		case err != nil:
			ws.logger.WithError(err).Warn("Failed to fetch modules")
			sess.Notifications.Notify("Could not fetch modules", notify.DefaultErrorMessage, notify.Error)

		case len(units) == 0:
			unit, err := sess.API.GetOrgUnit(ctx, partID, true)
			if err != nil {
				ws.logger.WithError(err).Warn("Failed to fetch the part")
				sess.Notifications.Notify("Could not fetch the part", notify.DefaultErrorMessage, notify.Error)
				break
			}
			return page.Show("empty-timetable.html", data.With(gin.H{
				"Record": unit,
			}), "gh-empty")

		default:
			subscribed := ws.subscribedSeries(ctx, sess, data.Me)
			open := ws.prefs.Collapsed(ctx, prefsScope(ctx))
			view.Modules = tripos.BuildModules(units, subscribed, open)
		}
	}

	return page.Show("calendar.html", data.With(view), "gh-main")
}

// subscribedSeries returns the series in the calendar of a signed in user
func (ws *WebServer) subscribedSeries(ctx context.Context, sess *session.Context, me api.Me) []int {
	if me.Anon {
		return nil
	}

	ids, err := sess.API.ListSubscribedSeries(ctx)
	if err != nil {
		ws.logger.WithError(err).Warn("Failed to fetch the calendar series")
		sess.Notifications.Notify("Could not fetch your calendar", notify.DefaultErrorMessage, notify.Error)
		return nil
	}
	return ids
}

// studentBindings registers the actions of the student timetable
func (ws *WebServer) studentBindings() *binder.Registry {
	r := binder.NewRegistry(ws.logger)

	r.On(binder.Submit, ".gh-signin-form", loginAction(
		message("Could not sign you in", "Please check that you are entering a correct username & password"),
	))
	r.On(binder.Submit, "#gh-signout-form", logoutAction())

	r.On(binder.Click, ".gh-toggle-list", ws.toggleListAction)

	r.On(binder.Click, ".gh-add-all", seriesAction(true, "Could not add the module to your calendar"))
	r.On(binder.Click, ".gh-remove-all", seriesAction(false, "Could not remove the module from your calendar"))
	r.On(binder.Click, ".gh-add-series", seriesAction(true, "Could not add the series to your calendar"))
	r.On(binder.Click, ".gh-remove-series", seriesAction(false, "Could not remove the series from your calendar"))

	return r
}

// toggleListAction opens or closes one module of the list. The open state
// of every listed module is written back to the preferences.
func (ws *WebServer) toggleListAction(ctx context.Context, in binder.Input) error {
	scope := prefsScope(ctx)
	toggled := in.Record.String("id")

	open := make(map[string]bool)
	for _, id := range ws.prefs.Collapsed(ctx, scope) {
		open[id] = true
	}

	items := make([]prefs.ListItem, 0, len(in.Values["modules"]))
	for _, id := range in.Values["modules"] {
		state := open[id]
		if id == toggled {
			state = !state
		}
		items = append(items, prefs.ListItem{ID: id, Collapsed: state})
	}

	if _, err := ws.prefs.UpdateCollapsed(ctx, scope, items); err != nil {
		ws.logger.WithError(err).Warn("Failed to store the module list state")
	}
	return nil
}

// seriesAction adds or removes every posted series, one call at a time. The
// first failure is reported and stops the action.
func seriesAction(add bool, failure string) binder.Action {
	return func(ctx context.Context, in binder.Input) error {
		ids, err := parseIDs(in.Values[seriesField])
		if err != nil {
			in.Notifier.Notify(failure, notify.DefaultErrorMessage, notify.Error)
			return err
		}

		return submit(func(ctx context.Context, sess *session.Context, _ binder.Record) error {
			for _, id := range ids {
				var err error
				if add {
					err = sess.API.SubscribeSeries(ctx, id)
				} else {
					err = sess.API.UnsubscribeSeries(ctx, id)
				}
				if err != nil {
					return err
				}
			}
			return nil
		}, nil, message(failure, ""))(ctx, in)
	}
}

// seriesField is the repeated form field carrying series ids
const seriesField = "series"

func parseIDs(values []string) ([]int, error) {
	ids := make([]int, 0, len(values))
	for _, value := range values {
		id, err := strconv.Atoi(value)
		if err != nil {
			return nil, fmt.Errorf("invalid series %q: %w", value, err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}
