package web

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/CUL-DigitalServices/grasshopper-ui/internal/config"
	"github.com/CUL-DigitalServices/grasshopper-ui/internal/notify"
	"github.com/CUL-DigitalServices/grasshopper-ui/internal/render"
	"github.com/CUL-DigitalServices/grasshopper-ui/internal/resilience"
	"github.com/CUL-DigitalServices/grasshopper-ui/internal/session"
	"github.com/CUL-DigitalServices/grasshopper-ui/internal/tripos"
	"github.com/CUL-DigitalServices/grasshopper-ui/pkg/api"
)

// pageData is what page and container templates receive
type pageData struct {
	Title string
	// Prefix is the URL prefix of the app, used to build action URLs
	Prefix string
	// Return is the URL actions redirect back to
	Return  string
	Current string
	Page    *render.Page
	Me      api.Me
	Auth    config.AuthConfig

	Notifications []notify.Notification

	// View is the data of the container being rendered
	View interface{}
}

// With returns a copy of d carrying the data of one container
func (d pageData) With(view interface{}) pageData {
	d.View = view
	return d
}

// newPageData collects the data shared by every container of a page
func (ws *WebServer) newPageData(c *gin.Context, title, prefix string, page *render.Page) pageData {
	sess := ws.session(c)
	return pageData{
		Title:  title,
		Prefix: prefix,
		Return: c.Request.URL.RequestURI(),
		Page:   page,
		Me:     ws.currentUser(c.Request.Context(), sess),
		Auth:   ws.auth,
	}
}

// renderPage drains the pending notifications into the page and renders it
func (ws *WebServer) renderPage(c *gin.Context, templateID string, data pageData) {
	data.Notifications = ws.session(c).Notifications.Drain()
	c.HTML(http.StatusOK, templateID, data)
}

// renderFailed hands a render failure to the error middleware
func (ws *WebServer) renderFailed(c *gin.Context, err error) {
	_ = c.Error(err)
	c.Abort()
}

// currentUser returns the user of the session, asking the API once per
// session. A failed lookup is treated as anonymous.
func (ws *WebServer) currentUser(ctx context.Context, sess *session.Context) api.Me {
	if me, ok := sess.CachedMe(); ok {
		return me
	}

	me, err := sess.API.Me(ctx)
	if err != nil {
		ws.logger.WithError(err).Warn("Failed to fetch the current user")
		return api.Anonymous
	}

	sess.SetMe(me)
	return *me
}

// tenantTree fetches the tenants and aggregates their apps and, when
// withConfig is set, the configuration of every app. The listing and the
// walk run inside the tenant gate of the session. While another request of
// the session holds it, the last completed tree of the same kind is
// returned without any remote call.
func (ws *WebServer) tenantTree(ctx context.Context, sess *session.Context, withConfig bool) []api.Tenant {
	var tree []api.Tenant
	err := sess.TenantGate.Execute(ctx, func(ctx context.Context) error {
		tenants, err := sess.API.ListTenants(ctx)
		if err != nil {
			ws.logger.WithError(err).Warn("Failed to fetch tenants")
			sess.Notifications.Notify("Could not fetch system tenants", notify.DefaultErrorMessage, notify.Error)
		}

		// The gate is held, so the walk itself is not admitted again
		tree, err = ws.walker.Tenants(ctx, nil, sess.Notifications, sess.API, tenants, withConfig)
		return err
	})
	if err != nil {
		if !errors.Is(err, resilience.ErrInFlight) {
			ws.logger.WithError(err).Error("Tenant aggregation failed")
		}
		cached, ok := sess.Tenants(withConfig)
		if !ok {
			sess.Notifications.Notify("System tenants are still loading", "Please reload the page in a moment.", notify.Info)
		}
		return cached
	}

	api.SortTenants(tree)
	sess.SetTenants(tree, withConfig)
	return tree
}

// triposStructure fetches the tripos structure of the session. While another
// request is fetching it, the cached structure is returned.
func (ws *WebServer) triposStructure(ctx context.Context, sess *session.Context, failedTitle, failedMessage string) api.TriposStructure {
	if !sess.TriposGate.Enter() {
		if cached := sess.Tripos(); cached != nil {
			return *cached
		}
		return api.TriposStructure{}
	}
	defer sess.TriposGate.Leave()

	structure, err := sess.API.GetTriposStructure(ctx)
	if err != nil {
		ws.logger.WithError(err).Warn("Failed to fetch the tripos structure")
		sess.Notifications.Notify(failedTitle, failedMessage, notify.Error)
		if cached := sess.Tripos(); cached != nil {
			return *cached
		}
		return api.TriposStructure{}
	}

	sess.SetTripos(structure)
	return *structure
}

// pickerView is the data of the tripos pickers
type pickerView struct {
	Groups []tripos.PickerGroup
	Parts  []api.TriposNode
	Tripos int
	Part   int
}

// newPickerView builds the pickers with the tripos and part selected by the
// query string
func newPickerView(c *gin.Context, structure api.TriposStructure) pickerView {
	view := pickerView{
		Groups: tripos.Pickers(structure),
		Tripos: queryInt(c, "tripos"),
		Part:   queryInt(c, "part"),
	}
	if view.Tripos > 0 {
		view.Parts = tripos.Parts(structure, view.Tripos)
	}
	return view
}

// queryInt returns a positive integer query parameter, or 0
func queryInt(c *gin.Context, name string) int {
	value, err := strconv.Atoi(c.Query(name))
	if err != nil || value < 0 {
		return 0
	}
	return value
}
