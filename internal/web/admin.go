package web

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"

	"github.com/CUL-DigitalServices/grasshopper-ui/internal/binder"
	"github.com/CUL-DigitalServices/grasshopper-ui/internal/notify"
	"github.com/CUL-DigitalServices/grasshopper-ui/internal/render"
	"github.com/CUL-DigitalServices/grasshopper-ui/internal/session"
	"github.com/CUL-DigitalServices/grasshopper-ui/pkg/api"
)

// adminView renders the content of one global admin page
type adminView func(c *gin.Context, sess *session.Context, page *render.Page, data pageData) error

// newAdminPage declares the containers of the global admin. The page
// containers are alternate views.
func (ws *WebServer) newAdminPage() *render.Page {
	return ws.renderer.NewPage().
		Declare("gh-header", "").
		Declare("gh-navigation-container", "").
		Declare("gh-tenants-container", "gh-admin").
		Declare("gh-configuration-container", "gh-admin").
		Declare("gh-administrators-container", "gh-admin")
}

// adminHandler renders the header and, for signed in users, the navigation
// and the current page
func (ws *WebServer) adminHandler(current string, view adminView) gin.HandlerFunc {
	return func(c *gin.Context) {
		sess := ws.session(c)
		page := ws.newAdminPage()
		data := ws.newPageData(c, "Grasshopper Administration", AdminPrefix, page)
		data.Current = current

		if err := page.Show("admin-header.html", data, "gh-header"); err != nil {
			ws.renderFailed(c, err)
			return
		}

		if !data.Me.Anon {
			if err := view(c, sess, page, data); err != nil {
				ws.renderFailed(c, err)
				return
			}
			if err := page.Show("admin-navigation.html", data, "gh-navigation-container"); err != nil {
				ws.renderFailed(c, err)
				return
			}
		}

		ws.renderPage(c, "admin.html", data)
	}
}

// showTenants renders the tenants with their apps
func (ws *WebServer) showTenants(c *gin.Context, sess *session.Context, page *render.Page, data pageData) error {
	tenants := ws.tenantTree(c.Request.Context(), sess, false)
	return page.Show("admin-tenants.html", data.With(gin.H{
		"Tenants": tenants,
	}), "gh-tenants-container")
}

// showConfiguration renders the configuration of every app
func (ws *WebServer) showConfiguration(c *gin.Context, sess *session.Context, page *render.Page, data pageData) error {
	tenants := ws.tenantTree(c.Request.Context(), sess, true)
	return page.Show("admin-configuration.html", data.With(gin.H{
		"Tenants":    tenants,
		"Checkboxes": binder.CheckboxesField,
	}), "gh-configuration-container")
}

// showAdministrators renders the global administrators
func (ws *WebServer) showAdministrators(c *gin.Context, sess *session.Context, page *render.Page, data pageData) error {
	administrators := []api.Administrator{}
	list, err := sess.API.ListAdmins(c.Request.Context(), "", 0)
	if err != nil {
		ws.logger.WithError(err).Warn("Failed to fetch administrators")
		sess.Notifications.Notify("Could not fetch admins", notify.DefaultErrorMessage, notify.Error)
	} else if list != nil {
		administrators = list.Rows
	}

	return page.Show("admin-administrators.html", data.With(gin.H{
		"Administrators": administrators,
	}), "gh-administrators-container")
}

// newAdministrator is the administrator creation form
type newAdministrator struct {
	Username    string `binding:"required"`
	DisplayName string `binding:"required"`
	Password    string `binding:"required"`
}

// adminBindings registers the actions of the global admin
func (ws *WebServer) adminBindings() *binder.Registry {
	r := binder.NewRegistry(ws.logger)

	r.On(binder.Submit, ".gh-signin-form", loginAction(
		message("Could not sign you in", "Please check that you are entering a correct username & password"),
	))
	r.On(binder.Submit, "#gh-signout-form", logoutAction())

	// Tenants and apps
	r.On(binder.Submit, "#gh-tenants-create-tenant-form", submit(
		func(ctx context.Context, sess *session.Context, rec binder.Record) error {
			_, err := sess.API.CreateTenant(ctx, rec.String("displayName"))
			return err
		},
		titled("System tenant %s successfully created", "displayName"),
		message("Could not create system tenant", ""),
	))
	r.On(binder.Submit, ".gh-tenants-app-create-form", submit(
		func(ctx context.Context, sess *session.Context, rec binder.Record) error {
			tenantID, err := rec.Int("tenantId")
			if err != nil {
				return err
			}
			_, err = sess.API.CreateApp(ctx, rec.String("displayName"), rec.String("host"), tenantID, api.AppTypeTimetable)
			return err
		},
		titled("System app %s successfully created", "displayName"),
		message("Could not create system app", ""),
	))
	r.On(binder.Submit, ".gh-tenants-app-update-form", submit(
		func(ctx context.Context, sess *session.Context, rec binder.Record) error {
			appID, err := rec.Int("appId")
			if err != nil {
				return err
			}
			return sess.API.UpdateApp(ctx, appID, rec.String("displayName"), rec.Bool("enabled"), rec.String("host"))
		},
		titled("System app %s successfully updated", "displayName"),
		message("Could not update the system app", ""),
	))

	// Configuration
	r.On(binder.Submit, ".gh-configuration-form", submit(
		func(ctx context.Context, sess *session.Context, rec binder.Record) error {
			appID, err := rec.Int("app")
			if err != nil {
				return err
			}
			return sess.API.UpdateConfig(ctx, appID, api.Config(rec.Without("app")))
		},
		message("System configuration updated", ""),
		message("System configuration not updated", ""),
	))

	// Administrators
	r.On(binder.Submit, "#gh-administrators-create-form", submit(
		func(ctx context.Context, sess *session.Context, rec binder.Record) error {
			form := newAdministrator{
				Username:    rec.String("username"),
				DisplayName: rec.String("displayName"),
				Password:    rec.String("password"),
			}
			if err := binding.Validator.ValidateStruct(&form); err != nil {
				return err
			}
			return sess.API.CreateAdmin(ctx, form.Username, form.DisplayName, form.Password)
		},
		titled("Administrator %s successfully created", "displayName"),
		titled("Could not create administrator: %s", "displayName"),
	))
	r.On(binder.Submit, ".gh-administrators-update-form", submit(
		func(ctx context.Context, sess *session.Context, rec binder.Record) error {
			userID, err := rec.Int("userId")
			if err != nil {
				return err
			}
			return sess.API.UpdateAdmin(ctx, userID, rec.String("displayName"))
		},
		titled("Administrator %s successfully updated", "displayName"),
		titled("Administrator %s could not be updated", "displayName"),
	))

	return r
}
