package web

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"

	"github.com/CUL-DigitalServices/grasshopper-ui/internal/binder"
	"github.com/CUL-DigitalServices/grasshopper-ui/internal/session"
)

// Hidden fields every action form carries
const (
	// SelectorField names the element the action was raised on
	SelectorField = "_selector"
	// ReturnField is the page to go back to once the action completed
	ReturnField = "_return"
)

var errNoSession = errors.New("no page session")

// dispatchHandler runs the action bound to the posted event and selector of
// an app, then redirects back to the page that raised it. Outcomes reach the
// user through the session notifications.
func (ws *WebServer) dispatchHandler(prefix, fallback string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := c.Request.ParseForm(); err != nil {
			ws.renderErrorPage(c, http.StatusBadRequest, fmt.Sprintf("Invalid form: %v", err), fallback)
			return
		}

		values := url.Values{}
		for name, vals := range c.Request.PostForm {
			values[name] = append([]string(nil), vals...)
		}
		selector := values.Get(SelectorField)
		target := returnURL(values.Get(ReturnField), fallback)
		values.Del(SelectorField)
		values.Del(ReturnField)

		sess := ws.session(c)
		event := binder.Event(c.Param("event"))
		err := ws.bindings[prefix].Dispatch(c.Request.Context(), event, selector, values, sess.Notifications)
		if errors.Is(err, binder.ErrUnbound) {
			ws.renderErrorPage(c, http.StatusNotFound, err.Error(), fallback)
			return
		}
		if err != nil {
			ws.logger.WithError(err).WithField("selector", selector).Debug("UI action failed")
		}

		c.Redirect(http.StatusSeeOther, target)
	}
}

// returnURL accepts only local absolute paths
func returnURL(target, fallback string) string {
	if !strings.HasPrefix(target, "/") || strings.HasPrefix(target, "//") || strings.HasPrefix(target, "/\\") {
		return fallback
	}
	return target
}

// messageFunc builds a notification from the submitted record
type messageFunc func(binder.Record) binder.Message

// message is a fixed notification
func message(title, body string) messageFunc {
	return func(binder.Record) binder.Message {
		return binder.Message{Title: title, Body: body}
	}
}

// titled is a notification naming a submitted field
func titled(format, field string) messageFunc {
	return func(r binder.Record) binder.Message {
		return binder.Message{Title: fmt.Sprintf(format, r.String(field))}
	}
}

// sessionCall is one remote operation on behalf of the session
type sessionCall func(ctx context.Context, sess *session.Context, r binder.Record) error

// submit adapts a session call to a form action. A successful call drops the
// cached trees of the session so the redirected page is fetched afresh.
func submit(call sessionCall, success, failure messageFunc) binder.Action {
	return func(ctx context.Context, in binder.Input) error {
		sess, ok := session.FromContext(ctx)
		if !ok {
			return errNoSession
		}

		s := binder.SubmitForm{
			Call: func(ctx context.Context, r binder.Record) error {
				return call(ctx, sess, r)
			},
			Refresh: func(context.Context) error {
				sess.Invalidate()
				return nil
			},
		}
		if success != nil {
			s.Success = success(in.Record)
		}
		if failure != nil {
			s.Failure = failure(in.Record)
		}
		return s.Action()(ctx, in)
	}
}

// credentials is the local sign in form
type credentials struct {
	Username string `binding:"required"`
	Password string `binding:"required"`
}

// loginAction signs the session in with the local strategy
func loginAction(failure messageFunc) binder.Action {
	return submit(func(ctx context.Context, sess *session.Context, r binder.Record) error {
		creds := credentials{Username: r.String("username"), Password: r.String("password")}
		if err := binding.Validator.ValidateStruct(&creds); err != nil {
			return err
		}
		return sess.API.Login(ctx, creds.Username, creds.Password)
	}, nil, failure)
}

// logoutAction signs the session out
func logoutAction() binder.Action {
	return submit(func(ctx context.Context, sess *session.Context, _ binder.Record) error {
		return sess.API.Logout(ctx)
	}, nil, message("Logout failed", "Logging out of the application failed"))
}
