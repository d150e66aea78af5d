package web

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/CUL-DigitalServices/grasshopper-ui/internal/session"
)

// Cookie names
const (
	// SessionCookie identifies the page session and its API client
	SessionCookie = "gh-session"
	// PrefsCookie is the anonymous browser id preferences are stored under
	PrefsCookie = "gh-prefs"
)

// prefsCookieMaxAge keeps the browser id for a year
const prefsCookieMaxAge = 365 * 24 * 60 * 60

const sessionKey = "session"

var (
	httpRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "grasshopper_ui_http_requests_total",
		Help: "HTTP requests served, by method, route and status",
	}, []string{"method", "route", "status"})

	httpDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "grasshopper_ui_http_request_duration_seconds",
		Help:    "Duration of HTTP requests, by method and route",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route"})
)

// MetricsMiddleware records request counts and durations per route
func MetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		httpRequests.WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).Inc()
		httpDuration.WithLabelValues(c.Request.Method, route).Observe(time.Since(start).Seconds())
	}
}

// ResponseTimeMiddleware stamps X-Response-Time on the response just before
// its headers are written
func ResponseTimeMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer = &timedWriter{ResponseWriter: c.Writer, start: time.Now()}
		c.Next()
	}
}

// timedWriter sets the elapsed time header while headers can still change
type timedWriter struct {
	gin.ResponseWriter
	start time.Time
}

func (w *timedWriter) stamp() {
	if !w.Written() && w.Header().Get("X-Response-Time") == "" {
		w.Header().Set("X-Response-Time", time.Since(w.start).String())
	}
}

func (w *timedWriter) WriteHeader(code int) {
	w.stamp()
	w.ResponseWriter.WriteHeader(code)
}

func (w *timedWriter) WriteHeaderNow() {
	w.stamp()
	w.ResponseWriter.WriteHeaderNow()
}

func (w *timedWriter) Write(data []byte) (int, error) {
	w.stamp()
	return w.ResponseWriter.Write(data)
}

func (w *timedWriter) WriteString(s string) (int, error) {
	w.stamp()
	return w.ResponseWriter.WriteString(s)
}

// sessionMiddleware attaches the page session and the preference scope of
// the browser to the request, issuing cookies for new ones
func (ws *WebServer) sessionMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, _ := c.Cookie(SessionCookie)
		sess, created := ws.sessions.Get(id)
		c.SetSameSite(http.SameSiteLaxMode)
		if created {
			c.SetCookie(SessionCookie, sess.ID, 0, "/", "", ws.secureCookies, true)
		}

		scope, err := c.Cookie(PrefsCookie)
		if _, parseErr := uuid.Parse(scope); err != nil || parseErr != nil {
			scope = uuid.New().String()
			c.SetCookie(PrefsCookie, scope, prefsCookieMaxAge, "/", "", ws.secureCookies, true)
		}

		c.Set(sessionKey, sess)
		ctx := session.WithContext(c.Request.Context(), sess)
		c.Request = c.Request.WithContext(withPrefsScope(ctx, scope))

		c.Next()
	}
}

// session returns the page session attached by sessionMiddleware
func (ws *WebServer) session(c *gin.Context) *session.Context {
	return c.MustGet(sessionKey).(*session.Context)
}

type prefsScopeKey struct{}

func withPrefsScope(ctx context.Context, scope string) context.Context {
	return context.WithValue(ctx, prefsScopeKey{}, scope)
}

// prefsScope returns the browser id preferences are stored under
func prefsScope(ctx context.Context) string {
	scope, _ := ctx.Value(prefsScopeKey{}).(string)
	return scope
}
