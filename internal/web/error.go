package web

import (
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// ErrorHandler is a middleware that handles errors
func ErrorHandler(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		// Process request
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}

		err := c.Errors.Last().Err
		logger.Errorf("Error handling request: %v", err)

		if wantsJSON(c) {
			c.JSON(http.StatusInternalServerError, ErrorResponse{
				Error:   "internal_server_error",
				Code:    http.StatusInternalServerError,
				Message: err.Error(),
			})
			return
		}

		// Render error page for HTML requests
		c.HTML(http.StatusInternalServerError, "error.html", gin.H{
			"error":    err.Error(),
			"back_url": backURL(c.Request.URL.Path),
		})
	}
}

// RecoveryHandler is a middleware that recovers from panics
func RecoveryHandler(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				logger.Errorf("Panic recovered: %v\n%s", r, debug.Stack())

				if wantsJSON(c) {
					c.JSON(http.StatusInternalServerError, ErrorResponse{
						Error:   "internal_server_error",
						Code:    http.StatusInternalServerError,
						Message: fmt.Sprintf("Internal server error: %v", r),
					})
				} else {
					c.HTML(http.StatusInternalServerError, "error.html", gin.H{
						"error":    fmt.Sprintf("Internal server error: %v", r),
						"back_url": backURL(c.Request.URL.Path),
					})
				}

				c.Abort()
			}
		}()

		c.Next()
	}
}

// LoggingMiddleware is a middleware that logs requests
func LoggingMiddleware(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := logger.WithFields(logrus.Fields{
			"method": c.Request.Method,
			"path":   c.Request.URL.Path,
			"ip":     c.ClientIP(),
		})

		start.Debug("Request started")

		// Process request
		c.Next()

		end := logger.WithFields(logrus.Fields{
			"method":   c.Request.Method,
			"path":     c.Request.URL.Path,
			"ip":       c.ClientIP(),
			"status":   c.Writer.Status(),
			"size":     c.Writer.Size(),
			"duration": c.Writer.Header().Get("X-Response-Time"),
		})

		if len(c.Errors) > 0 {
			end.Error("Request completed with errors")
		} else {
			end.Info("Request completed")
		}
	}
}

// renderErrorPage renders the error page
func (ws *WebServer) renderErrorPage(c *gin.Context, status int, errorMsg, backURL string) {
	c.HTML(status, "error.html", gin.H{
		"error":    errorMsg,
		"back_url": backURL,
	})
}

// wantsJSON checks if the client asked for a JSON response
func wantsJSON(c *gin.Context) bool {
	return c.NegotiateFormat(gin.MIMEHTML, gin.MIMEJSON) == gin.MIMEJSON
}

// backURL returns the landing page of the app serving path
func backURL(path string) string {
	switch {
	case hasPrefix(path, AdminPrefix):
		return AdminPrefix
	case hasPrefix(path, TimetableAdminPrefix):
		return TimetableAdminPrefix
	default:
		return "/"
	}
}

// hasPrefix reports whether path is prefix or below it
func hasPrefix(path, prefix string) bool {
	return path == prefix || len(path) > len(prefix) && path[:len(prefix)] == prefix && path[len(prefix)] == '/'
}
