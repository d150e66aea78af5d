package web

import (
	"net/http"
	"path"
	"regexp"

	"github.com/gin-gonic/gin"
)

// hashedAsset matches file names carrying a content hash from the build
var hashedAsset = regexp.MustCompile(`\.[0-9a-f]{8}\.[A-Za-z0-9]+$`)

// StaticHandler handles static file requests
type StaticHandler struct {
	fs     http.FileSystem
	prefix string
}

// NewStaticHandler creates a new static file handler
func NewStaticHandler(dir string, prefix string) *StaticHandler {
	return &StaticHandler{
		fs:     http.Dir(dir),
		prefix: prefix,
	}
}

// Handle handles static file requests. Hashed files never change, so they
// are cached for a year.
func (h *StaticHandler) Handle(c *gin.Context) {
	name := c.Param("path")
	if name == "" || name == "/" {
		c.Status(http.StatusNotFound)
		return
	}

	// Clean the path to prevent directory traversal
	name = path.Clean("/" + name)

	if hashedAsset.MatchString(name) {
		c.Header("Cache-Control", "public, max-age=31536000, immutable")
	} else {
		c.Header("Cache-Control", "no-cache")
	}

	c.FileFromFS(name, h.fs)
}

// ServeStaticFiles serves static files from the given directory
func (ws *WebServer) ServeStaticFiles(dir string, urlPrefix string) {
	handler := NewStaticHandler(dir, urlPrefix)
	ws.router.GET(urlPrefix+"/*path", handler.Handle)
	ws.router.HEAD(urlPrefix+"/*path", handler.Handle)
}
