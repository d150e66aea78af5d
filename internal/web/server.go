package web

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/CUL-DigitalServices/grasshopper-ui/internal/aggregate"
	"github.com/CUL-DigitalServices/grasshopper-ui/internal/binder"
	"github.com/CUL-DigitalServices/grasshopper-ui/internal/build"
	"github.com/CUL-DigitalServices/grasshopper-ui/internal/config"
	"github.com/CUL-DigitalServices/grasshopper-ui/internal/render"
)

//go:embed templates/*.html
var templatesFS embed.FS

// URL prefixes of the apps
const (
	AdminPrefix          = "/admin"
	TimetableAdminPrefix = "/timetable-admin"
	StudentPrefix        = ""
)

// WebServer serves the global admin, timetable admin and student apps
type WebServer struct {
	host          string
	port          int
	router        *gin.Engine
	renderer      *render.Renderer
	sessions      SessionManager
	prefs         PreferenceStore
	walker        *aggregate.Walker
	bindings      map[string]*binder.Registry
	auth          config.AuthConfig
	assetsDir     string
	manifest      build.Manifest
	secureCookies bool
	logger        *logrus.Logger
	server        *http.Server
	mu            sync.RWMutex
}

// NewWebServer creates a new web server instance
func NewWebServer(
	cfg config.ServerConfig,
	auth config.AuthConfig,
	sessions SessionManager,
	preferences PreferenceStore,
	logger *logrus.Logger,
) (*WebServer, error) {
	if logger == nil {
		logger = logrus.New()
	}

	ws := &WebServer{
		host:          cfg.Host,
		port:          cfg.Port,
		router:        gin.New(),
		sessions:      sessions,
		prefs:         preferences,
		walker:        aggregate.NewWalker(logger),
		auth:          auth,
		assetsDir:     cfg.AssetsDir,
		manifest:      build.Manifest{},
		secureCookies: cfg.SecureCookies,
		logger:        logger,
	}

	ws.loadManifest()

	if err := ws.initTemplates(); err != nil {
		return nil, fmt.Errorf("failed to initialize templates: %w", err)
	}

	ws.setupBindings()
	ws.setupMiddleware()
	ws.setupRoutes()
	ws.setupStaticFiles()

	return ws, nil
}

// Router returns the HTTP handler of the server
func (ws *WebServer) Router() *gin.Engine {
	return ws.router
}

// loadManifest reads the hashes.json of the served asset tree, if any
func (ws *WebServer) loadManifest() {
	if ws.assetsDir == "" {
		return
	}

	path := filepath.Join(ws.assetsDir, build.ManifestFile)
	manifest, err := build.LoadManifest(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			ws.logger.WithField("path", path).Debug("No asset manifest, serving logical asset paths")
		} else {
			ws.logger.WithError(err).Warn("Failed to load asset manifest")
		}
		return
	}

	ws.manifest = manifest
	ws.logger.WithField("assets", len(manifest)).Info("Loaded asset manifest")
}

// asset resolves a logical asset path to its hashed path
func (ws *WebServer) asset(path string) string {
	return ws.manifest.Resolve(path)
}

// initTemplates parses the embedded HTML templates
func (ws *WebServer) initTemplates() error {
	renderer, err := render.New(templatesFS, template.FuncMap{"asset": ws.asset}, "templates/*.html")
	if err != nil {
		return err
	}

	ws.renderer = renderer
	ws.router.SetHTMLTemplate(renderer.Templates())
	return nil
}

// setupBindings registers the UI actions of every app
func (ws *WebServer) setupBindings() {
	ws.bindings = map[string]*binder.Registry{
		AdminPrefix:          ws.adminBindings(),
		TimetableAdminPrefix: ws.timetableAdminBindings(),
		StudentPrefix:        ws.studentBindings(),
	}
}

// setupMiddleware sets up the middleware
func (ws *WebServer) setupMiddleware() {
	// Add recovery middleware
	ws.router.Use(RecoveryHandler(ws.logger))

	// Add logging middleware
	ws.router.Use(LoggingMiddleware(ws.logger))

	// Add error handling middleware
	ws.router.Use(ErrorHandler(ws.logger))

	// Add metrics middleware
	ws.router.Use(MetricsMiddleware())

	// Add response time middleware
	ws.router.Use(ResponseTimeMiddleware())
}

// setupRoutes sets up the HTTP routes
func (ws *WebServer) setupRoutes() {
	ws.router.GET("/healthz", ws.healthHandler)
	ws.router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	pages := ws.router.Group("/", ws.sessionMiddleware())

	// Global administration
	admin := pages.Group(AdminPrefix)
	{
		admin.GET("", func(c *gin.Context) {
			c.Redirect(http.StatusFound, AdminPrefix+"/tenants")
		})
		admin.GET("/tenants", ws.adminHandler("tenants", ws.showTenants))
		admin.GET("/configuration", ws.adminHandler("configuration", ws.showConfiguration))
		admin.GET("/users", ws.adminHandler("users", ws.showAdministrators))
		admin.POST("/actions/:event", ws.dispatchHandler(AdminPrefix, AdminPrefix+"/tenants"))
	}

	// Timetable administration
	timetableAdmin := pages.Group(TimetableAdminPrefix)
	{
		timetableAdmin.GET("", ws.timetableAdminHandler)
		timetableAdmin.POST("/actions/:event", ws.dispatchHandler(TimetableAdminPrefix, TimetableAdminPrefix))
	}

	// Student timetable
	pages.GET("/", ws.studentHandler)
	pages.POST("/actions/:event", ws.dispatchHandler(StudentPrefix, "/"))
}

// setupStaticFiles serves the built asset tree
func (ws *WebServer) setupStaticFiles() {
	if ws.assetsDir == "" {
		return
	}
	ws.ServeStaticFiles(filepath.Join(ws.assetsDir, "shared"), "/shared")
}

// Start starts the web server
func (ws *WebServer) Start() error {
	ws.mu.Lock()
	defer ws.mu.Unlock()

	addr := net.JoinHostPort(ws.host, strconv.Itoa(ws.port))
	ws.logger.Infof("Starting web server on %s", addr)

	ws.server = &http.Server{
		Addr:              addr,
		Handler:           ws.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Start the server in a goroutine
	server := ws.server
	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			ws.logger.Errorf("Failed to start web server: %v", err)
		}
	}()

	return nil
}

// Stop stops the web server
func (ws *WebServer) Stop(ctx context.Context) error {
	ws.mu.Lock()
	defer ws.mu.Unlock()

	if ws.server == nil {
		return nil
	}

	ws.logger.Info("Stopping web server")

	// Shutdown the server with a timeout
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := ws.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown web server: %w", err)
	}

	ws.server = nil
	return nil
}
