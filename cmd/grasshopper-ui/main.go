package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/CUL-DigitalServices/grasshopper-ui/internal/build"
	"github.com/CUL-DigitalServices/grasshopper-ui/internal/config"
	"github.com/CUL-DigitalServices/grasshopper-ui/internal/prefs"
	"github.com/CUL-DigitalServices/grasshopper-ui/internal/session"
	"github.com/CUL-DigitalServices/grasshopper-ui/internal/web"
	"github.com/CUL-DigitalServices/grasshopper-ui/pkg/client"
)

var (
	// Version is set during build
	Version = "dev"
	// BuildTime is set during build
	BuildTime = "unknown"
)

// sweepInterval is how often idle page sessions are dropped
const sweepInterval = time.Minute

// UIServer bundles the long running components of the UI server
type UIServer struct {
	preferences *prefs.Preferences
	sessions    *session.Manager
	webServer   *web.WebServer
	logger      *logrus.Logger
	gateLogger  *zap.Logger
}

func main() {
	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})

	var configPath string

	rootCmd := &cobra.Command{
		Use:   "grasshopper-ui",
		Short: "Grasshopper timetabling UI",
		Long: `grasshopper-ui serves the global admin, timetable admin and student
timetable apps of Grasshopper, and builds their static assets.`,
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Configuration file (can also be set via GRASSHOPPER_UI_* env vars)")

	loadConfig := func() (config.Config, error) {
		cfg, err := config.LoadConfig(configPath)
		if err != nil {
			return cfg, err
		}
		configureLogger(log, cfg.Log)
		return cfg, nil
	}

	rootCmd.AddCommand(&cobra.Command{
		Use:   "serve",
		Short: "Serve the UI apps",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			log.Infof("Starting grasshopper-ui %s (built at %s)", Version, BuildTime)
			return runServer(log, cfg)
		},
	})

	var watch, minify bool
	buildCmd := &cobra.Command{
		Use:   "build",
		Short: "Build the static assets into the target directory",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			pipeline := build.NewPipeline(pipelineOptions(cfg.Build, minify), log)

			ctx, cancel := signalContext()
			defer cancel()

			if watch {
				log.WithField("source", cfg.Build.Source).Info("Watching for changes. Press Ctrl+C to stop.")
				return pipeline.Watch(ctx, cfg.Build.WatchDebounce)
			}
			return pipeline.Run(ctx)
		},
	}
	buildCmd.Flags().BoolVar(&watch, "watch", false, "Rebuild whenever the source tree changes")
	buildCmd.Flags().BoolVar(&minify, "minify", true, "Minify scripts, styles and markup")
	rootCmd.AddCommand(buildCmd)

	rootCmd.AddCommand(&cobra.Command{
		Use:   "release <dir>",
		Short: "Build a release into dir and point the app configuration at it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			opts := pipelineOptions(cfg.Build, true)
			opts.Target = args[0]

			ctx, cancel := signalContext()
			defer cancel()
			return build.NewPipeline(opts, log).Release(ctx)
		},
	})

	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the version number",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("grasshopper-ui %s (built at %s)\n", Version, BuildTime)
		},
	})

	if err := rootCmd.Execute(); err != nil {
		log.Fatalf("Failed to execute command: %v", err)
	}
}

// configureLogger applies the level and format of the configuration
func configureLogger(log *logrus.Logger, cfg config.LogConfig) {
	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		log.Warnf("Unknown log level %q, using info", cfg.Level)
		level = logrus.InfoLevel
	}
	log.SetLevel(level)

	if cfg.Format == "json" {
		log.SetFormatter(&logrus.JSONFormatter{})
	}
}

func pipelineOptions(cfg config.BuildConfig, minify bool) build.Options {
	return build.Options{
		Source: cfg.Source,
		Target: cfg.Target,
		Entry:  cfg.Entry,
		Apps:   cfg.Apps,
		Minify: minify,
	}
}

// signalContext is cancelled on SIGINT or SIGTERM
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

func runServer(log *logrus.Logger, cfg config.Config) error {
	// Create context with cancellation for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	server, err := createServer(ctx, log, cfg)
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	// Set up signal handling for graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	log.Info("grasshopper-ui is running. Press Ctrl+C to stop.")

	sig := <-sigCh
	log.Infof("Received signal %v, shutting down...", sig)

	cancel()

	if err := shutdownServer(server); err != nil {
		log.Errorf("Error during shutdown: %v", err)
	}

	log.Info("Shutdown complete")
	return nil
}

func createServer(ctx context.Context, log *logrus.Logger, cfg config.Config) (*UIServer, error) {
	server := &UIServer{logger: log}

	gateLogger, err := newGateLogger(cfg.Log)
	if err != nil {
		return nil, fmt.Errorf("failed to create gate logger: %w", err)
	}
	server.gateLogger = gateLogger

	if log.GetLevel() < logrus.DebugLevel {
		gin.SetMode(gin.ReleaseMode)
	}

	// Initialize the preference store
	store, err := prefs.Open(cfg.Prefs.PrefsOptions(), log)
	if err != nil {
		return nil, fmt.Errorf("failed to open preference store: %w", err)
	}
	server.preferences = prefs.New(store, log)

	// Every page session talks to the API through its own client, so the
	// API session cookie stays with the browser that signed in
	factory := func() client.API {
		return client.NewClient(cfg.API.BaseURL, client.WithTimeout(cfg.API.Timeout))
	}
	server.sessions = session.NewManager(factory, cfg.Server.SessionIdleTimeout, log, gateLogger)
	server.sessions.StartSweeping(ctx, sweepInterval)

	webServer, err := web.NewWebServer(cfg.Server, cfg.Auth, server.sessions, server.preferences, log)
	if err != nil {
		server.preferences.Close()
		return nil, fmt.Errorf("failed to create web server: %w", err)
	}
	server.webServer = webServer

	if err := webServer.Start(); err != nil {
		server.preferences.Close()
		return nil, fmt.Errorf("failed to start web server: %w", err)
	}

	return server, nil
}

// newGateLogger builds the zap logger of the single-flight gates
func newGateLogger(cfg config.LogConfig) (*zap.Logger, error) {
	if cfg.Format == "json" {
		return zap.NewProduction()
	}
	if cfg.Level == "debug" || cfg.Level == "trace" {
		return zap.NewDevelopment()
	}
	return zap.NewNop(), nil
}

func shutdownServer(server *UIServer) error {
	if server.webServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := server.webServer.Stop(ctx); err != nil {
			server.logger.Errorf("Failed to stop web server: %v", err)
		}
	}

	if server.preferences != nil {
		if err := server.preferences.Close(); err != nil {
			server.logger.Errorf("Failed to close preference store: %v", err)
		}
	}

	if server.gateLogger != nil {
		_ = server.gateLogger.Sync()
	}

	return nil
}
