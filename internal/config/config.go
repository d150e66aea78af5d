// Package config loads the server and build configuration
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/CUL-DigitalServices/grasshopper-ui/internal/prefs"
)

// Config is the complete configuration of grasshopper-ui
type Config struct {
	Server ServerConfig `mapstructure:"server"`
	API    APIConfig    `mapstructure:"api"`
	Auth   AuthConfig   `mapstructure:"auth"`
	Prefs  PrefsConfig  `mapstructure:"prefs"`
	Build  BuildConfig  `mapstructure:"build"`
	Log    LogConfig    `mapstructure:"log"`
}

// ServerConfig configures the UI server
type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
	// AssetsDir holds the shared/ tree served under /shared. Point it at
	// target/optimized to serve hashed assets.
	AssetsDir          string        `mapstructure:"assetsDir"`
	SessionIdleTimeout time.Duration `mapstructure:"sessionIdleTimeout"`
	SecureCookies      bool          `mapstructure:"secureCookies"`
}

// APIConfig points at the Grasshopper REST API
type APIConfig struct {
	BaseURL string        `mapstructure:"baseURL"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// AuthConfig selects the sign in strategies offered by the UI
type AuthConfig struct {
	EnableLocalAuth      bool   `mapstructure:"enableLocalAuth"`
	EnableShibbolethAuth bool   `mapstructure:"enableShibbolethAuth"`
	ShibbolethURL        string `mapstructure:"shibbolethURL"`
}

// PrefsConfig configures the preference store
type PrefsConfig struct {
	Backend    string        `mapstructure:"backend"`
	SQLitePath string        `mapstructure:"sqlitePath"`
	Redis      RedisConfig   `mapstructure:"redis"`
	TTL        time.Duration `mapstructure:"ttl"`
}

// RedisConfig configures the redis preference backend
type RedisConfig struct {
	Address   string `mapstructure:"address"`
	Password  string `mapstructure:"password"`
	DB        int    `mapstructure:"db"`
	KeyPrefix string `mapstructure:"keyPrefix"`
}

// BuildConfig configures the asset pipeline
type BuildConfig struct {
	Source string `mapstructure:"source"`
	Target string `mapstructure:"target"`
	// Entry is the root module of the AMD bundle
	Entry string `mapstructure:"entry"`
	// Apps are the app directories that carry an apache/app.conf template
	Apps          []string      `mapstructure:"apps"`
	WatchDebounce time.Duration `mapstructure:"watchDebounce"`
}

// LogConfig configures logging
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// PrefsOptions converts the configuration for prefs.Open
func (c PrefsConfig) PrefsOptions() prefs.Options {
	return prefs.Options{
		Backend:       c.Backend,
		SQLitePath:    c.SQLitePath,
		RedisAddress:  c.Redis.Address,
		RedisPassword: c.Redis.Password,
		RedisDB:       c.Redis.DB,
		KeyPrefix:     c.Redis.KeyPrefix,
		TTL:           c.TTL,
	}
}

// Address returns the listen address of the server
func (c ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.assetsDir", ".")
	v.SetDefault("server.sessionIdleTimeout", 2*time.Hour)
	v.SetDefault("server.secureCookies", false)

	v.SetDefault("api.baseURL", "http://localhost:2000")
	v.SetDefault("api.timeout", 30*time.Second)

	v.SetDefault("auth.enableLocalAuth", true)
	v.SetDefault("auth.enableShibbolethAuth", false)
	v.SetDefault("auth.shibbolethURL", "/api/auth/shibboleth")

	v.SetDefault("prefs.backend", prefs.BackendSQLite)
	v.SetDefault("prefs.sqlitePath", "grasshopper-ui.db")
	v.SetDefault("prefs.redis.address", "localhost:6379")
	v.SetDefault("prefs.redis.keyPrefix", "grasshopper-ui:prefs:")
	v.SetDefault("prefs.ttl", 365*24*time.Hour)

	v.SetDefault("build.source", ".")
	v.SetDefault("build.target", "target")
	v.SetDefault("build.entry", "gh.core")
	v.SetDefault("build.apps", []string{"admin", "timetable"})
	v.SetDefault("build.watchDebounce", 500*time.Millisecond)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
}

// LoadConfig reads the configuration file, when there is one, and the
// GRASSHOPPER_UI_ environment. An explicit path must exist; otherwise a
// missing file leaves the defaults in place.
func LoadConfig(path string) (Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("GRASSHOPPER_UI")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("grasshopper-ui")
		v.AddConfigPath("$HOME/.config/grasshopper-ui/")
		v.AddConfigPath("/etc/grasshopper-ui/")
		v.AddConfigPath(".")
	}

	var config Config
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return config, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	if err := v.Unmarshal(&config); err != nil {
		return config, fmt.Errorf("failed to unmarshal config file: %w", err)
	}
	return config, nil
}
