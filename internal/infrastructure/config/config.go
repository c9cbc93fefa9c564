// Package config loads the typed application configuration. Ambient
// environment lookups happen exactly once, in Load; the resulting Config is
// threaded explicitly into the adapter constructors.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Backend kinds selectable at composition time.
const (
	BackendREST = "rest"
	BackendOdoo = "odoo"
)

// Config holds all application configuration.
type Config struct {
	App     AppConfig
	Backend BackendConfig
	Session SessionConfig
	Log     LogConfig
}

// AppConfig holds application-specific settings.
type AppConfig struct {
	Name string
	Env  string
}

// BackendConfig selects and parameterizes the backend integration.
type BackendConfig struct {
	Kind     string        // rest or odoo
	BaseURL  string        // e.g. http://localhost:8069
	Database string        // ERP database name (odoo backend)
	Timeout  time.Duration // per-request transport timeout
}

// SessionConfig holds session persistence settings.
type SessionConfig struct {
	Path string        // session file path (empty = user config dir default)
	TTL  time.Duration // lifetime of a freshly saved session
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, console
	Output string // stdout, stderr, or file path
}

// Load loads configuration from a TOML file and environment variables. An
// empty path searches the working directory and $HOME/.config/uniondash for
// config.toml. Priority (highest to lowest):
//  1. Environment variables with UNIONDASH_ prefix (e.g. UNIONDASH_BACKEND_BASE_URL)
//  2. config.toml
//  3. Built-in defaults
func Load(path string) (*Config, error) {
	v := viper.New()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("toml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.config/uniondash")
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// No config file is fine; defaults and env vars apply.
	}

	v.SetEnvPrefix("UNIONDASH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &Config{
		App: AppConfig{
			Name: v.GetString("app.name"),
			Env:  v.GetString("app.env"),
		},
		Backend: BackendConfig{
			Kind:     v.GetString("backend.kind"),
			BaseURL:  v.GetString("backend.base_url"),
			Database: v.GetString("backend.database"),
			Timeout:  v.GetDuration("backend.timeout"),
		},
		Session: SessionConfig{
			Path: v.GetString("session.path"),
			TTL:  v.GetDuration("session.ttl"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
			Output: v.GetString("log.output"),
		},
	}

	applyDefaults(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyDefaults sets default values for any empty config fields.
func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "uniondash"
	}
	if cfg.App.Env == "" {
		cfg.App.Env = "development"
	}
	if cfg.Backend.Kind == "" {
		cfg.Backend.Kind = BackendREST
	}
	if cfg.Backend.BaseURL == "" {
		cfg.Backend.BaseURL = "http://localhost:8069"
	}
	if cfg.Backend.Database == "" {
		cfg.Backend.Database = "ranchi"
	}
	if cfg.Backend.Timeout == 0 {
		cfg.Backend.Timeout = 30 * time.Second
	}
	if cfg.Session.TTL == 0 {
		cfg.Session.TTL = 24 * time.Hour
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "console"
	}
	if cfg.Log.Output == "" {
		cfg.Log.Output = "stdout"
	}
}

// validate performs validation on the configuration.
func (c *Config) validate() error {
	switch c.Backend.Kind {
	case BackendREST, BackendOdoo:
	default:
		return fmt.Errorf("backend.kind must be %q or %q, got %q", BackendREST, BackendOdoo, c.Backend.Kind)
	}
	if c.Backend.Timeout < 0 {
		return fmt.Errorf("backend.timeout cannot be negative")
	}
	if c.Backend.Kind == BackendOdoo && c.Backend.Database == "" {
		return fmt.Errorf("backend.database is required for the odoo backend")
	}
	return nil
}
