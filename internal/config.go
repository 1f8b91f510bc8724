package internal

import (
	"log/slog"
	"regexp"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/schemasync/internal/resolver"
	"github.com/starford/schemasync/internal/rewriter"
	"github.com/starford/schemasync/internal/watch"
)

// Log formats.
const (
	LogFormatJSON = "json"
	LogFormatText = "text"
)

var extensionRe = regexp.MustCompile(`^\.[A-Za-z0-9_.]+$`)

// Config represents the application configuration.
type Config struct {
	App        ApplicationConfig `yaml:"app"`
	Migrations MigrationsConfig  `yaml:"migrations"`
	Registry   RegistryConfig    `yaml:"registry"`
	Rewrite    RewriteConfig     `yaml:"rewrite"`
	Sync       SyncConfig        `yaml:"sync"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return err
	}
	if err := c.Migrations.Validate(); err != nil {
		return err
	}
	if err := c.Registry.Validate(); err != nil {
		return err
	}
	if err := c.Rewrite.Validate(); err != nil {
		return err
	}
	return c.Sync.Validate()
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel  slog.Level `yaml:"log_level"`
	LogFormat string     `yaml:"log_format"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	if c.LogFormat == "" {
		c.LogFormat = LogFormatJSON
	}
	return validation.ValidateStruct(c,
		validation.Field(&c.LogFormat, validation.In(LogFormatJSON, LogFormatText)),
	)
}

// MigrationsConfig locates the migration files to rewrite.
type MigrationsConfig struct {
	Path      string `yaml:"path"`
	Extension string `yaml:"extension"`
}

// Validate validates the migrations configuration.
func (c *MigrationsConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
		validation.Field(&c.Extension, validation.Required, validation.Match(extensionRe)),
	)
}

// RegistryConfig holds the path to the template registry file.
type RegistryConfig struct {
	Path string `yaml:"path"`
}

// Validate validates the registry configuration.
func (c *RegistryConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	)
}

// RewriteConfig controls construct detection.
type RewriteConfig struct {
	Marker string `yaml:"marker"`
}

// Validate validates the rewrite configuration.
func (c *RewriteConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Marker, validation.Required),
	)
}

// SyncConfig holds synchronize and watch behaviour.
//
// FailOnUnmatched turns a template whose pattern matches no file into a
// failure instead of a warning.
type SyncConfig struct {
	FailOnUnmatched bool          `yaml:"fail_on_unmatched"`
	WatchDebounce   time.Duration `yaml:"watch_debounce"`
}

// Validate validates the sync configuration.
func (c *SyncConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.WatchDebounce, validation.Min(time.Duration(0))),
	)
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel:  slog.LevelInfo,
			LogFormat: LogFormatJSON,
		},
		Migrations: MigrationsConfig{
			Path:      "./database/migrations",
			Extension: resolver.DefaultExtension,
		},
		Registry: RegistryConfig{
			Path: "./config/templates.yaml",
		},
		Rewrite: RewriteConfig{
			Marker: rewriter.DefaultMarker,
		},
		Sync: SyncConfig{
			WatchDebounce: watch.DefaultDebounce,
		},
	}
}
