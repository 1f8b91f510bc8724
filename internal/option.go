package internal

import "io"

// Mode selects what Run does.
type Mode string

// Run modes.
const (
	ModeSync  Mode = "sync"
	ModeCheck Mode = "check"
	ModeList  Mode = "list"
	ModeWatch Mode = "watch"
	ModeMCP   Mode = "mcp"
)

// Option is a functional option for configuring the application.
type Option func(*application)

type application struct {
	config  *Config
	mode    Mode
	dryRun  bool
	out     io.Writer
	version string
}

// WithConfig sets the application configuration.
func WithConfig(cfg *Config) Option {
	return func(a *application) {
		a.config = cfg
	}
}

// WithMode sets the run mode. The default is ModeSync.
func WithMode(m Mode) Option {
	return func(a *application) {
		a.mode = m
	}
}

// WithDryRun reports outcomes without writing files.
func WithDryRun(dryRun bool) Option {
	return func(a *application) {
		a.dryRun = dryRun
	}
}

// WithOutput sets where status lines are printed. The default is stdout.
func WithOutput(w io.Writer) Option {
	return func(a *application) {
		a.out = w
	}
}

// WithVersion sets the version reported by the MCP server.
func WithVersion(v string) Option {
	return func(a *application) {
		a.version = v
	}
}
