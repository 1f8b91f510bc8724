package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/starford/schemasync/internal"
	pkgconfig "github.com/starford/schemasync/pkg/config"
)

var version = "dev"

func loadConfig(cmd *cli.Command) (*internal.Config, error) {
	configPath := cmd.String("config")

	cfg := internal.NewDefaultConfig()
	load := pkgconfig.LoadOptional[internal.Config]
	if cmd.IsSet("config") {
		load = pkgconfig.Load[internal.Config]
	}
	if err := load(configPath, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if dir := cmd.String("migrations-dir"); dir != "" {
		cfg.Migrations.Path = dir
	}
	if reg := cmd.String("registry"); reg != "" {
		cfg.Registry.Path = reg
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func action(mode internal.Mode) cli.ActionFunc {
	return func(ctx context.Context, cmd *cli.Command) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		opts := []internal.Option{
			internal.WithConfig(cfg),
			internal.WithMode(mode),
			internal.WithDryRun(cmd.Bool("dry-run")),
			internal.WithVersion(version),
		}

		if err := internal.Run(ctx, opts...); err != nil {
			return fmt.Errorf("%s: %w", mode, err)
		}
		return nil
	}
}

func main() {
	cmd := &cli.Command{
		Name:    "schemasync",
		Usage:   "Keep migration table definitions in sync with a central template registry",
		Version: version,
		Action:  action(internal.ModeSync),
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "Path to config file",
				DefaultText: "config/config.yaml",
				Value:       "config/config.yaml",
				Sources:     cli.EnvVars("SCHEMASYNC_CONFIG_FILE"),
			},
			&cli.StringFlag{
				Name:    "migrations-dir",
				Aliases: []string{"d"},
				Usage:   "Migration directory (overrides migrations.path)",
				Sources: cli.EnvVars("SCHEMASYNC_MIGRATIONS_DIR"),
			},
			&cli.StringFlag{
				Name:    "registry",
				Aliases: []string{"r"},
				Usage:   "Template registry file (overrides registry.path)",
				Sources: cli.EnvVars("SCHEMASYNC_REGISTRY_FILE"),
			},
			&cli.BoolFlag{
				Name:  "dry-run",
				Usage: "Report what would change without writing files",
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "sync",
				Usage:  "Rewrite every matching migration with its template",
				Action: action(internal.ModeSync),
			},
			{
				Name:   "check",
				Usage:  "Fail when any migration is out of date with the registry",
				Action: action(internal.ModeCheck),
			},
			{
				Name:   "list",
				Usage:  "Show each template pattern and the files it matches",
				Action: action(internal.ModeList),
			},
			{
				Name:   "watch",
				Usage:  "Synchronize, then again whenever the registry or a migration changes",
				Action: action(internal.ModeWatch),
			},
			{
				Name:   "mcp",
				Usage:  "Serve schemasync tools over MCP on stdio",
				Action: action(internal.ModeMCP),
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
