package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/starford/perthro/internal"
	"github.com/starford/perthro/internal/mcpserver"
	"github.com/starford/perthro/internal/particleservice"
	"github.com/starford/perthro/internal/search"
	"github.com/starford/perthro/internal/store"
	pkgconfig "github.com/starford/perthro/pkg/config"
)

func run(ctx context.Context, cmd *cli.Command) error {
	configPath := cmd.String("config")

	cfg := internal.NewDefaultConfig()
	loaded, err := pkgconfig.LoadIfPresent(configPath, cfg)
	if err != nil {
		return fmt.Errorf("failed to parse config: %w", err)
	}
	if !loaded {
		slog.Warn("config file not found, running on defaults", slog.String("path", configPath))
	}

	if cmd.Bool("mcp") {
		return runMCP(cfg)
	}

	opts := []internal.Option{
		internal.WithConfig(cfg),
		internal.WithConfigPath(configPath),
	}

	if err := internal.Run(ctx, opts...); err != nil {
		return fmt.Errorf("app run error: %w", err)
	}

	return nil
}

// runMCP serves the particle tools over MCP stdio instead of HTTP.
func runMCP(cfg *internal.Config) error {
	db, err := store.Open(cfg.SQLite.Path)
	if err != nil {
		return fmt.Errorf("init store: %w", err)
	}
	defer db.Close()

	svc := particleservice.NewService(db)
	engine := search.NewEngine(db, cfg.Search.CandidateLimit)
	return mcpserver.New(svc, engine, cfg.MCP.Owner).ServeStdio()
}

func main() {
	cmd := &cli.Command{
		Name:   "perthro",
		Usage:  "Personal particle store with full-text, substring, and fuzzy search",
		Action: run,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "Path to config file",
				DefaultText: "config/config.yaml",
				Value:       "config/config.yaml",
				Sources:     cli.EnvVars("APP_CONFIG_FILE"),
			},
			&cli.BoolFlag{
				Name:  "mcp",
				Usage: "Serve MCP tools over stdio instead of the HTTP API",
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
