package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/starford/contextbridge/internal"
)

// loadConfig reads the config file, which must exist only when --config (or
// its env var) was given explicitly.
func loadConfig(cmd *cli.Command) (*internal.Config, error) {
	return internal.LoadConfig(cmd.String("config"), cmd.IsSet("config"), os.LookupEnv)
}

func serve(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := internal.Run(ctx, internal.WithConfig(cfg)); err != nil {
		return fmt.Errorf("app run error: %w", err)
	}
	return nil
}

func check(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	return internal.Check(ctx, internal.WithConfig(cfg), internal.WithConfigError(err))
}

func main() {
	cmd := &cli.Command{
		Name:   "contextbridge",
		Usage:  "MCP server that saves and restores conversation context in Notion",
		Action: serve,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "Path to config file (optional)",
				DefaultText: "config/config.yaml",
				Value:       "config/config.yaml",
				Sources:     cli.EnvVars("CONTEXTBRIDGE_CONFIG"),
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Serve the MCP tools over stdio (default)",
				Action: serve,
			},
			{
				Name:   "check",
				Usage:  "Validate the configuration and test the store connection",
				Action: check,
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
