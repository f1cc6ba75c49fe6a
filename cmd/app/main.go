package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/starford/raido/internal"
	pkgconfig "github.com/starford/raido/pkg/config"
)

func loadConfig(cmd *cli.Command) (*internal.Config, error) {
	cfg := internal.NewDefaultConfig()
	if err := pkgconfig.Load(cmd.String("config"), cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}

func main() {
	configFlag := &cli.StringFlag{
		Name:        "config",
		Aliases:     []string{"c"},
		Usage:       "Path to config file",
		DefaultText: "config/config.yaml",
		Value:       "config/config.yaml",
		Sources:     cli.EnvVars("APP_CONFIG_FILE"),
	}
	userFlag := &cli.IntFlag{
		Name:  "user",
		Usage: "Acting user id (required for any mutation)",
	}

	cmd := &cli.Command{
		Name:  "raido",
		Usage: "Backup/import reconciliation engine for Markdown document backups",
		Flags: []cli.Flag{configFlag},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if err := internal.Run(ctx, internal.WithConfig(cfg)); err != nil {
				return fmt.Errorf("app run error: %w", err)
			}
			return nil
		},
		Commands: []*cli.Command{
			{
				Name:  "sync",
				Usage: "Run one reconciliation sweep of the backup directory",
				Flags: []cli.Flag{
					userFlag,
					&cli.BoolFlag{
						Name:  "dry-run",
						Usage: "Classify every file but perform no writes",
					},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					cfg, err := loadConfig(cmd)
					if err != nil {
						return err
					}
					return internal.RunSync(ctx, cfg, cmd.Int("user"), cmd.Bool("dry-run"))
				},
			},
			{
				Name:  "export",
				Usage: "Export every visible document to the backup directory",
				Flags: []cli.Flag{userFlag},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					cfg, err := loadConfig(cmd)
					if err != nil {
						return err
					}
					return internal.RunExport(ctx, cfg, cmd.Int("user"))
				},
			},
			{
				Name:  "mcp",
				Usage: "Serve the MCP stdio transport",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					cfg, err := loadConfig(cmd)
					if err != nil {
						return err
					}
					return internal.RunMCP(ctx, cfg)
				},
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
