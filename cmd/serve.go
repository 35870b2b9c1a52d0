package cmd

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"
	"github.com/vitalratel/resumewright-sub005/internal/config"
	"github.com/vitalratel/resumewright-sub005/internal/server"
)

func serveCmd() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the conversion service",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "port",
				Usage:   "HTTP listen port",
				Sources: cli.EnvVars("RW_SERVER_PORT"),
			},
			&cli.StringFlag{
				Name:    "storage",
				Usage:   "Storage backend (memory, sqlite, postgres)",
				Sources: cli.EnvVars("RW_STORAGE_BACKEND"),
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg, err := config.Load(cmd.String("config"))
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			if v := cmd.Int("port"); v != 0 {
				cfg.Server.Port = int(v)
			}
			if v := cmd.String("storage"); v != "" {
				cfg.Storage.Backend = v
			}
			if v := cmd.String("log-level"); v != "" {
				cfg.Logging.Level = v
			}

			return server.Run(ctx, cfg)
		},
	}
}
