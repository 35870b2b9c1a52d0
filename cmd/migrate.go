package cmd

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"
	"github.com/vitalratel/resumewright-sub005/internal/config"
	"github.com/vitalratel/resumewright-sub005/internal/storage/postgres"
)

func migrateCmd() *cli.Command {
	return &cli.Command{
		Name:  "migrate",
		Usage: "Run PostgreSQL storage migrations",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "database-url",
				Usage:   "PostgreSQL connection string",
				Sources: cli.EnvVars("RW_DATABASE_URL"),
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg, err := config.Load(cmd.String("config"))
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if v := cmd.String("database-url"); v != "" {
				cfg.Storage.DatabaseURL = v
			}
			if cfg.Storage.DatabaseURL == "" {
				return fmt.Errorf("database URL is required (set RW_DATABASE_URL or --database-url)")
			}

			// Connect migrates on the way up; this command exists so
			// deployments can run migrations before rolling the service.
			store, err := postgres.Connect(ctx, cfg.Storage.DatabaseURL, cfg.Storage.MaxConnections)
			if err != nil {
				return err
			}
			store.Close()
			fmt.Println("migrations applied")
			return nil
		},
	}
}
