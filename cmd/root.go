package cmd

import (
	"github.com/urfave/cli/v3"
)

var version = "dev"

func App() *cli.Command {
	return &cli.Command{
		Name:    "resumewright",
		Version: version,
		Usage:   "Résumé to PDF conversion service with crash-safe job tracking",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to TOML config file",
				Sources: cli.EnvVars("RESUMEWRIGHT_CONFIG_PATH"),
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Value:   "info",
				Sources: cli.EnvVars("RW_LOGGING_LEVEL"),
			},
		},
		Commands: []*cli.Command{
			serveCmd(),
			convertCmd(),
			jobsCmd(),
			migrateCmd(),
		},
	}
}
