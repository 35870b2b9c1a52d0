package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/urfave/cli/v3"
	"github.com/vitalratel/resumewright-sub005/internal/config"
	"github.com/vitalratel/resumewright-sub005/internal/core/checkpoint"
	"github.com/vitalratel/resumewright-sub005/internal/server"
)

func jobsCmd() *cli.Command {
	return &cli.Command{
		Name:  "jobs",
		Usage: "Inspect persisted job state",
		Commands: []*cli.Command{
			{
				Name:  "scan",
				Usage: "Scan for checkpoints left behind by interrupted conversions",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "gc",
						Usage: "Delete stale checkpoints instead of only reporting them",
					},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					cfg, err := config.Load(cmd.String("config"))
					if err != nil {
						return fmt.Errorf("load config: %w", err)
					}

					backend, closeBackend, err := server.OpenBackend(ctx, cfg.Storage)
					if err != nil {
						return fmt.Errorf("storage backend: %w", err)
					}
					defer closeBackend()

					scanner := checkpoint.NewScanner(checkpoint.NewStore(backend), cfg.Jobs.FreshnessThreshold)
					scanner.GC = cmd.Bool("gc") || cfg.Jobs.GCStale
					report := scanner.Scan(ctx)

					fmt.Printf("orphaned: %d  stale: %d  removed: %d\n", len(report.Orphans), report.Stale, report.Removed)
					for _, orphan := range report.Orphans {
						fmt.Printf("  %s  %-16s interrupted %s ago\n", orphan.JobID, orphan.Status, orphan.Elapsed.Round(time.Second))
					}
					return nil
				},
			},
			{
				Name:  "list",
				Usage: "List all stored checkpoints",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					cfg, err := config.Load(cmd.String("config"))
					if err != nil {
						return fmt.Errorf("load config: %w", err)
					}

					backend, closeBackend, err := server.OpenBackend(ctx, cfg.Storage)
					if err != nil {
						return fmt.Errorf("storage backend: %w", err)
					}
					defer closeBackend()

					checkpoints, err := checkpoint.NewStore(backend).List(ctx)
					if err != nil {
						return fmt.Errorf("list checkpoints: %w", err)
					}
					if len(checkpoints) == 0 {
						fmt.Println("no checkpoints")
						return nil
					}
					for _, cp := range checkpoints {
						fmt.Printf("%s  %-16s started %s  updated %s\n",
							cp.JobID, cp.Status,
							cp.StartTime.Format("2006-01-02 15:04:05"),
							cp.LastUpdate.Format("2006-01-02 15:04:05"))
					}
					return nil
				},
			},
		},
	}
}
