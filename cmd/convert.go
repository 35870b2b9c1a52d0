package cmd

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v3"
	"github.com/vitalratel/resumewright-sub005/internal/config"
	"github.com/vitalratel/resumewright-sub005/internal/core/checkpoint"
	"github.com/vitalratel/resumewright-sub005/internal/core/engine"
	"github.com/vitalratel/resumewright-sub005/internal/core/engine/render"
	"github.com/vitalratel/resumewright-sub005/internal/core/event"
	"github.com/vitalratel/resumewright-sub005/internal/core/job"
	"github.com/vitalratel/resumewright-sub005/internal/core/progress"
	"github.com/vitalratel/resumewright-sub005/internal/storage"
)

func convertCmd() *cli.Command {
	return &cli.Command{
		Name:      "convert",
		Usage:     "Convert a single résumé file to PDF (use - for stdin)",
		ArgsUsage: "<source-file>",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "Output PDF path (default: stdout)",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg, err := config.Load(cmd.String("config"))
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			source, err := readSource(cmd.Args().First())
			if err != nil {
				return err
			}

			// One-shot runs keep everything in memory; checkpoints are
			// pointless when the process exits right after the job.
			backend := storage.NewMemory()
			bus := event.NewBus()
			renderEngine := render.New(cfg.Engine.Binary)

			initializer := engine.NewInitializer(renderEngine, backend, bus, engine.LogIndicator{})
			if err := initializer.Initialize(ctx); err != nil {
				return fmt.Errorf("engine init: %w", err)
			}

			orchestrator := job.NewOrchestrator(renderEngine, checkpoint.NewStore(backend), progress.NewNotifier(bus), bus)
			result, err := orchestrator.Convert(ctx, source)
			if err != nil {
				return err
			}

			out := cmd.String("output")
			if out == "" || out == "-" {
				_, err = os.Stdout.Write(result.PDF)
				return err
			}
			if err := os.WriteFile(out, result.PDF, 0o644); err != nil {
				return fmt.Errorf("write output: %w", err)
			}
			log.Info().Str("output", out).Int("bytes", len(result.PDF)).Msg("PDF written")
			return nil
		},
	}
}

func readSource(path string) (string, error) {
	if path == "" {
		return "", fmt.Errorf("source file is required (use - for stdin)")
	}
	if path == "-" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return "", fmt.Errorf("read stdin: %w", err)
		}
		return string(data), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read source: %w", err)
	}
	return string(data), nil
}
