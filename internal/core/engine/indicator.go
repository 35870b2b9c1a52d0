package engine

import (
	"context"

	"github.com/rs/zerolog/log"
)

// Indicator is the user-visible engine health surface (the badge analog).
// All calls are best-effort: callers swallow and log failures.
type Indicator interface {
	Busy(ctx context.Context) error
	Ready(ctx context.Context) error
	Attention(ctx context.Context, message string) error
}

// LogIndicator reports engine state through the process log.
type LogIndicator struct{}

func (LogIndicator) Busy(context.Context) error {
	log.Info().Msg("engine indicator: initializing")
	return nil
}

func (LogIndicator) Ready(context.Context) error {
	log.Info().Msg("engine indicator: ready")
	return nil
}

func (LogIndicator) Attention(_ context.Context, message string) error {
	log.Warn().Str("reason", message).Msg("engine indicator: attention required")
	return nil
}
