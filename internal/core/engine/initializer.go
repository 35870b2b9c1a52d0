package engine

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/vitalratel/resumewright-sub005/internal/core/event"
	"github.com/vitalratel/resumewright-sub005/internal/retry"
	"github.com/vitalratel/resumewright-sub005/internal/storage"
)

// Initializer drives the engine's one-time load: initializing → success or
// failed, where failed is re-enterable via Retry. The tri-state status is
// persisted so status readers never see a stale outcome from a previous
// process incarnation while a new attempt is underway.
type Initializer struct {
	engine    Engine
	status    statusStore
	bus       event.Bus
	indicator Indicator
	preset    retry.Config

	mu  sync.Mutex
	now func() time.Time
}

func NewInitializer(eng Engine, backend storage.Backend, bus event.Bus, indicator Indicator) *Initializer {
	return &Initializer{
		engine:    eng,
		status:    statusStore{backend: backend},
		bus:       bus,
		indicator: indicator,
		preset:    retry.ModuleInit,
		now:       time.Now,
	}
}

// Initialize loads the engine under the conservative retry preset. The
// primary outcome (nil or the load error) is the only thing that
// propagates; status writes and indicator updates are secondary and their
// failures are logged and swallowed.
func (i *Initializer) Initialize(ctx context.Context) error {
	i.mu.Lock()
	defer i.mu.Unlock()

	if err := i.status.writeInitializing(ctx); err != nil {
		log.Warn().Err(err).Msg("failed to persist initializing status")
	}
	i.updateIndicator(ctx, i.indicator.Busy)
	i.publish(ctx, event.EventEngineInitStarted, event.EngineEvent{Status: StatusInitializing})

	log.Info().Str("engine", i.engine.Name()).Msg("initializing rendering engine")

	_, err := retry.Do(ctx, i.preset, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, i.engine.Load(ctx)
	}, func(attempt int, delay time.Duration, cause error) {
		log.Warn().Err(cause).
			Int("attempt", attempt).
			Dur("retry_in", delay).
			Str("engine", i.engine.Name()).
			Msg("engine load failed, retrying")
	})

	if err != nil {
		if werr := i.status.writeFailed(ctx, err); werr != nil {
			log.Warn().Err(werr).Msg("failed to persist failed init status")
		}
		i.updateIndicator(ctx, func(ctx context.Context) error {
			return i.indicator.Attention(ctx, err.Error())
		})
		i.publish(ctx, event.EventEngineInitFailed, event.EngineEvent{Status: StatusFailed, Error: err.Error()})
		log.Error().Err(err).Str("engine", i.engine.Name()).Msg("engine initialization failed")
		return err
	}

	if werr := i.status.writeSuccess(ctx, i.now()); werr != nil {
		log.Warn().Err(werr).Msg("failed to persist successful init status")
	}
	i.updateIndicator(ctx, i.indicator.Ready)
	i.publish(ctx, event.EventEngineInitSucceeded, event.EngineEvent{Status: StatusSuccess})
	log.Info().Str("engine", i.engine.Name()).Msg("engine initialized")
	return nil
}

// Retry re-runs Initialize. failed is not terminal.
func (i *Initializer) Retry(ctx context.Context) error {
	return i.Initialize(ctx)
}

// Status returns the persisted tri-state record of the latest attempt.
func (i *Initializer) Status(ctx context.Context) (InitStatus, error) {
	return i.status.read(ctx)
}

func (i *Initializer) updateIndicator(ctx context.Context, update func(context.Context) error) {
	if err := update(ctx); err != nil {
		log.Warn().Err(err).Msg("engine indicator update failed")
		if rerr := i.status.recordIndicatorError(ctx, err); rerr != nil {
			log.Debug().Err(rerr).Msg("could not record indicator failure")
		}
	}
}

func (i *Initializer) publish(ctx context.Context, t event.EventType, payload event.EngineEvent) {
	_ = i.bus.Publish(ctx, event.Event{Type: t, Payload: payload})
}
