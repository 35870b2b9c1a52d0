package job

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/vitalratel/resumewright-sub005/internal/core/checkpoint"
	"github.com/vitalratel/resumewright-sub005/internal/core/engine"
	"github.com/vitalratel/resumewright-sub005/internal/core/event"
	"github.com/vitalratel/resumewright-sub005/internal/core/progress"
	"github.com/vitalratel/resumewright-sub005/internal/retry"
)

// Orchestrator coordinates one conversion at a time per call: it owns the
// job id, the checkpoint lifecycle, and the retry loop around the engine.
type Orchestrator struct {
	engine      engine.Engine
	checkpoints *checkpoint.Store
	notifier    *progress.Notifier
	bus         event.Bus
	preset      retry.Config

	// KeepRawInput stores the résumé source in the checkpoint so an
	// orphaned job can be resubmitted without the original request.
	KeepRawInput bool

	newID func() string
}

func NewOrchestrator(eng engine.Engine, checkpoints *checkpoint.Store, notifier *progress.Notifier, bus event.Bus) *Orchestrator {
	return &Orchestrator{
		engine:      eng,
		checkpoints: checkpoints,
		notifier:    notifier,
		bus:         bus,
		preset:      retry.Default,
		newID:       uuid.NewString,
	}
}

// Convert runs source through the engine and returns the PDF. Tracking
// state and the checkpoint are torn down on every exit path, panics
// included: a checkpoint that survives this method means the process died.
func (o *Orchestrator) Convert(ctx context.Context, source string) (Result, error) {
	jobID := o.newID()
	start := time.Now()

	rawInput := ""
	if o.KeepRawInput {
		rawInput = source
	}
	o.checkpoints.Save(ctx, jobID, StageQueued, rawInput)
	o.notifier.StartTracking(jobID, "converting resume to PDF")
	o.publish(ctx, event.EventJobQueued, event.JobEvent{JobID: jobID, Stage: StageQueued})

	defer func() {
		o.notifier.StopTracking(jobID)
		// Cleanup must land even when ctx is already cancelled.
		o.checkpoints.Clear(context.WithoutCancel(ctx), jobID)
	}()

	onProgress := o.notifier.Callback(jobID)
	track := func(stage string, percentage float64) {
		o.checkpoints.SaveDetached(jobID, stage)
		onProgress(stage, percentage)
	}

	log.Info().Str("job_id", jobID).Int("source_bytes", len(source)).Msg("conversion started")

	pdf, err := retry.Do(ctx, o.preset, func(ctx context.Context) ([]byte, error) {
		return o.engine.Convert(ctx, source, track)
	}, func(attempt int, delay time.Duration, cause error) {
		log.Warn().Err(cause).
			Str("job_id", jobID).
			Int("attempt", attempt).
			Dur("retry_in", delay).
			Msg("conversion attempt failed, retrying")
		o.notifier.ReportRetry(jobID, attempt, o.preset.MaxAttempts, delay, cause)
	})

	elapsed := time.Since(start)
	if err != nil {
		cerr := o.classify(jobID, err)
		o.publish(ctx, event.EventJobFailed, event.JobEvent{
			JobID:     jobID,
			Stage:     cerr.Stage,
			Error:     cerr.Message,
			ElapsedMs: elapsed.Milliseconds(),
		})
		log.Error().Err(err).Str("job_id", jobID).Str("stage", cerr.Stage).Msg("conversion failed")
		return Result{}, cerr
	}

	o.publish(ctx, event.EventJobCompleted, event.JobEvent{
		JobID:       jobID,
		Stage:       StageComplete,
		Percentage:  100,
		OutputBytes: len(pdf),
		ElapsedMs:   elapsed.Milliseconds(),
	})
	log.Info().Str("job_id", jobID).Int("pdf_bytes", len(pdf)).Dur("elapsed", elapsed).Msg("conversion complete")

	return Result{JobID: jobID, PDF: pdf, Elapsed: elapsed}, nil
}

// classify turns an engine failure into a structured error, pinning the
// stage from the last progress snapshot.
func (o *Orchestrator) classify(jobID string, err error) *ConversionError {
	stage := StageQueued
	if snapshot, ok := o.notifier.Snapshot(jobID); ok && snapshot.Stage != "" {
		stage = snapshot.Stage
	}

	cerr := &ConversionError{
		JobID:   jobID,
		Stage:   stage,
		Message: err.Error(),
		cause:   err,
	}

	msg := strings.ToLower(err.Error())
	switch {
	case retry.IsExhausted(err):
		cerr.Message = "conversion failed after repeated attempts"
		cerr.Details = err.Error()
		cerr.Remediation = "The rendering engine kept failing. Check the engine status and try again."
	case strings.Contains(msg, "not found"):
		cerr.Remediation = "The rendering engine is not installed or not on PATH."
	case stage == StageParsing || strings.Contains(msg, "parse") || strings.Contains(msg, "compile"):
		cerr.Remediation = "The resume source could not be parsed. Fix the template and resubmit."
	case errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded):
		cerr.Message = "conversion cancelled"
	}
	return cerr
}

func (o *Orchestrator) publish(ctx context.Context, t event.EventType, payload event.JobEvent) {
	_ = o.bus.Publish(ctx, event.Event{Type: t, Payload: payload})
}
