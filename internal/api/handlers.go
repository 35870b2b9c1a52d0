package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/vitalratel/resumewright-sub005/internal/core/checkpoint"
	"github.com/vitalratel/resumewright-sub005/internal/core/engine"
	"github.com/vitalratel/resumewright-sub005/internal/core/job"
	"github.com/vitalratel/resumewright-sub005/internal/core/progress"
)

// Handler bundles the services the HTTP surface exposes.
type Handler struct {
	Orchestrator *job.Orchestrator
	Checkpoints  *checkpoint.Store
	Notifier     *progress.Notifier
	Initializer  *engine.Initializer
}

type ConvertInput struct {
	Body struct {
		Source string `json:"source" minLength:"1" doc:"Résumé source (TSX) to convert"`
	}
}

type ConvertOutput struct {
	JobID       string `header:"X-Job-ID"`
	ContentType string `header:"Content-Type"`
	Body        []byte
}

func (h *Handler) Convert(ctx context.Context, input *ConvertInput) (*ConvertOutput, error) {
	result, err := h.Orchestrator.Convert(ctx, input.Body.Source)
	if err != nil {
		var cerr *job.ConversionError
		if errors.As(err, &cerr) {
			return nil, huma.NewError(http.StatusUnprocessableEntity, cerr.Message, cerr)
		}
		return nil, huma.Error500InternalServerError("conversion failed", err)
	}
	return &ConvertOutput{
		JobID:       result.JobID,
		ContentType: "application/pdf",
		Body:        result.PDF,
	}, nil
}

type GetJobInput struct {
	ID string `path:"id" doc:"Job id"`
}

// JobStatus merges the durable checkpoint with the live progress
// snapshot. Either side may be missing: a finished job has neither, a
// crashed job has only the checkpoint.
type JobStatus struct {
	JobID        string     `json:"job_id"`
	Stage        string     `json:"stage"`
	Percentage   float64    `json:"percentage,omitempty"`
	Operation    string     `json:"operation,omitempty"`
	RetryAttempt int        `json:"retry_attempt,omitempty"`
	LastError    string     `json:"last_error,omitempty"`
	StartTime    *time.Time `json:"start_time,omitempty"`
	LastUpdate   *time.Time `json:"last_update,omitempty"`
}

type GetJobOutput struct {
	Body JobStatus
}

func (h *Handler) GetJob(ctx context.Context, input *GetJobInput) (*GetJobOutput, error) {
	out := &GetJobOutput{Body: JobStatus{JobID: input.ID}}
	found := false

	if cp, err := h.Checkpoints.Get(ctx, input.ID); err == nil && cp != nil {
		found = true
		out.Body.Stage = cp.Status
		out.Body.StartTime = &cp.StartTime
		out.Body.LastUpdate = &cp.LastUpdate
	}
	if snapshot, ok := h.Notifier.Snapshot(input.ID); ok {
		found = true
		out.Body.Stage = snapshot.Stage
		out.Body.Percentage = snapshot.Percentage
		out.Body.Operation = snapshot.Operation
		out.Body.RetryAttempt = snapshot.RetryAttempt
		out.Body.LastError = snapshot.LastError
	}

	if !found {
		return nil, huma.Error404NotFound("job not found")
	}
	return out, nil
}

type ListCheckpointsOutput struct {
	Body struct {
		Checkpoints []checkpoint.Checkpoint `json:"checkpoints"`
		Count       int                     `json:"count"`
	}
}

func (h *Handler) ListCheckpoints(ctx context.Context, _ *struct{}) (*ListCheckpointsOutput, error) {
	checkpoints, err := h.Checkpoints.List(ctx)
	if err != nil {
		return nil, huma.Error500InternalServerError("checkpoint storage unavailable", err)
	}
	out := &ListCheckpointsOutput{}
	out.Body.Checkpoints = checkpoints
	out.Body.Count = len(checkpoints)
	return out, nil
}

type EngineStatusOutput struct {
	Body engine.InitStatus
}

func (h *Handler) EngineStatus(ctx context.Context, _ *struct{}) (*EngineStatusOutput, error) {
	status, err := h.Initializer.Status(ctx)
	if err != nil {
		return nil, huma.Error500InternalServerError("status storage unavailable", err)
	}
	return &EngineStatusOutput{Body: status}, nil
}

func (h *Handler) EngineRetry(ctx context.Context, _ *struct{}) (*EngineStatusOutput, error) {
	if err := h.Initializer.Retry(ctx); err != nil {
		return nil, huma.NewError(http.StatusBadGateway, "engine initialization failed", err)
	}
	status, err := h.Initializer.Status(ctx)
	if err != nil {
		return nil, huma.Error500InternalServerError("status storage unavailable", err)
	}
	return &EngineStatusOutput{Body: status}, nil
}
