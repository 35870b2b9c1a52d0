package engine

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/vitalratel/resumewright-sub005/internal/storage"
)

const (
	StatusInitializing = "initializing"
	StatusSuccess      = "success"
	StatusFailed       = "failed"
)

// Storage keys for the process-wide init status record. Scalar keys rather
// than one struct value so partial writes degrade to a stale field, not a
// corrupt record.
const (
	keyInitStatus     = "engine:init:status"
	keyInitTime       = "engine:init:time"
	keyInitError      = "engine:init:error"
	keyIndicatorError = "engine:init:indicator_error"
)

// InitStatus is the singleton tri-state record of the latest load attempt.
// It is overwritten on every attempt and never deleted.
type InitStatus struct {
	Status   string    `json:"status"`
	InitTime time.Time `json:"init_time,omitzero"`
	Error    string    `json:"error,omitempty"`
}

type statusStore struct {
	backend storage.Backend
}

func (s statusStore) read(ctx context.Context) (InitStatus, error) {
	var out InitStatus

	status, err := s.backend.Get(ctx, keyInitStatus)
	if err != nil {
		return out, fmt.Errorf("read init status: %w", err)
	}
	out.Status = string(status)

	if ts, err := s.backend.Get(ctx, keyInitTime); err == nil && len(ts) > 0 {
		if ms, perr := strconv.ParseInt(string(ts), 10, 64); perr == nil {
			out.InitTime = time.UnixMilli(ms)
		}
	}
	if msg, err := s.backend.Get(ctx, keyInitError); err == nil {
		out.Error = string(msg)
	}
	return out, nil
}

func (s statusStore) writeInitializing(ctx context.Context) error {
	return s.backend.Set(ctx, keyInitStatus, []byte(StatusInitializing))
}

func (s statusStore) writeSuccess(ctx context.Context, at time.Time) error {
	if err := s.backend.Set(ctx, keyInitStatus, []byte(StatusSuccess)); err != nil {
		return err
	}
	if err := s.backend.Set(ctx, keyInitTime, []byte(strconv.FormatInt(at.UnixMilli(), 10))); err != nil {
		return err
	}
	return s.backend.Delete(ctx, keyInitError)
}

func (s statusStore) writeFailed(ctx context.Context, cause error) error {
	if err := s.backend.Set(ctx, keyInitStatus, []byte(StatusFailed)); err != nil {
		return err
	}
	return s.backend.Set(ctx, keyInitError, []byte(cause.Error()))
}

func (s statusStore) recordIndicatorError(ctx context.Context, cause error) error {
	return s.backend.Set(ctx, keyIndicatorError, []byte(cause.Error()))
}
