package checkpoint

import (
	"context"
	"encoding/json"
	"sort"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/vitalratel/resumewright-sub005/internal/storage"
)

// Store reads and writes checkpoints through a key-value backend.
//
// Save and Clear never fail outward: a lost checkpoint write is recoverable
// (worst case a stale record or a missed orphan diagnostic), while aborting
// a conversion over one is not. Backend errors are logged and swallowed.
type Store struct {
	backend storage.Backend

	// now is swapped out by tests.
	now func() time.Time
}

func NewStore(backend storage.Backend) *Store {
	return &Store{backend: backend, now: time.Now}
}

// Save upserts the checkpoint for jobID. The first write for a job id sets
// StartTime; later writes preserve it and only move Status and LastUpdate.
// rawInput, when non-empty, is retained for post-mortem recovery.
func (s *Store) Save(ctx context.Context, jobID, status, rawInput string) {
	existing, err := s.Get(ctx, jobID)
	if err != nil {
		log.Warn().Err(err).Str("job_id", jobID).Msg("checkpoint read failed, starting fresh record")
	}

	now := s.now()
	cp := Checkpoint{
		JobID:      jobID,
		Status:     status,
		StartTime:  now,
		LastUpdate: now,
	}
	if existing != nil {
		cp.StartTime = existing.StartTime
		if rawInput == "" {
			cp.RawInput = existing.RawInput
		}
	}
	if rawInput != "" {
		cp.RawInput = rawInput
	}

	data, err := json.Marshal(cp)
	if err != nil {
		log.Warn().Err(err).Str("job_id", jobID).Msg("checkpoint marshal failed")
		return
	}
	if err := s.backend.Set(ctx, key(jobID), data); err != nil {
		log.Warn().Err(err).Str("job_id", jobID).Str("status", status).Msg("checkpoint write failed")
	}
}

// SaveDetached spawns Save on its own goroutine and does not wait for it.
// Progress callbacks use it so a slow backend cannot stall the pipeline;
// the caller accepts that a later write may land before an earlier one.
func (s *Store) SaveDetached(jobID, status string) {
	go s.Save(context.Background(), jobID, status, "")
}

// Clear deletes the checkpoint for jobID. Like Save, failures are logged
// and swallowed.
func (s *Store) Clear(ctx context.Context, jobID string) {
	if err := s.backend.Delete(ctx, key(jobID)); err != nil {
		log.Warn().Err(err).Str("job_id", jobID).Msg("checkpoint delete failed")
	}
}

// Get returns the checkpoint for jobID, or nil when none exists.
func (s *Store) Get(ctx context.Context, jobID string) (*Checkpoint, error) {
	data, err := s.backend.Get(ctx, key(jobID))
	if err != nil {
		return nil, err
	}
	if data == nil {
		return nil, nil
	}
	var cp Checkpoint
	if err := json.Unmarshal(data, &cp); err != nil {
		return nil, err
	}
	return &cp, nil
}

// List returns all stored checkpoints, oldest start first.
func (s *Store) List(ctx context.Context) ([]Checkpoint, error) {
	entries, err := s.backend.List(ctx, KeyPrefix)
	if err != nil {
		return nil, err
	}

	out := make([]Checkpoint, 0, len(entries))
	for k, data := range entries {
		var cp Checkpoint
		if err := json.Unmarshal(data, &cp); err != nil {
			log.Warn().Err(err).Str("key", k).Msg("skipping unreadable checkpoint")
			continue
		}
		out = append(out, cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartTime.Before(out[j].StartTime) })
	return out, nil
}
