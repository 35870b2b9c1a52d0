// Package progress tracks the latest progress snapshot per active job and
// rebroadcasts it over the event bus at a bounded rate.
package progress

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/vitalratel/resumewright-sub005/internal/core/event"
)

// DefaultInterval is the minimum spacing between progress broadcasts for a
// single job. Snapshots update on every call; only the broadcast rate is
// limited, and the latest snapshot always wins.
const DefaultInterval = 100 * time.Millisecond

// Snapshot is the in-memory progress state of one active job. It is not
// persisted: the checkpoint store is the durable record that a job existed.
type Snapshot struct {
	JobID        string    `json:"job_id"`
	Stage        string    `json:"stage"`
	Percentage   float64   `json:"percentage"`
	Operation    string    `json:"operation"`
	RetryAttempt int       `json:"retry_attempt,omitempty"`
	LastError    string    `json:"last_error,omitempty"`
	UpdatedAt    time.Time `json:"updated_at"`
}

type trackedJob struct {
	snapshot Snapshot
	timer    *time.Timer
	pending  bool
}

// Notifier coalesces rapid progress updates into throttled broadcasts.
type Notifier struct {
	bus      event.Bus
	interval time.Duration

	mu   sync.Mutex
	jobs map[string]*trackedJob
}

func NewNotifier(bus event.Bus) *Notifier {
	return &Notifier{
		bus:      bus,
		interval: DefaultInterval,
		jobs:     make(map[string]*trackedJob),
	}
}

// StartTracking registers jobID with an initial snapshot.
func (n *Notifier) StartTracking(jobID, operation string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.jobs[jobID] = &trackedJob{
		snapshot: Snapshot{
			JobID:     jobID,
			Stage:     "queued",
			Operation: operation,
			UpdatedAt: time.Now(),
		},
	}
}

// Callback returns the throttled progress function handed to the
// conversion operation. Every call records the snapshot; a broadcast is
// scheduled at most once per interval and carries whatever snapshot is
// latest when the timer fires.
func (n *Notifier) Callback(jobID string) func(stage string, percentage float64) {
	return func(stage string, percentage float64) {
		n.mu.Lock()
		defer n.mu.Unlock()

		job, ok := n.jobs[jobID]
		if !ok {
			return
		}
		job.snapshot.Stage = stage
		job.snapshot.Percentage = percentage
		job.snapshot.RetryAttempt = 0
		job.snapshot.LastError = ""
		job.snapshot.UpdatedAt = time.Now()

		if job.pending {
			return
		}
		job.pending = true
		job.timer = time.AfterFunc(n.interval, func() { n.flush(jobID) })
	}
}

func (n *Notifier) flush(jobID string) {
	n.mu.Lock()
	job, ok := n.jobs[jobID]
	if !ok {
		n.mu.Unlock()
		return
	}
	job.pending = false
	snapshot := job.snapshot
	n.mu.Unlock()

	n.broadcast(event.EventJobProgress, snapshot)
}

// ReportRetry records and immediately broadcasts a backoff event as a
// distinguished "retrying" progress state: stage unchanged, percentage
// reset, message carrying the attempt and delay.
func (n *Notifier) ReportRetry(jobID string, attempt, maxAttempts int, delay time.Duration, cause error) {
	n.mu.Lock()
	job, ok := n.jobs[jobID]
	if !ok {
		n.mu.Unlock()
		return
	}
	job.snapshot.Percentage = 0
	job.snapshot.RetryAttempt = attempt
	job.snapshot.LastError = cause.Error()
	job.snapshot.Operation = fmt.Sprintf("retrying (attempt %d/%d) in %dms", attempt+1, maxAttempts, delay.Milliseconds())
	job.snapshot.UpdatedAt = time.Now()
	snapshot := job.snapshot
	n.mu.Unlock()

	err := n.bus.Publish(context.Background(), event.Event{
		Type: event.EventJobRetrying,
		Payload: event.JobEvent{
			JobID:        snapshot.JobID,
			Stage:        snapshot.Stage,
			Operation:    snapshot.Operation,
			RetryAttempt: attempt,
			RetryDelayMs: delay.Milliseconds(),
			Error:        snapshot.LastError,
		},
	})
	if err != nil {
		log.Warn().Err(err).Str("job_id", jobID).Msg("retry broadcast failed")
	}
}

// SynchronizeAll re-broadcasts the latest snapshot of every tracked job.
// UI surfaces torn down mid-conversion call this on re-attach to catch up.
func (n *Notifier) SynchronizeAll() {
	n.mu.Lock()
	snapshots := make([]Snapshot, 0, len(n.jobs))
	for _, job := range n.jobs {
		snapshots = append(snapshots, job.snapshot)
	}
	n.mu.Unlock()

	for _, snapshot := range snapshots {
		n.broadcast(event.EventJobProgress, snapshot)
	}
}

// Snapshot returns the current snapshot for jobID, if tracked.
func (n *Notifier) Snapshot(jobID string) (Snapshot, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	job, ok := n.jobs[jobID]
	if !ok {
		return Snapshot{}, false
	}
	return job.snapshot, true
}

// StopTracking discards the snapshot for jobID. Idempotent: stopping an
// unknown or already-stopped job is a no-op.
func (n *Notifier) StopTracking(jobID string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	job, ok := n.jobs[jobID]
	if !ok {
		return
	}
	if job.timer != nil {
		job.timer.Stop()
	}
	delete(n.jobs, jobID)
}

func (n *Notifier) broadcast(eventType event.EventType, snapshot Snapshot) {
	err := n.bus.Publish(context.Background(), event.Event{
		Type: eventType,
		Payload: event.JobEvent{
			JobID:        snapshot.JobID,
			Stage:        snapshot.Stage,
			Percentage:   snapshot.Percentage,
			Operation:    snapshot.Operation,
			RetryAttempt: snapshot.RetryAttempt,
			Error:        snapshot.LastError,
		},
	})
	if err != nil {
		// Progress broadcast failure must never reach the pipeline.
		log.Warn().Err(err).Str("job_id", snapshot.JobID).Msg("progress broadcast failed")
	}
}
