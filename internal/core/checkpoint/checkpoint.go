// Package checkpoint persists per-job progress records so that work lost
// to a process restart can be detected on the next start.
package checkpoint

import (
	"time"
)

// KeyPrefix namespaces checkpoint keys in the backend. One key per job id:
// writes for different jobs never contend on a shared map value.
const KeyPrefix = "checkpoint:"

const (
	StatusQueued   = "queued"
	StatusComplete = "complete"
	StatusFailed   = "failed"
)

// Checkpoint is the durable record of a job's last-known stage. The record
// is rewritten on every stage transition, but StartTime is set once at the
// first write and preserved across rewrites.
type Checkpoint struct {
	JobID      string    `json:"job_id"`
	Status     string    `json:"status"`
	StartTime  time.Time `json:"start_time"`
	LastUpdate time.Time `json:"last_update"`
	RawInput   string    `json:"raw_input,omitempty"`
}

// Terminal reports whether status marks a job that is no longer in flight.
func Terminal(status string) bool {
	return status == StatusComplete || status == StatusFailed
}

func key(jobID string) string {
	return KeyPrefix + jobID
}
