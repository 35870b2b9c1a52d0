package event

import "time"

type EventType string

const (
	// Conversion job lifecycle
	EventJobQueued    EventType = "job.queued"
	EventJobProgress  EventType = "job.progress"
	EventJobRetrying  EventType = "job.retrying"
	EventJobCompleted EventType = "job.completed"
	EventJobFailed    EventType = "job.failed"

	// Engine initialization
	EventEngineInitStarted   EventType = "engine.init.started"
	EventEngineInitSucceeded EventType = "engine.init.succeeded"
	EventEngineInitFailed    EventType = "engine.init.failed"

	// EventAny subscribes to every event published on the bus.
	EventAny EventType = "*"
)

type Event struct {
	Type      EventType
	Timestamp time.Time
	Payload   any
}

// JobEvent is the payload for every job.* event. It is also what the SSE
// stream serializes, hence the tags.
type JobEvent struct {
	JobID        string  `json:"job_id"`
	Stage        string  `json:"stage"`
	Percentage   float64 `json:"percentage"`
	Operation    string  `json:"operation,omitempty"`
	RetryAttempt int     `json:"retry_attempt,omitempty"`
	RetryDelayMs int64   `json:"retry_delay_ms,omitempty"`
	Error        string  `json:"error,omitempty"`

	// Completion only.
	OutputBytes int   `json:"output_bytes,omitempty"`
	ElapsedMs   int64 `json:"elapsed_ms,omitempty"`
}

// EngineEvent is the payload for engine.init.* events.
type EngineEvent struct {
	Status  string `json:"status"`
	Attempt int    `json:"attempt,omitempty"`
	Error   string `json:"error,omitempty"`
}
