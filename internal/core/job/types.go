// Package job runs conversions end to end: checkpointing, progress
// reporting, retry, and cleanup around a single engine invocation.
package job

import (
	"fmt"
	"time"
)

// Conversion pipeline stages, in order. Checkpoint records carry these as
// the job status so an orphan report reads as "died while rendering".
const (
	StageQueued        = "queued"
	StageParsing       = "parsing"
	StageRendering     = "rendering"
	StageLayout        = "layout"
	StagePDFGeneration = "pdf-generation"
	StageComplete      = "complete"
	StageFailed        = "failed"
)

// Result is a finished conversion.
type Result struct {
	JobID   string
	PDF     []byte
	Elapsed time.Duration
}

// ConversionError is the structured failure handed back to callers and
// broadcast on the bus. Remediation is a human-facing hint; Details keeps
// the underlying cause.
type ConversionError struct {
	JobID       string `json:"job_id"`
	Stage       string `json:"stage"`
	Message     string `json:"message"`
	Details     string `json:"details,omitempty"`
	Remediation string `json:"remediation,omitempty"`
	cause       error
}

func (e *ConversionError) Error() string {
	return fmt.Sprintf("conversion %s failed at %s: %s", e.JobID, e.Stage, e.Message)
}

func (e *ConversionError) Unwrap() error { return e.cause }
