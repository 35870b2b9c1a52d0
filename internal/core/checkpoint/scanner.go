package checkpoint

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

// DefaultFreshnessThreshold separates checkpoints worth flagging from ones
// presumed abandoned in an earlier session.
const DefaultFreshnessThreshold = 5 * time.Minute

// Scanner inspects leftover checkpoints on process start. A checkpoint
// present at startup belongs to a previous process incarnation by
// definition; the scanner decides which of those the user likely still
// cares about.
type Scanner struct {
	store     *Store
	threshold time.Duration

	// GC deletes stale entries during the scan. Off by default: the scan
	// is otherwise a read-only diagnostic pass.
	GC bool

	now func() time.Time
}

func NewScanner(store *Store, threshold time.Duration) *Scanner {
	if threshold <= 0 {
		threshold = DefaultFreshnessThreshold
	}
	return &Scanner{store: store, threshold: threshold, now: time.Now}
}

// Orphan is a checkpoint recent enough that its job was likely interrupted
// rather than abandoned.
type Orphan struct {
	JobID   string
	Status  string
	Elapsed time.Duration
}

// Report summarizes one scan.
type Report struct {
	Orphans []Orphan
	Stale   int
	Removed int
}

// Scan classifies every stored checkpoint and emits a warning diagnostic
// for each fresh orphan. A storage failure yields an empty report, never
// an error: a missed scan only costs diagnostics.
func (s *Scanner) Scan(ctx context.Context) Report {
	var report Report

	checkpoints, err := s.store.List(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("orphan scan failed to read checkpoints")
		return report
	}

	now := s.now()
	for _, cp := range checkpoints {
		age := now.Sub(cp.LastUpdate)
		if age >= s.threshold {
			report.Stale++
			if s.GC {
				s.store.Clear(ctx, cp.JobID)
				report.Removed++
			}
			continue
		}
		if Terminal(cp.Status) {
			// Finished between the final checkpoint write and cleanup;
			// nothing was interrupted.
			continue
		}

		report.Orphans = append(report.Orphans, Orphan{JobID: cp.JobID, Status: cp.Status, Elapsed: age})
		log.Warn().
			Str("job_id", cp.JobID).
			Str("status", cp.Status).
			Float64("elapsed_sec", age.Seconds()).
			Msg("orphaned conversion job from previous session")
	}

	if report.Stale > 0 || len(report.Orphans) > 0 {
		log.Info().
			Int("orphaned", len(report.Orphans)).
			Int("stale", report.Stale).
			Int("removed", report.Removed).
			Msg("checkpoint scan complete")
	}
	return report
}
