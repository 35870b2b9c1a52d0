package checkpoint

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vitalratel/resumewright-sub005/internal/storage"
)

func seededStore(t *testing.T, now time.Time, entries map[string]Checkpoint) *Store {
	t.Helper()
	store := NewStore(storage.NewMemory())
	for id, cp := range entries {
		at := cp.LastUpdate
		store.now = func() time.Time { return at }
		store.Save(context.Background(), id, cp.Status, "")
	}
	store.now = func() time.Time { return now }
	return store
}

func TestScanner_ThresholdBoundary(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	store := seededStore(t, now, map[string]Checkpoint{
		"fresh": {Status: "rendering", LastUpdate: now.Add(-299999 * time.Millisecond)},
		"stale": {Status: "rendering", LastUpdate: now.Add(-300001 * time.Millisecond)},
		"done":  {Status: StatusComplete, LastUpdate: now.Add(-time.Second)},
	})

	scanner := NewScanner(store, DefaultFreshnessThreshold)
	scanner.now = func() time.Time { return now }

	report := scanner.Scan(context.Background())

	require.Len(t, report.Orphans, 1)
	assert.Equal(t, "fresh", report.Orphans[0].JobID)
	assert.Equal(t, "rendering", report.Orphans[0].Status)
	assert.Equal(t, 1, report.Stale)
	assert.Zero(t, report.Removed)
}

func TestScanner_TerminalStatusNeverReported(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	store := seededStore(t, now, map[string]Checkpoint{
		"complete": {Status: StatusComplete, LastUpdate: now.Add(-time.Second)},
		"failed":   {Status: StatusFailed, LastUpdate: now.Add(-time.Second)},
	})

	scanner := NewScanner(store, DefaultFreshnessThreshold)
	scanner.now = func() time.Time { return now }

	report := scanner.Scan(context.Background())
	assert.Empty(t, report.Orphans)
	assert.Zero(t, report.Stale)
}

func TestScanner_ReadOnlyByDefault(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	store := seededStore(t, now, map[string]Checkpoint{
		"ancient": {Status: "parsing", LastUpdate: now.Add(-24 * time.Hour)},
	})

	scanner := NewScanner(store, DefaultFreshnessThreshold)
	scanner.now = func() time.Time { return now }
	scanner.Scan(context.Background())

	cp, err := store.Get(context.Background(), "ancient")
	require.NoError(t, err)
	assert.NotNil(t, cp)
}

func TestScanner_GCRemovesStaleOnly(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	store := seededStore(t, now, map[string]Checkpoint{
		"ancient": {Status: "parsing", LastUpdate: now.Add(-24 * time.Hour)},
		"recent":  {Status: "rendering", LastUpdate: now.Add(-time.Minute)},
	})

	scanner := NewScanner(store, DefaultFreshnessThreshold)
	scanner.now = func() time.Time { return now }
	scanner.GC = true

	report := scanner.Scan(context.Background())
	assert.Equal(t, 1, report.Removed)

	gone, err := store.Get(context.Background(), "ancient")
	require.NoError(t, err)
	assert.Nil(t, gone)

	kept, err := store.Get(context.Background(), "recent")
	require.NoError(t, err)
	assert.NotNil(t, kept)
}

func TestScanner_StorageFailureYieldsEmptyReport(t *testing.T) {
	scanner := NewScanner(NewStore(failingBackend{}), DefaultFreshnessThreshold)
	report := scanner.Scan(context.Background())
	assert.Empty(t, report.Orphans)
	assert.Zero(t, report.Stale)
}
