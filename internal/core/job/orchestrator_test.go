package job

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vitalratel/resumewright-sub005/internal/core/checkpoint"
	"github.com/vitalratel/resumewright-sub005/internal/core/engine"
	"github.com/vitalratel/resumewright-sub005/internal/core/event"
	"github.com/vitalratel/resumewright-sub005/internal/core/progress"
	"github.com/vitalratel/resumewright-sub005/internal/retry"
	"github.com/vitalratel/resumewright-sub005/internal/storage"
)

type scriptedEngine struct {
	mu       sync.Mutex
	calls    int
	failures int
	panicOn  int
	pdf      []byte
}

func (s *scriptedEngine) Name() string               { return "scripted" }
func (s *scriptedEngine) Load(context.Context) error { return nil }

func (s *scriptedEngine) Convert(_ context.Context, _ string, onProgress engine.ProgressFunc) ([]byte, error) {
	s.mu.Lock()
	s.calls++
	call := s.calls
	s.mu.Unlock()

	if s.panicOn > 0 && call == s.panicOn {
		panic("engine blew up")
	}

	onProgress(StageParsing, 20)
	if call <= s.failures {
		return nil, errors.New("wasm memory pressure")
	}
	onProgress(StageRendering, 60)
	onProgress(StagePDFGeneration, 95)
	return s.pdf, nil
}

func (s *scriptedEngine) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

type jobEventRecorder struct {
	mu     sync.Mutex
	events []event.Event
}

func (r *jobEventRecorder) handler(_ context.Context, e event.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return nil
}

func (r *jobEventRecorder) byType(t event.EventType) []event.JobEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []event.JobEvent
	for _, e := range r.events {
		if e.Type == t {
			out = append(out, e.Payload.(event.JobEvent))
		}
	}
	return out
}

func newTestOrchestrator(eng engine.Engine) (*Orchestrator, *checkpoint.Store, *jobEventRecorder) {
	bus := event.NewBus()
	rec := &jobEventRecorder{}
	bus.Subscribe(event.EventAny, rec.handler)

	checkpoints := checkpoint.NewStore(storage.NewMemory())
	o := NewOrchestrator(eng, checkpoints, progress.NewNotifier(bus), bus)
	o.preset = retry.Config{MaxAttempts: 3, BaseDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond, Timeout: time.Second}
	return o, checkpoints, rec
}

func TestConvert_HappyPath(t *testing.T) {
	eng := &scriptedEngine{pdf: []byte("%PDF-1.7 fake")}
	o, checkpoints, rec := newTestOrchestrator(eng)

	result, err := o.Convert(context.Background(), "<Resume/>")
	require.NoError(t, err)
	assert.NotEmpty(t, result.JobID)
	assert.Equal(t, []byte("%PDF-1.7 fake"), result.PDF)
	assert.Equal(t, 1, eng.callCount())

	// Cleanup is total: no checkpoint survives a completed conversion.
	remaining, err := checkpoints.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, remaining)

	completed := rec.byType(event.EventJobCompleted)
	require.Len(t, completed, 1)
	assert.Equal(t, result.JobID, completed[0].JobID)
	assert.Equal(t, len(result.PDF), completed[0].OutputBytes)
	assert.Empty(t, rec.byType(event.EventJobFailed))
}

func TestConvert_TransientFailureThenSuccess(t *testing.T) {
	eng := &scriptedEngine{failures: 1, pdf: []byte("pdf")}
	o, checkpoints, rec := newTestOrchestrator(eng)

	result, err := o.Convert(context.Background(), "<Resume/>")
	require.NoError(t, err)
	assert.Equal(t, 2, eng.callCount())

	retries := rec.byType(event.EventJobRetrying)
	require.Len(t, retries, 1)
	assert.Equal(t, result.JobID, retries[0].JobID)
	assert.Equal(t, "wasm memory pressure", retries[0].Error)

	remaining, err := checkpoints.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, remaining)
}

func TestConvert_ExhaustionReturnsStructuredError(t *testing.T) {
	eng := &scriptedEngine{failures: 99}
	o, checkpoints, rec := newTestOrchestrator(eng)

	_, err := o.Convert(context.Background(), "<Resume/>")
	require.Error(t, err)
	assert.Equal(t, 3, eng.callCount())

	var cerr *ConversionError
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, StageParsing, cerr.Stage)
	assert.NotEmpty(t, cerr.Remediation)
	assert.True(t, retry.IsExhausted(errors.Unwrap(cerr)))

	failed := rec.byType(event.EventJobFailed)
	require.Len(t, failed, 1)
	assert.Equal(t, cerr.JobID, failed[0].JobID)

	remaining, lerr := checkpoints.List(context.Background())
	require.NoError(t, lerr)
	assert.Empty(t, remaining)
}

func TestConvert_CleanupRunsOnPanic(t *testing.T) {
	eng := &scriptedEngine{panicOn: 1}
	o, checkpoints, _ := newTestOrchestrator(eng)

	assert.Panics(t, func() {
		_, _ = o.Convert(context.Background(), "<Resume/>")
	})

	remaining, err := checkpoints.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, remaining)
}

func TestConvert_KeepRawInputStoresSource(t *testing.T) {
	block := make(chan struct{})
	eng := &blockingEngine{release: block}
	o, checkpoints, _ := newTestOrchestrator(eng)
	o.KeepRawInput = true
	o.newID = func() string { return "job-fixed" }

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = o.Convert(context.Background(), "<Resume name='Ada'/>")
	}()

	require.Eventually(t, func() bool {
		cp, err := checkpoints.Get(context.Background(), "job-fixed")
		return err == nil && cp != nil && cp.RawInput == "<Resume name='Ada'/>"
	}, time.Second, 5*time.Millisecond)

	close(block)
	<-done
}

type blockingEngine struct {
	release chan struct{}
}

func (b *blockingEngine) Name() string               { return "blocking" }
func (b *blockingEngine) Load(context.Context) error { return nil }

func (b *blockingEngine) Convert(context.Context, string, engine.ProgressFunc) ([]byte, error) {
	<-b.release
	return []byte("pdf"), nil
}
