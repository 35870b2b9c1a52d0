package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
	"github.com/vitalratel/resumewright-sub005/internal/core/event"
	"github.com/vitalratel/resumewright-sub005/internal/core/progress"
)

const sseKeepAliveInterval = 15 * time.Second

// SSEHandler streams one job's progress events to a client. On attach it
// triggers a snapshot rebroadcast so a client that reconnects
// mid-conversion catches up instead of staring at a blank stream.
type SSEHandler struct {
	bus      event.Bus
	notifier *progress.Notifier
}

func NewSSEHandler(bus event.Bus, notifier *progress.Notifier) *SSEHandler {
	return &SSEHandler{bus: bus, notifier: notifier}
}

func (h *SSEHandler) Events(c echo.Context) error {
	jobID := c.Param("id")
	if jobID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "missing job id")
	}

	w := c.Response()
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	w.Flush()

	// Buffered so a stalled client cannot back-pressure the bus; a full
	// channel drops the event, the next snapshot supersedes it anyway.
	events := make(chan event.Event, 64)
	unsubscribe := h.bus.Subscribe(event.EventAny, func(_ context.Context, e event.Event) error {
		payload, ok := e.Payload.(event.JobEvent)
		if !ok || payload.JobID != jobID {
			return nil
		}
		select {
		case events <- e:
		default:
			log.Debug().Str("job_id", jobID).Msg("sse client lagging, event dropped")
		}
		return nil
	})
	defer unsubscribe()

	// Replay current state for late joiners.
	h.notifier.SynchronizeAll()

	ctx := c.Request().Context()
	keepAlive := time.NewTicker(sseKeepAliveInterval)
	defer keepAlive.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-keepAlive.C:
			sseKeepAlive(w)
		case e := <-events:
			if err := sseWrite(w, e); err != nil {
				return nil
			}
			if e.Type == event.EventJobCompleted || e.Type == event.EventJobFailed {
				return nil
			}
		}
	}
}

// sseWrite writes one SSE event, splitting multi-line payloads into
// repeated data: fields per the protocol.
func sseWrite(w *echo.Response, e event.Event) error {
	data, err := json.Marshal(e.Payload)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "event: %s\n", e.Type); err != nil {
		return err
	}
	for _, line := range strings.Split(string(data), "\n") {
		if _, err := fmt.Fprintf(w, "data: %s\n", line); err != nil {
			return err
		}
	}
	if _, err := fmt.Fprint(w, "\n"); err != nil {
		return err
	}
	w.Flush()
	return nil
}

func sseKeepAlive(w *echo.Response) {
	_, _ = fmt.Fprint(w, ": keep-alive\n\n")
	w.Flush()
}
