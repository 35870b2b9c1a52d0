package api

import (
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humaecho"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/vitalratel/resumewright-sub005/internal/core/event"
)

type RouterConfig struct {
	Handler *Handler
	Bus     event.Bus
}

func SetupRouter(e *echo.Echo, cfg RouterConfig) {
	e.Use(echomw.Recover())
	e.Use(echomw.RequestID())
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{"GET", "POST"},
	}))

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(200, map[string]string{"status": "ok"})
	})

	v1 := e.Group("/api/v1")
	config := huma.DefaultConfig("ResumeWright API", "1.0.0")
	config.Servers = []*huma.Server{{URL: "/api/v1"}}
	config.Info.Description = "Résumé to PDF conversion service"

	api := humaecho.NewWithGroup(e, v1, config)
	h := cfg.Handler

	huma.Register(api, huma.Operation{
		OperationID:   "convert",
		Method:        http.MethodPost,
		Path:          "/convert",
		Summary:       "Convert résumé source to PDF",
		Tags:          []string{"Jobs"},
		DefaultStatus: http.StatusCreated,
	}, h.Convert)

	huma.Register(api, huma.Operation{
		OperationID: "get-job",
		Method:      http.MethodGet,
		Path:        "/jobs/{id}",
		Summary:     "Get job status",
		Tags:        []string{"Jobs"},
	}, h.GetJob)

	huma.Register(api, huma.Operation{
		OperationID: "list-checkpoints",
		Method:      http.MethodGet,
		Path:        "/checkpoints",
		Summary:     "List in-flight job checkpoints",
		Tags:        []string{"Jobs"},
	}, h.ListCheckpoints)

	huma.Register(api, huma.Operation{
		OperationID: "engine-status",
		Method:      http.MethodGet,
		Path:        "/engine/status",
		Summary:     "Get rendering engine initialization status",
		Tags:        []string{"Engine"},
	}, h.EngineStatus)

	huma.Register(api, huma.Operation{
		OperationID: "engine-retry",
		Method:      http.MethodPost,
		Path:        "/engine/retry",
		Summary:     "Retry rendering engine initialization",
		Tags:        []string{"Engine"},
	}, h.EngineRetry)

	// SSE sits outside huma: it is a long-lived raw stream.
	sse := NewSSEHandler(cfg.Bus, h.Notifier)
	v1.GET("/jobs/:id/events", sse.Events)
}
