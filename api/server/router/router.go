package router

import (
	"net/http"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/porter-dev/matrix-agent/api/server/config"
	healthcheckHandlers "github.com/porter-dev/matrix-agent/api/server/handlers/healthcheck"
	logHandlers "github.com/porter-dev/matrix-agent/api/server/handlers/log"
	runHandlers "github.com/porter-dev/matrix-agent/api/server/handlers/run"
	statusHandlers "github.com/porter-dev/matrix-agent/api/server/handlers/status"
)

func NewAPIRouter(conf *config.Config) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(render.SetContentType(render.ContentTypeJSON))

	r.Mount("/debug", middleware.Profiler())

	r.Method(http.MethodGet, "/livez", healthcheckHandlers.NewLivezHandler(conf))
	r.Method(http.MethodGet, "/readyz", healthcheckHandlers.NewReadyzHandler(conf))

	r.Method(http.MethodGet, "/status", statusHandlers.NewGetStatusHandler(conf))

	if conf.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", conf.Metrics.Handler())
	}

	r.Method(http.MethodPost, "/runs", runHandlers.NewTriggerRunHandler(conf))
	r.Method(http.MethodGet, "/runs", runHandlers.NewListRunsHandler(conf))
	r.Method(http.MethodGet, "/runs/{uid}", runHandlers.NewGetRunHandler(conf))
	r.Method(http.MethodGet, "/runs/{uid}/jobs", runHandlers.NewListJobsHandler(conf))
	r.Method(http.MethodGet, "/runs/{uid}/jobs/{job_id}", runHandlers.NewGetJobHandler(conf))

	r.Method(http.MethodGet, "/logs", logHandlers.NewGetLogHandler(conf))

	return r
}
