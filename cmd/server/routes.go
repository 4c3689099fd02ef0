package main

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"rendition-server/internal/orchestrator"
	"rendition-server/internal/platform/logger"
	"rendition-server/internal/platform/metrics"
	"rendition-server/internal/streaming"
)

type server struct {
	log     *slog.Logger
	metrics *metrics.Metrics
	repo    orchestrator.Repository
	uploads *orchestrator.Handler
	videos  *streaming.Responder
}

func (s *server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(logger.RequestLogger(s.log))
	r.Use(metrics.RequestMiddleware(s.metrics))

	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		s.metrics.Handler(func() { s.metrics.SetJobsRunning(s.repo.RunningJobCount()) }).ServeHTTP(w, r)
	})
	r.Post("/upload", s.uploads.Upload)
	r.Get("/assets/{asset_id}", s.uploads.GetJob)
	r.Get("/video/{asset_id}/{quality}", s.videos.ServeVideo)
	r.Head("/video/{asset_id}/{quality}", s.videos.ServeVideo)
	return r
}
