package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"rendition-server/internal/asset"
	"rendition-server/internal/orchestrator"
	"rendition-server/internal/platform/config"
	"rendition-server/internal/platform/logger"
	"rendition-server/internal/platform/metrics"
	"rendition-server/internal/streaming"
	"rendition-server/internal/transcode"
)

const shutdownTimeout = 10 * time.Second

func main() {
	_ = config.Load()

	port := config.GetEnv("PORT", "5000")
	logLevel := config.GetEnv("LOG_LEVEL", "info")
	logFormat := config.GetEnv("LOG_FORMAT", "json")
	mediaRoot := config.GetEnv("MEDIA_ROOT", "./media")
	ffmpegBinary := config.GetEnv("FFMPEG_BINARY", transcode.DefaultBinary)
	renditions := config.GetEnv("RENDITIONS", orchestrator.DefaultRenditions)
	timeout := config.GetEnvDuration("TRANSCODE_TIMEOUT", 30*time.Minute)
	concurrency := config.GetEnvInt64("ENGINE_CONCURRENCY", orchestrator.DefaultEngineConcurrency)
	maxUpload := config.GetEnvInt64("MAX_UPLOAD_BYTES", orchestrator.DefaultMaxUploadBytes)
	sweepAge := config.GetEnvDuration("TEMP_SWEEP_AGE", time.Hour)

	log := logger.New(logLevel, logFormat)

	specs, err := orchestrator.ParseRenditionSpecs(renditions)
	if err != nil {
		log.Error("invalid RENDITIONS", "value", renditions, "error", err)
		os.Exit(1)
	}

	store, err := asset.NewStore(mediaRoot)
	if err != nil {
		log.Error("media root unusable", "path", mediaRoot, "error", err)
		os.Exit(1)
	}
	if n, err := store.SweepTemp(sweepAge); err != nil {
		log.Warn("temp sweep failed", "error", err)
	} else if n > 0 {
		log.Info("removed stale temp files", "count", n)
	}

	jobCtx, cancelJobs := context.WithCancel(context.Background())
	defer cancelJobs()

	met := metrics.New()
	repo := orchestrator.NewInMemoryRepository()
	svc := orchestrator.NewService(store, transcode.NewFFmpeg(ffmpegBinary, log), repo, log, orchestrator.Options{
		Timeout:     timeout,
		Concurrency: concurrency,
		Metrics:     met,
	})

	app := &server{
		log:     log,
		metrics: met,
		repo:    repo,
		uploads: orchestrator.NewHandler(orchestrator.HandlerConfig{
			Service:    svc,
			Store:      store,
			Specs:      specs,
			Log:        log,
			Metrics:    met,
			MaxBytes:   maxUpload,
			JobContext: jobCtx,
		}),
		videos: streaming.NewResponder(store, log, met),
	}

	addr := ":" + port
	srv := &http.Server{
		Addr:              addr,
		Handler:           app.routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	log.Info("server starting",
		"port", port,
		"media_root", store.Root(),
		"renditions", renditions,
		"transcode_timeout", timeout.String(),
		"engine_concurrency", concurrency,
		"log_level", logLevel,
	)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	log.Info("shutdown signal received, draining connections")

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	// Running engines are killed once draining gives up; their partial
	// output is removed and the affected uploads answer 500.
	go func() {
		<-ctx.Done()
		cancelJobs()
	}()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error("shutdown error", "error", err)
		cancelJobs()
		os.Exit(1)
	}

	log.Info("server stopped")
}
