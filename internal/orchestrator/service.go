package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/sync/semaphore"

	"rendition-server/internal/asset"
	"rendition-server/internal/platform/metrics"
	"rendition-server/internal/transcode"
)

// DefaultEngineConcurrency is the number of engine processes allowed to run
// at once across all jobs when none is configured.
const DefaultEngineConcurrency = 1

// ErrSourceMissing is returned when the source file of a job cannot be read.
var ErrSourceMissing = errors.New("source file missing or unreadable")

// TranscodeFailedError reports the rendition that aborted a job.
// Renditions completed before it stay on disk and remain servable.
type TranscodeFailedError struct {
	Label string
	Cause error
}

func (e *TranscodeFailedError) Error() string {
	return fmt.Sprintf("transcode %s failed: %v", e.Label, e.Cause)
}

func (e *TranscodeFailedError) Unwrap() error {
	return e.Cause
}

// Options tunes a Service. The zero value means no per-invocation timeout,
// DefaultEngineConcurrency and no metrics.
type Options struct {
	// Timeout bounds each engine invocation; 0 disables it.
	Timeout time.Duration
	// Concurrency caps simultaneous engine invocations across jobs.
	Concurrency int64
	Metrics     *metrics.Metrics
}

// Service drives the engine over an ordered list of renditions, one at a
// time, and records progress in a Repository.
type Service struct {
	store   *asset.Store
	engine  transcode.Engine
	repo    Repository
	log     *slog.Logger
	metrics *metrics.Metrics
	timeout time.Duration
	sem     *semaphore.Weighted
}

// NewService returns a Service that writes renditions into store using engine.
func NewService(store *asset.Store, engine transcode.Engine, repo Repository, log *slog.Logger, opts Options) *Service {
	if opts.Concurrency <= 0 {
		opts.Concurrency = DefaultEngineConcurrency
	}
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		store:   store,
		engine:  engine,
		repo:    repo,
		log:     log,
		metrics: opts.Metrics,
		timeout: opts.Timeout,
		sem:     semaphore.NewWeighted(opts.Concurrency),
	}
}

// Repository returns the job repository the service records into.
func (s *Service) Repository() Repository {
	return s.repo
}

// Transcode produces every rendition in specs for the asset, in order. The
// next rendition starts only after the previous engine invocation has
// terminated. The first failure aborts the job with a *TranscodeFailedError;
// renditions finished before it are left in place. On success one
// Descriptor per spec is returned, in spec order.
func (s *Service) Transcode(ctx context.Context, id asset.ID, sourcePath string, specs []RenditionSpec) ([]Descriptor, error) {
	if err := ValidateSpecs(specs); err != nil {
		return nil, err
	}
	if err := checkReadable(sourcePath); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSourceMissing, err)
	}
	if _, err := s.store.EnsureRenditionDir(id); err != nil {
		return nil, err
	}
	if err := s.repo.StartJob(id, specs); err != nil {
		return nil, err
	}

	logger := s.log.With(slog.String("asset_id", id.String()))
	logger.Info("transcode job started", slog.Int("renditions", len(specs)))

	descriptors := make([]Descriptor, 0, len(specs))
	for _, spec := range specs {
		out, err := s.store.RenditionPath(id, spec.Label)
		if err == nil {
			err = s.runOne(ctx, spec, sourcePath, out)
		}
		if err != nil {
			logger.Error("rendition failed, aborting job",
				slog.String("rendition", spec.Label),
				slog.String("error", err.Error()))
			s.record(s.repo.MarkRendition(id, spec.Label, StateFailed, err.Error()), logger)
			s.record(s.repo.FinishJob(id, JobFailed), logger)
			return nil, &TranscodeFailedError{Label: spec.Label, Cause: err}
		}

		s.record(s.repo.MarkRendition(id, spec.Label, StateDone, ""), logger)
		descriptors = append(descriptors, Descriptor{
			Label:        spec.Label,
			RelativePath: s.relative(out),
		})
		logger.Info("rendition done", slog.String("rendition", spec.Label))
	}

	s.record(s.repo.FinishJob(id, JobSuccess), logger)
	logger.Info("transcode job finished")
	return descriptors, nil
}

// runOne performs a single bounded engine invocation.
func (s *Service) runOne(ctx context.Context, spec RenditionSpec, sourcePath, out string) error {
	if err := ctx.Err(); err != nil {
		return &transcode.EngineError{Cause: "job canceled before engine start", Err: err}
	}
	if err := s.sem.Acquire(ctx, 1); err != nil {
		return &transcode.EngineError{Cause: "job canceled before engine start", Err: err}
	}
	defer s.sem.Release(1)

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	start := time.Now()
	err := s.engine.Run(ctx, sourcePath, spec.Size, out)
	s.metrics.ObserveTranscode(spec.Label, time.Since(start), err == nil)
	return err
}

func (s *Service) relative(path string) string {
	rel, err := filepath.Rel(s.store.Root(), path)
	if err != nil {
		return filepath.ToSlash(path)
	}
	return filepath.ToSlash(rel)
}

// record logs bookkeeping errors; they never change the job outcome.
func (s *Service) record(err error, logger *slog.Logger) {
	if err != nil {
		logger.Warn("job bookkeeping failed", slog.String("error", err.Error()))
	}
}

func checkReadable(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return err
	}
	if !info.Mode().IsRegular() {
		return fmt.Errorf("%s is not a regular file", filepath.Base(path))
	}
	return nil
}
