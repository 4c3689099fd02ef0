package orchestrator

import (
	"errors"
	"sync"
	"time"

	"rendition-server/internal/asset"
)

// Repository defines the concurrency-safe contract for recording job progress.
type Repository interface {
	// StartJob records a new running job for id with every rendition pending.
	// A finished job for the same asset is replaced; a running one is not.
	StartJob(id asset.ID, specs []RenditionSpec) error

	// MarkRendition sets the state of one rendition of a running job.
	MarkRendition(id asset.ID, label string, state State, cause string) error

	// FinishJob sets the aggregate outcome of a running job.
	FinishJob(id asset.ID, status JobStatus) error

	// GetJob returns a copy of the job record for id.
	GetJob(id asset.ID) (*Job, bool)

	// RunningJobCount returns the number of jobs not yet finished.
	// Used for metrics.
	RunningJobCount() int
}

var (
	// ErrJobRunning is returned when a job is started for an asset that
	// already has one in progress.
	ErrJobRunning = errors.New("job already running")

	// ErrJobNotFound is returned when updating a job that was never started.
	ErrJobNotFound = errors.New("job not found")

	// ErrJobFinished is returned when updating a job that already finished.
	ErrJobFinished = errors.New("job has finished")

	// ErrUnknownRendition is returned when a label is not part of the job.
	ErrUnknownRendition = errors.New("rendition not part of job")
)

// InMemoryRepository is a concurrency-safe in-memory implementation of Repository.
// It uses a Store for persistence; by default that is an InMemoryStore.
type InMemoryRepository struct {
	mu    sync.RWMutex
	store Store
	now   func() time.Time
}

// NewInMemoryRepository constructs a new repository with a default in-memory store.
func NewInMemoryRepository() *InMemoryRepository {
	return NewInMemoryRepositoryWithStore(NewInMemoryStore())
}

// NewInMemoryRepositoryWithStore constructs a repository that uses the given Store.
// Useful for testing or for plugging in a different persistence backend.
func NewInMemoryRepositoryWithStore(store Store) *InMemoryRepository {
	return &InMemoryRepository{store: store, now: func() time.Time { return time.Now().UTC() }}
}

// StartJob implements Repository.StartJob.
func (r *InMemoryRepository) StartJob(id asset.ID, specs []RenditionSpec) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.store.GetJob(id); ok && existing.Status == JobRunning {
		return ErrJobRunning
	}

	job := &Job{
		AssetID:    id,
		Status:     JobRunning,
		Renditions: make([]RenditionState, 0, len(specs)),
		StartedAt:  r.now(),
	}
	for _, spec := range specs {
		job.Renditions = append(job.Renditions, RenditionState{
			Label:  spec.Label,
			Width:  spec.Size.Width,
			Height: spec.Size.Height,
			State:  StatePending,
		})
	}
	r.store.SetJob(job)
	return nil
}

// MarkRendition implements Repository.MarkRendition.
func (r *InMemoryRepository) MarkRendition(id asset.ID, label string, state State, cause string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	job, err := r.runningJobLocked(id)
	if err != nil {
		return err
	}

	for i := range job.Renditions {
		if job.Renditions[i].Label != label {
			continue
		}
		rs := &job.Renditions[i]
		rs.State = state
		rs.Cause = cause
		if state == StateDone {
			rs.DoneAt = r.now()
		}
		if state == StateFailed && job.FailedAt == "" {
			job.FailedAt = label
		}
		return nil
	}
	return ErrUnknownRendition
}

// FinishJob implements Repository.FinishJob.
func (r *InMemoryRepository) FinishJob(id asset.ID, status JobStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	job, err := r.runningJobLocked(id)
	if err != nil {
		return err
	}
	job.Status = status
	job.FinishedAt = r.now()
	return nil
}

// GetJob implements Repository.GetJob.
func (r *InMemoryRepository) GetJob(id asset.ID) (*Job, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	job, ok := r.store.GetJob(id)
	if !ok {
		return nil, false
	}
	return job.clone(), true
}

// RunningJobCount implements Repository.RunningJobCount.
func (r *InMemoryRepository) RunningJobCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	n := 0
	for _, id := range r.store.ListJobIDs() {
		if j, ok := r.store.GetJob(id); ok && j.Status == JobRunning {
			n++
		}
	}
	return n
}

// runningJobLocked returns the job for id if it is still running.
// Caller must hold r.mu in write mode.
func (r *InMemoryRepository) runningJobLocked(id asset.ID) (*Job, error) {
	job, ok := r.store.GetJob(id)
	if !ok {
		return nil, ErrJobNotFound
	}
	if job.Status != JobRunning {
		return nil, ErrJobFinished
	}
	return job, nil
}
