package orchestrator

import "rendition-server/internal/asset"

// Store is the persistence abstraction for job records.
// The Repository uses Store for all reads and writes; callers of Repository
// do not need to know which Store is used. Job records are bookkeeping only:
// whether a rendition can be served is decided by the asset store alone.
type Store interface {
	GetJob(id asset.ID) (*Job, bool)
	SetJob(j *Job)
	ListJobIDs() []asset.ID
}

// InMemoryStore is an in-memory implementation of Store.
type InMemoryStore struct {
	jobs map[asset.ID]*Job
}

// NewInMemoryStore returns a new empty in-memory store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		jobs: make(map[asset.ID]*Job),
	}
}

// GetJob implements Store.GetJob.
func (s *InMemoryStore) GetJob(id asset.ID) (*Job, bool) {
	j, ok := s.jobs[id]
	return j, ok
}

// SetJob implements Store.SetJob.
func (s *InMemoryStore) SetJob(j *Job) {
	s.jobs[j.AssetID] = j
}

// ListJobIDs implements Store.ListJobIDs.
func (s *InMemoryStore) ListJobIDs() []asset.ID {
	ids := make([]asset.ID, 0, len(s.jobs))
	for id := range s.jobs {
		ids = append(ids, id)
	}
	return ids
}
