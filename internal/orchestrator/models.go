package orchestrator

import (
	"time"

	"rendition-server/internal/asset"
	"rendition-server/internal/transcode"
)

// RenditionSpec names one output of a job and its target frame size
// (e.g. "720p" at 1280x720).
type RenditionSpec struct {
	Label string
	Size  transcode.Dimensions
}

// Descriptor locates a completed rendition. RelativePath is relative to the
// asset store root and uses forward slashes.
type Descriptor struct {
	Label        string `json:"quality"`
	RelativePath string `json:"path"`
}

// State is the completion state of a single rendition.
type State string

const (
	StatePending State = "pending"
	StateDone    State = "done"
	StateFailed  State = "failed"
)

// JobStatus is the aggregate outcome of a job.
type JobStatus string

const (
	JobRunning JobStatus = "running"
	JobSuccess JobStatus = "success"
	JobFailed  JobStatus = "failed"
)

// RenditionState holds the bookkeeping for one rendition of a job.
type RenditionState struct {
	Label  string    `json:"quality"`
	Width  int       `json:"width"`
	Height int       `json:"height"`
	State  State     `json:"state"`
	Cause  string    `json:"-"` // engine failure detail, logged but never served
	DoneAt time.Time `json:"doneAt,omitzero"`
}

// Job is the record of one orchestrator run for one asset. Renditions keep
// the order in which they are attempted.
type Job struct {
	AssetID    asset.ID         `json:"assetId"`
	Status     JobStatus        `json:"status"`
	Renditions []RenditionState `json:"renditions"`
	StartedAt  time.Time        `json:"startedAt"`
	FinishedAt time.Time        `json:"finishedAt,omitzero"`
	FailedAt   string           `json:"failedRendition,omitempty"`
}

// clone returns a deep copy so callers never share the repository's slices.
func (j *Job) clone() *Job {
	c := *j
	c.Renditions = append([]RenditionState(nil), j.Renditions...)
	return &c
}
