package model

import (
	"time"

	"github.com/google/uuid"
)

// Status represents the current state of a generation job.
type Status string

const (
	StatusQueued    Status = "queued"
	StatusRunning   Status = "running"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

// Terminal reports whether the status is absorbing: once a job reaches
// a terminal status it never leaves it.
func (s Status) Terminal() bool {
	switch s {
	case StatusSucceeded, StatusFailed, StatusCancelled:
		return true
	default:
		return false
	}
}

// Phase labels for a running job. Used only for progress reporting;
// phases are not independently resumable.
const (
	PhaseNormalizing     = "normalizing"
	PhaseStructuring     = "structuring"
	PhaseResolvingVisual = "resolving_visual"
	PhaseRendering       = "rendering"
)

// Progress holds the per-slide progress counters of a running job.
type Progress struct {
	Current int `json:"current,omitempty"`
	Total   int `json:"total,omitempty"`
}

// Result describes the artifact of a successfully finished job.
type Result struct {
	Filename string `json:"filename"`
}

// Job represents one request to convert content into a rendered deck,
// tracked from submission to its terminal outcome. A job is mutated only
// by the single worker executing it; readers get snapshots.
type Job struct {
	ID          uuid.UUID  `json:"id"`
	Status      Status     `json:"status"`
	Phase       string     `json:"phase,omitempty"`
	Progress    Progress   `json:"progress,omitempty"`
	Result      *Result    `json:"result,omitempty"`
	Error       string     `json:"error,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// NewJob creates a queued job with a fresh identifier.
func NewJob() Job {
	now := time.Now().UTC()
	return Job{
		ID:        uuid.New(),
		Status:    StatusQueued,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Start marks the job as running.
func (j *Job) Start() {
	now := time.Now().UTC()
	j.Status = StatusRunning
	j.StartedAt = &now
	j.UpdatedAt = now
}

// Finish moves the job into the given terminal status. Calling it on an
// already terminal job is a no-op.
func (j *Job) Finish(status Status) {
	if j.Status.Terminal() {
		return
	}
	now := time.Now().UTC()
	j.Status = status
	j.Phase = ""
	j.CompletedAt = &now
	j.UpdatedAt = now
}
