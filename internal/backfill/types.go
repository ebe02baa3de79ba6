package backfill

import (
	"time"

	"github.com/fortuna/crease/internal/ingest/cricsheet"
)

// JobStatus represents the lifecycle state for a job.
type JobStatus string

const (
	JobStatusQueued    JobStatus = "queued"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
	JobStatusCancelled JobStatus = "cancelled"
)

// Terminal reports whether a job in this status will not run again.
func (s JobStatus) Terminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed || s == JobStatusCancelled
}

// Job is one queued load of match documents.
type Job struct {
	JobID           string     `json:"job_id"`
	Paths           []string   `json:"paths"`
	Files           []string   `json:"-"`
	DryRun          bool       `json:"dry_run"`
	Status          JobStatus  `json:"status"`
	StatusMessage   string     `json:"status_message,omitempty"`
	ProgressCurrent int        `json:"progress_current"`
	ProgressTotal   int        `json:"progress_total"`
	Committed       int        `json:"committed"`
	Failed          int        `json:"failed"`
	LastError       string     `json:"last_error,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
	StartedAt       *time.Time `json:"started_at,omitempty"`
	CompletedAt     *time.Time `json:"completed_at,omitempty"`
}

// Event is a log entry attached to a job.
type Event struct {
	EventID   int64     `json:"event_id"`
	JobID     string    `json:"job_id"`
	Type      string    `json:"type"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
}

// JobSpec describes the work to be performed by the runner.
type JobSpec struct {
	RunID  string
	Files  []string
	DryRun bool
}

// Failure records a document that was rolled back.
type Failure struct {
	Path  string `json:"path"`
	Error string `json:"error"`
}

// Summary is the outcome of one run.
type Summary struct {
	RunID      string        `json:"run_id"`
	Documents  int           `json:"documents"`
	Committed  int           `json:"committed"`
	Failed     int           `json:"failed"`
	Deliveries int           `json:"deliveries"`
	Failures   []Failure     `json:"failures,omitempty"`
	Duration   time.Duration `json:"duration"`
}

// Reporter receives lifecycle callbacks from the runner.
type Reporter interface {
	OnJobStart(spec JobSpec)
	OnDocumentStart(path string, index int, total int)
	OnDocumentLoaded(result *cricsheet.Result)
	OnDocumentFailed(path string, err error)
	OnProgress(message string, current int, total int)
	OnJobComplete(summary *Summary)
	OnJobError(err error)
}

// StatusSummary is returned to API callers.
type StatusSummary struct {
	ActiveJob *Job     `json:"active_job,omitempty"`
	History   []*Job   `json:"recent_jobs,omitempty"`
	Events    []*Event `json:"recent_events,omitempty"`
}
