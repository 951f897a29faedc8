package entity

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// JobStatus is the lifecycle state of a classification job.
//
// Valid transitions:
//
//	queued ──► processing ──► completed
//	               │ ▲            ▲
//	               ▼ │            │
//	             failed ────► max_retries
//
// plus two recovery edges: processing → queued (stale reclaim) and
// max_retries → processing (forced manual retry).
type JobStatus string

const (
	StatusQueued     JobStatus = "queued"
	StatusProcessing JobStatus = "processing"
	StatusCompleted  JobStatus = "completed"
	StatusFailed     JobStatus = "failed"
	StatusMaxRetries JobStatus = "max_retries"
)

// validTransitions lists every allowed (from → to) pair.
// completed is terminal; max_retries leaves only via a forced claim.
var validTransitions = map[JobStatus][]JobStatus{
	StatusQueued:     {StatusProcessing},
	StatusProcessing: {StatusCompleted, StatusFailed, StatusMaxRetries, StatusQueued},
	StatusFailed:     {StatusProcessing},
	StatusMaxRetries: {StatusProcessing},
}

// ParseJobStatus converts a raw string to a JobStatus, returning an error
// for unknown values.
func ParseJobStatus(s string) (JobStatus, error) {
	st := JobStatus(s)
	switch st {
	case StatusQueued, StatusProcessing, StatusCompleted, StatusFailed, StatusMaxRetries:
		return st, nil
	}
	return "", fmt.Errorf("unknown job status %q", s)
}

// IsTransitionAllowed returns true when moving from → to is permitted.
func IsTransitionAllowed(from, to JobStatus) bool {
	for _, s := range validTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// IsTerminal reports whether the status ends automatic processing.
// max_retries still accepts a forced manual retry.
func IsTerminal(s JobStatus) bool {
	return s == StatusCompleted || s == StatusMaxRetries
}

// Job is one queued unit of work: a submission awaiting or undergoing
// spam classification. Exactly one active Job exists per submission.
type Job struct {
	ID             uuid.UUID  `json:"id"`
	SubmissionID   uuid.UUID  `json:"submission_id"`
	Status         JobStatus  `json:"status"`
	Score          *int       `json:"score,omitempty"`
	Reason         string     `json:"reason,omitempty"`
	Provider       string     `json:"provider,omitempty"`
	Model          string     `json:"model,omitempty"`
	HeuristicScore int        `json:"heuristic_score"`
	Attempts       int        `json:"attempts"`
	RetryAt        *time.Time `json:"retry_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// QueueStatus is a per-state row count snapshot of the job table.
type QueueStatus struct {
	Queued     int `json:"queued"`
	Processing int `json:"processing"`
	Failed     int `json:"failed"`
	MaxRetries int `json:"max_retries"`
	Completed  int `json:"completed"`
}
