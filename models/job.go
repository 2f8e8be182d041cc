package models

import (
	"time"
)

type JobStatus string

const (
	JobStatusPending    JobStatus = "pending"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
	// JobStatusDelivered marks a completed job whose archive has been claimed
	// by a download.
	JobStatusDelivered JobStatus = "delivered"
)

// Job is one scribe request and the workspace it owns.
type Job struct {
	ID          string    `json:"id"`
	Status      JobStatus `json:"status"`
	Workspace   string    `json:"-"`
	Model       string    `json:"model,omitempty"`
	Language    string    `json:"language,omitempty"`
	ArchivePath string    `json:"-"`
	Error       string    `json:"error,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Status check methods
func (j *Job) IsProcessing() bool {
	return j.Status == JobStatusPending || j.Status == JobStatusProcessing
}
func (j *Job) IsCompleted() bool { return j.Status == JobStatusCompleted }
func (j *Job) IsFailed() bool    { return j.Status == JobStatusFailed }
func (j *Job) IsDelivered() bool { return j.Status == JobStatusDelivered }

// IsStale reports whether a finished job has not changed for longer than
// ttl. Pending and processing jobs are never stale.
func (j *Job) IsStale(ttl time.Duration, now time.Time) bool {
	if j.IsProcessing() {
		return false
	}
	last := j.UpdatedAt
	if last.IsZero() {
		last = j.CreatedAt
	}
	return now.Sub(last) > ttl
}
