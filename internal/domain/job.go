package domain

import "time"

// Refresh job statuses. Transitions are monotonic:
// pending -> running -> {succeeded, failed}.
const (
	JobStatusPending   = "pending"
	JobStatusRunning   = "running"
	JobStatusSucceeded = "succeeded"
	JobStatusFailed    = "failed"
)

// RefreshJob is a durable, pollable record of one region refresh.
type RefreshJob struct {
	ID             int64      `db:"id"              json:"-"`
	JobID          string     `db:"job_id"          json:"job_id"`
	Region         string     `db:"region"          json:"region"`
	Status         string     `db:"status"          json:"status"`
	NewArticles    *int       `db:"new_articles"    json:"new_articles,omitempty"`
	TotalIncidents *int       `db:"total_incidents" json:"total_incidents,omitempty"`
	ErrorMessage   *string    `db:"error_message"   json:"error_message,omitempty"`
	CreatedAt      time.Time  `db:"created_at"      json:"created_at"`
	StartedAt      *time.Time `db:"started_at"      json:"started_at,omitempty"`
	CompletedAt    *time.Time `db:"completed_at"    json:"completed_at,omitempty"`
}

// Terminal reports whether the job has reached a final state.
func (j *RefreshJob) Terminal() bool {
	return j.Status == JobStatusSucceeded || j.Status == JobStatusFailed
}
