package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/crimewatch/ingest/internal/domain"
)

// ErrJobTransition is returned when a status update does not match the
// expected prior state. Job statuses only move forward.
var ErrJobTransition = errors.New("invalid job status transition")

// JobRepository handles database operations for refresh jobs.
type JobRepository struct {
	db *sqlx.DB
}

// NewJobRepository creates a new job repository.
func NewJobRepository(db *sqlx.DB) *JobRepository {
	return &JobRepository{db: db}
}

// Create inserts a new pending job for a region and returns it with a
// freshly assigned job ID.
func (r *JobRepository) Create(ctx context.Context, region string) (*domain.RefreshJob, error) {
	job := &domain.RefreshJob{
		JobID:  uuid.NewString(),
		Region: region,
		Status: domain.JobStatusPending,
	}

	query := `
		INSERT INTO refresh_jobs (job_id, region, status)
		VALUES ($1, $2, $3)
		RETURNING id, created_at
	`

	err := r.db.QueryRowContext(ctx, query, job.JobID, job.Region, job.Status).
		Scan(&job.ID, &job.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create refresh job: %w", err)
	}

	return job, nil
}

// GetByJobID retrieves a job by its public job ID.
func (r *JobRepository) GetByJobID(ctx context.Context, jobID string) (*domain.RefreshJob, error) {
	var job domain.RefreshJob
	query := `
		SELECT id, job_id, region, status, new_articles, total_incidents,
		       error_message, created_at, started_at, completed_at
		FROM refresh_jobs
		WHERE job_id = $1
	`

	err := r.db.GetContext(ctx, &job, query, jobID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrJobNotFound
		}
		return nil, fmt.Errorf("failed to get job %s: %w", jobID, err)
	}

	return &job, nil
}

// MarkRunning moves a pending job to running and stamps its start time.
func (r *JobRepository) MarkRunning(ctx context.Context, jobID string) error {
	query := `
		UPDATE refresh_jobs
		SET status = $1, started_at = NOW()
		WHERE job_id = $2 AND status = $3
	`

	result, err := r.db.ExecContext(ctx, query, domain.JobStatusRunning, jobID, domain.JobStatusPending)
	if err != nil {
		return fmt.Errorf("failed to mark job %s running: %w", jobID, err)
	}

	return r.checkTransition(ctx, result, jobID)
}

// MarkSucceeded moves a running job to succeeded and records its counts.
func (r *JobRepository) MarkSucceeded(ctx context.Context, jobID string, newArticles, totalIncidents int) error {
	query := `
		UPDATE refresh_jobs
		SET status = $1, new_articles = $2, total_incidents = $3, completed_at = NOW()
		WHERE job_id = $4 AND status = $5
	`

	result, err := r.db.ExecContext(ctx, query,
		domain.JobStatusSucceeded, newArticles, totalIncidents, jobID, domain.JobStatusRunning)
	if err != nil {
		return fmt.Errorf("failed to mark job %s succeeded: %w", jobID, err)
	}

	return r.checkTransition(ctx, result, jobID)
}

// MarkFailed moves a running job to failed and records the error message.
func (r *JobRepository) MarkFailed(ctx context.Context, jobID, message string) error {
	query := `
		UPDATE refresh_jobs
		SET status = $1, error_message = $2, completed_at = NOW()
		WHERE job_id = $3 AND status = $4
	`

	result, err := r.db.ExecContext(ctx, query,
		domain.JobStatusFailed, message, jobID, domain.JobStatusRunning)
	if err != nil {
		return fmt.Errorf("failed to mark job %s failed: %w", jobID, err)
	}

	return r.checkTransition(ctx, result, jobID)
}

// checkTransition distinguishes "job missing" from "job in the wrong
// state" when a guarded update touched no rows.
func (r *JobRepository) checkTransition(ctx context.Context, result sql.Result, jobID string) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows > 0 {
		return nil
	}

	if _, err := r.GetByJobID(ctx, jobID); err != nil {
		return err
	}

	return fmt.Errorf("%w: job %s", ErrJobTransition, jobID)
}
