// Package job runs region refreshes as tracked background jobs. Each
// job walks a pending -> running -> succeeded/failed state machine that
// callers poll by job ID.
package job

import (
	"context"
	"sync"
	"time"

	"github.com/crimewatch/ingest/internal/domain"
	"github.com/crimewatch/ingest/internal/logger"
	"github.com/crimewatch/ingest/internal/refresh"
)

// DefaultJobTimeout bounds a detached refresh run.
const DefaultJobTimeout = 10 * time.Minute

// statusWriteTimeout bounds a terminal status write. These writes run on
// their own context: the job deadline expiring is itself a failure that
// must still be recorded.
const statusWriteTimeout = 10 * time.Second

// Store is the job persistence surface. Status updates are guarded: a
// transition from the wrong prior state must not apply.
type Store interface {
	Create(ctx context.Context, region string) (*domain.RefreshJob, error)
	GetByJobID(ctx context.Context, jobID string) (*domain.RefreshJob, error)
	MarkRunning(ctx context.Context, jobID string) error
	MarkSucceeded(ctx context.Context, jobID string, newArticles, totalIncidents int) error
	MarkFailed(ctx context.Context, jobID, message string) error
}

// Refresher runs a region refresh.
type Refresher interface {
	RefreshRegion(ctx context.Context, region string) (*refresh.Result, error)
}

// Runner starts refresh jobs and executes them in the background.
type Runner struct {
	store     Store
	refresher Refresher
	timeout   time.Duration
	logger    logger.Logger
	wg        sync.WaitGroup
}

// NewRunner creates a job runner. A zero timeout uses DefaultJobTimeout.
func NewRunner(store Store, refresher Refresher, timeout time.Duration, log logger.Logger) *Runner {
	if timeout <= 0 {
		timeout = DefaultJobTimeout
	}

	return &Runner{
		store:     store,
		refresher: refresher,
		timeout:   timeout,
		logger:    log,
	}
}

// Start creates a pending job for the region and kicks off execution in
// a background goroutine. The pending job returns immediately; callers
// poll Status for progress.
func (r *Runner) Start(ctx context.Context, region string) (*domain.RefreshJob, error) {
	job, err := r.store.Create(ctx, region)
	if err != nil {
		return nil, err
	}

	r.logger.Info("refresh job created",
		logger.String("job_id", job.JobID),
		logger.String("region", job.Region),
	)

	r.wg.Add(1)
	go r.run(job.JobID, job.Region)

	return job, nil
}

// Status returns the current job record.
func (r *Runner) Status(ctx context.Context, jobID string) (*domain.RefreshJob, error) {
	return r.store.GetByJobID(ctx, jobID)
}

// Wait blocks until all started jobs finish. Used during shutdown.
func (r *Runner) Wait() {
	r.wg.Wait()
}

// run executes a job detached from the request context so the refresh
// survives the HTTP response.
func (r *Runner) run(jobID, region string) {
	defer r.wg.Done()

	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()

	if err := r.store.MarkRunning(ctx, jobID); err != nil {
		r.logger.Error("failed to mark job running",
			logger.String("job_id", jobID),
			logger.Error(err),
		)
		return
	}

	result, err := r.refresher.RefreshRegion(ctx, region)

	// The refresh may have failed precisely because ctx expired, so the
	// terminal write cannot ride on it.
	writeCtx, writeCancel := context.WithTimeout(context.WithoutCancel(ctx), statusWriteTimeout)
	defer writeCancel()

	if err != nil {
		r.logger.Error("refresh job failed",
			logger.String("job_id", jobID),
			logger.String("region", region),
			logger.Error(err),
		)
		if markErr := r.store.MarkFailed(writeCtx, jobID, err.Error()); markErr != nil {
			r.logger.Error("failed to mark job failed",
				logger.String("job_id", jobID),
				logger.Error(markErr),
			)
		}
		return
	}

	if err := r.store.MarkSucceeded(writeCtx, jobID, result.NewArticles, result.TotalIncidents); err != nil {
		r.logger.Error("failed to mark job succeeded",
			logger.String("job_id", jobID),
			logger.Error(err),
		)
		return
	}

	r.logger.Info("refresh job succeeded",
		logger.String("job_id", jobID),
		logger.Int("new_articles", result.NewArticles),
		logger.Int("total_incidents", result.TotalIncidents),
	)
}
