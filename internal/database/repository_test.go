package database_test

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"

	"github.com/crimewatch/ingest/internal/database"
	"github.com/crimewatch/ingest/internal/domain"
)

func newMockDB(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	t.Helper()

	mockDB, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}

	db := sqlx.NewDb(mockDB, "postgres")

	return db, mock, func() { mockDB.Close() }
}

func expectationsMet(t *testing.T, mock sqlmock.Sqlmock) {
	t.Helper()

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestSourceRepository_ListActiveByRegion(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()

	repo := database.NewSourceRepository(db)
	ctx := context.Background()

	rows := sqlmock.NewRows([]string{
		"id", "agency_name", "jurisdiction", "region_label", "topology",
		"base_url", "active", "use_browser", "date_day_first", "denylist",
		"max_articles", "last_checked_at", "created_at", "updated_at",
	}).AddRow(
		1, "Langley RCMP", "Langley", "fraser_valley", domain.TopologyRCMPNewsroom,
		"https://bc-cb.rcmp-grc.gc.ca/ViewPage.action?siteNodeId=2121", true, false, false, []byte(`[]`),
		20, nil, time.Now(), time.Now(),
	)

	mock.ExpectQuery("SELECT (.+) FROM sources").
		WithArgs("fraser_valley").
		WillReturnRows(rows)

	sources, err := repo.ListActiveByRegion(ctx, "fraser_valley")
	if err != nil {
		t.Fatalf("ListActiveByRegion() error = %v", err)
	}
	if len(sources) != 1 {
		t.Fatalf("ListActiveByRegion() returned %d sources, want 1", len(sources))
	}
	if sources[0].AgencyName != "Langley RCMP" {
		t.Errorf("AgencyName = %q, want %q", sources[0].AgencyName, "Langley RCMP")
	}

	expectationsMet(t, mock)
}

func TestSourceRepository_GetByID_NotFound(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()

	repo := database.NewSourceRepository(db)
	ctx := context.Background()

	mock.ExpectQuery("SELECT (.+) FROM sources").
		WithArgs(int64(99)).
		WillReturnError(sql.ErrNoRows)

	_, err := repo.GetByID(ctx, 99)
	if !errors.Is(err, database.ErrSourceNotFound) {
		t.Errorf("GetByID() error = %v, want ErrSourceNotFound", err)
	}

	expectationsMet(t, mock)
}

func TestArticleRepository_Exists(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()

	repo := database.NewArticleRepository(db)
	ctx := context.Background()

	mock.ExpectQuery("SELECT EXISTS").
		WithArgs(int64(1), "abc123").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	exists, err := repo.Exists(ctx, 1, "abc123")
	if err != nil {
		t.Fatalf("Exists() error = %v", err)
	}
	if !exists {
		t.Error("Exists() = false, want true")
	}

	expectationsMet(t, mock)
}

func TestArticleRepository_LatestPublishedAt_Empty(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()

	repo := database.NewArticleRepository(db)
	ctx := context.Background()

	mock.ExpectQuery("SELECT MAX").
		WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"max"}).AddRow(nil))

	latest, err := repo.LatestPublishedAt(ctx, 1)
	if err != nil {
		t.Fatalf("LatestPublishedAt() error = %v", err)
	}
	if latest != nil {
		t.Errorf("LatestPublishedAt() = %v, want nil for empty source", latest)
	}

	expectationsMet(t, mock)
}

func TestIncidentRepository_CountByRegion(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()

	repo := database.NewIncidentRepository(db)
	ctx := context.Background()

	mock.ExpectQuery("SELECT COUNT").
		WithArgs("fraser_valley").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(42))

	count, err := repo.CountByRegion(ctx, "fraser_valley")
	if err != nil {
		t.Fatalf("CountByRegion() error = %v", err)
	}
	if count != 42 {
		t.Errorf("CountByRegion() = %d, want 42", count)
	}

	expectationsMet(t, mock)
}

func TestJobRepository_Create(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()

	repo := database.NewJobRepository(db)
	ctx := context.Background()

	mock.ExpectQuery("INSERT INTO refresh_jobs").
		WithArgs(sqlmock.AnyArg(), "fraser_valley", domain.JobStatusPending).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(7, time.Now()))

	job, err := repo.Create(ctx, "fraser_valley")
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if job.Status != domain.JobStatusPending {
		t.Errorf("Status = %q, want %q", job.Status, domain.JobStatusPending)
	}
	if job.JobID == "" {
		t.Error("JobID is empty, want generated UUID")
	}

	expectationsMet(t, mock)
}

func TestJobRepository_GetByJobID_NotFound(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()

	repo := database.NewJobRepository(db)
	ctx := context.Background()

	mock.ExpectQuery("SELECT (.+) FROM refresh_jobs").
		WithArgs("missing-id").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.GetByJobID(ctx, "missing-id")
	if !errors.Is(err, database.ErrJobNotFound) {
		t.Errorf("GetByJobID() error = %v, want ErrJobNotFound", err)
	}

	expectationsMet(t, mock)
}

func TestJobRepository_MarkRunning(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()

	repo := database.NewJobRepository(db)
	ctx := context.Background()

	mock.ExpectExec("UPDATE refresh_jobs").
		WithArgs(domain.JobStatusRunning, "job-1", domain.JobStatusPending).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.MarkRunning(ctx, "job-1"); err != nil {
		t.Fatalf("MarkRunning() error = %v", err)
	}

	expectationsMet(t, mock)
}

func TestJobRepository_MarkSucceeded_WrongState(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()

	repo := database.NewJobRepository(db)
	ctx := context.Background()

	// Guarded update matches no rows because the job is still pending.
	mock.ExpectExec("UPDATE refresh_jobs").
		WithArgs(domain.JobStatusSucceeded, 3, 10, "job-1", domain.JobStatusRunning).
		WillReturnResult(sqlmock.NewResult(0, 0))

	jobRows := sqlmock.NewRows([]string{
		"id", "job_id", "region", "status", "new_articles", "total_incidents",
		"error_message", "created_at", "started_at", "completed_at",
	}).AddRow(7, "job-1", "fraser_valley", domain.JobStatusPending, nil, nil, nil, time.Now(), nil, nil)

	mock.ExpectQuery("SELECT (.+) FROM refresh_jobs").
		WithArgs("job-1").
		WillReturnRows(jobRows)

	err := repo.MarkSucceeded(ctx, "job-1", 3, 10)
	if !errors.Is(err, database.ErrJobTransition) {
		t.Errorf("MarkSucceeded() error = %v, want ErrJobTransition", err)
	}

	expectationsMet(t, mock)
}
