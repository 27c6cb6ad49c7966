package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/crimewatch/ingest/internal/domain"
)

// SourceRepository handles database operations for newsroom sources.
type SourceRepository struct {
	db *sqlx.DB
}

// NewSourceRepository creates a new source repository.
func NewSourceRepository(db *sqlx.DB) *SourceRepository {
	return &SourceRepository{db: db}
}

const sourceColumns = `id, agency_name, jurisdiction, region_label, topology, base_url,
	       active, use_browser, date_day_first, denylist, max_articles,
	       last_checked_at, created_at, updated_at`

// ListActiveByRegion returns all active sources in a region, oldest first,
// so processing order is stable across refreshes.
func (r *SourceRepository) ListActiveByRegion(ctx context.Context, region string) ([]*domain.Source, error) {
	var sources []*domain.Source
	query := `
		SELECT ` + sourceColumns + `
		FROM sources
		WHERE region_label = $1 AND active = TRUE
		ORDER BY id
	`

	if err := r.db.SelectContext(ctx, &sources, query, region); err != nil {
		return nil, fmt.Errorf("failed to list sources for region %q: %w", region, err)
	}

	return sources, nil
}

// List returns all configured sources, active or not.
func (r *SourceRepository) List(ctx context.Context) ([]*domain.Source, error) {
	var sources []*domain.Source
	query := `
		SELECT ` + sourceColumns + `
		FROM sources
		ORDER BY id
	`

	if err := r.db.SelectContext(ctx, &sources, query); err != nil {
		return nil, fmt.Errorf("failed to list sources: %w", err)
	}

	return sources, nil
}

// ListRegions returns the distinct region labels with at least one source.
func (r *SourceRepository) ListRegions(ctx context.Context) ([]string, error) {
	var regions []string
	query := `SELECT DISTINCT region_label FROM sources ORDER BY region_label`

	if err := r.db.SelectContext(ctx, &regions, query); err != nil {
		return nil, fmt.Errorf("failed to list regions: %w", err)
	}

	return regions, nil
}

// GetByID retrieves a source by its ID.
func (r *SourceRepository) GetByID(ctx context.Context, id int64) (*domain.Source, error) {
	var source domain.Source
	query := `SELECT ` + sourceColumns + ` FROM sources WHERE id = $1`

	if err := r.db.GetContext(ctx, &source, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSourceNotFound
		}
		return nil, fmt.Errorf("failed to get source: %w", err)
	}

	return &source, nil
}

// Upsert inserts a source or updates a configuration-owned row matched by
// (agency_name, base_url). Used by config sync; never deletes.
func (r *SourceRepository) Upsert(ctx context.Context, source *domain.Source) error {
	query := `
		INSERT INTO sources (agency_name, jurisdiction, region_label, topology, base_url,
		                     active, use_browser, date_day_first, denylist, max_articles)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (agency_name, base_url) DO UPDATE SET
			jurisdiction = EXCLUDED.jurisdiction,
			region_label = EXCLUDED.region_label,
			topology = EXCLUDED.topology,
			active = EXCLUDED.active,
			use_browser = EXCLUDED.use_browser,
			date_day_first = EXCLUDED.date_day_first,
			denylist = EXCLUDED.denylist,
			max_articles = EXCLUDED.max_articles,
			updated_at = NOW()
		RETURNING id, created_at, updated_at
	`

	err := r.db.QueryRowContext(
		ctx,
		query,
		source.AgencyName,
		source.Jurisdiction,
		source.RegionLabel,
		source.Topology,
		source.BaseURL,
		source.Active,
		source.UseBrowser,
		source.DateDayFirst,
		source.Denylist,
		source.MaxArticles,
	).Scan(&source.ID, &source.CreatedAt, &source.UpdatedAt)

	if err != nil {
		return fmt.Errorf("failed to upsert source %q: %w", source.AgencyName, err)
	}

	return nil
}

// UpdateLastChecked records a successful pass over the source.
func (r *SourceRepository) UpdateLastChecked(ctx context.Context, id int64, checkedAt time.Time) error {
	query := `UPDATE sources SET last_checked_at = $1, updated_at = NOW() WHERE id = $2`

	result, err := r.db.ExecContext(ctx, query, checkedAt, id)
	if err != nil {
		return fmt.Errorf("failed to update last_checked_at: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rows == 0 {
		return ErrSourceNotFound
	}

	return nil
}
