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

// ArticleRepository handles database operations for raw articles.
// The UNIQUE(source_id, fingerprint) constraint on articles_raw is the
// sole deduplication authority for ingestion.
type ArticleRepository struct {
	db *sqlx.DB
}

// NewArticleRepository creates a new article repository.
func NewArticleRepository(db *sqlx.DB) *ArticleRepository {
	return &ArticleRepository{db: db}
}

// Exists reports whether an article with this fingerprint was already
// persisted for the source.
func (r *ArticleRepository) Exists(ctx context.Context, sourceID int64, fingerprint string) (bool, error) {
	var exists bool
	query := `SELECT EXISTS(SELECT 1 FROM articles_raw WHERE source_id = $1 AND fingerprint = $2)`

	if err := r.db.GetContext(ctx, &exists, query, sourceID, fingerprint); err != nil {
		return false, fmt.Errorf("failed to check article existence: %w", err)
	}

	return exists, nil
}

// Insert persists a raw article and populates its ID and created_at.
func (r *ArticleRepository) Insert(ctx context.Context, article *domain.Article) error {
	query := `
		INSERT INTO articles_raw (source_id, fingerprint, url, title_raw, published_at, body_raw, raw_html)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at
	`

	err := r.db.QueryRowContext(
		ctx,
		query,
		article.SourceID,
		article.Fingerprint,
		article.URL,
		article.Title,
		article.PublishedAt,
		article.Body,
		article.RawHTML,
	).Scan(&article.ID, &article.CreatedAt)

	if err != nil {
		return fmt.Errorf("failed to insert article: %w", err)
	}

	return nil
}

// LatestPublishedAt returns the most recent published_at persisted for a
// source, or nil when the source has no dated articles yet. This is the
// ingestion watermark; it is recomputed fresh on every orchestration call.
func (r *ArticleRepository) LatestPublishedAt(ctx context.Context, sourceID int64) (*time.Time, error) {
	var latest sql.NullTime
	query := `SELECT MAX(published_at) FROM articles_raw WHERE source_id = $1`

	if err := r.db.GetContext(ctx, &latest, query, sourceID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get latest published_at: %w", err)
	}

	if !latest.Valid {
		return nil, nil
	}

	return &latest.Time, nil
}
