package database

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/crimewatch/ingest/internal/domain"
)

// IncidentRepository handles database operations for enriched incidents.
type IncidentRepository struct {
	db *sqlx.DB
}

// NewIncidentRepository creates a new incident repository.
func NewIncidentRepository(db *sqlx.DB) *IncidentRepository {
	return &IncidentRepository{db: db}
}

// Insert persists the enrichment record for an article.
func (r *IncidentRepository) Insert(ctx context.Context, incident *domain.EnrichedIncident) error {
	query := `
		INSERT INTO incidents_enriched (id, severity, summary_tactical, tags, entities,
		                                location_label, lat, lng, graph_cluster_key,
		                                llm_model, prompt_version)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING processed_at
	`

	err := r.db.QueryRowContext(
		ctx,
		query,
		incident.ID,
		incident.Severity,
		incident.Summary,
		incident.Tags,
		incident.Entities,
		incident.LocationLabel,
		incident.Lat,
		incident.Lng,
		incident.ClusterKey,
		incident.LLMModel,
		incident.PromptVersion,
	).Scan(&incident.ProcessedAt)

	if err != nil {
		return fmt.Errorf("failed to insert incident: %w", err)
	}

	return nil
}

// CountByRegion returns the total persisted incidents across all sources
// in a region. The refresh coordinator uses this instead of an in-memory
// accumulator so reported totals cannot drift.
func (r *IncidentRepository) CountByRegion(ctx context.Context, region string) (int, error) {
	var count int
	query := `
		SELECT COUNT(*)
		FROM incidents_enriched ie
		JOIN articles_raw ar ON ie.id = ar.id
		JOIN sources s ON ar.source_id = s.id
		WHERE s.region_label = $1
	`

	if err := r.db.GetContext(ctx, &count, query, region); err != nil {
		return 0, fmt.Errorf("failed to count incidents for region %q: %w", region, err)
	}

	return count, nil
}

// incidentRow flattens the three-way join for sqlx scanning.
type incidentRow struct {
	domain.Article
	Severity      string             `db:"severity"`
	Summary       string             `db:"summary_tactical"`
	Tags          domain.StringArray `db:"tags"`
	Entities      domain.EntityList  `db:"entities"`
	LocationLabel *string            `db:"location_label"`
	Lat           *float64           `db:"lat"`
	Lng           *float64           `db:"lng"`
	ClusterKey    *string            `db:"graph_cluster_key"`
	AgencyName    string             `db:"agency_name"`
	RegionLabel   string             `db:"region_label"`
	Topology      string             `db:"topology"`
}

// ListByRegion returns up to limit incidents in a region, newest first.
func (r *IncidentRepository) ListByRegion(ctx context.Context, region string, limit int) ([]domain.IncidentView, error) {
	var rows []incidentRow
	query := `
		SELECT ar.id, ar.source_id, ar.fingerprint, ar.url, ar.title_raw,
		       ar.published_at, ar.body_raw, ar.created_at,
		       ie.severity, ie.summary_tactical, ie.tags, ie.entities,
		       ie.location_label, ie.lat, ie.lng, ie.graph_cluster_key,
		       s.agency_name, s.region_label, s.topology
		FROM articles_raw ar
		JOIN incidents_enriched ie ON ie.id = ar.id
		JOIN sources s ON ar.source_id = s.id
		WHERE s.region_label = $1
		ORDER BY ar.published_at DESC NULLS LAST, ar.created_at DESC
		LIMIT $2
	`

	if err := r.db.SelectContext(ctx, &rows, query, region, limit); err != nil {
		return nil, fmt.Errorf("failed to list incidents for region %q: %w", region, err)
	}

	views := make([]domain.IncidentView, 0, len(rows))
	for _, row := range rows {
		views = append(views, domain.IncidentView{
			Article: row.Article,
			Incident: domain.EnrichedIncident{
				ID:            row.Article.ID,
				Severity:      row.Severity,
				Summary:       row.Summary,
				Tags:          row.Tags,
				Entities:      row.Entities,
				LocationLabel: row.LocationLabel,
				Lat:           row.Lat,
				Lng:           row.Lng,
				ClusterKey:    row.ClusterKey,
			},
			Source: domain.Source{
				ID:          row.Article.SourceID,
				AgencyName:  row.AgencyName,
				RegionLabel: row.RegionLabel,
				Topology:    row.Topology,
			},
		})
	}

	return views, nil
}
