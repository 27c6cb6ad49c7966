package bootstrap

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/crimewatch/ingest/internal/config"
	"github.com/crimewatch/ingest/internal/database"
	"github.com/crimewatch/ingest/internal/logger"
)

const sourceSyncTimeout = 30 * time.Second

// SetupDatabase creates a database connection.
func SetupDatabase(cfg *config.Config, log logger.Logger) (*sqlx.DB, error) {
	db, err := database.NewPostgresConnection(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("database connection: %w", err)
	}

	log.Info("Database connected",
		logger.String("host", cfg.Database.Host),
		logger.String("dbname", cfg.Database.DBName),
	)
	return db, nil
}

// SyncSources upserts the seed source catalog into the database so the
// file stays the single point of source configuration.
func SyncSources(cfg *config.Config, repo *database.SourceRepository, log logger.Logger) error {
	sources, err := config.LoadSources(cfg.Ingestion.SourcesPath)
	if err != nil {
		return fmt.Errorf("load sources: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), sourceSyncTimeout)
	defer cancel()

	for _, src := range sources {
		if err := repo.Upsert(ctx, src); err != nil {
			return fmt.Errorf("sync source %s: %w", src.AgencyName, err)
		}
	}

	log.Info("Source catalog synced",
		logger.String("path", cfg.Ingestion.SourcesPath),
		logger.Int("sources", len(sources)),
	)
	return nil
}
