package bootstrap

import (
	"fmt"
	"net/http"

	"github.com/jmoiron/sqlx"

	"github.com/crimewatch/ingest/internal/api"
	"github.com/crimewatch/ingest/internal/config"
	"github.com/crimewatch/ingest/internal/database"
	"github.com/crimewatch/ingest/internal/enrichment"
	"github.com/crimewatch/ingest/internal/events"
	"github.com/crimewatch/ingest/internal/handlers"
	"github.com/crimewatch/ingest/internal/ingest"
	"github.com/crimewatch/ingest/internal/job"
	"github.com/crimewatch/ingest/internal/logger"
	"github.com/crimewatch/ingest/internal/metrics"
	"github.com/crimewatch/ingest/internal/refresh"
)

// App holds the wired application components that outlive a request.
type App struct {
	Coordinator *refresh.Coordinator
	Jobs        *job.Runner
	Renderer    *ingest.Renderer
	Metrics     *metrics.Metrics
	Server      *http.Server
}

// SetupApp wires repositories, the ingestion pipeline, enrichment, and the
// HTTP server together.
func SetupApp(
	cfg *config.Config,
	db *sqlx.DB,
	publisher *events.Publisher,
	log logger.Logger,
) (*App, error) {
	sourceRepo := database.NewSourceRepository(db)
	articleRepo := database.NewArticleRepository(db)
	incidentRepo := database.NewIncidentRepository(db)
	jobRepo := database.NewJobRepository(db)

	if err := SyncSources(cfg, sourceRepo, log); err != nil {
		return nil, err
	}

	var renderer *ingest.Renderer
	if rendererNeeded(cfg) {
		renderer = ingest.NewRenderer(cfg.Ingestion.UserAgent, log)
	}

	registry := ingest.NewRegistry(log)
	fetcher := ingest.NewFetcher(cfg.Ingestion, renderer, log)
	orchestrator := ingest.NewOrchestrator(registry, fetcher, articleRepo, cfg.Ingestion, log)

	var enricher enrichment.Enricher
	if cfg.Enrichment.Enabled {
		claude, err := enrichment.NewClaudeEnricher(cfg.Enrichment, log)
		if err != nil {
			return nil, fmt.Errorf("setup enricher: %w", err)
		}
		enricher = claude
	} else {
		log.Info("LLM enrichment disabled, using fallback records")
	}

	tracker := metrics.New()

	coordinator := refresh.NewCoordinator(
		sourceRepo,
		incidentRepo,
		orchestrator,
		enricher,
		publisher,
		tracker,
		cfg.Enrichment.PromptVersion,
		log,
	)

	jobs := job.NewRunner(jobRepo, coordinator, job.DefaultJobTimeout, log)

	router := api.NewRouter(api.Handlers{
		Refresh:   handlers.NewRefreshHandler(coordinator, jobs, log),
		Incidents: handlers.NewIncidentHandler(incidentRepo, log),
		Sources:   handlers.NewSourceHandler(sourceRepo, log),
		Metrics:   tracker,
	}, log)

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	return &App{
		Coordinator: coordinator,
		Jobs:        jobs,
		Renderer:    renderer,
		Metrics:     tracker,
		Server:      server,
	}, nil
}

// rendererNeeded reports whether any seed source asks for browser rendering.
// The browser is expensive to hold open, so it is skipped entirely when no
// source uses it.
func rendererNeeded(cfg *config.Config) bool {
	sources, err := config.LoadSources(cfg.Ingestion.SourcesPath)
	if err != nil {
		return false
	}
	for _, src := range sources {
		if src.Active && src.UseBrowser {
			return true
		}
	}
	return false
}
