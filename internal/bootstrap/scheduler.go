package bootstrap

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"

	"github.com/crimewatch/ingest/internal/config"
	"github.com/crimewatch/ingest/internal/logger"
	"github.com/crimewatch/ingest/internal/refresh"
)

// SetupScheduler starts periodic region refreshes when enabled. Returns nil
// when the scheduler is disabled.
func SetupScheduler(cfg *config.Config, coordinator *refresh.Coordinator, log logger.Logger) (*cron.Cron, error) {
	if !cfg.Scheduler.Enabled {
		return nil, nil
	}

	c := cron.New()
	regions := cfg.Scheduler.Regions

	_, err := c.AddFunc(cfg.Scheduler.Schedule, func() {
		ctx := context.Background()
		for _, region := range regions {
			if _, refreshErr := coordinator.RefreshRegion(ctx, region); refreshErr != nil {
				log.Error("Scheduled refresh failed",
					logger.String("region", region),
					logger.Error(refreshErr),
				)
			}
		}
	})
	if err != nil {
		return nil, fmt.Errorf("schedule %q: %w", cfg.Scheduler.Schedule, err)
	}

	c.Start()
	log.Info("Refresh scheduler started",
		logger.String("schedule", cfg.Scheduler.Schedule),
		logger.Strings("regions", regions),
	)
	return c, nil
}
