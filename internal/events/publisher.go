// Package events publishes refresh lifecycle events to Redis Streams
// for downstream consumers (alerting, frontends, analytics).
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/crimewatch/ingest/internal/logger"
)

// StreamName is the Redis stream refresh events are appended to.
const StreamName = "crimewatch:refresh-events"

// EventTypeRefreshCompleted marks a finished region refresh.
const EventTypeRefreshCompleted = "refresh.completed"

// asyncPublishTimeout is the context timeout for async publish operations.
const asyncPublishTimeout = 5 * time.Second

// RefreshEvent is the payload appended to the stream.
type RefreshEvent struct {
	EventID        uuid.UUID `json:"event_id"`
	EventType      string    `json:"event_type"`
	Region         string    `json:"region"`
	NewArticles    int       `json:"new_articles"`
	TotalIncidents int       `json:"total_incidents"`
	Timestamp      time.Time `json:"timestamp"`
}

// Publisher publishes refresh events to Redis Streams. A nil Publisher
// is valid and publishes nothing, so callers never branch on whether
// Redis is configured.
type Publisher struct {
	client *redis.Client
	log    logger.Logger
}

// NewPublisher creates an event publisher. Returns nil if client is nil.
func NewPublisher(client *redis.Client, log logger.Logger) *Publisher {
	if client == nil {
		return nil
	}
	return &Publisher{
		client: client,
		log:    log,
	}
}

// Publish appends an event to the stream.
func (p *Publisher) Publish(ctx context.Context, event RefreshEvent) error {
	if p == nil || p.client == nil {
		return nil
	}

	if event.EventID == uuid.Nil {
		event.EventID = uuid.New()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	result := p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: StreamName,
		Values: map[string]any{
			"event": string(payload),
		},
	})

	if publishErr := result.Err(); publishErr != nil {
		return fmt.Errorf("publish to stream: %w", publishErr)
	}

	p.log.Debug("published refresh event",
		logger.String("event_type", event.EventType),
		logger.String("region", event.Region),
		logger.String("stream_id", result.Val()),
	)

	return nil
}

// PublishRefreshCompleted publishes a completion event off the refresh
// path. Errors are logged, never surfaced.
func (p *Publisher) PublishRefreshCompleted(_ context.Context, region string, newArticles, totalIncidents int) {
	if p == nil {
		return
	}

	event := RefreshEvent{
		EventType:      EventTypeRefreshCompleted,
		Region:         region,
		NewArticles:    newArticles,
		TotalIncidents: totalIncidents,
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), asyncPublishTimeout)
		defer cancel()

		if err := p.Publish(ctx, event); err != nil {
			p.log.Error("async publish failed",
				logger.String("region", region),
				logger.Error(err),
			)
		}
	}()
}
