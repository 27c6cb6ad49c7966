package enrichment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/crimewatch/ingest/internal/config"
	"github.com/crimewatch/ingest/internal/domain"
	"github.com/crimewatch/ingest/internal/logger"
)

// maxPromptBody bounds how much article text goes into the prompt.
const maxPromptBody = 2000

// maxResponseTokens is generous for the small JSON payload expected back.
const maxResponseTokens = 1024

// ErrInvalidResponse is returned when the model reply is not the
// expected JSON payload.
var ErrInvalidResponse = errors.New("invalid enrichment response")

// ClaudeEnricher extracts incident intelligence with the Anthropic API.
type ClaudeEnricher struct {
	client        anthropic.Client
	model         string
	promptVersion string
	logger        logger.Logger
}

// NewClaudeEnricher creates an enricher from config. The API key must
// be set; callers gate on cfg.Enabled before constructing one.
func NewClaudeEnricher(cfg config.EnrichmentConfig, log logger.Logger) (*ClaudeEnricher, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("enrichment API key not set")
	}

	return &ClaudeEnricher{
		client:        anthropic.NewClient(option.WithAPIKey(cfg.APIKey)),
		model:         cfg.Model,
		promptVersion: cfg.PromptVersion,
		logger:        log,
	}, nil
}

// llmPayload is the JSON shape the prompt asks the model to emit.
type llmPayload struct {
	Severity      string          `json:"severity"`
	Summary       string          `json:"summary_tactical"`
	Tags          []string        `json:"tags"`
	Entities      []domain.Entity `json:"entities"`
	LocationLabel *string         `json:"location_label"`
	Lat           *float64        `json:"lat"`
	Lng           *float64        `json:"lng"`
	ClusterKey    *string         `json:"graph_cluster_key"`
}

// Enrich implements Enricher.
func (e *ClaudeEnricher) Enrich(ctx context.Context, article *domain.Article, source *domain.Source) (*domain.EnrichedIncident, error) {
	prompt := buildPrompt(article, source)

	message, err := e.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(e.model),
		MaxTokens: maxResponseTokens,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to call enrichment model: %w", err)
	}

	var text strings.Builder
	for _, block := range message.Content {
		text.WriteString(block.Text)
	}

	payload, err := parsePayload(text.String())
	if err != nil {
		return nil, err
	}

	return &domain.EnrichedIncident{
		ID:            article.ID,
		Severity:      payload.Severity,
		Summary:       payload.Summary,
		Tags:          domain.StringArray(payload.Tags),
		Entities:      domain.EntityList(payload.Entities),
		LocationLabel: payload.LocationLabel,
		Lat:           payload.Lat,
		Lng:           payload.Lng,
		ClusterKey:    payload.ClusterKey,
		LLMModel:      e.model,
		PromptVersion: e.promptVersion,
	}, nil
}

// parsePayload unmarshals the model reply, tolerating markdown fences
// the model sometimes wraps JSON in despite instructions.
func parsePayload(text string) (*llmPayload, error) {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	text = strings.TrimSpace(text)

	var payload llmPayload
	if err := json.Unmarshal([]byte(text), &payload); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}

	if payload.Summary == "" {
		return nil, fmt.Errorf("%w: missing summary_tactical", ErrInvalidResponse)
	}

	switch payload.Severity {
	case domain.SeverityLow, domain.SeverityMedium, domain.SeverityHigh, domain.SeverityCritical:
	default:
		return nil, fmt.Errorf("%w: unknown severity %q", ErrInvalidResponse, payload.Severity)
	}

	if payload.Tags == nil {
		payload.Tags = []string{}
	}
	if payload.Entities == nil {
		payload.Entities = []domain.Entity{}
	}

	return &payload, nil
}

func buildPrompt(article *domain.Article, source *domain.Source) string {
	published := "Unknown"
	if article.PublishedAt != nil {
		published = article.PublishedAt.Format("2006-01-02")
	}

	body := truncate(article.Body, maxPromptBody)

	return fmt.Sprintf(`You are a tactical analyst for police intelligence. Analyze this police news release and extract structured intelligence.

**Article Details:**
Agency: %s
Region: %s
Published: %s
Title: %s

**Body:**
%s

**Tasks:**
1. **Severity Classification** (choose ONE):
   - CRITICAL: Homicide, assassination, mass casualty, prison escape, cop killer, active shooter
   - HIGH: Gang shooting, armed robbery, kidnapping, carjacking ring, missing person (suspicious), major drug bust
   - MEDIUM: Drug bust, industrial theft, weapon seizure, organized theft ring
   - LOW: Non-violent property crime, minor incidents

2. **Tactical Summary**: One-sentence summary suitable for intelligence briefing (max 150 chars)

3. **Tags**: Select 2-4 tags from: [Homicide, Gang Activity, Trafficking, Escape, Armed Assault, Carjacking, Missing Person, Theft Ring, Drug Bust, Weapons Seizure, Organized Crime]

4. **Entities**: Extract specific entities (gang names, key individuals, specific locations/landmarks). Format as list of objects with "type" (Person, Group, Location) and "name".

5. **Location**: Extract the most specific location mentioned. Estimate latitude/longitude coordinates for the location within %s.

6. **Graph Cluster**: Suggest a cluster/theme key if this relates to a larger pattern (e.g., "Fraser Valley Gang War", "Highway 1 Trafficking Ring", or null if standalone).

**Output Format (JSON only, no markdown):**
{
  "severity": "HIGH",
  "summary_tactical": "Armed robbery at commercial premises, suspects fled",
  "tags": ["Armed Assault", "Organized Crime"],
  "entities": [
    {"type": "Location", "name": "Industrial Ave, Langley"},
    {"type": "Group", "name": "Suspect gang affiliation"}
  ],
  "location_label": "Langley, BC - Industrial Ave",
  "lat": 49.1042,
  "lng": -122.6604,
  "graph_cluster_key": "Fraser Valley Property Crime"
}`,
		source.AgencyName,
		source.RegionLabel,
		published,
		article.Title,
		body,
		source.RegionLabel,
	)
}
