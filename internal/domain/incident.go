package domain

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// Severity levels assigned by enrichment.
const (
	SeverityLow      = "LOW"
	SeverityMedium   = "MEDIUM"
	SeverityHigh     = "HIGH"
	SeverityCritical = "CRITICAL"
)

// Entity is a person, group, or location extracted from a release.
type Entity struct {
	Type string `json:"type"`
	Name string `json:"name"`
}

// EntityList stores entities as JSON in the database.
type EntityList []Entity

// Value implements driver.Valuer.
func (e EntityList) Value() (driver.Value, error) {
	if len(e) == 0 {
		return "[]", nil
	}
	return json.Marshal(e)
}

// Scan implements sql.Scanner.
func (e *EntityList) Scan(value any) error {
	if value == nil {
		*e = nil
		return nil
	}
	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, e)
	case string:
		return json.Unmarshal([]byte(v), e)
	default:
		return fmt.Errorf("cannot scan %T into EntityList", value)
	}
}

// EnrichedIncident is the 1:1 extension of a persisted article with
// LLM-extracted intelligence. Never mutated after creation.
type EnrichedIncident struct {
	ID            int64       `db:"id"                json:"id"` // articles_raw.id
	Severity      string      `db:"severity"          json:"severity"`
	Summary       string      `db:"summary_tactical"  json:"summary"`
	Tags          StringArray `db:"tags"              json:"tags"`
	Entities      EntityList  `db:"entities"          json:"entities"`
	LocationLabel *string     `db:"location_label"    json:"location_label,omitempty"`
	Lat           *float64    `db:"lat"               json:"lat,omitempty"`
	Lng           *float64    `db:"lng"               json:"lng,omitempty"`
	ClusterKey    *string     `db:"graph_cluster_key" json:"graph_cluster_key,omitempty"`
	LLMModel      string      `db:"llm_model"         json:"llm_model"`
	PromptVersion string      `db:"prompt_version"    json:"prompt_version"`
	ProcessedAt   time.Time   `db:"processed_at"      json:"processed_at"`
}

// IncidentView is the citizen-facing read model joining an article, its
// enrichment, and the owning source.
type IncidentView struct {
	Article  Article
	Incident EnrichedIncident
	Source   Source
}
