// Package metrics tracks in-process ingestion counters exposed on the
// diagnostics endpoint.
package metrics

import (
	"sync"
	"time"
)

// Metrics tracks ingestion pipeline counters.
type Metrics struct {
	mu               sync.RWMutex
	refreshes        map[string]int64 // region -> completed refreshes
	articlesIngested map[string]int64 // region -> new articles
	sourceFailures   map[string]int64 // agency -> failed passes
	sourceDeferrals  map[string]int64 // agency -> deadline-cut passes
	llmEnriched      int64
	fallbackEnriched int64
	lastRefreshAt    time.Time
}

// New creates a metrics tracker.
func New() *Metrics {
	return &Metrics{
		refreshes:        make(map[string]int64),
		articlesIngested: make(map[string]int64),
		sourceFailures:   make(map[string]int64),
		sourceDeferrals:  make(map[string]int64),
	}
}

// RecordRefresh records a completed region refresh and its new-article count.
func (m *Metrics) RecordRefresh(region string, newArticles int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.refreshes[region]++
	m.articlesIngested[region] += int64(newArticles)
	m.lastRefreshAt = time.Now().UTC()
}

// RecordSourceFailure records a failed ingestion pass for an agency.
func (m *Metrics) RecordSourceFailure(agency string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sourceFailures[agency]++
}

// RecordSourceDeferral records a pass cut short by the source deadline.
// The remaining articles are picked up on the next pass.
func (m *Metrics) RecordSourceDeferral(agency string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sourceDeferrals[agency]++
}

// RecordEnrichment records whether an incident came from the LLM or the
// fallback path.
func (m *Metrics) RecordEnrichment(llm bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if llm {
		m.llmEnriched++
	} else {
		m.fallbackEnriched++
	}
}

// Snapshot returns all counters for the diagnostics endpoint.
func (m *Metrics) Snapshot() map[string]any {
	m.mu.RLock()
	defer m.mu.RUnlock()

	refreshes := make(map[string]int64, len(m.refreshes))
	for k, v := range m.refreshes {
		refreshes[k] = v
	}

	articles := make(map[string]int64, len(m.articlesIngested))
	for k, v := range m.articlesIngested {
		articles[k] = v
	}

	failures := make(map[string]int64, len(m.sourceFailures))
	for k, v := range m.sourceFailures {
		failures[k] = v
	}

	deferrals := make(map[string]int64, len(m.sourceDeferrals))
	for k, v := range m.sourceDeferrals {
		deferrals[k] = v
	}

	snapshot := map[string]any{
		"refreshes":         refreshes,
		"articles_ingested": articles,
		"source_failures":   failures,
		"source_deferrals":  deferrals,
		"llm_enriched":      m.llmEnriched,
		"fallback_enriched": m.fallbackEnriched,
	}

	if !m.lastRefreshAt.IsZero() {
		snapshot["last_refresh_at"] = m.lastRefreshAt
	}

	return snapshot
}
