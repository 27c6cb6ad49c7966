// Package ingest lists, fetches, and normalizes news releases from
// police newsroom sites. Each source topology gets its own listing
// strategy; article fetching and body extraction are shared.
package ingest

import (
	"errors"
	"fmt"
	"time"

	"github.com/crimewatch/ingest/internal/domain"
	"github.com/crimewatch/ingest/internal/logger"
)

// ErrUnknownTopology is returned when a source names a topology with no
// registered listing strategy.
var ErrUnknownTopology = errors.New("unknown source topology")

// Candidate is a single article link discovered on a listing page,
// before its detail page has been fetched.
type Candidate struct {
	URL         string
	Title       string
	PublishedAt *time.Time
}

// ListingStrategy extracts article candidates from a fetched listing
// document. Implementations are stateless; per-source knobs come from
// the Source itself.
type ListingStrategy interface {
	// Topology returns the source topology this strategy handles.
	Topology() string

	// ListCandidates parses a listing document and returns candidate
	// article links in page order. pageURL is the URL the document was
	// fetched from, used to resolve relative hrefs.
	ListCandidates(document, pageURL string, source *domain.Source) ([]Candidate, error)
}

// Registry maps source topologies to their listing strategies.
type Registry struct {
	strategies map[string]ListingStrategy
	logger     logger.Logger
}

// NewRegistry creates a registry with all built-in strategies registered.
func NewRegistry(log logger.Logger) *Registry {
	r := &Registry{
		strategies: make(map[string]ListingStrategy),
		logger:     log,
	}

	r.Register(NewRCMPStrategy())
	r.Register(NewWordPressStrategy())
	r.Register(NewMunicipalListStrategy())
	r.Register(NewAbbyPDStrategy())
	r.Register(NewFeedStrategy())

	return r
}

// Register adds a strategy, replacing any existing one for the same topology.
func (r *Registry) Register(s ListingStrategy) {
	r.strategies[s.Topology()] = s
}

// Lookup returns the strategy for a topology.
func (r *Registry) Lookup(topology string) (ListingStrategy, error) {
	s, ok := r.strategies[topology]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownTopology, topology)
	}

	return s, nil
}
