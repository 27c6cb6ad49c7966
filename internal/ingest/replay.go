package ingest

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/crimewatch/ingest/internal/dates"
)

// ErrInvalidFixture is returned when a replay fixture file does not
// have the expected shape.
var ErrInvalidFixture = errors.New("invalid replay fixture")

// replayFixture mirrors the capture format produced by saving a live
// scrape pass to disk: a top-level articles array with bodies included.
type replayFixture struct {
	Articles []replayArticle `json:"articles"`
}

type replayArticle struct {
	Title         string `json:"title"`
	URL           string `json:"url"`
	PublishedDate string `json:"published_date"`
	Body          string `json:"body"`
}

// ReplayEntry is one captured article from a replay fixture.
type ReplayEntry struct {
	Candidate Candidate
	Body      string
}

// LoadReplayFixture reads a captured scrape fixture. Fixtures make
// ingestion deterministic for local development without hitting live
// newsroom sites.
func LoadReplayFixture(path string) ([]ReplayEntry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read replay fixture %s: %w", path, err)
	}

	var fixture replayFixture
	if err := json.Unmarshal(data, &fixture); err != nil {
		return nil, fmt.Errorf("failed to parse replay fixture %s: %w", path, err)
	}

	if fixture.Articles == nil {
		return nil, fmt.Errorf("%w: missing articles array in %s", ErrInvalidFixture, path)
	}

	entries := make([]ReplayEntry, 0, len(fixture.Articles))
	for _, a := range fixture.Articles {
		var publishedAt *time.Time
		if parsed, ok := dates.Parse(a.PublishedDate); ok {
			publishedAt = &parsed
		}

		entries = append(entries, ReplayEntry{
			Candidate: Candidate{
				URL:         a.URL,
				Title:       a.Title,
				PublishedAt: publishedAt,
			},
			Body: a.Body,
		})
	}

	return entries, nil
}
