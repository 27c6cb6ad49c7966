package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/crimewatch/ingest/internal/domain"
)

type sourcesFile struct {
	Sources []sourceSeed `yaml:"sources"`
}

type sourceSeed struct {
	AgencyName   string   `yaml:"agency_name"`
	Jurisdiction string   `yaml:"jurisdiction"`
	RegionLabel  string   `yaml:"region_label"`
	Topology     string   `yaml:"topology"`
	BaseURL      string   `yaml:"base_url"`
	Active       *bool    `yaml:"active"`
	UseBrowser   bool     `yaml:"use_browser"`
	DateDayFirst bool     `yaml:"date_day_first"`
	Denylist     []string `yaml:"denylist"`
	MaxArticles  int      `yaml:"max_articles"`
}

// LoadSources reads the source seed file. Sources default to active unless
// the entry says otherwise.
func LoadSources(path string) ([]*domain.Source, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read sources file %s: %w", path, err)
	}

	var file sourcesFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse sources file %s: %w", path, err)
	}

	sources := make([]*domain.Source, 0, len(file.Sources))
	for i, seed := range file.Sources {
		src := &domain.Source{
			AgencyName:   seed.AgencyName,
			Jurisdiction: seed.Jurisdiction,
			RegionLabel:  seed.RegionLabel,
			Topology:     seed.Topology,
			BaseURL:      seed.BaseURL,
			Active:       true,
			UseBrowser:   seed.UseBrowser,
			DateDayFirst: seed.DateDayFirst,
			Denylist:     seed.Denylist,
			MaxArticles:  seed.MaxArticles,
		}
		if seed.Active != nil {
			src.Active = *seed.Active
		}
		if err := src.Validate(); err != nil {
			return nil, fmt.Errorf("sources[%d] (%s): %w", i, seed.AgencyName, err)
		}
		sources = append(sources, src)
	}

	return sources, nil
}
