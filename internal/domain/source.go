// Package domain provides domain models shared across the service.
package domain

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Topology tags select which listing strategy a source uses.
const (
	TopologyRCMPNewsroom  = "rcmp_newsroom"
	TopologyWordPress     = "wordpress"
	TopologyMunicipalList = "municipal_list"
	TopologyAbbyPD        = "abbypd_news"
	TopologyRSSFeed       = "rss_feed"
)

// Source is a configured police newsroom endpoint. Sources are created by
// configuration sync; the pipeline only updates last_checked_at and active.
type Source struct {
	ID           int64       `db:"id"             json:"id"`
	AgencyName   string      `db:"agency_name"    json:"agency_name"`
	Jurisdiction string      `db:"jurisdiction"   json:"jurisdiction"`
	RegionLabel  string      `db:"region_label"   json:"region_label"`
	Topology     string      `db:"topology"       json:"topology"`
	BaseURL      string      `db:"base_url"       json:"base_url"`
	Active       bool        `db:"active"         json:"active"`
	UseBrowser   bool        `db:"use_browser"    json:"use_browser"`
	DateDayFirst bool        `db:"date_day_first" json:"date_day_first"`
	Denylist     StringArray `db:"denylist"       json:"denylist,omitempty"`
	MaxArticles  int         `db:"max_articles"   json:"max_articles"`
	LastChecked  *time.Time  `db:"last_checked_at" json:"last_checked_at,omitempty"`
	CreatedAt    time.Time   `db:"created_at"     json:"created_at"`
	UpdatedAt    time.Time   `db:"updated_at"     json:"updated_at"`
}

// Validate checks the fields configuration sync must supply.
func (s *Source) Validate() error {
	if s.AgencyName == "" {
		return errors.New("agency_name is required")
	}
	if s.RegionLabel == "" {
		return errors.New("region_label is required")
	}
	if s.BaseURL == "" {
		return errors.New("base_url is required")
	}
	switch s.Topology {
	case TopologyRCMPNewsroom, TopologyWordPress, TopologyMunicipalList, TopologyAbbyPD, TopologyRSSFeed:
		return nil
	default:
		return fmt.Errorf("unknown topology: %q", s.Topology)
	}
}

// StringArray stores a string slice as JSON in the database.
type StringArray []string

// Value implements driver.Valuer.
func (a StringArray) Value() (driver.Value, error) {
	if len(a) == 0 {
		return "[]", nil
	}
	return json.Marshal(a)
}

// Scan implements sql.Scanner.
func (a *StringArray) Scan(value any) error {
	if value == nil {
		*a = nil
		return nil
	}
	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, a)
	case string:
		return json.Unmarshal([]byte(v), a)
	default:
		return fmt.Errorf("cannot scan %T into StringArray", value)
	}
}
