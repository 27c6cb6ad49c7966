// Package dates parses publication timestamps out of heterogeneous text.
//
// Newsroom pages carry dates in wildly different shapes: ISO attributes on
// <time> elements, long-form "December 1, 2024" headings, or a date buried
// mid-sentence. Parse tries a full-string parse first and falls back to
// scanning for the most specific date-looking substring.
package dates

import (
	"regexp"
	"strings"
	"time"

	"github.com/araddon/dateparse"
)

// datePatterns are ordered from most to least specific so that a full
// ISO timestamp wins over a bare year-month-day buried in the same text.
var datePatterns = []*regexp.Regexp{
	regexp.MustCompile(`\d{4}-\d{2}-\d{2}T\d{2}:\d{2}:\d{2}(?:Z|[+-]\d{2}:?\d{2})?`),
	regexp.MustCompile(`\d{4}-\d{2}-\d{2}`),
	regexp.MustCompile(`\d{1,2}/\d{1,2}/\d{4}`),
	regexp.MustCompile(`(?i)(January|February|March|April|May|June|July|August|September|October|November|December)\s+\d{1,2}(?:st|nd|rd|th)?,?\s+\d{4}`),
	regexp.MustCompile(`(?i)(Jan|Feb|Mar|Apr|May|Jun|Jul|Aug|Sep|Sept|Oct|Nov|Dec)\.?\s+\d{1,2}(?:st|nd|rd|th)?,?\s+\d{4}`),
}

var ordinalSuffix = regexp.MustCompile(`(\d{1,2})(st|nd|rd|th)`)

// Parse extracts a timestamp from text using a month-first convention for
// ambiguous numeric dates. Returns false when nothing parses; it never
// returns an error, since an unknown date is an expected outcome.
func Parse(text string) (time.Time, bool) {
	return ParseInConvention(text, false)
}

// ParseInConvention is Parse with an explicit day-first convention for
// ambiguous forms like 03/04/2024. The convention is configured per source.
func ParseInConvention(text string, dayFirst bool) (time.Time, bool) {
	text = strings.TrimSpace(text)
	if text == "" {
		return time.Time{}, false
	}

	opts := []dateparse.ParserOption{dateparse.PreferMonthFirst(!dayFirst)}

	if t, err := dateparse.ParseAny(text, opts...); err == nil {
		return t, true
	}

	// Scan for an embedded date, most specific pattern first.
	for _, pattern := range datePatterns {
		match := pattern.FindString(text)
		if match == "" {
			continue
		}
		match = ordinalSuffix.ReplaceAllString(match, "$1")
		if t, err := dateparse.ParseAny(match, opts...); err == nil {
			return t, true
		}
	}

	return time.Time{}, false
}
