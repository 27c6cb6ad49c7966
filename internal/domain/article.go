package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// FingerprintLength is the number of hex characters kept from the
// SHA-256 digest when fingerprinting an article.
const FingerprintLength = 32

// MaxRawHTMLBytes bounds the stored HTML snapshot per article.
const MaxRawHTMLBytes = 10000

// Article is the canonical extracted representation of one news release.
// It is ephemeral until the refresh coordinator persists it; persistence
// is keyed by (source_id, fingerprint) with a uniqueness constraint.
type Article struct {
	ID          int64      `db:"id"           json:"id"`
	SourceID    int64      `db:"source_id"    json:"source_id"`
	Fingerprint string     `db:"fingerprint"  json:"fingerprint"`
	URL         string     `db:"url"          json:"url"`
	Title       string     `db:"title_raw"    json:"title"`
	PublishedAt *time.Time `db:"published_at" json:"published_at,omitempty"`
	Body        string     `db:"body_raw"     json:"body"`
	RawHTML     *string    `db:"raw_html"     json:"-"`
	CreatedAt   time.Time  `db:"created_at"   json:"created_at"`
}

// NewFingerprint derives a stable content identifier from (url, title).
// Re-scraping the same listing always yields the same fingerprint for the
// same release.
func NewFingerprint(url, title string) string {
	sum := sha256.Sum256([]byte(url + title))
	return hex.EncodeToString(sum[:])[:FingerprintLength]
}

// ClampRawHTML truncates an HTML snapshot to the stored bound.
// Returns nil for empty input.
func ClampRawHTML(rawHTML string) *string {
	if rawHTML == "" {
		return nil
	}
	if len(rawHTML) > MaxRawHTMLBytes {
		rawHTML = rawHTML[:MaxRawHTMLBytes]
	}
	return &rawHTML
}
