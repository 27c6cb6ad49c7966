package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/crimewatch/ingest/internal/config"
	"github.com/crimewatch/ingest/internal/domain"
	"github.com/crimewatch/ingest/internal/htmlcontent"
	"github.com/crimewatch/ingest/internal/logger"
	"github.com/crimewatch/ingest/internal/retry"
)

// maxResponseBytes bounds how much of a response body is read. Newsroom
// pages are small; anything past this is not an article.
const maxResponseBytes = 5 << 20

// Fetcher retrieves listing and article pages for sources, choosing
// between plain HTTP and headless rendering per source. Transient
// failures retry with exponential backoff.
type Fetcher struct {
	client        *http.Client
	renderer      *Renderer
	retryCfg      retry.Config
	userAgent     string
	minBodyLength int
	logger        logger.Logger
}

// statusError is a non-2xx HTTP response. Server-side codes retry;
// client-side codes do not.
type statusError struct {
	code int
	url  string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("unexpected status %d fetching %s", e.code, e.url)
}

// NewFetcher creates a fetcher. renderer may be nil when no source
// needs browser rendering.
func NewFetcher(cfg config.IngestionConfig, renderer *Renderer, log logger.Logger) *Fetcher {
	retryCfg := retry.DefaultConfig()
	retryCfg.IsRetryable = func(err error) bool {
		var se *statusError
		if errors.As(err, &se) {
			return se.code >= http.StatusInternalServerError || se.code == http.StatusTooManyRequests
		}
		return retry.DefaultIsRetryable(err)
	}

	return &Fetcher{
		client: &http.Client{
			Timeout: cfg.RequestTimeout,
		},
		renderer:      renderer,
		retryCfg:      retryCfg,
		userAgent:     cfg.UserAgent,
		minBodyLength: cfg.MinBodyLength,
		logger:        log,
	}
}

// FetchPage retrieves a page document for a source, rendering through
// the browser when the source requires it.
func (f *Fetcher) FetchPage(ctx context.Context, source *domain.Source, pageURL string) (string, error) {
	var document string

	err := retry.Do(ctx, f.retryCfg, func() error {
		var fetchErr error
		if source.UseBrowser && f.renderer != nil {
			document, fetchErr = f.renderer.Render(ctx, pageURL)
		} else {
			document, fetchErr = f.httpGet(ctx, pageURL)
		}
		return fetchErr
	})
	if err != nil {
		return "", fmt.Errorf("failed to fetch %s: %w", pageURL, err)
	}

	return document, nil
}

// FetchArticle retrieves a candidate's detail page and builds the raw
// article record. Returns (nil, nil) when the extracted body is too
// thin to be a real release.
func (f *Fetcher) FetchArticle(ctx context.Context, source *domain.Source, candidate Candidate) (*domain.Article, error) {
	document, err := f.FetchPage(ctx, source, candidate.URL)
	if err != nil {
		return nil, err
	}

	body, err := htmlcontent.ExtractFromHTML(document, htmlcontent.DefaultSelectors)
	if err != nil {
		return nil, fmt.Errorf("failed to extract article body: %w", err)
	}

	if len(body) < f.minBodyLength {
		// Selector extraction came up short; readability often recovers
		// the body on theme-heavy pages.
		_, readable := htmlcontent.ReadabilityFallback(document, candidate.URL)
		if len(readable) > len(body) {
			body = readable
		}
	}

	if len(body) < f.minBodyLength {
		f.logger.Debug("dropping thin article",
			logger.String("url", candidate.URL),
			logger.Int("body_length", len(body)),
		)
		return nil, nil
	}

	return &domain.Article{
		SourceID:    source.ID,
		Fingerprint: domain.NewFingerprint(candidate.URL, candidate.Title),
		URL:         candidate.URL,
		Title:       candidate.Title,
		PublishedAt: candidate.PublishedAt,
		Body:        body,
		RawHTML:     domain.ClampRawHTML(document),
	}, nil
}

func (f *Fetcher) httpGet(ctx context.Context, pageURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return "", fmt.Errorf("failed to build request: %w", err)
	}

	if f.userAgent != "" {
		req.Header.Set("User-Agent", f.userAgent)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", &statusError{code: resp.StatusCode, url: pageURL}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return "", fmt.Errorf("failed to read response body: %w", err)
	}

	return string(body), nil
}
