package ingest

import (
	"context"
	"fmt"
	"sync"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"

	"github.com/crimewatch/ingest/internal/logger"
)

// Renderer fetches pages through a headless browser for sources whose
// listings only materialize after JavaScript runs. The browser launches
// lazily on first use and is shared across fetches.
type Renderer struct {
	mu        sync.Mutex
	browser   *rod.Browser
	userAgent string
	logger    logger.Logger
}

// NewRenderer creates a headless browser renderer. The browser is not
// launched until the first Render call.
func NewRenderer(userAgent string, log logger.Logger) *Renderer {
	return &Renderer{
		userAgent: userAgent,
		logger:    log,
	}
}

// Render loads a URL in the browser and returns the page HTML after
// load completes.
func (r *Renderer) Render(ctx context.Context, pageURL string) (string, error) {
	browser, err := r.connect()
	if err != nil {
		return "", err
	}

	page, err := browser.Page(proto.TargetCreateTarget{})
	if err != nil {
		return "", fmt.Errorf("failed to open browser page: %w", err)
	}
	defer func() {
		if closeErr := page.Close(); closeErr != nil {
			r.logger.Warn("failed to close browser page", logger.Error(closeErr))
		}
	}()

	page = page.Context(ctx)

	if r.userAgent != "" {
		override := proto.NetworkSetUserAgentOverride{UserAgent: r.userAgent}
		if err := page.SetUserAgent(&override); err != nil {
			return "", fmt.Errorf("failed to set user agent: %w", err)
		}
	}

	if err := page.Navigate(pageURL); err != nil {
		return "", fmt.Errorf("failed to navigate to %s: %w", pageURL, err)
	}

	if err := page.WaitLoad(); err != nil {
		return "", fmt.Errorf("failed waiting for %s to load: %w", pageURL, err)
	}

	html, err := page.HTML()
	if err != nil {
		return "", fmt.Errorf("failed to read page HTML: %w", err)
	}

	return html, nil
}

// Close shuts the browser down if it was launched.
func (r *Renderer) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.browser == nil {
		return nil
	}

	browser := r.browser
	r.browser = nil

	return browser.Close()
}

func (r *Renderer) connect() (*rod.Browser, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.browser != nil {
		return r.browser, nil
	}

	path, _ := launcher.LookPath()
	controlURL, err := launcher.New().Bin(path).Headless(true).Launch()
	if err != nil {
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}

	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		return nil, fmt.Errorf("failed to connect to browser: %w", err)
	}

	r.logger.Info("headless browser launched")
	r.browser = browser

	return browser, nil
}
