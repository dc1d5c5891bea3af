package scraper

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"legalrag-backend/retry"

	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

// ErrScrapeFailed is returned by Fetch when a page cannot be retrieved
var ErrScrapeFailed = errors.New("failed to scrape source")

const defaultUserAgent = "Mozilla/5.0 (compatible; LegalSourcesIndexer/1.0)"

// Scraper fetches official pages and reduces them to plain text
type Scraper struct {
	client    *http.Client
	userAgent string
	limiter   *rate.Limiter
	policy    retry.Policy
	maxBody   int64
}

// ScraperOption is a functional option for Scraper
type ScraperOption func(*Scraper)

// WithHTTPClient sets the HTTP client
func WithHTTPClient(client *http.Client) ScraperOption {
	return func(s *Scraper) {
		s.client = client
	}
}

// WithUserAgent sets the User-Agent header sent with every request
func WithUserAgent(ua string) ScraperOption {
	return func(s *Scraper) {
		if ua != "" {
			s.userAgent = ua
		}
	}
}

// WithMinInterval spaces consecutive fetches at least d apart
func WithMinInterval(d time.Duration) ScraperOption {
	return func(s *Scraper) {
		if d > 0 {
			s.limiter = rate.NewLimiter(rate.Every(d), 1)
		} else {
			s.limiter = nil
		}
	}
}

// WithRetryPolicy sets the per-request timeout and retry bounds
func WithRetryPolicy(p retry.Policy) ScraperOption {
	return func(s *Scraper) {
		s.policy = p
	}
}

// WithMaxBodyBytes caps how much of a response body is read
func WithMaxBodyBytes(n int64) ScraperOption {
	return func(s *Scraper) {
		if n > 0 {
			s.maxBody = n
		}
	}
}

// NewScraper creates a new scraper
func NewScraper(opts ...ScraperOption) *Scraper {
	s := &Scraper{
		client:    &http.Client{},
		userAgent: defaultUserAgent,
		policy:    retry.Policy{Attempts: 2, Backoff: 2 * time.Second, Timeout: 30 * time.Second},
		maxBody:   20 << 20,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Scrape returns the plain text of url, or "" when the page cannot be fetched.
// Failures are logged and never returned.
func (s *Scraper) Scrape(ctx context.Context, url string) string {
	text, err := s.Fetch(ctx, url)
	if err != nil {
		log.Warn().Err(err).Str("url", url).Msg("scrape failed")
		return ""
	}
	return text
}

// Fetch retrieves url and extracts its text
func (s *Scraper) Fetch(ctx context.Context, url string) (string, error) {
	if s.limiter != nil {
		if err := s.limiter.Wait(ctx); err != nil {
			return "", fmt.Errorf("%w: %v", ErrScrapeFailed, err)
		}
	}

	var text string
	err := retry.Do(ctx, s.policy, func(ctx context.Context) error {
		body, contentType, err := s.get(ctx, url)
		if err != nil {
			return err
		}
		text, err = Extract(body, contentType)
		if err != nil {
			return retry.Permanent(err)
		}
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrScrapeFailed, err)
	}
	return text, nil
}

func (s *Scraper) get(ctx context.Context, url string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, "", retry.Permanent(fmt.Errorf("invalid url: %w", err))
	}
	req.Header.Set("User-Agent", s.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/pdf;q=0.9,*/*;q=0.8")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		err := fmt.Errorf("unexpected status %d", resp.StatusCode)
		if resp.StatusCode >= 400 && resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests {
			return nil, "", retry.Permanent(err)
		}
		return nil, "", err
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, s.maxBody))
	if err != nil {
		return nil, "", fmt.Errorf("failed to read body: %w", err)
	}
	return body, resp.Header.Get("Content-Type"), nil
}

// Extract converts a response body into whitespace-normalised text
func Extract(body []byte, contentType string) (string, error) {
	ct := strings.ToLower(contentType)
	switch {
	case strings.Contains(ct, "application/pdf") || isPDF(body):
		return ExtractPDF(body)
	case strings.HasPrefix(ct, "text/plain"):
		return collapse(string(body)), nil
	default:
		return ExtractHTML(string(body)), nil
	}
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
