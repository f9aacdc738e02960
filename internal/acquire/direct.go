package acquire

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	// maxFetchBytes bounds how much HTML a single fetch will read.
	maxFetchBytes = 10 * 1024 * 1024

	defaultFetchTimeout = 15 * time.Second

	userAgent = "sourcebook/1.0 (+https://github.com/sourcebook-ai/sourcebook)"
)

// DirectStrategy fetches a url with a plain HTTP GET and applies
// article extraction to the response HTML. It is the cheapest strategy
// and runs first.
type DirectStrategy struct {
	client  *http.Client
	timeout time.Duration
}

// NewDirectStrategy creates a DirectStrategy. A nil client uses a
// default client; a non-positive timeout uses the package default.
func NewDirectStrategy(client *http.Client, timeout time.Duration) *DirectStrategy {
	if client == nil {
		client = &http.Client{}
	}
	if timeout <= 0 {
		timeout = defaultFetchTimeout
	}
	return &DirectStrategy{client: client, timeout: timeout}
}

func (s *DirectStrategy) Name() string {
	return "direct"
}

func (s *DirectStrategy) Fetch(ctx context.Context, url string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxFetchBytes))
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	return extractArticle(string(body), url)
}
