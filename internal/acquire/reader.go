package acquire

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// ReaderProxyStrategy delegates extraction to a hosted reader service
// (e.g. a Jina-style r.<host>/ proxy) that returns pre-extracted plain
// text for a url appended to its base address. Last resort strategy.
type ReaderProxyStrategy struct {
	baseURL string
	client  *http.Client
	timeout time.Duration
}

// NewReaderProxyStrategy creates a ReaderProxyStrategy for the given
// proxy base URL.
func NewReaderProxyStrategy(baseURL string, client *http.Client, timeout time.Duration) *ReaderProxyStrategy {
	if client == nil {
		client = &http.Client{}
	}
	if timeout <= 0 {
		timeout = defaultFetchTimeout
	}
	return &ReaderProxyStrategy{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  client,
		timeout: timeout,
	}
}

func (s *ReaderProxyStrategy) Name() string {
	return "reader-proxy"
}

func (s *ReaderProxyStrategy) Fetch(ctx context.Context, url string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	proxyURL := s.baseURL + "/" + url
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, proxyURL, nil)
	if err != nil {
		return "", fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "text/plain")

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("reader proxy fetch failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("reader proxy returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxFetchBytes))
	if err != nil {
		return "", fmt.Errorf("failed to read reader proxy response: %w", err)
	}

	return string(body), nil
}
