package acquire

import (
	"context"
	"fmt"
	"time"

	"github.com/chromedp/chromedp"
)

// DefaultRenderTimeout bounds a full browser render. Rendering is the
// most expensive strategy and must never hang the ingest.
const DefaultRenderTimeout = 30 * time.Second

// BrowserStrategy renders the page in a headless browser before
// extraction. Handles JS-rendered pages and most bot-detection
// interstitials that defeat the direct fetch.
type BrowserStrategy struct {
	timeout time.Duration
}

// NewBrowserStrategy creates a BrowserStrategy with the given render
// timeout. A non-positive timeout uses DefaultRenderTimeout.
func NewBrowserStrategy(timeout time.Duration) *BrowserStrategy {
	if timeout <= 0 {
		timeout = DefaultRenderTimeout
	}
	return &BrowserStrategy{timeout: timeout}
}

func (s *BrowserStrategy) Name() string {
	return "browser"
}

func (s *BrowserStrategy) Fetch(ctx context.Context, url string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, chromedp.DefaultExecAllocatorOptions[:]...)
	defer cancelAlloc()

	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)
	defer cancelBrowser()

	var html string
	err := chromedp.Run(browserCtx,
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	)
	if err != nil {
		return "", fmt.Errorf("browser render failed: %w", err)
	}

	return extractArticle(html, url)
}
