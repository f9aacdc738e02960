// Package acquire resolves url source descriptors into raw text by
// trying progressively more expensive fetch strategies in order.
package acquire

import (
	"context"
	"errors"
	"log"
	"strings"
)

// NoContentSentinel is the text ingested when every strategy fails and
// strict acquisition is disabled. Kept verbatim for compatibility with
// previously ingested corpora.
const NoContentSentinel = "No content found"

// ErrExhausted is returned by Chain.Resolve when every strategy failed
// or produced empty text.
var ErrExhausted = errors.New("all acquisition strategies exhausted")

// Strategy fetches a url and returns extracted plain text. A strategy
// reports failure by returning an error or empty text; it must never
// panic across the chain boundary.
type Strategy interface {
	Name() string
	Fetch(ctx context.Context, url string) (string, error)
}

// Chain tries strategies in strict order and returns the first
// non-empty result. Strategy errors are logged and swallowed so a
// failing strategy always falls through to the next one.
type Chain struct {
	strategies []Strategy
}

// NewChain creates a Chain over the given strategies. Order is
// significant: cheapest first.
func NewChain(strategies ...Strategy) *Chain {
	return &Chain{strategies: strategies}
}

// Resolve runs the chain for a url. Returns ErrExhausted when no
// strategy produced text.
func (c *Chain) Resolve(ctx context.Context, url string) (string, error) {
	for _, s := range c.strategies {
		text, err := s.Fetch(ctx, url)
		if err != nil {
			log.Printf("acquire: strategy %s failed for %s: %v", s.Name(), url, err)
			continue
		}
		if strings.TrimSpace(text) == "" {
			log.Printf("acquire: strategy %s returned no text for %s", s.Name(), url)
			continue
		}
		return text, nil
	}

	return "", ErrExhausted
}
