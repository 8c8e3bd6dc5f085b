package crawler

import (
	"context"

	"pricewatch/internal/config"
	"pricewatch/internal/logger"
	"pricewatch/internal/models"
)

// Client bundles the scraper and the retry controller used by one run.
type Client struct {
	scraper Fetcher
	retrier *Retrier
}

// NewClient creates a crawler client with default dependencies.
func NewClient(cfg *config.Config, log *logger.Logger) *Client {
	scraper := NewScraper(cfg.Fetch, log.With("component", "scraper"))

	return NewClientWithDeps(scraper, NewRetrier(scraper, cfg.Retry, log.With("component", "retry")))
}

// NewClientWithDeps creates a crawler client with injected dependencies.
func NewClientWithDeps(scraper Fetcher, retrier *Retrier) *Client {
	return &Client{
		scraper: scraper,
		retrier: retrier,
	}
}

// Fetch performs a single attempt without retries.
func (c *Client) Fetch(ctx context.Context, ref models.ItemReference) models.FetchResult {
	return c.scraper.Fetch(ctx, ref)
}

// FetchWithRetry fetches ref under the retry policy.
func (c *Client) FetchWithRetry(ctx context.Context, ref models.ItemReference) models.FetchResult {
	return c.retrier.FetchWithRetry(ctx, ref)
}
