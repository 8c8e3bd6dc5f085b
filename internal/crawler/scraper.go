// Package crawler fetches catalog detail pages and turns them into fetch results.
package crawler

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/go-resty/resty/v2"
	"golang.org/x/time/rate"

	"pricewatch/internal/config"
	"pricewatch/internal/logger"
	"pricewatch/internal/models"
	"pricewatch/internal/normalizer"
	"pricewatch/pkg/utils"
)

// Fetch errors carried in FetchResult.Err.
var (
	ErrUnexpectedStatusCode = errors.New("unexpected status code")
	ErrRateLimited          = errors.New("rate limited")
)

// Fetcher fetches and classifies a single item reference.
type Fetcher interface {
	Fetch(ctx context.Context, ref models.ItemReference) models.FetchResult
}

// Scraper is the HTTP Fetcher for catalog detail pages.
type Scraper struct {
	client     *resty.Client
	parser     *Parser
	processor  *normalizer.Processor
	classifier Classifier
	limiter    *rate.Limiter
	logger     *logger.Logger
	bodyLimit  int64
}

// ScraperOption customises a Scraper.
type ScraperOption func(*Scraper)

// WithClassifier replaces the default status classifier.
func WithClassifier(c Classifier) ScraperOption {
	return func(s *Scraper) {
		s.classifier = c
	}
}

// WithRestyClient replaces the HTTP client, e.g. to point it at a test server transport.
func WithRestyClient(c *resty.Client) ScraperOption {
	return func(s *Scraper) {
		s.client = c
	}
}

// NewScraper creates a scraper from fetch config.
func NewScraper(cfg config.FetchConfig, log *logger.Logger, opts ...ScraperOption) *Scraper {
	headers := utils.NewHTTPHelper(cfg.UserAgent).BuildHeaders(nil)

	client := resty.New().
		SetTimeout(cfg.GetTimeout()).
		SetHeader("User-Agent", headers.Get("User-Agent")).
		SetHeader("Accept", headers.Get("Accept")).
		SetHeader("Accept-Language", headers.Get("Accept-Language"))

	bodyLimit := int64(cfg.MaxBodyKb) * 1024
	if bodyLimit <= 0 {
		bodyLimit = 2 << 20
	}

	s := &Scraper{
		client:     client,
		parser:     NewParser(),
		processor:  normalizer.NewProcessor(cfg.AllowedHost),
		classifier: StatusClassifier{},
		logger:     log,
		bodyLimit:  bodyLimit,
	}

	if cfg.RequestsPerSecond > 0 {
		burst := int(cfg.RequestsPerSecond)
		if burst < 1 {
			burst = 1
		}

		s.limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), burst)
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Fetch validates ref, requests it once and classifies the outcome.
// It never returns an error; failures are encoded in the result status.
func (s *Scraper) Fetch(ctx context.Context, ref models.ItemReference) models.FetchResult {
	if err := s.processor.CheckReference(ref); err != nil {
		s.logger.Warn("invalid item reference", "ref", string(ref), "error", err)

		return models.FetchResult{Status: models.StatusInvalid, Err: err}
	}

	if s.limiter != nil {
		if err := s.limiter.Wait(ctx); err != nil {
			return models.FetchResult{Status: models.StatusTransientError, Err: fmt.Errorf("rate limiter: %w", err)}
		}
	}

	resp, err := s.client.R().
		SetContext(ctx).
		SetDoNotParseResponse(true).
		Get(string(ref))
	if err != nil {
		return models.FetchResult{Status: models.StatusTransientError, Err: fmt.Errorf("request failed: %w", err)}
	}

	body := resp.RawBody()
	defer func() {
		if body != nil {
			_ = body.Close()
		}
	}()

	code := resp.StatusCode()

	switch s.classifier.Classify(code) {
	case VerdictOK:
	case VerdictRateLimited:
		return models.FetchResult{
			Status:      models.StatusTransientError,
			RateLimited: true,
			StatusCode:  code,
			Err:         fmt.Errorf("%w: %d", ErrRateLimited, code),
		}
	case VerdictRetryable:
		return models.FetchResult{
			Status:     models.StatusTransientError,
			StatusCode: code,
			Err:        fmt.Errorf("%w: %d", ErrUnexpectedStatusCode, code),
		}
	default:
		return models.FetchResult{
			Status:     models.StatusNotFound,
			StatusCode: code,
			Err:        fmt.Errorf("%w: %d", ErrUnexpectedStatusCode, code),
		}
	}

	if body == nil {
		return models.FetchResult{Status: models.StatusTransientError, StatusCode: code, Err: io.ErrUnexpectedEOF}
	}

	raw, err := s.parser.ParseListing(io.LimitReader(body, s.bodyLimit))
	if err != nil {
		// The html tokenizer only fails on reader errors, i.e. a broken connection.
		return models.FetchResult{Status: models.StatusTransientError, StatusCode: code, Err: err}
	}

	result := s.processor.Process(raw)
	result.StatusCode = code

	return result
}
