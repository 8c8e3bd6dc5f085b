// Package normalizer validates item references and normalizes scraped listings.
package normalizer

import (
	"pricewatch/internal/models"
)

// Processor bundles reference validation and listing normalization.
type Processor struct {
	validator   *Validator
	transformer *Transformer
}

// NewProcessor creates a new processor for references on allowedHost.
func NewProcessor(allowedHost string) *Processor {
	return &Processor{
		validator:   NewValidator(allowedHost),
		transformer: NewTransformer(),
	}
}

// CheckReference returns nil when ref may be fetched.
func (p *Processor) CheckReference(ref models.ItemReference) error {
	return p.validator.Validate(ref)
}

// Process normalizes a raw listing into a successful fetch result.
func (p *Processor) Process(raw models.RawListing) models.FetchResult {
	return p.transformer.Transform(raw)
}
