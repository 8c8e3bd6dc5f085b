package normalizer

import (
	"regexp"
	"strings"

	"pricewatch/internal/models"
	"pricewatch/pkg/utils"
)

// Transformer turns scraped text into typed listing fields.
type Transformer struct {
	pricePattern *regexp.Regexp
	strings      *utils.StringHelper
}

// NewTransformer creates a new transformer instance.
func NewTransformer() *Transformer {
	return &Transformer{
		pricePattern: regexp.MustCompile(`\d+\.\d{2}`),
		strings:      utils.NewStringHelper(),
	}
}

// Transform converts a raw listing into a successful fetch result.
func (t *Transformer) Transform(raw models.RawListing) models.FetchResult {
	result := models.FetchResult{
		Status: models.StatusSuccess,
		Title:  t.cleanText(raw.Title),
		Group:  t.cleanText(raw.Group),
	}

	if raw.PriceText != nil {
		result.Price = t.ExtractPrice(*raw.PriceText)
	}

	return result
}

// ExtractPrice finds the first "digits.digits{2}" token after thousands
// separators are removed. Returns nil when there is none.
func (t *Transformer) ExtractPrice(text string) *models.Price {
	token := t.pricePattern.FindString(strings.ReplaceAll(text, ",", ""))
	if token == "" {
		return nil
	}

	p, err := models.ParsePrice(token)
	if err != nil {
		return nil
	}

	return &p
}

// cleanText normalizes whitespace; empty text counts as absent.
func (t *Transformer) cleanText(s *string) *string {
	if s == nil {
		return nil
	}

	cleaned := t.strings.NormalizeWhitespace(*s)
	if cleaned == "" {
		return nil
	}

	return &cleaned
}
