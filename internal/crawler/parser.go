package crawler

import (
	"fmt"
	"io"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"pricewatch/internal/models"
)

// Default selectors for a catalog detail page.
const (
	DefaultHeadingSelector = "h1#product_name"
	DefaultPriceSelector   = "span.price.js-price"
)

// Parser extracts listing fields from a detail page.
type Parser struct {
	headingSelector string
	priceSelector   string
}

// NewParser creates a parser with the default selectors.
func NewParser() *Parser {
	return NewParserWithSelectors(DefaultHeadingSelector, DefaultPriceSelector)
}

// NewParserWithSelectors creates a parser with custom selectors.
func NewParserWithSelectors(heading, price string) *Parser {
	return &Parser{
		headingSelector: heading,
		priceSelector:   price,
	}
}

// ParseListing reads an HTML document and returns the raw listing text.
//
// The title is the first non-blank text node directly inside the heading,
// the group is the text of the first link inside the heading and the price
// text is the content of the first price element.
func (p *Parser) ParseListing(r io.Reader) (models.RawListing, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return models.RawListing{}, fmt.Errorf("failed to parse html: %w", err)
	}

	var raw models.RawListing

	heading := doc.Find(p.headingSelector).First()
	if heading.Length() > 0 {
		raw.Title = firstTextNode(heading)

		if link := heading.Find("a").First(); link.Length() > 0 {
			text := link.Text()
			raw.Group = &text
		}
	}

	if price := doc.Find(p.priceSelector).First(); price.Length() > 0 {
		text := price.Text()
		raw.PriceText = &text
	}

	return raw, nil
}

func firstTextNode(sel *goquery.Selection) *string {
	var found *string

	sel.Contents().EachWithBreak(func(_ int, node *goquery.Selection) bool {
		if goquery.NodeName(node) != "#text" {
			return true
		}

		text := strings.TrimSpace(node.Text())
		if text == "" {
			return true
		}

		found = &text

		return false
	})

	return found
}
