package models

// RawListing holds the text scraped from a detail page before normalization.
// A nil field means the element was not present on the page.
type RawListing struct {
	Title     *string
	Group     *string
	PriceText *string
}
