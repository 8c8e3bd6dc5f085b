// Package models defines the data structures shared by the fetch, reconcile and reporting stages.
package models

import "fmt"

// ItemReference is the URL of a single catalog entry to refresh.
type ItemReference string

// FetchStatus classifies the outcome of fetching one item reference.
type FetchStatus int

// Fetch outcomes.
const (
	StatusSuccess FetchStatus = iota
	StatusNotFound
	StatusInvalid
	StatusTransientError
)

// String returns the lower-case name of the status.
func (s FetchStatus) String() string {
	switch s {
	case StatusSuccess:
		return "success"
	case StatusNotFound:
		return "not_found"
	case StatusInvalid:
		return "invalid"
	case StatusTransientError:
		return "transient_error"
	}

	return fmt.Sprintf("status(%d)", int(s))
}

// FetchResult is the structured outcome of fetching one detail page.
// Absent fields are nil, never placeholder strings.
type FetchResult struct {
	Err         error
	Title       *string
	Group       *string
	Price       *Price
	Status      FetchStatus
	StatusCode  int
	Attempts    int
	RateLimited bool
}

// OK reports whether the fetch succeeded.
func (r FetchResult) OK() bool {
	return r.Status == StatusSuccess
}

// Transient reports whether the result is worth another attempt.
func (r FetchResult) Transient() bool {
	return r.Status == StatusTransientError
}

// Unresolved is the result recorded for a task that failed unexpectedly.
func Unresolved(err error) FetchResult {
	return FetchResult{Status: StatusTransientError, Err: err}
}

// Outcome pairs a fetch result with the input position it belongs to.
type Outcome struct {
	Ref    ItemReference
	Result FetchResult
	Index  int
}

// StringPtr returns a pointer to s.
func StringPtr(s string) *string {
	return &s
}

// PricePtr returns a pointer to p.
func PricePtr(p Price) *Price {
	return &p
}
