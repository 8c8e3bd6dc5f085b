package models

import "time"

// CatalogRecord is the persisted state of one catalog entry, keyed by Link.
type CatalogRecord struct {
	UpdatedAt time.Time `json:"updatedAt"`
	Price     *Price    `json:"price,omitempty"`
	Title     string    `json:"title"`
	Group     string    `json:"group"`
	Link      string    `json:"link"`
	ID        int64     `json:"id"`
}

// Totals aggregates the non-null prices held in the store.
type Totals struct {
	TotalPrice Price `json:"totalPrice"`
	Count      int   `json:"count"`
}

// ProgressState is a snapshot of batch progress.
type ProgressState struct {
	StartedAt time.Time
	Completed int
	Total     int
}

// Percent returns completion as a percentage in [0, 100].
func (s ProgressState) Percent() float64 {
	if s.Total <= 0 {
		return 100
	}

	return float64(s.Completed) / float64(s.Total) * 100
}

// Elapsed returns the time since the batch started.
func (s ProgressState) Elapsed() time.Duration {
	return time.Since(s.StartedAt)
}
