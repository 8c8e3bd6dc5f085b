package pipeline

import (
	"context"
	"sync"

	"pricewatch/internal/logger"
	"pricewatch/internal/models"
	"pricewatch/internal/store"
	"pricewatch/internal/workbook"
)

// Stats counts per-item outcomes of a batch.
type Stats struct {
	Succeeded   int
	Failed      int
	StoreErrors int
}

// Reconciler folds fetch outcomes into the store and the working table.
// Apply is safe for concurrent use.
type Reconciler struct {
	store  store.Store
	table  *workbook.Workbook
	logger *logger.Logger
	// rows maps a batch index to its workbook row.
	rows  []int
	mu    sync.Mutex
	stats Stats
}

// NewReconciler creates a reconciler. rows[i] is the workbook row of the
// i-th scheduled reference.
func NewReconciler(st store.Store, table *workbook.Workbook, rows []int, log *logger.Logger) *Reconciler {
	return &Reconciler{
		store:  st,
		table:  table,
		rows:   rows,
		logger: log,
	}
}

// Apply upserts a successful result and records every result in the
// working table. Failed fetches leave the store untouched so an existing
// record keeps its last good price.
func (r *Reconciler) Apply(ctx context.Context, o models.Outcome) {
	storeErr := false

	if o.Result.OK() {
		rec := models.CatalogRecord{
			Title: deref(o.Result.Title, workbook.TitleNotFound),
			Group: deref(o.Result.Group, workbook.SetNotFound),
			Price: o.Result.Price,
			Link:  string(o.Ref),
		}

		if err := r.store.Upsert(ctx, rec); err != nil {
			storeErr = true

			r.logger.Error("store upsert failed", "ref", string(o.Ref), "error", err)
		}
	} else {
		r.logger.Debug("fetch did not succeed",
			"ref", string(o.Ref),
			"status", o.Result.Status.String(),
			"attempts", o.Result.Attempts,
			"error", o.Result.Err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	switch {
	case storeErr:
		r.stats.StoreErrors++
	case o.Result.OK():
		r.stats.Succeeded++
	default:
		r.stats.Failed++
	}

	if o.Index < 0 || o.Index >= len(r.rows) {
		r.logger.Error("outcome index has no workbook row", "index", o.Index)

		return
	}

	if err := r.table.Apply(r.rows[o.Index], o.Result); err != nil {
		r.logger.Error("working table update failed", "index", o.Index, "error", err)
	}
}

// Stats returns a snapshot of the counters.
func (r *Reconciler) Stats() Stats {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.stats
}

func deref(s *string, fallback string) string {
	if s == nil {
		return fallback
	}

	return *s
}
