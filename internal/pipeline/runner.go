// Package pipeline runs one refresh of the tracked catalog: load the
// workbook, fetch every item on a bounded pool, reconcile the results into
// the store, then write the workbook, the export and the summary.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"

	"pricewatch/internal/config"
	"pricewatch/internal/logger"
	"pricewatch/internal/models"
	"pricewatch/internal/notifier"
	"pricewatch/internal/progress"
	"pricewatch/internal/scheduler"
	"pricewatch/internal/store"
	"pricewatch/internal/workbook"
)

// ErrNilDependency is returned by Run when the runner is missing a collaborator.
var ErrNilDependency = errors.New("runner dependency is nil")

// Fetcher resolves one reference under the retry policy.
type Fetcher interface {
	FetchWithRetry(ctx context.Context, ref models.ItemReference) models.FetchResult
}

// Report describes a finished run.
type Report struct {
	RunID       string
	BackupPath  string
	Top         []models.CatalogRecord
	Totals      models.Totals
	SheetTotals models.Totals
	Stats
	Scheduled int
	Completed int
	Elapsed   time.Duration
}

// Runner wires the stages of a run.
type Runner struct {
	cfg      *config.Config
	fetcher  Fetcher
	store    store.Store
	notifier notifier.Notifier
	logger   *logger.Logger
	progress io.Writer
	now      func() time.Time
}

// Option customises a Runner.
type Option func(*Runner)

// WithClock overrides the clock used for backup names and timings.
func WithClock(now func() time.Time) Option {
	return func(r *Runner) {
		r.now = now
	}
}

// WithProgressWriter sets where the progress line is drawn. Nil disables it.
func WithProgressWriter(w io.Writer) Option {
	return func(r *Runner) {
		r.progress = w
	}
}

// NewRunner creates a runner.
func NewRunner(cfg *config.Config, f Fetcher, st store.Store, n notifier.Notifier, log *logger.Logger, opts ...Option) *Runner {
	r := &Runner{
		cfg:      cfg,
		fetcher:  f,
		store:    st,
		notifier: n,
		logger:   log,
		now:      time.Now,
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// Run performs one refresh. Only workbook and store setup failures and a
// failed aggregate query abort the run; per-item problems are counted in
// the report.
func (r *Runner) Run(ctx context.Context) (*Report, error) {
	if r.cfg == nil || r.fetcher == nil || r.store == nil || r.notifier == nil || r.logger == nil {
		return nil, ErrNilDependency
	}

	report := &Report{RunID: uuid.NewString()}
	log := r.logger.With("run_id", report.RunID)
	path := r.cfg.Workbook.Path

	log.Info("🚀 Starting price refresh", "workbook", path)

	// 1. Load and back up the workbook
	wb, err := workbook.Load(path)
	if err != nil {
		return nil, fmt.Errorf("load workbook: %w", err)
	}

	report.BackupPath, err = workbook.Backup(path, r.now())
	if err != nil {
		return nil, fmt.Errorf("backup workbook: %w", err)
	}

	log.Info("Backup created", "path", report.BackupPath)

	removed, err := workbook.Rotate(path, r.cfg.Workbook.MaxBackups)
	if err != nil {
		log.Warn("backup rotation failed", "error", err)
	}

	for _, f := range removed {
		log.Info("Deleted old backup", "path", f)
	}

	if err := r.store.Init(ctx); err != nil {
		return nil, fmt.Errorf("init store: %w", err)
	}

	// 2. Fetch and reconcile
	refs, rows := wb.Refs()
	report.Scheduled = len(refs)

	reporter := progress.NewReporter(len(refs), r.progressSink())
	reconciler := NewReconciler(r.store, wb, rows, log.With("component", "reconciler"))

	pool := scheduler.NewPool(
		scheduler.FromFetch(r.fetcher.FetchWithRetry),
		func(ctx context.Context, o models.Outcome) {
			defer reporter.Increment()

			reconciler.Apply(ctx, o)
		},
		log.With("component", "scheduler"),
	)

	start := r.now()
	pool.RunBatch(ctx, refs, r.cfg.Batch.Concurrency)
	report.Elapsed = r.now().Sub(start)
	report.Stats = reconciler.Stats()
	report.Completed = reporter.Completed()

	if r.progress != nil {
		fmt.Fprintln(r.progress)
	}

	log.Info("✅ Scraping completed",
		"elapsed", report.Elapsed.Round(time.Millisecond).String(),
		"succeeded", report.Succeeded,
		"failed", report.Failed,
		"store_errors", report.StoreErrors)

	// 3. Persist the working table and the export
	report.SheetTotals = wb.Totals()

	if err := wb.Save(path); err != nil {
		log.Error("workbook save failed", "error", err)
	} else {
		log.Info("Workbook updated", "path", path)
	}

	r.export(ctx, log)

	// 4. Aggregate and notify
	report.Totals, err = r.store.Totals(ctx)
	if err != nil {
		return report, fmt.Errorf("compute totals: %w", err)
	}

	report.Top, err = r.store.TopByPrice(ctx, r.cfg.Notify.TopN)
	if err != nil {
		log.Warn("top records unavailable", "error", err)
	}

	summary := notifier.Summary{
		Title:  r.cfg.Notify.Title,
		RunID:  report.RunID,
		Totals: report.Totals,
		Top:    report.Top,
	}

	if err := r.notifier.Notify(ctx, summary); err != nil {
		log.Error("notification failed", "error", err)
	}

	log.Info("✨ Run complete",
		"total_value", report.Totals.TotalPrice.String(),
		"priced_items", report.Totals.Count)

	return report, nil
}

func (r *Runner) export(ctx context.Context, log *logger.Logger) {
	exportPath := r.cfg.Workbook.ExportPath
	if exportPath == "" {
		return
	}

	records, err := r.store.All(ctx)
	if err != nil {
		log.Error("export failed", "error", err)

		return
	}

	if err := workbook.Export(exportPath, records); err != nil {
		log.Error("export failed", "error", err)

		return
	}

	log.Info("Data exported", "path", exportPath, "records", len(records))
}

func (r *Runner) progressSink() progress.Sink {
	if r.progress == nil {
		return nil
	}

	return func(s models.ProgressState) {
		fmt.Fprintf(r.progress, "\r%s", progress.Format(s))
	}
}
