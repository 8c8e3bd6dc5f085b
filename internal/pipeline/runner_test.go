package pipeline

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pricewatch/internal/config"
	"pricewatch/internal/crawler"
	"pricewatch/internal/logger"
	"pricewatch/internal/models"
	"pricewatch/internal/notifier"
	"pricewatch/internal/store"
	"pricewatch/internal/workbook"
)

const charizardPage = `<html><body>
<h1 id="product_name">Charizard #4 <a href="/console/pokemon-base-set">Base Set</a></h1>
<span class="price js-price">$12.50</span>
</body></html>`

// recordingNotifier keeps every summary it is given.
type recordingNotifier struct {
	mu        sync.Mutex
	summaries []notifier.Summary
}

func (n *recordingNotifier) Notify(_ context.Context, s notifier.Summary) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.summaries = append(n.summaries, s)

	return nil
}

type fixture struct {
	cfg      *config.Config
	store    *store.SQLite
	notifier *recordingNotifier
	calls    *atomic.Int32
	baseURL  string
}

// newFixture starts a fake catalog site. handler decides each response.
func newFixture(t *testing.T, handler http.HandlerFunc) *fixture {
	t.Helper()

	var calls atomic.Int32

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		handler(w, r)
	}))
	t.Cleanup(srv.Close)

	dir := t.TempDir()

	cfg := config.Default()
	cfg.Fetch.AllowedHost = "127.0.0.1"
	cfg.Store = config.StoreConfig{Driver: config.DriverSQLite, DSN: ":memory:"}
	cfg.Workbook.Path = filepath.Join(dir, "cards.csv")
	cfg.Workbook.ExportPath = filepath.Join(dir, "export.csv")
	cfg.Batch.Concurrency = 4

	st, err := store.OpenSQLite(cfg.Store.DSN)
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	return &fixture{
		cfg:      cfg,
		store:    st,
		notifier: &recordingNotifier{},
		calls:    &calls,
		baseURL:  srv.URL,
	}
}

func (f *fixture) writeWorkbook(t *testing.T, links ...string) {
	t.Helper()

	var sb strings.Builder

	sb.WriteString("Card Title,Set,Link,Ungraded Price\n")

	for _, l := range links {
		sb.WriteString(",," + l + ",\n")
	}

	require.NoError(t, os.WriteFile(f.cfg.Workbook.Path, []byte(sb.String()), 0o644))
}

func (f *fixture) run(t *testing.T, opts ...Option) *Report {
	t.Helper()

	log := logger.Discard()
	scraper := crawler.NewScraper(f.cfg.Fetch, log)
	retrier := crawler.NewRetrier(scraper, f.cfg.Retry, log, crawler.WithSleeper(func(time.Duration) {}))

	report, err := NewRunner(f.cfg, retrier, f.store, f.notifier, log, opts...).Run(context.Background())
	require.NoError(t, err)

	return report
}

func TestRunner_EndToEnd(t *testing.T) {
	f := newFixture(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(charizardPage))
	})

	link := f.baseURL + "/game/pokemon-base-set/charizard-4"
	f.writeWorkbook(t, link)

	var progressOut bytes.Buffer

	report := f.run(t, WithProgressWriter(&progressOut))

	assert.NotEmpty(t, report.RunID)
	assert.Equal(t, 1, report.Scheduled)
	assert.Equal(t, 1, report.Completed)
	assert.Equal(t, 1, report.Succeeded)
	assert.Equal(t, models.Totals{TotalPrice: models.PriceFromCents(1250), Count: 1}, report.Totals)
	assert.Contains(t, progressOut.String(), "[Progress] 100.00% (1/1)")

	records, err := f.store.All(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "Charizard #4", records[0].Title)
	assert.Equal(t, "Base Set", records[0].Group)
	assert.Equal(t, link, records[0].Link)
	assert.Equal(t, "12.50", records[0].Price.String())

	wb, err := workbook.Load(f.cfg.Workbook.Path)
	require.NoError(t, err)
	assert.Equal(t, "Charizard #4", wb.Row(0).Title)
	assert.Equal(t, "12.50", wb.Row(0).Price.String())

	export, err := os.ReadFile(f.cfg.Workbook.ExportPath)
	require.NoError(t, err)
	assert.Contains(t, string(export), "Charizard #4,Base Set,12.50,"+link)

	_, err = os.Stat(report.BackupPath)
	assert.NoError(t, err)

	require.Len(t, f.notifier.summaries, 1)
	assert.Equal(t, report.Totals, f.notifier.summaries[0].Totals)
	require.Len(t, f.notifier.summaries[0].Top, 1)
}

func TestRunner_PersistentRateLimit(t *testing.T) {
	f := newFixture(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	})

	f.writeWorkbook(t, f.baseURL+"/game/pokemon-base-set/charizard-4")

	report := f.run(t)

	assert.EqualValues(t, 3, f.calls.Load())
	assert.Equal(t, 1, report.Failed)
	assert.Equal(t, models.Totals{}, report.Totals)

	records, err := f.store.All(context.Background())
	require.NoError(t, err)
	assert.Empty(t, records)

	wb, err := workbook.Load(f.cfg.Workbook.Path)
	require.NoError(t, err)

	row := wb.Row(0)
	assert.Equal(t, workbook.TitleNotFound, row.Title)
	assert.Equal(t, workbook.SetNotFound, row.Set)
	assert.Nil(t, row.Price)
}

func TestRunner_FailedRefreshKeepsLastGoodPrice(t *testing.T) {
	var fail atomic.Bool

	f := newFixture(t, func(w http.ResponseWriter, _ *http.Request) {
		if fail.Load() {
			w.WriteHeader(http.StatusNotFound)

			return
		}

		_, _ = w.Write([]byte(charizardPage))
	})

	f.writeWorkbook(t, f.baseURL+"/game/pokemon-base-set/charizard-4")
	f.run(t)

	fail.Store(true)

	report := f.run(t)

	assert.Equal(t, 1, report.Failed)
	assert.Equal(t, models.Totals{TotalPrice: models.PriceFromCents(1250), Count: 1}, report.Totals)
}

func TestRunner_MixedBatch(t *testing.T) {
	f := newFixture(t, func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "missing") {
			w.WriteHeader(http.StatusNotFound)

			return
		}

		_, _ = w.Write([]byte(strings.Replace(charizardPage, "Charizard #4", "Card "+r.URL.Path, 1)))
	})

	f.writeWorkbook(t,
		f.baseURL+"/game/a",
		"https://evil.example.com/game/b",
		"",
		f.baseURL+"/game/missing",
		f.baseURL+"/game/c",
	)

	report := f.run(t)

	assert.Equal(t, 4, report.Scheduled)
	assert.Equal(t, 2, report.Succeeded)
	assert.Equal(t, 2, report.Failed)
	assert.EqualValues(t, 3, f.calls.Load(), "invalid references never reach the network")
	assert.Equal(t, 2, report.Totals.Count)

	wb, err := workbook.Load(f.cfg.Workbook.Path)
	require.NoError(t, err)
	require.Equal(t, 5, wb.Len())
	assert.Equal(t, "Card /game/a", wb.Row(0).Title)
	assert.Equal(t, workbook.TitleNotFound, wb.Row(1).Title)
	assert.Equal(t, "", wb.Row(2).Title, "rows without a link are untouched")
	assert.Equal(t, workbook.TitleNotFound, wb.Row(3).Title)
	assert.Equal(t, "Card /game/c", wb.Row(4).Title)
}

// panickingStore fails every upsert with a panic.
type panickingStore struct {
	*store.SQLite
}

func (panickingStore) Upsert(context.Context, models.CatalogRecord) error {
	panic("disk on fire")
}

func TestRunner_StorePanicStillCountsProgress(t *testing.T) {
	f := newFixture(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(charizardPage))
	})

	f.writeWorkbook(t, f.baseURL+"/game/a", f.baseURL+"/game/b", f.baseURL+"/game/c")

	var progressOut bytes.Buffer

	log := logger.Discard()
	scraper := crawler.NewScraper(f.cfg.Fetch, log)
	retrier := crawler.NewRetrier(scraper, f.cfg.Retry, log, crawler.WithSleeper(func(time.Duration) {}))

	report, err := NewRunner(f.cfg, retrier, panickingStore{f.store}, f.notifier, log, WithProgressWriter(&progressOut)).
		Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 3, report.Scheduled)
	assert.Equal(t, 3, report.Completed)
	assert.Contains(t, progressOut.String(), "[Progress] 100.00% (3/3)")
}

func TestRunner_FatalErrors(t *testing.T) {
	f := newFixture(t, func(http.ResponseWriter, *http.Request) {})

	run := func() error {
		_, err := NewRunner(f.cfg, crawler.NewRetrier(nil, f.cfg.Retry, logger.Discard()), f.store, f.notifier, logger.Discard()).
			Run(context.Background())

		return err
	}

	err := run()
	assert.ErrorIs(t, err, workbook.ErrNotFound)

	require.NoError(t, os.WriteFile(f.cfg.Workbook.Path, []byte("Link\n"), 0o644))
	assert.ErrorIs(t, run(), workbook.ErrMissingColumns)

	_, err = NewRunner(f.cfg, nil, f.store, f.notifier, logger.Discard()).Run(context.Background())
	assert.True(t, errors.Is(err, ErrNilDependency))
}
