// Package workbook reads and writes the spreadsheet that lists the tracked
// items, keeps rotating backups of it and exports the store.
package workbook

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"pricewatch/internal/models"
	"pricewatch/pkg/utils"
)

// Required column headers.
const (
	ColumnTitle = "Card Title"
	ColumnSet   = "Set"
	ColumnLink  = "Link"
	ColumnPrice = "Ungraded Price"
)

// Placeholders written for rows whose fetch produced no title or set.
const (
	TitleNotFound = "Title not found"
	SetNotFound   = "Set not found"
)

// Workbook errors.
var (
	ErrNotFound       = errors.New("workbook not found")
	ErrMissingColumns = errors.New("missing required columns")
	ErrRowOutOfRange  = errors.New("row out of range")
)

var requiredColumns = []string{ColumnTitle, ColumnSet, ColumnLink, ColumnPrice}

// Row is one line of the workbook.
type Row struct {
	Price *models.Price
	Title string
	Set   string
	Link  string
	// cells keeps every column, including ones the worker does not know
	// and cells past the last header.
	cells []string
}

// Workbook is the in-memory working table. It is not safe for concurrent
// use; callers serialise writes.
type Workbook struct {
	cols   map[string]int
	helper *utils.StringHelper
	sheet  string
	header []string
	rows   []Row
}

// Load reads the workbook at path, an .xlsx file or a .csv file, and
// checks its header.
func Load(path string) (*Workbook, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}

		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	return Read(f, FormatFor(path))
}

// Read parses a workbook from r.
func Read(r io.Reader, format Format) (*Workbook, error) {
	sheet, table, err := readTable(r, format)
	if err != nil {
		return nil, err
	}

	if len(table) == 0 {
		return nil, fmt.Errorf("%w: empty workbook", ErrMissingColumns)
	}

	header := table[0]

	wb := &Workbook{
		cols:   make(map[string]int, len(header)),
		helper: utils.NewStringHelper(),
		sheet:  sheet,
		header: header,
	}

	for i, h := range header {
		wb.cols[strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))] = i
	}

	var missing []string

	for _, c := range requiredColumns {
		if _, ok := wb.cols[c]; !ok {
			missing = append(missing, c)
		}
	}

	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrMissingColumns, strings.Join(missing, ", "))
	}

	for _, rec := range table[1:] {
		wb.rows = append(wb.rows, wb.rowFrom(rec))
	}

	return wb, nil
}

func (w *Workbook) rowFrom(rec []string) Row {
	cells := make([]string, max(len(w.header), len(rec)))
	copy(cells, rec)

	row := Row{
		Title: strings.TrimSpace(cells[w.cols[ColumnTitle]]),
		Set:   strings.TrimSpace(cells[w.cols[ColumnSet]]),
		Link:  strings.TrimSpace(cells[w.cols[ColumnLink]]),
		cells: cells,
	}

	if p, ok := parseCellPrice(cells[w.cols[ColumnPrice]]); ok {
		row.Price = &p
	}

	return row
}

// parseCellPrice accepts "12.50", "12.5", "$1,234.56" and a leading
// formula guard.
func parseCellPrice(cell string) (models.Price, bool) {
	s := strings.TrimSpace(strings.TrimPrefix(cell, "'"))
	s = strings.NewReplacer("$", "", ",", "").Replace(s)

	if s == "" {
		return 0, false
	}

	p, err := models.ParsePrice(s)
	if err != nil {
		return 0, false
	}

	return p, true
}

// Len returns the number of data rows.
func (w *Workbook) Len() int {
	return len(w.rows)
}

// Row returns a copy of row i.
func (w *Workbook) Row(i int) Row {
	return w.rows[i]
}

// Refs returns the links to refresh and, for each, the row it came from.
// Rows with an empty link are skipped.
func (w *Workbook) Refs() ([]models.ItemReference, []int) {
	refs := make([]models.ItemReference, 0, len(w.rows))
	rows := make([]int, 0, len(w.rows))

	for i, r := range w.rows {
		if r.Link == "" {
			continue
		}

		refs = append(refs, models.ItemReference(r.Link))
		rows = append(rows, i)
	}

	return refs, rows
}

// Apply records a fetch result against row i. Missing title and set become
// placeholders.
func (w *Workbook) Apply(i int, res models.FetchResult) error {
	if i < 0 || i >= len(w.rows) {
		return fmt.Errorf("%w: %d", ErrRowOutOfRange, i)
	}

	row := &w.rows[i]
	row.Title = deref(res.Title, TitleNotFound)
	row.Set = deref(res.Group, SetNotFound)
	row.Price = res.Price

	return nil
}

func deref(s *string, fallback string) string {
	if s == nil {
		return fallback
	}

	return *s
}

// Totals sums the prices currently in the working table.
func (w *Workbook) Totals() models.Totals {
	var t models.Totals

	for _, r := range w.rows {
		if r.Price != nil {
			t.TotalPrice += *r.Price
			t.Count++
		}
	}

	return t
}

// Save writes the working table to path, replacing the file atomically.
// The format follows the extension of path.
func (w *Workbook) Save(path string) error {
	table := make([][]any, 0, len(w.rows)+1)
	table = append(table, stringsToCells(w.header))

	for _, r := range w.rows {
		table = append(table, w.render(r))
	}

	return writeTable(path, FormatFor(path), w.sheet, table)
}

func (w *Workbook) render(r Row) []any {
	cells := make([]any, len(r.cells))
	for i, c := range r.cells {
		cells[i] = w.helper.SanitizeCell(c)
	}

	cells[w.cols[ColumnTitle]] = w.helper.SanitizeCell(r.Title)
	cells[w.cols[ColumnSet]] = w.helper.SanitizeCell(r.Set)
	cells[w.cols[ColumnLink]] = w.helper.SanitizeCell(r.Link)
	cells[w.cols[ColumnPrice]] = ""

	if r.Price != nil {
		cells[w.cols[ColumnPrice]] = *r.Price
	}

	return cells
}

func stringsToCells(ss []string) []any {
	out := make([]any, len(ss))
	for i, s := range ss {
		out[i] = s
	}

	return out
}
