package workbook

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"pricewatch/internal/models"
)

// Format is the on-disk layout of a workbook or export.
type Format int

// Supported formats.
const (
	FormatXLSX Format = iota
	FormatCSV
)

// defaultSheet is the sheet excelize creates in a new file.
const defaultSheet = "Sheet1"

// ErrNoSheet is returned for a spreadsheet without any sheet.
var ErrNoSheet = errors.New("spreadsheet has no sheets")

// FormatFor picks the format from the file extension. Anything that is not
// ".csv" is treated as an Excel workbook.
func FormatFor(path string) Format {
	if strings.EqualFold(filepath.Ext(path), ".csv") {
		return FormatCSV
	}

	return FormatXLSX
}

// readTable returns the name of the sheet it read and its rows. CSV input
// has no sheet name.
func readTable(r io.Reader, format Format) (string, [][]string, error) {
	if format == FormatCSV {
		cr := csv.NewReader(r)
		cr.FieldsPerRecord = -1

		rows, err := cr.ReadAll()
		if err != nil {
			return "", nil, fmt.Errorf("read csv: %w", err)
		}

		return "", rows, nil
	}

	f, err := excelize.OpenReader(r)
	if err != nil {
		return "", nil, fmt.Errorf("open xlsx: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return "", nil, ErrNoSheet
	}

	// The first sheet holds the table.
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return "", nil, fmt.Errorf("read sheet %q: %w", sheets[0], err)
	}

	return sheets[0], rows, nil
}

// writeTable replaces path with rows. Cells are strings, int64 ids or
// models.Price values; prices become numeric cells in a workbook.
func writeTable(path string, format Format, sheet string, rows [][]any) error {
	return writeAtomic(path, func(w io.Writer) error {
		if format == FormatCSV {
			return writeCSV(w, rows)
		}

		return writeXLSX(w, sheet, rows)
	})
}

func writeCSV(w io.Writer, rows [][]any) error {
	cw := csv.NewWriter(w)

	for _, row := range rows {
		rec := make([]string, len(row))
		for i, v := range row {
			rec[i] = cellText(v)
		}

		if err := cw.Write(rec); err != nil {
			return err
		}
	}

	cw.Flush()

	return cw.Error()
}

func cellText(v any) string {
	switch v := v.(type) {
	case string:
		return v
	case int64:
		return strconv.FormatInt(v, 10)
	case models.Price:
		return v.String()
	}

	return fmt.Sprint(v)
}

func writeXLSX(w io.Writer, sheet string, rows [][]any) error {
	f := excelize.NewFile()
	defer f.Close()

	if sheet == "" {
		sheet = defaultSheet
	}

	if sheet != defaultSheet {
		if err := f.SetSheetName(defaultSheet, sheet); err != nil {
			return fmt.Errorf("name sheet %q: %w", sheet, err)
		}
	}

	for r, row := range rows {
		for c, v := range row {
			cell, err := excelize.CoordinatesToCellName(c+1, r+1)
			if err != nil {
				return err
			}

			switch v := v.(type) {
			case models.Price:
				err = f.SetCellFloat(sheet, cell, v.Float64(), 2, 64)
			case int64:
				err = f.SetCellInt(sheet, cell, int(v))
			default:
				err = f.SetCellStr(sheet, cell, cellText(v))
			}

			if err != nil {
				return fmt.Errorf("set %s: %w", cell, err)
			}
		}
	}

	return f.Write(w)
}

// writeAtomic writes through a temporary file in the same directory and
// renames it into place.
func writeAtomic(path string, fill func(io.Writer) error) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := fill(tmp); err != nil {
		tmp.Close()

		return fmt.Errorf("write %s: %w", path, err)
	}

	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", path, err)
	}

	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("replace %s: %w", path, err)
	}

	return nil
}
