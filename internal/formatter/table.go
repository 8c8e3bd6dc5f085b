// Package formatter renders aligned text tables for terminal output.
package formatter

import (
	"strings"

	"github.com/mattn/go-runewidth"
)

// minColumnWidth keeps the separator at least "---" wide.
const minColumnWidth = 3

// Table renders header and rows as a pipe table padded by display width,
// so wide runes and emoji line up:
//
//	| #   | Card         | Price  |
//	| --- | ------------ | ------ |
//	| 1   | Charizard #4 | $12.50 |
//
// Short rows are padded with empty cells and cells are trimmed.
func Table(header []string, rows [][]string) []string {
	table := make([][]string, 0, len(rows)+1)
	table = append(table, trimCells(header))

	for _, r := range rows {
		table = append(table, trimCells(r))
	}

	colCount := 0
	for _, row := range table {
		if len(row) > colCount {
			colCount = len(row)
		}
	}

	if colCount == 0 {
		return nil
	}

	widths := make([]int, colCount)
	for i := range widths {
		widths[i] = minColumnWidth
	}

	for _, row := range table {
		for i, cell := range row {
			if w := runewidth.StringWidth(cell); w > widths[i] {
				widths[i] = w
			}
		}
	}

	out := make([]string, 0, len(table)+1)
	out = append(out, renderRow(table[0], widths))
	out = append(out, renderSeparator(widths))

	for _, row := range table[1:] {
		out = append(out, renderRow(row, widths))
	}

	return out
}

func trimCells(cells []string) []string {
	out := make([]string, len(cells))
	for i, c := range cells {
		out[i] = strings.TrimSpace(c)
	}

	return out
}

func renderRow(row []string, widths []int) string {
	var sb strings.Builder

	sb.WriteString("|")

	for j, w := range widths {
		content := ""
		if j < len(row) {
			content = row[j]
		}

		sb.WriteString(" ")
		sb.WriteString(content)

		if pad := w - runewidth.StringWidth(content); pad > 0 {
			sb.WriteString(strings.Repeat(" ", pad))
		}

		sb.WriteString(" |")
	}

	return sb.String()
}

func renderSeparator(widths []int) string {
	var sb strings.Builder

	sb.WriteString("|")

	for _, w := range widths {
		sb.WriteString(" ")
		sb.WriteString(strings.Repeat("-", w))
		sb.WriteString(" |")
	}

	return sb.String()
}
