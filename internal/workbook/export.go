package workbook

import (
	"time"

	"pricewatch/internal/models"
	"pricewatch/pkg/utils"
)

const exportSheet = "Cards"

var exportHeader = []string{"id", "card_title", "card_set", "price", "link", "updated_at"}

// Export writes records to path in the given order, as a workbook or as
// CSV depending on the extension.
func Export(path string, records []models.CatalogRecord) error {
	helper := utils.NewStringHelper()

	table := make([][]any, 0, len(records)+1)
	table = append(table, stringsToCells(exportHeader))

	for _, rec := range records {
		var price any = ""
		if rec.Price != nil {
			price = *rec.Price
		}

		table = append(table, []any{
			rec.ID,
			helper.SanitizeCell(rec.Title),
			helper.SanitizeCell(rec.Group),
			price,
			helper.SanitizeCell(rec.Link),
			rec.UpdatedAt.UTC().Format(time.DateTime),
		})
	}

	return writeTable(path, FormatFor(path), exportSheet, table)
}
