// Package notifier publishes the end-of-run summary.
package notifier

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"pricewatch/internal/config"
	"pricewatch/internal/formatter"
	"pricewatch/internal/logger"
	"pricewatch/internal/models"
	"pricewatch/pkg/utils"
)

// maxTitleWidth bounds card titles in the console table.
const maxTitleWidth = 40

// Summary is what a run reports once the store has settled.
type Summary struct {
	Title  string
	RunID  string
	Top    []models.CatalogRecord
	Totals models.Totals
}

// Description is the one-line summary used as the message body.
func (s Summary) Description() string {
	return fmt.Sprintf("Your collection is worth %s with %d cards.", s.Totals.TotalPrice.Dollars(), s.Totals.Count)
}

// TopLines renders the ranked list "1. Title (Group) - $12.50".
func (s Summary) TopLines() []string {
	lines := make([]string, 0, len(s.Top))

	for i, rec := range s.Top {
		lines = append(lines, fmt.Sprintf("%d. %s (%s) - %s", i+1, rec.Title, rec.Group, priceText(rec.Price)))
	}

	return lines
}

func priceText(p *models.Price) string {
	if p == nil {
		return "-"
	}

	return p.Dollars()
}

// Notifier delivers a summary.
type Notifier interface {
	Notify(ctx context.Context, s Summary) error
}

// New returns the Discord notifier when a webhook URL is configured and
// the console notifier otherwise.
func New(cfg config.NotifyConfig, out io.Writer, log *logger.Logger) Notifier {
	if cfg.WebhookURL == "" {
		log.Warn("Discord webhook URL missing, printing summary to console")

		return NewConsole(out)
	}

	return NewDiscord(cfg.WebhookURL, log)
}

// Ensure Console implements Notifier.
var _ Notifier = (*Console)(nil)

// Console prints the summary as an aligned table.
type Console struct {
	out io.Writer
}

// NewConsole creates a console notifier writing to out.
func NewConsole(out io.Writer) *Console {
	return &Console{out: out}
}

// Notify writes the summary.
func (c *Console) Notify(_ context.Context, s Summary) error {
	var sb strings.Builder

	sb.WriteString("\n------------------------------------------------\n")
	fmt.Fprintf(&sb, "📊 %s\n", s.Title)
	sb.WriteString("------------------------------------------------\n")
	fmt.Fprintf(&sb, "💰 Total Ungraded Value: %s\n", s.Totals.TotalPrice.Dollars())
	fmt.Fprintf(&sb, "📦 Total Cards Analyzed: %d\n", s.Totals.Count)

	if len(s.Top) == 0 {
		sb.WriteString("No pricing data available.\n")
	} else {
		for _, line := range RecordTable(s.Top) {
			sb.WriteString(line)
			sb.WriteString("\n")
		}
	}

	sb.WriteString("------------------------------------------------\n")

	if _, err := io.WriteString(c.out, sb.String()); err != nil {
		return fmt.Errorf("write summary: %w", err)
	}

	return nil
}

// RecordTable renders ranked records as a table.
func RecordTable(records []models.CatalogRecord) []string {
	helper := utils.NewStringHelper()
	rows := make([][]string, 0, len(records))

	for i, rec := range records {
		rows = append(rows, []string{
			strconv.Itoa(i + 1),
			helper.TruncateString(rec.Title, maxTitleWidth),
			helper.TruncateString(rec.Group, maxTitleWidth),
			priceText(rec.Price),
		})
	}

	return formatter.Table([]string{"#", "Card", "Set", "Price"}, rows)
}
