package notifier

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"pricewatch/internal/logger"
)

// ErrUnexpectedStatusCode is returned when the webhook does not answer 204.
var ErrUnexpectedStatusCode = errors.New("unexpected status code")

const (
	embedColor     = 0x3498db
	defaultTimeout = 30 * time.Second
	sourceLink     = "[PriceCharting](https://www.pricecharting.com/)"
)

// Embed is a Discord message embed.
type Embed struct {
	Title       string       `json:"title"`
	Description string       `json:"description"`
	Fields      []EmbedField `json:"fields"`
	Color       int          `json:"color"`
}

// EmbedField is one name/value pair of an embed.
type EmbedField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline"`
}

// WebhookMessage is the body posted to a Discord webhook.
type WebhookMessage struct {
	Embeds []Embed `json:"embeds"`
}

// Ensure Discord implements Notifier.
var _ Notifier = (*Discord)(nil)

// Discord posts the summary to a webhook.
type Discord struct {
	client *resty.Client
	logger *logger.Logger
	url    string
}

// DiscordOption customises a Discord notifier.
type DiscordOption func(*Discord)

// WithClient replaces the HTTP client.
func WithClient(c *resty.Client) DiscordOption {
	return func(d *Discord) {
		d.client = c
	}
}

// NewDiscord creates a webhook notifier.
func NewDiscord(url string, log *logger.Logger, opts ...DiscordOption) *Discord {
	d := &Discord{
		client: resty.New().SetTimeout(defaultTimeout),
		logger: log,
		url:    url,
	}

	for _, opt := range opts {
		opt(d)
	}

	return d
}

// BuildMessage renders the summary as a webhook message.
func BuildMessage(s Summary) WebhookMessage {
	top := strings.Join(s.TopLines(), "\n")
	if top == "" {
		top = "No pricing data available."
	}

	return WebhookMessage{Embeds: []Embed{{
		Title:       "📊 " + s.Title,
		Description: s.Description(),
		Color:       embedColor,
		Fields: []EmbedField{
			{Name: "💰 Total Ungraded Value", Value: s.Totals.TotalPrice.Dollars(), Inline: true},
			{Name: "📦 Total Cards Analyzed", Value: fmt.Sprintf("%d", s.Totals.Count), Inline: true},
			{Name: fmt.Sprintf("🔥 Top %d Most Expensive Cards", len(s.Top)), Value: top},
			{Name: "🔗 Source", Value: sourceLink},
		},
	}}}
}

// Notify posts the summary. Discord answers 204 on success.
func (d *Discord) Notify(ctx context.Context, s Summary) error {
	resp, err := d.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(BuildMessage(s)).
		Post(d.url)
	if err != nil {
		return fmt.Errorf("post webhook: %w", err)
	}

	if resp.StatusCode() != http.StatusNoContent {
		return fmt.Errorf("%w: %d: %s", ErrUnexpectedStatusCode, resp.StatusCode(), resp.String())
	}

	d.logger.Info("Discord message sent", "run_id", s.RunID)

	return nil
}
