package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pricewatch/internal/config"
	"pricewatch/internal/logger"
	"pricewatch/internal/models"
)

func sampleSummary() Summary {
	return Summary{
		Title: "Base Set Price Update",
		RunID: "run-1",
		Totals: models.Totals{
			TotalPrice: models.PriceFromCents(41249),
			Count:      2,
		},
		Top: []models.CatalogRecord{
			{Title: "Charizard #4", Group: "Pokemon Base Set", Price: models.PricePtr(40000)},
			{Title: "Blastoise #2", Group: "Pokemon Base Set", Price: models.PricePtr(1249)},
		},
	}
}

func TestBuildMessage(t *testing.T) {
	msg := BuildMessage(sampleSummary())

	require.Len(t, msg.Embeds, 1)

	embed := msg.Embeds[0]
	assert.Equal(t, "📊 Base Set Price Update", embed.Title)
	assert.Equal(t, "Your collection is worth $412.49 with 2 cards.", embed.Description)
	assert.Equal(t, 0x3498db, embed.Color)
	require.Len(t, embed.Fields, 4)
	assert.Equal(t, "$412.49", embed.Fields[0].Value)
	assert.Equal(t, "2", embed.Fields[1].Value)
	assert.Equal(t,
		"1. Charizard #4 (Pokemon Base Set) - $400.00\n2. Blastoise #2 (Pokemon Base Set) - $12.49",
		embed.Fields[2].Value)
}

func TestBuildMessage_NoPrices(t *testing.T) {
	msg := BuildMessage(Summary{Title: "t"})

	assert.Equal(t, "No pricing data available.", msg.Embeds[0].Fields[2].Value)
}

func TestDiscord_Notify(t *testing.T) {
	var got WebhookMessage

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Contains(t, r.Header.Get("Content-Type"), "application/json")
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	err := NewDiscord(srv.URL, logger.Discard()).Notify(context.Background(), sampleSummary())
	require.NoError(t, err)

	require.Len(t, got.Embeds, 1)
	assert.Equal(t, "$412.49", got.Embeds[0].Fields[0].Value)
}

func TestDiscord_NotifyRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"message": "Invalid Form Body"}`))
	}))
	defer srv.Close()

	err := NewDiscord(srv.URL, logger.Discard()).Notify(context.Background(), sampleSummary())
	require.ErrorIs(t, err, ErrUnexpectedStatusCode)
	assert.Contains(t, err.Error(), "Invalid Form Body")
}

func TestConsole_Notify(t *testing.T) {
	var buf bytes.Buffer

	require.NoError(t, NewConsole(&buf).Notify(context.Background(), sampleSummary()))

	out := buf.String()
	assert.Contains(t, out, "Base Set Price Update")
	assert.Contains(t, out, "Total Ungraded Value: $412.49")
	assert.Contains(t, out, "| 1   | Charizard #4 | Pokemon Base Set | $400.00 |")
}

func TestNew_FallsBackToConsole(t *testing.T) {
	var buf bytes.Buffer

	n := New(config.NotifyConfig{}, &buf, logger.Discard())
	assert.IsType(t, &Console{}, n)

	n = New(config.NotifyConfig{WebhookURL: "http://example.invalid/hook"}, &buf, logger.Discard())
	assert.IsType(t, &Discord{}, n)
}

func TestRecordTable_NullPrice(t *testing.T) {
	lines := RecordTable([]models.CatalogRecord{{Title: "X", Group: "Y"}})

	require.Len(t, lines, 3)
	assert.True(t, strings.HasSuffix(lines[2], "| -     |"), lines[2])
}

func TestRecordTable_TruncatesLongTitles(t *testing.T) {
	long := strings.Repeat("x", 60)

	lines := RecordTable([]models.CatalogRecord{{Title: long, Group: "Y"}})

	assert.Contains(t, lines[2], strings.Repeat("x", 40)+"...")
	assert.NotContains(t, lines[2], strings.Repeat("x", 41))
}
