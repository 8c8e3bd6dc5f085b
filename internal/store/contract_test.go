package store

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pricewatch/internal/models"
)

// stepClock advances by one minute on every call.
type stepClock struct {
	now time.Time
}

func (c *stepClock) Now() time.Time {
	c.now = c.now.Add(time.Minute)

	return c.now
}

// storeFactory returns an initialised, empty store that records clock as
// updated_at. The store is closed when the test ends.
type storeFactory func(t *testing.T, clock Clock) Store

func record(title, group, link string, cents int64) models.CatalogRecord {
	return models.CatalogRecord{
		Title: title,
		Group: group,
		Link:  link,
		Price: models.PricePtr(models.PriceFromCents(cents)),
	}
}

// runStoreContract checks the behaviour every Store driver shares.
func runStoreContract(t *testing.T, newStore storeFactory) {
	fresh := func(t *testing.T) Store {
		t.Helper()

		clock := &stepClock{now: time.Date(2024, 5, 1, 7, 0, 0, 0, time.UTC)}

		return newStore(t, clock.Now)
	}

	t.Run("upsert is idempotent", func(t *testing.T) {
		ctx := context.Background()
		s := fresh(t)

		const link = "https://www.pricecharting.com/game/pokemon-base-set/charizard-4"

		require.NoError(t, s.Upsert(ctx, record("Charizard #4", "Pokemon Base Set", link, 1250)))

		first, err := s.All(ctx)
		require.NoError(t, err)
		require.Len(t, first, 1)

		// A later refresh with a different title must not rename the record.
		require.NoError(t, s.Upsert(ctx, record("Charizard", "Other Set", link, 1399)))

		second, err := s.All(ctx)
		require.NoError(t, err)
		require.Len(t, second, 1)

		got := second[0]
		assert.Equal(t, first[0].ID, got.ID)
		assert.Equal(t, "Charizard #4", got.Title)
		assert.Equal(t, "Pokemon Base Set", got.Group)
		require.NotNil(t, got.Price)
		assert.Equal(t, int64(1399), got.Price.Cents())
		assert.True(t, got.UpdatedAt.After(first[0].UpdatedAt))
	})

	t.Run("null price", func(t *testing.T) {
		ctx := context.Background()
		s := fresh(t)

		require.NoError(t, s.Upsert(ctx, models.CatalogRecord{Title: "Blastoise #2", Group: "Pokemon Base Set", Link: "b"}))

		all, err := s.All(ctx)
		require.NoError(t, err)
		require.Len(t, all, 1)
		assert.Nil(t, all[0].Price)

		totals, err := s.Totals(ctx)
		require.NoError(t, err)
		assert.Equal(t, models.Totals{}, totals)
	})

	t.Run("totals and top", func(t *testing.T) {
		ctx := context.Background()
		s := fresh(t)

		prices := []int64{1250, 99, 40000, 1999, 250, 5}
		for i, c := range prices {
			require.NoError(t, s.Upsert(ctx, record(fmt.Sprintf("Card %d", i), "Base", fmt.Sprintf("link-%d", i), c)))
		}

		require.NoError(t, s.Upsert(ctx, models.CatalogRecord{Title: "Unpriced", Group: "Base", Link: "link-x"}))

		totals, err := s.Totals(ctx)
		require.NoError(t, err)
		assert.Equal(t, 6, totals.Count)
		assert.Equal(t, "436.03", totals.TotalPrice.String())

		top, err := s.TopByPrice(ctx, 3)
		require.NoError(t, err)
		require.Len(t, top, 3)
		assert.Equal(t, []string{"link-2", "link-3", "link-0"}, []string{top[0].Link, top[1].Link, top[2].Link})
	})

	t.Run("all orders by recency", func(t *testing.T) {
		ctx := context.Background()
		s := fresh(t)

		for _, link := range []string{"a", "b", "c"} {
			require.NoError(t, s.Upsert(ctx, record(link, "g", link, 100)))
		}

		// Refreshing "a" moves it to the front.
		require.NoError(t, s.Upsert(ctx, record("a", "g", "a", 200)))

		all, err := s.All(ctx)
		require.NoError(t, err)
		require.Len(t, all, 3)
		assert.Equal(t, []string{"a", "c", "b"}, []string{all[0].Link, all[1].Link, all[2].Link})
	})

	t.Run("rejects empty link", func(t *testing.T) {
		s := fresh(t)

		err := s.Upsert(context.Background(), models.CatalogRecord{Title: "x"})
		assert.ErrorIs(t, err, ErrEmptyLink)
	})

	t.Run("init is idempotent", func(t *testing.T) {
		s := fresh(t)

		assert.NoError(t, s.Init(context.Background()))
	})
}
