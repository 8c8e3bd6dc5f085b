// Package store persists catalog records keyed by link.
//
// Two drivers share one contract: a PostgreSQL store for production runs
// and an embedded SQLite store for local runs and tests. Upsert inserts a
// new link with all of its fields; an existing link only gets its price and
// updated_at overwritten, so title and group keep their first values.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"pricewatch/internal/config"
	"pricewatch/internal/models"
)

// Store errors.
var (
	ErrEmptyLink     = errors.New("record link is empty")
	ErrUnknownDriver = errors.New("unknown store driver")
)

// Store is the durable catalog.
type Store interface {
	// Init creates the schema if it does not exist.
	Init(ctx context.Context) error
	// Upsert writes one record atomically.
	Upsert(ctx context.Context, rec models.CatalogRecord) error
	// TopByPrice returns up to n records with a price, most valuable first.
	TopByPrice(ctx context.Context, n int) ([]models.CatalogRecord, error)
	// Totals sums and counts the non-null prices.
	Totals(ctx context.Context) (models.Totals, error)
	// All returns every record, most recently updated first.
	All(ctx context.Context) ([]models.CatalogRecord, error)
	Close() error
}

// Clock returns the timestamp recorded as updated_at.
type Clock func() time.Time

// Option configures a store.
type Option func(*options)

type options struct {
	clock Clock
}

// WithClock overrides the clock used for updated_at.
func WithClock(c Clock) Option {
	return func(o *options) {
		o.clock = c
	}
}

func buildOptions(opts []Option) options {
	o := options{clock: time.Now}
	for _, opt := range opts {
		opt(&o)
	}

	return o
}

// Open connects to the store selected by cfg.Driver.
func Open(ctx context.Context, cfg config.StoreConfig, opts ...Option) (Store, error) {
	switch cfg.Driver {
	case config.DriverPostgres:
		return OpenPostgres(ctx, cfg.DSN, int32(cfg.MaxConns), opts...)
	case config.DriverSQLite:
		return OpenSQLite(cfg.DSN, opts...)
	}

	return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, cfg.Driver)
}

// centsOrNil maps an optional price to a nullable integer column value.
func centsOrNil(p *models.Price) *int64 {
	if p == nil {
		return nil
	}

	c := p.Cents()

	return &c
}

func priceOrNil(cents *int64) *models.Price {
	if cents == nil {
		return nil
	}

	return models.PricePtr(models.PriceFromCents(*cents))
}
