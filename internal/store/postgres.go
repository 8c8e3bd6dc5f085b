package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"pricewatch/internal/models"
)

const defaultMaxConns = 4

// Prices are NUMERIC(10,2) in the table and cents everywhere else; the
// conversion happens in SQL so no float crosses the wire.
const (
	pgCreateSchema = `CREATE SCHEMA IF NOT EXISTS card_inventory`

	pgCreateTable = `
CREATE TABLE IF NOT EXISTS card_inventory.cards (
    id SERIAL PRIMARY KEY,
    card_title TEXT NOT NULL,
    card_set TEXT NOT NULL,
    price NUMERIC(10, 2),
    link TEXT UNIQUE NOT NULL,
    updated_at TIMESTAMP DEFAULT NOW()
)`

	pgUpsert = `
INSERT INTO card_inventory.cards (card_title, card_set, price, link, updated_at)
VALUES ($1, $2, ($3::bigint)::numeric / 100, $4, $5)
ON CONFLICT (link) DO UPDATE SET
    price = EXCLUDED.price,
    updated_at = EXCLUDED.updated_at`

	pgSelect = `
SELECT id, card_title, card_set, (price * 100)::bigint, link, updated_at
  FROM card_inventory.cards`
)

// Postgres is a Store backed by a pgx connection pool.
type Postgres struct {
	pool  *pgxpool.Pool
	clock Clock
}

// OpenPostgres parses dsn and opens a pool of at most maxConns connections.
func OpenPostgres(ctx context.Context, dsn string, maxConns int32, opts ...Option) (*Postgres, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}

	if maxConns <= 0 {
		maxConns = defaultMaxConns
	}

	cfg.MaxConns = maxConns

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}

	return &Postgres{pool: pool, clock: buildOptions(opts).clock}, nil
}

// Init creates the schema and table.
func (p *Postgres) Init(ctx context.Context) error {
	for _, stmt := range []string{pgCreateSchema, pgCreateTable} {
		if _, err := p.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("create schema: %w", err)
		}
	}

	return nil
}

// Upsert inserts or refreshes one record.
func (p *Postgres) Upsert(ctx context.Context, rec models.CatalogRecord) error {
	if rec.Link == "" {
		return ErrEmptyLink
	}

	_, err := p.pool.Exec(ctx, pgUpsert,
		rec.Title, rec.Group, centsOrNil(rec.Price), rec.Link, p.clock().UTC())
	if err != nil {
		return fmt.Errorf("upsert %s: %w", rec.Link, err)
	}

	return nil
}

// TopByPrice returns the n most valuable priced records.
func (p *Postgres) TopByPrice(ctx context.Context, n int) ([]models.CatalogRecord, error) {
	return p.query(ctx, pgSelect+` WHERE price IS NOT NULL ORDER BY price DESC, id LIMIT $1`, n)
}

// All returns every record in export order.
func (p *Postgres) All(ctx context.Context) ([]models.CatalogRecord, error) {
	return p.query(ctx, pgSelect+` ORDER BY updated_at DESC, id`)
}

// Totals sums and counts the non-null prices.
func (p *Postgres) Totals(ctx context.Context) (models.Totals, error) {
	var (
		cents int64
		count int
	)

	err := p.pool.QueryRow(ctx,
		`SELECT COALESCE((SUM(price) * 100)::bigint, 0), COUNT(price) FROM card_inventory.cards`,
	).Scan(&cents, &count)
	if err != nil {
		return models.Totals{}, fmt.Errorf("totals: %w", err)
	}

	return models.Totals{TotalPrice: models.PriceFromCents(cents), Count: count}, nil
}

// Close releases the pool.
func (p *Postgres) Close() error {
	p.pool.Close()

	return nil
}

func (p *Postgres) query(ctx context.Context, sql string, args ...any) ([]models.CatalogRecord, error) {
	rows, err := p.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("query cards: %w", err)
	}

	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.CatalogRecord, error) {
		var (
			rec       models.CatalogRecord
			cents     *int64
			updatedAt time.Time
		)

		if err := row.Scan(&rec.ID, &rec.Title, &rec.Group, &cents, &rec.Link, &updatedAt); err != nil {
			return rec, err
		}

		rec.Price = priceOrNil(cents)
		rec.UpdatedAt = updatedAt.UTC()

		return rec, nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan cards: %w", err)
	}

	return out, nil
}
