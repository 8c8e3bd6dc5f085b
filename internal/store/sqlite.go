package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"pricewatch/internal/models"
)

const (
	sqliteSchema = `
CREATE TABLE IF NOT EXISTS cards (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    card_title TEXT NOT NULL,
    card_set TEXT NOT NULL,
    price_cents INTEGER,
    link TEXT UNIQUE NOT NULL,
    updated_at INTEGER NOT NULL
);`

	sqliteUpsert = `
INSERT INTO cards (card_title, card_set, price_cents, link, updated_at)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT (link) DO UPDATE SET
    price_cents = excluded.price_cents,
    updated_at = excluded.updated_at`

	sqliteSelect = `SELECT id, card_title, card_set, price_cents, link, updated_at FROM cards`
)

// SQLite is a Store backed by an embedded database file. Timestamps are
// stored as unix nanoseconds.
type SQLite struct {
	db    *sql.DB
	clock Clock
}

// OpenSQLite opens the database at dsn, which may be ":memory:".
func OpenSQLite(dsn string, opts ...Option) (*SQLite, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// A single connection serialises writers and keeps ":memory:" databases
	// shared across the pool.
	db.SetMaxOpenConns(1)

	return &SQLite{db: db, clock: buildOptions(opts).clock}, nil
}

// Init creates the cards table.
func (s *SQLite) Init(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, sqliteSchema); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}

	return nil
}

// Upsert inserts or refreshes one record.
func (s *SQLite) Upsert(ctx context.Context, rec models.CatalogRecord) error {
	if rec.Link == "" {
		return ErrEmptyLink
	}

	_, err := s.db.ExecContext(ctx, sqliteUpsert,
		rec.Title, rec.Group, centsOrNil(rec.Price), rec.Link, s.clock().UnixNano())
	if err != nil {
		return fmt.Errorf("upsert %s: %w", rec.Link, err)
	}

	return nil
}

// TopByPrice returns the n most valuable priced records.
func (s *SQLite) TopByPrice(ctx context.Context, n int) ([]models.CatalogRecord, error) {
	return s.query(ctx, sqliteSelect+` WHERE price_cents IS NOT NULL ORDER BY price_cents DESC, id LIMIT ?`, n)
}

// All returns every record in export order.
func (s *SQLite) All(ctx context.Context) ([]models.CatalogRecord, error) {
	return s.query(ctx, sqliteSelect+` ORDER BY updated_at DESC, id`)
}

// Totals sums and counts the non-null prices.
func (s *SQLite) Totals(ctx context.Context) (models.Totals, error) {
	var (
		cents int64
		count int
	)

	err := s.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(price_cents), 0), COUNT(price_cents) FROM cards`,
	).Scan(&cents, &count)
	if err != nil {
		return models.Totals{}, fmt.Errorf("totals: %w", err)
	}

	return models.Totals{TotalPrice: models.PriceFromCents(cents), Count: count}, nil
}

// Close closes the database.
func (s *SQLite) Close() error {
	return s.db.Close()
}

func (s *SQLite) query(ctx context.Context, query string, args ...any) ([]models.CatalogRecord, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query cards: %w", err)
	}
	defer rows.Close()

	var out []models.CatalogRecord

	for rows.Next() {
		var (
			rec   models.CatalogRecord
			cents sql.NullInt64
			nanos int64
		)

		if err := rows.Scan(&rec.ID, &rec.Title, &rec.Group, &cents, &rec.Link, &nanos); err != nil {
			return nil, fmt.Errorf("scan cards: %w", err)
		}

		if cents.Valid {
			rec.Price = models.PricePtr(models.PriceFromCents(cents.Int64))
		}

		rec.UpdatedAt = time.Unix(0, nanos).UTC()
		out = append(out, rec)
	}

	return out, rows.Err()
}
