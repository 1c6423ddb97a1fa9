// Package store persists a lightweight market cache in SQLite. It backs the
// keyword/scoring endpoint and is refreshed by a periodic sync job; it is a
// cache, not a system of record.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS markets (
	ticker        TEXT PRIMARY KEY,
	title         TEXT NOT NULL,
	platform      TEXT NOT NULL,
	market_ticker TEXT,
	price_yes     REAL,
	last_updated  TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_markets_title ON markets(title);
`

// CachedMarket is one row of the market cache.
type CachedMarket struct {
	Ticker       string    `json:"ticker"`
	Title        string    `json:"title"`
	Platform     string    `json:"platform"`
	MarketTicker string    `json:"market_ticker,omitempty"`
	PriceYes     *float64  `json:"price_yes,omitempty"`
	LastUpdated  time.Time `json:"last_updated"`
}

// Store wraps the SQLite market cache.
type Store struct {
	db *sql.DB
}

// Open creates or opens the cache database at path, creating parent
// directories as needed. Use ":memory:" for tests.
func Open(path string) (*Store, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create data dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Upsert inserts or refreshes cache rows in one transaction.
func (s *Store) Upsert(ctx context.Context, rows []CachedMarket) error {
	if len(rows) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO markets (ticker, title, platform, market_ticker, price_yes, last_updated)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(ticker) DO UPDATE SET
			title = excluded.title,
			platform = excluded.platform,
			market_ticker = excluded.market_ticker,
			price_yes = excluded.price_yes,
			last_updated = excluded.last_updated`)
	if err != nil {
		return fmt.Errorf("prepare upsert: %w", err)
	}
	defer stmt.Close()

	for _, row := range rows {
		ts := row.LastUpdated
		if ts.IsZero() {
			ts = time.Now().UTC()
		}
		if _, err := stmt.ExecContext(ctx, row.Ticker, row.Title, row.Platform,
			nullString(row.MarketTicker), nullFloat(row.PriceYes), ts); err != nil {
			return fmt.Errorf("upsert %s: %w", row.Ticker, err)
		}
	}

	return tx.Commit()
}

// SearchByKeywords returns cached markets whose title contains any of the
// keywords, capped at limit rows, newest first.
func (s *Store) SearchByKeywords(ctx context.Context, keywords []string, limit int) ([]CachedMarket, error) {
	if len(keywords) == 0 {
		return nil, nil
	}
	if limit <= 0 {
		limit = 50
	}

	var conds []string
	var args []any
	for _, kw := range keywords {
		kw = strings.TrimSpace(kw)
		if kw == "" {
			continue
		}
		conds = append(conds, "title LIKE ?")
		args = append(args, "%"+kw+"%")
	}
	if len(conds) == 0 {
		return nil, nil
	}
	args = append(args, limit)

	query := `SELECT ticker, title, platform, market_ticker, price_yes, last_updated
		FROM markets WHERE ` + strings.Join(conds, " OR ") + `
		ORDER BY last_updated DESC, ticker LIMIT ?`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query markets: %w", err)
	}
	defer rows.Close()

	return scanMarkets(rows)
}

// Count returns the number of cached rows.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM markets").Scan(&n); err != nil {
		return 0, fmt.Errorf("count markets: %w", err)
	}
	return n, nil
}

// Prune deletes rows last updated before cutoff.
func (s *Store) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, "DELETE FROM markets WHERE last_updated < ?", cutoff)
	if err != nil {
		return 0, fmt.Errorf("prune markets: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

func scanMarkets(rows *sql.Rows) ([]CachedMarket, error) {
	var out []CachedMarket
	for rows.Next() {
		var m CachedMarket
		var marketTicker sql.NullString
		var priceYes sql.NullFloat64
		if err := rows.Scan(&m.Ticker, &m.Title, &m.Platform, &marketTicker, &priceYes, &m.LastUpdated); err != nil {
			return nil, fmt.Errorf("scan market: %w", err)
		}
		if marketTicker.Valid {
			m.MarketTicker = marketTicker.String
		}
		if priceYes.Valid {
			v := priceYes.Float64
			m.PriceYes = &v
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullFloat(f *float64) any {
	if f == nil {
		return nil
	}
	return *f
}
