// Package store implements the market-data store (C1): a SQLite-backed
// domain.PriceStore holding ticker metadata, daily and five-minute bars,
// FX series, and portfolio snapshots/transactions.
package store

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"

	"github.com/aristath/finsight/internal/domain"
)

// SQLiteStore implements domain.PriceStore over a single SQLite database.
type SQLiteStore struct {
	db  *sql.DB
	log zerolog.Logger
}

// Open creates (or attaches to) a SQLite database at path and ensures
// the schema described in §6 exists.
func Open(path string, log zerolog.Logger) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite store: %w", err)
	}
	s := &SQLiteStore{db: db, log: log.With().Str("component", "store").Logger()}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate sqlite store: %w", err)
	}
	return s, nil
}

func (s *SQLiteStore) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS tickers (
			ticker TEXT PRIMARY KEY,
			comp_name TEXT,
			exchange TEXT,
			sector TEXT,
			market_cap REAL,
			start_date TEXT,
			currency TEXT,
			asset_type TEXT,
			timezone TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS daily (
			ticker TEXT NOT NULL,
			date TEXT NOT NULL,
			open REAL NOT NULL,
			high REAL NOT NULL,
			low REAL NOT NULL,
			close REAL NOT NULL,
			adj_close REAL NOT NULL,
			volume INTEGER NOT NULL,
			PRIMARY KEY (ticker, date),
			CHECK (high >= MAX(open, close)),
			CHECK (low <= MIN(open, close))
		)`,
		`CREATE TABLE IF NOT EXISTS five_minute (
			ticker TEXT NOT NULL,
			date TEXT NOT NULL,
			open REAL NOT NULL,
			high REAL NOT NULL,
			low REAL NOT NULL,
			close REAL NOT NULL,
			adj_close REAL NOT NULL,
			volume INTEGER NOT NULL,
			PRIMARY KEY (ticker, date)
		)`,
		`CREATE TABLE IF NOT EXISTS daily_forex (
			currency_pair TEXT NOT NULL,
			date TEXT NOT NULL,
			open REAL NOT NULL,
			high REAL NOT NULL,
			low REAL NOT NULL,
			close REAL NOT NULL,
			PRIMARY KEY (currency_pair, date)
		)`,
		`CREATE TABLE IF NOT EXISTS portfolio_states (
			name TEXT PRIMARY KEY,
			state BLOB
		)`,
		`CREATE TABLE IF NOT EXISTS portfolio_transactions (
			name TEXT NOT NULL,
			id INTEGER NOT NULL,
			type TEXT NOT NULL,
			asset TEXT NOT NULL,
			shares REAL,
			value REAL,
			profit REAL,
			date TEXT NOT NULL,
			PRIMARY KEY (name, id)
		)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("exec migration: %w", err)
		}
	}
	return nil
}

// Close releases the underlying database handle.
func (s *SQLiteStore) Close() error { return s.db.Close() }

// DB exposes the underlying connection so sibling components backed by
// the same database file (the snapshot cache) can share it instead of
// opening a second handle.
func (s *SQLiteStore) DB() *sql.DB { return s.db }

const dateLayout = "2006-01-02"

func (s *SQLiteStore) GetAssetMeta(ticker string) (domain.AssetMeta, error) {
	row := s.db.QueryRow(`SELECT ticker, comp_name, exchange, sector, market_cap, start_date, currency, asset_type, timezone FROM tickers WHERE ticker = ?`, ticker)

	var meta domain.AssetMeta
	var sector sql.NullString
	var marketCap sql.NullFloat64
	var startDate string
	err := row.Scan(&meta.Ticker, &meta.CompName, &meta.Exchange, &sector, &marketCap, &startDate, &meta.Currency, &meta.Kind, &meta.Timezone)
	if err == sql.ErrNoRows {
		return domain.AssetMeta{}, domain.NewError(domain.ErrInvalidAsset, fmt.Sprintf("unknown ticker %s", ticker), nil)
	}
	if err != nil {
		return domain.AssetMeta{}, fmt.Errorf("get asset meta: %w", err)
	}
	if sector.Valid {
		meta.Sector = &sector.String
	}
	if marketCap.Valid {
		meta.MarketCap = &marketCap.Float64
	}
	meta.StartDate, _ = time.Parse(dateLayout, startDate)
	return meta, nil
}

func (s *SQLiteStore) UpsertAssetMeta(meta domain.AssetMeta) error {
	var sector, marketCap interface{}
	if meta.Sector != nil {
		sector = *meta.Sector
	}
	if meta.MarketCap != nil {
		marketCap = *meta.MarketCap
	}
	_, err := s.db.Exec(`
		INSERT INTO tickers (ticker, comp_name, exchange, sector, market_cap, start_date, currency, asset_type, timezone)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(ticker) DO UPDATE SET
			comp_name=excluded.comp_name, exchange=excluded.exchange, sector=excluded.sector,
			market_cap=excluded.market_cap, start_date=excluded.start_date,
			currency=excluded.currency, asset_type=excluded.asset_type, timezone=excluded.timezone
	`, meta.Ticker, meta.CompName, meta.Exchange, sector, marketCap, meta.StartDate.Format(dateLayout), meta.Currency, meta.Kind, meta.Timezone)
	if err != nil {
		return fmt.Errorf("upsert asset meta: %w", err)
	}
	return nil
}

func (s *SQLiteStore) GetDailyBars(ticker string) ([]domain.Bar, error) {
	return s.queryBars("daily", ticker)
}

func (s *SQLiteStore) GetFiveMinuteBars(ticker string) ([]domain.Bar, error) {
	return s.queryBars("five_minute", ticker)
}

func (s *SQLiteStore) queryBars(table, ticker string) ([]domain.Bar, error) {
	rows, err := s.db.Query(fmt.Sprintf(`SELECT date, open, high, low, close, adj_close, volume FROM %s WHERE ticker = ? ORDER BY date ASC`, table), ticker)
	if err != nil {
		return nil, fmt.Errorf("query %s bars: %w", table, err)
	}
	defer rows.Close()

	var bars []domain.Bar
	for rows.Next() {
		var b domain.Bar
		var dateStr string
		if err := rows.Scan(&dateStr, &b.Open, &b.High, &b.Low, &b.Close, &b.AdjClose, &b.Volume); err != nil {
			return nil, fmt.Errorf("scan %s bar: %w", table, err)
		}
		b.Date, _ = time.Parse(time.RFC3339, dateStr)
		if b.Date.IsZero() {
			b.Date, _ = time.Parse(dateLayout, dateStr)
		}
		bars = append(bars, b)
	}
	return bars, rows.Err()
}

func (s *SQLiteStore) UpsertDailyBars(ticker string, bars []domain.Bar) error {
	return s.upsertBars("daily", ticker, bars, dateLayout)
}

func (s *SQLiteStore) UpsertFiveMinuteBars(ticker string, bars []domain.Bar) error {
	return s.upsertBars("five_minute", ticker, bars, time.RFC3339)
}

func (s *SQLiteStore) upsertBars(table, ticker string, bars []domain.Bar, layout string) error {
	if len(bars) == 0 {
		return nil
	}
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin upsert %s: %w", table, err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(fmt.Sprintf(`
		INSERT INTO %s (ticker, date, open, high, low, close, adj_close, volume)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(ticker, date) DO UPDATE SET
			open=excluded.open, high=excluded.high, low=excluded.low,
			close=excluded.close, adj_close=excluded.adj_close, volume=excluded.volume
	`, table))
	if err != nil {
		return fmt.Errorf("prepare upsert %s: %w", table, err)
	}
	defer stmt.Close()

	for _, b := range bars {
		if _, err := stmt.Exec(ticker, b.Date.UTC().Format(layout), b.Open, b.High, b.Low, b.Close, b.AdjClose, b.Volume); err != nil {
			return fmt.Errorf("exec upsert %s: %w", table, err)
		}
	}
	return tx.Commit()
}

func (s *SQLiteStore) GetFXSeries(pair domain.FXPair) ([]domain.FXPoint, error) {
	rows, err := s.db.Query(`SELECT date, close FROM daily_forex WHERE currency_pair = ? ORDER BY date ASC`, pair.String())
	if err != nil {
		return nil, fmt.Errorf("query fx series: %w", err)
	}
	defer rows.Close()

	var points []domain.FXPoint
	for rows.Next() {
		var p domain.FXPoint
		var dateStr string
		if err := rows.Scan(&dateStr, &p.Close); err != nil {
			return nil, fmt.Errorf("scan fx point: %w", err)
		}
		p.Date, _ = time.Parse(dateLayout, dateStr)
		points = append(points, p)
	}
	return points, rows.Err()
}

func (s *SQLiteStore) UpsertFXSeries(pair domain.FXPair, points []domain.FXPoint) error {
	if len(points) == 0 {
		return nil
	}
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin upsert fx series: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT INTO daily_forex (currency_pair, date, open, high, low, close)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(currency_pair, date) DO UPDATE SET
			open=excluded.open, high=excluded.high, low=excluded.low, close=excluded.close
	`)
	if err != nil {
		return fmt.Errorf("prepare upsert fx series: %w", err)
	}
	defer stmt.Close()

	for _, p := range points {
		if _, err := stmt.Exec(pair.String(), p.Date.Format(dateLayout), p.Close, p.Close, p.Close, p.Close); err != nil {
			return fmt.Errorf("exec upsert fx point: %w", err)
		}
	}
	return tx.Commit()
}

// DistinctValues returns the distinct values of column in table.
func (s *SQLiteStore) DistinctValues(column, table string) ([]string, error) {
	rows, err := s.db.Query(fmt.Sprintf(`SELECT DISTINCT %s FROM %s`, column, table))
	if err != nil {
		return nil, fmt.Errorf("distinct values: %w", err)
	}
	defer rows.Close()

	var values []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("scan distinct value: %w", err)
		}
		values = append(values, v)
	}
	return values, rows.Err()
}

// MaxDate returns the maximum date stored in table for ticker, and
// whether any row was found.
func (s *SQLiteStore) MaxDate(table, ticker string) (time.Time, bool, error) {
	query := fmt.Sprintf(`SELECT MAX(date) FROM %s WHERE ticker = ?`, table)
	var maxDate sql.NullString
	if err := s.db.QueryRow(query, ticker).Scan(&maxDate); err != nil {
		return time.Time{}, false, fmt.Errorf("max date: %w", err)
	}
	if !maxDate.Valid {
		return time.Time{}, false, nil
	}
	t, err := time.Parse(time.RFC3339, maxDate.String)
	if err != nil {
		t, err = time.Parse(dateLayout, maxDate.String)
		if err != nil {
			return time.Time{}, false, fmt.Errorf("parse max date: %w", err)
		}
	}
	return t, true, nil
}

// DeleteOldFiveMinuteBars removes five-minute bars older than
// now-horizon, as driven by the periodic maintenance scheduler (C13).
func (s *SQLiteStore) DeleteOldFiveMinuteBars(now time.Time, horizon time.Duration) (int64, error) {
	cutoff := now.Add(-horizon)
	result, err := s.db.Exec(`DELETE FROM five_minute WHERE date < ?`, cutoff.UTC().Format(time.RFC3339))
	if err != nil {
		return 0, fmt.Errorf("delete old five-minute bars: %w", err)
	}
	n, _ := result.RowsAffected()
	if n > 0 {
		s.log.Info().Int64("rows_deleted", n).Time("cutoff", cutoff).Msg("pruned stale five-minute bars")
	}
	return n, nil
}
