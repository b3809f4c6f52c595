package marketdata

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// fetchConcurrency bounds parallel per-ticker price loads.
const fetchConcurrency = 4

// Store implements PriceHistoryProvider and FundamentalsProvider over the
// local market.db (prices, financials, securities tables).
type Store struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewStore creates a market data store over an open database connection.
func NewStore(db *sql.DB, log zerolog.Logger) *Store {
	return &Store{
		db:  db,
		log: log.With().Str("component", "marketdata").Logger(),
	}
}

// EnsureSchema creates the market data tables if they do not exist.
func (s *Store) EnsureSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS securities (
		ticker   TEXT PRIMARY KEY,
		name     TEXT NOT NULL,
		exchange TEXT NOT NULL,
		sector   TEXT NOT NULL DEFAULT ''
	);
	CREATE TABLE IF NOT EXISTS prices (
		ticker TEXT NOT NULL,
		date   TEXT NOT NULL,
		close  REAL NOT NULL,
		PRIMARY KEY (ticker, date)
	);
	CREATE INDEX IF NOT EXISTS idx_prices_date ON prices(date);
	CREATE TABLE IF NOT EXISTS financials (
		ticker           TEXT NOT NULL,
		year             INTEGER NOT NULL,
		revenue          REAL,
		operating_profit REAL,
		net_profit       REAL,
		PRIMARY KEY (ticker, year)
	);`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create market data schema: %w", err)
	}
	return nil
}

// Closes returns date-ascending close series per ticker since the given
// date. Tickers with no rows are omitted; partial coverage is not an error.
func (s *Store) Closes(ctx context.Context, tickers []string, since time.Time) (map[string]Series, error) {
	result := make(map[string]Series, len(tickers))
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(fetchConcurrency)

	for _, ticker := range tickers {
		g.Go(func() error {
			series, err := s.closesForTicker(gctx, ticker, since)
			if err != nil {
				return err
			}
			if len(series) > 0 {
				mu.Lock()
				result[ticker] = series
				mu.Unlock()
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("failed to load price history: %w", err)
	}

	s.log.Debug().
		Int("requested", len(tickers)).
		Int("covered", len(result)).
		Time("since", since).
		Msg("Loaded close series")

	return result, nil
}

func (s *Store) closesForTicker(ctx context.Context, ticker string, since time.Time) (Series, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT date, close
		FROM prices
		WHERE ticker = ? AND date >= ?
		ORDER BY date ASC
	`, ticker, since.Format("2006-01-02"))
	if err != nil {
		return nil, fmt.Errorf("query prices for %s: %w", ticker, err)
	}
	defer rows.Close()

	var series Series
	for rows.Next() {
		var dateStr string
		var close float64
		if err := rows.Scan(&dateStr, &close); err != nil {
			return nil, fmt.Errorf("scan price row for %s: %w", ticker, err)
		}
		date, err := time.Parse("2006-01-02", dateStr)
		if err != nil {
			s.log.Warn().Str("ticker", ticker).Str("date", dateStr).Msg("Skipping unparseable price date")
			continue
		}
		series = append(series, Bar{Date: date, Close: close})
	}
	return series, rows.Err()
}

// Latest returns the most recent fiscal-year fundamentals per ticker, with
// up to three years of revenue history for growth scoring. Missing tickers
// are omitted from the map.
func (s *Store) Latest(ctx context.Context, tickers []string) (map[string]Fundamentals, error) {
	result := make(map[string]Fundamentals, len(tickers))

	for _, ticker := range tickers {
		f, found, err := s.latestForTicker(ctx, ticker)
		if err != nil {
			return nil, err
		}
		if found {
			result[ticker] = f
		}
	}
	return result, nil
}

func (s *Store) latestForTicker(ctx context.Context, ticker string) (Fundamentals, bool, error) {
	f := Fundamentals{Ticker: ticker}

	var sector, exchange sql.NullString
	err := s.db.QueryRowContext(ctx,
		`SELECT sector, exchange FROM securities WHERE ticker = ?`, ticker,
	).Scan(&sector, &exchange)
	if err != nil && err != sql.ErrNoRows {
		return f, false, fmt.Errorf("query security %s: %w", ticker, err)
	}
	f.Sector = sector.String
	f.Exchange = exchange.String

	rows, err := s.db.QueryContext(ctx, `
		SELECT year, revenue, operating_profit, net_profit
		FROM financials
		WHERE ticker = ?
		ORDER BY year DESC
		LIMIT 3
	`, ticker)
	if err != nil {
		return f, false, fmt.Errorf("query financials %s: %w", ticker, err)
	}
	defer rows.Close()

	var history []AnnualRevenue
	first := true
	for rows.Next() {
		var year int
		var revenue, op, net sql.NullFloat64
		if err := rows.Scan(&year, &revenue, &op, &net); err != nil {
			return f, false, fmt.Errorf("scan financials %s: %w", ticker, err)
		}
		if first {
			f.Revenue = revenue.Float64
			f.OperatingProfit = op.Float64
			f.NetProfit = net.Float64
			first = false
		}
		if revenue.Valid && revenue.Float64 > 0 {
			history = append(history, AnnualRevenue{Year: year, Revenue: revenue.Float64})
		}
	}
	if err := rows.Err(); err != nil {
		return f, false, err
	}

	if first && f.Sector == "" && f.Exchange == "" {
		return f, false, nil // no row in either table
	}

	// History arrives newest-first; the growth score wants ascending years.
	sort.Slice(history, func(i, j int) bool { return history[i].Year < history[j].Year })
	f.RevenueHistory = history

	return f, true, nil
}

// UpsertSecurity inserts or replaces a security row. Used by seed tooling
// and the snapshot refresh path.
func (s *Store) UpsertSecurity(ticker, name, exchange, sector string) error {
	_, err := s.db.Exec(`
		INSERT INTO securities (ticker, name, exchange, sector)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(ticker) DO UPDATE SET
			name = excluded.name,
			exchange = excluded.exchange,
			sector = excluded.sector
	`, ticker, name, exchange, sector)
	if err != nil {
		return fmt.Errorf("upsert security %s: %w", ticker, err)
	}
	return nil
}

// InsertClose records one daily close observation.
func (s *Store) InsertClose(ticker string, date time.Time, close float64) error {
	_, err := s.db.Exec(`
		INSERT OR REPLACE INTO prices (ticker, date, close) VALUES (?, ?, ?)
	`, ticker, date.Format("2006-01-02"), close)
	if err != nil {
		return fmt.Errorf("insert close %s: %w", ticker, err)
	}
	return nil
}

// InsertFinancials records one fiscal year of fundamentals.
func (s *Store) InsertFinancials(ticker string, year int, revenue, operatingProfit, netProfit float64) error {
	_, err := s.db.Exec(`
		INSERT OR REPLACE INTO financials (ticker, year, revenue, operating_profit, net_profit)
		VALUES (?, ?, ?, ?, ?)
	`, ticker, year, revenue, operatingProfit, netProfit)
	if err != nil {
		return fmt.Errorf("insert financials %s/%d: %w", ticker, year, err)
	}
	return nil
}
