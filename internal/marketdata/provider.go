// Package marketdata defines the external data collaborators of the
// allocation core: historical close prices and latest fundamentals per
// ticker. The core tolerates partial coverage from both providers and treats
// any provider failure as insufficient data rather than a hard error.
package marketdata

import (
	"context"
	"time"
)

// Bar is a single daily close observation.
type Bar struct {
	Date  time.Time
	Close float64
}

// Series is a date-ascending run of daily closes for one ticker.
type Series []Bar

// AnnualRevenue is one fiscal year of reported revenue, used for the
// screener's growth score.
type AnnualRevenue struct {
	Year    int
	Revenue float64
}

// Fundamentals carries the latest reported figures for a ticker. Monetary
// values are in KRW. A zero-value Fundamentals is valid and scores neutral.
type Fundamentals struct {
	Ticker          string
	Revenue         float64
	OperatingProfit float64
	NetProfit       float64
	RevenueHistory  []AnnualRevenue // ascending by fiscal year, most recent last
	Sector          string
	Exchange        string
}

// OperatingMargin returns operating profit over revenue, 0 when revenue is
// not positive.
func (f Fundamentals) OperatingMargin() float64 {
	if f.Revenue <= 0 {
		return 0
	}
	return f.OperatingProfit / f.Revenue
}

// NetMargin returns net profit over revenue, 0 when revenue is not positive.
func (f Fundamentals) NetMargin() float64 {
	if f.Revenue <= 0 {
		return 0
	}
	return f.NetProfit / f.Revenue
}

// PriceHistoryProvider supplies date-indexed close prices per ticker.
// Tickers without coverage are simply absent from the result map.
type PriceHistoryProvider interface {
	Closes(ctx context.Context, tickers []string, since time.Time) (map[string]Series, error)
}

// FundamentalsProvider supplies the latest fundamentals per ticker. Missing
// entries are absent from the map and treated as neutral by the screener.
type FundamentalsProvider interface {
	Latest(ctx context.Context, tickers []string) (map[string]Fundamentals, error)
}
