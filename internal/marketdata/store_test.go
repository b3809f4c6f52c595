package marketdata

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

func setupStore(t *testing.T) *Store {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	store := NewStore(db, zerolog.Nop())
	require.NoError(t, store.EnsureSchema())
	return store
}

func TestStoreClosesRoundTrip(t *testing.T) {
	store := setupStore(t)
	require.NoError(t, store.UpsertSecurity("005930", "Samsung Electronics", "KOSPI", "Technology"))

	base := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		require.NoError(t, store.InsertClose("005930", base.AddDate(0, 0, i), 100+float64(i)))
	}
	// A row before the window must be excluded.
	require.NoError(t, store.InsertClose("005930", base.AddDate(0, 0, -30), 90))

	got, err := store.Closes(context.Background(), []string{"005930", "missing"}, base.AddDate(0, 0, -1))
	require.NoError(t, err)
	require.Contains(t, got, "005930")
	assert.NotContains(t, got, "missing")

	series := got["005930"]
	require.Len(t, series, 5)
	// Ascending by date.
	for i := 1; i < len(series); i++ {
		assert.True(t, series[i-1].Date.Before(series[i].Date))
	}
	assert.Equal(t, 100.0, series[0].Close)
}

func TestStoreLatestFundamentals(t *testing.T) {
	store := setupStore(t)
	require.NoError(t, store.UpsertSecurity("005930", "Samsung Electronics", "KOSPI", "Technology"))
	require.NoError(t, store.InsertFinancials("005930", 2023, 2.6e14, 2.0e13, 1.5e13))
	require.NoError(t, store.InsertFinancials("005930", 2024, 2.8e14, 2.8e13, 2.0e13))
	require.NoError(t, store.InsertFinancials("005930", 2025, 3.0e14, 3.5e13, 2.6e13))

	got, err := store.Latest(context.Background(), []string{"005930", "missing"})
	require.NoError(t, err)
	require.Contains(t, got, "005930")
	assert.NotContains(t, got, "missing")

	f := got["005930"]
	assert.Equal(t, 3.0e14, f.Revenue)
	assert.Equal(t, "Technology", f.Sector)
	assert.Equal(t, "KOSPI", f.Exchange)
	require.Len(t, f.RevenueHistory, 3)
	// History ascending by year.
	assert.Equal(t, 2023, f.RevenueHistory[0].Year)
	assert.Equal(t, 2025, f.RevenueHistory[2].Year)
}

func TestFundamentalsMargins(t *testing.T) {
	f := Fundamentals{Revenue: 1e12, OperatingProfit: 1e11, NetProfit: 5e10}
	assert.InDelta(t, 0.10, f.OperatingMargin(), 1e-12)
	assert.InDelta(t, 0.05, f.NetMargin(), 1e-12)

	zero := Fundamentals{}
	assert.Zero(t, zero.OperatingMargin())
	assert.Zero(t, zero.NetMargin())
}
