package handlers

import (
	"context"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/advisor/internal/marketdata"
	"github.com/aristath/advisor/internal/modules/allocation"
	"github.com/aristath/advisor/internal/modules/allocation/constraints"
	"github.com/aristath/advisor/internal/modules/optimization"
	"github.com/aristath/advisor/internal/modules/protection"
	"github.com/aristath/advisor/internal/modules/screening"
	"github.com/aristath/advisor/internal/modules/universe"
)

type stubUniverse struct{ snap universe.Snapshot }

func (s stubUniverse) Current() universe.Snapshot { return s.snap }

type stubFundamentals map[string]marketdata.Fundamentals

func (s stubFundamentals) Latest(_ context.Context, _ []string) (map[string]marketdata.Fundamentals, error) {
	return s, nil
}

type stubPrices map[string]marketdata.Series

func (s stubPrices) Closes(_ context.Context, _ []string, _ time.Time) (map[string]marketdata.Series, error) {
	return s, nil
}

func testRouter(t *testing.T, snap universe.Snapshot) *chi.Mux {
	t.Helper()
	nop := zerolog.Nop()

	tickers := []string{"000100", "000200", "000300", "000400", "000500", "000600"}
	funds := make(stubFundamentals)
	prices := make(stubPrices)
	base := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	for k, ticker := range tickers {
		funds[ticker] = marketdata.Fundamentals{
			Ticker: ticker, Revenue: 5e11, OperatingProfit: 4e10, NetProfit: 3e10,
			Sector: "Electronics", Exchange: "KOSPI",
		}
		var s marketdata.Series
		for i := 0; i < 40; i++ {
			drift := 1 + 0.0005*float64(k+1)
			s = append(s, marketdata.Bar{
				Date:  base.AddDate(0, 0, i),
				Close: 100*math.Pow(drift, float64(i)) + 2*math.Sin(float64(i)+float64(k)),
			})
		}
		prices[ticker] = s
	}

	svc := allocation.NewService(
		stubUniverse{snap: snap},
		screening.NewScreener(nop),
		funds,
		prices,
		optimization.NewEstimator(nop),
		optimization.NewMVOptimizer(0.02, nop),
		constraints.NewEnforcer(nop),
		protection.NewService(nop),
		nil,
		nil,
		allocation.Config{RiskFreeRate: 0.02, LookbackDays: 365},
		nop,
	)

	router := chi.NewRouter()
	NewHandler(svc, nop).RegisterRoutes(router)
	return router
}

func fullSnapshot() universe.Snapshot {
	var snap universe.Snapshot
	for _, t := range []string{"000100", "000200", "000300", "000400", "000500", "000600"} {
		snap.Listings = append(snap.Listings, universe.Listing{
			Ticker: t, Name: "Corp " + t, Exchange: "KOSPI", Sector: "Electronics",
		})
	}
	return snap
}

func TestHandleRecommend(t *testing.T) {
	router := testRouter(t, fullSnapshot())

	body := strings.NewReader(`{"risk_descriptor": "neutral"}`)
	req := httptest.NewRequest(http.MethodPost, "/allocation/recommend", body)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var result allocation.Result
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Equal(t, "risk_neutral", result.Tier)
	assert.NotEmpty(t, result.RequestID)
	assert.NotEmpty(t, result.Positions)
}

func TestHandleRecommendMissingDescriptor(t *testing.T) {
	router := testRouter(t, fullSnapshot())

	req := httptest.NewRequest(http.MethodPost, "/allocation/recommend", strings.NewReader(`{}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleRecommendNegativeCapital(t *testing.T) {
	router := testRouter(t, fullSnapshot())

	body := strings.NewReader(`{"risk_descriptor": "neutral", "capital": -1000}`)
	req := httptest.NewRequest(http.MethodPost, "/allocation/recommend", body)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleRecommendInvalidBody(t *testing.T) {
	router := testRouter(t, fullSnapshot())

	req := httptest.NewRequest(http.MethodPost, "/allocation/recommend", strings.NewReader(`{not json`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleRecommendInvalidMode(t *testing.T) {
	router := testRouter(t, fullSnapshot())

	body := strings.NewReader(`{"risk_descriptor": "neutral", "mode": "reckless"}`)
	req := httptest.NewRequest(http.MethodPost, "/allocation/recommend", body)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleRecommendEmptyUniverse(t *testing.T) {
	router := testRouter(t, universe.Snapshot{})

	body := strings.NewReader(`{"risk_descriptor": "neutral"}`)
	req := httptest.NewRequest(http.MethodPost, "/allocation/recommend", body)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}
