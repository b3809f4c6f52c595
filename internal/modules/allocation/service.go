package allocation

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/mat"

	"github.com/aristath/advisor/internal/marketdata"
	"github.com/aristath/advisor/internal/modules/allocation/constraints"
	"github.com/aristath/advisor/internal/modules/analysis"
	"github.com/aristath/advisor/internal/modules/optimization"
	"github.com/aristath/advisor/internal/modules/protection"
	"github.com/aristath/advisor/internal/modules/risk"
	"github.com/aristath/advisor/internal/modules/screening"
	"github.com/aristath/advisor/internal/modules/universe"
)

// ErrInsufficientUniverse means screening produced no candidates at all.
// This is surfaced to the caller rather than recovered; there is nothing to
// allocate.
var ErrInsufficientUniverse = errors.New("no investable universe after screening")

// UniverseSource provides the current universe snapshot.
type UniverseSource interface {
	Current() universe.Snapshot
}

// EstimateCache stores computed estimates keyed by ticker set and lookback.
// *marketdata.EstimateCache satisfies this; a nil cache disables caching.
type EstimateCache interface {
	Get(key string, dest interface{}) (bool, error)
	Put(key string, value interface{}) error
}

// cachedEstimates is the serializable form of optimization.Estimates.
type cachedEstimates struct {
	Tickers         []string    `msgpack:"tickers"`
	ExpectedReturns []float64   `msgpack:"expected_returns"`
	Covariance      [][]float64 `msgpack:"covariance"`
	Observations    int         `msgpack:"observations"`
	Dropped         []string    `msgpack:"dropped"`
	Sufficient      bool        `msgpack:"sufficient"`
	Reason          string      `msgpack:"reason"`
}

func toCached(est optimization.Estimates) cachedEstimates {
	c := cachedEstimates{
		Tickers:         est.Tickers,
		ExpectedReturns: est.ExpectedReturns,
		Observations:    est.Observations,
		Dropped:         est.Dropped,
		Sufficient:      est.Sufficient,
		Reason:          est.Reason,
	}
	if est.Covariance != nil {
		n := est.Covariance.SymmetricDim()
		c.Covariance = make([][]float64, n)
		for i := 0; i < n; i++ {
			c.Covariance[i] = make([]float64, n)
			for j := 0; j < n; j++ {
				c.Covariance[i][j] = est.Covariance.At(i, j)
			}
		}
	}
	return c
}

func fromCached(c cachedEstimates) optimization.Estimates {
	est := optimization.Estimates{
		Tickers:         c.Tickers,
		ExpectedReturns: c.ExpectedReturns,
		Observations:    c.Observations,
		Dropped:         c.Dropped,
		Sufficient:      c.Sufficient,
		Reason:          c.Reason,
	}
	if n := len(c.Covariance); n > 0 {
		cov := mat.NewSymDense(n, nil)
		for i := 0; i < n; i++ {
			for j := i; j < n; j++ {
				cov.SetSym(i, j, c.Covariance[i][j])
			}
		}
		est.Covariance = cov
	}
	return est
}

// Config carries the service's tunables.
type Config struct {
	RiskFreeRate float64
	LookbackDays int
}

// Service runs the end-to-end recommendation pipeline.
type Service struct {
	universe     UniverseSource
	screener     *screening.Screener
	fundamentals marketdata.FundamentalsProvider
	prices       marketdata.PriceHistoryProvider
	estimator    *optimization.Estimator
	optimizer    *optimization.MVOptimizer
	enforcer     *constraints.Enforcer
	protection   *protection.Service
	analyzer     *analysis.Analyzer
	cache        EstimateCache
	cfg          Config
	log          zerolog.Logger
	now          func() time.Time
}

// NewService wires the pipeline. cache and analyzer may be nil; a nil
// analyzer skips technical diagnostics.
func NewService(
	source UniverseSource,
	screener *screening.Screener,
	fundamentals marketdata.FundamentalsProvider,
	prices marketdata.PriceHistoryProvider,
	estimator *optimization.Estimator,
	optimizer *optimization.MVOptimizer,
	enforcer *constraints.Enforcer,
	protectionSvc *protection.Service,
	analyzer *analysis.Analyzer,
	cache EstimateCache,
	cfg Config,
	log zerolog.Logger,
) *Service {
	if cfg.LookbackDays <= 0 {
		cfg.LookbackDays = 365
	}
	return &Service{
		universe:     source,
		screener:     screener,
		fundamentals: fundamentals,
		prices:       prices,
		estimator:    estimator,
		optimizer:    optimizer,
		enforcer:     enforcer,
		protection:   protectionSvc,
		analyzer:     analyzer,
		cache:        cache,
		cfg:          cfg,
		log:          log.With().Str("component", "allocation_service").Logger(),
		now:          time.Now,
	}
}

// BuildAllocation produces a recommendation for the request. Estimation
// problems degrade to the deterministic fallback allocation; only an empty
// candidate universe or an invalid mode override is an error.
func (s *Service) BuildAllocation(ctx context.Context, req Request) (*Result, error) {
	tier := risk.Classify(req.RiskDescriptor)
	guideline := risk.GuidelineFor(tier)

	mode := optimization.ModeForTier(tier)
	if req.Mode != "" {
		var err error
		if mode, err = optimization.ParseMode(req.Mode); err != nil {
			return nil, err
		}
	}

	lookback := s.cfg.LookbackDays
	if req.LookbackDays > 0 {
		lookback = req.LookbackDays
	}

	result := &Result{
		RequestID:   uuid.NewString(),
		GeneratedAt: s.now().UTC(),
		Mode:        mode.String(),
	}
	result.applyGuideline(guideline)

	if req.Exchange != "" {
		guideline.PreferredExch = req.Exchange
	}

	snapshot := s.universe.Current()
	if len(req.Tickers) > 0 {
		snapshot = snapshot.Subset(req.Tickers)
	}
	if snapshot.Size() == 0 {
		return nil, ErrInsufficientUniverse
	}

	tickers := make([]string, 0, snapshot.Size())
	for _, l := range snapshot.Listings {
		tickers = append(tickers, l.Ticker)
	}
	fundamentals, err := s.fundamentals.Latest(ctx, tickers)
	if err != nil {
		return nil, err
	}

	// An explicit ticker list is the caller's candidate set; rank it but do
	// not gate or truncate it.
	var candidates []screening.Candidate
	if len(req.Tickers) > 0 {
		candidates = s.screener.Rank(snapshot, guideline, fundamentals)
	} else {
		candidates = s.screener.Screen(snapshot, guideline, fundamentals)
	}
	if len(candidates) == 0 {
		return nil, ErrInsufficientUniverse
	}

	ranked := make([]string, len(candidates))
	for i, c := range candidates {
		ranked[i] = c.Ticker
	}
	result.Diagnostics.CandidateCount = len(candidates)

	est, series, err := s.estimate(ctx, ranked, lookback)
	if err != nil {
		// Price loading failures degrade to the fallback, same as thin
		// history.
		s.log.Warn().Err(err).Msg("Price history load failed; using fallback allocation")
		est = optimization.Estimates{Reason: "price history unavailable"}
	}
	result.Diagnostics.AlignedDays = est.Observations
	result.Diagnostics.DroppedTickers = est.Dropped

	var weights map[string]float64
	if est.Sufficient {
		solution, solveErr := s.optimizer.MaxSharpe(est, mode)
		if solveErr != nil {
			s.log.Warn().Err(solveErr).Msg("Optimizer failed; using fallback allocation")
			result.Diagnostics.UsedFallback = true
			result.Diagnostics.FallbackReason = "optimizer did not converge"
		} else {
			weights = solution.Weights
			result.Diagnostics.Warnings = append(result.Diagnostics.Warnings, solution.Warnings...)
		}
	} else {
		result.Diagnostics.UsedFallback = true
		result.Diagnostics.FallbackReason = est.Reason
	}

	if result.Diagnostics.UsedFallback {
		weights = optimization.FallbackWeights(ranked, mode, guideline.MinPositions, guideline.MaxSingleWeight)
	}

	report := s.enforcer.Apply(weights, guideline.MaxSingleWeight)
	weights = report.Weights
	result.Diagnostics.CappedTickers = report.Capped
	if report.Violated() {
		result.Diagnostics.Warnings = appendUnique(result.Diagnostics.Warnings, optimization.WarnConstraintInfeasible)
	}

	result.Positions = buildPositions(weights, candidates, req.Capital)
	result.Diagnostics.MinPositionsMet = len(result.Positions) >= guideline.MinPositions

	if !result.Diagnostics.UsedFallback && s.analyzer != nil && len(series) > 0 {
		held := make(map[string]marketdata.Series, len(result.Positions))
		for _, p := range result.Positions {
			if sr, ok := series[p.Ticker]; ok {
				held[p.Ticker] = sr
			}
		}
		result.Diagnostics.Technicals = s.analyzer.Analyze(held)
	}

	if result.Diagnostics.UsedFallback || !est.Sufficient {
		result.Performance = optimization.FallbackSummary()
	} else {
		result.Performance = optimization.Summarize(weights, est, s.cfg.RiskFreeRate)
	}

	result.Protection = s.protection.Assess(tier, result.Performance.Volatility, weights)

	s.log.Info().
		Str("request_id", result.RequestID).
		Str("tier", result.Tier).
		Str("mode", result.Mode).
		Int("positions", len(result.Positions)).
		Bool("used_fallback", result.Diagnostics.UsedFallback).
		Msg("Built allocation recommendation")

	return result, nil
}

// estimate loads price history and computes estimates, consulting the cache
// first when one is configured. The raw series are returned alongside so the
// caller can derive technical diagnostics without a second load; a cache hit
// still loads them.
func (s *Service) estimate(ctx context.Context, tickers []string, lookbackDays int) (optimization.Estimates, map[string]marketdata.Series, error) {
	since := s.now().UTC().AddDate(0, 0, -lookbackDays)

	key := marketdata.Key(tickers, lookbackDays)
	if s.cache != nil {
		var cached cachedEstimates
		hit, err := s.cache.Get(key, &cached)
		if err != nil {
			s.log.Warn().Err(err).Msg("Estimate cache read failed")
		} else if hit {
			series, loadErr := s.prices.Closes(ctx, tickers, since)
			if loadErr != nil {
				series = nil
			}
			return fromCached(cached), series, nil
		}
	}

	series, err := s.prices.Closes(ctx, tickers, since)
	if err != nil {
		return optimization.Estimates{}, nil, err
	}

	est := s.estimator.Estimate(series, tickers)

	if s.cache != nil {
		if err := s.cache.Put(key, toCached(est)); err != nil {
			s.log.Warn().Err(err).Msg("Estimate cache write failed")
		}
	}
	return est, series, nil
}

// buildPositions turns the final weights into sorted positions, enriched
// from the screened candidates.
func buildPositions(weights map[string]float64, candidates []screening.Candidate, capital float64) []Position {
	byTicker := make(map[string]screening.Candidate, len(candidates))
	for _, c := range candidates {
		byTicker[c.Ticker] = c
	}

	positions := make([]Position, 0, len(weights))
	for ticker, w := range weights {
		if w <= 0 {
			continue
		}
		c := byTicker[ticker]
		p := Position{
			Ticker:   ticker,
			Name:     c.Name,
			Exchange: c.Exchange,
			Sector:   c.Sector,
			Weight:   w,
			Score:    c.Score,
		}
		if capital > 0 {
			p.Amount = capital * w
		}
		positions = append(positions, p)
	}
	sort.Slice(positions, func(i, j int) bool {
		if positions[i].Weight != positions[j].Weight {
			return positions[i].Weight > positions[j].Weight
		}
		return positions[i].Ticker < positions[j].Ticker
	})
	return positions
}

func appendUnique(list []string, v string) []string {
	for _, existing := range list {
		if existing == v {
			return list
		}
	}
	return append(list, v)
}
