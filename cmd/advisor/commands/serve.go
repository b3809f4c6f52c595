package commands

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/aristath/advisor/internal/config"
	"github.com/aristath/advisor/internal/database"
	"github.com/aristath/advisor/internal/jobs"
	"github.com/aristath/advisor/internal/marketdata"
	"github.com/aristath/advisor/internal/modules/allocation"
	"github.com/aristath/advisor/internal/modules/allocation/constraints"
	"github.com/aristath/advisor/internal/modules/analysis"
	"github.com/aristath/advisor/internal/modules/optimization"
	"github.com/aristath/advisor/internal/modules/protection"
	"github.com/aristath/advisor/internal/modules/screening"
	"github.com/aristath/advisor/internal/modules/universe"
	"github.com/aristath/advisor/internal/server"
	"github.com/aristath/advisor/pkg/logger"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the recommendation HTTP server",
	Long: `Starts the advisor HTTP server with the background scheduler.

Endpoints:
  GET  /health                     - Health check
  POST /api/allocation/recommend   - Build an allocation recommendation
  GET  /api/risk/classify          - Classify a risk descriptor
  GET  /api/risk/tiers             - List tiers and guidelines
  GET  /api/universe               - Current universe snapshot
  GET  /api/analysis/diagnostics   - Technical diagnostics per ticker
  GET  /api/system/status          - Process and host health`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if verbose {
		cfg.LogLevel = "debug"
	}
	log := logger.New(logger.Config{Level: cfg.LogLevel, Pretty: cfg.DevMode})

	deps, err := buildPipeline(cfg, log)
	if err != nil {
		return err
	}
	defer deps.close()

	scheduler := jobs.NewScheduler(log)
	if err := scheduler.AddJob(cfg.RefreshCron, jobs.NewSnapshotRefreshJob(deps.snapshots)); err != nil {
		return fmt.Errorf("register snapshot refresh job: %w", err)
	}
	if err := scheduler.AddJob("@hourly", jobs.NewCachePruneJob(deps.cache, log)); err != nil {
		return fmt.Errorf("register cache prune job: %w", err)
	}
	scheduler.Start()
	defer scheduler.Stop()

	srv := server.New(server.Config{
		Cfg:        cfg,
		Allocation: deps.allocation,
		Snapshots:  deps.snapshots,
		Prices:     deps.store,
		Analyzer:   deps.analyzer,
		Log:        log,
	})

	errCh := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-quit:
		log.Info().Str("signal", sig.String()).Msg("Shutting down")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(ctx)
}

// pipeline holds the shared service graph behind both CLI commands.
type pipeline struct {
	marketDB   *database.DB
	cacheDB    *database.DB
	store      *marketdata.Store
	cache      *marketdata.EstimateCache
	snapshots  *universe.SnapshotService
	analyzer   *analysis.Analyzer
	allocation *allocation.Service
}

func (p *pipeline) close() {
	if p.cacheDB != nil {
		_ = p.cacheDB.Close()
	}
	if p.marketDB != nil {
		_ = p.marketDB.Close()
	}
}

// buildPipeline opens the databases and wires the allocation service.
func buildPipeline(cfg *config.Config, log zerolog.Logger) (*pipeline, error) {
	marketDB, err := database.New(database.Config{
		Path:    cfg.MarketDBPath(),
		Profile: database.ProfileStandard,
		Name:    "market",
	})
	if err != nil {
		return nil, fmt.Errorf("open market database: %w", err)
	}

	cacheDB, err := database.New(database.Config{
		Path:    cfg.CacheDBPath(),
		Profile: database.ProfileCache,
		Name:    "cache",
	})
	if err != nil {
		_ = marketDB.Close()
		return nil, fmt.Errorf("open cache database: %w", err)
	}

	p := &pipeline{marketDB: marketDB, cacheDB: cacheDB}

	p.store = marketdata.NewStore(marketDB.Conn(), log)
	if err := p.store.EnsureSchema(); err != nil {
		p.close()
		return nil, fmt.Errorf("market schema: %w", err)
	}

	p.cache = marketdata.NewEstimateCache(cacheDB.Conn(), time.Duration(cfg.CacheTTLHrs)*time.Hour)
	if err := p.cache.EnsureSchema(); err != nil {
		p.close()
		return nil, fmt.Errorf("cache schema: %w", err)
	}

	p.snapshots, err = universe.NewSnapshotService(universe.NewRepository(marketDB.Conn(), log), log)
	if err != nil {
		p.close()
		return nil, fmt.Errorf("load universe snapshot: %w", err)
	}

	p.analyzer = analysis.NewAnalyzer(log)
	p.allocation = allocation.NewService(
		p.snapshots,
		screening.NewScreener(log),
		p.store,
		p.store,
		optimization.NewEstimator(log),
		optimization.NewMVOptimizer(cfg.RiskFreeRate, log),
		constraints.NewEnforcer(log),
		protection.NewService(log),
		p.analyzer,
		p.cache,
		allocation.Config{RiskFreeRate: cfg.RiskFreeRate, LookbackDays: cfg.LookbackDays},
		log,
	)
	return p, nil
}
