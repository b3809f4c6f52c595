package jobs

import (
	"github.com/rs/zerolog"

	"github.com/aristath/advisor/internal/modules/universe"
)

// SnapshotRefreshJob reloads the universe snapshot from storage.
type SnapshotRefreshJob struct {
	snapshots *universe.SnapshotService
}

func NewSnapshotRefreshJob(snapshots *universe.SnapshotService) *SnapshotRefreshJob {
	return &SnapshotRefreshJob{snapshots: snapshots}
}

func (j *SnapshotRefreshJob) Name() string { return "universe_snapshot_refresh" }

func (j *SnapshotRefreshJob) Run() error {
	return j.snapshots.Refresh()
}

// Pruner removes expired entries; *marketdata.EstimateCache satisfies this.
type Pruner interface {
	PruneExpired() (int64, error)
}

// CachePruneJob drops expired estimate cache rows.
type CachePruneJob struct {
	cache Pruner
	log   zerolog.Logger
}

func NewCachePruneJob(cache Pruner, log zerolog.Logger) *CachePruneJob {
	return &CachePruneJob{
		cache: cache,
		log:   log.With().Str("component", "cache_prune_job").Logger(),
	}
}

func (j *CachePruneJob) Name() string { return "estimate_cache_prune" }

func (j *CachePruneJob) Run() error {
	pruned, err := j.cache.PruneExpired()
	if err != nil {
		return err
	}
	if pruned > 0 {
		j.log.Info().Int64("pruned", pruned).Msg("Pruned expired estimate cache entries")
	}
	return nil
}
