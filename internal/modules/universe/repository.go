package universe

import (
	"database/sql"
	"fmt"
	"sort"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

// Repository loads universe snapshots from the securities table.
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRepository creates a universe repository.
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("component", "universe").Logger(),
	}
}

// LoadSnapshot reads all securities into a fresh snapshot, ordered by ticker
// for deterministic downstream screening.
func (r *Repository) LoadSnapshot() (Snapshot, error) {
	rows, err := r.db.Query(`
		SELECT ticker, name, exchange, sector
		FROM securities
		ORDER BY ticker ASC
	`)
	if err != nil {
		return Snapshot{}, fmt.Errorf("failed to load universe: %w", err)
	}
	defer rows.Close()

	snap := Snapshot{TakenAt: time.Now().UTC()}
	exchanges := make(map[string]bool)
	for rows.Next() {
		var l Listing
		if err := rows.Scan(&l.Ticker, &l.Name, &l.Exchange, &l.Sector); err != nil {
			return Snapshot{}, fmt.Errorf("failed to scan security: %w", err)
		}
		snap.Listings = append(snap.Listings, l)
		if l.Exchange != "" {
			exchanges[l.Exchange] = true
		}
	}
	if err := rows.Err(); err != nil {
		return Snapshot{}, err
	}

	for exch := range exchanges {
		snap.Exchanges = append(snap.Exchanges, exch)
	}
	sort.Strings(snap.Exchanges)

	return snap, nil
}

// SnapshotService holds the current snapshot and swaps it atomically on
// refresh. Readers always see a complete, consistent snapshot.
type SnapshotService struct {
	repo    *Repository
	current atomic.Pointer[Snapshot]
	log     zerolog.Logger
}

// NewSnapshotService creates the service and performs an initial load.
func NewSnapshotService(repo *Repository, log zerolog.Logger) (*SnapshotService, error) {
	svc := &SnapshotService{
		repo: repo,
		log:  log.With().Str("component", "universe_snapshot").Logger(),
	}
	if err := svc.Refresh(); err != nil {
		return nil, err
	}
	return svc, nil
}

// Current returns the latest snapshot. The returned value must not be
// mutated by callers.
func (s *SnapshotService) Current() Snapshot {
	if snap := s.current.Load(); snap != nil {
		return *snap
	}
	return Snapshot{}
}

// Refresh reloads the snapshot from storage.
func (s *SnapshotService) Refresh() error {
	snap, err := s.repo.LoadSnapshot()
	if err != nil {
		return err
	}
	s.current.Store(&snap)
	s.log.Info().
		Int("listings", snap.Size()).
		Strs("exchanges", snap.Exchanges).
		Msg("Universe snapshot refreshed")
	return nil
}
