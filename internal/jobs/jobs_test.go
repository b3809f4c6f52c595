package jobs

import (
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubPruner struct {
	pruned int64
	err    error
	calls  int
}

func (s *stubPruner) PruneExpired() (int64, error) {
	s.calls++
	return s.pruned, s.err
}

func TestCachePruneJob(t *testing.T) {
	pruner := &stubPruner{pruned: 3}
	job := NewCachePruneJob(pruner, zerolog.Nop())

	assert.Equal(t, "estimate_cache_prune", job.Name())
	require.NoError(t, job.Run())
	assert.Equal(t, 1, pruner.calls)
}

func TestCachePruneJobError(t *testing.T) {
	pruner := &stubPruner{err: errors.New("database locked")}
	job := NewCachePruneJob(pruner, zerolog.Nop())
	assert.Error(t, job.Run())
}

func TestSchedulerRejectsBadSchedule(t *testing.T) {
	s := NewScheduler(zerolog.Nop())
	err := s.AddJob("not a schedule", NewCachePruneJob(&stubPruner{}, zerolog.Nop()))
	assert.Error(t, err)
}

func TestSchedulerAcceptsStandardSchedule(t *testing.T) {
	s := NewScheduler(zerolog.Nop())
	err := s.AddJob("0 */6 * * *", NewCachePruneJob(&stubPruner{}, zerolog.Nop()))
	assert.NoError(t, err)
}
