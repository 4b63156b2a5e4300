package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/yourusername/odds-tracker/internal/logger"
	"github.com/yourusername/odds-tracker/internal/metrics"
	"github.com/yourusername/odds-tracker/internal/models"
	"github.com/yourusername/odds-tracker/internal/snapshot"
)

// ReplayStats summarises one replay
type ReplayStats struct {
	Snapshots int
	Skipped   int
	Runners   int
	Duration  time.Duration
}

// Replay folds every stored snapshot, oldest first, into a new accumulator.
// Unreadable snapshots are logged and applied as empty; only a failure to list the
// ledger is returned.
func Replay(ctx context.Context, store snapshot.Store, oddsLogger *logger.OddsLogger) (*Accumulator, ReplayStats, error) {
	start := time.Now()
	acc := NewAccumulator()

	refs, err := store.List(ctx)
	if err != nil {
		return nil, ReplayStats{}, fmt.Errorf("failed to list snapshots: %w", err)
	}

	stats := ReplayStats{}
	for _, ref := range refs {
		if err := ctx.Err(); err != nil {
			return nil, ReplayStats{}, err
		}

		snap, err := store.Load(ctx, ref)
		if err != nil {
			oddsLogger.LogSnapshotSkipped(ref.Key, err)
			metrics.RecordCorruptSnapshot()
			stats.Skipped++
			snap = models.Snapshot{Runners: models.RunnerMap{}}
		}
		acc.Apply(ref.Key, snap)
	}

	stats.Snapshots = acc.Snapshots()
	stats.Runners = len(acc.lastKnown)
	stats.Duration = time.Since(start)

	metrics.RecordReplayDuration(stats.Duration.Seconds())
	metrics.UpdateLedgerSize(stats.Snapshots, stats.Runners)
	oddsLogger.LogReplayCompleted(stats.Snapshots, stats.Skipped, stats.Runners, stats.Duration)

	return acc, stats, nil
}

// Seed returns the startup state: the live previous and current maps both start as the
// newest stored snapshot.
func Seed(acc *Accumulator) *State {
	latest := acc.Latest()
	return acc.State(latest, latest)
}
