// Package history rebuilds per-runner price series for one event from the snapshot ledger.
package history

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/yourusername/odds-tracker/internal/metrics"
	"github.com/yourusername/odds-tracker/internal/models"
	"github.com/yourusername/odds-tracker/internal/snapshot"
)

// Reconstructor scans the ledger to build race histories
type Reconstructor struct {
	store  snapshot.Store
	cache  *Cache
	logger *logrus.Logger
}

// NewReconstructor creates a reconstructor. A nil cache disables caching.
func NewReconstructor(store snapshot.Store, c *Cache, logger *logrus.Logger) *Reconstructor {
	if logger == nil {
		logger = logrus.New()
	}
	return &Reconstructor{store: store, cache: c, logger: logger}
}

// RaceHistory returns the price series of every runner in event, oldest point first.
// An empty event fails with models.ErrInvalidQuery.
func (r *Reconstructor) RaceHistory(ctx context.Context, event string) (models.RaceHistory, error) {
	if strings.TrimSpace(event) == "" {
		return models.RaceHistory{}, fmt.Errorf("%w: eventIdentifier is required", models.ErrInvalidQuery)
	}

	refs, err := r.store.List(ctx)
	if err != nil {
		return models.RaceHistory{}, fmt.Errorf("failed to list snapshots: %w", err)
	}

	key := CacheKey{Event: event}
	if len(refs) > 0 {
		key.LatestKey = refs[len(refs)-1].Key
	}
	if r.cache != nil {
		if h, ok := r.cache.Get(key); ok {
			return h, nil
		}
	}

	h, err := r.scan(ctx, event, refs)
	if err != nil {
		return models.RaceHistory{}, err
	}
	if r.cache != nil {
		r.cache.Set(key, h)
	}
	return h, nil
}

func (r *Reconstructor) scan(ctx context.Context, event string, refs []snapshot.Ref) (models.RaceHistory, error) {
	series := make(map[int64]*models.RunnerHistory)

	for _, ref := range refs {
		if err := ctx.Err(); err != nil {
			return models.RaceHistory{}, err
		}

		ts, err := ref.Timestamp()
		if err != nil {
			r.logger.WithField("snapshot_key", ref.Key).WithError(err).Warn("Skipping snapshot with unparseable key")
			continue
		}

		snap, err := r.store.Load(ctx, ref)
		if err != nil {
			r.logger.WithField("snapshot_key", ref.Key).WithError(err).Warn("Could not read history from snapshot")
			metrics.RecordCorruptSnapshot()
			continue
		}

		for id, runner := range snap.Runners {
			if runner.Event != event || !runner.Odds.IsPositive() {
				continue
			}
			price, _ := runner.Odds.Value()

			rh, ok := series[id]
			if !ok {
				rh = &models.RunnerHistory{RunnerID: id}
				series[id] = rh
			}
			rh.RunnerName = runner.Name
			rh.History = append(rh.History, models.HistoryPoint{Timestamp: ts, Odds: price})
		}
	}

	out := models.RaceHistory{
		EventIdentifier: event,
		RunnersHistory:  make([]models.RunnerHistory, 0, len(series)),
	}
	for _, rh := range series {
		sort.SliceStable(rh.History, func(i, j int) bool {
			return rh.History[i].Timestamp.Before(rh.History[j].Timestamp)
		})
		out.RunnersHistory = append(out.RunnersHistory, *rh)
	}
	sort.Slice(out.RunnersHistory, func(i, j int) bool {
		return out.RunnersHistory[i].RunnerID < out.RunnersHistory[j].RunnerID
	})

	r.logger.WithFields(logrus.Fields{
		"event":     event,
		"snapshots": len(refs),
		"runners":   len(out.RunnersHistory),
	}).Debug("Reconstructed race history")
	return out, nil
}
