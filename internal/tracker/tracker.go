// Package tracker runs the poll cycle and publishes the live odds state.
package tracker

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/yourusername/odds-tracker/internal/ledger"
	"github.com/yourusername/odds-tracker/internal/logger"
	"github.com/yourusername/odds-tracker/internal/metrics"
	"github.com/yourusername/odds-tracker/internal/models"
	"github.com/yourusername/odds-tracker/internal/notify"
	"github.com/yourusername/odds-tracker/internal/snapshot"
)

// OddsSource fetches the current odds of every runner racing on date
type OddsSource interface {
	FetchCurrentOdds(ctx context.Context, date time.Time) (models.RunnerMap, error)
}

// CycleResult describes one completed poll cycle
type CycleResult struct {
	CycleID     string
	SnapshotKey string
	Runners     int
	Changes     []models.OddsChange
	FirstRun    bool
	Duration    time.Duration
}

// Tracker owns the ledger accumulator and the live previous/current maps
type Tracker struct {
	source       OddsSource
	store        snapshot.Store
	notifier     notify.Notifier
	logger       *logrus.Logger
	oddsLogger   *logger.OddsLogger
	fetchTimeout time.Duration
	now          func() time.Time

	// cycleMu serializes poll cycles and guards acc
	cycleMu sync.Mutex
	acc     *ledger.Accumulator
	state   atomic.Pointer[ledger.State]
}

// Option configures a Tracker
type Option func(*Tracker)

// WithFetchTimeout bounds each fetch. Zero leaves the fetch bounded only by its own client.
func WithFetchTimeout(d time.Duration) Option {
	return func(t *Tracker) { t.fetchTimeout = d }
}

// WithClock replaces time.Now
func WithClock(now func() time.Time) Option {
	return func(t *Tracker) { t.now = now }
}

// New creates a tracker seeded from a replayed accumulator
func New(source OddsSource, store snapshot.Store, notifier notify.Notifier, acc *ledger.Accumulator, log *logrus.Logger, opts ...Option) *Tracker {
	if acc == nil {
		acc = ledger.NewAccumulator()
	}
	if log == nil {
		log = logrus.New()
	}
	if notifier == nil {
		notifier = notify.NewMulti()
	}

	t := &Tracker{
		source:     source,
		store:      store,
		notifier:   notifier,
		logger:     log,
		oddsLogger: logger.NewOddsLogger(log),
		now:        time.Now,
		acc:        acc,
	}
	for _, opt := range opts {
		opt(t)
	}
	t.state.Store(ledger.Seed(acc))
	return t
}

// State returns the current immutable state bundle
func (t *Tracker) State() *ledger.State {
	return t.state.Load()
}

// LatestSnapshot returns the key of the newest snapshot in live state
func (t *Tracker) LatestSnapshot() string {
	return t.State().LatestKey
}

// PollOnce runs one cycle: fetch, compare, append, publish. Any failure leaves the
// published state untouched. A cycle already in progress fails with models.ErrCycleInProgress.
func (t *Tracker) PollOnce(ctx context.Context) (CycleResult, error) {
	if !t.cycleMu.TryLock() {
		metrics.RecordPollCycle(metrics.OutcomeSkipped, 0)
		t.logger.Warn("Poll cycle still running, skipping trigger")
		return CycleResult{}, models.ErrCycleInProgress
	}
	defer t.cycleMu.Unlock()

	start := t.now().UTC()
	result := CycleResult{CycleID: uuid.NewString()}
	log := t.logger.WithField("cycle_id", result.CycleID)
	log.Info("Polling for odds changes")

	prior := t.state.Load()
	previous := prior.Current

	latest, err := t.fetch(ctx, start)
	if err != nil {
		t.oddsLogger.LogPollFailed(result.CycleID, "fetch", err)
		metrics.RecordPollCycle(metrics.OutcomeFetchError, time.Since(start).Seconds())
		return result, err
	}
	log.WithField("runners", len(latest)).Info("Fetched current odds")

	result.FirstRun = len(previous) == 0
	if result.FirstRun {
		t.oddsLogger.LogFirstRun(result.CycleID, len(latest))
	} else {
		result.Changes = Diff(previous, latest, start)
	}

	ref, err := t.store.Append(ctx, models.Snapshot{Timestamp: start, Runners: latest})
	if err != nil {
		t.oddsLogger.LogPollFailed(result.CycleID, "append", err)
		metrics.RecordPollCycle(metrics.OutcomeStorageError, time.Since(start).Seconds())
		return result, err
	}

	t.acc.Apply(ref.Key, models.Snapshot{Timestamp: start, Runners: latest})
	next := t.acc.State(previous, latest)
	t.state.Store(next)

	if err := t.notifier.Notify(ctx, result.Changes); err != nil {
		log.WithError(err).Warn("Some odds change notifications were not delivered")
	}

	result.SnapshotKey = ref.Key
	result.Runners = len(latest)
	result.Duration = t.now().Sub(start)

	metrics.RecordSnapshotWritten(len(latest))
	metrics.RecordOddsChanges(len(result.Changes))
	metrics.UpdateLedgerSize(next.Snapshots, len(next.LastKnown))
	metrics.RecordPollCycle(metrics.OutcomeSuccess, result.Duration.Seconds())
	t.oddsLogger.LogPollCompleted(result.CycleID, ref.Key, result.Runners, len(result.Changes), result.Duration)

	return result, nil
}

func (t *Tracker) fetch(ctx context.Context, date time.Time) (models.RunnerMap, error) {
	if t.fetchTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.fetchTimeout)
		defer cancel()
	}

	latest, err := t.source.FetchCurrentOdds(ctx, date)
	if err != nil {
		if errors.Is(err, models.ErrFetch) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", models.ErrFetch, err)
	}
	if latest == nil {
		latest = models.RunnerMap{}
	}
	return latest, nil
}

// Diff returns a change for every runner in both maps whose price differs.
// Absent prices compare as zero. Changes are ordered by runner id.
func Diff(previous, latest models.RunnerMap, at time.Time) []models.OddsChange {
	var changes []models.OddsChange
	for id, current := range latest {
		prior, ok := previous[id]
		if !ok {
			continue
		}
		if prior.Odds.OrZero().Equal(current.Odds.OrZero()) {
			continue
		}
		changes = append(changes, models.OddsChange{
			RunnerID: id,
			Name:     current.Name,
			Event:    current.Event,
			Previous: prior.Odds,
			Current:  current.Odds,
			At:       at,
		})
	}
	sort.Slice(changes, func(i, j int) bool {
		return changes[i].RunnerID < changes[j].RunnerID
	})
	return changes
}
