// Package metrics provides the centralized Prometheus metrics registry for the odds tracker.
package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Global registry instance
var (
	registry *prometheus.Registry
	once     sync.Once
)

// Poll cycle outcomes
const (
	OutcomeSuccess      = "success"
	OutcomeFetchError   = "fetch_error"
	OutcomeStorageError = "storage_error"
	OutcomeSkipped      = "skipped"
)

// Counter metrics
var (
	PollCyclesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "odds_tracker",
		Name:      "poll_cycles_total",
		Help:      "Total number of poll cycles by outcome",
	}, []string{"outcome"})
	OddsChangesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "odds_tracker",
		Name:      "odds_changes_total",
		Help:      "Total number of runner price changes observed between polls",
	})
	SnapshotsWrittenTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "odds_tracker",
		Name:      "snapshots_written_total",
		Help:      "Total number of snapshots appended to the ledger",
	})
	CorruptSnapshotsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "odds_tracker",
		Name:      "corrupt_snapshots_total",
		Help:      "Total number of snapshots skipped because they could not be decoded",
	})
	NotificationFailuresTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "odds_tracker",
		Name:      "notification_failures_total",
		Help:      "Total number of failed odds change notifications by notifier",
	}, []string{"notifier"})
	HistoryRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "odds_tracker",
		Name:      "history_requests_total",
		Help:      "Total number of history reconstructions by cache result",
	}, []string{"cache"})
)

// Gauge metrics
var (
	RunnersFetched = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "odds_tracker",
		Name:      "runners_fetched",
		Help:      "Number of runners returned by the most recent successful fetch",
	})
	LedgerSnapshots = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "odds_tracker",
		Name:      "ledger_snapshots",
		Help:      "Number of snapshots folded into the derived state",
	})
	TrackedRunners = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "odds_tracker",
		Name:      "tracked_runners",
		Help:      "Number of runners in the last known odds map",
	})
)

// Histogram metrics
var (
	PollDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "odds_tracker",
		Name:      "poll_duration_seconds",
		Help:      "Duration of poll cycles in seconds",
		Buckets:   []float64{0.5, 1, 2, 5, 10, 30, 60, 120},
	})
	ReplayDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "odds_tracker",
		Name:      "replay_duration_seconds",
		Help:      "Duration of ledger replays in seconds",
		Buckets:   []float64{0.1, 0.5, 1, 5, 10, 30, 60, 300},
	})
)

// InitRegistry initializes the global Prometheus registry.
func InitRegistry() *prometheus.Registry {
	once.Do(func() {
		registry = prometheus.NewRegistry()

		// Register counter metrics
		registry.MustRegister(PollCyclesTotal)
		registry.MustRegister(OddsChangesTotal)
		registry.MustRegister(SnapshotsWrittenTotal)
		registry.MustRegister(CorruptSnapshotsTotal)
		registry.MustRegister(NotificationFailuresTotal)
		registry.MustRegister(HistoryRequestsTotal)

		// Register gauge metrics
		registry.MustRegister(RunnersFetched)
		registry.MustRegister(LedgerSnapshots)
		registry.MustRegister(TrackedRunners)

		// Register histogram metrics
		registry.MustRegister(PollDuration)
		registry.MustRegister(ReplayDuration)

		// Register Betfair metrics
		registry.MustRegister(BetfairRequestsTotal)
		registry.MustRegister(BetfairRequestLatency)
		registry.MustRegister(CircuitBreakerTripsTotal)
	})
	return registry
}

// GetRegistry returns the global Prometheus registry.
func GetRegistry() *prometheus.Registry {
	if registry == nil {
		return InitRegistry()
	}
	return registry
}

// Handler returns the Prometheus HTTP handler.
func Handler() http.Handler {
	return promhttp.HandlerFor(GetRegistry(), promhttp.HandlerOpts{})
}

// RecordPollCycle records a finished poll cycle.
func RecordPollCycle(outcome string, durationSeconds float64) {
	PollCyclesTotal.WithLabelValues(outcome).Inc()
	if outcome != OutcomeSkipped {
		PollDuration.Observe(durationSeconds)
	}
}

// RecordOddsChanges records price changes detected in one cycle.
func RecordOddsChanges(count int) {
	OddsChangesTotal.Add(float64(count))
}

// RecordSnapshotWritten records a successful ledger append.
func RecordSnapshotWritten(runners int) {
	SnapshotsWrittenTotal.Inc()
	RunnersFetched.Set(float64(runners))
}

// RecordCorruptSnapshot records a skipped snapshot.
func RecordCorruptSnapshot() {
	CorruptSnapshotsTotal.Inc()
}

// RecordNotificationFailure records a notifier that failed to deliver.
func RecordNotificationFailure(notifier string) {
	NotificationFailuresTotal.WithLabelValues(notifier).Inc()
}

// RecordHistoryRequest records a history read, hit or miss.
func RecordHistoryRequest(cacheHit bool) {
	if cacheHit {
		HistoryRequestsTotal.WithLabelValues("hit").Inc()
		return
	}
	HistoryRequestsTotal.WithLabelValues("miss").Inc()
}

// UpdateLedgerSize updates the ledger gauges.
func UpdateLedgerSize(snapshots, runners int) {
	LedgerSnapshots.Set(float64(snapshots))
	TrackedRunners.Set(float64(runners))
}

// RecordReplayDuration records ledger replay duration.
func RecordReplayDuration(durationSeconds float64) {
	ReplayDuration.Observe(durationSeconds)
}
