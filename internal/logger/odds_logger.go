// Package logger provides odds-tracking specific logging.
package logger

import (
	"time"

	"github.com/sirupsen/logrus"
	"github.com/yourusername/odds-tracker/internal/models"
)

// OddsLogger provides dedicated logging for the poll cycle and the snapshot ledger.
type OddsLogger struct {
	*logrus.Entry
}

// NewOddsLogger creates a new odds logger.
func NewOddsLogger(baseLogger *logrus.Logger) *OddsLogger {
	return &OddsLogger{
		Entry: baseLogger.WithField("component", "odds"),
	}
}

// LogOddsUpdate logs a runner whose live price moved between two polls.
func (ol *OddsLogger) LogOddsUpdate(change models.OddsChange) {
	ol.WithFields(logrus.Fields{
		"runner_id": change.RunnerID,
		"runner":    change.Name,
		"event":     change.Event,
		"previous":  change.Previous.OrZero().StringFixed(2),
		"current":   change.Current.OrZero().StringFixed(2),
	}).Info("Odds update")
}

// LogFirstRun logs a cycle with no previous live state to compare against.
func (ol *OddsLogger) LogFirstRun(cycleID string, runners int) {
	ol.WithFields(logrus.Fields{
		"cycle_id": cycleID,
		"runners":  runners,
	}).Info("Initial run, storing current odds")
}

// LogPollCompleted logs a successful poll cycle.
func (ol *OddsLogger) LogPollCompleted(cycleID, snapshotKey string, runners, changes int, duration time.Duration) {
	ol.WithFields(logrus.Fields{
		"cycle_id":     cycleID,
		"snapshot_key": snapshotKey,
		"runners":      runners,
		"changes":      changes,
		"duration_ms":  duration.Milliseconds(),
	}).Info("Poll cycle completed")
}

// LogPollFailed logs a poll cycle that left live state unchanged.
func (ol *OddsLogger) LogPollFailed(cycleID, stage string, err error) {
	ol.WithFields(logrus.Fields{
		"cycle_id": cycleID,
		"stage":    stage,
	}).WithError(err).Error("Poll cycle failed, live state unchanged")
}

// LogReplayCompleted logs the startup replay of the snapshot ledger.
func (ol *OddsLogger) LogReplayCompleted(snapshots, skipped, runners int, duration time.Duration) {
	ol.WithFields(logrus.Fields{
		"snapshots":   snapshots,
		"skipped":     skipped,
		"runners":     runners,
		"duration_ms": duration.Milliseconds(),
	}).Info("Finished replaying snapshot ledger")
}

// LogSnapshotSkipped logs a snapshot that could not be used.
func (ol *OddsLogger) LogSnapshotSkipped(key string, err error) {
	ol.WithField("snapshot_key", key).WithError(err).Warn("Skipping unreadable snapshot")
}
