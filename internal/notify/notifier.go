// Package notify fans odds changes out to logs, Kafka and Redis.
package notify

import (
	"context"
	"errors"
	"fmt"

	"github.com/yourusername/odds-tracker/internal/logger"
	"github.com/yourusername/odds-tracker/internal/metrics"
	"github.com/yourusername/odds-tracker/internal/models"
)

// Notifier receives the odds changes detected by one poll cycle
type Notifier interface {
	Name() string
	Notify(ctx context.Context, changes []models.OddsChange) error
	Close() error
}

// LogNotifier writes each change through the odds logger
type LogNotifier struct {
	logger *logger.OddsLogger
}

// NewLogNotifier creates a log notifier
func NewLogNotifier(oddsLogger *logger.OddsLogger) *LogNotifier {
	return &LogNotifier{logger: oddsLogger}
}

// Name implements Notifier
func (n *LogNotifier) Name() string { return "log" }

// Notify implements Notifier
func (n *LogNotifier) Notify(ctx context.Context, changes []models.OddsChange) error {
	for _, change := range changes {
		n.logger.LogOddsUpdate(change)
	}
	return nil
}

// Close implements Notifier
func (n *LogNotifier) Close() error { return nil }

// Multi delivers to every notifier. One failing notifier does not stop the others.
type Multi struct {
	notifiers []Notifier
}

// NewMulti creates a fan-out notifier
func NewMulti(notifiers ...Notifier) *Multi {
	return &Multi{notifiers: notifiers}
}

// Name implements Notifier
func (m *Multi) Name() string { return "multi" }

// Notify implements Notifier. The returned error joins every individual failure.
func (m *Multi) Notify(ctx context.Context, changes []models.OddsChange) error {
	if len(changes) == 0 {
		return nil
	}

	var errs []error
	for _, n := range m.notifiers {
		if err := n.Notify(ctx, changes); err != nil {
			metrics.RecordNotificationFailure(n.Name())
			errs = append(errs, fmt.Errorf("%s: %w", n.Name(), err))
		}
	}
	return errors.Join(errs...)
}

// Close closes every notifier
func (m *Multi) Close() error {
	var errs []error
	for _, n := range m.notifiers {
		if err := n.Close(); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", n.Name(), err))
		}
	}
	return errors.Join(errs...)
}
