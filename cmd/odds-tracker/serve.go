package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/yourusername/odds-tracker/internal/api"
	"github.com/yourusername/odds-tracker/internal/betfair"
	"github.com/yourusername/odds-tracker/internal/config"
	"github.com/yourusername/odds-tracker/internal/health"
	"github.com/yourusername/odds-tracker/internal/history"
	"github.com/yourusername/odds-tracker/internal/ledger"
	"github.com/yourusername/odds-tracker/internal/logger"
	"github.com/yourusername/odds-tracker/internal/metrics"
	"github.com/yourusername/odds-tracker/internal/notify"
	"github.com/yourusername/odds-tracker/internal/scheduler"
	"github.com/yourusername/odds-tracker/internal/snapshot"
	"github.com/yourusername/odds-tracker/internal/tracker"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Replay the ledger, poll for odds and serve the read API",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := config.Validate(cfg); err != nil {
			return fmt.Errorf("invalid configuration: %w", err)
		}
		if err := config.ValidateEnvironment(cfg); err != nil {
			return err
		}
		return runServe()
	},
}

func runServe() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	appLog.WithFields(logrus.Fields{
		"environment": cfg.App.Environment,
		"backend":     cfg.Storage.Backend,
		"interval":    cfg.PollInterval(),
		"version":     Version,
	}).Info("Odds tracker starting")

	if cfg.Metrics.Enabled {
		metrics.InitRegistry()
	}

	store, closeStore, err := snapshot.Open(ctx, cfg.Storage, appLog)
	if err != nil {
		return fmt.Errorf("failed to open snapshot store: %w", err)
	}
	defer closeStore()

	acc, stats, err := ledger.Replay(ctx, store, logger.NewOddsLogger(appLog))
	if err != nil {
		return fmt.Errorf("failed to replay snapshot ledger: %w", err)
	}
	appLog.WithFields(logrus.Fields{
		"snapshots": stats.Snapshots,
		"skipped":   stats.Skipped,
		"runners":   stats.Runners,
	}).Info("Snapshot ledger replayed")

	source, err := betfair.NewSource(&cfg.Betfair, appLog)
	if err != nil {
		return fmt.Errorf("failed to create Betfair source: %w", err)
	}
	defer source.Close()

	notifier, err := notify.FromConfig(ctx, cfg.Notifications, appLog)
	if err != nil {
		return fmt.Errorf("failed to create notifiers: %w", err)
	}
	defer notifier.Close()

	fetchTimeout := cfg.PollInterval() - time.Second
	t := tracker.New(source, store, notifier, acc, appLog, tracker.WithFetchTimeout(fetchTimeout))

	var cache *history.Cache
	if cfg.Analytics.HistoryCacheTTL > 0 {
		cache = history.NewCache(cfg.Analytics.HistoryCacheTTL)
	}

	apiCfg := api.Config{
		Port:       cfg.Server.Port,
		Logger:     appLog,
		State:      t,
		Calculator: newCalculator(),
		History:    history.NewReconstructor(store, cache, appLog),
	}
	if cfg.Metrics.Enabled {
		apiCfg.MetricsPath = cfg.Metrics.Path
		apiCfg.MetricsHandler = metrics.Handler()
	}
	apiServer := api.NewServer(apiCfg)

	sched := scheduler.NewScheduler(t, appLog)
	if err := sched.SchedulePolling(cfg.Polling.IntervalSeconds, cfg.Polling.RunOnStart); err != nil {
		return fmt.Errorf("failed to schedule polling: %w", err)
	}

	healthServer := health.NewServer(health.Config{
		ServiceName: cfg.App.Name,
		Version:     Version,
		Commit:      GitCommit,
		Port:        fmt.Sprint(cfg.Server.HealthPort),
		Logger:      appLog,
		Store:       store,
		Ledger:      t,
	})
	if err := healthServer.Start(ctx); err != nil {
		return fmt.Errorf("failed to start health server: %w", err)
	}
	if err := apiServer.Start(ctx); err != nil {
		return fmt.Errorf("failed to start API server: %w", err)
	}
	if err := sched.Start(); err != nil {
		return fmt.Errorf("failed to start scheduler: %w", err)
	}
	healthServer.SetReady(true)

	appLog.WithFields(logrus.Fields{
		"api_port":    cfg.Server.Port,
		"health_port": cfg.Server.HealthPort,
		"next_poll":   sched.GetNextRun(),
	}).Info("Odds tracker running")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	sig := <-sigChan
	appLog.WithField("signal", sig).Info("Shutdown signal received")

	healthServer.SetReady(false)
	if err := sched.Stop(); err != nil {
		appLog.WithError(err).Warn("Scheduler did not stop cleanly")
	}
	if err := apiServer.Shutdown(); err != nil {
		appLog.WithError(err).Warn("API server did not stop cleanly")
	}
	if err := healthServer.Shutdown(); err != nil {
		appLog.WithError(err).Warn("Health server did not stop cleanly")
	}

	appLog.Info("Odds tracker stopped")
	return nil
}
