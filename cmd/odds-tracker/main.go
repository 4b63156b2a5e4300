// Package main provides the entry point for the odds tracker.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/yourusername/odds-tracker/internal/analytics"
	"github.com/yourusername/odds-tracker/internal/config"
	"github.com/yourusername/odds-tracker/internal/logger"
)

// Build information - set via ldflags
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

var (
	configFile string
	appLog     *logrus.Logger
	cfg        *config.Config
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "./config/config.yaml", "Path to configuration file")
	rootCmd.AddCommand(serveCmd, analyticsCmd, historyCmd, versionCmd)
}

var rootCmd = &cobra.Command{
	Use:   "odds-tracker",
	Short: "Capture race odds snapshots and serve market analytics",
	Long: `Polls the exchange for race odds, appends every capture to the snapshot ledger
and serves grouped market analytics and per-race price history.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd == versionCmd {
			return nil
		}
		if err := loadConfig(); err != nil {
			return err
		}
		if cmd != serveCmd {
			// stdout carries the JSON result
			appLog.SetOutput(os.Stderr)
		}
		return nil
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print build information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("odds-tracker %s (commit %s, built %s)\n", Version, GitCommit, BuildDate)
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatalf("Error: %v", err)
	}
}

// loadConfig reads .env, the config file and the optional AWS secrets overlay
func loadConfig() error {
	// a missing .env is normal outside local development
	_ = godotenv.Load()

	var err error
	cfg, err = config.LoadWithDefaults(configFile)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	if os.Getenv("AWS_SECRETS_ENABLED") == "true" {
		region := os.Getenv("AWS_REGION")
		secretName := os.Getenv("AWS_SECRET_NAME")
		if region == "" || secretName == "" {
			return fmt.Errorf("AWS_REGION and AWS_SECRET_NAME must be set when AWS_SECRETS_ENABLED is true")
		}

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := config.LoadSecretsFromAWS(ctx, cfg, region, secretName); err != nil {
			return fmt.Errorf("failed to load secrets: %w", err)
		}
	}

	appLog = logger.NewLogger(cfg.App.LogLevel)
	return nil
}

func newCalculator() *analytics.Calculator {
	return analytics.NewCalculator(cfg.Analytics.TimeOffset, cfg.Analytics.EventTimeLayout)
}
