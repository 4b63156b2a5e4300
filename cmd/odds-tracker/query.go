package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/yourusername/odds-tracker/internal/api"
	"github.com/yourusername/odds-tracker/internal/history"
	"github.com/yourusername/odds-tracker/internal/ledger"
	"github.com/yourusername/odds-tracker/internal/logger"
	"github.com/yourusername/odds-tracker/internal/snapshot"
)

var analyticsCmd = &cobra.Command{
	Use:   "analytics",
	Short: "Replay the ledger and print the grouped market analytics as JSON",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}

		store, closeStore, err := snapshot.Open(ctx, cfg.Storage, appLog)
		if err != nil {
			return fmt.Errorf("failed to open snapshot store: %w", err)
		}
		defer closeStore()

		acc, _, err := ledger.Replay(ctx, store, logger.NewOddsLogger(appLog))
		if err != nil {
			return fmt.Errorf("failed to replay snapshot ledger: %w", err)
		}

		groups := newCalculator().Compute(ledger.Seed(acc))
		return printJSON(api.NewOddsPayload(groups))
	},
}

var historyCmd = &cobra.Command{
	Use:   "history <event>",
	Short: "Print the price history of one event as JSON",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}

		store, closeStore, err := snapshot.Open(ctx, cfg.Storage, appLog)
		if err != nil {
			return fmt.Errorf("failed to open snapshot store: %w", err)
		}
		defer closeStore()

		// event identifiers contain spaces; unquoted arguments are joined back together
		event := strings.Join(args, " ")
		h, err := history.NewReconstructor(store, nil, appLog).RaceHistory(ctx, event)
		if err != nil {
			return err
		}
		return printJSON(api.NewHistoryPayload(h))
	},
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
