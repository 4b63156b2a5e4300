package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// RunnerStatus marks whether a runner is still a betting selection
type RunnerStatus string

const (
	StatusRunner    RunnerStatus = "RUNNER"
	StatusNonRunner RunnerStatus = "NON_RUNNER"
)

// MovementType records where a runner's last movement came from
type MovementType string

const (
	MovementNone       MovementType = "NONE"
	MovementRecent     MovementType = "RECENT"
	MovementHistorical MovementType = "HISTORICAL"
)

// UnparsedGroup is the time key for runners whose event cannot be parsed
const UnparsedGroup = "Unparsed"

// RunnerAnalytics is the per-request view of a runner
type RunnerAnalytics struct {
	RunnerID         int64           `json:"runner_id"`
	Name             string          `json:"name"`
	Event            string          `json:"event"`
	InitialOdds      decimal.Decimal `json:"initial_odds"`
	DisplayOdds      decimal.Decimal `json:"odds"`
	Movement         decimal.Decimal `json:"movement"`
	Status           RunnerStatus    `json:"status"`
	LastMovement     decimal.Decimal `json:"last_movement"`
	LastMovementType MovementType    `json:"last_movement_type"`
}

// RaceGroup holds the runners that share a start time and their overround
type RaceGroup struct {
	TimeKey   string            `json:"time"`
	Runners   []RunnerAnalytics `json:"runners"`
	Overround decimal.Decimal   `json:"overround"`
}

// HistoryPoint is one observed price
type HistoryPoint struct {
	Timestamp time.Time       `json:"timestamp"`
	Odds      decimal.Decimal `json:"odds"`
}

// RunnerHistory is the ordered price series of one runner
type RunnerHistory struct {
	RunnerID   int64          `json:"runner_id"`
	RunnerName string         `json:"runner_name"`
	History    []HistoryPoint `json:"history"`
}

// RaceHistory is the price history of every runner in one event
type RaceHistory struct {
	EventIdentifier string          `json:"event_identifier"`
	RunnersHistory  []RunnerHistory `json:"runners_history"`
}
