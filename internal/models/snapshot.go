package models

import "time"

// Snapshot is one timestamped capture of every runner's odds
type Snapshot struct {
	Timestamp time.Time `json:"timestamp"`
	Runners   RunnerMap `json:"runners"`
}

// OddsChange is emitted when a runner's live price differs between two polls
type OddsChange struct {
	RunnerID int64     `json:"runner_id"`
	Name     string    `json:"name"`
	Event    string    `json:"event"`
	Previous Odds      `json:"previous"`
	Current  Odds      `json:"current"`
	At       time.Time `json:"at"`
}
