// Package api serves the read-only odds analytics and race history queries.
package api

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/yourusername/odds-tracker/internal/models"
)

// RunnerData is the display view of a runner's prices
type RunnerData struct {
	Name        string  `json:"name"`
	Odds        float64 `json:"odds"`
	Event       string  `json:"event"`
	InitialOdds float64 `json:"initialOdds"`
}

// RunnerPayload is one runner of a race group with its movement
type RunnerPayload struct {
	RunnerID         int64      `json:"runnerId"`
	Runner           RunnerData `json:"runner"`
	Movement         float64    `json:"movement"`
	Status           string     `json:"status"`
	LastMovement     float64    `json:"lastMovement"`
	LastMovementType string     `json:"lastMovementType"`
}

// RaceData is the payload of one time group
type RaceData struct {
	Runners   []RunnerPayload `json:"runners"`
	Overround float64         `json:"overround"`
}

// OddsPayload maps time key to race data. encoding/json writes map keys sorted,
// so groups appear in time key order.
type OddsPayload map[string]RaceData

// HistoryPoint is one observed price
type HistoryPoint struct {
	Timestamp time.Time `json:"timestamp"`
	Odds      float64   `json:"odds"`
}

// RunnerHistory is the price series of one runner
type RunnerHistory struct {
	RunnerID   int64          `json:"runnerId"`
	RunnerName string         `json:"runnerName"`
	History    []HistoryPoint `json:"history"`
}

// HistoryPayload is the price history of one event
type HistoryPayload struct {
	EventIdentifier string          `json:"eventIdentifier"`
	RunnersHistory  []RunnerHistory `json:"runnersHistory"`
}

// ErrorPayload is the body of every non-2xx response
type ErrorPayload struct {
	Error string `json:"error"`
}

// NewOddsPayload converts computed race groups to the wire format
func NewOddsPayload(groups []models.RaceGroup) OddsPayload {
	payload := make(OddsPayload, len(groups))
	for _, g := range groups {
		runners := make([]RunnerPayload, 0, len(g.Runners))
		for _, r := range g.Runners {
			runners = append(runners, RunnerPayload{
				RunnerID: r.RunnerID,
				Runner: RunnerData{
					Name:        r.Name,
					Odds:        toFloat(r.DisplayOdds),
					Event:       r.Event,
					InitialOdds: toFloat(r.InitialOdds),
				},
				Movement:         toFloat(r.Movement),
				Status:           string(r.Status),
				LastMovement:     toFloat(r.LastMovement),
				LastMovementType: string(r.LastMovementType),
			})
		}
		payload[g.TimeKey] = RaceData{Runners: runners, Overround: toFloat(g.Overround)}
	}
	return payload
}

// NewHistoryPayload converts a reconstructed history to the wire format
func NewHistoryPayload(h models.RaceHistory) HistoryPayload {
	out := HistoryPayload{
		EventIdentifier: h.EventIdentifier,
		RunnersHistory:  make([]RunnerHistory, 0, len(h.RunnersHistory)),
	}
	for _, rh := range h.RunnersHistory {
		points := make([]HistoryPoint, 0, len(rh.History))
		for _, p := range rh.History {
			points = append(points, HistoryPoint{Timestamp: p.Timestamp.UTC(), Odds: toFloat(p.Odds)})
		}
		out.RunnersHistory = append(out.RunnersHistory, RunnerHistory{
			RunnerID:   rh.RunnerID,
			RunnerName: rh.RunnerName,
			History:    points,
		})
	}
	return out
}

// toFloat converts at the boundary only; all arithmetic stays in decimal
func toFloat(d decimal.Decimal) float64 {
	return d.InexactFloat64()
}
