// Package ledger folds the snapshot sequence into derived odds state.
package ledger

import (
	"github.com/shopspring/decimal"
	"github.com/yourusername/odds-tracker/internal/models"
)

// State is an immutable view of the derived odds state. Callers must not modify the maps.
type State struct {
	// Initial is the content of the earliest snapshot
	Initial models.RunnerMap
	// LastKnown is the last-write-wins merge of every snapshot
	LastKnown models.RunnerMap
	// LastRecordedMovement is the most recent non-zero price delta per runner
	LastRecordedMovement map[int64]decimal.Decimal
	// Previous and Current are the two most recent live poll results
	Previous models.RunnerMap
	Current  models.RunnerMap

	// Snapshots is the number of snapshots folded in
	Snapshots int
	// LatestKey is the key of the newest snapshot, empty when none exist
	LatestKey string
}

// Empty returns the state of a ledger with no snapshots
func Empty() *State {
	return &State{
		Initial:              models.RunnerMap{},
		LastKnown:            models.RunnerMap{},
		LastRecordedMovement: map[int64]decimal.Decimal{},
		Previous:             models.RunnerMap{},
		Current:              models.RunnerMap{},
	}
}

// Accumulator is the running fold over snapshots. It is not safe for concurrent use.
type Accumulator struct {
	started   bool
	initial   models.RunnerMap
	lastKnown models.RunnerMap
	movement  map[int64]decimal.Decimal
	latest    models.RunnerMap
	latestKey string
	count     int
}

// NewAccumulator returns an accumulator that has seen no snapshots
func NewAccumulator() *Accumulator {
	return &Accumulator{
		initial:   models.RunnerMap{},
		lastKnown: models.RunnerMap{},
		movement:  map[int64]decimal.Decimal{},
		latest:    models.RunnerMap{},
	}
}

// Apply folds one snapshot into the accumulator. key is the snapshot's storage key.
// A corrupt snapshot should be applied as an empty one so it still counts as the baseline
// when it is the earliest.
func (a *Accumulator) Apply(key string, snap models.Snapshot) {
	runners := snap.Runners
	if runners == nil {
		runners = models.RunnerMap{}
	}

	if !a.started {
		a.initial = runners.Clone()
		a.started = true
	}

	// movement compares against the merge of everything before this snapshot
	for id, current := range runners {
		prior, ok := a.lastKnown[id]
		if !ok {
			continue
		}
		before, okBefore := prior.Odds.Value()
		after, okAfter := current.Odds.Value()
		if okBefore && okAfter && !before.Equal(after) {
			a.movement[id] = after.Sub(before)
		}
	}

	a.lastKnown.Merge(runners)
	a.latest = runners.Clone()
	a.latestKey = key
	a.count++
}

// Snapshots returns how many snapshots have been applied
func (a *Accumulator) Snapshots() int {
	return a.count
}

// Latest returns a copy of the most recently applied snapshot's runners
func (a *Accumulator) Latest() models.RunnerMap {
	return a.latest.Clone()
}

// LatestKey returns the key of the most recently applied snapshot
func (a *Accumulator) LatestKey() string {
	return a.latestKey
}

// State captures the accumulator together with the live poll maps as an immutable bundle
func (a *Accumulator) State(previous, current models.RunnerMap) *State {
	movement := make(map[int64]decimal.Decimal, len(a.movement))
	for id, delta := range a.movement {
		movement[id] = delta
	}
	if previous == nil {
		previous = models.RunnerMap{}
	}
	if current == nil {
		current = models.RunnerMap{}
	}
	return &State{
		Initial:              a.initial.Clone(),
		LastKnown:            a.lastKnown.Clone(),
		LastRecordedMovement: movement,
		Previous:             previous.Clone(),
		Current:              current.Clone(),
		Snapshots:            a.count,
		LatestKey:            a.latestKey,
	}
}
