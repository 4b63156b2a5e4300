// Package analytics derives per-race market analytics from the ledger state.
package analytics

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"github.com/yourusername/odds-tracker/internal/ledger"
	"github.com/yourusername/odds-tracker/internal/models"
)

const (
	// DefaultEventTimeLayout is the date/time prefix carried by every event string
	DefaultEventTimeLayout = "02-01-2006 15:04"
	// DefaultTimeOffset shifts the UTC event time to the display time zone
	DefaultTimeOffset = time.Hour

	timeKeyLayout = "15:04"

	// divisionPrecision is the number of decimal places kept when inverting odds
	divisionPrecision = 16
	displayPlaces     = 2
)

var hundred = decimal.NewFromInt(100)

// Calculator computes runner analytics and race overrounds
type Calculator struct {
	offset time.Duration
	layout string
}

// NewCalculator creates a calculator. Zero values select the defaults.
func NewCalculator(offset time.Duration, layout string) *Calculator {
	if layout == "" {
		layout = DefaultEventTimeLayout
	}
	return &Calculator{offset: offset, layout: layout}
}

// Compute returns every race group, sorted by time key
func (c *Calculator) Compute(state *ledger.State) []models.RaceGroup {
	if state == nil {
		return []models.RaceGroup{}
	}

	grouped := make(map[string][]models.RunnerAnalytics)
	for id, initial := range state.Initial {
		if initial.Event == "" || !initial.Odds.IsPositive() {
			continue
		}
		ra := c.analyse(id, initial, state)
		key := c.TimeKey(initial.Event)
		grouped[key] = append(grouped[key], ra)
	}

	keys := make([]string, 0, len(grouped))
	for key := range grouped {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	groups := make([]models.RaceGroup, 0, len(keys))
	for _, key := range keys {
		runners := grouped[key]
		sort.Slice(runners, func(i, j int) bool {
			return runners[i].RunnerID < runners[j].RunnerID
		})
		groups = append(groups, models.RaceGroup{
			TimeKey:   key,
			Runners:   runners,
			Overround: Overround(runners),
		})
	}
	return groups
}

func (c *Calculator) analyse(id int64, initial models.Runner, state *ledger.State) models.RunnerAnalytics {
	initialOdds, _ := initial.Odds.Value()

	finalOdds := initialOdds
	status := models.StatusRunner
	if lastKnown, ok := state.LastKnown[id]; ok {
		if v, present := lastKnown.Odds.Value(); present {
			finalOdds = v
		}
		if !lastKnown.Odds.IsPositive() {
			status = models.StatusNonRunner
		}
	}

	lastMovement, movementType := recentMovement(id, state)

	displayOdds := finalOdds
	if current, ok := state.Current[id]; ok {
		if v, present := current.Odds.Value(); present {
			displayOdds = v
		}
	}

	return models.RunnerAnalytics{
		RunnerID:         id,
		Name:             initial.Name,
		Event:            initial.Event,
		InitialOdds:      initialOdds,
		DisplayOdds:      displayOdds,
		Movement:         Movement(initialOdds, finalOdds),
		Status:           status,
		LastMovement:     lastMovement,
		LastMovementType: movementType,
	}
}

// recentMovement walks the RECENT, HISTORICAL, NONE chain
func recentMovement(id int64, state *ledger.State) (decimal.Decimal, models.MovementType) {
	current, okCurrent := state.Current[id]
	previous, okPrevious := state.Previous[id]
	if okCurrent && okPrevious {
		after, a := current.Odds.Value()
		before, b := previous.Odds.Value()
		if a && b && !after.Equal(before) {
			return after.Sub(before), models.MovementRecent
		}
	}

	if delta, ok := state.LastRecordedMovement[id]; ok && !delta.IsZero() {
		return delta, models.MovementHistorical
	}
	return decimal.Zero, models.MovementNone
}

// Movement is final minus initial, rounded half-up to two places
func Movement(initial, final decimal.Decimal) decimal.Decimal {
	return final.Sub(initial).Round(displayPlaces)
}

// Overround is the sum of implied probabilities of RUNNER members with positive odds,
// as a percentage above 100. No eligible runners gives zero.
func Overround(runners []models.RunnerAnalytics) decimal.Decimal {
	total := decimal.Zero
	eligible := 0
	for _, r := range runners {
		if r.Status != models.StatusRunner || !r.DisplayOdds.IsPositive() {
			continue
		}
		total = total.Add(decimal.NewFromInt(1).DivRound(r.DisplayOdds, divisionPrecision))
		eligible++
	}
	if eligible == 0 {
		return decimal.Zero
	}
	return total.Mul(hundred).Sub(hundred).Round(displayPlaces)
}

// TimeKey parses the event's date/time prefix, applies the offset and formats HH:mm.
// Events that cannot be parsed map to models.UnparsedGroup.
func (c *Calculator) TimeKey(event string) string {
	width := len(c.layout)
	if len(event) < width {
		return models.UnparsedGroup
	}
	ts, err := time.ParseInLocation(c.layout, event[:width], time.UTC)
	if err != nil {
		return models.UnparsedGroup
	}
	return ts.Add(c.offset).Format(timeKeyLayout)
}
