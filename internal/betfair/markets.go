package betfair

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
)

// Projections used when listing markets
const (
	ProjectionEvent             = "EVENT"
	ProjectionMarketStartTime   = "MARKET_START_TIME"
	ProjectionRunnerDescription = "RUNNER_DESCRIPTION"

	PriceProjectionBestOffers = "EX_BEST_OFFERS"

	RunnerStatusActive = "ACTIVE"
)

// MarketCatalogue represents market catalog information from Betfair
type MarketCatalogue struct {
	MarketID        string          `json:"marketId"`
	MarketName      string          `json:"marketName"`
	MarketStartTime time.Time       `json:"marketStartTime"`
	Event           Event           `json:"event"`
	Runners         []RunnerCatalog `json:"runners"`
	TotalMatched    float64         `json:"totalMatched"`
}

// Event is the meeting a market belongs to
type Event struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	CountryCode string    `json:"countryCode"`
	Timezone    string    `json:"timezone"`
	Venue       string    `json:"venue"`
	OpenDate    time.Time `json:"openDate"`
}

// RunnerCatalog represents a runner in the market catalog
type RunnerCatalog struct {
	SelectionID  int64   `json:"selectionId"`
	RunnerName   string  `json:"runnerName"`
	Handicap     float64 `json:"handicap"`
	SortPriority int     `json:"sortPriority"`
}

// MarketBook represents current market state and odds
type MarketBook struct {
	MarketID     string   `json:"marketId"`
	Status       string   `json:"status"`
	Runners      []Runner `json:"runners"`
	TotalMatched float64  `json:"totalMatched"`
	Version      int64    `json:"version"`
}

// Runner represents a runner in the market with current odds
type Runner struct {
	SelectionID     int64          `json:"selectionId"`
	Status          string         `json:"status"`
	LastPriceTraded float64        `json:"lastPriceTraded"`
	TotalMatched    float64        `json:"totalMatched"`
	ExchangePrices  ExchangePrices `json:"ex"`
}

// ExchangePrices represents back/lay prices on the exchange
type ExchangePrices struct {
	AvailableToBack []PriceSize `json:"availableToBack"`
	AvailableToLay  []PriceSize `json:"availableToLay"`
}

// PriceSize represents a price level with size
type PriceSize struct {
	Price float64 `json:"price"`
	Size  float64 `json:"size"`
}

// TimeRange bounds market start times
type TimeRange struct {
	From time.Time `json:"from"`
	To   time.Time `json:"to"`
}

// MarketFilter for filtering market catalog
type MarketFilter struct {
	EventTypeIDs    []string   `json:"eventTypeIds,omitempty"`
	MarketIDs       []string   `json:"marketIds,omitempty"`
	MarketCountries []string   `json:"marketCountries,omitempty"`
	MarketTypeCodes []string   `json:"marketTypeCodes,omitempty"`
	MarketStartTime *TimeRange `json:"marketStartTime,omitempty"`
}

// PriceProjection selects which prices listMarketBook returns
type PriceProjection struct {
	PriceData []string `json:"priceData"`
}

// ListMarketCatalogue fetches market catalogue entries matching the filter
func (c *BetfairClient) ListMarketCatalogue(
	ctx context.Context,
	filter MarketFilter,
	projections []string,
	maxResults int,
) ([]MarketCatalogue, error) {
	if maxResults <= 0 || maxResults > 1000 {
		maxResults = 1000
	}

	params := map[string]interface{}{
		"filter":           filter,
		"marketProjection": projections,
		"sort":             "FIRST_TO_START",
		"maxResults":       maxResults,
	}

	result, err := c.makeRequest(ctx, "listMarketCatalogue", params)
	if err != nil {
		return nil, err
	}

	var catalogs []MarketCatalogue
	if err := json.Unmarshal(result, &catalogs); err != nil {
		return nil, fmt.Errorf("failed to parse market catalogue response: %w", err)
	}

	c.logger.WithField("markets", len(catalogs)).Debug("Retrieved market catalogue")
	return catalogs, nil
}

// ListMarketBook fetches current market state and prices
func (c *BetfairClient) ListMarketBook(
	ctx context.Context,
	marketIDs []string,
	priceData []string,
) ([]MarketBook, error) {
	if len(marketIDs) == 0 {
		return nil, fmt.Errorf("at least one market ID required")
	}

	if len(priceData) == 0 {
		priceData = []string{PriceProjectionBestOffers}
	}

	params := map[string]interface{}{
		"marketIds":       marketIDs,
		"priceProjection": PriceProjection{PriceData: priceData},
	}

	result, err := c.makeRequest(ctx, "listMarketBook", params)
	if err != nil {
		return nil, err
	}

	var books []MarketBook
	if err := json.Unmarshal(result, &books); err != nil {
		return nil, fmt.Errorf("failed to parse market book response: %w", err)
	}

	c.logger.WithFields(logrus.Fields{
		"requested": len(marketIDs),
		"returned":  len(books),
	}).Debug("Retrieved market books")
	return books, nil
}
