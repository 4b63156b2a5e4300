package betfair

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/yourusername/odds-tracker/internal/config"
	"github.com/yourusername/odds-tracker/internal/datasource"
	"github.com/yourusername/odds-tracker/internal/models"
)

// marketBookChunk stays under Betfair's request weight limit for EX_BEST_OFFERS
const marketBookChunk = 40

// EventTimeLayout is the start time prefix of every event string
const EventTimeLayout = "02-01-2006 15:04"

// Source fetches the day's runners and prices from the exchange. Each fetch logs in,
// reads the markets and logs out again.
type Source struct {
	client *BetfairClient
	cfg    *config.BetfairConfig
	logger *logrus.Logger
}

// NewSource builds a Source with the certificate login transport from cfg
func NewSource(cfg *config.BetfairConfig, logger *logrus.Logger) (*Source, error) {
	httpCfg := datasource.DefaultHTTPClientConfig()
	httpCfg.Timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	httpCfg.RateLimit = cfg.RateLimit

	loginClient, err := NewCertLoginClient(cfg.CertFile, cfg.KeyFile, httpCfg, logger)
	if err != nil {
		return nil, err
	}

	client := NewBetfairClient(cfg, datasource.NewRateLimitedHTTPClient(httpCfg, logger), loginClient, logger)
	return NewSourceWithClient(client, logger), nil
}

// NewSourceWithClient wraps an existing client
func NewSourceWithClient(client *BetfairClient, logger *logrus.Logger) *Source {
	return &Source{
		client: client,
		cfg:    client.GetConfig(),
		logger: logger,
	}
}

// FetchCurrentOdds returns every runner in the configured markets starting on date (UTC day).
// Errors are wrapped in models.ErrFetch.
func (s *Source) FetchCurrentOdds(ctx context.Context, date time.Time) (models.RunnerMap, error) {
	if err := s.client.Login(ctx); err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrFetch, err)
	}
	defer func() {
		// the fetch context may already be spent; logout gets its own short deadline
		logoutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.client.Logout(logoutCtx); err != nil {
			s.logger.WithError(err).Warn("Betfair logout failed")
		}
	}()

	runners, err := s.fetch(ctx, date)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrFetch, err)
	}
	return runners, nil
}

func (s *Source) fetch(ctx context.Context, date time.Time) (models.RunnerMap, error) {
	from := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC)
	filter := MarketFilter{
		EventTypeIDs:    []string{s.cfg.EventTypeID},
		MarketCountries: s.cfg.Countries,
		MarketTypeCodes: s.cfg.MarketTypes,
		MarketStartTime: &TimeRange{From: from, To: from.Add(24 * time.Hour)},
	}

	catalogue, err := s.client.ListMarketCatalogue(ctx, filter, []string{
		ProjectionEvent, ProjectionMarketStartTime, ProjectionRunnerDescription,
	}, 0)
	if err != nil {
		return nil, fmt.Errorf("list market catalogue: %w", err)
	}

	markets := make(map[string]MarketCatalogue, len(catalogue))
	ids := make([]string, 0, len(catalogue))
	for _, m := range catalogue {
		markets[m.MarketID] = m
		ids = append(ids, m.MarketID)
	}

	runners := models.RunnerMap{}
	for start := 0; start < len(ids); start += marketBookChunk {
		end := start + marketBookChunk
		if end > len(ids) {
			end = len(ids)
		}

		books, err := s.client.ListMarketBook(ctx, ids[start:end], []string{PriceProjectionBestOffers})
		if err != nil {
			return nil, fmt.Errorf("list market book: %w", err)
		}
		for _, book := range books {
			market, ok := markets[book.MarketID]
			if !ok {
				continue
			}
			collectRunners(runners, market, book)
		}
	}

	s.logger.WithFields(logrus.Fields{
		"markets": len(ids),
		"runners": len(runners),
	}).Debug("Fetched Betfair odds")
	return runners, nil
}

// collectRunners adds every catalogue runner of market to out, priced from book
func collectRunners(out models.RunnerMap, market MarketCatalogue, book MarketBook) {
	prices := make(map[int64]Runner, len(book.Runners))
	for _, r := range book.Runners {
		prices[r.SelectionID] = r
	}

	event := EventName(market)
	for _, rc := range market.Runners {
		out[rc.SelectionID] = models.Runner{
			RunnerID: rc.SelectionID,
			Name:     rc.RunnerName,
			Event:    event,
			Odds:     RunnerOdds(prices[rc.SelectionID]),
		}
	}
}

// EventName formats "<dd-MM-yyyy HH:mm> <venue> <market name>" with the start time in UTC
func EventName(market MarketCatalogue) string {
	start := market.MarketStartTime
	if start.IsZero() {
		start = market.Event.OpenDate
	}
	parts := []string{start.UTC().Format(EventTimeLayout)}
	if venue := strings.TrimSpace(market.Event.Venue); venue != "" {
		parts = append(parts, venue)
	}
	if name := strings.TrimSpace(market.MarketName); name != "" {
		parts = append(parts, name)
	}
	return strings.Join(parts, " ")
}

// RunnerOdds picks the best available back price, then the last traded price.
// Runners that are not ACTIVE have no price.
func RunnerOdds(r Runner) models.Odds {
	if r.Status != RunnerStatusActive {
		return models.NoOdds()
	}
	if len(r.ExchangePrices.AvailableToBack) > 0 && r.ExchangePrices.AvailableToBack[0].Price > 0 {
		return models.OddsFromFloat(r.ExchangePrices.AvailableToBack[0].Price)
	}
	if r.LastPriceTraded > 0 {
		return models.OddsFromFloat(r.LastPriceTraded)
	}
	return models.NoOdds()
}

// Close releases the underlying HTTP transports
func (s *Source) Close() error {
	return s.client.Close()
}
