package betfair

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yourusername/odds-tracker/internal/config"
	"github.com/yourusername/odds-tracker/internal/datasource"
	"github.com/yourusername/odds-tracker/internal/models"
)

// fakeExchange serves the login, logout and JSON-RPC endpoints
type fakeExchange struct {
	mu          sync.Mutex
	loginStatus string
	markets     []MarketCatalogue
	books       map[string]MarketBook
	rpcError    string
	bookCalls   [][]string
	catalogue   []MarketFilter
	loggedOut   bool
}

func (f *fakeExchange) handler(t *testing.T) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/login", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "punter", r.PostForm.Get("username"))
		assert.Equal(t, "app-key", r.Header.Get("X-Application"))
		_ = json.NewEncoder(w).Encode(LoginResponse{SessionToken: "token-1", LoginStatus: f.loginStatus})
	})

	mux.HandleFunc("/logout", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.loggedOut = r.Header.Get("X-Authentication") == "token-1"
		f.mu.Unlock()
		_ = json.NewEncoder(w).Encode(LogoutResponse{Token: "token-1", Status: "SUCCESS"})
	})

	mux.HandleFunc("/rpc", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "token-1", r.Header.Get("X-Authentication"))

		var req struct {
			Method string          `json:"method"`
			Params json.RawMessage `json:"params"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		if f.rpcError != "" {
			_, _ = fmt.Fprintf(w, `{"jsonrpc":"2.0","id":1,"error":{"code":-32099,"message":"ANGX-0003","data":{"APINGException":{"errorCode":%q},"exceptionname":"APINGException"}}}`, f.rpcError)
			return
		}

		f.mu.Lock()
		defer f.mu.Unlock()

		var result interface{}
		switch req.Method {
		case methodPrefix + "listMarketCatalogue":
			var params struct {
				Filter MarketFilter `json:"filter"`
			}
			require.NoError(t, json.Unmarshal(req.Params, &params))
			f.catalogue = append(f.catalogue, params.Filter)
			result = f.markets
		case methodPrefix + "listMarketBook":
			var params struct {
				MarketIDs []string `json:"marketIds"`
			}
			require.NoError(t, json.Unmarshal(req.Params, &params))
			f.bookCalls = append(f.bookCalls, params.MarketIDs)
			books := []MarketBook{}
			for _, id := range params.MarketIDs {
				if b, ok := f.books[id]; ok {
					books = append(books, b)
				}
			}
			result = books
		default:
			t.Errorf("unexpected method %s", req.Method)
		}

		_ = json.NewEncoder(w).Encode(map[string]interface{}{"jsonrpc": "2.0", "id": 1, "result": result})
	})

	return mux
}

func discard() *logrus.Logger {
	l := logrus.New()
	l.SetLevel(logrus.PanicLevel)
	return l
}

func newTestSource(t *testing.T, f *fakeExchange) *Source {
	t.Helper()
	srv := httptest.NewServer(f.handler(t))
	t.Cleanup(srv.Close)

	cfg := &config.BetfairConfig{
		APIURL:      srv.URL + "/rpc",
		LoginURL:    srv.URL + "/login",
		LogoutURL:   srv.URL + "/logout",
		AppKey:      "app-key",
		Username:    "punter",
		Password:    "secret",
		EventTypeID: "7",
		MarketTypes: []string{"WIN"},
		Countries:   []string{"GB"},
	}

	httpCfg := datasource.DefaultHTTPClientConfig()
	httpCfg.MaxRetries = 0
	httpCfg.RateLimit = 1000
	client := NewBetfairClient(cfg, datasource.NewRateLimitedHTTPClient(httpCfg, nil), datasource.NewRateLimitedHTTPClient(httpCfg, nil), discard())
	return NewSourceWithClient(client, discard())
}

var raceDay = time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)

func ascotMarket() MarketCatalogue {
	return MarketCatalogue{
		MarketID:        "1.100",
		MarketName:      "1m Hcap",
		MarketStartTime: time.Date(2024, 6, 1, 13, 30, 0, 0, time.UTC),
		Event:           Event{ID: "e1", Venue: "Ascot", CountryCode: "GB"},
		Runners: []RunnerCatalog{
			{SelectionID: 11, RunnerName: "Frankel"},
			{SelectionID: 12, RunnerName: "Sea The Stars"},
			{SelectionID: 13, RunnerName: "Nijinsky"},
			{SelectionID: 14, RunnerName: "Unpriced"},
		},
	}
}

func ascotBook() MarketBook {
	return MarketBook{
		MarketID: "1.100",
		Status:   "OPEN",
		Runners: []Runner{
			{SelectionID: 11, Status: "ACTIVE", LastPriceTraded: 3.2, ExchangePrices: ExchangePrices{
				AvailableToBack: []PriceSize{{Price: 3.1, Size: 50}},
			}},
			{SelectionID: 12, Status: "ACTIVE", LastPriceTraded: 5.5},
			{SelectionID: 13, Status: "REMOVED", LastPriceTraded: 9.0},
		},
	}
}

func TestFetchCurrentOdds(t *testing.T) {
	f := &fakeExchange{
		loginStatus: "SUCCESS",
		markets:     []MarketCatalogue{ascotMarket()},
		books:       map[string]MarketBook{"1.100": ascotBook()},
	}
	source := newTestSource(t, f)

	runners, err := source.FetchCurrentOdds(context.Background(), raceDay)
	require.NoError(t, err)
	require.Len(t, runners, 4)

	event := "01-06-2024 13:30 Ascot 1m Hcap"
	assert.Equal(t, "Frankel", runners[11].Name)
	assert.Equal(t, event, runners[11].Event)
	assert.True(t, runners[11].Odds.Equal(models.MustParseOdds("3.1")), "best back price wins")
	assert.True(t, runners[12].Odds.Equal(models.MustParseOdds("5.5")), "last traded when no back price")
	assert.False(t, runners[13].Odds.Present(), "removed runner has no price")
	assert.False(t, runners[14].Odds.Present(), "runner missing from the book has no price")

	require.Len(t, f.catalogue, 1)
	filter := f.catalogue[0]
	assert.Equal(t, []string{"7"}, filter.EventTypeIDs)
	assert.Equal(t, []string{"WIN"}, filter.MarketTypeCodes)
	require.NotNil(t, filter.MarketStartTime)
	assert.Equal(t, time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC), filter.MarketStartTime.From.UTC())
	assert.Equal(t, time.Date(2024, 6, 2, 0, 0, 0, 0, time.UTC), filter.MarketStartTime.To.UTC())

	assert.True(t, f.loggedOut)
	assert.Empty(t, source.client.GetSessionToken())
}

func TestFetchChunksMarketBooks(t *testing.T) {
	f := &fakeExchange{loginStatus: "SUCCESS", books: map[string]MarketBook{}}
	for i := 0; i < 85; i++ {
		m := ascotMarket()
		m.MarketID = fmt.Sprintf("1.%d", i)
		m.Runners = []RunnerCatalog{{SelectionID: int64(1000 + i), RunnerName: "Runner"}}
		f.markets = append(f.markets, m)
		f.books[m.MarketID] = MarketBook{MarketID: m.MarketID, Runners: []Runner{
			{SelectionID: int64(1000 + i), Status: "ACTIVE", LastPriceTraded: 4.0},
		}}
	}

	runners, err := newTestSource(t, f).FetchCurrentOdds(context.Background(), raceDay)
	require.NoError(t, err)
	assert.Len(t, runners, 85)

	require.Len(t, f.bookCalls, 3)
	assert.Len(t, f.bookCalls[0], 40)
	assert.Len(t, f.bookCalls[1], 40)
	assert.Len(t, f.bookCalls[2], 5)
}

func TestFetchNoMarkets(t *testing.T) {
	f := &fakeExchange{loginStatus: "SUCCESS"}

	runners, err := newTestSource(t, f).FetchCurrentOdds(context.Background(), raceDay)
	require.NoError(t, err)
	assert.Empty(t, runners)
	assert.Empty(t, f.bookCalls)
}

func TestFetchLoginFailure(t *testing.T) {
	f := &fakeExchange{loginStatus: "INVALID_USERNAME_OR_PASSWORD"}

	_, err := newTestSource(t, f).FetchCurrentOdds(context.Background(), raceDay)
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrFetch)
	assert.Contains(t, err.Error(), "INVALID_USERNAME_OR_PASSWORD")
}

func TestFetchAPIError(t *testing.T) {
	f := &fakeExchange{loginStatus: "SUCCESS", rpcError: ErrorTooMuchData}
	source := newTestSource(t, f)

	_, err := source.FetchCurrentOdds(context.Background(), raceDay)
	assert.ErrorIs(t, err, models.ErrFetch)
	assert.Contains(t, err.Error(), ErrorTooMuchData)
	assert.True(t, f.loggedOut, "session is closed after a failed fetch")
}

func TestMakeRequestWithoutSession(t *testing.T) {
	source := newTestSource(t, &fakeExchange{})

	_, err := source.client.ListMarketBook(context.Background(), []string{"1.1"}, nil)
	var authErr *AuthenticationError
	assert.ErrorAs(t, err, &authErr)
}

func TestMapBetfairError(t *testing.T) {
	var authErr *AuthenticationError
	assert.ErrorAs(t, MapBetfairError(ErrorInvalidSessionInformation, "expired", nil), &authErr)
	assert.ErrorAs(t, MapBetfairError(ErrorInvalidAppKey, "bad key", nil), &authErr)

	var apiErr *BetfairAPIError
	require.ErrorAs(t, MapBetfairError(ErrorTooManyRequests, "slow down", nil), &apiErr)
	assert.Equal(t, ErrorTooManyRequests, apiErr.ErrorCode)
}

func TestEventName(t *testing.T) {
	m := ascotMarket()
	m.MarketStartTime = time.Date(2024, 6, 1, 14, 30, 0, 0, time.FixedZone("BST", 3600))
	assert.Equal(t, "01-06-2024 13:30 Ascot 1m Hcap", EventName(m))

	m.Event.Venue = ""
	assert.Equal(t, "01-06-2024 13:30 1m Hcap", EventName(m))
}

func TestRunnerOdds(t *testing.T) {
	tests := []struct {
		name     string
		runner   Runner
		expected string
	}{
		{"best back", Runner{Status: "ACTIVE", LastPriceTraded: 4, ExchangePrices: ExchangePrices{AvailableToBack: []PriceSize{{Price: 3.75}}}}, "3.75"},
		{"last traded fallback", Runner{Status: "ACTIVE", LastPriceTraded: 4.2}, "4.2"},
		{"active without prices", Runner{Status: "ACTIVE"}, ""},
		{"removed", Runner{Status: "REMOVED", LastPriceTraded: 4.2}, ""},
		{"winner", Runner{Status: "WINNER", LastPriceTraded: 1.01}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := RunnerOdds(tt.runner)
			if tt.expected == "" {
				assert.False(t, got.Present())
				return
			}
			assert.True(t, got.Equal(models.MustParseOdds(tt.expected)), "got %s", got)
		})
	}
}
