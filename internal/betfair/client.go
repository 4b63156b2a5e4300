// Package betfair implements the Betfair Exchange odds source.
package betfair

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/yourusername/odds-tracker/internal/config"
	"github.com/yourusername/odds-tracker/internal/datasource"
	"github.com/yourusername/odds-tracker/internal/metrics"
)

const methodPrefix = "SportsAPING/v1.0/"

// BetfairClient implements the Betfair API-NG JSON-RPC client
type BetfairClient struct {
	httpClient   *datasource.RateLimitedHTTPClient
	loginClient  *datasource.RateLimitedHTTPClient
	config       *config.BetfairConfig
	baseURL      string
	appKey       string
	sessionToken string
	tokenExpiry  time.Time
	mu           sync.RWMutex
	logger       *logrus.Logger
}

// JSONRPCRequest represents a JSON-RPC request
type JSONRPCRequest struct {
	JSONRPC string                 `json:"jsonrpc"`
	Method  string                 `json:"method"`
	Params  map[string]interface{} `json:"params"`
	ID      int                    `json:"id"`
}

// JSONRPCResponse represents a JSON-RPC response
type JSONRPCResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *JSONRPCError   `json:"error,omitempty"`
	ID      int             `json:"id"`
}

// JSONRPCError represents a JSON-RPC error
type JSONRPCError struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// errorCode extracts the APINGException error code, falling back to the message
func (e *JSONRPCError) errorCode() string {
	var data struct {
		APINGException struct {
			ErrorCode string `json:"errorCode"`
		} `json:"APINGException"`
	}
	if len(e.Data) > 0 && json.Unmarshal(e.Data, &data) == nil && data.APINGException.ErrorCode != "" {
		return data.APINGException.ErrorCode
	}
	return e.Message
}

// NewBetfairClient creates a new Betfair API client. loginClient carries the client
// certificate used for certificate login.
func NewBetfairClient(
	cfg *config.BetfairConfig,
	httpClient *datasource.RateLimitedHTTPClient,
	loginClient *datasource.RateLimitedHTTPClient,
	logger *logrus.Logger,
) *BetfairClient {
	if logger == nil {
		logger = logrus.New()
		logger.SetOutput(io.Discard)
	}

	return &BetfairClient{
		httpClient:  httpClient,
		loginClient: loginClient,
		config:      cfg,
		baseURL:     cfg.APIURL,
		appKey:      cfg.AppKey,
		logger:      logger,
	}
}

// makeRequest performs a JSON-RPC request to Betfair API
func (c *BetfairClient) makeRequest(
	ctx context.Context,
	method string,
	params map[string]interface{},
) (result json.RawMessage, err error) {
	c.mu.RLock()
	sessionToken := c.sessionToken
	c.mu.RUnlock()

	if sessionToken == "" {
		return nil, NewAuthenticationError("no active session token", nil)
	}

	start := time.Now()
	defer func() {
		metrics.RecordBetfairRequest(method, err == nil, time.Since(start).Seconds())
	}()

	reqBody := JSONRPCRequest{
		JSONRPC: "2.0",
		Method:  methodPrefix + method,
		Params:  params,
		ID:      1,
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Application", c.appKey)
	req.Header.Set("X-Authentication", sessionToken)

	c.logger.WithField("method", method).Debug("Making Betfair API request")

	resp, err := c.httpClient.Do(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("%s request failed: %w", method, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%s: unexpected status code: %d", method, resp.StatusCode)
	}

	var jsonResp JSONRPCResponse
	if err := json.NewDecoder(resp.Body).Decode(&jsonResp); err != nil {
		return nil, fmt.Errorf("failed to decode %s response: %w", method, err)
	}

	if jsonResp.Error != nil {
		return nil, MapBetfairError(jsonResp.Error.errorCode(), jsonResp.Error.Message, c.logger)
	}

	return jsonResp.Result, nil
}

// SetSessionToken sets the session token for API requests
func (c *BetfairClient) SetSessionToken(token string, expiry time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sessionToken = token
	c.tokenExpiry = expiry
}

// GetSessionToken returns the current session token
func (c *BetfairClient) GetSessionToken() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.sessionToken
}

// IsAuthenticated checks if the client has an active session
func (c *BetfairClient) IsAuthenticated() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.sessionToken != "" && time.Now().Before(c.tokenExpiry)
}

// GetConfig returns the Betfair configuration
func (c *BetfairClient) GetConfig() *config.BetfairConfig {
	return c.config
}

// Close releases idle connections of both transports
func (c *BetfairClient) Close() error {
	c.httpClient.Close()
	if c.loginClient != nil {
		c.loginClient.Close()
	}
	return nil
}
