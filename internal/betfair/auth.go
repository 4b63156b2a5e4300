package betfair

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/yourusername/odds-tracker/internal/datasource"
	"github.com/yourusername/odds-tracker/internal/metrics"
)

// sessionLifetime is how long Betfair keeps an idle session alive
const sessionLifetime = 4 * time.Hour

// LoginResponse represents the response from certificate login
type LoginResponse struct {
	SessionToken string `json:"sessionToken"`
	LoginStatus  string `json:"loginStatus"`
}

// LogoutResponse represents the response from the logout endpoint
type LogoutResponse struct {
	Token  string `json:"token"`
	Status string `json:"status"`
	Error  string `json:"error"`
}

// NewCertLoginClient builds the transport for certificate login from a PEM key pair
func NewCertLoginClient(certFile, keyFile string, cfg datasource.HTTPClientConfig, logger *logrus.Logger) (*datasource.RateLimitedHTTPClient, error) {
	cert, err := tls.LoadX509KeyPair(certFile, keyFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load Betfair client certificate: %w", err)
	}

	cfg.TLSConfig = &tls.Config{
		Certificates: []tls.Certificate{cert},
		MinVersion:   tls.VersionTLS12,
	}
	return datasource.NewRateLimitedHTTPClient(cfg, logger), nil
}

// Login performs certificate-based authentication with Betfair
func (c *BetfairClient) Login(ctx context.Context) (err error) {
	start := time.Now()
	defer func() {
		metrics.RecordBetfairRequest("login", err == nil, time.Since(start).Seconds())
	}()

	if c.loginClient == nil {
		return NewAuthenticationError("no certificate login transport configured", nil)
	}

	c.logger.WithField("username", c.config.Username).Debug("Attempting certificate login")

	form := url.Values{}
	form.Set("username", c.config.Username)
	form.Set("password", c.config.Password)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.LoginURL, strings.NewReader(form.Encode()))
	if err != nil {
		return NewAuthenticationError("failed to create login request", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("X-Application", c.appKey)

	resp, err := c.loginClient.Do(ctx, req)
	if err != nil {
		return NewAuthenticationError("login request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return NewAuthenticationError(fmt.Sprintf("login failed with status %d", resp.StatusCode), nil)
	}

	var loginResp LoginResponse
	if err := json.NewDecoder(resp.Body).Decode(&loginResp); err != nil {
		return NewAuthenticationError("failed to decode login response", err)
	}

	if loginResp.LoginStatus != "SUCCESS" {
		return NewAuthenticationError(fmt.Sprintf("login failed: %s", loginResp.LoginStatus), nil)
	}
	if loginResp.SessionToken == "" {
		return NewAuthenticationError("no session token in response", nil)
	}

	c.SetSessionToken(loginResp.SessionToken, time.Now().Add(sessionLifetime))
	c.logger.Debug("Betfair login successful")
	return nil
}

// Logout invalidates the current session. The local token is cleared even when
// the remote call fails.
func (c *BetfairClient) Logout(ctx context.Context) error {
	token := c.GetSessionToken()
	c.SetSessionToken("", time.Time{})

	if token == "" || c.config.LogoutURL == "" {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.LogoutURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create logout request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Application", c.appKey)
	req.Header.Set("X-Authentication", token)

	resp, err := c.httpClient.Do(ctx, req)
	if err != nil {
		return fmt.Errorf("logout request failed: %w", err)
	}
	defer resp.Body.Close()

	var logoutResp LogoutResponse
	if err := json.NewDecoder(resp.Body).Decode(&logoutResp); err != nil {
		return fmt.Errorf("failed to decode logout response: %w", err)
	}
	if logoutResp.Status != "SUCCESS" {
		return fmt.Errorf("logout failed: %s %s", logoutResp.Status, logoutResp.Error)
	}

	c.logger.Debug("Betfair logout complete")
	return nil
}
