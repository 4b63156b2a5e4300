package datasource

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() HTTPClientConfig {
	cfg := DefaultHTTPClientConfig()
	cfg.Timeout = 2 * time.Second
	cfg.MaxRetries = 2
	cfg.RetryWaitMin = time.Millisecond
	cfg.RetryWaitMax = 5 * time.Millisecond
	cfg.RateLimit = 1000
	cfg.CircuitBreakerMax = 2
	cfg.CircuitCooldown = time.Hour
	return cfg
}

func TestPostRetriesServerErrors(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	client := NewRateLimitedHTTPClient(testConfig(), nil)
	resp, err := client.Post(context.Background(), srv.URL, "application/json", strings.NewReader(`{}`))
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls), "body is replayed on retry")
}

func TestClientErrorsAreNotRetried(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	client := NewRateLimitedHTTPClient(testConfig(), nil)
	resp, err := client.Post(context.Background(), srv.URL, "application/json", strings.NewReader(`{}`))
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
	assert.False(t, client.IsOpen())
}

func TestCircuitBreakerOpensAfterConsecutiveFailures(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	client := NewRateLimitedHTTPClient(testConfig(), nil)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_, err := client.Post(ctx, srv.URL, "application/json", strings.NewReader(`{}`))
		require.Error(t, err)
	}
	assert.True(t, client.IsOpen())

	before := atomic.LoadInt32(&calls)
	_, err := client.Post(ctx, srv.URL, "application/json", strings.NewReader(`{}`))
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.Equal(t, before, atomic.LoadInt32(&calls), "open breaker sends nothing")
}

func TestCircuitBreakerHalfOpenRecovers(t *testing.T) {
	var fail atomic.Bool
	fail.Store(true)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if fail.Load() {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	cfg := testConfig()
	cfg.CircuitCooldown = 10 * time.Millisecond
	client := NewRateLimitedHTTPClient(cfg, nil)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_, _ = client.Post(ctx, srv.URL, "application/json", strings.NewReader(`{}`))
	}
	require.True(t, client.IsOpen())

	fail.Store(false)
	time.Sleep(20 * time.Millisecond)

	resp, err := client.Post(ctx, srv.URL, "application/json", strings.NewReader(`{}`))
	require.NoError(t, err)
	resp.Body.Close()
	assert.False(t, client.IsOpen())
}

func TestRateLimiterHonoursContext(t *testing.T) {
	cfg := testConfig()
	cfg.RateLimit = 0.001
	client := NewRateLimitedHTTPClient(cfg, nil)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	// first request consumes the burst
	resp, err := client.Post(context.Background(), srv.URL, "text/plain", nil)
	require.NoError(t, err)
	resp.Body.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = client.Post(ctx, srv.URL, "text/plain", nil)
	assert.ErrorContains(t, err, "rate limiter")
}
