package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStore struct{ err error }

func (f fakeStore) Ping(ctx context.Context) error { return f.err }

type fakeLedger struct{ key string }

func (f fakeLedger) LatestSnapshot() string { return f.key }

func get(t *testing.T, h http.Handler, path string) (*httptest.ResponseRecorder, ReadyResponse) {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))

	var body ReadyResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return rec, body
}

func TestLiveAndHealthAlwaysOK(t *testing.T) {
	s := NewServer(Config{ServiceName: "odds-tracker", Version: "1.0.0"})

	for _, path := range []string{"/health", "/live"} {
		rec, body := get(t, s.Handler(), path)
		assert.Equal(t, http.StatusOK, rec.Code, path)
		assert.Equal(t, "ok", body.Status)
		assert.Equal(t, "odds-tracker", body.Service)
	}
}

func TestReadyWaitsForReplay(t *testing.T) {
	s := NewServer(Config{ServiceName: "odds-tracker", Store: fakeStore{}, Ledger: fakeLedger{}})

	rec, body := get(t, s.Handler(), "/ready")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "not_ready", body.Checks["service"])

	s.SetReady(true)
	rec, body = get(t, s.Handler(), "/ready")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", body.Checks["storage"])
	assert.Equal(t, "none", body.Checks["latest_snapshot"])
}

func TestReadyReportsStorageFailure(t *testing.T) {
	s := NewServer(Config{
		ServiceName: "odds-tracker",
		Store:       fakeStore{err: errors.New("bucket unreachable")},
		Ledger:      fakeLedger{key: "odds_20240601_100000.snapshot"},
	})
	s.SetReady(true)

	rec, body := get(t, s.Handler(), "/ready")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, body.Checks["storage"], "bucket unreachable")
	assert.Equal(t, "odds_20240601_100000.snapshot", body.Checks["latest_snapshot"])
}

func TestShutdownClearsReadiness(t *testing.T) {
	s := NewServer(Config{ServiceName: "odds-tracker"})
	s.SetReady(true)
	require.NoError(t, s.Shutdown())
	assert.False(t, s.IsReady())
}
