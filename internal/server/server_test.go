package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Ahmed-aleryani/coinmind/internal/config"
	"github.com/Ahmed-aleryani/coinmind/internal/di"
	"github.com/Ahmed-aleryani/coinmind/internal/httputil"
	"github.com/Ahmed-aleryani/coinmind/internal/modules/analytics"
	"github.com/Ahmed-aleryani/coinmind/internal/scheduler"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticJobs []string

func (s staticJobs) Jobs() []string { return append([]string(nil), s...) }

func setupTestServer(t *testing.T, jobs JobLister) (*Server, *di.Container) {
	t.Helper()
	cfg := &config.Config{
		DataDir:         t.TempDir(),
		Port:            0,
		DefaultCurrency: "USD",
		Rates: config.RatesConfig{
			ProviderURL:  "http://127.0.0.1:1",
			CacheTTL:     time.Hour,
			FetchTimeout: time.Second,
			CacheSlots:   1,
		},
	}

	container, _, err := di.Wire(context.Background(), cfg, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Close() })

	s := New(Config{
		Log:       zerolog.Nop(),
		DevMode:   true,
		DataDir:   cfg.DataDir,
		Container: container,
		Jobs:      jobs,
	})
	return s, container
}

func do(s *Server, method, path, userID string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	if userID != "" {
		req.Header.Set(httputil.UserIDHeader, userID)
	}
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	return w
}

func TestServer_Health(t *testing.T) {
	s, container := setupTestServer(t, nil)

	w := do(s, "GET", "/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = do(s, "GET", "/api/system/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	require.NoError(t, container.LedgerDB.Close())
	w = do(s, "GET", "/api/system/health", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestServer_SystemStatus(t *testing.T) {
	s, _ := setupTestServer(t, staticJobs{"wal_checkpoint", "backup"})

	w := do(s, "GET", "/api/system/status", "", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var response struct {
		Data SystemStatusResponse `json:"data"`
	}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
	assert.Equal(t, "healthy", response.Data.Status)
	require.NotNil(t, response.Data.Database)
	assert.Equal(t, "ledger", response.Data.Database.Name)
	require.NotNil(t, response.Data.RateCache)
	assert.Empty(t, response.Data.RateCache.Bases)
	assert.Equal(t, []string{"backup", "wal_checkpoint"}, response.Data.Jobs)
}

func TestServer_SystemStatus_WithScheduler(t *testing.T) {
	sched := scheduler.New(zerolog.Nop())
	require.NoError(t, sched.AddJob("@hourly", scheduler.NewReconvertJob(nil, zerolog.Nop())))
	s, _ := setupTestServer(t, sched)

	w := do(s, "GET", "/api/system/status", "", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var response struct {
		Data SystemStatusResponse `json:"data"`
	}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
	assert.Equal(t, []string{"reconvert"}, response.Data.Jobs)
}

func TestServer_RequiresUser(t *testing.T) {
	s, _ := setupTestServer(t, nil)

	for _, path := range []string{"/api/transactions", "/api/profile", "/api/analytics/stats"} {
		w := do(s, "GET", path, "", nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code, path)
	}
}

func TestServer_TransactionsFeedAnalytics(t *testing.T) {
	s, _ := setupTestServer(t, nil)

	for _, body := range []map[string]interface{}{
		{"date": "2024-03-01", "category": "Salary", "type": "income", "amount": 3000, "currency": "USD"},
		{"date": "2024-03-02", "category": "Food", "type": "expense", "vendor": "Market", "amount": 120.5, "currency": "USD"},
		{"date": "2024-03-03", "category": "Transport", "type": "expense", "amount": 79.5},
	} {
		w := do(s, "POST", "/api/transactions", "alice", body)
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	}

	// Another user's rows never leak into alice's stats
	w := do(s, "POST", "/api/transactions", "bob", map[string]interface{}{
		"date": "2024-03-02", "category": "Food", "type": "expense", "amount": 999,
	})
	require.Equal(t, http.StatusCreated, w.Code)

	w = do(s, "GET", "/api/analytics/stats?start=2024-03-01&end=2024-03-31", "alice", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var response struct {
		Data analytics.Stats `json:"data"`
	}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
	assert.Equal(t, 3000.0, response.Data.Summary.TotalIncome)
	assert.Equal(t, 200.0, response.Data.Summary.TotalExpenses)
	assert.Equal(t, 2800.0, response.Data.Summary.NetAmount)
	assert.Equal(t, 3, response.Data.Summary.TransactionCount)
}

func TestServer_CORSPreflight(t *testing.T) {
	s, _ := setupTestServer(t, nil)

	req := httptest.NewRequest("OPTIONS", "/api/transactions", nil)
	req.Header.Set("Origin", "https://app.example.com")
	req.Header.Set("Access-Control-Request-Method", "PATCH")
	req.Header.Set("Access-Control-Request-Headers", httputil.UserIDHeader)
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)

	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, w.Header().Get("Access-Control-Allow-Methods"), "PATCH")
}
