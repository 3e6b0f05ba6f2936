package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Ahmed-aleryani/coinmind/internal/domain"
	"github.com/Ahmed-aleryani/coinmind/internal/httputil"
	"github.com/Ahmed-aleryani/coinmind/internal/modules/analytics"
	"github.com/Ahmed-aleryani/coinmind/internal/modules/currency"
	testutil "github.com/Ahmed-aleryani/coinmind/internal/testing"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// sliceReader serves transactions from memory with inclusive date filtering
type sliceReader struct {
	txs []domain.Transaction
}

func (s sliceReader) FindByDateRange(ctx context.Context, userID string, start, end *time.Time) ([]domain.Transaction, error) {
	var out []domain.Transaction
	for _, tx := range s.txs {
		if tx.UserID != userID {
			continue
		}
		if start != nil && tx.Date.Before(*start) {
			continue
		}
		if end != nil && tx.Date.After(*end) {
			continue
		}
		out = append(out, tx)
	}
	return out, nil
}

type fixedCurrency string

func (f fixedCurrency) DefaultCurrency(ctx context.Context, userID string) (string, error) {
	return string(f), nil
}

func setupTestRouter(txs []domain.Transaction, rates currency.RateSource) *chi.Mux {
	log := zerolog.New(nil).Level(zerolog.Disabled)
	engine := analytics.NewEngine(currency.NewNormalizer(rates, log), rates, log)
	service := analytics.NewService(engine, sliceReader{txs: txs}, fixedCurrency("USD"), log)

	router := chi.NewRouter()
	router.Route("/api", NewHandler(service, log).RegisterRoutes)
	return router
}

func get(router http.Handler, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest("GET", path, nil)
	req.Header.Set(httputil.UserIDHeader, "alice")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decodeData(t *testing.T, w *httptest.ResponseRecorder, dst interface{}) {
	t.Helper()
	envelope := struct {
		Data interface{} `json:"data"`
	}{Data: dst}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&envelope))
}

func TestHandleStats(t *testing.T) {
	router := setupTestRouter(testutil.NewTransactionFixtures("alice"), testutil.NewStaticRates(nil))

	w := get(router, "/api/analytics/stats?start=2024-03-01&end=2024-03-02")
	require.Equal(t, http.StatusOK, w.Code)

	var stats analytics.Stats
	decodeData(t, w, &stats)
	assert.Equal(t, 5000.0, stats.Summary.TotalIncome)
	assert.Equal(t, 1500.0, stats.Summary.TotalExpenses)
	assert.Equal(t, 3500.0, stats.Summary.NetAmount)
	assert.Equal(t, "USD", stats.Summary.Currency)
}

func TestHandleStats_ExplicitCurrency(t *testing.T) {
	rates := testutil.NewStaticRates(map[string]float64{"USD->EUR": 0.9})
	router := setupTestRouter(testutil.NewTransactionFixtures("alice"), rates)

	w := get(router, "/api/analytics/stats?currency=eur")
	require.Equal(t, http.StatusOK, w.Code)

	var stats analytics.Stats
	decodeData(t, w, &stats)
	assert.Equal(t, "EUR", stats.Summary.Currency)
	assert.InDelta(t, 5220.0, stats.Summary.TotalIncome, 1e-6)
	assert.Equal(t, 1, stats.Reconciliation.RateLookups)
	assert.Equal(t, 1, rates.Calls())

	w = get(router, "/api/analytics/stats?currency=euros")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandleCompare(t *testing.T) {
	txs := []domain.Transaction{
		testutil.NewTransaction("alice", "2024-01-15", domain.TransactionTypeExpense, "Rent", "L", 1000, "USD"),
		testutil.NewTransaction("alice", "2024-02-15", domain.TransactionTypeExpense, "Rent", "L", 1200, "USD"),
	}
	router := setupTestRouter(txs, testutil.NewStaticRates(nil))

	w := get(router, "/api/analytics/compare?p1_start=2024-01-01&p1_end=2024-01-31&p2_start=2024-02-01&p2_end=2024-02-29")
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Comparison analytics.Comparison `json:"comparison"`
	}
	decodeData(t, w, &body)
	assert.Equal(t, 200.0, body.Comparison.ChangeAmount)
	assert.Equal(t, 20.0, body.Comparison.ChangePercentage)
	assert.Equal(t, analytics.TrendIncreasing, body.Comparison.Trend)

	w = get(router, "/api/analytics/compare?p1_start=2024-01-01&p1_end=2024-02-10&p2_start=2024-02-01&p2_end=2024-02-29")
	assert.Equal(t, http.StatusBadRequest, w.Code, "overlapping periods")

	w = get(router, "/api/analytics/compare?p1_start=2024-01-01")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandleTrends(t *testing.T) {
	router := setupTestRouter(testutil.NewTransactionFixtures("alice"), testutil.NewStaticRates(nil))

	w := get(router, "/api/analytics/trends?granularity=week&start=2024-03-01&end=2024-03-31")
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Buckets []analytics.Bucket `json:"buckets"`
	}
	decodeData(t, w, &body)
	require.Len(t, body.Buckets, 5)
	assert.Equal(t, testutil.Date("2024-02-26"), body.Buckets[0].Start)

	w = get(router, "/api/analytics/trends?granularity=day&start=2020-01-01&end=2024-01-01")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = get(router, "/api/analytics/trends?granularity=hour")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandleHealthAndReport(t *testing.T) {
	router := setupTestRouter(testutil.NewTransactionFixtures("alice"), testutil.NewStaticRates(nil))

	w := get(router, "/api/analytics/health")
	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Health analytics.Health `json:"health"`
	}
	decodeData(t, w, &body)
	assert.GreaterOrEqual(t, body.Health.Score, 0)
	assert.LessOrEqual(t, body.Health.Score, 100)

	w = get(router, "/api/analytics/report?top=2")
	require.Equal(t, http.StatusOK, w.Code)
	var report analytics.Report
	decodeData(t, w, &report)
	assert.Len(t, report.Categories, 2)
	assert.Equal(t, analytics.GranularityMonth, report.Granularity)
}

func TestHandleStats_OtherUsersInvisible(t *testing.T) {
	router := setupTestRouter(testutil.NewTransactionFixtures("bob"), testutil.NewStaticRates(nil))

	w := get(router, "/api/analytics/stats")
	require.Equal(t, http.StatusOK, w.Code)

	var stats analytics.Stats
	decodeData(t, w, &stats)
	assert.Zero(t, stats.Summary.TransactionCount)
}
