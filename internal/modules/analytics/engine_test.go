package analytics

import (
	"context"
	"errors"
	"testing"

	"github.com/Ahmed-aleryani/coinmind/internal/domain"
	"github.com/Ahmed-aleryani/coinmind/internal/modules/currency"
	testutil "github.com/Ahmed-aleryani/coinmind/internal/testing"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestEngine(rates currency.RateSource) *Engine {
	log := zerolog.New(nil).Level(zerolog.Disabled)
	return NewEngine(currency.NewNormalizer(rates, log), rates, log)
}

// eurRow is a EUR expense that was converted into USD when it was written
func eurRow(date string, amount float64) domain.Transaction {
	tx := testutil.NewTransaction("alice", date, domain.TransactionTypeExpense, "Travel", "Lufthansa", amount, "EUR")
	tx.ConvertedAmount = amount * 1.08
	tx.ConvertedCurrency = "USD"
	tx.ConversionRate = 1.08
	return tx
}

func TestEngine_ReconcileKeepsRowsInReportCurrency(t *testing.T) {
	rates := testutil.NewStaticRates(nil)
	engine := newTestEngine(rates)

	txs := []domain.Transaction{eurRow("2024-03-01", 500)}
	out, rec, err := engine.Reconcile(context.Background(), txs, "usd")
	require.NoError(t, err)

	assert.InDelta(t, 540.0, out[0].ConvertedAmount, 1e-9)
	assert.Equal(t, 0, rec.Reconverted)
	assert.Equal(t, 0, rates.Calls())
}

func TestEngine_ReconcileOneLookupPerPair(t *testing.T) {
	rates := testutil.NewStaticRates(map[string]float64{
		"EUR->GBP": 0.85,
		"USD->GBP": 0.8,
	})
	engine := newTestEngine(rates)

	txs := []domain.Transaction{
		eurRow("2024-03-01", 100),
		eurRow("2024-03-02", 200),
		eurRow("2024-03-03", 300),
		testutil.NewTransaction("alice", "2024-03-04", domain.TransactionTypeIncome, "Salary", "Acme", 1000, "USD"),
		testutil.NewTransaction("alice", "2024-03-05", domain.TransactionTypeExpense, "Food", "Pret", 10, "GBP"),
	}

	out, rec, err := engine.Reconcile(context.Background(), txs, "GBP")
	require.NoError(t, err)

	assert.Equal(t, 2, rates.Calls())
	assert.Equal(t, 2, rec.RateLookups)
	assert.Equal(t, 4, rec.Reconverted)
	assert.Zero(t, rec.Degraded)

	assert.InDelta(t, 85.0, out[0].ConvertedAmount, 1e-9)
	assert.Equal(t, "GBP", out[0].ConvertedCurrency)
	assert.Equal(t, 100.0, out[0].OriginalAmount)
	assert.InDelta(t, 800.0, out[3].ConvertedAmount, 1e-9)
	assert.Equal(t, 10.0, out[4].ConvertedAmount)

	assert.InDelta(t, 108.0, txs[0].ConvertedAmount, 1e-9, "input rows are not modified")
	assert.Equal(t, "USD", txs[0].ConvertedCurrency)
}

func TestEngine_ReconcileDegradedRows(t *testing.T) {
	rates := testutil.NewStaticRates(map[string]float64{"EUR->GBP": 0.85})
	engine := newTestEngine(rates)

	txs := []domain.Transaction{
		eurRow("2024-03-01", 100),
		testutil.NewTransaction("alice", "2024-03-02", domain.TransactionTypeExpense, "Food", "Sushi", 3000, "JPY"),
	}

	out, rec, err := engine.Reconcile(context.Background(), txs, "GBP")
	require.NoError(t, err)

	assert.Equal(t, 1, rec.Reconverted)
	assert.Equal(t, 1, rec.Degraded)
	assert.Equal(t, "JPY", out[1].ConvertedCurrency)
	assert.Equal(t, 3000.0, out[1].ConvertedAmount)
}

func TestEngine_ReconcileProviderDown(t *testing.T) {
	rates := testutil.NewStaticRates(nil)
	rates.SetErr(&currency.RateProviderError{Base: "EUR", Err: errors.New("timeout")})
	engine := newTestEngine(rates)

	stats, err := engine.Stats(context.Background(), []domain.Transaction{eurRow("2024-03-01", 100)}, "GBP")
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Reconciliation.Degraded)
	assert.Equal(t, "GBP", stats.Summary.Currency)
}

func TestEngine_ReconcileInvalidCurrency(t *testing.T) {
	engine := newTestEngine(testutil.NewStaticRates(nil))

	_, _, err := engine.Reconcile(context.Background(), nil, "dollars")
	assert.ErrorIs(t, err, currency.ErrInvalidInput)
}

func TestEngine_Stats(t *testing.T) {
	engine := newTestEngine(testutil.NewStaticRates(nil))

	stats, err := engine.Stats(context.Background(), testutil.NewTransactionFixtures("alice"), "USD")
	require.NoError(t, err)
	assert.Equal(t, 3797.5, stats.Summary.NetAmount)
	assert.Equal(t, "USD", stats.Summary.Currency)
}

func TestEngine_Report(t *testing.T) {
	engine := newTestEngine(testutil.NewStaticRates(nil))

	report, err := engine.Report(context.Background(), testutil.NewTransactionFixtures("alice"), ReportOptions{
		Currency: "USD",
		TopN:     3,
	})
	require.NoError(t, err)

	assert.Equal(t, GranularityMonth, report.Granularity)
	assert.Len(t, report.Categories, 3)
	assert.Len(t, report.IncomeCategories, 2)
	assert.Len(t, report.Trends, 1)
	assert.Equal(t, report.Summary.NetAmount, report.Trends[0].Net)
	assert.False(t, report.GeneratedAt.IsZero())
}

func TestEngine_CompareSharesLookups(t *testing.T) {
	rates := testutil.NewStaticRates(map[string]float64{"EUR->USD": 1.1})
	engine := newTestEngine(rates)

	jan := testutil.NewTransaction("alice", "2024-01-10", domain.TransactionTypeExpense, "Travel", "DB", 1000, "EUR")
	feb := testutil.NewTransaction("alice", "2024-02-10", domain.TransactionTypeExpense, "Travel", "DB", 1200, "EUR")

	cmp, rec, err := engine.Compare(context.Background(),
		[]domain.Transaction{jan}, []domain.Transaction{feb},
		period("2024-01-01", "2024-01-31"), period("2024-02-01", "2024-02-29"), "USD")
	require.NoError(t, err)

	assert.Equal(t, 1, rates.Calls())
	assert.Equal(t, 1, rec.RateLookups)
	assert.InDelta(t, 220.0, cmp.ChangeAmount, 1e-6)
	assert.InDelta(t, 20.0, cmp.ChangePercentage, 1e-6)
	assert.Equal(t, TrendIncreasing, cmp.Trend)
}
