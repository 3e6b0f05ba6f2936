package transactions

import (
	"context"
	"testing"

	"github.com/Ahmed-aleryani/coinmind/internal/domain"
	testutil "github.com/Ahmed-aleryani/coinmind/internal/testing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReconvert(t *testing.T) {
	f := newStoreFixture(t)
	ctx := context.Background()

	gbp := f.create(t, "alice", "2024-03-05", "Travel", domain.TransactionTypeExpense, 100, "GBP")
	usd := f.create(t, "alice", "2024-03-06", "Groceries", domain.TransactionTypeExpense, 40, "USD")
	eur := f.create(t, "alice", "2024-03-07", "Food & Dining", domain.TransactionTypeExpense, 10, "EUR")

	_, err := f.profiles.SetDefaultCurrency(ctx, "alice", "EUR")
	require.NoError(t, err)

	report, err := f.store.Reconvert(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, 3, report.Scanned)
	assert.Equal(t, 3, report.Updated)
	assert.Zero(t, report.Failed)

	got, err := f.store.Get(ctx, "alice", gbp.ID)
	require.NoError(t, err)
	assert.Equal(t, "EUR", got.ConvertedCurrency)
	assert.InDelta(t, 117.0, got.ConvertedAmount, 1e-9)
	assert.Equal(t, 100.0, got.OriginalAmount, "the original side is never rewritten")

	got, err = f.store.Get(ctx, "alice", usd.ID)
	require.NoError(t, err)
	assert.InDelta(t, 37.0, got.ConvertedAmount, 1e-9)

	got, err = f.store.Get(ctx, "alice", eur.ID)
	require.NoError(t, err)
	assert.Equal(t, 10.0, got.ConvertedAmount)
	assert.Equal(t, 1.0, got.ConversionRate)

	again, err := f.store.Reconvert(ctx, "alice")
	require.NoError(t, err)
	assert.Zero(t, again.Scanned, "nothing left to re-convert")
}

func TestReconvert_FailedLookupsLeaveRowsUntouched(t *testing.T) {
	f := newStoreFixture(t)
	ctx := context.Background()

	jpy := f.create(t, "alice", "2024-03-05", "Food & Dining", domain.TransactionTypeExpense, 3000, "JPY")
	gbp := f.create(t, "alice", "2024-03-06", "Travel", domain.TransactionTypeExpense, 100, "GBP")
	require.Equal(t, "JPY", jpy.ConvertedCurrency, "degraded at creation")

	_, err := f.profiles.SetDefaultCurrency(ctx, "alice", "EUR")
	require.NoError(t, err)

	report, err := f.store.Reconvert(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, 2, report.Scanned)
	assert.Equal(t, 1, report.Updated)
	assert.Equal(t, 1, report.Failed)
	require.Len(t, report.Errors, 1)
	assert.Contains(t, report.Errors[0], jpy.ID)

	got, err := f.store.Get(ctx, "alice", jpy.ID)
	require.NoError(t, err)
	assert.Equal(t, jpy.Conversion, got.Conversion)

	got, err = f.store.Get(ctx, "alice", gbp.ID)
	require.NoError(t, err)
	assert.Equal(t, "EUR", got.ConvertedCurrency)
}

func TestReconvert_OneLookupPerPair(t *testing.T) {
	f := newStoreFixture(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		f.create(t, "alice", "2024-03-05", "Travel", domain.TransactionTypeExpense, float64(10+i), "GBP")
	}
	before := f.rates.Calls()

	_, err := f.profiles.SetDefaultCurrency(ctx, "alice", "EUR")
	require.NoError(t, err)

	report, err := f.store.Reconvert(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, 5, report.Updated)
	assert.Equal(t, before+1, f.rates.Calls())
}

func TestReconvertAll(t *testing.T) {
	f := newStoreFixture(t)
	ctx := context.Background()

	f.create(t, "alice", "2024-03-05", "Travel", domain.TransactionTypeExpense, 100, "GBP")
	f.create(t, "bob", "2024-03-05", "Travel", domain.TransactionTypeExpense, 100, "USD")
	_, err := f.profiles.SetDefaultCurrency(ctx, "alice", "EUR")
	require.NoError(t, err)
	_, err = f.profiles.SetDefaultCurrency(ctx, "bob", "EUR")
	require.NoError(t, err)

	report, err := f.store.ReconvertAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, report.Users)
	assert.Equal(t, 2, report.Updated)
}

func TestMigrateLegacy(t *testing.T) {
	f := newStoreFixture(t)
	ctx := context.Background()

	_, err := f.db.Exec(`
		INSERT INTO legacy_transactions (user_id, date, amount, currency, category, description) VALUES
			('alice', '2023-11-02', -45.5, 'USD', 'groceries', 'weekly shop'),
			('alice', '2023-11-01T08:15:00Z', 2500, NULL, 'Salary', 'november'),
			('alice', 'not a date', -1, 'USD', NULL, NULL),
			('alice', '2023-11-03', -20, 'EUR', NULL, NULL),
			('bob', '2023-11-04', -5, 'USD', NULL, NULL)
	`)
	require.NoError(t, err)

	report, err := f.store.MigrateLegacy(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, 4, report.Scanned)
	assert.Equal(t, 3, report.Updated)
	assert.Equal(t, 1, report.Failed)

	txs, err := f.store.FindByDateRange(ctx, "alice", nil, nil)
	require.NoError(t, err)
	require.Len(t, txs, 3)

	byDate := make(map[string]domain.Transaction)
	for _, tx := range txs {
		byDate[tx.Date.Format("2006-01-02")] = tx
	}

	shop := byDate["2023-11-02"]
	assert.Equal(t, domain.TransactionTypeExpense, shop.Type)
	assert.Equal(t, 45.5, shop.OriginalAmount)
	assert.Equal(t, 45.5, shop.ConvertedAmount)
	assert.Equal(t, 1.0, shop.ConversionRate)
	assert.Equal(t, "Groceries", shop.Category)

	salary := byDate["2023-11-01"]
	assert.Equal(t, domain.TransactionTypeIncome, salary.Type)
	assert.Equal(t, "USD", salary.OriginalCurrency, "missing currency falls back to the user default")

	eur := byDate["2023-11-03"]
	assert.Equal(t, "EUR", eur.ConvertedCurrency, "legacy rows keep their own currency at rate 1")
	assert.Equal(t, testutil.Date("2023-11-03"), eur.Date)

	again, err := f.store.MigrateLegacy(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, 1, again.Scanned, "only the unparseable row is retried")
	assert.Zero(t, again.Updated)

	n, err := f.repo.CountByUser(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestMigrateAllLegacy(t *testing.T) {
	f := newStoreFixture(t)
	ctx := context.Background()

	_, err := f.db.Exec(`
		INSERT INTO legacy_transactions (user_id, date, amount, currency) VALUES
			('alice', '2023-11-02', -10, 'USD'),
			('bob', '2023-11-04', -5, 'USD')
	`)
	require.NoError(t, err)

	report, err := f.store.MigrateAllLegacy(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, report.Users)
	assert.Equal(t, 2, report.Updated)

	report, err = f.store.MigrateAllLegacy(ctx)
	require.NoError(t, err)
	assert.Zero(t, report.Users)
}
