package analytics

import (
	"testing"

	"github.com/Ahmed-aleryani/coinmind/internal/domain"
	testutil "github.com/Ahmed-aleryani/coinmind/internal/testing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCategoryBreakdown(t *testing.T) {
	items := CategoryBreakdown(testutil.NewTransactionFixtures("alice"), domain.TransactionTypeExpense, 0)

	require.Len(t, items, 5)
	assert.Equal(t, "Rent", items[0].Name)
	assert.Equal(t, 1500.0, items[0].Total)
	assert.Equal(t, "Groceries", items[1].Name)
	assert.Equal(t, 400.0, items[1].Total)
	assert.Equal(t, 2, items[1].Count)

	var pct float64
	for _, it := range items {
		pct += it.Percentage
	}
	assert.InDelta(t, 100, pct, 0.05)
}

func TestCategoryBreakdown_TopN(t *testing.T) {
	items := CategoryBreakdown(testutil.NewTransactionFixtures("alice"), domain.TransactionTypeExpense, 2)

	require.Len(t, items, 2)
	assert.Equal(t, []string{"Rent", "Groceries"}, []string{items[0].Name, items[1].Name})
}

func TestBreakdown_TiesKeepFirstAppearance(t *testing.T) {
	txs := []domain.Transaction{
		testutil.NewTransaction("u", "2024-01-01", domain.TransactionTypeExpense, "Zeta", "Z", 10, "USD"),
		testutil.NewTransaction("u", "2024-01-02", domain.TransactionTypeExpense, "Alpha", "A", 10, "USD"),
		testutil.NewTransaction("u", "2024-01-03", domain.TransactionTypeExpense, "Mid", "M", 10, "USD"),
		testutil.NewTransaction("u", "2024-01-04", domain.TransactionTypeExpense, "Big", "B", 30, "USD"),
	}

	for i := 0; i < 20; i++ {
		items := CategoryBreakdown(txs, domain.TransactionTypeExpense, 0)
		names := make([]string, len(items))
		for j, it := range items {
			names[j] = it.Name
		}
		assert.Equal(t, []string{"Big", "Zeta", "Alpha", "Mid"}, names)
	}
}

func TestVendorBreakdown_UnknownVendor(t *testing.T) {
	txs := []domain.Transaction{
		testutil.NewTransaction("u", "2024-01-01", domain.TransactionTypeExpense, "Food", "", 5, "USD"),
		testutil.NewTransaction("u", "2024-01-01", domain.TransactionTypeExpense, "Food", "  ", 7, "USD"),
		testutil.NewTransaction("u", "2024-01-01", domain.TransactionTypeIncome, "Salary", "", 100, "USD"),
	}

	items := VendorBreakdown(txs, domain.TransactionTypeExpense, 0)
	require.Len(t, items, 1)
	assert.Equal(t, UnknownVendor, items[0].Name)
	assert.Equal(t, 12.0, items[0].Total)
	assert.Equal(t, 100.0, items[0].Percentage)
}

func TestBreakdown_Empty(t *testing.T) {
	assert.Empty(t, CategoryBreakdown(nil, domain.TransactionTypeExpense, 5))
}
