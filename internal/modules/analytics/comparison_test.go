package analytics

import (
	"testing"

	"github.com/Ahmed-aleryani/coinmind/internal/domain"
	testutil "github.com/Ahmed-aleryani/coinmind/internal/testing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func period(start, end string) Period {
	return Period{Start: testutil.Date(start), End: testutil.Date(end)}
}

func expense(date string, amount float64) domain.Transaction {
	return testutil.NewTransaction("u", date, domain.TransactionTypeExpense, "C", "V", amount, "USD")
}

func TestComparePeriods(t *testing.T) {
	p1 := period("2024-01-01", "2024-01-31")
	p2 := period("2024-02-01", "2024-02-29")

	tests := []struct {
		name     string
		baseline []domain.Transaction
		current  []domain.Transaction
		change   float64
		pct      float64
		trend    Trend
	}{
		{
			name:     "increase",
			baseline: []domain.Transaction{expense("2024-01-05", 600), expense("2024-01-31", 400)},
			current:  []domain.Transaction{expense("2024-02-01", 1200)},
			change:   200,
			pct:      20,
			trend:    TrendIncreasing,
		},
		{
			name:     "decrease",
			baseline: []domain.Transaction{expense("2024-01-05", 1000)},
			current:  []domain.Transaction{expense("2024-02-10", 750)},
			change:   -250,
			pct:      -25,
			trend:    TrendDecreasing,
		},
		{
			name:     "stable",
			baseline: []domain.Transaction{expense("2024-01-05", 10)},
			current:  []domain.Transaction{expense("2024-02-10", 10)},
			trend:    TrendStable,
		},
		{
			name:    "zero baseline",
			current: []domain.Transaction{expense("2024-02-10", 50)},
			change:  50,
			trend:   TrendIncreasing,
		},
		{
			name:  "both empty",
			trend: TrendStable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := ComparePeriods(tt.baseline, tt.current, p1, p2, "USD")
			require.NoError(t, err)
			assert.Equal(t, tt.change, c.ChangeAmount)
			assert.Equal(t, tt.pct, c.ChangePercentage)
			assert.Equal(t, tt.trend, c.Trend)
		})
	}
}

func TestComparePeriods_TinyChangeIsNotStable(t *testing.T) {
	c, err := ComparePeriods(
		[]domain.Transaction{expense("2024-01-05", 100)},
		[]domain.Transaction{expense("2024-02-05", 100.01)},
		period("2024-01-01", "2024-01-31"), period("2024-02-01", "2024-02-29"), "USD")
	require.NoError(t, err)
	assert.Equal(t, TrendIncreasing, c.Trend)
}

func TestComparePeriods_IgnoresIncomeAndOutOfRange(t *testing.T) {
	income := testutil.NewTransaction("u", "2024-01-10", domain.TransactionTypeIncome, "S", "V", 5000, "USD")

	c, err := ComparePeriods(
		[]domain.Transaction{expense("2024-01-10", 100), income, expense("2023-12-31", 999)},
		[]domain.Transaction{expense("2024-02-10", 100)},
		period("2024-01-01", "2024-01-31"), period("2024-02-01", "2024-02-29"), "USD")
	require.NoError(t, err)
	assert.Equal(t, 100.0, c.BaselineTotal)
	assert.Equal(t, TrendStable, c.Trend)
}

func TestComparePeriods_Validation(t *testing.T) {
	_, err := ComparePeriods(nil, nil, period("2024-01-01", "2024-01-31"), period("2024-01-31", "2024-02-29"), "USD")
	assert.ErrorIs(t, err, ErrOverlappingPeriods)

	_, err = ComparePeriods(nil, nil, period("2024-01-31", "2024-01-01"), period("2024-02-01", "2024-02-29"), "USD")
	assert.Error(t, err)

	_, err = ComparePeriods(nil, nil, Period{}, period("2024-02-01", "2024-02-29"), "USD")
	assert.Error(t, err)
}
