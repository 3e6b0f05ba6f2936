// Package analytics computes derived financial views over converted transactions:
// summaries, category and vendor breakdowns, time-bucketed trends, period comparison
// and a financial health score.
package analytics

import (
	"github.com/Ahmed-aleryani/coinmind/internal/domain"
	"github.com/shopspring/decimal"
)

// Summary holds totals by type. Amounts are magnitudes in Currency.
type Summary struct {
	Currency         string  `json:"currency"`
	TotalIncome      float64 `json:"total_income"`
	TotalExpenses    float64 `json:"total_expenses"`
	NetAmount        float64 `json:"net_amount"` // TotalIncome - TotalExpenses
	IncomeCount      int     `json:"income_count"`
	ExpenseCount     int     `json:"expense_count"`
	TransactionCount int     `json:"transaction_count"`
	AverageExpense   float64 `json:"average_expense"`
	LargestExpense   float64 `json:"largest_expense"`
}

// Summarize partitions txs by type and sums converted amounts exactly.
// An empty set yields all zeros.
func Summarize(txs []domain.Transaction, currency string) Summary {
	income := decimal.Zero
	expenses := decimal.Zero
	largest := decimal.Zero

	s := Summary{Currency: currency, TransactionCount: len(txs)}

	for _, tx := range txs {
		amount := decimal.NewFromFloat(tx.ConvertedAmount).Abs()
		switch tx.Type {
		case domain.TransactionTypeIncome:
			income = income.Add(amount)
			s.IncomeCount++
		case domain.TransactionTypeExpense:
			expenses = expenses.Add(amount)
			s.ExpenseCount++
			if amount.GreaterThan(largest) {
				largest = amount
			}
		}
	}

	s.TotalIncome = income.InexactFloat64()
	s.TotalExpenses = expenses.InexactFloat64()
	s.NetAmount = income.Sub(expenses).InexactFloat64()
	s.LargestExpense = largest.InexactFloat64()
	if s.ExpenseCount > 0 {
		s.AverageExpense = expenses.Div(decimal.NewFromInt(int64(s.ExpenseCount))).Round(2).InexactFloat64()
	}

	return s
}
