package testing

import (
	"fmt"
	"time"

	"github.com/Ahmed-aleryani/coinmind/internal/domain"
	"github.com/Ahmed-aleryani/coinmind/internal/utils"
)

// Date parses a YYYY-MM-DD fixture date and panics on malformed input
func Date(s string) time.Time {
	d, err := utils.ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

// NewTransaction builds a same-currency transaction fixture already converted into currency
func NewTransaction(userID, date string, txType domain.TransactionType, category, vendor string, amount float64, currency string) domain.Transaction {
	created := Date(date).Add(12 * time.Hour)
	return domain.Transaction{
		ID:          fmt.Sprintf("%s-%s-%s-%.2f", userID, date, category, amount),
		UserID:      userID,
		Date:        Date(date),
		Category:    category,
		Type:        txType,
		Description: category + " at " + vendor,
		Vendor:      vendor,
		Conversion: domain.Conversion{
			OriginalAmount:    amount,
			OriginalCurrency:  currency,
			ConvertedAmount:   amount,
			ConvertedCurrency: currency,
			ConversionRate:    1,
		},
		CreatedAt: created,
		UpdatedAt: created,
	}
}

// NewTransactionFixtures returns a small month of USD activity for userID
func NewTransactionFixtures(userID string) []domain.Transaction {
	return []domain.Transaction{
		NewTransaction(userID, "2024-03-01", domain.TransactionTypeIncome, "Salary", "Acme Corp", 5000, "USD"),
		NewTransaction(userID, "2024-03-02", domain.TransactionTypeExpense, "Rent", "Landlord", 1500, "USD"),
		NewTransaction(userID, "2024-03-04", domain.TransactionTypeExpense, "Groceries", "Whole Foods", 220, "USD"),
		NewTransaction(userID, "2024-03-09", domain.TransactionTypeExpense, "Food & Dining", "Cafe Nero", 35.5, "USD"),
		NewTransaction(userID, "2024-03-15", domain.TransactionTypeExpense, "Transportation", "Uber", 42, "USD"),
		NewTransaction(userID, "2024-03-18", domain.TransactionTypeIncome, "Freelance", "Client X", 800, "USD"),
		NewTransaction(userID, "2024-03-22", domain.TransactionTypeExpense, "Groceries", "Whole Foods", 180, "USD"),
		NewTransaction(userID, "2024-03-31", domain.TransactionTypeExpense, "Entertainment", "Cinema", 25, "USD"),
	}
}
