// Package domain holds the ledger types shared across modules.
package domain

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// TransactionType carries the direction of money. Amounts are always stored as magnitudes.
type TransactionType string

const (
	// TransactionTypeIncome adds money
	TransactionTypeIncome TransactionType = "income"
	// TransactionTypeExpense removes money
	TransactionTypeExpense TransactionType = "expense"
)

// ParseTransactionType parses a case-insensitive type label.
func ParseTransactionType(s string) (TransactionType, error) {
	switch TransactionType(strings.ToLower(strings.TrimSpace(s))) {
	case TransactionTypeIncome:
		return TransactionTypeIncome, nil
	case TransactionTypeExpense:
		return TransactionTypeExpense, nil
	default:
		return "", fmt.Errorf("unknown transaction type %q (expected income or expense)", s)
	}
}

// Valid reports whether t is income or expense.
func (t TransactionType) Valid() bool {
	return t == TransactionTypeIncome || t == TransactionTypeExpense
}

// Conversion is the dual representation of a monetary amount:
// what the user stated and what it is worth in the default currency.
type Conversion struct {
	OriginalAmount    float64 `json:"original_amount"`
	OriginalCurrency  string  `json:"original_currency"`
	ConvertedAmount   float64 `json:"converted_amount"`
	ConvertedCurrency string  `json:"converted_currency"`
	ConversionRate    float64 `json:"conversion_rate"`
	ConversionFee     float64 `json:"conversion_fee"`
}

// Transaction is a single income or expense record owned by one user.
type Transaction struct {
	ID          string          `json:"id"`
	UserID      string          `json:"user_id"`
	Date        time.Time       `json:"date"` // Calendar date at midnight UTC
	Category    string          `json:"category"`
	Type        TransactionType `json:"type"`
	Description string          `json:"description"`
	Vendor      string          `json:"vendor"`
	Conversion
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NormalizeLegacySign folds a signed legacy amount into the unsigned+type representation.
// A negative amount implies an expense when no type is set.
func (t *Transaction) NormalizeLegacySign() {
	if t.OriginalAmount < 0 || t.ConvertedAmount < 0 {
		if t.Type == "" {
			t.Type = TransactionTypeExpense
		}
		t.OriginalAmount = math.Abs(t.OriginalAmount)
		t.ConvertedAmount = math.Abs(t.ConvertedAmount)
	}
	if t.Type == "" {
		t.Type = TransactionTypeExpense
	}
}
