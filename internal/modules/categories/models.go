// Package categories provides category storage and resolution for transactions.
package categories

import (
	"time"

	"github.com/Ahmed-aleryani/coinmind/internal/domain"
)

// Category labels transactions. A category with an empty UserID is global and shared by all users.
type Category struct {
	ID        string                 `json:"id"`
	UserID    string                 `json:"user_id,omitempty"`
	Name      string                 `json:"name"`
	Type      domain.TransactionType `json:"type"`
	IsDefault bool                   `json:"is_default"`
	CreatedAt time.Time              `json:"created_at"`
}

// Global reports whether the category is shared by all users
func (c Category) Global() bool {
	return c.UserID == ""
}

// Fallback names used when a transaction arrives without a category
const (
	FallbackExpense = "Other"
	FallbackIncome  = "Other Income"
)

// DefaultCategory is an entry of the recommended category set
type DefaultCategory struct {
	Name string
	Type domain.TransactionType
}

// RecommendedDefaults is the recommended category set seeded as global categories
var RecommendedDefaults = []DefaultCategory{
	{Name: "Food & Dining", Type: domain.TransactionTypeExpense},
	{Name: "Groceries", Type: domain.TransactionTypeExpense},
	{Name: "Transportation", Type: domain.TransactionTypeExpense},
	{Name: "Shopping", Type: domain.TransactionTypeExpense},
	{Name: "Entertainment", Type: domain.TransactionTypeExpense},
	{Name: "Bills & Utilities", Type: domain.TransactionTypeExpense},
	{Name: "Healthcare", Type: domain.TransactionTypeExpense},
	{Name: "Education", Type: domain.TransactionTypeExpense},
	{Name: "Travel", Type: domain.TransactionTypeExpense},
	{Name: "Rent", Type: domain.TransactionTypeExpense},
	{Name: FallbackExpense, Type: domain.TransactionTypeExpense},
	{Name: "Salary", Type: domain.TransactionTypeIncome},
	{Name: "Freelance", Type: domain.TransactionTypeIncome},
	{Name: "Investment", Type: domain.TransactionTypeIncome},
	{Name: "Gift", Type: domain.TransactionTypeIncome},
	{Name: FallbackIncome, Type: domain.TransactionTypeIncome},
}
