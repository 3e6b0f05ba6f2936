package categories

import (
	"context"
	"strings"

	"github.com/Ahmed-aleryani/coinmind/internal/domain"
	"github.com/rs/zerolog"
)

// Store is the category persistence the Resolver needs
type Store interface {
	FindByName(ctx context.Context, userID, name string, txType domain.TransactionType) (*Category, error)
	Create(ctx context.Context, c Category) (*Category, error)
}

// Resolver maps a free-form category label to a stored category
type Resolver struct {
	store Store
	log   zerolog.Logger
}

// NewResolver creates a new category resolver
func NewResolver(store Store, log zerolog.Logger) *Resolver {
	return &Resolver{
		store: store,
		log:   log.With().Str("service", "category_resolver").Logger(),
	}
}

// Resolve finds the category named name for userID: the user's own category first,
// then a global one, else a new user category is created.
// An empty name resolves to the fallback category for txType.
// An empty txType matches any existing category and creates expense categories.
func (r *Resolver) Resolve(ctx context.Context, userID, name string, txType domain.TransactionType) (*Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		name = FallbackExpense
		if txType == domain.TransactionTypeIncome {
			name = FallbackIncome
		}
	}

	existing, err := r.store.FindByName(ctx, userID, name, txType)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	createType := txType
	if createType == "" {
		createType = domain.TransactionTypeExpense
	}

	created, err := r.store.Create(ctx, Category{UserID: userID, Name: name, Type: createType})
	if err != nil {
		return nil, err
	}

	r.log.Debug().
		Str("user_id", userID).
		Str("category", created.Name).
		Str("type", string(created.Type)).
		Msg("Created user category")

	return created, nil
}
