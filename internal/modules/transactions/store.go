package transactions

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/Ahmed-aleryani/coinmind/internal/domain"
	"github.com/Ahmed-aleryani/coinmind/internal/modules/analytics"
	"github.com/Ahmed-aleryani/coinmind/internal/modules/categories"
	"github.com/Ahmed-aleryani/coinmind/internal/modules/currency"
	"github.com/Ahmed-aleryani/coinmind/internal/utils"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Search limits
const (
	DefaultSearchLimit = 50
	MaxSearchLimit     = 500
)

// ProfileSource resolves a user's current default currency, creating the profile if needed
type ProfileSource interface {
	DefaultCurrency(ctx context.Context, userID string) (string, error)
}

// CategoryResolver maps a category label to a stored category
type CategoryResolver interface {
	Resolve(ctx context.Context, userID, name string, txType domain.TransactionType) (*categories.Category, error)
}

// CreateInput describes a new transaction
type CreateInput struct {
	UserID      string
	Date        time.Time // Zero = today
	Category    string
	Type        domain.TransactionType // Empty = inferred from the amount sign or the category
	Description string
	Vendor      string
	Amount      currency.Input
}

// UpdateInput holds the fields to change; nil fields are kept
type UpdateInput struct {
	Date        *time.Time
	Category    *string
	Type        *domain.TransactionType
	Description *string
	Vendor      *string
	Amount      *float64
	Currency    *string
}

func (in UpdateInput) touchesAmount() bool {
	return in.Amount != nil || in.Currency != nil
}

// WriteResult is a stored transaction plus any conversion warning raised while writing it
type WriteResult struct {
	Transaction domain.Transaction `json:"transaction"`
	Degraded    bool               `json:"degraded"`
	Warning     string             `json:"warning,omitempty"`
}

// Store is the transaction service. Every operation is scoped to the owning user.
type Store struct {
	repo       *Repository
	profiles   ProfileSource
	categories CategoryResolver
	normalizer *currency.Normalizer
	rates      currency.RateSource
	engine     *analytics.Engine
	now        func() time.Time
	log        zerolog.Logger
}

// NewStore creates a new transaction store
func NewStore(
	repo *Repository,
	profiles ProfileSource,
	resolver CategoryResolver,
	normalizer *currency.Normalizer,
	rates currency.RateSource,
	engine *analytics.Engine,
	log zerolog.Logger,
) *Store {
	return &Store{
		repo:       repo,
		profiles:   profiles,
		categories: resolver,
		normalizer: normalizer,
		rates:      rates,
		engine:     engine,
		now:        time.Now,
		log:        log.With().Str("service", "transactions").Logger(),
	}
}

// WithClock replaces the store's time source
func (s *Store) WithClock(now func() time.Time) *Store {
	s.now = now
	return s
}

// Create normalizes the amount into the owner's current default currency, resolves the
// category and stores the transaction under a new id.
// A failed rate lookup does not fail the call; the result is then marked Degraded.
func (s *Store) Create(ctx context.Context, in CreateInput) (*WriteResult, error) {
	if strings.TrimSpace(in.UserID) == "" {
		return nil, &ValidationError{Field: "user_id", Reason: "required"}
	}
	if in.Type != "" && !in.Type.Valid() {
		return nil, &ValidationError{Field: "type", Reason: "must be income or expense"}
	}

	target, err := s.profiles.DefaultCurrency(ctx, in.UserID)
	if err != nil {
		return nil, persistenceErr("resolve profile", err)
	}

	res, err := s.normalizer.Normalize(ctx, in.Amount, target)
	if err != nil {
		return nil, &ValidationError{Field: "amount", Reason: err.Error()}
	}

	txType := in.Type
	if txType == "" && in.Amount.Negative() {
		txType = domain.TransactionTypeExpense
	}

	cat, err := s.categories.Resolve(ctx, in.UserID, in.Category, txType)
	if err != nil {
		return nil, persistenceErr("resolve category", err)
	}
	if txType == "" {
		txType = cat.Type
	}

	now := s.now().UTC()
	date := in.Date
	if date.IsZero() {
		date = now
	}

	tx := domain.Transaction{
		ID:          uuid.NewString(),
		UserID:      in.UserID,
		Date:        utils.ToDate(date),
		Category:    cat.Name,
		Type:        txType,
		Description: strings.TrimSpace(in.Description),
		Vendor:      strings.TrimSpace(in.Vendor),
		Conversion:  res.Conversion,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.repo.Insert(ctx, tx); err != nil {
		return nil, persistenceErr("create", err)
	}

	s.log.Debug().
		Str("user_id", tx.UserID).
		Str("id", tx.ID).
		Str("type", string(tx.Type)).
		Bool("degraded", res.Degraded).
		Msg("Transaction created")

	return writeResult(tx, res), nil
}

// Update applies in to the user's transaction. Changing the amount or currency re-normalizes
// against the user's default currency as it is now, not as it was at creation.
//
// Returns ErrNotFound when the transaction does not exist or belongs to another user.
func (s *Store) Update(ctx context.Context, userID, id string, in UpdateInput) (*WriteResult, error) {
	if in.Type != nil && !in.Type.Valid() {
		return nil, &ValidationError{Field: "type", Reason: "must be income or expense"}
	}

	existing, err := s.repo.GetByID(ctx, userID, id)
	if err != nil {
		return nil, persistenceErr("update", err)
	}
	if existing == nil {
		return nil, ErrNotFound
	}

	tx := *existing
	var res currency.Result

	if in.Type != nil {
		tx.Type = *in.Type
	}
	if in.Date != nil {
		tx.Date = utils.ToDate(*in.Date)
	}
	if in.Description != nil {
		tx.Description = strings.TrimSpace(*in.Description)
	}
	if in.Vendor != nil {
		tx.Vendor = strings.TrimSpace(*in.Vendor)
	}

	if in.touchesAmount() {
		amount := tx.OriginalAmount
		if in.Amount != nil {
			amount = *in.Amount
		}
		code := tx.OriginalCurrency
		if in.Currency != nil {
			code = *in.Currency
		}

		target, err := s.profiles.DefaultCurrency(ctx, userID)
		if err != nil {
			return nil, persistenceErr("resolve profile", err)
		}

		input := currency.FromLegacyAmount(amount, code)
		res, err = s.normalizer.Normalize(ctx, input, target)
		if err != nil {
			return nil, &ValidationError{Field: "amount", Reason: err.Error()}
		}
		if in.Type == nil && input.Negative() {
			tx.Type = domain.TransactionTypeExpense
		}
		tx.Conversion = res.Conversion
	}

	if in.Category != nil {
		cat, err := s.categories.Resolve(ctx, userID, *in.Category, tx.Type)
		if err != nil {
			return nil, persistenceErr("resolve category", err)
		}
		tx.Category = cat.Name
	}

	tx.UpdatedAt = s.now().UTC()

	ok, err := s.repo.Update(ctx, tx)
	if err != nil {
		return nil, persistenceErr("update", err)
	}
	if !ok {
		return nil, ErrNotFound
	}

	return writeResult(tx, res), nil
}

// Delete removes the user's transaction and reports whether a row was removed.
// A transaction owned by someone else is reported as not removed.
func (s *Store) Delete(ctx context.Context, userID, id string) (bool, error) {
	ok, err := s.repo.Delete(ctx, userID, id)
	if err != nil {
		return false, persistenceErr("delete", err)
	}
	return ok, nil
}

// Get returns the user's transaction or ErrNotFound
func (s *Store) Get(ctx context.Context, userID, id string) (*domain.Transaction, error) {
	tx, err := s.repo.GetByID(ctx, userID, id)
	if err != nil {
		return nil, persistenceErr("get", err)
	}
	if tx == nil {
		return nil, ErrNotFound
	}
	return tx, nil
}

// FindByDateRange returns the user's transactions dated within [start, end], both inclusive,
// newest first with ties broken by creation time. Nil bounds are open.
func (s *Store) FindByDateRange(ctx context.Context, userID string, start, end *time.Time) ([]domain.Transaction, error) {
	if start != nil && end != nil && utils.ToDate(*end).Before(utils.ToDate(*start)) {
		return nil, &ValidationError{Field: "end", Reason: "before start"}
	}

	txs, err := s.repo.ListByDateRange(ctx, userID, start, end)
	if err != nil {
		return nil, persistenceErr("find by date range", err)
	}
	if txs == nil {
		txs = []domain.Transaction{}
	}
	return txs, nil
}

// Search matches query against description, vendor and category, ignoring case
func (s *Store) Search(ctx context.Context, userID, query string, limit int) ([]domain.Transaction, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, &ValidationError{Field: "q", Reason: "required"}
	}
	if limit <= 0 {
		limit = DefaultSearchLimit
	}
	if limit > MaxSearchLimit {
		limit = MaxSearchLimit
	}

	txs, err := s.repo.Search(ctx, userID, query, limit)
	if err != nil {
		return nil, persistenceErr("search", err)
	}
	if txs == nil {
		txs = []domain.Transaction{}
	}
	return txs, nil
}

// GetStats summarizes the user's transactions within [start, end] in their current
// default currency. Rows converted into an older default are re-converted for the
// summary only; storage is not modified.
func (s *Store) GetStats(ctx context.Context, userID string, start, end *time.Time) (analytics.Stats, error) {
	txs, err := s.FindByDateRange(ctx, userID, start, end)
	if err != nil {
		return analytics.Stats{}, err
	}

	target, err := s.profiles.DefaultCurrency(ctx, userID)
	if err != nil {
		return analytics.Stats{}, persistenceErr("resolve profile", err)
	}

	stats, err := s.engine.Stats(ctx, txs, target)
	if err != nil {
		if errors.Is(err, currency.ErrInvalidInput) {
			return analytics.Stats{}, &ValidationError{Field: "currency", Reason: err.Error()}
		}
		return analytics.Stats{}, err
	}
	return stats, nil
}

func writeResult(tx domain.Transaction, res currency.Result) *WriteResult {
	out := &WriteResult{Transaction: tx, Degraded: res.Degraded}
	if res.Warning != nil {
		out.Warning = "amount kept unconverted: " + res.Warning.Error()
	}
	return out
}
