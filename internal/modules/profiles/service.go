package profiles

import (
	"context"
	"errors"
	"fmt"

	"github.com/Ahmed-aleryani/coinmind/internal/utils"
	"github.com/rs/zerolog"
)

// ErrInvalidCurrency is wrapped when a default currency code is malformed
var ErrInvalidCurrency = errors.New("invalid currency code")

// Service resolves user profiles, creating them on first access
type Service struct {
	repo            *Repository
	fallbackDefault string
	log             zerolog.Logger
}

// NewService creates a new profile service.
// fallbackDefault is the default currency given to auto-created profiles.
func NewService(repo *Repository, fallbackDefault string, log zerolog.Logger) *Service {
	return &Service{
		repo:            repo,
		fallbackDefault: fallbackDefault,
		log:             log.With().Str("service", "profiles").Logger(),
	}
}

// FallbackCurrency returns the currency given to auto-created profiles
func (s *Service) FallbackCurrency() string {
	return s.fallbackDefault
}

// Get returns the user's profile, creating it if needed
func (s *Service) Get(ctx context.Context, userID string) (*Profile, error) {
	return s.repo.EnsureExists(ctx, userID, s.fallbackDefault)
}

// DefaultCurrency returns the user's current default currency, creating the profile if needed
func (s *Service) DefaultCurrency(ctx context.Context, userID string) (string, error) {
	p, err := s.Get(ctx, userID)
	if err != nil {
		return "", err
	}
	return p.DefaultCurrency, nil
}

// SetDefaultCurrency validates code and makes it the user's default currency.
// Existing transactions keep their converted values until re-converted.
func (s *Service) SetDefaultCurrency(ctx context.Context, userID, code string) (*Profile, error) {
	normalized, err := utils.NormalizeCurrencyCode(code)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCurrency, err)
	}

	before, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	p, err := s.repo.SetDefaultCurrency(ctx, userID, normalized)
	if err != nil {
		return nil, err
	}

	if before != nil && before.DefaultCurrency != normalized {
		s.log.Info().
			Str("user_id", userID).
			Str("from", before.DefaultCurrency).
			Str("to", normalized).
			Msg("Default currency changed")
	}
	return p, nil
}
