// Package profiles provides user profile storage, including each user's default currency.
package profiles

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// Profile holds per-user reporting preferences
type Profile struct {
	UserID          string    `json:"user_id"`
	DefaultCurrency string    `json:"default_currency"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// Repository handles profile database operations.
//
// Database: ledger.db (profiles table)
type Repository struct {
	db  *sql.DB
	now func() time.Time
	log zerolog.Logger
}

// NewRepository creates a new profile repository.
//
// Parameters:
//   - db: Database connection to ledger.db
//   - log: Structured logger
//
// Returns:
//   - *Repository: Initialized repository instance
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		now: time.Now,
		log: log.With().Str("repo", "profiles").Logger(),
	}
}

// FindByID returns the profile for userID.
//
// Returns:
//   - *Profile: The profile, nil if the user has none yet
//   - error: Error if query fails
func (r *Repository) FindByID(ctx context.Context, userID string) (*Profile, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT user_id, default_currency, created_at, updated_at
		FROM profiles
		WHERE user_id = ?
	`, userID)

	p, err := scanProfile(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get profile %s: %w", userID, err)
	}
	return p, nil
}

// EnsureExists returns the profile for userID, creating it with fallbackCurrency on first access.
// Creation is an insert guarded by the primary key, so concurrent first accesses are safe.
//
// Parameters:
//   - userID: Owning user
//   - fallbackCurrency: Default currency for a newly created profile (already normalized)
//
// Returns:
//   - *Profile: Existing or newly created profile
//   - error: Error if the insert or read fails
func (r *Repository) EnsureExists(ctx context.Context, userID, fallbackCurrency string) (*Profile, error) {
	now := r.now().Unix()

	res, err := r.db.ExecContext(ctx, `
		INSERT INTO profiles (user_id, default_currency, created_at, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(user_id) DO NOTHING
	`, userID, fallbackCurrency, now, now)
	if err != nil {
		return nil, fmt.Errorf("failed to ensure profile %s: %w", userID, err)
	}
	if n, _ := res.RowsAffected(); n > 0 {
		r.log.Info().Str("user_id", userID).Str("currency", fallbackCurrency).Msg("Created profile")
	}

	p, err := r.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, fmt.Errorf("profile %s missing after insert", userID)
	}
	return p, nil
}

// SetDefaultCurrency changes the user's default currency, creating the profile if needed.
// Stored transactions are not rewritten.
//
// Returns:
//   - *Profile: Updated profile
//   - error: Error if the upsert fails
func (r *Repository) SetDefaultCurrency(ctx context.Context, userID, code string) (*Profile, error) {
	now := r.now().Unix()

	if _, err := r.db.ExecContext(ctx, `
		INSERT INTO profiles (user_id, default_currency, created_at, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			default_currency = excluded.default_currency,
			updated_at = excluded.updated_at
	`, userID, code, now, now); err != nil {
		return nil, fmt.Errorf("failed to set default currency for %s: %w", userID, err)
	}

	return r.FindByID(ctx, userID)
}

func scanProfile(row interface{ Scan(...interface{}) error }) (*Profile, error) {
	var (
		p                    Profile
		createdAt, updatedAt int64
	)
	if err := row.Scan(&p.UserID, &p.DefaultCurrency, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	p.CreatedAt = time.Unix(createdAt, 0).UTC()
	p.UpdatedAt = time.Unix(updatedAt, 0).UTC()
	return &p, nil
}
