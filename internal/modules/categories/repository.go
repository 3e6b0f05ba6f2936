package categories

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/Ahmed-aleryani/coinmind/internal/database"
	"github.com/Ahmed-aleryani/coinmind/internal/domain"
	"github.com/Ahmed-aleryani/coinmind/internal/utils"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Repository handles category database operations.
// Global categories have a NULL user_id; names are unique per owner and type, ignoring case.
// Case-insensitive matching goes through name_key (utils.FoldKey), never SQL lower().
//
// Database: ledger.db (categories table)
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRepository creates a new category repository.
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
		log: log.With().Str("repo", "categories").Logger(),
	}
}

const categoryColumns = "id, user_id, name, type, is_default, created_at"

// FindByName looks a category up by name, ignoring case.
// The user's own categories win over global ones. An empty txType matches either type,
// preferring expense.
//
// Parameters:
//   - userID: Owning user
//   - name: Category name
//   - txType: Required type, or "" for any
//
// Returns:
//   - *Category: The category, nil if none matches
//   - error: Error if query fails
func (r *Repository) FindByName(ctx context.Context, userID, name string, txType domain.TransactionType) (*Category, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+categoryColumns+`
		FROM categories
		WHERE name_key = ?
		  AND (user_id = ? OR user_id IS NULL)
		  AND (? = '' OR type = ?)
		ORDER BY user_id IS NULL, type = 'income'
		LIMIT 1
	`, utils.FoldKey(name), userID, string(txType), string(txType))

	c, err := scanCategory(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find category %q: %w", name, err)
	}
	return c, nil
}

// FindDefaults returns the global default categories, expenses first, then by name
func (r *Repository) FindDefaults(ctx context.Context) ([]Category, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+categoryColumns+`
		FROM categories
		WHERE user_id IS NULL AND is_default = 1
		ORDER BY type = 'income', name
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query default categories: %w", err)
	}
	defer rows.Close()

	return r.scanCategories(rows)
}

// ListForUser returns the user's categories followed by the global ones
func (r *Repository) ListForUser(ctx context.Context, userID string) ([]Category, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+categoryColumns+`
		FROM categories
		WHERE user_id = ? OR user_id IS NULL
		ORDER BY user_id IS NULL, type = 'income', name
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query categories for %s: %w", userID, err)
	}
	defer rows.Close()

	return r.scanCategories(rows)
}

// Create inserts a category. If an equal category (same owner, name ignoring case and type)
// already exists, the existing row is returned instead.
//
// Returns:
//   - *Category: The stored category
//   - error: Error if the insert or read-back fails
func (r *Repository) Create(ctx context.Context, c Category) (*Category, error) {
	c.Name = strings.TrimSpace(c.Name)
	if c.Name == "" {
		return nil, fmt.Errorf("category name is required")
	}
	if !c.Type.Valid() {
		return nil, fmt.Errorf("invalid category type %q", c.Type)
	}
	if c.ID == "" {
		c.ID = uuid.NewString()
	}

	if _, err := r.db.ExecContext(ctx, `
		INSERT INTO categories (id, user_id, name, name_key, type, is_default, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT DO NOTHING
	`, c.ID, nullString(c.UserID), c.Name, utils.FoldKey(c.Name), string(c.Type), boolToInt(c.IsDefault), time.Now().Unix()); err != nil {
		return nil, fmt.Errorf("failed to create category %q: %w", c.Name, err)
	}

	row := r.db.QueryRowContext(ctx, `
		SELECT `+categoryColumns+`
		FROM categories
		WHERE COALESCE(user_id, '') = ? AND name_key = ? AND type = ?
	`, c.UserID, utils.FoldKey(c.Name), string(c.Type))

	stored, err := scanCategory(row)
	if err != nil {
		return nil, fmt.Errorf("failed to read back category %q: %w", c.Name, err)
	}
	return stored, nil
}

// SeedDefaults inserts the recommended global categories that are not present yet.
// Safe to call on every startup; the unique index turns repeats into no-ops.
//
// Returns:
//   - int: Number of categories inserted
//   - error: Error if the seeding transaction fails
func (r *Repository) SeedDefaults(ctx context.Context) (int, error) {
	inserted := 0
	now := time.Now().Unix()

	err := database.WithTransaction(r.db, func(tx *sql.Tx) error {
		for _, d := range RecommendedDefaults {
			res, err := tx.ExecContext(ctx, `
				INSERT INTO categories (id, user_id, name, name_key, type, is_default, created_at)
				VALUES (?, NULL, ?, ?, ?, 1, ?)
				ON CONFLICT DO NOTHING
			`, uuid.NewString(), d.Name, utils.FoldKey(d.Name), string(d.Type), now)
			if err != nil {
				return fmt.Errorf("failed to seed category %q: %w", d.Name, err)
			}
			if n, err := res.RowsAffected(); err == nil {
				inserted += int(n)
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	if inserted > 0 {
		r.log.Info().Int("inserted", inserted).Msg("Seeded default categories")
	}
	return inserted, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanCategory(row rowScanner) (*Category, error) {
	var (
		c         Category
		userID    sql.NullString
		txType    string
		isDefault int
		createdAt int64
	)
	if err := row.Scan(&c.ID, &userID, &c.Name, &txType, &isDefault, &createdAt); err != nil {
		return nil, err
	}
	c.UserID = userID.String
	c.Type = domain.TransactionType(txType)
	c.IsDefault = isDefault != 0
	c.CreatedAt = time.Unix(createdAt, 0).UTC()
	return &c, nil
}

func (r *Repository) scanCategories(rows *sql.Rows) ([]Category, error) {
	var result []Category
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan category: %w", err)
		}
		result = append(result, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating categories: %w", err)
	}
	return result, nil
}

func nullString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
