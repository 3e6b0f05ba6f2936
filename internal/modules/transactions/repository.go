package transactions

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

// legacyNamespace derives stable transaction ids for migrated legacy rows
var legacyNamespace = uuid.MustParse("6f0b6a8e-4f3c-4d55-9a43-5c3b8f0c2d11")

// Repository handles transaction database operations.
// Dates are stored as the unix timestamp of their midnight UTC; created_at and
// updated_at as unix nanoseconds so ordering ties resolve by creation time.
//
// Database: ledger.db (transactions and legacy_transactions tables)
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRepository creates a new transaction repository.
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
		log: log.With().Str("repo", "transactions").Logger(),
	}
}

const transactionColumns = `id, user_id, date, category, type, description, vendor,
	original_amount, original_currency, converted_amount, converted_currency,
	conversion_rate, conversion_fee, created_at, updated_at`

const orderNewestFirst = " ORDER BY date DESC, created_at DESC, id DESC"

// Insert stores a new transaction.
//
// Parameters:
//   - tx: Fully normalized transaction with id and timestamps set
//
// Returns:
//   - error: Error if insert fails
func (r *Repository) Insert(ctx context.Context, tx domain.Transaction) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO transactions (`+transactionColumns+`, search_key)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, insertArgs(tx)...)
	if err != nil {
		return fmt.Errorf("failed to insert transaction %s: %w", tx.ID, err)
	}
	return nil
}

// GetByID retrieves a transaction owned by userID.
//
// Returns:
//   - *domain.Transaction: The transaction, nil if missing or owned by someone else
//   - error: Error if query fails
func (r *Repository) GetByID(ctx context.Context, userID, id string) (*domain.Transaction, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT "+transactionColumns+" FROM transactions WHERE id = ? AND user_id = ?",
		id, userID)

	tx, err := scanTransaction(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get transaction %s: %w", id, err)
	}
	return tx, nil
}

// Update overwrites every mutable field of a transaction owned by tx.UserID.
//
// Returns:
//   - bool: Whether a row was updated
//   - error: Error if update fails
func (r *Repository) Update(ctx context.Context, tx domain.Transaction) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE transactions SET
			date = ?, category = ?, type = ?, description = ?, vendor = ?,
			original_amount = ?, original_currency = ?,
			converted_amount = ?, converted_currency = ?,
			conversion_rate = ?, conversion_fee = ?, updated_at = ?, search_key = ?
		WHERE id = ? AND user_id = ?
	`,
		utils.DateToUnix(tx.Date), tx.Category, string(tx.Type), tx.Description, tx.Vendor,
		tx.OriginalAmount, tx.OriginalCurrency,
		tx.ConvertedAmount, tx.ConvertedCurrency,
		tx.ConversionRate, tx.ConversionFee, tx.UpdatedAt.UnixNano(), searchKey(tx),
		tx.ID, tx.UserID,
	)
	if err != nil {
		return false, fmt.Errorf("failed to update transaction %s: %w", tx.ID, err)
	}
	return affected(res)
}

// UpdateConversion replaces the converted side of a transaction, but only while it is
// still converted into expectedCurrency. Concurrent re-conversions therefore apply once.
//
// Returns:
//   - bool: Whether a row was updated
//   - error: Error if update fails
func (r *Repository) UpdateConversion(ctx context.Context, userID, id, expectedCurrency string, c domain.Conversion, updatedAt time.Time) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE transactions SET
			converted_amount = ?, converted_currency = ?,
			conversion_rate = ?, conversion_fee = ?, updated_at = ?
		WHERE id = ? AND user_id = ? AND converted_currency = ?
	`, c.ConvertedAmount, c.ConvertedCurrency, c.ConversionRate, c.ConversionFee, updatedAt.UnixNano(),
		id, userID, expectedCurrency)
	if err != nil {
		return false, fmt.Errorf("failed to update conversion of %s: %w", id, err)
	}
	return affected(res)
}

// Delete removes a transaction owned by userID.
//
// Returns:
//   - bool: Whether a row was removed
//   - error: Error if delete fails
func (r *Repository) Delete(ctx context.Context, userID, id string) (bool, error) {
	res, err := r.db.ExecContext(ctx, "DELETE FROM transactions WHERE id = ? AND user_id = ?", id, userID)
	if err != nil {
		return false, fmt.Errorf("failed to delete transaction %s: %w", id, err)
	}
	return affected(res)
}

// ListByDateRange returns the user's transactions whose calendar date lies within
// [start, end], both inclusive. A nil bound is open. Newest first.
func (r *Repository) ListByDateRange(ctx context.Context, userID string, start, end *time.Time) ([]domain.Transaction, error) {
	query := "SELECT " + transactionColumns + " FROM transactions WHERE user_id = ?"
	args := []interface{}{userID}

	if start != nil {
		query += " AND date >= ?"
		args = append(args, utils.DateToUnix(*start))
	}
	if end != nil {
		query += " AND date <= ?"
		args = append(args, utils.DateToUnix(*end))
	}
	query += orderNewestFirst

	return r.query(ctx, "list by date range", query, args...)
}

// Search returns up to limit transactions whose description, vendor or category contains
// query, ignoring case (Unicode folding via the stored search_key). Newest first.
func (r *Repository) Search(ctx context.Context, userID, query string, limit int) ([]domain.Transaction, error) {
	pattern := "%" + utils.EscapeLike(utils.FoldKey(query)) + "%"

	return r.query(ctx, "search", `
		SELECT `+transactionColumns+`
		FROM transactions
		WHERE user_id = ? AND search_key LIKE ? ESCAPE '`+utils.LikeEscapeChar+`'
	`+orderNewestFirst+" LIMIT ?",
		userID, pattern, limit)
}

// ListConvertedOtherThan returns the user's transactions whose converted currency is not currency
func (r *Repository) ListConvertedOtherThan(ctx context.Context, userID, currency string) ([]domain.Transaction, error) {
	return r.query(ctx, "list stale conversions",
		"SELECT "+transactionColumns+" FROM transactions WHERE user_id = ? AND converted_currency != ?"+orderNewestFirst,
		userID, currency)
}

// CountByUser returns how many transactions userID owns
func (r *Repository) CountByUser(ctx context.Context, userID string) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM transactions WHERE user_id = ?", userID).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count transactions: %w", err)
	}
	return n, nil
}

// DistinctUserIDs returns every user owning at least one transaction
func (r *Repository) DistinctUserIDs(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT DISTINCT user_id FROM transactions ORDER BY user_id")
	if err != nil {
		return nil, fmt.Errorf("failed to list transaction owners: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan owner: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// LegacyTransaction is a row of the older signed single-currency store
type LegacyTransaction struct {
	ID          int64
	UserID      string
	Date        string
	Amount      float64 // Signed: negative amounts are expenses
	Currency    string
	Category    string
	Description string
}

// ListUnmigratedLegacy returns the user's legacy rows not migrated yet, oldest first
func (r *Repository) ListUnmigratedLegacy(ctx context.Context, userID string) ([]LegacyTransaction, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, user_id, date, amount, COALESCE(currency, ''), COALESCE(category, ''), COALESCE(description, '')
		FROM legacy_transactions
		WHERE user_id = ? AND migrated_at IS NULL
		ORDER BY id
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query legacy transactions: %w", err)
	}
	defer rows.Close()

	var result []LegacyTransaction
	for rows.Next() {
		var lt LegacyTransaction
		if err := rows.Scan(&lt.ID, &lt.UserID, &lt.Date, &lt.Amount, &lt.Currency, &lt.Category, &lt.Description); err != nil {
			return nil, fmt.Errorf("failed to scan legacy transaction: %w", err)
		}
		result = append(result, lt)
	}
	return result, rows.Err()
}

// LegacyUserIDs returns every user with legacy rows still to migrate
func (r *Repository) LegacyUserIDs(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT DISTINCT user_id FROM legacy_transactions WHERE migrated_at IS NULL ORDER BY user_id")
	if err != nil {
		return nil, fmt.Errorf("failed to list legacy owners: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan legacy owner: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// LegacyTransactionID returns the stable id a migrated legacy row is stored under
func LegacyTransactionID(legacyID int64) string {
	return uuid.NewSHA1(legacyNamespace, []byte(fmt.Sprintf("legacy:%d", legacyID))).String()
}

// InsertMigrated stores a transaction converted from legacy row legacyID and marks the
// legacy row migrated, atomically. Re-running for the same row inserts nothing.
//
// Returns:
//   - bool: Whether a new transaction was inserted
//   - error: Error if the transaction fails
func (r *Repository) InsertMigrated(ctx context.Context, legacyID int64, tx domain.Transaction) (bool, error) {
	inserted := false

	err := database.WithTransaction(r.db, func(dbtx *sql.Tx) error {
		args := insertArgs(tx)
		args[12] = nil // Legacy rows never recorded a fee

		res, err := dbtx.ExecContext(ctx, `
			INSERT INTO transactions (`+transactionColumns+`, search_key)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(id) DO NOTHING
		`, args...)
		if err != nil {
			return fmt.Errorf("failed to insert migrated transaction: %w", err)
		}
		if n, _ := res.RowsAffected(); n > 0 {
			inserted = true
		}

		if _, err := dbtx.ExecContext(ctx,
			"UPDATE legacy_transactions SET migrated_at = ? WHERE id = ?",
			tx.CreatedAt.Unix(), legacyID); err != nil {
			return fmt.Errorf("failed to mark legacy transaction %d migrated: %w", legacyID, err)
		}
		return nil
	})

	return inserted, err
}

func (r *Repository) query(ctx context.Context, op, query string, args ...interface{}) ([]domain.Transaction, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to %s: %w", op, err)
	}
	defer rows.Close()

	var result []domain.Transaction
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		result = append(result, *tx)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating transactions: %w", err)
	}
	return result, nil
}

func insertArgs(tx domain.Transaction) []interface{} {
	return []interface{}{
		tx.ID, tx.UserID, utils.DateToUnix(tx.Date), tx.Category, string(tx.Type),
		tx.Description, tx.Vendor,
		tx.OriginalAmount, tx.OriginalCurrency,
		tx.ConvertedAmount, tx.ConvertedCurrency,
		tx.ConversionRate, tx.ConversionFee,
		tx.CreatedAt.UnixNano(), tx.UpdatedAt.UnixNano(),
		searchKey(tx),
	}
}

// searchKey joins the searchable fields with a unit separator so a query never
// matches across two fields
func searchKey(tx domain.Transaction) string {
	return utils.FoldKey(strings.Join([]string{tx.Description, tx.Vendor, tx.Category}, "\x1f"))
}

func scanTransaction(row interface{ Scan(...interface{}) error }) (*domain.Transaction, error) {
	var (
		tx                   domain.Transaction
		date                 int64
		txType               string
		fee                  sql.NullFloat64
		createdAt, updatedAt int64
	)
	err := row.Scan(
		&tx.ID, &tx.UserID, &date, &tx.Category, &txType, &tx.Description, &tx.Vendor,
		&tx.OriginalAmount, &tx.OriginalCurrency, &tx.ConvertedAmount, &tx.ConvertedCurrency,
		&tx.ConversionRate, &fee, &createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}

	tx.Date = utils.UnixToDate(date)
	tx.Type = domain.TransactionType(txType)
	tx.ConversionFee = fee.Float64
	tx.CreatedAt = time.Unix(0, createdAt).UTC()
	tx.UpdatedAt = time.Unix(0, updatedAt).UTC()

	// Rows written by older code may still carry signed amounts
	tx.NormalizeLegacySign()
	return &tx, nil
}

func affected(res sql.Result) (bool, error) {
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read affected rows: %w", err)
	}
	return n > 0, nil
}
