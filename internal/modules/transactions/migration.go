package transactions

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Ahmed-aleryani/coinmind/internal/domain"
	"github.com/Ahmed-aleryani/coinmind/internal/modules/currency"
	"github.com/Ahmed-aleryani/coinmind/internal/utils"
)

// MigrationReport summarizes a bulk operation. Rows are processed independently:
// one failing row does not stop or roll back the others.
type MigrationReport struct {
	Users   int      `json:"users"`
	Scanned int      `json:"scanned"`
	Updated int      `json:"updated"`
	Skipped int      `json:"skipped"` // Already up to date or changed concurrently
	Failed  int      `json:"failed"`
	Errors  []string `json:"errors,omitempty"`
}

func (r *MigrationReport) fail(format string, args ...interface{}) {
	r.Failed++
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
}

func (r *MigrationReport) merge(other MigrationReport) {
	r.Users += other.Users
	r.Scanned += other.Scanned
	r.Updated += other.Updated
	r.Skipped += other.Skipped
	r.Failed += other.Failed
	r.Errors = append(r.Errors, other.Errors...)
}

// Reconvert rewrites the converted side of every user transaction whose converted currency
// is not the user's current default. Rows are re-normalized from their original amount.
// Rows whose rate lookup fails are left as they are and counted as failed.
func (s *Store) Reconvert(ctx context.Context, userID string) (MigrationReport, error) {
	defer utils.OperationTimer("reconvert", s.log)()

	report := MigrationReport{Users: 1}

	target, err := s.profiles.DefaultCurrency(ctx, userID)
	if err != nil {
		return report, persistenceErr("resolve profile", err)
	}

	stale, err := s.repo.ListConvertedOtherThan(ctx, userID, target)
	if err != nil {
		return report, persistenceErr("list stale conversions", err)
	}

	normalizer := s.normalizer.WithRateSource(currency.NewRateMemo(s.rates))

	for _, tx := range stale {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		report.Scanned++

		res, err := normalizer.Normalize(ctx, currency.FromLegacyAmount(tx.OriginalAmount, tx.OriginalCurrency), target)
		if err != nil {
			report.fail("%s: %v", tx.ID, err)
			continue
		}
		if res.Degraded {
			report.fail("%s: %s->%s: %v", tx.ID, tx.OriginalCurrency, target, res.Warning)
			continue
		}

		ok, err := s.repo.UpdateConversion(ctx, userID, tx.ID, tx.ConvertedCurrency, res.Conversion, s.now().UTC())
		if err != nil {
			report.fail("%s: %v", tx.ID, err)
			continue
		}
		if ok {
			report.Updated++
		} else {
			report.Skipped++
		}
	}

	s.log.Info().
		Str("user_id", userID).
		Str("currency", target).
		Int("scanned", report.Scanned).
		Int("updated", report.Updated).
		Int("failed", report.Failed).
		Msg("Re-conversion finished")

	return report, nil
}

// ReconvertAll runs Reconvert for every user owning transactions
func (s *Store) ReconvertAll(ctx context.Context) (MigrationReport, error) {
	var total MigrationReport

	users, err := s.repo.DistinctUserIDs(ctx)
	if err != nil {
		return total, persistenceErr("list users", err)
	}

	for _, userID := range users {
		report, err := s.Reconvert(ctx, userID)
		total.merge(report)
		if err != nil {
			if ctx.Err() != nil {
				return total, err
			}
			total.fail("user %s: %v", userID, err)
		}
	}
	return total, nil
}

// MigrateLegacy copies the user's signed single-currency legacy rows into the transactions
// table. A negative amount becomes an expense and a positive one income. Amounts keep their
// own currency at rate 1 (a later Reconvert moves them to the default currency).
// Already migrated rows are skipped, so re-running is safe.
func (s *Store) MigrateLegacy(ctx context.Context, userID string) (MigrationReport, error) {
	report := MigrationReport{Users: 1}

	fallback, err := s.profiles.DefaultCurrency(ctx, userID)
	if err != nil {
		return report, persistenceErr("resolve profile", err)
	}

	rows, err := s.repo.ListUnmigratedLegacy(ctx, userID)
	if err != nil {
		return report, persistenceErr("list legacy", err)
	}

	for _, lt := range rows {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		report.Scanned++

		tx, err := s.fromLegacy(ctx, lt, fallback)
		if err != nil {
			report.fail("legacy %d: %v", lt.ID, err)
			continue
		}

		inserted, err := s.repo.InsertMigrated(ctx, lt.ID, tx)
		if err != nil {
			report.fail("legacy %d: %v", lt.ID, err)
			continue
		}
		if inserted {
			report.Updated++
		} else {
			report.Skipped++
		}
	}

	s.log.Info().
		Str("user_id", userID).
		Int("scanned", report.Scanned).
		Int("migrated", report.Updated).
		Int("failed", report.Failed).
		Msg("Legacy migration finished")

	return report, nil
}

// MigrateAllLegacy runs MigrateLegacy for every user with unmigrated legacy rows
func (s *Store) MigrateAllLegacy(ctx context.Context) (MigrationReport, error) {
	var total MigrationReport

	users, err := s.repo.LegacyUserIDs(ctx)
	if err != nil {
		return total, persistenceErr("list legacy users", err)
	}

	for _, userID := range users {
		report, err := s.MigrateLegacy(ctx, userID)
		total.merge(report)
		if err != nil {
			if ctx.Err() != nil {
				return total, err
			}
			total.fail("user %s: %v", userID, err)
		}
	}
	return total, nil
}

func (s *Store) fromLegacy(ctx context.Context, lt LegacyTransaction, fallbackCurrency string) (domain.Transaction, error) {
	date, err := parseLegacyDate(lt.Date)
	if err != nil {
		return domain.Transaction{}, err
	}

	code := strings.TrimSpace(lt.Currency)
	if code == "" {
		code = fallbackCurrency
	}

	input := currency.FromLegacyAmount(lt.Amount, code)
	res, err := s.normalizer.Normalize(ctx, input, code)
	if err != nil {
		return domain.Transaction{}, err
	}

	txType := domain.TransactionTypeIncome
	if input.Negative() {
		txType = domain.TransactionTypeExpense
	}

	cat, err := s.categories.Resolve(ctx, lt.UserID, lt.Category, txType)
	if err != nil {
		return domain.Transaction{}, err
	}

	now := s.now().UTC()
	return domain.Transaction{
		ID:          LegacyTransactionID(lt.ID),
		UserID:      lt.UserID,
		Date:        date,
		Category:    cat.Name,
		Type:        txType,
		Description: strings.TrimSpace(lt.Description),
		Conversion:  res.Conversion,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

// parseLegacyDate accepts the YYYY-MM-DD and RFC 3339 forms older rows were written in
func parseLegacyDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if d, err := utils.ParseDate(s); err == nil {
		return d, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("unparseable date %q", s)
	}
	return utils.ToDate(t.UTC()), nil
}
