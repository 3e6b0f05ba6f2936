package analytics

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Ahmed-aleryani/coinmind/internal/domain"
	"github.com/Ahmed-aleryani/coinmind/internal/modules/currency"
	"github.com/Ahmed-aleryani/coinmind/internal/utils"
	"github.com/rs/zerolog"
)

// prefetchConcurrency bounds concurrent rate lookups within one aggregation call
const prefetchConcurrency = 4

// Reconciliation describes the read-time re-conversion done for one aggregation call
type Reconciliation struct {
	Reconverted int `json:"reconverted"`  // Rows re-normalized into the reporting currency
	Degraded    int `json:"degraded"`     // Rows whose rate lookup failed and kept their original amount
	RateLookups int `json:"rate_lookups"` // Distinct currency pairs looked up
}

// Engine aggregates transactions into a reporting currency
type Engine struct {
	normalizer *currency.Normalizer
	rates      currency.RateSource
	log        zerolog.Logger
}

// NewEngine creates a new aggregation engine
func NewEngine(normalizer *currency.Normalizer, rates currency.RateSource, log zerolog.Logger) *Engine {
	return &Engine{
		normalizer: normalizer,
		rates:      rates,
		log:        log.With().Str("service", "analytics").Logger(),
	}
}

// Reconcile returns a copy of txs with every amount expressed in reportCurrency.
// Rows already converted into reportCurrency are kept as stored. Other rows are
// re-normalized from their original amount; storage is never touched. Each distinct
// currency pair is looked up at most once per call.
func (e *Engine) Reconcile(ctx context.Context, txs []domain.Transaction, reportCurrency string) ([]domain.Transaction, Reconciliation, error) {
	var stats Reconciliation

	reportCurrency, err := utils.NormalizeCurrencyCode(reportCurrency)
	if err != nil {
		return nil, stats, fmt.Errorf("%w: reporting currency: %v", currency.ErrInvalidInput, err)
	}

	out := make([]domain.Transaction, len(txs))
	copy(out, txs)

	seen := make(map[currency.Pair]bool)
	var pairs []currency.Pair
	for _, tx := range out {
		if tx.ConvertedCurrency == reportCurrency || tx.OriginalCurrency == reportCurrency {
			continue
		}
		p := currency.Pair{From: tx.OriginalCurrency, To: reportCurrency}
		if !seen[p] {
			seen[p] = true
			pairs = append(pairs, p)
		}
	}

	memo := currency.NewRateMemo(e.rates)
	if err := memo.Prefetch(ctx, pairs, prefetchConcurrency); err != nil {
		return nil, stats, err
	}
	normalizer := e.normalizer.WithRateSource(memo)

	for i := range out {
		tx := &out[i]
		if tx.ConvertedCurrency == reportCurrency {
			continue
		}

		res, err := normalizer.Normalize(ctx, currency.FromLegacyAmount(tx.OriginalAmount, tx.OriginalCurrency), reportCurrency)
		if err != nil {
			return nil, stats, fmt.Errorf("transaction %s: %w", tx.ID, err)
		}
		if res.Degraded {
			stats.Degraded++
		} else {
			stats.Reconverted++
		}
		tx.Conversion = res.Conversion
	}

	stats.RateLookups = memo.Lookups()

	if stats.Degraded > 0 {
		e.log.Warn().
			Str("currency", reportCurrency).
			Int("degraded", stats.Degraded).
			Msg("Some transactions could not be converted for reporting")
	}

	return out, stats, nil
}

// Stats is a summary with its reconciliation details
type Stats struct {
	Summary        Summary        `json:"summary"`
	Reconciliation Reconciliation `json:"reconciliation"`
}

// Stats summarizes txs in reportCurrency
func (e *Engine) Stats(ctx context.Context, txs []domain.Transaction, reportCurrency string) (Stats, error) {
	reconciled, rec, err := e.Reconcile(ctx, txs, reportCurrency)
	if err != nil {
		return Stats{}, err
	}
	return Stats{Summary: Summarize(reconciled, reportCode(reportCurrency)), Reconciliation: rec}, nil
}

// ReportOptions configures Report
type ReportOptions struct {
	Currency    string
	TopN        int
	Granularity Granularity
	From        time.Time // Zero = earliest transaction
	To          time.Time // Zero = latest transaction
}

// Report is the full set of derived views over one range
type Report struct {
	Summary          Summary         `json:"summary"`
	Categories       []BreakdownItem `json:"categories"`
	IncomeCategories []BreakdownItem `json:"income_categories"`
	Vendors          []BreakdownItem `json:"vendors"`
	Trends           []Bucket        `json:"trends"`
	Granularity      Granularity     `json:"granularity"`
	Health           Health          `json:"health"`
	Reconciliation   Reconciliation  `json:"reconciliation"`
	GeneratedAt      time.Time       `json:"generated_at"`
}

// Report computes the summary, expense breakdowns, trends and health score of txs
func (e *Engine) Report(ctx context.Context, txs []domain.Transaction, opts ReportOptions) (Report, error) {
	defer utils.OperationTimer("analytics_report", e.log)()

	if opts.Granularity == "" {
		opts.Granularity = GranularityMonth
	}

	reconciled, rec, err := e.Reconcile(ctx, txs, opts.Currency)
	if err != nil {
		return Report{}, err
	}
	cur := reportCode(opts.Currency)

	return Report{
		Summary:          Summarize(reconciled, cur),
		Categories:       CategoryBreakdown(reconciled, domain.TransactionTypeExpense, opts.TopN),
		IncomeCategories: CategoryBreakdown(reconciled, domain.TransactionTypeIncome, opts.TopN),
		Vendors:          VendorBreakdown(reconciled, domain.TransactionTypeExpense, opts.TopN),
		Trends:           Trends(reconciled, opts.Granularity, opts.From, opts.To),
		Granularity:      opts.Granularity,
		Health:           HealthScore(reconciled),
		Reconciliation:   rec,
		GeneratedAt:      time.Now().UTC(),
	}, nil
}

// Trends reconciles txs and buckets them
func (e *Engine) Trends(ctx context.Context, txs []domain.Transaction, reportCurrency string, g Granularity, from, to time.Time) ([]Bucket, Reconciliation, error) {
	reconciled, rec, err := e.Reconcile(ctx, txs, reportCurrency)
	if err != nil {
		return nil, rec, err
	}
	return Trends(reconciled, g, from, to), rec, nil
}

// Health reconciles txs and scores them
func (e *Engine) Health(ctx context.Context, txs []domain.Transaction, reportCurrency string) (Health, Reconciliation, error) {
	reconciled, rec, err := e.Reconcile(ctx, txs, reportCurrency)
	if err != nil {
		return Health{}, rec, err
	}
	return HealthScore(reconciled), rec, nil
}

// Compare reconciles both transaction sets into reportCurrency with one shared set of
// rate lookups and compares their expenses.
func (e *Engine) Compare(ctx context.Context, baselineTxs, currentTxs []domain.Transaction, baseline, current Period, reportCurrency string) (Comparison, Reconciliation, error) {
	all := make([]domain.Transaction, 0, len(baselineTxs)+len(currentTxs))
	all = append(all, baselineTxs...)
	all = append(all, currentTxs...)

	reconciled, rec, err := e.Reconcile(ctx, all, reportCurrency)
	if err != nil {
		return Comparison{}, rec, err
	}

	cmp, err := ComparePeriods(reconciled[:len(baselineTxs)], reconciled[len(baselineTxs):], baseline, current, reportCode(reportCurrency))
	return cmp, rec, err
}

// reportCode returns the reporting currency label as Reconcile normalized it
func reportCode(reportCurrency string) string {
	return strings.ToUpper(strings.TrimSpace(reportCurrency))
}
