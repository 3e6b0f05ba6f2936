package analytics

import (
	"context"
	"fmt"
	"time"

	"github.com/Ahmed-aleryani/coinmind/internal/domain"
	"github.com/rs/zerolog"
)

// MaxBuckets bounds the number of buckets one trend request may produce
const MaxBuckets = 366

// TransactionReader loads a user's transactions within an inclusive date range
type TransactionReader interface {
	FindByDateRange(ctx context.Context, userID string, start, end *time.Time) ([]domain.Transaction, error)
}

// CurrencySource resolves a user's current default currency
type CurrencySource interface {
	DefaultCurrency(ctx context.Context, userID string) (string, error)
}

// Range is an optional inclusive date range; nil bounds are open
type Range struct {
	Start *time.Time
	End   *time.Time
}

// Service loads a user's transactions and runs the engine over them
type Service struct {
	engine     *Engine
	reader     TransactionReader
	currencies CurrencySource
	log        zerolog.Logger
}

// NewService creates a new analytics service
func NewService(engine *Engine, reader TransactionReader, currencies CurrencySource, log zerolog.Logger) *Service {
	return &Service{
		engine:     engine,
		reader:     reader,
		currencies: currencies,
		log:        log.With().Str("service", "analytics_reports").Logger(),
	}
}

// reportCurrency returns code, or the user's default when code is empty
func (s *Service) reportCurrency(ctx context.Context, userID, code string) (string, error) {
	if code != "" {
		return code, nil
	}
	return s.currencies.DefaultCurrency(ctx, userID)
}

func (s *Service) load(ctx context.Context, userID string, rng Range, code string) ([]domain.Transaction, string, error) {
	cur, err := s.reportCurrency(ctx, userID, code)
	if err != nil {
		return nil, "", err
	}
	txs, err := s.reader.FindByDateRange(ctx, userID, rng.Start, rng.End)
	if err != nil {
		return nil, "", err
	}
	return txs, cur, nil
}

// Stats summarizes the user's transactions in rng
func (s *Service) Stats(ctx context.Context, userID string, rng Range, code string) (Stats, error) {
	txs, cur, err := s.load(ctx, userID, rng, code)
	if err != nil {
		return Stats{}, err
	}
	return s.engine.Stats(ctx, txs, cur)
}

// Report builds the full report of the user's transactions in rng.
// Trend buckets span rng when both bounds are set.
func (s *Service) Report(ctx context.Context, userID string, rng Range, opts ReportOptions) (Report, error) {
	txs, cur, err := s.load(ctx, userID, rng, opts.Currency)
	if err != nil {
		return Report{}, err
	}
	opts.Currency = cur
	if opts.Granularity == "" {
		opts.Granularity = GranularityMonth
	}
	if rng.Start != nil && rng.End != nil {
		opts.From, opts.To = *rng.Start, *rng.End
	}
	if err := checkBuckets(opts.Granularity, opts.From, opts.To, txs); err != nil {
		return Report{}, err
	}
	return s.engine.Report(ctx, txs, opts)
}

// Trends buckets the user's transactions in rng
func (s *Service) Trends(ctx context.Context, userID string, rng Range, g Granularity, code string) ([]Bucket, Reconciliation, error) {
	txs, cur, err := s.load(ctx, userID, rng, code)
	if err != nil {
		return nil, Reconciliation{}, err
	}
	var from, to time.Time
	if rng.Start != nil {
		from = *rng.Start
	}
	if rng.End != nil {
		to = *rng.End
	}
	if err := checkBuckets(g, from, to, txs); err != nil {
		return nil, Reconciliation{}, err
	}
	return s.engine.Trends(ctx, txs, cur, g, from, to)
}

// Health scores the user's transactions in rng
func (s *Service) Health(ctx context.Context, userID string, rng Range, code string) (Health, Reconciliation, error) {
	txs, cur, err := s.load(ctx, userID, rng, code)
	if err != nil {
		return Health{}, Reconciliation{}, err
	}
	return s.engine.Health(ctx, txs, cur)
}

// Compare compares the user's expenses in baseline and current
func (s *Service) Compare(ctx context.Context, userID string, baseline, current Period, code string) (Comparison, Reconciliation, error) {
	if err := baseline.Validate(); err != nil {
		return Comparison{}, Reconciliation{}, fmt.Errorf("period1: %w", err)
	}
	if err := current.Validate(); err != nil {
		return Comparison{}, Reconciliation{}, fmt.Errorf("period2: %w", err)
	}
	if baseline.Overlaps(current) {
		return Comparison{}, Reconciliation{}, ErrOverlappingPeriods
	}

	cur, err := s.reportCurrency(ctx, userID, code)
	if err != nil {
		return Comparison{}, Reconciliation{}, err
	}

	baselineTxs, err := s.reader.FindByDateRange(ctx, userID, &baseline.Start, &baseline.End)
	if err != nil {
		return Comparison{}, Reconciliation{}, err
	}
	currentTxs, err := s.reader.FindByDateRange(ctx, userID, &current.Start, &current.End)
	if err != nil {
		return Comparison{}, Reconciliation{}, err
	}

	return s.engine.Compare(ctx, baselineTxs, currentTxs, baseline, current, cur)
}

// checkBuckets rejects ranges that would produce more than MaxBuckets trend buckets
func checkBuckets(g Granularity, from, to time.Time, txs []domain.Transaction) error {
	if from.IsZero() || to.IsZero() {
		minDate, maxDate := dateSpan(txs)
		if from.IsZero() {
			from = minDate
		}
		if to.IsZero() {
			to = maxDate
		}
	}
	if n := bucketCount(g, from, to); n > MaxBuckets {
		return &RangeError{Granularity: g, Buckets: n}
	}
	return nil
}

// bucketCount returns how many buckets of width g span from through to
func bucketCount(g Granularity, from, to time.Time) int {
	if from.IsZero() || to.IsZero() || to.Before(from) {
		return 0
	}
	first, last := BucketStart(from, g), BucketStart(to, g)
	switch g {
	case GranularityMonth:
		return (last.Year()-first.Year())*12 + int(last.Month()) - int(first.Month()) + 1
	case GranularityWeek:
		return int(last.Sub(first).Hours()/(24*7)) + 1
	default:
		return int(last.Sub(first).Hours()/24) + 1
	}
}

// RangeError reports a trend range too long for its granularity
type RangeError struct {
	Granularity Granularity
	Buckets     int
}

func (e *RangeError) Error() string {
	msg := fmt.Sprintf("range needs %d %s buckets, more than the limit of %d", e.Buckets, e.Granularity, MaxBuckets)
	if e.Granularity != GranularityMonth {
		msg += "; use a coarser granularity"
	}
	return msg
}
