package analytics

import (
	"errors"
	"fmt"
	"time"

	"github.com/Ahmed-aleryani/coinmind/internal/domain"
	"github.com/Ahmed-aleryani/coinmind/internal/utils"
	"github.com/shopspring/decimal"
)

// ErrOverlappingPeriods is returned when comparison periods share a date
var ErrOverlappingPeriods = errors.New("comparison periods overlap")

// Trend is the direction of a period-over-period change
type Trend string

const (
	TrendIncreasing Trend = "increasing"
	TrendDecreasing Trend = "decreasing"
	TrendStable     Trend = "stable"
)

// Period is an inclusive calendar-date range
type Period struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Validate checks the period is not inverted
func (p Period) Validate() error {
	if p.Start.IsZero() || p.End.IsZero() {
		return fmt.Errorf("period start and end are required")
	}
	if utils.ToDate(p.End).Before(utils.ToDate(p.Start)) {
		return fmt.Errorf("period end %s is before start %s", utils.FormatDate(p.End), utils.FormatDate(p.Start))
	}
	return nil
}

// Contains reports whether date falls within the period, both bounds inclusive
func (p Period) Contains(date time.Time) bool {
	d := utils.ToDate(date)
	return !d.Before(utils.ToDate(p.Start)) && !d.After(utils.ToDate(p.End))
}

// Overlaps reports whether the two periods share at least one date
func (p Period) Overlaps(other Period) bool {
	return !utils.ToDate(p.End).Before(utils.ToDate(other.Start)) &&
		!utils.ToDate(other.End).Before(utils.ToDate(p.Start))
}

// Comparison reports the change in expenses from a baseline period to a current one
type Comparison struct {
	Currency         string  `json:"currency"`
	Baseline         Period  `json:"period1"`
	Current          Period  `json:"period2"`
	BaselineTotal    float64 `json:"period1_total"`
	CurrentTotal     float64 `json:"period2_total"`
	ChangeAmount     float64 `json:"change_amount"`     // CurrentTotal - BaselineTotal
	ChangePercentage float64 `json:"change_percentage"` // 0 when BaselineTotal is 0
	Trend            Trend   `json:"trend"`
}

// ExpenseTotal sums expense amounts of txs dated within p
func ExpenseTotal(txs []domain.Transaction, p Period) decimal.Decimal {
	total := decimal.Zero
	for _, tx := range txs {
		if tx.Type != domain.TransactionTypeExpense || !p.Contains(tx.Date) {
			continue
		}
		total = total.Add(decimal.NewFromFloat(tx.ConvertedAmount).Abs())
	}
	return total
}

// ComparePeriods compares total expenses of baseline and current.
// Trend is stable only when the change is exactly zero.
func ComparePeriods(baselineTxs, currentTxs []domain.Transaction, baseline, current Period, currency string) (Comparison, error) {
	if err := baseline.Validate(); err != nil {
		return Comparison{}, fmt.Errorf("period1: %w", err)
	}
	if err := current.Validate(); err != nil {
		return Comparison{}, fmt.Errorf("period2: %w", err)
	}
	if baseline.Overlaps(current) {
		return Comparison{}, ErrOverlappingPeriods
	}

	t1 := ExpenseTotal(baselineTxs, baseline)
	t2 := ExpenseTotal(currentTxs, current)
	change := t2.Sub(t1)

	c := Comparison{
		Currency:      currency,
		Baseline:      baseline,
		Current:       current,
		BaselineTotal: t1.InexactFloat64(),
		CurrentTotal:  t2.InexactFloat64(),
		ChangeAmount:  change.InexactFloat64(),
		Trend:         TrendStable,
	}

	if !t1.IsZero() {
		c.ChangePercentage = change.Div(t1).Mul(decimal.NewFromInt(100)).Round(2).InexactFloat64()
	}

	switch change.Sign() {
	case 1:
		c.Trend = TrendIncreasing
	case -1:
		c.Trend = TrendDecreasing
	}

	return c, nil
}
