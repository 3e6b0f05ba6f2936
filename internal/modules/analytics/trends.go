package analytics

import (
	"fmt"
	"strings"
	"time"

	"github.com/Ahmed-aleryani/coinmind/internal/domain"
	"github.com/Ahmed-aleryani/coinmind/internal/utils"
	"github.com/shopspring/decimal"
)

// Granularity is the width of a trend bucket
type Granularity string

const (
	GranularityDay   Granularity = "day"
	GranularityWeek  Granularity = "week" // Weeks start on Monday
	GranularityMonth Granularity = "month"
)

// ParseGranularity parses a granularity label; empty means month
func ParseGranularity(s string) (Granularity, error) {
	switch g := Granularity(strings.ToLower(strings.TrimSpace(s))); g {
	case "":
		return GranularityMonth, nil
	case GranularityDay, GranularityWeek, GranularityMonth:
		return g, nil
	default:
		return "", fmt.Errorf("unknown granularity %q (expected day, week or month)", s)
	}
}

// Bucket aggregates transactions whose calendar date lies in [Start, End)
type Bucket struct {
	Start    time.Time `json:"start"`
	End      time.Time `json:"end"`
	Income   float64   `json:"income"`
	Expenses float64   `json:"expenses"`
	Net      float64   `json:"net"`
	Count    int       `json:"count"`
}

// BucketStart returns the start of the bucket containing date, in UTC
func BucketStart(date time.Time, g Granularity) time.Time {
	d := utils.ToDate(date.UTC())
	switch g {
	case GranularityWeek:
		offset := (int(d.Weekday()) + 6) % 7 // Monday = 0
		return d.AddDate(0, 0, -offset)
	case GranularityMonth:
		return time.Date(d.Year(), d.Month(), 1, 0, 0, 0, 0, time.UTC)
	default:
		return d
	}
}

// nextBucket returns the exclusive end of the bucket starting at start
func nextBucket(start time.Time, g Granularity) time.Time {
	switch g {
	case GranularityWeek:
		return start.AddDate(0, 0, 7)
	case GranularityMonth:
		return start.AddDate(0, 1, 0)
	default:
		return start.AddDate(0, 0, 1)
	}
}

// Trends groups txs into contiguous buckets covering [from, to] (calendar dates, inclusive).
// Zero from/to default to the earliest/latest transaction date. Empty buckets are kept
// so series have no gaps. Transactions outside the range are ignored.
func Trends(txs []domain.Transaction, g Granularity, from, to time.Time) []Bucket {
	if len(txs) == 0 && (from.IsZero() || to.IsZero()) {
		return []Bucket{}
	}

	if from.IsZero() || to.IsZero() {
		minDate, maxDate := dateSpan(txs)
		if from.IsZero() {
			from = minDate
		}
		if to.IsZero() {
			to = maxDate
		}
	}
	if to.Before(from) {
		return []Bucket{}
	}

	type acc struct {
		income, expenses decimal.Decimal
		count            int
	}

	var starts []time.Time
	accs := make(map[time.Time]*acc)
	for s := BucketStart(from, g); !s.After(utils.ToDate(to.UTC())); s = nextBucket(s, g) {
		starts = append(starts, s)
		accs[s] = &acc{income: decimal.Zero, expenses: decimal.Zero}
	}

	lo := utils.ToDate(from.UTC())
	hi := utils.ToDate(to.UTC())
	for _, tx := range txs {
		d := utils.ToDate(tx.Date.UTC())
		if d.Before(lo) || d.After(hi) {
			continue
		}
		a := accs[BucketStart(d, g)]
		amount := decimal.NewFromFloat(tx.ConvertedAmount).Abs()
		if tx.Type == domain.TransactionTypeIncome {
			a.income = a.income.Add(amount)
		} else {
			a.expenses = a.expenses.Add(amount)
		}
		a.count++
	}

	buckets := make([]Bucket, 0, len(starts))
	for _, s := range starts {
		a := accs[s]
		buckets = append(buckets, Bucket{
			Start:    s,
			End:      nextBucket(s, g),
			Income:   a.income.InexactFloat64(),
			Expenses: a.expenses.InexactFloat64(),
			Net:      a.income.Sub(a.expenses).InexactFloat64(),
			Count:    a.count,
		})
	}
	return buckets
}

func dateSpan(txs []domain.Transaction) (time.Time, time.Time) {
	var minDate, maxDate time.Time
	for i, tx := range txs {
		d := utils.ToDate(tx.Date.UTC())
		if i == 0 || d.Before(minDate) {
			minDate = d
		}
		if i == 0 || d.After(maxDate) {
			maxDate = d
		}
	}
	return minDate, maxDate
}
