package analytics

import (
	"math"

	"github.com/Ahmed-aleryani/coinmind/internal/domain"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Health score weights and the savings rate that earns full savings credit
const (
	savingsWeight         = 0.6
	diversificationWeight = 0.4
	targetSavingsRate     = 0.2
)

// HealthLevel is the label for a health score range
type HealthLevel string

const (
	HealthExcellent HealthLevel = "excellent"       // 90-100
	HealthGood      HealthLevel = "good"            // 70-89
	HealthFair      HealthLevel = "fair"            // 50-69
	HealthAttention HealthLevel = "needs_attention" // 30-49
	HealthCritical  HealthLevel = "critical"        // 0-29
)

// LevelFor maps a score to its label
func LevelFor(score int) HealthLevel {
	switch {
	case score >= 90:
		return HealthExcellent
	case score >= 70:
		return HealthGood
	case score >= 50:
		return HealthFair
	case score >= 30:
		return HealthAttention
	default:
		return HealthCritical
	}
}

// Health is a financial health score in [0, 100] with its components
type Health struct {
	Score                 int         `json:"score"`
	Level                 HealthLevel `json:"level"`
	SavingsRate           float64     `json:"savings_rate"`           // (income - expenses) / income
	SavingsScore          float64     `json:"savings_score"`          // 0-1
	CategoryConcentration float64     `json:"category_concentration"` // Normalized HHI, 0 = even, 1 = single category
	VendorConcentration   float64     `json:"vendor_concentration"`
	DiversificationScore  float64     `json:"diversification_score"` // 0-1
	Factors               []string    `json:"factors"`
}

// HealthScore combines the savings rate with how concentrated spending is across
// categories and vendors. It is a pure function of txs.
func HealthScore(txs []domain.Transaction) Health {
	if len(txs) == 0 {
		return Health{Score: 0, Level: LevelFor(0), Factors: []string{"no transactions in range"}}
	}

	summary := Summarize(txs, "")
	h := Health{}

	switch {
	case summary.TotalIncome > 0:
		h.SavingsRate = (summary.TotalIncome - summary.TotalExpenses) / summary.TotalIncome
	case summary.TotalExpenses > 0:
		h.SavingsRate = -1
	}
	h.SavingsScore = clamp01(h.SavingsRate / targetSavingsRate)

	if summary.ExpenseCount == 0 {
		h.DiversificationScore = 1
	} else {
		h.CategoryConcentration = concentration(CategoryBreakdown(txs, domain.TransactionTypeExpense, 0))
		h.VendorConcentration = concentration(VendorBreakdown(txs, domain.TransactionTypeExpense, 0))
		h.DiversificationScore = 1 - stat.Mean([]float64{h.CategoryConcentration, h.VendorConcentration}, nil)
	}

	raw := 100 * (savingsWeight*h.SavingsScore + diversificationWeight*h.DiversificationScore)
	h.Score = int(math.Round(math.Max(0, math.Min(100, raw))))
	h.Level = LevelFor(h.Score)
	h.Factors = healthFactors(h, summary)

	return h
}

// concentration returns the normalized Herfindahl-Hirschman index of the group totals:
// 0 when spending is spread evenly, 1 when it all sits in one group.
func concentration(items []BreakdownItem) float64 {
	if len(items) == 0 {
		return 0
	}
	if len(items) == 1 {
		return 1
	}

	shares := make([]float64, len(items))
	for i, it := range items {
		shares[i] = it.Total
	}
	total := floats.Sum(shares)
	if total <= 0 {
		return 0
	}
	floats.Scale(1/total, shares)

	hhi := floats.Dot(shares, shares)
	n := float64(len(shares))
	return clamp01((hhi - 1/n) / (1 - 1/n))
}

func healthFactors(h Health, s Summary) []string {
	var factors []string
	switch {
	case s.TotalIncome == 0 && s.TotalExpenses > 0:
		factors = append(factors, "no income recorded against expenses")
	case h.SavingsRate < 0:
		factors = append(factors, "spending exceeds income")
	case h.SavingsRate >= targetSavingsRate:
		factors = append(factors, "saving at least 20% of income")
	default:
		factors = append(factors, "saving less than 20% of income")
	}
	if h.CategoryConcentration > 0.5 {
		factors = append(factors, "spending concentrated in few categories")
	}
	if h.VendorConcentration > 0.5 {
		factors = append(factors, "spending concentrated at few vendors")
	}
	return factors
}

func clamp01(f float64) float64 {
	if math.IsNaN(f) {
		return 0
	}
	return math.Max(0, math.Min(1, f))
}
