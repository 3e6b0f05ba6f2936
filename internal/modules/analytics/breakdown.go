package analytics

import (
	"sort"
	"strings"

	"github.com/Ahmed-aleryani/coinmind/internal/domain"
	"github.com/shopspring/decimal"
)

// UnknownVendor labels transactions without a vendor in vendor breakdowns
const UnknownVendor = "Unknown"

// BreakdownItem is one group of a category or vendor breakdown
type BreakdownItem struct {
	Name       string  `json:"name"`
	Total      float64 `json:"total"`
	Count      int     `json:"count"`
	Percentage float64 `json:"percentage"` // Share of the breakdown's grand total, 0-100
}

// CategoryBreakdown groups transactions of txType by category.
// See breakdown for ordering and truncation.
func CategoryBreakdown(txs []domain.Transaction, txType domain.TransactionType, topN int) []BreakdownItem {
	return breakdown(txs, txType, topN, func(tx domain.Transaction) string {
		return tx.Category
	})
}

// VendorBreakdown groups transactions of txType by vendor. Missing vendors group under UnknownVendor.
func VendorBreakdown(txs []domain.Transaction, txType domain.TransactionType, topN int) []BreakdownItem {
	return breakdown(txs, txType, topN, func(tx domain.Transaction) string {
		if v := strings.TrimSpace(tx.Vendor); v != "" {
			return v
		}
		return UnknownVendor
	})
}

// breakdown sums absolute converted amounts per key, sorted by total descending.
// Equal totals keep the order in which their key first appeared in txs.
// topN <= 0 returns every group. An empty txType includes both types.
func breakdown(txs []domain.Transaction, txType domain.TransactionType, topN int, key func(domain.Transaction) string) []BreakdownItem {
	type group struct {
		name  string
		total decimal.Decimal
		count int
	}

	index := make(map[string]int)
	var groups []*group
	grand := decimal.Zero

	for _, tx := range txs {
		if txType != "" && tx.Type != txType {
			continue
		}
		k := key(tx)
		i, ok := index[k]
		if !ok {
			i = len(groups)
			index[k] = i
			groups = append(groups, &group{name: k, total: decimal.Zero})
		}
		amount := decimal.NewFromFloat(tx.ConvertedAmount).Abs()
		groups[i].total = groups[i].total.Add(amount)
		groups[i].count++
		grand = grand.Add(amount)
	}

	sort.SliceStable(groups, func(a, b int) bool {
		return groups[a].total.GreaterThan(groups[b].total)
	})

	if topN > 0 && len(groups) > topN {
		groups = groups[:topN]
	}

	items := make([]BreakdownItem, 0, len(groups))
	hundred := decimal.NewFromInt(100)
	for _, g := range groups {
		item := BreakdownItem{
			Name:  g.name,
			Total: g.total.InexactFloat64(),
			Count: g.count,
		}
		if grand.IsPositive() {
			item.Percentage = g.total.Mul(hundred).Div(grand).Round(2).InexactFloat64()
		}
		items = append(items, item)
	}

	return items
}
