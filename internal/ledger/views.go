package ledger

import (
	"sort"
	"time"

	"shoptracker/internal/core"
)

// Aggregation views are pure derivations over the current transaction
// snapshot, recomputed on every call. Nothing here writes.

// ItemExpense is one row of the top-expenses ranking, folded by the
// denormalized item name.
type ItemExpense struct {
	Name  string  `json:"name"`
	Total float64 `json:"total"`
}

// ShopSession is the set of transactions for one shop on one calendar day.
type ShopSession struct {
	Date         string             `json:"date"` // "2026-02-15"
	Total        float64            `json:"total"`
	Transactions []core.Transaction `json:"transactions"`
}

// ShopGroup partitions a shop's transactions into day sessions, newest
// day first.
type ShopGroup struct {
	ShopName string        `json:"shopName"`
	Sessions []ShopSession `json:"sessions"`
}

// MonthlyTotal sums totalCost over transactions dated in the given
// calendar month.
func (l *Ledger) MonthlyTotal(month time.Month, year int) float64 {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var total float64
	for _, t := range l.txns {
		if t.Date.Month() == month && t.Date.Year() == year {
			total += t.TotalCost
		}
	}
	return core.RoundMoney(total)
}

// ItemHistory returns every transaction referencing the item, most recent
// first. Identical timestamps tie-break on transaction id, descending, so
// the order is deterministic.
func (l *Ledger) ItemHistory(itemID string) []core.Transaction {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var out []core.Transaction
	for _, t := range l.txns {
		if t.ItemID == itemID {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.After(out[j].Date)
		}
		return out[i].ID > out[j].ID
	})
	return out
}

// ItemTrend returns the price trend of the item's most recent transaction,
// stable when the item has none.
func (l *Ledger) ItemTrend(itemID string) core.Trend {
	history := l.ItemHistory(itemID)
	if len(history) == 0 {
		return core.TrendStable
	}
	return history[0].PriceTrend
}

// ItemPriceChange returns the integer percent change between the item's
// two most recent unit prices, 0 when fewer than two purchases exist.
func (l *Ledger) ItemPriceChange(itemID string) int {
	history := l.ItemHistory(itemID)
	if len(history) < 2 {
		return 0
	}
	return core.PercentChange(history[1].PricePerUnit, history[0].PricePerUnit)
}

// RecentTransactions returns the newest transactions by date, up to limit.
func (l *Ledger) RecentTransactions(limit int) []core.Transaction {
	l.mu.RLock()
	out := append([]core.Transaction(nil), l.txns...)
	l.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.After(out[j].Date)
		}
		return out[i].ID > out[j].ID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// DailyTotals maps day-of-month to the summed totalCost for the given
// month. Days without transactions are absent from the map.
func (l *Ledger) DailyTotals(month time.Month, year int) map[int]float64 {
	l.mu.RLock()
	defer l.mu.RUnlock()

	totals := make(map[int]float64)
	for _, t := range l.txns {
		if t.Date.Month() == month && t.Date.Year() == year {
			totals[t.Date.Day()] += t.TotalCost
		}
	}
	for d, v := range totals {
		totals[d] = core.RoundMoney(v)
	}
	return totals
}

// TopExpenses folds the month's transactions by denormalized item name,
// sums totalCost per name and returns the n largest groups. Two items
// sharing a name fold together; the label is what history displays. Ties
// break on name, ascending.
func (l *Ledger) TopExpenses(month time.Month, year int, n int) []ItemExpense {
	if n <= 0 {
		n = 5
	}

	l.mu.RLock()
	byName := make(map[string]float64)
	for _, t := range l.txns {
		if t.Date.Month() != month || t.Date.Year() != year {
			continue
		}
		label := t.ItemName
		if label == "" {
			label = t.ItemID
		}
		byName[label] += t.TotalCost
	}
	l.mu.RUnlock()

	out := make([]ItemExpense, 0, len(byName))
	for name, total := range byName {
		out = append(out, ItemExpense{Name: name, Total: core.RoundMoney(total)})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Total != out[j].Total {
			return out[i].Total > out[j].Total
		}
		return out[i].Name < out[j].Name
	})
	if len(out) > n {
		out = out[:n]
	}
	return out
}

// ShopDateGroups partitions all transactions by shop name (falling back
// to "Unknown Shop") and then by calendar day. Days are newest-first
// within a shop; shops order by their own newest day, newest-first, with
// name as the tie-break.
func (l *Ledger) ShopDateGroups() []ShopGroup {
	l.mu.RLock()
	txns := append([]core.Transaction(nil), l.txns...)
	l.mu.RUnlock()

	type dayKey struct {
		shop string
		day  string
	}
	buckets := make(map[dayKey][]core.Transaction)
	for _, t := range txns {
		shop := t.ShopName
		if shop == "" {
			shop = core.UnknownShop
		}
		// Day truncation uses the timestamp's own location so a purchase
		// lands on the same calendar day here as in DailyTotals.
		key := dayKey{shop: shop, day: t.Date.Format("2006-01-02")}
		buckets[key] = append(buckets[key], t)
	}

	byShop := make(map[string][]ShopSession)
	for key, bucket := range buckets {
		var total float64
		for _, t := range bucket {
			total += t.TotalCost
		}
		sort.Slice(bucket, func(i, j int) bool {
			if !bucket[i].Date.Equal(bucket[j].Date) {
				return bucket[i].Date.After(bucket[j].Date)
			}
			return bucket[i].ID > bucket[j].ID
		})
		byShop[key.shop] = append(byShop[key.shop], ShopSession{
			Date:         key.day,
			Total:        core.RoundMoney(total),
			Transactions: bucket,
		})
	}

	out := make([]ShopGroup, 0, len(byShop))
	for shop, sessions := range byShop {
		sort.Slice(sessions, func(i, j int) bool {
			return sessions[i].Date > sessions[j].Date
		})
		out = append(out, ShopGroup{ShopName: shop, Sessions: sessions})
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i].Sessions[0].Date, out[j].Sessions[0].Date
		if a != b {
			return a > b
		}
		return out[i].ShopName < out[j].ShopName
	})
	return out
}
