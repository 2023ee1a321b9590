package ledger

import (
	"time"

	"shoptracker/internal/core"
)

// Seed dataset installed when a collection has never been persisted, so a
// first launch shows a populated diary instead of empty screens.

func seedItems() []core.Item {
	return []core.Item{
		{ID: "item_seed_1", Name: "Ponni Rice", Unit: "kg", LastPrice: 55,
			LastPurchasedDate: day(2026, 1, 15), Category: "Provisions"},
		{ID: "item_seed_2", Name: "Toor Dal", Unit: "kg", LastPrice: 120,
			LastPurchasedDate: day(2026, 1, 20), Category: "Provisions"},
		{ID: "item_seed_3", Name: "Milk", Unit: "ltr", LastPrice: 26,
			LastPurchasedDate: day(2026, 2, 1), Category: "Dairy"},
		{ID: "item_seed_4", Name: "Sunflower Oil", Unit: "ltr", LastPrice: 140,
			LastPurchasedDate: day(2026, 1, 10), Category: "Provisions"},
		{ID: "item_seed_5", Name: "Sugar", Unit: "kg", LastPrice: 42,
			LastPurchasedDate: day(2026, 1, 25), Category: "Provisions"},
	}
}

func seedShops() []core.Shop {
	return []core.Shop{
		{ID: "shop_seed_1", Name: "Murugan Stores"},
		{ID: "shop_seed_2", Name: "Big Bazaar"},
	}
}

func seedTransactions() []core.Transaction {
	return []core.Transaction{
		{ID: "txn_seed_1", ItemID: "item_seed_1", ItemName: "Ponni Rice",
			PricePerUnit: 55, Quantity: 5, TotalCost: 275, Unit: "kg",
			Date: at(2026, 1, 15, 10, 0), PriceTrend: core.TrendStable},
		{ID: "txn_seed_2", ItemID: "item_seed_3", ItemName: "Milk",
			PricePerUnit: 26, Quantity: 10, TotalCost: 260, Unit: "ltr",
			Date: at(2026, 1, 20, 9, 0), PriceTrend: core.TrendStable},
		{ID: "txn_seed_3", ItemID: "item_seed_2", ItemName: "Toor Dal",
			PricePerUnit: 120, Quantity: 2, TotalCost: 240, Unit: "kg",
			Date: at(2026, 1, 20, 10, 30), PriceTrend: core.TrendStable},
		{ID: "txn_seed_4", ItemID: "item_seed_5", ItemName: "Sugar",
			PricePerUnit: 42, Quantity: 2, TotalCost: 84, Unit: "kg",
			Date: at(2026, 1, 25, 11, 0), PriceTrend: core.TrendStable},
		{ID: "txn_seed_5", ItemID: "item_seed_4", ItemName: "Sunflower Oil",
			PricePerUnit: 140, Quantity: 1, TotalCost: 140, Unit: "ltr",
			Date: at(2026, 2, 5, 10, 0), PriceTrend: core.TrendStable},
		{ID: "txn_seed_6", ItemID: "item_seed_3", ItemName: "Milk",
			PricePerUnit: 28, Quantity: 10, TotalCost: 280, Unit: "ltr",
			Date: at(2026, 2, 10, 9, 0), PriceTrend: core.TrendIncrease},
		{ID: "txn_seed_7", ItemID: "item_seed_1", ItemName: "Ponni Rice",
			PricePerUnit: 58, Quantity: 5, TotalCost: 290, Unit: "kg",
			Date: at(2026, 2, 15, 10, 0), PriceTrend: core.TrendIncrease},
	}
}

func day(year int, month time.Month, d int) time.Time {
	return time.Date(year, month, d, 0, 0, 0, 0, time.UTC)
}

func at(year int, month time.Month, d, hour, min int) time.Time {
	return time.Date(year, month, d, hour, min, 0, 0, time.UTC)
}
