package ledger

import (
	"strings"

	"shoptracker/internal/core"
)

// Entity resolution maps a loose reference (id, else case-insensitive
// name) onto the stored collection. Lookups prefer id but fall back to
// name matching, so a dangling id with a known name still resolves instead
// of spawning a duplicate. Returns the index of the match, or -1.

func findItem(items []core.Item, ref core.ItemRef) int {
	if ref.ID != "" {
		for i := range items {
			if items[i].ID == ref.ID {
				return i
			}
		}
	}
	name := strings.TrimSpace(ref.Name)
	if name == "" {
		return -1
	}
	for i := range items {
		if strings.EqualFold(items[i].Name, name) {
			return i
		}
	}
	return -1
}

func findShop(shops []core.Shop, ref core.ShopRef) int {
	if ref.ID != "" {
		for i := range shops {
			if shops[i].ID == ref.ID {
				return i
			}
		}
	}
	name := strings.TrimSpace(ref.Name)
	if name == "" {
		return -1
	}
	for i := range shops {
		if strings.EqualFold(shops[i].Name, name) {
			return i
		}
	}
	return -1
}

// newItem constructs a fresh Item for an unresolved reference. The first
// purchase supplies the unit and initial price; category defaults when the
// payload leaves it blank.
func newItem(ref core.ItemRef, p core.PurchasePayload) core.Item {
	id := ref.ID
	if id == "" {
		id = core.GenerateID("item")
	}
	category := strings.TrimSpace(ref.Category)
	if category == "" {
		category = core.DefaultCategory
	}
	return core.Item{
		ID:                id,
		Name:              strings.TrimSpace(ref.Name),
		Unit:              p.Unit,
		LastPrice:         p.PricePerUnit,
		LastPurchasedDate: p.Date,
		Category:          category,
	}
}

func newShop(ref core.ShopRef) core.Shop {
	id := ref.ID
	if id == "" {
		id = core.GenerateID("shop")
	}
	return core.Shop{ID: id, Name: strings.TrimSpace(ref.Name)}
}
