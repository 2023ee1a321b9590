package core

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"
)

const (
	TrendIncrease Trend = "increase"
	TrendDecrease Trend = "decrease"
	TrendStable   Trend = "stable"
)

// DefaultCategory is assigned to items created without an explicit category.
const DefaultCategory = "General"

// UnknownShop labels transactions recorded without a shop when grouping.
const UnknownShop = "Unknown Shop"

type (
	Trend string

	// Item is a catalog entry for a purchasable good. Exactly one Item
	// exists per distinct name (case-insensitive). LastPrice and
	// LastPurchasedDate track the chronologically latest purchase.
	Item struct {
		ID                string    `json:"id"`
		Name              string    `json:"name"`
		Unit              string    `json:"unit"`
		LastPrice         float64   `json:"lastPrice"`
		LastPurchasedDate time.Time `json:"lastPurchasedDate"`
		Category          string    `json:"category"`
	}

	// Shop is an optional record of a purchase location.
	Shop struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	}

	// Transaction is an immutable ledger entry. ItemName and ShopName are
	// denormalized snapshots taken at purchase time so history survives
	// later renames and deletions of the referenced records.
	Transaction struct {
		ID           string    `json:"id"`
		ItemID       string    `json:"itemId"`
		ItemName     string    `json:"itemName"`
		PricePerUnit float64   `json:"pricePerUnit"`
		Quantity     float64   `json:"quantity"`
		TotalCost    float64   `json:"totalCost"`
		Unit         string    `json:"unit"`
		Date         time.Time `json:"date"`
		PriceTrend   Trend     `json:"priceTrend"`
		ShopID       string    `json:"shopId,omitempty"`
		ShopName     string    `json:"shopName,omitempty"`
	}

	// ItemRef loosely identifies an item: by id when set, otherwise by
	// case-insensitive name.
	ItemRef struct {
		ID       string `json:"id,omitempty"`
		Name     string `json:"name"`
		Category string `json:"category,omitempty"`
	}

	// ShopRef loosely identifies a shop, same resolution policy as ItemRef.
	ShopRef struct {
		ID   string `json:"id,omitempty"`
		Name string `json:"name"`
	}

	// PurchasePayload is the input to the purchase ingestion pipeline.
	PurchasePayload struct {
		ID           string    `json:"id,omitempty"`
		Date         time.Time `json:"date"`
		Item         ItemRef   `json:"item"`
		Shop         *ShopRef  `json:"shop,omitempty"`
		PricePerUnit float64   `json:"pricePerUnit"`
		Quantity     float64   `json:"quantity"`
		TotalCost    float64   `json:"totalCost,omitempty"`
		Unit         string    `json:"unit"`
	}
)

// Error taxonomy. ErrValidation is user-correctable bad input,
// ErrStorageRead marks unreadable persisted state (recovered via seed
// fallback), ErrPersistence marks a failed durable write with no partial
// mutation applied.
var (
	ErrValidation  = errors.New("validation failed")
	ErrStorageRead = errors.New("storage read failed")
	ErrPersistence = errors.New("persistence failed")
	ErrNotFound    = errors.New("not found")
)

// HasShop reports whether the payload names a shop to resolve.
func (p PurchasePayload) HasShop() bool {
	return p.Shop != nil && strings.TrimSpace(p.Shop.Name) != ""
}

func (p PurchasePayload) Validate() error {
	if strings.TrimSpace(p.Item.Name) == "" {
		return fmt.Errorf("%w: item name is required", ErrValidation)
	}
	if p.Date.IsZero() {
		return fmt.Errorf("%w: purchase date is required", ErrValidation)
	}
	if !isFiniteAmount(p.PricePerUnit) || p.PricePerUnit < 0 {
		return fmt.Errorf("%w: price per unit must be a non-negative number", ErrValidation)
	}
	if !isFiniteAmount(p.Quantity) || p.Quantity <= 0 {
		return fmt.Errorf("%w: quantity must be a positive number", ErrValidation)
	}
	// A client-supplied total is cross-checked, never trusted.
	if p.TotalCost != 0 {
		if !isFiniteAmount(p.TotalCost) {
			return fmt.Errorf("%w: total cost must be a number", ErrValidation)
		}
		if RoundMoney(p.TotalCost) != RoundMoney(p.PricePerUnit*p.Quantity) {
			return fmt.Errorf("%w: total cost %.2f does not match price %.2f x quantity %g",
				ErrValidation, p.TotalCost, p.PricePerUnit, p.Quantity)
		}
	}
	return nil
}

func isFiniteAmount(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// ClassifyTrend compares a purchase price against the item's previous
// price. It fails safe to stable when there is no usable previous price.
func ClassifyTrend(current, previous float64, hasPrevious bool) Trend {
	if !hasPrevious || previous == 0 {
		return TrendStable
	}
	switch {
	case current > previous:
		return TrendIncrease
	case current < previous:
		return TrendDecrease
	default:
		return TrendStable
	}
}
