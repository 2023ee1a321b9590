// Package ledger implements the purchase-ledger aggregation engine: it
// owns the Item, Shop and Transaction collections, ingests purchases,
// applies cascading deletes, and derives all read views from the
// transaction log.
package ledger

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"shoptracker/internal/core"
	"shoptracker/internal/storage"
)

// EventPublisher receives notifications after a mutation has been durably
// committed. Publishing is best effort and never fails the mutation.
type EventPublisher interface {
	PublishPurchaseRecorded(ctx context.Context, txn core.Transaction) error
	PublishItemDeleted(ctx context.Context, itemID string, removedTransactions int) error
}

// Ledger is the sole writer of the persisted collections. All mutations
// run under one mutex, so two concurrent purchases can never both
// "discover" and create the same item or shop. Reads serve copied
// snapshots of fully committed state.
type Ledger struct {
	mu      sync.RWMutex
	backend storage.Backend
	events  EventPublisher

	items []core.Item
	shops []core.Shop
	txns  []core.Transaction // newest-first for display
}

// Open loads persisted state from the backend. Collections that were
// never written are installed from the seed dataset and persisted right
// away. Unreadable state is logged and recovered with seed data so the
// app stays usable; the read failure is not surfaced to callers.
func Open(ctx context.Context, backend storage.Backend, events EventPublisher) (*Ledger, error) {
	l := &Ledger{backend: backend, events: events}

	snap, pres, err := backend.LoadAll(ctx)
	loadFailed := err != nil
	if loadFailed {
		slog.WarnContext(ctx, "Failed to load persisted ledger state, falling back to seed data",
			"error", err)
		snap, pres = storage.Snapshot{}, storage.Presence{}
	}

	var dirty storage.Dirty
	if !pres.Items {
		snap.Items = seedItems()
		dirty.Items = true
	}
	if !pres.Shops {
		snap.Shops = seedShops()
		dirty.Shops = true
	}
	if !pres.Transactions {
		snap.Transactions = seedTransactions()
		dirty.Transactions = true
	}

	l.items, l.shops, l.txns = snap.Items, snap.Shops, snap.Transactions

	// The seed is persisted only for collections a successful read showed
	// were never written. After a read failure the app runs on seed data
	// in memory and leaves the stored state alone, so an unreadable file
	// is never clobbered.
	if loadFailed {
		return l, nil
	}

	if dirty.Items || dirty.Shops || dirty.Transactions {
		if err := backend.Commit(ctx, snap, dirty); err != nil {
			// Operation continues in memory; the next successful commit
			// persists the full collections anyway.
			slog.WarnContext(ctx, "Failed to persist seed data", "error", err)
		} else {
			slog.InfoContext(ctx, "Seeded ledger collections",
				"items", dirty.Items, "shops", dirty.Shops, "transactions", dirty.Transactions)
		}
	}

	return l, nil
}

// Reload replaces in-memory state with the backend's current contents.
// Used by read-side processes (the report worker) that follow a ledger
// written by another process.
func (l *Ledger) Reload(ctx context.Context) error {
	snap, _, err := l.backend.LoadAll(ctx)
	if err != nil {
		return fmt.Errorf("reload ledger: %w", err)
	}
	l.mu.Lock()
	l.items, l.shops, l.txns = snap.Items, snap.Shops, snap.Transactions
	l.mu.Unlock()
	return nil
}

// AddPurchase runs the ingestion pipeline for one purchase: validate,
// resolve item and shop, classify the price trend against the item's
// pre-update price, build the immutable transaction and commit every
// changed collection in one operation. A failed commit leaves the ledger
// exactly as it was.
func (l *Ledger) AddPurchase(ctx context.Context, p core.PurchasePayload) (core.Transaction, error) {
	if err := p.Validate(); err != nil {
		return core.Transaction{}, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	// Work on copies; state is swapped in only after a successful commit.
	items := append([]core.Item(nil), l.items...)
	shops := append([]core.Shop(nil), l.shops...)
	dirty := storage.Dirty{Items: true, Transactions: true}

	idx := findItem(items, p.Item)
	var item core.Item
	var trend core.Trend
	if idx < 0 {
		trend = core.ClassifyTrend(p.PricePerUnit, 0, false)
		item = newItem(p.Item, p)
		items = append(items, item)
	} else {
		item = items[idx]
		trend = core.ClassifyTrend(p.PricePerUnit, item.LastPrice, true)
		// A backdated purchase must not regress the latest known price:
		// lastPrice always tracks the chronologically newest transaction.
		if !p.Date.Before(item.LastPurchasedDate) {
			item.LastPrice = p.PricePerUnit
			item.LastPurchasedDate = p.Date
			if p.Unit != "" {
				item.Unit = p.Unit
			}
		}
		items[idx] = item
	}

	var shopID, shopName string
	if p.HasShop() {
		sIdx := findShop(shops, *p.Shop)
		var shop core.Shop
		if sIdx < 0 {
			shop = newShop(*p.Shop)
			shops = append(shops, shop)
			dirty.Shops = true
		} else {
			shop = shops[sIdx]
		}
		shopID, shopName = shop.ID, shop.Name
	}

	txnID := p.ID
	if txnID == "" {
		txnID = core.GenerateID("txn")
	}
	unit := p.Unit
	if unit == "" {
		unit = item.Unit
	}
	txn := core.Transaction{
		ID:           txnID,
		ItemID:       item.ID,
		ItemName:     item.Name,
		PricePerUnit: p.PricePerUnit,
		Quantity:     p.Quantity,
		TotalCost:    core.RoundMoney(p.PricePerUnit * p.Quantity),
		Unit:         unit,
		Date:         p.Date,
		PriceTrend:   trend,
		ShopID:       shopID,
		ShopName:     shopName,
	}

	txns := make([]core.Transaction, 0, len(l.txns)+1)
	txns = append(txns, txn)
	txns = append(txns, l.txns...)

	snap := storage.Snapshot{Items: items, Shops: shops, Transactions: txns}
	if err := l.backend.Commit(ctx, snap, dirty); err != nil {
		return core.Transaction{}, fmt.Errorf("%w: record purchase: %v", core.ErrPersistence, err)
	}
	l.items, l.shops, l.txns = items, shops, txns

	slog.InfoContext(ctx, "Purchase recorded",
		"transaction_id", txn.ID,
		"item", txn.ItemName,
		"total_cost", txn.TotalCost,
		"trend", string(txn.PriceTrend),
		"shop", txn.ShopName)

	if l.events != nil {
		if err := l.events.PublishPurchaseRecorded(ctx, txn); err != nil {
			slog.ErrorContext(ctx, "Failed to publish purchase event",
				"transaction_id", txn.ID, "error", err)
		}
	}
	return txn, nil
}

// DeleteItem removes an item and cascades to every transaction that
// references it.
func (l *Ledger) DeleteItem(ctx context.Context, id string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	items := make([]core.Item, 0, len(l.items))
	found := false
	for _, it := range l.items {
		if it.ID == id {
			found = true
			continue
		}
		items = append(items, it)
	}
	if !found {
		return fmt.Errorf("%w: item %s", core.ErrNotFound, id)
	}

	txns := make([]core.Transaction, 0, len(l.txns))
	removed := 0
	for _, t := range l.txns {
		if t.ItemID == id {
			removed++
			continue
		}
		txns = append(txns, t)
	}

	snap := storage.Snapshot{Items: items, Shops: l.shops, Transactions: txns}
	if err := l.backend.Commit(ctx, snap, storage.Dirty{Items: true, Transactions: true}); err != nil {
		return fmt.Errorf("%w: delete item: %v", core.ErrPersistence, err)
	}
	l.items, l.txns = items, txns

	slog.InfoContext(ctx, "Item deleted", "item_id", id, "cascaded_transactions", removed)

	if l.events != nil {
		if err := l.events.PublishItemDeleted(ctx, id, removed); err != nil {
			slog.ErrorContext(ctx, "Failed to publish item delete event",
				"item_id", id, "error", err)
		}
	}
	return nil
}

// DeleteShop removes a shop record. Historical transactions keep their
// denormalized shop name; nothing cascades.
func (l *Ledger) DeleteShop(ctx context.Context, id string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	shops := make([]core.Shop, 0, len(l.shops))
	found := false
	for _, sh := range l.shops {
		if sh.ID == id {
			found = true
			continue
		}
		shops = append(shops, sh)
	}
	if !found {
		return fmt.Errorf("%w: shop %s", core.ErrNotFound, id)
	}

	snap := storage.Snapshot{Items: l.items, Shops: shops, Transactions: l.txns}
	if err := l.backend.Commit(ctx, snap, storage.Dirty{Shops: true}); err != nil {
		return fmt.Errorf("%w: delete shop: %v", core.ErrPersistence, err)
	}
	l.shops = shops

	slog.InfoContext(ctx, "Shop deleted", "shop_id", id)
	return nil
}

// Items returns a copy of the item collection.
func (l *Ledger) Items() []core.Item {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]core.Item(nil), l.items...)
}

// Shops returns a copy of the shop collection.
func (l *Ledger) Shops() []core.Shop {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]core.Shop(nil), l.shops...)
}

// Transactions returns a copy of the transaction log, newest-first.
func (l *Ledger) Transactions() []core.Transaction {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]core.Transaction(nil), l.txns...)
}

// Item looks up a single item by id.
func (l *Ledger) Item(id string) (core.Item, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	for _, it := range l.items {
		if it.ID == id {
			return it, nil
		}
	}
	return core.Item{}, fmt.Errorf("%w: item %s", core.ErrNotFound, id)
}
