package ledger

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"shoptracker/internal/core"
	"shoptracker/internal/storage"
)

func openSeeded(t *testing.T) (*Ledger, *storage.MemoryBackend) {
	t.Helper()
	backend := storage.NewMemoryBackend()
	l, err := Open(context.Background(), backend, nil)
	if err != nil {
		t.Fatalf("open ledger: %v", err)
	}
	return l, backend
}

func milkPurchase() core.PurchasePayload {
	return core.PurchasePayload{
		Date:         time.Date(2026, 2, 10, 11, 0, 0, 0, time.UTC),
		Item:         core.ItemRef{Name: "Milk"},
		PricePerUnit: 28,
		Quantity:     2,
		Unit:         "ltr",
	}
}

func TestOpenSeedsEmptyBackend(t *testing.T) {
	l, backend := openSeeded(t)

	if got := len(l.Items()); got != 5 {
		t.Fatalf("expected 5 seed items, got %d", got)
	}
	if got := len(l.Shops()); got != 2 {
		t.Fatalf("expected 2 seed shops, got %d", got)
	}
	if got := len(l.Transactions()); got != 7 {
		t.Fatalf("expected 7 seed transactions, got %d", got)
	}

	// The seed must be persisted immediately.
	snap, pres, err := backend.LoadAll(context.Background())
	if err != nil {
		t.Fatalf("load backend: %v", err)
	}
	if !pres.All() {
		t.Fatalf("seed not persisted: %+v", pres)
	}
	if len(snap.Items) != 5 || len(snap.Transactions) != 7 {
		t.Fatalf("persisted seed wrong size: %d items, %d transactions",
			len(snap.Items), len(snap.Transactions))
	}
}

func TestOpenKeepsPersistedState(t *testing.T) {
	backend := storage.NewMemoryBackend()
	err := backend.Commit(context.Background(), storage.Snapshot{
		Items: []core.Item{{ID: "item_1", Name: "Ghee", Unit: "kg", LastPrice: 600}},
	}, storage.Dirty{Items: true, Shops: true, Transactions: true})
	if err != nil {
		t.Fatalf("prime backend: %v", err)
	}

	l, err := Open(context.Background(), backend, nil)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	items := l.Items()
	if len(items) != 1 || items[0].Name != "Ghee" {
		t.Fatalf("persisted items should survive open, got %+v", items)
	}
	if len(l.Transactions()) != 0 {
		t.Fatal("present-but-empty transaction collection must not be reseeded")
	}
}

func TestOpenRecoversFromReadFailure(t *testing.T) {
	backend := &failingLoadBackend{MemoryBackend: storage.NewMemoryBackend()}
	l, err := Open(context.Background(), backend, nil)
	if err != nil {
		t.Fatalf("open should recover from read failure, got %v", err)
	}
	if len(l.Items()) != 5 {
		t.Fatalf("expected seed fallback, got %d items", len(l.Items()))
	}
}

type failingLoadBackend struct {
	*storage.MemoryBackend
}

func (f *failingLoadBackend) LoadAll(context.Context) (storage.Snapshot, storage.Presence, error) {
	return storage.Snapshot{}, storage.Presence{}, core.ErrStorageRead
}

func TestOpenReadFailureSkipsSeedCommit(t *testing.T) {
	backend := &failingLoadBackend{MemoryBackend: storage.NewMemoryBackend()}
	if _, err := Open(context.Background(), backend, nil); err != nil {
		t.Fatalf("open: %v", err)
	}

	// The underlying store must not have been written: a later recovery
	// could still read the original state.
	snap, pres, err := backend.MemoryBackend.LoadAll(context.Background())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if pres.Items || pres.Shops || pres.Transactions {
		t.Fatalf("seed fallback must stay in memory, but collections were persisted: %+v", pres)
	}
	if len(snap.Items) != 0 || len(snap.Transactions) != 0 {
		t.Fatalf("backend state changed after failed load: %d items, %d transactions",
			len(snap.Items), len(snap.Transactions))
	}
}

func TestOpenPreservesCorruptFileOnDisk(t *testing.T) {
	dir := t.TempDir()
	corrupt := []byte(`{not json`)
	path := filepath.Join(dir, "shoptracker_items.json")
	if err := os.WriteFile(path, corrupt, 0644); err != nil {
		t.Fatalf("write corrupt file: %v", err)
	}

	backend, err := storage.NewFileBackend(dir)
	if err != nil {
		t.Fatalf("file backend: %v", err)
	}

	l, err := Open(context.Background(), backend, nil)
	if err != nil {
		t.Fatalf("open should recover in memory, got %v", err)
	}
	if len(l.Items()) != 5 {
		t.Fatalf("expected seed fallback in memory, got %d items", len(l.Items()))
	}

	// The unreadable file must survive untouched for manual recovery.
	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if !bytes.Equal(got, corrupt) {
		t.Fatalf("corrupt file was overwritten on Open; file now contains: %q", got)
	}
	for _, name := range []string{"shoptracker_shops.json", "shoptracker_transactions.json"} {
		if _, err := os.Stat(filepath.Join(dir, name)); !os.IsNotExist(err) {
			t.Fatalf("%s was created during failed-load recovery", name)
		}
	}
}

func TestAddPurchaseExistingItemIncrease(t *testing.T) {
	l, _ := openSeeded(t)

	txn, err := l.AddPurchase(context.Background(), milkPurchase())
	if err != nil {
		t.Fatalf("add purchase: %v", err)
	}

	if txn.PriceTrend != core.TrendIncrease {
		t.Fatalf("expected increase (28 vs 26), got %q", txn.PriceTrend)
	}
	if txn.TotalCost != 56 {
		t.Fatalf("expected total 56, got %v", txn.TotalCost)
	}
	if txn.ItemID != "item_seed_3" {
		t.Fatalf("should resolve onto the seeded Milk item, got %q", txn.ItemID)
	}

	item, err := l.Item("item_seed_3")
	if err != nil {
		t.Fatalf("item lookup: %v", err)
	}
	if item.LastPrice != 28 {
		t.Fatalf("lastPrice should follow the purchase, got %v", item.LastPrice)
	}
	if !item.LastPurchasedDate.Equal(time.Date(2026, 2, 10, 11, 0, 0, 0, time.UTC)) {
		t.Fatalf("lastPurchasedDate not updated: %v", item.LastPurchasedDate)
	}

	txns := l.Transactions()
	if txns[0].ID != txn.ID {
		t.Fatal("new transaction should be prepended")
	}
}

func TestAddPurchaseNewItemStable(t *testing.T) {
	l, _ := openSeeded(t)

	txn, err := l.AddPurchase(context.Background(), core.PurchasePayload{
		Date:         time.Date(2026, 2, 12, 10, 0, 0, 0, time.UTC),
		Item:         core.ItemRef{Name: "Paneer", Category: "Dairy"},
		PricePerUnit: 90,
		Quantity:     1,
		Unit:         "kg",
	})
	if err != nil {
		t.Fatalf("add purchase: %v", err)
	}

	if txn.PriceTrend != core.TrendStable {
		t.Fatalf("new item has no prior price, expected stable, got %q", txn.PriceTrend)
	}
	if txn.TotalCost != 90 {
		t.Fatalf("expected total 90, got %v", txn.TotalCost)
	}

	item, err := l.Item(txn.ItemID)
	if err != nil {
		t.Fatalf("created item missing: %v", err)
	}
	if item.LastPrice != 90 || item.Category != "Dairy" || item.Unit != "kg" {
		t.Fatalf("unexpected new item: %+v", item)
	}
}

func TestAddPurchaseDefaultsCategory(t *testing.T) {
	l, _ := openSeeded(t)
	txn, err := l.AddPurchase(context.Background(), core.PurchasePayload{
		Date:         time.Date(2026, 2, 12, 10, 0, 0, 0, time.UTC),
		Item:         core.ItemRef{Name: "Matchbox"},
		PricePerUnit: 5,
		Quantity:     1,
		Unit:         "pcs",
	})
	if err != nil {
		t.Fatalf("add purchase: %v", err)
	}
	item, _ := l.Item(txn.ItemID)
	if item.Category != core.DefaultCategory {
		t.Fatalf("expected default category, got %q", item.Category)
	}
}

func TestAddPurchaseIdempotentResolution(t *testing.T) {
	l, _ := openSeeded(t)
	ctx := context.Background()

	first, err := l.AddPurchase(ctx, core.PurchasePayload{
		Date: time.Date(2026, 2, 12, 10, 0, 0, 0, time.UTC),
		Item: core.ItemRef{Name: "Paneer"}, PricePerUnit: 90, Quantity: 1, Unit: "kg",
	})
	if err != nil {
		t.Fatalf("first purchase: %v", err)
	}
	second, err := l.AddPurchase(ctx, core.PurchasePayload{
		Date: time.Date(2026, 2, 13, 10, 0, 0, 0, time.UTC),
		Item: core.ItemRef{Name: "paneer"}, // case-insensitive match
		PricePerUnit: 95, Quantity: 1, Unit: "kg",
	})
	if err != nil {
		t.Fatalf("second purchase: %v", err)
	}

	if first.ItemID != second.ItemID {
		t.Fatalf("resolution not idempotent: %q vs %q", first.ItemID, second.ItemID)
	}
	count := 0
	for _, it := range l.Items() {
		if it.ID == first.ItemID {
			count++
		}
	}
	if count != 1 {
		t.Fatalf("expected exactly one Paneer item, got %d", count)
	}
	if second.PriceTrend != core.TrendIncrease {
		t.Fatalf("second purchase should compare against first price, got %q", second.PriceTrend)
	}
}

func TestAddPurchaseDanglingItemIDFallsBackToName(t *testing.T) {
	l, _ := openSeeded(t)
	txn, err := l.AddPurchase(context.Background(), core.PurchasePayload{
		Date:         time.Date(2026, 2, 12, 10, 0, 0, 0, time.UTC),
		Item:         core.ItemRef{ID: "item_gone", Name: "Milk"},
		PricePerUnit: 27,
		Quantity:     1,
		Unit:         "ltr",
	})
	if err != nil {
		t.Fatalf("add purchase: %v", err)
	}
	if txn.ItemID != "item_seed_3" {
		t.Fatalf("dangling id should fall back to name match, got %q", txn.ItemID)
	}
}

func TestAddPurchaseCreatesShopOnce(t *testing.T) {
	l, _ := openSeeded(t)
	ctx := context.Background()

	p := milkPurchase()
	p.Shop = &core.ShopRef{Name: "Nilgiris"}
	first, err := l.AddPurchase(ctx, p)
	if err != nil {
		t.Fatalf("first purchase: %v", err)
	}
	if first.ShopID == "" || first.ShopName != "Nilgiris" {
		t.Fatalf("shop not recorded: %+v", first)
	}

	p2 := milkPurchase()
	p2.Date = p2.Date.Add(time.Hour)
	p2.Shop = &core.ShopRef{Name: "nilgiris"}
	second, err := l.AddPurchase(ctx, p2)
	if err != nil {
		t.Fatalf("second purchase: %v", err)
	}
	if second.ShopID != first.ShopID {
		t.Fatalf("shop resolution not idempotent: %q vs %q", first.ShopID, second.ShopID)
	}
	if got := len(l.Shops()); got != 3 {
		t.Fatalf("expected 3 shops (2 seed + 1), got %d", got)
	}
}

func TestAddPurchaseKnownShopKeepsDenormalizedName(t *testing.T) {
	l, _ := openSeeded(t)
	p := milkPurchase()
	p.Shop = &core.ShopRef{Name: "big bazaar"}
	txn, err := l.AddPurchase(context.Background(), p)
	if err != nil {
		t.Fatalf("add purchase: %v", err)
	}
	if txn.ShopID != "shop_seed_2" || txn.ShopName != "Big Bazaar" {
		t.Fatalf("expected canonical seed shop, got %+v", txn)
	}
}

func TestAddPurchaseBackdatedDoesNotRegressLastPrice(t *testing.T) {
	l, _ := openSeeded(t)

	// Milk's seed lastPurchasedDate is 2026-02-01; backdate to January.
	txn, err := l.AddPurchase(context.Background(), core.PurchasePayload{
		Date:         time.Date(2026, 1, 5, 10, 0, 0, 0, time.UTC),
		Item:         core.ItemRef{Name: "Milk"},
		PricePerUnit: 24,
		Quantity:     5,
		Unit:         "ltr",
	})
	if err != nil {
		t.Fatalf("add purchase: %v", err)
	}
	if txn.PriceTrend != core.TrendDecrease {
		t.Fatalf("trend still compares against current lastPrice, got %q", txn.PriceTrend)
	}

	item, _ := l.Item("item_seed_3")
	if item.LastPrice != 26 {
		t.Fatalf("backdated purchase must not regress lastPrice, got %v", item.LastPrice)
	}
	if !item.LastPurchasedDate.Equal(time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("lastPurchasedDate regressed: %v", item.LastPurchasedDate)
	}
}

func TestAddPurchaseRollsBackOnCommitFailure(t *testing.T) {
	l, backend := openSeeded(t)
	backend.FailCommit = errors.New("disk full")

	p := milkPurchase()
	p.Shop = &core.ShopRef{Name: "Nilgiris"}
	_, err := l.AddPurchase(context.Background(), p)
	if err == nil {
		t.Fatal("expected persistence error")
	}
	if !errors.Is(err, core.ErrPersistence) {
		t.Fatalf("expected ErrPersistence, got %v", err)
	}

	// In-memory state must be untouched: no new transaction, no new shop,
	// Milk's price unchanged.
	if got := len(l.Transactions()); got != 7 {
		t.Fatalf("transaction leaked on failed commit: %d", got)
	}
	if got := len(l.Shops()); got != 2 {
		t.Fatalf("shop leaked on failed commit: %d", got)
	}
	item, _ := l.Item("item_seed_3")
	if item.LastPrice != 26 {
		t.Fatalf("item mutated on failed commit: %v", item.LastPrice)
	}
}

func TestAddPurchaseValidation(t *testing.T) {
	l, _ := openSeeded(t)
	_, err := l.AddPurchase(context.Background(), core.PurchasePayload{
		Date: time.Now(), Item: core.ItemRef{Name: ""}, PricePerUnit: 1, Quantity: 1,
	})
	if !errors.Is(err, core.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
	if got := len(l.Transactions()); got != 7 {
		t.Fatalf("invalid payload must not touch the ledger, got %d transactions", got)
	}
}

func TestDeleteItemCascades(t *testing.T) {
	l, _ := openSeeded(t)
	ctx := context.Background()

	before := l.MonthlyTotal(time.February, 2026)
	if err := l.DeleteItem(ctx, "item_seed_3"); err != nil {
		t.Fatalf("delete item: %v", err)
	}

	for _, t2 := range l.Transactions() {
		if t2.ItemID == "item_seed_3" {
			t.Fatalf("transaction %s survived cascade", t2.ID)
		}
	}
	if _, err := l.Item("item_seed_3"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	// Milk had a 280 purchase in February; the monthly total must drop.
	after := l.MonthlyTotal(time.February, 2026)
	if after != before-280 {
		t.Fatalf("monthly total: got %v, want %v", after, before-280)
	}
}

func TestDeleteItemNotFound(t *testing.T) {
	l, _ := openSeeded(t)
	if err := l.DeleteItem(context.Background(), "item_nope"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestDeleteShopDoesNotCascade(t *testing.T) {
	l, _ := openSeeded(t)
	ctx := context.Background()

	p := milkPurchase()
	p.Shop = &core.ShopRef{Name: "Big Bazaar"}
	txn, err := l.AddPurchase(ctx, p)
	if err != nil {
		t.Fatalf("add purchase: %v", err)
	}

	if err := l.DeleteShop(ctx, txn.ShopID); err != nil {
		t.Fatalf("delete shop: %v", err)
	}
	for _, sh := range l.Shops() {
		if sh.ID == txn.ShopID {
			t.Fatal("shop record should be gone")
		}
	}

	// The transaction survives with its denormalized shop name.
	var found bool
	for _, t2 := range l.Transactions() {
		if t2.ID == txn.ID {
			found = true
			if t2.ShopName != "Big Bazaar" {
				t.Fatalf("denormalized shop name lost: %q", t2.ShopName)
			}
		}
	}
	if !found {
		t.Fatal("transaction should survive shop deletion")
	}
}

func TestReloadFollowsBackend(t *testing.T) {
	backend := storage.NewMemoryBackend()
	ctx := context.Background()

	writer, err := Open(ctx, backend, nil)
	if err != nil {
		t.Fatalf("open writer: %v", err)
	}
	reader, err := Open(ctx, backend, nil)
	if err != nil {
		t.Fatalf("open reader: %v", err)
	}

	if _, err := writer.AddPurchase(ctx, milkPurchase()); err != nil {
		t.Fatalf("add purchase: %v", err)
	}
	if err := reader.Reload(ctx); err != nil {
		t.Fatalf("reload: %v", err)
	}
	if got := len(reader.Transactions()); got != 8 {
		t.Fatalf("reader should see the writer's commit, got %d transactions", got)
	}
}

type recordingPublisher struct {
	purchases []core.Transaction
	deletes   []string
}

func (r *recordingPublisher) PublishPurchaseRecorded(_ context.Context, txn core.Transaction) error {
	r.purchases = append(r.purchases, txn)
	return nil
}

func (r *recordingPublisher) PublishItemDeleted(_ context.Context, itemID string, _ int) error {
	r.deletes = append(r.deletes, itemID)
	return nil
}

func TestEventsPublishedAfterCommit(t *testing.T) {
	backend := storage.NewMemoryBackend()
	events := &recordingPublisher{}
	l, err := Open(context.Background(), backend, events)
	if err != nil {
		t.Fatalf("open: %v", err)
	}

	txn, err := l.AddPurchase(context.Background(), milkPurchase())
	if err != nil {
		t.Fatalf("add purchase: %v", err)
	}
	if len(events.purchases) != 1 || events.purchases[0].ID != txn.ID {
		t.Fatalf("purchase event not published: %+v", events.purchases)
	}

	if err := l.DeleteItem(context.Background(), txn.ItemID); err != nil {
		t.Fatalf("delete item: %v", err)
	}
	if len(events.deletes) != 1 || events.deletes[0] != txn.ItemID {
		t.Fatalf("delete event not published: %+v", events.deletes)
	}
}

func TestNoEventOnFailedCommit(t *testing.T) {
	backend := storage.NewMemoryBackend()
	events := &recordingPublisher{}
	l, err := Open(context.Background(), backend, events)
	if err != nil {
		t.Fatalf("open: %v", err)
	}

	backend.FailCommit = errors.New("disk full")
	if _, err := l.AddPurchase(context.Background(), milkPurchase()); err == nil {
		t.Fatal("expected commit failure")
	}
	if len(events.purchases) != 0 {
		t.Fatal("event must not be published for a failed commit")
	}
}
