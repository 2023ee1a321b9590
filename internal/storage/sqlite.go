package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"shoptracker/internal/core"

	_ "modernc.org/sqlite"
)

// SQLiteBackend persists the ledger collections in a SQLite database. A
// commit rewrites every dirty collection inside one SQL transaction, so a
// multi-collection operation lands atomically or not at all.
type SQLiteBackend struct {
	db *sql.DB
}

func NewSQLiteBackend(dbPath string) (*SQLiteBackend, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := runMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteBackend{db: db}, nil
}

func (s *SQLiteBackend) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func (s *SQLiteBackend) LoadAll(ctx context.Context) (Snapshot, Presence, error) {
	var snap Snapshot
	var pres Presence
	var err error

	if pres.Items, pres.Shops, pres.Transactions, err = s.loadPresence(ctx); err != nil {
		return Snapshot{}, Presence{}, fmt.Errorf("%w: collection state: %v", core.ErrStorageRead, err)
	}
	if snap.Items, err = s.loadItems(ctx); err != nil {
		return Snapshot{}, Presence{}, fmt.Errorf("%w: items: %v", core.ErrStorageRead, err)
	}
	if snap.Shops, err = s.loadShops(ctx); err != nil {
		return Snapshot{}, Presence{}, fmt.Errorf("%w: shops: %v", core.ErrStorageRead, err)
	}
	if snap.Transactions, err = s.loadTransactions(ctx); err != nil {
		return Snapshot{}, Presence{}, fmt.Errorf("%w: transactions: %v", core.ErrStorageRead, err)
	}

	slog.DebugContext(ctx, "Loaded ledger collections from SQLite",
		"items", len(snap.Items),
		"shops", len(snap.Shops),
		"transactions", len(snap.Transactions))
	return snap, pres, nil
}

func (s *SQLiteBackend) Commit(ctx context.Context, snap Snapshot, dirty Dirty) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin commit: %w", err)
	}
	defer tx.Rollback()

	if dirty.Items {
		if err := rewriteItems(ctx, tx, snap.Items); err != nil {
			return fmt.Errorf("persist items: %w", err)
		}
		if err := markInitialized(ctx, tx, "items"); err != nil {
			return err
		}
	}
	if dirty.Shops {
		if err := rewriteShops(ctx, tx, snap.Shops); err != nil {
			return fmt.Errorf("persist shops: %w", err)
		}
		if err := markInitialized(ctx, tx, "shops"); err != nil {
			return err
		}
	}
	if dirty.Transactions {
		if err := rewriteTransactions(ctx, tx, snap.Transactions); err != nil {
			return fmt.Errorf("persist transactions: %w", err)
		}
		if err := markInitialized(ctx, tx, "transactions"); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func (s *SQLiteBackend) loadPresence(ctx context.Context) (items, shops, txns bool, err error) {
	rows, err := s.db.QueryContext(ctx, `SELECT name FROM collection_state`)
	if err != nil {
		return false, false, false, err
	}
	defer rows.Close()
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return false, false, false, err
		}
		switch name {
		case "items":
			items = true
		case "shops":
			shops = true
		case "transactions":
			txns = true
		}
	}
	return items, shops, txns, rows.Err()
}

func (s *SQLiteBackend) loadItems(ctx context.Context) ([]core.Item, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, unit, last_price, last_purchased_date, category
		FROM items ORDER BY position`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []core.Item
	for rows.Next() {
		var it core.Item
		var lastPurchased string
		if err := rows.Scan(&it.ID, &it.Name, &it.Unit, &it.LastPrice, &lastPurchased, &it.Category); err != nil {
			return nil, err
		}
		if it.LastPurchasedDate, err = parseStoredTime(lastPurchased); err != nil {
			return nil, fmt.Errorf("item %s: %w", it.ID, err)
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

func (s *SQLiteBackend) loadShops(ctx context.Context) ([]core.Shop, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name FROM shops ORDER BY position`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []core.Shop
	for rows.Next() {
		var sh core.Shop
		if err := rows.Scan(&sh.ID, &sh.Name); err != nil {
			return nil, err
		}
		out = append(out, sh)
	}
	return out, rows.Err()
}

func (s *SQLiteBackend) loadTransactions(ctx context.Context) ([]core.Transaction, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, item_id, item_name, price_per_unit, quantity, total_cost,
		       unit, date, price_trend, shop_id, shop_name
		FROM transactions ORDER BY position`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []core.Transaction
	for rows.Next() {
		var t core.Transaction
		var date string
		var trend string
		var shopID, shopName sql.NullString
		if err := rows.Scan(&t.ID, &t.ItemID, &t.ItemName, &t.PricePerUnit, &t.Quantity,
			&t.TotalCost, &t.Unit, &date, &trend, &shopID, &shopName); err != nil {
			return nil, err
		}
		if t.Date, err = parseStoredTime(date); err != nil {
			return nil, fmt.Errorf("transaction %s: %w", t.ID, err)
		}
		t.PriceTrend = core.Trend(trend)
		t.ShopID = shopID.String
		t.ShopName = shopName.String
		out = append(out, t)
	}
	return out, rows.Err()
}

func rewriteItems(ctx context.Context, tx *sql.Tx, items []core.Item) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM items`); err != nil {
		return err
	}
	for i, it := range items {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO items (id, name, unit, last_price, last_purchased_date, category, position)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			it.ID, it.Name, it.Unit, it.LastPrice, formatStoredTime(it.LastPurchasedDate), it.Category, i)
		if err != nil {
			return err
		}
	}
	return nil
}

func rewriteShops(ctx context.Context, tx *sql.Tx, shops []core.Shop) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM shops`); err != nil {
		return err
	}
	for i, sh := range shops {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO shops (id, name, position) VALUES (?, ?, ?)`, sh.ID, sh.Name, i); err != nil {
			return err
		}
	}
	return nil
}

func rewriteTransactions(ctx context.Context, tx *sql.Tx, txns []core.Transaction) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM transactions`); err != nil {
		return err
	}
	for i, t := range txns {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO transactions (id, item_id, item_name, price_per_unit, quantity,
			                          total_cost, unit, date, price_trend, shop_id, shop_name, position)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			t.ID, t.ItemID, t.ItemName, t.PricePerUnit, t.Quantity, t.TotalCost,
			t.Unit, formatStoredTime(t.Date), string(t.PriceTrend),
			nullable(t.ShopID), nullable(t.ShopName), i)
		if err != nil {
			return err
		}
	}
	return nil
}

func markInitialized(ctx context.Context, tx *sql.Tx, name string) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO collection_state (name, initialized_at) VALUES (?, ?)
		ON CONFLICT(name) DO NOTHING`,
		name, time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("mark %s initialized: %w", name, err)
	}
	return nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func formatStoredTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func parseStoredTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse stored time %q: %w", s, err)
	}
	return t, nil
}
