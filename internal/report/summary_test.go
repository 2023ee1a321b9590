package report

import (
	"context"
	"strings"
	"testing"
	"time"

	"shoptracker/internal/core"
	"shoptracker/internal/ledger"
	"shoptracker/internal/storage"
)

func TestBuildAndRenderMonthly(t *testing.T) {
	l, err := ledger.Open(context.Background(), storage.NewMemoryBackend(), nil)
	if err != nil {
		t.Fatalf("open ledger: %v", err)
	}
	_, err = l.AddPurchase(context.Background(), core.PurchasePayload{
		Date:         time.Date(2026, 2, 20, 9, 0, 0, 0, time.UTC),
		Item:         core.ItemRef{Name: "Milk"},
		Shop:         &core.ShopRef{Name: "Big Bazaar"},
		PricePerUnit: 28,
		Quantity:     2,
		Unit:         "ltr",
	})
	if err != nil {
		t.Fatalf("add purchase: %v", err)
	}

	m := BuildMonthly(l, time.February, 2026)
	if m.Total != 766 { // 710 seed + 56
		t.Fatalf("total: got %v, want 766", m.Total)
	}
	if len(m.TopExpenses) == 0 || m.TopExpenses[0].Name != "Milk" {
		t.Fatalf("Milk (336) should rank first, got %+v", m.TopExpenses)
	}
	foundShop := false
	for _, g := range m.Groups {
		if g.ShopName == "Big Bazaar" {
			foundShop = true
		}
		for _, s := range g.Sessions {
			if !strings.HasPrefix(s.Date, "2026-02") {
				t.Fatalf("session outside month: %s", s.Date)
			}
		}
	}
	if !foundShop {
		t.Fatal("Big Bazaar session missing from summary")
	}

	text := Render(m)
	for _, want := range []string{"February 2026", "₹ 766.00", "Milk", "Big Bazaar"} {
		if !strings.Contains(text, want) {
			t.Fatalf("summary missing %q:\n%s", want, text)
		}
	}
}
