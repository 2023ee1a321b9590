package amqp

import (
	"testing"
	"time"
)

func TestEventRoundtrip(t *testing.T) {
	in := &Event{
		Kind:          KindPurchaseRecorded,
		TransactionID: "txn_1",
		ItemID:        "item_1",
		ItemName:      "Milk",
		TotalCost:     56,
		Date:          time.Date(2026, 2, 10, 9, 0, 0, 0, time.UTC),
		Timestamp:     time.Now().UTC(),
	}
	body, err := in.ToJSON()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	out, err := EventFromJSON(body)
	if err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if out.Kind != in.Kind || out.TransactionID != in.TransactionID || out.TotalCost != in.TotalCost {
		t.Fatalf("roundtrip mismatch: %+v", out)
	}
	if !out.Date.Equal(in.Date) {
		t.Fatalf("date mismatch: %v vs %v", out.Date, in.Date)
	}
}

func TestEventFromJSONRejectsMissingKind(t *testing.T) {
	if _, err := EventFromJSON([]byte(`{"itemId":"item_1"}`)); err == nil {
		t.Fatal("expected error for event without kind")
	}
	if _, err := EventFromJSON([]byte(`not json`)); err == nil {
		t.Fatal("expected error for invalid json")
	}
}
