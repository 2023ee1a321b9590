package amqp

import (
	"encoding/json"
	"fmt"
	"time"
)

// Event kinds carried on the ledger event exchange.
const (
	KindPurchaseRecorded = "purchase.recorded"
	KindItemDeleted      = "item.deleted"
)

// Event is the envelope published after a ledger mutation commits. It is
// intentionally lightweight: consumers reload the ledger for full state
// and use the event only to know which month to rebuild.
type Event struct {
	Kind          string    `json:"kind"`
	TransactionID string    `json:"transactionId,omitempty"`
	ItemID        string    `json:"itemId,omitempty"`
	ItemName      string    `json:"itemName,omitempty"`
	TotalCost     float64   `json:"totalCost,omitempty"`
	Date          time.Time `json:"date,omitempty"`
	Removed       int       `json:"removed,omitempty"`
	Timestamp     time.Time `json:"timestamp"`
}

func (e *Event) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

func EventFromJSON(data []byte) (*Event, error) {
	var e Event
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, err
	}
	if e.Kind == "" {
		return nil, fmt.Errorf("event missing kind")
	}
	return &e, nil
}
