package amqp

import (
	"encoding/json"
	"time"
)

// Event actions carried on the sale_events queue.
const (
	ActionSync   = "sync"
	ActionDelete = "delete"
)

// SaleEvent is the lightweight message published after a sale write.
// It carries only the action and the sale ID; the worker fetches the
// full row from the database before exporting it.
type SaleEvent struct {
	Action    string    `json:"action"`
	ID        int64     `json:"id"`
	Timestamp time.Time `json:"timestamp"`
}

// NewSaleSyncEvent creates an event asking the worker to export sale id.
func NewSaleSyncEvent(id int64) *SaleEvent {
	return &SaleEvent{
		Action:    ActionSync,
		ID:        id,
		Timestamp: time.Now(),
	}
}

// NewSaleDeleteEvent creates an event asking the worker to remove sale id
// from the export target.
func NewSaleDeleteEvent(id int64) *SaleEvent {
	return &SaleEvent{
		Action:    ActionDelete,
		ID:        id,
		Timestamp: time.Now(),
	}
}

// ToJSON converts the event to JSON bytes
func (e *SaleEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// SaleEventFromJSON creates an event from JSON bytes
func SaleEventFromJSON(data []byte) (*SaleEvent, error) {
	var ev SaleEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		return nil, err
	}
	return &ev, nil
}
