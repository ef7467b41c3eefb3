package amqp

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"spendwise/internal/core"
)

// EventKind names a write to the ledger.
type EventKind string

const (
	ExpenseCreated EventKind = "expense.created"
	ExpenseUpdated EventKind = "expense.updated"
	ExpenseDeleted EventKind = "expense.deleted"
	BudgetCreated  EventKind = "budget.created"
	BudgetUpdated  EventKind = "budget.updated"
	BudgetDeleted  EventKind = "budget.deleted"
)

// LedgerEvent tells consumers which owner and month changed.
// Consumers reload current state from the database; the event carries no amounts.
type LedgerEvent struct {
	ID        string    `json:"id"`
	Kind      EventKind `json:"kind"`
	OwnerID   int64     `json:"ownerId"`
	Year      int       `json:"year"`
	Month     int       `json:"month"`
	Timestamp time.Time `json:"timestamp"`
}

// NewLedgerEvent creates an event for the month containing date
func NewLedgerEvent(kind EventKind, ownerID int64, period core.Period) *LedgerEvent {
	return &LedgerEvent{
		ID:        uuid.NewString(),
		Kind:      kind,
		OwnerID:   ownerID,
		Year:      period.Year,
		Month:     period.Month,
		Timestamp: time.Now().UTC(),
	}
}

// Period returns the month the event refers to
func (m *LedgerEvent) Period() core.Period {
	return core.Period{Year: m.Year, Month: m.Month}
}

// Validate rejects events a consumer cannot act on
func (m *LedgerEvent) Validate() error {
	if m.OwnerID <= 0 {
		return fmt.Errorf("invalid owner id %d", m.OwnerID)
	}
	if err := m.Period().Validate(); err != nil {
		return fmt.Errorf("invalid period %s: %w", m.Period(), err)
	}
	return nil
}

// ToJSON converts the message to JSON bytes
func (m *LedgerEvent) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// LedgerEventFromJSON creates a message from JSON bytes
func LedgerEventFromJSON(data []byte) (*LedgerEvent, error) {
	var msg LedgerEvent
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
