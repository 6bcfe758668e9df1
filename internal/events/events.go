// Package events announces ledger changes to interested consumers. Delivery
// is best effort: a failed publish never undoes a committed write.
package events

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/hongminglow/ledger-be/internal/models"
)

// Kind doubles as the routing key of a published event.
type Kind string

const (
	TransactionCreated Kind = "transaction.created"
	TransactionUpdated Kind = "transaction.updated"
	TransactionDeleted Kind = "transaction.deleted"
)

// Event describes one change to a user's ledger.
type Event struct {
	Kind          Kind                   `json:"kind"`
	UserID        string                 `json:"userId"`
	TransactionID string                 `json:"transactionId"`
	Amount        decimal.Decimal        `json:"amount"`
	Type          models.TransactionType `json:"type"`
	Category      models.Category        `json:"category"`
	OccurredAt    time.Time              `json:"occurredAt"`
}

// NewTransactionEvent builds an event of kind k from the affected transaction.
func NewTransactionEvent(k Kind, tx models.Transaction, at time.Time) Event {
	return Event{
		Kind:          k,
		UserID:        tx.UserID,
		TransactionID: tx.ID,
		Amount:        tx.Amount,
		Type:          tx.Type,
		Category:      tx.Category,
		OccurredAt:    at.UTC(),
	}
}

// Publisher sends events somewhere. Implementations must be safe for concurrent use.
type Publisher interface {
	Publish(ctx context.Context, ev Event) error
	Close() error
}

// Nop discards every event; it is used when no broker is configured.
type Nop struct{}

func (Nop) Publish(context.Context, Event) error { return nil }
func (Nop) Close() error                         { return nil }
