package amqp

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/rabbitmq/amqp091-go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hongminglow/ledger-be/internal/events"
	"github.com/hongminglow/ledger-be/internal/models"
)

func TestNewPublishing(t *testing.T) {
	at := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	tx := models.Transaction{
		ID:       "tx-1",
		UserID:   "user-1",
		Amount:   decimal.NewFromInt(-500),
		Type:     models.Expense,
		Category: models.Food,
	}
	ev := events.NewTransactionEvent(events.TransactionCreated, tx, at)

	msg, err := newPublishing(ev)
	require.NoError(t, err)

	assert.Equal(t, "application/json", msg.ContentType)
	assert.Equal(t, amqp091.Persistent, msg.DeliveryMode)
	assert.Equal(t, "transaction.created", msg.Type)
	assert.Equal(t, "tx-1:transaction.created", msg.MessageId)
	assert.True(t, msg.Timestamp.Equal(at))

	var body map[string]any
	require.NoError(t, json.Unmarshal(msg.Body, &body))
	assert.Equal(t, "transaction.created", body["kind"])
	assert.Equal(t, "user-1", body["userId"])
	assert.Equal(t, "tx-1", body["transactionId"])
	assert.Equal(t, float64(-500), body["amount"])
	assert.Equal(t, "expense", body["type"])
	assert.Equal(t, "Food", body["category"])
}

func TestNewClientRejectsBadURL(t *testing.T) {
	_, err := NewClient("not-a-url", "ledger")
	assert.Error(t, err)
}
