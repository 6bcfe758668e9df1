package ledger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hongminglow/ledger-be/internal/events"
	applog "github.com/hongminglow/ledger-be/internal/log"
	"github.com/hongminglow/ledger-be/internal/models"
	"github.com/hongminglow/ledger-be/internal/storage"
	"github.com/hongminglow/ledger-be/internal/storage/memory"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, ev events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return p.err
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) kinds() []events.Kind {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]events.Kind, 0, len(p.events))
	for _, ev := range p.events {
		out = append(out, ev.Kind)
	}
	return out
}

func newTestService(t *testing.T) (*Service, *recordingPublisher) {
	t.Helper()
	pub := &recordingPublisher{}
	svc := NewService(memory.NewStore(), pub)
	svc.now = func() time.Time { return validationNow }
	return svc, pub
}

func expenseDraft(value int64, date string) Draft {
	return Draft{Amount: amount(value), Type: "expense", Category: "Food", Date: date}
}

func incomeDraft(value int64, date string) Draft {
	return Draft{Amount: amount(value), Type: "income", Category: "Salary", Date: date}
}

func strPtr(s string) *string { return &s }

func TestServiceAddAndGet(t *testing.T) {
	svc, pub := newTestService(t)
	ctx := t.Context()

	created, replayed, err := svc.Add(ctx, "alice", expenseDraft(-500, "2024-01-01"), "")
	require.NoError(t, err)
	assert.False(t, replayed)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, "alice", created.UserID)
	assert.Equal(t, validationNow, created.CreatedAt)

	got, err := svc.Get(ctx, "alice", created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, got.ID)
	assert.True(t, got.Amount.Equal(decimal.NewFromInt(-500)))

	assert.Equal(t, []events.Kind{events.TransactionCreated}, pub.kinds())
}

func TestServiceAddRejectsInvalidDraft(t *testing.T) {
	svc, pub := newTestService(t)

	_, _, err := svc.Add(t.Context(), "alice", expenseDraft(500, "2024-01-01"), "")
	assert.ErrorIs(t, err, ErrSignMismatch)

	txs, err := svc.List(t.Context(), "alice")
	require.NoError(t, err)
	assert.Empty(t, txs)
	assert.Empty(t, pub.kinds())
}

func TestServiceIdempotentAdd(t *testing.T) {
	svc, pub := newTestService(t)
	ctx := t.Context()

	first, replayed, err := svc.Add(ctx, "alice", expenseDraft(-500, "2024-01-01"), "key-1")
	require.NoError(t, err)
	assert.False(t, replayed)

	second, replayed, err := svc.Add(ctx, "alice", expenseDraft(-500, "2024-01-01"), "key-1")
	require.NoError(t, err)
	assert.True(t, replayed)
	assert.Equal(t, first.ID, second.ID)

	// The same key is independent per user.
	other, replayed, err := svc.Add(ctx, "bob", expenseDraft(-500, "2024-01-01"), "key-1")
	require.NoError(t, err)
	assert.False(t, replayed)
	assert.NotEqual(t, first.ID, other.ID)

	txs, err := svc.List(ctx, "alice")
	require.NoError(t, err)
	assert.Len(t, txs, 1)
	assert.Len(t, pub.kinds(), 2)
}

func TestServiceRejectsLongIdempotencyKey(t *testing.T) {
	svc, _ := newTestService(t)
	long := make([]byte, MaxIdempotencyKeyLength+1)
	for i := range long {
		long[i] = 'k'
	}
	_, _, err := svc.Add(t.Context(), "alice", expenseDraft(-1, "2024-01-01"), string(long))
	assert.ErrorIs(t, err, ErrInvalidIdempotencyKey)
}

func TestServiceListOrderedByDateDescending(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := t.Context()

	for _, date := range []string{"2024-02-01", "2024-03-01", "2024-01-01"} {
		_, _, err := svc.Add(ctx, "alice", expenseDraft(-1, date), "")
		require.NoError(t, err)
	}

	txs, err := svc.List(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, txs, 3)
	assert.Equal(t, time.March, txs[0].Date.Month())
	assert.Equal(t, time.February, txs[1].Date.Month())
	assert.Equal(t, time.January, txs[2].Date.Month())
}

func TestServiceUpdateValidatesMergedRecord(t *testing.T) {
	svc, pub := newTestService(t)
	ctx := t.Context()

	created, _, err := svc.Add(ctx, "alice", incomeDraft(1000, "2024-01-01"), "")
	require.NoError(t, err)

	// Flipping the type alone leaves a positive expense.
	_, err = svc.Update(ctx, "alice", created.ID, Patch{Type: strPtr("expense")})
	assert.ErrorIs(t, err, ErrSignMismatch)

	_, err = svc.Update(ctx, "alice", created.ID, Patch{Category: strPtr("Rent")})
	assert.ErrorIs(t, err, ErrInvalidCategory)

	_, err = svc.Update(ctx, "alice", created.ID, Patch{Date: strPtr("2999-01-01")})
	assert.ErrorIs(t, err, ErrFutureDate)

	updated, err := svc.Update(ctx, "alice", created.ID, Patch{
		Amount:   amount(-250),
		Type:     strPtr("expense"),
		Category: strPtr("Shopping"),
		Note:     strPtr("shoes"),
	})
	require.NoError(t, err)
	assert.True(t, updated.Amount.Equal(decimal.NewFromInt(-250)))
	assert.Equal(t, models.Expense, updated.Type)
	assert.Equal(t, models.Shopping, updated.Category)
	assert.Equal(t, "shoes", updated.Note)
	assert.Equal(t, created.Date, updated.Date)

	assert.Equal(t, []events.Kind{events.TransactionCreated, events.TransactionUpdated}, pub.kinds())
}

func TestServiceOwnershipIsolation(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := t.Context()

	owned, _, err := svc.Add(ctx, "bob", expenseDraft(-42, "2024-01-01"), "")
	require.NoError(t, err)

	_, err = svc.Get(ctx, "alice", owned.ID)
	assert.ErrorIs(t, err, storage.ErrNotFound)

	_, err = svc.Update(ctx, "alice", owned.ID, Patch{Note: strPtr("mine now")})
	assert.ErrorIs(t, err, storage.ErrNotFound)

	err = svc.Delete(ctx, "alice", owned.ID)
	assert.ErrorIs(t, err, storage.ErrNotFound)

	still, err := svc.Get(ctx, "bob", owned.ID)
	require.NoError(t, err)
	assert.Empty(t, still.Note)
}

func TestServiceDelete(t *testing.T) {
	svc, pub := newTestService(t)
	ctx := t.Context()

	created, _, err := svc.Add(ctx, "alice", expenseDraft(-5, "2024-01-01"), "")
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, "alice", created.ID))

	_, err = svc.Get(ctx, "alice", created.ID)
	assert.ErrorIs(t, err, storage.ErrNotFound)

	err = svc.Delete(ctx, "alice", created.ID)
	assert.ErrorIs(t, err, storage.ErrNotFound)

	assert.Equal(t, []events.Kind{events.TransactionCreated, events.TransactionDeleted}, pub.kinds())
}

func TestServiceMalformedIDIsNotFound(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.Get(t.Context(), "alice", "not-a-uuid")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	_, err = svc.Get(t.Context(), "alice", uuid.NewString())
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestServiceSummary(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := t.Context()

	_, _, err := svc.Add(ctx, "alice", incomeDraft(1000, "2024-01-01"), "")
	require.NoError(t, err)
	_, _, err = svc.Add(ctx, "alice", expenseDraft(-300, "2024-01-01"), "")
	require.NoError(t, err)
	_, _, err = svc.Add(ctx, "bob", expenseDraft(-9999, "2024-01-01"), "")
	require.NoError(t, err)

	sum, err := svc.Summary(ctx, "alice")
	require.NoError(t, err)
	assert.True(t, sum.Income.Equal(decimal.NewFromInt(1000)))
	assert.True(t, sum.Expense.Equal(decimal.NewFromInt(-300)))
	assert.True(t, sum.Balance.Equal(decimal.NewFromInt(700)))
	assert.Equal(t, 2, sum.TotalTransactions)

	again, err := svc.Summary(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, sum, again)
}

func TestServicePublishFailureDoesNotFailWrite(t *testing.T) {
	svc, pub := newTestService(t)
	pub.err = errors.New("broker down")

	var buf bytes.Buffer
	logger := applog.New(applog.Config{Format: "json", Output: &buf}).With(applog.FieldRequestID, "req_abc")
	ctx := applog.WithLogger(t.Context(), logger)

	created, _, err := svc.Add(ctx, "alice", expenseDraft(-1, "2024-01-01"), "")
	require.NoError(t, err)

	_, err = svc.Get(ctx, "alice", created.ID)
	assert.NoError(t, err)

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "publish ledger event failed", line["msg"])
	assert.Equal(t, "req_abc", line[applog.FieldRequestID])
	assert.Equal(t, created.ID, line[applog.FieldTransactionID])
	assert.Equal(t, string(events.TransactionCreated), line[applog.FieldEventKind])
	assert.Equal(t, "broker down", line[applog.FieldError])
}

type failingStore struct {
	storage.TransactionStore
}

func (failingStore) ListTransactions(context.Context, string) ([]models.Transaction, error) {
	return nil, errors.New("connection reset")
}

func TestServiceWrapsStoreErrors(t *testing.T) {
	svc := NewService(failingStore{}, nil)

	_, err := svc.Summary(t.Context(), "alice")
	require.Error(t, err)
	assert.NotErrorIs(t, err, storage.ErrNotFound)
	assert.Contains(t, err.Error(), "connection reset")
}
