// Package ledger holds the transaction rules: validation on every write,
// owner-scoped access to the store, and the summary over a user's ledger.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/hongminglow/ledger-be/internal/events"
	applog "github.com/hongminglow/ledger-be/internal/log"
	"github.com/hongminglow/ledger-be/internal/models"
	"github.com/hongminglow/ledger-be/internal/storage"
)

// MaxIdempotencyKeyLength bounds the client-chosen key of a create request.
const MaxIdempotencyKeyLength = 128

// ErrInvalidIdempotencyKey is wrapped by the *ValidationError returned for an oversized key.
var ErrInvalidIdempotencyKey = errors.New("invalid idempotency key")

// Patch lists the fields of a partial update; nil means "keep the stored value".
type Patch struct {
	Amount   *decimal.Decimal
	Type     *string
	Category *string
	Note     *string
	Date     *string
}

// Service runs ledger operations on behalf of an authenticated user.
type Service struct {
	store     storage.TransactionStore
	publisher events.Publisher
	tracer    trace.Tracer
	now       func() time.Time
}

// NewService wires the store and the event publisher. A nil publisher disables events.
func NewService(store storage.TransactionStore, publisher events.Publisher) *Service {
	if publisher == nil {
		publisher = events.Nop{}
	}
	return &Service{
		store:     store,
		publisher: publisher,
		tracer:    otel.Tracer("github.com/hongminglow/ledger-be/internal/ledger"),
		now:       time.Now,
	}
}

// Add validates d and stores it for userID. When idempotencyKey was already
// used by this user the earlier transaction is returned with replayed=true.
func (s *Service) Add(ctx context.Context, userID string, d Draft, idempotencyKey string) (tx models.Transaction, replayed bool, err error) {
	ctx, span := s.tracer.Start(ctx, "ledger.Add", trace.WithAttributes(attribute.String("user.id", userID)))
	defer func() { finish(span, err) }()

	key := strings.TrimSpace(idempotencyKey)
	if len(key) > MaxIdempotencyKeyLength {
		return models.Transaction{}, false, invalid(ErrInvalidIdempotencyKey,
			fmt.Sprintf("idempotency key must be at most %d characters", MaxIdempotencyKeyLength))
	}
	if key != "" {
		existing, err := s.store.FindTransactionByIdempotencyKey(ctx, userID, key)
		switch {
		case err == nil:
			return existing, true, nil
		case !errors.Is(err, storage.ErrNotFound):
			return models.Transaction{}, false, fmt.Errorf("lookup idempotency key: %w", err)
		}
	}

	now := s.now().UTC()
	v, err := Validate(d, now)
	if err != nil {
		return models.Transaction{}, false, err
	}

	created, err := s.store.InsertTransaction(ctx, models.Transaction{
		ID:             uuid.NewString(),
		UserID:         userID,
		Amount:         v.Amount,
		Type:           v.Type,
		Category:       v.Category,
		Note:           v.Note,
		Date:           v.Date,
		IdempotencyKey: key,
		CreatedAt:      now,
		UpdatedAt:      now,
	})
	if err != nil {
		if key != "" && errors.Is(err, storage.ErrAlreadyExists) {
			// A concurrent request with the same key won the insert.
			existing, findErr := s.store.FindTransactionByIdempotencyKey(ctx, userID, key)
			if findErr == nil {
				return existing, true, nil
			}
		}
		return models.Transaction{}, false, fmt.Errorf("insert transaction: %w", err)
	}

	s.publish(ctx, events.TransactionCreated, created)
	return created, false, nil
}

// List returns the user's ledger, newest first.
func (s *Service) List(ctx context.Context, userID string) (txs []models.Transaction, err error) {
	ctx, span := s.tracer.Start(ctx, "ledger.List", trace.WithAttributes(attribute.String("user.id", userID)))
	defer func() { finish(span, err) }()

	txs, err = s.store.ListTransactions(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	return txs, nil
}

// Get returns one of the user's transactions, or storage.ErrNotFound when the
// id is unknown or belongs to someone else.
func (s *Service) Get(ctx context.Context, userID, id string) (tx models.Transaction, err error) {
	ctx, span := s.tracer.Start(ctx, "ledger.Get", trace.WithAttributes(attribute.String("user.id", userID)))
	defer func() { finish(span, err) }()

	return s.find(ctx, userID, id)
}

// Update merges p over the stored transaction and re-runs the full validation
// before writing.
func (s *Service) Update(ctx context.Context, userID, id string, p Patch) (tx models.Transaction, err error) {
	ctx, span := s.tracer.Start(ctx, "ledger.Update", trace.WithAttributes(attribute.String("user.id", userID)))
	defer func() { finish(span, err) }()

	current, err := s.find(ctx, userID, id)
	if err != nil {
		return models.Transaction{}, err
	}

	now := s.now().UTC()
	v, err := Validate(merge(current, p), now)
	if err != nil {
		return models.Transaction{}, err
	}

	updated, err := s.store.UpdateTransaction(ctx, models.Transaction{
		ID:        current.ID,
		UserID:    userID,
		Amount:    v.Amount,
		Type:      v.Type,
		Category:  v.Category,
		Note:      v.Note,
		Date:      v.Date,
		UpdatedAt: now,
	})
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return models.Transaction{}, storage.ErrNotFound
		}
		return models.Transaction{}, fmt.Errorf("update transaction: %w", err)
	}

	s.publish(ctx, events.TransactionUpdated, updated)
	return updated, nil
}

// Delete removes one of the user's transactions.
func (s *Service) Delete(ctx context.Context, userID, id string) (err error) {
	ctx, span := s.tracer.Start(ctx, "ledger.Delete", trace.WithAttributes(attribute.String("user.id", userID)))
	defer func() { finish(span, err) }()

	current, err := s.find(ctx, userID, id)
	if err != nil {
		return err
	}
	if err := s.store.DeleteTransaction(ctx, current.ID, userID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return storage.ErrNotFound
		}
		return fmt.Errorf("delete transaction: %w", err)
	}

	s.publish(ctx, events.TransactionDeleted, current)
	return nil
}

// Summary recomputes income, expense, balance and count from the full ledger.
func (s *Service) Summary(ctx context.Context, userID string) (sum models.Summary, err error) {
	ctx, span := s.tracer.Start(ctx, "ledger.Summary", trace.WithAttributes(attribute.String("user.id", userID)))
	defer func() { finish(span, err) }()

	txs, err := s.store.ListTransactions(ctx, userID)
	if err != nil {
		return models.Summary{}, fmt.Errorf("list transactions: %w", err)
	}
	return Summarize(txs), nil
}

func (s *Service) find(ctx context.Context, userID, id string) (models.Transaction, error) {
	if _, err := uuid.Parse(id); err != nil {
		return models.Transaction{}, storage.ErrNotFound
	}
	tx, err := s.store.FindTransaction(ctx, id, userID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return models.Transaction{}, storage.ErrNotFound
		}
		return models.Transaction{}, fmt.Errorf("find transaction: %w", err)
	}
	return tx, nil
}

func (s *Service) publish(ctx context.Context, kind events.Kind, tx models.Transaction) {
	ev := events.NewTransactionEvent(kind, tx, s.now())
	if err := s.publisher.Publish(ctx, ev); err != nil {
		applog.FromContext(ctx).WarnContext(ctx, "publish ledger event failed",
			applog.FieldComponent, applog.ComponentLedger,
			applog.FieldEventKind, kind,
			applog.FieldTransactionID, tx.ID,
			applog.FieldError, err)
	}
}

func merge(current models.Transaction, p Patch) Draft {
	amount := current.Amount
	d := Draft{
		Amount:   &amount,
		Type:     string(current.Type),
		Category: string(current.Category),
		Note:     current.Note,
		Date:     current.Date.UTC().Format(time.RFC3339Nano),
	}
	if p.Amount != nil {
		d.Amount = p.Amount
	}
	if p.Type != nil {
		d.Type = *p.Type
	}
	if p.Category != nil {
		d.Category = *p.Category
	}
	if p.Note != nil {
		d.Note = *p.Note
	}
	if p.Date != nil {
		d.Date = *p.Date
	}
	return d
}

func finish(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
