package storage

import (
	"context"
	"errors"

	"github.com/hongminglow/ledger-be/internal/models"
)

// ErrNotFound indicates a record does not exist or is not owned by the caller.
var ErrNotFound = errors.New("record not found")

// ErrAlreadyExists indicates a uniqueness conflict.
var ErrAlreadyExists = errors.New("record already exists")

// UserStore captures credential persistence needed by the auth handlers.
// Implementations compare emails case-insensitively.
type UserStore interface {
	CreateUser(ctx context.Context, user models.User) (models.User, error)
	FindByEmail(ctx context.Context, email string) (models.User, error)
	FindByID(ctx context.Context, id string) (models.User, error)
}

// TransactionStore persists ledger entries. Every method is scoped by the
// owning user; a transaction id alone never matches a record.
type TransactionStore interface {
	InsertTransaction(ctx context.Context, tx models.Transaction) (models.Transaction, error)
	// ListTransactions returns the user's ledger ordered by date, newest first.
	ListTransactions(ctx context.Context, userID string) ([]models.Transaction, error)
	FindTransaction(ctx context.Context, id, userID string) (models.Transaction, error)
	FindTransactionByIdempotencyKey(ctx context.Context, userID, key string) (models.Transaction, error)
	// UpdateTransaction replaces the mutable fields of the record matching tx.ID and tx.UserID.
	UpdateTransaction(ctx context.Context, tx models.Transaction) (models.Transaction, error)
	DeleteTransaction(ctx context.Context, id, userID string) error
}

// Store is a complete backend.
type Store interface {
	UserStore
	TransactionStore
	Close() error
}
