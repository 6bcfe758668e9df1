package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/hongminglow/ledger-be/internal/models"
	"github.com/hongminglow/ledger-be/internal/storage"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Ensure Store satisfies the storage.Store interface at compile time.
var _ storage.Store = (*Store)(nil)

// Store provides Postgres-backed persistence for users and their ledgers.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore connects to databaseURL and applies the schema.
func NewStore(ctx context.Context, databaseURL string) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	s := &Store{pool: pool}
	if err := s.migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return s, nil
}

// Close releases database resources.
func (s *Store) Close() error {
	if s.pool != nil {
		s.pool.Close()
	}
	return nil
}

func (s *Store) migrate(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id UUID PRIMARY KEY,
			name TEXT NOT NULL,
			email TEXT UNIQUE NOT NULL,
			password_hash TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);`,
		`CREATE TABLE IF NOT EXISTS transactions (
			id UUID PRIMARY KEY,
			user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			amount NUMERIC(24,2) NOT NULL,
			type TEXT NOT NULL CHECK (type IN ('income', 'expense')),
			category TEXT NOT NULL,
			note TEXT NOT NULL DEFAULT '',
			date TIMESTAMPTZ NOT NULL,
			idempotency_key TEXT,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);`,
		`CREATE INDEX IF NOT EXISTS transactions_user_date_idx ON transactions (user_id, date DESC, created_at DESC);`,
		`CREATE UNIQUE INDEX IF NOT EXISTS transactions_idempotency_idx ON transactions (user_id, idempotency_key) WHERE idempotency_key IS NOT NULL;`,
	}
	for _, stmt := range stmts {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("apply migrations: %w", err)
		}
	}
	return nil
}

// CreateUser inserts a new user row.
func (s *Store) CreateUser(ctx context.Context, user models.User) (models.User, error) {
	const query = `
		INSERT INTO users (id, name, email, password_hash)
		VALUES ($1, $2, $3, $4)
		RETURNING id, name, email, password_hash, created_at;
		`
	row := s.pool.QueryRow(ctx, query, user.ID, user.Name, models.NormalizeEmail(user.Email), user.PasswordHash)
	created, err := scanUser(row)
	if err != nil {
		if isUniqueViolation(err) {
			return models.User{}, storage.ErrAlreadyExists
		}
		return models.User{}, err
	}
	return created, nil
}

// FindByEmail fetches a user by email address.
func (s *Store) FindByEmail(ctx context.Context, email string) (models.User, error) {
	const query = `SELECT id, name, email, password_hash, created_at FROM users WHERE email = $1;`
	return scanUser(s.pool.QueryRow(ctx, query, models.NormalizeEmail(email)))
}

// FindByID fetches a user by primary key.
func (s *Store) FindByID(ctx context.Context, id string) (models.User, error) {
	if _, err := uuid.Parse(id); err != nil {
		return models.User{}, storage.ErrNotFound
	}
	const query = `SELECT id, name, email, password_hash, created_at FROM users WHERE id = $1;`
	return scanUser(s.pool.QueryRow(ctx, query, id))
}

const transactionColumns = `id, user_id, amount, type, category, note, date, COALESCE(idempotency_key, ''), created_at, updated_at`

// InsertTransaction stores a new ledger entry.
func (s *Store) InsertTransaction(ctx context.Context, tx models.Transaction) (models.Transaction, error) {
	query := `
		INSERT INTO transactions (id, user_id, amount, type, category, note, date, idempotency_key, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NULLIF($8, ''), $9, $9)
		RETURNING ` + transactionColumns + `;`
	row := s.pool.QueryRow(ctx, query, tx.ID, tx.UserID, tx.Amount, string(tx.Type), string(tx.Category),
		tx.Note, tx.Date, tx.IdempotencyKey, tx.CreatedAt)
	created, err := scanTransaction(row)
	if err != nil {
		if isUniqueViolation(err) {
			return models.Transaction{}, storage.ErrAlreadyExists
		}
		return models.Transaction{}, err
	}
	return created, nil
}

// ListTransactions returns every transaction owned by userID, newest first.
func (s *Store) ListTransactions(ctx context.Context, userID string) ([]models.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE user_id = $1 ORDER BY date DESC, created_at DESC;`
	rows, err := s.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("query transactions: %w", err)
	}
	defer rows.Close()

	out := []models.Transaction{}
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, tx)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transactions: %w", err)
	}
	return out, nil
}

// FindTransaction fetches one transaction by id, scoped to its owner.
func (s *Store) FindTransaction(ctx context.Context, id, userID string) (models.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE id = $1 AND user_id = $2;`
	return scanTransaction(s.pool.QueryRow(ctx, query, id, userID))
}

// FindTransactionByIdempotencyKey fetches the transaction a user created with key.
func (s *Store) FindTransactionByIdempotencyKey(ctx context.Context, userID, key string) (models.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE user_id = $1 AND idempotency_key = $2;`
	return scanTransaction(s.pool.QueryRow(ctx, query, userID, key))
}

// UpdateTransaction rewrites the mutable fields of an owned transaction.
func (s *Store) UpdateTransaction(ctx context.Context, tx models.Transaction) (models.Transaction, error) {
	query := `
		UPDATE transactions
		SET amount = $3, type = $4, category = $5, note = $6, date = $7, updated_at = $8
		WHERE id = $1 AND user_id = $2
		RETURNING ` + transactionColumns + `;`
	row := s.pool.QueryRow(ctx, query, tx.ID, tx.UserID, tx.Amount, string(tx.Type), string(tx.Category),
		tx.Note, tx.Date, tx.UpdatedAt)
	return scanTransaction(row)
}

// DeleteTransaction removes an owned transaction.
func (s *Store) DeleteTransaction(ctx context.Context, id, userID string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM transactions WHERE id = $1 AND user_id = $2;`, id, userID)
	if err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func scanUser(row pgx.Row) (models.User, error) {
	var user models.User
	if err := row.Scan(&user.ID, &user.Name, &user.Email, &user.PasswordHash, &user.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.User{}, storage.ErrNotFound
		}
		return models.User{}, err
	}
	return user, nil
}

func scanTransaction(row pgx.Row) (models.Transaction, error) {
	var (
		tx       models.Transaction
		kind     string
		category string
	)
	err := row.Scan(&tx.ID, &tx.UserID, &tx.Amount, &kind, &category, &tx.Note, &tx.Date,
		&tx.IdempotencyKey, &tx.CreatedAt, &tx.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Transaction{}, storage.ErrNotFound
		}
		return models.Transaction{}, err
	}
	tx.Type = models.TransactionType(kind)
	tx.Category = models.Category(category)
	tx.Date = tx.Date.UTC()
	return tx, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
