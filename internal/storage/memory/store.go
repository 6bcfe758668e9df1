// Package memory keeps users and ledgers in process memory. It backs the test
// suites and local runs with DATA_BACKEND=memory; nothing survives a restart.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/hongminglow/ledger-be/internal/models"
	"github.com/hongminglow/ledger-be/internal/storage"
)

var _ storage.Store = (*Store)(nil)

type Store struct {
	mu           sync.RWMutex
	users        map[string]models.User
	emails       map[string]string
	transactions map[string]models.Transaction
}

func NewStore() *Store {
	return &Store{
		users:        make(map[string]models.User),
		emails:       make(map[string]string),
		transactions: make(map[string]models.Transaction),
	}
}

func (s *Store) Close() error { return nil }

func (s *Store) CreateUser(_ context.Context, user models.User) (models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	user.Email = models.NormalizeEmail(user.Email)
	if _, taken := s.emails[user.Email]; taken {
		return models.User{}, storage.ErrAlreadyExists
	}
	if _, taken := s.users[user.ID]; taken {
		return models.User{}, storage.ErrAlreadyExists
	}
	s.users[user.ID] = user
	s.emails[user.Email] = user.ID
	return user, nil
}

func (s *Store) FindByEmail(_ context.Context, email string) (models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.emails[models.NormalizeEmail(email)]
	if !ok {
		return models.User{}, storage.ErrNotFound
	}
	return s.users[id], nil
}

func (s *Store) FindByID(_ context.Context, id string) (models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, ok := s.users[id]
	if !ok {
		return models.User{}, storage.ErrNotFound
	}
	return user, nil
}

func (s *Store) InsertTransaction(_ context.Context, tx models.Transaction) (models.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, taken := s.transactions[tx.ID]; taken {
		return models.Transaction{}, storage.ErrAlreadyExists
	}
	if tx.IdempotencyKey != "" {
		if _, ok := s.findByKeyLocked(tx.UserID, tx.IdempotencyKey); ok {
			return models.Transaction{}, storage.ErrAlreadyExists
		}
	}
	tx.UpdatedAt = tx.CreatedAt
	s.transactions[tx.ID] = tx
	return tx, nil
}

func (s *Store) ListTransactions(_ context.Context, userID string) ([]models.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []models.Transaction{}
	for _, tx := range s.transactions {
		if tx.UserID == userID {
			out = append(out, tx)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.After(out[j].Date)
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (s *Store) FindTransaction(_ context.Context, id, userID string) (models.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tx, ok := s.transactions[id]
	if !ok || tx.UserID != userID {
		return models.Transaction{}, storage.ErrNotFound
	}
	return tx, nil
}

func (s *Store) FindTransactionByIdempotencyKey(_ context.Context, userID, key string) (models.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tx, ok := s.findByKeyLocked(userID, key)
	if !ok {
		return models.Transaction{}, storage.ErrNotFound
	}
	return tx, nil
}

func (s *Store) UpdateTransaction(_ context.Context, tx models.Transaction) (models.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.transactions[tx.ID]
	if !ok || current.UserID != tx.UserID {
		return models.Transaction{}, storage.ErrNotFound
	}
	current.Amount = tx.Amount
	current.Type = tx.Type
	current.Category = tx.Category
	current.Note = tx.Note
	current.Date = tx.Date
	current.UpdatedAt = tx.UpdatedAt
	s.transactions[tx.ID] = current
	return current, nil
}

func (s *Store) DeleteTransaction(_ context.Context, id, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, ok := s.transactions[id]
	if !ok || tx.UserID != userID {
		return storage.ErrNotFound
	}
	delete(s.transactions, id)
	return nil
}

func (s *Store) findByKeyLocked(userID, key string) (models.Transaction, bool) {
	for _, tx := range s.transactions {
		if tx.UserID == userID && tx.IdempotencyKey == key {
			return tx, true
		}
	}
	return models.Transaction{}, false
}
