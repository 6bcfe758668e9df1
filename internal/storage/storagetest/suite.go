// Package storagetest holds the behaviour every storage.Store must share.
// Backend packages run it from their own tests.
package storagetest

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"

	"github.com/hongminglow/ledger-be/internal/models"
	"github.com/hongminglow/ledger-be/internal/storage"
)

// StoreSuite runs against the store returned by Open, called once per test.
type StoreSuite struct {
	suite.Suite
	Open  func() storage.Store
	store storage.Store
}

func (s *StoreSuite) SetupTest() {
	s.store = s.Open()
}

func (s *StoreSuite) TearDownTest() {
	s.Require().NoError(s.store.Close())
}

var base = time.Date(2024, 5, 1, 9, 30, 0, 0, time.UTC)

func (s *StoreSuite) newUser(email string) models.User {
	u, err := s.store.CreateUser(s.T().Context(), models.User{
		ID:           uuid.NewString(),
		Name:         "User " + email,
		Email:        email,
		PasswordHash: "$2a$10$hash",
		CreatedAt:    base,
	})
	s.Require().NoError(err)
	return u
}

func (s *StoreSuite) newTx(userID string, amount int64, date time.Time, key string) models.Transaction {
	kind, category := models.Expense, models.Food
	if amount > 0 {
		kind, category = models.Income, models.Salary
	}
	tx, err := s.store.InsertTransaction(s.T().Context(), models.Transaction{
		ID:             uuid.NewString(),
		UserID:         userID,
		Amount:         decimal.NewFromInt(amount),
		Type:           kind,
		Category:       category,
		Date:           date,
		IdempotencyKey: key,
		CreatedAt:      base,
		UpdatedAt:      base,
	})
	s.Require().NoError(err)
	return tx
}

func (s *StoreSuite) TestUsersAreUniqueByEmail() {
	ctx := s.T().Context()
	alice := s.newUser("alice@example.com")

	_, err := s.store.CreateUser(ctx, models.User{
		ID:           uuid.NewString(),
		Name:         "Imposter",
		Email:        "alice@example.com",
		PasswordHash: "x",
		CreatedAt:    base,
	})
	s.ErrorIs(err, storage.ErrAlreadyExists)

	found, err := s.store.FindByEmail(ctx, "ALICE@example.com")
	s.Require().NoError(err)
	s.Equal(alice.ID, found.ID)
	s.Equal("$2a$10$hash", found.PasswordHash)

	byID, err := s.store.FindByID(ctx, alice.ID)
	s.Require().NoError(err)
	s.Equal("alice@example.com", byID.Email)

	_, err = s.store.FindByEmail(ctx, "nobody@example.com")
	s.ErrorIs(err, storage.ErrNotFound)
	_, err = s.store.FindByID(ctx, uuid.NewString())
	s.ErrorIs(err, storage.ErrNotFound)
}

func (s *StoreSuite) TestTransactionRoundTrip() {
	ctx := s.T().Context()
	alice := s.newUser("alice@example.com")

	amount, err := decimal.NewFromString("-12.34")
	s.Require().NoError(err)
	created, err := s.store.InsertTransaction(ctx, models.Transaction{
		ID:        uuid.NewString(),
		UserID:    alice.ID,
		Amount:    amount,
		Type:      models.Expense,
		Category:  models.Shopping,
		Note:      "socks",
		Date:      base,
		CreatedAt: base,
		UpdatedAt: base,
	})
	s.Require().NoError(err)

	got, err := s.store.FindTransaction(ctx, created.ID, alice.ID)
	s.Require().NoError(err)
	s.True(got.Amount.Equal(amount), got.Amount.String())
	s.Equal(models.Expense, got.Type)
	s.Equal(models.Shopping, got.Category)
	s.Equal("socks", got.Note)
	s.True(got.Date.Equal(base))
}

func (s *StoreSuite) TestFractionalAmountsRoundTrip() {
	ctx := s.T().Context()
	alice := s.newUser("alice@example.com")

	for _, raw := range []string{"-0.01", "-0.10", "12.34", "-9999999999999999999999.99"} {
		want, err := decimal.NewFromString(raw)
		s.Require().NoError(err)
		kind, category := models.Expense, models.Food
		if want.IsPositive() {
			kind, category = models.Income, models.Salary
		}
		created, err := s.store.InsertTransaction(ctx, models.Transaction{
			ID:        uuid.NewString(),
			UserID:    alice.ID,
			Amount:    want,
			Type:      kind,
			Category:  category,
			Date:      base,
			CreatedAt: base,
			UpdatedAt: base,
		})
		s.Require().NoError(err, raw)
		s.True(created.Amount.Equal(want), "%s returned as %s", raw, created.Amount)

		got, err := s.store.FindTransaction(ctx, created.ID, alice.ID)
		s.Require().NoError(err)
		s.True(got.Amount.Equal(want), "%s stored as %s", raw, got.Amount)
	}

	txs, err := s.store.ListTransactions(ctx, alice.ID)
	s.Require().NoError(err)
	s.Len(txs, 4)
}

func (s *StoreSuite) TestListIsOwnerScopedAndNewestFirst() {
	ctx := s.T().Context()
	alice := s.newUser("alice@example.com")
	bob := s.newUser("bob@example.com")

	s.newTx(alice.ID, -1, base.AddDate(0, 0, -2), "")
	s.newTx(alice.ID, 2, base, "")
	s.newTx(alice.ID, -3, base.AddDate(0, 0, -1), "")
	s.newTx(bob.ID, -4, base, "")

	txs, err := s.store.ListTransactions(ctx, alice.ID)
	s.Require().NoError(err)
	s.Require().Len(txs, 3)
	s.True(txs[0].Amount.Equal(decimal.NewFromInt(2)))
	s.True(txs[1].Amount.Equal(decimal.NewFromInt(-3)))
	s.True(txs[2].Amount.Equal(decimal.NewFromInt(-1)))

	empty, err := s.store.ListTransactions(ctx, uuid.NewString())
	s.Require().NoError(err)
	s.Empty(empty)
}

func (s *StoreSuite) TestOwnershipOnEveryOperation() {
	ctx := s.T().Context()
	alice := s.newUser("alice@example.com")
	bob := s.newUser("bob@example.com")
	tx := s.newTx(bob.ID, -10, base, "")

	_, err := s.store.FindTransaction(ctx, tx.ID, alice.ID)
	s.ErrorIs(err, storage.ErrNotFound)

	hijack := tx
	hijack.UserID = alice.ID
	hijack.Note = "mine"
	_, err = s.store.UpdateTransaction(ctx, hijack)
	s.ErrorIs(err, storage.ErrNotFound)

	s.ErrorIs(s.store.DeleteTransaction(ctx, tx.ID, alice.ID), storage.ErrNotFound)

	still, err := s.store.FindTransaction(ctx, tx.ID, bob.ID)
	s.Require().NoError(err)
	s.Empty(still.Note)
}

func (s *StoreSuite) TestUpdateAndDelete() {
	ctx := s.T().Context()
	alice := s.newUser("alice@example.com")
	tx := s.newTx(alice.ID, -10, base, "")

	later := base.Add(time.Hour)
	tx.Amount = decimal.NewFromInt(250)
	tx.Type = models.Income
	tx.Category = models.Other
	tx.Note = "refund"
	tx.UpdatedAt = later
	updated, err := s.store.UpdateTransaction(ctx, tx)
	s.Require().NoError(err)
	s.True(updated.Amount.Equal(decimal.NewFromInt(250)))
	s.Equal(models.Income, updated.Type)
	s.Equal("refund", updated.Note)
	s.True(updated.UpdatedAt.Equal(later))
	s.True(updated.CreatedAt.Equal(base))

	s.Require().NoError(s.store.DeleteTransaction(ctx, tx.ID, alice.ID))
	_, err = s.store.FindTransaction(ctx, tx.ID, alice.ID)
	s.ErrorIs(err, storage.ErrNotFound)
	s.ErrorIs(s.store.DeleteTransaction(ctx, tx.ID, alice.ID), storage.ErrNotFound)
}

func (s *StoreSuite) TestIdempotencyKeysArePerUser() {
	ctx := s.T().Context()
	alice := s.newUser("alice@example.com")
	bob := s.newUser("bob@example.com")
	first := s.newTx(alice.ID, -5, base, "key-1")

	found, err := s.store.FindTransactionByIdempotencyKey(ctx, alice.ID, "key-1")
	s.Require().NoError(err)
	s.Equal(first.ID, found.ID)

	_, err = s.store.FindTransactionByIdempotencyKey(ctx, bob.ID, "key-1")
	s.ErrorIs(err, storage.ErrNotFound)

	_, err = s.store.InsertTransaction(ctx, models.Transaction{
		ID:             uuid.NewString(),
		UserID:         alice.ID,
		Amount:         decimal.NewFromInt(-5),
		Type:           models.Expense,
		Category:       models.Food,
		Date:           base,
		IdempotencyKey: "key-1",
		CreatedAt:      base,
		UpdatedAt:      base,
	})
	s.ErrorIs(err, storage.ErrAlreadyExists)

	s.newTx(bob.ID, -5, base, "key-1")
	s.newTx(alice.ID, -6, base, "")
	s.newTx(alice.ID, -7, base, "")
}
