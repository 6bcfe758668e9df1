package models

import (
	"time"

	"github.com/shopspring/decimal"
)

func init() {
	// Amounts travel as JSON numbers, matching what the client sends.
	decimal.MarshalJSONWithoutQuotes = true
}

// Transaction is a single ledger entry owned by exactly one user.
// Expenses carry negative amounts and incomes positive ones.
type Transaction struct {
	ID             string          `json:"_id"`
	UserID         string          `json:"userId"`
	Amount         decimal.Decimal `json:"amount"`
	Type           TransactionType `json:"type"`
	Category       Category        `json:"category"`
	Note           string          `json:"note,omitempty"`
	Date           time.Time       `json:"date"`
	IdempotencyKey string          `json:"-"`
	CreatedAt      time.Time       `json:"createdAt"`
	UpdatedAt      time.Time       `json:"updatedAt"`
}

// Summary is the derived view over a user's ledger. Expense is the literal
// (non-positive) sum of expense amounts, so Balance = Income + Expense.
type Summary struct {
	Income            decimal.Decimal `json:"income"`
	Expense           decimal.Decimal `json:"expense"`
	Balance           decimal.Decimal `json:"balance"`
	TotalTransactions int             `json:"totalTransactions"`
}
