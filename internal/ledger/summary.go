package ledger

import (
	"github.com/shopspring/decimal"

	"github.com/hongminglow/ledger-be/internal/models"
)

// Summarize partitions txs by type and totals each side. The expense total
// stays negative, so the balance is a plain sum.
func Summarize(txs []models.Transaction) models.Summary {
	income := decimal.Zero
	expense := decimal.Zero
	for _, tx := range txs {
		switch tx.Type {
		case models.Income:
			income = income.Add(tx.Amount)
		case models.Expense:
			expense = expense.Add(tx.Amount)
		}
	}
	return models.Summary{
		Income:            income,
		Expense:           expense,
		Balance:           income.Add(expense),
		TotalTransactions: len(txs),
	}
}
