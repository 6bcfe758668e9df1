package dto

import (
	"github.com/shopspring/decimal"

	"github.com/hongminglow/ledger-be/internal/models"
)

// TransactionRequest is the body of both create and update calls. Fields are
// pointers so a partial update can tell "absent" from "empty".
type TransactionRequest struct {
	Amount   *decimal.Decimal `json:"amount"`
	Type     *string          `json:"type"`
	Category *string          `json:"category"`
	Note     *string          `json:"note"`
	Date     *string          `json:"date"`
}

type TransactionResponse struct {
	Success     bool               `json:"success"`
	Transaction models.Transaction `json:"transaction"`
}

type TransactionListResponse struct {
	Success      bool                 `json:"success"`
	Transactions []models.Transaction `json:"transactions"`
}

type SummaryResponse struct {
	Success bool           `json:"success"`
	Summary models.Summary `json:"summary"`
}

type MessageResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}
