package handlers

import (
	"errors"
	"net/http"

	"github.com/hongminglow/ledger-be/internal/auth"
	"github.com/hongminglow/ledger-be/internal/http/respond"
	"github.com/hongminglow/ledger-be/internal/ledger"
	applog "github.com/hongminglow/ledger-be/internal/log"
	"github.com/hongminglow/ledger-be/internal/models"
	"github.com/hongminglow/ledger-be/internal/models/dto"
	"github.com/hongminglow/ledger-be/internal/storage"
)

// IdempotencyKeyHeader lets a client retry a create without duplicating it.
const IdempotencyKeyHeader = "Idempotency-Key"

const msgTransactionNotFound = "Transaction not found"

// TransactionHandler exposes the owner-scoped ledger endpoints.
type TransactionHandler struct {
	ledger *ledger.Service
}

func NewTransactionHandler(svc *ledger.Service) *TransactionHandler {
	return &TransactionHandler{ledger: svc}
}

// Register attaches the ledger routes under prefix, each wrapped with guard.
func (h *TransactionHandler) Register(mux *http.ServeMux, prefix string, guard func(http.Handler) http.Handler) {
	base := prefix + "/transactions"
	routes := map[string]http.HandlerFunc{
		"POST " + base:             h.handleCreate,
		"GET " + base:              h.handleList,
		"GET " + base + "/summary": h.handleSummary,
		"GET " + base + "/{id}":    h.handleGet,
		"PUT " + base + "/{id}":    h.handleUpdate,
		"DELETE " + base + "/{id}": h.handleDelete,
	}
	for pattern, fn := range routes {
		mux.Handle(pattern, guard(fn))
	}
}

func (h *TransactionHandler) handleCreate(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	var req dto.TransactionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respond.Error(w, http.StatusBadRequest, err.Error())
		return
	}

	tx, replayed, err := h.ledger.Add(r.Context(), userID, draftFrom(req), r.Header.Get(IdempotencyKeyHeader))
	if err != nil {
		h.fail(w, r, "add transaction", err)
		return
	}
	status := http.StatusCreated
	if replayed {
		status = http.StatusOK
	}
	respond.JSON(w, status, dto.TransactionResponse{Success: true, Transaction: tx})
}

func (h *TransactionHandler) handleList(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	txs, err := h.ledger.List(r.Context(), userID)
	if err != nil {
		h.fail(w, r, "list transactions", err)
		return
	}
	if txs == nil {
		txs = []models.Transaction{}
	}
	respond.JSON(w, http.StatusOK, dto.TransactionListResponse{Success: true, Transactions: txs})
}

func (h *TransactionHandler) handleSummary(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	sum, err := h.ledger.Summary(r.Context(), userID)
	if err != nil {
		h.fail(w, r, "summarize transactions", err)
		return
	}
	respond.JSON(w, http.StatusOK, dto.SummaryResponse{Success: true, Summary: sum})
}

func (h *TransactionHandler) handleGet(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	tx, err := h.ledger.Get(r.Context(), userID, r.PathValue("id"))
	if err != nil {
		h.fail(w, r, "get transaction", err)
		return
	}
	respond.JSON(w, http.StatusOK, dto.TransactionResponse{Success: true, Transaction: tx})
}

func (h *TransactionHandler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	var req dto.TransactionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respond.Error(w, http.StatusBadRequest, err.Error())
		return
	}

	tx, err := h.ledger.Update(r.Context(), userID, r.PathValue("id"), ledger.Patch{
		Amount:   req.Amount,
		Type:     req.Type,
		Category: req.Category,
		Note:     req.Note,
		Date:     req.Date,
	})
	if err != nil {
		h.fail(w, r, "update transaction", err)
		return
	}
	respond.JSON(w, http.StatusOK, dto.TransactionResponse{Success: true, Transaction: tx})
}

func (h *TransactionHandler) handleDelete(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	if err := h.ledger.Delete(r.Context(), userID, r.PathValue("id")); err != nil {
		h.fail(w, r, "delete transaction", err)
		return
	}
	respond.JSON(w, http.StatusOK, dto.MessageResponse{Success: true, Message: "Transaction deleted successfully"})
}

// fail maps a ledger error to its status. Only unexpected errors are logged.
func (h *TransactionHandler) fail(w http.ResponseWriter, r *http.Request, op string, err error) {
	var verr *ledger.ValidationError
	switch {
	case errors.As(err, &verr):
		respond.Error(w, http.StatusBadRequest, verr.Message)
	case errors.Is(err, storage.ErrNotFound):
		respond.Error(w, http.StatusNotFound, msgTransactionNotFound)
	default:
		applog.FromContext(r.Context()).Error(op+" failed",
			applog.FieldComponent, applog.ComponentLedger,
			applog.FieldError, err)
		respond.Error(w, http.StatusInternalServerError, "Failed to "+op)
	}
}

func requireUser(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		respond.Error(w, http.StatusUnauthorized, auth.ErrInvalidToken.Error())
	}
	return userID, ok
}

func draftFrom(req dto.TransactionRequest) ledger.Draft {
	d := ledger.Draft{Amount: req.Amount}
	if req.Type != nil {
		d.Type = *req.Type
	}
	if req.Category != nil {
		d.Category = *req.Category
	}
	if req.Note != nil {
		d.Note = *req.Note
	}
	if req.Date != nil {
		d.Date = *req.Date
	}
	return d
}
