package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/anuj-sharma9/SpendingInsights-WebApp/internal/apperror"
	"github.com/anuj-sharma9/SpendingInsights-WebApp/internal/auth"
	"github.com/anuj-sharma9/SpendingInsights-WebApp/internal/httpjson"
	"github.com/anuj-sharma9/SpendingInsights-WebApp/internal/model"
	"github.com/anuj-sharma9/SpendingInsights-WebApp/internal/money"
	"github.com/anuj-sharma9/SpendingInsights-WebApp/internal/service"
)

// SpendingService is what the spending endpoints need from the service
// layer. *service.SpendingService implements it.
type SpendingService interface {
	CreateTransaction(ctx context.Context, externalID string, in service.CreateTransactionInput) (*model.SpendingTransaction, error)
	ListTransactions(ctx context.Context, externalID string) ([]model.SpendingTransaction, error)
	GetInsights(ctx context.Context, externalID string) (model.InsightsSnapshot, error)
}

// SpendingHandler serves transactions and insights for the signed-in user.
type SpendingHandler struct {
	spending SpendingService
	logger   *slog.Logger
}

func NewSpendingHandler(spending SpendingService, logger *slog.Logger) *SpendingHandler {
	return &SpendingHandler{spending: spending, logger: logger}
}

// createTransactionRequest mirrors the client form. Every field arrives as
// text and is validated by the service.
type createTransactionRequest struct {
	Amount          flexString `json:"amount"`
	Category        flexString `json:"category"`
	Merchant        flexString `json:"merchant"`
	TransactionDate flexString `json:"transactionDate"`
}

// TransactionResponse is one row of GET /spending.
type TransactionResponse struct {
	ID              int64        `json:"id"`
	Amount          money.Amount `json:"amount"`
	Category        string       `json:"category"`
	Merchant        string       `json:"merchant"`
	TransactionDate string       `json:"transactionDate"`
}

func toTransactionResponse(tx model.SpendingTransaction) TransactionResponse {
	return TransactionResponse{
		ID:              tx.ID,
		Amount:          tx.Amount,
		Category:        tx.Category,
		Merchant:        tx.Merchant,
		TransactionDate: tx.TransactionDate.Format(model.DateLayout),
	}
}

// userID returns the caller's identity. RequireAuth guarantees one on these
// routes, but a missing identity is still answered with 401 rather than
// trusted.
func (h *SpendingHandler) userID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, h.logger, apperror.Unauthenticated("User not authenticated"))
	}
	return id, ok
}

// HandleList returns the caller's transactions, newest first.
//
// HTTP: GET /spending
func (h *SpendingHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	externalID, ok := h.userID(w, r)
	if !ok {
		return
	}

	txs, err := h.spending.ListTransactions(r.Context(), externalID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	resp := make([]TransactionResponse, 0, len(txs))
	for _, tx := range txs {
		resp = append(resp, toTransactionResponse(tx))
	}
	httpjson.Write(w, h.logger, http.StatusOK, resp)
}

// HandleCreate records a transaction for the caller.
//
// HTTP: POST /spending
// REQUEST BODY: {"amount": "12.50", "category": "Food", "merchant": "Cafe", "transactionDate": "2024-06-01"}
func (h *SpendingHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	externalID, ok := h.userID(w, r)
	if !ok {
		return
	}

	var req createTransactionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	_, err := h.spending.CreateTransaction(r.Context(), externalID, service.CreateTransactionInput{
		Amount:          string(req.Amount),
		Category:        string(req.Category),
		Merchant:        string(req.Merchant),
		TransactionDate: string(req.TransactionDate),
	})
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	httpjson.Write(w, h.logger, http.StatusOK, SuccessResponse{Success: true})
}

// HandleInsights returns the caller's spending summary.
//
// HTTP: GET /insights
func (h *SpendingHandler) HandleInsights(w http.ResponseWriter, r *http.Request) {
	externalID, ok := h.userID(w, r)
	if !ok {
		return
	}

	snap, err := h.spending.GetInsights(r.Context(), externalID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	httpjson.Write(w, h.logger, http.StatusOK, snap)
}
