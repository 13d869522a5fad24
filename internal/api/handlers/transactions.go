package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/eshaffer321/finance-reconciler/internal/api/dto"
	"github.com/eshaffer321/finance-reconciler/internal/application/service"
	"github.com/eshaffer321/finance-reconciler/internal/domain/matcher"
	"github.com/eshaffer321/finance-reconciler/internal/infrastructure/storage"
)

// TransactionsHandler handles transaction-related HTTP requests.
type TransactionsHandler struct {
	*Base
	svc *service.ReconciliationService
}

// NewTransactionsHandler creates a new transactions handler.
func NewTransactionsHandler(repo storage.Repository, svc *service.ReconciliationService) *TransactionsHandler {
	return &TransactionsHandler{
		Base: NewBase(repo),
		svc:  svc,
	}
}

// List handles GET /api/transactions.
// With a flavor, state=matched|unmatched narrows to that flavor's matched
// or unmatched participants.
func (h *TransactionsHandler) List(w http.ResponseWriter, r *http.Request) {
	params := dto.DefaultTransactionListParams()
	params.Flavor = r.URL.Query().Get("flavor")
	params.State = r.URL.Query().Get("state")
	params.Limit = ParseIntParam(r, "limit", params.Limit)
	params.Offset = ParseIntParam(r, "offset", 0)

	if params.State != "" && params.Flavor == "" {
		h.WriteError(w, http.StatusBadRequest, dto.BadRequestError("state filter requires a flavor"))
		return
	}

	transactions, err := h.repo.GetAllTransactions(r.Context())
	if err != nil {
		h.WriteError(w, http.StatusInternalServerError, dto.InternalError())
		return
	}

	if params.Flavor != "" {
		flavor, err := matcher.ParseFlavor(params.Flavor)
		if err != nil {
			h.WriteDomainError(w, err)
			return
		}
		switch matcher.ReconciliationState(params.State) {
		case matcher.StateMatched:
			transactions = h.svc.GetMatched(transactions, flavor)
		case matcher.StateUnmatched:
			transactions = h.svc.GetUnmatched(transactions, flavor)
		case "":
			transactions = participating(transactions, h.svc.GetMatched(transactions, flavor), h.svc.GetUnmatched(transactions, flavor))
		default:
			h.WriteError(w, http.StatusBadRequest, dto.BadRequestError("state must be matched or unmatched"))
			return
		}
	}

	response := dto.TransactionListResponse{
		TotalCount: len(transactions),
		Limit:      params.Limit,
		Offset:     params.Offset,
	}
	page := paginate(transactions, params.Offset, params.Limit)
	response.Transactions = make([]dto.TransactionResponse, 0, len(page))
	for _, tx := range page {
		response.Transactions = append(response.Transactions, toTransactionResponse(tx))
	}

	h.WriteJSON(w, http.StatusOK, response)
}

// History handles GET /api/transactions/{id}/history.
func (h *TransactionsHandler) History(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		h.WriteError(w, http.StatusBadRequest, dto.BadRequestError("transaction ID is required"))
		return
	}

	transactions, err := h.repo.GetAllTransactions(r.Context())
	if err != nil {
		h.WriteError(w, http.StatusInternalServerError, dto.InternalError())
		return
	}
	if !containsTransaction(transactions, id) {
		h.WriteError(w, http.StatusNotFound, dto.NotFoundError("transaction"))
		return
	}

	versions, err := h.repo.GetHistory(r.Context(), id)
	if err != nil {
		h.WriteError(w, http.StatusInternalServerError, dto.InternalError())
		return
	}

	response := dto.HistoryResponse{
		TransactionID: id,
		Versions:      make([]dto.VersionResponse, 0, len(versions)),
	}
	for _, v := range versions {
		response.Versions = append(response.Versions, toVersionResponse(v))
	}

	h.WriteJSON(w, http.StatusOK, response)
}

func containsTransaction(transactions []matcher.Transaction, id string) bool {
	for _, tx := range transactions {
		if tx.ID == id {
			return true
		}
	}
	return false
}

// participating keeps the members of all that appear in any subset, in
// their original order
func participating(all []matcher.Transaction, subsets ...[]matcher.Transaction) []matcher.Transaction {
	keep := make(map[string]bool)
	for _, subset := range subsets {
		for _, tx := range subset {
			keep[tx.ID] = true
		}
	}

	var result []matcher.Transaction
	for _, tx := range all {
		if keep[tx.ID] {
			result = append(result, tx)
		}
	}
	return result
}

func paginate(transactions []matcher.Transaction, offset, limit int) []matcher.Transaction {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(transactions) {
		return nil
	}
	end := len(transactions)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return transactions[offset:end]
}
